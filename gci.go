package memcard

import (
	"fmt"
	"os"

	"github.com/gcmemcard/gcmemcard/envelope"
)

// ImportGci reads a single-save envelope (GCI/GCS/SAV, chosen by srcPath's
// extension) and imports it onto the card (spec.md §4.7).
func (c *Card) ImportGci(srcPath string) error {
	if !c.IsValid() {
		return ErrNoMemCard
	}
	entry, data, err := readEnvelope(srcPath)
	if err != nil {
		return err
	}
	return c.ImportFile(entry, data)
}

// ExportGci writes the save at index to dstPath as a GCI, GCS, or SAV file
// chosen by dstPath's extension (spec.md §4.7's symmetric export path).
func (c *Card) ExportGci(index int, dstPath string) error {
	entry, data, err := c.GetSaveData(index)
	if err != nil {
		return err
	}
	kind, err := envelope.DetectKind(dstPath)
	if err != nil {
		return err
	}

	entryBytes := entry.toBytes()
	length := uint32(len(data)) * BlockSize
	envelope.Convert(kind, entryBytes, length, BlockSize)

	out := envelope.WritePrefix(kind)
	out = append(out, entryBytes...)
	for _, blk := range data {
		out = append(out, blk...)
	}
	return writeFileAtomic(dstPath, out)
}

// GetSaveData returns the directory entry and data blocks for the save at
// index (spec.md §6 surface: GetSaveData).
func (c *Card) GetSaveData(index int) (DirectoryEntry, [][]byte, error) {
	entry, err := c.GetDEntry(index)
	if err != nil {
		return DirectoryEntry{}, nil, err
	}
	if entry.IsEmpty() {
		return DirectoryEntry{}, nil, fmt.Errorf("memcard: directory index %d is empty", index)
	}
	data := make([][]byte, 0, entry.BlockCount)
	block := entry.FirstBlock
	bat := c.currentBAT()
	for i := uint16(0); i < entry.BlockCount; i++ {
		idx := int(block) - McFstBlocks
		if idx < 0 || idx >= len(c.dataBlocks) {
			return DirectoryEntry{}, nil, fmt.Errorf("%w: save data references block %d out of range", ErrBadChain, block)
		}
		buf := make([]byte, BlockSize)
		copy(buf, c.dataBlocks[idx])
		data = append(data, buf)
		block = bat.getNextBlock(block)
	}
	return entry, data, nil
}

// readEnvelope loads an entry and its data blocks from a GCI/GCS/SAV file,
// applying the envelope's entry transform on the way in (spec.md §4.7).
func readEnvelope(path string) (DirectoryEntry, [][]byte, error) {
	kind, err := envelope.DetectKind(path)
	if err != nil {
		return DirectoryEntry{}, nil, err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return DirectoryEntry{}, nil, fmt.Errorf("%w: %v", ErrOpenFailed, err)
	}

	prefixLen := kind.PrefixSize()
	if len(raw) < prefixLen+DentrySize {
		return DirectoryEntry{}, nil, fmt.Errorf("%w: file too short for its envelope", ErrLengthMismatch)
	}
	if err := envelope.CheckMagic(kind, raw[:prefixLen]); err != nil {
		if kind == envelope.GCS {
			return DirectoryEntry{}, nil, fmt.Errorf("%w: %v", ErrGCSFormat, err)
		}
		return DirectoryEntry{}, nil, fmt.Errorf("%w: %v", ErrSAVFormat, err)
	}

	entryBytes := make([]byte, DentrySize)
	copy(entryBytes, raw[prefixLen:prefixLen+DentrySize])
	dataStart := prefixLen + DentrySize
	length := uint32(len(raw) - dataStart)

	envelope.Convert(kind, entryBytes, length, BlockSize)

	entry, err := directoryEntryFromBytes(entryBytes)
	if err != nil {
		return DirectoryEntry{}, nil, fmt.Errorf("%w: %v", ErrOpenFailed, err)
	}
	if uint32(entry.BlockCount)*BlockSize != length {
		return DirectoryEntry{}, nil, fmt.Errorf("%w: length %d does not match %d blocks", ErrLengthMismatch, length, entry.BlockCount)
	}

	data := make([][]byte, entry.BlockCount)
	for i := range data {
		start := dataStart + i*BlockSize
		data[i] = make([]byte, BlockSize)
		copy(data[i], raw[start:start+BlockSize])
	}
	return entry, data, nil
}
