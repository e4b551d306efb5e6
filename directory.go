package memcard

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// directory is one of the card's two directory-block copies: 127 entries,
// a 58-byte pad region, a big-endian update counter, and a checksum pair
// over the first 0xFFE u16 words (spec.md §3).
type directory struct {
	entries       [DirLen]DirectoryEntry
	updateCounter uint16
}

const (
	dirPadOffset           = DirLen * DentrySize     // 0x1FC0: entries end here; 58 pad bytes follow
	dirChecksumOffset      = dirChecksumWords * 2     // 0x1FFC
	dirUpdateCounterOffset = dirChecksumOffset - 2     // 0x1FFA
)

func directoryFromBytes(b []byte) (*directory, error) {
	if len(b) != BlockSize {
		return nil, fmt.Errorf("directory: expected %d bytes, got %d", BlockSize, len(b))
	}
	d := &directory{updateCounter: binary.BigEndian.Uint16(b[dirUpdateCounterOffset:])}
	for i := 0; i < DirLen; i++ {
		entry, err := directoryEntryFromBytes(b[i*DentrySize : (i+1)*DentrySize])
		if err != nil {
			return nil, fmt.Errorf("directory: entry %d: %w", i, err)
		}
		d.entries[i] = entry
	}
	return d, nil
}

func (d *directory) toBytes() []byte {
	b := make([]byte, BlockSize)
	for i, e := range d.entries {
		copy(b[i*DentrySize:(i+1)*DentrySize], e.toBytes())
	}
	// the 58-byte dummy region at dirPadOffset is left zero
	binary.BigEndian.PutUint16(b[dirUpdateCounterOffset:], d.updateCounter)
	writeChecksum(b, dirChecksumWords)
	return b
}

func (d *directory) clone() *directory {
	c := *d
	return &c
}

// numFiles counts present entries (spec.md §4.5).
func (d *directory) numFiles() int {
	n := 0
	for _, e := range d.entries {
		if !e.IsEmpty() {
			n++
		}
	}
	return n
}

// fileIndex maps a 0-based "present" index to its raw slot, or DirLen if
// userNumber does not correspond to a present entry (spec.md §4.5).
func (d *directory) fileIndex(userNumber int) int {
	j := 0
	for i, e := range d.entries {
		if !e.IsEmpty() {
			if j == userNumber {
				return i
			}
			j++
		}
	}
	return DirLen
}

// titlePresent returns the slot index matching e's game code and exact
// 32-byte filename, or DirLen if not present (spec.md §4.5).
func (d *directory) titlePresent(e DirectoryEntry) int {
	for i, existing := range d.entries {
		if bytes.Equal(existing.GameCode[:], e.GameCode[:]) && bytes.Equal(existing.FileName[:], e.FileName[:]) {
			return i
		}
	}
	return DirLen
}

// firstEmptySlot returns the index of the first empty entry, or DirLen if
// the directory is full.
func (d *directory) firstEmptySlot() int {
	for i, e := range d.entries {
		if e.IsEmpty() {
			return i
		}
	}
	return DirLen
}

// gciFileName renders "<4-byte gamecode>_<filename>.gci" for a present
// entry (spec.md §4.5).
func gciFileName(e DirectoryEntry) string {
	return fmt.Sprintf("%s_%s.gci", string(e.GameCode[:]), e.FileNameString())
}
