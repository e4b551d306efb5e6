package memcard

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

// readCardFile reads filename whole and reports how many leading bytes are
// an MCI envelope header, decided purely by extension (spec.md §4.2 step
// 2): ".mci" carries one, anything else (".raw", ".gcp", no extension) does
// not.
func readCardFile(filename string) (raw []byte, mciOffset int64, err error) {
	raw, err = os.ReadFile(filename)
	if err != nil {
		return nil, 0, err
	}
	if strings.EqualFold(filepath.Ext(filename), ".mci") {
		mciOffset = MciHdrSize
	}
	return raw, mciOffset, nil
}

// checksumReport is the 5-bit TestChecksums-style diagnostic bitmask
// (spec.md §4.2 step 5): one bit per system block, set when that block's
// checksum is valid.
type checksumReport struct {
	header, dirA, dirB, batA, batB bool
}

func (r checksumReport) bits() uint8 {
	var b uint8
	if r.header {
		b |= 1 << 0
	}
	if r.dirA {
		b |= 1 << 1
	}
	if r.dirB {
		b |= 1 << 2
	}
	if r.batA {
		b |= 1 << 3
	}
	if r.batB {
		b |= 1 << 4
	}
	return b
}

// loadFrom parses a full on-disk image, already including any MCI header,
// into c (spec.md §4.2 steps 2-6).
func (c *Card) loadFrom(full []byte) error {
	if c.mciOffset > 0 {
		if int64(len(full)) < c.mciOffset {
			return fmt.Errorf("%w: file shorter than MCI header", ErrInvalidFileSize)
		}
	}
	body := full[c.mciOffset:]
	if len(body)%BlockSize != 0 {
		return fmt.Errorf("%w: length %d is not a multiple of block size", ErrInvalidFileSize, len(body))
	}
	totalBlocks := len(body) / BlockSize
	if totalBlocks <= McFstBlocks || totalBlocks%MbitToBlocks != 0 {
		return fmt.Errorf("%w: %d blocks does not fit a whole megabit count", ErrInvalidFileSize, totalBlocks)
	}
	sizeMb := uint16(totalBlocks / MbitToBlocks)
	if !isValidSizeMb(sizeMb) {
		return fmt.Errorf("%w: %d Mb is not a supported card size", ErrInvalidFileSize, sizeMb)
	}

	if c.mciOffset > 0 {
		mci, err := mciHeaderFromBytes(full[:c.mciOffset])
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidFileSize, err)
		}
		if !mci.valid(uint16(totalBlocks)) {
			return fmt.Errorf("%w: MCI header does not match block count %d", ErrLengthMismatch, totalBlocks)
		}
		c.mci = mci
	}

	hdrBlock := body[0*BlockSize : 1*BlockSize]
	dirABlock := body[1*BlockSize : 2*BlockSize]
	dirBBlock := body[2*BlockSize : 3*BlockSize]
	batABlock := body[3*BlockSize : 4*BlockSize]
	batBBlock := body[4*BlockSize : 5*BlockSize]
	dataBytes := body[McFstBlocks*BlockSize:]

	report := checksumReport{
		header: checksumOK(hdrBlock, headerChecksumWords),
		dirA:   checksumOK(dirABlock, dirChecksumWords),
		dirB:   checksumOK(dirBBlock, dirChecksumWords),
		batA:   batChecksumValid(batABlock),
		batB:   batChecksumValid(batBBlock),
	}
	if c.log != nil {
		c.log.WithField("session", c.sessionID).
			WithField("checksums", fmt.Sprintf("%05b", report.bits())).
			Debug("memcard: loaded system block checksums")
	}
	if !report.header {
		return fmt.Errorf("%w: header checksum invalid", ErrOpenFailed)
	}
	if !report.dirA && !report.dirB {
		return fmt.Errorf("%w: both directory copies failed checksum", ErrOpenFailed)
	}
	if !report.batA && !report.batB {
		return fmt.Errorf("%w: both BAT copies failed checksum", ErrOpenFailed)
	}

	hdr, err := headerFromBytes(hdrBlock)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrOpenFailed, err)
	}
	dirA, err := directoryFromBytes(dirABlock)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrOpenFailed, err)
	}
	dirB, err := directoryFromBytes(dirBBlock)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrOpenFailed, err)
	}
	batA, err := blockAllocFromBytes(batABlock)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrOpenFailed, err)
	}
	batB, err := blockAllocFromBytes(batBBlock)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrOpenFailed, err)
	}

	c.hdr = hdr
	c.dirs[slotA], c.dirs[slotB] = dirA, dirB
	c.bats[slotA], c.bats[slotB] = batA, batB

	// Coupled dir/bat recovery (spec.md §4.2 step 7): a bad primary
	// directory or a bad primary BAT forces BOTH currentDir and currentBat
	// to the backup slot together, regardless of the other structure's own
	// checksum state -- the source treats the two as one recovery unit,
	// not two independent ones. Only when both primaries pass their own
	// checksum does each structure fall back to an independent
	// update-counter comparison (ties keep the non-backup copy).
	switch {
	case !report.dirA, !report.batA:
		c.currentDir = slotB
		c.currentBat = slotB
	default:
		if dirB.updateCounter > dirA.updateCounter {
			c.currentDir = slotB
		} else {
			c.currentDir = slotA
		}
		if batB.updateCounter > batA.updateCounter {
			c.currentBat = slotB
		} else {
			c.currentBat = slotA
		}
	}

	numData := totalBlocks - McFstBlocks
	c.dataBlocks = make([][]byte, numData)
	for i := 0; i < numData; i++ {
		blk := make([]byte, BlockSize)
		copy(blk, dataBytes[i*BlockSize:(i+1)*BlockSize])
		c.dataBlocks[i] = blk
	}

	c.sizeMb = sizeMb
	c.maxBlock = uint16(totalBlocks)
	c.valid = true
	return nil
}
