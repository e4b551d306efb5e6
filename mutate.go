package memcard

import (
	"fmt"

	"github.com/gcmemcard/gcmemcard/resign"
)

// commitDirectory applies the swap-on-write protocol (spec.md §4.6 steps
// 3-5) to a scratch directory built from a clone of the current primary:
// bump its update counter, write it into the previously-backup slot, then
// swap the primary designation.
func (c *Card) commitDirectory(scratch *directory) {
	scratch.updateCounter = c.currentDirectory().updateCounter + 1
	target := slotA + slotB - c.currentDir
	c.dirs[target] = scratch
	c.currentDir = target
}

func (c *Card) commitBAT(scratch *blockAlloc) {
	scratch.updateCounter = c.currentBAT().updateCounter + 1
	target := slotA + slotB - c.currentBat
	c.bats[target] = scratch
	c.currentBat = target
}

// ImportFile adds a save to the card (spec.md §4.6.1). data holds the
// save's data blocks in order; its length becomes the entry's BlockCount.
// entry.FirstBlock and entry.BlockCount are overwritten and
// entry.CopyCounter is incremented; every other field is taken as given.
func (c *Card) ImportFile(entry DirectoryEntry, data [][]byte) error {
	if !c.IsValid() {
		return ErrNoMemCard
	}
	if c.currentDirectory().numFiles() >= DirLen {
		return ErrOutOfDirEntries
	}
	blockCount := uint16(len(data))
	if c.currentBAT().freeBlocks < blockCount {
		return ErrOutOfBlocks
	}
	if c.currentDirectory().titlePresent(entry) != DirLen {
		return ErrTitlePresent
	}

	bat := c.currentBAT().clone()
	firstBlock := bat.nextFreeBlock(bat.lastAllocated)
	if firstBlock == 0xFFFF {
		return ErrOutOfBlocks
	}

	dir := c.currentDirectory().clone()
	slot := dir.firstEmptySlot()
	if slot == DirLen {
		return ErrOutOfDirEntries
	}

	entry.FirstBlock = firstBlock
	entry.BlockCount = blockCount
	entry.CopyCounter++

	serial1, serial2 := getSerialNo(c.hdr.toBytes())
	filename := entry.FileNameString()
	resign.FZeroGX(filename, data, serial1, serial2)
	resign.PSO(filename, data, serial1, serial2)

	block := firstBlock
	for i := 0; i < len(data); i++ {
		dataIdx := int(block) - McFstBlocks
		if dataIdx < 0 || dataIdx >= len(c.dataBlocks) {
			return fmt.Errorf("%w: allocated block %d out of range", ErrBadChain, block)
		}
		buf := make([]byte, BlockSize)
		copy(buf, data[i])
		c.dataBlocks[dataIdx] = buf

		var next uint16
		if i == len(data)-1 {
			next = 0xFFFF
		} else {
			next = bat.nextFreeBlock(block + 1)
			if next == 0xFFFF {
				return ErrOutOfBlocks
			}
		}
		bat.setNextBlock(block, next)
		bat.lastAllocated = block
		block = next
	}
	bat.freeBlocks -= blockCount

	dir.entries[slot] = entry

	c.commitDirectory(dir)
	c.commitBAT(bat)
	if c.log != nil {
		c.log.WithField("session", c.sessionID).WithField("slot", slot).WithField("blocks", blockCount).
			Info("memcard: imported file")
	}
	return nil
}

// RemoveFile deletes the save at index (spec.md §4.6.2). The freed
// directory slot is overwritten with 0xFF bytes; the tool's older
// behavior of renaming it to "Broken File000" instead of clearing it
// stays disabled.
func (c *Card) RemoveFile(index int) error {
	if !c.IsValid() {
		return ErrNoMemCard
	}
	if index < 0 || index >= DirLen {
		return fmt.Errorf("memcard: directory index %d out of range", index)
	}
	entry := c.currentDirectory().entries[index]
	if entry.IsEmpty() {
		return fmt.Errorf("%w: directory slot %d is already empty", ErrDeleteFailed, index)
	}

	bat := c.currentBAT().clone()
	if err := bat.clearBlocks(entry.FirstBlock, entry.BlockCount); err != nil {
		return fmt.Errorf("%w: %v", ErrDeleteFailed, err)
	}

	dir := c.currentDirectory().clone()
	dir.entries[index] = emptyDirectoryEntry

	c.commitDirectory(dir)
	c.commitBAT(bat)
	if c.log != nil {
		c.log.WithField("session", c.sessionID).WithField("slot", index).Info("memcard: removed file")
	}
	return nil
}

// minimumFitSizeMb finds the smallest whitelisted size that still holds
// every block currently in use: it takes the largest block index any chain
// reaches and scans validSizesMb from smallest up for the first size whose
// block count exceeds it (spec.md §4.6.3).
func (c *Card) minimumFitSizeMb() uint16 {
	lastUsed := uint16(McFstBlocks - 1)
	dir := c.currentDirectory()
	for _, e := range dir.entries {
		if e.IsEmpty() {
			continue
		}
		last := e.FirstBlock
		b := e.FirstBlock
		bat := c.currentBAT()
		for n := 0; n < int(e.BlockCount); n++ {
			if b > last {
				last = b
			}
			b = bat.getNextBlock(b)
			if b == 0 || b == 0xFFFF {
				break
			}
		}
		if last > lastUsed {
			lastUsed = last
		}
	}
	for _, size := range validSizesMb {
		if uint16(int(size)*MbitToBlocks) > lastUsed {
			return size
		}
	}
	return validSizesMb[len(validSizesMb)-1]
}

// Resize changes the card's size (spec.md §4.6.3). Shrinking below the
// minimum size the current contents fit into is refused. Growing
// zero-extends mc_data_blocks to the new length — the spec.md-documented
// resolution of the source's broken resize loop (a stray semicolon left
// the added blocks unpushed); see DESIGN.md.
func (c *Card) Resize(newSizeMb uint16) error {
	if !c.IsValid() {
		return ErrNoMemCard
	}
	if !isValidSizeMb(newSizeMb) {
		return ErrInvalidSize
	}
	if newSizeMb < c.sizeMb {
		if min := c.minimumFitSizeMb(); newSizeMb < min {
			return fmt.Errorf("%w: %d Mb does not fit the current contents (needs at least %d Mb)", ErrInvalidSize, newSizeMb, min)
		}
	}

	newTotalBlocks := uint16(int(newSizeMb) * MbitToBlocks)
	newDataLen := int(newTotalBlocks) - McFstBlocks
	added := int(newTotalBlocks) - int(c.maxBlock)

	if newDataLen > len(c.dataBlocks) {
		grown := make([][]byte, newDataLen)
		copy(grown, c.dataBlocks)
		for i := len(c.dataBlocks); i < newDataLen; i++ {
			grown[i] = make([]byte, BlockSize)
		}
		c.dataBlocks = grown
	} else {
		c.dataBlocks = c.dataBlocks[:newDataLen]
	}

	if added > 0 {
		for _, slot := range []directorySlot{slotA, slotB} {
			c.bats[slot] = c.bats[slot].clone()
			c.bats[slot].freeBlocks += uint16(added)
		}
	}

	c.sizeMb = newSizeMb
	c.maxBlock = newTotalBlocks
	c.hdr.sizeMb = newSizeMb
	hb := c.hdr.toBytes()
	c.hdr.fixChecksum(hb)
	return nil
}

// ReplaceHDR replaces the card's header with the first 8192 bytes of
// srcCardPath, keeping this card's own SizeMb, then saves to dstPath
// (spec.md §4.6.4). On save failure the in-memory header is restored.
func (c *Card) ReplaceHDR(srcCardPath, dstPath string) error {
	if !c.IsValid() {
		return ErrNoMemCard
	}
	if fileExists(dstPath) {
		return ErrDestinationExists
	}

	raw, err := readFullBlock(srcCardPath, BlockSize)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrOpenFailed, err)
	}

	candidate, err := headerFromBytes(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrOpenFailed, err)
	}
	candidate.sizeMb = c.sizeMb
	cb := candidate.toBytes()
	candidate.fixChecksum(cb)

	previous := c.hdr
	c.hdr = candidate
	if err := c.SaveAs(dstPath); err != nil {
		c.hdr = previous
		return err
	}
	return nil
}

// ExportHDR writes the card's current 8192-byte header block to dstPath.
func (c *Card) ExportHDR(dstPath string) error {
	if !c.IsValid() {
		return ErrNoMemCard
	}
	hb := c.hdr.toBytes()
	return writeFileAtomic(dstPath, hb)
}
