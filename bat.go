package memcard

import (
	"encoding/binary"
	"fmt"

	"github.com/bits-and-blooms/bitset"
)

// blockAlloc is one of the card's two BAT ("block allocation table")
// copies: a checksum pair, an update counter, a free-block count, the last
// block allocated, and a 0xFFB-entry next-block map (spec.md §3).
//
// freeSet mirrors Map as a bitset of free block indices. It is not part of
// the on-disk layout; it exists purely so NextFreeBlock need not rescan up
// to 4091 Map entries on every allocation, the same role a block group's
// bitmap plays next to ext4's authoritative extent tree.
type blockAlloc struct {
	updateCounter  uint16
	freeBlocks     uint16
	lastAllocated  uint16
	checksum       uint16
	checksumInv    uint16
	entries        [0xFFB]uint16
	freeSet        *bitset.BitSet
}

const (
	batChecksumFieldOffset  = 0x00
	batChecksumInvOffset    = 0x02
	batUpdateCounterOffset  = 0x04
	batFreeBlocksOffset     = 0x06
	batLastAllocatedOffset  = 0x08
	batMapOffset            = 0x0A
	batMapEntries           = 0xFFB
)

func blockAllocFromBytes(b []byte) (*blockAlloc, error) {
	if len(b) != BlockSize {
		return nil, fmt.Errorf("BAT: expected %d bytes, got %d", BlockSize, len(b))
	}
	bat := &blockAlloc{
		checksum:      binary.BigEndian.Uint16(b[batChecksumFieldOffset:]),
		checksumInv:   binary.BigEndian.Uint16(b[batChecksumInvOffset:]),
		updateCounter: binary.BigEndian.Uint16(b[batUpdateCounterOffset:]),
		freeBlocks:    binary.BigEndian.Uint16(b[batFreeBlocksOffset:]),
		lastAllocated: binary.BigEndian.Uint16(b[batLastAllocatedOffset:]),
	}
	for i := 0; i < batMapEntries; i++ {
		bat.entries[i] = binary.BigEndian.Uint16(b[batMapOffset+2*i:])
	}
	bat.rebuildFreeSet()
	return bat, nil
}

func (bat *blockAlloc) rebuildFreeSet() {
	bat.freeSet = bitset.New(batMapEntries)
	for i, v := range bat.entries {
		if v == 0 {
			bat.freeSet.Set(uint(i))
		}
	}
}

func (bat *blockAlloc) toBytes() []byte {
	b := make([]byte, BlockSize)
	binary.BigEndian.PutUint16(b[batUpdateCounterOffset:], bat.updateCounter)
	binary.BigEndian.PutUint16(b[batFreeBlocksOffset:], bat.freeBlocks)
	binary.BigEndian.PutUint16(b[batLastAllocatedOffset:], bat.lastAllocated)
	for i, v := range bat.entries {
		binary.BigEndian.PutUint16(b[batMapOffset+2*i:], v)
	}
	sum, invSum := computeChecksums(b[batChecksumOffset:], batChecksumWords)
	binary.BigEndian.PutUint16(b[batChecksumFieldOffset:], sum)
	binary.BigEndian.PutUint16(b[batChecksumInvOffset:], invSum)
	bat.checksum, bat.checksumInv = sum, invSum
	return b
}

func (bat *blockAlloc) clone() *blockAlloc {
	c := *bat
	c.freeSet = bat.freeSet.Clone()
	return &c
}

// batChecksumValid checks the BAT's checksum pair against its region,
// which sits at the front of the block (offsets 0-3) ahead of the data it
// covers (offset batChecksumOffset onward) — the reverse of the header and
// directory layouts, where the pair trails the data. checksumOK assumes
// the trailing layout, so the BAT needs its own comparison rather than
// reusing it.
func batChecksumValid(b []byte) bool {
	sum, invSum := computeChecksums(b[batChecksumOffset:], batChecksumWords)
	gotSum := binary.BigEndian.Uint16(b[batChecksumFieldOffset:])
	gotInvSum := binary.BigEndian.Uint16(b[batChecksumInvOffset:])
	return sum == gotSum && invSum == gotInvSum
}

// getNextBlock walks one step of a block chain (spec.md §4.4).
func (bat *blockAlloc) getNextBlock(block uint16) uint16 {
	if block < McFstBlocks || block > 4091 {
		return 0
	}
	return bat.entries[block-McFstBlocks]
}

func (bat *blockAlloc) setNextBlock(block, next uint16) {
	idx := block - McFstBlocks
	wasFree := bat.entries[idx] == 0
	bat.entries[idx] = next
	isFree := next == 0
	if wasFree != isFree {
		bat.freeSet.SetTo(uint(idx), isFree)
	}
}

// nextFreeBlock scans for a free block starting at `starting`, wrapping
// around to McFstBlocks on miss (spec.md §4.4).
//
// starting is usually BAT.LastAllocated, which a freshly-formatted card
// sets to 4 (spec.md §4.10) — one less than the first addressable data
// block, McFstBlocks. The original C implementation indexes Map at
// starting-McFstBlocks without a bounds check, which for this exact case
// reads one element before the array; here that's simply clamped to a
// full scan from the beginning, which is what the out-of-bounds read
// means to accomplish anyway.
func (bat *blockAlloc) nextFreeBlock(starting uint16) uint16 {
	if bat.freeBlocks == 0 {
		return 0xFFFF
	}
	from := uint(0)
	if starting > McFstBlocks {
		from = uint(starting - McFstBlocks)
	}
	if i, ok := bat.freeSet.NextSet(from); ok && i < batMapEntries {
		return uint16(i) + McFstBlocks
	}
	if from > 0 {
		if i, ok := bat.freeSet.NextSet(0); ok && i < from {
			return uint16(i) + McFstBlocks
		}
	}
	return 0xFFFF
}

// clearBlocks releases the chain starting at firstBlock. It fails, making
// no changes, unless the chain is exactly blockCount blocks long and
// terminates cleanly at 0xFFFF (spec.md §4.4).
func (bat *blockAlloc) clearBlocks(firstBlock, blockCount uint16) error {
	var chain []uint16
	b := firstBlock
	for b != 0xFFFF && b != 0 {
		chain = append(chain, b)
		b = bat.getNextBlock(b)
	}
	if b == 0 {
		return fmt.Errorf("%w: chain starting at %d hit a free/terminator block mid-chain", ErrBadChain, firstBlock)
	}
	if len(chain) != int(blockCount) {
		return fmt.Errorf("%w: chain starting at %d has %d blocks, expected %d", ErrBadChain, firstBlock, len(chain), blockCount)
	}
	for _, blk := range chain {
		bat.setNextBlock(blk, 0)
	}
	bat.freeBlocks += blockCount
	return nil
}
