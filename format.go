package memcard

import (
	"fmt"
	"time"

	"github.com/bits-and-blooms/bitset"
)

// SystemGCTime is the default GCTimeSource: wall-clock seconds since the
// Unix epoch. The real console stamps a console-local "GC time"; since that
// epoch offset is itself SRAM/RTC state external to this library, callers
// who need byte-exact parity with a real console should supply their own
// GCTimeSource rather than rely on this default.
type SystemGCTime struct{}

func (SystemGCTime) Now() uint64 { return uint64(time.Now().Unix()) }

// DefaultSRAMSource is a zero-configuration SRAMSource: a caller-supplied
// flash ID (or the zero ID, if unset) with no counter bias and English
// language. Production callers format cards with a real console's SRAM
// image and should supply their own SRAMSource instead.
type DefaultSRAMSource struct {
	ID   [12]byte
	Bias uint32
	Lang uint32
}

func (s DefaultSRAMSource) FlashID() [12]byte  { return s.ID }
func (s DefaultSRAMSource) CounterBias() uint32 { return s.Bias }
func (s DefaultSRAMSource) Language() uint32    { return s.Lang }

// Format rebuilds a card from scratch at the given size and encoding,
// replacing everything currently loaded (spec.md §4.10). Both directory and
// BAT copies start identical with updateCounter 1, so the primary-selection
// tie-break (spec.md §3 invariant 1) deterministically picks slot A.
func (c *Card) Format(opts *OpenOptions, sizeMb uint16, encoding Encoding) error {
	o := opts.withDefaults()
	if !isValidSizeMb(sizeMb) {
		return ErrInvalidSize
	}

	flashID := o.SRAM.FlashID()
	formatTime := o.TimeSource.Now()

	c.hdr = &header{
		formatTime: formatTime,
		serial:     deriveSerial(flashID, formatTime),
		sramBias:   o.SRAM.CounterBias(),
		sramLang:   o.SRAM.Language(),
		deviceID:   0,
		sizeMb:     sizeMb,
		encoding:   encoding,
	}
	hb := c.hdr.toBytes()
	c.hdr.fixChecksum(hb)

	blankDir := &directory{updateCounter: 1}
	for i := range blankDir.entries {
		blankDir.entries[i] = emptyDirectoryEntry
	}
	c.dirs[slotA] = blankDir.clone()
	c.dirs[slotB] = blankDir.clone()
	c.currentDir = slotA

	freeSet := bitset.New(batMapEntries)
	for i := uint(0); i < batMapEntries; i++ {
		freeSet.Set(i)
	}
	blankBat := &blockAlloc{
		updateCounter: 1,
		lastAllocated: McFstBlocks - 1,
		freeSet:       freeSet,
	}
	blankBat.freeBlocks = uint16(int(sizeMb)*MbitToBlocks - McFstBlocks)
	c.bats[slotA] = blankBat.clone()
	c.bats[slotB] = blankBat.clone()
	c.currentBat = slotA

	// Zero-filled, matching the GCMBlock default (spec.md §4.10) and the
	// same zero-extend semantics Resize uses when growing a card.
	totalBlocks := uint16(int(sizeMb) * MbitToBlocks)
	c.dataBlocks = make([][]byte, int(totalBlocks)-McFstBlocks)
	for i := range c.dataBlocks {
		c.dataBlocks[i] = make([]byte, BlockSize)
	}

	c.sizeMb = sizeMb
	c.maxBlock = totalBlocks
	c.log = o.Logger
	c.sessionID = newSessionID()
	c.valid = true
	c.log.WithField("session", c.sessionID).WithField("sizeMb", sizeMb).Info("memcard: formatted new card")
	return nil
}

// Open loads filename, creating and formatting a new card if it is absent
// and the caller either forces creation or confirms via Prompter (spec.md
// §4.2 step 1).
func Open(filename string, opts *OpenOptions) (*Card, error) {
	o := opts.withDefaults()
	c := &Card{filename: filename, log: o.Logger, sessionID: newSessionID()}

	raw, mciOff, err := readCardFile(filename)
	if err != nil {
		if !isNotExist(err) {
			return nil, fmt.Errorf("memcard: %w: %v", ErrOpenFailed, err)
		}
		if !o.ForceCreation && !o.Prompter.Confirm("create a new memory card image at "+filename+"?") {
			c.valid = false
			return c, nil
		}
		if err := c.Format(opts, o.SizeMb, o.Encoding); err != nil {
			return nil, err
		}
		return c, nil
	}

	c.mciOffset = mciOff
	if err := c.loadFrom(raw); err != nil {
		return nil, err
	}
	return c, nil
}
