package memcard

import (
	"fmt"

	"github.com/sirupsen/logrus"
	uuid "github.com/satori/go.uuid"
)

// GCTimeSource supplies the monotonic "GC time" stamped into a freshly
// formatted header (spec.md §6, external collaborator: time source).
type GCTimeSource interface {
	Now() uint64
}

// SRAMSource supplies the SRAM-resident values baked into a freshly
// formatted header: the flash ID a card's serial is derived from, the
// counter bias, and the language (spec.md §6, external collaborator: SRAM
// source).
type SRAMSource interface {
	FlashID() [12]byte
	CounterBias() uint32
	Language() uint32
}

// Prompter asks the operator a yes/no question (spec.md §6, external
// collaborator: prompt). The library never blocks on stdin itself.
type Prompter interface {
	Confirm(message string) bool
}

// noPrompter is the default Prompter: it declines every question, so a
// missing file never silently creates a new card unless the caller passes
// an explicit Prompter or sets OpenOptions.ForceCreation.
type noPrompter struct{}

func (noPrompter) Confirm(string) bool { return false }

// directorySlot and batSlot name the two physical copies of the directory
// and BAT blocks. The "current" (primary) designation is logical, tracked
// by currentDir/currentBat, not by aliasing — spec.md §9 calls this out
// explicitly: "express it as two owned buffers plus an index... to make
// swap-on-write a pure assignment."
type directorySlot int

const (
	slotA directorySlot = iota
	slotB
)

// Card is an in-memory GameCube memory-card image: the five system blocks
// plus the linear data-block array (spec.md §2 component C4).
type Card struct {
	valid bool

	hdr     *header
	hdrBuf  []byte // not populated; saves serialize hdr directly

	dirs       [2]*directory
	currentDir directorySlot

	bats       [2]*blockAlloc
	currentBat directorySlot

	dataBlocks [][]byte // each BlockSize bytes, indexed by (block - McFstBlocks)

	sizeMb   uint16
	maxBlock uint16

	filename  string
	mciOffset int64
	mci       *mciHeader

	log       logrus.FieldLogger
	sessionID string
}

// OpenOptions configures Open, mirroring the teacher's ext4.Params: an
// explicit struct of knobs rather than functional options.
type OpenOptions struct {
	// ForceCreation skips the create-confirmation prompt when the file is
	// missing and formats unconditionally.
	ForceCreation bool
	// Encoding selects ASCII or SJIS when formatting a new card.
	Encoding Encoding
	// SizeMb is the card size to format at, when creating a new card.
	SizeMb uint16

	Prompter   Prompter
	TimeSource GCTimeSource
	SRAM       SRAMSource
	Logger     logrus.FieldLogger
}

func (o *OpenOptions) withDefaults() *OpenOptions {
	out := *o
	if out.Prompter == nil {
		out.Prompter = noPrompter{}
	}
	if out.TimeSource == nil {
		out.TimeSource = SystemGCTime{}
	}
	if out.SRAM == nil {
		out.SRAM = DefaultSRAMSource{}
	}
	if out.Logger == nil {
		out.Logger = logrus.StandardLogger()
	}
	if out.SizeMb == 0 {
		out.SizeMb = MemCard59Mb
	}
	return &out
}

func newSessionID() string {
	return uuid.NewV4().String()
}

func (c *Card) currentDirectory() *directory { return c.dirs[c.currentDir] }
func (c *Card) previousDirectory() *directory {
	return c.dirs[1-c.currentDir]
}
func (c *Card) currentBAT() *blockAlloc  { return c.bats[c.currentBat] }
func (c *Card) previousBAT() *blockAlloc { return c.bats[1-c.currentBat] }

// IsValid reports whether the card loaded/formatted successfully. When this
// is false, methods that return an error fail with ErrNoMemCard, and
// GetNumFiles, GetFreeBlocks, GetFileIndex, TitlePresent and FlashID return
// their empty or not-found values (spec.md §7).
func (c *Card) IsValid() bool { return c != nil && c.valid }

// GetNumFiles returns the number of present directory entries.
func (c *Card) GetNumFiles() int {
	if !c.IsValid() {
		return 0
	}
	return c.currentDirectory().numFiles()
}

// GetFreeBlocks returns the current BAT's free-block count.
func (c *Card) GetFreeBlocks() uint16 {
	if !c.IsValid() {
		return 0
	}
	return c.currentBAT().freeBlocks
}

// GetFileIndex maps a 0-based present-file index to its raw directory
// slot, or 0xFF if out of range.
func (c *Card) GetFileIndex(userNumber int) uint8 {
	if !c.IsValid() {
		return 0xFF
	}
	idx := c.currentDirectory().fileIndex(userNumber)
	if idx >= DirLen {
		return 0xFF
	}
	return uint8(idx)
}

// TitlePresent returns the slot matching e's game code and filename, or
// DirLen if not present.
func (c *Card) TitlePresent(e DirectoryEntry) int {
	if !c.IsValid() {
		return DirLen
	}
	return c.currentDirectory().titlePresent(e)
}

// GetDEntry returns a copy of the directory entry at index.
func (c *Card) GetDEntry(index int) (DirectoryEntry, error) {
	if !c.IsValid() {
		return DirectoryEntry{}, ErrNoMemCard
	}
	if index < 0 || index >= DirLen {
		return DirectoryEntry{}, fmt.Errorf("memcard: directory index %d out of range", index)
	}
	return c.currentDirectory().entries[index], nil
}

// GCIFileName renders the canonical "<gamecode>_<filename>.gci" name for a
// present entry.
func (c *Card) GCIFileName(index int) (string, error) {
	e, err := c.GetDEntry(index)
	if err != nil {
		return "", err
	}
	if e.IsEmpty() {
		return "", fmt.Errorf("memcard: directory index %d is empty", index)
	}
	return gciFileName(e), nil
}

// SaveComment1 and SaveComment2 read the two 32-byte comment strings
// stored inside the save's own data, at CommentsAddr and CommentsAddr+32
// (original lines 698-725; spec.md §6 surface list names these without
// giving their addressing, which original_source/ supplies).
func (c *Card) SaveComment1(index int) (string, error) { return c.saveComment(index, 0) }
func (c *Card) SaveComment2(index int) (string, error) { return c.saveComment(index, DentryStrLen) }

func (c *Card) saveComment(index int, extraOffset uint32) (string, error) {
	e, err := c.GetDEntry(index)
	if err != nil {
		return "", err
	}
	if e.CommentsAddr == 0xFFFFFFFF || e.FirstBlock == 0xFFFF || e.FirstBlock < McFstBlocks {
		return "", nil
	}
	dataBlock := e.FirstBlock - McFstBlocks
	if int(dataBlock) >= len(c.dataBlocks) {
		return "", nil
	}
	addr := e.CommentsAddr + extraOffset
	if int(addr)+DentryStrLen > BlockSize {
		return "", nil
	}
	return cString(c.dataBlocks[dataBlock][addr : addr+DentryStrLen]), nil
}

// FlashID recovers the three flash-ID chunks the header's serial was
// derived from (spec.md §4.10; original lines 1480-1508).
func (c *Card) FlashID() (id1, id2, id3 [4]byte) {
	if !c.IsValid() {
		return
	}
	full := recoverFlashID(c.hdr.serial, c.hdr.formatTime)
	copy(id1[:], full[0:4])
	copy(id2[:], full[4:8])
	copy(id3[:], full[8:12])
	return id1, id2, id3
}

// IsAsciiEncoding reports whether the card's filenames/comments are ASCII
// rather than SJIS.
func (c *Card) IsAsciiEncoding() bool {
	return c.hdr.encoding == EncodingASCII
}
