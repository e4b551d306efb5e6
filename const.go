package memcard

// BlockSize is the fixed size, in bytes, of every block on a memory card,
// including the five system blocks and every data block.
const BlockSize = 8192

// McFstBlocks is the number of system blocks reserved at the start of every
// card: header, directory, directory backup, BAT, BAT backup.
const McFstBlocks = 5

// McFstBlockSize is the total size, in bytes, of the reserved system blocks.
const McFstBlockSize = McFstBlocks * BlockSize

// MbitToBlocks converts a card size in megabits to a total block count.
const MbitToBlocks = 17

// DirLen is the number of directory entries in a single directory block.
const DirLen = 127

// BatSize is the number of block-chain slots in the BAT's Map, plus the
// five reserved system blocks that are never addressed through it.
const BatSize = 0xFFB + McFstBlocks

// DentrySize is the on-disk size, in bytes, of a single directory entry.
const DentrySize = 64

// DentryStrLen is the length of a save comment string.
const DentryStrLen = 32

// Card sizes, named the way Dolphin's memory-card manager names them: by
// the effective user-visible block count rather than the raw megabit value.
const (
	MemCard59Mb   uint16 = 4
	MemCard123Mb  uint16 = 8
	MemCard251Mb  uint16 = 16
	MemCard507Mb  uint16 = 32
	MemCard1019Mb uint16 = 64
	MemCard2043Mb uint16 = 128
)

// validSizesMb lists every whitelisted sizeMb value, in the order they are
// tried when computing a minimum-fit size during a shrink.
var validSizesMb = []uint16{MemCard59Mb, MemCard123Mb, MemCard251Mb, MemCard507Mb, MemCard1019Mb, MemCard2043Mb}

func isValidSizeMb(sizeMb uint16) bool {
	for _, v := range validSizesMb {
		if v == sizeMb {
			return true
		}
	}
	return false
}

// Encoding identifies the text encoding a card's filenames/comments use.
type Encoding uint16

const (
	EncodingASCII Encoding = 0
	EncodingSJIS  Encoding = 1
)

// MciHdrSize is the size, in bytes, of the MCI envelope header prepended to
// ".mci" card images.
const MciHdrSize = 64
