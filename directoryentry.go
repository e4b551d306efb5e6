package memcard

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// DirectoryEntry is a single 64-byte directory entry (spec.md §3). An empty
// slot reads as all 0xFF, which makes GameCode decode as 0xFFFFFFFF.
type DirectoryEntry struct {
	GameCode     [4]byte
	MakerCode    [2]byte
	Unused1      byte
	BIFlags      byte
	FileName     [32]byte
	ModTime      uint32
	ImageOffset  uint32
	IconFmt      uint16
	AnimSpeed    uint16
	Permissions  byte
	CopyCounter  byte
	FirstBlock   uint16
	BlockCount   uint16
	Unused2      uint16
	CommentsAddr uint32
}

// Directory entry field byte offsets. These double as the SAV byte-pair
// swap boundaries (spec.md §4.7): ImageOffset through CommentsAddr sit at
// fixed offsets 0x2C-0x3F with no gaps, by construction.
const (
	deGameCodeOffset    = 0x00
	deMakerCodeOffset   = 0x04
	deUnused1Offset     = 0x06
	deBIFlagsOffset     = 0x07
	deFileNameOffset    = 0x08
	deModTimeOffset     = 0x28
	deImageOffsetOffset = 0x2C
	deIconFmtOffset     = 0x30
	deAnimSpeedOffset   = 0x32
	dePermissionsOffset = 0x34
	deCopyCounterOffset = 0x35
	deFirstBlockOffset  = 0x36
	deBlockCountOffset  = 0x38
	deUnused2Offset     = 0x3A
	deCommentsAddrOffset = 0x3C
)

var emptyDirectoryEntry = func() DirectoryEntry {
	b := bytes.Repeat([]byte{0xFF}, DentrySize)
	de, _ := directoryEntryFromBytes(b)
	return de
}()

func directoryEntryFromBytes(b []byte) (DirectoryEntry, error) {
	if len(b) != DentrySize {
		return DirectoryEntry{}, fmt.Errorf("directory entry: expected %d bytes, got %d", DentrySize, len(b))
	}
	var de DirectoryEntry
	copy(de.GameCode[:], b[deGameCodeOffset:deGameCodeOffset+4])
	copy(de.MakerCode[:], b[deMakerCodeOffset:deMakerCodeOffset+2])
	de.Unused1 = b[deUnused1Offset]
	de.BIFlags = b[deBIFlagsOffset]
	copy(de.FileName[:], b[deFileNameOffset:deFileNameOffset+32])
	de.ModTime = binary.BigEndian.Uint32(b[deModTimeOffset:])
	de.ImageOffset = binary.BigEndian.Uint32(b[deImageOffsetOffset:])
	de.IconFmt = binary.BigEndian.Uint16(b[deIconFmtOffset:])
	de.AnimSpeed = binary.BigEndian.Uint16(b[deAnimSpeedOffset:])
	de.Permissions = b[dePermissionsOffset]
	de.CopyCounter = b[deCopyCounterOffset]
	de.FirstBlock = binary.BigEndian.Uint16(b[deFirstBlockOffset:])
	de.BlockCount = binary.BigEndian.Uint16(b[deBlockCountOffset:])
	de.Unused2 = binary.BigEndian.Uint16(b[deUnused2Offset:])
	de.CommentsAddr = binary.BigEndian.Uint32(b[deCommentsAddrOffset:])
	return de, nil
}

func (de DirectoryEntry) toBytes() []byte {
	b := make([]byte, DentrySize)
	copy(b[deGameCodeOffset:], de.GameCode[:])
	copy(b[deMakerCodeOffset:], de.MakerCode[:])
	b[deUnused1Offset] = de.Unused1
	b[deBIFlagsOffset] = de.BIFlags
	copy(b[deFileNameOffset:], de.FileName[:])
	binary.BigEndian.PutUint32(b[deModTimeOffset:], de.ModTime)
	binary.BigEndian.PutUint32(b[deImageOffsetOffset:], de.ImageOffset)
	binary.BigEndian.PutUint16(b[deIconFmtOffset:], de.IconFmt)
	binary.BigEndian.PutUint16(b[deAnimSpeedOffset:], de.AnimSpeed)
	b[dePermissionsOffset] = de.Permissions
	b[deCopyCounterOffset] = de.CopyCounter
	binary.BigEndian.PutUint16(b[deFirstBlockOffset:], de.FirstBlock)
	binary.BigEndian.PutUint16(b[deBlockCountOffset:], de.BlockCount)
	binary.BigEndian.PutUint16(b[deUnused2Offset:], de.Unused2)
	binary.BigEndian.PutUint32(b[deCommentsAddrOffset:], de.CommentsAddr)
	return b
}

// IsEmpty reports whether this slot holds no save (spec.md §3: "Empty
// entry: all 0xFF").
func (de DirectoryEntry) IsEmpty() bool {
	return binary.BigEndian.Uint32(de.GameCode[:]) == 0xFFFFFFFF
}

// FileNameString returns FileName up to its first NUL byte.
func (de DirectoryEntry) FileNameString() string {
	return cString(de.FileName[:])
}

func cString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		return string(b[:i])
	}
	return string(b)
}

// BannerFormat returns BIFlags masked to its low two bits, applying the
// 0xFB inversion hack (spec.md §4.9).
func (de DirectoryEntry) BannerFormat() byte {
	flags := de.BIFlags
	if flags == 0xFB {
		flags = ^flags
	}
	return flags & 3
}

// BIFlagsString renders BIFlags as eight '0'/'1' characters, MSB first —
// a supplemented diagnostic accessor from the original tool (original
// lines 578-591), not part of spec.md's core model but useful alongside it.
func (de DirectoryEntry) BIFlagsString() string {
	return byteBits(de.BIFlags)
}

// IconFmtString and AnimSpeedString render the 2-bits-per-slot fields as
// 16 '0'/'1' characters (original lines 617-647).
func (de DirectoryEntry) IconFmtString() string  { return uint16Bits(de.IconFmt) }
func (de DirectoryEntry) AnimSpeedString() string { return uint16Bits(de.AnimSpeed) }

// PermissionsString renders Permissions the way the original tool's
// DEntry_Permissions does: M(odifiable)/C(opyable)/P(ublic) flags with an
// 'x' standing in for a bit that forbids the action (original lines
// 649-660).
func (de DirectoryEntry) PermissionsString() string {
	s := make([]byte, 3)
	if de.Permissions&0x10 != 0 {
		s[0] = 'x'
	} else {
		s[0] = 'M'
	}
	if de.Permissions&0x08 != 0 {
		s[1] = 'x'
	} else {
		s[1] = 'C'
	}
	if de.Permissions&0x04 != 0 {
		s[2] = 'P'
	} else {
		s[2] = 'x'
	}
	return string(s)
}

func byteBits(x byte) string {
	b := make([]byte, 8)
	for i := 0; i < 8; i++ {
		if x&0x80 != 0 {
			b[i] = '1'
		} else {
			b[i] = '0'
		}
		x <<= 1
	}
	return string(b)
}

func uint16Bits(x uint16) string {
	b := make([]byte, 16)
	v := x
	for i := 0; i < 16; i++ {
		if v&0x8000 != 0 {
			b[i] = '1'
		} else {
			b[i] = '0'
		}
		v <<= 1
	}
	return string(b)
}
