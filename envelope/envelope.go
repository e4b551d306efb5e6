// Package envelope implements the three single-save exchange containers a
// card's directory entry and data blocks travel in outside the raw card
// image: GCI, GCS, and SAV (spec.md §4.7).
//
// Functions operate on raw 64-byte directory-entry slices and raw block
// data rather than memcard's DirectoryEntry, keeping this package a leaf
// with no import back to the root package.
package envelope

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"path/filepath"
	"strings"
)

// Kind identifies which of the three envelopes a file uses. Its value is
// also the byte offset the directory entry is stored at within the file
// (spec.md §4.7's GCI/GCS/SAV size constants).
type Kind int

const (
	GCI Kind = 0
	SAV Kind = 0x80
	GCS Kind = 0x110
)

const (
	gcsMagic = "GCSAVE"
	savMagic = "DATELGC_SAVE"

	// entrySize is the on-disk size of a directory entry, duplicated here
	// (rather than imported from memcard) because the envelope format is
	// defined independently of any particular card implementation.
	entrySize = 64

	// entryBlockCountOffset is DirectoryEntry.BlockCount's byte offset
	// within its 64-byte encoding.
	entryBlockCountOffset = 0x38
)

var (
	ErrUnknownExtension = fmt.Errorf("envelope: unrecognized file extension")
	ErrBadGCSMagic      = fmt.Errorf("envelope: missing GCSAVE magic")
	ErrBadSAVMagic      = fmt.Errorf("envelope: missing DATELGC_SAVE magic")
)

// DetectKind chooses an envelope by filename extension (spec.md §4.7: "file
// extension selects the envelope").
func DetectKind(filename string) (Kind, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".gci":
		return GCI, nil
	case ".gcs":
		return GCS, nil
	case ".sav":
		return SAV, nil
	default:
		return 0, ErrUnknownExtension
	}
}

// PrefixSize returns how many bytes precede the directory entry for kind.
func (k Kind) PrefixSize() int { return int(k) }

// CheckMagic validates the leading magic bytes for GCS and SAV prefixes;
// GCI has none to check. Magic must match uppercase exactly (spec.md
// §4.7: "Prefix magic must be matched uppercase").
func CheckMagic(k Kind, prefix []byte) error {
	switch k {
	case GCS:
		if len(prefix) < len(gcsMagic) || !bytes.Equal(prefix[:len(gcsMagic)], []byte(gcsMagic)) {
			return ErrBadGCSMagic
		}
	case SAV:
		if len(prefix) < len(savMagic) || !bytes.Equal(prefix[:len(savMagic)], []byte(savMagic)) {
			return ErrBadSAVMagic
		}
	}
	return nil
}

// WritePrefix builds the prefix bytes (magic padded to the envelope's full
// size) for kind. GCI's prefix is zero bytes.
func WritePrefix(k Kind) []byte {
	buf := make([]byte, k.PrefixSize())
	switch k {
	case GCS:
		copy(buf, gcsMagic)
	case SAV:
		copy(buf, savMagic)
	}
	return buf
}

// savSwapPairs lists the byte offsets, within a 64-byte directory entry,
// whose adjacent byte is swapped with it for the SAV envelope: Unused1/
// BIFlags, then every 2-byte-aligned pair across ImageOffset..CommentsAddr
// (spec.md §4.7; original Gcs_SavConvert's individual ByteSwap/
// ArrayByteSwap calls over 0x2C-0x3F collapse to this one rule).
var savSwapPairs = []int{0x06, 0x2C, 0x2E, 0x30, 0x32, 0x34, 0x36, 0x38, 0x3A, 0x3C, 0x3E}

// SwapSAVEntry swaps every adjacent byte pair in the SAV range in place. It
// is its own inverse: applying it twice restores the original bytes
// (spec.md §8's "SAV swap involution" property).
func SwapSAVEntry(entry []byte) {
	if len(entry) != entrySize {
		return
	}
	for _, off := range savSwapPairs {
		entry[off], entry[off+1] = entry[off+1], entry[off]
	}
}

// PatchGCSBlockCount overwrites a GCS entry's BlockCount with
// length/blockSize, since GCS files never actually store a usable count
// (spec.md §4.7): "external tools store 1 there".
func PatchGCSBlockCount(entry []byte, length uint32, blockSize int) {
	if len(entry) != entrySize {
		return
	}
	binary.BigEndian.PutUint16(entry[entryBlockCountOffset:], uint16(length/uint32(blockSize)))
}

// Convert applies the envelope-specific entry transform used on both
// import and export (spec.md §4.7's Gcs_SavConvert): GCS patches
// BlockCount from length, SAV swaps byte pairs, GCI is untouched.
func Convert(k Kind, entry []byte, length uint32, blockSize int) {
	switch k {
	case GCS:
		PatchGCSBlockCount(entry, length, blockSize)
	case SAV:
		SwapSAVEntry(entry)
	}
}
