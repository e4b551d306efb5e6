package memcard

import (
	"encoding/binary"
	"fmt"
)

// mciHeader is the 64-byte envelope Datel-style third-party card dumps
// prepend to the raw card image (spec.md §3, §4.2 step 4).
type mciHeader struct {
	version string
	blocks  string
	size    uint16
	marker  byte
}

const (
	mciVersionOffset = 0x00
	mciVersionLen    = 8
	mciBlocksOffset  = 0x08
	mciBlocksLen     = 8
	mciSizeOffset    = 0x10
	mciMarkerOffset  = 0x12
	mciWantVersion   = "SDMC01"
	mciMarkerByte    = 0xF4
)

func mciHeaderFromBytes(b []byte) (*mciHeader, error) {
	if len(b) != MciHdrSize {
		return nil, fmt.Errorf("mci header: expected %d bytes, got %d", MciHdrSize, len(b))
	}
	return &mciHeader{
		version: cString(b[mciVersionOffset : mciVersionOffset+mciVersionLen]),
		blocks:  cString(b[mciBlocksOffset : mciBlocksOffset+mciBlocksLen]),
		size:    binary.BigEndian.Uint16(b[mciSizeOffset:]),
		marker:  b[mciMarkerOffset],
	}, nil
}

func newMCIHeader(totalBlocks uint16) *mciHeader {
	return &mciHeader{
		version: mciWantVersion,
		blocks:  fmt.Sprintf("%04d-BLK", totalBlocks),
		size:    totalBlocks,
		marker:  mciMarkerByte,
	}
}

func (h *mciHeader) toBytes() []byte {
	b := make([]byte, MciHdrSize)
	copy(b[mciVersionOffset:], []byte(h.version))
	copy(b[mciBlocksOffset:], []byte(h.blocks))
	binary.BigEndian.PutUint16(b[mciSizeOffset:], h.size)
	b[mciMarkerOffset] = h.marker
	return b
}

// valid checks the envelope against the card's actual total block count
// (spec.md §4.2 step 4).
func (h *mciHeader) valid(totalBlocks uint16) bool {
	want := fmt.Sprintf("%04d-BLK", totalBlocks)
	return h.version == mciWantVersion && h.blocks == want && h.size == totalBlocks && h.marker == mciMarkerByte
}
