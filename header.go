package memcard

import (
	"encoding/binary"
	"fmt"
)

// header is the card's block 0: format timestamp, flash-ID-derived serial,
// SRAM-sourced bias/language, device ID, size, encoding, and a checksum
// pair over the first 0xFE u16 words (spec.md §3).
type header struct {
	formatTime uint64
	serial     [12]byte
	sramBias   uint32
	sramLang   uint32
	deviceID   uint16
	sizeMb     uint16
	encoding   Encoding
	checksum   uint16
	checksumInv uint16
}

// header field offsets within block 0.
const (
	hdrFormatTimeOffset = 0x00
	hdrSerialOffset     = 0x08
	hdrSramBiasOffset   = 0x14
	hdrSramLangOffset   = 0x18
	hdrDeviceIDOffset   = 0x1C
	hdrSizeMbOffset     = 0x1E
	hdrEncodingOffset   = 0x20
	hdrChecksumOffset   = 0x1FC
)

func headerFromBytes(b []byte) (*header, error) {
	if len(b) != BlockSize {
		return nil, fmt.Errorf("header: expected %d bytes, got %d", BlockSize, len(b))
	}
	h := &header{
		formatTime: binary.BigEndian.Uint64(b[hdrFormatTimeOffset:]),
		sramBias:   binary.BigEndian.Uint32(b[hdrSramBiasOffset:]),
		sramLang:   binary.BigEndian.Uint32(b[hdrSramLangOffset:]),
		deviceID:   binary.BigEndian.Uint16(b[hdrDeviceIDOffset:]),
		sizeMb:     binary.BigEndian.Uint16(b[hdrSizeMbOffset:]),
		encoding:   Encoding(binary.BigEndian.Uint16(b[hdrEncodingOffset:])),
		checksum:    binary.BigEndian.Uint16(b[hdrChecksumOffset:]),
		checksumInv: binary.BigEndian.Uint16(b[hdrChecksumOffset+2:]),
	}
	copy(h.serial[:], b[hdrSerialOffset:hdrSerialOffset+12])
	return h, nil
}

func (h *header) toBytes() []byte {
	b := make([]byte, BlockSize)
	binary.BigEndian.PutUint64(b[hdrFormatTimeOffset:], h.formatTime)
	copy(b[hdrSerialOffset:hdrSerialOffset+12], h.serial[:])
	binary.BigEndian.PutUint32(b[hdrSramBiasOffset:], h.sramBias)
	binary.BigEndian.PutUint32(b[hdrSramLangOffset:], h.sramLang)
	binary.BigEndian.PutUint16(b[hdrDeviceIDOffset:], h.deviceID)
	binary.BigEndian.PutUint16(b[hdrSizeMbOffset:], h.sizeMb)
	binary.BigEndian.PutUint16(b[hdrEncodingOffset:], uint16(h.encoding))
	binary.BigEndian.PutUint16(b[hdrChecksumOffset:], h.checksum)
	binary.BigEndian.PutUint16(b[hdrChecksumOffset+2:], h.checksumInv)
	return b
}

func (h *header) fixChecksum(b []byte) {
	writeChecksum(b, headerChecksumWords)
	h.checksum = binary.BigEndian.Uint16(b[hdrChecksumOffset:])
	h.checksumInv = binary.BigEndian.Uint16(b[hdrChecksumOffset+2:])
}

func (h *header) checksumValid(b []byte) bool {
	return checksumOK(b, headerChecksumWords)
}

// lcgMultiplier and lcgIncrement define the linear-congruential generator
// spec.md §4.10/§9 uses to
// derive a card's 12-byte serial from a flash ID and a format time, and
// (run in reverse) to recover the flash ID from a stored serial.
const (
	lcgMultiplier = 0x41C64E6D
	lcgIncrement  = 0x3039
)

// deriveSerial computes the 12-byte header serial from the three 4-byte
// flash-ID chunks and a seed (normally the format time), per spec.md §4.10.
func deriveSerial(flashID [12]byte, seed uint64) [12]byte {
	var serial [12]byte
	rnd := seed
	for i := 0; i < 12; i++ {
		rnd = ((rnd * lcgMultiplier) + lcgIncrement) >> 16
		serial[i] = flashID[i] + byte(rnd)
		rnd = ((rnd * lcgMultiplier) + lcgIncrement) >> 16
		rnd &= 0x7FFF
	}
	return serial
}

// recoverFlashID inverts deriveSerial, given the stored serial and the
// header's own format time, per spec.md §4.10 ("CARD_GetFlashID... must
// round-trip with the format-time derivation").
func recoverFlashID(serial [12]byte, formatTime uint64) [12]byte {
	var flashID [12]byte
	rnd := formatTime
	for i := 0; i < 12; i++ {
		rnd = (rnd*lcgMultiplier + lcgIncrement) >> 16
		flashID[i] = serial[i] - byte(rnd)
		rnd = (rnd*lcgMultiplier + lcgIncrement) >> 16
		rnd &= 0x7FFF
	}
	return flashID
}

// nativeUint32 decodes as little-endian, standing in for "the host's native
// byte order" in the original tool (which targeted little-endian PCs). Go
// has no portable notion of "native order" worth depending on, so this is
// pinned rather than left to runtime detection — see DESIGN.md.
func nativeUint32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

// getSerialNo derives the two 32-bit "destination card" serial numbers used
// by the F-Zero GX and PSO re-signers (spec.md §4.8), by XOR-folding the
// first 32 bytes of the header interpreted as eight native-order uint32s.
//
// This reproduces the original's use of the host's native byte order for
// this one routine (the rest of the on-disk format is big-endian); see
// DESIGN.md for why that asymmetry is preserved rather than "fixed".
func getSerialNo(b []byte) (serial1, serial2 uint32) {
	var words [8]uint32
	for i := range words {
		words[i] = nativeUint32(b[i*4 : i*4+4])
	}
	serial1 = words[0] ^ words[2] ^ words[4] ^ words[6]
	serial2 = words[1] ^ words[3] ^ words[5] ^ words[7]
	return serial1, serial2
}
