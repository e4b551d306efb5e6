package resign

import (
	"encoding/binary"
	"hash/crc32"
)

const (
	psoSystemFileName  = "PSO_SYSTEM"
	pso3SystemFileName = "PSO3_SYSTEM"

	psoCRCStart  = 0x004C
	psoCRCEnd    = 0x0164
	pso3CRCExtra = 0x10
	psoCRCInit   = 0xDEBB20E3
)

// PSO patches the Phantasy Star Online (1/2) or PSO3 system file in place,
// mirroring PSO_MakeSaveGameValid. Its CRC-32 variant shares IEEE's
// reflected polynomial (0xEDB88320), so crc32.IEEETable supplies the same
// lookup table the original builds by hand, but the update itself is not
// the conventional CRC32 convention: the original seeds the loop directly
// with 0xDEBB20E3 (no invert-on-entry) and complements only once, after the
// loop -- crc32.Update's simpleUpdate wrapper inverts both at entry and
// exit for the standard 0xFFFFFFFF-seeded convention, which would silently
// produce the wrong checksum for this seed. rawCRC32 below reproduces the
// original's per-byte loop directly against the same table.
//
// The serial numbers are written as raw 32-bit host words rather than
// big-endian, reproducing the original's native-endian pointer store at
// this one site (see memcard's header.go nativeUint32 for why this
// library pins "native" to little-endian throughout).
func PSO(filename string, blocks [][]byte, serial1, serial2 uint32) bool {
	extra := 0
	switch filename {
	case psoSystemFileName:
	case pso3SystemFileName:
		extra = pso3CRCExtra
	default:
		return false
	}
	if len(blocks) < 2 {
		return false
	}
	sys := blocks[1]

	binary.LittleEndian.PutUint32(sys[0x0158:], serial1)
	binary.LittleEndian.PutUint32(sys[0x015C:], serial2)

	chksum := rawCRC32(psoCRCInit, sys[psoCRCStart:psoCRCEnd+extra])
	binary.BigEndian.PutUint32(sys[0x0048:], chksum^0xFFFFFFFF)
	return true
}

// rawCRC32 runs the reflected CRC-32 table loop starting from seed with no
// invert at entry, matching PSO_MakeSaveGameValid's hand-rolled loop rather
// than the conventional all-ones-seeded, invert-on-both-ends convention
// hash/crc32's own Update wraps the table in.
func rawCRC32(seed uint32, data []byte) uint32 {
	crc := seed
	for _, b := range data {
		crc = (crc >> 8) ^ crc32.IEEETable[byte(crc)^b]
	}
	return crc
}
