// Package resign re-signs a handful of known system save files so a
// destination card's checksums stay valid after an import changes which
// physical card the save lives on (spec.md §4.8).
//
// Functions here operate on raw block bytes and the two 32-bit "serial
// numbers" derived from a card's header (spec.md §4.8's CARD_GetSerialNo),
// never on memcard's own types, so this package stays a leaf with no
// dependency back on the root package.
package resign

import "encoding/binary"

const fZeroGXFileName = "f_zero.dat"

// FZeroGX patches F-Zero GX's system file in place so its embedded card
// serial numbers and CRC match the destination card, mirroring
// FZEROGX_MakeSaveGameValid. blocks must be the save's data blocks in
// order; it reports false (no-op) unless filename names the F-Zero GX
// system file and at least 4 blocks are present.
func FZeroGX(filename string, blocks [][]byte, serial1, serial2 uint32) bool {
	if filename != fZeroGXFileName || len(blocks) < 4 {
		return false
	}

	binary.BigEndian.PutUint16(blocks[1][0x0066:], uint16(serial1>>16))
	binary.BigEndian.PutUint16(blocks[3][0x1580:], uint16(serial2>>16))
	binary.BigEndian.PutUint16(blocks[1][0x0060:], uint16(serial1&0xFFFF))
	binary.BigEndian.PutUint16(blocks[1][0x0200:], uint16(serial2&0xFFFF))

	var chksum uint16 = 0xFFFF
	blockSize := len(blocks[0])
	for i := 0x02; i < 0x8000; i++ {
		block := i / blockSize
		chksum ^= uint16(blocks[block][i-block*blockSize])
		for j := 0; j < 8; j++ {
			if chksum&1 != 0 {
				chksum = (chksum >> 1) ^ 0x8408
			} else {
				chksum >>= 1
			}
		}
	}

	binary.BigEndian.PutUint16(blocks[0][0x00:], ^chksum)
	return true
}
