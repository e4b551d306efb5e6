package memcard

import "encoding/binary"

// computeChecksums implements the card format's 16-bit sum / inverted-sum
// checksum pair (spec.md §4.1). buf is interpreted as length big-endian
// uint16 words; buf must contain at least 2*length bytes.
func computeChecksums(buf []byte, length int) (sum, invSum uint16) {
	for i := 0; i < length; i++ {
		w := binary.BigEndian.Uint16(buf[2*i : 2*i+2])
		sum += w
		invSum += w ^ 0xFFFF
	}
	if sum == 0xFFFF {
		sum = 0
	}
	if invSum == 0xFFFF {
		invSum = 0
	}
	return sum, invSum
}

// writeChecksum recomputes the checksum pair over buf[:2*length] and stores
// it big-endian at buf[2*length : 2*length+4].
func writeChecksum(buf []byte, length int) {
	sum, invSum := computeChecksums(buf, length)
	binary.BigEndian.PutUint16(buf[2*length:2*length+2], sum)
	binary.BigEndian.PutUint16(buf[2*length+2:2*length+4], invSum)
}

// checksumOK reports whether the checksum pair stored at
// buf[2*length : 2*length+4] matches the checksum computed over
// buf[:2*length].
func checksumOK(buf []byte, length int) bool {
	sum, invSum := computeChecksums(buf, length)
	gotSum := binary.BigEndian.Uint16(buf[2*length : 2*length+2])
	gotInvSum := binary.BigEndian.Uint16(buf[2*length+2 : 2*length+4])
	return sum == gotSum && invSum == gotInvSum
}

// Checksum region lengths, in u16 words, for each system block (spec.md §4.1).
const (
	headerChecksumWords = 0xFE
	dirChecksumWords    = 0xFFE
	batChecksumWords    = 0xFFE
	// batChecksumOffset is where the BAT's checksum region begins, in
	// bytes, skipping the leading checksum pair itself.
	batChecksumOffset = 4
)
