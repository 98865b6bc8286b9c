// Package crc computes the CRC-16/CCITT-FALSE integrity code carried by every
// data frame. Both peers must produce identical values for identical bytes, so
// text is always hashed as its UTF-8 encoding.
package crc

const (
	// Init is the register value before any input is consumed.
	Init uint16 = 0xFFFF
	// Poly is the CCITT generator polynomial x^16 + x^12 + x^5 + 1.
	Poly uint16 = 0x1021
)

// Checksum returns the CRC of p.
func Checksum(p []byte) uint16 {
	return Update(Init, p)
}

// String returns the CRC of the UTF-8 bytes of s.
func String(s string) uint16 {
	return Checksum([]byte(s))
}

// Update continues a CRC computation over p.
func Update(crc uint16, p []byte) uint16 {
	for _, b := range p {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ Poly
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
