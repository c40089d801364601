// Package checksum provides the two checksum primitives the framed log
// format relies on. Both are treated as external collaborators by the
// store and serializer packages — callers only ever see CRC16 or CRC32C
// over a byte slice.
package checksum

import "hash/crc32"

// crc32cTable is the Castagnoli table; crc32.Checksum with this table is
// CRC32C, the variant the frame format uses for large payloads.
var crc32cTable = crc32.MakeTable(crc32.Castagnoli)

// CRC32C returns the CRC-32C (Castagnoli) checksum of b.
func CRC32C(b []byte) uint32 {
	return crc32.Checksum(b, crc32cTable)
}

// crc16XModemTable is the lookup table for the CRC-16/XMODEM polynomial
// (0x1021), computed once at init time.
var crc16XModemTable [256]uint16

func init() {
	const poly = 0x1021
	for i := 0; i < 256; i++ {
		crc := uint16(i) << 8
		for bit := 0; bit < 8; bit++ {
			if crc&0x8000 != 0 {
				crc = (crc << 1) ^ poly
			} else {
				crc <<= 1
			}
		}
		crc16XModemTable[i] = crc
	}
}

// CRC16XModem returns the CRC-16/XMODEM checksum of b (initial value 0x0000,
// no input/output reflection).
func CRC16XModem(b []byte) uint16 {
	var crc uint16
	for _, c := range b {
		crc = (crc << 8) ^ crc16XModemTable[byte(crc>>8)^c]
	}
	return crc
}
