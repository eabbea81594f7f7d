package message

import "hash/crc32"

// Checksum computes the CRC-32 (IEEE) of metadata followed by data.
func Checksum(metadata, data []byte) uint32 {
	crc := crc32.Update(0, crc32.IEEETable, metadata)
	return crc32.Update(crc, crc32.IEEETable, data)
}
