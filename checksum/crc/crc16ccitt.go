// Package crc provides reference bincodec.Checksummer implementations: the
// CRC-16-CCITT algorithm used by scenario S6 of the codec engine's test
// suite, and an xxhash-backed 64-bit checksum demonstrating a second
// algorithm registered under a different id.
package crc

import "github.com/tmplcodec/bincodec"

const poly16CCITT = 0x1021

// CRC16CCITT implements the CRC-16/CCITT-FALSE variant: polynomial 0x1021,
// MSB-first, no input/output reflection, seeded from the Checksum
// annotation's start_value (conventionally 0xFFFF).
type CRC16CCITT struct{}

var _ bincodec.Checksummer = CRC16CCITT{}

// Calculate folds buf[start:end] into a CRC-16/CCITT-FALSE value seeded with
// startValue.
func (CRC16CCITT) Calculate(buf []byte, start, end int, startValue int64) (int64, error) {
	if start < 0 || end > len(buf) || start > end {
		return 0, bincodec.ErrUnderflow
	}
	crc := uint16(startValue)
	for _, b := range buf[start:end] {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = (crc << 1) ^ poly16CCITT
			} else {
				crc <<= 1
			}
		}
	}
	return int64(crc), nil
}
