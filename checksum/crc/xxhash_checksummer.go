package crc

import (
	"github.com/cespare/xxhash/v2"

	"github.com/tmplcodec/bincodec"
)

// XXHash64 is a second reference Checksummer, backed by
// github.com/cespare/xxhash/v2, registered under a distinct algorithm id to
// demonstrate the Checksummer registry holding more than one algorithm.
// startValue is added to the unseeded 64-bit digest rather than folded into
// a running CRC register.
type XXHash64 struct{}

var _ bincodec.Checksummer = XXHash64{}

// Calculate hashes buf[start:end] with xxhash's 64-bit digest, adds
// startValue, and returns the full 64-bit result; the caller truncates it to
// the Checksum field's declared width.
func (XXHash64) Calculate(buf []byte, start, end int, startValue int64) (int64, error) {
	if start < 0 || end > len(buf) || start > end {
		return 0, bincodec.ErrUnderflow
	}
	sum := xxhash.Sum64(buf[start:end]) + uint64(startValue)
	return int64(sum), nil
}
