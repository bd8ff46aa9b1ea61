// ABOUTME: PCM audio decoder
// ABOUTME: Decodes 8/16/24/32-bit PCM of either byte order to hi-res int32 samples
package decode

import (
	"encoding/binary"
	"fmt"

	"github.com/lisa-project/lisa-odas/pkg/audio"
)

// PCMDecoder decodes PCM audio
type PCMDecoder struct {
	bitDepth int
	order    binary.ByteOrder
}

// NewPCM creates a new PCM decoder
func NewPCM(format audio.Format) (Decoder, error) {
	if format.Codec != "pcm" {
		return nil, fmt.Errorf("invalid codec for PCM decoder: %s", format.Codec)
	}

	switch format.BitDepth {
	case 8, 16, 24, 32:
	default:
		return nil, fmt.Errorf("unsupported bit depth: %d (supported: 8, 16, 24, 32)", format.BitDepth)
	}

	return &PCMDecoder{
		bitDepth: format.BitDepth,
		order:    format.Order(),
	}, nil
}

// Decode converts PCM bytes to int32 samples in 24-bit range.
// Trailing bytes that do not form a whole sample are ignored.
func (d *PCMDecoder) Decode(data []byte) ([]int32, error) {
	width := d.bitDepth / 8
	samples := make([]int32, len(data)/width)
	for i := range samples {
		v := audio.ReadSample(data[i*width:], d.bitDepth, d.order)
		samples[i] = audio.ToHiRes(v, d.bitDepth)
	}
	return samples, nil
}

// Close releases resources
func (d *PCMDecoder) Close() error {
	return nil
}
