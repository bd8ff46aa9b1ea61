// ABOUTME: PCM audio encoder
// ABOUTME: Encodes hi-res int32 samples to 8/16/24/32-bit PCM bytes
package encode

import (
	"encoding/binary"
	"fmt"

	"github.com/lisa-project/lisa-odas/pkg/audio"
)

// PCMEncoder encodes PCM audio
type PCMEncoder struct {
	bitDepth int
	order    binary.ByteOrder
}

// NewPCM creates a new PCM encoder
func NewPCM(format audio.Format) (Encoder, error) {
	if format.Codec != "pcm" {
		return nil, fmt.Errorf("invalid codec for PCM encoder: %s", format.Codec)
	}

	switch format.BitDepth {
	case 8, 16, 24, 32:
	default:
		return nil, fmt.Errorf("unsupported bit depth: %d (supported: 8, 16, 24, 32)", format.BitDepth)
	}

	return &PCMEncoder{
		bitDepth: format.BitDepth,
		order:    format.Order(),
	}, nil
}

// Encode converts int32 samples in 24-bit range to PCM bytes
func (e *PCMEncoder) Encode(samples []int32) ([]byte, error) {
	width := e.bitDepth / 8
	output := make([]byte, len(samples)*width)
	for i, sample := range samples {
		audio.PutSample(output[i*width:], audio.FromHiRes(sample, e.bitDepth), e.bitDepth, e.order)
	}
	return output, nil
}

// Close releases resources
func (e *PCMEncoder) Close() error {
	return nil
}
