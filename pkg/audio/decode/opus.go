// ABOUTME: Opus audio decoder
// ABOUTME: Decodes Opus packets from the monitor stream to int32 samples
package decode

import (
	"fmt"

	"github.com/lisa-project/lisa-odas/pkg/audio"
	"gopkg.in/hraban/opus.v2"
)

// maxOpusFrame is 120ms at 48kHz, the longest frame Opus allows.
const maxOpusFrame = 5760

// OpusDecoder decodes Opus audio
type OpusDecoder struct {
	decoder *opus.Decoder
	format  audio.Format
	pcm16   []int16
}

// NewOpus creates a new Opus decoder
func NewOpus(format audio.Format) (Decoder, error) {
	if format.Codec != "opus" {
		return nil, fmt.Errorf("invalid codec for Opus decoder: %s", format.Codec)
	}

	dec, err := opus.NewDecoder(format.SampleRate, format.Channels)
	if err != nil {
		return nil, fmt.Errorf("failed to create opus decoder: %w", err)
	}

	return &OpusDecoder{
		decoder: dec,
		format:  format,
		pcm16:   make([]int16, maxOpusFrame*format.Channels),
	}, nil
}

// Decode converts one Opus packet to int32 samples in 24-bit range
func (d *OpusDecoder) Decode(data []byte) ([]int32, error) {
	n, err := d.decoder.Decode(data, d.pcm16)
	if err != nil {
		return nil, fmt.Errorf("opus decode failed: %w", err)
	}

	count := n * d.format.Channels
	pcm32 := make([]int32, count)
	for i := 0; i < count; i++ {
		pcm32[i] = audio.SampleFromInt16(d.pcm16[i])
	}
	return pcm32, nil
}

// Close releases decoder resources
func (d *OpusDecoder) Close() error {
	return nil
}
