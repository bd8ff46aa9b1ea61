// ABOUTME: Opus audio encoder
// ABOUTME: Encodes 20ms blocks of int32 samples to Opus packets
package encode

import (
	"fmt"

	"github.com/lisa-project/lisa-odas/pkg/audio"
	"gopkg.in/hraban/opus.v2"
)

// maxPacketSize is the largest Opus packet we allocate for.
const maxPacketSize = 4000

// OpusEncoder encodes Opus audio
type OpusEncoder struct {
	encoder    *opus.Encoder
	sampleRate int
	channels   int
	frameSize  int
	pcm        []int16
	packet     []byte
}

// NewOpus creates a new Opus encoder tuned for speech. Opus accepts
// 8, 12, 16, 24 and 48 kHz.
func NewOpus(format audio.Format) (Encoder, error) {
	if format.Codec != "opus" {
		return nil, fmt.Errorf("invalid codec for Opus encoder: %s", format.Codec)
	}

	encoder, err := opus.NewEncoder(format.SampleRate, format.Channels, opus.AppVoIP)
	if err != nil {
		return nil, fmt.Errorf("failed to create opus encoder: %w", err)
	}

	frameSize := format.SampleRate / 50 // 20ms frame

	return &OpusEncoder{
		encoder:    encoder,
		sampleRate: format.SampleRate,
		channels:   format.Channels,
		frameSize:  frameSize,
		pcm:        make([]int16, frameSize*format.Channels),
		packet:     make([]byte, maxPacketSize),
	}, nil
}

// FrameSamples is the number of interleaved samples Encode expects per call.
func (e *OpusEncoder) FrameSamples() int {
	return e.frameSize * e.channels
}

// Encode converts exactly one 20ms frame of int32 samples to an Opus packet
func (e *OpusEncoder) Encode(samples []int32) ([]byte, error) {
	if len(samples) != e.FrameSamples() {
		return nil, fmt.Errorf("opus frame must be %d samples, got %d", e.FrameSamples(), len(samples))
	}

	for i, sample := range samples {
		e.pcm[i] = audio.SampleToInt16(sample)
	}

	n, err := e.encoder.Encode(e.pcm, e.packet)
	if err != nil {
		return nil, fmt.Errorf("opus encode error: %w", err)
	}

	out := make([]byte, n)
	copy(out, e.packet[:n])
	return out, nil
}

// Close releases resources
func (e *OpusEncoder) Close() error {
	return nil
}
