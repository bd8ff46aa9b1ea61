// ABOUTME: Sine tone generator
// ABOUTME: Gives every simulated slot its own recognisable pitch
package source

import (
	"fmt"
	"math"

	"github.com/lisa-project/lisa-odas/pkg/audio"
)

// Tone generates a mono sine wave
type Tone struct {
	sampleIndex uint64
	frequency   float64
	amplitude   float64 // 0..1 of full scale
	sampleRate  int
}

// NewTone creates a tone at frequency Hz and half volume
func NewTone(frequency float64, sampleRate int) *Tone {
	return &Tone{
		frequency:  frequency,
		amplitude:  0.5,
		sampleRate: sampleRate,
	}
}

// SetAmplitude changes the volume; values are clamped to 0..1.
func (s *Tone) SetAmplitude(a float64) {
	s.amplitude = math.Max(0, math.Min(1, a))
}

func (s *Tone) Read(samples []int32) (int, error) {
	for i := range samples {
		t := float64(s.sampleIndex+uint64(i)) / float64(s.sampleRate)
		v := math.Sin(2 * math.Pi * s.frequency * t)
		samples[i] = int32(v * s.amplitude * audio.Max24Bit)
	}
	s.sampleIndex += uint64(len(samples))
	return len(samples), nil
}

func (s *Tone) SampleRate() int { return s.sampleRate }
func (s *Tone) Channels() int   { return 1 }
func (s *Tone) Name() string    { return fmt.Sprintf("tone %.0fHz", s.frequency) }
func (s *Tone) Close() error    { return nil }
