// ABOUTME: Oto-based audio output implementation
// ABOUTME: Plays monitored sources as 16-bit PCM with software volume control
package output

import (
	"encoding/binary"
	"fmt"
	"io"
	"log"
	"sync/atomic"

	"github.com/ebitengine/oto/v3"
	"github.com/lisa-project/lisa-odas/pkg/audio"
)

// Oto output implementation using oto library. Volume and mute may be
// changed from another goroutine while Write is running.
type Oto struct {
	otoCtx     *oto.Context
	player     *oto.Player
	pipeReader *io.PipeReader
	pipeWriter *io.PipeWriter
	sampleRate int
	channels   int
	volume     atomic.Int32
	muted      atomic.Bool
	ready      bool
}

// NewOto creates a new Oto output at full volume
func NewOto() *Oto {
	o := &Oto{}
	o.volume.Store(100)
	return o
}

// Open initializes the output device. oto allows one context per process,
// so a second Open with another format keeps the first one.
func (o *Oto) Open(sampleRate, channels int) error {
	if o.otoCtx != nil {
		if o.sampleRate != sampleRate || o.channels != channels {
			log.Printf("Warning: output already open at %dHz %dch, ignoring %dHz %dch",
				o.sampleRate, o.channels, sampleRate, channels)
		}
		return nil
	}

	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: channels,
		Format:       oto.FormatSignedInt16LE,
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return fmt.Errorf("failed to create oto context: %w", err)
	}

	<-readyChan

	o.otoCtx = ctx
	o.sampleRate = sampleRate
	o.channels = channels

	// One persistent player fed through a pipe
	o.pipeReader, o.pipeWriter = io.Pipe()
	o.player = o.otoCtx.NewPlayer(o.pipeReader)
	o.player.Play()

	o.ready = true

	log.Printf("Audio output initialized: %dHz, %d channels", sampleRate, channels)

	return nil
}

// Write plays samples in 24-bit range, blocking until the player took them
func (o *Oto) Write(samples []int32) error {
	if !o.ready {
		return fmt.Errorf("output not initialized")
	}

	scaled := applyVolume(samples, int(o.volume.Load()), o.muted.Load())
	if _, err := o.pipeWriter.Write(toInt16LE(scaled)); err != nil {
		return fmt.Errorf("pipe write failed: %w", err)
	}

	return nil
}

// Close releases output resources
func (o *Oto) Close() error {
	if o.pipeWriter != nil {
		o.pipeWriter.Close()
		o.pipeWriter = nil
	}
	if o.player != nil {
		o.player.Close()
		o.player = nil
	}
	if o.pipeReader != nil {
		o.pipeReader.Close()
		o.pipeReader = nil
	}
	if o.otoCtx != nil {
		o.otoCtx.Suspend()
	}
	o.ready = false
	return nil
}

// SetVolume sets the volume (0-100)
func (o *Oto) SetVolume(volume int) {
	o.volume.Store(int32(clampVolume(volume)))
}

// SetMuted sets mute state
func (o *Oto) SetMuted(muted bool) {
	o.muted.Store(muted)
}

// Volume returns current volume
func (o *Oto) Volume() int {
	return int(o.volume.Load())
}

// IsMuted returns mute state
func (o *Oto) IsMuted() bool {
	return o.muted.Load()
}

func clampVolume(volume int) int {
	if volume < 0 {
		return 0
	}
	if volume > 100 {
		return 100
	}
	return volume
}

// applyVolume applies volume and mute to samples with clipping protection
func applyVolume(samples []int32, volume int, muted bool) []int32 {
	multiplier := getVolumeMultiplier(volume, muted)

	result := make([]int32, len(samples))
	for i, sample := range samples {
		scaled := int64(float64(sample) * multiplier)

		if scaled > audio.Max24Bit {
			scaled = audio.Max24Bit
		} else if scaled < audio.Min24Bit {
			scaled = audio.Min24Bit
		}

		result[i] = int32(scaled)
	}

	return result
}

// toInt16LE converts 24-bit range samples to the byte format oto plays.
func toInt16LE(samples []int32) []byte {
	output := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(output[i*2:], uint16(audio.SampleToInt16(s)))
	}
	return output
}

// getVolumeMultiplier calculates volume multiplier
func getVolumeMultiplier(volume int, muted bool) float64 {
	if muted {
		return 0.0
	}
	return float64(volume) / 100.0
}
