// ABOUTME: Stream parameters shared with the upstream ODAS engine build
// ABOUTME: Validates them once and derives per-slot and per-frame byte sizes
package odas

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"
)

// Defaults matching the engine configuration (ssl.nPots, common.h tag length,
// and the fs / hopSize / nBits of the separated and postfiltered sinks).
const (
	DefaultMaxSources = 4
	DefaultTagLen     = 20
	DefaultSampleRate = 16000
	DefaultHopSize    = 128
	DefaultBitDepth   = 16

	// ProtocolVersion is carried in the handshake and the version stamp.
	ProtocolVersion = 1
)

// Layout selects how tags and samples are ordered inside one frame.
type Layout uint8

const (
	// LayoutSlotBlocks places, for every slot, the tag followed by that slot's samples.
	LayoutSlotBlocks Layout = iota
	// LayoutInterleaved places all tags first, then one sample per slot for each hop position.
	LayoutInterleaved
)

func (l Layout) String() string {
	switch l {
	case LayoutSlotBlocks:
		return "slot"
	case LayoutInterleaved:
		return "interleaved"
	default:
		return fmt.Sprintf("layout(%d)", uint8(l))
	}
}

// ParseLayout maps a config string onto a Layout.
func ParseLayout(s string) (Layout, error) {
	switch s {
	case "", "slot", "slot_blocks":
		return LayoutSlotBlocks, nil
	case "interleaved":
		return LayoutInterleaved, nil
	default:
		return 0, fmt.Errorf("unknown frame layout %q (supported: slot, interleaved)", s)
	}
}

// ByteOrder is the endianness of PCM samples on the wire.
type ByteOrder uint8

const (
	LittleEndian ByteOrder = iota
	BigEndian
)

func (b ByteOrder) String() string {
	switch b {
	case LittleEndian:
		return "le"
	case BigEndian:
		return "be"
	default:
		return fmt.Sprintf("order(%d)", uint8(b))
	}
}

// ParseByteOrder maps a config string onto a ByteOrder.
func ParseByteOrder(s string) (ByteOrder, error) {
	switch s {
	case "", "le", "little":
		return LittleEndian, nil
	case "be", "big":
		return BigEndian, nil
	default:
		return 0, fmt.Errorf("unknown byte order %q (supported: le, be)", s)
	}
}

func (b ByteOrder) binary() binary.ByteOrder {
	if b == BigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// Params describes the byte layout of the incoming audio stream. It is a plain
// value: build it once at startup, validate it, and pass it to whatever needs it.
type Params struct {
	MaxSources int       // simultaneously tracked sources per frame
	TagLen     int       // bytes of the tracking tag per slot
	SampleRate int       // Hz, per slot
	HopSize    int       // samples per slot per frame
	BitDepth   int       // bits per signed PCM sample
	Layout     Layout    // tag/sample ordering inside a frame
	ByteOrder  ByteOrder // sample endianness
}

// DefaultParams returns the parameters the engine ships with.
func DefaultParams() Params {
	return Params{
		MaxSources: DefaultMaxSources,
		TagLen:     DefaultTagLen,
		SampleRate: DefaultSampleRate,
		HopSize:    DefaultHopSize,
		BitDepth:   DefaultBitDepth,
		Layout:     LayoutSlotBlocks,
		ByteOrder:  LittleEndian,
	}
}

// Validate rejects parameter sets that cannot describe a stream. Every
// failure wraps ErrConfigurationMismatch; all of them are reported at once.
func (p Params) Validate() error {
	var errs []error

	positive := []struct {
		field string
		value int
	}{
		{"max_sources", p.MaxSources},
		{"tag_len", p.TagLen},
		{"sample_rate", p.SampleRate},
		{"hop_size", p.HopSize},
		{"bit_depth", p.BitDepth},
	}
	for _, f := range positive {
		if f.value <= 0 {
			errs = append(errs, &ConfigError{Field: f.field, Value: f.value, Reason: "must be positive"})
		} else if uint64(f.value) > math.MaxUint32 {
			errs = append(errs, &ConfigError{Field: f.field, Value: f.value, Reason: "does not fit in 32 bits"})
		}
	}

	switch p.BitDepth {
	case 8, 16, 24, 32:
	default:
		if p.BitDepth > 0 {
			errs = append(errs, &ConfigError{Field: "bit_depth", Value: p.BitDepth, Reason: "must be 8, 16, 24 or 32"})
		}
	}

	if p.Layout != LayoutSlotBlocks && p.Layout != LayoutInterleaved {
		errs = append(errs, &ConfigError{Field: "layout", Value: int(p.Layout), Reason: "unknown layout"})
	}
	if p.ByteOrder != LittleEndian && p.ByteOrder != BigEndian {
		errs = append(errs, &ConfigError{Field: "byte_order", Value: int(p.ByteOrder), Reason: "unknown byte order"})
	}

	if len(errs) == 0 {
		if _, _, err := p.sizes(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// sizes computes slot and frame sizes, failing instead of overflowing int.
func (p Params) sizes() (slot, frame int, err error) {
	sampleBytes := p.BitDepth / 8
	if p.HopSize > (math.MaxInt-p.TagLen)/sampleBytes {
		return 0, 0, &ConfigError{Field: "hop_size", Value: p.HopSize, Reason: "per-slot byte size overflows"}
	}
	slot = p.TagLen + p.HopSize*sampleBytes
	if slot > math.MaxInt/p.MaxSources {
		return 0, 0, &ConfigError{Field: "max_sources", Value: p.MaxSources, Reason: "per-frame byte size overflows"}
	}
	return slot, slot * p.MaxSources, nil
}

// SampleBytes is the byte width of one PCM sample.
func (p Params) SampleBytes() int { return p.BitDepth / 8 }

// SlotSize is the byte size of one slot: tag plus one hop of samples.
func (p Params) SlotSize() int { return p.TagLen + p.HopSize*p.SampleBytes() }

// FrameSize is the byte size of one frame across all slots.
func (p Params) FrameSize() int { return p.MaxSources * p.SlotSize() }

// FramePeriod is the time covered by one hop.
func (p Params) FramePeriod() time.Duration {
	return time.Duration(p.HopSize) * time.Second / time.Duration(p.SampleRate)
}

// FrameRate is the number of frames per second.
func (p Params) FrameRate() float64 {
	return float64(p.SampleRate) / float64(p.HopSize)
}

// FrameTimestamp is the stream time at which frame index starts.
func (p Params) FrameTimestamp(index uint64) time.Duration {
	samples := index * uint64(p.HopSize)
	rate := uint64(p.SampleRate)
	whole := time.Duration(samples/rate) * time.Second
	return whole + time.Duration(samples%rate)*time.Second/time.Duration(rate)
}

// Stamp renders the parameters as a version stamp, exchanged with the engine
// side (handshake) and shown to operators.
func (p Params) Stamp() string {
	return fmt.Sprintf("odas/%d n=%d tag=%d fs=%d hop=%d bits=%d layout=%s %s",
		ProtocolVersion, p.MaxSources, p.TagLen, p.SampleRate, p.HopSize, p.BitDepth, p.Layout, p.ByteOrder)
}
