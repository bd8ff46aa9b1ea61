// ABOUTME: Decoded audio frame types and the per-frame byte codec
// ABOUTME: Splits one hop of raw bytes into tagged per-source sample blocks
package odas

import (
	"bytes"
	"fmt"
	"time"

	"github.com/lisa-project/lisa-odas/pkg/audio"
)

// Frame is one hop of audio for every source slot.
type Frame struct {
	Index     uint64        // position in the stream, starting at 0
	Timestamp time.Duration // Index * hop period
	Slots     []Slot
}

// Slot is one source's share of a frame.
type Slot struct {
	Index   int
	Tag     string  // tag up to the first NUL
	RawTag  []byte  // the TagLen bytes as received
	Samples []int32 // HopSize signed samples at native bit depth
}

// Active reports whether the engine is tracking a source in this slot.
func (s Slot) Active() bool {
	return s.Tag != ""
}

// ActiveSlots returns the slots carrying a tag.
func (f Frame) ActiveSlots() []Slot {
	active := make([]Slot, 0, len(f.Slots))
	for _, s := range f.Slots {
		if s.Active() {
			active = append(active, s)
		}
	}
	return active
}

// checkTag enforces the tag format: printable ASCII up to the first NUL, NUL
// padding after it. It returns an empty reason when the tag is well formed.
func checkTag(raw []byte) string {
	end := bytes.IndexByte(raw, 0)
	if end < 0 {
		end = len(raw)
	}
	for i, c := range raw[:end] {
		if c < 0x20 || c > 0x7e {
			return fmt.Sprintf("tag byte %d is non-printable (0x%02x)", i, c)
		}
	}
	for i := end; i < len(raw); i++ {
		if raw[i] != 0 {
			return fmt.Sprintf("tag byte %d follows NUL terminator (0x%02x)", i, raw[i])
		}
	}
	return ""
}

func tagString(raw []byte) string {
	if i := bytes.IndexByte(raw, 0); i >= 0 {
		return string(raw[:i])
	}
	return string(raw)
}

// parseFrame decodes exactly p.FrameSize() bytes. Tag and sample memory is
// freshly allocated so the frame stays valid after the buffer is reused.
func parseFrame(p Params, data []byte, index uint64, validate bool) (Frame, error) {
	order := p.ByteOrder.binary()
	sampleBytes := p.SampleBytes()

	frame := Frame{
		Index:     index,
		Timestamp: p.FrameTimestamp(index),
		Slots:     make([]Slot, p.MaxSources),
	}

	tagAt := func(s int) []byte {
		if p.Layout == LayoutInterleaved {
			return data[s*p.TagLen : (s+1)*p.TagLen]
		}
		off := s * p.SlotSize()
		return data[off : off+p.TagLen]
	}

	for s := 0; s < p.MaxSources; s++ {
		raw := tagAt(s)
		if validate {
			if reason := checkTag(raw); reason != "" {
				return Frame{}, &MalformedError{Frame: index, Slot: s, Reason: reason}
			}
		}
		frame.Slots[s] = Slot{
			Index:   s,
			Tag:     tagString(raw),
			RawTag:  append([]byte(nil), raw...),
			Samples: make([]int32, p.HopSize),
		}
	}

	switch p.Layout {
	case LayoutInterleaved:
		off := p.MaxSources * p.TagLen
		for n := 0; n < p.HopSize; n++ {
			for s := 0; s < p.MaxSources; s++ {
				frame.Slots[s].Samples[n] = audio.ReadSample(data[off:], p.BitDepth, order)
				off += sampleBytes
			}
		}
	default:
		for s := 0; s < p.MaxSources; s++ {
			off := s*p.SlotSize() + p.TagLen
			samples := frame.Slots[s].Samples
			for n := range samples {
				samples[n] = audio.ReadSample(data[off:], p.BitDepth, order)
				off += sampleBytes
			}
		}
	}

	return frame, nil
}

// appendFrame serialises f onto dst using the layout in p.
func appendFrame(dst []byte, p Params, f Frame) ([]byte, error) {
	if len(f.Slots) != p.MaxSources {
		return dst, fmt.Errorf("odas: frame has %d slots, stream carries %d", len(f.Slots), p.MaxSources)
	}
	for i, s := range f.Slots {
		if len(s.Samples) != p.HopSize {
			return dst, fmt.Errorf("odas: slot %d has %d samples, hop size is %d", i, len(s.Samples), p.HopSize)
		}
		if len(s.Tag) > p.TagLen {
			return dst, fmt.Errorf("odas: slot %d tag %q exceeds %d bytes", i, s.Tag, p.TagLen)
		}
	}

	start := len(dst)
	dst = append(dst, make([]byte, p.FrameSize())...)
	buf := dst[start:]
	order := p.ByteOrder.binary()
	sampleBytes := p.SampleBytes()

	switch p.Layout {
	case LayoutInterleaved:
		for i, s := range f.Slots {
			copy(buf[i*p.TagLen:(i+1)*p.TagLen], s.Tag)
		}
		off := p.MaxSources * p.TagLen
		for n := 0; n < p.HopSize; n++ {
			for _, s := range f.Slots {
				audio.PutSample(buf[off:], s.Samples[n], p.BitDepth, order)
				off += sampleBytes
			}
		}
	default:
		for i, s := range f.Slots {
			off := i * p.SlotSize()
			copy(buf[off:off+p.TagLen], s.Tag)
			off += p.TagLen
			for _, v := range s.Samples {
				audio.PutSample(buf[off:], v, p.BitDepth, order)
				off += sampleBytes
			}
		}
	}

	return dst, nil
}
