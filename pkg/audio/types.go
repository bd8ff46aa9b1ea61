// ABOUTME: Audio type definitions
// ABOUTME: Defines audio formats, decoded buffers and sample conversions
package audio

import (
	"encoding/binary"
	"math"
)

const (
	// 24-bit audio range constants
	Max24Bit = 8388607  // 2^23 - 1
	Min24Bit = -8388608 // -2^23
)

// Format describes audio stream format
type Format struct {
	Codec       string
	SampleRate  int
	Channels    int
	BitDepth    int
	BigEndian   bool   // PCM byte order; little-endian unless set
	CodecHeader []byte // For Opus, etc.
}

// Order returns the binary byte order of PCM samples in this format
func (f Format) Order() binary.ByteOrder {
	if f.BigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// Buffer represents decoded PCM audio for one source slot
type Buffer struct {
	Timestamp int64   // Stream timestamp (microseconds)
	Slot      int     // Source slot the samples belong to
	Samples   []int32 // PCM samples in 24-bit range
	Format    Format
}

// SampleToInt16 converts int32 sample to int16 (for 16-bit playback)
func SampleToInt16(sample int32) int16 {
	// Right-shift to convert 24-bit (or 16-bit) to 16-bit range
	return int16(sample >> 8)
}

// SampleFromInt16 converts int16 sample to int32 (left-justified in 24-bit)
func SampleFromInt16(sample int16) int32 {
	return int32(sample) << 8
}

// SampleTo24Bit converts int32 to 24-bit packed bytes (little-endian)
func SampleTo24Bit(sample int32) [3]byte {
	return [3]byte{
		byte(sample),
		byte(sample >> 8),
		byte(sample >> 16),
	}
}

// SampleFrom24Bit converts 24-bit packed bytes to int32 (little-endian)
func SampleFrom24Bit(b [3]byte) int32 {
	val := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
	// Sign extend from 24-bit to 32-bit
	if val&0x800000 != 0 {
		val |= ^0xFFFFFF
	}
	return val
}

// ReadSample decodes one signed sample of bitDepth bits from b and returns it
// sign-extended at its native scale (an 8-bit sample lands in [-128, 127]).
// b must hold at least bitDepth/8 bytes.
func ReadSample(b []byte, bitDepth int, order binary.ByteOrder) int32 {
	switch bitDepth {
	case 8:
		return int32(int8(b[0]))
	case 16:
		return int32(int16(order.Uint16(b)))
	case 24:
		if order == binary.BigEndian {
			return SampleFrom24Bit([3]byte{b[2], b[1], b[0]})
		}
		return SampleFrom24Bit([3]byte{b[0], b[1], b[2]})
	default:
		return int32(order.Uint32(b))
	}
}

// PutSample encodes sample at its native scale into b using bitDepth bits.
// Values outside the bit depth are clamped.
func PutSample(b []byte, sample int32, bitDepth int, order binary.ByteOrder) {
	sample = Clamp(sample, bitDepth)
	switch bitDepth {
	case 8:
		b[0] = byte(int8(sample))
	case 16:
		order.PutUint16(b, uint16(int16(sample)))
	case 24:
		p := SampleTo24Bit(sample)
		if order == binary.BigEndian {
			p[0], p[2] = p[2], p[0]
		}
		copy(b, p[:])
	default:
		order.PutUint32(b, uint32(sample))
	}
}

// Clamp limits a native-scale sample to the signed range of bitDepth bits.
func Clamp(sample int32, bitDepth int) int32 {
	if bitDepth >= 32 {
		return sample
	}
	hi := int32(1)<<(bitDepth-1) - 1
	lo := -hi - 1
	if sample > hi {
		return hi
	}
	if sample < lo {
		return lo
	}
	return sample
}

// ToHiRes scales a native-scale sample of bitDepth bits into the 24-bit range
// used by the rest of the audio pipeline.
func ToHiRes(sample int32, bitDepth int) int32 {
	switch {
	case bitDepth < 24:
		return sample << (24 - bitDepth)
	case bitDepth > 24:
		return sample >> (bitDepth - 24)
	default:
		return sample
	}
}

// FromHiRes is the inverse of ToHiRes.
func FromHiRes(sample int32, bitDepth int) int32 {
	switch {
	case bitDepth < 24:
		return sample >> (24 - bitDepth)
	case bitDepth > 24:
		return sample << (bitDepth - 24)
	default:
		return sample
	}
}

// RMS returns the root mean square of native-scale samples, normalised to
// [0, 1] against the full scale of bitDepth bits.
func RMS(samples []int32, bitDepth int) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		v := float64(s)
		sum += v * v
	}
	full := math.Ldexp(1, bitDepth-1)
	return math.Sqrt(sum/float64(len(samples))) / full
}
