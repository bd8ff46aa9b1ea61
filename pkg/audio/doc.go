// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines Format, Buffer types and sample conversion functions
// Package audio provides the sample types shared by the ODAS decoder, the
// monitor codecs and local playback.
//
// Two scales are in use:
//   - native: a sample as it appeared on the wire (a 16-bit sample lies in [-32768, 32767])
//   - hi-res: the same sample shifted into the 24-bit range used for mixing and playback
//
// ReadSample and PutSample move between bytes and native scale; ToHiRes and
// FromHiRes move between native and hi-res.
//
// Example:
//
//	v := audio.ReadSample(b, 16, binary.LittleEndian)
//	hi := audio.ToHiRes(v, 16)
//	level := audio.RMS(samples, 16)
package audio
