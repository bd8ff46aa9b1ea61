// ABOUTME: Audio decoder package for the monitor codecs
// ABOUTME: Provides Decoder interface and implementations for PCM and Opus
// Package decode turns monitor audio payloads back into samples.
//
// Supports: PCM (8, 16, 24 and 32 bit, either byte order) and Opus.
//
// All decoders output int32 samples in 24-bit range.
//
// Example:
//
//	decoder, err := decode.NewPCM(format)
//	samples, err := decoder.Decode(payload)
package decode
