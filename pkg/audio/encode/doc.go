// ABOUTME: Audio encoder package for the monitor codecs
// ABOUTME: Provides Encoder interface, PCM and Opus encoders and a frame chunker
// Package encode provides audio encoders for the monitor stream.
//
// Supports: PCM (8, 16, 24 and 32 bit, either byte order), Opus
//
// All encoders accept int32 samples in 24-bit range and encode
// to wire format. Opus needs fixed 20ms frames; Chunker regroups
// hop-sized blocks into them.
//
// Example:
//
//	encoder, err := encode.NewOpus(format)
//	chunker := encode.NewChunker(encoder.(*encode.OpusEncoder).FrameSamples())
//	for _, frame := range chunker.Push(hop) {
//	    packet, err := encoder.Encode(frame)
//	}
package encode
