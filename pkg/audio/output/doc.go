// ABOUTME: Audio output package for playing audio
// ABOUTME: Provides Output interface and oto implementation
// Package output provides audio playback for monitored sources.
//
// The oto backend streams 16-bit PCM through a pipe into one persistent
// player, so writes block at playback pace.
//
// Example:
//
//	out := output.NewOto()
//	err := out.Open(16000, 1)
//	err = out.Write(samples)
package output
