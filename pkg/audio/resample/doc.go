// ABOUTME: Audio resampling package using linear interpolation
// ABOUTME: Converts audio between different sample rates
// Package resample provides audio sample rate conversion.
//
// Uses linear interpolation for converting between sample rates and
// carries the last input frame across calls so chunked input resamples
// without gaps.
//
// Example:
//
//	r := resample.New(44100, 16000, 1)
//	n := r.Resample(inputSamples, outputSamples)
package resample
