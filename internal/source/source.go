// ABOUTME: Audio source abstraction for the engine simulator
// ABOUTME: Opens MP3 or FLAC files, or generates a tone when no file is given
package source

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Source provides PCM audio in the 24-bit range, interleaved by channel.
type Source interface {
	// Read fills samples and returns how many were written.
	Read(samples []int32) (int, error)
	SampleRate() int
	Channels() int
	// Name is shown in logs and used as the slot tag by the simulator.
	Name() string
	Close() error
}

// Open creates a source from a file path. File sources loop forever.
func Open(path string) (Source, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("audio file not found: %s: %w", path, err)
	}

	var (
		src Source
		err error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".mp3":
		src, err = NewMP3(path)
	case ".flac":
		src, err = NewFLAC(path)
	default:
		return nil, fmt.Errorf("unsupported audio format: %s (supported: .mp3, .flac)", ext)
	}
	if err != nil {
		return nil, err
	}
	return src, nil
}

// ForStream converts src to mono at rate, the shape of one ODAS slot.
func ForStream(src Source, rate int) Source {
	if src.Channels() > 1 {
		src = NewMono(src)
	}
	if src.SampleRate() != rate {
		src = NewResampled(src, rate)
	}
	return src
}

// ReadFull reads exactly len(buf) samples. A source that keeps returning
// nothing fails with io.ErrNoProgress.
func ReadFull(src Source, buf []int32) error {
	filled, idle := 0, 0
	for filled < len(buf) {
		n, err := src.Read(buf[filled:])
		filled += n
		if err != nil {
			if errors.Is(err, io.EOF) && filled == len(buf) {
				return nil
			}
			return err
		}
		if n == 0 {
			idle++
			if idle > 100 {
				return io.ErrNoProgress
			}
			continue
		}
		idle = 0
	}
	return nil
}

func titleOf(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
