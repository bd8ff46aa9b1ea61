// ABOUTME: FLAC file source
// ABOUTME: Decodes with mewkiz/flac and loops back to the start at end of file
package source

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/mewkiz/flac"

	"github.com/lisa-project/lisa-odas/pkg/audio"
)

// FLAC reads from a FLAC file
type FLAC struct {
	file       *os.File
	stream     *flac.Stream
	sampleRate int
	channels   int
	bitDepth   int
	title      string

	// decoded samples of the current frame not yet handed out
	pending []int32
}

// NewFLAC creates a new FLAC audio source
func NewFLAC(filePath string) (*FLAC, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open FLAC file: %w", err)
	}

	stream, err := flac.New(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to decode FLAC: %w", err)
	}

	info := stream.Info
	title := titleOf(filePath)

	log.Printf("Loaded FLAC: %s (sample rate: %d Hz, channels: %d, bit depth: %d)",
		title, info.SampleRate, info.NChannels, info.BitsPerSample)

	return &FLAC{
		file:       f,
		stream:     stream,
		sampleRate: int(info.SampleRate),
		channels:   int(info.NChannels),
		bitDepth:   int(info.BitsPerSample),
		title:      title,
	}, nil
}

func (s *FLAC) Read(samples []int32) (int, error) {
	for len(s.pending) == 0 {
		if err := s.nextFrame(); err != nil {
			return 0, err
		}
	}

	n := copy(samples, s.pending)
	s.pending = s.pending[n:]
	return n, nil
}

// nextFrame decodes one FLAC frame into pending, rewinding at end of file.
func (s *FLAC) nextFrame() error {
	frame, err := s.stream.ParseNext()
	if err == io.EOF {
		if _, seekErr := s.file.Seek(0, io.SeekStart); seekErr != nil {
			return fmt.Errorf("failed to seek to start: %w", seekErr)
		}
		newStream, decErr := flac.New(s.file)
		if decErr != nil {
			return fmt.Errorf("failed to create new stream: %w", decErr)
		}
		s.stream = newStream
		return nil
	}
	if err != nil {
		return err
	}

	block := int(frame.BlockSize)
	s.pending = s.pending[:0]
	for i := 0; i < block; i++ {
		for ch := 0; ch < s.channels; ch++ {
			s.pending = append(s.pending, audio.ToHiRes(frame.Subframes[ch].Samples[i], s.bitDepth))
		}
	}
	return nil
}

func (s *FLAC) SampleRate() int { return s.sampleRate }
func (s *FLAC) Channels() int   { return s.channels }
func (s *FLAC) Name() string    { return s.title }
func (s *FLAC) Close() error    { return s.file.Close() }
