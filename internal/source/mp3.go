// ABOUTME: MP3 file source
// ABOUTME: Decodes with go-mp3 and loops back to the start at end of file
package source

import (
	"encoding/binary"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/hajimehoshi/go-mp3"
)

// MP3 reads from an MP3 file
type MP3 struct {
	file       *os.File
	decoder    *mp3.Decoder
	sampleRate int
	title      string
	buf        []byte
}

// NewMP3 creates a new MP3 audio source
func NewMP3(filePath string) (*MP3, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open MP3 file: %w", err)
	}

	decoder, err := mp3.NewDecoder(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to decode MP3: %w", err)
	}

	title := titleOf(filePath)
	log.Printf("Loaded MP3: %s (sample rate: %d Hz)", title, decoder.SampleRate())

	return &MP3{
		file:       f,
		decoder:    decoder,
		sampleRate: decoder.SampleRate(),
		title:      title,
	}, nil
}

func (s *MP3) Read(samples []int32) (int, error) {
	// go-mp3 always produces 16-bit LE stereo
	numBytes := len(samples) * 2
	if cap(s.buf) < numBytes {
		s.buf = make([]byte, numBytes)
	}
	buf := s.buf[:numBytes]

	n, err := s.decoder.Read(buf)
	if err != nil && err != io.EOF {
		return 0, err
	}

	numSamples := n / 2
	for i := 0; i < numSamples; i++ {
		sample16 := int16(binary.LittleEndian.Uint16(buf[i*2 : i*2+2]))
		samples[i] = int32(sample16) << 8
	}

	if err == io.EOF {
		if _, seekErr := s.file.Seek(0, io.SeekStart); seekErr != nil {
			return numSamples, fmt.Errorf("failed to seek to start: %w", seekErr)
		}
		newDecoder, decErr := mp3.NewDecoder(s.file)
		if decErr != nil {
			return numSamples, fmt.Errorf("failed to create new decoder: %w", decErr)
		}
		s.decoder = newDecoder
	}

	return numSamples, nil
}

func (s *MP3) SampleRate() int { return s.sampleRate }
func (s *MP3) Channels() int   { return 2 }
func (s *MP3) Name() string    { return s.title }
func (s *MP3) Close() error    { return s.file.Close() }
