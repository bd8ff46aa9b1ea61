// ABOUTME: Splits a byte stream of concatenated JSON objects into single objects
// ABOUTME: Skips stray bytes between objects and tracks string escapes
package tracking

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/lisa-project/lisa-odas/pkg/odas"
)

// DefaultMaxObjectSize bounds a single JSON object.
const DefaultMaxObjectSize = 1 << 20

// ErrObjectTooLarge is returned when an object exceeds the size limit.
var ErrObjectTooLarge = errors.New("tracking: JSON object too large")

// Splitter yields top-level JSON objects from r. It only looks at braces,
// quotes and escapes; full validation is left to the JSON decoder.
type Splitter struct {
	r       *bufio.Reader
	maxSize int
	skipped uint64
	buf     []byte
}

// NewSplitter wraps r.
func NewSplitter(r io.Reader) *Splitter {
	return &Splitter{r: bufio.NewReader(r), maxSize: DefaultMaxObjectSize}
}

// Skipped counts bytes discarded because they were outside any object.
func (s *Splitter) Skipped() uint64 {
	return s.skipped
}

// Next returns the next complete object. The slice is valid until the next
// call. It returns io.EOF at a clean end and io.ErrUnexpectedEOF when the
// stream stops inside an object.
func (s *Splitter) Next() ([]byte, error) {
	for {
		c, err := s.r.ReadByte()
		if err != nil {
			return nil, err
		}
		if c == '{' {
			break
		}
		if c != '\n' && c != '\r' && c != ' ' && c != '\t' {
			s.skipped++
		}
	}

	s.buf = append(s.buf[:0], '{')
	depth := 1
	inString := false
	escaped := false

	for depth > 0 {
		c, err := s.r.ReadByte()
		if err != nil {
			if err == io.EOF {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, err
		}
		if len(s.buf) >= s.maxSize {
			return nil, fmt.Errorf("%w: more than %d bytes", ErrObjectTooLarge, s.maxSize)
		}
		s.buf = append(s.buf, c)

		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
		}
	}
	return s.buf, nil
}

// SSLReader reads SSL messages from a stream.
type SSLReader struct {
	split  *Splitter
	params odas.Params
}

// NewSSLReader reads SSL messages from r.
func NewSSLReader(r io.Reader, p odas.Params) *SSLReader {
	return &SSLReader{split: NewSplitter(r), params: p}
}

// Skipped counts stray bytes seen between objects.
func (r *SSLReader) Skipped() uint64 { return r.split.Skipped() }

// Read returns the next SSL message. Errors wrapping ErrInvalidMessage
// affect one object only.
func (r *SSLReader) Read() (SSL, error) {
	obj, err := r.split.Next()
	if err != nil {
		return SSL{}, err
	}
	return ParseSSL(obj, r.params)
}

// SSTReader reads SST messages from a stream.
type SSTReader struct {
	split  *Splitter
	params odas.Params
}

// NewSSTReader reads SST messages from r.
func NewSSTReader(r io.Reader, p odas.Params) *SSTReader {
	return &SSTReader{split: NewSplitter(r), params: p}
}

// Skipped counts stray bytes seen between objects.
func (r *SSTReader) Skipped() uint64 { return r.split.Skipped() }

// Read returns the next SST message. Errors wrapping ErrInvalidMessage
// affect one object only.
func (r *SSTReader) Read() (SST, error) {
	obj, err := r.split.Next()
	if err != nil {
		return SST{}, err
	}
	return ParseSST(obj, r.params)
}
