// ABOUTME: Resumable push decoder for the ODAS separated-audio byte stream
// ABOUTME: Buffers partial frames across writes and yields frames in arrival order
package odas

import (
	"errors"
	"fmt"
	"io"
)

// SlotState is how far the decoder has got through one slot of the current hop.
type SlotState int

const (
	AwaitingTag SlotState = iota
	AwaitingSamples
	FrameComplete
)

func (s SlotState) String() string {
	switch s {
	case AwaitingTag:
		return "awaiting-tag"
	case AwaitingSamples:
		return "awaiting-samples"
	case FrameComplete:
		return "frame-complete"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// SlotProgress locates the decoder inside the frame currently being received.
type SlotProgress struct {
	Slot  int
	State SlotState
}

// DecoderStats counts what a decoder has seen since construction.
type DecoderStats struct {
	Frames    uint64
	Malformed uint64
	Truncated uint64
	Bytes     uint64
}

// DecoderOption configures a Decoder.
type DecoderOption func(*Decoder)

// WithTagValidation turns the tag format check on or off (default on).
func WithTagValidation(enabled bool) DecoderOption {
	return func(d *Decoder) {
		d.validate = enabled
	}
}

// WithMaxConsecutiveMalformed sets how many malformed frames in a row are
// tolerated before the decoder gives up with ErrConfigurationMismatch.
// Zero disables escalation. The default is 8.
func WithMaxConsecutiveMalformed(n int) DecoderOption {
	return func(d *Decoder) {
		if n >= 0 {
			d.maxMalformed = n
		}
	}
}

// WithHandshake makes the decoder expect a handshake before the first frame
// and verify it against its parameters.
func WithHandshake() DecoderOption {
	return func(d *Decoder) {
		d.expectHandshake = true
	}
}

// WithStartIndex sets the index given to the first decoded frame.
func WithStartIndex(index uint64) DecoderOption {
	return func(d *Decoder) {
		d.startIndex = index
		d.index = index
	}
}

// Decoder turns a byte stream into Frames. Bytes arrive through Write in any
// chunking; Next hands out complete frames. A Decoder performs no I/O and is
// owned by a single reader: it is not safe for concurrent use.
type Decoder struct {
	params    Params
	frameSize int

	buf    []byte
	closed bool

	index      uint64
	startIndex uint64

	validate        bool
	maxMalformed    int
	malformedRun    int
	expectHandshake bool
	handshakeDone   bool

	fatal error
	stats DecoderStats
}

// NewDecoder validates p and returns a decoder for it. Invalid parameters are
// rejected here, before any byte is decoded.
func NewDecoder(p Params, opts ...DecoderOption) (*Decoder, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	d := &Decoder{
		params:       p,
		frameSize:    p.FrameSize(),
		validate:     true,
		maxMalformed: 8,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Params returns the parameters the decoder was built with.
func (d *Decoder) Params() Params {
	return d.params
}

// Write buffers raw stream bytes. It never fails short; it errors only after CloseInput.
func (d *Decoder) Write(b []byte) (int, error) {
	if d.closed {
		return 0, fmt.Errorf("odas: write after input closed")
	}
	d.buf = append(d.buf, b...)
	d.stats.Bytes += uint64(len(b))
	return len(b), nil
}

// CloseInput marks the end of the stream. Buffered whole frames are still
// returned by Next; a trailing partial frame turns into a TruncatedError.
func (d *Decoder) CloseInput() {
	d.closed = true
}

// Reset discards any partial frame and reopens the input so a new stream
// can start. Frame indices restart; statistics are kept.
func (d *Decoder) Reset() {
	d.buf = d.buf[:0]
	d.closed = false
	d.index = d.startIndex
	d.malformedRun = 0
	d.handshakeDone = false
	d.fatal = nil
}

// Next returns the next complete frame. When no complete frame is buffered it
// returns ErrNeedMoreData while the input is open, io.EOF once it is closed
// on a frame boundary, and a *TruncatedError if it was closed mid-frame.
// A *MalformedError skips one frame; the following call continues with the
// next one. ErrConfigurationMismatch is sticky until Reset.
func (d *Decoder) Next() (Frame, error) {
	if d.fatal != nil {
		return Frame{}, d.fatal
	}

	if d.expectHandshake && !d.handshakeDone {
		if err := d.readHandshake(); err != nil {
			return Frame{}, err
		}
	}

	if len(d.buf) < d.frameSize {
		if !d.closed {
			return Frame{}, ErrNeedMoreData
		}
		if len(d.buf) == 0 {
			return Frame{}, io.EOF
		}
		err := &TruncatedError{Frame: d.index, Buffered: len(d.buf), Want: d.frameSize}
		d.buf = d.buf[:0]
		d.stats.Truncated++
		return Frame{}, err
	}

	index := d.index
	frame, err := parseFrame(d.params, d.buf[:d.frameSize], index, d.validate)
	d.buf = d.buf[d.frameSize:]
	d.index++

	if err != nil {
		d.stats.Malformed++
		d.malformedRun++
		if d.maxMalformed > 0 && d.malformedRun >= d.maxMalformed {
			d.fatal = fmt.Errorf("%w: %d consecutive malformed frames, last: %v",
				ErrConfigurationMismatch, d.malformedRun, err)
			return Frame{}, d.fatal
		}
		return Frame{}, err
	}

	d.malformedRun = 0
	d.stats.Frames++
	return frame, nil
}

func (d *Decoder) readHandshake() error {
	if len(d.buf) < HandshakeSize {
		if !d.closed {
			return ErrNeedMoreData
		}
		if len(d.buf) == 0 {
			return io.EOF
		}
		err := &TruncatedError{Frame: d.index, Buffered: len(d.buf), Want: HandshakeSize}
		d.buf = d.buf[:0]
		d.stats.Truncated++
		return err
	}

	hs, err := ParseHandshake(d.buf[:HandshakeSize])
	if err == nil {
		err = hs.Verify(d.params)
	}
	if err != nil {
		if !errors.Is(err, ErrConfigurationMismatch) {
			err = fmt.Errorf("%w: %v", ErrConfigurationMismatch, err)
		}
		d.fatal = err
		return err
	}

	d.buf = d.buf[HandshakeSize:]
	d.handshakeDone = true
	return nil
}

// Buffered is the number of bytes held for frames not yet returned.
func (d *Decoder) Buffered() int {
	return len(d.buf)
}

// Stats returns counters since construction.
func (d *Decoder) Stats() DecoderStats {
	return d.stats
}

// State reports which slot of the pending frame is being filled and whether
// its tag or its samples are still missing. It resets every hop.
func (d *Decoder) State() SlotProgress {
	p := d.params
	n := len(d.buf)
	if d.expectHandshake && !d.handshakeDone {
		n = 0
	}
	if n >= d.frameSize {
		return SlotProgress{Slot: p.MaxSources - 1, State: FrameComplete}
	}

	if p.Layout == LayoutInterleaved {
		tags := p.MaxSources * p.TagLen
		if n < tags {
			return SlotProgress{Slot: n / p.TagLen, State: AwaitingTag}
		}
		sample := (n - tags) / p.SampleBytes()
		return SlotProgress{Slot: sample % p.MaxSources, State: AwaitingSamples}
	}

	slot := n / p.SlotSize()
	if n%p.SlotSize() < p.TagLen {
		return SlotProgress{Slot: slot, State: AwaitingTag}
	}
	return SlotProgress{Slot: slot, State: AwaitingSamples}
}

// Reader pulls frames from an io.Reader, blocking until each is complete.
type Reader struct {
	r   io.Reader
	dec *Decoder
	buf []byte
}

// NewReader wraps r with a decoder for p.
func NewReader(r io.Reader, p Params, opts ...DecoderOption) (*Reader, error) {
	dec, err := NewDecoder(p, opts...)
	if err != nil {
		return nil, err
	}
	size := p.FrameSize()
	if size < 4096 {
		size = 4096
	}
	return &Reader{r: r, dec: dec, buf: make([]byte, size)}, nil
}

// ReadFrame blocks until a frame is available. It returns io.EOF at a clean
// end of stream and the decoder's errors otherwise; read errors from the
// underlying reader are returned as-is.
func (r *Reader) ReadFrame() (Frame, error) {
	for {
		frame, err := r.dec.Next()
		if !errors.Is(err, ErrNeedMoreData) {
			return frame, err
		}

		n, rerr := r.r.Read(r.buf)
		if n > 0 {
			r.dec.Write(r.buf[:n])
		}
		if rerr == io.EOF {
			r.dec.CloseInput()
			continue
		}
		if rerr != nil {
			return Frame{}, rerr
		}
	}
}

// Decoder exposes the underlying decoder for stats and progress.
func (r *Reader) Decoder() *Decoder {
	return r.dec
}
