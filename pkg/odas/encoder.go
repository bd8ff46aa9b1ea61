// ABOUTME: Frame encoder producing the engine's byte layout
// ABOUTME: Used by the simulator and by tests to build well-formed streams
package odas

import (
	"fmt"
	"io"
)

// Encoder writes frames to w in the layout described by its parameters.
type Encoder struct {
	w      io.Writer
	params Params
	buf    []byte
}

// NewEncoder validates p and returns an encoder writing to w.
func NewEncoder(w io.Writer, p Params) (*Encoder, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Encoder{
		w:      w,
		params: p,
		buf:    make([]byte, 0, p.FrameSize()),
	}, nil
}

// WriteHandshake sends the version-stamped parameter announcement.
func (e *Encoder) WriteHandshake() error {
	b, err := e.params.Handshake().MarshalBinary()
	if err != nil {
		return err
	}
	if _, err := e.w.Write(b); err != nil {
		return fmt.Errorf("write handshake: %w", err)
	}
	return nil
}

// WriteFrame serialises and writes one frame.
func (e *Encoder) WriteFrame(f Frame) error {
	buf, err := appendFrame(e.buf[:0], e.params, f)
	if err != nil {
		return err
	}
	e.buf = buf
	if _, err := e.w.Write(buf); err != nil {
		return fmt.Errorf("write frame %d: %w", f.Index, err)
	}
	return nil
}

// EncodeFrame returns the wire bytes of f under p.
func EncodeFrame(p Params, f Frame) ([]byte, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return appendFrame(nil, p, f)
}

// NewFrame returns an empty frame shaped for p: every slot untagged and silent.
func NewFrame(p Params, index uint64) Frame {
	f := Frame{
		Index:     index,
		Timestamp: p.FrameTimestamp(index),
		Slots:     make([]Slot, p.MaxSources),
	}
	for i := range f.Slots {
		f.Slots[i] = Slot{Index: i, Samples: make([]int32, p.HopSize)}
	}
	return f
}
