// ABOUTME: Tests for the resumable frame decoder and blocking Reader
// ABOUTME: Covers chunking, truncation, malformed recovery, layouts and handshakes
package odas

import (
	"bytes"
	"errors"
	"io"
	"reflect"
	"testing"
)

// testFrame builds a frame whose samples encode slot and position so that
// misplaced bytes show up as wrong values.
func testFrame(p Params, index uint64, tags ...string) Frame {
	f := NewFrame(p, index)
	for s := range f.Slots {
		if s < len(tags) {
			f.Slots[s].Tag = tags[s]
		}
		for n := range f.Slots[s].Samples {
			v := int32(s*1000+n) - 500 + int32(index%7)
			f.Slots[s].Samples[n] = v
		}
	}
	return f
}

func encodeFrames(t *testing.T, p Params, frames ...Frame) []byte {
	t.Helper()
	var buf bytes.Buffer
	enc, err := NewEncoder(&buf, p)
	if err != nil {
		t.Fatalf("NewEncoder: %v", err)
	}
	for _, f := range frames {
		if err := enc.WriteFrame(f); err != nil {
			t.Fatalf("WriteFrame: %v", err)
		}
	}
	return buf.Bytes()
}

func drain(t *testing.T, d *Decoder) []Frame {
	t.Helper()
	var out []Frame
	for {
		f, err := d.Next()
		if errors.Is(err, ErrNeedMoreData) || errors.Is(err, io.EOF) {
			return out
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		out = append(out, f)
	}
}

func TestDecodeSingleFrame(t *testing.T) {
	p := DefaultParams()
	data := encodeFrames(t, p, testFrame(p, 0, "voice-1", "", "voice-3", "x"))
	if len(data) != 1104 {
		t.Fatalf("encoded frame is %d bytes, want 1104", len(data))
	}

	d, err := NewDecoder(p)
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}
	d.Write(data)

	f, err := d.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if len(f.Slots) != 4 {
		t.Fatalf("got %d slots, want 4", len(f.Slots))
	}
	for i, s := range f.Slots {
		if len(s.RawTag) != 20 {
			t.Errorf("slot %d raw tag is %d bytes, want 20", i, len(s.RawTag))
		}
		if len(s.Samples) != 128 {
			t.Errorf("slot %d has %d samples, want 128", i, len(s.Samples))
		}
		if s.Samples[5] != int32(i*1000+5)-500 {
			t.Errorf("slot %d sample 5 = %d", i, s.Samples[5])
		}
	}
	if f.Slots[0].Tag != "voice-1" || f.Slots[1].Tag != "" || f.Slots[3].Tag != "x" {
		t.Errorf("unexpected tags: %q %q %q", f.Slots[0].Tag, f.Slots[1].Tag, f.Slots[3].Tag)
	}
	if got := len(f.ActiveSlots()); got != 3 {
		t.Errorf("ActiveSlots() = %d, want 3", got)
	}

	if _, err := d.Next(); !errors.Is(err, ErrNeedMoreData) {
		t.Errorf("Next on empty buffer = %v, want ErrNeedMoreData", err)
	}
	d.CloseInput()
	if _, err := d.Next(); !errors.Is(err, ErrEndOfStream) {
		t.Errorf("Next after close = %v, want end of stream", err)
	}
}

func TestDecodePartialThenTruncated(t *testing.T) {
	p := DefaultParams()
	data := encodeFrames(t, p, testFrame(p, 0))

	d, _ := NewDecoder(p)
	d.Write(data[:1000])
	if _, err := d.Next(); !errors.Is(err, ErrNeedMoreData) {
		t.Fatalf("Next with 1000 bytes = %v, want ErrNeedMoreData", err)
	}
	if d.Buffered() != 1000 {
		t.Errorf("Buffered() = %d, want 1000", d.Buffered())
	}

	d.CloseInput()
	_, err := d.Next()
	if !errors.Is(err, ErrTruncated) {
		t.Fatalf("Next after close = %v, want ErrTruncated", err)
	}
	var trunc *TruncatedError
	if !errors.As(err, &trunc) || trunc.Buffered != 1000 || trunc.Want != 1104 {
		t.Errorf("unexpected truncation detail: %+v", trunc)
	}
	if _, err := d.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("Next after truncation = %v, want io.EOF", err)
	}
	if d.Stats().Truncated != 1 {
		t.Errorf("Stats().Truncated = %d, want 1", d.Stats().Truncated)
	}
}

func TestDecodeTwoFramesOneWrite(t *testing.T) {
	p := DefaultParams()
	in := []Frame{testFrame(p, 0, "a"), testFrame(p, 1, "b")}
	d, _ := NewDecoder(p)
	d.Write(encodeFrames(t, p, in...))

	out := drain(t, d)
	if len(out) != 2 {
		t.Fatalf("decoded %d frames, want 2", len(out))
	}
	for i := range out {
		if out[i].Index != uint64(i) {
			t.Errorf("frame %d has index %d", i, out[i].Index)
		}
		if out[i].Slots[0].Tag != in[i].Slots[0].Tag {
			t.Errorf("frame %d tag %q, want %q", i, out[i].Slots[0].Tag, in[i].Slots[0].Tag)
		}
		if !reflect.DeepEqual(out[i].Slots[2].Samples, in[i].Slots[2].Samples) {
			t.Errorf("frame %d samples differ", i)
		}
	}
	if out[1].Timestamp != p.FramePeriod() {
		t.Errorf("second frame timestamp = %v, want %v", out[1].Timestamp, p.FramePeriod())
	}
}

func TestDecodeArbitraryChunking(t *testing.T) {
	p := DefaultParams()
	frames := []Frame{testFrame(p, 0, "one"), testFrame(p, 1, "two"), testFrame(p, 2, "three")}
	data := encodeFrames(t, p, frames...)

	whole, _ := NewDecoder(p)
	whole.Write(data)
	want := drain(t, whole)

	for _, chunk := range []int{1, 7, 276, 1103, 1105} {
		d, _ := NewDecoder(p)
		var got []Frame
		for off := 0; off < len(data); off += chunk {
			end := off + chunk
			if end > len(data) {
				end = len(data)
			}
			d.Write(data[off:end])
			got = append(got, drain(t, d)...)
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("chunk size %d: decoded frames differ from single write", chunk)
		}
	}
}

func TestDecodeMalformedSkipsOneFrame(t *testing.T) {
	p := DefaultParams()
	data := encodeFrames(t, p, testFrame(p, 0, "ok"), testFrame(p, 1, "bad"), testFrame(p, 2, "ok"))
	// Corrupt the tag of slot 1 in the middle frame.
	data[p.FrameSize()+p.SlotSize()] = 0x01

	d, _ := NewDecoder(p)
	d.Write(data)

	if f, err := d.Next(); err != nil || f.Index != 0 {
		t.Fatalf("frame 0: %v %v", f.Index, err)
	}
	_, err := d.Next()
	var malformed *MalformedError
	if !errors.As(err, &malformed) {
		t.Fatalf("frame 1 = %v, want *MalformedError", err)
	}
	if malformed.Frame != 1 || malformed.Slot != 1 {
		t.Errorf("malformed at frame %d slot %d, want 1/1", malformed.Frame, malformed.Slot)
	}
	f, err := d.Next()
	if err != nil || f.Index != 2 {
		t.Fatalf("frame 2: %v %v", f.Index, err)
	}
	if s := d.Stats(); s.Frames != 2 || s.Malformed != 1 {
		t.Errorf("Stats() = %+v", s)
	}
}

func TestDecodeTagAfterNULIsMalformed(t *testing.T) {
	p := DefaultParams()
	data := encodeFrames(t, p, testFrame(p, 0, "abc"))
	data[10] = 'z'

	d, _ := NewDecoder(p)
	d.Write(data)
	if _, err := d.Next(); !errors.Is(err, ErrMalformed) {
		t.Errorf("Next = %v, want ErrMalformed", err)
	}

	lax, _ := NewDecoder(p, WithTagValidation(false))
	lax.Write(data)
	f, err := lax.Next()
	if err != nil {
		t.Fatalf("Next without validation: %v", err)
	}
	if f.Slots[0].Tag != "abc" {
		t.Errorf("tag = %q, want abc", f.Slots[0].Tag)
	}
}

func TestDecodeMalformedEscalates(t *testing.T) {
	p := DefaultParams()
	frame := encodeFrames(t, p, testFrame(p, 0))
	frame[0] = 0x7f

	d, _ := NewDecoder(p, WithMaxConsecutiveMalformed(3))
	for i := 0; i < 4; i++ {
		d.Write(frame)
	}

	for i := 0; i < 2; i++ {
		if _, err := d.Next(); !errors.Is(err, ErrMalformed) {
			t.Fatalf("frame %d = %v, want ErrMalformed", i, err)
		}
	}
	if _, err := d.Next(); !errors.Is(err, ErrConfigurationMismatch) {
		t.Fatalf("third malformed frame = %v, want ErrConfigurationMismatch", err)
	}
	if _, err := d.Next(); !errors.Is(err, ErrConfigurationMismatch) {
		t.Errorf("mismatch is not sticky: %v", err)
	}

	d.Reset()
	if d.Buffered() != 0 {
		t.Errorf("Buffered() after Reset = %d", d.Buffered())
	}
	d.Write(encodeFrames(t, p, testFrame(p, 0)))
	if f, err := d.Next(); err != nil || f.Index != 0 {
		t.Errorf("after Reset: index %d err %v", f.Index, err)
	}
}

func TestDecodeReplayDeterministic(t *testing.T) {
	p := DefaultParams()
	data := encodeFrames(t, p, testFrame(p, 0, "a"), testFrame(p, 1, "b"))
	data = append(data, data[:500]...)

	run := func() ([]Frame, error) {
		d, _ := NewDecoder(p)
		d.Write(data)
		frames := drain(t, d)
		d.CloseInput()
		_, err := d.Next()
		return frames, err
	}

	f1, e1 := run()
	f2, e2 := run()
	if !reflect.DeepEqual(f1, f2) {
		t.Error("replay produced different frames")
	}
	if e1.Error() != e2.Error() {
		t.Errorf("replay produced different errors: %v vs %v", e1, e2)
	}
}

func TestDecodeLayoutsAndOrders(t *testing.T) {
	for _, layout := range []Layout{LayoutSlotBlocks, LayoutInterleaved} {
		for _, order := range []ByteOrder{LittleEndian, BigEndian} {
			for _, bits := range []int{16, 24, 32} {
				p := DefaultParams()
				p.Layout = layout
				p.ByteOrder = order
				p.BitDepth = bits

				in := testFrame(p, 0, "left", "right")
				d, _ := NewDecoder(p)
				d.Write(encodeFrames(t, p, in))
				out, err := d.Next()
				if err != nil {
					t.Fatalf("%s/%s/%d: %v", layout, order, bits, err)
				}
				for s := range in.Slots {
					if !reflect.DeepEqual(out.Slots[s].Samples, in.Slots[s].Samples) {
						t.Errorf("%s/%s/%d: slot %d samples differ", layout, order, bits, s)
					}
					if out.Slots[s].Tag != in.Slots[s].Tag {
						t.Errorf("%s/%s/%d: slot %d tag %q", layout, order, bits, s, out.Slots[s].Tag)
					}
				}
			}
		}
	}
}

func TestDecodeBigEndianBytes(t *testing.T) {
	p := DefaultParams()
	p.ByteOrder = BigEndian
	data := make([]byte, p.FrameSize())
	data[20] = 0x01
	data[21] = 0x02

	d, _ := NewDecoder(p)
	d.Write(data)
	f, err := d.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if f.Slots[0].Samples[0] != 0x0102 {
		t.Errorf("sample = %#x, want 0x0102", f.Slots[0].Samples[0])
	}
}

func TestDecoderState(t *testing.T) {
	p := DefaultParams()
	d, _ := NewDecoder(p)

	steps := []struct {
		write int
		want  SlotProgress
	}{
		{0, SlotProgress{0, AwaitingTag}},
		{10, SlotProgress{0, AwaitingTag}},
		{20, SlotProgress{0, AwaitingSamples}},
		{246, SlotProgress{1, AwaitingTag}},
		{300, SlotProgress{2, AwaitingSamples}},
		{252, SlotProgress{3, AwaitingTag}},
		{276, SlotProgress{3, FrameComplete}},
	}
	for _, step := range steps {
		d.Write(make([]byte, step.write))
		if got := d.State(); got != step.want {
			t.Errorf("after %d bytes: State() = %+v, want %+v", d.Buffered(), got, step.want)
		}
	}

	if _, err := d.Next(); err != nil {
		t.Fatalf("Next: %v", err)
	}
	if got := d.State(); got != (SlotProgress{0, AwaitingTag}) {
		t.Errorf("State() after frame = %+v, want slot 0 awaiting tag", got)
	}
}

func TestDecoderWriteAfterClose(t *testing.T) {
	d, _ := NewDecoder(DefaultParams())
	d.CloseInput()
	if _, err := d.Write([]byte{1}); err == nil {
		t.Error("Write after CloseInput should fail")
	}
}

func TestNewDecoderRejectsInvalidParams(t *testing.T) {
	p := DefaultParams()
	p.BitDepth = 0
	if _, err := NewDecoder(p); !errors.Is(err, ErrConfigurationMismatch) {
		t.Errorf("NewDecoder = %v, want ErrConfigurationMismatch", err)
	}
}

func TestDecoderStartIndex(t *testing.T) {
	p := DefaultParams()
	d, _ := NewDecoder(p, WithStartIndex(125))
	d.Write(encodeFrames(t, p, testFrame(p, 0)))
	f, err := d.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if f.Index != 125 || f.Timestamp != p.FrameTimestamp(125) {
		t.Errorf("frame index %d ts %v", f.Index, f.Timestamp)
	}
}

func TestDecoderHandshake(t *testing.T) {
	p := DefaultParams()
	var buf bytes.Buffer
	enc, _ := NewEncoder(&buf, p)
	if err := enc.WriteHandshake(); err != nil {
		t.Fatalf("WriteHandshake: %v", err)
	}
	if err := enc.WriteFrame(testFrame(p, 0, "hs")); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}

	d, _ := NewDecoder(p, WithHandshake())
	data := buf.Bytes()
	d.Write(data[:HandshakeSize-1])
	if _, err := d.Next(); !errors.Is(err, ErrNeedMoreData) {
		t.Fatalf("partial handshake = %v, want ErrNeedMoreData", err)
	}
	d.Write(data[HandshakeSize-1:])
	f, err := d.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if f.Slots[0].Tag != "hs" {
		t.Errorf("tag = %q", f.Slots[0].Tag)
	}
}

func TestDecoderHandshakeMismatch(t *testing.T) {
	remote := DefaultParams()
	remote.HopSize = 256
	var buf bytes.Buffer
	enc, _ := NewEncoder(&buf, remote)
	enc.WriteHandshake()

	d, _ := NewDecoder(DefaultParams(), WithHandshake())
	d.Write(buf.Bytes())
	_, err := d.Next()
	if !errors.Is(err, ErrConfigurationMismatch) {
		t.Fatalf("Next = %v, want ErrConfigurationMismatch", err)
	}
	var mismatch *MismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("error %v is not a *MismatchError", err)
	}
	if len(mismatch.Fields) != 1 || mismatch.Fields[0].Field != "hop_size" ||
		mismatch.Fields[0].Local != 128 || mismatch.Fields[0].Remote != 256 {
		t.Errorf("mismatch fields = %+v", mismatch.Fields)
	}
}

func TestDecoderHandshakeGarbage(t *testing.T) {
	d, _ := NewDecoder(DefaultParams(), WithHandshake())
	d.Write(make([]byte, HandshakeSize))
	if _, err := d.Next(); !errors.Is(err, ErrConfigurationMismatch) {
		t.Errorf("Next = %v, want ErrConfigurationMismatch", err)
	}
}

// oneByteReader returns at most one byte per Read.
type oneByteReader struct{ r io.Reader }

func (o oneByteReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	return o.r.Read(p[:1])
}

func TestReader(t *testing.T) {
	p := DefaultParams()
	data := encodeFrames(t, p, testFrame(p, 0, "a"), testFrame(p, 1, "b"))

	r, err := NewReader(oneByteReader{bytes.NewReader(data)}, p)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	for i := 0; i < 2; i++ {
		f, err := r.ReadFrame()
		if err != nil {
			t.Fatalf("ReadFrame %d: %v", i, err)
		}
		if f.Index != uint64(i) {
			t.Errorf("frame index %d, want %d", f.Index, i)
		}
	}
	if _, err := r.ReadFrame(); err != io.EOF {
		t.Errorf("ReadFrame at end = %v, want io.EOF", err)
	}
}

func TestReaderTruncated(t *testing.T) {
	p := DefaultParams()
	data := encodeFrames(t, p, testFrame(p, 0))
	r, _ := NewReader(bytes.NewReader(data[:700]), p)
	if _, err := r.ReadFrame(); !errors.Is(err, ErrTruncated) {
		t.Errorf("ReadFrame = %v, want ErrTruncated", err)
	}
}
