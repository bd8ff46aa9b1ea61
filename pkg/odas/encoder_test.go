// ABOUTME: Tests for the frame encoder
// ABOUTME: Verifies byte placement and rejection of frames that do not fit the params
package odas

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"
)

func TestEncodeFrameSlotLayout(t *testing.T) {
	p := DefaultParams()
	f := NewFrame(p, 0)
	f.Slots[1].Tag = "spk"
	f.Slots[1].Samples[0] = -2
	f.Slots[3].Samples[127] = 0x1234

	b, err := EncodeFrame(p, f)
	if err != nil {
		t.Fatalf("EncodeFrame: %v", err)
	}
	if len(b) != p.FrameSize() {
		t.Fatalf("len = %d, want %d", len(b), p.FrameSize())
	}

	tag := b[276 : 276+20]
	if !bytes.Equal(tag, append([]byte("spk"), make([]byte, 17)...)) {
		t.Errorf("slot 1 tag bytes = %v", tag)
	}
	if got := int16(binary.LittleEndian.Uint16(b[296:])); got != -2 {
		t.Errorf("slot 1 sample 0 = %d, want -2", got)
	}
	if got := binary.LittleEndian.Uint16(b[1102:]); got != 0x1234 {
		t.Errorf("last sample = %#x, want 0x1234", got)
	}
}

func TestEncodeFrameInterleaved(t *testing.T) {
	p := DefaultParams()
	p.Layout = LayoutInterleaved
	f := NewFrame(p, 0)
	f.Slots[2].Tag = "c"
	f.Slots[0].Samples[1] = 7
	f.Slots[3].Samples[0] = 9

	b, err := EncodeFrame(p, f)
	if err != nil {
		t.Fatalf("EncodeFrame: %v", err)
	}
	if b[40] != 'c' {
		t.Errorf("slot 2 tag byte = %q, want 'c'", b[40])
	}
	samples := b[80:]
	if got := binary.LittleEndian.Uint16(samples[3*2:]); got != 9 {
		t.Errorf("hop 0 slot 3 = %d, want 9", got)
	}
	if got := binary.LittleEndian.Uint16(samples[4*2:]); got != 7 {
		t.Errorf("hop 1 slot 0 = %d, want 7", got)
	}
}

func TestEncodeFrameRejectsShape(t *testing.T) {
	p := DefaultParams()

	tests := []struct {
		name   string
		modify func(*Frame)
		want   string
	}{
		{"slots", func(f *Frame) { f.Slots = f.Slots[:3] }, "3 slots"},
		{"samples", func(f *Frame) { f.Slots[0].Samples = f.Slots[0].Samples[:10] }, "10 samples"},
		{"tag", func(f *Frame) { f.Slots[2].Tag = strings.Repeat("t", 21) }, "exceeds 20 bytes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFrame(p, 0)
			tt.modify(&f)
			_, err := EncodeFrame(p, f)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("EncodeFrame = %v, want error containing %q", err, tt.want)
			}
		})
	}
}

func TestEncodeFrameClampsSamples(t *testing.T) {
	p := DefaultParams()
	f := NewFrame(p, 0)
	f.Slots[0].Samples[0] = 1 << 20

	b, _ := EncodeFrame(p, f)
	if got := int16(binary.LittleEndian.Uint16(b[20:])); got != 32767 {
		t.Errorf("clamped sample = %d, want 32767", got)
	}
}
