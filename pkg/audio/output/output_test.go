// ABOUTME: Audio output tests
// ABOUTME: Verifies the oto backend satisfies Mixer and the volume math
package output

import (
	"encoding/binary"
	"testing"

	"github.com/lisa-project/lisa-odas/pkg/audio"
)

func TestOtoImplementsMixer(t *testing.T) {
	var _ Mixer = (*Oto)(nil)
}

func TestNewOtoDefaults(t *testing.T) {
	out := NewOto()
	if out.Volume() != 100 {
		t.Errorf("Volume() = %d, want 100", out.Volume())
	}
	if out.IsMuted() {
		t.Error("new output is muted")
	}
	if err := out.Write([]int32{1}); err == nil {
		t.Error("Write before Open should fail")
	}
}

func TestSetVolumeClamps(t *testing.T) {
	out := NewOto()
	out.SetVolume(150)
	if out.Volume() != 100 {
		t.Errorf("Volume() = %d, want 100", out.Volume())
	}
	out.SetVolume(-5)
	if out.Volume() != 0 {
		t.Errorf("Volume() = %d, want 0", out.Volume())
	}
}

func TestApplyVolume(t *testing.T) {
	tests := []struct {
		name   string
		volume int
		muted  bool
		in     int32
		want   int32
	}{
		{"full", 100, false, 1000, 1000},
		{"half", 50, false, 1000, 500},
		{"muted", 100, true, 1000, 0},
		{"clip high", 100, false, audio.Max24Bit + 10, audio.Max24Bit},
		{"clip low", 100, false, audio.Min24Bit - 10, audio.Min24Bit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := applyVolume([]int32{tt.in}, tt.volume, tt.muted)
			if got[0] != tt.want {
				t.Errorf("applyVolume(%d) = %d, want %d", tt.in, got[0], tt.want)
			}
		})
	}
}

func TestToInt16LE(t *testing.T) {
	b := toInt16LE([]int32{256 << 8, -1 << 8})
	if got := int16(binary.LittleEndian.Uint16(b)); got != 256 {
		t.Errorf("first sample = %d, want 256", got)
	}
	if got := int16(binary.LittleEndian.Uint16(b[2:])); got != -1 {
		t.Errorf("second sample = %d, want -1", got)
	}
}
