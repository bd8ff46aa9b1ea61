// ABOUTME: Tests for simulator audio sources
// ABOUTME: Covers tone generation, downmix, resampling, ReadFull and Open errors
package source

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lisa-project/lisa-odas/pkg/audio"
)

// fixed returns the same interleaved frame forever
type fixed struct {
	frame    []int32
	rate     int
	closed   bool
	emptyFor int
	failWith error
}

func (f *fixed) Read(samples []int32) (int, error) {
	if f.failWith != nil {
		return 0, f.failWith
	}
	if f.emptyFor > 0 {
		f.emptyFor--
		return 0, nil
	}
	ch := len(f.frame)
	n := len(samples) - len(samples)%ch
	for i := 0; i < n; i++ {
		samples[i] = f.frame[i%ch]
	}
	return n, nil
}

func (f *fixed) SampleRate() int { return f.rate }
func (f *fixed) Channels() int   { return len(f.frame) }
func (f *fixed) Name() string    { return "fixed" }
func (f *fixed) Close() error    { f.closed = true; return nil }

func TestToneStaysInRange(t *testing.T) {
	tone := NewTone(440, 16000)
	buf := make([]int32, 1600)
	n, err := tone.Read(buf)
	if err != nil || n != len(buf) {
		t.Fatalf("Read = %d, %v", n, err)
	}

	var peak int32
	for _, s := range buf {
		if s < 0 {
			s = -s
		}
		if s > peak {
			peak = s
		}
	}
	half := int32(audio.Max24Bit / 2)
	if peak > half || peak < half-half/10 {
		t.Errorf("peak = %d, want close to %d", peak, half)
	}
	if buf[0] != 0 {
		t.Errorf("first sample = %d, want 0", buf[0])
	}
	if tone.Channels() != 1 || tone.SampleRate() != 16000 {
		t.Errorf("format = %dch %dHz", tone.Channels(), tone.SampleRate())
	}
	if tone.Name() != "tone 440Hz" {
		t.Errorf("Name() = %q", tone.Name())
	}
}

func TestToneIsContinuous(t *testing.T) {
	a := NewTone(1000, 16000)
	b := NewTone(1000, 16000)

	whole := make([]int32, 256)
	a.Read(whole)

	split := make([]int32, 256)
	b.Read(split[:100])
	b.Read(split[100:])

	for i := range whole {
		if whole[i] != split[i] {
			t.Fatalf("sample %d differs: %d vs %d", i, whole[i], split[i])
		}
	}
}

func TestToneAmplitudeClamped(t *testing.T) {
	tone := NewTone(500, 16000)
	tone.SetAmplitude(0)
	buf := make([]int32, 64)
	tone.Read(buf)
	for i, s := range buf {
		if s != 0 {
			t.Fatalf("sample %d = %d with zero amplitude", i, s)
		}
	}
	tone.SetAmplitude(3)
	if tone.amplitude != 1 {
		t.Errorf("amplitude = %v, want 1", tone.amplitude)
	}
}

func TestMonoAverages(t *testing.T) {
	src := &fixed{frame: []int32{100, 300}, rate: 48000}
	mono := NewMono(src)

	buf := make([]int32, 8)
	n, err := mono.Read(buf)
	if err != nil || n != 8 {
		t.Fatalf("Read = %d, %v", n, err)
	}
	for i, s := range buf {
		if s != 200 {
			t.Fatalf("sample %d = %d, want 200", i, s)
		}
	}
	if mono.Channels() != 1 || mono.SampleRate() != 48000 {
		t.Errorf("format = %dch %dHz", mono.Channels(), mono.SampleRate())
	}
	mono.Close()
	if !src.closed {
		t.Error("Close did not reach the wrapped source")
	}
}

func TestResampledFillsRequests(t *testing.T) {
	src := &fixed{frame: []int32{1000}, rate: 48000}
	r := NewResampled(src, 16000)

	for i := 0; i < 5; i++ {
		buf := make([]int32, 128)
		if err := ReadFull(r, buf); err != nil {
			t.Fatalf("ReadFull: %v", err)
		}
		for j, s := range buf {
			if s != 1000 {
				t.Fatalf("read %d sample %d = %d, want 1000", i, j, s)
			}
		}
	}
	if r.SampleRate() != 16000 {
		t.Errorf("SampleRate() = %d", r.SampleRate())
	}
}

func TestResampledUpsamples(t *testing.T) {
	src := &fixed{frame: []int32{-50}, rate: 8000}
	r := NewResampled(src, 16000)
	buf := make([]int32, 300)
	if err := ReadFull(r, buf); err != nil {
		t.Fatalf("ReadFull: %v", err)
	}
	for j, s := range buf {
		if s != -50 {
			t.Fatalf("sample %d = %d, want -50", j, s)
		}
	}
}

func TestForStream(t *testing.T) {
	stereo := &fixed{frame: []int32{1, 1}, rate: 44100}
	got := ForStream(stereo, 16000)
	if got.Channels() != 1 || got.SampleRate() != 16000 {
		t.Errorf("ForStream = %dch %dHz", got.Channels(), got.SampleRate())
	}

	tone := NewTone(440, 16000)
	if ForStream(tone, 16000) != Source(tone) {
		t.Error("matching source should be returned unwrapped")
	}
}

func TestReadFull(t *testing.T) {
	t.Run("tolerates empty reads", func(t *testing.T) {
		src := &fixed{frame: []int32{7}, rate: 16000, emptyFor: 3}
		buf := make([]int32, 16)
		if err := ReadFull(src, buf); err != nil {
			t.Fatalf("ReadFull: %v", err)
		}
	})

	t.Run("no progress", func(t *testing.T) {
		src := &fixed{frame: []int32{7}, rate: 16000, emptyFor: 1000}
		err := ReadFull(src, make([]int32, 16))
		if !errors.Is(err, io.ErrNoProgress) {
			t.Fatalf("err = %v, want io.ErrNoProgress", err)
		}
	})

	t.Run("source error", func(t *testing.T) {
		boom := errors.New("boom")
		src := &fixed{frame: []int32{7}, rate: 16000, failWith: boom}
		if err := ReadFull(src, make([]int32, 16)); !errors.Is(err, boom) {
			t.Fatalf("err = %v, want boom", err)
		}
	})
}

func TestOpenErrors(t *testing.T) {
	dir := t.TempDir()
	wav := filepath.Join(dir, "clip.wav")
	if err := os.WriteFile(wav, []byte("RIFF"), 0o644); err != nil {
		t.Fatal(err)
	}
	badFLAC := filepath.Join(dir, "clip.flac")
	if err := os.WriteFile(badFLAC, []byte("not audio"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		path string
		want string
	}{
		{"missing", filepath.Join(dir, "nope.mp3"), "audio file not found"},
		{"unsupported", wav, "unsupported audio format: .wav"},
		{"bad flac", badFLAC, "failed to decode FLAC"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := Open(tt.path)
			if err == nil {
				src.Close()
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want it to contain %q", err, tt.want)
			}
		})
	}
}
