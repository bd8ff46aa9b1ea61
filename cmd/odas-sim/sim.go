// ABOUTME: Frame and tracking generation for the engine simulator
// ABOUTME: Fills slots from audio sources and moves synthetic sources around the array
package main

import (
	"context"
	"fmt"
	"log"
	"math"
	"net"
	"strings"
	"time"

	"github.com/lisa-project/lisa-odas/internal/source"
	"github.com/lisa-project/lisa-odas/pkg/audio"
	"github.com/lisa-project/lisa-odas/pkg/odas"
	"github.com/lisa-project/lisa-odas/pkg/tracking"
)

// slotSource feeds one slot of every frame.
type slotSource struct {
	slot int
	tag  string
	src  source.Source
	buf  []int32
}

// newSlotSources builds one source per active slot. When file is set, slot 0
// plays it and the others get tones.
func newSlotSources(p odas.Params, active int, file string) ([]*slotSource, error) {
	if active > p.MaxSources {
		active = p.MaxSources
	}
	sources := make([]*slotSource, 0, active)
	for i := 0; i < active; i++ {
		var src source.Source
		if i == 0 && file != "" {
			f, err := source.Open(file)
			if err != nil {
				closeSources(sources)
				return nil, err
			}
			src = source.ForStream(f, p.SampleRate)
		} else {
			src = source.NewTone(toneFrequency(i), p.SampleRate)
		}
		sources = append(sources, &slotSource{
			slot: i,
			tag:  tagFor(src.Name(), p.TagLen),
			src:  src,
			buf:  make([]int32, p.HopSize),
		})
	}
	return sources, nil
}

func closeSources(sources []*slotSource) {
	for _, s := range sources {
		s.src.Close()
	}
}

// toneFrequency spaces slot tones a fifth apart from 220 Hz.
func toneFrequency(slot int) float64 {
	return math.Round(220 * math.Pow(1.5, float64(slot)))
}

// tagFor turns a source name into a valid slot tag: printable ASCII, at
// most tagLen bytes.
func tagFor(name string, tagLen int) string {
	var b strings.Builder
	for _, r := range name {
		if b.Len() == tagLen {
			break
		}
		switch {
		case r == ' ':
			b.WriteByte('-')
		case r > 0x20 && r < 0x7f:
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "source"
	}
	return b.String()
}

// fillFrame reads one hop per source into f and tags the slot.
func fillFrame(p odas.Params, f *odas.Frame, sources []*slotSource) error {
	for _, s := range sources {
		if err := source.ReadFull(s.src, s.buf); err != nil {
			return fmt.Errorf("slot %d (%s): %w", s.slot, s.src.Name(), err)
		}
		slot := &f.Slots[s.slot]
		slot.Tag = s.tag
		for i, v := range s.buf {
			slot.Samples[i] = audio.FromHiRes(v, p.BitDepth)
		}
	}
	return nil
}

// trackingAt places active sources evenly on the horizon, rotating at
// degPerSec, as seen at frame index.
func trackingAt(p odas.Params, index uint64, sources []*slotSource, degPerSec float64) (tracking.SSL, tracking.SST) {
	t := p.FrameTimestamp(index).Seconds()
	ssl := tracking.SSL{Timestamp: index, Sources: make([]tracking.SSLSource, p.MaxSources)}
	sst := tracking.SST{Timestamp: index, Sources: make([]tracking.SSTSource, p.MaxSources)}

	for i, s := range sources {
		az := (degPerSec*t + float64(i)*360/float64(len(sources))) * math.Pi / 180
		x, y := math.Cos(az), math.Sin(az)
		ssl.Sources[s.slot] = tracking.SSLSource{X: x, Y: y, E: 0.8}
		sst.Sources[s.slot] = tracking.SSTSource{
			ID:       uint64(s.slot + 1),
			Tag:      s.tag,
			X:        x,
			Y:        y,
			Activity: 1,
		}
	}
	return ssl, sst
}

// dial connects to addr, retrying every second like the engine does until
// ctx is cancelled.
func dial(ctx context.Context, stream, addr string) (net.Conn, error) {
	var d net.Dialer
	for {
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err == nil {
			log.Printf("Connected %s stream to %s", stream, addr)
			return conn, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Printf("Dial %s stream %s failed: %v (retrying)", stream, addr, err)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Second):
		}
	}
}
