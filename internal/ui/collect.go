// ABOUTME: Aggregates hub events into snapshots the dashboard can render
// ABOUTME: Runs off the UI goroutine so frames never queue inside bubbletea
package ui

import (
	"math"

	"github.com/lisa-project/lisa-odas/internal/hub"
	"github.com/lisa-project/lisa-odas/pkg/audio"
	"github.com/lisa-project/lisa-odas/pkg/odas"
	"github.com/lisa-project/lisa-odas/pkg/tracking"
)

// SlotView is the latest state of one source slot.
type SlotView struct {
	Index int
	Tag   string
	Level float64 // RMS in [0, 1]
	Peak  float64 // decaying peak of Level
}

// Decibels returns Level in dBFS, floored at -90.
func (s SlotView) Decibels() float64 {
	if s.Level <= 0 {
		return -90
	}
	return math.Max(-90, 20*math.Log10(s.Level))
}

// TrackingMsg carries what arrived from the engine since the last one.
type TrackingMsg struct {
	Slots       []SlotView
	Tracked     []tracking.SSTSource
	Ring        [tracking.EnergyBins]int
	PeakBin     int
	FrameIndex  uint64
	SSLMessages uint64
}

const peakFall = 0.02

// collector owns the state hub events are folded into. Not safe for
// concurrent use.
type collector struct {
	bitDepth int
	slots    []SlotView
	tracked  []tracking.SSTSource
	energy   tracking.EnergyMap
	frame    uint64
	ssl      uint64
}

func newCollector(p odas.Params) *collector {
	slots := make([]SlotView, p.MaxSources)
	for i := range slots {
		slots[i].Index = i
	}
	return &collector{bitDepth: p.BitDepth, slots: slots}
}

func (c *collector) add(ev hub.Event) {
	switch ev.Kind {
	case hub.KindFrame:
		c.frame = ev.Frame.Index
		for _, s := range ev.Frame.Slots {
			if s.Index < 0 || s.Index >= len(c.slots) {
				continue
			}
			v := &c.slots[s.Index]
			v.Tag = s.Tag
			v.Level = audio.RMS(s.Samples, c.bitDepth)
			v.Peak = math.Max(v.Level, v.Peak-peakFall)
		}
	case hub.KindSSL:
		c.ssl++
		c.energy.Apply(ev.SSL)
	case hub.KindSST:
		c.tracked = c.tracked[:0]
		for _, src := range ev.SST.Sources {
			if src.Active() {
				c.tracked = append(c.tracked, src)
			}
		}
	}
}

func (c *collector) snapshot() TrackingMsg {
	ring, _ := c.energy.Levels(tracking.MaxBrightness)
	return TrackingMsg{
		Slots:       append([]SlotView(nil), c.slots...),
		Tracked:     append([]tracking.SSTSource(nil), c.tracked...),
		Ring:        ring,
		PeakBin:     c.energy.Peak(),
		FrameIndex:  c.frame,
		SSLMessages: c.ssl,
	}
}
