// ABOUTME: Forwards hub events to monitor clients
// ABOUTME: Broadcasts tag changes and tracking messages and encodes audio per client
package monitor

import (
	"context"
	"log"

	"github.com/lisa-project/lisa-odas/internal/hub"
	"github.com/lisa-project/lisa-odas/pkg/audio"
	"github.com/lisa-project/lisa-odas/pkg/odas"
	"github.com/lisa-project/lisa-odas/pkg/protocol"
)

// hubBuffer holds about two seconds of frames at the default rate.
const hubBuffer = 256

// Forward consumes hub events until ctx is cancelled
func (s *Server) Forward(ctx context.Context) {
	sub := s.hub.Subscribe(hubBuffer)
	defer s.hub.Unsubscribe(sub)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.C:
			if !ok {
				return
			}
			switch ev.Kind {
			case hub.KindFrame:
				s.forwardFrame(ev.Frame)
			case hub.KindSSL:
				s.broadcast(protocol.TypeTrackingSSL, ev.SSL)
			case hub.KindSST:
				s.stateMu.Lock()
				sst := ev.SST
				s.lastSST = &sst
				s.stateMu.Unlock()
				s.broadcast(protocol.TypeTrackingSST, ev.SST)
			}
		}
	}
}

func (s *Server) forwardFrame(frame odas.Frame) {
	for _, slot := range frame.Slots {
		s.metrics.SetSlotLevel(slot.Index, audio.RMS(slot.Samples, s.config.Params.BitDepth))
	}

	if tags, changed := s.updateTags(frame); changed {
		s.broadcast(protocol.TypeStreamTags, tags)
	}

	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()

	for _, client := range s.clients {
		msgs, err := client.encodeFrame(frame)
		if err != nil {
			log.Printf("Error encoding audio for %s: %v", client.Name, err)
		}
		for _, msg := range msgs {
			s.sendBinary(client, msg)
		}
	}
}

// updateTags records the frame's tags and reports whether any slot changed.
func (s *Server) updateTags(frame odas.Frame) (protocol.StreamTags, bool) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()

	changed := false
	for _, slot := range frame.Slots {
		if slot.Index < len(s.tags.Tags) && s.tags.Tags[slot.Index] != slot.Tag {
			changed = true
		}
	}
	if !changed {
		return s.tags, false
	}

	tags := make([]string, len(s.tags.Tags))
	for _, slot := range frame.Slots {
		if slot.Index < len(tags) {
			tags[slot.Index] = slot.Tag
		}
	}
	s.tags = protocol.StreamTags{
		Frame:     frame.Index,
		Timestamp: frame.Timestamp.Microseconds(),
		Tags:      tags,
	}
	return s.tags, true
}

// broadcast sends a JSON message to every client
func (s *Server) broadcast(msgType string, payload interface{}) {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()

	for _, client := range s.clients {
		s.sendMessage(client, msgType, payload)
	}
}
