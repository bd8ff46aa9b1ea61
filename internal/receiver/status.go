// ABOUTME: Connection state of the receiver's streams
// ABOUTME: Snapshots are safe to read from the UI and the monitor
package receiver

import (
	"fmt"
	"time"

	"github.com/lisa-project/lisa-odas/pkg/odas"
)

// Stream names one of the engine's output sockets.
type Stream int

const (
	StreamAudio Stream = iota
	StreamSSL
	StreamSST
)

func (s Stream) String() string {
	switch s {
	case StreamAudio:
		return "audio"
	case StreamSSL:
		return "ssl"
	case StreamSST:
		return "sst"
	default:
		return fmt.Sprintf("stream(%d)", int(s))
	}
}

// StreamStatus describes one listener.
type StreamStatus struct {
	Stream      Stream
	Addr        string
	Listening   bool
	Connected   bool
	Remote      string
	ConnectedAt time.Time
	Connections uint64
	LastError   string
}

// Status is a snapshot of the whole receiver.
type Status struct {
	Audio   StreamStatus
	SSL     StreamStatus
	SST     StreamStatus
	Decoder odas.DecoderStats // totals over finished audio connections
}

// Status returns a snapshot of the receiver state.
func (r *Receiver) Status() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return Status{
		Audio:   *r.status[StreamAudio],
		SSL:     *r.status[StreamSSL],
		SST:     *r.status[StreamSST],
		Decoder: r.decoder,
	}
}

// Addr returns the bound address of a stream, useful with ":0".
func (r *Receiver) Addr(s Stream) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.status[s].Addr
}

// AudioConnected reports whether an engine is feeding audio right now.
func (r *Receiver) AudioConnected() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.status[StreamAudio].Connected
}

func (r *Receiver) update(s Stream, fn func(*StreamStatus)) {
	r.mu.Lock()
	fn(r.status[s])
	r.mu.Unlock()
}
