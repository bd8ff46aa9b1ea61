// ABOUTME: Per-client state of the monitor server
// ABOUTME: Holds the subscribed slots and one audio encoder per slot
package monitor

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lisa-project/lisa-odas/pkg/audio"
	"github.com/lisa-project/lisa-odas/pkg/audio/encode"
	"github.com/lisa-project/lisa-odas/pkg/odas"
	"github.com/lisa-project/lisa-odas/pkg/protocol"
)

// Client represents a connected monitor client
type Client struct {
	ID    string
	Name  string
	Conn  *websocket.Conn
	Codec string

	params odas.Params

	mu    sync.Mutex
	slots map[int]*slotStream

	// Output channel for messages
	sendChan chan interface{}
}

func newClient(id, name string, conn *websocket.Conn, codec string, p odas.Params) (*Client, error) {
	c := &Client{
		ID:       id,
		Name:     name,
		Conn:     conn,
		Codec:    codec,
		params:   p,
		slots:    make(map[int]*slotStream),
		sendChan: make(chan interface{}, 512),
	}
	// Build one stream up front so a broken codec fails the handshake.
	if _, err := newSlotStream(0, codec, p); err != nil {
		return nil, err
	}
	return c, nil
}

// setSlots replaces the subscription. Slots outside the frame are ignored;
// streams kept across calls keep their encoder state.
func (c *Client) setSlots(slots []int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := make(map[int]*slotStream, len(slots))
	for _, slot := range slots {
		if slot < 0 || slot >= c.params.MaxSources {
			continue
		}
		if st, ok := c.slots[slot]; ok {
			next[slot] = st
			continue
		}
		st, err := newSlotStream(slot, c.Codec, c.params)
		if err != nil {
			continue
		}
		next[slot] = st
	}
	c.slots = next
}

// Slots returns the subscribed slots in ascending order.
func (c *Client) Slots() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]int, 0, len(c.slots))
	for slot := range c.slots {
		out = append(out, slot)
	}
	sort.Ints(out)
	return out
}

// encodeFrame returns the binary messages this client gets for frame.
func (c *Client) encodeFrame(frame odas.Frame) ([][]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out [][]byte
	for _, slot := range frame.Slots {
		st, ok := c.slots[slot.Index]
		if !ok {
			continue
		}
		msgs, err := st.push(slot.Samples, c.params.BitDepth, frame.Timestamp)
		if err != nil {
			return out, err
		}
		out = append(out, msgs...)
	}
	return out, nil
}

// slotStream encodes one slot for one client. Opus needs 20ms blocks, so
// hops are regrouped by a chunker first.
type slotStream struct {
	slot    int
	rate    int
	enc     encode.Encoder
	chunker *encode.Chunker
	hires   []int32
}

func newSlotStream(slot int, codec string, p odas.Params) (*slotStream, error) {
	st := &slotStream{slot: slot, rate: p.SampleRate}

	switch codec {
	case protocol.CodecOpus:
		enc, err := encode.NewOpus(audio.Format{Codec: "opus", SampleRate: p.SampleRate, Channels: 1})
		if err != nil {
			return nil, err
		}
		framed, ok := enc.(interface{ FrameSamples() int })
		if !ok {
			return nil, fmt.Errorf("opus encoder does not report its frame size")
		}
		st.enc = enc
		st.chunker = encode.NewChunker(framed.FrameSamples())
	case protocol.CodecPCM:
		enc, err := encode.NewPCM(audio.Format{Codec: "pcm", SampleRate: p.SampleRate, Channels: 1, BitDepth: 16})
		if err != nil {
			return nil, err
		}
		st.enc = enc
	default:
		return nil, fmt.Errorf("unsupported codec: %s", codec)
	}
	return st, nil
}

// push encodes one hop of native-scale samples starting at ts.
func (st *slotStream) push(samples []int32, bitDepth int, ts time.Duration) ([][]byte, error) {
	st.hires = st.hires[:0]
	for _, s := range samples {
		st.hires = append(st.hires, audio.ToHiRes(s, bitDepth))
	}

	if st.chunker == nil {
		data, err := st.enc.Encode(st.hires)
		if err != nil {
			return nil, err
		}
		return [][]byte{protocol.CreateAudioChunk(st.slot, ts.Microseconds(), data)}, nil
	}

	start := ts - st.samplesDuration(st.chunker.Pending())
	blocks := st.chunker.Push(st.hires)
	out := make([][]byte, 0, len(blocks))
	for _, block := range blocks {
		packet, err := st.enc.Encode(block)
		if err != nil {
			return out, err
		}
		out = append(out, protocol.CreateAudioChunk(st.slot, start.Microseconds(), packet))
		start += st.samplesDuration(len(block))
	}
	return out, nil
}

func (st *slotStream) samplesDuration(n int) time.Duration {
	return time.Duration(n) * time.Second / time.Duration(st.rate)
}
