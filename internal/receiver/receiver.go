// ABOUTME: TCP receiver for the three ODAS output streams
// ABOUTME: Decodes audio frames and tracking messages and hands them to a Sink
package receiver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lisa-project/lisa-odas/internal/metrics"
	"github.com/lisa-project/lisa-odas/pkg/odas"
	"github.com/lisa-project/lisa-odas/pkg/tracking"
)

// Sink consumes everything the receiver decodes. Calls come from the
// per-stream goroutines and must not block for long.
type Sink interface {
	HandleFrame(odas.Frame)
	HandleSSL(tracking.SSL)
	HandleSST(tracking.SST)
}

// Config holds receiver configuration. An empty address disables that stream.
type Config struct {
	AudioAddr      string
	SSLAddr        string
	SSTAddr        string
	Params         odas.Params
	DecoderOptions []odas.DecoderOption
	IdleTimeout    time.Duration // 0 = never time out
}

// Receiver accepts engine connections, one at a time per stream.
type Receiver struct {
	config  Config
	sink    Sink
	metrics *metrics.Metrics

	mu      sync.RWMutex
	status  map[Stream]*StreamStatus
	decoder odas.DecoderStats

	ready     chan struct{}
	readyOnce sync.Once
}

// New validates the stream parameters and creates a receiver. m may be nil.
func New(config Config, sink Sink, m *metrics.Metrics) (*Receiver, error) {
	if err := config.Params.Validate(); err != nil {
		return nil, fmt.Errorf("receiver: %w", err)
	}
	if sink == nil {
		return nil, fmt.Errorf("receiver: nil sink")
	}
	if m == nil {
		m = metrics.New()
	}

	r := &Receiver{
		config:  config,
		sink:    sink,
		metrics: m,
		status:  make(map[Stream]*StreamStatus),
		ready:   make(chan struct{}),
	}
	for _, s := range []Stream{StreamAudio, StreamSSL, StreamSST} {
		r.status[s] = &StreamStatus{Stream: s, Addr: r.addr(s)}
	}
	return r, nil
}

func (r *Receiver) addr(s Stream) string {
	switch s {
	case StreamAudio:
		return r.config.AudioAddr
	case StreamSSL:
		return r.config.SSLAddr
	case StreamSST:
		return r.config.SSTAddr
	}
	return ""
}

// Ready is closed once every configured listener is bound.
func (r *Receiver) Ready() <-chan struct{} {
	return r.ready
}

// Run listens on every configured address until ctx is cancelled or a stream
// fails fatally. A configuration mismatch on the audio stream is fatal.
func (r *Receiver) Run(ctx context.Context) error {
	var lc net.ListenConfig
	listeners := make(map[Stream]net.Listener)

	for _, s := range []Stream{StreamAudio, StreamSSL, StreamSST} {
		addr := r.addr(s)
		if addr == "" {
			continue
		}
		ln, err := lc.Listen(ctx, "tcp", addr)
		if err != nil {
			for _, l := range listeners {
				l.Close()
			}
			return fmt.Errorf("listen %s on %s: %w", s, addr, err)
		}
		listeners[s] = ln
		r.update(s, func(st *StreamStatus) {
			st.Addr = ln.Addr().String()
			st.Listening = true
		})
		log.Printf("Listening for %s stream on %s", s, ln.Addr())
	}
	r.readyOnce.Do(func() { close(r.ready) })

	g, gctx := errgroup.WithContext(ctx)
	for s, ln := range listeners {
		g.Go(func() error {
			<-gctx.Done()
			ln.Close()
			return nil
		})
		g.Go(func() error {
			return r.serve(gctx, s, ln)
		})
	}

	err := g.Wait()
	for s := range listeners {
		r.update(s, func(st *StreamStatus) { st.Listening = false })
	}
	return err
}

// serve accepts connections one after another; the engine keeps a single
// socket per stream.
func (r *Receiver) serve(ctx context.Context, s Stream, ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accept %s: %w", s, err)
		}

		err = r.handle(ctx, s, conn)
		if err != nil {
			return err
		}
	}
}

func (r *Receiver) handle(ctx context.Context, s Stream, conn net.Conn) error {
	remote := conn.RemoteAddr().String()
	log.Printf("Engine connected to %s stream from %s", s, remote)

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()
	defer conn.Close()

	r.update(s, func(st *StreamStatus) {
		st.Connected = true
		st.Remote = remote
		st.Connections++
		st.ConnectedAt = time.Now()
	})
	if s == StreamAudio {
		r.metrics.AudioConnections.Add(1)
		r.metrics.AudioConnected.Store(1)
	}

	in := &idleReader{conn: conn, timeout: r.config.IdleTimeout}
	if s == StreamAudio {
		in.count = &r.metrics.BytesReceived
	}

	var err error
	switch s {
	case StreamAudio:
		err = r.readAudio(in)
	case StreamSSL:
		err = r.readSSL(in)
	case StreamSST:
		err = r.readSST(in)
	}

	if ctx.Err() != nil {
		err = nil
	}
	if isTimeout(err) {
		log.Printf("%s stream from %s idle for %v, closing", s, remote, r.config.IdleTimeout)
		r.metrics.IdleDisconnects.Add(1)
		err = nil
	}

	r.update(s, func(st *StreamStatus) {
		st.Connected = false
		if err != nil {
			st.LastError = err.Error()
		}
	})
	if s == StreamAudio {
		r.metrics.AudioConnected.Store(0)
	}
	log.Printf("Engine disconnected from %s stream (%s)", s, remote)

	if errors.Is(err, odas.ErrConfigurationMismatch) {
		r.metrics.ConfigMismatches.Add(1)
		return fmt.Errorf("%s stream from %s: %w", s, remote, err)
	}
	if err != nil {
		log.Printf("%s stream error: %v", s, err)
	}
	return nil
}

// readAudio decodes frames until the connection ends. Each connection gets a
// fresh decoder so a truncated frame never leaks into the next stream.
func (r *Receiver) readAudio(in io.Reader) error {
	reader, err := odas.NewReader(in, r.config.Params, r.config.DecoderOptions...)
	if err != nil {
		return err
	}
	defer func() {
		r.mu.Lock()
		r.decoder = addStats(r.decoder, reader.Decoder().Stats())
		r.mu.Unlock()
	}()

	for {
		frame, err := reader.ReadFrame()
		switch {
		case err == nil:
			r.metrics.FramesDecoded.Add(1)
			r.sink.HandleFrame(frame)
		case errors.Is(err, io.EOF):
			return nil
		case errors.Is(err, odas.ErrMalformed):
			r.metrics.FramesMalformed.Add(1)
			log.Printf("Skipping frame: %v", err)
		case errors.Is(err, odas.ErrTruncated):
			r.metrics.StreamsTruncated.Add(1)
			log.Printf("Audio stream ended mid-frame: %v", err)
			return nil
		default:
			return err
		}
	}
}

func (r *Receiver) readSSL(in io.Reader) error {
	reader := tracking.NewSSLReader(in, r.config.Params)
	defer func() { r.metrics.TrackingSkipped.Add(reader.Skipped()) }()

	for {
		msg, err := reader.Read()
		switch {
		case err == nil:
			r.metrics.SSLMessages.Add(1)
			r.sink.HandleSSL(msg)
		case errors.Is(err, tracking.ErrInvalidMessage):
			r.metrics.TrackingErrors.Add(1)
			log.Printf("Skipping SSL message: %v", err)
		case errors.Is(err, io.EOF):
			return nil
		default:
			return err
		}
	}
}

func (r *Receiver) readSST(in io.Reader) error {
	reader := tracking.NewSSTReader(in, r.config.Params)
	defer func() { r.metrics.TrackingSkipped.Add(reader.Skipped()) }()

	for {
		msg, err := reader.Read()
		switch {
		case err == nil:
			r.metrics.SSTMessages.Add(1)
			r.sink.HandleSST(msg)
		case errors.Is(err, tracking.ErrInvalidMessage):
			r.metrics.TrackingErrors.Add(1)
			log.Printf("Skipping SST message: %v", err)
		case errors.Is(err, io.EOF):
			return nil
		default:
			return err
		}
	}
}

// idleReader pushes the read deadline forward before every read.
type idleReader struct {
	conn    net.Conn
	timeout time.Duration
	count   interface{ Add(uint64) uint64 }
}

func (r *idleReader) Read(p []byte) (int, error) {
	if r.timeout > 0 {
		r.conn.SetReadDeadline(time.Now().Add(r.timeout))
	}
	n, err := r.conn.Read(p)
	if n > 0 && r.count != nil {
		r.count.Add(uint64(n))
	}
	return n, err
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func addStats(a, b odas.DecoderStats) odas.DecoderStats {
	return odas.DecoderStats{
		Frames:    a.Frames + b.Frames,
		Malformed: a.Malformed + b.Malformed,
		Truncated: a.Truncated + b.Truncated,
		Bytes:     a.Bytes + b.Bytes,
	}
}
