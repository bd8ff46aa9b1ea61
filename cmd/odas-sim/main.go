// ABOUTME: Entry point for odas-sim, a stand-in for the ODAS engine
// ABOUTME: Streams paced audio frames and synthetic SSL/SST JSON to a receiver
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lisa-project/lisa-odas/internal/config"
	"github.com/lisa-project/lisa-odas/pkg/odas"
)

var (
	host       = flag.String("host", "localhost", "Receiver host")
	audioPort  = flag.Int("audio-port", 10000, "Receiver audio port (0 disables)")
	sslPort    = flag.Int("ssl-port", 9001, "Receiver SSL port (0 disables)")
	sstPort    = flag.Int("sst-port", 9000, "Receiver SST port (0 disables)")
	configPath = flag.String("config", "", "Receiver YAML configuration to take stream parameters from")
	audioFile  = flag.String("audio", "", "Audio file for slot 0 (MP3 or FLAC). Other slots play tones")
	active     = flag.Int("sources", -1, "Number of active slots (default: all)")
	handshake  = flag.Bool("handshake", false, "Send the parameter handshake before the first frame")
	rotate     = flag.Float64("rotate", 30, "Rotation speed of synthetic sources in degrees per second")
	duration   = flag.Duration("duration", 0, "Stop after this long (0 runs until interrupted)")
)

func main() {
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			log.Fatalf("Configuration error: %v", err)
		}
	}
	p := cfg.Stream.Params()
	if err := p.Validate(); err != nil {
		log.Fatalf("Invalid stream parameters: %v", err)
	}
	sendHandshake := *handshake || cfg.Stream.Handshake

	n := *active
	if n < 0 || n > p.MaxSources {
		n = p.MaxSources
	}
	sources, err := newSlotSources(p, n, *audioFile)
	if err != nil {
		log.Fatalf("Failed to open sources: %v", err)
	}
	defer closeSources(sources)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if *duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *duration)
		defer cancel()
	}

	log.Printf("Simulating %s with %d active sources", p.Stamp(), len(sources))

	g, gctx := errgroup.WithContext(ctx)
	if *audioPort != 0 {
		g.Go(func() error {
			return streamAudio(gctx, addr(*audioPort), p, sources, sendHandshake)
		})
	}
	if *sslPort != 0 {
		g.Go(func() error {
			return streamTracking(gctx, "ssl", addr(*sslPort), p, sources, true)
		})
	}
	if *sstPort != 0 {
		g.Go(func() error {
			return streamTracking(gctx, "sst", addr(*sstPort), p, sources, false)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		log.Fatalf("Simulator failed: %v", err)
	}
	log.Printf("Simulator stopped")
}

func addr(port int) string {
	return net.JoinHostPort(*host, strconv.Itoa(port))
}

// streamAudio writes one frame per hop period, reconnecting when the
// receiver drops the connection. Frame indices restart with each connection.
func streamAudio(ctx context.Context, address string, p odas.Params, sources []*slotSource, sendHandshake bool) error {
	for {
		conn, err := dial(ctx, "audio", address)
		if err != nil {
			return err
		}
		err = writeFrames(ctx, conn, p, sources, sendHandshake)
		conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Printf("Audio stream ended: %v", err)
	}
}

func writeFrames(ctx context.Context, w io.Writer, p odas.Params, sources []*slotSource, sendHandshake bool) error {
	enc, err := odas.NewEncoder(w, p)
	if err != nil {
		return err
	}
	if sendHandshake {
		if err := enc.WriteHandshake(); err != nil {
			return err
		}
	}

	ticker := time.NewTicker(p.FramePeriod())
	defer ticker.Stop()

	frame := odas.NewFrame(p, 0)
	for index := uint64(0); ; index++ {
		frame.Index = index
		frame.Timestamp = p.FrameTimestamp(index)
		if err := fillFrame(p, &frame, sources); err != nil {
			return err
		}
		if err := enc.WriteFrame(frame); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// streamTracking writes one SSL or SST object per hop period.
func streamTracking(ctx context.Context, stream, address string, p odas.Params, sources []*slotSource, ssl bool) error {
	for {
		conn, err := dial(ctx, stream, address)
		if err != nil {
			return err
		}
		err = writeTracking(ctx, conn, p, sources, ssl, *rotate)
		conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Printf("%s stream ended: %v", stream, err)
	}
}

func writeTracking(ctx context.Context, w io.Writer, p odas.Params, sources []*slotSource, ssl bool, degPerSec float64) error {
	ticker := time.NewTicker(p.FramePeriod())
	defer ticker.Stop()

	for index := uint64(0); ; index++ {
		sslMsg, sstMsg := trackingAt(p, index, sources, degPerSec)
		var msg interface{} = sstMsg
		if ssl {
			msg = sslMsg
		}
		data, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("marshal tracking: %w", err)
		}
		if _, err := w.Write(append(data, '\n')); err != nil {
			return fmt.Errorf("write tracking: %w", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
