// ABOUTME: Entry point for lisa-listen, a monitor client that plays one source
// ABOUTME: Discovers a receiver over mDNS, subscribes to a slot and plays it via oto
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lisa-project/lisa-odas/internal/discovery"
	"github.com/lisa-project/lisa-odas/internal/version"
	"github.com/lisa-project/lisa-odas/pkg/audio"
	"github.com/lisa-project/lisa-odas/pkg/audio/decode"
	"github.com/lisa-project/lisa-odas/pkg/audio/output"
	"github.com/lisa-project/lisa-odas/pkg/protocol"
)

var (
	serverAddr      = flag.String("server", "", "Manual monitor address host:port (skip mDNS)")
	slot            = flag.Int("slot", 0, "Source slot to play")
	codec           = flag.String("codec", protocol.CodecOpus, "Requested codec (pcm or opus)")
	name            = flag.String("name", "", "Client friendly name (default: hostname-lisa-listen)")
	volume          = flag.Int("volume", 100, "Playback volume 0-100")
	discoverTimeout = flag.Duration("discover-timeout", 10*time.Second, "How long to browse for a receiver")
	logFile         = flag.String("log-file", "", "Also log to this file")
)

func main() {
	flag.Parse()

	if *logFile != "" {
		f, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			log.Fatalf("error opening log file: %v", err)
		}
		defer func() { _ = f.Close() }()
		log.SetOutput(io.MultiWriter(os.Stdout, f))
	}

	clientName := *name
	if clientName == "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		clientName = fmt.Sprintf("%s-lisa-listen", hostname)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr, path, err := findServer(ctx, clientName)
	if err != nil {
		log.Fatalf("Discovery failed: %v", err)
	}

	client := protocol.NewClient(protocol.Config{
		ServerAddr: addr,
		Path:       path,
		Name:       clientName,
		Codec:      *codec,
		Slots:      []int{*slot},
		DeviceInfo: &protocol.DeviceInfo{
			ProductName:     version.Product,
			Manufacturer:    version.Manufacturer,
			SoftwareVersion: version.Version,
		},
	})
	if err := client.Connect(); err != nil {
		log.Fatalf("Connection failed: %v", err)
	}
	defer client.Close()

	hello := client.ServerHello()
	log.Printf("Connected to %s (%s), stream %s", hello.Name, hello.Software, hello.Stream.Stamp)
	if hello.Codec != *codec {
		log.Printf("Server chose codec %s instead of %s", hello.Codec, *codec)
	}

	if err := play(ctx, client, hello); err != nil {
		log.Fatalf("Playback failed: %v", err)
	}
	log.Printf("Listener stopped")
}

// findServer returns the monitor address and WebSocket path, browsing mDNS
// unless -server was given.
func findServer(ctx context.Context, clientName string) (string, string, error) {
	if *serverAddr != "" {
		return *serverAddr, protocol.DefaultPath, nil
	}

	log.Printf("Starting server discovery...")
	disc := discovery.NewManager(discovery.Config{ServiceName: clientName})
	defer disc.Stop()
	if err := disc.Browse(); err != nil {
		return "", "", err
	}

	select {
	case server := <-disc.Servers():
		log.Printf("Discovered %s at %s (%s)", server.Name, server.Addr(), server.Stamp)
		return server.Addr(), server.Path, nil
	case <-time.After(*discoverTimeout):
		return "", "", fmt.Errorf("no server found after %v", *discoverTimeout)
	case <-ctx.Done():
		return "", "", ctx.Err()
	}
}

func newDecoder(hello protocol.ServerHello) (decode.Decoder, error) {
	format := audio.Format{
		Codec:      hello.Codec,
		SampleRate: hello.Stream.SampleRate,
		Channels:   1,
		BitDepth:   16,
	}
	if hello.Codec == protocol.CodecOpus {
		return decode.NewOpus(format)
	}
	return decode.NewPCM(format)
}

// play decodes chunks of the subscribed slot until ctx ends or the
// connection closes.
func play(ctx context.Context, client *protocol.Client, hello protocol.ServerHello) error {
	dec, err := newDecoder(hello)
	if err != nil {
		return err
	}
	defer dec.Close()

	out := output.NewOto()
	if err := out.Open(hello.Stream.SampleRate, 1); err != nil {
		return err
	}
	defer out.Close()
	out.SetVolume(*volume)

	tagsCh := client.Tags
	var lastTag string
	var played uint64
	for {
		select {
		case <-ctx.Done():
			return nil

		case chunk, ok := <-client.AudioChunks:
			if !ok {
				log.Printf("Connection closed after %d chunks", played)
				return nil
			}
			if chunk.Slot != *slot {
				continue
			}
			samples, err := dec.Decode(chunk.Data)
			if err != nil {
				log.Printf("Decode error at %dus: %v", chunk.Timestamp, err)
				continue
			}
			if err := out.Write(samples); err != nil {
				return err
			}
			played++

		case tags, ok := <-tagsCh:
			if !ok {
				tagsCh = nil
				continue
			}
			if *slot < len(tags.Tags) && tags.Tags[*slot] != lastTag {
				lastTag = tags.Tags[*slot]
				if lastTag == "" {
					log.Printf("Slot %d idle", *slot)
				} else {
					log.Printf("Slot %d now tracking %q", *slot, lastTag)
				}
			}
		}
	}
}
