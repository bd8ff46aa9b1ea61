// ABOUTME: Entry point for the LISA ODAS receiver
// ABOUTME: Parses CLI flags, loads configuration and runs receiver, monitor and TUI
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/lisa-project/lisa-odas/internal/config"
	"github.com/lisa-project/lisa-odas/internal/health"
	"github.com/lisa-project/lisa-odas/internal/hub"
	"github.com/lisa-project/lisa-odas/internal/metrics"
	"github.com/lisa-project/lisa-odas/internal/monitor"
	"github.com/lisa-project/lisa-odas/internal/receiver"
	"github.com/lisa-project/lisa-odas/internal/ui"
	"github.com/lisa-project/lisa-odas/internal/version"
	"github.com/lisa-project/lisa-odas/pkg/odas"
)

var (
	configPath  = flag.String("config", "", "YAML configuration file (default: built-in defaults)")
	monitorAddr = flag.String("monitor", "", "Override monitor listen address")
	name        = flag.String("name", "", "Override monitor name (default from config)")
	logFile     = flag.String("log-file", "lisa-odas.log", "Log file path")
	noTUI       = flag.Bool("no-tui", false, "Disable TUI, use streaming logs instead")
	noMDNS      = flag.Bool("no-mdns", false, "Disable mDNS advertisement")
	debug       = flag.Bool("debug", false, "Enable debug logging")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String(odas.ProtocolVersion))
		return
	}

	useTUI := !*noTUI

	f, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer func() { _ = f.Close() }()

	if useTUI {
		// TUI owns the terminal
		log.SetOutput(f)
	} else {
		log.SetOutput(io.MultiWriter(os.Stdout, f))
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}
	if *monitorAddr != "" {
		cfg.Monitor.Addr = *monitorAddr
	}
	if *name != "" {
		cfg.Monitor.Name = *name
	}
	if *noMDNS {
		cfg.Monitor.MDNS = false
	}

	params := cfg.Stream.Params()
	log.Printf("Starting %s", version.String(odas.ProtocolVersion))
	log.Printf("Stream: %s (frame %d bytes every %v)", params.Stamp(), params.FrameSize(), params.FramePeriod())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, useTUI); err != nil {
		log.Fatalf("Receiver failed: %v", err)
	}
	log.Printf("Receiver stopped")
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		cfg := config.Default()
		return cfg, config.Validate(cfg)
	}
	return config.Load(path)
}

// run wires the receiver into the hub, the monitor and the dashboard, and
// blocks until ctx is cancelled, the user quits or a component fails.
func run(ctx context.Context, cfg *config.Config, useTUI bool) error {
	params := cfg.Stream.Params()
	h := hub.New()
	m := metrics.New()

	recv, err := receiver.New(receiver.Config{
		AudioAddr:      cfg.Receiver.AudioAddr,
		SSLAddr:        cfg.Receiver.SSLAddr,
		SSTAddr:        cfg.Receiver.SSTAddr,
		Params:         params,
		DecoderOptions: cfg.Stream.DecoderOptions(),
		IdleTimeout:    cfg.Receiver.IdleTimeout,
	}, h, m)
	if err != nil {
		return err
	}

	audioReady := health.Checker{
		Name: "audio",
		Check: func(context.Context) error {
			if cfg.Receiver.AudioAddr == "" || recv.AudioConnected() {
				return nil
			}
			return errors.New("no engine connected")
		},
	}

	mon, err := monitor.New(monitor.Config{
		Addr:       cfg.Monitor.Addr,
		Name:       cfg.Monitor.Name,
		EnableMDNS: cfg.Monitor.MDNS,
		EnableOpus: cfg.Monitor.Opus,
		Params:     params,
		Debug:      *debug,
	}, h, m, audioReady)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return recv.Run(gctx)
	})
	g.Go(func() error {
		return mon.Run(gctx)
	})

	if useTUI {
		dash := ui.NewDashboard(cfg.Monitor.Name, params)
		g.Go(func() error {
			err := dash.Run(gctx, h, func() ui.StatusMsg {
				return ui.StatusMsg{
					Receiver:  recv.Status(),
					Clients:   mon.ClientCount(),
					Published: h.Published(),
					Dropped:   h.Dropped(),
				}
			})
			// quitting the dashboard stops everything else
			cancel()
			return err
		})
	}

	return g.Wait()
}
