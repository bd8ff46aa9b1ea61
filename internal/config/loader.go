// ABOUTME: YAML configuration loader with strict field checking
// ABOUTME: Validates stream parameters at load time so decoding never starts misconfigured
package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/lisa-project/lisa-odas/pkg/odas"
)

// Load reads the YAML configuration file at path and returns a validated [Config].
// Fields missing from the file keep their defaults.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r over the defaults and validates the result.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found. Stream
// parameter failures wrap odas.ErrConfigurationMismatch.
func Validate(cfg *Config) error {
	var errs []error

	if _, err := odas.ParseLayout(cfg.Stream.Layout); err != nil {
		errs = append(errs, fmt.Errorf("stream.layout: %w", err))
	}
	if _, err := odas.ParseByteOrder(cfg.Stream.ByteOrder); err != nil {
		errs = append(errs, fmt.Errorf("stream.byte_order: %w", err))
	}
	if len(errs) == 0 {
		if err := cfg.Stream.Params().Validate(); err != nil {
			errs = append(errs, fmt.Errorf("stream: %w", err))
		}
	}
	if cfg.Stream.MaxConsecutiveMalformed < 0 {
		errs = append(errs, fmt.Errorf("stream.max_consecutive_malformed %d must not be negative", cfg.Stream.MaxConsecutiveMalformed))
	}

	if cfg.Receiver.AudioAddr == "" && cfg.Receiver.SSLAddr == "" && cfg.Receiver.SSTAddr == "" {
		errs = append(errs, errors.New("receiver: at least one of audio_addr, ssl_addr, sst_addr is required"))
	}
	if cfg.Receiver.IdleTimeout < 0 {
		errs = append(errs, fmt.Errorf("receiver.idle_timeout %s must not be negative", cfg.Receiver.IdleTimeout))
	}

	if cfg.Monitor.Addr != "" && cfg.Monitor.Name == "" {
		errs = append(errs, errors.New("monitor.name is required when monitor.addr is set"))
	}

	return errors.Join(errs...)
}
