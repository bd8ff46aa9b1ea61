// ABOUTME: Receiver configuration model and defaults
// ABOUTME: Groups stream parameters, listener addresses and monitor settings
package config

import (
	"time"

	"github.com/lisa-project/lisa-odas/pkg/odas"
)

// Config is the full receiver configuration as read from YAML.
type Config struct {
	Stream   StreamConfig   `yaml:"stream"`
	Receiver ReceiverConfig `yaml:"receiver"`
	Monitor  MonitorConfig  `yaml:"monitor"`
}

// StreamConfig mirrors the parameters the ODAS engine was built with.
type StreamConfig struct {
	MaxSources              int    `yaml:"max_sources"`
	TagLen                  int    `yaml:"tag_len"`
	SampleRate              int    `yaml:"sample_rate"`
	HopSize                 int    `yaml:"hop_size"`
	BitDepth                int    `yaml:"bit_depth"`
	Layout                  string `yaml:"layout"`
	ByteOrder               string `yaml:"byte_order"`
	Handshake               bool   `yaml:"handshake"`
	TagValidation           bool   `yaml:"tag_validation"`
	MaxConsecutiveMalformed int    `yaml:"max_consecutive_malformed"`
}

// ReceiverConfig holds the TCP listeners the engine connects to. An empty
// address disables that stream.
type ReceiverConfig struct {
	AudioAddr   string        `yaml:"audio_addr"`
	SSLAddr     string        `yaml:"ssl_addr"`
	SSTAddr     string        `yaml:"sst_addr"`
	IdleTimeout time.Duration `yaml:"idle_timeout"`
}

// MonitorConfig holds the HTTP/WebSocket monitor settings.
type MonitorConfig struct {
	Addr string `yaml:"addr"`
	Name string `yaml:"name"`
	MDNS bool   `yaml:"mdns"`
	Opus bool   `yaml:"opus"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Stream: StreamConfig{
			MaxSources:              odas.DefaultMaxSources,
			TagLen:                  odas.DefaultTagLen,
			SampleRate:              odas.DefaultSampleRate,
			HopSize:                 odas.DefaultHopSize,
			BitDepth:                odas.DefaultBitDepth,
			Layout:                  "slot",
			ByteOrder:               "le",
			TagValidation:           true,
			MaxConsecutiveMalformed: 8,
		},
		Receiver: ReceiverConfig{
			AudioAddr:   ":10000",
			SSLAddr:     ":9001",
			SSTAddr:     ":9000",
			IdleTimeout: 5 * time.Second,
		},
		Monitor: MonitorConfig{
			Addr: ":8927",
			Name: "lisa-odas",
			MDNS: true,
			Opus: true,
		},
	}
}

// Params converts the stream section into decoder parameters. Call after
// Validate; unknown layout or byte order strings map to invalid values.
func (s StreamConfig) Params() odas.Params {
	layout, err := odas.ParseLayout(s.Layout)
	if err != nil {
		layout = odas.Layout(0xff)
	}
	order, err := odas.ParseByteOrder(s.ByteOrder)
	if err != nil {
		order = odas.ByteOrder(0xff)
	}
	return odas.Params{
		MaxSources: s.MaxSources,
		TagLen:     s.TagLen,
		SampleRate: s.SampleRate,
		HopSize:    s.HopSize,
		BitDepth:   s.BitDepth,
		Layout:     layout,
		ByteOrder:  order,
	}
}

// DecoderOptions builds the decoder options the stream section asks for.
func (s StreamConfig) DecoderOptions() []odas.DecoderOption {
	opts := []odas.DecoderOption{
		odas.WithTagValidation(s.TagValidation),
		odas.WithMaxConsecutiveMalformed(s.MaxConsecutiveMalformed),
	}
	if s.Handshake {
		opts = append(opts, odas.WithHandshake())
	}
	return opts
}
