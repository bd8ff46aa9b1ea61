// ABOUTME: Monitor protocol message type definitions
// ABOUTME: JSON control messages exchanged over the monitor WebSocket
package protocol

import (
	"encoding/json"
	"fmt"
)

// Version is the monitor protocol version announced in both hellos.
const Version = 1

// Message types
const (
	TypeClientHello     = "client/hello"
	TypeClientSubscribe = "client/subscribe"
	TypeServerHello     = "server/hello"
	TypeServerError     = "server/error"
	TypeStreamTags      = "stream/tags"
	TypeTrackingSSL     = "tracking/ssl"
	TypeTrackingSST     = "tracking/sst"
)

// Codecs a client may ask for
const (
	CodecPCM  = "pcm"
	CodecOpus = "opus"
)

// Message is the top-level wrapper for all protocol messages
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Envelope is a received message whose payload is decoded once the type is known.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// ParseEnvelope reads the type of a text message.
func ParseEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("invalid message: %w", err)
	}
	if env.Type == "" {
		return Envelope{}, fmt.Errorf("invalid message: missing type")
	}
	return env, nil
}

// Decode unmarshals the payload into v.
func (e Envelope) Decode(v interface{}) error {
	if len(e.Payload) == 0 {
		return fmt.Errorf("%s: empty payload", e.Type)
	}
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("%s: %w", e.Type, err)
	}
	return nil
}

// ClientHello is sent by clients to initiate the handshake
type ClientHello struct {
	ClientID   string      `json:"client_id"`
	Name       string      `json:"name"`
	Version    int         `json:"version"`
	Codec      string      `json:"codec"`
	Slots      []int       `json:"slots"` // empty = no audio
	DeviceInfo *DeviceInfo `json:"device_info,omitempty"`
}

// DeviceInfo contains device identification
type DeviceInfo struct {
	ProductName     string `json:"product_name"`
	Manufacturer    string `json:"manufacturer"`
	SoftwareVersion string `json:"software_version"`
}

// ClientSubscribe replaces the set of slots a client receives audio for.
type ClientSubscribe struct {
	Slots []int `json:"slots"`
}

// StreamInfo describes the upstream frame layout.
type StreamInfo struct {
	MaxSources int    `json:"max_sources"`
	TagLen     int    `json:"tag_len"`
	SampleRate int    `json:"sample_rate"`
	HopSize    int    `json:"hop_size"`
	BitDepth   int    `json:"bit_depth"`
	Layout     string `json:"layout"`
	ByteOrder  string `json:"byte_order"`
	Stamp      string `json:"stamp"`
}

// ServerHello is the server's response to client/hello
type ServerHello struct {
	ServerID string     `json:"server_id"`
	Name     string     `json:"name"`
	Version  int        `json:"version"`
	Software string     `json:"software"`
	Stream   StreamInfo `json:"stream"`
	Codec    string     `json:"codec"` // codec actually used for audio chunks
}

// ServerError is sent before the server drops a client
type ServerError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// StreamTags is sent whenever the tag of any slot changes
type StreamTags struct {
	Frame     uint64   `json:"frame"`
	Timestamp int64    `json:"timestamp"` // µs since stream start
	Tags      []string `json:"tags"`
}
