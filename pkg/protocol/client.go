// ABOUTME: WebSocket client for the monitor protocol
// ABOUTME: Handles connection, handshake, and message routing
package protocol

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/lisa-project/lisa-odas/pkg/tracking"
)

// DefaultPath is where the monitor serves its WebSocket.
const DefaultPath = "/ws"

// Config holds client configuration
type Config struct {
	ServerAddr string
	Path       string // defaults to DefaultPath
	ClientID   string // generated when empty
	Name       string
	Codec      string // CodecPCM or CodecOpus
	Slots      []int
	DeviceInfo *DeviceInfo
}

// Client represents a WebSocket client. Its channels are closed when the
// connection ends.
type Client struct {
	config Config
	conn   *websocket.Conn
	mu     sync.RWMutex
	hello  ServerHello

	// Message channels
	AudioChunks chan AudioChunk
	Tags        chan StreamTags
	SSL         chan tracking.SSL
	SST         chan tracking.SST

	// State
	connected bool
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewClient creates a new WebSocket client
func NewClient(config Config) *Client {
	if config.Path == "" {
		config.Path = DefaultPath
	}
	if config.ClientID == "" {
		config.ClientID = uuid.New().String()
	}
	if config.Codec == "" {
		config.Codec = CodecPCM
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		config:      config,
		AudioChunks: make(chan AudioChunk, 256),
		Tags:        make(chan StreamTags, 16),
		SSL:         make(chan tracking.SSL, 16),
		SST:         make(chan tracking.SST, 16),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Connect establishes WebSocket connection and performs handshake
func (c *Client) Connect() error {
	u := url.URL{Scheme: "ws", Host: c.config.ServerAddr, Path: c.config.Path}
	log.Printf("Connecting to %s", u.String())

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	if err := c.handshake(); err != nil {
		c.Close()
		return fmt.Errorf("handshake failed: %w", err)
	}

	go c.readMessages()

	return nil
}

// handshake sends client/hello and waits for server/hello
func (c *Client) handshake() error {
	hello := ClientHello{
		ClientID:   c.config.ClientID,
		Name:       c.config.Name,
		Version:    Version,
		Codec:      c.config.Codec,
		Slots:      c.config.Slots,
		DeviceInfo: c.config.DeviceInfo,
	}

	if err := c.sendJSON(Message{Type: TypeClientHello, Payload: hello}); err != nil {
		return fmt.Errorf("failed to send client/hello: %w", err)
	}

	c.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("failed to read server/hello: %w", err)
	}
	c.conn.SetReadDeadline(time.Time{})

	env, err := ParseEnvelope(data)
	if err != nil {
		return err
	}

	switch env.Type {
	case TypeServerHello:
	case TypeServerError:
		var serr ServerError
		if err := env.Decode(&serr); err != nil {
			return err
		}
		return fmt.Errorf("server refused: %s: %s", serr.Error, serr.Message)
	default:
		return fmt.Errorf("expected server/hello, got %s", env.Type)
	}

	var sh ServerHello
	if err := env.Decode(&sh); err != nil {
		return err
	}

	c.mu.Lock()
	c.hello = sh
	c.mu.Unlock()

	log.Printf("Handshake complete with %s (%s, codec %s)", sh.Name, sh.Stream.Stamp, sh.Codec)
	return nil
}

// ServerHello returns what the server announced during the handshake.
func (c *Client) ServerHello() ServerHello {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hello
}

// Subscribe changes which slots the server sends audio for.
func (c *Client) Subscribe(slots []int) error {
	return c.sendJSON(Message{Type: TypeClientSubscribe, Payload: ClientSubscribe{Slots: slots}})
}

// sendJSON sends a JSON message
func (c *Client) sendJSON(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return fmt.Errorf("not connected")
	}

	return c.conn.WriteJSON(msg)
}

// readMessages reads and routes incoming messages
func (c *Client) readMessages() {
	defer func() {
		c.Close()
		close(c.AudioChunks)
		close(c.Tags)
		close(c.SSL)
		close(c.SST)
	}()

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.ctx.Done():
			default:
				log.Printf("Read error: %v", err)
			}
			return
		}

		switch messageType {
		case websocket.BinaryMessage:
			c.handleBinaryMessage(data)
		case websocket.TextMessage:
			c.handleJSONMessage(data)
		default:
			log.Printf("Unknown WebSocket message type: %d", messageType)
		}
	}
}

// handleBinaryMessage handles audio chunks
func (c *Client) handleBinaryMessage(data []byte) {
	chunk, err := ParseAudioChunk(data)
	if err != nil {
		log.Printf("Dropping binary message: %v", err)
		return
	}

	select {
	case c.AudioChunks <- chunk:
	case <-c.ctx.Done():
	}
}

// handleJSONMessage routes JSON messages
func (c *Client) handleJSONMessage(data []byte) {
	env, err := ParseEnvelope(data)
	if err != nil {
		log.Printf("Failed to parse JSON message: %v", err)
		return
	}

	switch env.Type {
	case TypeStreamTags:
		var tags StreamTags
		if err := env.Decode(&tags); err != nil {
			log.Printf("Failed to parse stream/tags: %v", err)
			return
		}
		deliver(c.Tags, tags, env.Type)

	case TypeTrackingSSL:
		var msg tracking.SSL
		if err := env.Decode(&msg); err != nil {
			log.Printf("Failed to parse tracking/ssl: %v", err)
			return
		}
		deliver(c.SSL, msg, env.Type)

	case TypeTrackingSST:
		var msg tracking.SST
		if err := env.Decode(&msg); err != nil {
			log.Printf("Failed to parse tracking/sst: %v", err)
			return
		}
		deliver(c.SST, msg, env.Type)

	case TypeServerError:
		var serr ServerError
		if err := env.Decode(&serr); err == nil {
			log.Printf("Server error: %s: %s", serr.Error, serr.Message)
		}

	default:
		log.Printf("Unknown message type: %s", env.Type)
	}
}

// deliver drops tracking updates nobody is reading; newer ones follow anyway.
func deliver[T any](ch chan T, v T, kind string) {
	select {
	case ch <- v:
	default:
		log.Printf("%s channel full, dropping message", kind)
	}
}

// Close closes the connection
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		c.connected = false
		c.cancel()
		c.conn.Close()
		log.Printf("Connection closed")
	}
}

// IsConnected returns connection status
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}
