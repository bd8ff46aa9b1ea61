// ABOUTME: Monitor server for lisa-odas
// ABOUTME: Manages WebSocket clients and serves metrics and health endpoints
package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/lisa-project/lisa-odas/internal/discovery"
	"github.com/lisa-project/lisa-odas/internal/health"
	"github.com/lisa-project/lisa-odas/internal/hub"
	"github.com/lisa-project/lisa-odas/internal/metrics"
	"github.com/lisa-project/lisa-odas/internal/version"
	"github.com/lisa-project/lisa-odas/pkg/odas"
	"github.com/lisa-project/lisa-odas/pkg/protocol"
	"github.com/lisa-project/lisa-odas/pkg/tracking"
)

// Config holds server configuration
type Config struct {
	Addr       string
	Name       string
	EnableMDNS bool
	EnableOpus bool
	Params     odas.Params
	Debug      bool
}

// Server streams decoded ODAS output to monitor clients
type Server struct {
	config   Config
	serverID string

	upgrader websocket.Upgrader
	mux      *http.ServeMux

	hub     *hub.Hub
	metrics *metrics.Metrics

	// Client management
	clients   map[string]*Client
	clientsMu sync.RWMutex

	// Latest state, replayed to new clients
	stateMu sync.RWMutex
	tags    protocol.StreamTags
	lastSST *tracking.SST

	mdnsManager *discovery.Manager
}

// New creates a server fed by h. The readiness checks back /readyz.
func New(config Config, h *hub.Hub, m *metrics.Metrics, checks ...health.Checker) (*Server, error) {
	if err := config.Params.Validate(); err != nil {
		return nil, fmt.Errorf("monitor: %w", err)
	}
	if m == nil {
		m = metrics.New()
	}

	s := &Server{
		config:   config,
		serverID: uuid.New().String(),
		mux:      http.NewServeMux(),
		hub:      h,
		metrics:  m,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Monitors run on trusted local networks
				return true
			},
		},
		clients: make(map[string]*Client),
		tags:    protocol.StreamTags{Tags: make([]string, config.Params.MaxSources)},
	}

	s.mux.HandleFunc(protocol.DefaultPath, s.handleWebSocket)
	s.mux.Handle("GET /metrics", m.Handler())
	health.New(checks...).Register(s.mux)

	return s, nil
}

// Handler returns the HTTP routes of the server
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ServerID is the id announced in server/hello
func (s *Server) ServerID() string {
	return s.serverID
}

// ClientCount returns the number of connected clients
func (s *Server) ClientCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}

// Run serves HTTP and forwards hub events until ctx is cancelled
func (s *Server) Run(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("monitor listen on %s: %w", s.config.Addr, err)
	}
	log.Printf("Monitor server %s (ID: %s) listening on %s", s.config.Name, s.serverID, ln.Addr())

	if s.config.EnableMDNS {
		s.startMDNS(ln.Addr())
	}

	httpServer := &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	forwardDone := make(chan struct{})
	go func() {
		defer close(forwardDone)
		s.Forward(ctx)
	}()

	errChan := make(chan error, 1)
	go func() {
		if err := httpServer.Serve(ln); err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	var serverErr error
	select {
	case <-ctx.Done():
		log.Printf("Monitor server shutting down...")
	case err := <-errChan:
		serverErr = fmt.Errorf("monitor HTTP server failed: %w", err)
	}

	if s.mdnsManager != nil {
		s.mdnsManager.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}
	s.closeClients()
	if serverErr == nil {
		<-forwardDone
	}

	return serverErr
}

func (s *Server) startMDNS(addr net.Addr) {
	_, portStr, err := net.SplitHostPort(addr.String())
	if err != nil {
		log.Printf("Failed to start mDNS advertisement: %v", err)
		return
	}
	port, _ := strconv.Atoi(portStr)

	s.mdnsManager = discovery.NewManager(discovery.Config{
		ServiceName: s.config.Name,
		Port:        port,
		Path:        protocol.DefaultPath,
		Stamp:       s.config.Params.Stamp(),
	})
	if err := s.mdnsManager.Advertise(); err != nil {
		log.Printf("Failed to start mDNS advertisement: %v", err)
		s.mdnsManager = nil
	}
}

// closeClients drops every WebSocket; their handlers clean up.
func (s *Server) closeClients() {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	for _, c := range s.clients {
		c.Conn.Close()
	}
}

// handleWebSocket handles WebSocket connections
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	log.Printf("New WebSocket connection from %s", r.RemoteAddr)
	s.handleConnection(conn)
}

// handleConnection manages a client connection
func (s *Server) handleConnection(conn *websocket.Conn) {
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		log.Printf("Error reading hello: %v", err)
		return
	}
	conn.SetReadDeadline(time.Time{})

	env, err := protocol.ParseEnvelope(data)
	if err != nil {
		log.Printf("Error unmarshaling message: %v", err)
		return
	}
	if env.Type != protocol.TypeClientHello {
		log.Printf("Expected client/hello, got %s", env.Type)
		return
	}

	var hello protocol.ClientHello
	if err := env.Decode(&hello); err != nil {
		log.Printf("Error unmarshaling client hello: %v", err)
		return
	}
	if hello.ClientID == "" || hello.Name == "" {
		writeError(conn, "invalid_hello", "client_id and name are required")
		return
	}

	codec := s.negotiateCodec(hello.Codec)
	client, err := newClient(hello.ClientID, hello.Name, conn, codec, s.config.Params)
	if err != nil {
		log.Printf("Cannot serve %s: %v", hello.Name, err)
		writeError(conn, "codec_unavailable", err.Error())
		return
	}
	client.setSlots(hello.Slots)

	log.Printf("Client hello: %s (ID: %s, codec: %s, slots: %v)", hello.Name, hello.ClientID, codec, client.Slots())

	s.clientsMu.Lock()
	if existing, exists := s.clients[hello.ClientID]; exists {
		s.clientsMu.Unlock()
		log.Printf("Client ID %s already connected (name: %s), rejecting duplicate", hello.ClientID, existing.Name)
		writeError(conn, "duplicate_client_id", "Client ID already connected")
		return
	}
	s.clients[client.ID] = client
	s.clientsMu.Unlock()

	s.metrics.TotalClients.Add(1)
	s.metrics.ActiveClients.Add(1)

	defer func() {
		s.clientsMu.Lock()
		delete(s.clients, client.ID)
		s.clientsMu.Unlock()
		close(client.sendChan)
		s.metrics.ActiveClients.Add(^uint64(0))
		log.Printf("Client disconnected: %s", client.Name)
	}()

	serverHello := protocol.ServerHello{
		ServerID: s.serverID,
		Name:     s.config.Name,
		Version:  protocol.Version,
		Software: version.Product + "/" + version.Version,
		Stream:   streamInfo(s.config.Params),
		Codec:    codec,
	}
	s.sendMessage(client, protocol.TypeServerHello, serverHello)

	s.stateMu.RLock()
	s.sendMessage(client, protocol.TypeStreamTags, s.tags)
	if s.lastSST != nil {
		s.sendMessage(client, protocol.TypeTrackingSST, *s.lastSST)
	}
	s.stateMu.RUnlock()

	go s.clientWriter(client)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		s.handleClientMessage(client, data)
	}
}

// negotiateCodec falls back to PCM when Opus is off or cannot run at the stream rate.
func (s *Server) negotiateCodec(requested string) string {
	if requested == protocol.CodecOpus && s.config.EnableOpus && opusRate(s.config.Params.SampleRate) {
		return protocol.CodecOpus
	}
	return protocol.CodecPCM
}

func opusRate(rate int) bool {
	switch rate {
	case 8000, 12000, 16000, 24000, 48000:
		return true
	}
	return false
}

func streamInfo(p odas.Params) protocol.StreamInfo {
	return protocol.StreamInfo{
		MaxSources: p.MaxSources,
		TagLen:     p.TagLen,
		SampleRate: p.SampleRate,
		HopSize:    p.HopSize,
		BitDepth:   p.BitDepth,
		Layout:     p.Layout.String(),
		ByteOrder:  p.ByteOrder.String(),
		Stamp:      p.Stamp(),
	}
}

// clientWriter sends messages to the client
func (s *Server) clientWriter(client *Client) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	const writeDeadline = 10 * time.Second

	for {
		select {
		case msg, ok := <-client.sendChan:
			if !ok {
				return
			}

			switch v := msg.(type) {
			case []byte:
				client.Conn.SetWriteDeadline(time.Now().Add(writeDeadline))
				if err := client.Conn.WriteMessage(websocket.BinaryMessage, v); err != nil {
					log.Printf("Error writing binary message: %v", err)
					client.Conn.Close()
					return
				}
			default:
				data, err := json.Marshal(v)
				if err != nil {
					log.Printf("Error marshaling message: %v", err)
					continue
				}
				client.Conn.SetWriteDeadline(time.Now().Add(writeDeadline))
				if err := client.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
					log.Printf("Error writing text message: %v", err)
					client.Conn.Close()
					return
				}
			}

		case <-ticker.C:
			if err := client.Conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(10*time.Second)); err != nil {
				client.Conn.Close()
				return
			}
		}
	}
}

// handleClientMessage processes messages from clients
func (s *Server) handleClientMessage(client *Client, data []byte) {
	env, err := protocol.ParseEnvelope(data)
	if err != nil {
		log.Printf("Error unmarshaling message: %v", err)
		return
	}

	switch env.Type {
	case protocol.TypeClientSubscribe:
		var sub protocol.ClientSubscribe
		if err := env.Decode(&sub); err != nil {
			log.Printf("Error unmarshaling subscribe: %v", err)
			return
		}
		client.setSlots(sub.Slots)
		log.Printf("Client %s now listening to slots %v", client.Name, client.Slots())
	default:
		log.Printf("Unknown message type: %s", env.Type)
	}
}

// sendMessage queues a JSON message, dropping it when the client is too slow
func (s *Server) sendMessage(client *Client, msgType string, payload interface{}) bool {
	select {
	case client.sendChan <- protocol.Message{Type: msgType, Payload: payload}:
		return true
	default:
		if s.config.Debug {
			log.Printf("[DEBUG] %s: send buffer full, dropping %s", client.Name, msgType)
		}
		return false
	}
}

// sendBinary queues a binary message, dropping it when the client is too slow
func (s *Server) sendBinary(client *Client, data []byte) bool {
	select {
	case client.sendChan <- data:
		s.metrics.ChunksSent.Add(1)
		return true
	default:
		s.metrics.ChunksDropped.Add(1)
		return false
	}
}

func writeError(conn *websocket.Conn, code, message string) {
	msg := protocol.Message{
		Type:    protocol.TypeServerError,
		Payload: protocol.ServerError{Error: code, Message: message},
	}
	if data, err := json.Marshal(msg); err == nil {
		conn.WriteMessage(websocket.TextMessage, data)
	}
}
