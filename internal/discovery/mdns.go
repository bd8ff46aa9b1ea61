// ABOUTME: mDNS service discovery for lisa-odas monitors
// ABOUTME: Advertises the monitor WebSocket and browses for it from listeners
package discovery

import (
	"context"
	"fmt"
	"log"
	"net"
	"strings"
	"time"

	"github.com/hashicorp/mdns"
)

// ServiceType is the DNS-SD type of a monitor endpoint.
const ServiceType = "_lisa-odas._tcp"

// Config holds discovery configuration
type Config struct {
	ServiceName string
	Port        int
	Path        string // WebSocket path, advertised as path=
	Stamp       string // stream version stamp, advertised as stamp=
	Interval    time.Duration
}

// Manager handles mDNS operations
type Manager struct {
	config  Config
	ctx     context.Context
	cancel  context.CancelFunc
	servers chan *ServerInfo
}

// ServerInfo describes a discovered monitor
type ServerInfo struct {
	Name  string
	Host  string
	Port  int
	Path  string
	Stamp string
}

// Addr returns host:port for dialing.
func (s *ServerInfo) Addr() string {
	return net.JoinHostPort(s.Host, fmt.Sprint(s.Port))
}

// NewManager creates a discovery manager
func NewManager(config Config) *Manager {
	if config.Path == "" {
		config.Path = "/ws"
	}
	if config.Interval <= 0 {
		config.Interval = 3 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Manager{
		config:  config,
		ctx:     ctx,
		cancel:  cancel,
		servers: make(chan *ServerInfo, 10),
	}
}

// TXT returns the records published with the service.
func (m *Manager) TXT() []string {
	txt := []string{"path=" + m.config.Path}
	if m.config.Stamp != "" {
		txt = append(txt, "stamp="+m.config.Stamp)
	}
	return txt
}

// Advertise publishes the monitor until Stop is called
func (m *Manager) Advertise() error {
	ips, err := getLocalIPs()
	if err != nil {
		return fmt.Errorf("failed to get local IPs: %w", err)
	}

	service, err := mdns.NewMDNSService(
		m.config.ServiceName,
		ServiceType,
		"",
		"",
		m.config.Port,
		ips,
		m.TXT(),
	)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return fmt.Errorf("failed to create mdns server: %w", err)
	}

	log.Printf("Advertising mDNS service: %s on port %d (type: %s)", m.config.ServiceName, m.config.Port, ServiceType)

	go func() {
		<-m.ctx.Done()
		server.Shutdown()
	}()

	return nil
}

// Browse searches for monitors in the background; results arrive on Servers
func (m *Manager) Browse() error {
	go m.browseLoop()
	return nil
}

// browseLoop queries repeatedly until Stop
func (m *Manager) browseLoop() {
	for {
		select {
		case <-m.ctx.Done():
			return
		default:
		}

		entries := make(chan *mdns.ServiceEntry, 10)
		done := make(chan struct{})

		go func() {
			defer close(done)
			for entry := range entries {
				server := serverFromEntry(entry)
				if server == nil {
					continue
				}

				log.Printf("Discovered monitor: %s at %s", server.Name, server.Addr())

				select {
				case m.servers <- server:
				case <-m.ctx.Done():
				}
			}
		}()

		params := mdns.DefaultParams(ServiceType)
		params.Entries = entries
		params.Timeout = m.config.Interval
		params.DisableIPv6 = true

		if err := mdns.Query(params); err != nil {
			log.Printf("mDNS query failed: %v", err)
		}
		close(entries)
		<-done

		select {
		case <-m.ctx.Done():
			return
		case <-time.After(time.Second):
		}
	}
}

// serverFromEntry keeps entries of our service type that carry an IPv4 address.
func serverFromEntry(entry *mdns.ServiceEntry) *ServerInfo {
	if entry == nil || entry.AddrV4 == nil || !strings.Contains(entry.Name, ServiceType) {
		return nil
	}

	info := &ServerInfo{
		Name: instanceName(entry.Name),
		Host: entry.AddrV4.String(),
		Port: entry.Port,
		Path: "/ws",
	}
	for _, field := range entry.InfoFields {
		key, value, ok := strings.Cut(field, "=")
		if !ok {
			continue
		}
		switch key {
		case "path":
			info.Path = value
		case "stamp":
			info.Stamp = value
		}
	}
	return info
}

// instanceName strips the service and domain from a full instance name.
func instanceName(full string) string {
	if i := strings.Index(full, "."+ServiceType); i > 0 {
		return strings.ReplaceAll(full[:i], `\ `, " ")
	}
	return full
}

// Servers returns the channel of discovered monitors
func (m *Manager) Servers() <-chan *ServerInfo {
	return m.servers
}

// Stop stops advertising and browsing
func (m *Manager) Stop() {
	m.cancel()
}

// getLocalIPs returns local IP addresses
func getLocalIPs() ([]net.IP, error) {
	var ips []net.IP

	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
				if ipnet.IP.To4() != nil {
					ips = append(ips, ipnet.IP)
				}
			}
		}
	}

	return ips, nil
}
