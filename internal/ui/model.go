// ABOUTME: Bubbletea model for the receiver dashboard
// ABOUTME: Defines dashboard state, update logic and rendering
package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lisa-project/lisa-odas/internal/receiver"
	"github.com/lisa-project/lisa-odas/pkg/tracking"
)

// StatusMsg updates the connection and counter part of the dashboard.
type StatusMsg struct {
	Receiver  receiver.Status
	Clients   int    // monitor WebSocket clients
	Published uint64 // hub events
	Dropped   uint64 // hub events lost to slow consumers
}

type tickMsg time.Time

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	idleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	helpStyle   = lipgloss.NewStyle().Faint(true)
)

// Model represents the TUI state
type Model struct {
	name      string
	stamp     string
	startTime time.Time

	status   StatusMsg
	tracking TrackingMsg

	showDebug bool
	quitting  bool
	quitChan  chan struct{}

	width  int
	height int
}

// NewModel creates a dashboard for a receiver named name decoding stamp.
func NewModel(name, stamp string, quitChan chan struct{}) Model {
	return Model{
		name:      name,
		stamp:     stamp,
		startTime: time.Now(),
		quitChan:  quitChan,
	}
}

func (m Model) Init() tea.Cmd {
	return tickEvery()
}

func tickEvery() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case tickMsg:
		return m, tickEvery()
	case StatusMsg:
		m.status = msg
	case TrackingMsg:
		m.tracking = msg
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		if m.quitChan != nil {
			select {
			case m.quitChan <- struct{}{}:
			default:
			}
		}
		return m, tea.Quit
	case "d":
		m.showDebug = !m.showDebug
	}
	return m, nil
}

// View renders the TUI
func (m Model) View() string {
	if m.quitting {
		return "Shutting down receiver...\n"
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("LISA ODAS receiver"))
	b.WriteString(valueStyle.Render("  " + m.name))
	b.WriteString("\n\n")

	b.WriteString(headerStyle.Render("Stream: "))
	b.WriteString(valueStyle.Render(m.stamp))
	b.WriteString("\n")
	b.WriteString(headerStyle.Render("Uptime: "))
	b.WriteString(valueStyle.Render(time.Since(m.startTime).Round(time.Second).String()))
	b.WriteString("\n\n")

	b.WriteString(m.renderStreams())
	b.WriteString("\n")
	b.WriteString(m.renderSlots())
	b.WriteString("\n")
	b.WriteString(m.renderTracked())
	b.WriteString("\n")
	b.WriteString(m.renderRing())
	b.WriteString("\n")
	b.WriteString(m.renderStats())

	if m.showDebug {
		b.WriteString("\n")
		b.WriteString(m.renderDebug())
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("d: debug  q/ctrl+c: quit"))
	return b.String()
}

func (m Model) renderStreams() string {
	r := m.status.Receiver
	var b strings.Builder
	b.WriteString(headerStyle.Render("Engine"))
	b.WriteString("\n")
	for _, s := range []receiver.StreamStatus{r.Audio, r.SSL, r.SST} {
		fmt.Fprintf(&b, "  %-5s %s\n", s.Stream, streamState(s))
	}
	return b.String()
}

func streamState(s receiver.StreamStatus) string {
	switch {
	case s.Connected:
		return okStyle.Render(fmt.Sprintf("● connected from %s", s.Remote))
	case s.Listening:
		return warnStyle.Render(fmt.Sprintf("○ waiting on %s", s.Addr))
	default:
		return idleStyle.Render("- disabled")
	}
}

func (m Model) renderSlots() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Sources"))
	b.WriteString("\n")
	if len(m.tracking.Slots) == 0 {
		b.WriteString(idleStyle.Render("  No audio yet"))
		b.WriteString("\n")
		return b.String()
	}
	for _, s := range m.tracking.Slots {
		tag := s.Tag
		style := valueStyle
		if tag == "" {
			tag = "(idle)"
			style = idleStyle
		}
		fmt.Fprintf(&b, "  %d %s [%s] %s\n",
			s.Index,
			style.Render(fmt.Sprintf("%-12s", truncate(tag, 12))),
			renderBar(s.Level, s.Peak, 20),
			valueStyle.Render(fmt.Sprintf("%6.1f dB", s.Decibels())))
	}
	return b.String()
}

func (m Model) renderTracked() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("Tracked (%d)", len(m.tracking.Tracked))))
	b.WriteString("\n")
	for _, src := range m.tracking.Tracked {
		az, el := tracking.Direction(src.X, src.Y, src.Z)
		fmt.Fprintf(&b, "  id %-4d %-10s az %5.1f° el %5.1f° activity %.2f\n",
			src.ID, truncate(src.Tag, 10), az, el, src.Activity)
	}
	return b.String()
}

// ringGlyphs maps a brightness level onto a block height.
var ringGlyphs = []rune(" ▁▂▃▄▅▆▇█")

func (m Model) renderRing() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Direction energy"))
	if m.tracking.PeakBin >= 0 && m.tracking.SSLMessages > 0 {
		b.WriteString(valueStyle.Render(fmt.Sprintf("  peak %d°", m.tracking.PeakBin*360/tracking.EnergyBins)))
	}
	b.WriteString("\n  ")
	b.WriteString(renderRing(m.tracking.Ring))
	b.WriteString("\n")
	return b.String()
}

func renderRing(levels [tracking.EnergyBins]int) string {
	out := make([]rune, len(levels))
	top := len(ringGlyphs) - 1
	for i, l := range levels {
		g := l * top / tracking.MaxBrightness
		if g > top {
			g = top
		}
		if l > 0 && g == 0 {
			g = 1
		}
		out[i] = ringGlyphs[g]
	}
	return string(out)
}

func (m Model) renderStats() string {
	d := m.status.Receiver.Decoder
	return fmt.Sprintf("%s\n  frame %d  malformed %d  truncated %d  bytes %d\n  monitor clients %d\n",
		headerStyle.Render("Stats"),
		m.tracking.FrameIndex, d.Malformed, d.Truncated, d.Bytes,
		m.status.Clients)
}

func (m Model) renderDebug() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Debug"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "  hub published %d dropped %d\n", m.status.Published, m.status.Dropped)
	r := m.status.Receiver
	for _, s := range []receiver.StreamStatus{r.Audio, r.SSL, r.SST} {
		last := s.LastError
		if last == "" {
			last = "-"
		}
		fmt.Fprintf(&b, "  %-5s connections %d  last error %s\n", s.Stream, s.Connections, last)
	}
	fmt.Fprintf(&b, "  ssl messages %d\n", m.tracking.SSLMessages)
	return b.String()
}

// renderBar draws level as a filled bar with a marker at peak.
func renderBar(level, peak float64, width int) string {
	filled := int(level * float64(width))
	mark := int(peak * float64(width))
	if filled > width {
		filled = width
	}
	if mark >= width {
		mark = width - 1
	}
	var b strings.Builder
	for i := 0; i < width; i++ {
		switch {
		case i < filled:
			b.WriteString("█")
		case i == mark && peak > 0:
			b.WriteString("▏")
		default:
			b.WriteString("░")
		}
	}
	return b.String()
}

func truncate(s string, length int) string {
	if len(s) <= length {
		return s
	}
	return s[:length-3] + "..."
}
