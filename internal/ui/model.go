package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Gimel12/nvme-tool-ubuntu/internal/benchmark"
	"github.com/Gimel12/nvme-tool-ubuntu/internal/device"
	"github.com/Gimel12/nvme-tool-ubuntu/internal/errors"
	"github.com/Gimel12/nvme-tool-ubuntu/internal/telemetry"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
)

// Backend is the engine as seen from the screen. Select and TelemetryState
// are called on the event loop and must not block; everything else runs in
// a command.
type Backend interface {
	Refresh(ctx context.Context) (device.Listing, error)
	Select(nodes []string)
	StartBenchmark(ctx context.Context, nodes []string) error
	StopBenchmark()
	StartTelemetry(ctx context.Context) error
	StopTelemetry()
	TelemetryState() telemetry.State
}

// Streams are the engine's outward event channels.
type Streams struct {
	Samples   <-chan benchmark.Sample
	Snapshots <-chan []telemetry.Snapshot
	Outcomes  <-chan benchmark.Outcome
}

type devicesMsg struct {
	listing device.Listing
	err     error
}

type sampleMsg benchmark.Sample

type snapshotsMsg []telemetry.Snapshot

type outcomeMsg benchmark.Outcome

type benchmarkStartedMsg struct {
	nodes []string
	err   error
}

type benchmarkStoppedMsg struct{}

type telemetryMsg struct {
	polling bool
	err     error
}

// maxLogLines bounds the on-screen result log. The feed itself keeps
// every sample.
const maxLogLines = 2000

// Model is the bubbletea model of the device screen.
type Model struct {
	ctx     context.Context
	backend Backend
	streams Streams
	keys    KeyMap
	help    help.Model

	width  int
	height int
	ready  bool

	devices []device.Record
	cursor  int
	checked map[string]bool

	log       viewport.Model
	logLines  []string
	telemetry []telemetry.Snapshot
	// toggling is set while a telemetry start or stop is in flight.
	toggling  bool
	status    string
	statusErr bool
}

// NewModel builds the screen. preselected nodes start checked.
func NewModel(ctx context.Context, backend Backend, streams Streams, preselected []string) Model {
	checked := make(map[string]bool, len(preselected))
	for _, n := range preselected {
		checked[n] = true
	}
	return Model{
		ctx:     ctx,
		backend: backend,
		streams: streams,
		keys:    DefaultKeyMap,
		help:    help.New(),
		checked: checked,
		log:     viewport.New(0, 0),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.refresh(),
		waitSample(m.streams.Samples),
		waitSnapshots(m.streams.Snapshots),
		waitOutcome(m.streams.Outcomes),
	)
}

func (m Model) refresh() tea.Cmd {
	return func() tea.Msg {
		listing, err := m.backend.Refresh(m.ctx)
		return devicesMsg{listing: listing, err: err}
	}
}

// startBenchmark spawns the collaborators off the event loop.
func (m Model) startBenchmark(nodes []string) tea.Cmd {
	return func() tea.Msg {
		return benchmarkStartedMsg{nodes: nodes, err: m.backend.StartBenchmark(m.ctx, nodes)}
	}
}

func (m Model) stopBenchmark() tea.Cmd {
	return func() tea.Msg {
		m.backend.StopBenchmark()
		return benchmarkStoppedMsg{}
	}
}

// toggleTelemetry stops polling when it runs and starts it otherwise. Stop
// waits for the tick in progress, so it never runs on the event loop.
func (m Model) toggleTelemetry(polling bool) tea.Cmd {
	return func() tea.Msg {
		if polling {
			m.backend.StopTelemetry()
			return telemetryMsg{polling: false}
		}
		err := m.backend.StartTelemetry(m.ctx)
		return telemetryMsg{polling: err == nil, err: err}
	}
}

func waitSample(ch <-chan benchmark.Sample) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		s, ok := <-ch
		if !ok {
			return nil
		}
		return sampleMsg(s)
	}
}

func waitSnapshots(ch <-chan []telemetry.Snapshot) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		set, ok := <-ch
		if !ok {
			return nil
		}
		return snapshotsMsg(set)
	}
}

func waitOutcome(ch <-chan benchmark.Outcome) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		o, ok := <-ch
		if !ok {
			return nil
		}
		return outcomeMsg(o)
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.layout()
		return m, nil

	case devicesMsg:
		m.applyListing(msg.listing)
		if msg.err != nil {
			m.setStatus(fmt.Sprintf("Device listing failed: %v", msg.err), true)
		} else {
			m.setStatus(fmt.Sprintf("%d drive(s) found", len(m.devices)), false)
			if msg.listing.Skipped > 0 {
				m.setStatus(fmt.Sprintf("%d drive(s) found, %d line(s) skipped", len(m.devices), msg.listing.Skipped), false)
			}
		}
		m.layout()
		return m, nil

	case sampleMsg:
		m.appendLog(fmt.Sprintf("%s Speed: %s", msg.Device, msg.Speed))
		return m, waitSample(m.streams.Samples)

	case snapshotsMsg:
		m.telemetry = msg
		m.layout()
		return m, waitSnapshots(m.streams.Snapshots)

	case outcomeMsg:
		m.appendLog(outcomeLine(benchmark.Outcome(msg)))
		return m, waitOutcome(m.streams.Outcomes)

	case benchmarkStartedMsg:
		if msg.err != nil {
			m.setStatus(fmt.Sprintf("Benchmark: %v", msg.err), true)
		} else {
			m.setStatus("Benchmark started on "+strings.Join(msg.nodes, ", "), false)
		}
		return m, nil

	case benchmarkStoppedMsg:
		m.setStatus("Benchmarks stopping", false)
		return m, nil

	case telemetryMsg:
		m.toggling = false
		switch {
		case msg.err != nil:
			m.setStatus(fmt.Sprintf("Metrics: %v", msg.err), true)
		case msg.polling:
			m.setStatus("Metrics started", false)
		default:
			m.setStatus("Metrics stopped", false)
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.devices)-1 {
			m.cursor++
		}

	case key.Matches(msg, m.keys.Toggle):
		if len(m.devices) == 0 {
			return m, nil
		}
		node := m.devices[m.cursor].Node
		if m.checked[node] {
			delete(m.checked, node)
		} else {
			m.checked[node] = true
		}
		m.backend.Select(m.Selected())

	case key.Matches(msg, m.keys.Refresh):
		m.setStatus("Listing drives...", false)
		return m, m.refresh()

	case key.Matches(msg, m.keys.Start):
		nodes := m.Selected()
		if len(nodes) == 0 {
			m.setStatus("Select at least one drive", true)
			return m, nil
		}
		m.setStatus("Starting benchmark on "+strings.Join(nodes, ", "), false)
		return m, m.startBenchmark(nodes)

	case key.Matches(msg, m.keys.Stop):
		m.setStatus("Stopping benchmarks", false)
		return m, m.stopBenchmark()

	case key.Matches(msg, m.keys.Telemetry):
		if m.toggling {
			return m, nil
		}
		m.toggling = true
		polling := m.backend.TelemetryState() == telemetry.Polling
		if polling {
			m.setStatus("Stopping metrics", false)
		} else {
			m.setStatus("Starting metrics", false)
		}
		return m, m.toggleTelemetry(polling)

	case key.Matches(msg, m.keys.LogUp):
		m.log.HalfViewUp()

	case key.Matches(msg, m.keys.LogDown):
		m.log.HalfViewDown()
	}

	return m, nil
}

// Selected returns the checked drives in listing order.
func (m Model) Selected() []string {
	var nodes []string
	for _, r := range m.devices {
		if m.checked[r.Node] {
			nodes = append(nodes, r.Node)
		}
	}
	return nodes
}

func (m *Model) applyListing(listing device.Listing) {
	m.devices = listing.Records

	present := make(map[string]bool, len(m.devices))
	for _, r := range m.devices {
		present[r.Node] = true
	}
	for node := range m.checked {
		if !present[node] {
			delete(m.checked, node)
		}
	}

	if m.cursor >= len(m.devices) {
		m.cursor = max(0, len(m.devices)-1)
	}
	m.backend.Select(m.Selected())
}

func (m *Model) appendLog(line string) {
	m.logLines = append(m.logLines, line)
	if over := len(m.logLines) - maxLogLines; over > 0 {
		m.logLines = m.logLines[over:]
	}
	atBottom := m.log.AtBottom()
	m.log.SetContent(strings.Join(m.logLines, "\n"))
	if atBottom {
		m.log.GotoBottom()
	}
}

func (m *Model) setStatus(s string, isErr bool) {
	m.status = s
	m.statusErr = isErr
}

// layout sizes the result log to whatever the other panels leave over.
func (m *Model) layout() {
	if !m.ready {
		return
	}
	fixed := 2 + max(1, len(m.devices)) + 2 + 2 + max(1, m.telemetryLines()) + 2 + 2
	m.log.Width = max(10, m.width-4)
	m.log.Height = max(3, m.height-fixed)
	m.help.Width = m.width
}

func (m Model) telemetryLines() int {
	n := 0
	for _, s := range m.telemetry {
		n += 1 + max(1, len(s.Lines))
	}
	return n
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("NVMe Tool"))
	b.WriteString("\n")
	b.WriteString(panelStyle.Width(max(10, m.width-2)).Render(m.renderDevices()))
	b.WriteString("\n")
	b.WriteString(panelStyle.Width(max(10, m.width-2)).Render(labelStyle.Render("Results") + "\n" + m.log.View()))
	b.WriteString("\n")
	b.WriteString(panelStyle.Width(max(10, m.width-2)).Render(m.renderTelemetry()))
	b.WriteString("\n")
	b.WriteString(m.renderStatus())
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m Model) renderDevices() string {
	if len(m.devices) == 0 {
		return dimStyle.Render("No NVMe drives listed. Press r to list drives.")
	}

	lines := make([]string, len(m.devices))
	for i, r := range m.devices {
		box := "[ ]"
		if m.checked[r.Node] {
			box = "[x]"
		}
		line := fmt.Sprintf("%s %s", box, r.String())
		if r.TotalBytes > 0 {
			line += dimStyle.Render(fmt.Sprintf("  (%.0f%% of %s)", r.UsedPercent(), humanize.Bytes(r.TotalBytes)))
		}
		if i == m.cursor {
			line = selectedStyle.Render(line)
		}
		lines[i] = line
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderTelemetry() string {
	header := labelStyle.Render("Metrics")
	if m.backend.TelemetryState() == telemetry.Polling {
		header += " " + okStyle.Render("polling")
	}
	if len(m.telemetry) == 0 {
		return header + "\n" + dimStyle.Render("No metrics yet. Press m to start.")
	}

	var b strings.Builder
	b.WriteString(header)
	for _, s := range m.telemetry {
		b.WriteString("\n")
		b.WriteString(renderSnapshot(s))
	}
	return b.String()
}

func renderSnapshot(s telemetry.Snapshot) string {
	title := valueStyle.Render(s.Node + " Metrics:")
	if s.Stale {
		title += " " + warnStyle.Render("(pending)")
	}
	if s.Err != nil && len(s.Lines) == 0 {
		return title + "\n  " + critStyle.Render(s.Err.Error())
	}

	lines := make([]string, 0, len(s.Lines))
	for _, line := range s.Lines {
		style := valueStyle
		switch {
		case line == s.TemperatureLine && s.HasTemperature:
			style = tempStyle(s.TemperatureC)
		case line == s.CriticalWarningLine && s.Warning():
			style = critStyle
		}
		lines = append(lines, "  "+style.Render(line))
	}
	if len(lines) == 0 {
		lines = append(lines, "  "+dimStyle.Render("no temperature or warning fields"))
	}
	return title + "\n" + strings.Join(lines, "\n")
}

func (m Model) renderStatus() string {
	if m.status == "" {
		return ""
	}
	if m.statusErr {
		return critStyle.Render(m.status)
	}
	return dimStyle.Render(m.status)
}

func outcomeLine(o benchmark.Outcome) string {
	switch {
	case o.State == benchmark.Completed:
		return fmt.Sprintf("Benchmark completed for %s (%d samples, %s)", o.Device, o.Samples, o.Duration.Round(time.Second))
	case errors.HasCode(o.Err, benchmark.ErrTerminated):
		return fmt.Sprintf("Benchmark stopped for %s (%d samples)", o.Device, o.Samples)
	default:
		reason := o.Reason
		if reason == "" && o.Err != nil {
			reason = o.Err.Error()
		}
		return fmt.Sprintf("Error running benchmark on %s: %s", o.Device, reason)
	}
}
