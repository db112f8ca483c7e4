package monitor

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"codeberg.org/isvind/gpufanctl/internal/state"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("82"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Width(18)

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			MarginTop(1)

	alertStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196"))

	faintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	manualStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))
)

type tickMsg time.Time

type probeMsg struct {
	snapshot *state.Snapshot
	latency  time.Duration
	err      error
}

// Model is the bubbletea model backing the monitor view. It is driven
// by a fixed-cadence tick; every tick triggers one snapshot probe.
type Model struct {
	client   *Client
	interval time.Duration

	snapshot *state.Snapshot
	latency  time.Duration
	probeErr error

	width    int
	quitting bool
}

// NewModel creates a monitor model probing through client every interval.
func NewModel(client *Client, interval time.Duration) Model {
	return Model{
		client:   client,
		interval: interval,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.probe(), m.tick())
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) probe() tea.Cmd {
	client := m.client
	interval := m.interval

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), interval)
		defer cancel()

		snapshot, latency, err := client.Probe(ctx)

		return probeMsg{snapshot: snapshot, latency: latency, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true

			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case tickMsg:
		return m, tea.Batch(m.probe(), m.tick())
	case probeMsg:
		if msg.err != nil {
			m.probeErr = msg.err
			m.snapshot = nil
		} else {
			m.probeErr = nil
			m.snapshot = msg.snapshot
			m.latency = msg.latency
		}
	}

	return m, nil
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("gpufanctl monitor"))
	b.WriteString("\n")

	if m.probeErr != nil {
		b.WriteString(alertStyle.Render("Daemon unreachable"))
		b.WriteString("\n")
		b.WriteString(valueStyle.Render(m.probeErr.Error()))
		b.WriteString("\n\n")
		b.WriteString(faintStyle.Render("retrying every " + m.interval.String() + " · press q to quit"))
		b.WriteString("\n")

		return b.String()
	}

	if m.snapshot == nil {
		b.WriteString(faintStyle.Render("waiting for first snapshot..."))
		b.WriteString("\n")

		return b.String()
	}

	m.renderDevice(&b)
	m.renderRuntime(&b)
	m.renderFans(&b)

	b.WriteString("\n")
	b.WriteString(faintStyle.Render(fmt.Sprintf("probed %s · %s round trip · press q to quit",
		m.snapshot.Runtime.ProbeTime.Format("15:04:05"), m.latency.Round(time.Millisecond))))
	b.WriteString("\n")

	return b.String()
}

func (m Model) renderDevice(b *strings.Builder) {
	p := m.snapshot.Persistent

	b.WriteString(sectionStyle.Render("Device"))
	b.WriteString("\n")
	writeRow(b, "Name", p.DeviceName)
	writeRow(b, "Architecture", fmt.Sprintf("%s (%d cores, %d fans)",
		p.Architecture, p.NumCores, p.NumFans))
	writeRow(b, "Driver", fmt.Sprintf("%s (NVML %s, CUDA %d.%d)",
		p.SysInfo.DriverVersion, p.SysInfo.NVMLVersion,
		p.SysInfo.CudaVersion.Major, p.SysInfo.CudaVersion.Minor))
	writeRow(b, "Max PCIe link", fmt.Sprintf("Gen%d x%d (%d MB/s)",
		p.MaxPCIeLink.Gen, p.MaxPCIeLink.Width, p.MaxPCIeLink.SpeedMBps))
	writeRow(b, "Thresholds", fmt.Sprintf("slowdown %d°C · shutdown %d°C",
		p.TempThresholds.Slowdown, p.TempThresholds.Shutdown))
}

func (m Model) renderRuntime(b *strings.Builder) {
	r := m.snapshot.Runtime
	p := m.snapshot.Persistent

	b.WriteString(sectionStyle.Render("Runtime"))
	b.WriteString("\n")

	temp := valueStyle.Render(fmt.Sprintf("%d°C", r.DeviceTemperature))
	if p.TempThresholds.Slowdown > 0 && r.DeviceTemperature >= p.TempThresholds.Slowdown {
		temp = alertStyle.Render(fmt.Sprintf("%d°C (slowdown)", r.DeviceTemperature))
	}

	b.WriteString(labelStyle.Render("Temperature"))
	b.WriteString(temp)
	b.WriteString("\n")

	writeRow(b, "Power", fmt.Sprintf("%.1f W", r.PowerUsage))
	writeRow(b, "Memory", fmt.Sprintf("%s / %s used",
		formatBytes(r.MemoryInfo.Used), formatBytes(r.MemoryInfo.Total)))
	writeRow(b, "Clocks", fmt.Sprintf("gfx %d MHz · mem %d MHz · sm %d MHz",
		r.ClockSpeeds.Graphics, r.ClockSpeeds.Memory, r.ClockSpeeds.StreamingMultiprocessor))
	writeRow(b, "PCIe link", fmt.Sprintf("Gen%d x%d (%d MB/s)",
		r.CurrentPCIeLink.Gen, r.CurrentPCIeLink.Width, r.CurrentPCIeLink.SpeedMBps))
}

func (m Model) renderFans(b *strings.Builder) {
	b.WriteString(sectionStyle.Render("Fans"))
	b.WriteString("\n")

	for _, fan := range m.snapshot.Runtime.FanStates {
		policy := valueStyle.Render(string(fan.ControlPolicy))
		if fan.ControlPolicy == state.PolicyManual {
			policy = manualStyle.Render(string(fan.ControlPolicy))
		}

		b.WriteString(labelStyle.Render(fmt.Sprintf("Fan %d", fan.Index)))
		b.WriteString(valueStyle.Render(fmt.Sprintf("%d%% measured · %d%% target · ", fan.Speed, fan.Duty)))
		b.WriteString(policy)
		b.WriteString("\n")
	}
}

func writeRow(b *strings.Builder, label, value string) {
	b.WriteString(labelStyle.Render(label))
	b.WriteString(valueStyle.Render(value))
	b.WriteString("\n")
}

func formatBytes(n uint64) string {
	const mib = 1024 * 1024

	if n >= 1024*mib {
		return fmt.Sprintf("%.1f GiB", float64(n)/(1024*mib))
	}

	return fmt.Sprintf("%d MiB", n/mib)
}

// Run drives the monitor UI until the user quits or ctx is cancelled.
func Run(ctx context.Context, client *Client, interval time.Duration) error {
	program := tea.NewProgram(NewModel(client, interval), tea.WithContext(ctx))

	_, err := program.Run()
	if err != nil && ctx.Err() == nil {
		return err
	}

	return nil
}
