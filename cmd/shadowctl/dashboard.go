package main

import (
	"fmt"
	"os"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	overlay "github.com/rmhubbert/bubbletea-overlay"

	"github.com/shadowheap/monitor/internal/arenaprobe"
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Render a live terminal dashboard of probe state",
	Long: `dashboard re-runs the arena/tcache probe on a timer and renders the
result in a scrolling terminal UI, the same role hiveexplorer plays for
inspecting a hive file interactively. Press c to copy the current report
to the clipboard, q to quit (with a confirmation overlay).`,
	RunE: runDashboard,
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
}

func runDashboard(cmd *cobra.Command, args []string) error {
	p := tea.NewProgram(newDashboardModel(), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

type probeTickMsg struct {
	probe arenaprobe.Probe
	err   error
}

type clipboardResultMsg struct {
	err error
}

type dashboardModel struct {
	probe      arenaprobe.Probe
	probeErr   error
	statusLine string
	confirming bool
	width      int
	height     int
}

func newDashboardModel() dashboardModel {
	return dashboardModel{statusLine: "resolving arena and tcache state..."}
}

func (m dashboardModel) Init() tea.Cmd {
	return tickProbe()
}

func tickProbe() tea.Cmd {
	return tea.Tick(2*time.Second, func(time.Time) tea.Msg {
		p, err := arenaprobe.Run()
		return probeTickMsg{probe: p, err: err}
	})
}

func copyReport(report string) tea.Cmd {
	return func() tea.Msg {
		return clipboardResultMsg{err: clipboard.WriteAll(report)}
	}
}

func (m dashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case probeTickMsg:
		m.probe = msg.probe
		m.probeErr = msg.err
		if msg.err != nil {
			m.statusLine = fmt.Sprintf("probe failed: %v", msg.err)
		} else {
			m.statusLine = "probe ok"
		}
		return m, tickProbe()

	case clipboardResultMsg:
		if msg.err != nil {
			m.statusLine = fmt.Sprintf("clipboard copy failed: %v", msg.err)
		} else {
			m.statusLine = "report copied to clipboard"
		}
		return m, nil

	case tea.KeyMsg:
		if m.confirming {
			switch msg.String() {
			case "y":
				return m, tea.Quit
			default:
				m.confirming = false
				return m, nil
			}
		}
		switch msg.String() {
		case "q", "ctrl+c":
			m.confirming = true
			return m, nil
		case "c":
			if m.probeErr == nil {
				return m, copyReport(m.probe.Report())
			}
			return m, nil
		}
	}
	return m, nil
}

var (
	dashboardTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	dashboardBoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Padding(0, 1)
	dashboardStatusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

func (m dashboardModel) View() string {
	if m.confirming {
		return m.confirmOverlay()
	}
	return m.mainView()
}

func (m dashboardModel) mainView() string {
	title := dashboardTitleStyle.Render("shadowctl dashboard")
	body := "waiting for first probe..."
	if m.probeErr != nil {
		body = fmt.Sprintf("probe error: %v", m.probeErr)
	} else if m.probe.Arena.Addr != 0 {
		body = m.probe.Report()
	}
	box := dashboardBoxStyle.Render(body)
	status := dashboardStatusStyle.Render(m.statusLine + "  (c: copy report, q: quit)")
	return lipgloss.JoinVertical(lipgloss.Left, title, box, status)
}

type confirmQuitModel struct {
	width, height int
}

func (c confirmQuitModel) Init() tea.Cmd                           { return nil }
func (c confirmQuitModel) Update(tea.Msg) (tea.Model, tea.Cmd)     { return c, nil }
func (c confirmQuitModel) View() string {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("196")).
		Padding(1, 2).
		Render("Quit shadowctl dashboard? (y/n)")
}

func (m dashboardModel) confirmOverlay() string {
	background := backgroundModel{view: m.mainView()}
	dialog := overlay.New(
		confirmQuitModel{width: m.width, height: m.height},
		background,
		overlay.Center,
		overlay.Center,
		0,
		0,
	)
	return dialog.View()
}

// backgroundModel adapts a pre-rendered string to tea.Model so it can serve
// as the overlay's background pane without re-running the dashboard's own
// Update loop.
type backgroundModel struct {
	view string
}

func (b backgroundModel) Init() tea.Cmd                       { return nil }
func (b backgroundModel) Update(tea.Msg) (tea.Model, tea.Cmd) { return b, nil }
func (b backgroundModel) View() string                        { return b.view }

func init() {
	if os.Getenv("SHADOWHEAP_NO_CLIPBOARD") == "1" {
		clipboard.Unsupported = true
	}
}
