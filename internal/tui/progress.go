package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	progressStyleTitle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	progressStyleDim   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// waitModel renders elapsed wait time against a lease's theft timeout.
// lease.Manager.Lock reports through this each time it observes the
// currently-held lease, per its acquisition loop (SPEC_FULL.md §4.5).
type waitModel struct {
	leaseDuration time.Duration
	leaseID       uint64
	waited        time.Duration
	done          bool
	width         int
}

func (m waitModel) Init() tea.Cmd { return nil }

func (m waitModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case waitTickMsg:
		m.leaseID = msg.leaseID
		m.waited = msg.waited
	case waitDoneMsg:
		m.done = true
		return m, tea.Quit
	}
	return m, nil
}

func (m waitModel) View() string {
	if m.done {
		return progressStyleTitle.Render("✓ lease acquired")
	}

	barWidth := 40
	if m.width > 0 && m.width < 80 {
		barWidth = 20
	}
	percent := 0.0
	if m.leaseDuration > 0 {
		percent = float64(m.waited) / float64(m.leaseDuration)
	}
	if percent > 1 {
		percent = 1
	}
	filled := int(percent * float64(barWidth))
	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)

	return fmt.Sprintf(
		"%s\n[%s] %s / %s (lease %016x)",
		progressStyleTitle.Render("waiting for lease"),
		bar, m.waited.Round(time.Millisecond), m.leaseDuration,
		m.leaseID,
	)
}

type waitTickMsg struct {
	leaseID uint64
	waited  time.Duration
}

type waitDoneMsg struct{}

// BubbleteaWaitTracker drives a waitModel from lease.Notifier callbacks.
// It implements the single-method Waiting(leaseID, waited) shape the
// lease manager's acquisition loop reports through.
type BubbleteaWaitTracker struct {
	program *tea.Program
}

// NewBubbleteaWaitTracker starts rendering a lease-wait progress bar.
func NewBubbleteaWaitTracker(leaseDuration time.Duration) *BubbleteaWaitTracker {
	p := tea.NewProgram(waitModel{leaseDuration: leaseDuration, width: 80})
	go func() { _, _ = p.Run() }()
	return &BubbleteaWaitTracker{program: p}
}

func (t *BubbleteaWaitTracker) Waiting(leaseID uint64, waited time.Duration) {
	t.program.Send(waitTickMsg{leaseID: leaseID, waited: waited})
}

// Done signals acquisition completed; call once after Lock returns.
func (t *BubbleteaWaitTracker) Done() {
	t.program.Send(waitDoneMsg{})
	time.Sleep(50 * time.Millisecond) // allow the final render to flush
}

// TextWaitTracker is the non-TTY fallback: one line per observed wait
// event, no redrawing.
type TextWaitTracker struct {
	leaseDuration time.Duration
}

func NewTextWaitTracker(leaseDuration time.Duration) *TextWaitTracker {
	return &TextWaitTracker{leaseDuration: leaseDuration}
}

func (t *TextWaitTracker) Waiting(leaseID uint64, waited time.Duration) {
	fmt.Printf("waiting for lease %016x: %s / %s elapsed\n", leaseID, waited.Round(time.Second), t.leaseDuration)
}

// NoOpWaitTracker discards every event (quiet/JSON output modes).
type NoOpWaitTracker struct{}

func (NoOpWaitTracker) Waiting(uint64, time.Duration) {}
