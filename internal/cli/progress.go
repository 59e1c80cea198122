package cli

import (
	"fmt"

	"charm.land/bubbles/v2/progress"
	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/lipgloss"
)

// Theme holds the color scheme for CLI output.
type Theme struct {
	Status  lipgloss.Color
	Success lipgloss.Color
	Error   lipgloss.Color
	Hint    lipgloss.Color
}

// defaultTheme provides default colors.
var defaultTheme = Theme{
	Status:  lipgloss.Color("#5FAFD7"), // light blue
	Success: lipgloss.Color("#00D787"), // green
	Error:   lipgloss.Color("#FF005F"), // red
	Hint:    lipgloss.Color("#6C6C6C"), // dim gray
}

func (t Theme) statusStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Status)
}

func (t Theme) headerStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Success).Bold(true)
}

func (t Theme) errorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Error).Bold(true)
}

func (t Theme) hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

// itemDoneMsg reports the outcome of one processed item.
type itemDoneMsg struct {
	index int
	err   error
}

// ingestModel drives a determinate progress bar over a list of items. Items
// are processed one at a time through process; errors are collected instead
// of aborting so a single bad record never sinks the batch.
type ingestModel struct {
	total    int
	done     int
	process  func(index int) error
	progress progress.Model
	theme    Theme
	errs     []error
	quitting bool
}

func newIngestModel(total int, process func(index int) error) ingestModel {
	prog := progress.New(
		progress.WithDefaultBlend(),
		progress.WithWidth(40),
	)

	return ingestModel{
		total:    total,
		process:  process,
		progress: prog,
		theme:    defaultTheme,
	}
}

func (m ingestModel) Init() tea.Cmd {
	return tea.Batch(
		m.processCmd(0),
		m.progress.Init(),
	)
}

func (m ingestModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit
		}

	case itemDoneMsg:
		if msg.err != nil {
			m.errs = append(m.errs, fmt.Errorf("item %d: %w", msg.index+1, msg.err))
		}
		m.done++
		if m.done >= m.total {
			return m, tea.Quit
		}
		return m, m.processCmd(m.done)

	case progress.FrameMsg:
		var cmd tea.Cmd
		m.progress, cmd = m.progress.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m ingestModel) View() tea.View {
	return tea.NewView(m.renderContent())
}

func (m ingestModel) renderContent() string {
	if m.quitting {
		return m.theme.hintStyle().Render("\nIngest cancelled.\n")
	}

	var pct float64
	if m.total > 0 {
		pct = float64(m.done) / float64(m.total)
	}

	status := m.theme.statusStyle().Render("[ingesting]")
	bar := m.progress.ViewAs(pct)
	counts := fmt.Sprintf("%d/%d records", m.done, m.total)

	return fmt.Sprintf("%s %s %s\n", status, bar, counts)
}

// processCmd embeds-and-stores one item off the UI goroutine.
func (m ingestModel) processCmd(index int) tea.Cmd {
	return func() tea.Msg {
		return itemDoneMsg{index: index, err: m.process(index)}
	}
}

// runIngestProgress runs the progress UI over total items and returns the
// per-item errors collected along the way.
func runIngestProgress(total int, process func(index int) error) ([]error, error) {
	p := tea.NewProgram(newIngestModel(total, process))

	finalModel, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("progress UI error: %w", err)
	}

	if m, ok := finalModel.(ingestModel); ok {
		if m.quitting {
			return m.errs, fmt.Errorf("cancelled after %d/%d records", m.done, m.total)
		}
		return m.errs, nil
	}
	return nil, nil
}
