package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type phase int

const (
	phaseIngesting phase = iota
	phaseDone
)

type model struct {
	config       *Config
	root         string
	currentPhase phase
	spinner      spinner.Model
	progress     progress.Model

	scanProgress ScanProgress
	statusMsg    string

	progressChan <-chan ScanProgress
	cancel       context.CancelFunc

	width  int
	height int
}

type progressMsg ScanProgress
type ingestDoneMsg struct{}

func initialModel(config *Config, root string, progressChan <-chan ScanProgress, cancel context.CancelFunc) model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	p := progress.New(
		progress.WithDefaultGradient(),
		progress.WithoutPercentage(),
	)
	// Updated when WindowSizeMsg arrives
	p.Width = 60

	status := "Ingesting..."
	if config.DryRun {
		status = "Planning (dry run)..."
	}

	return model{
		config:       config,
		root:         root,
		currentPhase: phaseIngesting,
		spinner:      s,
		progress:     p,
		statusMsg:    status,
		progressChan: progressChan,
		cancel:       cancel,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		waitForProgress(m.progressChan),
	)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		// Account for: left margin (2) + suffix text like " 100% (9999/9999 files)" (~30)
		progressWidth := msg.Width - 35
		if progressWidth < 20 {
			progressWidth = 20
		}
		m.progress.Width = progressWidth
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			// The file being processed is finished before the run stops.
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		case "enter":
			if m.currentPhase == phaseDone {
				return m, tea.Quit
			}
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progressMsg:
		m.scanProgress = ScanProgress(msg)
		return m, waitForProgress(m.progressChan)

	case ingestDoneMsg:
		m.currentPhase = phaseDone
		m.statusMsg = fmt.Sprintf("Complete! %d files placed, %d left in place",
			m.placed(), m.scanProgress.Errors)
		return m, nil
	}

	return m, nil
}

func (m model) placed() int {
	p := m.scanProgress
	return p.Images + p.Videos + p.Sidecars + p.Others
}

func (m model) View() string {
	var b strings.Builder

	b.WriteString("\n")

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("86")).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62")).
		Padding(0, 1).
		MarginLeft(2)

	b.WriteString(titleStyle.Render("Media Ingest"))
	b.WriteString("\n\n")

	configStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		MarginLeft(2)
	modeStr := strings.ToUpper(string(m.config.Mode))
	if m.config.DryRun {
		modeStr = "DRY RUN"
	}
	b.WriteString(configStyle.Render(fmt.Sprintf(
		"%s → %s | %s",
		truncatePath(m.root, 25),
		truncatePath(m.config.LibraryBase, 25),
		modeStr,
	)))
	b.WriteString("\n\n")

	switch m.currentPhase {
	case phaseIngesting:
		b.WriteString(fmt.Sprintf("  %s %s\n\n", m.spinner.View(), m.statusMsg))

		if m.scanProgress.TotalFiles > 0 {
			percent := float64(m.scanProgress.ProcessedFiles) / float64(m.scanProgress.TotalFiles)
			if percent > 1 {
				percent = 1
			}

			b.WriteString("  ")
			b.WriteString(m.progress.ViewAs(percent))
			b.WriteString(fmt.Sprintf(" %d%% (%d/%d files)\n\n",
				int(percent*100),
				m.scanProgress.ProcessedFiles,
				m.scanProgress.TotalFiles))
		}

		b.WriteString(m.renderCounts())

		if m.scanProgress.CurrentFile != "" {
			maxLen := m.width - 20
			if maxLen < 40 {
				maxLen = 40
			}
			fileStyle := lipgloss.NewStyle().
				Foreground(lipgloss.Color("240")).
				Italic(true).
				MarginLeft(2)
			b.WriteString(fmt.Sprintf("\n%s", fileStyle.Render(truncatePath(m.scanProgress.CurrentFile, maxLen))))
		}

	case phaseDone:
		doneStyle := lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true).
			MarginLeft(2)
		b.WriteString(doneStyle.Render("✓ " + m.statusMsg))
		b.WriteString("\n\n")
		b.WriteString(m.renderCounts())
	}

	if m.scanProgress.LastWarning != "" {
		warnStyle := lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			MarginLeft(2)
		b.WriteString("\n\n")
		b.WriteString(warnStyle.Render("last warning: " + truncatePath(m.scanProgress.LastWarning, 100)))
	}

	b.WriteString("\n\n")
	helpStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		MarginLeft(2)
	if m.currentPhase == phaseDone {
		b.WriteString(helpStyle.Render("enter: quit • q: quit"))
	} else {
		b.WriteString(helpStyle.Render("q: stop after the current file"))
	}
	b.WriteString("\n")

	return b.String()
}

func (m model) renderCounts() string {
	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62")).
		Padding(0, 1).
		MarginLeft(2)
	p := m.scanProgress
	return boxStyle.Render(fmt.Sprintf(
		"Images: %d • Videos: %d • Sidecars: %d • Other: %d\nDuplicates: %d • Left in place: %d",
		p.Images, p.Videos, p.Sidecars, p.Others, p.Duplicates, p.Errors,
	))
}

// waitForProgress polls the progress channel and sends updates
func waitForProgress(progressChan <-chan ScanProgress) tea.Cmd {
	return func() tea.Msg {
		prog, ok := <-progressChan
		if !ok {
			return ingestDoneMsg{}
		}
		return progressMsg(prog)
	}
}

// runTUI runs the session in the background and shows its progress until
// the user leaves the view.
func runTUI(session *Session, root string) (Summary, error) {
	total, err := session.CountFiles(root)
	if err != nil {
		return Summary{}, err
	}

	progressChan := make(chan ScanProgress, 100)
	session.SetProgress(progressChan, total)

	type result struct {
		sum Summary
		err error
	}
	done := make(chan result, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sum, err := session.IngestContext(ctx, root)
		close(progressChan)
		done <- result{sum, err}
	}()

	p := tea.NewProgram(initialModel(session.cfg, root, progressChan, cancel), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		cancel()
		<-done
		return Summary{}, err
	}

	res := <-done
	return res.sum, res.err
}

// truncatePath shortens a file path for display
func truncatePath(path string, maxLen int) string {
	if len(path) <= maxLen {
		return path
	}

	if maxLen > 10 {
		return "..." + path[len(path)-maxLen+3:]
	}

	return path[:maxLen]
}
