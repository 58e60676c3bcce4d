// Package tui renders experiment summaries in the terminal.
package tui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/emiliopalmerini/abcta/internal/domain"
)

// LoadFunc fetches the current summary of an experiment.
type LoadFunc func(ctx context.Context) (domain.ExperimentSummary, error)

// Watch is a live per-variant view that refreshes on an interval.
type Watch struct {
	title    string
	source   string
	load     LoadFunc
	interval time.Duration

	summary   domain.ExperimentSummary
	updatedAt time.Time
	loading   bool
	err       error
	width     int
	now       func() time.Time
}

func NewWatch(title, source string, interval time.Duration, load LoadFunc) *Watch {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Watch{
		title:    title,
		source:   source,
		load:     load,
		interval: interval,
		loading:  true,
		now:      time.Now,
	}
}

// Init implements tea.Model
func (w *Watch) Init() tea.Cmd {
	return tea.Batch(w.fetch(), w.tick())
}

func (w *Watch) fetch() tea.Cmd {
	return func() tea.Msg {
		summary, err := w.load(context.Background())
		if err != nil {
			return summaryErrorMsg{fmt.Errorf("load summary: %w", err)}
		}
		return summaryLoadedMsg{summary}
	}
}

func (w *Watch) tick() tea.Cmd {
	return tea.Tick(w.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Update implements tea.Model
func (w *Watch) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case summaryLoadedMsg:
		w.loading = false
		w.err = nil
		w.summary = msg.summary
		w.updatedAt = w.now()
		return w, nil

	case summaryErrorMsg:
		w.loading = false
		w.err = msg.err
		return w, nil

	case tickMsg:
		return w, tea.Batch(w.fetch(), w.tick())

	case tea.WindowSizeMsg:
		w.width = msg.Width
		return w, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return w, tea.Quit
		case "r":
			w.loading = true
			return w, w.fetch()
		}
	}
	return w, nil
}

// View implements tea.Model
func (w *Watch) View() string {
	styles := Default()
	title := styles.Title.Render(w.title)
	help := styles.Help.Render("r: refresh  q: quit")

	var body string
	switch {
	case w.err != nil:
		body = styles.Error.Render(fmt.Sprintf("Error: %v", w.err))
	case w.loading && w.updatedAt.IsZero():
		body = styles.Muted.Render("Loading summary...")
	case len(w.summary.Variants) == 0:
		body = styles.Muted.Render("No events recorded yet.")
	default:
		cards := make([]VariantCard, 0, len(w.summary.Variants))
		for _, v := range w.summary.Variants {
			cards = append(cards, NewVariantCard(v))
		}
		body = RenderVariantCards(cards, w.width)
	}

	status := styles.Muted.Render(fmt.Sprintf("source: %s", w.source))
	if !w.updatedAt.IsZero() {
		status = styles.Muted.Render(fmt.Sprintf("source: %s  updated: %s", w.source, w.updatedAt.Format("15:04:05")))
	}

	return lipgloss.JoinVertical(lipgloss.Left, title, status, "", body, help)
}

type summaryLoadedMsg struct {
	summary domain.ExperimentSummary
}

type summaryErrorMsg struct {
	err error
}

type tickMsg time.Time
