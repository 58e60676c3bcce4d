package tui

import (
	"sync"

	"github.com/charmbracelet/lipgloss"
)

var (
	Purple       = lipgloss.Color("#A855F7")
	BrightPurple = lipgloss.Color("#C084FC")

	White     = lipgloss.Color("#FFFFFF")
	LightGray = lipgloss.Color("#9CA3AF")
	DimGray   = lipgloss.Color("#6B7280")
	DarkGray  = lipgloss.Color("#374151")

	Success = lipgloss.Color("#22C55E")
	Error   = lipgloss.Color("#EF4444")
	Cyan    = lipgloss.Color("#06B6D4")
	Orange  = lipgloss.Color("#F97316")
)

// Styles contains the shared terminal styles.
type Styles struct {
	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Muted    lipgloss.Style
	Bold     lipgloss.Style
	Help     lipgloss.Style
	Card     lipgloss.Style
	Banner   lipgloss.Style
	Error    lipgloss.Style
	Success  lipgloss.Style
}

var (
	defaultStyles *Styles
	once          sync.Once
)

// Default returns the singleton default Styles instance
func Default() *Styles {
	once.Do(func() {
		defaultStyles = newStyles()
	})
	return defaultStyles
}

func newStyles() *Styles {
	return &Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(White).
			MarginBottom(1),

		Subtitle: lipgloss.NewStyle().
			Foreground(Purple).
			Bold(true),

		Muted: lipgloss.NewStyle().
			Foreground(DimGray),

		Bold: lipgloss.NewStyle().
			Bold(true).
			Foreground(White),

		Help: lipgloss.NewStyle().
			Foreground(DimGray).
			MarginTop(1),

		Card: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(DarkGray).
			Padding(1, 2),

		Banner: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Purple).
			Foreground(BrightPurple).
			Bold(true).
			Padding(0, 2),

		Error: lipgloss.NewStyle().
			Foreground(Error),

		Success: lipgloss.NewStyle().
			Foreground(Success),
	}
}

// Banner renders a boxed heading followed by muted detail lines.
func Banner(title string, lines ...string) string {
	s := Default()
	parts := []string{s.Banner.Render(title)}
	for _, l := range lines {
		parts = append(parts, s.Muted.Render(l))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}
