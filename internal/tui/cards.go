package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/emiliopalmerini/abcta/internal/domain"
	"github.com/emiliopalmerini/abcta/internal/util"
)

// VariantCard displays the totals of one variant.
type VariantCard struct {
	Variant string
	Lines   [][2]string
}

// NewVariantCard builds a card from a variant summary.
func NewVariantCard(v domain.VariantSummary) VariantCard {
	rates := v.ComputeRates()
	return VariantCard{
		Variant: v.Variant,
		Lines: [][2]string{
			{"Impressions", util.FormatNumber(v.Impressions)},
			{"Clicks", util.FormatNumber(v.Clicks)},
			{"Sessions", util.FormatNumber(v.Sessions)},
			{"CTR", util.FormatPercent(rates.ClickThroughRate)},
			{"Clicks/session", fmt.Sprintf("%.2f", rates.ClicksPerSession)},
		},
	}
}

// View renders the card at the given width.
func (c VariantCard) View(width int) string {
	styles := Default()
	card := styles.Card.Width(width)

	accent := Cyan
	if c.Variant == "treatment" {
		accent = Orange
	}
	rows := []string{lipgloss.NewStyle().Bold(true).Foreground(accent).Render(c.Variant)}
	for _, l := range c.Lines {
		rows = append(rows, fmt.Sprintf("%s %s", styles.Muted.Render(l[0]+":"), styles.Bold.Render(l[1])))
	}
	return card.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

// RenderVariantCards lays cards side by side, two per row.
func RenderVariantCards(cards []VariantCard, totalWidth int) string {
	if len(cards) == 0 {
		return ""
	}
	if totalWidth <= 0 {
		totalWidth = 80
	}

	cardWidth := (totalWidth - 4) / 2
	if cardWidth < 24 {
		cardWidth = 24
	}

	var rows []string
	for i := 0; i < len(cards); i += 2 {
		rowCards := []string{cards[i].View(cardWidth)}
		if i+1 < len(cards) {
			rowCards = append(rowCards, cards[i+1].View(cardWidth))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, rowCards...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}
