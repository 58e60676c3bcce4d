package templates

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"

	"github.com/emiliopalmerini/abcta/internal/util"
)

// SummaryPage is the view model of the experiment summary page.
type SummaryPage struct {
	TestID   string
	TestName string
	Source   string
	Variants []VariantRow
	Recent   []RecentEvent
}

type VariantRow struct {
	Variant     string
	Impressions int64
	Clicks      int64
	Sessions    int64
	CTR         float64
	Events      []EventRow
}

type EventRow struct {
	Name  string
	Count int64
}

type RecentEvent struct {
	Name       string
	Variant    string
	SessionID  string
	ReceivedAt string
}

const pageStyle = `body{font-family:system-ui,sans-serif;margin:2rem;color:#1f2328}
table{border-collapse:collapse;margin-bottom:2rem}
th,td{border:1px solid #d0d7de;padding:.35rem .75rem;text-align:left}
th{background:#f6f8fa}
.muted{color:#656d76}`

// Summary renders the per-variant totals of one experiment.
func Summary(p SummaryPage) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		title := p.TestName
		if title == "" {
			title = p.TestID
		}

		if _, err := fmt.Fprintf(w,
			"<!DOCTYPE html><html lang=\"en\"><head><meta charset=\"utf-8\"><title>%s</title><style>%s</style></head><body>",
			templ.EscapeString(title), pageStyle); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "<h1>%s</h1><p class=\"muted\">%s &middot; source: %s</p>",
			templ.EscapeString(title), templ.EscapeString(p.TestID), templ.EscapeString(p.Source)); err != nil {
			return err
		}

		if len(p.Variants) == 0 {
			if _, err := io.WriteString(w, "<p>No events recorded yet.</p>"); err != nil {
				return err
			}
		} else if err := variantTable(w, p.Variants); err != nil {
			return err
		}

		if len(p.Recent) > 0 {
			if err := recentTable(w, p.Recent); err != nil {
				return err
			}
		}

		_, err := io.WriteString(w, "</body></html>")
		return err
	})
}

func variantTable(w io.Writer, rows []VariantRow) error {
	if _, err := io.WriteString(w, "<h2>Variants</h2><table><thead><tr><th>Variant</th><th>Impressions</th><th>Clicks</th><th>Sessions</th><th>CTR</th><th>Events</th></tr></thead><tbody>"); err != nil {
		return err
	}
	for _, r := range rows {
		if _, err := fmt.Fprintf(w, "<tr data-variant=\"%s\"><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>",
			templ.EscapeString(r.Variant), templ.EscapeString(r.Variant),
			util.FormatNumber(r.Impressions), util.FormatNumber(r.Clicks), util.FormatNumber(r.Sessions),
			util.FormatPercent(r.CTR)); err != nil {
			return err
		}
		for _, e := range r.Events {
			if _, err := fmt.Fprintf(w, "%s: %d<br>", templ.EscapeString(e.Name), e.Count); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, "</td></tr>"); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "</tbody></table>")
	return err
}

func recentTable(w io.Writer, events []RecentEvent) error {
	if _, err := io.WriteString(w, "<h2>Recent events</h2><table><thead><tr><th>Received</th><th>Event</th><th>Variant</th><th>Session</th></tr></thead><tbody>"); err != nil {
		return err
	}
	for _, e := range events {
		if _, err := fmt.Fprintf(w, "<tr><td>%s</td><td>%s</td><td>%s</td><td>%s</td></tr>",
			templ.EscapeString(e.ReceivedAt), templ.EscapeString(e.Name),
			templ.EscapeString(e.Variant), templ.EscapeString(e.SessionID)); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "</tbody></table>")
	return err
}
