package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/rdar-lab/ai-file-organizer/internal/core/domain"
)

type Styles struct {
	Title   lipgloss.Style
	Label   lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Box     lipgloss.Style
}

func DefaultStyles() Styles {
	return Styles{
		Title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED")),
		Label:   lipgloss.NewStyle().Width(18),
		Muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086")),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color("#A6E3A1")),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color("#F9E2AF")),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color("#F38BA8")),
		Box: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#45475A")).
			Padding(0, 1),
	}
}

// RenderSummary lists the run counters and the per-category counts in label
// order.
func RenderSummary(styles Styles, stats domain.RunStats, categories domain.Categories, dryRun bool) string {
	title := "Organization Complete!"
	if stats.Cancelled {
		title = "Organization Cancelled"
	}
	if dryRun {
		title += " (dry run)"
	}

	var b strings.Builder
	b.WriteString(styles.Title.Render(title))
	b.WriteString("\n")
	row := func(label, value string) {
		b.WriteString(styles.Label.Render(label))
		b.WriteString(value)
		b.WriteString("\n")
	}
	row("Total files:", fmt.Sprint(stats.TotalFiles))
	row("Processed:", styles.Success.Render(fmt.Sprint(stats.Processed)))
	failed := fmt.Sprint(stats.Failed)
	if stats.Failed > 0 {
		failed = styles.Error.Render(failed)
	}
	row("Failed:", failed)
	row("Duration:", stats.Duration.Round(time.Millisecond).String())
	b.WriteString("Categorization:\n")
	for _, name := range categories.Names() {
		row("  "+name+":", fmt.Sprintf("%d files", stats.ByCategory[name]))
	}
	return styles.Box.Render(strings.TrimRight(b.String(), "\n"))
}
