package insight

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/hearthkeep/hearthkeep/internal/cli"
	"github.com/hearthkeep/hearthkeep/internal/model"
	"github.com/hearthkeep/hearthkeep/internal/service"
)

// Formatter renders insights and category overviews for the terminal.
type Formatter struct {
	now func() time.Time
}

// NewFormatter creates a terminal formatter.
func NewFormatter() *Formatter {
	return &Formatter{now: time.Now}
}

// FormatList renders the active insights, one block each, most urgent
// first (the storage layer already orders them).
func (f *Formatter) FormatList(insights []model.Insight) string {
	if len(insights) == 0 {
		return cli.FormatSuccess("No active insights. Everything looks in order.")
	}

	var sections []string
	sections = append(sections, cli.FormatTitle(fmt.Sprintf("Household insights (%d)", len(insights))))
	for _, in := range insights {
		sections = append(sections, f.FormatInsight(in))
	}
	return strings.Join(sections, "\n\n")
}

// FormatInsight renders one insight block.
func (f *Formatter) FormatInsight(in model.Insight) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s %s %s\n",
		priorityBadge(in.Priority),
		cli.BoldStyle.Render(in.Title),
		cli.SubtleStyle.Render("["+string(in.Type)+"]"))

	if in.EntityName != "" {
		fmt.Fprintf(&b, "%s\n", cli.SubtitleStyle.Render(fmt.Sprintf("%s (%s)", in.EntityName, in.EntityType)))
	}
	if in.Description != "" {
		fmt.Fprintf(&b, "%s\n", in.Description)
	}
	if in.Action != "" {
		fmt.Fprintf(&b, "%s %s\n", cli.BulbIcon, cli.InfoStyle.Render(in.Action))
	}

	meta := []string{fmt.Sprintf("id: %s", shortID(in.ID))}
	if len(in.RelatedDocs) > 0 {
		meta = append(meta, fmt.Sprintf("%d documents", len(in.RelatedDocs)))
	}
	if in.ExpiresAt != nil {
		meta = append(meta, fmt.Sprintf("expires %s", in.ExpiresAt.Format("2006-01-02")))
	}
	b.WriteString(cli.SubtleStyle.Render(strings.Join(meta, " · ")))

	return b.String()
}

// FormatOverview renders the per-category dashboard table.
func (f *Formatter) FormatOverview(rows []service.CategoryOverview) string {
	if len(rows) == 0 {
		return cli.FormatInfo("No categorized documents yet.")
	}

	var b strings.Builder
	b.WriteString(cli.FormatTitle("Category overview"))
	b.WriteString("\n")

	header := fmt.Sprintf("%-14s %10s %10s %18s", "Category", "Documents", "Insights", "High/Med/Low")
	b.WriteString(cli.BoldStyle.Render(header))
	b.WriteString("\n")

	for _, row := range rows {
		counts := fmt.Sprintf("%d/%d/%d", row.HighPriority, row.MediumPriority, row.LowPriority)
		line := fmt.Sprintf("%-14s %10d %10d %18s",
			row.Category, row.DocumentCount, row.ActiveInsights, counts)
		if row.HighPriority > 0 {
			line = cli.HighStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func priorityBadge(p model.Priority) string {
	label := strings.ToUpper(string(p))
	var style lipgloss.Style
	switch p {
	case model.PriorityHigh:
		style = cli.HighStyle
	case model.PriorityMedium:
		style = cli.MediumStyle
	default:
		style = cli.LowStyle
	}
	return style.Render("[" + label + "]")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
