package cli

import (
	"fmt"
	"strings"

	"github.com/Veraticus/hts-derivatives/internal/app"
	"github.com/Veraticus/hts-derivatives/internal/common"
	"github.com/Veraticus/hts-derivatives/internal/model"
	"github.com/charmbracelet/lipgloss"
)

// Confidence legend shown under compliance results.
var confidenceLegend = []struct {
	level string
	text  string
}{
	{"High", "Exact code or rule match found in the document."},
	{"Medium", "Matches a general heading or category description."},
	{"Low", "Inferred match based on context or partial keywords."},
}

// RenderAnalysis formats a compliance result for code.
func RenderAnalysis(code string, result model.AnalysisResult) string {
	var b strings.Builder

	switch result.Verdict() {
	case model.VerdictNotDerivative:
		b.WriteString(BoldStyle.Render(fmt.Sprintf("HTS Code %s - Not a Derivative", code)))
		b.WriteString("\n")
		b.WriteString(SubtleStyle.Render("This code does not appear to fall under any monitored derivative category in the provided document."))
		b.WriteString("\n\n")
		writeReasoning(&b, result.Reasoning)
		return RenderBox(SearchIcon+" Compliance Check", strings.TrimRight(b.String(), "\n"))

	case model.VerdictValidNoMatch:
		b.WriteString(InfoStyle.Bold(true).Render(fmt.Sprintf("HTS Code %s - Valid (No Derivative Match)", code)))
		b.WriteString("\n")
		b.WriteString(SubtleStyle.Render("This HTS code is valid but does not fall under any derivative categories in the current reference."))
		b.WriteString("\n\n")
		writeReasoning(&b, result.Reasoning)
		return RenderBox(SearchIcon+" Compliance Check", strings.TrimRight(b.String(), "\n"))
	}

	b.WriteString(WarningStyle.Bold(true).Render(fmt.Sprintf("HTS Code %s - Derivative Match Found", code)))
	b.WriteString("  ")
	b.WriteString(metalSummary(result.Matches))
	b.WriteString("\n\n")

	for i, m := range result.SortedMatches() {
		fmt.Fprintf(&b, "%d. %s %s  %s\n",
			i+1,
			BoldStyle.Render(m.DerivativeCategory),
			MetalStyle(string(m.MetalType)).Render(string(m.MetalType)),
			ConfidenceStyle(string(m.Confidence)).Render(string(m.Confidence)+" confidence"))
		if detail := strings.TrimSpace(m.MatchDetail); detail != "" {
			fmt.Fprintf(&b, "   %s %s\n", SubtleStyle.Render("Detail:"), detail)
		}
	}
	b.WriteString("\n")
	writeReasoning(&b, result.Reasoning)

	for _, l := range confidenceLegend {
		fmt.Fprintf(&b, "%s %s\n", ConfidenceStyle(l.level).Render(l.level+":"), SubtleStyle.Render(l.text))
	}

	return RenderBox(SearchIcon+" Compliance Check", strings.TrimRight(b.String(), "\n"))
}

func writeReasoning(b *strings.Builder, reasoning string) {
	reasoning = strings.TrimSpace(reasoning)
	if reasoning == "" {
		return
	}
	b.WriteString(BoldStyle.Render("Analysis Reasoning:"))
	b.WriteString("\n")
	b.WriteString(reasoning)
	b.WriteString("\n\n")
}

// metalSummary names the programs a set of matches touches.
func metalSummary(matches []model.DerivativeMatch) string {
	var aluminum, steel bool
	for _, m := range matches {
		switch m.MetalType {
		case model.MetalAluminum:
			aluminum = true
		case model.MetalSteel:
			steel = true
		case model.MetalBoth:
			aluminum, steel = true, true
		}
	}
	switch {
	case aluminum && steel:
		return MetalStyle("Both").Render("Aluminum + Steel")
	case aluminum:
		return MetalStyle("Aluminum").Render("Aluminum")
	case steel:
		return MetalStyle("Steel").Render("Steel")
	default:
		return MetalStyle("Unknown").Render("Unknown")
	}
}

// RenderProvision formats a lookup result. The description goes through md,
// which may be nil for plain output.
func RenderProvision(result model.ProvisionResult, md *MarkdownRenderer) string {
	if !result.Found {
		var b strings.Builder
		b.WriteString(BoldStyle.Render(fmt.Sprintf("Provision %q Not Found", result.Code)))
		b.WriteString("\n")
		b.WriteString(SubtleStyle.Render("The requested HTS provision or heading could not be located in the current reference document."))
		if desc := strings.TrimSpace(result.Description); desc != "" {
			b.WriteString("\n\n")
			b.WriteString("Note: " + desc)
		}
		return RenderBox(BookIcon+" Provision Lookup", b.String())
	}

	header := lipgloss.JoinHorizontal(lipgloss.Center,
		BoldStyle.Render(result.Code),
		"  ",
		MetalStyle(result.MetalType).Render(strings.ToUpper(result.MetalType)),
	)
	body := strings.TrimRight(md.Render(result.Description), "\n")
	return RenderBox(BookIcon+" Provision Detail", header+"\n\n"+body)
}

// RenderHeadings formats extracted headings as a markdown table through md,
// or as an aligned plain table when md is nil.
func RenderHeadings(headings []model.HeadingInfo, md *MarkdownRenderer) string {
	if len(headings) == 0 {
		return FormatInfo("No headings found in the reference document.")
	}

	if md != nil {
		var b strings.Builder
		b.WriteString("| Heading | Description | Details |\n|---|---|---|\n")
		for _, h := range headings {
			fmt.Fprintf(&b, "| %s | %s | %s |\n", escapeCell(h.Heading), escapeCell(h.Description), escapeCell(h.Details))
		}
		return md.Render(b.String())
	}

	rows := make([][]string, 0, len(headings))
	for _, h := range headings {
		rows = append(rows, []string{h.Heading, h.Description, h.Details})
	}
	return renderTable([]string{"Heading", "Description", "Details"}, rows)
}

func escapeCell(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "|", `\|`), "\n", " ")
}

// RenderEntries formats manual entries with short IDs.
func RenderEntries(entries []model.ManualEntry) string {
	if len(entries) == 0 {
		return FormatInfo("No manual entries. Add one with: hts entries add")
	}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{shortID(e.ID), e.Code, e.Category, string(e.MetalType), e.Description})
	}
	return renderTable([]string{"ID", "Code", "Category", "Metal", "Rule"}, rows)
}

// RenderHistory formats recent checks, most recent first.
func RenderHistory(history []model.HistoryItem) string {
	if len(history) == 0 {
		return SubtleStyle.Render("No recent checks.")
	}
	parts := make([]string, 0, len(history))
	for _, h := range history {
		if h.Found {
			parts = append(parts, WarningStyle.Render(h.Code+" ●"))
		} else {
			parts = append(parts, SubtleStyle.Render(h.Code+" ○"))
		}
	}
	return SubtleStyle.Render("Recent: ") + strings.Join(parts, "  ")
}

// RenderReference summarizes the active reference document.
func RenderReference(ref *model.ReferenceContext) string {
	if ref == nil {
		return FormatWarning("No reference document loaded. Load one with: hts doc load <file>")
	}
	lines := []string{
		fmt.Sprintf("%s %s", BoldStyle.Render("Name:"), ref.Name),
		fmt.Sprintf("%s %s", BoldStyle.Render("Type:"), ref.Kind),
		fmt.Sprintf("%s %s", BoldStyle.Render("Summary:"), ref.Summary()),
	}
	switch {
	case ref.ExtractedHeadings == nil:
		lines = append(lines, SubtleStyle.Render("Headings not scanned yet (hts doc scan)."))
	default:
		lines = append(lines, fmt.Sprintf("%s %d", BoldStyle.Render("Headings:"), len(ref.ExtractedHeadings)))
	}
	return RenderBox(FolderIcon+" Reference Document", strings.Join(lines, "\n"))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// renderTable lays out rows under a header with padded columns.
func renderTable(header []string, rows [][]string) string {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if w := lipgloss.Width(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	var b strings.Builder
	cells := make([]string, len(header))
	for i, h := range header {
		cells[i] = TableCellStyle.Width(widths[i] + 2).Render(h)
	}
	b.WriteString(TableHeaderStyle.Render(lipgloss.JoinHorizontal(lipgloss.Top, cells...)))
	b.WriteString("\n")

	for _, row := range rows {
		for i, cell := range row {
			cells[i] = TableCellStyle.Width(widths[i] + 2).Render(cell)
		}
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cells...))
		b.WriteString("\n")
	}
	return b.String()
}

// RenderBatch formats batch results as a table with one row per code and a
// closing tally.
func RenderBatch(results []app.BatchResult) string {
	rows := make([][]string, 0, len(results))
	var derivative, clean, failed int
	for _, r := range results {
		switch {
		case r.Err != nil:
			failed++
			rows = append(rows, []string{r.Code, ErrorStyle.Render("error"), common.UserMessage(r.Err)})
		case r.Result == nil:
			// Canceled before the worker ran.
			failed++
			rows = append(rows, []string{r.Code, SubtleStyle.Render("skipped"), ""})
		case r.Result.Verdict() == model.VerdictDerivative:
			derivative++
			categories := make([]string, 0, len(r.Result.Matches))
			for _, m := range r.Result.SortedMatches() {
				categories = append(categories, fmt.Sprintf("%s (%s, %s)", m.DerivativeCategory, m.MetalType, m.Confidence))
			}
			rows = append(rows, []string{r.Code, WarningStyle.Render("derivative"), strings.Join(categories, "; ")})
		case r.Result.Verdict() == model.VerdictValidNoMatch:
			clean++
			rows = append(rows, []string{r.Code, SuccessStyle.Render("valid, no match"), ""})
		default:
			clean++
			rows = append(rows, []string{r.Code, SuccessStyle.Render("not a derivative"), ""})
		}
	}

	return renderTable([]string{"Code", "Result", "Detail"}, rows) +
		fmt.Sprintf("\n%d derivative, %d clear, %d failed\n", derivative, clean, failed)
}
