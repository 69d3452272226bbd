// Package report renders a simulation result as a localized markdown
// document, with optional HTML conversion for the HTTP API.
package report

import (
	"fmt"
	"sort"
	"strings"

	"enemtri/domain/exam"
	"enemtri/internal/estimation"
	"enemtri/internal/i18n"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// Data is everything one report covers. Factors and PreviousScores are
// optional sections; they are skipped when empty.
type Data struct {
	Year           int
	Result         *exam.Result
	Factors        map[exam.Area][]estimation.FactorPoint
	PreviousScores map[exam.Area]map[int]float64
}

// Builder renders reports in one locale.
type Builder struct {
	tr *i18n.Translator
}

// NewBuilder creates a report builder using the given translator.
func NewBuilder(tr *i18n.Translator) *Builder {
	return &Builder{tr: tr}
}

// Markdown renders the full report as a markdown document.
func (b *Builder) Markdown(data Data) string {
	var sb strings.Builder

	sb.WriteString("# " + b.tr.Tf("report", "title", map[string]string{"year": fmt.Sprintf("%d", data.Year)}) + "\n\n")

	b.writeScores(&sb, data.Result)
	b.writeRanges(&sb, data.Result)
	b.writeAverages(&sb, data.Result)
	b.writeFactors(&sb, data.Factors)
	b.writeComparison(&sb, data.PreviousScores)

	sb.WriteString("---\n\n" + b.tr.T("report", "footer") + "\n")
	return sb.String()
}

// HTML renders the report converted to an HTML fragment.
func (b *Builder) HTML(data Data) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions)
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags})
	return markdown.ToHTML([]byte(b.Markdown(data)), p, renderer)
}

func (b *Builder) writeScores(sb *strings.Builder, result *exam.Result) {
	sb.WriteString("## " + b.tr.T("report", "sections.scores") + "\n\n")
	writeTableHeader(sb,
		b.tr.T("report", "columns.area"),
		b.tr.T("report", "columns.correct"),
		b.tr.T("report", "columns.score"),
	)
	for _, area := range exam.ObjectiveAreas() {
		as := result.Areas[area]
		writeTableRow(sb, area.Label(),
			fmt.Sprintf("%d/%d", as.CorrectAnswers, as.TotalQuestions),
			formatScore(as.Score),
		)
	}
	writeTableRow(sb, b.tr.T("report", "rows.essay"), "-", formatScore(result.EssayScore))
	sb.WriteString("\n")
}

func (b *Builder) writeRanges(sb *strings.Builder, result *exam.Result) {
	hasRange := false
	for _, area := range exam.ObjectiveAreas() {
		if result.Areas[area].Range != nil {
			hasRange = true
			break
		}
	}
	if !hasRange {
		return
	}

	sb.WriteString("## " + b.tr.T("report", "sections.ranges") + "\n\n")
	writeTableHeader(sb,
		b.tr.T("report", "columns.area"),
		b.tr.T("report", "columns.pessimistic"),
		b.tr.T("report", "columns.calculated"),
		b.tr.T("report", "columns.optimistic"),
	)
	for _, area := range exam.ObjectiveAreas() {
		r := result.Areas[area].Range
		if r == nil {
			writeTableRow(sb, area.Label(), "-", "-", "-")
			continue
		}
		writeTableRow(sb, area.Label(),
			formatScore(r.Pessimistic), formatScore(r.Calculated), formatScore(r.Optimistic))
	}
	sb.WriteString("\n")
}

func (b *Builder) writeAverages(sb *strings.Builder, result *exam.Result) {
	sb.WriteString("## " + b.tr.T("report", "sections.averages") + "\n\n")
	sb.WriteString(fmt.Sprintf("- %s: **%s**\n", b.tr.T("report", "rows.average"), formatScore(result.AverageScore())))
	sb.WriteString(fmt.Sprintf("- %s: **%s**\n", b.tr.T("report", "rows.objective_average"), formatScore(result.ObjectiveAverage())))
	sb.WriteString("\n")
}

func (b *Builder) writeFactors(sb *strings.Builder, factors map[exam.Area][]estimation.FactorPoint) {
	if len(factors) == 0 {
		return
	}

	sb.WriteString("## " + b.tr.T("report", "sections.factors") + "\n\n")
	for _, area := range exam.ObjectiveAreas() {
		points := factors[area]
		if len(points) == 0 {
			continue
		}
		sb.WriteString("### " + area.Label() + "\n\n")
		writeTableHeader(sb,
			b.tr.T("report", "columns.year"),
			b.tr.T("report", "columns.global_factor"),
			b.tr.T("report", "columns.adjusted_factor"),
		)
		for _, point := range points {
			writeTableRow(sb, fmt.Sprintf("%d", point.Year),
				fmt.Sprintf("%.2f", point.Global), fmt.Sprintf("%.2f", point.Adjusted))
		}
		sb.WriteString("\n")
	}
}

func (b *Builder) writeComparison(sb *strings.Builder, previous map[exam.Area]map[int]float64) {
	if len(previous) == 0 {
		return
	}

	sb.WriteString("## " + b.tr.T("report", "sections.comparison") + "\n\n")
	writeTableHeader(sb,
		b.tr.T("report", "columns.area"),
		b.tr.T("report", "columns.year"),
		b.tr.T("report", "columns.score"),
	)
	for _, area := range exam.ObjectiveAreas() {
		byYear := previous[area]
		for _, year := range sortedYears(byYear) {
			writeTableRow(sb, area.Label(), fmt.Sprintf("%d", year), formatScore(byYear[year]))
		}
	}
	sb.WriteString("\n")
}

func writeTableHeader(sb *strings.Builder, columns ...string) {
	sb.WriteString("| " + strings.Join(columns, " | ") + " |\n")
	separators := make([]string, len(columns))
	for i := range separators {
		separators[i] = "---"
	}
	sb.WriteString("| " + strings.Join(separators, " | ") + " |\n")
}

func writeTableRow(sb *strings.Builder, cells ...string) {
	sb.WriteString("| " + strings.Join(cells, " | ") + " |\n")
}

func formatScore(score float64) string {
	return fmt.Sprintf("%.1f", score)
}

func sortedYears(byYear map[int]float64) []int {
	years := make([]int, 0, len(byYear))
	for year := range byYear {
		years = append(years, year)
	}
	sort.Ints(years)
	return years
}
