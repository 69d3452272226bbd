package excel

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"enemtri/domain/exam"
	"enemtri/domain/stats"

	"golang.org/x/sync/errgroup"
)

// Raw microdata files carry one row per participant instead of
// pre-aggregated summaries: year, area, then a score and/or a
// correct_answers value. Aggregation happens here.

var rawRequiredColumns = []string{"year", "area"}

type rawSamples struct {
	scores  map[int]map[exam.Area][]float64
	answers map[int]map[exam.Area][]float64
}

// ImportRaw reads a raw microdata file, aggregates the samples per year and
// area, and upserts the resulting statistics.
func (i *Importer) ImportRaw(ctx context.Context, filePath string) (ImportSummary, error) {
	rows, err := readRawFile(filePath)
	if err != nil {
		return ImportSummary{}, err
	}

	scores, answers, summary, err := aggregateRaw(rows)
	if err != nil {
		return ImportSummary{}, err
	}
	i.logger.Info("aggregated raw microdata for %d year(s) from %s", len(summary.Years), filePath)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(importConcurrency)
	for _, year := range summary.Years {
		g.Go(func() error {
			if record, ok := scores[year]; ok {
				if err := i.store.SaveScoreStats(ctx, year, record); err != nil {
					return fmt.Errorf("save score stats for %d: %w", year, err)
				}
			}
			if record, ok := answers[year]; ok {
				if err := i.store.SaveAnswerStats(ctx, year, record); err != nil {
					return fmt.Errorf("save answer stats for %d: %w", year, err)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return ImportSummary{}, err
	}
	return summary, nil
}

func readRawFile(filePath string) ([]map[string]string, error) {
	reader := NewStatsReader(filePath)

	var rows [][]string
	var err error
	switch reader.fileType {
	case "csv":
		rows, err = reader.readCSVRows()
	default:
		rows, err = reader.readExcelRows()
	}
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("microdata file must have a header row and at least one data row")
	}

	columns := make(map[string]int, len(rows[0]))
	for idx, header := range rows[0] {
		columns[strings.ToLower(strings.TrimSpace(header))] = idx
	}
	for _, name := range rawRequiredColumns {
		if _, ok := columns[name]; !ok {
			return nil, fmt.Errorf("microdata file is missing the %q column", name)
		}
	}

	records := make([]map[string]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		record := make(map[string]string, len(columns))
		for name, idx := range columns {
			if idx < len(row) {
				record[name] = strings.TrimSpace(row[idx])
			}
		}
		records = append(records, record)
	}
	return records, nil
}

func aggregateRaw(records []map[string]string) (map[int]stats.YearScoreStats, map[int]stats.YearAnswerStats, ImportSummary, error) {
	samples := rawSamples{
		scores:  make(map[int]map[exam.Area][]float64),
		answers: make(map[int]map[exam.Area][]float64),
	}

	for idx, record := range records {
		year, err := strconv.Atoi(record["year"])
		if err != nil {
			return nil, nil, ImportSummary{}, fmt.Errorf("row %d: invalid year %q", idx+2, record["year"])
		}
		area, err := exam.ParseArea(record["area"])
		if err != nil {
			return nil, nil, ImportSummary{}, fmt.Errorf("row %d: unknown area %q", idx+2, record["area"])
		}

		if raw := record["score"]; raw != "" {
			score, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, nil, ImportSummary{}, fmt.Errorf("row %d: invalid score %q", idx+2, raw)
			}
			addSample(samples.scores, year, area, score)
		}
		if raw := record["correct_answers"]; raw != "" {
			count, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, nil, ImportSummary{}, fmt.Errorf("row %d: invalid correct_answers %q", idx+2, raw)
			}
			addSample(samples.answers, year, area, count)
		}
	}

	scores := make(map[int]stats.YearScoreStats)
	for year, byArea := range samples.scores {
		record := make(stats.YearScoreStats, len(byArea))
		for area, sample := range byArea {
			summary, err := stats.SummarizeScores(sample)
			if err != nil {
				return nil, nil, ImportSummary{}, fmt.Errorf("summarize %s/%d scores: %w", area, year, err)
			}
			record[area] = summary
		}
		scores[year] = record
	}

	answers := make(map[int]stats.YearAnswerStats)
	for year, byArea := range samples.answers {
		record := make(stats.YearAnswerStats, len(byArea))
		for area, sample := range byArea {
			summary, err := stats.SummarizeAnswers(sample)
			if err != nil {
				return nil, nil, ImportSummary{}, fmt.Errorf("summarize %s/%d answers: %w", area, year, err)
			}
			record[area] = summary
		}
		answers[year] = record
	}

	var summary ImportSummary
	yearSet := make(map[int]bool)
	for year, record := range scores {
		yearSet[year] = true
		summary.ScoreRows += len(record)
	}
	for year, record := range answers {
		yearSet[year] = true
		summary.AnswerRows += len(record)
	}
	for year := range yearSet {
		summary.Years = append(summary.Years, year)
	}
	sort.Ints(summary.Years)
	return scores, answers, summary, nil
}

func addSample(dst map[int]map[exam.Area][]float64, year int, area exam.Area, value float64) {
	if dst[year] == nil {
		dst[year] = make(map[exam.Area][]float64)
	}
	dst[year][area] = append(dst[year][area], value)
}
