package excel

import (
	"context"
	"fmt"
	"sort"

	"enemtri/domain/stats"
	"enemtri/internal"
	"enemtri/ports"

	"golang.org/x/sync/errgroup"
)

// importConcurrency bounds parallel per-year writes to the store.
const importConcurrency = 4

// Importer loads spreadsheet statistics into a statistics store.
type Importer struct {
	store  ports.StatisticsStore
	logger *internal.Logger
}

// ImportSummary reports what one import run wrote.
type ImportSummary struct {
	Years      []int
	ScoreRows  int
	AnswerRows int
}

// NewImporter creates an importer writing through the given store.
func NewImporter(store ports.StatisticsStore, logger *internal.Logger) *Importer {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Importer{store: store, logger: logger.WithComponent("excel-import")}
}

// Import reads the statistics file and upserts every year it contains.
// Years are written concurrently; the first failure aborts the run.
func (i *Importer) Import(ctx context.Context, filePath string) (ImportSummary, error) {
	rows, err := NewStatsReader(filePath).ReadRows()
	if err != nil {
		return ImportSummary{}, err
	}

	scores, answers, summary := groupRows(rows)
	i.logger.Info("importing statistics for %d year(s) from %s", len(summary.Years), filePath)

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
			i.logger.Debug("imported year %d", year)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return ImportSummary{}, err
	}

	i.logger.Info("import complete: %d score rows, %d answer rows", summary.ScoreRows, summary.AnswerRows)
	return summary, nil
}

// groupRows splits parsed rows into per-year score and answer records.
func groupRows(rows []StatRow) (map[int]stats.YearScoreStats, map[int]stats.YearAnswerStats, ImportSummary) {
	scores := make(map[int]stats.YearScoreStats)
	answers := make(map[int]stats.YearAnswerStats)
	var summary ImportSummary

	for _, row := range rows {
		percentiles := stats.Percentiles{P25: row.P25, P50: row.P50, P75: row.P75, P90: row.P90}
		switch row.Kind {
		case KindScore:
			if scores[row.Year] == nil {
				scores[row.Year] = make(stats.YearScoreStats)
			}
			scores[row.Year][row.Area] = stats.AreaScoreStats{
				Mean: row.Mean, Std: row.Std, Min: row.Min, Max: row.Max, Percentiles: percentiles,
			}
			summary.ScoreRows++
		case KindAnswers:
			if answers[row.Year] == nil {
				answers[row.Year] = make(stats.YearAnswerStats)
			}
			answers[row.Year][row.Area] = stats.AreaAnswerStats{
				Mean: row.Mean, Std: row.Std, Min: row.Min, Max: row.Max, Percentiles: percentiles,
			}
			summary.AnswerRows++
		}
	}

	yearSet := make(map[int]bool)
	for year := range scores {
		yearSet[year] = true
	}
	for year := range answers {
		yearSet[year] = true
	}
	for year := range yearSet {
		summary.Years = append(summary.Years, year)
	}
	sort.Ints(summary.Years)
	return scores, answers, summary
}
