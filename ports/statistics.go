package ports

import (
	"context"

	"enemtri/domain/exam"
	"enemtri/domain/stats"
)

// StatisticsSource provides read access to cached population statistics.
// Lookups are keyed by year (and area within the returned record); a missing
// year is reported through the boolean, never as an error.
type StatisticsSource interface {
	// ScoreStats returns the population score statistics for one year.
	ScoreStats(ctx context.Context, year int) (stats.YearScoreStats, bool, error)

	// AnswerStats returns the population correct-answer statistics for one year.
	AnswerStats(ctx context.Context, year int) (stats.YearAnswerStats, bool, error)

	// AreaScoreStats is the two-key (area x year) score lookup.
	AreaScoreStats(ctx context.Context, area exam.Area, year int) (stats.AreaScoreStats, bool, error)

	// ScoreYears lists the years with score statistics, ascending.
	ScoreYears(ctx context.Context) ([]int, error)
}

// StatisticsStore is a StatisticsSource that also accepts writes, used by
// importers and by the microdata processor when it derives estimates.
type StatisticsStore interface {
	StatisticsSource

	SaveScoreStats(ctx context.Context, year int, record stats.YearScoreStats) error
	SaveAnswerStats(ctx context.Context, year int, record stats.YearAnswerStats) error
}
