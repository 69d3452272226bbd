// Package postgres implements the statistics store on Postgres via sqlx,
// used when DATABASE_URL is configured.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"enemtri/domain/exam"
	"enemtri/domain/stats"
	"enemtri/ports"

	"github.com/jmoiron/sqlx"
)

// statisticsRepository implements the StatisticsStore interface
type statisticsRepository struct {
	db *sqlx.DB
}

// NewStatisticsRepository creates a new statistics repository
func NewStatisticsRepository(db *sqlx.DB) ports.StatisticsStore {
	return &statisticsRepository{db: db}
}

// statsRow mirrors both statistics tables, which share one shape.
type statsRow struct {
	Area string  `db:"area"`
	Mean float64 `db:"mean"`
	Std  float64 `db:"std"`
	Min  float64 `db:"min"`
	Max  float64 `db:"max"`
	P25  float64 `db:"p25"`
	P50  float64 `db:"p50"`
	P75  float64 `db:"p75"`
	P90  float64 `db:"p90"`
}

// ScoreStats retrieves all area score statistics for one year.
func (r *statisticsRepository) ScoreStats(ctx context.Context, year int) (stats.YearScoreStats, bool, error) {
	rows, err := r.queryYear(ctx, "area_score_stats", year)
	if err != nil {
		return nil, false, err
	}
	if len(rows) == 0 {
		return nil, false, nil
	}

	record := make(stats.YearScoreStats, len(rows))
	for _, row := range rows {
		area, err := exam.ParseArea(row.Area)
		if err != nil {
			return nil, false, fmt.Errorf("unknown area in score stats row: %q", row.Area)
		}
		record[area] = stats.AreaScoreStats{
			Mean: row.Mean, Std: row.Std, Min: row.Min, Max: row.Max,
			Percentiles: stats.Percentiles{P25: row.P25, P50: row.P50, P75: row.P75, P90: row.P90},
		}
	}
	return record, true, nil
}

// AnswerStats retrieves all area correct-answer statistics for one year.
func (r *statisticsRepository) AnswerStats(ctx context.Context, year int) (stats.YearAnswerStats, bool, error) {
	rows, err := r.queryYear(ctx, "area_answer_stats", year)
	if err != nil {
		return nil, false, err
	}
	if len(rows) == 0 {
		return nil, false, nil
	}

	record := make(stats.YearAnswerStats, len(rows))
	for _, row := range rows {
		area, err := exam.ParseArea(row.Area)
		if err != nil {
			return nil, false, fmt.Errorf("unknown area in answer stats row: %q", row.Area)
		}
		record[area] = stats.AreaAnswerStats{
			Mean: row.Mean, Std: row.Std, Min: row.Min, Max: row.Max,
			Percentiles: stats.Percentiles{P25: row.P25, P50: row.P50, P75: row.P75, P90: row.P90},
		}
	}
	return record, true, nil
}

// AreaScoreStats retrieves the statistics for one area in one year.
func (r *statisticsRepository) AreaScoreStats(ctx context.Context, area exam.Area, year int) (stats.AreaScoreStats, bool, error) {
	query := `SELECT area, mean, std, min, max, p25, p50, p75, p90
		FROM area_score_stats WHERE year = $1 AND area = $2`

	var row statsRow
	err := r.db.GetContext(ctx, &row, query, year, string(area))
	if err == sql.ErrNoRows {
		return stats.AreaScoreStats{}, false, nil
	}
	if err != nil {
		return stats.AreaScoreStats{}, false, fmt.Errorf("failed to get area score stats: %w", err)
	}

	return stats.AreaScoreStats{
		Mean: row.Mean, Std: row.Std, Min: row.Min, Max: row.Max,
		Percentiles: stats.Percentiles{P25: row.P25, P50: row.P50, P75: row.P75, P90: row.P90},
	}, true, nil
}

// ScoreYears lists the years with score statistics, ascending.
func (r *statisticsRepository) ScoreYears(ctx context.Context) ([]int, error) {
	query := `SELECT DISTINCT year FROM area_score_stats ORDER BY year`

	var years []int
	if err := r.db.SelectContext(ctx, &years, query); err != nil {
		return nil, fmt.Errorf("failed to list score stats years: %w", err)
	}
	return years, nil
}

// SaveScoreStats upserts one year's score statistics, one row per area.
func (r *statisticsRepository) SaveScoreStats(ctx context.Context, year int, record stats.YearScoreStats) error {
	query := `INSERT INTO area_score_stats (
		year, area, mean, std, min, max, p25, p50, p75, p90, updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
	ON CONFLICT (year, area) DO UPDATE SET
		mean = EXCLUDED.mean, std = EXCLUDED.std,
		min = EXCLUDED.min, max = EXCLUDED.max,
		p25 = EXCLUDED.p25, p50 = EXCLUDED.p50,
		p75 = EXCLUDED.p75, p90 = EXCLUDED.p90,
		updated_at = NOW()`

	for area, areaStats := range record {
		_, err := r.db.ExecContext(ctx, query,
			year, string(area), areaStats.Mean, areaStats.Std, areaStats.Min, areaStats.Max,
			areaStats.Percentiles.P25, areaStats.Percentiles.P50, areaStats.Percentiles.P75, areaStats.Percentiles.P90,
		)
		if err != nil {
			return fmt.Errorf("failed to save score stats for %s/%d: %w", area, year, err)
		}
	}
	return nil
}

// SaveAnswerStats upserts one year's correct-answer statistics.
func (r *statisticsRepository) SaveAnswerStats(ctx context.Context, year int, record stats.YearAnswerStats) error {
	query := `INSERT INTO area_answer_stats (
		year, area, mean, std, min, max, p25, p50, p75, p90, updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
	ON CONFLICT (year, area) DO UPDATE SET
		mean = EXCLUDED.mean, std = EXCLUDED.std,
		min = EXCLUDED.min, max = EXCLUDED.max,
		p25 = EXCLUDED.p25, p50 = EXCLUDED.p50,
		p75 = EXCLUDED.p75, p90 = EXCLUDED.p90,
		updated_at = NOW()`

	for area, areaStats := range record {
		_, err := r.db.ExecContext(ctx, query,
			year, string(area), areaStats.Mean, areaStats.Std, areaStats.Min, areaStats.Max,
			areaStats.Percentiles.P25, areaStats.Percentiles.P50, areaStats.Percentiles.P75, areaStats.Percentiles.P90,
		)
		if err != nil {
			return fmt.Errorf("failed to save answer stats for %s/%d: %w", area, year, err)
		}
	}
	return nil
}

// queryYear fetches all statistics rows for one year from the given table.
func (r *statisticsRepository) queryYear(ctx context.Context, table string, year int) ([]statsRow, error) {
	query := fmt.Sprintf(`SELECT area, mean, std, min, max, p25, p50, p75, p90
		FROM %s WHERE year = $1 ORDER BY area`, table)

	var rows []statsRow
	if err := r.db.SelectContext(ctx, &rows, query, year); err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", table, err)
	}
	return rows, nil
}
