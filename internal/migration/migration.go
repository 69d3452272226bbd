package migration

import (
	"context"

	"enemtri/internal/errors"

	"github.com/jmoiron/sqlx"
)

// MigrationRunner creates the statistics schema.
type MigrationRunner struct {
	version string
}

// NewRunner creates a migration runner.
func NewRunner() *MigrationRunner {
	return &MigrationRunner{version: "1.0.0"}
}

// Version returns the migration version.
func (r *MigrationRunner) Version() string { return r.version }

// Run executes all migrations in order. Every statement is idempotent so
// the runner can execute at each startup.
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	if err := r.createScoreStatsTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create area_score_stats table")
	}
	if err := r.createAnswerStatsTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create area_answer_stats table")
	}
	if err := r.createIndexes(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create statistics indexes")
	}
	return nil
}

func (r *MigrationRunner) createScoreStatsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS area_score_stats (
			year INTEGER NOT NULL,
			area VARCHAR(32) NOT NULL,
			mean DOUBLE PRECISION NOT NULL,
			std DOUBLE PRECISION NOT NULL,
			min DOUBLE PRECISION NOT NULL,
			max DOUBLE PRECISION NOT NULL,
			p25 DOUBLE PRECISION NOT NULL,
			p50 DOUBLE PRECISION NOT NULL,
			p75 DOUBLE PRECISION NOT NULL,
			p90 DOUBLE PRECISION NOT NULL,
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			PRIMARY KEY (year, area)
		)
	`)
	return err
}

func (r *MigrationRunner) createAnswerStatsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS area_answer_stats (
			year INTEGER NOT NULL,
			area VARCHAR(32) NOT NULL,
			mean DOUBLE PRECISION NOT NULL,
			std DOUBLE PRECISION NOT NULL,
			min DOUBLE PRECISION NOT NULL,
			max DOUBLE PRECISION NOT NULL,
			p25 DOUBLE PRECISION NOT NULL,
			p50 DOUBLE PRECISION NOT NULL,
			p75 DOUBLE PRECISION NOT NULL,
			p90 DOUBLE PRECISION NOT NULL,
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			PRIMARY KEY (year, area)
		)
	`)
	return err
}

func (r *MigrationRunner) createIndexes(ctx context.Context, db *sqlx.DB) error {
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_score_stats_year ON area_score_stats(year)",
		"CREATE INDEX IF NOT EXISTS idx_answer_stats_year ON area_answer_stats(year)",
	}
	for _, idxSQL := range indexes {
		if _, err := db.ExecContext(ctx, idxSQL); err != nil {
			return err
		}
	}
	return nil
}
