// Package jsoncache implements the statistics store over plain JSON
// documents on disk, one file per year. It is the default backend when no
// database is configured.
package jsoncache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"enemtri/domain/exam"
	"enemtri/domain/stats"
)

const (
	scoreStatsDir  = "inep_stats"
	answerStatsDir = "microdata_stats"

	scoreFilePrefix  = "stats_"
	answerFilePrefix = "correct_answers_"
)

// Store reads and writes per-year statistics documents under a data
// directory: <dir>/inep_stats/stats_<year>.json for scores and
// <dir>/microdata_stats/correct_answers_<year>.json for answers.
type Store struct {
	dataDir string
}

// NewStore creates a store rooted at dataDir, creating the cache
// subdirectories if needed.
func NewStore(dataDir string) (*Store, error) {
	for _, sub := range []string{scoreStatsDir, answerStatsDir} {
		if err := os.MkdirAll(filepath.Join(dataDir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("create cache dir %s: %w", sub, err)
		}
	}
	return &Store{dataDir: dataDir}, nil
}

func (s *Store) scorePath(year int) string {
	return filepath.Join(s.dataDir, scoreStatsDir, fmt.Sprintf("%s%d.json", scoreFilePrefix, year))
}

func (s *Store) answerPath(year int) string {
	return filepath.Join(s.dataDir, answerStatsDir, fmt.Sprintf("%s%d.json", answerFilePrefix, year))
}

// ScoreStats loads one year's score statistics. A missing file is a normal
// "no data" state.
func (s *Store) ScoreStats(ctx context.Context, year int) (stats.YearScoreStats, bool, error) {
	var record stats.YearScoreStats
	ok, err := readDocument(ctx, s.scorePath(year), &record)
	return record, ok, err
}

// AnswerStats loads one year's correct-answer statistics.
func (s *Store) AnswerStats(ctx context.Context, year int) (stats.YearAnswerStats, bool, error) {
	var record stats.YearAnswerStats
	ok, err := readDocument(ctx, s.answerPath(year), &record)
	return record, ok, err
}

// AreaScoreStats is the two-key (area x year) score lookup.
func (s *Store) AreaScoreStats(ctx context.Context, area exam.Area, year int) (stats.AreaScoreStats, bool, error) {
	record, ok, err := s.ScoreStats(ctx, year)
	if err != nil || !ok {
		return stats.AreaScoreStats{}, false, err
	}
	areaStats, ok := record[area]
	return areaStats, ok, nil
}

// ScoreYears lists the years with cached score statistics, ascending.
func (s *Store) ScoreYears(ctx context.Context) ([]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(filepath.Join(s.dataDir, scoreStatsDir))
	if err != nil {
		return nil, fmt.Errorf("list score cache: %w", err)
	}

	var years []int
	for _, entry := range entries {
		if year, ok := yearFromFilename(entry.Name(), scoreFilePrefix); ok {
			years = append(years, year)
		}
	}
	sort.Ints(years)
	return years, nil
}

// SaveScoreStats writes one year's score statistics, replacing the file.
func (s *Store) SaveScoreStats(ctx context.Context, year int, record stats.YearScoreStats) error {
	return writeDocument(ctx, s.scorePath(year), record)
}

// SaveAnswerStats writes one year's correct-answer statistics.
func (s *Store) SaveAnswerStats(ctx context.Context, year int, record stats.YearAnswerStats) error {
	return writeDocument(ctx, s.answerPath(year), record)
}

// Prune removes cached documents for years not in keep. A nil keep list
// removes everything. Returns the number of files removed.
func (s *Store) Prune(ctx context.Context, keep []int) (int, error) {
	keepSet := make(map[int]bool, len(keep))
	for _, y := range keep {
		keepSet[y] = true
	}

	removed := 0
	for _, layout := range []struct {
		dir    string
		prefix string
	}{
		{scoreStatsDir, scoreFilePrefix},
		{answerStatsDir, answerFilePrefix},
	} {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		entries, err := os.ReadDir(filepath.Join(s.dataDir, layout.dir))
		if err != nil {
			return removed, fmt.Errorf("list cache %s: %w", layout.dir, err)
		}
		for _, entry := range entries {
			year, ok := yearFromFilename(entry.Name(), layout.prefix)
			if !ok || keepSet[year] {
				continue
			}
			if err := os.Remove(filepath.Join(s.dataDir, layout.dir, entry.Name())); err != nil {
				return removed, fmt.Errorf("remove %s: %w", entry.Name(), err)
			}
			removed++
		}
	}
	return removed, nil
}

func yearFromFilename(name, prefix string) (int, bool) {
	if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".json") {
		return 0, false
	}
	year, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, prefix), ".json"))
	if err != nil {
		return 0, false
	}
	return year, true
}

func readDocument(ctx context.Context, path string, dst any) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read cache %s: %w", path, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("parse cache %s: %w", path, err)
	}
	return true, nil
}

func writeDocument(ctx context.Context, path string, src any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	raw, err := json.MarshalIndent(src, "", "  ")
	if err != nil {
		return fmt.Errorf("encode cache %s: %w", path, err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("write cache %s: %w", path, err)
	}
	return nil
}
