package jsoncache

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"enemtri/domain/exam"
	"enemtri/domain/stats"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	return store
}

func sampleScoreRecord() stats.YearScoreStats {
	return stats.YearScoreStats{
		exam.Mathematics: {
			Mean: 542.3, Std: 108.1, Min: 354.1, Max: 958.6,
			Percentiles: stats.Percentiles{P25: 460.2, P50: 531.0, P75: 612.7, P90: 689.4},
		},
		exam.Essay: {
			Mean: 620.0, Std: 180.0, Min: 0, Max: 1000,
			Percentiles: stats.Percentiles{P25: 500, P50: 620, P75: 760, P90: 860},
		},
	}
}

func TestScoreStats_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.SaveScoreStats(ctx, 2023, sampleScoreRecord()); err != nil {
		t.Fatalf("SaveScoreStats failed: %v", err)
	}

	loaded, ok, err := store.ScoreStats(ctx, 2023)
	if err != nil {
		t.Fatalf("ScoreStats failed: %v", err)
	}
	if !ok {
		t.Fatal("expected the 2023 record to exist")
	}
	if !reflect.DeepEqual(loaded, sampleScoreRecord()) {
		t.Errorf("round-trip mismatch:\n got %+v\nwant %+v", loaded, sampleScoreRecord())
	}
}

func TestScoreStats_MissingYearIsNotAnError(t *testing.T) {
	store := newTestStore(t)

	_, ok, err := store.ScoreStats(context.Background(), 1999)
	if err != nil {
		t.Fatalf("missing year must not error, got %v", err)
	}
	if ok {
		t.Error("missing year must report ok=false")
	}
}

func TestAreaScoreStats_TwoKeyLookup(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.SaveScoreStats(ctx, 2023, sampleScoreRecord()); err != nil {
		t.Fatalf("SaveScoreStats failed: %v", err)
	}

	record, ok, err := store.AreaScoreStats(ctx, exam.Mathematics, 2023)
	if err != nil || !ok {
		t.Fatalf("AreaScoreStats: ok=%v err=%v", ok, err)
	}
	if record.Mean != 542.3 {
		t.Errorf("mathematics mean = %.1f, want 542.3", record.Mean)
	}

	// Area missing from an existing year.
	if _, ok, err := store.AreaScoreStats(ctx, exam.Languages, 2023); err != nil || ok {
		t.Errorf("absent area: ok=%v err=%v, want ok=false with nil error", ok, err)
	}
}

func TestScoreYears_SortedAndFiltered(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, year := range []int{2023, 2019, 2021} {
		if err := store.SaveScoreStats(ctx, year, sampleScoreRecord()); err != nil {
			t.Fatalf("SaveScoreStats(%d) failed: %v", year, err)
		}
	}
	// A stray file that is not a stats document.
	stray := filepath.Join(store.dataDir, scoreStatsDir, "readme.txt")
	if err := os.WriteFile(stray, []byte("notes"), 0o644); err != nil {
		t.Fatalf("write stray file: %v", err)
	}

	years, err := store.ScoreYears(ctx)
	if err != nil {
		t.Fatalf("ScoreYears failed: %v", err)
	}
	if !reflect.DeepEqual(years, []int{2019, 2021, 2023}) {
		t.Errorf("years = %v, want [2019 2021 2023]", years)
	}
}

func TestAnswerStats_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	record := stats.YearAnswerStats{
		exam.Languages: {
			Mean: 24.0, Std: 7.0, Min: 0, Max: 45,
			Percentiles: stats.Percentiles{P25: 18, P50: 24, P75: 30, P90: 34},
		},
	}
	if err := store.SaveAnswerStats(ctx, 2022, record); err != nil {
		t.Fatalf("SaveAnswerStats failed: %v", err)
	}

	loaded, ok, err := store.AnswerStats(ctx, 2022)
	if err != nil || !ok {
		t.Fatalf("AnswerStats: ok=%v err=%v", ok, err)
	}
	if loaded[exam.Languages].Percentiles.P90 != 34 {
		t.Errorf("p90 = %.0f, want 34", loaded[exam.Languages].Percentiles.P90)
	}
}

func TestPrune_KeepsOnlyRequestedYears(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, year := range []int{2020, 2021, 2022, 2023} {
		if err := store.SaveScoreStats(ctx, year, sampleScoreRecord()); err != nil {
			t.Fatalf("SaveScoreStats(%d) failed: %v", year, err)
		}
	}
	if err := store.SaveAnswerStats(ctx, 2020, stats.YearAnswerStats{}); err != nil {
		t.Fatalf("SaveAnswerStats failed: %v", err)
	}

	removed, err := store.Prune(ctx, []int{2022, 2023})
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	// Score files for 2020/2021 plus the 2020 answer file.
	if removed != 3 {
		t.Errorf("removed = %d, want 3", removed)
	}

	years, err := store.ScoreYears(ctx)
	if err != nil {
		t.Fatalf("ScoreYears failed: %v", err)
	}
	if !reflect.DeepEqual(years, []int{2022, 2023}) {
		t.Errorf("surviving years = %v, want [2022 2023]", years)
	}
}

func TestCorruptDocumentSurfacesParseError(t *testing.T) {
	store := newTestStore(t)

	path := store.scorePath(2023)
	if err := os.WriteFile(path, []byte("{broken"), 0o644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}

	if _, _, err := store.ScoreStats(context.Background(), 2023); err == nil {
		t.Error("corrupt document must surface a parse error")
	}
}
