package excel

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"enemtri/adapters/jsoncache"
	"enemtri/domain/exam"

	"github.com/xuri/excelize/v2"
)

const sampleCSV = `year,area,kind,mean,std,min,max,p25,p50,p75,p90
2022,mathematics,score,543.7,110.2,355.0,953.1,462.0,531.5,614.8,691.2
2022,languages,score,515.2,62.1,312.4,801.9,472.3,513.0,557.6,596.4
2022,mathematics,answers,22.5,8.0,0,45,16,22.5,29,33
2023,mathematics,score,538.9,108.6,360.2,958.6,458.1,527.3,610.9,687.0
`

func writeSampleCSV(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stats.csv")
	if err := os.WriteFile(path, []byte(sampleCSV), 0o644); err != nil {
		t.Fatalf("write sample csv: %v", err)
	}
	return path
}

func newImportStore(t *testing.T) *jsoncache.Store {
	t.Helper()
	store, err := jsoncache.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	return store
}

func TestImport_CSV(t *testing.T) {
	store := newImportStore(t)
	importer := NewImporter(store, nil)

	summary, err := importer.Import(context.Background(), writeSampleCSV(t))
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}

	if !reflect.DeepEqual(summary.Years, []int{2022, 2023}) {
		t.Errorf("years = %v, want [2022 2023]", summary.Years)
	}
	if summary.ScoreRows != 3 || summary.AnswerRows != 1 {
		t.Errorf("rows = %d score / %d answer, want 3 / 1", summary.ScoreRows, summary.AnswerRows)
	}

	record, ok, err := store.ScoreStats(context.Background(), 2022)
	if err != nil || !ok {
		t.Fatalf("ScoreStats(2022): ok=%v err=%v", ok, err)
	}
	if got := record[exam.Mathematics].Mean; got != 543.7 {
		t.Errorf("mathematics 2022 mean = %g, want 543.7", got)
	}
	if got := record[exam.Languages].Percentiles.P90; got != 596.4 {
		t.Errorf("languages 2022 p90 = %g, want 596.4", got)
	}

	answers, ok, err := store.AnswerStats(context.Background(), 2022)
	if err != nil || !ok {
		t.Fatalf("AnswerStats(2022): ok=%v err=%v", ok, err)
	}
	if got := answers[exam.Mathematics].Mean; got != 22.5 {
		t.Errorf("mathematics 2022 answer mean = %g, want 22.5", got)
	}
}

func TestImport_Excel(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	header := []any{"year", "area", "kind", "mean", "std", "min", "max", "p25", "p50", "p75", "p90"}
	data := [][]any{
		{2021, "natural_sciences", "score", 502.1, 71.4, 320.5, 868.9, 451.2, 495.8, 548.3, 599.0},
		{2021, "natural_sciences", "answers", 23.0, 7.5, 0, 45, 17, 23, 29, 33},
	}
	for rowIdx, row := range append([][]any{header}, data...) {
		for colIdx, value := range row {
			cell, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+1)
			if err != nil {
				t.Fatalf("cell name: %v", err)
			}
			if err := f.SetCellValue("Sheet1", cell, value); err != nil {
				t.Fatalf("set cell %s: %v", cell, err)
			}
		}
	}
	path := filepath.Join(t.TempDir(), "stats.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save xlsx: %v", err)
	}

	store := newImportStore(t)
	summary, err := NewImporter(store, nil).Import(context.Background(), path)
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if !reflect.DeepEqual(summary.Years, []int{2021}) {
		t.Errorf("years = %v, want [2021]", summary.Years)
	}

	record, ok, err := store.AreaScoreStats(context.Background(), exam.NaturalSciences, 2021)
	if err != nil || !ok {
		t.Fatalf("AreaScoreStats: ok=%v err=%v", ok, err)
	}
	if record.Mean != 502.1 {
		t.Errorf("mean = %g, want 502.1", record.Mean)
	}
}

func TestImportRaw_AggregatesSamples(t *testing.T) {
	raw := `year,area,score,correct_answers
2022,mathematics,500,18
2022,mathematics,600,24
2022,mathematics,700,30
2022,languages,550,
`
	path := filepath.Join(t.TempDir(), "microdata.csv")
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write raw csv: %v", err)
	}

	store := newImportStore(t)
	summary, err := NewImporter(store, nil).ImportRaw(context.Background(), path)
	if err != nil {
		t.Fatalf("ImportRaw failed: %v", err)
	}
	if !reflect.DeepEqual(summary.Years, []int{2022}) {
		t.Errorf("years = %v, want [2022]", summary.Years)
	}

	scores, ok, err := store.ScoreStats(context.Background(), 2022)
	if err != nil || !ok {
		t.Fatalf("ScoreStats: ok=%v err=%v", ok, err)
	}
	math := scores[exam.Mathematics]
	if math.Mean != 600 {
		t.Errorf("mathematics mean = %g, want 600", math.Mean)
	}
	if math.Min != 500 || math.Max != 700 {
		t.Errorf("mathematics range = [%g, %g], want [500, 700]", math.Min, math.Max)
	}
	if scores[exam.Languages].Mean != 550 {
		t.Errorf("languages mean = %g, want 550", scores[exam.Languages].Mean)
	}

	answers, ok, err := store.AnswerStats(context.Background(), 2022)
	if err != nil || !ok {
		t.Fatalf("AnswerStats: ok=%v err=%v", ok, err)
	}
	if got := answers[exam.Mathematics].Mean; got != 24 {
		t.Errorf("mathematics answer mean = %g, want 24", got)
	}
	if _, present := answers[exam.Languages]; present {
		t.Error("languages had no correct_answers samples, no record expected")
	}
}

func TestImportRaw_MissingAreaColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "microdata.csv")
	if err := os.WriteFile(path, []byte("year,score\n2022,500\n"), 0o644); err != nil {
		t.Fatalf("write raw csv: %v", err)
	}

	store := newImportStore(t)
	if _, err := NewImporter(store, nil).ImportRaw(context.Background(), path); err == nil {
		t.Error("expected a missing-column error")
	}
}

func TestImport_MissingFile(t *testing.T) {
	store := newImportStore(t)
	if _, err := NewImporter(store, nil).Import(context.Background(), "does/not/exist.csv"); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestReadRows_MissingColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.csv")
	content := "year,area,mean\n2022,mathematics,543.7\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}

	_, err := NewStatsReader(path).ReadRows()
	if err == nil {
		t.Fatal("expected a missing-column error")
	}
}

func TestReadRows_BadRows(t *testing.T) {
	cases := []struct {
		name string
		row  string
	}{
		{"UnknownArea", "2022,astronomy,score,500,100,300,900,430,500,570,630"},
		{"UnknownKind", "2022,mathematics,percent,500,100,300,900,430,500,570,630"},
		{"BadYear", "twenty22,mathematics,score,500,100,300,900,430,500,570,630"},
		{"BadNumber", "2022,mathematics,score,abc,100,300,900,430,500,570,630"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "stats.csv")
			content := fmt.Sprintf("year,area,kind,mean,std,min,max,p25,p50,p75,p90\n%s\n", tc.row)
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				t.Fatalf("write csv: %v", err)
			}
			if _, err := NewStatsReader(path).ReadRows(); err == nil {
				t.Error("expected a parse error")
			}
		})
	}
}
