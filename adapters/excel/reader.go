// Package excel imports published statistics tables from spreadsheet files
// into the statistics store. Both .xlsx and .csv layouts are accepted; the
// expected columns are year, area, kind, mean, std, min, max, p25, p50,
// p75 and p90, with kind being "score" or "answers".
package excel

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"enemtri/domain/exam"

	"github.com/xuri/excelize/v2"
)

// RowKind distinguishes score rows from correct-answer rows.
type RowKind string

const (
	KindScore   RowKind = "score"
	KindAnswers RowKind = "answers"
)

// StatRow is one parsed spreadsheet row: the full distribution summary for
// one area in one year.
type StatRow struct {
	Year int
	Area exam.Area
	Kind RowKind
	Mean float64
	Std  float64
	Min  float64
	Max  float64
	P25  float64
	P50  float64
	P75  float64
	P90  float64
}

var requiredColumns = []string{
	"year", "area", "kind", "mean", "std", "min", "max", "p25", "p50", "p75", "p90",
}

// StatsReader reads statistics rows from an Excel or CSV file.
type StatsReader struct {
	filePath string
	fileType string // "xlsx" or "csv"
}

// NewStatsReader creates a reader for the given file, picking the format
// from the extension.
func NewStatsReader(filePath string) *StatsReader {
	fileType := "xlsx"
	if strings.ToLower(filepath.Ext(filePath)) == ".csv" {
		fileType = "csv"
	}
	return &StatsReader{filePath: filePath, fileType: fileType}
}

// ReadRows reads and parses every data row in the file.
func (r *StatsReader) ReadRows() ([]StatRow, error) {
	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("statistics file not found: %s", r.filePath)
	}

	var rows [][]string
	var err error
	switch r.fileType {
	case "csv":
		rows, err = r.readCSVRows()
	case "xlsx":
		rows, err = r.readExcelRows()
	default:
		return nil, fmt.Errorf("unsupported file type: %s", r.fileType)
	}
	if err != nil {
		return nil, err
	}

	if len(rows) < 2 {
		return nil, fmt.Errorf("statistics file must have a header row and at least one data row")
	}
	return parseRows(rows)
}

func (r *StatsReader) readExcelRows() ([][]string, error) {
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet: %w", err)
	}
	return rows, nil
}

func (r *StatsReader) readCSVRows() ([][]string, error) {
	file, err := os.Open(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}
	return rows, nil
}

// parseRows maps the header row to column indexes and parses every data row.
func parseRows(rows [][]string) ([]StatRow, error) {
	columns := make(map[string]int, len(rows[0]))
	for i, header := range rows[0] {
		columns[strings.ToLower(strings.TrimSpace(header))] = i
	}
	for _, name := range requiredColumns {
		if _, ok := columns[name]; !ok {
			return nil, fmt.Errorf("statistics file is missing the %q column", name)
		}
	}

	parsed := make([]StatRow, 0, len(rows)-1)
	for i, row := range rows[1:] {
		stat, err := parseRow(row, columns)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		parsed = append(parsed, stat)
	}
	return parsed, nil
}

func parseRow(row []string, columns map[string]int) (StatRow, error) {
	cell := func(name string) string {
		idx := columns[name]
		if idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	year, err := strconv.Atoi(cell("year"))
	if err != nil {
		return StatRow{}, fmt.Errorf("invalid year %q", cell("year"))
	}

	area, err := exam.ParseArea(cell("area"))
	if err != nil {
		return StatRow{}, fmt.Errorf("unknown area %q", cell("area"))
	}

	kind := RowKind(strings.ToLower(cell("kind")))
	if kind != KindScore && kind != KindAnswers {
		return StatRow{}, fmt.Errorf("unknown kind %q, want score or answers", cell("kind"))
	}

	stat := StatRow{Year: year, Area: area, Kind: kind}
	for _, field := range []struct {
		name string
		dst  *float64
	}{
		{"mean", &stat.Mean}, {"std", &stat.Std},
		{"min", &stat.Min}, {"max", &stat.Max},
		{"p25", &stat.P25}, {"p50", &stat.P50},
		{"p75", &stat.P75}, {"p90", &stat.P90},
	} {
		value, err := strconv.ParseFloat(cell(field.name), 64)
		if err != nil {
			return StatRow{}, fmt.Errorf("invalid %s %q", field.name, cell(field.name))
		}
		*field.dst = value
	}
	return stat, nil
}
