package stats

import "enemtri/domain/exam"

// Percentiles holds the distribution quantiles published per area per year.
// JSON keys match the cached document format, which keys percentiles by the
// percentile number.
type Percentiles struct {
	P25 float64 `json:"25"`
	P50 float64 `json:"50"`
	P75 float64 `json:"75"`
	P90 float64 `json:"90"`
}

// AreaScoreStats is the population score distribution for one area in one
// year. Scores are on the 300-1000 scale for objective areas and 0-1000 for
// the essay. Immutable once loaded.
type AreaScoreStats struct {
	Mean        float64     `json:"mean"`
	Std         float64     `json:"std"`
	Min         float64     `json:"min"`
	Max         float64     `json:"max"`
	Percentiles Percentiles `json:"percentiles"`
}

// AreaAnswerStats mirrors AreaScoreStats over raw correct-answer counts
// (0-45) instead of scores.
type AreaAnswerStats struct {
	Mean        float64     `json:"mean"`
	Std         float64     `json:"std"`
	Min         float64     `json:"min"`
	Max         float64     `json:"max"`
	Percentiles Percentiles `json:"percentiles"`
}

// YearScoreStats maps each area to its score statistics for one year.
// Absence of an area is a valid "no data" state, not an error.
type YearScoreStats map[exam.Area]AreaScoreStats

// YearAnswerStats maps each area to its correct-answer statistics for one year.
type YearAnswerStats map[exam.Area]AreaAnswerStats
