package estimation

import (
	"sort"

	"enemtri/domain/exam"
	"enemtri/domain/stats"
)

// PopulationData is the in-memory snapshot of population statistics the
// estimation core works from. The app layer assembles it from a statistics
// source; the core never touches storage.
type PopulationData struct {
	// Scores maps year -> per-area score statistics.
	Scores map[int]stats.YearScoreStats

	// Answers maps year -> per-area correct-answer statistics.
	Answers map[int]stats.YearAnswerStats
}

// ScoreYears returns the years with score statistics, ascending.
func (p PopulationData) ScoreYears() []int {
	years := make([]int, 0, len(p.Scores))
	for y := range p.Scores {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}

// AreaScoreStats looks up score statistics for one (area, year) pair.
func (p PopulationData) AreaScoreStats(area exam.Area, year int) (stats.AreaScoreStats, bool) {
	record, ok := p.Scores[year]
	if !ok {
		return stats.AreaScoreStats{}, false
	}
	s, ok := record[area]
	return s, ok
}

// AreaAnswerStats looks up correct-answer statistics for one (area, year) pair.
func (p PopulationData) AreaAnswerStats(area exam.Area, year int) (stats.AreaAnswerStats, bool) {
	record, ok := p.Answers[year]
	if !ok {
		return stats.AreaAnswerStats{}, false
	}
	s, ok := record[area]
	return s, ok
}
