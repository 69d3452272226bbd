package exam

import "fmt"

// AreaEntry holds one year's outcome for a single objective area.
// OfficialScore is nil when the user never received (or never recorded)
// the official result for that year.
type AreaEntry struct {
	CorrectAnswers int      `yaml:"correct_answers" json:"correct_answers"`
	OfficialScore  *float64 `yaml:"official_score" json:"official_score,omitempty"`
}

// Calibratable reports whether the entry can feed calibration: it needs
// both a positive correct-answer count and an official score.
func (e AreaEntry) Calibratable() bool {
	return e.CorrectAnswers > 0 && e.OfficialScore != nil
}

// YearRecord is one user-supplied year of exam history.
type YearRecord struct {
	Year            int       `yaml:"year" json:"year"`
	Mathematics     AreaEntry `yaml:"mathematics" json:"mathematics"`
	Languages       AreaEntry `yaml:"languages" json:"languages"`
	NaturalSciences AreaEntry `yaml:"natural_sciences" json:"natural_sciences"`
	HumanSciences   AreaEntry `yaml:"human_sciences" json:"human_sciences"`
	EssayScore      float64   `yaml:"essay_score" json:"essay_score"`
}

// Entry returns the record's entry for an objective area.
func (r YearRecord) Entry(area Area) AreaEntry {
	switch area {
	case Mathematics:
		return r.Mathematics
	case Languages:
		return r.Languages
	case NaturalSciences:
		return r.NaturalSciences
	case HumanSciences:
		return r.HumanSciences
	}
	return AreaEntry{}
}

// CurrentAttempt carries this year's correct-answer counts before the
// official result exists. Only counts and the self-scored essay are known.
type CurrentAttempt struct {
	Year            int     `yaml:"year" json:"year"`
	Mathematics     int     `yaml:"mathematics" json:"mathematics"`
	Languages       int     `yaml:"languages" json:"languages"`
	NaturalSciences int     `yaml:"natural_sciences" json:"natural_sciences"`
	HumanSciences   int     `yaml:"human_sciences" json:"human_sciences"`
	EssayScore      float64 `yaml:"essay_score" json:"essay_score"`
}

// Correct returns the attempt's correct-answer count for an objective area.
func (c CurrentAttempt) Correct(area Area) int {
	switch area {
	case Mathematics:
		return c.Mathematics
	case Languages:
		return c.Languages
	case NaturalSciences:
		return c.NaturalSciences
	case HumanSciences:
		return c.HumanSciences
	}
	return 0
}

// Settings are the user-controlled estimation options. Pointers distinguish
// "not set" from explicit false/zero so defaults apply only when absent.
type Settings struct {
	UseHistoricalData *bool    `yaml:"use_historical_data" json:"use_historical_data,omitempty"`
	ShowComparison    *bool    `yaml:"show_comparison" json:"show_comparison,omitempty"`
	ConfidenceLevel   *float64 `yaml:"confidence_level" json:"confidence_level,omitempty"`
}

// UseHistory reports whether calibration should be attempted (default true).
func (s Settings) UseHistory() bool {
	return s.UseHistoricalData == nil || *s.UseHistoricalData
}

// Comparison reports whether previous-year comparison output is wanted.
func (s Settings) Comparison() bool {
	return s.ShowComparison == nil || *s.ShowComparison
}

// Confidence returns the interval confidence level (default 0.95).
func (s Settings) Confidence() float64 {
	if s.ConfidenceLevel == nil {
		return 0.95
	}
	return *s.ConfidenceLevel
}

// History is the full personal record: the current attempt plus any number
// of previous years and the estimation settings.
type History struct {
	Current       *CurrentAttempt `yaml:"current_year" json:"current_year,omitempty"`
	PreviousYears []YearRecord    `yaml:"previous_years" json:"previous_years"`
	Settings      Settings        `yaml:"settings" json:"settings"`
}

// HasHistory reports whether any previous-year records exist.
func (h *History) HasHistory() bool {
	return len(h.PreviousYears) > 0
}

// CalibrationSeries extracts the parallel (correct, score, year) lists for
// one area. Years with a missing official score or a zero correct count are
// skipped; they carry no calibration signal.
func (h *History) CalibrationSeries(area Area) (correct []int, scores []float64, years []int) {
	for _, rec := range h.PreviousYears {
		entry := rec.Entry(area)
		if !entry.Calibratable() {
			continue
		}
		correct = append(correct, entry.CorrectAnswers)
		scores = append(scores, *entry.OfficialScore)
		years = append(years, rec.Year)
	}
	return correct, scores, years
}

// OfficialScores returns the area's official scores across all recorded
// years, without the correct-answer requirement.
func (h *History) OfficialScores(area Area) []float64 {
	var scores []float64
	for _, rec := range h.PreviousYears {
		if s := rec.Entry(area).OfficialScore; s != nil {
			scores = append(scores, *s)
		}
	}
	return scores
}

// ValidateCurrent checks the current attempt's bounds. Problems come back
// as a list so the caller can show all of them at once; a missing current
// section is itself a problem.
func (h *History) ValidateCurrent() (bool, []string) {
	var problems []string
	if h.Current == nil {
		return false, []string{"no current year data found"}
	}
	for _, area := range ObjectiveAreas() {
		if n := h.Current.Correct(area); n < 0 || n > TotalQuestions {
			problems = append(problems, fmt.Sprintf("%s: correct answers must be between 0 and %d, got %d", area, TotalQuestions, n))
		}
	}
	if e := h.Current.EssayScore; e < 0 || e > 1000 {
		problems = append(problems, fmt.Sprintf("essay_score must be between 0 and 1000, got %g", e))
	}
	return len(problems) == 0, problems
}
