package exam

import "enemtri/domain/core"

// ScoreRange is a three-point estimate derived from personal history.
// INVARIANT: Pessimistic <= Calculated <= Optimistic.
type ScoreRange struct {
	Pessimistic float64 `json:"pessimistic"`
	Calculated  float64 `json:"calculated"`
	Optimistic  float64 `json:"optimistic"`
}

// Ordered reports whether the range satisfies its ordering invariant.
func (r ScoreRange) Ordered() bool {
	return r.Pessimistic <= r.Calculated && r.Calculated <= r.Optimistic
}

// AreaScore is the computed outcome for a single objective area.
type AreaScore struct {
	Area           Area        `json:"area"`
	CorrectAnswers int         `json:"correct_answers"`
	TotalQuestions int         `json:"total_questions"`
	Score          float64     `json:"score"`
	Range          *ScoreRange `json:"range,omitempty"`
}

// AccuracyRate returns the fraction of questions answered correctly.
func (s AreaScore) AccuracyRate() float64 {
	if s.TotalQuestions == 0 {
		return 0
	}
	return float64(s.CorrectAnswers) / float64(s.TotalQuestions)
}

// Result is the complete outcome of one simulated exam.
// INVARIANT: every score lies in [0, 1000]; essay passes through unmodified.
type Result struct {
	Areas      map[Area]AreaScore `json:"areas"`
	EssayScore float64            `json:"essay_score"`
}

// NewResult assembles and validates a complete exam result.
func NewResult(areas map[Area]AreaScore, essayScore float64) (*Result, error) {
	if essayScore < 0 || essayScore > 1000 {
		return nil, core.NewEssayScoreError(essayScore)
	}
	for _, as := range areas {
		if as.Score < 0 || as.Score > 1000 {
			return nil, core.NewScoreRangeError(as.Score)
		}
		if as.Range != nil && !as.Range.Ordered() {
			return nil, core.NewScoreRangeError(as.Range.Calculated)
		}
	}
	return &Result{Areas: areas, EssayScore: essayScore}, nil
}

// Score returns the score for one area; essay returns the pass-through score.
func (r *Result) Score(a Area) float64 {
	if a == Essay {
		return r.EssayScore
	}
	return r.Areas[a].Score
}

// AverageScore is the mean across the four objective areas and the essay.
func (r *Result) AverageScore() float64 {
	sum := r.EssayScore
	for _, a := range ObjectiveAreas() {
		sum += r.Areas[a].Score
	}
	return sum / 5
}

// ObjectiveAverage is the mean across the four objective areas only.
func (r *Result) ObjectiveAverage() float64 {
	var sum float64
	for _, a := range ObjectiveAreas() {
		sum += r.Areas[a].Score
	}
	return sum / 4
}

// RangeAverages averages the three-point ranges across objective areas.
// The second return is false unless every objective area carries a range.
func (r *Result) RangeAverages() (ScoreRange, bool) {
	var avg ScoreRange
	for _, a := range ObjectiveAreas() {
		as, ok := r.Areas[a]
		if !ok || as.Range == nil {
			return ScoreRange{}, false
		}
		avg.Pessimistic += as.Range.Pessimistic
		avg.Calculated += as.Range.Calculated
		avg.Optimistic += as.Range.Optimistic
	}
	avg.Pessimistic /= 4
	avg.Calculated /= 4
	avg.Optimistic /= 4
	return avg, true
}
