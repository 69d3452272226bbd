package estimation

import (
	"enemtri/domain/core"
	"enemtri/domain/exam"
)

// CalculatorOptions configure a Calculator. The zero value plus a call to
// NewCalculator yields fixed-default parameters for every area.
type CalculatorOptions struct {
	// TotalQuestions per objective area. Defaults to exam.TotalQuestions.
	TotalQuestions int

	// CustomParams override population resolution entirely when set.
	CustomParams map[exam.Area]Params

	// UsePopulationData enables the reference-year strategy over Population.
	UsePopulationData bool

	// ReferenceYear anchors the reference-year and recent-average strategies.
	ReferenceYear int

	// Population is the in-memory statistics snapshot.
	Population PopulationData
}

// Calculator orchestrates score estimation across all exam areas. It owns
// one Estimator per objective area for its lifetime; estimators share no
// state. A Calculator is not safe for concurrent use — in a service context
// construct one per request.
type Calculator struct {
	totalQuestions int
	referenceYear  int
	estimators     map[exam.Area]*Estimator
	resolutions    map[exam.Area]string
}

// NewCalculator resolves population parameters for each objective area
// through an ordered strategy chain (custom, reference year, recent
// average, fixed defaults) and builds the per-area estimators. It never
// fails: missing data degrades through the chain.
func NewCalculator(opts CalculatorOptions) *Calculator {
	totalQuestions := opts.TotalQuestions
	if totalQuestions <= 0 {
		totalQuestions = exam.TotalQuestions
	}

	var chain []ParamStrategy
	switch {
	case opts.CustomParams != nil:
		chain = []ParamStrategy{
			CustomStrategy{Params: opts.CustomParams},
			FixedDefaultStrategy{},
		}
	case opts.UsePopulationData:
		chain = []ParamStrategy{
			ReferenceYearStrategy{Data: opts.Population, Year: opts.ReferenceYear},
			RecentAverageStrategy{Data: opts.Population, ReferenceYear: opts.ReferenceYear},
			FixedDefaultStrategy{},
		}
	default:
		chain = []ParamStrategy{
			RecentAverageStrategy{Data: opts.Population, ReferenceYear: opts.ReferenceYear},
			FixedDefaultStrategy{},
		}
	}

	c := &Calculator{
		totalQuestions: totalQuestions,
		referenceYear:  opts.ReferenceYear,
		estimators:     make(map[exam.Area]*Estimator, 4),
		resolutions:    make(map[exam.Area]string, 4),
	}
	for _, area := range exam.ObjectiveAreas() {
		params, strategy := ResolveParams(area, chain)
		c.estimators[area] = NewEstimator(area, totalQuestions, params)
		c.resolutions[area] = strategy
	}
	return c
}

// TotalQuestions returns the per-area question count.
func (c *Calculator) TotalQuestions() int { return c.totalQuestions }

// ReferenceYear returns the year the calculator's parameters anchor on.
func (c *Calculator) ReferenceYear() int { return c.referenceYear }

// AreaParams returns the resolved population parameters for an area.
func (c *Calculator) AreaParams(area exam.Area) (Params, bool) {
	est, ok := c.estimators[area]
	if !ok {
		return Params{}, false
	}
	return est.Params(), true
}

// Resolution names the strategy that supplied an area's parameters.
func (c *Calculator) Resolution(area exam.Area) string { return c.resolutions[area] }

// Calibrated reports whether an area's estimator carries personal history.
func (c *Calculator) Calibrated(area exam.Area) bool {
	est, ok := c.estimators[area]
	return ok && est.Calibrated()
}

// CalibrateWithUserData feeds an area's estimator the user's historical
// (correct answers, official score, year) triples. Essay needs no
// calibration and is a no-op.
func (c *Calculator) CalibrateWithUserData(area exam.Area, correctAnswers []int, scores []float64, years []int) error {
	if area == exam.Essay {
		return nil
	}
	est, ok := c.estimators[area]
	if !ok {
		return core.NewUnsupportedAreaError(string(area), "calibration")
	}
	if len(correctAnswers) == 0 && len(scores) == 0 {
		return nil
	}
	return est.SetHistoricalData(correctAnswers, scores, years)
}

// CalculateScore estimates all four objective areas and assembles the
// complete result. The essay score passes through unmodified after its
// [0, 1000] validation; objective scores from calibrated estimators are
// clipped to the 300-1000 scale before assembly.
func (c *Calculator) CalculateScore(mathematics, languages, naturalSciences, humanSciences int, essayScore float64) (*exam.Result, error) {
	if essayScore < 0 || essayScore > 1000 {
		return nil, core.NewEssayScoreError(essayScore)
	}

	counts := map[exam.Area]int{
		exam.Mathematics:     mathematics,
		exam.Languages:       languages,
		exam.NaturalSciences: naturalSciences,
		exam.HumanSciences:   humanSciences,
	}

	areas := make(map[exam.Area]exam.AreaScore, 4)
	for area, correct := range counts {
		score, err := c.CalculateAreaScore(area, correct)
		if err != nil {
			return nil, err
		}

		areaScore := exam.AreaScore{
			Area:           area,
			CorrectAnswers: correct,
			TotalQuestions: c.totalQuestions,
			Score:          score,
		}
		if r, ok := c.estimators[area].EstimateScoreRange(correct); ok {
			areaScore.Range = &r
		}
		areas[area] = areaScore
	}

	return exam.NewResult(areas, essayScore)
}

// CalculateAreaScore estimates one objective area's score. Essay has no
// estimation model and fails with an unsupported-operation error.
func (c *Calculator) CalculateAreaScore(area exam.Area, correctAnswers int) (float64, error) {
	if area == exam.Essay {
		return 0, core.NewUnsupportedAreaError(string(area), "score estimation")
	}
	est, ok := c.estimators[area]
	if !ok {
		return 0, core.NewUnsupportedAreaError(string(area), "score estimation")
	}

	score, err := est.EstimateScore(correctAnswers)
	if err != nil {
		return 0, err
	}

	// The personal linear factor is unbounded; the published scale is not.
	if est.Calibrated() {
		score = clip(score, scoreFloor, scoreCeil)
	}
	return score, nil
}

// ConfidenceInterval delegates to the area's estimator. Essay has no
// estimation model and fails with an unsupported-operation error.
func (c *Calculator) ConfidenceInterval(area exam.Area, correctAnswers int, confidence float64) (float64, float64, error) {
	if area == exam.Essay {
		return 0, 0, core.NewUnsupportedAreaError(string(area), "confidence interval")
	}
	est, ok := c.estimators[area]
	if !ok {
		return 0, 0, core.NewUnsupportedAreaError(string(area), "confidence interval")
	}
	return est.ConfidenceInterval(correctAnswers, confidence)
}

// EstimateScoreRange exposes an area's three-point range, when calibrated.
func (c *Calculator) EstimateScoreRange(area exam.Area, correctAnswers int) (exam.ScoreRange, bool) {
	est, ok := c.estimators[area]
	if !ok {
		return exam.ScoreRange{}, false
	}
	return est.EstimateScoreRange(correctAnswers)
}

// EstimateProficiency exposes an area's theta estimate.
func (c *Calculator) EstimateProficiency(area exam.Area, correctAnswers int) (float64, bool) {
	est, ok := c.estimators[area]
	if !ok {
		return 0, false
	}
	return est.EstimateProficiency(correctAnswers), true
}
