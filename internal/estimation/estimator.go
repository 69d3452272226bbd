package estimation

import (
	"math"

	mstats "github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"

	"enemtri/domain/core"
	"enemtri/domain/exam"
)

// Estimation constants. These magic numbers are load-bearing for output
// stability and are carried as-is; do not tune them without a product
// decision.
const (
	logisticCenter    = 0.5  // inflection at 50% correct
	logisticSteepness = 0.15 // controls curve steepness
	scoreFloor        = 300.0
	scoreCeil         = 1000.0
	growthMin         = 0.9
	growthMax         = 1.15
	optimisticShare   = 0.9 // optimistic error = 90% of max residual
	thetaBound        = 3.0
)

// Params are the immutable population parameters an estimator is built with.
type Params struct {
	MinScore     float64
	MaxScore     float64
	MeanScore    float64
	StdDeviation float64
}

// Estimator maps a raw correct-answer count for one knowledge area to a
// calibrated score. Exact item parameters are not public, so it layers a
// personal linear model (when history exists) over a logistic population
// model.
//
// Resolution order for EstimateScore: exact historical match, then personal
// linear factor, then the logistic curve.
type Estimator struct {
	area           exam.Area
	totalQuestions int
	params         Params

	// Personal calibration state, replaced wholesale by SetHistoricalData.
	hasFactor   bool
	factor      float64
	exact       map[int]float64
	histCorrect []int
	histScores  []float64
	histYears   []int
}

// NewEstimator creates an estimator with population parameters and no
// personal calibration.
func NewEstimator(area exam.Area, totalQuestions int, params Params) *Estimator {
	return &Estimator{
		area:           area,
		totalQuestions: totalQuestions,
		params:         params,
	}
}

// Area returns the knowledge area the estimator serves.
func (e *Estimator) Area() exam.Area { return e.area }

// Params returns the population parameters the estimator was built with.
func (e *Estimator) Params() Params { return e.params }

// Calibrated reports whether personal historical data produced a usable
// linear factor.
func (e *Estimator) Calibrated() bool { return e.hasFactor }

// Factor returns the personal score-per-correct-answer factor, if any.
func (e *Estimator) Factor() (float64, bool) { return e.factor, e.hasFactor }

// SetHistoricalData calibrates the estimator with the user's historical
// (correct answers, official score) pairs. Fewer than two points is a no-op;
// unequal list lengths abort without touching existing calibration. Calling
// again fully replaces prior calibration state.
func (e *Estimator) SetHistoricalData(correctAnswers []int, scores []float64, years []int) error {
	if len(correctAnswers) != len(scores) {
		return core.NewLengthMismatchError(len(correctAnswers), len(scores))
	}
	if len(correctAnswers) < 2 {
		return nil
	}

	e.histCorrect = append([]int(nil), correctAnswers...)
	e.histScores = append([]float64(nil), scores...)
	e.histYears = append([]int(nil), years...)

	// Per-point factors, skipping zero counts to avoid division by zero.
	var factors []float64
	for i, ca := range correctAnswers {
		if ca > 0 {
			factors = append(factors, scores[i]/float64(ca))
		}
	}
	if len(factors) == 0 {
		e.hasFactor = false
		e.exact = nil
		return nil
	}

	// Median is robust against a single bad year; the mean is not.
	median, err := mstats.Median(factors)
	if err != nil {
		e.hasFactor = false
		e.exact = nil
		return nil
	}
	e.factor = median
	e.hasFactor = true

	// Exact-match table: scores grouped by identical counts, averaged.
	grouped := make(map[int][]float64)
	for i, ca := range correctAnswers {
		grouped[ca] = append(grouped[ca], scores[i])
	}
	e.exact = make(map[int]float64, len(grouped))
	for ca, group := range grouped {
		sum := 0.0
		for _, s := range group {
			sum += s
		}
		e.exact[ca] = sum / float64(len(group))
	}

	return nil
}

// EstimateScore estimates the score for a correct-answer count.
// Without personal calibration the result is guaranteed to lie within
// [MinScore, MaxScore]; with a personal factor it is unbounded here and
// clipped by the calculator.
func (e *Estimator) EstimateScore(correctAnswers int) (float64, error) {
	if correctAnswers < 0 || correctAnswers > e.totalQuestions {
		return 0, core.NewCorrectAnswersError(correctAnswers, e.totalQuestions)
	}

	if e.exact != nil {
		if score, ok := e.exact[correctAnswers]; ok {
			return score, nil
		}
	}

	if e.hasFactor {
		return e.factor * float64(correctAnswers), nil
	}

	return e.logistic(correctAnswers), nil
}

// logistic maps the correct proportion through a logistic curve between
// MinScore and MaxScore: few correct answers score low but never zero, and
// marginal gains shrink near the extremes.
func (e *Estimator) logistic(correctAnswers int) float64 {
	proportion := float64(correctAnswers) / float64(e.totalQuestions)
	z := (proportion - logisticCenter) / logisticSteepness
	normalized := 1 / (1 + math.Exp(-z))
	score := e.params.MinScore + (e.params.MaxScore-e.params.MinScore)*normalized

	if correctAnswers == 0 && score < e.params.MinScore {
		score = e.params.MinScore
	}
	if correctAnswers == e.totalQuestions && score > e.params.MaxScore {
		score = e.params.MaxScore
	}
	return score
}

// EstimateScoreRange produces the (pessimistic, calculated, optimistic)
// triple from personal history. Unavailable (ok=false) until calibration
// supplied at least two points with a usable factor.
func (e *Estimator) EstimateScoreRange(correctAnswers int) (exam.ScoreRange, bool) {
	if !e.hasFactor || len(e.histCorrect) < 2 {
		return exam.ScoreRange{}, false
	}

	base := e.factor * float64(correctAnswers)

	// Residuals of the linear model against the actual official scores.
	residuals := make([]float64, len(e.histCorrect))
	for i, ca := range e.histCorrect {
		residuals[i] = e.histScores[i] - e.factor*float64(ca)
	}

	minErr, _ := mstats.Min(residuals)
	maxErr, _ := mstats.Max(residuals)
	medianErr, _ := mstats.Median(residuals)

	pessimistic := clip(base+(minErr+medianErr)/2, scoreFloor, scoreCeil)
	optimistic := clip(base+optimisticShare*maxErr, scoreFloor, scoreCeil)
	if pessimistic > optimistic {
		pessimistic, optimistic = optimistic, pessimistic
	}

	// Growth-adjusted midpoint, kept inside the band by construction.
	calculated := clip((pessimistic+optimistic)/2*e.growthFactor(), pessimistic, optimistic)

	return exam.ScoreRange{
		Pessimistic: pessimistic,
		Calculated:  calculated,
		Optimistic:  optimistic,
	}, true
}

// growthFactor estimates the user's score trajectory from year-over-year
// ratios of the chronological historical scores, recency-weighted by 2^i
// and clipped to [0.9, 1.15] to bound projections.
func (e *Estimator) growthFactor() float64 {
	if len(e.histScores) < 2 {
		return 1.0
	}

	var rates []float64
	for i := 1; i < len(e.histScores); i++ {
		if e.histScores[i-1] > 0 {
			rates = append(rates, e.histScores[i]/e.histScores[i-1])
		}
	}
	if len(rates) == 0 {
		return 1.0
	}

	var weighted, total float64
	for i, rate := range rates {
		w := math.Pow(2, float64(i))
		weighted += w * rate
		total += w
	}
	return clip(weighted/total, growthMin, growthMax)
}

// ConfidenceInterval computes the score interval at the given confidence
// level. The margin derives from the population standard error over the
// question count; bounds are clipped to the population score range.
func (e *Estimator) ConfidenceInterval(correctAnswers int, confidence float64) (float64, float64, error) {
	if confidence <= 0 || confidence >= 1 {
		return 0, 0, core.NewConfidenceError(confidence)
	}

	score, err := e.EstimateScore(correctAnswers)
	if err != nil {
		return 0, 0, err
	}

	standardError := e.params.StdDeviation / math.Sqrt(float64(e.totalQuestions))
	z := distuv.UnitNormal.Quantile((1 + confidence) / 2)
	margin := z * standardError

	lower := math.Max(e.params.MinScore, score-margin)
	upper := math.Min(e.params.MaxScore, score+margin)
	return lower, upper, nil
}

// EstimateProficiency maps the correct proportion to a standard-normal
// quantile (theta), clamped at the 1%/99% boundaries to avoid infinities
// from the inverse CDF.
func (e *Estimator) EstimateProficiency(correctAnswers int) float64 {
	proportion := float64(correctAnswers) / float64(e.totalQuestions)
	switch {
	case proportion <= 0.01:
		return -thetaBound
	case proportion >= 0.99:
		return thetaBound
	}
	return distuv.UnitNormal.Quantile(proportion)
}

func clip(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
