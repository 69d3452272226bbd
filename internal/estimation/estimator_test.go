package estimation

import (
	"errors"
	"math"
	"testing"

	"enemtri/domain/core"
	"enemtri/domain/exam"
)

var testParams = Params{
	MinScore:     350.5,
	MaxScore:     985.0,
	MeanScore:    520.3,
	StdDeviation: 110.2,
}

func newTestEstimator() *Estimator {
	return NewEstimator(exam.Mathematics, exam.TotalQuestions, testParams)
}

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

// ============================================================================
// TEST: EstimateScore (population model)
// ============================================================================

func TestEstimateScore_WithinPopulationBounds(t *testing.T) {
	e := newTestEstimator()

	for ca := 0; ca <= exam.TotalQuestions; ca++ {
		score, err := e.EstimateScore(ca)
		if err != nil {
			t.Fatalf("EstimateScore(%d) failed: %v", ca, err)
		}
		if score < testParams.MinScore || score > testParams.MaxScore {
			t.Errorf("EstimateScore(%d) = %.2f outside [%.2f, %.2f]",
				ca, score, testParams.MinScore, testParams.MaxScore)
		}
	}
}

func TestEstimateScore_MonotonicInCorrectAnswers(t *testing.T) {
	e := newTestEstimator()

	prev := math.Inf(-1)
	for ca := 0; ca <= exam.TotalQuestions; ca++ {
		score, err := e.EstimateScore(ca)
		if err != nil {
			t.Fatalf("EstimateScore(%d) failed: %v", ca, err)
		}
		if score < prev {
			t.Errorf("score decreased at %d correct: %.2f < %.2f", ca, score, prev)
		}
		prev = score
	}
}

func TestEstimateScore_LogisticMidpoint(t *testing.T) {
	// At exactly half the questions correct the logistic curve sits at the
	// midpoint of the population score range.
	e := NewEstimator(exam.Mathematics, 44, testParams)

	score, err := e.EstimateScore(22)
	if err != nil {
		t.Fatalf("EstimateScore(22) failed: %v", err)
	}
	mid := (testParams.MinScore + testParams.MaxScore) / 2
	if !almostEqual(score, mid, 1e-9) {
		t.Errorf("midpoint score = %.4f, want %.4f", score, mid)
	}
}

func TestEstimateScore_InvalidCorrectAnswers(t *testing.T) {
	e := newTestEstimator()

	for _, ca := range []int{-1, exam.TotalQuestions + 1, 100} {
		if _, err := e.EstimateScore(ca); !errors.Is(err, core.ErrInvalidInput) {
			t.Errorf("EstimateScore(%d): expected ErrInvalidInput, got %v", ca, err)
		}
	}
}

// ============================================================================
// TEST: SetHistoricalData (personal calibration)
// ============================================================================

func TestSetHistoricalData_ExactMatchWinsOverFactor(t *testing.T) {
	e := newTestEstimator()

	err := e.SetHistoricalData([]int{20, 30}, []float64{500, 650}, []int{2022, 2023})
	if err != nil {
		t.Fatalf("SetHistoricalData failed: %v", err)
	}
	if !e.Calibrated() {
		t.Fatal("expected estimator to be calibrated after two points")
	}

	// Counts seen in history return the historical score verbatim.
	for _, tc := range []struct {
		ca   int
		want float64
	}{
		{20, 500},
		{30, 650},
	} {
		score, err := e.EstimateScore(tc.ca)
		if err != nil {
			t.Fatalf("EstimateScore(%d) failed: %v", tc.ca, err)
		}
		if !almostEqual(score, tc.want, 1e-9) {
			t.Errorf("EstimateScore(%d) = %.2f, want %.2f", tc.ca, score, tc.want)
		}
	}
}

func TestSetHistoricalData_FactorInterpolatesUnseenCounts(t *testing.T) {
	e := newTestEstimator()

	if err := e.SetHistoricalData([]int{20, 30}, []float64{500, 650}, []int{2022, 2023}); err != nil {
		t.Fatalf("SetHistoricalData failed: %v", err)
	}

	// Median of per-point factors {500/20, 650/30} = {25, 21.667} -> 23.333.
	score, err := e.EstimateScore(25)
	if err != nil {
		t.Fatalf("EstimateScore(25) failed: %v", err)
	}
	want := 25 * (25.0 + 650.0/30.0) / 2
	if !almostEqual(score, want, 1e-6) {
		t.Errorf("EstimateScore(25) = %.4f, want %.4f", score, want)
	}
}

func TestSetHistoricalData_RepeatedCountsAveraged(t *testing.T) {
	e := newTestEstimator()

	// Two attempts with the same count average in the exact-match table.
	err := e.SetHistoricalData([]int{25, 25, 30}, []float64{560, 600, 680}, []int{2021, 2022, 2023})
	if err != nil {
		t.Fatalf("SetHistoricalData failed: %v", err)
	}

	score, err := e.EstimateScore(25)
	if err != nil {
		t.Fatalf("EstimateScore(25) failed: %v", err)
	}
	if !almostEqual(score, 580, 1e-9) {
		t.Errorf("EstimateScore(25) = %.2f, want 580.00", score)
	}
}

func TestSetHistoricalData_LengthMismatch(t *testing.T) {
	e := newTestEstimator()

	err := e.SetHistoricalData([]int{1, 2, 3}, []float64{1.0, 2.0}, []int{2021, 2022, 2023})
	if !errors.Is(err, core.ErrLengthMismatch) {
		t.Errorf("expected ErrLengthMismatch, got %v", err)
	}
	if e.Calibrated() {
		t.Error("mismatched lists must not calibrate the estimator")
	}
}

func TestSetHistoricalData_SinglePointIsNoOp(t *testing.T) {
	e := newTestEstimator()

	if err := e.SetHistoricalData([]int{30}, []float64{650}, []int{2023}); err != nil {
		t.Fatalf("SetHistoricalData failed: %v", err)
	}
	if e.Calibrated() {
		t.Error("a single historical point must not calibrate the estimator")
	}
	if _, ok := e.EstimateScoreRange(30); ok {
		t.Error("score range must be unavailable with a single point")
	}
}

func TestSetHistoricalData_AllZeroCountsLeavesUncalibrated(t *testing.T) {
	e := newTestEstimator()

	if err := e.SetHistoricalData([]int{0, 0}, []float64{300, 320}, []int{2022, 2023}); err != nil {
		t.Fatalf("SetHistoricalData failed: %v", err)
	}
	if e.Calibrated() {
		t.Error("zero-count history yields no factor, estimator must stay uncalibrated")
	}

	// Falls back to the logistic curve.
	score, err := e.EstimateScore(10)
	if err != nil {
		t.Fatalf("EstimateScore(10) failed: %v", err)
	}
	if score < testParams.MinScore || score > testParams.MaxScore {
		t.Errorf("fallback score %.2f outside population bounds", score)
	}
}

// ============================================================================
// TEST: EstimateScoreRange
// ============================================================================

func TestEstimateScoreRange_Ordering(t *testing.T) {
	e := newTestEstimator()

	err := e.SetHistoricalData(
		[]int{18, 24, 31},
		[]float64{480, 560, 690},
		[]int{2021, 2022, 2023},
	)
	if err != nil {
		t.Fatalf("SetHistoricalData failed: %v", err)
	}

	for ca := 0; ca <= exam.TotalQuestions; ca++ {
		r, ok := e.EstimateScoreRange(ca)
		if !ok {
			t.Fatalf("EstimateScoreRange(%d) unavailable after calibration", ca)
		}
		if !r.Ordered() {
			t.Errorf("range at %d correct violates ordering: %+v", ca, r)
		}
		if r.Pessimistic < 300 || r.Optimistic > 1000 {
			t.Errorf("range at %d correct outside [300, 1000]: %+v", ca, r)
		}
	}
}

func TestEstimateScoreRange_GrowthLiftsCalculated(t *testing.T) {
	e := newTestEstimator()

	// Strictly rising scores: the growth factor exceeds 1 and pushes the
	// calculated point above the band midpoint.
	err := e.SetHistoricalData(
		[]int{20, 25, 30},
		[]float64{500, 580, 680},
		[]int{2021, 2022, 2023},
	)
	if err != nil {
		t.Fatalf("SetHistoricalData failed: %v", err)
	}

	r, ok := e.EstimateScoreRange(27)
	if !ok {
		t.Fatal("EstimateScoreRange unavailable after calibration")
	}
	mid := (r.Pessimistic + r.Optimistic) / 2
	if r.Calculated < mid {
		t.Errorf("calculated %.2f below midpoint %.2f despite rising history", r.Calculated, mid)
	}
}

func TestEstimateScoreRange_UnavailableWithoutHistory(t *testing.T) {
	e := newTestEstimator()

	if _, ok := e.EstimateScoreRange(25); ok {
		t.Error("score range must be unavailable without calibration")
	}
}

// ============================================================================
// TEST: ConfidenceInterval
// ============================================================================

func TestConfidenceInterval_WiderConfidenceWidensInterval(t *testing.T) {
	e := newTestEstimator()

	lo95, hi95, err := e.ConfidenceInterval(25, 0.95)
	if err != nil {
		t.Fatalf("ConfidenceInterval(25, 0.95) failed: %v", err)
	}
	lo99, hi99, err := e.ConfidenceInterval(25, 0.99)
	if err != nil {
		t.Fatalf("ConfidenceInterval(25, 0.99) failed: %v", err)
	}

	if hi99-lo99 <= hi95-lo95 {
		t.Errorf("99%% interval [%.2f, %.2f] not wider than 95%% [%.2f, %.2f]",
			lo99, hi99, lo95, hi95)
	}
}

func TestConfidenceInterval_ContainsPointEstimate(t *testing.T) {
	e := newTestEstimator()

	score, err := e.EstimateScore(25)
	if err != nil {
		t.Fatalf("EstimateScore(25) failed: %v", err)
	}
	lo, hi, err := e.ConfidenceInterval(25, 0.95)
	if err != nil {
		t.Fatalf("ConfidenceInterval failed: %v", err)
	}
	if score < lo || score > hi {
		t.Errorf("point estimate %.2f outside interval [%.2f, %.2f]", score, lo, hi)
	}
}

func TestConfidenceInterval_ClippedToPopulationBounds(t *testing.T) {
	e := newTestEstimator()

	lo, _, err := e.ConfidenceInterval(0, 0.99)
	if err != nil {
		t.Fatalf("ConfidenceInterval(0, 0.99) failed: %v", err)
	}
	if lo < testParams.MinScore {
		t.Errorf("lower bound %.2f below population minimum %.2f", lo, testParams.MinScore)
	}

	_, hi, err := e.ConfidenceInterval(exam.TotalQuestions, 0.99)
	if err != nil {
		t.Fatalf("ConfidenceInterval(45, 0.99) failed: %v", err)
	}
	if hi > testParams.MaxScore {
		t.Errorf("upper bound %.2f above population maximum %.2f", hi, testParams.MaxScore)
	}
}

func TestConfidenceInterval_InvalidConfidence(t *testing.T) {
	e := newTestEstimator()

	for _, c := range []float64{0, 1, -0.5, 1.5} {
		if _, _, err := e.ConfidenceInterval(25, c); !errors.Is(err, core.ErrInvalidInput) {
			t.Errorf("confidence %g: expected ErrInvalidInput, got %v", c, err)
		}
	}
}

// ============================================================================
// TEST: EstimateProficiency
// ============================================================================

func TestEstimateProficiency_ClampedAtExtremes(t *testing.T) {
	e := newTestEstimator()

	if got := e.EstimateProficiency(0); got != -3.0 {
		t.Errorf("proficiency at 0 correct = %.2f, want -3.00", got)
	}
	if got := e.EstimateProficiency(exam.TotalQuestions); got != 3.0 {
		t.Errorf("proficiency at all correct = %.2f, want 3.00", got)
	}
}

func TestEstimateProficiency_MonotonicAndCentered(t *testing.T) {
	e := newTestEstimator()

	prev := math.Inf(-1)
	for ca := 0; ca <= exam.TotalQuestions; ca++ {
		theta := e.EstimateProficiency(ca)
		if theta < prev {
			t.Errorf("proficiency decreased at %d correct: %.4f < %.4f", ca, theta, prev)
		}
		if theta < -3 || theta > 3 {
			t.Errorf("proficiency at %d correct = %.4f outside [-3, 3]", ca, theta)
		}
		prev = theta
	}

	// Below half correct implies negative theta, above half positive.
	if theta := e.EstimateProficiency(22); theta >= 0 {
		t.Errorf("proficiency at 22/45 = %.4f, want negative", theta)
	}
	if theta := e.EstimateProficiency(23); theta <= 0 {
		t.Errorf("proficiency at 23/45 = %.4f, want positive", theta)
	}
}
