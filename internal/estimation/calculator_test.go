package estimation

import (
	"errors"
	"strings"
	"testing"

	"enemtri/domain/core"
	"enemtri/domain/exam"
	"enemtri/domain/stats"
)

func fullPopulation(years ...int) PopulationData {
	data := PopulationData{
		Scores:  make(map[int]stats.YearScoreStats),
		Answers: make(map[int]stats.YearAnswerStats),
	}
	for _, year := range years {
		record := make(stats.YearScoreStats)
		for _, area := range exam.ObjectiveAreas() {
			record[area] = stats.AreaScoreStats{
				Mean: 520, Std: 105, Min: 330, Max: 955,
				Percentiles: stats.Percentiles{P25: 440, P50: 515, P75: 595, P90: 670},
			}
		}
		data.Scores[year] = record
	}
	return data
}

// ============================================================================
// TEST: parameter resolution cascade
// ============================================================================

func TestResolveParams_ReferenceYearWins(t *testing.T) {
	calc := NewCalculator(CalculatorOptions{
		UsePopulationData: true,
		ReferenceYear:     2023,
		Population:        fullPopulation(2023),
	})

	if got := calc.Resolution(exam.Mathematics); got != "reference-year" {
		t.Errorf("resolution = %q, want reference-year", got)
	}
	params, ok := calc.AreaParams(exam.Mathematics)
	if !ok {
		t.Fatal("expected parameters for mathematics")
	}
	if params.MinScore != 330 || params.MeanScore != 520 {
		t.Errorf("parameters not taken from the 2023 record: %+v", params)
	}
}

func TestResolveParams_FallsBackToRecentAverage(t *testing.T) {
	// Reference year 2024 is absent; 2021-2023 feed the average window.
	calc := NewCalculator(CalculatorOptions{
		UsePopulationData: true,
		ReferenceYear:     2024,
		Population:        fullPopulation(2021, 2022, 2023),
	})

	if got := calc.Resolution(exam.Languages); got != "recent-average" {
		t.Errorf("resolution = %q, want recent-average", got)
	}
	params, _ := calc.AreaParams(exam.Languages)
	if params.MeanScore != 520 {
		t.Errorf("averaged mean = %.2f, want 520.00", params.MeanScore)
	}
}

func TestResolveParams_FixedDefaultsWhenNoData(t *testing.T) {
	calc := NewCalculator(CalculatorOptions{
		UsePopulationData: true,
		ReferenceYear:     2024,
	})

	for _, area := range exam.ObjectiveAreas() {
		if got := calc.Resolution(area); got != "fixed-default" {
			t.Errorf("%s resolution = %q, want fixed-default", area, got)
		}
		params, _ := calc.AreaParams(area)
		if params.MinScore != 300 || params.MaxScore != 900 ||
			params.MeanScore != 500 || params.StdDeviation != 100 {
			t.Errorf("%s parameters = %+v, want fixed defaults", area, params)
		}
	}
}

func TestResolveParams_CustomOverridesPopulation(t *testing.T) {
	custom := map[exam.Area]Params{
		exam.Mathematics: {MinScore: 360, MaxScore: 985, MeanScore: 540, StdDeviation: 115},
	}
	calc := NewCalculator(CalculatorOptions{
		CustomParams:      custom,
		UsePopulationData: true,
		ReferenceYear:     2023,
		Population:        fullPopulation(2023),
	})

	if got := calc.Resolution(exam.Mathematics); got != "custom" {
		t.Errorf("mathematics resolution = %q, want custom", got)
	}
	// Areas absent from the custom map drop to fixed defaults, not population.
	if got := calc.Resolution(exam.Languages); got != "fixed-default" {
		t.Errorf("languages resolution = %q, want fixed-default", got)
	}
}

// ============================================================================
// TEST: CalculateScore (end to end)
// ============================================================================

func TestCalculateScore_PerfectExam(t *testing.T) {
	calc := NewCalculator(CalculatorOptions{ReferenceYear: 2024})

	result, err := calc.CalculateScore(45, 45, 45, 45, 1000.0)
	if err != nil {
		t.Fatalf("CalculateScore failed: %v", err)
	}

	for _, area := range exam.ObjectiveAreas() {
		if score := result.Score(area); score <= 700 {
			t.Errorf("%s score = %.2f, want > 700 for a perfect exam", area, score)
		}
	}
	if result.EssayScore != 1000.0 {
		t.Errorf("essay score = %.2f, want pass-through 1000.00", result.EssayScore)
	}
}

func TestCalculateScore_BlankExam(t *testing.T) {
	calc := NewCalculator(CalculatorOptions{ReferenceYear: 2024})

	result, err := calc.CalculateScore(0, 0, 0, 0, 0.0)
	if err != nil {
		t.Fatalf("CalculateScore failed: %v", err)
	}

	for _, area := range exam.ObjectiveAreas() {
		if score := result.Score(area); score >= 500 {
			t.Errorf("%s score = %.2f, want < 500 for a blank exam", area, score)
		}
	}
	if avg := result.ObjectiveAverage(); avg >= 500 {
		t.Errorf("objective average = %.2f, want < 500", avg)
	}
	if result.EssayScore != 0 {
		t.Errorf("essay score = %.2f, want 0.00", result.EssayScore)
	}
}

func TestCalculateScore_EssayOutOfRange(t *testing.T) {
	calc := NewCalculator(CalculatorOptions{ReferenceYear: 2024})

	_, err := calc.CalculateScore(20, 20, 20, 20, 1500.0)
	if !errors.Is(err, core.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if !strings.Contains(err.Error(), "0 and 1000") {
		t.Errorf("error %q does not name the [0, 1000] bound", err)
	}
}

func TestCalculateScore_InvalidCountPropagates(t *testing.T) {
	calc := NewCalculator(CalculatorOptions{ReferenceYear: 2024})

	if _, err := calc.CalculateScore(46, 20, 20, 20, 800.0); !errors.Is(err, core.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for 46 correct, got %v", err)
	}
}

func TestCalculateScore_RangePresentOnlyAfterCalibration(t *testing.T) {
	calc := NewCalculator(CalculatorOptions{ReferenceYear: 2024})

	before, err := calc.CalculateScore(25, 25, 25, 25, 800.0)
	if err != nil {
		t.Fatalf("CalculateScore failed: %v", err)
	}
	if before.Areas[exam.Mathematics].Range != nil {
		t.Error("uncalibrated area must not carry a score range")
	}

	err = calc.CalibrateWithUserData(exam.Mathematics,
		[]int{20, 28}, []float64{540, 720}, []int{2022, 2023})
	if err != nil {
		t.Fatalf("CalibrateWithUserData failed: %v", err)
	}

	after, err := calc.CalculateScore(25, 25, 25, 25, 800.0)
	if err != nil {
		t.Fatalf("CalculateScore failed: %v", err)
	}
	mathRange := after.Areas[exam.Mathematics].Range
	if mathRange == nil {
		t.Fatal("calibrated mathematics must carry a score range")
	}
	if !mathRange.Ordered() {
		t.Errorf("range violates ordering: %+v", mathRange)
	}
	if after.Areas[exam.Languages].Range != nil {
		t.Error("languages was never calibrated, must carry no range")
	}
}

func TestCalculateScore_CalibratedScoreClippedToScale(t *testing.T) {
	calc := NewCalculator(CalculatorOptions{ReferenceYear: 2024})

	// Factor 30 points per correct answer: 45 correct projects to 1350.
	err := calc.CalibrateWithUserData(exam.Mathematics,
		[]int{20, 25}, []float64{600, 750}, []int{2022, 2023})
	if err != nil {
		t.Fatalf("CalibrateWithUserData failed: %v", err)
	}

	score, err := calc.CalculateAreaScore(exam.Mathematics, 45)
	if err != nil {
		t.Fatalf("CalculateAreaScore failed: %v", err)
	}
	if score != 1000 {
		t.Errorf("score = %.2f, want clipped 1000.00", score)
	}
}

// ============================================================================
// TEST: essay guard rails
// ============================================================================

func TestEssayOperations_Unsupported(t *testing.T) {
	calc := NewCalculator(CalculatorOptions{ReferenceYear: 2024})

	if _, err := calc.CalculateAreaScore(exam.Essay, 1); !errors.Is(err, core.ErrUnsupportedArea) {
		t.Errorf("CalculateAreaScore(essay): expected ErrUnsupportedArea, got %v", err)
	}
	if _, _, err := calc.ConfidenceInterval(exam.Essay, 1, 0.95); !errors.Is(err, core.ErrUnsupportedArea) {
		t.Errorf("ConfidenceInterval(essay): expected ErrUnsupportedArea, got %v", err)
	}
	if err := calc.CalibrateWithUserData(exam.Essay, []int{20}, []float64{600}, []int{2023}); err != nil {
		t.Errorf("essay calibration must be a silent no-op, got %v", err)
	}
}

// ============================================================================
// TEST: calibration plumbing
// ============================================================================

func TestCalibrateWithUserData_LengthMismatchSurfaces(t *testing.T) {
	calc := NewCalculator(CalculatorOptions{ReferenceYear: 2024})

	err := calc.CalibrateWithUserData(exam.Mathematics,
		[]int{1, 2, 3}, []float64{1.0, 2.0}, []int{2021, 2022, 2023})
	if !errors.Is(err, core.ErrLengthMismatch) {
		t.Errorf("expected ErrLengthMismatch, got %v", err)
	}
	if calc.Calibrated(exam.Mathematics) {
		t.Error("failed calibration must leave the estimator uncalibrated")
	}
}

func TestCalibrateWithUserData_EmptyListsNoOp(t *testing.T) {
	calc := NewCalculator(CalculatorOptions{ReferenceYear: 2024})

	if err := calc.CalibrateWithUserData(exam.Mathematics, nil, nil, nil); err != nil {
		t.Errorf("empty calibration must be a no-op, got %v", err)
	}
}
