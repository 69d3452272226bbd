// Package app wires the estimation engine to its data sources: population
// statistics from the store, personal history from the user-data file.
package app

import (
	"context"
	"time"

	"enemtri/domain/core"
	"enemtri/domain/exam"
	"enemtri/domain/stats"
	"enemtri/internal"
	"enemtri/internal/estimation"
	"enemtri/internal/microdata"
	"enemtri/ports"

	"github.com/google/uuid"
)

// SimulationRequest carries one exam attempt. Zero-valued options fall back
// to the user's settings and then to the service defaults.
type SimulationRequest struct {
	Mathematics     int     `json:"mathematics"`
	Languages       int     `json:"languages"`
	NaturalSciences int     `json:"natural_sciences"`
	HumanSciences   int     `json:"human_sciences"`
	EssayScore      float64 `json:"essay_score"`

	ReferenceYear   int     `json:"reference_year,omitempty"`
	ConfidenceLevel float64 `json:"confidence_level,omitempty"`
}

// Correct returns the requested correct-answer count for an objective area.
func (r SimulationRequest) Correct(area exam.Area) int {
	switch area {
	case exam.Mathematics:
		return r.Mathematics
	case exam.Languages:
		return r.Languages
	case exam.NaturalSciences:
		return r.NaturalSciences
	case exam.HumanSciences:
		return r.HumanSciences
	}
	return 0
}

// Interval is a two-sided confidence interval around an estimated score.
type Interval struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Level float64 `json:"level"`
}

// SimulationOutcome is the complete result of one simulation run.
type SimulationOutcome struct {
	ID            string                                `json:"id"`
	ReferenceYear int                                   `json:"reference_year"`
	Result        *exam.Result                          `json:"result"`
	Intervals     map[exam.Area]Interval                `json:"intervals,omitempty"`
	Factors       map[exam.Area][]estimation.FactorPoint `json:"factors,omitempty"`
	Comparison    map[exam.Area]map[int]float64         `json:"comparison,omitempty"`
	Calibrated    map[exam.Area]bool                    `json:"calibrated"`
	Resolutions   map[exam.Area]string                  `json:"resolutions"`
	CreatedAt     time.Time                             `json:"created_at"`
}

// SimulationService runs score simulations. A fresh Calculator is built per
// request so one caller's calibration never leaks into another's estimate.
type SimulationService struct {
	store         ports.StatisticsStore
	history       ports.HistorySource
	processor     *microdata.Processor
	referenceYear int
	confidence    float64
	logger        *internal.Logger
}

// NewSimulationService creates the service. The history source may be nil;
// simulations then run population-only.
func NewSimulationService(store ports.StatisticsStore, history ports.HistorySource, referenceYear int, confidence float64, logger *internal.Logger) *SimulationService {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &SimulationService{
		store:         store,
		history:       history,
		processor:     microdata.NewProcessor(store, history),
		referenceYear: referenceYear,
		confidence:    confidence,
		logger:        logger.WithComponent("simulation"),
	}
}

// Run executes a full simulation for one attempt.
func (s *SimulationService) Run(ctx context.Context, req SimulationRequest) (*SimulationOutcome, error) {
	history, err := s.loadHistory(ctx)
	if err != nil {
		return nil, err
	}

	population, err := s.loadPopulation(ctx)
	if err != nil {
		return nil, err
	}

	referenceYear := req.ReferenceYear
	if referenceYear == 0 {
		referenceYear = s.referenceYear
	}
	confidence := req.ConfidenceLevel
	if confidence == 0 {
		confidence = s.confidence
		if history != nil && history.Settings.ConfidenceLevel != nil {
			confidence = history.Settings.Confidence()
		}
	}

	calc := estimation.NewCalculator(estimation.CalculatorOptions{
		TotalQuestions:    exam.TotalQuestions,
		UsePopulationData: len(population.Scores) > 0,
		ReferenceYear:     referenceYear,
		Population:        population,
	})

	useHistory := history != nil && history.HasHistory() && history.Settings.UseHistory()
	if useHistory {
		for _, area := range exam.ObjectiveAreas() {
			correct, scores, years := history.CalibrationSeries(area)
			if err := calc.CalibrateWithUserData(area, correct, scores, years); err != nil {
				return nil, err
			}
		}
	}

	result, err := calc.CalculateScore(
		req.Mathematics, req.Languages, req.NaturalSciences, req.HumanSciences,
		req.EssayScore,
	)
	if err != nil {
		return nil, err
	}

	outcome := &SimulationOutcome{
		ID:            uuid.NewString(),
		ReferenceYear: referenceYear,
		Result:        result,
		Calibrated:    make(map[exam.Area]bool),
		Resolutions:   make(map[exam.Area]string),
		CreatedAt:     time.Now().UTC(),
	}
	for _, area := range exam.ObjectiveAreas() {
		outcome.Calibrated[area] = calc.Calibrated(area)
		outcome.Resolutions[area] = calc.Resolution(area)
	}

	outcome.Intervals = s.buildIntervals(calc, req, confidence)
	outcome.Factors = s.buildFactors(ctx, population, history, useHistory)
	if history != nil && history.Settings.Comparison() {
		outcome.Comparison = buildComparison(history)
	}

	s.logger.Info("simulation %s complete (reference year %d, calibrated areas: %d)",
		outcome.ID, referenceYear, countCalibrated(outcome.Calibrated))
	return outcome, nil
}

// RunFromHistory runs a simulation for the current attempt recorded in the
// user's history file.
func (s *SimulationService) RunFromHistory(ctx context.Context) (*SimulationOutcome, error) {
	history, err := s.loadHistory(ctx)
	if err != nil {
		return nil, err
	}
	if history == nil || history.Current == nil {
		return nil, core.ErrNoData
	}
	if ok, problems := history.ValidateCurrent(); !ok {
		return nil, core.NewValidationError(problems)
	}

	return s.Run(ctx, SimulationRequest{
		Mathematics:     history.Current.Mathematics,
		Languages:       history.Current.Languages,
		NaturalSciences: history.Current.NaturalSciences,
		HumanSciences:   history.Current.HumanSciences,
		EssayScore:      history.Current.EssayScore,
	})
}

// AreaEstimate is the single-area endpoint payload.
type AreaEstimate struct {
	Area           exam.Area        `json:"area"`
	CorrectAnswers int              `json:"correct_answers"`
	Score          float64          `json:"score"`
	Range          *exam.ScoreRange `json:"range,omitempty"`
	Interval       *Interval        `json:"interval,omitempty"`
	Calibrated     bool             `json:"calibrated"`
}

// EstimateArea scores a single objective area.
func (s *SimulationService) EstimateArea(ctx context.Context, area exam.Area, correctAnswers int, confidence float64) (*AreaEstimate, error) {
	calc, history, err := s.buildCalculator(ctx)
	if err != nil {
		return nil, err
	}
	if confidence == 0 {
		confidence = s.confidence
		if history != nil && history.Settings.ConfidenceLevel != nil {
			confidence = history.Settings.Confidence()
		}
	}

	score, err := calc.CalculateAreaScore(area, correctAnswers)
	if err != nil {
		return nil, err
	}

	estimate := &AreaEstimate{
		Area:           area,
		CorrectAnswers: correctAnswers,
		Score:          score,
		Calibrated:     calc.Calibrated(area),
	}
	if r, ok := calc.EstimateScoreRange(area, correctAnswers); ok {
		estimate.Range = &r
	}
	if lo, hi, err := calc.ConfidenceInterval(area, correctAnswers, confidence); err == nil {
		estimate.Interval = &Interval{Lower: lo, Upper: hi, Level: confidence}
	}
	return estimate, nil
}

// FactorEvolution returns the factor history for one area, adjusted with
// user data when available.
func (s *SimulationService) FactorEvolution(ctx context.Context, area exam.Area) ([]estimation.FactorPoint, error) {
	if !area.IsObjective() {
		return nil, core.NewUnsupportedAreaError(string(area), "factor evolution")
	}

	history, err := s.loadHistory(ctx)
	if err != nil {
		return nil, err
	}
	population, err := s.loadPopulation(ctx)
	if err != nil {
		return nil, err
	}

	useHistory := history != nil && history.HasHistory() && history.Settings.UseHistory()
	factors := s.buildFactors(ctx, population, history, useHistory)
	points, ok := factors[area]
	if !ok || len(points) == 0 {
		return nil, core.ErrNoData
	}
	return points, nil
}

// Statistics returns the stored population statistics for one year,
// deriving correct-answer estimates when no stored record exists.
func (s *SimulationService) Statistics(ctx context.Context, year int) (*YearStatistics, error) {
	scores, ok, err := s.store.ScoreStats(ctx, year)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, core.ErrNoData
	}
	answers, err := s.processor.CorrectAnswerStats(ctx, year)
	if err != nil {
		return nil, err
	}
	return &YearStatistics{Year: year, Scores: scores, Answers: answers}, nil
}

// buildCalculator assembles a calibrated calculator plus the history that
// fed it, shared by the single-area operations.
func (s *SimulationService) buildCalculator(ctx context.Context) (*estimation.Calculator, *exam.History, error) {
	history, err := s.loadHistory(ctx)
	if err != nil {
		return nil, nil, err
	}
	population, err := s.loadPopulation(ctx)
	if err != nil {
		return nil, nil, err
	}

	calc := estimation.NewCalculator(estimation.CalculatorOptions{
		TotalQuestions:    exam.TotalQuestions,
		UsePopulationData: len(population.Scores) > 0,
		ReferenceYear:     s.referenceYear,
		Population:        population,
	})

	if history != nil && history.HasHistory() && history.Settings.UseHistory() {
		for _, area := range exam.ObjectiveAreas() {
			correct, scores, years := history.CalibrationSeries(area)
			if err := calc.CalibrateWithUserData(area, correct, scores, years); err != nil {
				return nil, nil, err
			}
		}
	}
	return calc, history, nil
}

func (s *SimulationService) loadHistory(ctx context.Context) (*exam.History, error) {
	if s.history == nil {
		return nil, nil
	}
	history, ok, err := s.history.Load(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return history, nil
}

// loadPopulation assembles every cached year into one population snapshot.
// Answer statistics fall back to microdata-derived estimates per year.
func (s *SimulationService) loadPopulation(ctx context.Context) (estimation.PopulationData, error) {
	population := estimation.PopulationData{
		Scores:  make(map[int]stats.YearScoreStats),
		Answers: make(map[int]stats.YearAnswerStats),
	}

	years, err := s.store.ScoreYears(ctx)
	if err != nil {
		return population, err
	}
	for _, year := range years {
		scores, ok, err := s.store.ScoreStats(ctx, year)
		if err != nil {
			return population, err
		}
		if !ok {
			continue
		}
		population.Scores[year] = scores

		answers, err := s.processor.CorrectAnswerStats(ctx, year)
		if err != nil {
			return population, err
		}
		population.Answers[year] = answers
	}
	return population, nil
}

// buildFactors runs the factor engine over the population years and, when
// history applies, adjusts the global factors with the user's own ratios.
func (s *SimulationService) buildFactors(ctx context.Context, population estimation.PopulationData, history *exam.History, useHistory bool) map[exam.Area][]estimation.FactorPoint {
	years := population.ScoreYears()
	if len(years) == 0 {
		return nil
	}

	engine := estimation.NewFactorEngine()
	factors := make(map[exam.Area][]estimation.FactorPoint)
	for _, area := range exam.ObjectiveAreas() {
		engine.InitializeArea(area, years, population)
		if useHistory {
			correct, scores, years := history.CalibrationSeries(area)
			engine.AdjustWithUserData(area, correct, scores, years)
		}
		if points := engine.FactorEvolution(area); len(points) > 0 {
			factors[area] = points
		}
	}
	if len(factors) == 0 {
		return nil
	}
	return factors
}

func (s *SimulationService) buildIntervals(calc *estimation.Calculator, req SimulationRequest, confidence float64) map[exam.Area]Interval {
	intervals := make(map[exam.Area]Interval)
	for _, area := range exam.ObjectiveAreas() {
		lo, hi, err := calc.ConfidenceInterval(area, req.Correct(area), confidence)
		if err != nil {
			continue
		}
		intervals[area] = Interval{Lower: lo, Upper: hi, Level: confidence}
	}
	if len(intervals) == 0 {
		return nil
	}
	return intervals
}

// buildComparison collects the official scores from previous years per area.
func buildComparison(history *exam.History) map[exam.Area]map[int]float64 {
	comparison := make(map[exam.Area]map[int]float64)
	for _, rec := range history.PreviousYears {
		for _, area := range exam.ObjectiveAreas() {
			score := rec.Entry(area).OfficialScore
			if score == nil {
				continue
			}
			if comparison[area] == nil {
				comparison[area] = make(map[int]float64)
			}
			comparison[area][rec.Year] = *score
		}
	}
	if len(comparison) == 0 {
		return nil
	}
	return comparison
}

func countCalibrated(calibrated map[exam.Area]bool) int {
	n := 0
	for _, ok := range calibrated {
		if ok {
			n++
		}
	}
	return n
}

// YearStatistics is the statistics endpoint payload.
type YearStatistics struct {
	Year    int                   `json:"year"`
	Scores  stats.YearScoreStats  `json:"scores"`
	Answers stats.YearAnswerStats `json:"answers"`
}
