// Package microdata derives population correct-answer statistics when no
// processed microdata exists for a year. Official item-level microdata is
// gigabytes of CSV; the published score statistics plus an approximate
// linear conversion recover a usable answer distribution.
package microdata

import (
	"context"
	"math"

	"enemtri/domain/exam"
	"enemtri/domain/stats"
	"enemtri/ports"
)

const (
	baseScore     = 300.0 // scale floor the inverse conversion anchors on
	defaultFactor = 13.0  // points per correct answer when no range exists

	// Normal quantiles approximating the 25th/75th and 90th percentiles.
	zQuartile = 0.67
	zP90      = 1.28
)

// Processor resolves correct-answer statistics for a year: stored records
// first, then an inverse derivation from score statistics, then a fixed
// fallback table. It never fails outright; the cascade always produces a
// record for every area with score data.
type Processor struct {
	store   ports.StatisticsStore
	history ports.HistorySource
}

// NewProcessor creates a processor. history may be nil; it only sharpens
// the derived conversion factors.
func NewProcessor(store ports.StatisticsStore, history ports.HistorySource) *Processor {
	return &Processor{store: store, history: history}
}

// CorrectAnswerStats returns the answer statistics for a year, deriving
// them from score statistics when nothing is stored.
func (p *Processor) CorrectAnswerStats(ctx context.Context, year int) (stats.YearAnswerStats, error) {
	stored, ok, err := p.store.AnswerStats(ctx, year)
	if err != nil {
		return nil, err
	}
	if ok {
		return stored, nil
	}
	return p.Derive(ctx, year)
}

// Derive estimates answer statistics from the year's score statistics by
// inverting the linear score model: correct ~ (score - base) / factor. The
// factor comes from the user's own history when available, else from the
// population score range over the question count.
func (p *Processor) Derive(ctx context.Context, year int) (stats.YearAnswerStats, error) {
	scoreStats, ok, err := p.store.ScoreStats(ctx, year)
	if err != nil {
		return nil, err
	}
	if !ok {
		return FallbackStats(), nil
	}

	userFactors := p.userConversionFactors(ctx)

	derived := make(stats.YearAnswerStats, len(scoreStats))
	for area, scores := range scoreStats {
		if !area.IsObjective() {
			continue
		}

		factor, ok := userFactors[area]
		if !ok || factor <= 0 {
			if scoreRange := scores.Max - scores.Min; scoreRange > 0 {
				factor = scoreRange / float64(exam.TotalQuestions)
			} else {
				factor = defaultFactor
			}
		}

		mean := math.Max(0, (scores.Mean-baseScore)/factor)
		std := scores.Std / factor

		p25 := math.Max(0, (scores.Mean-zQuartile*scores.Std-baseScore)/factor)
		p75 := math.Min(float64(exam.TotalQuestions), (scores.Mean+zQuartile*scores.Std-baseScore)/factor)
		p90 := math.Min(float64(exam.TotalQuestions), (scores.Mean+zP90*scores.Std-baseScore)/factor)

		derived[area] = stats.AreaAnswerStats{
			Mean: round2(mean),
			Std:  round2(std),
			Min:  0,
			Max:  float64(exam.TotalQuestions),
			Percentiles: stats.Percentiles{
				P25: round2(p25),
				P50: round2(mean),
				P75: round2(p75),
				P90: round2(p90),
			},
		}
	}

	return derived, nil
}

// Regenerate derives and stores answer statistics for each year, replacing
// whatever was cached.
func (p *Processor) Regenerate(ctx context.Context, years []int) error {
	for _, year := range years {
		derived, err := p.Derive(ctx, year)
		if err != nil {
			return err
		}
		if err := p.store.SaveAnswerStats(ctx, year, derived); err != nil {
			return err
		}
	}
	return nil
}

// userConversionFactors averages score/correct ratios per area across the
// user's calibratable historical years.
func (p *Processor) userConversionFactors(ctx context.Context) map[exam.Area]float64 {
	if p.history == nil {
		return nil
	}
	history, ok, err := p.history.Load(ctx)
	if err != nil || !ok || history == nil {
		return nil
	}

	factors := make(map[exam.Area]float64)
	for _, area := range exam.ObjectiveAreas() {
		correct, scores, _ := history.CalibrationSeries(area)
		if len(correct) == 0 {
			continue
		}
		var sum float64
		for i, ca := range correct {
			sum += scores[i] / float64(ca)
		}
		factors[area] = sum / float64(len(correct))
	}
	return factors
}

// FallbackStats is the fixed answer-statistics table used when not even
// score statistics exist for a year. Values reflect typical exam-wide
// distributions.
func FallbackStats() stats.YearAnswerStats {
	return stats.YearAnswerStats{
		exam.Mathematics: {
			Mean: 22.5, Std: 8.0, Min: 0, Max: 45,
			Percentiles: stats.Percentiles{P25: 16.0, P50: 22.5, P75: 29.0, P90: 33.0},
		},
		exam.Languages: {
			Mean: 24.0, Std: 7.0, Min: 0, Max: 45,
			Percentiles: stats.Percentiles{P25: 18.0, P50: 24.0, P75: 30.0, P90: 34.0},
		},
		exam.NaturalSciences: {
			Mean: 23.0, Std: 7.5, Min: 0, Max: 45,
			Percentiles: stats.Percentiles{P25: 17.0, P50: 23.0, P75: 29.0, P90: 33.0},
		},
		exam.HumanSciences: {
			Mean: 25.0, Std: 6.5, Min: 0, Max: 45,
			Percentiles: stats.Percentiles{P25: 20.0, P50: 25.0, P75: 31.0, P90: 35.0},
		},
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
