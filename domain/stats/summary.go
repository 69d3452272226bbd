package stats

import (
	mstats "github.com/montanaflynn/stats"

	"enemtri/domain/core"
)

// SummarizeScores aggregates a raw sample of scores into the per-year
// statistics record. Used when statistics are built from microdata samples
// rather than loaded pre-aggregated.
func SummarizeScores(sample []float64) (AreaScoreStats, error) {
	summary, err := summarize(sample)
	if err != nil {
		return AreaScoreStats{}, err
	}
	return AreaScoreStats(summary), nil
}

// SummarizeAnswers aggregates a raw sample of correct-answer counts.
func SummarizeAnswers(sample []float64) (AreaAnswerStats, error) {
	summary, err := summarize(sample)
	if err != nil {
		return AreaAnswerStats{}, err
	}
	return AreaAnswerStats(summary), nil
}

func summarize(sample []float64) (AreaScoreStats, error) {
	if len(sample) == 0 {
		return AreaScoreStats{}, core.ErrNoData
	}

	mean, err := mstats.Mean(sample)
	if err != nil {
		return AreaScoreStats{}, err
	}
	std, err := mstats.StandardDeviation(sample)
	if err != nil {
		return AreaScoreStats{}, err
	}
	min, err := mstats.Min(sample)
	if err != nil {
		return AreaScoreStats{}, err
	}
	max, err := mstats.Max(sample)
	if err != nil {
		return AreaScoreStats{}, err
	}

	var pct Percentiles
	for _, q := range []struct {
		p   float64
		dst *float64
	}{
		{25, &pct.P25},
		{50, &pct.P50},
		{75, &pct.P75},
		{90, &pct.P90},
	} {
		v, err := mstats.Percentile(sample, q.p)
		if err != nil {
			// Percentile fails on single-element samples; fall back to the mean.
			v = mean
		}
		*q.dst = v
	}

	return AreaScoreStats{
		Mean:        mean,
		Std:         std,
		Min:         min,
		Max:         max,
		Percentiles: pct,
	}, nil
}
