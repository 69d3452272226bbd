package estimation

import (
	"enemtri/domain/exam"
)

// Fixed fallback parameters, used only when no population data exists at all.
const (
	defaultMinScore     = 300.0
	defaultMaxScore     = 900.0
	defaultMeanScore    = 500.0
	defaultStdDeviation = 100.0

	averageWindowYears = 5
)

// ParamStrategy resolves population parameters for one area or reports
// "no data". Strategies are evaluated in an explicit ordered chain so each
// step of the fallback cascade stays testable on its own.
type ParamStrategy interface {
	Name() string
	Resolve(area exam.Area) (Params, bool)
}

// ResolveParams walks the strategy chain and returns the first hit plus the
// winning strategy's name. The chain is expected to end in a strategy that
// always resolves.
func ResolveParams(area exam.Area, strategies []ParamStrategy) (Params, string) {
	for _, s := range strategies {
		if p, ok := s.Resolve(area); ok {
			return p, s.Name()
		}
	}
	return FixedDefaultStrategy{}.mustResolve(), FixedDefaultStrategy{}.Name()
}

// CustomStrategy serves caller-supplied per-area parameters.
type CustomStrategy struct {
	Params map[exam.Area]Params
}

func (s CustomStrategy) Name() string { return "custom" }

func (s CustomStrategy) Resolve(area exam.Area) (Params, bool) {
	p, ok := s.Params[area]
	return p, ok
}

// ReferenceYearStrategy serves parameters straight from one year's
// population score statistics.
type ReferenceYearStrategy struct {
	Data PopulationData
	Year int
}

func (s ReferenceYearStrategy) Name() string { return "reference-year" }

func (s ReferenceYearStrategy) Resolve(area exam.Area) (Params, bool) {
	record, ok := s.Data.AreaScoreStats(area, s.Year)
	if !ok {
		return Params{}, false
	}
	return Params{
		MinScore:     record.Min,
		MaxScore:     record.Max,
		MeanScore:    record.Mean,
		StdDeviation: record.Std,
	}, true
}

// RecentAverageStrategy averages each parameter over the window of years
// ending at the reference year. Years missing the area contribute nothing.
type RecentAverageStrategy struct {
	Data          PopulationData
	ReferenceYear int
}

func (s RecentAverageStrategy) Name() string { return "recent-average" }

func (s RecentAverageStrategy) Resolve(area exam.Area) (Params, bool) {
	var sum Params
	count := 0

	for year := s.ReferenceYear - averageWindowYears + 1; year <= s.ReferenceYear; year++ {
		record, ok := s.Data.AreaScoreStats(area, year)
		if !ok {
			continue
		}
		sum.MinScore += record.Min
		sum.MaxScore += record.Max
		sum.MeanScore += record.Mean
		sum.StdDeviation += record.Std
		count++
	}

	if count == 0 {
		return Params{}, false
	}
	n := float64(count)
	return Params{
		MinScore:     sum.MinScore / n,
		MaxScore:     sum.MaxScore / n,
		MeanScore:    sum.MeanScore / n,
		StdDeviation: sum.StdDeviation / n,
	}, true
}

// FixedDefaultStrategy always resolves to the hardcoded 300/900/500/100
// parameters. It terminates every chain.
type FixedDefaultStrategy struct{}

func (s FixedDefaultStrategy) Name() string { return "fixed-default" }

func (s FixedDefaultStrategy) Resolve(exam.Area) (Params, bool) {
	return s.mustResolve(), true
}

func (s FixedDefaultStrategy) mustResolve() Params {
	return Params{
		MinScore:     defaultMinScore,
		MaxScore:     defaultMaxScore,
		MeanScore:    defaultMeanScore,
		StdDeviation: defaultStdDeviation,
	}
}
