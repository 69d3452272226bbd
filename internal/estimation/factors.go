package estimation

import (
	"math"
	"sort"

	mstats "github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"

	"enemtri/domain/exam"
)

// Factor projection constants. The [10, 50] band covers every plausible
// score-per-correct-answer ratio on the 300-1000 scale.
const (
	factorFloor        = 10.0
	factorCeil         = 50.0
	defaultUserWeight  = 0.7
	maxDriftPerYear    = 0.10 // population extrapolation bound
	correctionStrength = 0.5  // share of learned bias applied to the trend
	madCutoff          = 2.0  // outlier gate in median absolute deviations
	minAnchorCount     = 5.0  // floor for the 25th-percentile answer anchor
)

// YearFactor is the conversion factor for one (area, year) pair derived from
// population statistics. Adjusted is set once user calibration runs and is
// never mutated afterwards, only re-derived.
type YearFactor struct {
	Year int
	Area exam.Area

	// Population factors: score statistic over correct-answer statistic.
	GlobalMin  float64
	GlobalMax  float64
	GlobalMean float64

	// GlobalMean scaled by the average user-vs-population ratio.
	Adjusted *float64

	Confidence float64
}

// effective returns the adjusted factor when calibration produced one.
func (f YearFactor) effective() float64 {
	if f.Adjusted != nil {
		return *f.Adjusted
	}
	return f.GlobalMean
}

// FactorPoint is one step of an area's factor evolution over time.
type FactorPoint struct {
	Year     int     `json:"year"`
	Global   float64 `json:"global"`
	Adjusted float64 `json:"adjusted"`
}

// FactorEngine derives and projects score-per-correct-answer conversion
// factors, blending population difficulty drift with the user's personal
// ratios. It is a transient helper: factor caches live for one calibration
// pass and are owned by a single caller.
type FactorEngine struct {
	global map[exam.Area]map[int]YearFactor
	user   map[exam.Area]map[int]float64
}

// NewFactorEngine creates an engine with empty factor caches.
func NewFactorEngine() *FactorEngine {
	return &FactorEngine{
		global: make(map[exam.Area]map[int]YearFactor),
		user:   make(map[exam.Area]map[int]float64),
	}
}

// InitializeArea computes population factors for an area across the given
// years. Years missing either the score or the correct-answer statistics are
// skipped, never zero-filled.
func (c *FactorEngine) InitializeArea(area exam.Area, years []int, data PopulationData) {
	factors := make(map[int]YearFactor)

	for _, year := range years {
		scores, ok := data.AreaScoreStats(area, year)
		if !ok {
			continue
		}
		answers, ok := data.AreaAnswerStats(area, year)
		if !ok {
			continue
		}

		var meanFactor float64
		if answers.Mean > 0 {
			meanFactor = scores.Mean / answers.Mean
		}

		// Min anchored at the 25th answer percentile (floored at 5 to avoid
		// near-zero denominators), max at the 90th. Both are rough.
		minAnchor := math.Max(answers.Percentiles.P25, minAnchorCount)
		var minFactor float64
		if minAnchor > 0 {
			minFactor = scores.Min / minAnchor
		}

		maxAnchor := answers.Percentiles.P90
		if maxAnchor == 0 {
			maxAnchor = answers.Max
		}
		var maxFactor float64
		if maxAnchor > 0 {
			maxFactor = scores.Max / maxAnchor
		}

		factors[year] = YearFactor{
			Year:       year,
			Area:       area,
			GlobalMin:  minFactor,
			GlobalMax:  maxFactor,
			GlobalMean: meanFactor,
			Confidence: 1.0,
		}
	}

	c.global[area] = factors
}

// UserFactors returns the stored personal factors for an area, keyed by year.
func (c *FactorEngine) UserFactors(area exam.Area) map[int]float64 {
	return c.user[area]
}

// calculateUserFactors derives per-year personal factors. Mismatched list
// lengths or zero-count years contribute nothing.
func calculateUserFactors(correctAnswers []int, scores []float64, years []int) map[int]float64 {
	if len(correctAnswers) != len(scores) || len(scores) != len(years) {
		return nil
	}

	factors := make(map[int]float64)
	for i, ca := range correctAnswers {
		if ca > 0 {
			factors[years[i]] = scores[i] / float64(ca)
		}
	}
	return factors
}

// AdjustWithUserData stores the user's per-year factors and scales every
// population factor for the area by the average user-vs-population ratio.
func (c *FactorEngine) AdjustWithUserData(area exam.Area, correctAnswers []int, scores []float64, years []int) {
	userFactors := calculateUserFactors(correctAnswers, scores, years)
	if len(userFactors) == 0 {
		return
	}

	if c.user[area] == nil {
		c.user[area] = make(map[int]float64)
	}
	for year, f := range userFactors {
		c.user[area][year] = f
	}

	globalFactors, ok := c.global[area]
	if !ok {
		return
	}

	var adjustments []float64
	for year, userFactor := range userFactors {
		if gf, ok := globalFactors[year]; ok && gf.GlobalMean > 0 {
			adjustments = append(adjustments, userFactor/gf.GlobalMean)
		}
	}
	if len(adjustments) == 0 {
		return
	}

	avg, err := mstats.Mean(adjustments)
	if err != nil {
		return
	}
	for year, gf := range globalFactors {
		adjusted := gf.GlobalMean * avg
		gf.Adjusted = &adjusted
		globalFactors[year] = gf
	}
}

// BlendFactor combines the population and personal factor for one year at
// the given user weight (0.7 by convention). Falls back to whichever side
// exists; ok=false when neither does.
func (c *FactorEngine) BlendFactor(area exam.Area, year int, userWeight float64) (float64, bool) {
	var globalFactor *float64
	if gf, ok := c.global[area][year]; ok {
		v := gf.GlobalMean
		globalFactor = &v
	}

	var userFactor *float64
	if uf, ok := c.user[area][year]; ok {
		v := uf
		userFactor = &v
	}

	switch {
	case userFactor != nil && globalFactor != nil:
		return userWeight**userFactor + (1-userWeight)**globalFactor, true
	case userFactor != nil:
		return *userFactor, true
	case globalFactor != nil:
		return *globalFactor, true
	}
	return 0, false
}

// ProjectFactor projects the conversion factor for a target year.
//
// Priority cascade: the user's personal factors anchor their relative skill
// level; population factors anchor absolute difficulty drift between years.
// With population data for both the user's last year and the target year,
// the user trend is scaled by the difficulty ratio. Without it, three or
// more personal years support an error-corrected trend; two take their
// average; one is used directly. With no personal data the population
// factors alone are interpolated or extrapolated. ok=false when neither
// side has data.
func (c *FactorEngine) ProjectFactor(area exam.Area, targetYear int, useUserData bool) (float64, bool) {
	if useUserData && len(c.user[area]) > 0 {
		return c.projectFromUser(area, targetYear), true
	}
	return c.projectFromPopulation(area, targetYear)
}

func (c *FactorEngine) projectFromUser(area exam.Area, targetYear int) float64 {
	userYears := sortedYears(c.user[area])
	userValues := make([]float64, len(userYears))
	for i, y := range userYears {
		userValues[i] = c.user[area][y]
	}

	// Baseline: mean of the last two personal factors, or all if fewer.
	baselineWindow := userValues
	if len(userValues) >= 2 {
		baselineWindow = userValues[len(userValues)-2:]
	}
	baseline, _ := mstats.Mean(baselineWindow)

	lastUserYear := userYears[len(userYears)-1]
	lastUserFactor := userValues[len(userValues)-1]

	// Preferred: scale the user trend by the population difficulty ratio
	// between their last year and the target year.
	if globalFactors, ok := c.global[area]; ok {
		globalLast, okLast := globalFactors[lastUserYear]
		globalTarget, okTarget := globalFactors[targetYear]

		if okLast && okTarget && globalLast.GlobalMean > 0 && globalTarget.GlobalMean > 0 {
			difficultyRatio := globalTarget.GlobalMean / globalLast.GlobalMean

			trend := lastUserFactor
			if len(userYears) >= 2 {
				trend = linearProjection(userYears, userValues, targetYear)
			}
			return clip(trend*difficultyRatio, factorFloor, factorCeil)
		}
	}

	// No usable population anchor: learn the user's own prediction bias.
	if len(userYears) >= 3 {
		return c.projectWithErrorCorrection(userYears, userValues, targetYear)
	}
	if len(userYears) == 2 {
		avg, _ := mstats.Mean(userValues)
		return avg
	}
	return baseline
}

// projectWithErrorCorrection fits a linear trend over the personal factors
// and corrects it by the user's historical one-step-ahead prediction errors:
// outliers beyond 2 MADs are dropped, the rest are recency-weighted (2^i)
// and applied at half strength.
func (c *FactorEngine) projectWithErrorCorrection(years []int, values []float64, targetYear int) float64 {
	var predictionErrors []float64
	for i := 2; i < len(years); i++ {
		predicted := linearProjection(years[:i], values[:i], years[i])
		predictionErrors = append(predictionErrors, values[i]-predicted)
	}

	if len(predictionErrors) >= 3 {
		medianErr, _ := mstats.Median(predictionErrors)
		deviations := make([]float64, len(predictionErrors))
		for i, e := range predictionErrors {
			deviations[i] = math.Abs(e - medianErr)
		}
		mad, _ := mstats.Median(deviations)

		var filtered []float64
		for _, e := range predictionErrors {
			if math.Abs(e-medianErr) <= madCutoff*mad {
				filtered = append(filtered, e)
			}
		}
		if len(filtered) > 0 {
			predictionErrors = filtered
		}
	}

	var avgError float64
	if len(predictionErrors) > 0 {
		var weighted, total float64
		for i, e := range predictionErrors {
			w := math.Pow(2, float64(i))
			weighted += w * e
			total += w
		}
		avgError = weighted / total
	}

	trend := linearProjection(years, values, targetYear)
	projected := trend + correctionStrength*avgError
	return clip(projected, factorFloor, factorCeil)
}

func (c *FactorEngine) projectFromPopulation(area exam.Area, targetYear int) (float64, bool) {
	globalFactors, ok := c.global[area]
	if !ok || len(globalFactors) == 0 {
		return 0, false
	}

	var years []int
	for y := range globalFactors {
		if y <= targetYear {
			years = append(years, y)
		}
	}
	if len(years) == 0 {
		return 0, false
	}
	sort.Ints(years)

	// Last five known years carry the trend.
	recentYears := years
	if len(years) > 5 {
		recentYears = years[len(years)-5:]
	}
	recentFactors := make([]float64, len(recentYears))
	for i, y := range recentYears {
		recentFactors[i] = globalFactors[y].effective()
	}

	lastYear := years[len(years)-1]
	lastFactor := recentFactors[len(recentFactors)-1]

	if targetYear > lastYear {
		if len(recentFactors) < 2 {
			return lastFactor, true
		}
		projected := linearProjection(recentYears, recentFactors, targetYear)

		// Extrapolation drifts at most 10% of the last factor per year.
		maxChange := maxDriftPerYear * lastFactor * float64(targetYear-lastYear)
		return clip(projected, lastFactor-maxChange, lastFactor+maxChange), true
	}

	return interpolate(recentYears, recentFactors, targetYear), true
}

// ProjectFactorRange returns the user's historical factor spread (min, max)
// for bracketing a projection. Unavailable without personal factors.
func (c *FactorEngine) ProjectFactorRange(area exam.Area, targetYear int, useUserData bool) (float64, float64, bool) {
	if !useUserData || len(c.user[area]) == 0 {
		return 0, 0, false
	}

	values := make([]float64, 0, len(c.user[area]))
	for _, f := range c.user[area] {
		values = append(values, f)
	}
	minFactor, _ := mstats.Min(values)
	maxFactor, _ := mstats.Max(values)
	return minFactor, maxFactor, true
}

// EstimateScore multiplies the projected factor by the correct-answer count,
// clipped to the 300-1000 scale. ok=false when no factor can be projected.
func (c *FactorEngine) EstimateScore(area exam.Area, correctAnswers, year int) (float64, bool) {
	factor, ok := c.ProjectFactor(area, year, true)
	if !ok {
		return 0, false
	}
	return clip(factor*float64(correctAnswers), scoreFloor, scoreCeil), true
}

// EstimateScoreRange brackets the factor-based estimate: pessimistic from
// the average of the minimum and median factor, optimistic from 90% of the
// maximum. Both clipped to the 300-1000 scale.
func (c *FactorEngine) EstimateScoreRange(area exam.Area, correctAnswers, year int) (float64, float64, bool) {
	minFactor, maxFactor, ok := c.ProjectFactorRange(area, year, true)
	if !ok {
		return 0, 0, false
	}

	medianFactor := (minFactor + maxFactor) / 2
	pessimisticFactor := (minFactor + medianFactor) / 2
	optimisticFactor := optimisticShare * maxFactor

	pessimistic := clip(pessimisticFactor*float64(correctAnswers), scoreFloor, scoreCeil)
	optimistic := clip(optimisticFactor*float64(correctAnswers), scoreFloor, scoreCeil)

	// 90% of a tightly clustered max can undercut the pessimistic side.
	if pessimistic > optimistic {
		pessimistic, optimistic = optimistic, pessimistic
	}
	return pessimistic, optimistic, true
}

// FactorEvolution lists an area's population factor per year alongside the
// user-adjusted value, ascending by year.
func (c *FactorEngine) FactorEvolution(area exam.Area) []FactorPoint {
	globalFactors, ok := c.global[area]
	if !ok {
		return nil
	}

	evolution := make([]FactorPoint, 0, len(globalFactors))
	for _, year := range sortedYears(globalFactors) {
		gf := globalFactors[year]
		evolution = append(evolution, FactorPoint{
			Year:     year,
			Global:   gf.GlobalMean,
			Adjusted: gf.effective(),
		})
	}
	return evolution
}

// linearProjection fits a least-squares line over (year, value) points and
// evaluates it at the target year.
func linearProjection(years []int, values []float64, targetYear int) float64 {
	xs := make([]float64, len(years))
	for i, y := range years {
		xs[i] = float64(y)
	}
	alpha, beta := stat.LinearRegression(xs, values, nil, false)
	return alpha + beta*float64(targetYear)
}

// interpolate evaluates a piecewise-linear curve over sorted (year, value)
// points at the target year, clamping outside the known range.
func interpolate(years []int, values []float64, targetYear int) float64 {
	if targetYear <= years[0] {
		return values[0]
	}
	if targetYear >= years[len(years)-1] {
		return values[len(values)-1]
	}
	for i := 1; i < len(years); i++ {
		if targetYear <= years[i] {
			span := float64(years[i] - years[i-1])
			t := float64(targetYear-years[i-1]) / span
			return values[i-1] + t*(values[i]-values[i-1])
		}
	}
	return values[len(values)-1]
}

func sortedYears[V any](m map[int]V) []int {
	years := make([]int, 0, len(m))
	for y := range m {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}
