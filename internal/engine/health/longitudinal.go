package health

import (
	"math"
	"sort"
)

// SeriesPoint is one dated observation in a longitudinal series.
type SeriesPoint struct {
	Date  string // YYYY-MM-DD, sortable lexically
	Value float64
}

// longThresholds pairs a decline ratio (a last-week/first-week mean ratio at
// or below this is a regression) with a rise ratio (a ratio at or above this
// is an improvement),
// chosen per metric per spec.md §4.6's "thresholds 0.5/0.6/0.7/0.8 ...
// depending on metric" — not otherwise pinned down, so each metric gets
// one consistent pair from the prescribed sets (see DESIGN.md).
type longThresholds struct {
	declineBound float64
	declineLabel string
	riseBound    float64
	riseLabel    string
}

var defaultLongThresholds = longThresholds{declineBound: 0.7, declineLabel: "RUECKGANG", riseBound: 1.3, riseLabel: "STEIGEND"}

var longMetricTable = map[string]longThresholds{
	"analyze_longterm_activity": {declineBound: 0.7, declineLabel: "RUECKGANG", riseBound: 1.3, riseLabel: "STEIGEND"},
	"night_restlessness":        {declineBound: 0.6, declineLabel: "RUECKGANG", riseBound: 1.4, riseLabel: "STEIGEND"},
	"room_mobility":             {declineBound: 0.5, declineLabel: "IMMOBIL", riseBound: 1.5, riseLabel: "STEIGEND"},
	"hygiene_frequency":         {declineBound: 0.8, declineLabel: "RUECKGANG", riseBound: 1.2, riseLabel: "STEIGEND"},
	"ventilation_behavior":      {declineBound: 0.7, declineLabel: "RUECKGANG", riseBound: 1.3, riseLabel: "STEIGEND"},
	"gait_speed_longterm":       {declineBound: 0.6, declineLabel: "IMMOBIL", riseBound: 1.4, riseLabel: "STEIGEND"},
}

func thresholdsFor(metric string) longThresholds {
	if t, ok := longMetricTable[metric]; ok {
		return t
	}
	return defaultLongThresholds
}

// LongitudinalResult is the outcome of the longitudinal analyser family
// (spec §4.6, dispatched via ANALYZE_LONGTERM).
type LongitudinalResult struct {
	Timeline       []string
	Values         []float64
	Baseline       float64
	BaselineStddev float64
	MovingAverage  []float64
	Trend          string
}

// AnalyzeLongterm implements the shared longitudinal-analyser algorithm,
// parameterised by metric.
func (b *Brain) AnalyzeLongterm(series []SeriesPoint, metric string, weeks int) LongitudinalResult {
	if weeks <= 0 {
		weeks = 12
	}
	sorted := append([]SeriesPoint(nil), series...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date < sorted[j].Date })

	limit := weeks * 7
	if limit > 0 && len(sorted) > limit {
		sorted = sorted[len(sorted)-limit:]
	}

	timeline := make([]string, len(sorted))
	values := make([]float64, len(sorted))
	for i, p := range sorted {
		timeline[i] = p.Date
		values[i] = p.Value
	}

	baselineWindow := values
	if len(baselineWindow) > 14 {
		baselineWindow = baselineWindow[len(baselineWindow)-14:]
	}
	baseline := medianFloat(baselineWindow)
	baselineStddev := stddevFloat(baselineWindow, baseline)

	movingAverage := centeredMovingAverage(values, 7)

	trend := thresholdTrend(values, thresholdsFor(metric))

	return LongitudinalResult{
		Timeline:       timeline,
		Values:         values,
		Baseline:       baseline,
		BaselineStddev: baselineStddev,
		MovingAverage:  movingAverage,
		Trend:          trend,
	}
}

func medianFloat(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func stddevFloat(values []float64, mean float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sumSq float64
	for _, v := range values {
		d := v - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(values)))
}

// centeredMovingAverage computes a window-wide centered moving average,
// shrinking the window at the series edges.
func centeredMovingAverage(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	half := window / 2
	for i := range values {
		lo := i - half
		hi := i + half
		if lo < 0 {
			lo = 0
		}
		if hi >= len(values) {
			hi = len(values) - 1
		}
		sum := 0.0
		for j := lo; j <= hi; j++ {
			sum += values[j]
		}
		out[i] = sum / float64(hi-lo+1)
	}
	return out
}

// thresholdTrend compares the mean of the first week to the mean of the
// last week against the metric's decline/rise ratio bounds.
func thresholdTrend(values []float64, t longThresholds) string {
	if len(values) < 14 {
		return "STABIL"
	}
	firstWeek := values[:7]
	lastWeek := values[len(values)-7:]

	firstMean := meanFloat(firstWeek)
	lastMean := meanFloat(lastWeek)
	if firstMean == 0 {
		return "STABIL"
	}

	ratio := lastMean / firstMean
	if ratio <= t.declineBound {
		return t.declineLabel
	}
	if ratio >= t.riseBound {
		return t.riseLabel
	}
	return "STABIL"
}

func meanFloat(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
