package health

import "testing"

func buildSeries(start, n int, values []float64) []SeriesPoint {
	var series []SeriesPoint
	for i := 0; i < n; i++ {
		series = append(series, SeriesPoint{Date: dateAt(start + i), Value: values[i%len(values)]})
	}
	return series
}

func dateAt(offset int) string {
	days := []string{
		"2026-06-01", "2026-06-02", "2026-06-03", "2026-06-04", "2026-06-05", "2026-06-06", "2026-06-07",
		"2026-06-08", "2026-06-09", "2026-06-10", "2026-06-11", "2026-06-12", "2026-06-13", "2026-06-14",
		"2026-06-15", "2026-06-16", "2026-06-17", "2026-06-18", "2026-06-19", "2026-06-20", "2026-06-21",
	}
	return days[offset%len(days)]
}

func TestAnalyzeLongtermBaselineAndTrendDecline(t *testing.T) {
	b := New(Config{})
	var series []SeriesPoint
	for i := 0; i < 7; i++ {
		series = append(series, SeriesPoint{Date: dateAt(i), Value: 10})
	}
	for i := 7; i < 14; i++ {
		series = append(series, SeriesPoint{Date: dateAt(i), Value: 5})
	}
	result := b.AnalyzeLongterm(series, "room_mobility", 3)
	if result.Trend != "IMMOBIL" {
		t.Errorf("Trend = %q, want IMMOBIL for a halved last week", result.Trend)
	}
	if result.Baseline != 7.5 {
		t.Errorf("Baseline = %v, want 7.5 (median of seven 10s and seven 5s)", result.Baseline)
	}
	if len(result.Timeline) != 14 {
		t.Errorf("len(Timeline) = %d, want 14", len(result.Timeline))
	}
	if len(result.MovingAverage) != 14 {
		t.Errorf("len(MovingAverage) = %d, want 14", len(result.MovingAverage))
	}
}

func TestAnalyzeLongtermUnknownMetricFallsBackToDefault(t *testing.T) {
	b := New(Config{})
	var series []SeriesPoint
	for i := 0; i < 14; i++ {
		series = append(series, SeriesPoint{Date: dateAt(i), Value: 10})
	}
	result := b.AnalyzeLongterm(series, "unknown_metric", 3)
	if result.Trend != "STABIL" {
		t.Errorf("Trend = %q, want STABIL for a flat series", result.Trend)
	}
}

func TestAnalyzeLongtermShortSeriesIsStable(t *testing.T) {
	b := New(Config{})
	series := []SeriesPoint{
		{Date: "2026-06-01", Value: 1},
		{Date: "2026-06-02", Value: 100},
	}
	result := b.AnalyzeLongterm(series, "gait_speed_longterm", 3)
	if result.Trend != "STABIL" {
		t.Errorf("Trend = %q, want STABIL for fewer than 14 points", result.Trend)
	}
}

func TestAnalyzeLongtermClipsToWeeksWindow(t *testing.T) {
	b := New(Config{})
	var series []SeriesPoint
	for i := 0; i < 21; i++ {
		series = append(series, SeriesPoint{Date: dateAt(i), Value: float64(i)})
	}
	result := b.AnalyzeLongterm(series, "analyze_longterm_activity", 2)
	if len(result.Timeline) != 14 {
		t.Fatalf("len(Timeline) = %d, want 14 (2 weeks clip)", len(result.Timeline))
	}
}
