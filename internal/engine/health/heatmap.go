package health

import (
	"math"
	"sort"
	"strings"
	"time"
)

// HistoryEvent is one raw event within a day's history, used to bucket
// motion-positive activity into hourly counts.
type HistoryEvent struct {
	TimestampMs int64
	TypeOrName  string
	Value       string
}

func isMotionPositive(e HistoryEvent) bool {
	lower := strings.ToLower(e.TypeOrName)
	matchesName := strings.Contains(lower, "bewegung") || strings.Contains(lower, "motion") || strings.Contains(lower, "presence")
	if !matchesName {
		return false
	}
	switch strings.ToLower(e.Value) {
	case "true", "1", "on":
		return true
	default:
		return false
	}
}

// HourBucket is one hour-of-day's heatmap result.
type HourBucket struct {
	Hour            int
	Count           float64
	Baseline        float64
	RelativePercent float64
	AnomalyScore    float64
	Flag            string
}

// AnalyzeHeatmap buckets motion events per hour across days, computes a
// per-hour baseline, and applies the rule-based overrides (spec §4.6).
func (b *Brain) AnalyzeHeatmap(history map[string][]HistoryEvent) []HourBucket {
	dates := make([]string, 0, len(history))
	for d := range history {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	counts := make([][24]float64, len(dates))
	for i, d := range dates {
		for _, e := range history[d] {
			if !isMotionPositive(e) {
				continue
			}
			hour := time.UnixMilli(e.TimestampMs).UTC().Hour()
			counts[i][hour]++
		}
	}

	buckets := make([]HourBucket, 24)
	for hour := 0; hour < 24; hour++ {
		var sum float64
		for i := range dates {
			sum += counts[i][hour]
		}
		baseline := 0.0
		if len(dates) > 0 {
			baseline = sum / float64(len(dates))
		}

		count := 0.0
		if len(dates) > 0 {
			count = counts[len(dates)-1][hour]
		}

		relative := 0.0
		if baseline > 1 {
			relative = 100 * count / baseline
		} else if count > 0 {
			relative = math.Min(100, 2*count)
		}

		score := 0.0
		if baseline > 0 {
			score = -math.Abs(count-baseline) / (baseline + 1)
		}

		flag := ""
		if (hour >= 22 || hour < 6) && count > b.cfg.NightHighActivityRatio*baseline {
			flag = "NIGHT_HIGH_ACTIVITY"
			score = -0.8
		} else if hour >= 6 && hour < 10 && count < b.cfg.MorningLowActivityRatio*baseline && baseline > 5 {
			flag = "MORNING_NO_ACTIVITY"
			score = -0.7
		} else if hour >= 10 && hour < 20 && count < b.cfg.DayLowActivityRatio*baseline && baseline > 3 {
			flag = "DAY_LOW_ACTIVITY"
			score = math.Min(score, -0.3)
		}

		buckets[hour] = HourBucket{
			Hour:            hour,
			Count:           count,
			Baseline:        baseline,
			RelativePercent: relative,
			AnomalyScore:    score,
			Flag:            flag,
		}
	}
	return buckets
}
