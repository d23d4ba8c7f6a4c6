// Package health implements the baseline anomaly detector over 96-slot
// daily activity vectors, gait-speed and activity-trend regression, the
// longitudinal analyser family, the weekly heatmap, and room-silence
// detection (spec §4.6).
package health

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strings"

	"github.com/obodeldog/cogni-living-daemon/internal/domain"
	"gonum.org/v1/gonum/stat"
)

// Config carries the tunables spec §2.1 surfaces as configuration.
type Config struct {
	IsolationContamination  float64
	NightHighActivityRatio  float64
	MorningLowActivityRatio float64
	DayLowActivityRatio     float64
}

// Digest is one day's activity summary.
type Digest struct {
	ActivityVector []float64 // length 96, optional
	EventCount     int
}

// Brain owns the anomaly detector; the trend/gait/heatmap/silence analysers
// are stateless and operate directly on request data (spec §2 table). The
// legacy "last_state" temperature cache from the Data Model table is
// unified into Energy's roomcache.Cache per spec §9 — Health's described
// operations never read it, so nothing is carried here.
type Brain struct {
	cfg    Config
	forest *isolationForest
	ready  bool
	rnd    *rand.Rand
}

// New returns a new Brain.
func New(cfg Config) *Brain {
	if cfg.IsolationContamination <= 0 {
		cfg.IsolationContamination = 0.1
	}
	if cfg.NightHighActivityRatio <= 0 {
		cfg.NightHighActivityRatio = 2.0
	}
	if cfg.MorningLowActivityRatio <= 0 {
		cfg.MorningLowActivityRatio = 0.3
	}
	if cfg.DayLowActivityRatio <= 0 {
		cfg.DayLowActivityRatio = 0.2
	}
	return &Brain{cfg: cfg, rnd: rand.New(rand.NewSource(1))}
}

// Ready reports whether the anomaly detector has been trained.
func (b *Brain) Ready() bool {
	return b.ready
}

func prepareFeature(d Digest) []float64 {
	if len(d.ActivityVector) == 96 {
		return d.ActivityVector
	}
	vec := make([]float64, 96)
	per := float64(d.EventCount) / 50.0
	for i := 30; i < 80; i++ {
		vec[i] = math.Trunc(per)
	}
	return vec
}

// Train fits the isolation-forest-style anomaly detector over the batch of
// daily digests (spec §4.6).
func (b *Brain) Train(digests []Digest) error {
	if len(digests) < 2 {
		return domain.ErrInsufficientData
	}
	data := make([][]float64, len(digests))
	for i, d := range digests {
		data[i] = prepareFeature(d)
	}
	b.forest = fitIsolationForest(data, b.cfg.IsolationContamination, b.rnd)
	b.ready = true
	return nil
}

// AnomalyResult is the outcome of one ANALYZE_HEALTH request.
type AnomalyResult struct {
	Label int // +1 normal, -1 anomalous
	Score string
}

// Analyze scores a single digest against the trained detector.
func (b *Brain) Analyze(d Digest) AnomalyResult {
	if !b.ready {
		return AnomalyResult{Label: 0, Score: "Not Ready"}
	}
	label, score := b.forest.predict(prepareFeature(d))
	return AnomalyResult{Label: label, Score: fmt.Sprintf("Anomaly Score: %.3f", score)}
}

// GaitStep is one movement sample within a sequence.
type GaitStep struct {
	Loc    string
	TDelta float64
}

// GaitSequence is one recorded sequence of steps.
type GaitSequence struct {
	Steps []GaitStep
}

var hallwayTokens = []string{"flur", "diele", "gang"}

func isHallwayLoc(loc string) bool {
	lower := strings.ToLower(loc)
	for _, tok := range hallwayTokens {
		if strings.Contains(lower, tok) {
			return true
		}
	}
	return false
}

// GaitResult is the outcome of ANALYZE_GAIT.
type GaitResult struct {
	Valid         bool
	PercentChange float64
	Sensors       []string
	Proof         string
}

// AnalyzeGait extracts hallway-traversal durations and fits a linear trend
// (spec §4.6).
func (b *Brain) AnalyzeGait(sequences []GaitSequence) GaitResult {
	var durations []float64
	sensorSet := make(map[string]struct{})

	for _, seq := range sequences {
		if len(seq.Steps) < 2 {
			continue
		}
		allHallway := true
		for _, step := range seq.Steps {
			if !isHallwayLoc(step.Loc) {
				allHallway = false
				break
			}
		}
		if !allHallway {
			continue
		}
		duration := seq.Steps[len(seq.Steps)-1].TDelta
		if duration > 1 && duration < 20 {
			durations = append(durations, duration)
			for _, step := range seq.Steps {
				sensorSet[step.Loc] = struct{}{}
			}
		}
	}

	if len(durations) < 5 {
		return GaitResult{Valid: false}
	}

	xs := make([]float64, len(durations))
	for i := range durations {
		xs[i] = float64(i)
	}
	intercept, slope := stat.LinearRegression(xs, durations, nil, false)

	startVal := intercept
	endVal := slope*float64(len(durations)-1) + intercept
	if startVal == 0 {
		startVal = 0.01
	}
	percentChange := (endVal - startVal) / startVal * 100

	sensors := make([]string, 0, len(sensorSet))
	for s := range sensorSet {
		sensors = append(sensors, s)
	}
	sort.Strings(sensors)

	tail := durations
	if len(tail) > 5 {
		tail = tail[len(tail)-5:]
	}
	proof := fmt.Sprintf("n=%d slope=%.4f intercept=%.4f last5=%v", len(durations), slope, intercept, tail)

	return GaitResult{Valid: true, PercentChange: percentChange, Sensors: sensors, Proof: proof}
}

// TrendResult is the outcome of ANALYZE_TREND and the longitudinal family.
type TrendResult struct {
	PercentChange  float64
	Classification string
}

// AnalyzeTrend classifies a daily value series as rising, falling, or
// stable (spec §4.6).
func (b *Brain) AnalyzeTrend(values []float64) (TrendResult, error) {
	if len(values) < 3 {
		return TrendResult{}, domain.ErrInsufficientData
	}
	xs := make([]float64, len(values))
	for i := range values {
		xs[i] = float64(i)
	}
	intercept, slope := stat.LinearRegression(xs, values, nil, false)

	startVal := intercept
	if math.Abs(startVal) < 0.1 {
		if startVal < 0 {
			startVal = -0.1
		} else {
			startVal = 0.1
		}
	}
	endVal := slope*float64(len(values)-1) + intercept
	percentChange := (endVal - startVal) / startVal * 100

	classification := "Stabil"
	if percentChange > 5 {
		classification = "Steigend"
	} else if percentChange < -5 {
		classification = "Fallend"
	}
	return TrendResult{PercentChange: percentChange, Classification: classification}, nil
}

// Snapshot is the persisted shape of health_if_model.gob.
type Snapshot struct {
	Forest *isolationForest
}

// ExportSnapshot returns the current detector for persistence.
func (b *Brain) ExportSnapshot() (Snapshot, bool) {
	if !b.ready {
		return Snapshot{}, false
	}
	return Snapshot{Forest: b.forest}, true
}

// ImportSnapshot restores a previously persisted detector.
func (b *Brain) ImportSnapshot(s Snapshot) {
	if s.Forest == nil {
		return
	}
	b.forest = s.Forest
	b.ready = true
}
