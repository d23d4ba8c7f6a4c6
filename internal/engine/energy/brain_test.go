package energy

import (
	"testing"
	"time"

	"github.com/obodeldog/cogni-living-daemon/internal/roomcache"
)

func TestTrainClampsReboundSampleS4(t *testing.T) {
	b := New(Config{}, roomcache.New(), nil)

	base := int64(1_700_000_000_000)
	points := []TrainingPoint{
		{TS: base, Room: "office", TIn: 18.0},
		{TS: base + 3600_000, Room: "office", TIn: 30.0}, // +12 deg in 1h, must be dropped
		{TS: base + 7200_000, Room: "office", TIn: 19.0},
		{TS: base + 10800_000, Room: "office", TIn: 19.6}, // +0.6 deg/h, kept
	}

	if err := b.Train(points); err != nil {
		t.Fatalf("Train: %v", err)
	}
	if v, ok := b.heating["office"]; ok && v > 8.0 {
		t.Errorf("heating[office] = %v, want <= 8.0 after physics clamp", v)
	}
}

func TestVentilationAlertS5(t *testing.T) {
	cache := roomcache.New()
	b := New(Config{}, cache, nil)

	t0 := time.Unix(1_700_000_000, 0)
	b.CheckVentilation(map[string]float64{"kitchen": 22.0}, t0)

	t1 := t0.Add(10 * time.Minute)
	alerts := b.CheckVentilation(map[string]float64{"kitchen": 20.5}, t1)

	if len(alerts) != 1 {
		t.Fatalf("len(alerts) = %d, want 1", len(alerts))
	}
	a := alerts[0]
	if a.Room != "kitchen" {
		t.Errorf("alert room = %q, want kitchen", a.Room)
	}
	if a.Gradient > -8.0 || a.Gradient < -10.0 {
		t.Errorf("gradient = %v, want roughly -9", a.Gradient)
	}
}

// fixedRatePINN is a test double satisfying pinnPredictor with a constant
// predicted rate.
type fixedRatePINN struct {
	rate float64
}

func (f *fixedRatePINN) Ready() bool { return true }
func (f *fixedRatePINN) Predict(tIn, tOut, valve float64, solar bool) float64 {
	return f.rate
}

func TestWarmupHybridSelectionS6(t *testing.T) {
	currentTemps := map[string]float64{"office": 19.0}
	targets := map[string]float64{"office": 21.0}

	without := New(Config{}, roomcache.New(), nil)
	without.heating["office"] = 2.0
	without.ready = true
	withoutResult := without.CalculateWarmup(currentTemps, targets, 10.0, false)
	if withoutResult["office"].Minutes != 60 || withoutResult["office"].Source != "Physics" {
		t.Errorf("without PINN: got %+v, want 60/Physics", withoutResult["office"])
	}

	trusted := New(Config{}, roomcache.New(), &fixedRatePINN{rate: 4.0})
	trusted.heating["office"] = 2.0
	trusted.ready = true
	withAI := trusted.CalculateWarmup(currentTemps, targets, 10.0, false)
	if withAI["office"].Minutes != 30 || withAI["office"].Source != "AI (PINN)" {
		t.Errorf("with trusted PINN: got %+v, want 30/AI (PINN)", withAI["office"])
	}

	outOfBandBrain := New(Config{}, roomcache.New(), &fixedRatePINN{rate: 15.0})
	outOfBandBrain.heating["office"] = 2.0
	outOfBandBrain.ready = true
	outOfBand := outOfBandBrain.CalculateWarmup(currentTemps, targets, 10.0, false)
	if outOfBand["office"].Minutes != 60 || outOfBand["office"].Source != "Physics" {
		t.Errorf("with out-of-band PINN: got %+v, want 60/Physics", outOfBand["office"])
	}
}

func TestCoastingAdvicePenaltyVeto(t *testing.T) {
	b := New(Config{}, roomcache.New(), nil)
	b.insulation["livingroom"] = -0.5
	b.ready = true

	now := time.Date(2026, 1, 1, 14, 0, 0, 0, time.UTC)
	b.TrainPenalty("livingroom", now)

	advice := b.GetOptimizationAdvice(map[string]float64{"livingroom": 23.0}, 5.0, map[string]float64{"livingroom": 21.0}, nil, now)
	if len(advice) != 0 {
		t.Errorf("penalised room should be skipped, got %+v", advice)
	}
}
