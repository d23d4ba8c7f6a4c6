// Package energy implements the thermodynamic brain: per-room insulation
// and heating-power estimation, ventilation detection, cooling prediction,
// hybrid physics/PINN warm-up estimation, coasting advice, and a small
// reinforcement-style penalty map (spec §4.5).
package energy

import (
	"math"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/obodeldog/cogni-living-daemon/internal/domain"
	"github.com/obodeldog/cogni-living-daemon/internal/roomcache"
)

// Config carries the physics caps and defaults spec §2.1 surfaces as
// configuration.
type Config struct {
	GradientFloor       float64
	GradientCeiling     float64
	VentilationGradient float64
	ValvePercent        float64
	SolarSensitiveRooms map[string]bool
	DefaultTarget       float64
}

// TrainingPoint is one training observation for a room.
type TrainingPoint struct {
	TS       int64
	Room     string
	TIn      float64
	Valve    float64
	HasValve bool
}

// pinnPredictor is the subset of *PINN the energy brain depends on, kept
// narrow so tests can substitute a fixed-rate double.
type pinnPredictor interface {
	Ready() bool
	Predict(tIn, tOut, valve float64, solar bool) float64
}

// Brain owns insulation/heating estimates and the RL penalty map.
type Brain struct {
	mu sync.Mutex

	cfg Config

	insulation map[string]float64
	heating    map[string]float64
	penalties  map[string]float64
	ready      bool

	cache *roomcache.Cache
	pinn  pinnPredictor
}

// New returns a Brain wired to the shared room-temperature cache. pinn may
// be nil to disable the AI warm-up path.
func New(cfg Config, cache *roomcache.Cache, pinn pinnPredictor) *Brain {
	if cfg.GradientFloor == 0 && cfg.GradientCeiling == 0 {
		cfg.GradientFloor = -2.5
		cfg.GradientCeiling = 8.0
	}
	if cfg.VentilationGradient == 0 {
		cfg.VentilationGradient = -5.0
	}
	if cfg.ValvePercent == 0 {
		cfg.ValvePercent = 5.0
	}
	if cfg.DefaultTarget == 0 {
		cfg.DefaultTarget = 21.0
	}
	return &Brain{
		cfg:        cfg,
		insulation: make(map[string]float64),
		heating:    make(map[string]float64),
		penalties:  make(map[string]float64),
		cache:      cache,
		pinn:       pinn,
	}
}

// Ready reports whether training has produced at least one estimate.
func (b *Brain) Ready() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ready
}

type roomSeries struct {
	points []TrainingPoint
}

// Train groups samples by room, computes per-step gradients, applies the
// physics cap, and derives insulation/heating estimates (spec §4.5).
func (b *Brain) Train(points []TrainingPoint) error {
	if len(points) == 0 {
		return domain.ErrNoTrainingData
	}

	byRoom := make(map[string]*roomSeries)
	for _, p := range points {
		s, ok := byRoom[p.Room]
		if !ok {
			s = &roomSeries{}
			byRoom[p.Room] = s
		}
		s.points = append(s.points, p)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for room, s := range byRoom {
		if len(s.points) < 2 {
			continue
		}
		sort.Slice(s.points, func(i, j int) bool { return s.points[i].TS < s.points[j].TS })

		var coolingGradients, heatingGradients []float64
		hasValve := false
		for _, p := range s.points {
			if p.HasValve {
				hasValve = true
				break
			}
		}

		for i := 1; i < len(s.points); i++ {
			prev, cur := s.points[i-1], s.points[i]
			dtH := float64(cur.TS-prev.TS) / 3600000.0
			if dtH <= 0.01 {
				continue
			}
			gradient := (cur.TIn - prev.TIn) / dtH
			if gradient <= b.cfg.GradientFloor || gradient >= b.cfg.GradientCeiling {
				continue
			}

			isCooling := true
			isHeating := true
			if hasValve {
				isCooling = cur.Valve < b.cfg.ValvePercent
				isHeating = cur.Valve >= b.cfg.ValvePercent
			}
			if isCooling && gradient < -0.01 {
				coolingGradients = append(coolingGradients, gradient)
			}
			if isHeating && gradient > 0.1 {
				heatingGradients = append(heatingGradients, gradient)
			}
		}

		if len(coolingGradients) >= 1 {
			b.insulation[room] = median(coolingGradients)
		}
		if len(heatingGradients) >= 1 {
			if v := median(heatingGradients); v > 0 {
				b.heating[room] = v
			}
		} else if _, ok := b.heating[room]; !ok {
			b.heating[room] = 3.0
		}
	}

	b.ready = true
	return nil
}

func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// VentilationAlert flags a sudden temperature drop suggesting an open
// window.
type VentilationAlert struct {
	Room     string
	Gradient float64
	Drop     float64
	Message  string
}

// CheckVentilation compares each room's latest reading to the cached
// previous one, always overwriting the cache afterward (spec §4.5).
func (b *Brain) CheckVentilation(currentTemps map[string]float64, now time.Time) []VentilationAlert {
	var alerts []VentilationAlert
	for room, tNow := range currentTemps {
		if entry, ok := b.cache.Get(room); ok {
			dtH := float64(now.Unix()-entry.Timestamp) / 3600.0
			if dtH > 0.08 {
				dTemp := tNow - entry.Temperature
				gradient := dTemp / dtH
				if gradient < b.cfg.VentilationGradient {
					alerts = append(alerts, VentilationAlert{
						Room:     room,
						Gradient: round1(gradient),
						Drop:     round1(dTemp),
						Message:  "Starker Temperatursturz. Fenster offen?",
					})
				}
			}
		}
		b.cache.Put(room, roomcache.Entry{Timestamp: now.Unix(), Temperature: tNow})
	}
	return alerts
}

// CoolingForecast is a room's predicted 1h/4h temperature.
type CoolingForecast struct {
	OneHour    float64
	FourHour   float64
	SolarBonus bool
}

// PredictCooling forecasts each room's temperature trajectory (spec §4.5).
func (b *Brain) PredictCooling(currentTemps map[string]float64, tOut float64, tForecast *float64, isSunny bool) map[string]CoolingForecast {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.ready {
		return map[string]CoolingForecast{}
	}

	tEff := tOut
	if tForecast != nil {
		tEff = (tOut + *tForecast) / 2
	}

	out := make(map[string]CoolingForecast, len(currentTemps))
	for room, tIn := range currentTemps {
		rate, ok := b.insulation[room]
		if !ok {
			rate = -0.2
		}
		solarBonus := isSunny && b.cfg.SolarSensitiveRooms[room]
		if solarBonus {
			rate += 0.5
		}
		if tEff > tIn && rate < 0 {
			rate = -rate * 0.5
		}
		out[room] = CoolingForecast{
			OneHour:    round1(tIn + rate),
			FourHour:   round1(tIn + 4*rate),
			SolarBonus: solarBonus,
		}
	}
	return out
}

// WarmupDetail carries the physics and (optional) AI estimate behind the
// chosen warm-up time.
type WarmupDetail struct {
	PhysicsMinutes int
	AIMinutes      *int
}

// WarmupResult is one room's hybrid warm-up estimate.
type WarmupResult struct {
	Minutes int
	Source  string
	Detail  WarmupDetail
}

// CalculateWarmup estimates time-to-target per room, preferring the PINN
// estimate when it falls within the trust band (spec §4.5).
func (b *Brain) CalculateWarmup(currentTemps map[string]float64, targets map[string]float64, tOut float64, isSunny bool) map[string]WarmupResult {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make(map[string]WarmupResult, len(currentTemps))
	for room, tIn := range currentTemps {
		target, ok := targets[room]
		if !ok {
			target = b.cfg.DefaultTarget
		}
		diff := target - tIn
		if diff <= 0 {
			out[room] = WarmupResult{Minutes: 0, Source: "TargetReached"}
			continue
		}

		powerPhys, ok := b.heating[room]
		if !ok {
			powerPhys = 3.0
		}
		if powerPhys <= 0.1 {
			powerPhys = 1.0
		}
		minutesPhys := clampMinutes(int(diff / powerPhys * 60))

		result := WarmupResult{Minutes: minutesPhys, Source: "Physics", Detail: WarmupDetail{PhysicsMinutes: minutesPhys}}

		if b.pinn != nil && b.pinn.Ready() {
			solar := isSunny && b.cfg.SolarSensitiveRooms[room]
			ratePINN := b.pinn.Predict(tIn, tOut, 100.0, solar)
			if ratePINN > 0.2 && ratePINN < 10.0 {
				minutesAI := clampMinutes(int(diff / ratePINN * 60))
				result.Detail.AIMinutes = &minutesAI
				result.Minutes = minutesAI
				result.Source = "AI (PINN)"
			}
		}

		out[room] = result
	}
	return out
}

func clampMinutes(m int) int {
	if m > 720 {
		return 720
	}
	return m
}

// CoastingAdvice is a recommendation to skip heating a room for a while.
type CoastingAdvice struct {
	Room        string
	MinutesSafe int
	Target      float64
	Current     float64
	SavingsMsg  string
}

// GetOptimizationAdvice returns coasting advice sorted by minutes
// descending, skipping rooms flagged sensitive by the penalty map (spec
// §4.5).
func (b *Brain) GetOptimizationAdvice(currentTemps map[string]float64, tOut float64, targets map[string]float64, tForecast *float64, now time.Time) []CoastingAdvice {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.ready {
		return nil
	}

	tEff := tOut
	if tForecast != nil {
		tEff = (tOut + *tForecast) / 2
	}

	hour := now.Hour()
	var proposals []CoastingAdvice

	for room, tIn := range currentTemps {
		key := roomHourKey(room, hour)
		if b.penalties[key] >= 0.5 {
			continue
		}

		target := b.cfg.DefaultTarget
		if v, ok := targets[room]; ok {
			target = v
		}
		if tIn <= target {
			continue
		}

		baseK, ok := b.insulation[room]
		if !ok || baseK >= 0 {
			baseK = -0.5
		}
		lossPerHour := -baseK

		buffer := tIn - target
		hoursLeft := buffer / lossPerHour
		minutesLeft := int(hoursLeft * 60)

		deltaNow := tIn - tOut
		deltaEff := tIn - tEff
		if deltaEff != 0 && deltaNow != 0 {
			minutesLeft = int(float64(minutesLeft) * (deltaNow / deltaEff))
		}

		if minutesLeft > 15 {
			if minutesLeft > 240 {
				minutesLeft = 240
			}
			proposals = append(proposals, CoastingAdvice{
				Room:        room,
				MinutesSafe: minutesLeft,
				Target:      target,
				Current:     tIn,
				SavingsMsg:  "Heizung kann ausbleiben.",
			})
		}
	}

	sort.Slice(proposals, func(i, j int) bool { return proposals[i].MinutesSafe > proposals[j].MinutesSafe })
	return proposals
}

func roomHourKey(room string, hour int) string {
	return room + "_" + strconv.Itoa(hour)
}

// TrainPenalty records that room is heat-sensitive at the current hour,
// vetoing future coasting advice for that slot (spec §4.5).
func (b *Brain) TrainPenalty(room string, now time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.penalties[roomHourKey(room, now.Hour())] = 1.0
}

// GetPenalties returns a copy of the full penalty map.
func (b *Brain) GetPenalties() map[string]float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[string]float64, len(b.penalties))
	for k, v := range b.penalties {
		out[k] = v
	}
	return out
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// Snapshot is the persisted shape of energy_model.gob.
type Snapshot struct {
	Insulation map[string]float64
	Heating    map[string]float64
	Penalties  map[string]float64
}

// ExportSnapshot returns the current model for persistence.
func (b *Brain) ExportSnapshot() (Snapshot, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.ready {
		return Snapshot{}, false
	}
	return Snapshot{
		Insulation: copyMap(b.insulation),
		Heating:    copyMap(b.heating),
		Penalties:  copyMap(b.penalties),
	}, true
}

// ImportSnapshot restores a previously persisted model.
func (b *Brain) ImportSnapshot(s Snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if s.Insulation == nil && s.Heating == nil {
		return
	}
	b.insulation = copyMap(s.Insulation)
	b.heating = copyMap(s.Heating)
	b.penalties = copyMap(s.Penalties)
	b.ready = true
}

func copyMap(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
