// Package tracker implements a particle filter that localises occupants
// across a room graph from sparse positive (sensor fired) and negative
// (sensor silent) motion observations (spec §4.3).
package tracker

import (
	"math"
	"math/rand"
	"sync"
	"time"
)

const (
	moveProbability    = 0.2
	silentDecay        = 0.95
	positiveBoost      = 50.0
	negativeAttenuate  = 0.02
	occupancyThreshold = 0.01
)

// Engine owns the particle cloud.
type Engine struct {
	mu sync.Mutex

	numParticles int
	persistEvery time.Duration
	lastPersist  time.Time

	rooms         []string
	index         map[string]int
	adjacency     [][]float64
	monitoredMask []bool

	particles []int
	weights   []float64
	ready     bool
}

// New returns a tracker with the given particle count (spec default 1000)
// and persistence cadence (spec default 60s).
func New(numParticles int, persistEvery time.Duration) *Engine {
	if numParticles <= 0 {
		numParticles = 1000
	}
	if persistEvery <= 0 {
		persistEvery = 60 * time.Second
	}
	return &Engine{numParticles: numParticles, persistEvery: persistEvery, index: make(map[string]int)}
}

// Ready reports whether a topology has been installed.
func (e *Engine) Ready() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ready
}

// SetTopology installs rooms, adjacency and the monitored-room mask.
// Particles are re-initialised whenever the room count changes or none
// exist yet (spec §4.3's initialisation rule).
func (e *Engine) SetTopology(rooms []string, matrix [][]float64, monitored []string) {
	n := len(rooms)
	if n == 0 || len(matrix) != n {
		return
	}

	adjacency := make([][]float64, n)
	for i, row := range matrix {
		r := make([]float64, n)
		copy(r, row)
		if len(r) != n {
			return
		}
		r[i] = 1.0
		adjacency[i] = r
	}

	index := make(map[string]int, n)
	for i, r := range rooms {
		index[r] = i
	}

	mask := make([]bool, n)
	for _, r := range monitored {
		if idx, ok := index[r]; ok {
			mask[idx] = true
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	roomCountChanged := len(e.rooms) != n
	e.rooms = append([]string(nil), rooms...)
	e.index = index
	e.adjacency = adjacency
	e.monitoredMask = mask

	if e.particles == nil || roomCountChanged {
		e.initParticlesLocked()
	}
	e.ready = true
}

func (e *Engine) initParticlesLocked() {
	n := len(e.rooms)
	e.particles = make([]int, e.numParticles)
	e.weights = make([]float64, e.numParticles)
	uniform := 1.0 / float64(e.numParticles)
	for i := range e.particles {
		e.particles[i] = rand.Intn(n)
		e.weights[i] = uniform
	}
}

// Update runs one TRACK_EVENT cycle: predict/diffuse, negative-information
// decay, positive update, normalise, conditionally resample, and estimate
// per-room occupancy. It reports whether the Model Store should persist the
// engine now (at most once per the configured cadence).
func (e *Engine) Update(eventRoom string, dt float64) (occupancy map[string]float64, shouldPersist bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.ready {
		return map[string]float64{}, false
	}

	n := len(e.rooms)
	eventIdx, eventKnown := e.index[eventRoom]

	if dt > 0 {
		steps := int(dt / 2.0)
		if steps < 1 {
			steps = 1
		}
		for s := 0; s < steps; s++ {
			for i, room := range e.particles {
				if rand.Float64() >= moveProbability {
					continue
				}
				neighbors := e.neighborsOf(room)
				if len(neighbors) == 0 {
					continue
				}
				e.particles[i] = neighbors[rand.Intn(len(neighbors))]
			}
		}

		silentMask := append([]bool(nil), e.monitoredMask...)
		if eventKnown {
			silentMask[eventIdx] = false
		}
		for i, room := range e.particles {
			if silentMask[room] {
				e.weights[i] *= silentDecay
			}
		}
	}

	if eventKnown {
		for i, room := range e.particles {
			if room == eventIdx {
				e.weights[i] *= positiveBoost
			} else {
				e.weights[i] *= negativeAttenuate
			}
		}
	}

	sum := 0.0
	for _, w := range e.weights {
		sum += w
	}
	if sum > 0 {
		for i := range e.weights {
			e.weights[i] /= sum
		}
	} else {
		uniform := 1.0 / float64(e.numParticles)
		for i := range e.weights {
			e.weights[i] = uniform
		}
	}

	sumSq := 0.0
	for _, w := range e.weights {
		sumSq += w * w
	}
	neff := 0.0
	if sumSq > 0 {
		neff = 1.0 / sumSq
	}
	if neff < float64(e.numParticles)/2.0 {
		e.resampleLocked()
	}

	counts := make([]int, n)
	for _, room := range e.particles {
		counts[room]++
	}

	result := make(map[string]float64)
	for i, c := range counts {
		p := float64(c) / float64(e.numParticles)
		if p > occupancyThreshold {
			result[e.rooms[i]] = round3(p)
		}
	}

	shouldPersist = time.Since(e.lastPersist) > e.persistEvery
	if shouldPersist {
		e.lastPersist = time.Now()
	}

	return result, shouldPersist
}

func (e *Engine) neighborsOf(room int) []int {
	var neighbors []int
	for j, v := range e.adjacency[room] {
		if v > 0 {
			neighbors = append(neighbors, j)
		}
	}
	return neighbors
}

// resampleLocked performs systematic resampling: one uniform offset walked
// across the cumulative weight sum to produce N stratified indices.
func (e *Engine) resampleLocked() {
	n := e.numParticles
	offset := rand.Float64() / float64(n)

	cumulative := make([]float64, n)
	running := 0.0
	for i, w := range e.weights {
		running += w
		cumulative[i] = running
	}

	newParticles := make([]int, n)
	i, j := 0, 0
	for i < n {
		position := offset + float64(i)/float64(n)
		if position < cumulative[j] {
			newParticles[i] = e.particles[j]
			i++
		} else {
			j++
			if j >= n {
				j = n - 1
			}
		}
	}

	e.particles = newParticles
	uniform := 1.0 / float64(n)
	for i := range e.weights {
		e.weights[i] = uniform
	}
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// Snapshot is the persisted shape of tracker_state.gob.
type Snapshot struct {
	Rooms         []string
	Matrix        [][]float64
	Particles     []int
	Weights       []float64
	MonitoredMask []bool
}

// ExportSnapshot returns the current state for persistence.
func (e *Engine) ExportSnapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Snapshot{
		Rooms:         append([]string(nil), e.rooms...),
		Matrix:        e.adjacency,
		Particles:     append([]int(nil), e.particles...),
		Weights:       append([]float64(nil), e.weights...),
		MonitoredMask: append([]bool(nil), e.monitoredMask...),
	}
}

// ImportSnapshot restores previously persisted state. Particle-count
// mismatch against the configured num_particles triggers re-initialisation
// (spec §4.3).
func (e *Engine) ImportSnapshot(s Snapshot) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(s.Rooms) == 0 {
		return
	}

	e.rooms = s.Rooms
	e.adjacency = s.Matrix
	e.monitoredMask = s.MonitoredMask
	e.index = make(map[string]int, len(s.Rooms))
	for i, r := range s.Rooms {
		e.index[r] = i
	}

	if len(s.Particles) != e.numParticles {
		e.initParticlesLocked()
		e.ready = true
		return
	}
	e.particles = s.Particles
	e.weights = s.Weights
	e.ready = true
}
