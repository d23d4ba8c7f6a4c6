// Package graph maintains the room-adjacency graph, its normalised
// spectral filter, and an optional learned behaviour transition matrix
// (spec §4.2).
package graph

import (
	"math"
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/obodeldog/cogni-living-daemon/internal/domain"
)

// Step is one location visit within a sequence, shared shape with the
// security brain's training input.
type Step struct {
	Loc string
}

// Engine owns the room graph.
type Engine struct {
	mu sync.Mutex

	rooms     []string
	index     map[string]int
	adjacency *mat.Dense // N x N, diagonal forced to 1.0
	filter    *mat.Dense // normalised Laplacian D^-0.5 A D^-0.5
	behavior  [][]float64 // optional learned transition matrix, row-stochastic
	ready     bool
}

// New returns an empty, not-ready graph engine.
func New() *Engine {
	return &Engine{index: make(map[string]int)}
}

// Ready reports whether a topology has been installed.
func (e *Engine) Ready() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ready
}

// SetTopology installs rooms and a raw adjacency matrix. Any shape mismatch
// leaves the existing state untouched and is reported to the caller so the
// dispatcher can log it (spec §4.2's failure policy: "silently ignored"
// from the engine's perspective — state unchanged — but not silent to the
// operator).
func (e *Engine) SetTopology(rooms []string, matrix [][]float64) error {
	n := len(rooms)
	if n == 0 {
		return domain.ErrEmptyRoomList
	}
	if len(matrix) != n {
		return domain.ErrMatrixShapeMismatch
	}
	for _, row := range matrix {
		if len(row) != n {
			return domain.ErrMatrixShapeMismatch
		}
	}

	adjacency := mat.NewDense(n, n, nil)
	for i, row := range matrix {
		for j, v := range row {
			if i == j {
				adjacency.Set(i, j, 1.0)
			} else {
				adjacency.Set(i, j, v)
			}
		}
	}

	degree := make([]float64, n)
	for i := 0; i < n; i++ {
		degree[i] = mat.Sum(adjacency.RowView(i))
	}

	dInvSqrt := mat.NewDiagDense(n, make([]float64, n))
	for i, d := range degree {
		if d > 0 {
			dInvSqrt.SetDiag(i, 1.0/math.Sqrt(d))
		} else {
			dInvSqrt.SetDiag(i, 0) // 0^-0.5 = 0 convention
		}
	}

	var tmp, filter mat.Dense
	tmp.Mul(dInvSqrt, adjacency)
	filter.Mul(&tmp, dInvSqrt)

	index := make(map[string]int, n)
	for i, r := range rooms {
		index[r] = i
	}

	e.mu.Lock()
	if !sameRooms(e.rooms, rooms) {
		e.behavior = nil
	}
	e.rooms = append([]string(nil), rooms...)
	e.index = index
	e.adjacency = adjacency
	e.filter = &filter
	e.ready = true
	e.mu.Unlock()

	return nil
}

func sameRooms(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i, r := range a {
		if r != b[i] {
			return false
		}
	}
	return true
}

// Propagate computes the signal reaching every other room from start,
// preferring the learned behaviour matrix over spectral propagation when
// one is trained and dimensionally compatible (spec §4.2).
func (e *Engine) Propagate(start string) map[string]float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.ready {
		return map[string]float64{}
	}
	idx, ok := e.index[start]
	if !ok {
		return map[string]float64{}
	}

	n := len(e.rooms)
	y := make([]float64, n)

	if e.behavior != nil && len(e.behavior) == n && len(e.behavior[idx]) == n {
		copy(y, e.behavior[idx])
	} else {
		col := mat.Col(nil, idx, e.filter)
		copy(y, col)
	}

	result := make(map[string]float64)
	for i, v := range y {
		if i == idx {
			continue
		}
		if v > 0.05 {
			result[e.rooms[i]] = round3(v)
		}
	}
	return result
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// TrainBehavior accumulates transition counts across a batch of sequences,
// row-normalises, masks to adjacency support, row-normalises again, and
// overwrites the learned behaviour matrix (spec §4.2).
func (e *Engine) TrainBehavior(sequences [][]Step) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.ready {
		return domain.ErrGraphNotReady
	}
	n := len(e.rooms)

	counts := make([][]float64, n)
	for i := range counts {
		counts[i] = make([]float64, n)
	}

	for _, seq := range sequences {
		for i := 0; i+1 < len(seq); i++ {
			from, ok1 := e.index[seq[i].Loc]
			to, ok2 := e.index[seq[i+1].Loc]
			if !ok1 || !ok2 {
				continue
			}
			counts[from][to]++
		}
	}

	normalizeRows(counts)

	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if e.adjacency.At(i, j) == 0 {
				counts[i][j] = 0
			}
		}
	}

	normalizeRows(counts)

	e.behavior = counts
	return nil
}

func normalizeRows(m [][]float64) {
	for i, row := range m {
		sum := 0.0
		for _, v := range row {
			sum += v
		}
		if sum <= 0 {
			continue
		}
		for j := range row {
			m[i][j] = row[j] / sum
		}
	}
}

// Snapshot is the persisted shape of graph_behavior.gob — the learned
// behaviour matrix only; topology itself is re-supplied by the host on
// each restart via SET_TOPOLOGY (spec §6's file list has no topology
// file).
type Snapshot struct {
	Rooms    []string
	Behavior [][]float64
}

// ExportSnapshot returns the current behaviour matrix for persistence, or
// (Snapshot{}, false) if nothing has been trained yet.
func (e *Engine) ExportSnapshot() (Snapshot, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.behavior == nil {
		return Snapshot{}, false
	}
	return Snapshot{Rooms: append([]string(nil), e.rooms...), Behavior: e.behavior}, true
}

// ImportSnapshot restores a previously persisted behaviour matrix. If no
// topology has been installed yet — the usual case, since ImportSnapshot
// runs at startup before the host's first SET_TOPOLOGY — it adopts the
// snapshot's room ordering so the matrix can be validated against whatever
// topology arrives next (SetTopology preserves it when the rooms match).
// Otherwise it is a no-op if the room list doesn't match the currently
// installed topology — the matrix only means something against the rooms
// it was trained on.
func (e *Engine) ImportSnapshot(s Snapshot) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.rooms) == 0 {
		e.rooms = append([]string(nil), s.Rooms...)
		index := make(map[string]int, len(s.Rooms))
		for i, r := range s.Rooms {
			index[r] = i
		}
		e.index = index
		e.behavior = s.Behavior
		return
	}

	if !sameRooms(e.rooms, s.Rooms) {
		return
	}
	e.behavior = s.Behavior
}
