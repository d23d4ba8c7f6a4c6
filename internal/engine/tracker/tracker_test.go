package tracker

import "testing"

func TestUpdateS1Convergence(t *testing.T) {
	e := New(1000, 0)
	rooms := []string{"A", "B", "C"}
	matrix := [][]float64{
		{1, 1, 0},
		{1, 1, 1},
		{0, 1, 1},
	}
	e.SetTopology(rooms, matrix, []string{"A", "B", "C"})

	e.Update("A", 0)
	e.Update("B", 3)
	result, _ := e.Update("B", 3)

	if result["B"] <= 0.8 {
		t.Errorf("P(B) = %v, want > 0.8", result["B"])
	}
	if result["A"]+result["C"] >= 0.2 {
		t.Errorf("P(A)+P(C) = %v, want < 0.2", result["A"]+result["C"])
	}
}

func TestWeightsAlwaysSumToOne(t *testing.T) {
	e := New(500, 0)
	e.SetTopology([]string{"A", "B"}, [][]float64{{1, 1}, {1, 1}}, []string{"A"})

	e.Update("A", 1)
	sum := 0.0
	for _, w := range e.weights {
		sum += w
	}
	if diff := sum - 1.0; diff > 1e-9 || diff < -1e-9 {
		uniform := 1.0 / float64(len(e.weights))
		for _, w := range e.weights {
			if w != uniform {
				t.Fatalf("weights sum = %v, want 1 (or uniform %v)", sum, uniform)
			}
		}
	}
}

func TestParticleIndicesInRange(t *testing.T) {
	e := New(200, 0)
	e.SetTopology([]string{"A", "B", "C"}, [][]float64{
		{1, 1, 0}, {1, 1, 1}, {0, 1, 1},
	}, nil)

	e.Update("C", 4)
	for _, p := range e.particles {
		if p < 0 || p >= 3 {
			t.Fatalf("particle index %d out of range [0,3)", p)
		}
	}
	if len(e.particles) != 200 || len(e.weights) != 200 {
		t.Fatalf("particle/weight count drifted from num_particles")
	}
}

func TestUpdateWithoutTopologyReturnsEmpty(t *testing.T) {
	e := New(100, 0)
	result, persist := e.Update("A", 1)
	if len(result) != 0 || persist {
		t.Errorf("expected empty result and no persist before any topology is set")
	}
}

func TestImportSnapshotParticleCountMismatchStillBecomesReady(t *testing.T) {
	e := New(10, 0)
	snap := Snapshot{
		Rooms:         []string{"A", "B"},
		Matrix:        [][]float64{{1, 1}, {1, 1}},
		Particles:     make([]int, 999), // persisted under a different num_particles
		Weights:       make([]float64, 999),
		MonitoredMask: []bool{true, true},
	}
	e.ImportSnapshot(snap)

	result, _ := e.Update("A", 0)
	if len(result) == 0 {
		t.Errorf("expected Update to track occupancy after a particle-count mismatch re-init, got empty result")
	}
}

func TestPersistCadence(t *testing.T) {
	e := New(50, 0) // persistEvery defaults to 60s when <=0
	e.SetTopology([]string{"A"}, [][]float64{{1}}, nil)

	_, first := e.Update("A", 1)
	if !first {
		t.Errorf("expected the first update to request persistence")
	}
	_, second := e.Update("A", 1)
	if second {
		t.Errorf("expected no persistence request within the cadence window")
	}
}
