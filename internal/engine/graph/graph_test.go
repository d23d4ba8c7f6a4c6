package graph

import "testing"

func TestPropagateS2(t *testing.T) {
	e := New()
	rooms := []string{"a", "b", "c"}
	matrix := [][]float64{
		{0, 1, 0},
		{1, 0, 1},
		{0, 1, 0},
	}
	if err := e.SetTopology(rooms, matrix); err != nil {
		t.Fatalf("SetTopology: %v", err)
	}

	result := e.Propagate("b")
	if _, ok := result["b"]; ok {
		t.Errorf("propagation result should not contain the start room")
	}
	a, aok := result["a"]
	c, cok := result["c"]
	if !aok || !cok {
		t.Fatalf("expected both neighbours present, got %v", result)
	}
	if a <= 0 || c <= 0 {
		t.Errorf("expected positive scores, got a=%v c=%v", a, c)
	}
	if diff := a - c; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("expected roughly equal scores for symmetric neighbours, got a=%v c=%v", a, c)
	}
}

func TestPropagateUnknownRoom(t *testing.T) {
	e := New()
	_ = e.SetTopology([]string{"a", "b"}, [][]float64{{0, 1}, {1, 0}})

	if result := e.Propagate("nowhere"); len(result) != 0 {
		t.Errorf("expected empty map for unknown room, got %v", result)
	}
}

func TestSetTopologyShapeMismatch(t *testing.T) {
	e := New()
	if err := e.SetTopology([]string{"a", "b"}, [][]float64{{0, 1}}); err == nil {
		t.Fatal("expected an error for a non-square matrix")
	}
	if e.Ready() {
		t.Errorf("a failed SetTopology must leave the engine not-ready")
	}
}

func TestImportSnapshotBeforeTopologyIsAdoptedByMatchingSetTopology(t *testing.T) {
	e := New()
	snap := Snapshot{
		Rooms:    []string{"a", "b", "c"},
		Behavior: [][]float64{{0, 1, 0}, {0, 0, 1}, {1, 0, 0}},
	}
	e.ImportSnapshot(snap)

	rooms := []string{"a", "b", "c"}
	matrix := [][]float64{
		{0, 1, 0},
		{1, 0, 1},
		{0, 1, 0},
	}
	if err := e.SetTopology(rooms, matrix); err != nil {
		t.Fatalf("SetTopology: %v", err)
	}

	result := e.Propagate("a")
	if got := result["b"]; got != 1 {
		t.Errorf("expected the restored behaviour matrix to drive propagation a->b=1, got %v", result)
	}
}

func TestImportSnapshotDiscardedWhenRoomsDiffer(t *testing.T) {
	e := New()
	e.ImportSnapshot(Snapshot{
		Rooms:    []string{"x", "y"},
		Behavior: [][]float64{{0, 1}, {1, 0}},
	})

	rooms := []string{"a", "b", "c"}
	matrix := [][]float64{
		{0, 1, 0},
		{1, 0, 1},
		{0, 1, 0},
	}
	if err := e.SetTopology(rooms, matrix); err != nil {
		t.Fatalf("SetTopology: %v", err)
	}

	snap, ok := e.ExportSnapshot()
	if ok && snap.Behavior != nil {
		t.Errorf("behaviour from a mismatched snapshot should not survive SetTopology, got %v", snap.Behavior)
	}
}

func TestSetTopologyPreservesBehaviorWhenRoomsUnchanged(t *testing.T) {
	e := New()
	rooms := []string{"a", "b"}
	matrix := [][]float64{{0, 1}, {1, 0}}
	_ = e.SetTopology(rooms, matrix)
	_ = e.TrainBehavior([][]Step{{{Loc: "a"}, {Loc: "b"}, {Loc: "b"}}})

	before, _ := e.ExportSnapshot()
	if err := e.SetTopology(rooms, matrix); err != nil {
		t.Fatalf("re-SetTopology: %v", err)
	}
	after, ok := e.ExportSnapshot()
	if !ok {
		t.Fatalf("expected a behaviour snapshot to still be exportable")
	}
	if after.Behavior[0][1] != before.Behavior[0][1] {
		t.Errorf("re-installing the same topology should preserve the learned behaviour matrix")
	}
}

func TestTrainBehaviorOverridesSpectralPropagation(t *testing.T) {
	e := New()
	rooms := []string{"a", "b", "c"}
	matrix := [][]float64{
		{0, 1, 0},
		{1, 0, 1},
		{0, 1, 0},
	}
	_ = e.SetTopology(rooms, matrix)

	sequences := [][]Step{
		{{Loc: "a"}, {Loc: "b"}, {Loc: "b"}, {Loc: "b"}},
	}
	if err := e.TrainBehavior(sequences); err != nil {
		t.Fatalf("TrainBehavior: %v", err)
	}

	result := e.Propagate("a")
	if result["b"] == 0 {
		t.Errorf("expected a learned transition a->b, got %v", result)
	}
}
