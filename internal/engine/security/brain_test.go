package security

import "testing"

func trainingSequences() [][]Step {
	var seqs [][]Step
	rooms := []string{"Kitchen", "Living", "Bedroom", "Hallway"}
	for i := 0; i < 30; i++ {
		seqs = append(seqs, []Step{
			{TDelta: 1.0, Loc: rooms[i%len(rooms)]},
			{TDelta: 2.0, Loc: rooms[(i+1)%len(rooms)]},
			{TDelta: 1.5, Loc: rooms[(i+2)%len(rooms)]},
		})
	}
	return seqs
}

func TestTrainSetsThresholdAboveFloor(t *testing.T) {
	b := New(Config{})
	threshold, err := b.Train(trainingSequences())
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	if threshold < 0.01 {
		t.Errorf("threshold = %v, want >= 0.01", threshold)
	}
	if !b.Ready() {
		t.Errorf("brain should be ready after training")
	}
}

func TestAnalyzeBeforeTrainingReturnsNotReady(t *testing.T) {
	b := New(Config{})
	_, err := b.Analyze([]Step{{TDelta: 1, Loc: "Kitchen"}})
	if err == nil {
		t.Fatal("expected an error before training")
	}
}

func TestLearningModeVetoS3(t *testing.T) {
	b := New(Config{})
	if _, err := b.Train(trainingSequences()); err != nil {
		t.Fatalf("Train: %v", err)
	}

	garageSeq := []Step{
		{TDelta: 1.0, Loc: "Kitchen"},
		{TDelta: 1.0, Loc: "Living"},
		{TDelta: 1.0, Loc: "Garage"},
	}

	b.SetLearningMode(true, 60, "party")
	first, err := b.Analyze(garageSeq)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if first.IsAnomaly {
		t.Errorf("first occurrence under learning mode should be tolerated, got anomaly=%v explanation=%q", first.IsAnomaly, first.Explanation)
	}

	second, err := b.Analyze(garageSeq)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if second.IsAnomaly {
		t.Errorf("second occurrence should be whitelisted, got anomaly=%v", second.IsAnomaly)
	}
}

func TestSetLearningModeFalseClearsWhitelist(t *testing.T) {
	b := New(Config{})
	b.SetLearningMode(true, 60, "party")
	b.whitelist.add("Kitchen->Garage")
	b.SetLearningMode(false, 0, "")
	if b.whitelist.contains("Kitchen->Garage") {
		t.Errorf("stopping learning mode must clear the whitelist")
	}
}
