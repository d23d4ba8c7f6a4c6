package health

import "testing"

func TestTrainRequiresAtLeastTwoDays(t *testing.T) {
	b := New(Config{})
	if err := b.Train([]Digest{{EventCount: 10}}); err == nil {
		t.Fatal("expected error with a single digest")
	}
}

func TestAnalyzeBeforeTrainingReturnsNotReady(t *testing.T) {
	b := New(Config{})
	result := b.Analyze(Digest{EventCount: 5})
	if result.Label != 0 {
		t.Errorf("Label = %d, want 0 before training", result.Label)
	}
}

func TestTrainThenAnalyzeProducesLabel(t *testing.T) {
	b := New(Config{})
	var digests []Digest
	for i := 0; i < 20; i++ {
		digests = append(digests, Digest{EventCount: 100 + i%5})
	}
	if err := b.Train(digests); err != nil {
		t.Fatalf("Train: %v", err)
	}
	result := b.Analyze(Digest{EventCount: 102})
	if result.Label != 1 && result.Label != -1 {
		t.Errorf("Label = %d, want +1 or -1", result.Label)
	}
}

func TestAnalyzeGaitRequiresFiveDurations(t *testing.T) {
	b := New(Config{})
	seqs := []GaitSequence{
		{Steps: []GaitStep{{Loc: "Flur", TDelta: 0}, {Loc: "Flur", TDelta: 3}}},
	}
	result := b.AnalyzeGait(seqs)
	if result.Valid {
		t.Error("expected invalid result with fewer than 5 durations")
	}
}

func TestAnalyzeGaitIgnoresNonHallwaySequences(t *testing.T) {
	b := New(Config{})
	var seqs []GaitSequence
	for i := 0; i < 6; i++ {
		seqs = append(seqs, GaitSequence{Steps: []GaitStep{
			{Loc: "Kitchen", TDelta: 0},
			{Loc: "Kitchen", TDelta: 5},
		}})
	}
	result := b.AnalyzeGait(seqs)
	if result.Valid {
		t.Error("non-hallway sequences should never contribute durations")
	}
}

func TestAnalyzeGaitComputesPercentChange(t *testing.T) {
	b := New(Config{})
	var seqs []GaitSequence
	durations := []float64{5, 6, 7, 8, 9}
	for _, d := range durations {
		seqs = append(seqs, GaitSequence{Steps: []GaitStep{
			{Loc: "Flur", TDelta: 0},
			{Loc: "Flur", TDelta: d},
		}})
	}
	result := b.AnalyzeGait(seqs)
	if !result.Valid {
		t.Fatal("expected a valid result")
	}
	if result.PercentChange <= 0 {
		t.Errorf("PercentChange = %v, want positive (increasing durations)", result.PercentChange)
	}
	if len(result.Sensors) == 0 {
		t.Error("expected non-empty sensor set")
	}
}

func TestAnalyzeTrendRequiresThreeValues(t *testing.T) {
	b := New(Config{})
	if _, err := b.AnalyzeTrend([]float64{1, 2}); err == nil {
		t.Fatal("expected an error with fewer than 3 values")
	}
}

func TestAnalyzeTrendClassifiesRising(t *testing.T) {
	b := New(Config{})
	result, err := b.AnalyzeTrend([]float64{10, 12, 14, 16, 20})
	if err != nil {
		t.Fatalf("AnalyzeTrend: %v", err)
	}
	if result.Classification != "Steigend" {
		t.Errorf("Classification = %q, want Steigend", result.Classification)
	}
}

func TestAnalyzeTrendClassifiesStable(t *testing.T) {
	b := New(Config{})
	result, err := b.AnalyzeTrend([]float64{10, 10, 10, 10, 10})
	if err != nil {
		t.Fatalf("AnalyzeTrend: %v", err)
	}
	if result.Classification != "Stabil" {
		t.Errorf("Classification = %q, want Stabil", result.Classification)
	}
}
