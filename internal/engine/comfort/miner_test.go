package comfort

import "testing"

func TestTrainEmptyEventsReturnsNil(t *testing.T) {
	if got := Train(nil, nil); got != nil {
		t.Fatalf("Train(nil) = %v, want nil", got)
	}
}

func TestTrainFindsRepeatedTransition(t *testing.T) {
	deviceMap := map[string]string{"hm.light1": "light"}
	var events []Event
	base := int64(0)
	for i := 0; i < 4; i++ {
		events = append(events,
			Event{TimestampMs: base, ID: "hm.motion1", Name: "Flur Bewegung"},
			Event{TimestampMs: base + 3000, ID: "hm.light1", Name: "Flur Licht"},
		)
		base += 120000
	}
	patterns := Train(events, deviceMap)
	if len(patterns) != 1 {
		t.Fatalf("len(patterns) = %d, want 1: %+v", len(patterns), patterns)
	}
	p := patterns[0]
	if p.Rule != "Flur Bewegung -> Flur Licht" {
		t.Errorf("Rule = %q", p.Rule)
	}
	if p.Count != 4 {
		t.Errorf("Count = %d, want 4", p.Count)
	}
	if p.Confidence != 1.0 {
		t.Errorf("Confidence = %v, want 1.0", p.Confidence)
	}
	if p.TimeInfo != "Ø +3.0s" {
		t.Errorf("TimeInfo = %q, want Ø +3.0s", p.TimeInfo)
	}
}

func TestTrainRejectsNonActionableTarget(t *testing.T) {
	deviceMap := map[string]string{"hm.sensor1": "temperature"}
	var events []Event
	base := int64(0)
	for i := 0; i < 5; i++ {
		events = append(events,
			Event{TimestampMs: base, ID: "hm.motion1", Name: "A"},
			Event{TimestampMs: base + 2000, ID: "hm.sensor1", Name: "B"},
		)
		base += 100000
	}
	if got := Train(events, deviceMap); len(got) != 0 {
		t.Fatalf("expected no patterns for a non-actionable target, got %+v", got)
	}
}

func TestTrainDebouncesSubSecondPairs(t *testing.T) {
	deviceMap := map[string]string{"hm.light1": "light"}
	var events []Event
	base := int64(0)
	for i := 0; i < 5; i++ {
		events = append(events,
			Event{TimestampMs: base, ID: "hm.motion1", Name: "A"},
			Event{TimestampMs: base + 500, ID: "hm.light1", Name: "B"},
		)
		base += 100000
	}
	if got := Train(events, deviceMap); len(got) != 0 {
		t.Fatalf("expected sub-1s pairs to be debounced away, got %+v", got)
	}
}

func TestTrainRequiresMinimumOccurrences(t *testing.T) {
	deviceMap := map[string]string{"hm.light1": "light"}
	events := []Event{
		{TimestampMs: 0, ID: "hm.motion1", Name: "A"},
		{TimestampMs: 2000, ID: "hm.light1", Name: "B"},
		{TimestampMs: 100000, ID: "hm.motion1", Name: "A"},
		{TimestampMs: 102000, ID: "hm.light1", Name: "B"},
	}
	if got := Train(events, deviceMap); len(got) != 0 {
		t.Fatalf("expected fewer than 3 occurrences to be dropped, got %+v", got)
	}
}

func TestTrainEnforcesTimeWindow(t *testing.T) {
	deviceMap := map[string]string{"hm.light1": "light"}
	var events []Event
	base := int64(0)
	for i := 0; i < 4; i++ {
		events = append(events,
			Event{TimestampMs: base, ID: "hm.motion1", Name: "A"},
			Event{TimestampMs: base + 60000, ID: "hm.light1", Name: "B"},
		)
		base += 200000
	}
	if got := Train(events, deviceMap); len(got) != 0 {
		t.Fatalf("expected transitions outside the 45s window to be dropped, got %+v", got)
	}
}

func TestTrainCapsResultsAtFive(t *testing.T) {
	deviceMap := map[string]string{
		"hm.light1": "light", "hm.light2": "light", "hm.light3": "light",
		"hm.light4": "light", "hm.light5": "light", "hm.light6": "light",
	}
	var events []Event
	base := int64(0)
	targets := []string{"hm.light1", "hm.light2", "hm.light3", "hm.light4", "hm.light5", "hm.light6"}
	for i := 0; i < 4; i++ {
		events = append(events, Event{TimestampMs: base, ID: "hm.motion1", Name: "A"})
		for _, id := range targets {
			base += 2000
			events = append(events, Event{TimestampMs: base, ID: id, Name: id})
		}
		base += 200000
	}
	got := Train(events, deviceMap)
	if len(got) > maxResults {
		t.Fatalf("len(patterns) = %d, want <= %d", len(got), maxResults)
	}
}
