// Package comfort mines two-step device-transition patterns out of a raw
// event stream: "whenever A fires, B reliably follows within a few
// seconds" (spec §4, TRAIN_COMFORT).
package comfort

import (
	"fmt"
	"sort"
)

// actionable device classes: only these may be the B half of a learned
// transition, matching the original's actor whitelist.
var actionableClasses = map[string]bool{
	"light":      true,
	"dimmer":     true,
	"blind":      true,
	"lock":       true,
	"thermostat": true,
	"switch":     true,
	"plug":       true,
}

const (
	lookaheadWindow = 10
	timeWindowSec   = 45.0
	debounceSec     = 1.0
	minOccurrences  = 3
	minConfidence   = 0.4
	maxResults      = 5
)

// Event is one raw sensor/actor event.
type Event struct {
	TimestampMs int64
	ID          string // technical id, e.g. "hm-rpc.0.LEQ12345"
	Name        string // display name; falls back to ID when absent
}

func (e Event) displayName() string {
	if e.Name != "" {
		return e.Name
	}
	return e.ID
}

// Pattern is one mined two-step transition.
type Pattern struct {
	Rule       string // "A -> B"
	Confidence float64
	Count      int
	TimeInfo   string // "Ø +{avg}s"
}

// isActionable reports whether id names a device class permitted to be
// the trigger target of a learned transition.
func isActionable(id string, deviceMap map[string]string) bool {
	if id == "" {
		return false
	}
	class, ok := deviceMap[id]
	if !ok {
		return false
	}
	return actionableClasses[class]
}

// Train mines two-step transitions out of events, ordered by timestamp.
// deviceMap maps a technical id to its device class; an id absent from it
// is never treated as actionable, matching the original's "unknown id,
// ignore it" stance.
func Train(events []Event, deviceMap map[string]string) []Pattern {
	if len(events) == 0 {
		return nil
	}
	if deviceMap == nil {
		deviceMap = map[string]string{}
	}

	sorted := append([]Event(nil), events...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].TimestampMs < sorted[j].TimestampMs })

	type delays struct {
		values []float64
	}
	patterns := make(map[string]*delays)
	eventCounts := make(map[string]int)

	n := len(sorted)
	for i := 0; i < n; i++ {
		a := sorted[i]
		nameA := a.displayName()
		eventCounts[nameA]++

		end := i + lookaheadWindow
		if end > n {
			end = n
		}
		for j := i + 1; j < end; j++ {
			b := sorted[j]
			nameB := b.displayName()

			deltaAB := float64(b.TimestampMs-a.TimestampMs) / 1000.0
			if deltaAB > timeWindowSec {
				break
			}
			if deltaAB < debounceSec || nameA == nameB {
				continue
			}
			if !isActionable(b.ID, deviceMap) {
				continue
			}

			rule := nameA + " -> " + nameB
			if patterns[rule] == nil {
				patterns[rule] = &delays{}
			}
			patterns[rule].values = append(patterns[rule].values, deltaAB)
		}
	}

	var results []Pattern
	for rule, d := range patterns {
		count := len(d.values)
		if count < minOccurrences {
			continue
		}
		source := ruleSource(rule)
		conf := float64(count) / float64(eventCounts[source])
		if conf <= minConfidence {
			continue
		}
		avg := meanFloat(d.values)
		results = append(results, Pattern{
			Rule:       rule,
			Confidence: conf,
			Count:      count,
			TimeInfo:   fmt.Sprintf("Ø +%.1fs", avg),
		})
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Confidence > results[j].Confidence })
	if len(results) > maxResults {
		results = results[:maxResults]
	}
	return results
}

func ruleSource(rule string) string {
	for i := 0; i+4 <= len(rule); i++ {
		if rule[i:i+4] == " -> " {
			return rule[:i]
		}
	}
	return rule
}

func meanFloat(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
