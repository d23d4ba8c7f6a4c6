package daemon

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/obodeldog/cogni-living-daemon/internal/domain"
	"github.com/obodeldog/cogni-living-daemon/internal/engine/comfort"
	"github.com/obodeldog/cogni-living-daemon/internal/engine/energy"
	"github.com/obodeldog/cogni-living-daemon/internal/engine/graph"
	"github.com/obodeldog/cogni-living-daemon/internal/engine/health"
	"github.com/obodeldog/cogni-living-daemon/internal/engine/security"
	"github.com/obodeldog/cogni-living-daemon/internal/engine/tracker"
	"github.com/obodeldog/cogni-living-daemon/internal/metrics"
	"github.com/obodeldog/cogni-living-daemon/internal/store"
)

// Dispatcher routes one decoded request line to the owning engine and
// writes its response/log lines (spec §4.1, §5, §6). It holds no
// transport state of its own — Daemon.Serve owns the stdio read loop.
type Dispatcher struct {
	Graph    *graph.Engine
	Tracker  *tracker.Engine
	Security *security.Brain
	Energy   *energy.Brain
	PINN     *energy.PINN
	Health   *health.Brain

	Store   *store.Store
	History *store.History
}

// Handle decodes one input line and runs the matching command, writing
// "[RESULT] ..." and "[LOG] ..." lines to w in the order spec §4.1
// prescribes. A malformed line or unknown command produces only an
// optional log line and no response (spec §6-7).
func (d *Dispatcher) Handle(line []byte, w io.Writer) {
	var req request
	if err := json.Unmarshal(line, &req); err != nil {
		d.logf(w, "malformed request: %v", err)
		return
	}
	if req.Command == "" {
		return
	}
	// request tags both Rooms and SilenceRooms as "rooms", so the decode above
	// fills neither; decode that key into the shape the command uses.
	var raw struct {
		Rooms json.RawMessage `json:"rooms"`
	}
	if err := json.Unmarshal(line, &raw); err == nil && len(raw.Rooms) > 0 {
		if req.Command == "CHECK_ROOM_SILENCE" {
			_ = json.Unmarshal(raw.Rooms, &req.SilenceRooms)
		} else {
			_ = json.Unmarshal(raw.Rooms, &req.Rooms)
		}
	}

	start := time.Now()
	ok := d.dispatch(req, w)
	duration := time.Since(start)
	metrics.EngineLatencySeconds.WithLabelValues(engineFor(req.Command)).Observe(duration.Seconds())

	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	metrics.CommandsTotal.WithLabelValues(req.Command, outcome).Inc()
	if d.History != nil {
		_ = d.History.Record(req.Command, engineFor(req.Command), ok, duration)
	}
}

func (d *Dispatcher) dispatch(req request, w io.Writer) bool {
	switch req.Command {
	case "PING":
		d.result(w, "PONG", map[string]any{"timestamp": time.Now().UnixMilli()})
		return true

	case "SET_TOPOLOGY":
		return d.handleSetTopology(req, w)

	case "SIMULATE_SIGNAL":
		rooms := d.Graph.Propagate(req.Room)
		d.result(w, "SIGNAL_RESULT", map[string]any{"room": req.Room, "propagation": rooms})
		return true

	case "TRAIN_BEHAVIOR":
		return d.handleTrainBehavior(req, w)

	case "TRAIN_SECURITY":
		return d.handleTrainSecurity(req, w)

	case "ANALYZE_SEQUENCE":
		return d.handleAnalyzeSequence(req, w)

	case "SET_LEARNING_MODE":
		active := false
		if req.Active != nil {
			active = *req.Active
		}
		d.Security.SetLearningMode(active, req.DurationMin, req.Label)
		d.logf(w, "learning mode set: active=%v label=%q duration_min=%v", active, req.Label, req.DurationMin)
		return true

	case "TRACK_EVENT":
		return d.handleTrackEvent(req, w)

	case "TRAIN_HEALTH":
		return d.handleTrainHealth(req, w)

	case "ANALYZE_HEALTH":
		result := d.Health.Analyze(health.Digest{ActivityVector: req.Digest.ActivityVector, EventCount: req.Digest.EventCount})
		d.result(w, "HEALTH_RESULT", map[string]any{"label": result.Label, "score": result.Score})
		return true

	case "ANALYZE_GAIT":
		return d.handleAnalyzeGait(req, w)

	case "ANALYZE_TREND":
		return d.handleAnalyzeTrend(req, w)

	case "ANALYZE_LONGTERM":
		return d.handleAnalyzeLongterm(req, w)

	case "ANALYZE_HEATMAP":
		return d.handleAnalyzeHeatmap(req, w)

	case "CHECK_ROOM_SILENCE":
		return d.handleCheckRoomSilence(req, w)

	case "TRAIN_ENERGY":
		return d.handleTrainEnergy(req, w)

	case "TRAIN_RL_PENALTY":
		now := time.Now()
		d.Energy.TrainPenalty(req.Room, now)
		d.persist(w, "energy", store.EnergyFile, func() (any, bool) { return d.Energy.ExportSnapshot() })
		d.result(w, "RL_PENALTY_UPDATE", map[string]any{"penalties": d.Energy.GetPenalties()})
		return true

	case "PREDICT_ENERGY":
		return d.handlePredictEnergy(req, w)

	case "OPTIMIZE_ENERGY":
		return d.handleOptimizeEnergy(req, w)

	case "TRAIN_COMFORT":
		return d.handleTrainComfort(req, w)

	default:
		d.logf(w, "unknown command: %s", req.Command)
		return false
	}
}

func engineFor(command string) string {
	switch command {
	case "SET_TOPOLOGY", "SIMULATE_SIGNAL", "TRAIN_BEHAVIOR":
		return "graph"
	case "TRACK_EVENT":
		return "tracker"
	case "TRAIN_SECURITY", "ANALYZE_SEQUENCE", "SET_LEARNING_MODE":
		return "security"
	case "TRAIN_HEALTH", "ANALYZE_HEALTH", "ANALYZE_GAIT", "ANALYZE_TREND",
		"ANALYZE_LONGTERM", "ANALYZE_HEATMAP", "CHECK_ROOM_SILENCE":
		return "health"
	case "TRAIN_ENERGY", "TRAIN_RL_PENALTY", "PREDICT_ENERGY", "OPTIMIZE_ENERGY":
		return "energy"
	case "TRAIN_COMFORT":
		return "comfort"
	default:
		return "dispatcher"
	}
}

func (d *Dispatcher) result(w io.Writer, typ string, payload any) {
	enc, err := json.Marshal(Response{Type: typ, Payload: payload})
	if err != nil {
		d.logf(w, "failed to encode %s response: %v", typ, err)
		return
	}
	fmt.Fprintf(w, "[RESULT] %s\n", enc)
}

func (d *Dispatcher) logf(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "[LOG] %s\n", fmt.Sprintf(format, args...))
}

func (d *Dispatcher) persist(w io.Writer, engineName, file string, export func() (any, bool)) {
	if d.Store == nil {
		return
	}
	snapshot, ok := export()
	if !ok {
		return
	}
	if err := d.Store.Save(file, snapshot); err != nil {
		metrics.PersistenceFailuresTotal.WithLabelValues(engineName).Inc()
		d.logf(w, "failed to persist %s: %v", engineName, err)
	}
}

func (d *Dispatcher) handleSetTopology(req request, w io.Writer) bool {
	ok := true
	if err := d.Graph.SetTopology(req.Rooms, req.Matrix); err != nil {
		d.logf(w, "SET_TOPOLOGY graph rejected: %v", err)
		ok = false
	}
	d.Tracker.SetTopology(req.Rooms, req.Matrix, req.Monitored)

	d.persist(w, "tracker", store.TrackerFile, func() (any, bool) { return d.Tracker.ExportSnapshot(), true })
	d.result(w, "TOPOLOGY_ACK", map[string]any{"rooms": len(req.Rooms), "ok": ok})
	return ok
}

func (d *Dispatcher) handleTrainBehavior(req request, w io.Writer) bool {
	sequences := make([][]graph.Step, len(req.Sequences))
	for i, seq := range req.Sequences {
		steps := make([]graph.Step, len(seq.Steps))
		for j, s := range seq.Steps {
			steps[j] = graph.Step{Loc: s.Loc}
		}
		sequences[i] = steps
	}
	if err := d.Graph.TrainBehavior(sequences); err != nil {
		d.logf(w, "TRAIN_BEHAVIOR failed: %v", err)
		d.result(w, "BEHAVIOR_TRAIN_RESULT", map[string]any{"ok": false})
		return false
	}
	d.persist(w, "graph", store.GraphFile, func() (any, bool) { return d.Graph.ExportSnapshot() })
	d.result(w, "BEHAVIOR_TRAIN_RESULT", map[string]any{"ok": true})
	return true
}

func (d *Dispatcher) handleTrainSecurity(req request, w io.Writer) bool {
	sequences := make([][]security.Step, len(req.Sequences))
	for i, seq := range req.Sequences {
		sequences[i] = toSecuritySteps(seq.Steps)
	}
	threshold, err := d.Security.Train(sequences)
	if err != nil {
		d.logf(w, "TRAIN_SECURITY failed: %v", err)
		d.result(w, "TRAINING_COMPLETE", map[string]any{"ok": false})
		return false
	}
	d.persist(w, "security", store.SecurityFile, func() (any, bool) { return d.Security.ExportSnapshot() })
	d.result(w, "TRAINING_COMPLETE", map[string]any{"ok": true, "threshold": threshold})
	return true
}

func (d *Dispatcher) handleAnalyzeSequence(req request, w io.Writer) bool {
	if d.Security.MaintainLearningMode() {
		d.logf(w, "learning mode expired")
	}
	steps := toSecuritySteps(req.Sequence.Steps)
	result, err := d.Security.Analyze(steps)
	if err != nil {
		d.result(w, "SECURITY_RESULT", map[string]any{
			"score": 0.0, "is_anomaly": false, "explanation": result.Explanation,
		})
		return false
	}
	d.result(w, "SECURITY_RESULT", map[string]any{
		"score": result.Score, "is_anomaly": result.IsAnomaly, "explanation": result.Explanation,
	})
	return true
}

func toSecuritySteps(steps []stepDTO) []security.Step {
	out := make([]security.Step, len(steps))
	for i, s := range steps {
		out[i] = security.Step{Loc: s.Loc, TDelta: s.TDelta}
	}
	return out
}

func (d *Dispatcher) handleTrackEvent(req request, w io.Writer) bool {
	occupancy, shouldPersist := d.Tracker.Update(req.Room, req.Dt)
	if shouldPersist {
		d.persist(w, "tracker", store.TrackerFile, func() (any, bool) { return d.Tracker.ExportSnapshot(), true })
	}
	d.result(w, "TRACKER_RESULT", map[string]any{"occupancy": occupancy})
	return true
}

func (d *Dispatcher) handleTrainHealth(req request, w io.Writer) bool {
	digests := make([]health.Digest, len(req.Digests))
	for i, dg := range req.Digests {
		digests[i] = health.Digest{ActivityVector: dg.ActivityVector, EventCount: dg.EventCount}
	}
	if err := d.Health.Train(digests); err != nil {
		d.logf(w, "TRAIN_HEALTH failed: %v", err)
		d.result(w, "HEALTH_TRAIN_RESULT", map[string]any{"ok": false})
		return false
	}
	d.persist(w, "health", store.HealthFile, func() (any, bool) { return d.Health.ExportSnapshot() })
	d.result(w, "HEALTH_TRAIN_RESULT", map[string]any{"ok": true})
	return true
}

func (d *Dispatcher) handleAnalyzeGait(req request, w io.Writer) bool {
	sequences := make([]health.GaitSequence, len(req.Sequences))
	for i, seq := range req.Sequences {
		steps := make([]health.GaitStep, len(seq.Steps))
		for j, s := range seq.Steps {
			steps[j] = health.GaitStep{Loc: s.Loc, TDelta: s.TDelta}
		}
		sequences[i] = health.GaitSequence{Steps: steps}
	}
	result := d.Health.AnalyzeGait(sequences)
	d.result(w, "GAIT_RESULT", map[string]any{
		"valid": result.Valid, "percent_change": result.PercentChange,
		"sensors": result.Sensors, "proof": result.Proof,
	})
	return true
}

func (d *Dispatcher) handleAnalyzeTrend(req request, w io.Writer) bool {
	result, err := d.Health.AnalyzeTrend(req.Values)
	if err != nil {
		d.result(w, "HEALTH_TREND_RESULT", map[string]any{"tag": req.Tag, "classification": "Stabil", "percent_change": 0.0})
		return false
	}
	d.result(w, "HEALTH_TREND_RESULT", map[string]any{
		"tag": req.Tag, "classification": result.Classification, "percent_change": result.PercentChange,
	})
	return true
}

func (d *Dispatcher) handleAnalyzeLongterm(req request, w io.Writer) bool {
	series := make([]health.SeriesPoint, len(req.Series))
	for i, p := range req.Series {
		series[i] = health.SeriesPoint{Date: p.Date, Value: p.Value}
	}
	result := d.Health.AnalyzeLongterm(series, req.Metric, req.Weeks)
	d.result(w, "HEALTH_LONGTERM_RESULT", map[string]any{
		"timeline": result.Timeline, "values": result.Values, "baseline": result.Baseline,
		"baseline_stddev": result.BaselineStddev, "moving_average": result.MovingAverage, "trend": result.Trend,
	})
	return true
}

// typeOrName picks the field heatmapEventDTO actually carries a motion
// signal in — history events from the host may label it under "name" or
// under "type" (SPEC_FULL.md §4.6) — preferring Name when both are set.
func typeOrName(e heatmapEventDTO) string {
	if e.Name != "" {
		return e.Name
	}
	return e.Type
}

func (d *Dispatcher) handleAnalyzeHeatmap(req request, w io.Writer) bool {
	history := make(map[string][]health.HistoryEvent, len(req.History))
	for date, events := range req.History {
		converted := make([]health.HistoryEvent, len(events))
		for i, e := range events {
			converted[i] = health.HistoryEvent{TimestampMs: e.Timestamp, TypeOrName: typeOrName(e), Value: fmt.Sprintf("%v", e.Value)}
		}
		history[date] = converted
	}
	buckets := d.Health.AnalyzeHeatmap(history)
	d.result(w, "HEATMAP_RESULT", map[string]any{"hours": buckets})
	return true
}

func (d *Dispatcher) handleCheckRoomSilence(req request, w io.Writer) bool {
	rooms := make(map[string]health.RoomActivity, len(req.SilenceRooms))
	for room, a := range req.SilenceRooms {
		rooms[room] = health.RoomActivity{LastActivityMs: a.LastActivityMs, TotalMinutes: a.TotalMinutes}
	}
	alerts := d.Health.CheckRoomSilence(rooms, time.Now())
	d.result(w, "ROOM_SILENCE_RESULT", map[string]any{"alerts": alerts})
	return true
}

func (d *Dispatcher) handleTrainEnergy(req request, w io.Writer) bool {
	points := make([]energy.TrainingPoint, len(req.Points))
	byRoom := make(map[string][]energy.TrainingPoint)
	for i, p := range req.Points {
		tp := energy.TrainingPoint{TS: p.TS, Room: p.Room, TIn: p.TIn, HasValve: p.Valve != nil}
		if p.Valve != nil {
			tp.Valve = *p.Valve
		}
		points[i] = tp
		byRoom[p.Room] = append(byRoom[p.Room], tp)
	}

	if err := d.Energy.Train(points); err != nil {
		d.logf(w, "TRAIN_ENERGY failed: %v", err)
		d.result(w, "ENERGY_TRAIN_RESULT", map[string]any{"ok": false})
		return false
	}
	d.persist(w, "energy", store.EnergyFile, func() (any, bool) { return d.Energy.ExportSnapshot() })

	pinnTrained := d.trainPINN(req, byRoom, w)

	d.result(w, "ENERGY_TRAIN_RESULT", map[string]any{"ok": true, "pinn_trained": pinnTrained})
	return true
}

// trainPINN derives (t_in, t_out, valve, solar) -> delta_t samples from the
// same per-room time series TRAIN_ENERGY just fit the physics brain on,
// reusing the batch-level t_out/solar_flags fields also used by
// PREDICT_ENERGY — the wire protocol carries one outdoor reading per
// training batch rather than per point.
func (d *Dispatcher) trainPINN(req request, byRoom map[string][]energy.TrainingPoint, w io.Writer) bool {
	if d.PINN == nil {
		return false
	}
	var samples []energy.Sample
	for room, pts := range byRoom {
		if len(pts) < 2 {
			continue
		}
		solar := req.SolarFlags[room]
		for i := 1; i < len(pts); i++ {
			dtH := float64(pts[i].TS-pts[i-1].TS) / 3600000.0
			if dtH <= 0.01 {
				continue
			}
			deltaT := (pts[i].TIn - pts[i-1].TIn) / dtH
			valve := 0.0
			if pts[i].HasValve {
				valve = pts[i].Valve
			}
			samples = append(samples, energy.Sample{
				TIn: pts[i].TIn, TOut: req.TOut, Valve: valve, Solar: solar, DeltaT: deltaT,
			})
		}
	}
	if err := d.PINN.Train(samples); err != nil {
		if err != domain.ErrInsufficientData {
			d.logf(w, "PINN training failed: %v", err)
		}
		return false
	}
	d.persist(w, "pinn", store.PINNFile, func() (any, bool) { return d.PINN.ExportSnapshot() })
	return true
}

func (d *Dispatcher) handlePredictEnergy(req request, w io.Writer) bool {
	now := time.Now()

	forecasts := d.Energy.PredictCooling(req.CurrentTemps, req.TOut, req.TForecast, req.IsSunny)
	d.result(w, "ENERGY_PREDICT_RESULT", map[string]any{"forecasts": forecasts})

	alerts := d.Energy.CheckVentilation(req.CurrentTemps, now)
	for _, alert := range alerts {
		d.result(w, "VENTILATION_ALERT", map[string]any{
			"room": alert.Room, "gradient": alert.Gradient, "drop": alert.Drop, "message": alert.Message,
		})
	}

	warmups := d.Energy.CalculateWarmup(req.CurrentTemps, req.WarmupTargets, req.TOut, req.IsSunny)
	d.result(w, "WARMUP_RESULT", map[string]any{"rooms": warmups})

	if d.PINN != nil && d.PINN.Ready() {
		predictions := make(map[string]float64, len(req.CurrentTemps))
		for room, tIn := range req.CurrentTemps {
			solar := req.IsSunny && req.SolarFlags[room]
			predictions[room] = d.PINN.Predict(tIn, req.TOut, 100.0, solar)
		}
		d.result(w, "PINN_PREDICT_RESULT", map[string]any{"predictions": predictions})
	}

	if len(alerts) > 0 {
		for _, alert := range alerts {
			d.Energy.TrainPenalty(alert.Room, now)
		}
		d.persist(w, "energy", store.EnergyFile, func() (any, bool) { return d.Energy.ExportSnapshot() })
		d.result(w, "RL_PENALTY_UPDATE", map[string]any{"penalties": d.Energy.GetPenalties()})
	}

	return true
}

func (d *Dispatcher) handleOptimizeEnergy(req request, w io.Writer) bool {
	advice := d.Energy.GetOptimizationAdvice(req.CurrentTemps, req.TOut, req.Targets, req.TForecast, time.Now())
	d.result(w, "ENERGY_OPTIMIZE_RESULT", map[string]any{"advice": advice})
	return true
}

func (d *Dispatcher) handleTrainComfort(req request, w io.Writer) bool {
	events := make([]comfort.Event, len(req.Events))
	for i, e := range req.Events {
		events[i] = comfort.Event{TimestampMs: e.Timestamp, ID: e.ID, Name: e.Name}
	}
	patterns := comfort.Train(events, req.DeviceMap)
	d.result(w, "COMFORT_RESULT", map[string]any{"patterns": patterns})
	return true
}
