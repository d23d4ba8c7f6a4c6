package daemon

// Response is the envelope emitted for every result line, serialised as
// `[RESULT] {"type":...,"payload":...}` per spec §6.
type Response struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// request is the union of every field any command payload carries. Decoding
// one flat struct per line is simpler and no less correct than a tagged
// variant per command — unknown/extra fields are ignored either way, and
// required fields are validated per-handler (spec §9's re-architecture
// note on replacing dynamic typing with validated record variants).
type request struct {
	Command string `json:"command"`

	// SET_TOPOLOGY
	Rooms      []string    `json:"rooms"`
	Matrix     [][]float64 `json:"matrix"`
	Monitored  []string    `json:"monitored"`

	// SIMULATE_SIGNAL, TRACK_EVENT
	Room string  `json:"room"`
	Dt   float64 `json:"dt"`

	// TRAIN_SECURITY, TRAIN_BEHAVIOR, ANALYZE_GAIT (Sequences);
	// ANALYZE_SEQUENCE (Sequence)
	Sequences []sequenceDTO `json:"sequences"`
	Sequence  sequenceDTO   `json:"sequence"`

	// SET_LEARNING_MODE
	Active      *bool   `json:"active"`
	DurationMin float64 `json:"duration_min"`
	Label       string  `json:"label"`

	// TRAIN_HEALTH, ANALYZE_HEALTH
	Digests []digestDTO `json:"digests"`
	Digest  digestDTO   `json:"digest"`

	// ANALYZE_TREND / ANALYZE_LONGTERM
	Values []float64      `json:"values"`
	Tag    string         `json:"tag"`
	Series []seriesPointDTO `json:"series"`
	Metric string         `json:"metric"`
	Weeks  int            `json:"weeks"`

	// TRAIN_ENERGY / PREDICT_ENERGY / OPTIMIZE_ENERGY
	Points        []energyPointDTO   `json:"points"`
	CurrentTemps  map[string]float64 `json:"current_temps"`
	TOut          float64            `json:"t_out"`
	TForecast     *float64           `json:"t_forecast"`
	IsSunny       bool               `json:"is_sunny"`
	SolarFlags    map[string]bool    `json:"solar_flags"`
	WarmupTargets map[string]float64 `json:"warmup_targets"`
	Targets       map[string]float64 `json:"targets"`

	// TRAIN_COMFORT
	Events    []comfortEventDTO `json:"events"`
	DeviceMap map[string]string `json:"device_map"`

	// ANALYZE_HEATMAP
	History map[string][]heatmapEventDTO `json:"history"`

	// CHECK_ROOM_SILENCE. Shares the "rooms" key with SET_TOPOLOGY's Rooms;
	// Dispatcher.Handle decodes that key into whichever field the command uses.
	SilenceRooms map[string]roomActivityDTO `json:"rooms"`
}

type sequenceDTO struct {
	Steps []stepDTO `json:"steps"`
}

type stepDTO struct {
	TDelta float64 `json:"t_delta"`
	Loc    string  `json:"loc"`
}

type digestDTO struct {
	ActivityVector []float64 `json:"activityVector"`
	EventCount     int       `json:"eventCount"`
}

type seriesPointDTO struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

type energyPointDTO struct {
	TS    int64    `json:"ts"`
	Room  string   `json:"room"`
	TIn   float64  `json:"t_in"`
	Valve *float64 `json:"valve"`
}

type comfortEventDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Timestamp int64  `json:"timestamp"`
}

type heatmapEventDTO struct {
	Type      string `json:"type"`
	Name      string `json:"name"`
	Value     any    `json:"value"`
	Timestamp int64  `json:"timestamp"`
}

type roomActivityDTO struct {
	LastActivityMs int64   `json:"last_activity_ms"`
	TotalMinutes   float64 `json:"total_minutes"`
}
