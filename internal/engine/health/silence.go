package health

import "time"

// RoomActivity is one tracked room's last-seen activity summary.
type RoomActivity struct {
	LastActivityMs int64
	TotalMinutes   float64
}

// SilenceAlert flags a room that has gone quiet for an unusual stretch.
type SilenceAlert struct {
	Room  string
	Level string // YELLOW or RED
	Hours float64
}

// CheckRoomSilence evaluates each tracked room against the YELLOW/RED
// silence windows, restricted to the 08:00-22:00 observation window and
// rooms with enough history to be meaningful (spec §4.6).
func (b *Brain) CheckRoomSilence(rooms map[string]RoomActivity, now time.Time) []SilenceAlert {
	hour := now.Hour()
	if hour < 8 || hour >= 22 {
		return nil
	}

	var alerts []SilenceAlert
	for room, activity := range rooms {
		if activity.TotalMinutes < 10 {
			continue
		}
		hoursSilent := float64(now.UnixMilli()-activity.LastActivityMs) / 3.6e6
		switch {
		case hoursSilent >= 8:
			alerts = append(alerts, SilenceAlert{Room: room, Level: "RED", Hours: hoursSilent})
		case hoursSilent >= 4:
			alerts = append(alerts, SilenceAlert{Room: room, Level: "YELLOW", Hours: hoursSilent})
		}
	}
	return alerts
}
