package feed

import (
	"fmt"
	"time"

	"github.com/fleetlive/tracker/internal/model/core"
	"github.com/fleetlive/tracker/internal/store"
	"github.com/fleetlive/tracker/internal/util"
)

// RecentActivityLimit is the number of entries in the activity feed.
const RecentActivityLimit = 10

// Activity is one row of the recent activity feed.
type Activity struct {
	ID         string
	DeviceID   string
	DriverName string
	Activity   string
	Timestamp  time.Time
	Age        string
	Location   string
}

// RecentActivity lists the newest history entries that carry a device id.
func RecentActivity(st *store.State, now time.Time) []Activity {
	out := make([]Activity, 0, RecentActivityLimit)
	for _, s := range st.History.Items() {
		if len(out) == RecentActivityLimit {
			break
		}
		if s.DeviceID == "" {
			continue
		}
		ts := s.Timestamp
		if ts.IsZero() {
			ts = now
		}
		out = append(out, Activity{
			ID:         fmt.Sprintf("%s-%d", s.DeviceID, ts.UnixMilli()),
			DeviceID:   s.DeviceID,
			DriverName: DriverName(st, s.DeviceID),
			Activity:   "Updated location",
			Timestamp:  ts,
			Age:        RelativeTime(ts, now),
			Location:   util.FormatCoords(s.Latitude, s.Longitude, 4),
		})
	}
	return out
}

// DriverName resolves a display name from the roster, falling back to the
// tail of the device id.
func DriverName(st *store.State, deviceID string) string {
	if d, ok := st.Driver(deviceID); ok && d.DriverName != "" {
		return d.DriverName
	}
	return "Driver " + util.ShortID(deviceID, 4)
}

// ActiveAlerts returns the unresolved alerts, newest first.
func ActiveAlerts(st *store.State) []core.AlertEvent {
	var out []core.AlertEvent
	for _, a := range st.Alerts.Items() {
		if !a.Resolved {
			out = append(out, a)
		}
	}
	return out
}

// AlertSource names what raised an alert.
func AlertSource(a core.AlertEvent) string {
	if a.DriverID == "" {
		return "System Alert"
	}
	return "Driver " + util.ShortID(a.DriverID, 4)
}

// RelativeTime renders the age of ts as seconds, minutes or hours,
// truncated. Timestamps in the future read as "0s ago".
func RelativeTime(ts, now time.Time) string {
	secs := int64(now.Sub(ts) / time.Second)
	if secs < 0 {
		secs = 0
	}
	switch {
	case secs < 60:
		return fmt.Sprintf("%ds ago", secs)
	case secs < 3600:
		return fmt.Sprintf("%dm ago", secs/60)
	default:
		return fmt.Sprintf("%dh ago", secs/3600)
	}
}
