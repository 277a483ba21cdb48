package store

import (
	"sort"
	"time"

	"github.com/fleetlive/tracker/internal/model/core"
	"github.com/fleetlive/tracker/internal/queue"
)

// Connection status strings shown by the dashboard indicator.
const (
	StatusDisconnected    = "Disconnected"
	StatusConnected       = "Connected"
	StatusConnectionError = "Connection Error"
	StatusFailedToConnect = "Failed to Connect"
)

// State is one immutable snapshot of the dashboard. Values returned by
// Store.Snapshot must be treated as read-only; the store never modifies a
// snapshot after publishing it.
type State struct {
	Drivers       []core.Driver
	TotalDrivers  int
	ActiveDrivers int

	Locations map[string]core.LocationSample
	History   queue.Bounded[core.LocationSample]
	Alerts    queue.Bounded[core.AlertEvent]

	View core.ViewState

	ConnectionStatus  string
	Connected         bool
	ReconnectAttempts int

	LastUpdate time.Time
}

func newState(historyLimit, alertLimit int) *State {
	return &State{
		Locations:        map[string]core.LocationSample{},
		History:          queue.New[core.LocationSample](historyLimit),
		Alerts:           queue.New[core.AlertEvent](alertLimit),
		View:             core.DefaultViewState(),
		ConnectionStatus: StatusDisconnected,
	}
}

// Location returns the latest sample for a device.
func (s *State) Location(deviceID string) (core.LocationSample, bool) {
	loc, ok := s.Locations[deviceID]
	return loc, ok
}

// Driver returns the roster entry for a device.
func (s *State) Driver(deviceID string) (core.Driver, bool) {
	for _, d := range s.Drivers {
		if d.DeviceID == deviceID {
			return d, true
		}
	}
	return core.Driver{}, false
}

// LiveLocations returns every latest sample ordered by device id.
func (s *State) LiveLocations() []core.LocationSample {
	out := make([]core.LocationSample, 0, len(s.Locations))
	for _, loc := range s.Locations {
		out = append(out, loc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DeviceID < out[j].DeviceID })
	return out
}

// SelectedLocation returns the selected driver's latest sample in single mode.
func (s *State) SelectedLocation() (core.LocationSample, bool) {
	if s.View.ViewMode != core.ViewSingle || s.View.SelectedDriverID == "" {
		return core.LocationSample{}, false
	}
	return s.Location(s.View.SelectedDriverID)
}

func countActive(drivers []core.Driver) int {
	n := 0
	for _, d := range drivers {
		if d.IsActive {
			n++
		}
	}
	return n
}
