package store

import (
	"log/slog"
	"maps"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fleetlive/tracker/internal/model/core"
	"github.com/fleetlive/tracker/internal/queue"
)

const (
	DefaultHistoryLimit = 50
	DefaultAlertLimit   = 10
	DefaultHistoryHours = 24
)

// HistoryLoader fetches a device's recent samples when it is selected.
type HistoryLoader interface {
	RequestDriverHistory(deviceID string, hours int)
}

// Option configures a Store.
type Option func(*Store)

// WithHistoryLimit caps the selected driver's trail.
func WithHistoryLimit(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.historyLimit = n
		}
	}
}

// WithAlertLimit caps the alert list.
func WithAlertLimit(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.alertLimit = n
		}
	}
}

// WithHistoryLoader sets the collaborator asked for history on selection.
func WithHistoryLoader(l HistoryLoader, hours int) Option {
	return func(s *Store) {
		s.loader = l
		if hours > 0 {
			s.historyHours = hours
		}
	}
}

// WithClock overrides time.Now for LastUpdate stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithLogger sets the store's logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// RejectStaleSamples drops a location update older than the device's
// current sample instead of overwriting it.
func RejectStaleSamples() Option {
	return func(s *Store) {
		s.rejectStale = true
	}
}

// Store holds the dashboard state. Writers are serialized and each write
// publishes a fresh snapshot; readers never block and never see a partial
// update.
type Store struct {
	mu    sync.Mutex
	state atomic.Pointer[State]

	historyLimit int
	alertLimit   int
	historyHours int
	rejectStale  bool

	loader HistoryLoader
	now    func() time.Time
	logger *slog.Logger
}

// New creates a Store with an empty initial state.
func New(opts ...Option) *Store {
	s := &Store{
		historyLimit: DefaultHistoryLimit,
		alertLimit:   DefaultAlertLimit,
		historyHours: DefaultHistoryHours,
		now:          time.Now,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.state.Store(newState(s.historyLimit, s.alertLimit))
	return s
}

// SetHistoryLoader replaces the history collaborator after construction.
func (s *Store) SetHistoryLoader(l HistoryLoader) {
	s.mu.Lock()
	s.loader = l
	s.mu.Unlock()
}

// Snapshot returns the current state.
func (s *Store) Snapshot() *State {
	return s.state.Load()
}

// update applies fn to a copy of the current state and publishes it when
// fn reports a change.
func (s *Store) update(fn func(next *State) bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := *s.state.Load()
	if !fn(&next) {
		return false
	}
	s.state.Store(&next)
	return true
}

// ApplyRosterUpdate replaces the roster and recomputes the counts.
func (s *Store) ApplyRosterUpdate(drivers []core.Driver) {
	roster := slices.Clone(drivers)
	s.update(func(next *State) bool {
		next.Drivers = roster
		next.TotalDrivers = len(roster)
		next.ActiveDrivers = countActive(roster)
		return true
	})
	s.logger.Debug("Roster updated", "total", len(roster))
}

// ApplyStatusChange patches one roster entry. Unknown drivers are ignored.
func (s *Store) ApplyStatusChange(change core.StatusChange) bool {
	return s.update(func(next *State) bool {
		i := slices.IndexFunc(next.Drivers, func(d core.Driver) bool { return d.DeviceID == change.DriverID })
		if i < 0 {
			return false
		}
		roster := slices.Clone(next.Drivers)
		roster[i].Status = change.Status
		roster[i].IsActive = change.Status == core.DriverStatusActive
		next.Drivers = roster
		next.ActiveDrivers = countActive(roster)
		return true
	})
}

// ApplyLocationUpdate records a sample as the device's latest position and
// prepends it to the history in the same step. A sample without a device
// id is discarded and false is returned.
func (s *Store) ApplyLocationUpdate(deviceID string, sample core.LocationSample) bool {
	if deviceID == "" {
		s.logger.Debug("Discarding location sample without device id")
		return false
	}
	sample.DeviceID = deviceID

	return s.update(func(next *State) bool {
		if s.rejectStale {
			if prev, ok := next.Locations[deviceID]; ok && sample.Timestamp.Before(prev.Timestamp) {
				s.logger.Debug("Discarding stale location sample", "deviceId", deviceID,
					"sample", sample.Timestamp, "current", prev.Timestamp)
				return false
			}
		}
		locations := maps.Clone(next.Locations)
		if locations == nil {
			locations = map[string]core.LocationSample{}
		}
		locations[deviceID] = sample
		next.Locations = locations
		next.History = next.History.Push(sample)
		next.LastUpdate = s.now()
		return true
	})
}

// ApplyAlert prepends an alert, evicting the oldest past the limit.
// Alerts are not deduplicated by id.
func (s *Store) ApplyAlert(alert core.AlertEvent) {
	s.update(func(next *State) bool {
		next.Alerts = next.Alerts.Push(alert)
		return true
	})
}

// RemoveAlert drops every alert with the given id.
func (s *Store) RemoveAlert(id string) bool {
	return s.update(func(next *State) bool {
		kept := next.Alerts.Filter(func(a core.AlertEvent) bool { return a.ID != id })
		if kept.Len() == next.Alerts.Len() {
			return false
		}
		next.Alerts = kept
		return true
	})
}

// ReplaceHistory installs fetched samples as the trail of the selected
// driver. Samples for a driver that is no longer selected are ignored.
func (s *Store) ReplaceHistory(deviceID string, samples []core.LocationSample) bool {
	history := make([]core.LocationSample, 0, len(samples))
	for _, smp := range samples {
		if smp.DeviceID != "" && smp.DeviceID != deviceID {
			continue
		}
		smp.DeviceID = deviceID
		history = append(history, smp)
	}
	slices.SortStableFunc(history, func(a, b core.LocationSample) int {
		return b.Timestamp.Compare(a.Timestamp)
	})

	return s.update(func(next *State) bool {
		if next.View.ViewMode != core.ViewSingle || next.View.SelectedDriverID != deviceID {
			return false
		}
		next.History = queue.FromSlice(history, s.historyLimit)
		return true
	})
}

// SelectDriver focuses a driver, or returns to the fleet view for an empty
// id. The history is cleared in the same step and, for a new selection,
// the history loader is asked for that driver's samples.
func (s *Store) SelectDriver(deviceID string) {
	s.update(func(next *State) bool {
		view := next.View
		if deviceID == "" {
			view.ViewMode = core.ViewAll
		} else {
			view.ViewMode = core.ViewSingle
		}
		view.SelectedDriverID = deviceID
		next.View = view
		next.History = next.History.Clear()
		return true
	})

	s.mu.Lock()
	loader, hours := s.loader, s.historyHours
	s.mu.Unlock()

	if deviceID != "" && loader != nil {
		loader.RequestDriverHistory(deviceID, hours)
	}
}

// ClearHistory empties the trail.
func (s *Store) ClearHistory() {
	s.update(func(next *State) bool {
		next.History = next.History.Clear()
		return true
	})
}

// ToggleAccuracyCircle flips the accuracy circle display.
func (s *Store) ToggleAccuracyCircle() {
	s.update(func(next *State) bool {
		next.View.ShowAccuracyCircle = !next.View.ShowAccuracyCircle
		return true
	})
}

// ToggleSidebar flips the sidebar.
func (s *Store) ToggleSidebar() {
	s.update(func(next *State) bool {
		next.View.SidebarCollapsed = !next.View.SidebarCollapsed
		return true
	})
}

// SetConnectionStatus records the indicator text and connected flag.
func (s *Store) SetConnectionStatus(status string, connected bool) {
	s.update(func(next *State) bool {
		next.ConnectionStatus = status
		next.Connected = connected
		return true
	})
}

// SetReconnectAttempts records the current reconnection attempt.
func (s *Store) SetReconnectAttempts(n int) {
	s.update(func(next *State) bool {
		next.ReconnectAttempts = n
		return true
	})
}
