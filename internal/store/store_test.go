package store

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetlive/tracker/internal/model/core"
)

type recordingLoader struct {
	mu    sync.Mutex
	calls []string
	hours []int
}

func (l *recordingLoader) RequestDriverHistory(deviceID string, hours int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, deviceID)
	l.hours = append(l.hours, hours)
}

func sample(id string, lat, lon float64, ts time.Time) core.LocationSample {
	return core.LocationSample{DeviceID: id, Latitude: lat, Longitude: lon, Accuracy: 5, Timestamp: ts}
}

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func TestNew_InitialState(t *testing.T) {
	s := New()
	st := s.Snapshot()

	assert.Empty(t, st.Drivers)
	assert.Empty(t, st.Locations)
	assert.True(t, st.History.Empty())
	assert.Equal(t, DefaultHistoryLimit, st.History.Limit())
	assert.Equal(t, DefaultAlertLimit, st.Alerts.Limit())
	assert.Equal(t, core.DefaultViewState(), st.View)
	assert.Equal(t, StatusDisconnected, st.ConnectionStatus)
	assert.False(t, st.Connected)
}

func TestApplyRosterUpdate(t *testing.T) {
	s := New()
	in := []core.Driver{
		{DeviceID: "a", IsActive: true},
		{DeviceID: "b"},
		{DeviceID: "c", IsActive: true},
	}
	s.ApplyRosterUpdate(in)
	in[0].DeviceID = "mutated"

	st := s.Snapshot()
	assert.Equal(t, 3, st.TotalDrivers)
	assert.Equal(t, 2, st.ActiveDrivers)
	assert.Equal(t, "a", st.Drivers[0].DeviceID)

	d, ok := st.Driver("b")
	require.True(t, ok)
	assert.False(t, d.IsActive)
}

func TestApplyStatusChange(t *testing.T) {
	s := New()
	s.ApplyRosterUpdate([]core.Driver{{DeviceID: "a", IsActive: true}, {DeviceID: "b"}})
	before := s.Snapshot()

	require.True(t, s.ApplyStatusChange(core.StatusChange{DriverID: "b", Status: core.DriverStatusActive}))
	st := s.Snapshot()
	assert.Equal(t, 2, st.ActiveDrivers)
	d, _ := st.Driver("b")
	assert.True(t, d.IsActive)
	assert.Equal(t, core.DriverStatusActive, d.Status)

	// The earlier snapshot is untouched.
	old, _ := before.Driver("b")
	assert.False(t, old.IsActive)

	assert.False(t, s.ApplyStatusChange(core.StatusChange{DriverID: "zz", Status: core.DriverStatusOffline}))
}

func TestApplyLocationUpdate_UpsertsAndRecordsHistory(t *testing.T) {
	s := New(WithClock(func() time.Time { return t0 }))

	require.True(t, s.ApplyLocationUpdate("a", sample("", 1, 1, t0)))
	require.True(t, s.ApplyLocationUpdate("a", sample("a", 2, 2, t0.Add(time.Second))))
	require.True(t, s.ApplyLocationUpdate("b", sample("b", 3, 3, t0)))

	st := s.Snapshot()
	assert.Len(t, st.Locations, 2)
	loc, ok := st.Location("a")
	require.True(t, ok)
	assert.Equal(t, 2.0, loc.Latitude)
	assert.Equal(t, "a", loc.DeviceID)

	assert.Equal(t, 3, st.History.Len())
	assert.Equal(t, "b", st.History.At(0).DeviceID)
	assert.Equal(t, t0, st.LastUpdate)
}

func TestApplyLocationUpdate_DiscardsMissingDeviceID(t *testing.T) {
	s := New()
	before := s.Snapshot()

	assert.False(t, s.ApplyLocationUpdate("", sample("", 1, 1, t0)))

	st := s.Snapshot()
	assert.Same(t, before, st)
	assert.Empty(t, st.Locations)
	assert.True(t, st.History.Empty())
}

func TestApplyLocationUpdate_HistoryBounded(t *testing.T) {
	s := New()
	for i := 0; i < 60; i++ {
		s.ApplyLocationUpdate("a", sample("a", float64(i), 0, t0.Add(time.Duration(i)*time.Second)))
	}

	st := s.Snapshot()
	require.Equal(t, 50, st.History.Len())
	assert.Equal(t, 59.0, st.History.At(0).Latitude)
	assert.Equal(t, 10.0, st.History.At(49).Latitude)
}

func TestApplyLocationUpdate_LastWriteWinsByDefault(t *testing.T) {
	s := New()
	s.ApplyLocationUpdate("a", sample("a", 1, 1, t0.Add(time.Minute)))
	s.ApplyLocationUpdate("a", sample("a", 2, 2, t0))

	loc, _ := s.Snapshot().Location("a")
	assert.Equal(t, 2.0, loc.Latitude)
}

func TestApplyLocationUpdate_RejectStaleSamples(t *testing.T) {
	s := New(RejectStaleSamples())
	require.True(t, s.ApplyLocationUpdate("a", sample("a", 1, 1, t0.Add(time.Minute))))
	assert.False(t, s.ApplyLocationUpdate("a", sample("a", 2, 2, t0)))

	st := s.Snapshot()
	loc, _ := st.Location("a")
	assert.Equal(t, 1.0, loc.Latitude)
	assert.Equal(t, 1, st.History.Len())
}

func TestApplyAlert_BoundedNoDedup(t *testing.T) {
	s := New()
	for i := 0; i < 12; i++ {
		s.ApplyAlert(core.AlertEvent{ID: "same", Title: fmt.Sprintf("alert %d", i)})
	}

	st := s.Snapshot()
	require.Equal(t, 10, st.Alerts.Len())
	assert.Equal(t, "alert 11", st.Alerts.At(0).Title)
	assert.Equal(t, "alert 2", st.Alerts.At(9).Title)
}

func TestRemoveAlert(t *testing.T) {
	s := New()
	s.ApplyAlert(core.AlertEvent{ID: "x"})
	s.ApplyAlert(core.AlertEvent{ID: "y"})
	s.ApplyAlert(core.AlertEvent{ID: "x"})

	require.True(t, s.RemoveAlert("x"))
	st := s.Snapshot()
	require.Equal(t, 1, st.Alerts.Len())
	assert.Equal(t, "y", st.Alerts.At(0).ID)

	assert.False(t, s.RemoveAlert("missing"))
}

func TestSelectDriver(t *testing.T) {
	loader := &recordingLoader{}
	s := New(WithHistoryLoader(loader, 6))
	s.ApplyLocationUpdate("a", sample("a", 1, 1, t0))
	require.Equal(t, 1, s.Snapshot().History.Len())

	s.SelectDriver("a")
	st := s.Snapshot()
	assert.Equal(t, core.ViewSingle, st.View.ViewMode)
	assert.Equal(t, "a", st.View.SelectedDriverID)
	assert.True(t, st.History.Empty())

	s.ApplyLocationUpdate("a", sample("a", 2, 2, t0))
	s.SelectDriver("")
	st = s.Snapshot()
	assert.Equal(t, core.ViewAll, st.View.ViewMode)
	assert.Empty(t, st.View.SelectedDriverID)
	assert.True(t, st.History.Empty())

	loader.mu.Lock()
	defer loader.mu.Unlock()
	assert.Equal(t, []string{"a"}, loader.calls)
	assert.Equal(t, []int{6}, loader.hours)
}

func TestReplaceHistory(t *testing.T) {
	s := New(WithHistoryLimit(3))

	samples := []core.LocationSample{
		sample("a", 1, 0, t0),
		sample("a", 3, 0, t0.Add(2*time.Minute)),
		sample("", 2, 0, t0.Add(time.Minute)),
		sample("b", 9, 0, t0.Add(time.Hour)),
		sample("a", 0, 0, t0.Add(-time.Minute)),
	}

	// Not selected: ignored.
	assert.False(t, s.ReplaceHistory("a", samples))

	s.SelectDriver("a")
	require.True(t, s.ReplaceHistory("a", samples))

	h := s.Snapshot().History
	require.Equal(t, 3, h.Len())
	assert.Equal(t, 3.0, h.At(0).Latitude)
	assert.Equal(t, 2.0, h.At(1).Latitude)
	assert.Equal(t, 1.0, h.At(2).Latitude)
	assert.Equal(t, "a", h.At(1).DeviceID)
}

func TestToggles(t *testing.T) {
	s := New()

	s.ToggleAccuracyCircle()
	assert.False(t, s.Snapshot().View.ShowAccuracyCircle)
	s.ToggleAccuracyCircle()
	assert.True(t, s.Snapshot().View.ShowAccuracyCircle)

	s.ToggleSidebar()
	assert.True(t, s.Snapshot().View.SidebarCollapsed)
}

func TestConnectionStatus(t *testing.T) {
	s := New()
	s.SetConnectionStatus(StatusConnected, true)
	s.SetReconnectAttempts(2)

	st := s.Snapshot()
	assert.Equal(t, StatusConnected, st.ConnectionStatus)
	assert.True(t, st.Connected)
	assert.Equal(t, 2, st.ReconnectAttempts)
}

func TestClearHistory(t *testing.T) {
	s := New()
	s.ApplyLocationUpdate("a", sample("a", 1, 1, t0))
	s.ClearHistory()

	st := s.Snapshot()
	assert.True(t, st.History.Empty())
	assert.Len(t, st.Locations, 1)
}

func TestLiveLocationsSorted(t *testing.T) {
	s := New()
	s.ApplyLocationUpdate("c", sample("c", 0, 0, t0))
	s.ApplyLocationUpdate("a", sample("a", 0, 0, t0))
	s.ApplyLocationUpdate("b", sample("b", 0, 0, t0))

	var ids []string
	for _, l := range s.Snapshot().LiveLocations() {
		ids = append(ids, l.DeviceID)
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
}

func TestSnapshotsAreConsistentUnderConcurrentWrites(t *testing.T) {
	s := New()

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				id := fmt.Sprintf("dev-%d", w)
				s.ApplyLocationUpdate(id, sample(id, float64(i), 0, t0))
			}
		}(w)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 500; i++ {
			st := s.Snapshot()
			// Every history entry's device must already be in the map.
			for _, h := range st.History.Items() {
				if _, ok := st.Locations[h.DeviceID]; !ok {
					t.Errorf("history entry %s missing from locations", h.DeviceID)
					return
				}
			}
			if st.History.Len() > 50 {
				t.Errorf("history length %d exceeds limit", st.History.Len())
				return
			}
		}
	}()

	wg.Wait()
	<-done

	st := s.Snapshot()
	assert.Len(t, st.Locations, 4)
	assert.Equal(t, 50, st.History.Len())
}
