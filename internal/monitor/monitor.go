package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/fleetlive/tracker/internal/feed"
	"github.com/fleetlive/tracker/internal/geo"
	"github.com/fleetlive/tracker/internal/influx"
	"github.com/fleetlive/tracker/internal/model/core"
	"github.com/fleetlive/tracker/internal/store"
	"github.com/fleetlive/tracker/internal/util"
)

// DefaultInterval is how often a summary is taken when none is configured.
const DefaultInterval = 5 * time.Second

// Source provides dashboard snapshots.
type Source interface {
	Snapshot() *store.State
}

// ConnectionReporter exposes the live channel state.
type ConnectionReporter interface {
	State() core.ConnectionState
	ConnectionID() string
}

// PointWriter accepts metric points.
type PointWriter interface {
	WritePoint(point *influxdb2_write.Point) error
}

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	Source     Source
	Connection ConnectionReporter
	Metrics    PointWriter
	Logger     *slog.Logger
	Interval   time.Duration
	// StatusFile, when set, is rewritten with the latest summary as JSON.
	StatusFile string
	Now        func() time.Time
}

// Summary is the derived view of one snapshot.
type Summary struct {
	Time              time.Time       `json:"time"`
	ConnectionStatus  string          `json:"connectionStatus"`
	Connected         bool            `json:"connected"`
	ConnectionState   string          `json:"connectionState,omitempty"`
	ConnectionID      string          `json:"connectionId,omitempty"`
	ReconnectAttempts int             `json:"reconnectAttempts"`
	TotalDrivers      int             `json:"totalDrivers"`
	ActiveDrivers     int             `json:"activeDrivers"`
	ViewMode          core.ViewMode   `json:"viewMode"`
	SelectedDriverID  string          `json:"selectedDriverId,omitempty"`
	Viewport          geo.Viewport    `json:"viewport"`
	Markers           []MarkerSummary `json:"markers"`
	TrailLength       int             `json:"trailLength"`
	ActiveAlerts      []AlertSummary  `json:"activeAlerts"`
	RecentActivity    []feed.Activity `json:"recentActivity"`
	LastUpdate        time.Time       `json:"lastUpdate"`
	LiveLocations     int             `json:"liveLocations"`
	HistoryLength     int             `json:"historyLength"`
}

// MarkerSummary is one map marker as shown to the operator.
type MarkerSummary struct {
	DeviceID string  `json:"deviceId"`
	Driver   string  `json:"driver"`
	Color    string  `json:"color"`
	Position string  `json:"position"`
	Speed    string  `json:"speed"`
	Accuracy float64 `json:"accuracy"`
	sample   core.LocationSample
}

// AlertSummary is one unresolved alert.
type AlertSummary struct {
	ID       string             `json:"id"`
	Title    string             `json:"title"`
	Severity core.AlertSeverity `json:"severity"`
	Source   string             `json:"source"`
	Age      string             `json:"age"`
}

// Summarize derives the dashboard summary from a snapshot.
func Summarize(st *store.State, now time.Time) Summary {
	sum := Summary{
		Time:              now,
		ConnectionStatus:  st.ConnectionStatus,
		Connected:         st.Connected,
		ReconnectAttempts: st.ReconnectAttempts,
		TotalDrivers:      st.TotalDrivers,
		ActiveDrivers:     st.ActiveDrivers,
		ViewMode:          st.View.ViewMode,
		SelectedDriverID:  st.View.SelectedDriverID,
		Viewport:          geo.ViewportFor(st),
		RecentActivity:    feed.RecentActivity(st, now),
		LastUpdate:        st.LastUpdate,
		LiveLocations:     len(st.Locations),
		HistoryLength:     st.History.Len(),
	}

	for _, m := range geo.Markers(st) {
		sum.Markers = append(sum.Markers, MarkerSummary{
			DeviceID: m.DeviceID,
			Driver:   m.DriverName,
			Color:    m.Color,
			Position: util.FormatCoords(m.Position.Latitude, m.Position.Longitude, 6),
			Speed:    util.FormatSpeed(m.Sample.Speed),
			Accuracy: m.AccuracyRadius,
			sample:   m.Sample,
		})
	}

	if st.View.ViewMode == core.ViewSingle {
		if trail, ok := geo.Trail(st.History); ok {
			sum.TrailLength = trail.Coordinates().Length()
		}
	}

	for _, a := range feed.ActiveAlerts(st) {
		ts := a.Timestamp
		if ts.IsZero() {
			ts = now
		}
		sum.ActiveAlerts = append(sum.ActiveAlerts, AlertSummary{
			ID:       a.ID,
			Title:    a.Title,
			Severity: a.Severity,
			Source:   feed.AlertSource(a),
			Age:      feed.RelativeTime(ts, now),
		})
	}

	return sum
}

// Points converts a summary into metric points.
func (s Summary) Points() []*influxdb2_write.Point {
	points := []*influxdb2_write.Point{
		influx.NewDashboardPoint(influx.DashboardSample{
			Time:              s.Time,
			ConnectionStatus:  s.ConnectionStatus,
			Connected:         s.Connected,
			ReconnectAttempts: s.ReconnectAttempts,
			TotalDrivers:      s.TotalDrivers,
			ActiveDrivers:     s.ActiveDrivers,
			LiveLocations:     s.LiveLocations,
			HistoryLength:     s.HistoryLength,
			ActiveAlerts:      len(s.ActiveAlerts),
			ViewMode:          string(s.ViewMode),
			SelectedDriverID:  s.SelectedDriverID,
		}),
	}
	for _, m := range s.Markers {
		points = append(points, influx.NewDriverPoint(influx.DriverSample{
			Time:      s.Time,
			DeviceID:  m.DeviceID,
			Name:      m.Driver,
			Latitude:  m.sample.Latitude,
			Longitude: m.sample.Longitude,
			Accuracy:  m.sample.Accuracy,
			Speed:     m.sample.Speed,
		}))
	}
	return points
}

// Service periodically summarizes the dashboard
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
	done      chan struct{}
	last      Summary
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Interval <= 0 {
		deps.Interval = DefaultInterval
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Service{deps: deps}
}

// IsRunning returns whether the monitor loop is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Last returns the most recent summary.
func (s *Service) Last() Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

// Collect takes one summary, logs it and forwards it to the metrics sink
// and the status file.
func (s *Service) Collect() Summary {
	sum := Summarize(s.deps.Source.Snapshot(), s.deps.Now())
	if c := s.deps.Connection; c != nil {
		sum.ConnectionState = c.State().String()
		sum.ConnectionID = c.ConnectionID()
	}

	s.mu.Lock()
	s.last = sum
	s.mu.Unlock()

	logger := s.deps.Logger
	logger.Debug("Dashboard summary",
		"status", sum.ConnectionStatus,
		"state", sum.ConnectionState,
		"activeDrivers", sum.ActiveDrivers,
		"totalDrivers", sum.TotalDrivers,
		"markers", len(sum.Markers),
		"alerts", len(sum.ActiveAlerts),
		"viewMode", sum.ViewMode)

	if s.deps.Metrics != nil {
		for _, p := range sum.Points() {
			if err := s.deps.Metrics.WritePoint(p); err != nil {
				logger.Error("Error writing dashboard metrics", "error", err)
				break
			}
		}
	}

	if s.deps.StatusFile != "" {
		if err := writeStatusFile(s.deps.StatusFile, sum); err != nil {
			logger.Error("Error writing status file", "error", err)
		}
	}
	return sum
}

func writeStatusFile(path string, sum Summary) error {
	data, err := json.MarshalIndent(sum, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding summary: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}

// Start starts the monitor goroutine. It stops on Stop or when ctx ends.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stopChan, s.done
	s.mu.Unlock()

	go func() {
		defer close(done)
		defer func() {
			s.mu.Lock()
			if s.done == done {
				s.isRunning = false
			}
			s.mu.Unlock()
		}()

		s.deps.Logger.Debug("Starting dashboard monitor", "interval", s.deps.Interval)

		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Collect()
			}
		}
	}()

	return nil
}

// Stop stops the monitor and waits for the loop to exit.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	close(s.stopChan)
	done := s.done
	s.isRunning = false
	s.mu.Unlock()
	<-done
}
