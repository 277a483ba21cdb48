package influx

import (
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementDashboard = "fleet_dashboard"
	MeasurementDriver    = "fleet_driver"
)

// DashboardSample is one periodic reading of the dashboard.
type DashboardSample struct {
	Time              time.Time
	ConnectionStatus  string
	Connected         bool
	ReconnectAttempts int
	TotalDrivers      int
	ActiveDrivers     int
	LiveLocations     int
	HistoryLength     int
	ActiveAlerts      int
	ViewMode          string
	SelectedDriverID  string
}

// NewDashboardPoint converts a sample into a point.
func NewDashboardPoint(s DashboardSample) *influxdb2_write.Point {
	point := influxdb2_write.NewPointWithMeasurement(MeasurementDashboard).
		AddTag("viewMode", s.ViewMode).
		AddTag("status", s.ConnectionStatus).
		AddField("connected", s.Connected).
		AddField("reconnectAttempts", s.ReconnectAttempts).
		AddField("totalDrivers", s.TotalDrivers).
		AddField("activeDrivers", s.ActiveDrivers).
		AddField("liveLocations", s.LiveLocations).
		AddField("historyLength", s.HistoryLength).
		AddField("activeAlerts", s.ActiveAlerts).
		SetTime(s.Time)
	if s.SelectedDriverID != "" {
		point.AddTag("selectedDriver", s.SelectedDriverID)
	}
	return point
}

// DriverSample is one driver's position at sampling time.
type DriverSample struct {
	Time      time.Time
	DeviceID  string
	Name      string
	Latitude  float64
	Longitude float64
	Accuracy  float64
	Speed     *float64
}

// NewDriverPoint converts a driver reading into a point.
func NewDriverPoint(s DriverSample) *influxdb2_write.Point {
	point := influxdb2_write.NewPointWithMeasurement(MeasurementDriver).
		AddTag("deviceId", s.DeviceID).
		AddTag("driver", s.Name).
		AddField("latitude", s.Latitude).
		AddField("longitude", s.Longitude).
		AddField("accuracy", s.Accuracy).
		SetTime(s.Time)
	if s.Speed != nil {
		point.AddField("speed", *s.Speed)
	}
	return point
}
