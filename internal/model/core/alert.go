package core

import "time"

// AlertType classifies an alert.
type AlertType string

const (
	AlertSpeed       AlertType = "speed"
	AlertOffline     AlertType = "offline"
	AlertGeofence    AlertType = "geofence"
	AlertMaintenance AlertType = "maintenance"
	AlertEmergency   AlertType = "emergency"
)

// AlertSeverity ranks an alert.
type AlertSeverity string

const (
	SeverityLow      AlertSeverity = "low"
	SeverityMedium   AlertSeverity = "medium"
	SeverityHigh     AlertSeverity = "high"
	SeverityCritical AlertSeverity = "critical"
)

// AlertLocation is where an alert was raised, if known.
type AlertLocation struct {
	Latitude  float64 `json:"latitude" validate:"min=-90,max=90"`
	Longitude float64 `json:"longitude" validate:"min=-180,max=180"`
}

// AlertEvent is a single alert pushed over the channel.
// IDs are not guaranteed unique across pushes.
type AlertEvent struct {
	ID        string         `json:"id" validate:"required"`
	Type      AlertType      `json:"type" validate:"required,oneof=speed offline geofence maintenance emergency"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Severity  AlertSeverity  `json:"severity" validate:"required,oneof=low medium high critical"`
	Timestamp time.Time      `json:"timestamp"`
	DriverID  string         `json:"driverId,omitempty"`
	Resolved  bool           `json:"resolved"`
	Location  *AlertLocation `json:"location,omitempty"`
}
