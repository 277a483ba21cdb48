// internal/model/core/types.go
package core

import "time"

// Position is a bare WGS84 fix, as embedded in a roster entry.
type Position struct {
	Latitude  float64   `json:"latitude" validate:"min=-90,max=90"`
	Longitude float64   `json:"longitude" validate:"min=-180,max=180"`
	Timestamp time.Time `json:"timestamp"`
}

// VehicleInfo describes the vehicle assigned to a driver
type VehicleInfo struct {
	Make         string `json:"make"`
	Model        string `json:"model"`
	Year         int    `json:"year"`
	LicensePlate string `json:"licensePlate"`
	VIN          string `json:"vin,omitempty"`
}

// DriverStatus is the roster-level activity flag sent by the server.
type DriverStatus string

const (
	DriverStatusActive   DriverStatus = "active"
	DriverStatusInactive DriverStatus = "inactive"
	DriverStatusOffline  DriverStatus = "offline"
)

// Driver is one roster entry. DeviceID is the only identity key.
type Driver struct {
	DeviceID        string       `json:"deviceId" validate:"required"`
	DriverName      string       `json:"driverName"`
	IsActive        bool         `json:"isActive"`
	LastSeen        time.Time    `json:"lastSeen"`
	CurrentLocation *Position    `json:"currentLocation,omitempty"`
	Status          DriverStatus `json:"status,omitempty" validate:"omitempty,oneof=active inactive offline"`
	PhoneNumber     string       `json:"phoneNumber,omitempty"`
	VehicleInfo     *VehicleInfo `json:"vehicleInfo,omitempty"`
	TotalDistance   float64      `json:"totalDistance,omitempty"`
	AverageSpeed    float64      `json:"averageSpeed,omitempty"`
	HoursWorked     float64      `json:"hoursWorked,omitempty"`
}

// LocationSample is a single position report pushed by a tracked device.
// Speed is in m/s and Heading in degrees; both are optional.
type LocationSample struct {
	DeviceID   string    `json:"deviceId,omitempty"`
	DriverName string    `json:"driverName,omitempty"`
	SocketID   string    `json:"socketId,omitempty"`
	Latitude   float64   `json:"latitude" validate:"min=-90,max=90"`
	Longitude  float64   `json:"longitude" validate:"min=-180,max=180"`
	Accuracy   float64   `json:"accuracy" validate:"min=0"`
	Speed      *float64  `json:"speed,omitempty"`
	Heading    *float64  `json:"heading,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// StatusChange is the payload of a driverStatusChange event.
type StatusChange struct {
	DriverID string       `json:"driverId" validate:"required"`
	Status   DriverStatus `json:"status" validate:"required,oneof=active inactive offline"`
}
