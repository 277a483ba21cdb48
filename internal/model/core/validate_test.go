package core

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_LocationSample(t *testing.T) {
	ok := &LocationSample{DeviceID: "dev-1", Latitude: 40.7, Longitude: -74.0, Accuracy: 5}
	require.NoError(t, Validate(ok))

	// A missing device id is not a validation failure; the store discards it.
	noID := &LocationSample{Latitude: 1, Longitude: 1}
	require.NoError(t, Validate(noID))

	bad := &LocationSample{DeviceID: "dev-1", Latitude: 91, Longitude: 0}
	err := Validate(bad)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidPayload)

	negAccuracy := &LocationSample{DeviceID: "dev-1", Accuracy: -1}
	assert.ErrorIs(t, Validate(negAccuracy), ErrInvalidPayload)
}

func TestValidate_Alert(t *testing.T) {
	a := &AlertEvent{ID: "a1", Type: AlertSpeed, Severity: SeverityHigh, Timestamp: time.Now()}
	require.NoError(t, Validate(a))

	a.Type = "weather"
	assert.ErrorIs(t, Validate(a), ErrInvalidPayload)

	a.Type = AlertGeofence
	a.Severity = "urgent"
	assert.ErrorIs(t, Validate(a), ErrInvalidPayload)

	a.Severity = SeverityLow
	a.Location = &AlertLocation{Latitude: 0, Longitude: 200}
	assert.ErrorIs(t, Validate(a), ErrInvalidPayload)
}

func TestValidate_Roster(t *testing.T) {
	drivers := []Driver{
		{DeviceID: "a", Status: DriverStatusActive},
		{DeviceID: "b"},
	}
	require.NoError(t, Validate(drivers))

	drivers = append(drivers, Driver{DriverName: "no id"})
	err := Validate(drivers)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "driver 2")
}

func TestValidate_StatusChange(t *testing.T) {
	require.NoError(t, Validate(&StatusChange{DriverID: "a", Status: DriverStatusOffline}))
	assert.ErrorIs(t, Validate(&StatusChange{DriverID: "a", Status: "parked"}), ErrInvalidPayload)
	assert.ErrorIs(t, Validate(&StatusChange{Status: DriverStatusActive}), ErrInvalidPayload)
}

func TestLocationSample_DecodesServerPayload(t *testing.T) {
	raw := `{"deviceId":"abc123","driverName":"Ana","latitude":40.1,"longitude":-73.9,` +
		`"accuracy":12.5,"speed":8.3,"timestamp":"2024-05-01T10:00:00Z"}`

	var s LocationSample
	require.NoError(t, json.Unmarshal([]byte(raw), &s))

	assert.Equal(t, "abc123", s.DeviceID)
	assert.Equal(t, 12.5, s.Accuracy)
	require.NotNil(t, s.Speed)
	assert.Equal(t, 8.3, *s.Speed)
	assert.Nil(t, s.Heading)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), s.Timestamp)
}

func TestConnectionState_String(t *testing.T) {
	assert.Equal(t, "disconnected", Disconnected.String())
	assert.Equal(t, "connecting", Connecting.String())
	assert.Equal(t, "connected", Connected.String())
	assert.Equal(t, "error", Error.String())
	assert.Equal(t, "unknown", ConnectionState(42).String())
}

func TestDefaultViewState(t *testing.T) {
	v := DefaultViewState()
	assert.Equal(t, ViewAll, v.ViewMode)
	assert.True(t, v.ShowAccuracyCircle)
	assert.False(t, v.SidebarCollapsed)
	assert.Empty(t, v.SelectedDriverID)
}
