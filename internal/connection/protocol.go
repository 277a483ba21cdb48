package connection

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Inbound events pushed by the tracking server.
const (
	EventLocationUpdate     = "locationUpdate"
	EventDriversUpdate      = "driversUpdate"
	EventAlertUpdate        = "alertUpdate"
	EventDriverStatusChange = "driverStatusChange"
	EventServerError        = "error"
)

// Lifecycle events produced by the manager itself.
const (
	EventConnect          = "connect"
	EventDisconnect       = "disconnect"
	EventConnectError     = "connect_error"
	EventReconnectAttempt = "reconnect_attempt"
)

// Outbound requests.
const (
	EventRequestDrivers       = "requestDrivers"
	EventRequestDriverHistory = "requestDriverHistory"
)

// DefaultHistoryHours is the lookback used when a history request passes
// a non-positive window.
const DefaultHistoryHours = 24

// Envelope wraps every frame exchanged on the channel.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// HistoryRequest is the payload of requestDriverHistory.
type HistoryRequest struct {
	DeviceID string `json:"deviceId"`
	Hours    int    `json:"hours"`
}

// marshalEnvelope builds a JSON-encoded Envelope from an event name and payload.
func marshalEnvelope(event string, payload any) ([]byte, error) {
	env := Envelope{Type: event}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal %s payload: %w", event, err)
		}
		env.Payload = raw
	}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", event, err)
	}
	return data, nil
}

// httpToWS converts an HTTP(S) URL to a WebSocket URL.
func httpToWS(httpURL string) string {
	s := strings.TrimRight(httpURL, "/")
	s = strings.Replace(s, "https://", "wss://", 1)
	s = strings.Replace(s, "http://", "ws://", 1)
	return s
}

// serverErrorMessage extracts a readable message from an error event payload,
// which may be a bare string or an object with a message field.
func serverErrorMessage(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Message != "" {
		return obj.Message
	}
	return string(raw)
}
