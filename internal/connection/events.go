package connection

import (
	"encoding/json"
	"fmt"

	"github.com/fleetlive/tracker/internal/dispatcher"
	"github.com/fleetlive/tracker/internal/model/core"
)

// registerEvents wires every known event name to its subscriber slot.
// Payloads that fail to decode or validate are rejected here and never
// reach a subscriber.
func (m *Manager) registerEvents() {
	m.disp.Register(EventConnect, func(e dispatcher.Event) error {
		if fn := m.handlers().OnConnect; fn != nil {
			fn()
		}
		return nil
	}, dispatcher.Logged())

	m.disp.Register(EventDisconnect, func(e dispatcher.Event) error {
		reason, _ := e.Data.(string)
		if fn := m.handlers().OnDisconnect; fn != nil {
			fn(reason)
		}
		return nil
	}, dispatcher.Logged())

	m.disp.Register(EventConnectError, func(e dispatcher.Event) error {
		err, _ := e.Data.(error)
		if fn := m.handlers().OnConnectionError; fn != nil {
			fn(err)
		}
		return nil
	}, dispatcher.Logged())

	m.disp.Register(EventReconnectAttempt, func(e dispatcher.Event) error {
		attempt, _ := e.Data.(int)
		if fn := m.handlers().OnReconnectAttempt; fn != nil {
			fn(attempt)
		}
		return nil
	}, dispatcher.Logged())

	m.disp.Register(EventServerError, func(e dispatcher.Event) error {
		err := fmt.Errorf("%w: %s", ErrServer, serverErrorMessage(e.Payload))
		m.logger.Warn("Server reported an error", "error", err)
		if fn := m.handlers().OnConnectionError; fn != nil {
			fn(err)
		}
		return nil
	}, dispatcher.Logged())

	m.disp.Register(EventLocationUpdate, func(e dispatcher.Event) error {
		sample, err := decode[core.LocationSample](e)
		if err != nil {
			return err
		}
		if fn := m.handlers().OnLocationUpdate; fn != nil {
			fn(sample)
		}
		return nil
	})

	m.disp.Register(EventDriversUpdate, func(e dispatcher.Event) error {
		drivers, err := decode[[]core.Driver](e)
		if err != nil {
			return err
		}
		if fn := m.handlers().OnRosterUpdate; fn != nil {
			fn(drivers)
		}
		return nil
	}, dispatcher.Logged())

	m.disp.Register(EventAlertUpdate, func(e dispatcher.Event) error {
		alert, err := decode[core.AlertEvent](e)
		if err != nil {
			return err
		}
		if fn := m.handlers().OnAlertUpdate; fn != nil {
			fn(alert)
		}
		return nil
	}, dispatcher.Logged())

	m.disp.Register(EventDriverStatusChange, func(e dispatcher.Event) error {
		change, err := decode[core.StatusChange](e)
		if err != nil {
			return err
		}
		if fn := m.handlers().OnDriverStatusChange; fn != nil {
			fn(change)
		}
		return nil
	}, dispatcher.Logged())
}

// decode unmarshals and validates an event payload.
func decode[T any](e dispatcher.Event) (T, error) {
	var v T
	if len(e.Payload) == 0 {
		return v, fmt.Errorf("%w: %s: empty payload", core.ErrInvalidPayload, e.Name)
	}
	if err := json.Unmarshal(e.Payload, &v); err != nil {
		return v, fmt.Errorf("%w: %s: %v", core.ErrInvalidPayload, e.Name, err)
	}
	if err := core.Validate(v); err != nil {
		return v, fmt.Errorf("%s: %w", e.Name, err)
	}
	return v, nil
}
