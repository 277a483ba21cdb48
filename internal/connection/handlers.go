package connection

import (
	"github.com/fleetlive/tracker/internal/model/core"
)

// Handlers is the subscriber table. Each slot holds at most one callback;
// nil slots are skipped.
type Handlers struct {
	OnConnect            func()
	OnDisconnect         func(reason string)
	OnConnectionError    func(err error)
	OnReconnectAttempt   func(attempt int)
	OnLocationUpdate     func(sample core.LocationSample)
	OnRosterUpdate       func(drivers []core.Driver)
	OnAlertUpdate        func(alert core.AlertEvent)
	OnDriverStatusChange func(change core.StatusChange)
}

func (m *Manager) handlers() Handlers {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.h
}

func (m *Manager) setHandler(set func(h *Handlers)) {
	m.mu.Lock()
	set(&m.h)
	m.mu.Unlock()
}

// OnConnect replaces the connect subscriber.
func (m *Manager) OnConnect(fn func()) {
	m.setHandler(func(h *Handlers) { h.OnConnect = fn })
}

// OnDisconnect replaces the disconnect subscriber.
func (m *Manager) OnDisconnect(fn func(reason string)) {
	m.setHandler(func(h *Handlers) { h.OnDisconnect = fn })
}

// OnConnectionError replaces the connection-error subscriber.
func (m *Manager) OnConnectionError(fn func(err error)) {
	m.setHandler(func(h *Handlers) { h.OnConnectionError = fn })
}

// OnReconnectAttempt replaces the reconnect-attempt subscriber.
func (m *Manager) OnReconnectAttempt(fn func(attempt int)) {
	m.setHandler(func(h *Handlers) { h.OnReconnectAttempt = fn })
}

// OnLocationUpdate replaces the location-update subscriber.
func (m *Manager) OnLocationUpdate(fn func(sample core.LocationSample)) {
	m.setHandler(func(h *Handlers) { h.OnLocationUpdate = fn })
}

// OnRosterUpdate replaces the roster-update subscriber.
func (m *Manager) OnRosterUpdate(fn func(drivers []core.Driver)) {
	m.setHandler(func(h *Handlers) { h.OnRosterUpdate = fn })
}

// OnAlertUpdate replaces the alert-update subscriber.
func (m *Manager) OnAlertUpdate(fn func(alert core.AlertEvent)) {
	m.setHandler(func(h *Handlers) { h.OnAlertUpdate = fn })
}

// OnDriverStatusChange replaces the driver-status-change subscriber.
func (m *Manager) OnDriverStatusChange(fn func(change core.StatusChange)) {
	m.setHandler(func(h *Handlers) { h.OnDriverStatusChange = fn })
}
