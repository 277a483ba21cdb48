// Package session binds the channel's event stream to the dashboard store.
package session

import (
	"context"
	"log/slog"

	"github.com/fleetlive/tracker/internal/connection"
	"github.com/fleetlive/tracker/internal/model/core"
	"github.com/fleetlive/tracker/internal/store"
)

// Requester issues outbound requests on the channel.
type Requester interface {
	RequestDrivers()
}

// Connector is the part of the connection manager a session drives.
type Connector interface {
	Requester
	Connect(ctx context.Context, h connection.Handlers) error
	Disconnect()
}

// Bind returns the handler table that applies channel events to s.
// A fresh roster is requested on every (re)connect.
func Bind(s *store.Store, req Requester, logger *slog.Logger) connection.Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return connection.Handlers{
		OnConnect: func() {
			s.SetConnectionStatus(store.StatusConnected, true)
			s.SetReconnectAttempts(0)
			req.RequestDrivers()
		},
		OnDisconnect: func(reason string) {
			s.SetConnectionStatus(store.StatusDisconnected, false)
			logger.Info("Channel disconnected", "reason", reason)
		},
		OnConnectionError: func(err error) {
			s.SetConnectionStatus(store.StatusConnectionError, false)
			logger.Error("Channel connection error", "error", err)
		},
		OnReconnectAttempt: func(attempt int) {
			s.SetReconnectAttempts(attempt)
		},
		OnRosterUpdate: func(drivers []core.Driver) {
			s.ApplyRosterUpdate(drivers)
		},
		OnLocationUpdate: func(sample core.LocationSample) {
			s.ApplyLocationUpdate(sample.DeviceID, sample)
		},
		OnAlertUpdate: func(alert core.AlertEvent) {
			s.ApplyAlert(alert)
		},
		OnDriverStatusChange: func(change core.StatusChange) {
			if !s.ApplyStatusChange(change) {
				logger.Debug("Status change for unknown driver", "driverId", change.DriverID)
			}
		},
	}
}

// Start connects c with handlers bound to s. A failed first attempt is
// recorded on the store and returned; the connector keeps retrying.
func Start(ctx context.Context, c Connector, s *store.Store, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	if err := c.Connect(ctx, Bind(s, c, logger)); err != nil {
		s.SetConnectionStatus(store.StatusFailedToConnect, false)
		logger.Error("Failed to connect to channel", "error", err)
		return err
	}
	return nil
}
