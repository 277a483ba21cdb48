package api

import (
	"context"
	"log/slog"
	"time"

	"github.com/fleetlive/tracker/internal/model/core"
)

// HistorySink receives fetched history for the selected driver.
type HistorySink interface {
	ReplaceHistory(deviceID string, samples []core.LocationSample) bool
}

// HistoryLoader fetches driver history over REST in the background and
// hands it to a sink. Failures are logged and leave the sink untouched.
type HistoryLoader struct {
	client  *Client
	sink    HistorySink
	timeout time.Duration
	logger  *slog.Logger
}

// NewHistoryLoader creates a loader that feeds sink.
func NewHistoryLoader(client *Client, sink HistorySink, logger *slog.Logger) *HistoryLoader {
	if logger == nil {
		logger = slog.Default()
	}
	return &HistoryLoader{
		client:  client,
		sink:    sink,
		timeout: 30 * time.Second,
		logger:  logger,
	}
}

// RequestDriverHistory starts a fetch and returns immediately.
func (l *HistoryLoader) RequestDriverHistory(deviceID string, hours int) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
		defer cancel()
		l.load(ctx, deviceID, hours)
	}()
}

func (l *HistoryLoader) load(ctx context.Context, deviceID string, hours int) {
	samples, err := l.client.DriverHistory(ctx, deviceID, hours)
	if err != nil {
		l.logger.Warn("Error fetching driver history", "deviceId", deviceID, "error", err)
		return
	}
	if !l.sink.ReplaceHistory(deviceID, samples) {
		l.logger.Debug("Discarding history for deselected driver", "deviceId", deviceID)
		return
	}
	l.logger.Debug("Loaded driver history", "deviceId", deviceID, "samples", len(samples))
}
