package logging

import (
	"context"
	"log/slog"

	"github.com/fleetlive/tracker/internal/model/core"
)

// ContextProvider returns attributes computed at log time.
type ContextProvider func() []slog.Attr

// ConnectionSource reports the telemetry channel a record is logged under.
type ConnectionSource interface {
	ConnectionID() string
	State() core.ConnectionState
}

// ConnectionContext tags records with the channel's connection id and
// state. current returns nil until the channel exists. The id is omitted
// while no connection is attached.
func ConnectionContext(current func() ConnectionSource) ContextProvider {
	return func() []slog.Attr {
		src := current()
		if src == nil {
			return nil
		}
		return []slog.Attr{
			slog.String("connectionId", src.ConnectionID()),
			slog.String("channel", src.State().String()),
		}
	}
}

// ContextHandler stamps every record with fixed tracker attributes plus
// whatever its provider reports at log time. Provided string attributes
// with empty values are dropped.
type ContextHandler struct {
	inner    slog.Handler
	provider ContextProvider
}

// NewContextHandler wraps inner. defaults are attached once, ahead of any
// attributes added later through With.
func NewContextHandler(inner slog.Handler, provider ContextProvider, defaults ...slog.Attr) *ContextHandler {
	if len(defaults) > 0 {
		inner = inner.WithAttrs(defaults)
	}
	return &ContextHandler{inner: inner, provider: provider}
}

func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.provider != nil {
		for _, a := range h.provider() {
			if a.Value.Kind() == slog.KindString && a.Value.String() == "" {
				continue
			}
			r.AddAttrs(a)
		}
	}
	return h.inner.Handle(ctx, r)
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{inner: h.inner.WithAttrs(attrs), provider: h.provider}
}

func (h *ContextHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &ContextHandler{inner: h.inner.WithGroup(name), provider: h.provider}
}
