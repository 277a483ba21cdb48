package logging

import (
	"context"
	"errors"
	"log/slog"
)

// MultiHandler fans each record out to the session file, Graylog and OTel
// outputs. A failing output does not stop the others; their errors are
// joined.
type MultiHandler struct {
	handlers []slog.Handler
}

// NewMultiHandler skips nil outputs so optional sinks can be passed as is.
func NewMultiHandler(handlers ...slog.Handler) *MultiHandler {
	outputs := make([]slog.Handler, 0, len(handlers))
	for _, h := range handlers {
		if h != nil {
			outputs = append(outputs, h)
		}
	}
	return &MultiHandler{handlers: outputs}
}

func (m *MultiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (m *MultiHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range m.handlers {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return m.each(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (m *MultiHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return m
	}
	return m.each(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (m *MultiHandler) each(fn func(slog.Handler) slog.Handler) *MultiHandler {
	outputs := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		outputs[i] = fn(h)
	}
	return &MultiHandler{handlers: outputs}
}
