package logging

import (
	"context"
	"errors"
	"log/slog"
)

// Sink is one destination of a Fanout. A nil Floor admits whatever the
// handler itself enables.
type Sink struct {
	Handler slog.Handler
	Floor   slog.Leveler
}

func (s Sink) admits(ctx context.Context, level slog.Level) bool {
	if s.Floor != nil && level < s.Floor.Level() {
		return false
	}
	return s.Handler.Enabled(ctx, level)
}

// Fanout delivers each record to every sink that admits its level. A sink
// that fails does not keep the record from the others; their errors are
// joined.
type Fanout struct {
	sinks []Sink
}

func NewFanout(sinks ...Sink) *Fanout {
	return &Fanout{sinks: sinks}
}

func (f *Fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, s := range f.sinks {
		if s.admits(ctx, level) {
			return true
		}
	}
	return false
}

func (f *Fanout) Handle(ctx context.Context, record slog.Record) error {
	var errs []error
	for _, s := range f.sinks {
		if !s.admits(ctx, record.Level) {
			continue
		}
		if err := s.Handler.Handle(ctx, record.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f *Fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	return f.derive(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (f *Fanout) WithGroup(name string) slog.Handler {
	return f.derive(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (f *Fanout) derive(fn func(slog.Handler) slog.Handler) *Fanout {
	sinks := make([]Sink, len(f.sinks))
	for i, s := range f.sinks {
		sinks[i] = Sink{Handler: fn(s.Handler), Floor: s.Floor}
	}
	return &Fanout{sinks: sinks}
}
