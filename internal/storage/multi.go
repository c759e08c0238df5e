package storage

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"cart-enricher/internal/common/logging"
	"cart-enricher/internal/models"
)

// Observer is told how many records each sink accepted
type Observer interface {
	ObserveWrite(sink string, records int)
}

// MultiSink writes every batch to all of its sinks. A failing sink does not
// stop the others; the failures are joined into the returned error.
type MultiSink struct {
	sinks    []Sink
	observer Observer
	logger   logging.Logger
}

func NewMultiSink(logger logging.Logger, sinks ...Sink) *MultiSink {
	return &MultiSink{
		sinks:  sinks,
		logger: logging.ForComponent(logger, "sink"),
	}
}

// WithObserver reports accepted records to o
func (m *MultiSink) WithObserver(o Observer) *MultiSink {
	m.observer = o
	return m
}

func (m *MultiSink) Name() string {
	names := make([]string, len(m.sinks))
	for i, s := range m.sinks {
		names[i] = s.Name()
	}
	return strings.Join(names, "+")
}

func (m *MultiSink) Write(ctx context.Context, users []models.EnrichedUser) error {
	if len(users) == 0 {
		return nil
	}

	var errs []error
	for _, s := range m.sinks {
		if err := s.Write(ctx, users); err != nil {
			m.logger.Error("Sink write failed", err,
				logging.String("sink", s.Name()),
				logging.Int("records", len(users)),
			)
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}
		if m.observer != nil {
			m.observer.ObserveWrite(s.Name(), len(users))
		}
	}
	return stderrors.Join(errs...)
}

func (m *MultiSink) Close() error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return stderrors.Join(errs...)
}
