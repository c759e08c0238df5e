package storage

import (
	"fmt"

	"cart-enricher/internal/common/logging"
)

// NewSinks creates one sink per config through the default registry and
// combines them. Sinks already opened are closed if a later one fails.
func NewSinks(configs []SinkConfig, logger logging.Logger) (*MultiSink, error) {
	if len(configs) == 0 {
		return nil, fmt.Errorf("at least one sink is required")
	}

	sinks := make([]Sink, 0, len(configs))
	for _, cfg := range configs {
		sink, err := Create(cfg, logger)
		if err != nil {
			for _, opened := range sinks {
				_ = opened.Close()
			}
			return nil, fmt.Errorf("failed to create %s sink: %w", cfg.GetType(), err)
		}
		sinks = append(sinks, sink)
	}

	return NewMultiSink(logger, sinks...), nil
}

type funcFactory[C SinkConfig] struct {
	sinkType string
	open     func(C, logging.Logger) (Sink, error)
}

func (f funcFactory[C]) Create(config SinkConfig, logger logging.Logger) (Sink, error) {
	c, ok := config.(C)
	if !ok {
		return nil, fmt.Errorf("%s sink: unexpected config type %T", f.sinkType, config)
	}
	return f.open(c, logger)
}

func (f funcFactory[C]) GetType() string { return f.sinkType }

// RegisterFunc registers open as the default-registry factory for sinkType.
// Configs of any type other than C are rejected.
func RegisterFunc[C SinkConfig](sinkType string, open func(C, logging.Logger) (Sink, error)) {
	Register(sinkType, funcFactory[C]{sinkType: sinkType, open: open})
}
