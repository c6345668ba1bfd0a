package bridge

import (
	"github.com/droidcore/sdkbridge/internal/event"
	"github.com/droidcore/sdkbridge/internal/logging"
)

// Option configures a Manager or Coordinator.
type Option func(*settings)

type settings struct {
	logger  *logging.Logger
	bus     *event.Bus
	lockDir string
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(logger *logging.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

// WithBus sets the event bus transitions and outcomes are published on.
// Defaults to a private bus nobody listens to.
func WithBus(bus *event.Bus) Option {
	return func(s *settings) {
		s.bus = bus
	}
}

// WithLockDir sets the directory holding the server lock file. Defaults
// to the logging state directory. Only the Manager uses this.
func WithLockDir(dir string) Option {
	return func(s *settings) {
		s.lockDir = dir
	}
}

func applyOptions(opts []Option) settings {
	var s settings
	for _, opt := range opts {
		opt(&s)
	}
	if s.logger == nil {
		s.logger = logging.NopLogger()
	}
	if s.bus == nil {
		s.bus = event.NewBus()
	}
	if s.lockDir == "" {
		if dir, err := logging.DefaultLogDir(); err == nil {
			s.lockDir = dir
		}
	}
	return s
}
