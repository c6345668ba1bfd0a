package bridge

import (
	"context"
	"sync"
	"time"

	"github.com/droidcore/sdkbridge/internal/adb"
	"github.com/droidcore/sdkbridge/internal/config"
	"github.com/droidcore/sdkbridge/internal/errors"
	"github.com/droidcore/sdkbridge/internal/event"
	"github.com/droidcore/sdkbridge/internal/logging"
)

// stopGrace is how long a killed server gets to exit on its own before
// its process tree is taken down.
const stopGrace = 2 * time.Second

// Manager holds the process-wide adb server lifecycle state: whether this
// process has started the server before, whether the last attempt
// crashed, and the connected client handle. Its lock serializes server
// starts, forced restarts, and teardown across all callers.
//
// Construct one Manager per process and pass it by reference. Tests build
// their own against a fake adb binary.
type Manager struct {
	client  *adb.Client
	cfg     config.BridgeConfig
	log     *logging.Logger
	bus     *event.Bus
	lockDir string

	mu          sync.Mutex
	initialized bool
	crashed     bool
	crashReason string
	connected   bool
}

// NewManager creates a Manager driving the server behind client.
// Panics on a nil client; the Manager is wiring, not a place to discover
// a missing collaborator at connect time.
func NewManager(client *adb.Client, cfg config.BridgeConfig, opts ...Option) *Manager {
	if client == nil {
		panic("bridge: NewManager requires a client")
	}
	s := applyOptions(opts)
	return &Manager{
		client:  client,
		cfg:     cfg,
		log:     s.logger.WithComponent("bridge"),
		bus:     s.bus,
		lockDir: s.lockDir,
	}
}

// Client returns the adb client the manager drives, connected or not.
func (m *Manager) Client() *adb.Client { return m.client }

// Handle returns the connected client, or nil while no connection is
// established. Callers treat a nil handle as "no server", not an error.
func (m *Manager) Handle() *adb.Client {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return nil
	}
	return m.client
}

// Crashed reports whether the previous attempt was marked crashed. The
// next connect force-restarts the server when set.
func (m *Manager) Crashed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.crashed
}

// MarkCrashed records that the in-flight attempt was abandoned, so the
// next connect starts the server over instead of trusting its state.
func (m *Manager) MarkCrashed() {
	m.markCrashed("crashed")
}

// RequestRestart marks the server for a restart on the next connect.
// Like MarkCrashed but remembered as a deliberate request, which is how
// the restart is reported on the event bus.
func (m *Manager) RequestRestart() {
	m.markCrashed("user")
}

func (m *Manager) markCrashed(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.crashed = true
	m.crashReason = reason
	m.connected = false
}

// Initialized reports whether a connect has run in this process.
func (m *Manager) Initialized() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.initialized
}

// connect runs one server attempt to completion. It holds the manager
// lock throughout, so attempts, restarts, and teardown never interleave;
// a restarted attempt queues behind the one it replaced until that
// worker notices its cancellation.
//
// The first attempt in a process always starts the server fresh. Later
// attempts reuse a healthy server and force a restart only when the
// previous attempt crashed or the server stopped answering. After the
// start, the server is polled for a connection until it answers or ctx
// is canceled; cancellation aborts the poll silently.
func (m *Manager) connect(ctx context.Context, attempt int) (forced bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	log := m.log.WithAttempt(attempt)

	reason := ""
	if !m.initialized {
		m.initialized = true
		forced = true
	} else if m.crashed {
		forced = true
		reason = m.crashReason
		m.crashReason = ""
	} else if !m.client.Connected(ctx) {
		forced = true
		reason = "disconnected"
	}

	if forced {
		if reason != "" {
			log.Info("forcing server restart", "reason", reason)
			m.bus.Publish(event.NewBridgeRestartedEvent(attempt, reason))
		}
		if err := m.restartServerLocked(ctx, log); err != nil {
			return forced, err
		}
	} else {
		log.Debug("reusing running server", "adb", m.client.Path())
	}

	// The server forks and returns before it accepts connections, so poll
	// until it answers. The coordinator bounds this wait, not the worker.
	for !m.client.Connected(ctx) {
		select {
		case <-ctx.Done():
			log.Debug("connection poll interrupted")
			return forced, errors.ErrCanceled
		case <-time.After(m.connectPoll()):
		}
	}

	m.crashed = false
	m.connected = true
	log.Debug("server answering", "adb", m.client.Path(), "forced", forced)
	return forced, nil
}

// restartServerLocked kills any running server and starts a new one,
// under the cross-process server lock. Caller holds m.mu.
func (m *Manager) restartServerLocked(ctx context.Context, log *logging.Logger) error {
	lock, err := AcquireServerLock(m.lockDir, m.client.Path(), log)
	if err != nil {
		return err
	}
	defer func() { _ = lock.Release() }()

	if err := m.client.KillServer(ctx); err != nil {
		log.Debug("kill-server before start failed", "error", err)
	}
	adb.EnsureServerStopped(stopGrace)

	return m.client.StartServer(ctx)
}

// Shutdown stops the adb server and resets the lifecycle state.
// Idempotent; safe to call without a prior connect, which is how the CLI
// stops a server left running by an earlier invocation.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	lock, err := AcquireServerLock(m.lockDir, m.client.Path(), m.log)
	if err != nil {
		return err
	}
	defer func() { _ = lock.Release() }()

	killErr := m.client.KillServer(ctx)
	adb.EnsureServerStopped(stopGrace)

	m.initialized = false
	m.crashed = false
	m.connected = false

	if killErr != nil {
		return killErr
	}
	m.log.Info("server stopped", "adb", m.client.Path())
	return nil
}

func (m *Manager) connectPoll() time.Duration {
	if d := m.cfg.ConnectPoll(); d > 0 {
		return d
	}
	return time.Second
}
