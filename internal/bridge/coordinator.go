package bridge

import (
	"context"
	"sync"
	"time"

	"github.com/sourcegraph/conc/panics"

	"github.com/droidcore/sdkbridge/internal/adb"
	"github.com/droidcore/sdkbridge/internal/config"
	"github.com/droidcore/sdkbridge/internal/errors"
	"github.com/droidcore/sdkbridge/internal/event"
	"github.com/droidcore/sdkbridge/internal/logging"
	"github.com/droidcore/sdkbridge/internal/util"
)

// Fallbacks for zeroed bridge configuration.
const (
	defaultWaitCeiling   = 10 * time.Second
	defaultWakeInterval  = 500 * time.Millisecond
	defaultGraceAttempts = 6
	defaultGraceInterval = 200 * time.Millisecond
)

// Coordinator drives connection attempts against a Manager.
//
// One Connect call runs at a time; a second concurrent call fails with
// ErrConnectInProgress rather than queueing. The coordinator publishes a
// bridge.phase_changed event on every state transition and a terminal
// bridge.connected or bridge.failed event per Connect call, so observers
// never need to poll State.
type Coordinator struct {
	manager  *Manager
	prompter Prompter
	cfg      config.BridgeConfig
	log      *logging.Logger
	bus      *event.Bus

	mu       sync.Mutex
	state    State
	attempt  int
	inFlight bool
	started  time.Time
}

// workerResult is what one connect worker reports back.
type workerResult struct {
	forced bool
	err    error
}

// NewCoordinator creates a Coordinator for the given manager. The
// prompter decides how wait-ceiling timeouts proceed. Panics when either
// collaborator is nil. Options default to the manager's logger and bus.
func NewCoordinator(manager *Manager, prompter Prompter, opts ...Option) *Coordinator {
	if manager == nil {
		panic("bridge: NewCoordinator requires a manager")
	}
	if prompter == nil {
		panic("bridge: NewCoordinator requires a prompter")
	}

	var s settings
	for _, opt := range opts {
		opt(&s)
	}
	log := s.logger
	if log == nil {
		log = manager.log
	}
	bus := s.bus
	if bus == nil {
		bus = manager.bus
	}

	return &Coordinator{
		manager:  manager,
		prompter: prompter,
		cfg:      manager.cfg,
		log:      log,
		bus:      bus,
		state:    StateIdle,
	}
}

// State returns the coordinator's current protocol state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Attempt returns the number of connection attempts started so far.
func (c *Coordinator) Attempt() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempt
}

// Errors returns the daemon error output accumulated by the current
// attempt, newline joined.
func (c *Coordinator) Errors() string {
	return c.manager.Client().ErrorLog().String()
}

// Connect establishes a connection to the adb server, restarting it when
// the lifecycle state demands and prompting when an attempt outlives the
// wait ceiling.
//
// Returns nil when the protocol concluded, whether StateConnected or
// StateFailed; callers distinguish the two through Manager.Handle.
// Returns ErrCanceled when ctx was canceled or a cancel was chosen, and
// ErrConnectInProgress when another Connect is already running.
func (c *Coordinator) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.inFlight {
		c.mu.Unlock()
		return errors.ErrConnectInProgress
	}
	c.inFlight = true
	c.started = time.Now()
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.inFlight = false
		c.mu.Unlock()
	}()

	for {
		c.mu.Lock()
		c.attempt++
		attempt := c.attempt
		c.mu.Unlock()

		// Each attempt starts with a clean daemon log, so a later prompt
		// shows only output this attempt produced.
		c.manager.Client().ErrorLog().Clear()
		c.setState(StateConnecting)

		workerCtx, cancelWorker := context.WithCancel(ctx)
		done := c.spawnWorker(workerCtx, attempt)

		again, err := c.superviseAttempt(ctx, cancelWorker, done, attempt)
		if !again {
			return err
		}
	}
}

// spawnWorker runs one attempt on a background goroutine. Panics in the
// worker are caught and reported as a failed attempt instead of taking
// the process down.
func (c *Coordinator) spawnWorker(ctx context.Context, attempt int) <-chan workerResult {
	done := make(chan workerResult, 1)
	go func() {
		var res workerResult
		if r := panics.Try(func() {
			res.forced, res.err = c.manager.connect(ctx, attempt)
		}); r != nil {
			res.err = errors.NewBridgeError("connect worker panicked", r.AsError()).WithAttempt(attempt)
		}
		done <- res
	}()
	return done
}

// superviseAttempt waits on one worker, re-arming the ceiling on every
// wait choice. Returns retry=true when a restart was chosen and the loop
// should begin a fresh attempt.
func (c *Coordinator) superviseAttempt(ctx context.Context, cancel context.CancelFunc, done <-chan workerResult, attempt int) (retry bool, err error) {
	wake := time.NewTicker(c.wakeInterval())
	defer wake.Stop()
	deadline := time.Now().Add(c.waitCeiling())

	for {
		select {
		case res := <-done:
			cancel()
			return false, c.conclude(res, attempt)

		case <-ctx.Done():
			return false, c.abort(cancel, done, attempt)

		case <-wake.C:
			if time.Now().Before(deadline) {
				continue
			}

			c.setState(StateAwaitingChoice)
			choice, perr := c.prompter.Ask(ctx, c.buildPrompt(attempt))

			// The worker may have finished while the decision was pending;
			// a finished attempt wins over whatever was chosen.
			if res, ok := drainDone(done); ok {
				cancel()
				return false, c.conclude(res, attempt)
			}

			switch {
			case perr != nil:
				if !errors.Is(perr, errors.ErrCanceled) {
					c.log.Warn("prompter failed, treating as cancel", "error", perr)
				}
				return false, c.abort(cancel, done, attempt)
			case choice == ChoiceCancel:
				return false, c.abort(cancel, done, attempt)
			case choice == ChoiceRestart:
				c.restart(cancel, done, attempt)
				return true, nil
			default:
				c.log.Debug("wait extended", "attempt", attempt, "elapsed", c.elapsed().String())
				deadline = time.Now().Add(c.waitCeiling())
				c.setState(StateConnecting)
			}
		}
	}
}

// conclude settles a finished worker into a terminal state.
func (c *Coordinator) conclude(res workerResult, attempt int) error {
	path := c.manager.Client().Path()

	switch {
	case res.err == nil:
		c.setState(StateConnected)
		c.log.Info("bridge connected",
			"adb", path,
			"attempt", attempt,
			"forced", res.forced,
			"elapsed", c.elapsed().String())
		c.bus.Publish(event.NewBridgeConnectedEvent(path, attempt, res.forced))
		return nil

	case errors.Is(res.err, errors.ErrCanceled):
		// A canceled worker left the server in an unknown state; the next
		// connect starts it over.
		c.manager.MarkCrashed()
		c.setState(StateCanceled)
		return errors.ErrCanceled

	default:
		// A failed attempt is a result, not an error: the caller sees a
		// nil handle and the bus carries the daemon's own account.
		text := c.manager.Client().ErrorLog().String()
		c.setState(StateFailed)
		c.log.Warn("bridge connection failed", "attempt", attempt, "error", res.err,
			"daemon_output", util.TruncateString(text, 200))
		c.bus.Publish(event.NewBridgeFailedEvent(path, attempt, text))
		return nil
	}
}

// abort cancels the in-flight worker, waits out the grace budget, and
// concludes as canceled. The crash mark makes the next connect start the
// server over instead of trusting whatever the abandoned attempt left.
func (c *Coordinator) abort(cancel context.CancelFunc, done <-chan workerResult, attempt int) error {
	if res, ok := drainDone(done); ok {
		cancel()
		c.log.Debug("canceled after worker finish", "attempt", attempt, "worker_error", res.err)
	} else {
		// Cancel before marking: the worker holds the manager lock for
		// its whole attempt, and the mark needs that lock.
		cancel()
		if !c.awaitWorker(done) {
			// The worker is wedged in a client call; abandon it and take
			// the server down so the call has something to return from.
			c.log.Warn("worker did not acknowledge cancellation", "attempt", attempt)
			adb.EnsureServerStopped(0)
		}
	}

	c.manager.MarkCrashed()
	c.log.Info("connection attempt canceled", "attempt", attempt)
	c.setState(StateCanceled)
	return errors.ErrCanceled
}

// restart abandons the current worker so the loop can begin a fresh
// attempt with force-restart semantics.
func (c *Coordinator) restart(cancel context.CancelFunc, done <-chan workerResult, attempt int) {
	cancel()
	if !c.awaitWorker(done) {
		c.log.Warn("worker did not stop for restart", "attempt", attempt)
		adb.EnsureServerStopped(0)
	}
	c.manager.RequestRestart()
	c.log.Info("restarting connection attempt", "attempt", attempt)
	c.setState(StateRetrying)
}

// awaitWorker waits out the cancellation grace budget: a bounded number
// of short polls for the worker to acknowledge, after which the caller
// abandons it rather than blocking further. The budget bounds how long
// cancellation can stall the caller.
func (c *Coordinator) awaitWorker(done <-chan workerResult) bool {
	attempts := c.cfg.CancelGraceAttempts
	if attempts <= 0 {
		attempts = defaultGraceAttempts
	}
	interval := c.cfg.CancelGraceInterval()
	if interval <= 0 {
		interval = defaultGraceInterval
	}

	for i := 0; i < attempts; i++ {
		select {
		case <-done:
			return true
		case <-time.After(interval):
		}
	}
	return false
}

// drainDone returns the worker result if the worker already finished.
func drainDone(done <-chan workerResult) (workerResult, bool) {
	select {
	case res := <-done:
		return res, true
	default:
		return workerResult{}, false
	}
}

func (c *Coordinator) buildPrompt(attempt int) Prompt {
	return Prompt{
		Attempt: attempt,
		Elapsed: c.elapsed(),
		Errors:  c.Errors(),
	}
}

func (c *Coordinator) elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Since(c.started)
}

// setState transitions the protocol state, logging and publishing the
// change. Same-state transitions are dropped.
func (c *Coordinator) setState(next State) {
	c.mu.Lock()
	prev := c.state
	if prev == next {
		c.mu.Unlock()
		return
	}
	c.state = next
	attempt := c.attempt
	c.mu.Unlock()

	c.log.Debug("bridge state changed", "from", prev.String(), "to", next.String(), "attempt", attempt)
	c.bus.Publish(event.NewBridgePhaseChangedEvent(prev.Phase(), next.Phase(), attempt))
}

func (c *Coordinator) waitCeiling() time.Duration {
	if d := c.cfg.WaitCeiling(); d > 0 {
		return d
	}
	return defaultWaitCeiling
}

func (c *Coordinator) wakeInterval() time.Duration {
	if d := c.cfg.WakeInterval(); d > 0 {
		return d
	}
	return defaultWakeInterval
}
