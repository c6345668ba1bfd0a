package bridge

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/droidcore/sdkbridge/internal/errors"
	"github.com/droidcore/sdkbridge/internal/event"
)

// failStartScript is a fake adb whose daemon never comes up.
const failStartScript = `#!/bin/sh
if [ "$1" = "start-server" ]; then
  echo "cannot bind 'tcp:5037'" >&2
  echo "could not install *smartsocket* listener" >&2
  exit 1
fi
exit 0
`

// failingPrompter fails the test when the coordinator asks for a choice.
func failingPrompter(t *testing.T) Prompter {
	return PrompterFunc(func(context.Context, Prompt) (Choice, error) {
		t.Error("prompter asked unexpectedly")
		return ChoiceCancel, nil
	})
}

func newTestCoordinator(t *testing.T, script string, p Prompter, bus *event.Bus) (*Coordinator, *Manager) {
	t.Helper()
	m := newTestManager(t, script, bus)
	return NewCoordinator(m, p), m
}

// waitForState polls until the coordinator reaches the wanted state.
func waitForState(t *testing.T, c *Coordinator, want State) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if c.State() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("state = %v, want %v", c.State(), want)
}

func TestNewCoordinator_NilPanics(t *testing.T) {
	t.Run("nil manager", func(t *testing.T) {
		defer func() {
			if recover() == nil {
				t.Error("NewCoordinator(nil, prompter) did not panic")
			}
		}()
		NewCoordinator(nil, &PolicyPrompter{})
	})

	t.Run("nil prompter", func(t *testing.T) {
		m := newTestManager(t, exitZero, nil)
		defer func() {
			if recover() == nil {
				t.Error("NewCoordinator(manager, nil) did not panic")
			}
		}()
		NewCoordinator(m, nil)
	})
}

func TestCoordinator_Connect_Success(t *testing.T) {
	bus := event.NewBus()
	c, m := newTestCoordinator(t, exitZero, failingPrompter(t), bus)
	serveAdb(t, okayReply)
	connected := recordEvents(bus, "bridge.connected")
	phases := recordEvents(bus, "bridge.phase_changed")

	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	if got := c.State(); got != StateConnected {
		t.Errorf("State() = %v, want StateConnected", got)
	}
	if got := c.Attempt(); got != 1 {
		t.Errorf("Attempt() = %d, want 1", got)
	}
	if m.Handle() == nil {
		t.Error("Handle() = nil after successful Connect")
	}

	got := connected.all()
	if len(got) != 1 {
		t.Fatalf("got %d connected events, want 1", len(got))
	}
	ce := got[0].(event.BridgeConnectedEvent)
	if !ce.Forced {
		t.Error("connected event Forced = false on first start")
	}
	if ce.Attempt != 1 {
		t.Errorf("connected event Attempt = %d, want 1", ce.Attempt)
	}
	if ce.AdbPath != m.Client().Path() {
		t.Errorf("connected event AdbPath = %q, want %q", ce.AdbPath, m.Client().Path())
	}

	transitions := phases.all()
	if len(transitions) != 2 {
		t.Fatalf("got %d phase events, want 2", len(transitions))
	}
	first := transitions[0].(event.BridgePhaseChangedEvent)
	if first.PreviousPhase != event.BridgePhaseIdle || first.CurrentPhase != event.BridgePhaseConnecting {
		t.Errorf("first transition = %s -> %s", first.PreviousPhase, first.CurrentPhase)
	}
	last := transitions[1].(event.BridgePhaseChangedEvent)
	if last.PreviousPhase != event.BridgePhaseConnecting || last.CurrentPhase != event.BridgePhaseConnected {
		t.Errorf("last transition = %s -> %s", last.PreviousPhase, last.CurrentPhase)
	}
}

func TestCoordinator_Connect_SecondCallReuses(t *testing.T) {
	bus := event.NewBus()
	c, _ := newTestCoordinator(t, exitZero, failingPrompter(t), bus)
	serveAdb(t, okayReply)
	connected := recordEvents(bus, "bridge.connected")

	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("first Connect() error = %v", err)
	}
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("second Connect() error = %v", err)
	}

	got := connected.all()
	if len(got) != 2 {
		t.Fatalf("got %d connected events, want 2", len(got))
	}
	second := got[1].(event.BridgeConnectedEvent)
	if second.Forced {
		t.Error("second connect forced a restart of a healthy server")
	}
	if second.Attempt != 2 {
		t.Errorf("second connected event Attempt = %d, want 2", second.Attempt)
	}
}

func TestCoordinator_Connect_Failed(t *testing.T) {
	bus := event.NewBus()
	c, m := newTestCoordinator(t, failStartScript, failingPrompter(t), bus)
	reservePort(t)
	failed := recordEvents(bus, "bridge.failed")

	// A daemon that cannot start is an outcome, not an error.
	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v, want nil", err)
	}

	if got := c.State(); got != StateFailed {
		t.Errorf("State() = %v, want StateFailed", got)
	}
	if m.Handle() != nil {
		t.Error("Handle() != nil after failed Connect")
	}

	got := failed.all()
	if len(got) != 1 {
		t.Fatalf("got %d failed events, want 1", len(got))
	}
	fe := got[0].(event.BridgeFailedEvent)
	if !strings.Contains(fe.Errors, "cannot bind") {
		t.Errorf("failed event Errors = %q, want daemon output", fe.Errors)
	}
	if !strings.Contains(c.Errors(), "smartsocket") {
		t.Errorf("Errors() = %q, want daemon output", c.Errors())
	}
}

func TestCoordinator_Connect_ContextCanceled(t *testing.T) {
	c, m := newTestCoordinator(t, exitZero, failingPrompter(t), nil)
	reservePort(t)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := c.Connect(ctx)
	if !errors.Is(err, errors.ErrCanceled) {
		t.Fatalf("Connect() error = %v, want ErrCanceled", err)
	}
	if got := c.State(); got != StateCanceled {
		t.Errorf("State() = %v, want StateCanceled", got)
	}
	if !m.Crashed() {
		t.Error("Crashed() = false after canceled attempt")
	}
	if m.Handle() != nil {
		t.Error("Handle() != nil after canceled attempt")
	}
}

func TestCoordinator_Connect_CancelChoice(t *testing.T) {
	var seen Prompt
	prompter := PrompterFunc(func(_ context.Context, p Prompt) (Choice, error) {
		seen = p
		return ChoiceCancel, nil
	})
	c, m := newTestCoordinator(t, exitZero, prompter, nil)
	reservePort(t)

	err := c.Connect(context.Background())
	if !errors.Is(err, errors.ErrCanceled) {
		t.Fatalf("Connect() error = %v, want ErrCanceled", err)
	}
	if got := c.State(); got != StateCanceled {
		t.Errorf("State() = %v, want StateCanceled", got)
	}
	if !m.Crashed() {
		t.Error("Crashed() = false after cancel choice")
	}

	if seen.Attempt != 1 {
		t.Errorf("prompt Attempt = %d, want 1", seen.Attempt)
	}
	cfg := testBridgeConfig()
	if ceiling := cfg.WaitCeiling(); seen.Elapsed < ceiling {
		t.Errorf("prompt Elapsed = %v, want at least %v", seen.Elapsed, ceiling)
	}
}

func TestCoordinator_Connect_WaitThenSuccess(t *testing.T) {
	bus := event.NewBus()
	port := reservePort(t)

	asks := 0
	prompter := PrompterFunc(func(_ context.Context, _ Prompt) (Choice, error) {
		asks++
		// The daemon comes up while the user is deciding.
		serveAdbOn(t, port, okayReply)
		return ChoiceWait, nil
	})
	c, _ := newTestCoordinator(t, exitZero, prompter, bus)
	connected := recordEvents(bus, "bridge.connected")

	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	if asks != 1 {
		t.Errorf("prompter asked %d times, want 1", asks)
	}
	if got := c.State(); got != StateConnected {
		t.Errorf("State() = %v, want StateConnected", got)
	}
	if got := c.Attempt(); got != 1 {
		t.Errorf("Attempt() = %d, want 1", got)
	}

	got := connected.all()
	if len(got) != 1 {
		t.Fatalf("got %d connected events, want 1", len(got))
	}
	if ce := got[0].(event.BridgeConnectedEvent); ce.Attempt != 1 {
		t.Errorf("connected event Attempt = %d, want 1", ce.Attempt)
	}
}

func TestCoordinator_Connect_RestartChoice(t *testing.T) {
	bus := event.NewBus()
	port := reservePort(t)

	asks := 0
	var prompts []Prompt
	prompter := PrompterFunc(func(_ context.Context, p Prompt) (Choice, error) {
		asks++
		prompts = append(prompts, p)
		switch asks {
		case 1:
			return ChoiceRestart, nil
		case 2:
			serveAdbOn(t, port, okayReply)
			return ChoiceWait, nil
		default:
			t.Error("prompter asked a third time")
			return ChoiceCancel, nil
		}
	})
	c, _ := newTestCoordinator(t, exitZero, prompter, bus)
	restarts := recordEvents(bus, "bridge.restarted")
	connected := recordEvents(bus, "bridge.connected")

	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	if asks != 2 {
		t.Errorf("prompter asked %d times, want 2", asks)
	}
	if got := c.Attempt(); got != 2 {
		t.Errorf("Attempt() = %d, want 2", got)
	}
	if len(prompts) == 2 && prompts[1].Attempt != 2 {
		t.Errorf("second prompt Attempt = %d, want 2", prompts[1].Attempt)
	}

	gotRestarts := restarts.all()
	if len(gotRestarts) != 1 {
		t.Fatalf("got %d restart events, want 1", len(gotRestarts))
	}
	re := gotRestarts[0].(event.BridgeRestartedEvent)
	if re.Reason != "user" {
		t.Errorf("restart reason = %q, want %q", re.Reason, "user")
	}
	if re.Attempt != 2 {
		t.Errorf("restart attempt = %d, want 2", re.Attempt)
	}

	gotConnected := connected.all()
	if len(gotConnected) != 1 {
		t.Fatalf("got %d connected events, want 1", len(gotConnected))
	}
	ce := gotConnected[0].(event.BridgeConnectedEvent)
	if ce.Attempt != 2 || !ce.Forced {
		t.Errorf("connected event = attempt %d forced %v, want attempt 2 forced", ce.Attempt, ce.Forced)
	}
}

func TestCoordinator_Connect_PrompterError(t *testing.T) {
	prompter := PrompterFunc(func(context.Context, Prompt) (Choice, error) {
		return ChoiceWait, fmt.Errorf("terminal went away")
	})
	c, _ := newTestCoordinator(t, exitZero, prompter, nil)
	reservePort(t)

	err := c.Connect(context.Background())
	if !errors.Is(err, errors.ErrCanceled) {
		t.Fatalf("Connect() error = %v, want ErrCanceled", err)
	}
	if got := c.State(); got != StateCanceled {
		t.Errorf("State() = %v, want StateCanceled", got)
	}
}

func TestCoordinator_Connect_SingleFlight(t *testing.T) {
	c, _ := newTestCoordinator(t, exitZero, &PolicyPrompter{Choice: ChoiceWait}, nil)
	reservePort(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- c.Connect(ctx) }()
	waitForState(t, c, StateConnecting)

	if err := c.Connect(context.Background()); !errors.Is(err, errors.ErrConnectInProgress) {
		t.Errorf("concurrent Connect() error = %v, want ErrConnectInProgress", err)
	}

	cancel()
	if err := <-errCh; !errors.Is(err, errors.ErrCanceled) {
		t.Errorf("first Connect() error = %v, want ErrCanceled", err)
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateIdle, "idle"},
		{StateConnecting, "connecting"},
		{StateAwaitingChoice, "awaiting_choice"},
		{StateRetrying, "retrying"},
		{StateConnected, "connected"},
		{StateFailed, "failed"},
		{StateCanceled, "canceled"},
		{State(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}

func TestState_Phase(t *testing.T) {
	tests := []struct {
		state State
		want  event.BridgePhase
	}{
		{StateIdle, event.BridgePhaseIdle},
		{StateConnecting, event.BridgePhaseConnecting},
		{StateAwaitingChoice, event.BridgePhaseAwaitingChoice},
		{StateRetrying, event.BridgePhaseRetrying},
		{StateConnected, event.BridgePhaseConnected},
		{StateFailed, event.BridgePhaseFailed},
		{StateCanceled, event.BridgePhaseCanceled},
		{State(99), event.BridgePhaseIdle},
	}

	for _, tt := range tests {
		if got := tt.state.Phase(); got != tt.want {
			t.Errorf("State(%d).Phase() = %q, want %q", tt.state, got, tt.want)
		}
	}
}
