package bridge

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/droidcore/sdkbridge/internal/errors"
)

// Choice is an answer to a wait-ceiling prompt.
type Choice int

const (
	// ChoiceWait keeps waiting on the current attempt with a fresh ceiling.
	ChoiceWait Choice = iota

	// ChoiceRestart abandons the current attempt and starts the server over.
	ChoiceRestart

	// ChoiceCancel gives up on connecting.
	ChoiceCancel
)

// String returns the configuration spelling of the choice.
func (c Choice) String() string {
	switch c {
	case ChoiceWait:
		return "wait"
	case ChoiceRestart:
		return "restart"
	case ChoiceCancel:
		return "cancel"
	default:
		return "unknown"
	}
}

// ParseChoice converts a configuration string into a Choice.
func ParseChoice(s string) (Choice, error) {
	switch s {
	case "wait":
		return ChoiceWait, nil
	case "restart":
		return ChoiceRestart, nil
	case "cancel":
		return ChoiceCancel, nil
	default:
		return ChoiceCancel, errors.NewValidationError(fmt.Sprintf("unknown choice %q", s)).
			WithField("bridge.default_choice")
	}
}

// Prompt carries what the user needs to decide how to proceed when the
// server has not answered within the wait ceiling.
type Prompt struct {
	// Attempt is the connection attempt number, starting at 1.
	Attempt int

	// Elapsed is the total time spent in this Connect call so far.
	Elapsed time.Duration

	// Errors is the accumulated adb daemon error output, newline joined.
	// Empty when the daemon has produced none.
	Errors string
}

// Prompter decides how to proceed when a connection attempt outlives the
// wait ceiling. Implementations may block for user input; they must honor
// ctx cancellation. Returning an error is treated as ChoiceCancel.
type Prompter interface {
	Ask(ctx context.Context, p Prompt) (Choice, error)
}

// PrompterFunc adapts a function to the Prompter interface.
type PrompterFunc func(ctx context.Context, p Prompt) (Choice, error)

// Ask calls f.
func (f PrompterFunc) Ask(ctx context.Context, p Prompt) (Choice, error) {
	return f(ctx, p)
}

// PolicyPrompter answers every prompt with a fixed choice. It backs
// non-interactive runs, where bridge.default_choice stands in for the
// user. A restart policy is capped: after MaxRestarts restart answers it
// switches to cancel so an unreachable daemon cannot loop forever.
type PolicyPrompter struct {
	Choice      Choice
	MaxRestarts int

	mu       sync.Mutex
	restarts int
}

// Ask applies the policy.
func (p *PolicyPrompter) Ask(ctx context.Context, _ Prompt) (Choice, error) {
	if err := ctx.Err(); err != nil {
		return ChoiceCancel, errors.ErrCanceled
	}
	if p.Choice != ChoiceRestart {
		return p.Choice, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.MaxRestarts > 0 && p.restarts >= p.MaxRestarts {
		return ChoiceCancel, nil
	}
	p.restarts++
	return ChoiceRestart, nil
}
