package tui

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/droidcore/sdkbridge/internal/bridge"
	"github.com/droidcore/sdkbridge/internal/errors"
	"github.com/droidcore/sdkbridge/internal/logging"
)

// Interactive reports whether both ends of the terminal are real TTYs,
// which is what running the prompt requires.
func Interactive() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// Prompter runs the wait-ceiling prompt in the terminal.
type Prompter struct {
	log *logging.Logger
}

var _ bridge.Prompter = (*Prompter)(nil)

// NewPrompter creates a terminal prompter.
func NewPrompter(log *logging.Logger) *Prompter {
	if log == nil {
		log = logging.NopLogger()
	}
	return &Prompter{log: log.WithComponent("tui")}
}

// Ask shows the prompt and blocks until the user decides or ctx is
// canceled.
func (p *Prompter) Ask(ctx context.Context, req bridge.Prompt) (bridge.Choice, error) {
	p.log.Debug("showing wait prompt", "attempt", req.Attempt, "elapsed", req.Elapsed.String())

	prog := tea.NewProgram(NewPromptModel(req), tea.WithContext(ctx))
	final, err := prog.Run()
	if err != nil {
		if ctx.Err() != nil {
			return bridge.ChoiceCancel, errors.ErrCanceled
		}
		return bridge.ChoiceCancel, errors.Wrap(err, "wait prompt failed")
	}

	model, ok := final.(PromptModel)
	if !ok || !model.Decided() {
		return bridge.ChoiceCancel, nil
	}
	p.log.Debug("wait prompt answered", "choice", model.Choice().String())
	return model.Choice(), nil
}
