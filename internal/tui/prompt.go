// Package tui renders the interactive surfaces of sdkbridge: the
// wait-ceiling prompt shown while the adb server is not answering.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/droidcore/sdkbridge/internal/bridge"
	"github.com/droidcore/sdkbridge/internal/tui/styles"
	"github.com/droidcore/sdkbridge/internal/util"
)

// maxErrorLines bounds how much daemon output the prompt shows.
const maxErrorLines = 5

// tickMsg advances the elapsed clock once a second.
type tickMsg time.Time

// promptOption is one selectable answer.
type promptOption struct {
	choice bridge.Choice
	label  string
	detail string
	key    string
}

var promptOptions = []promptOption{
	{bridge.ChoiceWait, "Keep waiting", "give the server more time", "w"},
	{bridge.ChoiceRestart, "Restart server", "kill the daemon and start over", "r"},
	{bridge.ChoiceCancel, "Cancel", "stop trying to connect", "c"},
}

// PromptModel is the Bubbletea model for the wait-ceiling prompt. The
// elapsed clock keeps counting while the prompt is up, so the user sees
// how long the server has really been silent.
type PromptModel struct {
	prompt  bridge.Prompt
	started time.Time
	spinner spinner.Model
	cursor  int
	choice  bridge.Choice
	decided bool
	width   int
}

// NewPromptModel builds the model for one prompt.
func NewPromptModel(p bridge.Prompt) PromptModel {
	s := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(styles.Primary),
	)
	return PromptModel{
		prompt:  p,
		started: time.Now(),
		spinner: s,
		choice:  bridge.ChoiceCancel,
	}
}

// Choice returns the selected answer; meaningful only once Decided.
func (m PromptModel) Choice() bridge.Choice { return m.choice }

// Decided reports whether the user confirmed an answer.
func (m PromptModel) Decided() bool { return m.decided }

func (m PromptModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tickEvery())
}

func tickEvery() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m PromptModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tickMsg:
		return m, tickEvery()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m PromptModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key := msg.String(); key {
	case "up", "k":
		m.cursor--
		if m.cursor < 0 {
			m.cursor = len(promptOptions) - 1
		}

	case "down", "j":
		m.cursor++
		if m.cursor >= len(promptOptions) {
			m.cursor = 0
		}

	case "enter", " ":
		m.choice = promptOptions[m.cursor].choice
		m.decided = true
		return m, tea.Quit

	case "w", "r", "c":
		for i, opt := range promptOptions {
			if opt.key == key {
				m.cursor = i
				m.choice = opt.choice
				m.decided = true
				return m, tea.Quit
			}
		}

	case "q", "esc", "ctrl+c":
		m.choice = bridge.ChoiceCancel
		m.decided = true
		return m, tea.Quit
	}
	return m, nil
}

func (m PromptModel) View() string {
	if m.decided {
		return ""
	}

	var b strings.Builder

	b.WriteString(m.spinner.View())
	b.WriteString(styles.Title.Render("adb server is not answering"))
	b.WriteString("\n")
	b.WriteString(styles.Muted.Render(fmt.Sprintf("Attempt %d, waiting %s so far.", m.prompt.Attempt, m.elapsed())))
	b.WriteString("\n")

	if lines := m.errorLines(); len(lines) > 0 {
		b.WriteString("\n")
		b.WriteString(styles.Warning.Render("adb reported:"))
		b.WriteString("\n")
		b.WriteString(styles.ErrorBox.Render(styles.Error.Render(strings.Join(lines, "\n"))))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	for i, opt := range promptOptions {
		b.WriteString(m.renderOption(opt, i == m.cursor))
		b.WriteString("\n")
	}

	b.WriteString(styles.HelpBar.Render("j/k or arrows to select, enter to confirm, w/r/c to answer directly, esc to cancel"))
	b.WriteString("\n")
	return b.String()
}

func (m PromptModel) renderOption(opt promptOption, selected bool) string {
	label := fmt.Sprintf("%-15s", opt.label)
	hint := "[" + opt.key + "]"
	if selected {
		cursor := styles.Secondary.Render(">")
		return fmt.Sprintf("  %s %s %s %s",
			cursor, styles.HelpKey.Render(hint), styles.Text.Bold(true).Render(label), styles.Muted.Render(opt.detail))
	}
	return fmt.Sprintf("    %s %s %s",
		styles.Muted.Render(hint), styles.Muted.Render(label), styles.Muted.Render(opt.detail))
}

// elapsed is the total silence the user has sat through, including time
// spent looking at this prompt.
func (m PromptModel) elapsed() time.Duration {
	return (m.prompt.Elapsed + time.Since(m.started)).Round(time.Second)
}

// errorLines returns the tail of the daemon error output, each line cut
// to the terminal width. Adb output may carry its own escape codes, so
// the cut is ANSI-aware.
func (m PromptModel) errorLines() []string {
	text := strings.TrimSpace(m.prompt.Errors)
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	if len(lines) > maxErrorLines {
		lines = lines[len(lines)-maxErrorLines:]
	}

	width := m.width
	if width == 0 {
		width = 80
	}
	for i, line := range lines {
		lines[i] = util.TruncateANSI(line, width-6)
	}
	return lines
}
