package interactive

import (
	"os"

	"github.com/pterm/pterm"
	"golang.org/x/term"
)

// Prompter asks a human for values. Text returns def when nothing is entered.
type Prompter interface {
	Text(label, def string) (string, error)
	Confirm(label string, def bool) (bool, error)
}

// TerminalPrompter prompts on the terminal with pterm.
type TerminalPrompter struct{}

func (TerminalPrompter) Text(label, def string) (string, error) {
	v, err := pterm.DefaultInteractiveTextInput.WithDefaultValue(def).Show(label)
	if err != nil {
		return "", err
	}
	if v == "" {
		return def, nil
	}
	return v, nil
}

func (TerminalPrompter) Confirm(label string, def bool) (bool, error) {
	return pterm.DefaultInteractiveConfirm.WithDefaultValue(def).Show(label)
}

// Attended reports whether both stdin and stdout are terminals.
func Attended() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}
