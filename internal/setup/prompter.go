package setup

import (
	"github.com/pterm/pterm"
)

// Prompter is the operator on the other side of the wizard
type Prompter interface {
	Select(label string, options []string, defaultOption string) (string, error)
	Text(label, defaultValue string) (string, error)
	Info(msg string)
	Warn(msg string)
}

// TerminalPrompter drives the wizard with pterm's interactive widgets
type TerminalPrompter struct{}

func (TerminalPrompter) Select(label string, options []string, defaultOption string) (string, error) {
	sel := pterm.DefaultInteractiveSelect.WithOptions(options)
	if defaultOption != "" {
		sel = sel.WithDefaultOption(defaultOption)
	}
	return sel.Show(label)
}

func (TerminalPrompter) Text(label, defaultValue string) (string, error) {
	return pterm.DefaultInteractiveTextInput.WithDefaultValue(defaultValue).Show(label)
}

func (TerminalPrompter) Info(msg string) {
	pterm.Info.Println(msg)
}

func (TerminalPrompter) Warn(msg string) {
	pterm.Warning.Println(msg)
}
