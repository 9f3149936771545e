package cmd

import (
	"github.com/charmbracelet/huh"
)

// SelectOption pairs a menu label with the value it stands for.
type SelectOption[T any] struct {
	Label string
	Value T
}

// askOne shows a single field as its own form, key hints included.
func askOne(field huh.Field) error {
	form := huh.NewForm(huh.NewGroup(field)).WithShowHelp(true)
	return form.Run()
}

// promptString asks for free text. The current value is offered as a
// placeholder and kept when the answer is left blank.
func promptString(title, description, current string) (string, error) {
	var answer string
	field := huh.NewInput().Title(title).Value(&answer)
	if description != "" {
		field = field.Description(description)
	}
	if current != "" {
		field = field.Placeholder(current)
	}

	if err := askOne(field); err != nil {
		return "", err
	}
	if answer == "" {
		answer = current
	}
	return answer, nil
}

// promptSelect asks the user to pick one option; preselect marks the
// highlighted entry and is ignored when out of range.
func promptSelect[T comparable](title string, options []SelectOption[T], preselect int) (T, error) {
	var picked T

	choices := make([]huh.Option[T], 0, len(options))
	for i, opt := range options {
		choice := huh.NewOption(opt.Label, opt.Value)
		if i == preselect {
			choice = choice.Selected(true)
		}
		choices = append(choices, choice)
	}

	field := huh.NewSelect[T]().Title(title).Options(choices...).Value(&picked)
	if err := askOne(field); err != nil {
		var zero T
		return zero, err
	}
	return picked, nil
}

// promptConfirm asks a yes/no question, starting from current.
func promptConfirm(title string, current bool) (bool, error) {
	answer := current
	field := huh.NewConfirm().
		Title(title).
		Affirmative("Yes").
		Negative("No").
		Value(&answer)

	if err := askOne(field); err != nil {
		return false, err
	}
	return answer, nil
}
