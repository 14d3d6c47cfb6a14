package main

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"
)

type prompter interface {
	Credentials(email, password *string) error
	Code(title string) (string, error)
	Confirm(title string) (bool, error)
}

// huhPrompter asks on the terminal.
type huhPrompter struct{}

func (huhPrompter) Credentials(email, password *string) error {
	form := huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title("Email").
			Value(email).
			Validate(required("email")),
		huh.NewInput().
			Title("Password").
			EchoMode(huh.EchoModePassword).
			Value(password).
			Validate(required("password")),
	))
	if err := form.Run(); err != nil {
		return fmt.Errorf("prompt failed: %w", err)
	}
	return nil
}

func (huhPrompter) Code(title string) (string, error) {
	var code string
	input := huh.NewInput().
		Title(title).
		Placeholder("123456").
		CharLimit(6).
		Value(&code).
		Validate(required("code"))
	if err := huh.NewForm(huh.NewGroup(input)).Run(); err != nil {
		return "", fmt.Errorf("prompt failed: %w", err)
	}
	return code, nil
}

func (huhPrompter) Confirm(title string) (bool, error) {
	var ok bool
	confirm := huh.NewConfirm().Title(title).Value(&ok)
	if err := huh.NewForm(huh.NewGroup(confirm)).Run(); err != nil {
		return false, fmt.Errorf("prompt failed: %w", err)
	}
	return ok, nil
}

func required(name string) func(string) error {
	return func(s string) error {
		if s == "" {
			return errors.New(name + " is required")
		}
		return nil
	}
}
