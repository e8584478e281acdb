package storage

import "errors"

var (
	// ErrProviderNotFound is returned when a provider is not found
	ErrProviderNotFound = errors.New("provider not found")

	// ErrProviderActive is returned when deleting the active provider
	ErrProviderActive = errors.New("provider is active")

	// ErrNoActiveProvider is returned when no provider is marked active
	ErrNoActiveProvider = errors.New("no active provider")

	// ErrPromptNotFound is returned when a prompt is not found
	ErrPromptNotFound = errors.New("prompt not found")

	// ErrNoDefaultPrompt is returned when no prompt is marked default
	ErrNoDefaultPrompt = errors.New("no default prompt")
)
