package storage

import (
	"context"
	"errors"

	"review_gateway/internal/models"
)

// Built-in prompt ids.
const (
	DefaultPromptID = "default-prompt"
	SimplePromptID  = "simple-prompt"
)

const defaultPromptContent = `[Instructions]
You are a senior engineer responsible for mentoring developers who are still learning.
Review the source code below written by a learner.

[Purpose]
- Keep comments encouraging so the author stays motivated.

[Review points]
- [Required] Indentation is consistent
- [Required] Naming conventions for classes, variables and methods are followed and consistent
- [Required] The code follows object-oriented design where the language supports it
- [Opinion] Methods are split to a sensible size
- [Required] The code is readable and maintainable

[Output format]
Output the whole program with a comment added on the line above each line that needs attention.`

const simplePromptContent = `You are a code reviewer.
Review the following code.

[Review points]
- Coding convention compliance
- Readability
- Obvious bugs

[Output format]
Write review results as comments inside the code.
- [Required] problems that must be fixed
- [Opinion] suggested improvements
- [Info] supplementary notes`

func builtinPrompts() []*models.Prompt {
	return []*models.Prompt{
		{
			ID:          DefaultPromptID,
			Name:        "Code Review",
			Description: strPtr("Detailed review points for learners"),
			Content:     defaultPromptContent,
			IsDefault:   true,
		},
		{
			ID:          SimplePromptID,
			Name:        "Quick Review",
			Description: strPtr("Short general-purpose review"),
			Content:     simplePromptContent,
		},
	}
}

// SeedPrompts installs the built-in prompts that are missing. The built-in
// default only takes the default flag when no other prompt holds it. It
// returns the number of prompts created.
func SeedPrompts(ctx context.Context, repo *PromptRepository) (int, error) {
	_, err := repo.GetDefault(ctx)
	hasDefault := err == nil
	if err != nil && !errors.Is(err, ErrNoDefaultPrompt) {
		return 0, err
	}

	created := 0
	for _, p := range builtinPrompts() {
		if _, err := repo.GetByID(ctx, p.ID); err == nil {
			continue
		} else if !errors.Is(err, ErrPromptNotFound) {
			return created, err
		}

		if hasDefault {
			p.IsDefault = false
		}
		if err := repo.Create(ctx, p); err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}

func strPtr(s string) *string { return &s }
