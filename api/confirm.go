package api

import (
	"errors"

	"github.com/horizons-db/archive-backend/prompt"
)

// pendingConfirmation carries the question a request could not answer.
type pendingConfirmation struct {
	Prompt prompt.Prompt
}

func (p *pendingConfirmation) Error() string {
	return "confirmation required: " + p.Prompt.Title
}

func (p *pendingConfirmation) Unwrap() error { return prompt.ErrUnanswered }

// requestPrompter answers prompts from the request's optional "confirm" value.
func requestPrompter(decision *bool) *prompt.Preset {
	return &prompt.Preset{Decision: decision}
}

// withPending replaces ErrUnanswered with the question that was left open so
// the client can ask the user and repeat the request.
func withPending(p *prompt.Preset, err error) error {
	if err == nil || p.Pending == nil || !errors.Is(err, prompt.ErrUnanswered) {
		return err
	}
	return &pendingConfirmation{Prompt: *p.Pending}
}
