// Package prompt abstracts the yes/no confirmation the core asks before
// consequential actions, so callers can answer from a terminal, an HTTP
// request or a test.
package prompt

import (
	"context"
	"errors"
)

// ErrUnanswered is returned by prompters that have no answer for a question.
var ErrUnanswered = errors.New("confirmation required")

// Prompt is a single yes/no question.
type Prompt struct {
	Title       string `json:"title"`
	Message     string `json:"message"`
	Destructive bool   `json:"destructive"`
}

// Prompter answers a Prompt. A false answer with nil error is a decline.
type Prompter interface {
	Ask(ctx context.Context, p Prompt) (bool, error)
}

// Func adapts a function to Prompter.
type Func func(ctx context.Context, p Prompt) (bool, error)

func (f Func) Ask(ctx context.Context, p Prompt) (bool, error) {
	return f(ctx, p)
}

// Always answers every prompt with answer.
func Always(answer bool) Prompter {
	return Func(func(ctx context.Context, _ Prompt) (bool, error) {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		return answer, nil
	})
}

// Recorder answers with Answer and keeps every prompt it was asked.
type Recorder struct {
	Answer bool
	Asked  []Prompt
}

func (r *Recorder) Ask(_ context.Context, p Prompt) (bool, error) {
	r.Asked = append(r.Asked, p)
	return r.Answer, nil
}

// Preset answers from an optional decision and records the first unanswered
// prompt. A nil decision yields ErrUnanswered.
type Preset struct {
	Decision *bool
	Pending  *Prompt
}

func (p *Preset) Ask(_ context.Context, q Prompt) (bool, error) {
	if p.Decision == nil {
		if p.Pending == nil {
			asked := q
			p.Pending = &asked
		}
		return false, ErrUnanswered
	}
	return *p.Decision, nil
}
