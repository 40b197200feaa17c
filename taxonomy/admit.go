package taxonomy

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/horizons-db/archive-backend/errs"
	"github.com/horizons-db/archive-backend/models"
	"github.com/horizons-db/archive-backend/prompt"
)

// Rejection reasons. Every rejection leaves the caller's set unchanged.
var (
	ErrEmptyTag            = errors.New("empty tag")
	ErrDuplicateTag        = errors.New("duplicate tag")
	ErrGenreLimitExceeded  = errors.New("genre limit exceeded")
	ErrUnknownGenre        = errors.New("unknown genre")
	ErrPersonNotFound      = errors.New("person not found")
	ErrAmbiguousPerson     = errors.New("ambiguous person name")
	ErrUserDeclinedNewTerm = errors.New("new term declined")
	ErrUnsupportedKind     = errors.New("unsupported tag kind")
)

// Rejection is a non-fatal refusal to admit a candidate.
type Rejection struct {
	Kind      models.TagKind
	Candidate string
	err       error
}

func (r *Rejection) Error() string {
	switch r.err {
	case ErrEmptyTag:
		return fmt.Sprintf("%s must not be empty", r.Kind)
	case ErrDuplicateTag:
		return fmt.Sprintf("%s %q is already added", r.Kind, r.Candidate)
	case ErrGenreLimitExceeded:
		return fmt.Sprintf("a project can have at most %d genres", models.MaxGenres)
	case ErrUnknownGenre:
		return fmt.Sprintf("%q is not a known genre", r.Candidate)
	case ErrPersonNotFound:
		return fmt.Sprintf("%s %q was not found", r.Kind, r.Candidate)
	case ErrAmbiguousPerson:
		return fmt.Sprintf("more than one person is named %q", r.Candidate)
	case ErrUserDeclinedNewTerm:
		return fmt.Sprintf("keyword %q was not added", r.Candidate)
	}
	return fmt.Sprintf("%s %q: %v", r.Kind, r.Candidate, r.err)
}

func (r *Rejection) Unwrap() error { return r.err }

// Reason is a stable machine-readable code for the rejection.
func (r *Rejection) Reason() string {
	switch r.err {
	case ErrEmptyTag:
		return "empty_tag"
	case ErrDuplicateTag:
		return "duplicate_tag"
	case ErrGenreLimitExceeded:
		return "genre_limit_exceeded"
	case ErrUnknownGenre:
		return "unknown_genre"
	case ErrPersonNotFound:
		return "person_not_found"
	case ErrAmbiguousPerson:
		return "ambiguous_person"
	case ErrUserDeclinedNewTerm:
		return "declined_new_term"
	}
	return "rejected"
}

func reject(kind models.TagKind, candidate string, err error) *Rejection {
	return &Rejection{Kind: kind, Candidate: candidate, err: err}
}

// IsRejection reports whether err is a validation rejection rather than a store failure.
func IsRejection(err error) bool {
	var r *Rejection
	return errors.As(err, &r)
}

// Normalize trims the candidate and lowercases keywords.
func Normalize(kind models.TagKind, candidate string) string {
	candidate = strings.TrimSpace(candidate)
	if kind == models.KindKeyword {
		candidate = strings.ToLower(candidate)
	}
	return candidate
}

// Admit validates candidate against current and returns the string to append.
// confirm is asked before a keyword is coined; it may be nil for other kinds.
func (g *Gate) Admit(ctx context.Context, confirm prompt.Prompter, kind models.TagKind, candidate string, current []string) (string, error) {
	tag := Normalize(kind, candidate)
	if tag == "" {
		return "", reject(kind, candidate, ErrEmptyTag)
	}
	if models.ContainsTag(current, tag) {
		return "", reject(kind, tag, ErrDuplicateTag)
	}
	if kind == models.KindGenre && len(current) >= models.MaxGenres {
		return "", reject(kind, tag, ErrGenreLimitExceeded)
	}

	switch kind {
	case models.KindKeyword:
		if err := g.admitKeyword(ctx, confirm, tag); err != nil {
			return "", err
		}
	case models.KindGenre:
		ok, err := g.store.GenreExists(ctx, tag)
		if err != nil {
			return "", fmt.Errorf("look up genre %q: %w", tag, err)
		}
		if !ok {
			return "", reject(kind, tag, ErrUnknownGenre)
		}
	case models.KindCreator, models.KindInstructor:
		people, err := g.store.FindPeopleByName(ctx, tag)
		if err != nil {
			return "", fmt.Errorf("look up %s %q: %w", kind, tag, err)
		}
		switch len(people) {
		case 0:
			return "", reject(kind, tag, ErrPersonNotFound)
		case 1:
			// Keep the catalog spelling so the draft matches what sync resolves.
			tag = people[0].Name
			if models.ContainsTag(current, tag) {
				return "", reject(kind, tag, ErrDuplicateTag)
			}
		default:
			return "", reject(kind, tag, ErrAmbiguousPerson)
		}
	case models.KindTech:
	default:
		return "", reject(kind, tag, ErrUnsupportedKind)
	}
	return tag, nil
}

func (g *Gate) admitKeyword(ctx context.Context, confirm prompt.Prompter, keyword string) error {
	exists, err := g.store.KeywordExists(ctx, keyword)
	if err != nil {
		return fmt.Errorf("look up keyword %q: %w", keyword, err)
	}
	if exists {
		return nil
	}
	if confirm == nil {
		return reject(models.KindKeyword, keyword, ErrUserDeclinedNewTerm)
	}
	ok, err := confirm.Ask(ctx, prompt.Prompt{
		Title:   "New keyword",
		Message: fmt.Sprintf("%q is not in the keyword list yet. Add it?", keyword),
	})
	if err != nil {
		return err
	}
	if !ok {
		return reject(models.KindKeyword, keyword, ErrUserDeclinedNewTerm)
	}
	if err := g.store.InsertKeyword(ctx, keyword, g.createdBy); err != nil {
		if errs.IsUniqueViolation(err) {
			g.logger.Debug().Str("keyword", keyword).Msg("keyword inserted concurrently")
			return nil
		}
		return fmt.Errorf("insert keyword %q: %w", keyword, err)
	}
	g.logger.Info().Str("keyword", keyword).Msg("new keyword added to catalog")
	return nil
}

// AdmitAll admits candidates in order, each against the tags admitted before it.
// It stops at the first rejection or failure.
func (g *Gate) AdmitAll(ctx context.Context, confirm prompt.Prompter, kind models.TagKind, candidates []string) ([]string, error) {
	admitted := []string{}
	for _, c := range candidates {
		tag, err := g.Admit(ctx, confirm, kind, c, admitted)
		if err != nil {
			return nil, err
		}
		admitted = append(admitted, tag)
	}
	return admitted, nil
}

// Remove returns current without candidate. Keywords are matched on their
// normalized form.
func Remove(kind models.TagKind, candidate string, current []string) []string {
	tag := Normalize(kind, candidate)
	out := make([]string, 0, len(current))
	for _, v := range current {
		if v != tag {
			out = append(out, v)
		}
	}
	return out
}
