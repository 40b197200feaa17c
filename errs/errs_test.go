package errs

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

func TestIsUniqueViolation(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"gorm", fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey), true},
		{"pgconn", &pgconn.PgError{Code: "23505"}, true},
		{"pgconn other", &pgconn.PgError{Code: "23503"}, false},
		{"sentinel", ErrUniqueConstraintViolation, true},
		{"text", errors.New(`ERROR: duplicate key value violates unique constraint "idx_keyword_unique"`), true},
		{"plain", errors.New("boom"), false},
	}
	for _, tc := range cases {
		if got := IsUniqueViolation(tc.err); got != tc.want {
			t.Fatalf("%s: got %v want %v", tc.name, got, tc.want)
		}
	}
}

func TestNewDatabaseErrorClassification(t *testing.T) {
	if e := NewDatabaseError("insert", "keyword", gorm.ErrDuplicatedKey); e.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate: got %d", e.StatusCode)
	}
	if e := NewDatabaseError("load", "project", gorm.ErrRecordNotFound); e.StatusCode != http.StatusNotFound || !IsNotFound(e) {
		t.Fatalf("not found: got %d", e.StatusCode)
	}
	stale := NewDatabaseError("update", "project", fmt.Errorf("update: %w", ErrStaleRecord))
	if stale.StatusCode != http.StatusConflict || stale.Reason != "stale_record" || !IsConflict(stale) {
		t.Fatalf("stale: got %d %q", stale.StatusCode, stale.Reason)
	}
	if e := NewDatabaseError("load", "project", errors.New("dial tcp: connection refused")); e.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("connection: got %d", e.StatusCode)
	}
	if e := NewDatabaseError("load", "project", errors.New("syntax")); e.StatusCode != http.StatusInternalServerError {
		t.Fatalf("generic: got %d", e.StatusCode)
	}
}

func TestApiErrUnwrapsCause(t *testing.T) {
	cause := errors.New("root")
	e := NewValidationError("duplicate_tag", "already present", cause)
	if !errors.Is(e, ErrValidation) || !errors.Is(e, cause) {
		t.Fatalf("Unwrap lost sentinel or cause")
	}
	if e.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status: got %d", e.StatusCode)
	}
	if got := e.GetFullError(); got != "validation failed: already present -> root" {
		t.Fatalf("GetFullError: got %q", got)
	}
}
