package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
)

func TestUniqueViolation(t *testing.T) {
	dup := &pq.Error{Code: "23505", Constraint: "users_email_key"}
	if got := uniqueViolation(dup); got != "users_email_key" {
		t.Errorf("constraint = %q, want users_email_key", got)
	}
	// As long as the chain carries the pq error, wrapping must not hide it.
	if got := uniqueViolation(fmt.Errorf("insert: %w", dup)); got != "users_email_key" {
		t.Errorf("wrapped constraint = %q, want users_email_key", got)
	}
	if got := uniqueViolation(&pq.Error{Code: "23503", Constraint: "positions_market_id_fkey"}); got != "" {
		t.Errorf("foreign key violation: got %q, want empty", got)
	}
	if got := uniqueViolation(errors.New("connection reset")); got != "" {
		t.Errorf("plain error: got %q, want empty", got)
	}
	if got := uniqueViolation(nil); got != "" {
		t.Errorf("nil error: got %q, want empty", got)
	}
}
