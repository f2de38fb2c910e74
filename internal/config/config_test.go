package config

import (
	"testing"

	"github.com/google/uuid"
)

func TestIsAdmin(t *testing.T) {
	authority := uuid.New()

	cfg := &Config{}
	cfg.Settlement.AdminUserID = authority

	if !cfg.IsAdmin(authority) {
		t.Error("configured authority should pass the admin check")
	}
	if cfg.IsAdmin(uuid.New()) {
		t.Error("a different id must not pass the admin check")
	}
	if cfg.IsAdmin(uuid.Nil) {
		t.Error("the zero uuid must not pass the admin check")
	}

	unset := &Config{}
	if unset.IsAdmin(uuid.Nil) || unset.IsAdmin(uuid.New()) {
		t.Error("an unset authority must grant nobody admin power")
	}
}
