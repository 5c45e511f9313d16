package config

import (
	"errors"
	"os"
	"testing"

	"github.com/hodger/cyclus/internal/simerr"
)

func TestRequireCyclusPathErrorsWhenUnset(t *testing.T) {
	t.Setenv(CyclusPathEnv, "")
	if _, err := RequireCyclusPath(); !errors.Is(err, simerr.ErrIO) {
		t.Fatalf("RequireCyclusPath() error = %v, want wrapping simerr.ErrIO", err)
	}
}

func TestRequireCyclusPathReturnsValueWhenSet(t *testing.T) {
	t.Setenv(CyclusPathEnv, "/opt/cyclus")
	got, err := RequireCyclusPath()
	if err != nil {
		t.Fatalf("RequireCyclusPath(): %v", err)
	}
	if got != "/opt/cyclus" {
		t.Fatalf("RequireCyclusPath() = %q, want /opt/cyclus", got)
	}
}

func TestEnvOrDefaultFallsBackWhenUnset(t *testing.T) {
	key := "CYCLUS_TEST_ENV_OR_DEFAULT"
	os.Unsetenv(key)
	if got := EnvOrDefault(key, "fallback"); got != "fallback" {
		t.Fatalf("EnvOrDefault = %q, want fallback", got)
	}
	t.Setenv(key, "set")
	if got := EnvOrDefault(key, "fallback"); got != "set" {
		t.Fatalf("EnvOrDefault = %q, want set", got)
	}
}

func TestEnvIntOrDefaultFallsBackOnUnparseable(t *testing.T) {
	key := "CYCLUS_TEST_ENV_INT_OR_DEFAULT"
	t.Setenv(key, "not-a-number")
	if got := EnvIntOrDefault(key, 42); got != 42 {
		t.Fatalf("EnvIntOrDefault = %d, want 42", got)
	}
	t.Setenv(key, "7")
	if got := EnvIntOrDefault(key, 42); got != 7 {
		t.Fatalf("EnvIntOrDefault = %d, want 7", got)
	}
}
