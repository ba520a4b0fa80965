package config

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestClassifyConfigLoadError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{name: "none", err: nil, want: "none"},
		{name: "validation", err: errors.New("validate config: JWT_SECRET must be at least 32 bytes"), want: "validation"},
		{name: "parse", err: errors.New("parse BCRYPT_COST: invalid syntax"), want: "parse"},
		{name: "env file", err: errors.New("read env file: unexpected character"), want: "env_file"},
		{name: "other", err: errors.New("permission denied"), want: "load"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := classifyConfigLoadError(tc.err); got != tc.want {
				t.Fatalf("classifyConfigLoadError()=%q want %q", got, tc.want)
			}
		})
	}
}

func TestNormalizeConfigProfile(t *testing.T) {
	cases := map[string]string{
		"  ProD  ":   "production",
		"production": "production",
		"Staging\t":  "staging",
		"local":      "development",
		"ci":         "test",
		"   ":        "unknown",
		"qa-eu-1":    "other",
	}
	for in, want := range cases {
		if got := normalizeConfigProfile(in); got != want {
			t.Fatalf("normalizeConfigProfile(%q)=%q want %q", in, got, want)
		}
	}
}

func TestIsProductionAcceptsAliases(t *testing.T) {
	for _, env := range []string{"production", "PROD", " prod "} {
		if !(&Config{Env: env}).IsProduction() {
			t.Fatalf("expected %q to be production", env)
		}
	}
	if (&Config{Env: "staging"}).IsProduction() {
		t.Fatal("staging must not count as production")
	}
}

func FuzzNormalizeConfigProfileRobustness(f *testing.F) {
	f.Add("  ProD  ")
	f.Add("   ")
	f.Add("")
	f.Add("Staging\t")
	f.Add(strings.Repeat("A", 4096))

	allowed := map[string]bool{"unknown": true, "production": true, "staging": true, "test": true, "development": true, "other": true}
	f.Fuzz(func(t *testing.T, raw string) {
		got := normalizeConfigProfile(raw)
		if !allowed[got] {
			t.Fatalf("profile %q outside the fixed set", got)
		}
		if strings.TrimSpace(raw) == "" && got != "unknown" {
			t.Fatalf("expected unknown for empty/whitespace input, got %q", got)
		}
		if !utf8.ValidString(got) {
			t.Fatalf("normalized profile must be valid UTF-8: %q", got)
		}
	})
}
