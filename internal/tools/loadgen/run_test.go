package loadgen

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestClassifyStatusClass(t *testing.T) {
	cases := map[int]string{
		200: "2xx",
		302: "3xx",
		404: "4xx",
		500: "5xx",
		100: "other",
	}
	for status, want := range cases {
		if got := classifyStatusClass(status); got != want {
			t.Fatalf("classifyStatusClass(%d)=%q want %q", status, got, want)
		}
	}
}

func TestNormalizeProfile(t *testing.T) {
	if got := normalizeProfile(""); got != "mixed" {
		t.Fatalf("normalizeProfile empty=%q want mixed", got)
	}
	if got := normalizeProfile("  AUTH  "); got != "auth" {
		t.Fatalf("normalizeProfile auth=%q want auth", got)
	}
	if got := normalizeProfile("Reset"); got != "reset" {
		t.Fatalf("normalizeProfile reset=%q want reset", got)
	}
}

func TestRunDrivesAuthCycle(t *testing.T) {
	var logouts atomic.Int32
	tokens := func(w http.ResponseWriter, status int) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]any{"data": map[string]string{"access_token": "a", "refresh_token": "r"}})
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auth/signup", func(w http.ResponseWriter, _ *http.Request) { tokens(w, http.StatusCreated) })
	mux.HandleFunc("/api/v1/auth/login", func(w http.ResponseWriter, _ *http.Request) { tokens(w, http.StatusOK) })
	mux.HandleFunc("/api/v1/auth/refresh", func(w http.ResponseWriter, _ *http.Request) { tokens(w, http.StatusOK) })
	mux.HandleFunc("/api/v1/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer a" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		logouts.Add(1)
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	res, err := Run(context.Background(), Config{BaseURL: srv.URL, Profile: "auth", Duration: 300 * time.Millisecond, RPS: 50, Concurrency: 2, Seed: 1})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.TotalRequests == 0 || res.Failures != 0 {
		t.Fatalf("unexpected result %+v", res)
	}
	if logouts.Load() == 0 {
		t.Fatal("expected at least one logout")
	}
}
