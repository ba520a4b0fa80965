package integration

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"github.com/sandeepkv93/elearning-auth-service/internal/config"
	"github.com/sandeepkv93/elearning-auth-service/internal/di"
	"github.com/sandeepkv93/elearning-auth-service/internal/notify"
	"github.com/sandeepkv93/elearning-auth-service/internal/service"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code string `json:"code"`
	} `json:"error"`
}

type tokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// lockedBuffer collects JSON log lines written by concurrent handlers.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) lines() []map[string]any {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []map[string]any
	sc := bufio.NewScanner(bytes.NewReader(b.buf.Bytes()))
	for sc.Scan() {
		var m map[string]any
		if json.Unmarshal(sc.Bytes(), &m) == nil {
			out = append(out, m)
		}
	}
	return out
}

type stack struct {
	baseURL string
	client  *http.Client
	redis   *miniredis.Miniredis
	logs    *lockedBuffer
}

// newStackForTest wires the full application the way cmd/api does, on an
// in-memory sqlite database, miniredis and the log notifier.
func newStackForTest(t *testing.T) *stack {
	t.Helper()
	mr := miniredis.RunT(t)
	logs := &lockedBuffer{}
	logger := slog.New(slog.NewJSONHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	cfg := &config.Config{
		Env:                          "test",
		HTTPAddr:                     "127.0.0.1:0",
		LogLevel:                     "debug",
		DatabaseDriver:               "sqlite",
		DatabaseURL:                  fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_")),
		RedisAddr:                    mr.Addr(),
		JWTSecret:                    strings.Repeat("k", 32),
		JWTIssuer:                    "elearning-auth-test",
		JWTAudience:                  "elearning-test",
		JWTAccessTTL:                 15 * time.Minute,
		JWTRefreshTTL:                24 * time.Hour,
		BcryptCost:                   4,
		Notifier:                     "log",
		ResetURLBase:                 "https://learn.example.com/reset-password",
		OTELServiceName:              "elearning-auth-test",
		SessionRetention:             24 * time.Hour,
		ShutdownTimeout:              5 * time.Second,
		ShutdownHTTPDrainTimeout:     2 * time.Second,
		ShutdownObservabilityTimeout: time.Second,
	}
	a, cleanup, err := di.InitializeApp(context.Background(), cfg, logger, nil)
	if err != nil {
		t.Fatalf("initialize app: %v", err)
	}
	srv := httptest.NewServer(a.Server.Handler)
	t.Cleanup(func() {
		srv.Close()
		cleanup()
	})
	return &stack{baseURL: srv.URL, client: srv.Client(), redis: mr, logs: logs}
}

func (s *stack) do(t *testing.T, method, path string, body any, bearer string) (*http.Response, envelope) {
	t.Helper()
	var payload io.Reader = http.NoBody
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		payload = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, s.baseURL+path, payload)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()
	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode %s %s: %v", method, path, err)
	}
	return resp, env
}

func (s *stack) tokens(t *testing.T, method, path string, body any, want int) tokenPair {
	t.Helper()
	resp, env := s.do(t, method, path, body, "")
	if resp.StatusCode != want || !env.Success {
		t.Fatalf("%s %s: status=%d env=%+v", method, path, resp.StatusCode, env)
	}
	var pair tokenPair
	if err := json.Unmarshal(env.Data, &pair); err != nil {
		t.Fatalf("decode tokens: %v", err)
	}
	return pair
}

// resetTokenFromRedis reads the pending reset token for email from its redis
// key and checks the structured log only carries the token's fingerprint.
func (s *stack) resetTokenFromRedis(t *testing.T, email string) string {
	t.Helper()
	var token string
	for _, key := range s.redis.Keys() {
		v, err := s.redis.Get(key)
		if err == nil && v == email && strings.HasPrefix(key, service.PasswordResetKeyPrefix) {
			token = strings.TrimPrefix(key, service.PasswordResetKeyPrefix)
		}
	}
	if token == "" {
		t.Fatalf("no reset token stored for %s", email)
	}
	var fingerprint string
	for _, line := range s.logs.lines() {
		if line["recipient"] == email {
			fingerprint, _ = line["token_fingerprint"].(string)
		}
		for _, v := range line {
			if str, ok := v.(string); ok && strings.Contains(str, token) {
				t.Fatalf("reset token leaked into log line %v", line)
			}
		}
	}
	if fingerprint != notify.TokenFingerprint(token) {
		t.Fatalf("logged fingerprint %q does not match stored token", fingerprint)
	}
	return token
}
