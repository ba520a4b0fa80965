package loadgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

type Config struct {
	BaseURL     string
	Profile     string
	Duration    time.Duration
	RPS         int
	Concurrency int
	Seed        int64
}

type Result struct {
	TotalRequests int
	Failures      int
	ByStatusClass map[string]int
}

// Run drives signup/login/refresh/logout cycles (profile "auth"),
// forgot-password requests (profile "reset") or a seeded mix of both
// against a running API until Duration elapses.
func Run(ctx context.Context, cfg Config) (Result, error) {
	cfg = withDefaults(cfg)
	ctx, cancel := context.WithTimeout(ctx, cfg.Duration)
	defer cancel()

	rec := &recorder{byClass: map[string]int{}}
	client := &http.Client{Timeout: 10 * time.Second}
	interval := time.Second / time.Duration(cfg.RPS)
	limiter := time.NewTicker(interval)
	defer limiter.Stop()
	tokens := make(chan struct{})
	go func() {
		defer close(tokens)
		for {
			select {
			case <-ctx.Done():
				return
			case <-limiter.C:
				select {
				case tokens <- struct{}{}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	var g errgroup.Group
	for w := 0; w < cfg.Concurrency; w++ {
		rng := rand.New(rand.NewSource(cfg.Seed + int64(w)))
		g.Go(func() error {
			u := &virtualUser{client: client, baseURL: cfg.BaseURL, rec: rec, email: fmt.Sprintf("loadgen-%d-%d@example.com", cfg.Seed, w)}
			for range tokens {
				if profileFor(cfg.Profile, rng) == "reset" {
					u.forgotPassword(ctx)
					continue
				}
				u.authCycle(ctx)
			}
			return nil
		})
	}
	_ = g.Wait()
	return rec.result(), nil
}

func withDefaults(cfg Config) Config {
	cfg.Profile = normalizeProfile(cfg.Profile)
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Duration <= 0 {
		cfg.Duration = 10 * time.Second
	}
	if cfg.RPS <= 0 {
		cfg.RPS = 10
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	return cfg
}

func normalizeProfile(p string) string {
	switch strings.ToLower(strings.TrimSpace(p)) {
	case "auth":
		return "auth"
	case "reset":
		return "reset"
	default:
		return "mixed"
	}
}

func profileFor(profile string, rng *rand.Rand) string {
	if profile != "mixed" {
		return profile
	}
	if rng.Intn(4) == 0 {
		return "reset"
	}
	return "auth"
}

func classifyStatusClass(status int) string {
	switch {
	case status >= 200 && status < 300:
		return "2xx"
	case status >= 300 && status < 400:
		return "3xx"
	case status >= 400 && status < 500:
		return "4xx"
	case status >= 500 && status < 600:
		return "5xx"
	default:
		return "other"
	}
}

type recorder struct {
	mu      sync.Mutex
	total   int
	failed  int
	byClass map[string]int
}

func (r *recorder) record(status int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.total++
	if err != nil {
		r.failed++
		r.byClass["error"]++
		return
	}
	class := classifyStatusClass(status)
	r.byClass[class]++
	if class == "5xx" || class == "other" {
		r.failed++
	}
}

func (r *recorder) result() Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	byClass := make(map[string]int, len(r.byClass))
	for k, v := range r.byClass {
		byClass[k] = v
	}
	return Result{TotalRequests: r.total, Failures: r.failed, ByStatusClass: byClass}
}

type virtualUser struct {
	client     *http.Client
	baseURL    string
	rec        *recorder
	email      string
	registered bool
}

const loadgenPassword = "loadgen-password"

func (u *virtualUser) authCycle(ctx context.Context) {
	var tokens struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	if !u.registered {
		status, _ := u.post(ctx, "/api/v1/auth/signup", "", map[string]string{"email": u.email, "password": loadgenPassword, "full_name": "Load Generator"}, nil)
		u.registered = status == http.StatusCreated || status == http.StatusConflict
		if !u.registered {
			return
		}
	}
	status, _ := u.post(ctx, "/api/v1/auth/login", "", map[string]string{"email": u.email, "password": loadgenPassword}, &tokens)
	if status != http.StatusOK {
		return
	}
	if status, _ := u.post(ctx, "/api/v1/auth/refresh", "", map[string]string{"refresh_token": tokens.RefreshToken}, &tokens); status != http.StatusOK {
		return
	}
	_, _ = u.post(ctx, "/api/v1/auth/logout", tokens.AccessToken, nil, nil)
}

func (u *virtualUser) forgotPassword(ctx context.Context) {
	_, _ = u.post(ctx, "/api/v1/auth/forgot-password", "", map[string]string{"email": u.email}, nil)
}

func (u *virtualUser) post(ctx context.Context, path, bearer string, body any, out any) (int, error) {
	var payload io.Reader = http.NoBody
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		payload = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.baseURL+path, payload)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := u.client.Do(req)
	if err != nil {
		if ctx.Err() == nil {
			u.rec.record(0, err)
		}
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()
	u.rec.record(resp.StatusCode, nil)
	if out != nil && resp.StatusCode < 300 {
		var env struct {
			Data json.RawMessage `json:"data"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
			return resp.StatusCode, err
		}
		if err := json.Unmarshal(env.Data, out); err != nil {
			return resp.StatusCode, err
		}
	}
	return resp.StatusCode, nil
}
