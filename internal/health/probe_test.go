package health

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type countingChecker struct {
	name    string
	healthy bool
	calls   atomic.Int32
}

func (c *countingChecker) Check(context.Context) CheckResult {
	c.calls.Add(1)
	res := CheckResult{Name: c.name, Healthy: c.healthy}
	if !c.healthy {
		res.Error = c.name + " down"
	}
	return res
}

type slowChecker struct{}

func (slowChecker) Check(ctx context.Context) CheckResult {
	<-ctx.Done()
	return CheckResult{Name: "slow"}
}

func TestProbeRunnerAggregatesResultsInOrder(t *testing.T) {
	ok := &countingChecker{name: "db", healthy: true}
	bad := &countingChecker{name: "redis"}
	p := NewProbeRunner(time.Second, 0, ok, bad)

	ready, results := p.Ready(context.Background())
	if ready {
		t.Fatal("expected not ready with one failing checker")
	}
	if len(results) != 2 || results[0].Name != "db" || results[1].Name != "redis" {
		t.Fatalf("unexpected results %+v", results)
	}
	if results[1].Error != "redis down" {
		t.Fatalf("unexpected error %q", results[1].Error)
	}
}

func TestProbeRunnerCachesWithinTTL(t *testing.T) {
	c := &countingChecker{name: "db", healthy: true}
	p := NewProbeRunner(time.Second, time.Minute, c)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return now }

	p.Ready(context.Background())
	p.Ready(context.Background())
	if got := c.calls.Load(); got != 1 {
		t.Fatalf("expected cached result, checker called %d times", got)
	}
	now = now.Add(2 * time.Minute)
	p.Ready(context.Background())
	if got := c.calls.Load(); got != 2 {
		t.Fatalf("expected refresh after ttl, checker called %d times", got)
	}
}

func TestProbeRunnerTimesOutSlowChecker(t *testing.T) {
	p := NewProbeRunner(20*time.Millisecond, 0, slowChecker{})
	ready, results := p.Ready(context.Background())
	if ready {
		t.Fatal("expected slow checker to fail readiness")
	}
	if results[0].Error == "" {
		t.Fatal("expected timeout error to be reported")
	}
}

func TestDBAndRedisCheckers(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if res := NewDBChecker(db).Check(context.Background()); !res.Healthy {
		t.Fatalf("expected healthy db, got %+v", res)
	}

	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	checker := NewRedisChecker(client)
	if res := checker.Check(context.Background()); !res.Healthy {
		t.Fatalf("expected healthy redis, got %+v", res)
	}
	server.SetError("LOADING")
	if res := checker.Check(context.Background()); res.Healthy {
		t.Fatal("expected redis error to fail the check")
	}
}
