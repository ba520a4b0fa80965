package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/sandeepkv93/elearning-auth-service/internal/config"
)

func TestRecordAuthOperationCountsByStatus(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := newAppMetrics(mp.Meter(meterName))
	if err != nil {
		t.Fatalf("new metrics: %v", err)
	}
	setAppMetrics(m)
	t.Cleanup(func() { setAppMetrics(nil) })

	ctx := context.Background()
	RecordAuthOperation(ctx, "login", "success")
	RecordAuthOperation(ctx, "login", "success")
	RecordAuthOperation(ctx, "login", "authentication_failure")

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	counts := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			if md.Name != "auth.operations" {
				continue
			}
			sum, ok := md.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("unexpected data type %T", md.Data)
			}
			for _, dp := range sum.DataPoints {
				status, _ := dp.Attributes.Value(attribute.Key("status"))
				counts[status.AsString()] += dp.Value
			}
		}
	}
	if counts["success"] != 2 || counts["authentication_failure"] != 1 {
		t.Fatalf("unexpected counts: %v", counts)
	}
}

func TestRecordersAreNoopWithoutInit(t *testing.T) {
	setAppMetrics(nil)
	ctx := context.Background()
	RecordAuthOperation(ctx, "logout", "success")
	RecordAccessTokenValidation(ctx, "valid", "bearer")
	RecordRepositoryOperation(ctx, "session", "create", "success")
	RecordResetTokenStore(ctx, "redis", "put", "success")
}

func TestNewLoggerWritesJSONWhenOTelLogsDisabled(t *testing.T) {
	var buf bytes.Buffer
	cfg := &config.Config{OTELServiceName: "auth-test", LogLevel: "debug"}
	logger, lp, err := NewLogger(context.Background(), cfg, &buf)
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	if lp != nil {
		t.Fatal("expected no logger provider when otel logs are disabled")
	}
	Audit(context.Background(), logger, "auth.logout", "session_id", 7)

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if rec["msg"] != "audit" || rec["event"] != "auth.logout" || rec["service"] != "auth-test" {
		t.Fatalf("unexpected record: %v", rec)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q)=%v want %v", in, got, want)
		}
	}
}
