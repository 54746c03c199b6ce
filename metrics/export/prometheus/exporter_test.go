package prometheus

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/session"
)

type fakeSource struct {
	snapshot authcore.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() authcore.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                    { return f.dropped }

func TestRenderEmptyWhenMetricsDisabled(t *testing.T) {
	exp := NewExporterFromSource(fakeSource{
		snapshot: authcore.MetricsSnapshot{
			Counters:   map[authcore.MetricID]uint64{},
			Histograms: map[authcore.MetricID][]uint64{},
		},
		dropped: 0,
	})

	if got := exp.Render(); got != "" {
		t.Fatalf("expected empty output for disabled metrics, got:\n%s", got)
	}
}

func TestRenderDeterministicIncludesCounterAndHistogram(t *testing.T) {
	exp := NewExporterFromSource(fakeSource{
		snapshot: authcore.MetricsSnapshot{
			Counters: map[authcore.MetricID]uint64{
				authcore.MetricLoginSuccess: 7,
			},
			Histograms: map[authcore.MetricID][]uint64{
				authcore.MetricValidateLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: 2,
	})

	out := exp.Render()
	if !strings.Contains(out, "authcore_login_success_total 7") {
		t.Fatalf("expected login_success counter in output, got:\n%s", out)
	}
	if !strings.Contains(out, "authcore_validate_latency_seconds_bucket{le=\"0.005\"} 1") {
		t.Fatalf("expected first histogram bucket in output, got:\n%s", out)
	}
	if !strings.Contains(out, "authcore_validate_latency_seconds_bucket{le=\"+Inf\"} 36") {
		t.Fatalf("expected +Inf cumulative bucket in output, got:\n%s", out)
	}
	if !strings.Contains(out, "authcore_audit_dropped_total 2") {
		t.Fatalf("expected audit dropped counter in output, got:\n%s", out)
	}
}

func TestRenderBreachCounters(t *testing.T) {
	exp := NewExporterFromSource(fakeSource{
		snapshot: authcore.MetricsSnapshot{
			Counters: map[authcore.MetricID]uint64{
				authcore.MetricRefreshReuseDetected: 2,
				authcore.MetricRefreshTokenMismatch: 1,
				authcore.MetricRevokeAllTriggered:   3,
			},
		},
	})

	out := exp.Render()
	for _, line := range []string{
		"authcore_refresh_reuse_detected_total 2",
		"authcore_refresh_token_mismatch_total 1",
		"authcore_revoke_all_triggered_total 3",
		"# TYPE authcore_refresh_race_lost_total counter",
	} {
		if !strings.Contains(out, line) {
			t.Fatalf("expected %q in output, got:\n%s", line, out)
		}
	}
}

func TestHandlerWritesPrometheusContentType(t *testing.T) {
	exp := NewExporterFromSource(fakeSource{
		snapshot: authcore.MetricsSnapshot{
			Counters:   map[authcore.MetricID]uint64{authcore.MetricLoginSuccess: 1},
			Histograms: map[authcore.MetricID][]uint64{},
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	exp.Handler().ServeHTTP(rec, req)

	if got := rec.Header().Get("Content-Type"); !strings.Contains(got, "text/plain") {
		t.Fatalf("expected prometheus content type, got %q", got)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func BenchmarkRender(b *testing.B) {
	exp := NewExporterFromSource(fakeSource{
		snapshot: authcore.MetricsSnapshot{
			Counters: map[authcore.MetricID]uint64{
				authcore.MetricLoginSuccess:         1000,
				authcore.MetricLoginFailure:         40,
				authcore.MetricRefreshSuccess:       800,
				authcore.MetricRefreshFailure:       10,
				authcore.MetricSessionCreated:       800,
				authcore.MetricSessionRevoked:       20,
				authcore.MetricRefreshReuseDetected: 3,
			},
			Histograms: map[authcore.MetricID][]uint64{
				authcore.MetricValidateLatency: {10, 20, 30, 40, 50, 60, 70, 80},
			},
		},
		dropped: 0,
	})

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = exp.Render()
	}
}

func TestRenderFromEngine(t *testing.T) {
	cfg := authcore.DefaultConfig()
	cfg.JWT.SigningMethod = "hs256"
	cfg.JWT.PrivateKey = []byte("0123456789abcdef0123456789abcdef")
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1

	engine, err := authcore.New().
		WithConfig(cfg).
		WithUserProvider(authcore.NewMemoryUserProvider(nil)).
		WithSessionStore(session.NewMemoryStore()).
		WithMetricsEnabled(true).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()

	_, _ = engine.Login(context.Background(), "nobody", "some-password-1")

	out := NewExporter(engine).Render()
	if !strings.Contains(out, "authcore_login_failure_total 1") {
		t.Fatalf("expected login failure counter, got:\n%s", out)
	}
}
