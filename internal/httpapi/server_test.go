package httpapi

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/whisperd/whisperd/internal/audio"
	"github.com/whisperd/whisperd/internal/config"
	"github.com/whisperd/whisperd/internal/engine"
	"github.com/whisperd/whisperd/internal/observe"
	"github.com/whisperd/whisperd/internal/session"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testMetrics(t *testing.T) *observe.Metrics {
	t.Helper()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewManualReader()))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	m, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("observe.NewMetrics: %v", err)
	}
	return m
}

// newTestServer builds a Server with stub-backed cold/hot domains and
// starts it behind an httptest.Server with ConnContext wired, so the
// per-connection ring keying in ringFor behaves as it does in production.
func newTestServer(t *testing.T, respond func(params engine.Params, samples []float32) ([]engine.Segment, error)) (*Server, *httptest.Server) {
	t.Helper()

	coldStub := engine.NewStub()
	hotStub := engine.NewStub()
	if respond != nil {
		coldStub.Respond = respond
		hotStub.Respond = respond
	}
	log := testLogger()
	cold := engine.NewDomain("cold", coldStub, "cold.bin", engine.Options{}, log)
	hot := engine.NewDomain("hot", hotStub, "hot.bin", engine.Options{}, log)

	reg := session.New(10, time.Minute, nil, log)
	t.Cleanup(reg.Stop)

	dec := audio.NewDecoder(nil, log)

	defaults := config.Defaults()
	cfg := &defaults

	s := New(cfg, cold, hot, reg, dec, testMetrics(t), log)
	s.Fatal = func(code int) { t.Logf("httpapi: Fatal(%d) called (suppressed in test)", code) }

	ts := httptest.NewUnstartedServer(s.Mux())
	ts.Config.ConnContext = ConnContext
	ts.Start()
	t.Cleanup(ts.Close)

	return s, ts
}
