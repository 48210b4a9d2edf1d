// Package app wires together whisperd's engine domains, session registry,
// and HTTP/WebSocket surfaces into one process lifecycle: construct,
// run until cancelled, shut down.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/whisperd/whisperd/internal/audio"
	"github.com/whisperd/whisperd/internal/config"
	"github.com/whisperd/whisperd/internal/engine"
	"github.com/whisperd/whisperd/internal/health"
	"github.com/whisperd/whisperd/internal/httpapi"
	"github.com/whisperd/whisperd/internal/observe"
	"github.com/whisperd/whisperd/internal/session"
	"github.com/whisperd/whisperd/internal/wsapi"
)

// App holds every long-lived component started at process startup: the
// two engine serialization domains, the session registry, and the HTTP
// and WebSocket listeners that front them.
type App struct {
	cfg *config.Config
	log *slog.Logger

	cold *engine.Domain
	hot  *engine.Domain

	registry *session.Registry
	metrics  *observe.Metrics

	httpAPI *httpapi.Server
	wsAPI   *wsapi.Server

	httpSrv *http.Server
	wsSrv   *http.Server

	closers  []func() error
	stopOnce sync.Once
}

// New loads both engine domains from cfg via loader and builds the
// session registry and both HTTP surfaces around the given metrics,
// returning a fully wired [App] ready for [App.Run]. A failure to load
// either model is fatal per spec §4.2 — the caller should exit with
// code 3.
//
// metrics and loader are passed in rather than resolved internally:
// metrics so the caller controls the OTel provider lifecycle
// ([observe.InitProvider] is documented to be called once from main,
// not from deep inside app construction), and loader so tests can
// substitute [engine.StubLoader] without a whisper_native build.
func New(cfg *config.Config, log *slog.Logger, loader engine.Loader, metrics *observe.Metrics) (*App, error) {
	if log == nil {
		log = slog.Default()
	}
	if loader == nil {
		loader = engine.DefaultLoader()
	}
	if metrics == nil {
		metrics = observe.DefaultMetrics()
	}

	coldEngine, err := engine.Load(cfg.Models.Cold.Path, cfg.Models.Cold.Options(), loader)
	if err != nil {
		return nil, fmt.Errorf("app: load cold model: %w", err)
	}
	hotEngine, err := engine.Load(cfg.Models.Hot.Path, cfg.Models.Hot.Options(), loader)
	if err != nil {
		_ = coldEngine.Close()
		return nil, fmt.Errorf("app: load hot model: %w", err)
	}

	cold := engine.NewDomain("cold", coldEngine, cfg.Models.Cold.Path, cfg.Models.Cold.Options(), log)
	hot := engine.NewDomain("hot", hotEngine, cfg.Models.Hot.Path, cfg.Models.Hot.Options(), log)

	onIdle := func(s *session.Session) {
		if err := s.Send.Close("idle timeout"); err != nil {
			log.Warn("app: error closing idle session", "session", s.ID, "err", err)
		}
	}
	idleTimeout := time.Duration(cfg.Server.IdleTimeoutSeconds) * time.Second
	registry := session.New(cfg.Server.MaxWSSessions, idleTimeout, onIdle, log)

	var converter *audio.Converter
	if cfg.Server.EnableConverter {
		converter = audio.NewConverter(cfg.Server.FFmpegPath)
	}
	decoder := audio.NewDecoder(converter, log)

	httpAPI := httpapi.New(cfg, cold, hot, registry, decoder, metrics, log)
	httpAPI.ColdOptions = cfg.Models.Cold.Options()
	httpAPI.ColdLoader = loader

	wsAPI := wsapi.New(cfg, hot, registry, metrics, log)

	healthHandler := health.New(
		health.NewModelChecker("cold", cold),
		health.NewModelChecker("hot", hot),
	)

	outerMux := http.NewServeMux()
	outerMux.Handle("/metrics", promhttp.Handler())
	healthHandler.Register(outerMux)
	outerMux.Handle("/", httpAPI.Mux())

	readTimeout := time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second
	writeTimeout := time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second

	httpSrv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.HTTPPort),
		Handler:      observe.Middleware(metrics)(outerMux),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		ConnContext:  httpapi.ConnContext,
		ConnState: func(c net.Conn, state http.ConnState) {
			if state == http.StateClosed || state == http.StateHijacked {
				httpAPI.ForgetConn(c)
			}
		},
	}

	wsSrv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.EffectiveWSPort()),
		Handler:      wsAPI.Handler(),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}

	a := &App{
		cfg:      cfg,
		log:      log,
		cold:     cold,
		hot:      hot,
		registry: registry,
		metrics:  metrics,
		httpAPI:  httpAPI,
		wsAPI:    wsAPI,
		httpSrv:  httpSrv,
		wsSrv:    wsSrv,
	}
	a.closers = []func() error{
		func() error { registry.Stop(); return nil },
		func() error { return coldEngine.Close() },
		func() error { return hotEngine.Close() },
	}
	return a, nil
}

// Run starts both listeners and blocks until ctx is cancelled or either
// listener fails, then shuts everything down. The two listeners are
// independent surfaces (spec §4.7/§4.3), but a fatal failure of one
// takes the whole process down with it — there is no degraded mode
// where only one surface is up.
func (a *App) Run(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.log.Info("app: http listening", "addr", a.httpSrv.Addr)
		if err := a.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("app: http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		a.log.Info("app: websocket listening", "addr", a.wsSrv.Addr)
		if err := a.wsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("app: websocket server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		return a.shutdownServers()
	})

	err := g.Wait()
	a.Shutdown(context.Background())
	return err
}

// shutdownServers gracefully stops both HTTP listeners using the
// configured write timeout as the drain deadline.
func (a *App) shutdownServers() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.httpSrv.WriteTimeout)
	defer cancel()
	var errs []error
	if err := a.httpSrv.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := a.wsSrv.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	for _, e := range errs {
		if e != nil {
			return e
		}
	}
	return nil
}

// Shutdown releases every resource [New] acquired: the session
// registry's idle-reap sweep and both engine handles. It does not touch
// the OTel providers [New]'s caller set up — those are the caller's own
// to shut down in the same defer that called [observe.InitProvider].
// Safe to call more than once; only the first call does anything.
func (a *App) Shutdown(context.Context) {
	a.stopOnce.Do(func() {
		for _, closer := range a.closers {
			if err := closer(); err != nil {
				a.log.Warn("app: error during shutdown", "err", err)
			}
		}
	})
}
