// Package main boots the GNG store HTTP server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fairyhunter13/gng-store/internal/config"
	"github.com/fairyhunter13/gng-store/internal/feed"
	httpapi "github.com/fairyhunter13/gng-store/internal/http"
	"github.com/fairyhunter13/gng-store/internal/kv"
	"github.com/fairyhunter13/gng-store/internal/obs"
	"github.com/fairyhunter13/gng-store/internal/store"
)

func main() {
	cfg := config.Load()
	obs.InitLogger(cfg.LogLevel)
	obs.Logger.Info("service_starting", "backend", cfg.StoreBackend, "key", cfg.StoreKey)

	backend, err := kv.Open(cfg)
	if err != nil {
		obs.Logger.Error("store_backend_error", "error", err)
		os.Exit(1)
	}
	ctx, cancel := context.WithTimeout(context.Background(), cfg.PersistTimeout)
	if r, ok := backend.(*kv.Redis); ok {
		if err := r.Ping(ctx); err != nil {
			obs.Logger.Warn("redis_unreachable", "addr", cfg.RedisAddr, "error", err)
		}
	}

	metrics := obs.NewMetrics()
	st := store.Open(ctx, backend,
		store.WithKey(cfg.StoreKey),
		store.WithPersistTimeout(cfg.PersistTimeout),
		store.WithMetrics(metrics),
	)
	cancel()
	metrics.TrackSummary(st.Summary)

	hub := feed.New(cfg.FeedBuffer)
	unsubscribe := st.Subscribe(hub.OnChange)

	app := httpapi.NewApp(cfg, st, hub, metrics)
	mux := httpapi.NewRouter(app)

	// WriteTimeout does not cut event streams; the SSE handler clears its
	// own deadline.
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		obs.Logger.Info("http_listen", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			obs.Logger.Error("http_server_error", "error", err)
			os.Exit(1)
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	s := <-sigc
	obs.Logger.Info("shutdown_signal", "signal", s.String())

	app.StartShutdown()
	unsubscribe()

	ctxSrv, cancelSrv := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancelSrv()
	if err := srv.Shutdown(ctxSrv); err != nil {
		obs.Logger.Error("http_shutdown_error", "error", err)
	}
	if err := backend.Close(); err != nil {
		obs.Logger.Warn("store_backend_close_error", "error", err)
	}
	obs.Logger.Info("service_stopped")
}
