// Command rigd runs the rig coordination core with the storage selected by
// the environment and serves its metrics.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	promadapter "github.com/codewandler/rigcore-go/adapters/prometheus"
	"github.com/codewandler/rigcore-go/core/app"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := LoadConfig()
	if err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(2)
	}

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(log)

	if err := run(ctx, cfg, log); err != nil {
		log.Error("rigd failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg Config, log *slog.Logger) error {
	metrics := promadapter.NewAllMetrics(prometheus.DefaultRegisterer)

	// === metrics server ===
	if cfg.MetricsAddr != "" {
		promMux := http.NewServeMux()
		promMux.Handle("/metrics", promhttp.Handler())
		promServer := &http.Server{Addr: cfg.MetricsAddr, Handler: promMux}
		go func() {
			log.Info("prometheus metrics server starting", slog.String("addr", cfg.MetricsAddr))
			if err := promServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("prometheus server error", slog.Any("error", err))
			}
		}()
		defer promServer.Shutdown(context.Background())
	}

	// === stores ===
	st, err := openStores(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.Store, err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Warn("closing stores failed", slog.Any("error", err))
		}
	}()

	// === root ===
	root, err := app.New(app.Config{
		Context:    ctx,
		Log:        log,
		BusMetrics: metrics.Bus,
		SetMetrics: metrics.Set,
		Persisters: st.Persisters,
	})
	if err != nil {
		return err
	}
	defer root.Close()

	if err := root.Init(ctx); err != nil {
		log.Warn("some collections failed to load and start empty", slog.Any("error", err))
	}

	// === watchers ===
	var wg sync.WaitGroup
	if cfg.Watch {
		refreshers := root.Refreshers()
		for name, w := range st.Watchers {
			refresh, ok := refreshers[name]
			if !ok {
				continue
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := w.Watch(ctx, func(ctx context.Context) {
					log.Info("store changed, reloading", slog.String("set", name))
					if err := refresh(ctx); err != nil {
						log.Error("reload failed", slog.String("set", name), slog.Any("error", err))
					}
				})
				if err != nil && ctx.Err() == nil {
					log.Error("watch failed", slog.String("set", name), slog.Any("error", err))
				}
			}()
		}
	}

	log.Info("rigd ready",
		slog.String("id", root.ID()),
		slog.String("store", cfg.Store),
		slog.Bool("watch", cfg.Watch),
	)

	<-ctx.Done()
	log.Info("shutting down")
	wg.Wait()
	return nil
}
