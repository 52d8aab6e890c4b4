package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/sync/errgroup"

	"github.com/rickgao/wsconsole/internal/config"
	"github.com/rickgao/wsconsole/internal/echo"
	"github.com/rickgao/wsconsole/internal/metrics"
	"github.com/rickgao/wsconsole/internal/version"
)

func main() {
	cfg, err := config.LoadServerConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	flag.StringVar(&cfg.Addr, "addr", cfg.Addr, "listen address (ECHO_ADDR)")
	flag.StringVar(&cfg.Path, "path", cfg.Path, "websocket path (ECHO_PATH)")
	flag.StringVar(&cfg.Auth, "auth", cfg.Auth, "auth mode: anon or token (ECHO_AUTH)")
	flag.StringVar(&cfg.Secret, "secret", cfg.Secret, "token signing secret (ECHO_SECRET)")
	flag.DurationVar(&cfg.TokenValidity, "token-validity", cfg.TokenValidity, "validity of tokens minted by /setup (ECHO_TOKEN_VALIDITY)")
	flag.BoolVar(&cfg.PingOnMessage, "ping-on-message", cfg.PingOnMessage, "ping the client after every echo (ECHO_PING_ON_MESSAGE)")
	flag.DurationVar(&cfg.IdleTimeout, "idle-timeout", cfg.IdleTimeout, "close sessions idle this long, 0 disables (ECHO_IDLE_TIMEOUT)")
	statsInterval := flag.Duration("stats-interval", time.Minute, "how often to log connected clients, 0 disables")
	logLevel := flag.String("log-level", "info", "log level")
	flag.Parse()

	logger := config.LogConfig{Level: *logLevel}.NewLogger(os.Stdout)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger.Info("starting echo server",
		"version", version.Get(),
		"addr", cfg.Addr,
		"path", cfg.Path,
		"auth", cfg.Auth,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	registry := prometheus.NewRegistry()

	wsHandler := echo.NewHandler(echo.Config{
		Auth:          cfg.Auth,
		Secret:        cfg.Secret,
		PingOnMessage: cfg.PingOnMessage,
		IdleTimeout:   cfg.IdleTimeout,
	}, logger, echo.WithRecorder(metrics.NewServer(registry)))

	mux := http.NewServeMux()
	mux.Handle(cfg.Path, wsHandler)
	mux.Handle("/setup", echo.NewSetupHandler(echo.SetupConfig{
		Auth:          cfg.Auth,
		Secret:        cfg.Secret,
		TokenValidity: cfg.TokenValidity,
		WSPath:        cfg.Path,
	}, logger))
	mux.Handle("/metrics", metrics.Handler(registry))
	mux.HandleFunc("/debug/clients", func(w http.ResponseWriter, r *http.Request) {
		clients := wsHandler.Clients()
		w.Header().Set("Content-Type", "application/json")
		err := json.NewEncoder(w).Encode(map[string]any{
			"stats":    clients.Stats(),
			"sessions": clients.Snapshot(),
		})
		if err != nil {
			logger.Warn("failed to write clients response", "error", err)
		}
	})

	server := &http.Server{
		Addr:    cfg.Addr,
		Handler: h2c.NewHandler(mux, &http2.Server{}),
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("echo server listening", "addr", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	if *statsInterval > 0 {
		g.Go(func() error {
			ticker := time.NewTicker(*statsInterval)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-ticker.C:
					logger.Info("clients", "summary", wsHandler.Clients().Stats().String())
				}
			}
		})
	}

	g.Go(func() error {
		<-gctx.Done()

		logger.Info("shutting down...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("echo server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("echo server stopped")
}
