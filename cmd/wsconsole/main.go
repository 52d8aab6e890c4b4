package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/rickgao/wsconsole/internal/api"
	"github.com/rickgao/wsconsole/internal/config"
	"github.com/rickgao/wsconsole/internal/connection"
	"github.com/rickgao/wsconsole/internal/database"
	"github.com/rickgao/wsconsole/internal/metrics"
	"github.com/rickgao/wsconsole/internal/router"
	"github.com/rickgao/wsconsole/internal/version"
	"github.com/rickgao/wsconsole/internal/writer"
)

type options struct {
	autoOpen bool
	logLines bool
}

func main() {
	configPath := flag.String("config", "", "path to config file (empty: defaults plus WSCONSOLE_* env)")
	open := flag.Bool("open", true, "open the connection at startup (default from console.auto_open)")
	setupURL := flag.String("setup", "", "echo server base URL to fetch the endpoint and token from, e.g. http://localhost:8001")
	user := flag.String("user", "", "user to request a token for with -setup")
	logLines := flag.Bool("log-lines", false, "also write console lines to the structured log")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Console lines own stdout; diagnostics go to stderr
	logger := cfg.Log.NewLogger(os.Stderr)
	slog.SetDefault(logger)

	logger.Info("starting wsconsole",
		"version", version.Get(),
		"config", *configPath,
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

	if *setupURL != "" {
		client := api.NewClient(*setupURL, api.WithLogger(logger))
		setup, err := client.GetSetup(ctx, *user)
		if err != nil {
			logger.Error("failed to fetch setup", "url", *setupURL, "error", err)
			os.Exit(1)
		}
		cfg.Endpoint.URL = setup.WSURL
		cfg.Endpoint.Token = setup.Token
		logger.Info("setup fetched", "ws_url", setup.WSURL, "user", *user)
	}

	opts := options{
		autoOpen: cfg.ShouldAutoOpen(),
		logLines: *logLines,
	}
	if flagSet("open") {
		opts.autoOpen = *open
	}

	if err := run(ctx, cfg, logger, opts); err != nil {
		logger.Error("wsconsole failed", "error", err)
		os.Exit(1)
	}

	logger.Info("wsconsole stopped")
}

func loadConfig(path string) (*config.ConsoleConfig, error) {
	if path == "" {
		return config.FromEnv()
	}
	return config.LoadAndValidate(path)
}

func flagSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

func run(ctx context.Context, cfg *config.ConsoleConfig, logger *slog.Logger, opts options) error {
	sinks := []router.Sink{router.NewConsoleSink(os.Stdout)}
	if opts.logLines {
		sinks = append(sinks, router.NewLogSink(logger, slog.LevelInfo))
	}

	// Transcript
	var transcript *writer.TranscriptWriter
	if cfg.Transcript.Enabled {
		logger.Info("connecting to transcript database",
			"host", cfg.Transcript.Database.Host,
			"port", cfg.Transcript.Database.Port,
			"database", cfg.Transcript.Database.Name,
		)

		pool, err := database.Connect(ctx, cfg.Transcript.Database)
		if err != nil {
			return fmt.Errorf("connect transcript database: %w", err)
		}
		defer pool.Close()

		if err := database.EnsureSchema(ctx, pool); err != nil {
			return err
		}

		transcript = writer.NewTranscriptWriter(writer.WriterConfig{
			BatchSize:     cfg.Transcript.BatchSize,
			FlushInterval: cfg.Transcript.FlushInterval,
		}, pool, uuid.New(), logger)
		sinks = append(sinks, transcript)

		logger.Info("transcript enabled", "session_id", transcript.SessionID())
	}

	rtr := router.NewRouter(router.DefaultRouterConfig(), logger, sinks...)

	// Controller
	ctrlOpts := []connection.ControllerOption{connection.WithLogger(logger)}
	var registry *prometheus.Registry
	if cfg.Metrics.Enabled {
		registry = prometheus.NewRegistry()
		ctrlOpts = append(ctrlOpts, connection.WithRecorder(metrics.NewController(registry)))
	}

	transport := connection.NewTransport(connection.ClientConfig{
		HandshakeTimeout:   cfg.Transport.HandshakeTimeout,
		WriteTimeout:       cfg.Transport.WriteTimeout,
		PingInterval:       cfg.Transport.KeepaliveInterval(),
		CAFile:             cfg.Transport.CAFile,
		InsecureSkipVerify: cfg.Transport.InsecureSkipVerify,
	}, logger)

	ctrl, err := connection.NewController(connection.ControllerConfig{
		Endpoint:           cfg.Endpoint.EndpointURL(),
		Token:              cfg.Endpoint.Token,
		SendGreetingOnOpen: cfg.Console.SendGreetingOnOpen,
		Greeting:           cfg.Console.Greeting,
	}, transport, rtr, ctrlOpts...)
	if err != nil {
		// ErrTransportUnavailable ends up here; nothing was dialed
		return fmt.Errorf("create controller: %w", err)
	}

	// Start sinks before anything is presented
	if transcript != nil {
		if err := transcript.Start(ctx); err != nil {
			return fmt.Errorf("start transcript writer: %w", err)
		}
	}
	if err := rtr.Start(ctx); err != nil {
		return fmt.Errorf("start router: %w", err)
	}

	var server *http.Server
	if registry != nil {
		server = &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Metrics.Port),
			Handler: createHTTPHandler(cfg.Metrics.Path, registry, ctrl, rtr, logger),
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	if server != nil {
		g.Go(func() error {
			logger.Info("starting metrics server", "port", cfg.Metrics.Port, "path", cfg.Metrics.Path)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
	}

	if opts.autoOpen {
		ctrl.Open()
	}

	// Reading stdin cannot be interrupted, so the command loop stays outside the group
	commandsDone := make(chan error, 1)
	go func() {
		commandsDone <- runCommands(gctx, os.Stdin, os.Stderr, ctrl)
	}()

	g.Go(func() error {
		var cmdErr error
		select {
		case <-gctx.Done():
		case cmdErr = <-commandsDone:
		}

		logger.Info("shutting down...")
		ctrl.Close()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := rtr.Stop(shutdownCtx); err != nil {
			logger.Warn("router stop incomplete", "error", err)
		}
		if transcript != nil {
			if err := transcript.Stop(shutdownCtx); err != nil {
				logger.Warn("transcript flush failed", "error", err)
			}
		}
		if server != nil {
			server.Shutdown(shutdownCtx)
		}

		if cmdErr != nil {
			return fmt.Errorf("read commands: %w", cmdErr)
		}
		return nil
	})

	return g.Wait()
}
