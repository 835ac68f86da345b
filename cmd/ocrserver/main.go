package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/care/ocrstream/internal/config"
	"github.com/care/ocrstream/internal/server"
)

func main() {
	defaults := config.Defaults()

	address := flag.String("address", defaults.Address, "bind address")
	port := flag.Int("port", defaults.Port, "bind port")
	threads := flag.Int("threads", defaults.Threads, "worker count")
	configPath := flag.String("config", "", "path to a YAML config file")
	shutdownTimeout := flag.Int("shutdown-timeout", defaults.ShutdownTimeoutSeconds, "graceful shutdown deadline, in seconds")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	cfg := defaults
	if *configPath != "" {
		loaded, err := config.Load(*configPath, defaults)
		if err != nil {
			slog.Error("failed to load config", "error", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	// CLI flags override both the file and the built-in defaults,
	// but only when explicitly set (flag.Visit skips untouched flags).
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "address":
			cfg.Address = *address
		case "port":
			cfg.Port = *port
		case "threads":
			cfg.Threads = *threads
		case "shutdown-timeout":
			cfg.ShutdownTimeoutSeconds = *shutdownTimeout
		}
	})

	if err := config.Validate(&cfg); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	host, err := server.New(cfg)
	if err != nil {
		slog.Error("failed to initialize server", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	runErr := make(chan error, 1)
	go func() { runErr <- host.Run(ctx) }()

	select {
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig.String())
		cancel()
	case err := <-runErr:
		if err != nil {
			slog.Error("server run loop failed", "error", err)
			os.Exit(1)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.ShutdownTimeoutSeconds)*time.Second)
	defer shutdownCancel()

	if err := host.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown failed", "error", err)
		os.Exit(1)
	}

	fmt.Fprintln(os.Stdout, "ocr server stopped")
}
