package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/briaclm/allocine-scraper/config"
	"github.com/briaclm/allocine-scraper/fetch"
	"github.com/briaclm/allocine-scraper/pipeline"
	"github.com/briaclm/allocine-scraper/server"
)

func main() {
	defaultCfg := config.DefaultConfig()
	addrDefault := defaultCfg.ListenAddr
	if value, ok := config.EnvString("SCRAPER_LISTEN_ADDR"); ok {
		addrDefault = value
	}
	dataRootDefault := defaultCfg.DataRoot
	if value, ok := config.EnvString("SCRAPER_DATA_ROOT"); ok {
		dataRootDefault = value
	}

	addr := flag.String("addr", addrDefault, "Gateway listen address")
	port := flag.Int("port", 0, "Gateway listen port (overrides -addr)")
	dataRoot := flag.String("data-root", dataRootDefault, "Directory holding run artifacts")
	staticDir := flag.String("static-dir", defaultCfg.StaticDir, "Directory served as static files")
	verbose := flag.Bool("v", false, "Enable verbose logging")

	flag.Parse()

	logger, level := newLogger(*verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	cfg := config.DefaultConfig()
	cfg.DataRoot = *dataRoot
	cfg.StaticDir = *staticDir
	cfg.Verbose = *verbose
	cfg.ListenAddr = *addr
	if *port != 0 {
		cfg.ListenAddr = fmt.Sprintf(":%d", *port)
	}

	if cfg.DataRoot == "" {
		slog.Error("data root cannot be empty")
		os.Exit(1)
	}

	client := fetch.NewClient(cfg)
	p := pipeline.New(cfg, pipeline.WithFetcher(client))
	gateway := server.New(cfg, p, client.Metrics.Registry)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := gateway.ListenAndServe(ctx); err != nil {
		slog.Error("gateway failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stdout) {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
