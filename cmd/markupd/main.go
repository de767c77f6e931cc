package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/irfansharif/markup/internal/config"
	"github.com/irfansharif/markup/internal/logging"
	"github.com/irfansharif/markup/internal/server"
)

const logFlags = log.Ltime | log.Lshortfile

func init() {
	log.SetFlags(logFlags)
}

func main() {
	configPath := flag.String("config", os.Getenv("MARKUP_CONFIG"), "path to a YAML config file")
	dir := flag.String("dir", "", "diagrams directory (overrides config and DIAGRAMS_DIR)")
	listen := flag.String("listen", "", "listen address (overrides config and PORT)")
	flag.Parse()

	if !logging.FromEnv("MARKUP_DEBUG", os.Stderr) {
		logging.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})))
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if *dir != "" {
		cfg.DiagramsDir = *dir
	}
	if *listen != "" {
		cfg.Listen = *listen
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("Diagrams directory: %s", cfg.DiagramsDir)
	if err := server.New(cfg).Run(ctx); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
