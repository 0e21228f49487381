package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"tenderscan/internal/analysis"
	"tenderscan/internal/config"
	"tenderscan/internal/logger"
)

func main() {
	configPath := flag.String("config", "config/app_config.json", "path to the JSON configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(cfg.LogFilePath, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logging: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := analysis.Run(ctx, cfg, log)
	if err != nil {
		log.Error("analysis failed: %v", err)
		fmt.Fprintf(os.Stderr, "analysis failed: %v\nsee log file for details: %s\n", err, cfg.LogFilePath)
		os.Exit(1)
	}

	fmt.Print(analysis.ConsoleReport(res))
}
