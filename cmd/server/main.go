package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/dkwon/relaychat/pkg/logging"
	"github.com/dkwon/relaychat/pkg/server"
)

func main() {
	configPath := flag.String("config", "", "YAML configuration file (flags override it)")

	cfg := server.DefaultConfig()
	flag.StringVar(&cfg.ListenAddr, "listen", cfg.ListenAddr, "TCP bind address for the chat plane")
	flag.StringVar(&cfg.MetricsAddr, "metrics", cfg.MetricsAddr, "HTTP bind address for Prometheus /metrics (empty to disable)")
	flag.IntVar(&cfg.MaxSessions, "max-sessions", cfg.MaxSessions, "Maximum concurrent client sessions")

	logLevel := flag.String("log-level", "info", "Log level: "+logging.LevelNames())
	logFormat := flag.String("log-format", "text", "Log format: text or json")
	flag.Parse()

	// Configure structured logging
	if err := logging.Setup(logging.Options{
		Level:  *logLevel,
		Format: *logFormat,
		Output: os.Stdout,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "invalid logging config: %v\n", err)
		os.Exit(1)
	}

	if *configPath != "" {
		fileCfg, err := server.LoadConfig(*configPath)
		if err != nil {
			slog.Error("load config", "path", *configPath, "err", err)
			os.Exit(1)
		}
		// Flags given on the command line win over the file.
		flag.Visit(func(f *flag.Flag) {
			switch f.Name {
			case "listen":
				fileCfg.ListenAddr = cfg.ListenAddr
			case "metrics":
				fileCfg.MetricsAddr = cfg.MetricsAddr
			case "max-sessions":
				fileCfg.MaxSessions = cfg.MaxSessions
			}
		})
		cfg = fileCfg
	}

	srv := server.New(cfg)
	if err := srv.Run(); err != nil {
		slog.Error("server error", "err", err)
		os.Exit(1)
	}
}
