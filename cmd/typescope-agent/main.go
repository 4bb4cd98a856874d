package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"typescope/internal/admin"
	"typescope/internal/metrics"
	"typescope/internal/server"
	"typescope/pkg/channel"
	"typescope/pkg/config"
	"typescope/pkg/extractor"
)

func init() {
	// Configure zerolog for human-friendly console output
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

func main() {
	// Parse command line flags
	var configPath string
	var testReflection bool
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.BoolVar(&testReflection, "test-reflection", false, "Run one extraction, print a summary and exit")
	flag.Parse()

	var configFile string
	if configPath != "" {
		// If config path was explicitly provided, verify it exists
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			log.Fatal().
				Str("config_path", configPath).
				Msg("Configuration file does not exist")
		} else if err != nil {
			log.Fatal().
				Err(err).
				Str("config_path", configPath).
				Msg("Failed to access configuration file")
		}
		configFile = configPath
	} else {
		configFile = config.FindConfigFile(config.ServiceName)
	}
	envFile := config.FindEnvironmentFile(config.ServiceName)

	cfg, err := config.Load(configFile, envFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Configure logging based on config
	cfg.Log.ConfigureZerolog()

	log.Info().Msg("Starting typescope agent")
	log.Info().Str("config_file", configFile).Msg("Configuration loaded")
	log.Info().Str("env_file", envFile).Msg("Environment loaded")
	log.Info().
		Str("provider", cfg.Agent.Provider).
		Str("transport", cfg.Channel.Transport).
		Str("address", cfg.Channel.Address).
		Str("mode", cfg.Channel.Mode).
		Bool("admin_enabled", cfg.Admin.Enabled).
		Msg("Agent configuration")

	provider, err := newProvider(cfg.Agent)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create type provider")
	}
	ext := extractor.New(provider, extractor.WithLogger(log.Logger))

	if testReflection {
		snap, report := ext.Extract(context.Background())
		printSummary(os.Stdout, snap, report)
		return
	}

	opener, err := channel.NewOpener(cfg.Channel.Endpoint(), log.Logger.With().Str("transport", cfg.Channel.Transport).Logger())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create channel")
	}

	srv := server.New(opener, ext,
		server.WithLogger(log.Logger),
		server.WithMode(cfg.Channel.ChannelMode()),
		server.WithRetryBackoff(cfg.Server.RetryBackoff),
		server.WithJoinTimeout(cfg.Server.JoinTimeout),
	)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	collector := metrics.NewCollector(srv, 0)
	go collector.Start(ctx)

	var adminServer *admin.Server
	if cfg.Admin.Enabled {
		adminServer = admin.New(cfg.Admin.Address, srv, log.Logger)
		if err := adminServer.Start(); err != nil {
			log.Fatal().Err(err).Str("address", cfg.Admin.Address).Msg("Failed to start admin server")
		}
		log.Info().Msgf("Health check: http://%s/healthz", adminServer.Addr())
		log.Info().Msgf("Metrics: http://%s/metrics", adminServer.Addr())
	}

	srv.Start()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
	cancel()

	// Give some time for graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	srv.Stop()
	collector.Stop()
	if adminServer != nil {
		if err := adminServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Error during shutdown")
		}
	}

	log.Info().Msg("typescope agent stopped")
}
