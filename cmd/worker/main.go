package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"brokerhub/internal/pkg/logger"
	"brokerhub/internal/platform/config"
	"brokerhub/internal/platform/database"
	"brokerhub/internal/platform/repositories"
	"brokerhub/internal/workers"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Init(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	log.Info().Msg("starting background workers")

	janitor := workers.NewInvitationJanitor(
		repositories.NewInvitationRepository(db),
		cfg.Invitations.CleanupInterval,
		cfg.Invitations.Retention,
	)
	janitor.Run(ctx)
}
