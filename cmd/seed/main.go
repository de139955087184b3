// Command seed loads a YAML fixture of organisations, members and broker
// records, then prints a bearer token for every seeded owner.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"brokerhub/internal/engine/records"
	"brokerhub/internal/pkg/logger"
	"brokerhub/internal/platform/audit"
	"brokerhub/internal/platform/auth"
	"brokerhub/internal/platform/config"
	"brokerhub/internal/platform/database"
	"brokerhub/internal/platform/repositories"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to config file")
	fixturePath := flag.String("fixture", "configs/seed.yaml", "Path to seed fixture")
	tokenTTL := flag.Duration("token-ttl", 24*time.Hour, "Lifetime of the printed dev tokens")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Init(cfg.Logging)

	if cfg.Environment.IsProduction() {
		log.Fatal().Msg("refusing to seed a production environment")
	}

	fixture, err := LoadFixture(*fixturePath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load fixture")
	}

	ctx := context.Background()
	db, err := database.Open(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	if _, err := database.Migrate(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
	}

	repos := repositories.NewSet(db)
	tx := database.NewTxManager(db)
	seeder := NewSeeder(tx, repos, records.NewService(tx, repos, audit.NewRecorder(repos.Audit)))

	owners, err := seeder.Apply(ctx, fixture)
	if err != nil {
		log.Fatal().Err(err).Msg("seed failed")
	}
	log.Info().Int("organisations", len(owners)).Msg("seed complete")

	if cfg.JWT.Secret == "" {
		log.Warn().Msg("jwt.secret is empty; no dev tokens printed")
		return
	}
	verifier := auth.NewVerifier(cfg.JWT.Secret)
	for _, o := range owners {
		token, err := verifier.Sign(o.SubjectID, o.Email, *tokenTTL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to sign dev token")
		}
		fmt.Printf("%s\t%s\tBearer %s\n", o.OrganisationID, o.Email, token)
	}
}
