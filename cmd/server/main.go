package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"brokerhub/internal/api"
	"brokerhub/internal/api/handlers"
	"brokerhub/internal/api/middleware"
	"brokerhub/internal/engine/accounts"
	"brokerhub/internal/engine/invitations"
	"brokerhub/internal/engine/memberships"
	"brokerhub/internal/engine/records"
	"brokerhub/internal/pkg/logger"
	"brokerhub/internal/platform/audit"
	"brokerhub/internal/platform/auth"
	"brokerhub/internal/platform/config"
	"brokerhub/internal/platform/database"
	"brokerhub/internal/platform/identity"
	"brokerhub/internal/platform/repositories"
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

	applied, err := database.Migrate(ctx, db)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
	}
	if len(applied) > 0 {
		log.Info().Strs("migrations", applied).Msg("applied migrations")
	}

	// Repositories
	repos := repositories.NewSet(db)
	tx := database.NewTxManager(db)

	// Audit
	var sinks []audit.Sink
	if len(cfg.Audit.KafkaBrokers) > 0 {
		sink := audit.NewKafkaSink(cfg.Audit.KafkaBrokers, cfg.Audit.KafkaTopic)
		defer sink.Close()
		sinks = append(sinks, sink)
		log.Info().Strs("brokers", cfg.Audit.KafkaBrokers).Str("topic", cfg.Audit.KafkaTopic).Msg("streaming audit entries to kafka")
	}
	recorder := audit.NewRecorder(repos.Audit, sinks...)
	defer recorder.Wait()

	// Services
	verifier := auth.NewVerifier(cfg.JWT.Secret)
	authn := auth.NewAuthenticator(verifier, identity.NewResolver(repos.Users, repos.Memberships), cfg.Environment)

	accountSvc := accounts.NewService(tx, repos, recorder)
	inviteSvc := invitations.NewService(tx, repos, recorder, invitations.Config{
		TTL:       cfg.Invitations.TTL(),
		BaseURL:   cfg.Invitations.BaseURL,
		ExposeURL: !cfg.Environment.IsProduction(),
	})
	membershipSvc := memberships.NewService(tx, repos, recorder)
	recordSvc := records.NewService(tx, repos, recorder)

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit)
	go rateLimiter.Run(ctx)

	router := api.NewRouter(&api.Dependencies{
		HealthHandler:     handlers.NewHealthHandler(db),
		AuthHandler:       handlers.NewAuthHandler(accountSvc, inviteSvc),
		OrgHandler:        handlers.NewOrgHandler(accountSvc),
		MembershipHandler: handlers.NewMembershipHandler(membershipSvc),
		InvitationHandler: handlers.NewInvitationHandler(inviteSvc),
		ClientHandler:     handlers.NewClientHandler(recordSvc),
		AgreementHandler:  handlers.NewAgreementHandler(recordSvc),
		AuditHandler:      handlers.NewAuditHandler(recorder),
		AuthMiddleware:    middleware.NewAuthMiddleware(authn),
		RateLimiter:       rateLimiter,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("environment", string(cfg.Environment)).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		log.Fatal().Err(err).Msg("server failed")
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
