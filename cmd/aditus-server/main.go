package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/aditus-access/aditus/server/internal/aditus/service"
	"github.com/aditus-access/aditus/server/internal/aditus/store/sqlite"
	"github.com/aditus-access/aditus/server/internal/config"
	"github.com/aditus-access/aditus/server/internal/db"
	"github.com/aditus-access/aditus/server/internal/httpapi"
)

// nopMatcher stands in until a real biometric matcher is wired up.
// Every template is rejected, which fails closed.
type nopMatcher struct{}

func (nopMatcher) Match(context.Context, []byte) (string, float64, bool, error) {
	return "", 0, false, nil
}

func main() {
	cfg := config.FromEnv()
	logger := newLogger(cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := db.Open(ctx, db.Config{Path: cfg.DBPath, Env: cfg.Env})
	if err != nil {
		logger.Fatal().Err(err).Msg("open database")
	}
	defer conn.Close()

	if cfg.Env == "dev" {
		if err := db.SeedDev(ctx, conn); err != nil {
			logger.Fatal().Err(err).Msg("seed dev data")
		}
	}

	writer := db.NewWorker(conn)
	defer writer.Close()

	// Stores
	credentialStore := sqlite.NewCredentialStore(conn, writer)
	memberStore := sqlite.NewMemberStore(conn)
	zoneStore := sqlite.NewZoneStore(conn)
	deviceStore := sqlite.NewDeviceStore(conn, writer)
	ruleStore := sqlite.NewRuleStore(conn)
	accessLogStore := sqlite.NewAccessLogStore(conn, writer)
	occupancyStore := sqlite.NewOccupancyStore(conn, writer)

	// Services
	registry := service.NewDeviceRegistry(deviceStore)
	membership := service.NewStoreMembership(memberStore)
	resolver := service.NewCredentialResolver(credentialStore, nopMatcher{}, cfg.BiometricMinConfidence)
	rules := service.NewRuleEvaluator(ruleStore)

	occupancy := service.NewOccupancyManager(occupancyStore, logger)
	if err := occupancy.Restore(ctx); err != nil {
		logger.Fatal().Err(err).Msg("restore occupancy")
	}

	orchestrator := service.NewOrchestrator(service.OrchestratorDeps{
		Registry:   registry,
		Zones:      zoneStore,
		Resolver:   resolver,
		Membership: membership,
		Occupancy:  occupancy,
		Rules:      rules,
		Audit:      accessLogStore,
		Dedup:      service.NewDeduper(time.Duration(cfg.DedupWindowSeconds) * time.Second),
		Logger:     logger,
	})

	credentialAdmin := service.NewCredentialAdmin(credentialStore)

	resetScheduler := service.NewPeakResetScheduler(occupancy, cfg.PeakResetHour, logger)
	resetScheduler.Start(ctx)
	defer resetScheduler.Stop()

	pruner := service.NewAuditPruner(accessLogStore, service.AuditPrunerConfig{
		RetentionDays: cfg.AuditRetentionDays,
		IntervalHours: cfg.PruneIntervalHours,
	}, logger)
	pruner.Start(ctx)
	defer pruner.Stop()

	srv := httpapi.NewServer(httpapi.Dependencies{
		Logger:          logger,
		Addr:            cfg.HTTPAddr,
		Orchestrator:    orchestrator,
		Occupancy:       occupancy,
		Zones:           zoneStore,
		AccessLog:       accessLogStore,
		CredentialAdmin: credentialAdmin,
	})

	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr).Msg("listening")
		if err := srv.Start(); err != nil {
			logger.Error().Err(err).Msg("server error")
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	occupancy.Flush(shutdownCtx)
}

func newLogger(env string) zerolog.Logger {
	if env == "dev" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().Timestamp().Str("service", "aditus-server").Logger()
	}
	return zerolog.New(os.Stdout).
		With().Timestamp().Str("service", "aditus-server").Logger()
}
