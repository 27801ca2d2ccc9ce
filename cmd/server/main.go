package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kindlight/protection-core/internal/allowlist"
	"github.com/kindlight/protection-core/internal/api"
	"github.com/kindlight/protection-core/internal/auth"
	"github.com/kindlight/protection-core/internal/blackout"
	"github.com/kindlight/protection-core/internal/config"
	"github.com/kindlight/protection-core/internal/decision"
	"github.com/kindlight/protection-core/internal/notify"
	"github.com/kindlight/protection-core/internal/pkg/distlock"
	"github.com/kindlight/protection-core/internal/pkg/logger"
	"github.com/kindlight/protection-core/internal/repository/postgres"
	"github.com/kindlight/protection-core/internal/schedule"
	"github.com/kindlight/protection-core/internal/sealed"
	"github.com/kindlight/protection-core/internal/store"
	"github.com/kindlight/protection-core/internal/worker"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadFromEnv(cfgPath)
	if err != nil {
		logger.Error("loading config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	family, err := store.OpenFamily(ctx, cfg.Stores.FamilyDSN)
	if err != nil {
		logger.Error("opening family store", "error", err)
		os.Exit(1)
	}
	defer family.Close()

	sealedStore, err := store.OpenSealed(ctx, cfg.Stores.SealedDSN)
	if err != nil {
		logger.Error("opening sealed store", "error", err)
		os.Exit(1)
	}
	defer sealedStore.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	auditLog := sealed.NewLog(postgres.NewAuditRepo(sealedStore))

	matcher := allowlist.NewMatcher()
	feed := allowlist.NewFeed(cfg.Allowlist.FeedURL, nil, matcher, auditLog, cfg.Allowlist.StalenessThreshold())

	subjects := postgres.NewSubjectRepo(family)
	scheduler := schedule.NewScheduler(cfg.Schedule,
		postgres.NewSaltRepo(sealedStore), subjects,
		schedule.NewCache(rdb, time.Duration(cfg.Schedule.CacheTTLHours)*time.Hour))

	queue := worker.NewBackfillQueue(rdb)
	lockFor := func(signalID string) distlock.DistLock {
		return distlock.NewLock(rdb, sealedStore.SealedDB(), "blackout:"+signalID, blackout.LockTTL)
	}
	blackouts := blackout.NewService(postgres.NewBlackoutRepo(sealedStore), auditLog, queue, lockFor, cfg.Blackout)

	engine := decision.NewEngine(matcher, scheduler, blackouts)
	recipients := notify.NewFilter(blackouts, subjects)

	var archiver api.ShardArchiver
	if cfg.Archive.Enabled {
		a, err := sealed.NewArchiver(ctx, auditLog, cfg.Archive)
		if err != nil {
			logger.Error("configuring archiver", "error", err)
			os.Exit(1)
		}
		archiver = a
	}

	server := api.NewServer(
		engine, blackouts, recipients, auditLog, archiver,
		allowlist.Status{Matcher: matcher, Feed: feed}, auditLog,
		auth.NewGateVerifier(cfg.Auth.GateSigningKey, cfg.Auth.Issuer),
		auth.NewPartnerVerifier(cfg.Auth.PartnerSigningKey, cfg.Auth.Issuer),
		auth.NewComplianceVerifier(cfg.Auth.ComplianceSigningKey, cfg.Auth.Issuer),
		cfg.Server,
	)

	// The decision path needs a live allowlist, so the server runs its
	// own refresher rather than depending on the worker binary.
	go worker.NewAllowlistRefresher(feed, cfg.Allowlist.RefreshInterval()).Start(ctx)

	if err := server.ListenAndServe(ctx); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}
