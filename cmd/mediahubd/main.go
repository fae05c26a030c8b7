// Command mediahubd wires together the Credential Vault, Config
// Resolver, Template Matcher, Pipeline Executor, Quota Service, and
// Scheduler behind one HTTP process.
package main

import (
	"context"
	"os"

	"mediahub/internal/adapters"
	"mediahub/internal/audit"
	"mediahub/internal/configresolver"
	"mediahub/internal/core"
	"mediahub/internal/pipeline"
	"mediahub/internal/quota"
	"mediahub/internal/repo"
	"mediahub/internal/scheduler"
	"mediahub/internal/storage"
	"mediahub/internal/template"
	"mediahub/internal/vault"
	"mediahub/pkg/config"
	"mediahub/pkg/database"
	"mediahub/pkg/logging"
	"mediahub/pkg/models"
	"mediahub/pkg/monitoring"
	redisclient "mediahub/pkg/redis"
	"mediahub/pkg/server"
	"mediahub/pkg/version"
)

const serviceName = "mediahubd"

func main() {
	logger := logging.NewLoggerWithService(serviceName)
	config.LoadEnv(logger)
	logger.SetLevel(config.GetLogLevel())

	dbCfg := database.DefaultConfig()
	dbCfg.URL = config.RequireEnv("DATABASE_URL")
	db := database.MustConnect(dbCfg, logger)
	defer db.Close()

	redisCfg := redisclient.Config{
		Mode:  redisclient.ModeSingle,
		Addrs: []string{config.GetEnv("REDIS_ADDR", "localhost:6379")},
	}
	redisConn, err := redisclient.NewUniversalClient(context.Background(), redisCfg)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to redis")
	}
	defer redisConn.Close()

	masterSecret := []byte(config.RequireEnv("CREDENTIAL_MASTER_SECRET"))

	repoDB := repo.DB{Conn: db}
	recordingRepo := repo.NewRecordingRepo(repoDB)
	targetRepo := repo.NewTargetRepo(repoDB)
	templateRepo := repo.NewTemplateRepo(repoDB)
	tenantRepo := repo.NewTenantRepo(repoDB)
	tenantDefaultsRepo := repo.NewTenantDefaultsRepo(repoDB)
	sourceRepo := repo.NewSourceRepo(repoDB)
	jobRepo := repo.NewJobRepo(repoDB)
	auditRepo := repo.NewAuditRepo(repoDB)
	vaultRepo := repo.NewVaultRepo(repoDB)
	locker := repo.NewRedisLocker(redisConn)

	cred, err := vault.New(vaultRepo, masterSecret, map[models.Platform]vault.Refresher{})
	if err != nil {
		logger.WithError(err).Fatal("failed to initialize credential vault")
	}

	resolver := configresolver.New(tenantDefaultsRepo, templateRepo, recordingRepo)
	matcher := template.New(repo.NewMatcherRepo(templateRepo, recordingRepo))
	quotaSvc := quota.New(repo.NewQuotaRepo(repoDB))
	auditLog := audit.New(auditRepo)
	adapterRegistry := adapters.NewRegistry()
	storageBuilder := storage.New(config.GetEnv("STORAGE_ROOT", "/data/mediahub"))

	executor := pipeline.New(pipeline.Config{
		Quota:      quotaSvc,
		Resolver:   resolver,
		Recordings: recordingRepo,
		Targets:    targetRepo,
		Locker:     locker,
		Audit:      auditLog,
		Logger:     logger,
		// Download/Trim/Transcribe/ExtractTopics/GenerateSubtitles/Upload
		// are concrete stage runners living outside this module's
		// scope (spec §4.10 boundary); wired here once available.
	})

	runner := &scheduler.Runner{
		Jobs:       jobRepo,
		Sources:    sourceRepo,
		Recordings: recordingRepo,
		Tenants:    tenantRepo,
		Adapters:   adapterRegistry,
		Matcher:    matcher,
		Pipeline:   executor,
		Audit:      auditLog,
		Logger:     logger,
	}
	sched := scheduler.New(scheduler.Config{Runner: runner, Jobs: jobRepo, Logger: logger})
	sched.Start(context.Background())
	defer sched.Stop()

	application := core.New(core.Config{
		Recordings: recordingRepo,
		Targets:    targetRepo,
		Templates:  templateRepo,
		Sources:    sourceRepo,
		Jobs:       jobRepo,
		Vault:      cred,
		Quota:      quotaSvc,
		Matcher:    matcher,
		Pipeline:   executor,
		Audit:      auditLog,
		Adapters:   adapterRegistry,
		Storage:    storageBuilder,
		Runner:     runner,
		Logger:     logger,
	})
	_ = application // no handlers for the core API are registered below; only health, metrics and progress routes

	healthChecker := monitoring.NewHealthChecker(serviceName, version.Version)
	healthChecker.AddCheck("database", monitoring.DatabaseHealthCheck(db))
	healthChecker.AddCheck("redis", monitoring.RedisHealthCheck(redisConn))
	metricsCollector := monitoring.NewMetricsCollector(serviceName, version.Version, version.GitCommit)

	router := server.SetupServiceRouter(logger, serviceName, healthChecker, metricsCollector)

	progress := newProgressHub(logger)
	router.GET("/recordings/:id/progress", progress.serveProgress)

	srvCfg := server.DefaultConfig(serviceName, "8080")
	if err := server.Start(srvCfg, router, logger); err != nil {
		logger.WithError(err).Fatal("server exited with error")
		os.Exit(1)
	}
}
