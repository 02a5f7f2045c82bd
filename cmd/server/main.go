package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/grainwise/grainwise/internal/clientdata"
	"github.com/grainwise/grainwise/internal/clients/marketdata"
	"github.com/grainwise/grainwise/internal/config"
	"github.com/grainwise/grainwise/internal/database"
	"github.com/grainwise/grainwise/internal/markethours"
	"github.com/grainwise/grainwise/internal/modules/breakeven"
	breakevenhandlers "github.com/grainwise/grainwise/internal/modules/breakeven/handlers"
	"github.com/grainwise/grainwise/internal/modules/contracts"
	contracthandlers "github.com/grainwise/grainwise/internal/modules/contracts/handlers"
	"github.com/grainwise/grainwise/internal/modules/insurance"
	insurancehandlers "github.com/grainwise/grainwise/internal/modules/insurance/handlers"
	"github.com/grainwise/grainwise/internal/modules/learning"
	learninghandlers "github.com/grainwise/grainwise/internal/modules/learning/handlers"
	"github.com/grainwise/grainwise/internal/modules/ledger"
	ledgerhandlers "github.com/grainwise/grainwise/internal/modules/ledger/handlers"
	"github.com/grainwise/grainwise/internal/modules/preferences"
	preferencehandlers "github.com/grainwise/grainwise/internal/modules/preferences/handlers"
	"github.com/grainwise/grainwise/internal/modules/signals"
	signalhandlers "github.com/grainwise/grainwise/internal/modules/signals/handlers"
	"github.com/grainwise/grainwise/internal/narrative"
	"github.com/grainwise/grainwise/internal/reliability"
	"github.com/grainwise/grainwise/internal/scheduler"
	"github.com/grainwise/grainwise/internal/server"
	"github.com/grainwise/grainwise/pkg/logger"
	"github.com/rs/zerolog"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallback := logger.New(logger.Config{Level: "info"})
		fallback.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().Str("data_dir", cfg.DataDir).Msg("Starting Grainwise")

	// Databases: farm data, the financial ledger, and the provider cache.
	farmDB := mustOpenDB(log, cfg.DataDir, "farm", database.ProfileStandard)
	defer farmDB.Close()
	ledgerDB := mustOpenDB(log, cfg.DataDir, "ledger", database.ProfileLedger)
	defer ledgerDB.Close()
	cacheDB := mustOpenDB(log, cfg.DataDir, "cache", database.ProfileCache)
	defer cacheDB.Close()

	// Market data: provider client over the cache, plus snapshot assembly.
	cacheRepo := clientdata.NewRepository(cacheDB.Conn())
	marketClient := marketdata.NewClient(cfg.MarketDataURL, cfg.MarketDataAPIKey, cacheRepo, log)
	snapshots := marketdata.NewSnapshotService(marketClient, log)
	marketHours := markethours.NewService()

	// Repositories and services.
	prefsRepo := preferences.NewRepository(farmDB.Conn(), log)
	breakevenRepo := breakeven.NewRepository(farmDB.Conn(), log)
	contractsRepo := contracts.NewRepository(farmDB.Conn(), log)
	insuranceRepo := insurance.NewRepository(farmDB.Conn(), log)
	ledgerRepo := ledger.NewRepository(ledgerDB.Conn(), log)

	learningRepo := learning.NewRepository(farmDB.Conn(), log)
	learningService := learning.NewService(learningRepo, log)

	signalsRepo := signals.NewRepository(farmDB.Conn(), log)
	signalService := signals.NewService(
		signalsRepo,
		prefsRepo,
		snapshots,
		breakevenRepo,
		contractsRepo,
		learningService,
		learningService,
		log,
	)

	// Narrative enrichment: without an API key the enricher still runs
	// and attaches canned fallback narratives.
	var llmClient narrative.LLMClient
	if cfg.OpenAIAPIKey != "" {
		llmClient = narrative.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModel)
	}
	narrativeService := narrative.NewService(llmClient, log)
	enricher := signals.NewEnricher(signalsRepo, narrativeService, log)

	// Scheduler and background jobs.
	sched := scheduler.New(log)
	systemHandlers := server.NewSystemHandlers(
		[]*database.DB{farmDB, ledgerDB, cacheDB},
		marketHours,
		sched,
		log,
	)
	registerJobs(sched, systemHandlers, jobDeps{
		cfg:         cfg,
		log:         log,
		snapshots:   snapshots,
		marketHours: marketHours,
		signals:     signalService,
		enricher:    enricher,
		cacheRepo:   cacheRepo,
		databases:   []*database.DB{farmDB, ledgerDB, cacheDB},
	})
	sched.Start()
	defer sched.Stop()

	// HTTP server.
	srv := server.New(server.Config{
		Port:    cfg.Port,
		Log:     log,
		DevMode: cfg.DevMode,
		System:  systemHandlers,
		Modules: []server.RouteRegistrar{
			preferencehandlers.NewHandler(prefsRepo, log),
			signalhandlers.NewHandler(signalService, log),
			breakevenhandlers.NewHandler(breakevenRepo, log),
			contracthandlers.NewHandler(contractsRepo, log),
			insurancehandlers.NewHandler(insuranceRepo, log),
			learninghandlers.NewHandler(learningService, log),
			ledgerhandlers.NewHandler(ledgerRepo, log),
		},
	})

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}

// mustOpenDB opens and migrates one database, exiting on failure.
func mustOpenDB(log zerolog.Logger, dataDir, name string, profile database.DatabaseProfile) *database.DB {
	db, err := database.New(database.Config{
		Path:    filepath.Join(dataDir, name+".db"),
		Profile: profile,
		Name:    name,
	})
	if err != nil {
		log.Fatal().Err(err).Str("database", name).Msg("Failed to open database")
	}
	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Str("database", name).Msg("Failed to migrate database")
	}
	return db
}

type jobDeps struct {
	cfg         *config.Config
	log         zerolog.Logger
	snapshots   *marketdata.SnapshotService
	marketHours *markethours.Service
	signals     *signals.Service
	enricher    *signals.Enricher
	cacheRepo   *clientdata.Repository
	databases   []*database.DB
}

// registerJobs schedules the background jobs and exposes them for
// manual triggering.
func registerJobs(sched *scheduler.Scheduler, system *server.SystemHandlers, deps jobDeps) {
	jobs := []struct {
		schedule string
		job      scheduler.Job
	}{
		{"0 */15 * * * *", scheduler.NewMarketRefreshJob(deps.snapshots, deps.marketHours, deps.log)},
		{"0 5 * * * *", scheduler.NewSignalGenerationJob(deps.signals, deps.marketHours, deps.log)},
		{"0 */10 * * * *", scheduler.NewNarrativeEnrichmentJob(deps.enricher, deps.log)},
		{"0 45 * * * *", scheduler.NewSignalExpirationJob(deps.signals, deps.log)},
		{"0 0 3 * * *", clientdata.NewCleanupJob(deps.cacheRepo, deps.log)},
	}

	if deps.cfg.Backup.Enabled {
		s3Client, err := reliability.NewS3Client(
			deps.cfg.Backup.Endpoint,
			deps.cfg.Backup.Region,
			deps.cfg.Backup.Bucket,
			deps.cfg.Backup.AccessKey,
			deps.cfg.Backup.SecretKey,
			deps.log,
		)
		if err != nil {
			deps.log.Error().Err(err).Msg("Backup disabled: failed to create S3 client")
		} else {
			backupService := reliability.NewBackupService(
				s3Client,
				deps.databases,
				deps.cfg.DataDir,
				deps.cfg.Backup.RetentionDays,
				deps.log,
			)
			jobs = append(jobs, struct {
				schedule string
				job      scheduler.Job
			}{"0 30 2 * * *", scheduler.NewBackupJob(backupService, deps.log)})
		}
	}

	for _, entry := range jobs {
		if err := sched.AddJob(entry.schedule, entry.job); err != nil {
			deps.log.Fatal().Err(err).Str("job", entry.job.Name()).Msg("Failed to register job")
		}
		system.RegisterJob(entry.job)
	}
}
