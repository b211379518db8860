package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/xxxsen/mrecall/internal/config"
	"github.com/xxxsen/mrecall/internal/embed"
	"github.com/xxxsen/mrecall/internal/embedcache"
	"github.com/xxxsen/mrecall/internal/extract"
	"github.com/xxxsen/mrecall/internal/handler"
	"github.com/xxxsen/mrecall/internal/job"
	"github.com/xxxsen/mrecall/internal/middleware"
	"github.com/xxxsen/mrecall/internal/repo"
	"github.com/xxxsen/mrecall/internal/schedule"
	"github.com/xxxsen/mrecall/internal/service"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "mrecall",
		Short: "conversation memory distillation and retrieval service",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run mrecall server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return fmt.Errorf("--config is required")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger.Init(
				cfg.LogConfig.File,
				cfg.LogConfig.Level,
				int(cfg.LogConfig.FileCount),
				int(cfg.LogConfig.FileSize),
				int(cfg.LogConfig.KeepDays),
				cfg.LogConfig.Console,
			)
			logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))
			return runServer(cfg)
		},
	}

	runCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	rootCmd.AddCommand(runCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func runServer(cfg *config.Config) error {
	db, err := repo.Open(cfg.DB)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	if err := repo.ApplyMigrations(db); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	memoryRepo := repo.NewMemoryRepo(db)
	sessionRepo := repo.NewSessionRepo(db)

	providers := make([]extract.IProvider, 0, len(cfg.Extract.Providers))
	for _, pc := range cfg.Extract.Providers {
		provider, err := extract.NewProvider(pc.Type, pc.Model, pc.Data)
		if err != nil {
			return fmt.Errorf("init extract provider %s: %w", pc.Type, err)
		}
		providers = append(providers, provider)
	}
	extractClient := extract.NewClient(providers, time.Duration(cfg.Extract.Timeout)*time.Second)

	var endpoint *embed.LocalEndpoint
	if !cfg.Embedding.ForceMock {
		endpoint = embed.NewLocalEndpoint(
			cfg.Embedding.Endpoint,
			cfg.Embedding.Model,
			cfg.Embedding.Dimension,
			time.Duration(cfg.Embedding.Timeout)*time.Second,
		)
	}
	embedService := embed.NewService(endpoint, cfg.Embedding.Model, cfg.Embedding.Dimension, cfg.Embedding.ForceMock)
	cachedEmbedder := embedcache.WrapLruCacheToEmbedder(
		embedService,
		cfg.Embedding.CacheSize,
		time.Duration(cfg.Embedding.CacheTTL)*time.Minute,
	)

	memoryService := service.NewMemoryService(
		sessionRepo, memoryRepo, extractClient, cachedEmbedder,
		cfg.Extract.MaxChunkSize, cfg.Jobs.Concurrency,
	)
	retrievalService := service.NewRetrievalService(
		memoryRepo, cachedEmbedder,
		cfg.Retrieval.DefaultThreshold, cfg.Retrieval.DefaultTopK,
	)

	deps := handler.RouterDeps{
		Sessions: handler.NewSessionHandler(sessionRepo, memoryService),
		Memories: handler.NewMemoryHandler(memoryRepo, retrievalService),
	}

	engine, err := webapi.NewEngine(
		"/api/v1",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.CORS(cfg.CORSAllow),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := schedule.NewCronScheduler()
	if err := scheduler.AddJob(job.NewExtractSweepJob(memoryService), cfg.Jobs.ExtractSpec); err != nil {
		return err
	}
	// Backfill bypasses the LRU cache: a cached mock vector must not shadow a
	// freshly reachable endpoint.
	if err := scheduler.AddJob(job.NewEmbeddingBackfillJob(memoryRepo, embedService, 100), cfg.Jobs.BackfillSpec); err != nil {
		return err
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	logutil.GetLogger(ctx).Info("server listening",
		zap.Int("port", cfg.Port),
		zap.Int("embedding_dimension", cfg.Embedding.Dimension),
		zap.Int("extract_providers", len(providers)),
	)
	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}
