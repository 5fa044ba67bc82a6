package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/SPD-BES-2025-3/grupo1/internal/metrics"
	chiTransport "github.com/SPD-BES-2025-3/grupo1/internal/transport/chi"
	"github.com/SPD-BES-2025-3/grupo1/internal/version"
	healthuc "github.com/SPD-BES-2025-3/grupo1/internal/usecase/health"
	rerankuc "github.com/SPD-BES-2025-3/grupo1/internal/usecase/rerank"
	searchuc "github.com/SPD-BES-2025-3/grupo1/internal/usecase/search"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (search, re-rank, re-sync, health, metrics)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	a := bootstrap(ctx, envName)
	defer a.Close()
	cfg := a.cfg

	a.logger.Info("Starting imoveis API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", envName),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("vector_driver", cfg.VectorIndex.Driver),
	)

	p, err := a.newPipeline(ctx)
	if err != nil {
		a.logger.Fatal("Failed to build indexing pipeline", zap.Error(err))
	}

	searchSvc := searchuc.New(p.provider, p.index, p.records, cfg.Search.MaxTopK)

	// Pass nil interfaces, not typed nil pointers, when a dependency is off.
	var (
		generator     rerankuc.Generator
		generatorPing healthuc.Checker
		embeddingPing healthuc.Checker
	)
	if g := a.newGenerator(); g != nil {
		generator, generatorPing = g, g
	}
	if p.model != nil {
		embeddingPing = p.model
	}
	rerankSvc := rerankuc.New(generator, a.logger.Named("rerank"))
	healthSvc := healthuc.New(a.store, p.records, embeddingPing, generatorPing)

	metrics.RegisterHTTPMetrics()
	server := chiTransport.NewServer(searchSvc, rerankSvc, p.indexing, healthSvc, cfg.Search.DefaultTopK)
	handler := chiTransport.NewRouter(server, cfg.Auth.APIKeys, a.logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	go func() {
		a.logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	// ctx is cancelled by SIGINT/SIGTERM in main.
	<-ctx.Done()
	a.logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("Error during shutdown", zap.Error(err))
	}

	a.logger.Info("Server stopped gracefully")
	return nil
}
