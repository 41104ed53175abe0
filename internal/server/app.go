// Package server wires the document server together: configuration,
// storage backends, the document service and the gRPC endpoint.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dmitrijs2005/phototimeline/internal/logging"
	"github.com/dmitrijs2005/phototimeline/internal/server/blobstore"
	"github.com/dmitrijs2005/phototimeline/internal/server/config"
	"github.com/dmitrijs2005/phototimeline/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/phototimeline/internal/server/services"

	gs "github.com/dmitrijs2005/phototimeline/internal/server/grpc"
)

type App struct {
	config *config.Config
	logger logging.Logger
	repos  repomanager.RepositoryManager
	docs   *services.DocumentService
}

// NewApp opens the configured backends and runs pending migrations.
func NewApp(ctx context.Context, c *config.Config, logOut io.Writer) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	logger := logging.NewServiceLogger(logOut, "phototimeline-server")

	repos, err := openRepositories(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	blobs, err := openBlobStore(ctx, c)
	if err != nil {
		_ = repos.Close()
		return nil, fmt.Errorf("blob store init error: %w", err)
	}

	docs := services.NewDocumentService(repos, blobs, c.BlobThreshold, logger)
	return &App{config: c, logger: logger, repos: repos, docs: docs}, nil
}

func openRepositories(ctx context.Context, c *config.Config) (repomanager.RepositoryManager, error) {
	if c.Storage == config.StorageMemory {
		return repomanager.NewMemoryRepositoryManager(), nil
	}
	pg, err := repomanager.OpenPostgres(c.DatabaseDSN)
	if err != nil {
		return nil, err
	}
	if err := pg.RunMigrations(ctx); err != nil {
		_ = pg.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}
	return pg, nil
}

func openBlobStore(ctx context.Context, c *config.Config) (blobstore.Store, error) {
	if c.BlobStore == config.BlobMemory {
		return blobstore.NewMemoryStore(), nil
	}
	return blobstore.NewS3Store(ctx, blobstore.S3Config{
		Region:       c.S3Region,
		AccessKey:    c.S3AccessKey,
		SecretKey:    c.S3SecretKey,
		Bucket:       c.S3Bucket,
		BaseEndpoint: c.S3BaseEndpoint,
		UsePathStyle: c.S3UsePathStyle,
	})
}

// Run serves gRPC until ctx is done and then releases the backends.
func (app *App) Run(ctx context.Context) error {
	app.logger.Info(ctx, "Starting app...", "storage", app.config.Storage, "blob_store", app.config.BlobStore)

	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.docs, app.config.SecretKey, app.config.MaxMessageSize)
	runErr := s.Run(ctx)
	if runErr != nil {
		app.logger.Error(ctx, "gRPC server failed", "error", runErr)
	}

	app.logger.Info(context.WithoutCancel(ctx), "Stopped")
	return errors.Join(runErr, app.repos.Close())
}
