package services

import (
	"context"
	"errors"
	"log/slog"

	"licensegate/internal/registry"
	"licensegate/pkg/contracts/domain"
)

// ModuleMigrator runs the one-shot legacy-to-current reconciliation.
type ModuleMigrator interface {
	Reconcile(ctx context.Context) (*domain.MigrationReport, error)
}

// ModuleService exposes module registry reads and the migration operation.
type ModuleService interface {
	List(ctx context.Context) ([]domain.Module, error)
	Resolve(ctx context.Context, token string) (*domain.Module, error)
	Migrate(ctx context.Context) (*domain.MigrationReport, error)
}

type moduleService struct {
	registry *registry.Registry
	migrator ModuleMigrator
	logger   *slog.Logger
}

// NewModuleService creates a new module service. migrator may be nil when
// the storage backend has no legacy generation to reconcile.
func NewModuleService(reg *registry.Registry, migrator ModuleMigrator, logger *slog.Logger) ModuleService {
	if logger == nil {
		logger = slog.Default()
	}
	return &moduleService{
		registry: reg,
		migrator: migrator,
		logger:   logger.With(slog.String("service", "modules")),
	}
}

// List enumerates the available modules, preferring the current schema
// generation.
func (s *moduleService) List(ctx context.Context) ([]domain.Module, error) {
	mods, err := s.registry.ListAvailable(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "module listing failed",
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	s.logger.DebugContext(ctx, "modules listed", slog.Int("count", len(mods)))
	return mods, nil
}

// Resolve maps an ambiguous capability token to a canonical module record.
func (s *moduleService) Resolve(ctx context.Context, token string) (*domain.Module, error) {
	mod, err := s.registry.ResolveCapability(ctx, token)
	if err != nil {
		if !errors.Is(err, registry.ErrModuleNotFound) {
			s.logger.ErrorContext(ctx, "capability resolution failed",
				slog.String("token", token),
				slog.String("error", err.Error()),
			)
		}
		return nil, err
	}
	s.logger.DebugContext(ctx, "capability resolved",
		slog.String("token", token),
		slog.String("slug", mod.Slug),
		slog.String("source", string(mod.Source)),
	)
	return mod, nil
}

// Migrate copies legacy module records into the current generation.
func (s *moduleService) Migrate(ctx context.Context) (*domain.MigrationReport, error) {
	if s.migrator == nil {
		return &domain.MigrationReport{}, nil
	}
	report, err := s.migrator.Reconcile(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "module migration failed",
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	s.logger.InfoContext(ctx, "module migration completed",
		slog.Int("copied", report.Copied),
		slog.Int("skipped", report.Skipped),
	)
	return report, nil
}
