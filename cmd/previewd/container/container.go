package container

import (
	"fmt"
	"net/http"

	"github.com/previewlab/surgeon/cmd/previewd/repository"
	"github.com/previewlab/surgeon/cmd/previewd/seed"
	"github.com/previewlab/surgeon/cmd/previewd/service"
	"github.com/previewlab/surgeon/common/bootstrap"
	"github.com/previewlab/surgeon/common/checks"
	"github.com/previewlab/surgeon/common/clients"
	"github.com/previewlab/surgeon/common/gate"
	"github.com/previewlab/surgeon/common/patchtext"
	"github.com/previewlab/surgeon/common/ratelimit"
	"github.com/previewlab/surgeon/common/validation"
)

// Container holds all initialized services and repositories (singleton pattern)
type Container struct {
	Components *bootstrap.Components

	// Repositories
	ProjectRepo  *repository.ProjectRepository
	RevisionRepo *repository.RevisionRepository

	// Pipeline collaborators
	Generator   clients.Generator
	Engine      *patchtext.Engine
	Runner      *checks.Runner
	Gate        gate.Gate
	RateLimiter *ratelimit.RateLimiter

	// Services
	ProjectService  *service.ProjectService
	RevisionService *service.RevisionService
}

// NewContainer initializes all services and repositories once
func NewContainer(components *bootstrap.Components) (*Container, error) {
	cfg := components.Config

	projectRepo := repository.NewProjectRepository(components.DB)
	revisionRepo := repository.NewRevisionRepository(components.DB)

	engine := patchtext.NewEngine(patchtext.AllowedPreviewPath, cfg.Preview.MaxChangedLines)
	validator := validation.NewSourceValidator(patchtext.AllowedPreviewPath, cfg.Preview.MaxChangedLines)

	runner, err := checks.NewRunner(checks.DefaultBattery())
	if err != nil {
		return nil, fmt.Errorf("failed to build check runner: %w", err)
	}

	generator, err := buildGenerator(components)
	if err != nil {
		return nil, err
	}

	// Redis-backed collaborators degrade to in-process variants when redis
	// is not configured, so single-node deployments stay zero-dependency.
	var projectGate gate.Gate = gate.NewMemoryGate()
	var limiter *ratelimit.RateLimiter
	if components.Redis != nil {
		projectGate = gate.NewRedisGate(components.Redis, 0)
		limiter = ratelimit.NewRateLimiter(components.Redis.GetUnderlying(), components.Logger)
	}

	revisionService := service.NewRevisionService(service.Deps{
		Projects:    projectRepo,
		Revisions:   revisionRepo,
		Generator:   generator,
		Engine:      engine,
		Validator:   validator,
		Runner:      runner,
		Gate:        projectGate,
		Cache:       components.Cache,
		SnapshotTTL: cfg.Preview.SnapshotCacheTTL,
		Telemetry:   components.Telemetry,
		Logger:      components.Logger,
	})

	projectService := service.NewProjectService(
		projectRepo,
		projectRepo,
		revisionRepo,
		seed.BaselineSource(),
		components.Logger,
	)

	return &Container{
		Components:      components,
		ProjectRepo:     projectRepo,
		RevisionRepo:    revisionRepo,
		Generator:       generator,
		Engine:          engine,
		Runner:          runner,
		Gate:            projectGate,
		RateLimiter:     limiter,
		ProjectService:  projectService,
		RevisionService: revisionService,
	}, nil
}

// buildGenerator selects the generation collaborator from config: a live
// codex sidecar over HTTP, or the deterministic offline fallback.
func buildGenerator(components *bootstrap.Components) (clients.Generator, error) {
	cfg := components.Config.Codex

	switch cfg.Mode {
	case "http":
		httpClient := &http.Client{Timeout: cfg.Timeout}
		return clients.NewCodexClient(httpClient, cfg.BaseURL, components.Logger), nil
	case "fallback":
		return clients.NewFallbackGenerator(), nil
	default:
		return nil, fmt.Errorf("unknown codex mode: %q", cfg.Mode)
	}
}
