// Package app provides application services that orchestrate domain logic.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/faktion/registry/domain/auth"
	"github.com/faktion/registry/domain/bundle"
	"github.com/faktion/registry/domain/catalog"
	"github.com/faktion/registry/domain/distribution"
	"github.com/faktion/registry/domain/schema"
	"github.com/faktion/registry/ports"
)

// DistributionService serves bundled catalog items.
// It holds only immutable state and is safe for concurrent use.
type DistributionService struct {
	catalog   *catalog.Catalog
	validator *schema.Validator
	resolver  *FileResolver
	clock     ports.Clock

	// Static configuration (requires restart)
	secret string
}

// DistributionDeps contains dependencies for DistributionService.
type DistributionDeps struct {
	Catalog   *catalog.Catalog
	Validator *schema.Validator
	Files     ports.FileSource
	Clock     ports.Clock
}

// DistributionConfig contains configuration for DistributionService.
type DistributionConfig struct {
	Secret         string
	MaxConcurrency int
}

// NewDistributionService creates a new distribution service.
func NewDistributionService(deps DistributionDeps, cfg DistributionConfig) *DistributionService {
	return &DistributionService{
		catalog:   deps.Catalog,
		validator: deps.Validator,
		resolver:  NewFileResolver(deps.Files, cfg.MaxConcurrency),
		clock:     deps.Clock,
		secret:    cfg.Secret,
	}
}

// Catalog returns the catalog the service distributes.
func (s *DistributionService) Catalog() *catalog.Catalog {
	return s.catalog
}

// HandleResult represents the outcome of handling a request.
type HandleResult struct {
	// Stage is the last stage entered; StageDone on success.
	Stage distribution.Stage

	Item  *bundle.Item
	Index *catalog.Index
	Error *distribution.ErrorResponse

	// Diagnostics (for logging and metrics, never sent to the client)
	Cause           error
	AuthReason      auth.Reason
	Validation      schema.Result
	ResolvedFiles   int
	ResolveDuration time.Duration
}

// Handle runs one request through
// authenticating -> looking up -> validating -> resolving -> assembling.
// Every stage can end the request with its own error; nothing is retried.
func (s *DistributionService) Handle(ctx context.Context, req distribution.Request) HandleResult {
	// 1. Authenticate (PURE)
	decision := auth.Authenticate(req.Credential, s.secret)
	if !decision.Authorized {
		return HandleResult{
			Stage:      distribution.StageAuthenticating,
			Error:      &distribution.ErrUnauthorized,
			AuthReason: decision.Reason,
		}
	}

	// Reserved name: the whole registry document
	if req.Name == distribution.IndexName {
		if _, ok := s.catalog.Lookup(req.Name); !ok {
			idx := s.catalog.Index()
			return HandleResult{Stage: distribution.StageDone, Index: &idx}
		}
	}

	// 2. Lookup (in-memory)
	entry, ok := s.catalog.Lookup(req.Name)
	if !ok {
		return HandleResult{
			Stage: distribution.StageLookingUp,
			Error: &distribution.ErrNotFound,
		}
	}

	// 3. Validate (PURE)
	// Clients see one 400 body; the reason stays in Validation for logs.
	validation := s.validator.Validate(entry)
	if !validation.Valid {
		return HandleResult{
			Stage:      distribution.StageValidating,
			Error:      &distribution.ErrNoFiles,
			Validation: validation,
		}
	}

	// 4. Resolve files (I/O, concurrent)
	start := s.clock.Now()
	files, err := s.resolver.Resolve(ctx, entry.Files)
	elapsed := s.clock.Now().Sub(start)
	if err != nil {
		return HandleResult{
			Stage:           distribution.StageResolving,
			Error:           &distribution.ErrInternal,
			Cause:           err,
			Validation:      validation,
			ResolveDuration: elapsed,
		}
	}

	// 5. Assemble (PURE)
	item, err := bundle.Assemble(entry, files)
	if err != nil {
		return HandleResult{
			Stage:           distribution.StageAssembling,
			Error:           &distribution.ErrInternal,
			Cause:           fmt.Errorf("assemble bundle: %w", err),
			ResolvedFiles:   len(files),
			ResolveDuration: elapsed,
		}
	}

	return HandleResult{
		Stage:           distribution.StageDone,
		Item:            &item,
		Validation:      validation,
		ResolvedFiles:   len(files),
		ResolveDuration: elapsed,
	}
}
