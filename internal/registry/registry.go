// Package registry resolves module and view-parameter identifiers to
// canonical module records across two storage generations: a legacy
// taxonomy-style record set and the newer relational module table. The two
// are never merged; the current generation is authoritative wherever it is
// populated, and the legacy generation only fills the gaps.
package registry

import (
	"context"
	"errors"
	"fmt"

	"licensegate/pkg/contracts/domain"
)

// ErrModuleNotFound is returned when a slug or view parameter matches no
// module record in the consulted generation(s). Absence of the
// current-generation table itself is a normal condition and maps to this
// same sentinel, never to a fault.
var ErrModuleNotFound = errors.New("module not found")

// Backend is a single schema generation's view of the module records.
type Backend interface {
	BySlug(ctx context.Context, slug string) (*domain.Module, error)
	ByViewParam(ctx context.Context, viewParam string) (*domain.Module, error)
	List(ctx context.Context) ([]domain.Module, error)
}

// Registry bridges the two generations behind one lookup surface, always
// preferring the current generation.
type Registry struct {
	current Backend
	legacy  Backend
}

// New creates a Registry over the two generation backends.
func New(current, legacy Backend) *Registry {
	return &Registry{current: current, legacy: legacy}
}

// ResolveSlug resolves a canonical slug, current generation first.
func (r *Registry) ResolveSlug(ctx context.Context, slug string) (*domain.Module, error) {
	mod, err := r.current.BySlug(ctx, slug)
	if err == nil {
		return mod, nil
	}
	if !errors.Is(err, ErrModuleNotFound) {
		return nil, fmt.Errorf("current generation slug %q: %w", slug, err)
	}
	mod, err = r.legacy.BySlug(ctx, slug)
	if err != nil && !errors.Is(err, ErrModuleNotFound) {
		return nil, fmt.Errorf("legacy generation slug %q: %w", slug, err)
	}
	return mod, err
}

// ResolveViewParam resolves an alternate view-parameter token. The chain
// is current view-param, then current slug (a token may itself already be
// a slug), then legacy view-param. The chain exists because the registry
// moved schemas over time and client requests may carry either form.
func (r *Registry) ResolveViewParam(ctx context.Context, viewParam string) (*domain.Module, error) {
	mod, err := r.current.ByViewParam(ctx, viewParam)
	if err == nil {
		return mod, nil
	}
	if !errors.Is(err, ErrModuleNotFound) {
		return nil, fmt.Errorf("current generation view param %q: %w", viewParam, err)
	}
	mod, err = r.current.BySlug(ctx, viewParam)
	if err == nil {
		return mod, nil
	}
	if !errors.Is(err, ErrModuleNotFound) {
		return nil, fmt.Errorf("current generation slug %q: %w", viewParam, err)
	}
	mod, err = r.legacy.ByViewParam(ctx, viewParam)
	if err != nil && !errors.Is(err, ErrModuleNotFound) {
		return nil, fmt.Errorf("legacy generation view param %q: %w", viewParam, err)
	}
	return mod, err
}

// ResolveCapability resolves an ambiguous token the way an incoming request
// needs it: first as a slug, then as a view parameter. The first success
// wins. This is the decision engine's primary entry point, since a request
// cannot tell the two forms apart.
func (r *Registry) ResolveCapability(ctx context.Context, token string) (*domain.Module, error) {
	mod, err := r.ResolveSlug(ctx, token)
	if err == nil {
		return mod, nil
	}
	if !errors.Is(err, ErrModuleNotFound) {
		return nil, err
	}
	return r.ResolveViewParam(ctx, token)
}

// ListAvailable returns the current-generation module set, falling back to
// the legacy set only when the current one is empty. The sets are never
// merged: a partial migration must not produce duplicate or conflicting
// records.
func (r *Registry) ListAvailable(ctx context.Context) ([]domain.Module, error) {
	current, err := r.current.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("current generation list: %w", err)
	}
	if len(current) > 0 {
		return current, nil
	}
	legacy, err := r.legacy.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("legacy generation list: %w", err)
	}
	return legacy, nil
}
