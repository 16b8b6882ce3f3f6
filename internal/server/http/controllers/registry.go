package controllers

import (
	"context"

	"github.com/go-chi/chi/v5"

	"github.com/rzbill/zkhook/internal/filter"
	"github.com/rzbill/zkhook/internal/registry"
	"github.com/rzbill/zkhook/internal/subscription"
	logpkg "github.com/rzbill/zkhook/pkg/log"
)

// Registry is the registry surface the controllers use.
type Registry interface {
	MergeAdd(ctx context.Context, f filter.Filter, additions subscription.Set) error
	Walk(ctx context.Context, fn func(filter.Filter, subscription.Set) error) error
	WalkKind(ctx context.Context, k filter.Kind, fn func(filter.Filter, subscription.Set) error) error
	Stats() registry.Stats
}

// HealthChecker reports whether the store is serving.
type HealthChecker interface {
	CheckHealth(ctx context.Context) error
}

// ControllerRegistry groups the HTTP controllers and mounts their routes.
type ControllerRegistry struct {
	general       *GeneralController
	registrations *RegistrationController
}

// NewControllerRegistry creates a new controller registry.
func NewControllerRegistry(reg Registry, health HealthChecker, logger logpkg.Logger) *ControllerRegistry {
	return &ControllerRegistry{
		general:       NewGeneralController(reg, health),
		registrations: NewRegistrationController(reg, logger),
	}
}

// RegisterAllRoutes registers every controller's routes on r.
func (c *ControllerRegistry) RegisterAllRoutes(r chi.Router) {
	c.general.RegisterRoutes(r)
	c.registrations.RegisterRoutes(r)
}
