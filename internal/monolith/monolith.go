// Package monolith provides the application container and module interface.
package monolith

import (
	"context"

	"github.com/go-chi/chi/v5"

	"github.com/fd1az/pooldash/internal/chains"
	"github.com/fd1az/pooldash/internal/config"
	"github.com/fd1az/pooldash/internal/di"
	"github.com/fd1az/pooldash/internal/health"
	"github.com/fd1az/pooldash/internal/logger"
)

// Monolith is the main application container providing access to shared infrastructure.
type Monolith interface {
	Config() *config.Config
	Logger() logger.LoggerInterface
	Chains() *chains.Registry
	Router() chi.Router
	Health() *health.Checker
	Services() di.ServiceRegistry
}

// Module represents a bounded context module that can register services and start up.
type Module interface {
	RegisterServices(di.Container) error
	Startup(context.Context, Monolith) error
}

// Closer is implemented by modules that own background work.
type Closer interface {
	Shutdown(context.Context) error
}

// app implements the Monolith interface.
type app struct {
	config    *config.Config
	logger    logger.LoggerInterface
	chains    *chains.Registry
	router    *chi.Mux
	health    *health.Checker
	container di.Container
	modules   []Module
}

// New creates a new Monolith instance.
func New(cfg *config.Config, log logger.LoggerInterface, checker *health.Checker) (*app, error) {
	registry, err := chains.NewRegistry(cfg.Chain)
	if err != nil {
		return nil, err
	}

	container := di.NewContainer()

	// Register global services
	container.Register("config", cfg)
	container.Register("logger", log)
	container.Register("chains", registry)

	return &app{
		config:    cfg,
		logger:    log,
		chains:    registry,
		router:    chi.NewRouter(),
		health:    checker,
		container: container,
	}, nil
}

func (a *app) Config() *config.Config {
	return a.config
}

func (a *app) Logger() logger.LoggerInterface {
	return a.logger
}

func (a *app) Chains() *chains.Registry {
	return a.chains
}

func (a *app) Router() chi.Router {
	return a.router
}

func (a *app) Health() *health.Checker {
	return a.health
}

func (a *app) Services() di.ServiceRegistry {
	return a.container
}

// Container returns the DI container for module registration.
func (a *app) Container() di.Container {
	return a.container
}

// Handler returns the HTTP handler with every module's routes mounted.
func (a *app) Handler() *chi.Mux {
	return a.router
}

// RegisterModules registers all provided modules.
func (a *app) RegisterModules(modules ...Module) error {
	for _, m := range modules {
		if err := m.RegisterServices(a.container); err != nil {
			return err
		}
	}
	return nil
}

// StartModules starts all provided modules in order.
func (a *app) StartModules(ctx context.Context, modules ...Module) error {
	for _, m := range modules {
		if err := m.Startup(ctx, a); err != nil {
			return err
		}
		a.modules = append(a.modules, m)
	}
	return nil
}

// Close shuts down started modules in reverse start order.
func (a *app) Close(ctx context.Context) error {
	var first error
	for i := len(a.modules) - 1; i >= 0; i-- {
		c, ok := a.modules[i].(Closer)
		if !ok {
			continue
		}
		if err := c.Shutdown(ctx); err != nil {
			a.logger.Error(ctx, "module shutdown failed", "error", err)
			if first == nil {
				first = err
			}
		}
	}
	return first
}
