// Package di provides dependency injection configuration for Memora.
package di

import (
	"github.com/samber/do/v2"
	"github.com/spf13/viper"

	"github.com/memoraapp/memora/internal/config"
	"github.com/memoraapp/memora/internal/di/providers"
	"github.com/memoraapp/memora/internal/logger"
)

// NewContainer creates and configures the DI container with all providers.
// v carries the command-line flags bound by the CLI.
func NewContainer(v *viper.Viper) *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.ProvideValue(injector, v)
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideModeProvider)

	// Storage layer
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideDocumentIndex)

	// Remote gateway
	do.Provide(injector, providers.ProvideRemoteClient)

	// Business services
	do.Provide(injector, providers.ProvideLocalEndpoint)
	do.Provide(injector, providers.ProvideMigrationEngine)
	do.Provide(injector, providers.ProvideStatusReporter)
	do.Provide(injector, providers.ProvideKnowledgeBuilder)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes the services the normal-mode server needs and starts
// it. The remaining services stay lazy until a command invokes them.
func Bootstrap(injector *do.RootScope) error {
	if _, err := do.Invoke[*config.Config](injector); err != nil {
		return err
	}
	log := do.MustInvoke[*logger.Logger](injector)

	if _, err := do.Invoke[*providers.StoreHandle](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.IndexHandle](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.HTTPServerHandle](injector); err != nil {
		return err
	}

	log.Info("Server running")
	return nil
}
