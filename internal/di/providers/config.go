// Package providers contains dependency injection providers for Memora.
package providers

import (
	"github.com/samber/do/v2"
	"github.com/spf13/viper"

	"github.com/memoraapp/memora/internal/config"
	"github.com/memoraapp/memora/internal/logger"
)

// ProvideConfig loads the application configuration from the injected viper
// instance, which carries any bound command-line flags.
func ProvideConfig(i do.Injector) (*config.Config, error) {
	v := do.MustInvoke[*viper.Viper](i)
	return config.Load(v)
}

// ProvideLogger provides the structured logger.
func ProvideLogger(i do.Injector) (*logger.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)

	log := logger.New(logger.Config{
		Format:      cfg.Logger.Format,
		Level:       logger.ParseLevel(cfg.Logger.Level),
		AddSource:   cfg.App.Environment == "development" && cfg.Logger.Level == "debug",
		Environment: cfg.App.Environment,
	})

	log.Debug("Configuration loaded",
		"environment", cfg.App.Environment,
		"log_level", cfg.Logger.Level,
		"data_dir", cfg.DataDir,
		"remote", cfg.Remote.BaseURL,
	)

	return log, nil
}
