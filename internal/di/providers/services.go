package providers

import (
	"github.com/samber/do/v2"

	"github.com/memoraapp/memora/internal/config"
	"github.com/memoraapp/memora/internal/knowledge"
	"github.com/memoraapp/memora/internal/logger"
	"github.com/memoraapp/memora/internal/migration"
)

// ProvideLocalEndpoint provides the standalone side of a migration.
func ProvideLocalEndpoint(i do.Injector) (*migration.Local, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	indexHandle := do.MustInvoke[*IndexHandle](i)

	return &migration.Local{
		Store:  storeHandle.Store,
		Index:  indexHandle.Index,
		UserID: cfg.User.ID,
	}, nil
}

// ProvideMigrationEngine provides the migration engine. The remote side is
// optional: without a configured base URL only archive imports can run.
func ProvideMigrationEngine(i do.Injector) (*migration.Engine, error) {
	modeHandle := do.MustInvoke[*ModeHandle](i)
	local := do.MustInvoke[*migration.Local](i)
	log := do.MustInvoke[*logger.Logger](i)

	var remote migration.Endpoint
	if remoteHandle, err := do.Invoke[*RemoteHandle](i); err == nil {
		remote = migration.Remote{Client: remoteHandle.Client}
	} else {
		log.Debug("Remote gateway unavailable", "error", err)
	}

	return migration.NewEngine(modeHandle.FileProvider, local, remote, log.Component("migration")), nil
}

// ProvideStatusReporter provides the migration status reporter.
func ProvideStatusReporter(i do.Injector) (*migration.StatusReporter, error) {
	cfg := do.MustInvoke[*config.Config](i)
	modeHandle := do.MustInvoke[*ModeHandle](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	indexHandle := do.MustInvoke[*IndexHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return migration.NewStatusReporter(
		modeHandle.FileProvider,
		storeHandle.Store,
		indexHandle.Index,
		cfg.User.ID,
		log.Component("status"),
	), nil
}

// ProvideKnowledgeBuilder provides the knowledge-base builder.
func ProvideKnowledgeBuilder(i do.Injector) (*knowledge.Builder, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	indexHandle := do.MustInvoke[*IndexHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return knowledge.NewBuilder(storeHandle.Store, indexHandle.Index, log.Component("knowledge")), nil
}
