package providers

import (
	"path/filepath"

	"github.com/samber/do/v2"

	"github.com/memoraapp/memora/internal/config"
	"github.com/memoraapp/memora/internal/logger"
	"github.com/memoraapp/memora/internal/store/sqlite"
)

// databaseFile is the content store file inside the data dir.
const databaseFile = "memora.db"

// StoreHandle wraps the content store with shutdown capability.
type StoreHandle struct {
	*sqlite.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore provides the SQLite content store.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	dbPath := filepath.Join(cfg.DataDir, databaseFile)
	db, err := sqlite.Open(dbPath, log.Component("store"))
	if err != nil {
		return nil, err
	}

	log.Info("Database initialized", "path", dbPath)

	return &StoreHandle{Store: db}, nil
}
