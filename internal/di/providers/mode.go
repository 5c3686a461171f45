package providers

import (
	"github.com/samber/do/v2"

	"github.com/memoraapp/memora/internal/config"
	"github.com/memoraapp/memora/internal/logger"
	"github.com/memoraapp/memora/internal/mode"
)

// ModeHandle wraps the file-backed mode provider and its watcher.
type ModeHandle struct {
	*mode.FileProvider
}

// Shutdown implements do.Shutdownable.
func (h *ModeHandle) Shutdown() error {
	return h.Close()
}

// ProvideModeProvider provides the mode provider reading <data_dir>/mode.json.
func ProvideModeProvider(i do.Injector) (*ModeHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	p, err := mode.NewFileProvider(cfg.DataDir, log.Component("mode"))
	if err != nil {
		return nil, err
	}
	return &ModeHandle{FileProvider: p}, nil
}
