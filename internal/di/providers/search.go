package providers

import (
	"context"
	"path/filepath"

	"github.com/samber/do/v2"

	"github.com/memoraapp/memora/internal/config"
	"github.com/memoraapp/memora/internal/docindex"
	"github.com/memoraapp/memora/internal/logger"
)

// indexDir is the document index directory inside the data dir.
const indexDir = "index"

// IndexHandle wraps the document index with shutdown capability.
type IndexHandle struct {
	*docindex.Index
}

// Shutdown implements do.Shutdownable.
func (h *IndexHandle) Shutdown() error {
	return h.Close()
}

// ProvideDocumentIndex provides the Badger-backed document index with its
// Bleve keyword index.
func ProvideDocumentIndex(i do.Injector) (*IndexHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	index, err := docindex.Open(docindex.Options{
		DataPath: filepath.Join(cfg.DataDir, indexDir),
		Logger:   log.Component("docindex"),
	})
	if err != nil {
		return nil, err
	}

	docCount, _ := index.DocumentCount(context.Background())
	log.Info("Document index initialized", "documents", docCount)

	return &IndexHandle{Index: index}, nil
}
