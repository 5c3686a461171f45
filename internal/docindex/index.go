// Package docindex stores knowledge documents and their collection
// memberships in Badger and serves keyword search over them with Bleve.
package docindex

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/dgraph-io/badger/v4"

	"github.com/memoraapp/memora/internal/domain"
	"github.com/memoraapp/memora/internal/id"
	"github.com/memoraapp/memora/internal/logger"
	"github.com/memoraapp/memora/internal/store"
)

// Key prefixes in Badger.
const (
	prefixDocument   = "doc:"
	prefixCollection = "dcl:"
	prefixDocMember  = "mem:doc:" // mem:doc:<docID>:<collectionID>
	prefixColMember  = "mem:col:" // mem:col:<collectionID>:<docID>
)

// DefaultSearchLimit is used when a search asks for zero or fewer results.
const DefaultSearchLimit = 5

// ScoredDocument is a search hit.
type ScoredDocument struct {
	Document *domain.KnowledgeDocument `json:"document"`
	Score    float64                   `json:"score"`
}

// Options configures the document index.
type Options struct {
	DataPath string       // Directory holding docs.badger and docs.bleve
	Logger   *slog.Logger // Logger for operations (uses discard if nil)
}

// Index is the local document index.
//
// Thread safety: all public methods are safe for concurrent use. Methods
// using the Bleve handle hold the read lock; Close takes the write lock so
// the handle is never closed under a running call.
type Index struct {
	db     *badger.DB
	text   bleve.Index
	path   string
	logger *slog.Logger
	mu     sync.RWMutex

	docs        *entity[domain.KnowledgeDocument]
	collections *entity[domain.DocumentCollection]
}

// Open opens or creates the index under opts.DataPath. The text index is
// rebuilt from Badger when it is missing, unreadable, or built with an older
// mapping.
func Open(opts Options) (*Index, error) {
	log := logger.OrDiscard(opts.Logger)

	if err := os.MkdirAll(opts.DataPath, 0o755); err != nil {
		return nil, fmt.Errorf("create index dir: %w", err)
	}

	bopts := badger.DefaultOptions(filepath.Join(opts.DataPath, "docs.badger"))
	bopts.Logger = nil
	bopts.SyncWrites = true
	bopts.CompactL0OnClose = true

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("open badger db: %w", err)
	}

	idx := &Index{
		db:     db,
		path:   filepath.Join(opts.DataPath, "docs.bleve"),
		logger: log,
		docs:   newEntity[domain.KnowledgeDocument](prefixDocument),
		collections: newEntity[domain.DocumentCollection](prefixCollection).
			withIndex("name", func(c *domain.DocumentCollection) []string { return []string{c.Name} }),
	}

	rebuilt, err := idx.openText(filepath.Join(opts.DataPath, "docs.version"))
	if err != nil {
		db.Close()
		return nil, err
	}
	if rebuilt {
		if err := idx.reindexAll(context.Background()); err != nil {
			idx.Close()
			return nil, fmt.Errorf("reindex documents: %w", err)
		}
	}

	return idx, nil
}

// openText opens the Bleve index, recreating it when needed. It reports
// whether a fresh index was created.
func (x *Index) openText(versionPath string) (bool, error) {
	needsRebuild := false

	indexExists := false
	if _, err := os.Stat(x.path); err == nil {
		indexExists = true
	}

	if indexExists {
		existing, err := os.ReadFile(versionPath)
		if err != nil || string(existing) != mappingVersion {
			x.logger.Info("document index mapping version changed, will rebuild",
				"old_version", string(existing),
				"new_version", mappingVersion,
			)
			needsRebuild = true
		}
	}

	if !needsRebuild && indexExists {
		text, err := bleve.Open(x.path)
		if err == nil {
			x.text = text
			x.logger.Debug("opened existing document index", "path", x.path)
			return false, nil
		}
		x.logger.Warn("failed to open document index, will recreate", "path", x.path, "error", err)
	}

	if err := os.RemoveAll(x.path); err != nil {
		return false, fmt.Errorf("remove old index: %w", err)
	}

	text, err := bleve.New(x.path, buildIndexMapping())
	if err != nil {
		return false, fmt.Errorf("create index: %w", err)
	}
	if err := os.WriteFile(versionPath, []byte(mappingVersion), 0o644); err != nil {
		x.logger.Warn("failed to write document index version file", "error", err)
	}
	x.text = text
	x.logger.Info("created document index", "path", x.path, "mapping_version", mappingVersion)
	return true, nil
}

// reindexAll indexes every stored document into the text index.
func (x *Index) reindexAll(ctx context.Context) error {
	x.mu.RLock()
	defer x.mu.RUnlock()

	batch := x.text.NewBatch()
	n := 0
	for doc, err := range x.docs.list(ctx, x.db) {
		if err != nil {
			return err
		}
		memberships, err := x.documentCollectionIDs(doc.ID)
		if err != nil {
			return err
		}
		if err := batch.Index(doc.ID, indexedDocument(doc, memberships)); err != nil {
			return fmt.Errorf("batch index %s: %w", doc.ID, err)
		}
		n++
	}
	if err := x.text.Batch(batch); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	if n > 0 {
		x.logger.Info("reindexed documents", "count", n)
	}
	return nil
}

// Close closes the text index and the database.
func (x *Index) Close() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	return errors.Join(x.text.Close(), x.db.Close())
}

// AddDocument stores a document and indexes its content. When collectionID is
// not empty the document also joins that collection, which must exist.
// Returns the document ID.
func (x *Index) AddDocument(ctx context.Context, doc *domain.KnowledgeDocument, collectionID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if doc.Content == "" {
		return "", store.ErrInvalidInput.WithMessage("document content is required")
	}
	if err := id.Ensure(&doc.ID, id.PrefixDocument); err != nil {
		return "", err
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}

	err := x.db.Update(func(txn *badger.Txn) error {
		if collectionID != "" {
			if _, err := x.collections.get(txn, collectionID); err != nil {
				return fmt.Errorf("collection %s: %w", collectionID, err)
			}
		}
		if err := x.docs.create(txn, doc.ID, doc); err != nil {
			return err
		}
		if collectionID != "" {
			return setMembership(txn, doc.ID, collectionID)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	var memberships []string
	if collectionID != "" {
		memberships = []string{collectionID}
	}

	x.mu.RLock()
	defer x.mu.RUnlock()
	if err := x.text.Index(doc.ID, indexedDocument(doc, memberships)); err != nil {
		err = fmt.Errorf("index document %s: %w", doc.ID, err)
		// Unindexed documents are unreachable by search; drop the record so a
		// retry can store it again.
		if rerr := x.unstore(doc.ID, collectionID); rerr != nil {
			x.logger.Error("failed to roll back unindexed document", "doc_id", doc.ID, "error", rerr)
			return "", errors.Join(err, rerr)
		}
		return "", err
	}
	return doc.ID, nil
}

// unstore removes a document record and its membership.
func (x *Index) unstore(docID, collectionID string) error {
	return x.db.Update(func(txn *badger.Txn) error {
		if _, err := x.docs.delete(txn, docID); err != nil {
			return err
		}
		if collectionID != "" {
			return deleteMembership(txn, docID, collectionID)
		}
		return nil
	})
}

// GetDocument returns a stored document.
func (x *Index) GetDocument(ctx context.Context, docID string) (*domain.KnowledgeDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var doc *domain.KnowledgeDocument
	err := x.db.View(func(txn *badger.Txn) error {
		var err error
		doc, err = x.docs.get(txn, docID)
		return err
	})
	return doc, err
}

// RemoveDocument deletes a document and its memberships.
// It reports whether the document existed.
func (x *Index) RemoveDocument(ctx context.Context, docID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	var existed bool
	err := x.db.Update(func(txn *badger.Txn) error {
		collections, err := memberIDs(txn, prefixDocMember+docID+":")
		if err != nil {
			return err
		}
		for _, colID := range collections {
			if err := deleteMembership(txn, docID, colID); err != nil {
				return err
			}
		}
		existed, err = x.docs.delete(txn, docID)
		return err
	})
	if err != nil || !existed {
		return false, err
	}

	x.mu.RLock()
	defer x.mu.RUnlock()
	if err := x.text.Delete(docID); err != nil {
		return true, fmt.Errorf("unindex document %s: %w", docID, err)
	}
	return true, nil
}

// GetAllDocuments returns stored documents in key order. A limit of zero or
// less returns every document.
func (x *Index) GetAllDocuments(ctx context.Context, limit int) ([]*domain.KnowledgeDocument, error) {
	var docs []*domain.KnowledgeDocument
	for doc, err := range x.docs.list(ctx, x.db) {
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
		if limit > 0 && len(docs) >= limit {
			break
		}
	}
	return docs, nil
}

// DocumentCount returns how many documents are stored.
func (x *Index) DocumentCount(ctx context.Context) (int, error) {
	n := 0
	for _, err := range x.docs.list(ctx, x.db) {
		if err != nil {
			return 0, err
		}
		n++
	}
	return n, nil
}

// reindexDocument refreshes the text index entry of one document after its
// memberships changed.
func (x *Index) reindexDocument(docID string) error {
	var (
		doc         *domain.KnowledgeDocument
		memberships []string
	)
	err := x.db.View(func(txn *badger.Txn) error {
		var err error
		if doc, err = x.docs.get(txn, docID); err != nil {
			return err
		}
		memberships, err = memberIDs(txn, prefixDocMember+docID+":")
		return err
	})
	if err != nil {
		return err
	}

	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.text.Index(doc.ID, indexedDocument(doc, memberships))
}

// documentCollectionIDs lists the collections a document belongs to.
func (x *Index) documentCollectionIDs(docID string) ([]string, error) {
	var ids []string
	err := x.db.View(func(txn *badger.Txn) error {
		var err error
		ids, err = memberIDs(txn, prefixDocMember+docID+":")
		return err
	})
	return ids, err
}
