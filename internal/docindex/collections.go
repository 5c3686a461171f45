package docindex

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/memoraapp/memora/internal/domain"
	"github.com/memoraapp/memora/internal/id"
	"github.com/memoraapp/memora/internal/store"
)

// CreateCollection creates a named document collection.
// Returns store.ErrAlreadyExists if the name is taken.
func (x *Index) CreateCollection(ctx context.Context, name string, metadata map[string]any) (*domain.DocumentCollection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, store.ErrInvalidInput.WithMessage("collection name is required")
	}

	coll := &domain.DocumentCollection{
		Name:      name,
		Metadata:  metadata,
		CreatedAt: time.Now(),
	}
	if err := id.Ensure(&coll.ID, id.PrefixDocumentCollection); err != nil {
		return nil, err
	}

	err := x.db.Update(func(txn *badger.Txn) error {
		return x.collections.create(txn, coll.ID, coll)
	})
	if err != nil {
		return nil, err
	}
	return coll, nil
}

// GetCollection returns a collection by ID.
func (x *Index) GetCollection(ctx context.Context, collectionID string) (*domain.DocumentCollection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var coll *domain.DocumentCollection
	err := x.db.View(func(txn *badger.Txn) error {
		var err error
		coll, err = x.collections.get(txn, collectionID)
		return err
	})
	return coll, err
}

// GetCollectionByName returns a collection by its unique name.
func (x *Index) GetCollectionByName(ctx context.Context, name string) (*domain.DocumentCollection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var coll *domain.DocumentCollection
	err := x.db.View(func(txn *badger.Txn) error {
		var err error
		coll, err = x.collections.getByIndex(txn, "name", name)
		return err
	})
	return coll, err
}

// GetCollections returns every document collection.
func (x *Index) GetCollections(ctx context.Context) ([]*domain.DocumentCollection, error) {
	var out []*domain.DocumentCollection
	for coll, err := range x.collections.list(ctx, x.db) {
		if err != nil {
			return nil, err
		}
		out = append(out, coll)
	}
	return out, nil
}

// RemoveCollection deletes a collection and its memberships. Member documents
// are kept. It reports whether the collection existed.
func (x *Index) RemoveCollection(ctx context.Context, collectionID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	var (
		existed bool
		members []string
	)
	err := x.db.Update(func(txn *badger.Txn) error {
		var err error
		members, err = memberIDs(txn, prefixColMember+collectionID+":")
		if err != nil {
			return err
		}
		for _, docID := range members {
			if err := deleteMembership(txn, docID, collectionID); err != nil {
				return err
			}
		}
		existed, err = x.collections.delete(txn, collectionID)
		return err
	})
	if err != nil {
		return false, err
	}

	for _, docID := range members {
		if err := x.reindexDocument(docID); err != nil {
			return existed, fmt.Errorf("reindex document %s: %w", docID, err)
		}
	}
	return existed, nil
}

// AddDocumentToCollection adds an existing document to an existing collection.
// Adding a document twice is a no-op.
func (x *Index) AddDocumentToCollection(ctx context.Context, docID, collectionID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := x.db.Update(func(txn *badger.Txn) error {
		if _, err := x.docs.get(txn, docID); err != nil {
			return fmt.Errorf("document %s: %w", docID, err)
		}
		if _, err := x.collections.get(txn, collectionID); err != nil {
			return fmt.Errorf("collection %s: %w", collectionID, err)
		}
		return setMembership(txn, docID, collectionID)
	})
	if err != nil {
		return err
	}
	return x.reindexDocument(docID)
}

// RemoveDocumentFromCollection drops a membership. It reports whether the
// document was a member.
func (x *Index) RemoveDocumentFromCollection(ctx context.Context, docID, collectionID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	var wasMember bool
	err := x.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(docMemberKey(docID, collectionID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		wasMember = true
		return deleteMembership(txn, docID, collectionID)
	})
	if err != nil || !wasMember {
		return false, err
	}
	return true, x.reindexDocument(docID)
}

// GetCollectionDocuments returns the documents in a collection.
// Returns store.ErrNotFound if the collection does not exist.
func (x *Index) GetCollectionDocuments(ctx context.Context, collectionID string) ([]*domain.KnowledgeDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var docs []*domain.KnowledgeDocument
	err := x.db.View(func(txn *badger.Txn) error {
		if _, err := x.collections.get(txn, collectionID); err != nil {
			return err
		}
		ids, err := memberIDs(txn, prefixColMember+collectionID+":")
		if err != nil {
			return err
		}
		for _, docID := range ids {
			doc, err := x.docs.get(txn, docID)
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			docs = append(docs, doc)
		}
		return nil
	})
	return docs, err
}

func docMemberKey(docID, collectionID string) []byte {
	return []byte(prefixDocMember + docID + ":" + collectionID)
}

func colMemberKey(collectionID, docID string) []byte {
	return []byte(prefixColMember + collectionID + ":" + docID)
}

func setMembership(txn *badger.Txn, docID, collectionID string) error {
	if err := txn.Set(docMemberKey(docID, collectionID), nil); err != nil {
		return fmt.Errorf("set membership: %w", err)
	}
	if err := txn.Set(colMemberKey(collectionID, docID), nil); err != nil {
		return fmt.Errorf("set membership: %w", err)
	}
	return nil
}

func deleteMembership(txn *badger.Txn, docID, collectionID string) error {
	if err := txn.Delete(docMemberKey(docID, collectionID)); err != nil {
		return fmt.Errorf("delete membership: %w", err)
	}
	if err := txn.Delete(colMemberKey(collectionID, docID)); err != nil {
		return fmt.Errorf("delete membership: %w", err)
	}
	return nil
}

// memberIDs returns the key suffixes under prefix.
func memberIDs(txn *badger.Txn, prefix string) ([]string, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(prefix)
	opts.PrefetchValues = false

	it := txn.NewIterator(opts)
	defer it.Close()

	var ids []string
	for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
		ids = append(ids, string(it.Item().Key()[len(prefix):]))
	}
	return ids, nil
}
