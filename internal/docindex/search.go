package docindex

import (
	"context"
	"errors"
	"fmt"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/dgraph-io/badger/v4"

	"github.com/memoraapp/memora/internal/store"
)

// SearchSimilar returns the documents whose content best matches query by
// keyword relevance, highest score first. The embedding is not consulted.
func (x *Index) SearchSimilar(ctx context.Context, q string, limit int) ([]ScoredDocument, error) {
	return x.search(ctx, contentQuery(q), limit)
}

// SearchCollection is SearchSimilar restricted to one collection's members.
func (x *Index) SearchCollection(ctx context.Context, collectionID, q string, limit int) ([]ScoredDocument, error) {
	scope := bleve.NewTermQuery(collectionID)
	scope.SetField(fieldCollections)
	return x.search(ctx, bleve.NewConjunctionQuery(contentQuery(q), scope), limit)
}

func contentQuery(q string) query.Query {
	match := bleve.NewMatchQuery(q)
	match.SetField(fieldContent)
	return match
}

func (x *Index) search(ctx context.Context, q query.Query, limit int) ([]ScoredDocument, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	x.mu.RLock()
	req := bleve.NewSearchRequestOptions(q, limit, 0, false)
	res, err := x.text.SearchInContext(ctx, req)
	x.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}

	out := make([]ScoredDocument, 0, len(res.Hits))
	err = x.db.View(func(txn *badger.Txn) error {
		for _, hit := range res.Hits {
			doc, err := x.docs.get(txn, hit.ID)
			if errors.Is(err, store.ErrNotFound) {
				// Removed between search and load.
				continue
			}
			if err != nil {
				return err
			}
			out = append(out, ScoredDocument{Document: doc, Score: hit.Score})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
