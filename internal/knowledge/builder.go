// Package knowledge turns a category's notes into a searchable knowledge
// base: a document collection holding Markdown chunks of every note.
package knowledge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/memoraapp/memora/internal/docindex"
	"github.com/memoraapp/memora/internal/domain"
	apperr "github.com/memoraapp/memora/internal/errors"
	"github.com/memoraapp/memora/internal/logger"
)

// NamePrefix starts every knowledge-base collection name.
const NamePrefix = "kb_"

// ContentSource is the part of the content store the builder reads.
type ContentSource interface {
	GetCategory(ctx context.Context, id string) (*domain.Category, error)
	ListContentDetailsByCategory(ctx context.Context, userID, categoryID string) ([]*domain.CollectionDetail, error)
	UpdateCategoryKnowledgeBase(ctx context.Context, categoryID, knowledgeBaseID string) error
}

// Builder builds and queries per-category knowledge bases.
type Builder struct {
	content  ContentSource
	index    *docindex.Index
	splitter *Splitter
	logger   *slog.Logger
}

// NewBuilder creates a builder using the default splitter.
func NewBuilder(content ContentSource, index *docindex.Index, log *slog.Logger) *Builder {
	return &Builder{
		content:  content,
		index:    index,
		splitter: NewSplitter(),
		logger:   logger.OrDiscard(log),
	}
}

// Build creates the knowledge base for a category and links it. It returns
// the knowledge-base id and the number of chunks indexed.
func (b *Builder) Build(ctx context.Context, userID, categoryID string) (string, int, error) {
	cat, err := b.content.GetCategory(ctx, categoryID)
	if err != nil {
		return "", 0, fmt.Errorf("get category %s: %w", categoryID, err)
	}
	if cat.UserID != userID {
		return "", 0, apperr.NotFoundf("category %s not found", categoryID)
	}
	if cat.HasKnowledgeBase() {
		return "", 0, apperr.Conflictf("category %s already has knowledge base %s", categoryID, cat.KnowledgeBaseID)
	}

	details, err := b.content.ListContentDetailsByCategory(ctx, userID, categoryID)
	if err != nil {
		return "", 0, fmt.Errorf("list category content: %w", err)
	}

	type chunk struct {
		text         string
		collectionID string
	}
	var chunks []chunk
	for _, d := range details {
		for _, text := range b.splitter.Split(toMarkdown(d.StringValue())) {
			chunks = append(chunks, chunk{text: text, collectionID: d.CollectionID})
		}
	}
	if len(chunks) == 0 {
		return "", 0, apperr.Validationf("category %s has no content to index", categoryID)
	}

	name := NamePrefix + uuid.NewString()
	coll, err := b.index.CreateCollection(ctx, name, map[string]any{
		"category_id": categoryID,
		"user_id":     userID,
	})
	if err != nil {
		return "", 0, fmt.Errorf("create knowledge base collection: %w", err)
	}

	var added []string
	for i, c := range chunks {
		doc := &domain.KnowledgeDocument{
			ID:      uuid.NewString(),
			Content: c.text,
			Metadata: map[string]any{
				"category_id":   categoryID,
				"collection_id": c.collectionID,
				"chunk":         i,
			},
		}
		if _, err := b.index.AddDocument(ctx, doc, coll.ID); err != nil {
			b.discard(ctx, coll.ID, added)
			return "", 0, fmt.Errorf("add chunk %d: %w", i, err)
		}
		added = append(added, doc.ID)
	}

	if err := b.content.UpdateCategoryKnowledgeBase(ctx, categoryID, name); err != nil {
		b.discard(ctx, coll.ID, added)
		return "", 0, fmt.Errorf("link knowledge base: %w", err)
	}

	b.logger.Info("knowledge base built",
		"category_id", categoryID,
		"knowledge_base", name,
		"notes", len(details),
		"chunks", len(added),
	)
	return name, len(added), nil
}

// discard removes a partially built knowledge base.
func (b *Builder) discard(ctx context.Context, collectionID string, docIDs []string) {
	var errs []error
	for _, id := range docIDs {
		if _, err := b.index.RemoveDocument(ctx, id); err != nil {
			errs = append(errs, err)
		}
	}
	if _, err := b.index.RemoveCollection(ctx, collectionID); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		b.logger.Warn("failed to discard partial knowledge base", "collection_id", collectionID, "error", err)
	}
}

// Query searches a category's knowledge base.
func (b *Builder) Query(ctx context.Context, categoryID, query string, limit int) ([]docindex.ScoredDocument, error) {
	cat, err := b.content.GetCategory(ctx, categoryID)
	if err != nil {
		return nil, fmt.Errorf("get category %s: %w", categoryID, err)
	}
	if !cat.HasKnowledgeBase() {
		return nil, apperr.NotFoundf("category %s has no knowledge base", categoryID)
	}

	coll, err := b.index.GetCollectionByName(ctx, cat.KnowledgeBaseID)
	if err != nil {
		return nil, fmt.Errorf("knowledge base %s: %w", cat.KnowledgeBaseID, err)
	}
	return b.index.SearchCollection(ctx, coll.ID, query, limit)
}
