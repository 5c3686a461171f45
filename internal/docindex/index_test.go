package docindex

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memoraapp/memora/internal/domain"
	"github.com/memoraapp/memora/internal/store"
)

// setupTestIndex creates a temporary document index for testing.
func setupTestIndex(t *testing.T) *Index {
	t.Helper()

	idx, err := Open(Options{DataPath: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })

	return idx
}

func addDoc(t *testing.T, idx *Index, content, collectionID string) string {
	t.Helper()
	docID, err := idx.AddDocument(context.Background(), &domain.KnowledgeDocument{Content: content}, collectionID)
	require.NoError(t, err)
	return docID
}

func TestOpen_Empty(t *testing.T) {
	idx := setupTestIndex(t)

	n, err := idx.DocumentCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestAddDocument(t *testing.T) {
	idx := setupTestIndex(t)
	ctx := context.Background()

	doc := &domain.KnowledgeDocument{
		Content:   "Badger is an embeddable key-value store",
		Metadata:  map[string]any{"source": "notes"},
		Embedding: []float32{0.1, 0.2},
	}
	docID, err := idx.AddDocument(ctx, doc, "")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(docID, "doc-"))

	got, err := idx.GetDocument(ctx, docID)
	require.NoError(t, err)
	assert.Equal(t, doc.Content, got.Content)
	assert.Equal(t, "notes", got.Metadata["source"])
	assert.Equal(t, []float32{0.1, 0.2}, got.Embedding)

	_, err = idx.AddDocument(ctx, &domain.KnowledgeDocument{ID: docID, Content: "again"}, "")
	assert.ErrorIs(t, err, store.ErrAlreadyExists)

	_, err = idx.AddDocument(ctx, &domain.KnowledgeDocument{Content: "x"}, "dcl-missing")
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = idx.AddDocument(ctx, &domain.KnowledgeDocument{}, "")
	assert.ErrorIs(t, err, store.ErrInvalidInput)
}

func TestAddDocument_TextIndexFailureLeavesNoRecord(t *testing.T) {
	idx := setupTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.text.Close())

	_, err := idx.AddDocument(ctx, &domain.KnowledgeDocument{ID: "doc-orphan", Content: "never searchable"}, "")
	require.Error(t, err)

	_, err = idx.GetDocument(ctx, "doc-orphan")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRemoveDocument(t *testing.T) {
	idx := setupTestIndex(t)
	ctx := context.Background()

	coll, err := idx.CreateCollection(ctx, "kb_test", nil)
	require.NoError(t, err)
	docID := addDoc(t, idx, "ephemeral note about gardening", coll.ID)

	removed, err := idx.RemoveDocument(ctx, docID)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = idx.RemoveDocument(ctx, docID)
	require.NoError(t, err)
	assert.False(t, removed)

	hits, err := idx.SearchSimilar(ctx, "gardening", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)

	members, err := idx.GetCollectionDocuments(ctx, coll.ID)
	require.NoError(t, err)
	assert.Empty(t, members)
}

func TestSearchSimilar_Ranking(t *testing.T) {
	idx := setupTestIndex(t)
	ctx := context.Background()

	strong := addDoc(t, idx, "badger badger badger storage engine", "")
	weak := addDoc(t, idx, "a long note covering many unrelated topics such as cooking travel music and one badger", "")
	addDoc(t, idx, "nothing relevant here at all", "")

	hits, err := idx.SearchSimilar(ctx, "badger", 10)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, strong, hits[0].Document.ID)
	assert.Equal(t, weak, hits[1].Document.ID)
	assert.Greater(t, hits[0].Score, hits[1].Score)

	limited, err := idx.SearchSimilar(ctx, "badger", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestCollections_Membership(t *testing.T) {
	idx := setupTestIndex(t)
	ctx := context.Background()

	coll, err := idx.CreateCollection(ctx, "kb_1", map[string]any{"category": "cat-1"})
	require.NoError(t, err)

	_, err = idx.CreateCollection(ctx, "kb_1", nil)
	assert.ErrorIs(t, err, store.ErrAlreadyExists)

	byName, err := idx.GetCollectionByName(ctx, "kb_1")
	require.NoError(t, err)
	assert.Equal(t, coll.ID, byName.ID)

	inside := addDoc(t, idx, "rust ownership rules", coll.ID)
	outside := addDoc(t, idx, "rust belt history", "")

	scoped, err := idx.SearchCollection(ctx, coll.ID, "rust", 10)
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	assert.Equal(t, inside, scoped[0].Document.ID)

	require.NoError(t, idx.AddDocumentToCollection(ctx, outside, coll.ID))
	require.NoError(t, idx.AddDocumentToCollection(ctx, outside, coll.ID))

	members, err := idx.GetCollectionDocuments(ctx, coll.ID)
	require.NoError(t, err)
	assert.Len(t, members, 2)

	scoped, err = idx.SearchCollection(ctx, coll.ID, "rust", 10)
	require.NoError(t, err)
	assert.Len(t, scoped, 2)

	removed, err := idx.RemoveDocumentFromCollection(ctx, inside, coll.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = idx.RemoveDocumentFromCollection(ctx, inside, coll.ID)
	require.NoError(t, err)
	assert.False(t, removed)

	err = idx.AddDocumentToCollection(ctx, "doc-missing", coll.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	collections, err := idx.GetCollections(ctx)
	require.NoError(t, err)
	assert.Len(t, collections, 1)
}

func TestRemoveCollection_KeepsDocuments(t *testing.T) {
	idx := setupTestIndex(t)
	ctx := context.Background()

	coll, err := idx.CreateCollection(ctx, "kb_2", nil)
	require.NoError(t, err)
	docID := addDoc(t, idx, "chunk of a knowledge base", coll.ID)

	removed, err := idx.RemoveCollection(ctx, coll.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	_, err = idx.GetCollection(ctx, coll.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = idx.GetDocument(ctx, docID)
	require.NoError(t, err)

	scoped, err := idx.SearchCollection(ctx, coll.ID, "knowledge", 10)
	require.NoError(t, err)
	assert.Empty(t, scoped)

	// The name is free again.
	_, err = idx.CreateCollection(ctx, "kb_2", nil)
	require.NoError(t, err)
}

func TestGetAllDocuments_Limit(t *testing.T) {
	idx := setupTestIndex(t)
	ctx := context.Background()

	for _, c := range []string{"one", "two", "three"} {
		addDoc(t, idx, c, "")
	}

	all, err := idx.GetAllDocuments(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	two, err := idx.GetAllDocuments(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, two, 2)
}

func TestOpen_RebuildsTextIndexOnVersionChange(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	idx, err := Open(Options{DataPath: dir})
	require.NoError(t, err)
	_, err = idx.AddDocument(ctx, &domain.KnowledgeDocument{Content: "persisted through rebuild"}, "")
	require.NoError(t, err)
	require.NoError(t, idx.Close())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "docs.version"), []byte("0"), 0o644))

	reopened, err := Open(Options{DataPath: dir})
	require.NoError(t, err)
	defer reopened.Close()

	hits, err := reopened.SearchSimilar(ctx, "rebuild", 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "persisted through rebuild", hits[0].Document.Content)
}
