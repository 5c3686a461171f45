package migration

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/memoraapp/memora/internal/docindex"
	"github.com/memoraapp/memora/internal/domain"
	"github.com/memoraapp/memora/internal/id"
	"github.com/memoraapp/memora/internal/snapshot"
	"github.com/memoraapp/memora/internal/store/sqlite"
)

// staticSource returns a fixed snapshot or error.
type staticSource struct {
	snap *snapshot.Snapshot
	err  error
}

func (s staticSource) Export(context.Context) (*snapshot.Snapshot, error) {
	return s.snap, s.err
}

// memDest records everything it receives and enforces no constraints.
type memDest struct {
	mu          sync.Mutex
	users       []*domain.User
	categories  []*domain.Category
	collections []*domain.Collection
	details     []*domain.CollectionDetail
	posts       []*domain.Post
	comments    []*domain.Comment
	likes       []*domain.Like
	attachments []*domain.Attachment
	docs        []*domain.KnowledgeDocument

	failCollection bool
}

func (d *memDest) CreateUser(_ context.Context, u *domain.User) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users = append(d.users, u)
	return nil
}

func (d *memDest) CreateCategory(_ context.Context, c *domain.Category) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.categories = append(d.categories, c)
	return nil
}

func (d *memDest) CreateCollection(_ context.Context, c *domain.Collection) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failCollection {
		return errors.New("collection storage offline")
	}
	if c.ID == "" {
		c.ID = id.MustGenerate(id.PrefixCollection)
	}
	d.collections = append(d.collections, c)
	return nil
}

func (d *memDest) CreateCollectionDetail(_ context.Context, det *domain.CollectionDetail) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.details = append(d.details, det)
	return nil
}

func (d *memDest) CreatePost(_ context.Context, p *domain.Post) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.posts = append(d.posts, p)
	return nil
}

func (d *memDest) CreateComment(_ context.Context, c *domain.Comment) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.comments = append(d.comments, c)
	return nil
}

func (d *memDest) CreateLike(_ context.Context, l *domain.Like) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.likes = append(d.likes, l)
	return true, nil
}

func (d *memDest) CreateAttachment(_ context.Context, a *domain.Attachment) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.attachments = append(d.attachments, a)
	return nil
}

func (d *memDest) AddKnowledgeDocument(_ context.Context, doc *domain.KnowledgeDocument) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.docs = append(d.docs, doc)
	return doc.ID, nil
}

func (d *memDest) Export(context.Context) (*snapshot.Snapshot, error) {
	return nil, errors.New("memDest is write-only")
}

func (d *memDest) collectionByID(id string) *domain.Collection {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, c := range d.collections {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// newLocal opens a SQLite store and document index in a temp dir.
func newLocal(t *testing.T, userID string) *Local {
	t.Helper()
	dir := t.TempDir()

	st, err := sqlite.Open(filepath.Join(dir, "memora.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	idx, err := docindex.Open(docindex.Options{DataPath: filepath.Join(dir, "index")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })

	return &Local{Store: st, Index: idx, UserID: userID}
}

// scenarioSnapshot has two users (one without a credential), one collection
// and three posts of which one is private.
func scenarioSnapshot() *snapshot.Snapshot {
	return &snapshot.Snapshot{
		Users: []*domain.User{
			{ID: "u1", Username: "ada", Email: "ada@example.com", PasswordHash: "$argon2id$existing"},
			{ID: "u2", Username: "bob", Email: "bob@example.com"},
		},
		Collections: []*domain.Collection{
			{ID: "c1", UserID: "u1", Name: "Reading"},
		},
		Posts: []*domain.Post{
			{ID: "p1", PostID: "p1", UserID: "u1", CollectionID: "c1", Description: "public one"},
			{ID: "p2", PostID: "p2", UserID: "u1", CollectionID: "c1", Description: "public two"},
			{ID: "p3", PostID: "p3", UserID: "u1", CollectionID: "c1", Description: "secret", IsPrivate: true},
		},
		Comments: []*domain.Comment{
			{ID: "m1", PostID: "p1", UserID: "u2", Content: "nice"},
			{ID: "m3", PostID: "p3", UserID: "u2", Content: "on a private post"},
		},
		Likes: []*domain.Like{
			{UserID: "u2", AssetID: "p1", AssetKind: domain.AssetPost},
			{UserID: "u2", AssetID: "p3", AssetKind: domain.AssetPost},
			{UserID: "u1", AssetID: "m3", AssetKind: domain.AssetComment},
		},
	}
}
