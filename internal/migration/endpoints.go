package migration

import (
	"context"
	"fmt"

	"github.com/memoraapp/memora/internal/docindex"
	"github.com/memoraapp/memora/internal/domain"
	apperr "github.com/memoraapp/memora/internal/errors"
	"github.com/memoraapp/memora/internal/remote"
	"github.com/memoraapp/memora/internal/snapshot"
	"github.com/memoraapp/memora/internal/store"
)

// Source produces the snapshot a migration imports.
type Source interface {
	Export(ctx context.Context) (*snapshot.Snapshot, error)
}

// Destination receives imported records one at a time.
type Destination interface {
	CreateUser(ctx context.Context, u *domain.User) error
	CreateCategory(ctx context.Context, c *domain.Category) error
	CreateCollection(ctx context.Context, c *domain.Collection) error
	CreateCollectionDetail(ctx context.Context, d *domain.CollectionDetail) error
	CreatePost(ctx context.Context, p *domain.Post) error
	CreateComment(ctx context.Context, c *domain.Comment) error
	CreateLike(ctx context.Context, l *domain.Like) (bool, error)
	CreateAttachment(ctx context.Context, a *domain.Attachment) error
	AddKnowledgeDocument(ctx context.Context, doc *domain.KnowledgeDocument) (string, error)
}

// postCollectionCreator is implemented by destinations that can write a post
// and its synthesized collection atomically.
type postCollectionCreator interface {
	CreatePostWithCollection(ctx context.Context, c *domain.Collection, p *domain.Post) error
}

// Endpoint is one side of a migration.
type Endpoint interface {
	Source
	Destination
}

// Local is the standalone side: the content store plus the document index.
type Local struct {
	Store  store.ContentStore
	Index  *docindex.Index
	UserID string
}

var (
	_ Endpoint              = (*Local)(nil)
	_ postCollectionCreator = (*Local)(nil)
)

// Export reads the user's content graph from the local stores.
func (l *Local) Export(ctx context.Context) (*snapshot.Snapshot, error) {
	if l.UserID == "" {
		return nil, apperr.Validation("local export requires a user id")
	}
	s := &snapshot.Snapshot{}

	u, err := l.Store.GetUser(ctx, l.UserID)
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", l.UserID, err)
	}
	s.Users = []*domain.User{u}

	if s.Categories, err = l.Store.ListCategoriesByUser(ctx, l.UserID); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	if s.Collections, err = l.Store.ListCollectionsByUser(ctx, l.UserID); err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	if s.CollectionDetails, err = l.Store.ListCollectionDetailsByUser(ctx, l.UserID); err != nil {
		return nil, fmt.Errorf("list collection details: %w", err)
	}
	if s.Posts, err = l.Store.ListPostsByUser(ctx, l.UserID, store.PostFilter{IncludePrivate: true}); err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	if s.Comments, err = l.Store.ListCommentsOnUserPosts(ctx, l.UserID); err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	if s.Likes, err = l.Store.ListLikesByUser(ctx, l.UserID); err != nil {
		return nil, fmt.Errorf("list likes: %w", err)
	}
	if s.Attachments, err = l.Store.ListAttachmentsByUser(ctx, l.UserID); err != nil {
		return nil, fmt.Errorf("list attachments: %w", err)
	}
	if l.Index != nil {
		if s.KnowledgeDocuments, err = l.Index.GetAllDocuments(ctx, 0); err != nil {
			return nil, fmt.Errorf("list knowledge documents: %w", err)
		}
	}
	return s, nil
}

func (l *Local) CreateUser(ctx context.Context, u *domain.User) error {
	return l.Store.CreateUser(ctx, u)
}

func (l *Local) CreateCategory(ctx context.Context, c *domain.Category) error {
	return l.Store.CreateCategory(ctx, c)
}

func (l *Local) CreateCollection(ctx context.Context, c *domain.Collection) error {
	return l.Store.CreateCollection(ctx, c)
}

func (l *Local) CreateCollectionDetail(ctx context.Context, d *domain.CollectionDetail) error {
	return l.Store.CreateCollectionDetail(ctx, d)
}

func (l *Local) CreatePost(ctx context.Context, p *domain.Post) error {
	return l.Store.CreatePost(ctx, p)
}

func (l *Local) CreatePostWithCollection(ctx context.Context, c *domain.Collection, p *domain.Post) error {
	return l.Store.CreatePostWithCollection(ctx, c, p)
}

func (l *Local) CreateComment(ctx context.Context, c *domain.Comment) error {
	return l.Store.CreateComment(ctx, c)
}

func (l *Local) CreateLike(ctx context.Context, like *domain.Like) (bool, error) {
	return l.Store.CreateLike(ctx, like)
}

func (l *Local) CreateAttachment(ctx context.Context, a *domain.Attachment) error {
	return l.Store.CreateAttachment(ctx, a)
}

// AddKnowledgeDocument adds doc to the document index without a collection.
func (l *Local) AddKnowledgeDocument(ctx context.Context, doc *domain.KnowledgeDocument) (string, error) {
	if l.Index == nil {
		return "", apperr.Internalf("document index not configured")
	}
	return l.Index.AddDocument(ctx, doc, "")
}

// Remote is the normal side, reached through the remote gateway.
type Remote struct {
	*remote.Client
}

var _ Endpoint = Remote{}

// Export runs the remote bulk export. A non-success envelope is an error.
func (r Remote) Export(ctx context.Context) (*snapshot.Snapshot, error) {
	env, err := r.Client.Export(ctx)
	if err != nil {
		return nil, fmt.Errorf("remote export: %w", err)
	}
	if !env.OK() {
		return nil, apperr.RemoteRejectedf("remote export failed: code %d: %s", env.Code, env.Message)
	}
	return &env.Data, nil
}

// Archive is a Source reading a snapshot archive from disk.
type Archive struct {
	Path string
}

// Export reads the archive.
func (a Archive) Export(_ context.Context) (*snapshot.Snapshot, error) {
	snap, _, err := snapshot.ReadArchive(a.Path)
	if err != nil {
		return nil, fmt.Errorf("read archive %s: %w", a.Path, err)
	}
	return snap, nil
}
