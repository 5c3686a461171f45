// Package store defines the persistence interface for Memora content.
package store

import (
	"context"

	"github.com/memoraapp/memora/internal/domain"
)

// PostFilter selects posts by privacy.
type PostFilter struct {
	IncludePrivate bool
}

// ContentStore holds the relational content graph of standalone mode.
//
// Create methods fill a missing ID and zero timestamps before inserting and
// keep any ID the caller supplies.
type ContentStore interface {
	// Lifecycle
	Close() error

	// Users
	CreateUser(ctx context.Context, user *domain.User) error
	GetUser(ctx context.Context, id string) (*domain.User, error)
	ListUsers(ctx context.Context) ([]*domain.User, error)

	// Categories
	CreateCategory(ctx context.Context, category *domain.Category) error
	GetCategory(ctx context.Context, id string) (*domain.Category, error)
	ListCategoriesByUser(ctx context.Context, userID string) ([]*domain.Category, error)
	UpdateCategoryKnowledgeBase(ctx context.Context, categoryID, knowledgeBaseID string) error

	// Collections
	CreateCollection(ctx context.Context, coll *domain.Collection) error
	GetCollection(ctx context.Context, id string) (*domain.Collection, error)
	ListCollectionsByUser(ctx context.Context, userID string) ([]*domain.Collection, error)
	CountCollectionsByUser(ctx context.Context, userID string) (int, error)

	// Collection details
	CreateCollectionDetail(ctx context.Context, detail *domain.CollectionDetail) error
	ListCollectionDetailsByCollection(ctx context.Context, collectionID string) ([]*domain.CollectionDetail, error)
	ListCollectionDetailsByUser(ctx context.Context, userID string) ([]*domain.CollectionDetail, error)
	ListContentDetailsByCategory(ctx context.Context, userID, categoryID string) ([]*domain.CollectionDetail, error)

	// Posts
	CreatePost(ctx context.Context, post *domain.Post) error
	CreatePostWithCollection(ctx context.Context, coll *domain.Collection, post *domain.Post) error
	GetPost(ctx context.Context, id string) (*domain.Post, error)
	ListPostsByUser(ctx context.Context, userID string, filter PostFilter) ([]*domain.Post, error)
	ListPublicPostsByUser(ctx context.Context, userID string) ([]*domain.Post, error)
	ListPrivatePostsByUser(ctx context.Context, userID string) ([]*domain.Post, error)
	CountPostsByUser(ctx context.Context, userID string) (int, error)

	// Comments
	CreateComment(ctx context.Context, comment *domain.Comment) error
	ListCommentsByPost(ctx context.Context, postID string) ([]*domain.Comment, error)
	ListCommentsOnUserPosts(ctx context.Context, userID string) ([]*domain.Comment, error)

	// Likes
	CreateLike(ctx context.Context, like *domain.Like) (bool, error)
	ListLikesByUser(ctx context.Context, userID string) ([]*domain.Like, error)

	// Attachments
	CreateAttachment(ctx context.Context, att *domain.Attachment) error
	ListAttachmentsByUser(ctx context.Context, userID string) ([]*domain.Attachment, error)
}
