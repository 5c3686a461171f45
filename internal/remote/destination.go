package remote

import (
	"context"
	"net/url"

	"github.com/memoraapp/memora/internal/domain"
)

// The Create methods write one record to the normal-mode server. The server's
// response replaces the record, so server-assigned ids and timestamps are
// visible to the caller.

// CreateUser creates a user.
func (c *Client) CreateUser(ctx context.Context, u *domain.User) error {
	return c.post(ctx, "users", u, u)
}

// CreateCategory creates a category.
func (c *Client) CreateCategory(ctx context.Context, cat *domain.Category) error {
	return c.post(ctx, "categories", cat, cat)
}

// CreateCollection creates a collection.
func (c *Client) CreateCollection(ctx context.Context, coll *domain.Collection) error {
	return c.post(ctx, "collections", coll, coll)
}

// CreateCollectionDetail creates a collection detail.
func (c *Client) CreateCollectionDetail(ctx context.Context, d *domain.CollectionDetail) error {
	return c.post(ctx, "collection-details", d, d)
}

// CreatePost creates a post.
func (c *Client) CreatePost(ctx context.Context, p *domain.Post) error {
	return c.post(ctx, "posts", p, p)
}

// CreateComment creates a comment on its post.
func (c *Client) CreateComment(ctx context.Context, cm *domain.Comment) error {
	return c.post(ctx, "posts/"+url.PathEscape(cm.PostID)+"/comments", cm, cm)
}

// LikeResult is the server's answer to a like request.
type LikeResult struct {
	Inserted bool         `json:"inserted"`
	Like     *domain.Like `json:"like"`
}

// CreateLike records a like. It reports false when the like already existed.
func (c *Client) CreateLike(ctx context.Context, l *domain.Like) (bool, error) {
	var res LikeResult
	if err := c.post(ctx, "likes", l, &res); err != nil {
		return false, err
	}
	if res.Like != nil {
		*l = *res.Like
	}
	return res.Inserted, nil
}

// CreateAttachment creates an attachment record.
func (c *Client) CreateAttachment(ctx context.Context, a *domain.Attachment) error {
	return c.post(ctx, "attachments", a, a)
}

// AddKnowledgeDocument stores a knowledge document and returns its id.
func (c *Client) AddKnowledgeDocument(ctx context.Context, doc *domain.KnowledgeDocument) (string, error) {
	if err := c.post(ctx, "knowledge-documents", doc, doc); err != nil {
		return "", err
	}
	return doc.ID, nil
}
