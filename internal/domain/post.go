package domain

import "time"

// Post is a published note. Every post belongs to exactly one collection.
type Post struct {
	Timestamps
	ID           string `json:"id"`
	PostID       string `json:"post_id" validate:"required"`
	UserID       string `json:"user_id" validate:"required"`
	CollectionID string `json:"refer_collection_id" validate:"required"`
	Description  string `json:"description,omitempty"`
	IsPrivate    bool   `json:"is_private"`
}

// Comment is a reply on a post. UserID is the author.
type Comment struct {
	Timestamps
	ID      string `json:"id"`
	PostID  string `json:"post_id" validate:"required"`
	UserID  string `json:"user_id" validate:"required"`
	Content string `json:"content" validate:"required"`
}

// AssetKind is the kind of record a like targets.
type AssetKind string

// Asset kinds.
const (
	AssetPost    AssetKind = "post"
	AssetComment AssetKind = "comment"
)

// Valid reports whether k is a known asset kind.
func (k AssetKind) Valid() bool {
	return k == AssetPost || k == AssetComment
}

// Like records a user liking a post or comment, at most once per asset.
type Like struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id" validate:"required"`
	AssetID   string    `json:"asset_id" validate:"required"`
	AssetKind AssetKind `json:"asset_type" validate:"required,oneof=post comment"`
	CreatedAt time.Time `json:"created_at"`
}

// Attachment is an uploaded file referenced by URL. AttachmentID is the
// stable identifier other systems use to refer to it.
type Attachment struct {
	ID           string    `json:"id"`
	AttachmentID string    `json:"attachment_id" validate:"required"`
	UserID       string    `json:"user_id" validate:"required"`
	URL          string    `json:"url" validate:"required"`
	Description  string    `json:"description,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
