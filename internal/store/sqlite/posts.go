package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/memoraapp/memora/internal/domain"
	"github.com/memoraapp/memora/internal/id"
	"github.com/memoraapp/memora/internal/store"
)

// postColumns is the ordered list of columns selected in post queries.
// Must match the scan order in scanPost.
const postColumns = `id, created_at, updated_at, post_id, user_id, collection_id, description, is_private`

// scanPost scans a sql.Row (or sql.Rows via its Scan method) into a domain.Post.
func scanPost(sc scanner) (*domain.Post, error) {
	var p domain.Post

	var (
		createdAt   string
		updatedAt   string
		description sql.NullString
		isPrivate   int
	)

	err := sc.Scan(
		&p.ID,
		&createdAt,
		&updatedAt,
		&p.PostID,
		&p.UserID,
		&p.CollectionID,
		&description,
		&isPrivate,
	)
	if err != nil {
		return nil, err
	}

	p.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	p.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}

	p.Description = description.String
	p.IsPrivate = isPrivate != 0

	return &p, nil
}

// preparePost fills defaults and validates a post before insert.
// A post without an external identifier reuses its ID.
func (s *Store) preparePost(post *domain.Post) error {
	if err := id.Ensure(&post.ID, id.PrefixPost); err != nil {
		return err
	}
	if post.PostID == "" {
		post.PostID = post.ID
	}
	post.InitTimestamps(time.Now())
	return s.validate(post)
}

func insertPost(ctx context.Context, ex execer, post *domain.Post) error {
	_, err := ex.ExecContext(ctx, `
		INSERT INTO posts (`+postColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		post.ID,
		formatTime(post.CreatedAt),
		formatTime(post.UpdatedAt),
		post.PostID,
		post.UserID,
		post.CollectionID,
		nullString(post.Description),
		boolToInt(post.IsPrivate),
	)
	return mapConstraintErr(err)
}

// CreatePost inserts a post.
// Returns store.ErrInvalidReference when the referenced collection does not exist.
func (s *Store) CreatePost(ctx context.Context, post *domain.Post) error {
	if err := s.preparePost(post); err != nil {
		return err
	}
	return insertPost(ctx, s.db, post)
}

// CreatePostWithCollection inserts a collection and a post referring to it
// in one transaction. Neither row is written if either insert fails.
func (s *Store) CreatePostWithCollection(ctx context.Context, coll *domain.Collection, post *domain.Post) error {
	if err := s.prepareCollection(coll); err != nil {
		return fmt.Errorf("collection: %w", err)
	}
	post.CollectionID = coll.ID
	if err := s.preparePost(post); err != nil {
		return fmt.Errorf("post: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := insertCollection(ctx, tx, coll); err != nil {
		return fmt.Errorf("insert collection %s: %w", coll.ID, err)
	}
	if err := insertPost(ctx, tx, post); err != nil {
		return fmt.Errorf("insert post %s: %w", post.ID, err)
	}

	return tx.Commit()
}

// GetPost retrieves a post by ID.
func (s *Store) GetPost(ctx context.Context, id string) (*domain.Post, error) {
	return queryOne(ctx, s.db, scanPost,
		`SELECT `+postColumns+` FROM posts WHERE id = ?`, id)
}

// ListPostsByUser returns the user's posts, oldest first. Private posts are
// only included when the filter asks for them.
func (s *Store) ListPostsByUser(ctx context.Context, userID string, filter store.PostFilter) ([]*domain.Post, error) {
	if filter.IncludePrivate {
		return queryAll(ctx, s.db, scanPost,
			`SELECT `+postColumns+` FROM posts WHERE user_id = ? ORDER BY created_at ASC, id ASC`, userID)
	}
	return s.ListPublicPostsByUser(ctx, userID)
}

// ListPublicPostsByUser returns the user's non-private posts.
func (s *Store) ListPublicPostsByUser(ctx context.Context, userID string) ([]*domain.Post, error) {
	return queryAll(ctx, s.db, scanPost,
		`SELECT `+postColumns+` FROM posts WHERE user_id = ? AND is_private = 0 ORDER BY created_at ASC, id ASC`, userID)
}

// ListPrivatePostsByUser returns the user's private posts.
func (s *Store) ListPrivatePostsByUser(ctx context.Context, userID string) ([]*domain.Post, error) {
	return queryAll(ctx, s.db, scanPost,
		`SELECT `+postColumns+` FROM posts WHERE user_id = ? AND is_private = 1 ORDER BY created_at ASC, id ASC`, userID)
}

// CountPostsByUser returns how many posts the user owns, private ones included.
func (s *Store) CountPostsByUser(ctx context.Context, userID string) (int, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM posts WHERE user_id = ?`, userID)
}
