package sqlite

import (
	"context"
	"time"

	"github.com/memoraapp/memora/internal/domain"
	"github.com/memoraapp/memora/internal/id"
)

const commentColumns = `c.id, c.created_at, c.updated_at, c.post_id, c.user_id, c.content`

func scanComment(sc scanner) (*domain.Comment, error) {
	var (
		c         domain.Comment
		createdAt string
		updatedAt string
	)
	err := sc.Scan(&c.ID, &createdAt, &updatedAt, &c.PostID, &c.UserID, &c.Content)
	if err != nil {
		return nil, err
	}

	c.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	c.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateComment inserts a comment on an existing post. The author is not
// required to exist in this store.
func (s *Store) CreateComment(ctx context.Context, comment *domain.Comment) error {
	if err := id.Ensure(&comment.ID, id.PrefixComment); err != nil {
		return err
	}
	comment.InitTimestamps(time.Now())
	if err := s.validate(comment); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO comments (id, created_at, updated_at, post_id, user_id, content)
		VALUES (?, ?, ?, ?, ?, ?)`,
		comment.ID,
		formatTime(comment.CreatedAt),
		formatTime(comment.UpdatedAt),
		comment.PostID,
		comment.UserID,
		comment.Content,
	)
	return mapConstraintErr(err)
}

// ListCommentsByPost returns a post's comments, oldest first.
func (s *Store) ListCommentsByPost(ctx context.Context, postID string) ([]*domain.Comment, error) {
	return queryAll(ctx, s.db, scanComment, `
		SELECT `+commentColumns+` FROM comments c
		WHERE c.post_id = ?
		ORDER BY c.created_at ASC, c.id ASC`, postID)
}

// ListCommentsOnUserPosts returns every comment on posts the user owns,
// whoever wrote it.
func (s *Store) ListCommentsOnUserPosts(ctx context.Context, userID string) ([]*domain.Comment, error) {
	return queryAll(ctx, s.db, scanComment, `
		SELECT `+commentColumns+` FROM comments c
		JOIN posts p ON p.id = c.post_id
		WHERE p.user_id = ?
		ORDER BY c.created_at ASC, c.id ASC`, userID)
}
