package sqlite

import (
	"context"
	"time"

	"github.com/memoraapp/memora/internal/domain"
	"github.com/memoraapp/memora/internal/id"
)

const likeColumns = `id, user_id, asset_id, asset_type, created_at`

func scanLike(sc scanner) (*domain.Like, error) {
	var (
		l         domain.Like
		kind      string
		createdAt string
	)
	err := sc.Scan(&l.ID, &l.UserID, &l.AssetID, &kind, &createdAt)
	if err != nil {
		return nil, err
	}
	l.AssetKind = domain.AssetKind(kind)
	l.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// CreateLike records a like unless the user already likes the asset.
// It reports whether a row was inserted; a repeated like is not an error.
func (s *Store) CreateLike(ctx context.Context, like *domain.Like) (bool, error) {
	if err := id.Ensure(&like.ID, id.PrefixLike); err != nil {
		return false, err
	}
	if like.CreatedAt.IsZero() {
		like.CreatedAt = time.Now()
	}
	if err := s.validate(like); err != nil {
		return false, err
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO likes (`+likeColumns+`)
		VALUES (?, ?, ?, ?, ?)`,
		like.ID,
		like.UserID,
		like.AssetID,
		string(like.AssetKind),
		formatTime(like.CreatedAt),
	)
	if err != nil {
		return false, mapConstraintErr(err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListLikesByUser returns the likes the user gave.
func (s *Store) ListLikesByUser(ctx context.Context, userID string) ([]*domain.Like, error) {
	return queryAll(ctx, s.db, scanLike,
		`SELECT `+likeColumns+` FROM likes WHERE user_id = ? ORDER BY created_at ASC, id ASC`, userID)
}
