package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/memoraapp/memora/internal/domain"
	"github.com/memoraapp/memora/internal/id"
	"github.com/memoraapp/memora/internal/store"
)

const detailColumns = `d.id, d.created_at, d.updated_at, d.collection_id, d.key, d.value`

func scanDetail(sc scanner) (*domain.CollectionDetail, error) {
	var (
		d         domain.CollectionDetail
		createdAt string
		updatedAt string
		value     sql.NullString
	)
	err := sc.Scan(&d.ID, &createdAt, &updatedAt, &d.CollectionID, &d.Key, &value)
	if err != nil {
		return nil, err
	}

	d.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	d.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}
	if value.Valid {
		d.Value = json.RawMessage(value.String)
	}
	return &d, nil
}

// CreateCollectionDetail inserts a key/value attribute for a collection.
// The value must be valid JSON; an empty value is stored as NULL.
// Returns store.ErrAlreadyExists when the collection already has the key.
func (s *Store) CreateCollectionDetail(ctx context.Context, detail *domain.CollectionDetail) error {
	if err := id.Ensure(&detail.ID, id.PrefixCollectionDetail); err != nil {
		return err
	}
	detail.InitTimestamps(time.Now())
	if err := s.validate(detail); err != nil {
		return err
	}

	var value sql.NullString
	if len(detail.Value) > 0 {
		if !json.Valid(detail.Value) {
			return store.ErrInvalidInput.WithMessage("detail value is not valid JSON")
		}
		value = sql.NullString{String: string(detail.Value), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO collection_details (id, created_at, updated_at, collection_id, key, value)
		VALUES (?, ?, ?, ?, ?, ?)`,
		detail.ID,
		formatTime(detail.CreatedAt),
		formatTime(detail.UpdatedAt),
		detail.CollectionID,
		detail.Key,
		value,
	)
	return mapConstraintErr(err)
}

// ListCollectionDetailsByCollection returns every detail of a collection ordered by key.
func (s *Store) ListCollectionDetailsByCollection(ctx context.Context, collectionID string) ([]*domain.CollectionDetail, error) {
	return queryAll(ctx, s.db, scanDetail, `
		SELECT `+detailColumns+` FROM collection_details d
		WHERE d.collection_id = ?
		ORDER BY d.key ASC`, collectionID)
}

// ListCollectionDetailsByUser returns the details of every collection the user owns.
func (s *Store) ListCollectionDetailsByUser(ctx context.Context, userID string) ([]*domain.CollectionDetail, error) {
	return queryAll(ctx, s.db, scanDetail, `
		SELECT `+detailColumns+` FROM collection_details d
		JOIN collections c ON c.id = d.collection_id
		WHERE c.user_id = ?
		ORDER BY d.created_at ASC, d.id ASC`, userID)
}

// ListContentDetailsByCategory returns the "content" details of the user's
// collections in a category.
func (s *Store) ListContentDetailsByCategory(ctx context.Context, userID, categoryID string) ([]*domain.CollectionDetail, error) {
	return queryAll(ctx, s.db, scanDetail, `
		SELECT `+detailColumns+` FROM collection_details d
		JOIN collections c ON c.id = d.collection_id
		WHERE c.user_id = ? AND c.category_id = ? AND d.key = ?
		ORDER BY d.created_at ASC, d.id ASC`, userID, categoryID, domain.DetailKeyContent)
}
