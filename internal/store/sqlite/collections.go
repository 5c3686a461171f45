package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/memoraapp/memora/internal/domain"
	"github.com/memoraapp/memora/internal/id"
)

// collectionColumns is the ordered list of columns selected in collection queries.
// Must match the scan order in scanCollection.
const collectionColumns = `id, created_at, updated_at, user_id, category_id, name, description, tags`

// scanCollection scans a sql.Row (or sql.Rows via its Scan method) into a domain.Collection.
func scanCollection(sc scanner) (*domain.Collection, error) {
	var c domain.Collection

	var (
		createdAt   string
		updatedAt   string
		categoryID  sql.NullString
		name        sql.NullString
		description sql.NullString
		tags        sql.NullString
	)

	err := sc.Scan(
		&c.ID,
		&createdAt,
		&updatedAt,
		&c.UserID,
		&categoryID,
		&name,
		&description,
		&tags,
	)
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

	if categoryID.Valid {
		c.CategoryID = &categoryID.String
	}
	c.Name = name.String
	c.Description = description.String
	c.Tags = domain.ParseTags(tags.String)

	return &c, nil
}

// prepareCollection fills defaults and validates a collection before insert.
func (s *Store) prepareCollection(coll *domain.Collection) error {
	if err := id.Ensure(&coll.ID, id.PrefixCollection); err != nil {
		return err
	}
	if coll.CategoryID != nil && *coll.CategoryID == "" {
		coll.CategoryID = nil
	}
	coll.InitTimestamps(time.Now())
	return s.validate(coll)
}

func insertCollection(ctx context.Context, ex execer, coll *domain.Collection) error {
	_, err := ex.ExecContext(ctx, `
		INSERT INTO collections (`+collectionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		coll.ID,
		formatTime(coll.CreatedAt),
		formatTime(coll.UpdatedAt),
		coll.UserID,
		nullableString(coll.CategoryID),
		nullString(coll.Name),
		nullString(coll.Description),
		nullString(coll.TagString()),
	)
	return mapConstraintErr(err)
}

// CreateCollection inserts a collection. A nil or empty CategoryID is stored as NULL.
// Returns store.ErrInvalidReference when the user or category does not exist.
func (s *Store) CreateCollection(ctx context.Context, coll *domain.Collection) error {
	if err := s.prepareCollection(coll); err != nil {
		return err
	}
	return insertCollection(ctx, s.db, coll)
}

// GetCollection retrieves a collection by ID.
func (s *Store) GetCollection(ctx context.Context, id string) (*domain.Collection, error) {
	return queryOne(ctx, s.db, scanCollection,
		`SELECT `+collectionColumns+` FROM collections WHERE id = ?`, id)
}

// ListCollectionsByUser returns the user's collections, oldest first.
func (s *Store) ListCollectionsByUser(ctx context.Context, userID string) ([]*domain.Collection, error) {
	return queryAll(ctx, s.db, scanCollection,
		`SELECT `+collectionColumns+` FROM collections WHERE user_id = ? ORDER BY created_at ASC`, userID)
}

// CountCollectionsByUser returns how many collections the user owns.
func (s *Store) CountCollectionsByUser(ctx context.Context, userID string) (int, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM collections WHERE user_id = ?`, userID)
}
