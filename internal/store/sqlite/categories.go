package sqlite

import (
	"context"
	"database/sql"

	"github.com/memoraapp/memora/internal/domain"
	"github.com/memoraapp/memora/internal/id"
	"github.com/memoraapp/memora/internal/store"
)

const categoryColumns = `id, user_id, name, emoji, knowledge_base_id`

func scanCategory(sc scanner) (*domain.Category, error) {
	var (
		c     domain.Category
		emoji sql.NullString
		kbID  sql.NullString
	)
	if err := sc.Scan(&c.ID, &c.UserID, &c.Name, &emoji, &kbID); err != nil {
		return nil, err
	}
	c.Emoji = emoji.String
	c.KnowledgeBaseID = kbID.String
	return &c, nil
}

// CreateCategory inserts a category.
// Returns store.ErrAlreadyExists when the user already has a category with that name.
func (s *Store) CreateCategory(ctx context.Context, category *domain.Category) error {
	if err := id.Ensure(&category.ID, id.PrefixCategory); err != nil {
		return err
	}
	if err := s.validate(category); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO categories (`+categoryColumns+`)
		VALUES (?, ?, ?, ?, ?)`,
		category.ID,
		category.UserID,
		category.Name,
		nullString(category.Emoji),
		nullString(category.KnowledgeBaseID),
	)
	return mapConstraintErr(err)
}

// GetCategory retrieves a category by ID.
func (s *Store) GetCategory(ctx context.Context, id string) (*domain.Category, error) {
	return queryOne(ctx, s.db, scanCategory,
		`SELECT `+categoryColumns+` FROM categories WHERE id = ?`, id)
}

// ListCategoriesByUser returns the user's categories ordered by name.
func (s *Store) ListCategoriesByUser(ctx context.Context, userID string) ([]*domain.Category, error) {
	return queryAll(ctx, s.db, scanCategory,
		`SELECT `+categoryColumns+` FROM categories WHERE user_id = ? ORDER BY name ASC`, userID)
}

// UpdateCategoryKnowledgeBase links a category to a knowledge base.
// Returns store.ErrNotFound if the category does not exist.
func (s *Store) UpdateCategoryKnowledgeBase(ctx context.Context, categoryID, knowledgeBaseID string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE categories SET knowledge_base_id = ? WHERE id = ?`,
		nullString(knowledgeBaseID), categoryID)
	if err != nil {
		return err
	}

	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
