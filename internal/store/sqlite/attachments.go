package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/memoraapp/memora/internal/domain"
	"github.com/memoraapp/memora/internal/id"
)

const attachmentColumns = `id, attachment_id, user_id, url, description, created_at`

func scanAttachment(sc scanner) (*domain.Attachment, error) {
	var (
		a           domain.Attachment
		description sql.NullString
		createdAt   string
	)
	err := sc.Scan(&a.ID, &a.AttachmentID, &a.UserID, &a.URL, &description, &createdAt)
	if err != nil {
		return nil, err
	}
	a.Description = description.String
	a.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// CreateAttachment inserts an attachment. A missing AttachmentID reuses the ID.
// Returns store.ErrAlreadyExists when the AttachmentID is taken.
func (s *Store) CreateAttachment(ctx context.Context, att *domain.Attachment) error {
	if err := id.Ensure(&att.ID, id.PrefixAttachment); err != nil {
		return err
	}
	if att.AttachmentID == "" {
		att.AttachmentID = att.ID
	}
	if att.CreatedAt.IsZero() {
		att.CreatedAt = time.Now()
	}
	if err := s.validate(att); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO attachments (`+attachmentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?)`,
		att.ID,
		att.AttachmentID,
		att.UserID,
		att.URL,
		nullString(att.Description),
		formatTime(att.CreatedAt),
	)
	return mapConstraintErr(err)
}

// ListAttachmentsByUser returns the user's attachments, oldest first.
func (s *Store) ListAttachmentsByUser(ctx context.Context, userID string) ([]*domain.Attachment, error) {
	return queryAll(ctx, s.db, scanAttachment,
		`SELECT `+attachmentColumns+` FROM attachments WHERE user_id = ? ORDER BY created_at ASC, id ASC`, userID)
}
