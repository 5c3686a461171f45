package migration

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/memoraapp/memora/internal/domain"
	"github.com/memoraapp/memora/internal/logger"
	"github.com/memoraapp/memora/internal/mode"
)

// LocalData reports how much content the standalone stores hold.
type LocalData struct {
	Collections int `json:"collections"`
	Posts       int `json:"posts"`
	Documents   int `json:"documents"`
}

// Status says which migrations are possible right now.
type Status struct {
	CanMigrateToStandalone bool      `json:"canMigrateToStandalone"`
	CanMigrateToNormal     bool      `json:"canMigrateToNormal"`
	LocalData              LocalData `json:"localData"`
}

// ContentCounter counts a user's local content.
type ContentCounter interface {
	CountCollectionsByUser(ctx context.Context, userID string) (int, error)
	CountPostsByUser(ctx context.Context, userID string) (int, error)
}

// DocumentCounter counts indexed documents.
type DocumentCounter interface {
	DocumentCount(ctx context.Context) (int, error)
}

// StatusReporter computes migration status. It never fails: any error yields
// a zero Status.
type StatusReporter struct {
	mode   mode.Provider
	store  ContentCounter
	docs   DocumentCounter
	userID string
	logger *slog.Logger
}

// NewStatusReporter creates a reporter for userID.
func NewStatusReporter(modes mode.Provider, store ContentCounter, docs DocumentCounter, userID string, log *slog.Logger) *StatusReporter {
	return &StatusReporter{
		mode:   modes,
		store:  store,
		docs:   docs,
		userID: userID,
		logger: logger.OrDiscard(log),
	}
}

// Status runs the local counts concurrently and derives the direction flags
// from the current mode.
func (s *StatusReporter) Status(ctx context.Context) Status {
	var (
		st Status
		m  domain.Mode
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		m, err = s.mode.Current(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		st.LocalData.Collections, err = s.store.CountCollectionsByUser(gctx, s.userID)
		return err
	})
	g.Go(func() error {
		var err error
		st.LocalData.Posts, err = s.store.CountPostsByUser(gctx, s.userID)
		return err
	})
	g.Go(func() error {
		var err error
		st.LocalData.Documents, err = s.docs.DocumentCount(gctx)
		return err
	})

	if err := g.Wait(); err != nil {
		s.logger.Warn("migration status unavailable", "user_id", s.userID, "error", err)
		return Status{}
	}

	st.CanMigrateToStandalone = m == domain.ModeNormal
	st.CanMigrateToNormal = m == domain.ModeStandalone
	return st
}
