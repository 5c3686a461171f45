package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/memoraapp/memora/internal/migration"
	"github.com/memoraapp/memora/internal/snapshot"
)

func (s *Server) registerExportRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "exportContent",
		Method:      http.MethodGet,
		Path:        "/api/v1/migration/export",
		Summary:     "Export the acting user's content",
		Description: "Returns every group of the user's content graph in one response, private posts included.",
		Tags:        []string{"Migration"},
	}, s.handleExport)
}

func (s *Server) handleExport(ctx context.Context, _ *struct{}) (*bodyOutput[*snapshot.Snapshot], error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	src := &migration.Local{Store: s.store, Index: s.index, UserID: userID}
	snap, err := src.Export(ctx)
	if err != nil {
		return nil, toHTTPError(err)
	}

	s.logger.Info("content exported",
		"user_id", userID,
		"records", snap.Counts().Total(),
	)
	return out(snap), nil
}
