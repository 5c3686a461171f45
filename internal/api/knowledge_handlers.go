package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/memoraapp/memora/internal/docindex"
	"github.com/memoraapp/memora/internal/domain"
)

// ListDocumentsInput bounds a document listing.
type ListDocumentsInput struct {
	Limit int `query:"limit" minimum:"0" doc:"Maximum documents to return (0 for all)"`
}

// SearchDocumentsInput is a keyword search over knowledge documents.
type SearchDocumentsInput struct {
	Query      string `query:"q" required:"true" minLength:"1" doc:"Search text"`
	Collection string `query:"collection_id" doc:"Restrict results to one document collection"`
	Limit      int    `query:"limit" minimum:"0" default:"10" doc:"Maximum results"`
}

func (s *Server) registerKnowledgeRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listKnowledgeDocuments",
		Method:      http.MethodGet,
		Path:        "/api/v1/knowledge-documents",
		Summary:     "List knowledge documents",
		Tags:        []string{"Knowledge"},
	}, s.handleListDocuments)

	huma.Register(s.api, huma.Operation{
		OperationID:      "addKnowledgeDocument",
		Method:           http.MethodPost,
		Path:             "/api/v1/knowledge-documents",
		Summary:          "Add a knowledge document",
		Tags:             []string{"Knowledge"},
		DefaultStatus:    http.StatusCreated,
		SkipValidateBody: true,
	}, s.handleAddDocument)

	huma.Register(s.api, huma.Operation{
		OperationID: "searchKnowledgeDocuments",
		Method:      http.MethodGet,
		Path:        "/api/v1/knowledge-documents/search",
		Summary:     "Search knowledge documents",
		Tags:        []string{"Knowledge"},
	}, s.handleSearchDocuments)
}

func (s *Server) handleListDocuments(ctx context.Context, in *ListDocumentsInput) (*bodyOutput[[]*domain.KnowledgeDocument], error) {
	if _, err := GetUserID(ctx); err != nil {
		return nil, err
	}
	docs, err := s.index.GetAllDocuments(ctx, in.Limit)
	if err != nil {
		return nil, toHTTPError(err)
	}
	if docs == nil {
		docs = []*domain.KnowledgeDocument{}
	}
	return out(docs), nil
}

func (s *Server) handleAddDocument(ctx context.Context, in *bodyInput[domain.KnowledgeDocument]) (*bodyOutput[*domain.KnowledgeDocument], error) {
	if _, err := GetUserID(ctx); err != nil {
		return nil, err
	}
	doc := in.Body
	if _, err := s.index.AddDocument(ctx, &doc, ""); err != nil {
		return nil, toHTTPError(err)
	}
	return out(&doc), nil
}

func (s *Server) handleSearchDocuments(ctx context.Context, in *SearchDocumentsInput) (*bodyOutput[[]docindex.ScoredDocument], error) {
	if _, err := GetUserID(ctx); err != nil {
		return nil, err
	}

	var (
		hits []docindex.ScoredDocument
		err  error
	)
	if in.Collection != "" {
		hits, err = s.index.SearchCollection(ctx, in.Collection, in.Query, in.Limit)
	} else {
		hits, err = s.index.SearchSimilar(ctx, in.Query, in.Limit)
	}
	if err != nil {
		return nil, toHTTPError(err)
	}
	if hits == nil {
		hits = []docindex.ScoredDocument{}
	}
	return out(hits), nil
}
