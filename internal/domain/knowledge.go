package domain

import "time"

// KnowledgeDocument is a free-text document held by the document index.
// Embedding is persisted with the document but not used for search.
type KnowledgeDocument struct {
	ID        string         `json:"id"`
	Content   string         `json:"content" validate:"required"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Embedding []float32      `json:"embedding,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// DocumentCollection is a named grouping of knowledge documents. It is
// unrelated to the relational Collection.
type DocumentCollection struct {
	ID        string         `json:"id"`
	Name      string         `json:"name" validate:"required"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
