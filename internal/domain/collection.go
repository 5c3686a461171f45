package domain

import (
	"encoding/json"
	"strings"
)

// Category groups collections for one user. Names are unique per user.
// KnowledgeBaseID names the document collection built from the category.
type Category struct {
	ID              string `json:"id"`
	UserID          string `json:"user_id" validate:"required"`
	Name            string `json:"name" validate:"required,max=255"`
	Emoji           string `json:"emoji,omitempty"`
	KnowledgeBaseID string `json:"knowledge_base_id,omitempty"`
}

// HasKnowledgeBase reports whether a knowledge base was built for the category.
func (c *Category) HasKnowledgeBase() bool {
	return c.KnowledgeBaseID != ""
}

// Collection is a captured item that posts refer to. CategoryID is nil when
// the collection belongs to no category.
type Collection struct {
	Timestamps
	ID          string   `json:"id"`
	UserID      string   `json:"user_id" validate:"required"`
	CategoryID  *string  `json:"category_id"`
	Name        string   `json:"name,omitempty"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// TagString joins tags the way they are persisted.
func (c *Collection) TagString() string {
	return strings.Join(c.Tags, ",")
}

// ParseTags splits a persisted tag string, dropping empty entries.
func ParseTags(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	tags := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			tags = append(tags, p)
		}
	}
	return tags
}

// CollectionDetail is one key/value attribute of a collection. Value holds
// any JSON document and is unique per (collection, key).
type CollectionDetail struct {
	Timestamps
	ID           string          `json:"id"`
	CollectionID string          `json:"collection_id" validate:"required"`
	Key          string          `json:"key" validate:"required,max=255"`
	Value        json.RawMessage `json:"value"`
}

// DetailKeyContent is the detail key whose value feeds knowledge bases.
const DetailKeyContent = "content"

// StringValue returns the value as text: JSON strings are unquoted, anything
// else is returned in its JSON form.
func (d *CollectionDetail) StringValue() string {
	if len(d.Value) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(d.Value, &s); err == nil {
		return s
	}
	return string(d.Value)
}
