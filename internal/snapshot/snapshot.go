// Package snapshot defines the canonical content graph moved by a migration
// and normalizes the loosely shaped payloads sources produce into it.
package snapshot

import (
	"github.com/memoraapp/memora/internal/domain"
)

// Snapshot is a user's content graph in canonical form.
type Snapshot struct {
	Users              []*domain.User              `json:"users"`
	Categories         []*domain.Category          `json:"categories"`
	Collections        []*domain.Collection        `json:"collections"`
	CollectionDetails  []*domain.CollectionDetail  `json:"collection_details"`
	Posts              []*domain.Post              `json:"posts"`
	Comments           []*domain.Comment           `json:"comments"`
	Likes              []*domain.Like              `json:"likes"`
	KnowledgeDocuments []*domain.KnowledgeDocument `json:"knowledge_documents"`
	Attachments        []*domain.Attachment        `json:"attachments"`
}

// Counts is the number of records per group.
type Counts struct {
	Users              int `json:"users"`
	Categories         int `json:"categories"`
	Collections        int `json:"collections"`
	CollectionDetails  int `json:"collection_details"`
	Posts              int `json:"posts"`
	Comments           int `json:"comments"`
	Likes              int `json:"likes"`
	KnowledgeDocuments int `json:"knowledge_documents"`
	Attachments        int `json:"attachments"`
}

// Counts returns the number of records in each group.
func (s *Snapshot) Counts() Counts {
	return Counts{
		Users:              len(s.Users),
		Categories:         len(s.Categories),
		Collections:        len(s.Collections),
		CollectionDetails:  len(s.CollectionDetails),
		Posts:              len(s.Posts),
		Comments:           len(s.Comments),
		Likes:              len(s.Likes),
		KnowledgeDocuments: len(s.KnowledgeDocuments),
		Attachments:        len(s.Attachments),
	}
}

// Total is the number of records across all groups.
func (c Counts) Total() int {
	return c.Users + c.Categories + c.Collections + c.CollectionDetails +
		c.Posts + c.Comments + c.Likes + c.KnowledgeDocuments + c.Attachments
}
