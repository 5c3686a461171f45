package docindex

import (
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/memoraapp/memora/internal/domain"
)

// mappingVersion is incremented whenever the index mapping changes.
// A mismatch on open rebuilds the text index from Badger.
const mappingVersion = "1"

// Indexed field names.
const (
	fieldContent     = "content"
	fieldCollections = "collections"
	fieldCreatedAt   = "created_at"
)

// buildIndexMapping creates the Bleve mapping for knowledge documents.
// Content uses the standard analyzer so non-English text still tokenizes;
// collection membership is an exact keyword field used for scoping.
func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = standard.Name

	docMapping := bleve.NewDocumentMapping()

	contentFieldMapping := bleve.NewTextFieldMapping()
	contentFieldMapping.Analyzer = standard.Name
	contentFieldMapping.Store = false
	contentFieldMapping.IncludeTermVectors = true
	docMapping.AddFieldMappingsAt(fieldContent, contentFieldMapping)

	collectionsFieldMapping := bleve.NewTextFieldMapping()
	collectionsFieldMapping.Analyzer = keyword.Name
	collectionsFieldMapping.Store = false
	docMapping.AddFieldMappingsAt(fieldCollections, collectionsFieldMapping)

	createdAtFieldMapping := bleve.NewDateTimeFieldMapping()
	createdAtFieldMapping.Store = false
	docMapping.AddFieldMappingsAt(fieldCreatedAt, createdAtFieldMapping)

	indexMapping.AddDocumentMapping("_default", docMapping)

	return indexMapping
}

// indexedDocument converts a document and its memberships to the map indexed by Bleve.
func indexedDocument(doc *domain.KnowledgeDocument, collections []string) map[string]any {
	if collections == nil {
		collections = []string{}
	}
	return map[string]any{
		fieldContent:     doc.Content,
		fieldCollections: collections,
		fieldCreatedAt:   doc.CreatedAt.UTC().Format(time.RFC3339),
	}
}
