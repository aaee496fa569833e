package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"
)

// buildIndexMapping creates the Bleve mapping for vocabulary documents.
//
//  1. label: English analyzer so "sport" finds "Sports"
//  2. label_key: the whole lowercased label as one term, for prefix matches and sorting
//  3. kind, category: exact keyword filters
func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = en.AnalyzerName

	docMapping := bleve.NewDocumentMapping()

	labelFieldMapping := bleve.NewTextFieldMapping()
	labelFieldMapping.Analyzer = en.AnalyzerName
	labelFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("label", labelFieldMapping)

	labelKeyFieldMapping := bleve.NewTextFieldMapping()
	labelKeyFieldMapping.Analyzer = keyword.Name
	docMapping.AddFieldMappingsAt("label_key", labelKeyFieldMapping)

	kindFieldMapping := bleve.NewTextFieldMapping()
	kindFieldMapping.Analyzer = keyword.Name
	kindFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("kind", kindFieldMapping)

	categoryFieldMapping := bleve.NewTextFieldMapping()
	categoryFieldMapping.Analyzer = keyword.Name
	categoryFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("category", categoryFieldMapping)

	indexMapping.AddDocumentMapping("_default", docMapping)

	return indexMapping
}
