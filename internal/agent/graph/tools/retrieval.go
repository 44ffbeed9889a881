package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"github.com/finsight-router/server/internal/agent/model"
	"github.com/finsight-router/server/internal/retrieval"
	logx "github.com/finsight-router/server/pkg/logger"
)

const ToolRetrieveDocuments = "retrieve_from_documents"

// NoDocumentsFound is returned verbatim when a search has no matches.
const NoDocumentsFound = "No relevant documents found for the given query and sources."

// DefaultTopK is the number of matches returned per search.
const DefaultTopK = 10

// DocumentToolNames lists the document agent's tool set.
var DocumentToolNames = []string{ToolRetrieveDocuments}

type RetrieveDocumentsInput struct {
	Query           string   `json:"query"`
	Collection      string   `json:"collection"`
	DocumentSources []string `json:"document_sources"`
}

// metadataFields are surfaced to the model, in this order, when present.
var metadataFields = []string{"source", "title", "date", "author", "section", "page", "document_type"}

// NewRetrievalTool builds retrieve_from_documents over an embedder and a store.
func NewRetrievalTool(embedder retrieval.Embedder, store retrieval.Store, topK int) (tool.InvokableTool, error) {
	if embedder == nil || store == nil {
		return nil, fmt.Errorf("retrieval tool requires an embedder and a store")
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	return newTextTool(ToolRetrieveDocuments,
		"Retrieve relevant information from a list of documents based on the query. Returns formatted documents containing the relevant information.",
		map[string]*schema.ParameterInfo{
			"query": {
				Type:     schema.String,
				Desc:     "The query to search for in the documents",
				Required: true,
			},
			"collection": {
				Type:     schema.String,
				Desc:     "A collection name to search within",
				Required: true,
			},
			"document_sources": {
				Type:     schema.Array,
				Desc:     "A list of document sources to filter the search",
				ElemInfo: &schema.ParameterInfo{Type: schema.String},
				Required: true,
			},
		},
		func(ctx context.Context, in *RetrieveDocumentsInput) (string, error) {
			logx.Debug().
				Str("query", in.Query).
				Str("collection", in.Collection).
				Strs("document_sources", in.DocumentSources).
				Msg("Retrieving documents")

			vector, err := embedder.EmbedQuery(ctx, in.Query)
			if err != nil {
				logx.Error().Err(err).Msg("Error embedding query")
				return fmt.Sprintf("Error retrieving documents: %v", err), nil
			}

			docs, err := store.Search(ctx, in.Collection, vector, topK, in.DocumentSources)
			if err != nil {
				logx.Error().Err(err).Str("collection", in.Collection).Msg("Error searching documents")
				return fmt.Sprintf("Error retrieving documents: %v", err), nil
			}

			logx.Debug().Int("found", len(docs)).Str("query", in.Query).Msg("Document search finished")
			if len(docs) == 0 {
				return NoDocumentsFound, nil
			}

			parts := make([]string, 0, len(docs))
			for _, d := range docs {
				parts = append(parts, FormatDocument(d))
			}
			return strings.Join(parts, "\n\n"), nil
		},
	)
}

// FormatDocument prefixes the document text with its known metadata.
func FormatDocument(doc model.Document) string {
	meta := make(map[string]any, len(doc.Metadata)+1)
	for k, v := range doc.Metadata {
		meta[k] = v
	}
	if _, ok := meta["source"]; !ok && doc.Source != "" {
		meta["source"] = doc.Source
	}

	var items []string
	for _, field := range metadataFields {
		if v, ok := meta[field]; ok {
			items = append(items, fmt.Sprintf("%s: %v", field, v))
		}
	}
	if len(items) == 0 {
		return doc.Content
	}
	return "[" + strings.Join(items, ", ") + "]\n\n" + doc.Content
}
