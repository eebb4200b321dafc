package database

import "context"

// Document is one study-material chunk in the vector store.
type Document struct {
	ID        string   `json:"id"`
	Content   string   `json:"content"`
	Metadata  Metadata `json:"metadata"`
	CreatedAt int64    `json:"created_at"`
}

// Metadata carries chunk provenance.
type Metadata struct {
	Title  string            `json:"title"`
	Source string            `json:"source"`
	Tags   []string          `json:"tags"`
	Custom map[string]string `json:"custom"`
}

// VectorDatabase is the contract the doubt-answering flow needs from the
// vector store.
type VectorDatabase interface {
	UpsertDocument(ctx context.Context, doc *Document) error
	BatchInsertDocuments(ctx context.Context, docs []Document) error
	DeleteDocument(ctx context.Context, id string) error

	SearchSimilar(ctx context.Context, queries []string, limit int) ([]Document, []float32, error)
	SearchSimilarWithMetadata(ctx context.Context, queries []string, metadata Metadata, limit int) ([]Document, []float32, error)

	DocumentCount(ctx context.Context) (int, error)
}
