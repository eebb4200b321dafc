package types

// DocumentChunk is one chunk of study-material text headed for the vector
// store.
type DocumentChunk struct {
	Content  string
	Page     int
	Metadata DocumentMetadata
}

// DocumentMetadata carries provenance for a chunk.
type DocumentMetadata struct {
	Title      string
	Source     string
	PageNum    int
	TotalPages int
}

// DocumentServiceConfig configures the text chunker.
type DocumentServiceConfig struct {
	MaxChunkSize int
	OverlapSize  int
}
