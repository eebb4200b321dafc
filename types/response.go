package types

type DataResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// UploadResponse reports the outcome of an ingestion run.
type UploadResponse struct {
	OriginalName    string `json:"original_name,omitempty"`
	QuestionsParsed int    `json:"questions_parsed"`
	RecordsSkipped  int    `json:"records_skipped"`
	ModelUsed       string `json:"model_used,omitempty"`
}

// ProcessingDocumentStatus is streamed over SSE while an upload is processed.
type ProcessingDocumentStatus struct {
	Status         string  `json:"status"`
	Message        string  `json:"message"`
	Progress       float64 `json:"progress"`
	TotalPages     int     `json:"total_pages,omitempty"`
	ProcessedPages int     `json:"processed_pages,omitempty"`
}

// DoubtResponse carries the tutor answer for a doubt query.
type DoubtResponse struct {
	Answer  string   `json:"answer"`
	Sources []string `json:"sources,omitempty"`
}

// ExplainResponse carries a generated (or cached) explanation.
type ExplainResponse struct {
	QuestionID  uint   `json:"question_id"`
	Explanation string `json:"explanation"`
	Cached      bool   `json:"cached"`
}
