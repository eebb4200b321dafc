package types

// UploadRequest is the metadata accompanying an uploaded question paper.
type UploadRequest struct {
	Title  string   `json:"title"`
	Source string   `json:"source"`
	Model  string   `json:"model,omitempty"` // extraction model, defaults to config
	Tags   []string `json:"tags,omitempty"`
}

// SearchFilters narrows a question search. Zero values mean "no filter".
type SearchFilters struct {
	Subject    string   `json:"subject,omitempty"`
	Topic      string   `json:"topic,omitempty"`
	Difficulty string   `json:"difficulty,omitempty"`
	BloomLevel string   `json:"bloom_level,omitempty"`
	SkillTags  []string `json:"skill_tags,omitempty"`
	Limit      int      `json:"limit,omitempty"`
}

// DoubtRequest is a student question for the RAG doubt endpoint.
type DoubtRequest struct {
	Query string `json:"query"`
}

// ExplainRequest asks for an explanation of a stored question.
type ExplainRequest struct {
	QuestionID uint `json:"question_id"`
}

// MaterialSearchRequest queries the study-material vector store directly.
type MaterialSearchRequest struct {
	Queries []string `json:"queries"`
	Tags    []string `json:"tags,omitempty"`
	Limit   int      `json:"limit,omitempty"`
}
