package types

import "encoding/json"

// SourceFormat tags where a raw question record came from. Normalization
// rules differ per source (option prefix stripping is PDF-only, CSV options
// arrive comma-joined).
type SourceFormat string

const (
	FormatLLM SourceFormat = "llm"
	FormatCSV SourceFormat = "csv"
	FormatPDF SourceFormat = "pdf"
)

// RawQuestionRecord is an untrusted, loosely typed record as returned by the
// LLM extraction call (or read from a CSV row). Every field is optional and
// may be the wrong shape; validation happens in the normalizer.
type RawQuestionRecord struct {
	QuestionText  string          `json:"question_text"`
	Options       json.RawMessage `json:"options"`
	CorrectOption string          `json:"correct_option"`
	Difficulty    string          `json:"difficulty"`
	BloomLevel    string          `json:"bloom_level"`
	SkillTags     json.RawMessage `json:"skill_tags"`
	Keywords      json.RawMessage `json:"keywords"`
	Topic         string          `json:"topic"`
	Subject       string          `json:"subject"`
	Explanation   string          `json:"explanation"`
	EstimatedTime json.RawMessage `json:"estimated_time"`
	SourceType    string          `json:"source_type"`
	Language      string          `json:"language"`
}

// CanonicalQuestion is the schema-ready question record after normalization.
type CanonicalQuestion struct {
	QuestionText  string   `json:"question_text"`
	Options       []string `json:"options"`
	CorrectAnswer *int     `json:"correct_answer"` // 0-based index, nil when unmapped
	Difficulty    string   `json:"difficulty"`
	BloomLevel    string   `json:"bloom_level"`
	SkillTags     []string `json:"skill_tags"`
	Keywords      []string `json:"keywords"`
	Topic         string   `json:"topic"`
	Subject       string   `json:"subject"`
	Explanation   string   `json:"explanation"`
	EstimatedTime *int     `json:"estimated_time"` // minutes, nil when unparsable
	SourceType    string   `json:"source_type"`
	Language      string   `json:"language"`
}
