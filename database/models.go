package database

import (
	"time"

	"gorm.io/datatypes"
)

// Subject is a reference entity keyed by its name. Created lazily on first
// use, never updated or deleted by the ingestion pipeline.
type Subject struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	SubjectName string `gorm:"uniqueIndex;not null" json:"subject_name"`
}

// Topic is a reference entity scoped to a subject; the natural key is
// (topic_name, subject_id).
type Topic struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	TopicName string `gorm:"uniqueIndex:idx_topic_subject;not null" json:"topic_name"`
	SubjectID uint   `gorm:"uniqueIndex:idx_topic_subject;not null" json:"subject_id"`
}

// Question is one persisted multiple-choice question.
type Question struct {
	ID           uint    `gorm:"primaryKey" json:"id"`
	QuestionText string  `gorm:"not null" json:"question_text"`
	Difficulty   string  `json:"difficulty"`
	TopicID      uint    `gorm:"index" json:"topic_id"`
	Explanation  *string `json:"explanation"`
}

// QuestionOption is one answer choice; exactly one option per question is
// expected to carry IsCorrect, set by positional match during ingestion.
type QuestionOption struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	QuestionID uint   `gorm:"index;not null" json:"question_id"`
	OptionText string `gorm:"not null" json:"option_text"`
	IsCorrect  bool   `json:"is_correct"`
}

// QuestionMetadata holds the taxonomy fields; one row per question.
type QuestionMetadata struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	QuestionID      uint           `gorm:"uniqueIndex;not null" json:"question_id"`
	BloomLevel      string         `json:"bloom_level"`
	SkillTags       datatypes.JSON `json:"skill_tags"`
	Keywords        datatypes.JSON `json:"keywords"`
	QuestionContext string         `json:"question_context"`
	SourceType      string         `json:"source_type"`
	ReferenceLinks  datatypes.JSON `json:"reference_links"`
	Language        string         `json:"language"`
	EstimatedTime   *int           `json:"estimated_time"`
}

// UploadedFile tracks one uploaded question paper and its processing outcome.
type UploadedFile struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	FileName       string    `gorm:"not null" json:"file_name"`
	StoredPath     string    `json:"stored_path"`
	Status         string    `json:"status"` // pending | completed | failed
	ProcessingLogs string    `json:"processing_logs"`
	CreatedAt      time.Time `json:"created_at"`
}
