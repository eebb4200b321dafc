package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/prepstack/qbank-be/database"
	"github.com/prepstack/qbank-be/logger"
	"github.com/prepstack/qbank-be/types"
)

// QuestionRepo issues the per-row inserts and point lookups the ingestion
// and doubt flows need. No multi-row transactions here: the upserter's
// per-record failure tolerance depends on each insert standing alone.
type QuestionRepo interface {
	InsertQuestion(ctx context.Context, q *database.Question) error
	InsertOption(ctx context.Context, o *database.QuestionOption) error
	InsertMetadata(ctx context.Context, m *database.QuestionMetadata) error

	GetQuestion(ctx context.Context, id uint) (*database.Question, error)
	GetOptions(ctx context.Context, questionID uint) ([]database.QuestionOption, error)
	GetMetadata(ctx context.Context, questionID uint) (*database.QuestionMetadata, error)
	Search(ctx context.Context, filters types.SearchFilters) ([]QuestionSummary, error)

	CacheExplanation(ctx context.Context, questionID uint, explanation string) error
}

// QuestionSummary is the flattened search result row.
type QuestionSummary struct {
	ID           uint   `json:"id"`
	QuestionText string `json:"question_text"`
	Difficulty   string `json:"difficulty"`
	TopicName    string `json:"topic"`
	SubjectName  string `json:"subject"`
	BloomLevel   string `json:"bloom_level"`
}

type questionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQuestionRepo(db *gorm.DB, baseLog *logger.Logger) QuestionRepo {
	return &questionRepo{db: db, log: baseLog.With("repo", "QuestionRepo")}
}

func (r *questionRepo) InsertQuestion(ctx context.Context, q *database.Question) error {
	return r.db.WithContext(ctx).Create(q).Error
}

func (r *questionRepo) InsertOption(ctx context.Context, o *database.QuestionOption) error {
	return r.db.WithContext(ctx).Create(o).Error
}

func (r *questionRepo) InsertMetadata(ctx context.Context, m *database.QuestionMetadata) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *questionRepo) GetQuestion(ctx context.Context, id uint) (*database.Question, error) {
	var q database.Question
	if err := r.db.WithContext(ctx).First(&q, id).Error; err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *questionRepo) GetOptions(ctx context.Context, questionID uint) ([]database.QuestionOption, error) {
	var options []database.QuestionOption
	err := r.db.WithContext(ctx).
		Where("question_id = ?", questionID).
		Order("id ASC").
		Find(&options).Error
	return options, err
}

func (r *questionRepo) GetMetadata(ctx context.Context, questionID uint) (*database.QuestionMetadata, error) {
	var m database.QuestionMetadata
	err := r.db.WithContext(ctx).
		Where("question_id = ?", questionID).
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *questionRepo) Search(ctx context.Context, filters types.SearchFilters) ([]QuestionSummary, error) {
	limit := filters.Limit
	if limit <= 0 {
		limit = 10
	}

	query := r.db.WithContext(ctx).
		Table("questions").
		Select("questions.id, questions.question_text, questions.difficulty, topics.topic_name, subjects.subject_name, question_metadata.bloom_level").
		Joins("JOIN topics ON topics.id = questions.topic_id").
		Joins("JOIN subjects ON subjects.id = topics.subject_id").
		Joins("LEFT JOIN question_metadata ON question_metadata.question_id = questions.id")

	if filters.Subject != "" {
		query = query.Where("subjects.subject_name = ?", filters.Subject)
	}
	if filters.Topic != "" {
		query = query.Where("topics.topic_name = ?", filters.Topic)
	}
	if filters.Difficulty != "" {
		query = query.Where("questions.difficulty = ?", filters.Difficulty)
	}
	if filters.BloomLevel != "" {
		query = query.Where("question_metadata.bloom_level = ?", filters.BloomLevel)
	}
	for _, tag := range filters.SkillTags {
		query = query.Where("question_metadata.skill_tags::jsonb @> ?", fmt.Sprintf("[%q]", tag))
	}

	var results []QuestionSummary
	if err := query.Limit(limit).Scan(&results).Error; err != nil {
		return nil, fmt.Errorf("question search failed: %w", err)
	}
	return results, nil
}

// CacheExplanation writes the explanation only when the stored one is still
// empty, so a concurrent or earlier generation wins and the LLM call can be
// skipped next time.
func (r *questionRepo) CacheExplanation(ctx context.Context, questionID uint, explanation string) error {
	return r.db.WithContext(ctx).
		Model(&database.Question{}).
		Where("id = ? AND (explanation IS NULL OR explanation = '')", questionID).
		Update("explanation", explanation).Error
}
