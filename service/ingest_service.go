package service

import (
	"context"
	"encoding/json"
	"errors"
	"net"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/prepstack/qbank-be/database"
	"github.com/prepstack/qbank-be/logger"
	"github.com/prepstack/qbank-be/repository"
	"github.com/prepstack/qbank-be/types"
)

// IngestService writes canonical questions into the relational store.
// Each record is processed independently: a bad record is logged and
// skipped, and a failure partway through a record leaves the partial rows
// in place rather than rolling back. Only context cancellation and
// systemic store errors abort the whole batch.
type IngestService struct {
	subjects  repository.SubjectRepo
	questions repository.QuestionRepo
	logger    *logger.Logger
}

func NewIngestService(subjects repository.SubjectRepo, questions repository.QuestionRepo, log *logger.Logger) *IngestService {
	return &IngestService{
		subjects:  subjects,
		questions: questions,
		logger:    log.With("service", "ingest"),
	}
}

// Ingest persists a batch and returns how many records were stored in
// full (question, options and metadata all inserted).
func (s *IngestService) Ingest(ctx context.Context, batch []types.CanonicalQuestion) (int, error) {
	stored := 0
	for i, q := range batch {
		if err := ctx.Err(); err != nil {
			return stored, err
		}
		if err := s.ingestOne(ctx, q); err != nil {
			if ctx.Err() != nil || systemicFailure(err) {
				return stored, err
			}
			s.logger.Warn("record not ingested", "index", i, "error", err)
			continue
		}
		stored++
	}
	return stored, nil
}

func (s *IngestService) ingestOne(ctx context.Context, q types.CanonicalQuestion) error {
	subjectID, err := s.subjects.ResolveSubject(ctx, q.Subject)
	if err != nil {
		return err
	}
	topicID, err := s.subjects.ResolveTopic(ctx, q.Topic, subjectID)
	if err != nil {
		return err
	}

	var explanation *string
	if q.Explanation != "" {
		explanation = &q.Explanation
	}
	question := database.Question{
		QuestionText: q.QuestionText,
		Difficulty:   q.Difficulty,
		TopicID:      topicID,
		Explanation:  explanation,
	}
	if err := s.questions.InsertQuestion(ctx, &question); err != nil {
		return err
	}

	for idx, text := range q.Options {
		opt := database.QuestionOption{
			QuestionID: question.ID,
			OptionText: text,
			IsCorrect:  q.CorrectAnswer != nil && idx == *q.CorrectAnswer,
		}
		if err := s.questions.InsertOption(ctx, &opt); err != nil {
			return err
		}
	}

	meta := database.QuestionMetadata{
		QuestionID:    question.ID,
		BloomLevel:    q.BloomLevel,
		SkillTags:     toJSONList(q.SkillTags),
		Keywords:      toJSONList(q.Keywords),
		SourceType:    q.SourceType,
		Language:      q.Language,
		EstimatedTime: q.EstimatedTime,
	}
	return s.questions.InsertMetadata(ctx, &meta)
}

// systemicFailure reports that the store itself is unusable rather than
// one record being bad. These errors abort the remaining batch.
func systemicFailure(err error) bool {
	if errors.Is(err, gorm.ErrInvalidDB) || errors.Is(err, gorm.ErrInvalidTransaction) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func toJSONList(list []string) datatypes.JSON {
	if list == nil {
		list = []string{}
	}
	b, err := json.Marshal(list)
	if err != nil {
		return datatypes.JSON("[]")
	}
	return datatypes.JSON(b)
}
