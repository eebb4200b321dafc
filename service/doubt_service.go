package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/prepstack/qbank-be/database"
	"github.com/prepstack/qbank-be/logger"
	"github.com/prepstack/qbank-be/repository"
)

// Top-k chunks retrieved per doubt query.
const doubtRetrievalLimit = 3

// DoubtService answers student doubts from the study-material vector
// store and generates (and caches) per-question explanations.
type DoubtService struct {
	vectorDB  database.VectorDatabase
	ai        *OpenAIService
	subjects  repository.SubjectRepo
	questions repository.QuestionRepo
	logger    *logger.Logger
}

func NewDoubtService(
	vectorDB database.VectorDatabase,
	ai *OpenAIService,
	subjects repository.SubjectRepo,
	questions repository.QuestionRepo,
	log *logger.Logger,
) *DoubtService {
	return &DoubtService{
		vectorDB:  vectorDB,
		ai:        ai,
		subjects:  subjects,
		questions: questions,
		logger:    log.With("service", "doubt"),
	}
}

// Answer retrieves the most relevant study-material chunks and grounds
// the tutor answer on them.
func (s *DoubtService) Answer(ctx context.Context, query string) (*DoubtResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("empty query")
	}

	docs, _, err := s.vectorDB.SearchSimilar(ctx, []string{query}, doubtRetrievalLimit)
	if err != nil {
		return nil, fmt.Errorf("retrieval failed: %w", err)
	}
	s.logger.Info("retrieved chunks", "query", query, "count", len(docs))

	answer, err := s.ai.AnswerDoubt(ctx, query, docs)
	if err != nil {
		return nil, err
	}

	sources := make([]string, 0, len(docs))
	for _, doc := range docs {
		label := doc.Metadata.Source
		if doc.Metadata.Title != "" {
			label = fmt.Sprintf("%s - %s", doc.Metadata.Source, doc.Metadata.Title)
		}
		sources = append(sources, label)
	}
	return &DoubtResult{Answer: answer, Sources: sources}, nil
}

// DoubtResult is the service-level doubt answer before the handler wraps
// it for the wire.
type DoubtResult struct {
	Answer  string
	Sources []string
}

// Diagnostics reports whether the vector store is reachable and returns
// a sample retrieval so operators can verify end to end.
func (s *DoubtService) Diagnostics(ctx context.Context) map[string]any {
	out := map[string]any{"status": "success"}

	count, err := s.vectorDB.DocumentCount(ctx)
	if err != nil {
		out["status"] = "error"
		out["error"] = err.Error()
		return out
	}
	out["document_count"] = count

	docs, _, err := s.vectorDB.SearchSimilar(ctx, []string{"exam structure"}, 1)
	if err != nil {
		out["status"] = "error"
		out["error"] = err.Error()
		return out
	}
	out["retrieval_working"] = len(docs) > 0
	if len(docs) > 0 {
		sample := docs[0].Content
		if len(sample) > 100 {
			sample = sample[:100] + "..."
		}
		out["retrieved_sample"] = sample
	}
	return out
}

// Explain returns an explanation for a stored question, serving the
// cached one when present and persisting a fresh generation otherwise.
// A failed cache write is logged, not surfaced; the student still gets
// the explanation.
func (s *DoubtService) Explain(ctx context.Context, questionID uint) (string, bool, error) {
	question, err := s.questions.GetQuestion(ctx, questionID)
	if err != nil {
		return "", false, err
	}
	if question.Explanation != nil && strings.TrimSpace(*question.Explanation) != "" {
		return *question.Explanation, true, nil
	}

	topic, err := s.subjects.GetTopic(ctx, question.TopicID)
	if err != nil {
		return "", false, err
	}
	meta, err := s.questions.GetMetadata(ctx, questionID)
	if err != nil {
		return "", false, err
	}
	options, err := s.questions.GetOptions(ctx, questionID)
	if err != nil {
		return "", false, err
	}
	optionTexts := make([]string, 0, len(options))
	for _, o := range options {
		optionTexts = append(optionTexts, o.OptionText)
	}

	prompt := fmt.Sprintf(
		"Please explain the following question in simple language for a student preparing for a competitive exam:\n\n"+
			"Question: %s\nOptions: %s\nTopic: %s, Difficulty: %s, Bloom Level: %s\n",
		question.QuestionText,
		strings.Join(optionTexts, "; "),
		topic.TopicName,
		question.Difficulty,
		meta.BloomLevel,
	)

	explanation, err := s.ai.GenerateExplanation(ctx, prompt)
	if err != nil {
		return "", false, err
	}

	if err := s.questions.CacheExplanation(ctx, questionID, explanation); err != nil {
		s.logger.Warn("failed to cache explanation", "question_id", questionID, "error", err)
	}
	return explanation, false, nil
}
