package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"gorm.io/gorm"

	"github.com/prepstack/qbank-be/database"
	"github.com/prepstack/qbank-be/logger"
	"github.com/prepstack/qbank-be/repository"
	"github.com/prepstack/qbank-be/types"
)

type stubSubjectRepo struct {
	subjects map[string]uint
	topics   map[string]uint
	nextID   uint
}

func newStubSubjectRepo() *stubSubjectRepo {
	return &stubSubjectRepo{
		subjects: map[string]uint{},
		topics:   map[string]uint{},
		nextID:   1,
	}
}

func (r *stubSubjectRepo) ResolveSubject(ctx context.Context, name string) (uint, error) {
	if id, ok := r.subjects[name]; ok {
		return id, nil
	}
	id := r.nextID
	r.nextID++
	r.subjects[name] = id
	return id, nil
}

func (r *stubSubjectRepo) ResolveTopic(ctx context.Context, name string, subjectID uint) (uint, error) {
	if id, ok := r.topics[name]; ok {
		return id, nil
	}
	id := r.nextID
	r.nextID++
	r.topics[name] = id
	return id, nil
}

func (r *stubSubjectRepo) GetSubject(ctx context.Context, id uint) (*database.Subject, error) {
	return nil, errors.New("not implemented")
}

func (r *stubSubjectRepo) GetTopic(ctx context.Context, id uint) (*database.Topic, error) {
	return nil, errors.New("not implemented")
}

type stubQuestionRepo struct {
	questions   []database.Question
	options     []database.QuestionOption
	metadata    []database.QuestionMetadata
	failOptions map[uint]bool // fail InsertOption for these question IDs
	insertErr   error         // returned by every InsertQuestion when set
	insertCalls int
}

func newStubQuestionRepo() *stubQuestionRepo {
	return &stubQuestionRepo{failOptions: map[uint]bool{}}
}

func (r *stubQuestionRepo) InsertQuestion(ctx context.Context, q *database.Question) error {
	r.insertCalls++
	if r.insertErr != nil {
		return r.insertErr
	}
	q.ID = uint(len(r.questions) + 1)
	r.questions = append(r.questions, *q)
	return nil
}

func (r *stubQuestionRepo) InsertOption(ctx context.Context, o *database.QuestionOption) error {
	if r.failOptions[o.QuestionID] {
		return errors.New("option insert failed")
	}
	o.ID = uint(len(r.options) + 1)
	r.options = append(r.options, *o)
	return nil
}

func (r *stubQuestionRepo) InsertMetadata(ctx context.Context, m *database.QuestionMetadata) error {
	r.metadata = append(r.metadata, *m)
	return nil
}

func (r *stubQuestionRepo) GetQuestion(ctx context.Context, id uint) (*database.Question, error) {
	return nil, errors.New("not implemented")
}

func (r *stubQuestionRepo) GetOptions(ctx context.Context, questionID uint) ([]database.QuestionOption, error) {
	return nil, errors.New("not implemented")
}

func (r *stubQuestionRepo) GetMetadata(ctx context.Context, questionID uint) (*database.QuestionMetadata, error) {
	return nil, errors.New("not implemented")
}

func (r *stubQuestionRepo) Search(ctx context.Context, filters types.SearchFilters) ([]repository.QuestionSummary, error) {
	return nil, errors.New("not implemented")
}

func (r *stubQuestionRepo) CacheExplanation(ctx context.Context, questionID uint, explanation string) error {
	return errors.New("not implemented")
}

func canonicalFixture(text, subject, topic string) types.CanonicalQuestion {
	correct := 1
	return types.CanonicalQuestion{
		QuestionText:  text,
		Options:       []string{"one", "two", "three"},
		CorrectAnswer: &correct,
		Difficulty:    "Medium",
		BloomLevel:    "Knowledge",
		SkillTags:     []string{"arithmetic"},
		Keywords:      []string{},
		Topic:         topic,
		Subject:       subject,
		Language:      "English",
	}
}

func TestIngestStoresBatch(t *testing.T) {
	subjects := newStubSubjectRepo()
	questions := newStubQuestionRepo()
	s := NewIngestService(subjects, questions, logger.NewNop())

	batch := []types.CanonicalQuestion{
		canonicalFixture("q1", "Math", "Arithmetic"),
		canonicalFixture("q2", "Math", "Arithmetic"),
	}
	stored, err := s.Ingest(context.Background(), batch)
	if err != nil {
		t.Fatal(err)
	}
	if stored != 2 {
		t.Errorf("stored = %d, want 2", stored)
	}
	if len(questions.questions) != 2 {
		t.Errorf("questions = %d, want 2", len(questions.questions))
	}
	if len(questions.options) != 6 {
		t.Errorf("options = %d, want 6", len(questions.options))
	}
	if len(questions.metadata) != 2 {
		t.Errorf("metadata rows = %d, want 2", len(questions.metadata))
	}
	// Both records share one subject and one topic.
	if len(subjects.subjects) != 1 || len(subjects.topics) != 1 {
		t.Errorf("subjects/topics = %d/%d, want 1/1", len(subjects.subjects), len(subjects.topics))
	}
}

func TestIngestMarksCorrectOption(t *testing.T) {
	questions := newStubQuestionRepo()
	s := NewIngestService(newStubSubjectRepo(), questions, logger.NewNop())

	if _, err := s.Ingest(context.Background(), []types.CanonicalQuestion{
		canonicalFixture("q1", "Math", "Arithmetic"),
	}); err != nil {
		t.Fatal(err)
	}
	for i, opt := range questions.options {
		want := i == 1
		if opt.IsCorrect != want {
			t.Errorf("option %d IsCorrect = %v, want %v", i, opt.IsCorrect, want)
		}
	}
}

func TestIngestSkipsFailedRecord(t *testing.T) {
	questions := newStubQuestionRepo()
	questions.failOptions[2] = true // second inserted question's options fail
	s := NewIngestService(newStubSubjectRepo(), questions, logger.NewNop())

	batch := []types.CanonicalQuestion{
		canonicalFixture("q1", "Math", "Arithmetic"),
		canonicalFixture("q2", "Math", "Arithmetic"),
		canonicalFixture("q3", "Math", "Arithmetic"),
	}
	stored, err := s.Ingest(context.Background(), batch)
	if err != nil {
		t.Fatal(err)
	}
	if stored != 2 {
		t.Errorf("stored = %d, want 2", stored)
	}
	// The failure is per record: the third record is still attempted.
	if len(questions.questions) != 3 {
		t.Errorf("question inserts = %d, want 3", len(questions.questions))
	}
	if len(questions.metadata) != 2 {
		t.Errorf("metadata rows = %d, want 2", len(questions.metadata))
	}
}

func TestIngestAbortsOnCancelledContext(t *testing.T) {
	questions := newStubQuestionRepo()
	s := NewIngestService(newStubSubjectRepo(), questions, logger.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	batch := []types.CanonicalQuestion{
		canonicalFixture("q1", "Math", "Arithmetic"),
	}
	stored, err := s.Ingest(ctx, batch)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if stored != 0 {
		t.Errorf("stored = %d, want 0", stored)
	}
	if len(questions.questions) != 0 {
		t.Errorf("question inserts = %d, want 0", len(questions.questions))
	}
}

func TestIngestAbortsOnSystemicStoreError(t *testing.T) {
	questions := newStubQuestionRepo()
	questions.insertErr = fmt.Errorf("insert: %w", gorm.ErrInvalidDB)
	s := NewIngestService(newStubSubjectRepo(), questions, logger.NewNop())

	batch := []types.CanonicalQuestion{
		canonicalFixture("q1", "Math", "Arithmetic"),
		canonicalFixture("q2", "Math", "Arithmetic"),
		canonicalFixture("q3", "Math", "Arithmetic"),
	}
	stored, err := s.Ingest(context.Background(), batch)
	if !errors.Is(err, gorm.ErrInvalidDB) {
		t.Fatalf("expected gorm.ErrInvalidDB, got %v", err)
	}
	if stored != 0 {
		t.Errorf("stored = %d, want 0", stored)
	}
	// A dead store aborts the batch instead of skipping every record.
	if questions.insertCalls != 1 {
		t.Errorf("insert attempts = %d, want 1", questions.insertCalls)
	}
}

func TestIngestNilExplanationOnEmpty(t *testing.T) {
	questions := newStubQuestionRepo()
	s := NewIngestService(newStubSubjectRepo(), questions, logger.NewNop())

	withExp := canonicalFixture("q1", "Math", "Arithmetic")
	withExp.Explanation = "because"
	withoutExp := canonicalFixture("q2", "Math", "Arithmetic")

	if _, err := s.Ingest(context.Background(), []types.CanonicalQuestion{withExp, withoutExp}); err != nil {
		t.Fatal(err)
	}
	if questions.questions[0].Explanation == nil || *questions.questions[0].Explanation != "because" {
		t.Errorf("first explanation = %v, want \"because\"", questions.questions[0].Explanation)
	}
	if questions.questions[1].Explanation != nil {
		t.Errorf("second explanation = %v, want nil", *questions.questions[1].Explanation)
	}
}
