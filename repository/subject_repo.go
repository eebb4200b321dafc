package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/prepstack/qbank-be/database"
	"github.com/prepstack/qbank-be/logger"
	"github.com/prepstack/qbank-be/types"
)

// SubjectRepo resolves human-readable subject/topic names to stable ids,
// creating rows on first use.
type SubjectRepo interface {
	ResolveSubject(ctx context.Context, name string) (uint, error)
	ResolveTopic(ctx context.Context, name string, subjectID uint) (uint, error)
	GetSubject(ctx context.Context, id uint) (*database.Subject, error)
	GetTopic(ctx context.Context, id uint) (*database.Topic, error)
}

type subjectRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSubjectRepo(db *gorm.DB, baseLog *logger.Logger) SubjectRepo {
	return &subjectRepo{db: db, log: baseLog.With("repo", "SubjectRepo")}
}

// ResolveSubject looks the subject up by name and inserts it when absent.
// Concurrent callers introducing the same new name can race the insert; the
// unique index on subject_name keeps at most one winning row, and the loser
// surfaces the constraint error instead of re-querying. Known gap.
func (r *subjectRepo) ResolveSubject(ctx context.Context, name string) (uint, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, fmt.Errorf("subject: %w", types.ErrMissingReference)
	}

	var subject database.Subject
	err := r.db.WithContext(ctx).
		Where("subject_name = ?", name).
		First(&subject).Error
	if err == nil {
		return subject.ID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, fmt.Errorf("failed to look up subject %q: %w", name, err)
	}

	subject = database.Subject{SubjectName: name}
	if err := r.db.WithContext(ctx).Create(&subject).Error; err != nil {
		return 0, fmt.Errorf("failed to insert subject %q: %w", name, err)
	}
	r.log.Debug("created subject", "name", name, "id", subject.ID)
	return subject.ID, nil
}

// ResolveTopic is get-or-create scoped to a subject; the natural key is
// (topic_name, subject_id).
func (r *subjectRepo) ResolveTopic(ctx context.Context, name string, subjectID uint) (uint, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, fmt.Errorf("topic: %w", types.ErrMissingReference)
	}

	var topic database.Topic
	err := r.db.WithContext(ctx).
		Where("topic_name = ? AND subject_id = ?", name, subjectID).
		First(&topic).Error
	if err == nil {
		return topic.ID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, fmt.Errorf("failed to look up topic %q: %w", name, err)
	}

	topic = database.Topic{TopicName: name, SubjectID: subjectID}
	if err := r.db.WithContext(ctx).Create(&topic).Error; err != nil {
		return 0, fmt.Errorf("failed to insert topic %q: %w", name, err)
	}
	r.log.Debug("created topic", "name", name, "subject_id", subjectID, "id", topic.ID)
	return topic.ID, nil
}

func (r *subjectRepo) GetSubject(ctx context.Context, id uint) (*database.Subject, error) {
	var subject database.Subject
	if err := r.db.WithContext(ctx).First(&subject, id).Error; err != nil {
		return nil, err
	}
	return &subject, nil
}

func (r *subjectRepo) GetTopic(ctx context.Context, id uint) (*database.Topic, error) {
	var topic database.Topic
	if err := r.db.WithContext(ctx).First(&topic, id).Error; err != nil {
		return nil, err
	}
	return &topic, nil
}
