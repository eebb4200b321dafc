package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/prepstack/qbank-be/database"
)

// UploadRepo tracks uploaded question papers and their processing outcome.
type UploadRepo interface {
	Create(ctx context.Context, file *database.UploadedFile) error
	SetStatus(ctx context.Context, id uint, status, logs string) error
}

type uploadRepo struct {
	db *gorm.DB
}

func NewUploadRepo(db *gorm.DB) UploadRepo {
	return &uploadRepo{db: db}
}

func (r *uploadRepo) Create(ctx context.Context, file *database.UploadedFile) error {
	return r.db.WithContext(ctx).Create(file).Error
}

func (r *uploadRepo) SetStatus(ctx context.Context, id uint, status, logs string) error {
	return r.db.WithContext(ctx).
		Model(&database.UploadedFile{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"status": status, "processing_logs": logs}).Error
}
