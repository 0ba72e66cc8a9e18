package repository

import (
	"context"
	"errors"
	"fmt"

	"libhub/internal/http-api/models"

	"gorm.io/gorm"
)

// ErrBackupNotFound is returned when no backup row matches the given id.
var ErrBackupNotFound = errors.New("backup not found")

type BackupRepository interface {
	Create(ctx context.Context, backup *models.Backup) error
	List(ctx context.Context) ([]models.BackupMeta, error)
	FindByID(ctx context.Context, id string) (*models.Backup, error)
	Delete(ctx context.Context, id string) error
}

type backupRepository struct {
	db *gorm.DB
}

func NewBackupRepository(db *gorm.DB) BackupRepository {
	return &backupRepository{db: db}
}

func (r *backupRepository) Create(ctx context.Context, backup *models.Backup) error {
	if err := r.db.WithContext(ctx).Create(backup).Error; err != nil {
		return fmt.Errorf("create backup: %w", err)
	}
	return nil
}

// List returns metadata only, newest first.
func (r *backupRepository) List(ctx context.Context) ([]models.BackupMeta, error) {
	var metas []models.BackupMeta
	if err := r.db.WithContext(ctx).
		Model(&models.Backup{}).
		Select("id", "filename", "created_at", "size").
		Order("created_at DESC").
		Find(&metas).Error; err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}
	return metas, nil
}

func (r *backupRepository) FindByID(ctx context.Context, id string) (*models.Backup, error) {
	var backup models.Backup
	err := r.db.WithContext(ctx).First(&backup, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrBackupNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find backup: %w", err)
	}
	return &backup, nil
}

func (r *backupRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&models.Backup{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("delete backup: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrBackupNotFound
	}
	return nil
}
