package repository

import (
	"context"
	"fmt"

	"libhub/internal/http-api/models"

	"gorm.io/gorm"
)

// CollectionRepository mirrors the in-memory collections into Postgres.
// Writes are whole-collection replaces: the in-memory dataset is
// authoritative, rows here are only a recovery source.
type CollectionRepository struct {
	db *gorm.DB
}

func NewCollectionRepository(db *gorm.DB) *CollectionRepository {
	return &CollectionRepository{db: db}
}

func (r *CollectionRepository) ReplaceBooks(ctx context.Context, books []models.Book) error {
	return replaceAll(ctx, r.db, &models.Book{}, books)
}

func (r *CollectionRepository) ReplaceUsers(ctx context.Context, users []models.User) error {
	return replaceAll(ctx, r.db, &models.User{}, users)
}

func (r *CollectionRepository) ReplaceRentals(ctx context.Context, rentals []models.Rental) error {
	return replaceAll(ctx, r.db, &models.Rental{}, rentals)
}

func replaceAll[T any](ctx context.Context, db *gorm.DB, model *T, records []T) error {
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(model).Error; err != nil {
			return err
		}
		if len(records) == 0 {
			return nil
		}
		return tx.CreateInBatches(records, 200).Error
	})
	if err != nil {
		return fmt.Errorf("replace collection: %w", err)
	}
	return nil
}

func (r *CollectionRepository) LoadBooks(ctx context.Context) ([]models.Book, error) {
	var books []models.Book
	if err := r.db.WithContext(ctx).Order("id").Find(&books).Error; err != nil {
		return nil, fmt.Errorf("load books: %w", err)
	}
	return books, nil
}

func (r *CollectionRepository) LoadUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := r.db.WithContext(ctx).Order("id").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	return users, nil
}

func (r *CollectionRepository) LoadRentals(ctx context.Context) ([]models.Rental, error) {
	var rentals []models.Rental
	if err := r.db.WithContext(ctx).Order("id").Find(&rentals).Error; err != nil {
		return nil, fmt.Errorf("load rentals: %w", err)
	}
	return rentals, nil
}
