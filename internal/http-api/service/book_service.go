package service

import (
	"context"
	"log/slog"

	"libhub/internal/http-api/models"
	"libhub/internal/http-api/repository"
)

type BookService interface {
	Add(ctx context.Context, book models.Book) (*models.Book, error)
	Update(ctx context.Context, book models.Book) (*models.Book, error)
	// Delete removes a book after the typed confirmation id matches the
	// book's id. Rentals referencing the book are left in place.
	Delete(ctx context.Context, bookID int64, verifyID string) error
	Get(ctx context.Context, bookID int64) (*models.Book, error)
	List(ctx context.Context) []models.Book
}

type bookService struct {
	store *repository.EntityStore
	log   *slog.Logger
}

func NewBookService(store *repository.EntityStore, log *slog.Logger) BookService {
	return &bookService{store: store, log: log}
}

func (s *bookService) Add(ctx context.Context, book models.Book) (*models.Book, error) {
	if book.TotalCopies < 0 || book.AvailableCopies < 0 || book.AvailableCopies > book.TotalCopies {
		return nil, ErrInvalidCopies
	}

	var created models.Book
	err := s.store.Update(func(d *repository.Data) error {
		book.ID = repository.NextID(d.Books)
		d.Books = append(d.Books, book)
		created = book
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("book added", "book_id", created.ID, "title", created.Title)
	return &created, nil
}

func (s *bookService) Update(ctx context.Context, book models.Book) (*models.Book, error) {
	if book.TotalCopies < 0 || book.AvailableCopies < 0 || book.AvailableCopies > book.TotalCopies {
		return nil, ErrInvalidCopies
	}

	err := s.store.Update(func(d *repository.Data) error {
		bi := bookIndex(d.Books, book.ID)
		if bi < 0 {
			return ErrBookNotFound
		}
		d.Books[bi] = book
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("book updated", "book_id", book.ID)
	return &book, nil
}

func (s *bookService) Delete(ctx context.Context, bookID int64, verifyID string) error {
	err := s.store.Update(func(d *repository.Data) error {
		bi := bookIndex(d.Books, bookID)
		if bi < 0 {
			return ErrBookNotFound
		}
		if err := verifyTypedID(bookID, verifyID); err != nil {
			return err
		}
		// No cascade: rentals pointing at this book keep their reference.
		d.Books = append(d.Books[:bi], d.Books[bi+1:]...)
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info("book deleted", "book_id", bookID)
	return nil
}

func (s *bookService) Get(ctx context.Context, bookID int64) (*models.Book, error) {
	books := s.store.Books()
	bi := bookIndex(books, bookID)
	if bi < 0 {
		return nil, ErrBookNotFound
	}
	return &books[bi], nil
}

func (s *bookService) List(ctx context.Context) []models.Book {
	return s.store.Books()
}
