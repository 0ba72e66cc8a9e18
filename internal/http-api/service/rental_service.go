package service

import (
	"context"
	"log/slog"
	"time"

	"libhub/internal/http-api/models"
	"libhub/internal/http-api/repository"
)

const (
	shortRentalPeriod = 14 * 24 * time.Hour
	longRentalPeriod  = 365 * 24 * time.Hour
)

// RentalService is the rental state machine. It is the only component that
// mutates Book.AvailableCopies or User.CurrentRentals; everything else goes
// through these operations so the denormalized counters stay consistent with
// the set of active rentals.
type RentalService interface {
	// Rent checks out a book. verifyUserID is the confirmation gate: it must
	// re-state the selected user's id.
	Rent(ctx context.Context, bookID, userID int64, verifyUserID string, customReturnDate *time.Time, rentalType models.RentalType) (*models.Rental, error)

	// Return marks an active rental returned and frees the copy.
	Return(ctx context.Context, rentalID int64) (*models.Rental, error)

	// ConfirmReturn is the staff-side confirmation flow. Same transition as
	// Return.
	ConfirmReturn(ctx context.Context, rentalID int64) (*models.Rental, error)

	// UndoReturn reverts a return, restoring the exact pre-return counters.
	UndoReturn(ctx context.Context, rentalID int64) (*models.Rental, error)

	// Delete removes a rental record. An active rental is implicitly
	// returned first. verifyUserID must match the rental's user id.
	Delete(ctx context.Context, rentalID int64, verifyUserID string) error

	// PurgeExpiredReturns drops returned rentals older than the retention
	// window and reports how many were removed. No counter side effects.
	PurgeExpiredReturns(ctx context.Context) (int, error)

	List(ctx context.Context) []models.Rental
	Active(ctx context.Context) []models.Rental
	Unreturned(ctx context.Context) []models.Rental
	Returned(ctx context.Context) []models.Rental
}

type rentalService struct {
	store     *repository.EntityStore
	retention time.Duration
	log       *slog.Logger
}

func NewRentalService(store *repository.EntityStore, retention time.Duration, log *slog.Logger) RentalService {
	return &rentalService{store: store, retention: retention, log: log}
}

func (s *rentalService) Rent(ctx context.Context, bookID, userID int64, verifyUserID string, customReturnDate *time.Time, rentalType models.RentalType) (*models.Rental, error) {
	if !rentalType.Valid() {
		return nil, ErrInvalidRentalType
	}
	// Verification happens before any state is touched.
	if err := verifyTypedID(userID, verifyUserID); err != nil {
		return nil, err
	}

	var created models.Rental
	err := s.store.Update(func(d *repository.Data) error {
		bi := bookIndex(d.Books, bookID)
		if bi < 0 {
			return ErrBookNotFound
		}
		ui := userIndex(d.Users, userID)
		if ui < 0 {
			return ErrUserNotFound
		}
		if d.Books[bi].AvailableCopies <= 0 {
			return ErrBookUnavailable
		}

		now := time.Now()
		period := shortRentalPeriod
		if rentalType == models.RentalLong {
			period = longRentalPeriod
		}
		created = models.Rental{
			ID:               repository.NextID(d.Rentals),
			BookID:           bookID,
			UserID:           userID,
			RentalDate:       now,
			DueDate:          now.Add(period),
			CustomReturnDate: customReturnDate,
			RentalType:       rentalType,
		}

		d.Books[bi].AvailableCopies--
		d.Users[ui].CurrentRentals = append(d.Users[ui].CurrentRentals, bookID)
		d.Rentals = append(d.Rentals, created)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("book rented", "rental_id", created.ID, "book_id", bookID, "user_id", userID, "type", rentalType)
	return &created, nil
}

func (s *rentalService) Return(ctx context.Context, rentalID int64) (*models.Rental, error) {
	var returned models.Rental
	err := s.store.Update(func(d *repository.Data) error {
		ri := rentalIndex(d.Rentals, rentalID)
		if ri < 0 {
			return ErrRentalNotFound
		}
		if !d.Rentals[ri].Active() {
			// never double-increment available copies
			return ErrRentalNotActive
		}

		now := time.Now()
		d.Rentals[ri].ReturnDate = &now
		d.Rentals[ri].ReturnTime = now.Format("15:04:05")

		// The book or user may have been deleted since the rental was
		// created; a dangling reference does not block the return.
		if bi := bookIndex(d.Books, d.Rentals[ri].BookID); bi >= 0 {
			d.Books[bi].AvailableCopies++
		}
		if ui := userIndex(d.Users, d.Rentals[ri].UserID); ui >= 0 {
			d.Users[ui].CurrentRentals, _ = d.Users[ui].CurrentRentals.RemoveOne(d.Rentals[ri].BookID)
		}
		returned = d.Rentals[ri]
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("book returned", "rental_id", rentalID, "book_id", returned.BookID, "user_id", returned.UserID)
	return &returned, nil
}

func (s *rentalService) ConfirmReturn(ctx context.Context, rentalID int64) (*models.Rental, error) {
	return s.Return(ctx, rentalID)
}

func (s *rentalService) UndoReturn(ctx context.Context, rentalID int64) (*models.Rental, error) {
	var restored models.Rental
	err := s.store.Update(func(d *repository.Data) error {
		ri := rentalIndex(d.Rentals, rentalID)
		if ri < 0 {
			return ErrRentalNotFound
		}
		if d.Rentals[ri].Active() {
			return ErrRentalNotReturned
		}

		d.Rentals[ri].ReturnDate = nil
		d.Rentals[ri].ReturnTime = ""

		if bi := bookIndex(d.Books, d.Rentals[ri].BookID); bi >= 0 {
			d.Books[bi].AvailableCopies--
		}
		if ui := userIndex(d.Users, d.Rentals[ri].UserID); ui >= 0 {
			d.Users[ui].CurrentRentals = append(d.Users[ui].CurrentRentals, d.Rentals[ri].BookID)
		}
		restored = d.Rentals[ri]
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("return undone", "rental_id", rentalID, "book_id", restored.BookID, "user_id", restored.UserID)
	return &restored, nil
}

func (s *rentalService) Delete(ctx context.Context, rentalID int64, verifyUserID string) error {
	err := s.store.Update(func(d *repository.Data) error {
		ri := rentalIndex(d.Rentals, rentalID)
		if ri < 0 {
			return ErrRentalNotFound
		}
		rental := d.Rentals[ri]
		if err := verifyTypedID(rental.UserID, verifyUserID); err != nil {
			return err
		}

		// Deleting an active rental implicitly returns the book.
		if rental.Active() {
			if bi := bookIndex(d.Books, rental.BookID); bi >= 0 {
				d.Books[bi].AvailableCopies++
			}
			if ui := userIndex(d.Users, rental.UserID); ui >= 0 {
				d.Users[ui].CurrentRentals, _ = d.Users[ui].CurrentRentals.RemoveOne(rental.BookID)
			}
		}

		d.Rentals = append(d.Rentals[:ri], d.Rentals[ri+1:]...)
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info("rental deleted", "rental_id", rentalID)
	return nil
}

func (s *rentalService) PurgeExpiredReturns(ctx context.Context) (int, error) {
	purged := 0
	err := s.store.Update(func(d *repository.Data) error {
		now := time.Now()
		kept := d.Rentals[:0]
		for _, r := range d.Rentals {
			if r.ReturnDate != nil && now.Sub(*r.ReturnDate) > s.retention {
				purged++
				continue
			}
			kept = append(kept, r)
		}
		d.Rentals = kept
		return nil
	})
	if err != nil {
		return 0, err
	}

	if purged > 0 {
		s.log.Info("purged expired returns", "count", purged, "retention", s.retention)
	}
	return purged, nil
}

func (s *rentalService) List(ctx context.Context) []models.Rental {
	return s.store.Rentals()
}

func (s *rentalService) Active(ctx context.Context) []models.Rental {
	return filterRentals(s.store.Rentals(), func(r models.Rental) bool {
		return r.Active()
	})
}

// Unreturned lists active rentals whose effective due date (custom return
// date when set, computed due date otherwise) has passed.
func (s *rentalService) Unreturned(ctx context.Context) []models.Rental {
	now := time.Now()
	return filterRentals(s.store.Rentals(), func(r models.Rental) bool {
		return r.Overdue(now)
	})
}

func (s *rentalService) Returned(ctx context.Context) []models.Rental {
	return filterRentals(s.store.Rentals(), func(r models.Rental) bool {
		return !r.Active()
	})
}

func filterRentals(rentals []models.Rental, keep func(models.Rental) bool) []models.Rental {
	out := make([]models.Rental, 0, len(rentals))
	for _, r := range rentals {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

func bookIndex(books []models.Book, id int64) int {
	for i := range books {
		if books[i].ID == id {
			return i
		}
	}
	return -1
}

func userIndex(users []models.User, id int64) int {
	for i := range users {
		if users[i].ID == id {
			return i
		}
	}
	return -1
}

func rentalIndex(rentals []models.Rental, id int64) int {
	for i := range rentals {
		if rentals[i].ID == id {
			return i
		}
	}
	return -1
}
