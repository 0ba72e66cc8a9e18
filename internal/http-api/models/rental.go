package models

import "time"

type RentalType string

const (
	RentalShort RentalType = "short" // due in 14 days
	RentalLong  RentalType = "long"  // due in 365 days
)

func (t RentalType) Valid() bool {
	return t == RentalShort || t == RentalLong
}

type Rental struct {
	ID               int64      `json:"id" gorm:"primaryKey"`
	BookID           int64      `json:"book_id" gorm:"not null;index"`
	UserID           int64      `json:"user_id" gorm:"not null;index"`
	RentalDate       time.Time  `json:"rental_date"`
	DueDate          time.Time  `json:"due_date"`
	CustomReturnDate *time.Time `json:"custom_return_date,omitempty"`
	ReturnDate       *time.Time `json:"return_date,omitempty"`
	ReturnTime       string     `json:"return_time,omitempty"`
	RentalType       RentalType `json:"rental_type"`
}

func (Rental) TableName() string {
	return "rentals"
}

// Active reports whether the book is still checked out.
func (r *Rental) Active() bool {
	return r.ReturnDate == nil
}

// EffectiveDueDate is the custom return date when one was supplied,
// otherwise the computed due date.
func (r *Rental) EffectiveDueDate() time.Time {
	if r.CustomReturnDate != nil {
		return *r.CustomReturnDate
	}
	return r.DueDate
}

// Overdue reports whether an active rental's effective due date has passed.
func (r *Rental) Overdue(now time.Time) bool {
	return r.Active() && r.EffectiveDueDate().Before(now)
}
