package service

import "errors"

var (
	ErrBookNotFound   = errors.New("book not found")
	ErrUserNotFound   = errors.New("user not found")
	ErrRentalNotFound = errors.New("rental not found")

	// ErrBookUnavailable means every copy of the book is already checked out.
	ErrBookUnavailable = errors.New("no copies of this book are available")

	// ErrRentalNotActive guards return: the rental already has a return date.
	ErrRentalNotActive = errors.New("rental is not active")

	// ErrRentalNotReturned guards undo: the rental has no return date to clear.
	ErrRentalNotReturned = errors.New("rental has not been returned")

	// ErrVerificationFailed means the typed confirmation id did not match the
	// target record. A mis-click guard, not a security boundary.
	ErrVerificationFailed = errors.New("verification failed: entered ID does not match")

	ErrInvalidRentalType = errors.New("rental type must be \"short\" or \"long\"")

	// ErrInvalidCopies covers available/total copy counts out of bounds.
	ErrInvalidCopies = errors.New("available copies must be between 0 and total copies")

	// ErrMalformedBackup rejects restore/import payloads before any
	// collection is touched.
	ErrMalformedBackup = errors.New("invalid backup format, expected {books, users, rentals}")

	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
)
