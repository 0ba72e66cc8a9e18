package models

// Snapshot is the full dataset at a point in time. It is the wire format of
// backups, exports and restores: exactly three keys, each a plain array.
type Snapshot struct {
	Books   []Book   `json:"books"`
	Users   []User   `json:"users"`
	Rentals []Rental `json:"rentals"`
}
