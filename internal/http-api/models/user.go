package models

import "time"

type User struct {
	ID             int64     `json:"id" gorm:"primaryKey"`
	Name           string    `json:"name" gorm:"not null"`
	Email          string    `json:"email"`
	Phone          string    `json:"phone,omitempty"`
	ClassLabel     string    `json:"class"`
	MembershipDate time.Time `json:"membership_date"` // set once at creation

	// Book IDs of the user's active rentals, one entry per open rental.
	// Kept in sync by the rental service only.
	CurrentRentals Int64List `json:"current_rentals" gorm:"type:jsonb;serializer:json"`
}

func (User) TableName() string {
	return "users"
}

type Int64List []int64

// RemoveOne removes the first occurrence of v and reports whether it was found.
func (l Int64List) RemoveOne(v int64) (Int64List, bool) {
	for i, id := range l {
		if id == v {
			out := make(Int64List, 0, len(l)-1)
			out = append(out, l[:i]...)
			out = append(out, l[i+1:]...)
			return out, true
		}
	}
	return l, false
}
