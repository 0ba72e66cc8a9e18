package models

// Identifiable is satisfied by every entity carrying a numeric id. Merge and
// id allocation are generic over it.
type Identifiable interface {
	Identity() int64
}

func (b Book) Identity() int64   { return b.ID }
func (u User) Identity() int64   { return u.ID }
func (r Rental) Identity() int64 { return r.ID }
