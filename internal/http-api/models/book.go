package models

type Book struct {
	ID              int64  `json:"id" gorm:"primaryKey"`
	Title           string `json:"title" gorm:"not null"`
	Source          string `json:"source"` // "Donated" or "Bought"
	ClassLabel      string `json:"class"`
	Genre           string `json:"genre"`
	TotalCopies     int    `json:"total_copies"`
	AvailableCopies int    `json:"available_copies"`
}

func (Book) TableName() string {
	return "books"
}
