package dto

import "libhub/internal/http-api/models"

type BookRequest struct {
	Title       string `json:"title" binding:"required"`
	Source      string `json:"source"`
	ClassLabel  string `json:"class"`
	Genre       string `json:"genre"`
	TotalCopies int    `json:"total_copies" binding:"min=0"`
	// Defaults to total_copies when omitted.
	AvailableCopies *int `json:"available_copies"`
}

func (r BookRequest) ToModel(id int64) models.Book {
	available := r.TotalCopies
	if r.AvailableCopies != nil {
		available = *r.AvailableCopies
	}
	return models.Book{
		ID:              id,
		Title:           r.Title,
		Source:          r.Source,
		ClassLabel:      r.ClassLabel,
		Genre:           r.Genre,
		TotalCopies:     r.TotalCopies,
		AvailableCopies: available,
	}
}

type BookListResponse struct {
	Items []models.Book `json:"items"`
	Total int           `json:"total"`
}
