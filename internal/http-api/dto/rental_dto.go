package dto

import "libhub/internal/http-api/models"

type RentRequest struct {
	BookID int64 `json:"book_id" binding:"required"`
	UserID int64 `json:"user_id" binding:"required"`
	// The typed confirmation: must re-state user_id.
	VerifyUserID string `json:"verify_user_id" binding:"required"`
	// Optional, format 2006-01-02.
	CustomReturnDate string            `json:"custom_return_date"`
	RentalType       models.RentalType `json:"rental_type" binding:"required"`
}

type VerifyRequest struct {
	VerifyID string `json:"verify_id" binding:"required"`
}

type RentalListResponse struct {
	Items []models.Rental `json:"items"`
	Total int             `json:"total"`
}

type PurgeResponse struct {
	Purged int `json:"purged"`
}
