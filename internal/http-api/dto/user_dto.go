package dto

import "libhub/internal/http-api/models"

type UserRequest struct {
	Name       string `json:"name" binding:"required"`
	Email      string `json:"email" binding:"omitempty,email"`
	Phone      string `json:"phone"`
	ClassLabel string `json:"class"`
}

func (r UserRequest) ToModel(id int64) models.User {
	return models.User{
		ID:         id,
		Name:       r.Name,
		Email:      r.Email,
		Phone:      r.Phone,
		ClassLabel: r.ClassLabel,
	}
}

type UserListResponse struct {
	Items []models.User `json:"items"`
	Total int           `json:"total"`
}
