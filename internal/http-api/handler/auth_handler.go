package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"libhub/internal/http-api/dto"
	"libhub/internal/http-api/service"
)

type AuthHandler struct {
	svc service.AuthService
}

func NewAuthHandler(svc service.AuthService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

func (h *AuthHandler) RegisterRoutes(api *gin.RouterGroup) {
	api.POST("/admin/login", h.Login)
}

// Login exchanges the admin password for a session token.
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.AdminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, err := h.svc.Login(req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.AdminLoginResponse{Token: token})
}
