package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"libhub/internal/http-api/dto"
	"libhub/internal/http-api/models"
	"libhub/internal/http-api/repository"
	"libhub/internal/http-api/service"
	"libhub/internal/search"
)

type UserHandler struct {
	svc     service.UserService
	backups service.BackupService
}

func NewUserHandler(svc service.UserService, backups service.BackupService) *UserHandler {
	return &UserHandler{svc: svc, backups: backups}
}

func (h *UserHandler) RegisterRoutes(rg *gin.RouterGroup, admin gin.HandlerFunc) {
	rg.GET("", h.List)
	rg.GET("/export", h.Export)
	rg.GET("/:id", h.Get)
	rg.POST("", h.Create)
	rg.PUT("/:id", h.Update)
	rg.DELETE("/:id", admin, h.Delete)
}

var userSortKeys = map[string]func(a, b models.User) bool{
	"id":              func(a, b models.User) bool { return a.ID < b.ID },
	"name":            func(a, b models.User) bool { return a.Name < b.Name },
	"email":           func(a, b models.User) bool { return a.Email < b.Email },
	"class":           func(a, b models.User) bool { return a.ClassLabel < b.ClassLabel },
	"membership_date": func(a, b models.User) bool { return a.MembershipDate.Before(b.MembershipDate) },
}

func (h *UserHandler) List(c *gin.Context) {
	q := parseListQuery(c)

	users := h.svc.List(c.Request.Context())
	users = search.Filter(users, q.search,
		func(u models.User) int64 { return u.ID },
		func(u models.User) []string { return []string{u.Name, u.Email, u.ClassLabel} })
	if q.search.Text == "" || q.search.Mode == search.ModeID {
		search.SortBy(users, userSortKeys[q.sortBy], q.desc)
	}

	c.JSON(http.StatusOK, dto.UserListResponse{Items: users, Total: len(users)})
}

func (h *UserHandler) Get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	user, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) Create(c *gin.Context) {
	var req dto.UserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	user, err := h.svc.Add(ctx, req.ToModel(0))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

func (h *UserHandler) Update(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	var req dto.UserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	user, err := h.svc.Update(ctx, req.ToModel(id))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) Delete(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	var req dto.VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := h.svc.Delete(ctx, id, req.VerifyID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "user deleted"})
}

func (h *UserHandler) Export(c *gin.Context) {
	filename, data, err := h.backups.ExportCollection(c.Request.Context(), repository.CollectionUsers)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/json", data)
}
