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

type BookHandler struct {
	svc     service.BookService
	backups service.BackupService
}

func NewBookHandler(svc service.BookService, backups service.BackupService) *BookHandler {
	return &BookHandler{svc: svc, backups: backups}
}

func (h *BookHandler) RegisterRoutes(rg *gin.RouterGroup, admin gin.HandlerFunc) {
	rg.GET("", h.List)
	rg.GET("/export", h.Export)
	rg.GET("/:id", h.Get)
	rg.POST("", h.Create)
	rg.PUT("/:id", h.Update)
	rg.DELETE("/:id", admin, h.Delete)
}

var bookSortKeys = map[string]func(a, b models.Book) bool{
	"id":               func(a, b models.Book) bool { return a.ID < b.ID },
	"title":            func(a, b models.Book) bool { return a.Title < b.Title },
	"source":           func(a, b models.Book) bool { return a.Source < b.Source },
	"class":            func(a, b models.Book) bool { return a.ClassLabel < b.ClassLabel },
	"genre":            func(a, b models.Book) bool { return a.Genre < b.Genre },
	"total_copies":     func(a, b models.Book) bool { return a.TotalCopies < b.TotalCopies },
	"available_copies": func(a, b models.Book) bool { return a.AvailableCopies < b.AvailableCopies },
}

// List books, optionally filtered (?q=, ?search_type=) and sorted (?sort_by=).
func (h *BookHandler) List(c *gin.Context) {
	q := parseListQuery(c)

	books := h.svc.List(c.Request.Context())
	books = search.Filter(books, q.search,
		func(b models.Book) int64 { return b.ID },
		func(b models.Book) []string { return []string{b.Title, b.Source, b.ClassLabel, b.Genre} })
	if q.search.Text == "" || q.search.Mode == search.ModeID {
		search.SortBy(books, bookSortKeys[q.sortBy], q.desc)
	}

	c.JSON(http.StatusOK, dto.BookListResponse{Items: books, Total: len(books)})
}

func (h *BookHandler) Get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid book id"})
		return
	}

	book, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, book)
}

func (h *BookHandler) Create(c *gin.Context) {
	var req dto.BookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	book, err := h.svc.Add(ctx, req.ToModel(0))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, book)
}

func (h *BookHandler) Update(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid book id"})
		return
	}

	var req dto.BookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	book, err := h.svc.Update(ctx, req.ToModel(id))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, book)
}

// Delete removes a book. The request body carries the typed confirmation id.
func (h *BookHandler) Delete(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid book id"})
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
	c.JSON(http.StatusOK, gin.H{"message": "book deleted"})
}

func (h *BookHandler) Export(c *gin.Context) {
	filename, data, err := h.backups.ExportCollection(c.Request.Context(), repository.CollectionBooks)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/json", data)
}
