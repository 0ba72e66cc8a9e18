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

type RentalHandler struct {
	svc     service.RentalService
	backups service.BackupService
}

func NewRentalHandler(svc service.RentalService, backups service.BackupService) *RentalHandler {
	return &RentalHandler{svc: svc, backups: backups}
}

func (h *RentalHandler) RegisterRoutes(rg *gin.RouterGroup, admin gin.HandlerFunc) {
	rg.GET("", h.List)
	rg.GET("/export", h.Export)
	rg.POST("", h.Rent)
	rg.POST("/purge", admin, h.Purge)
	rg.POST("/:id/return", h.Return)
	rg.POST("/:id/confirm-return", h.ConfirmReturn)
	rg.POST("/:id/undo-return", h.UndoReturn)
	rg.DELETE("/:id", h.Delete)
}

var rentalSortKeys = map[string]func(a, b models.Rental) bool{
	"id":          func(a, b models.Rental) bool { return a.ID < b.ID },
	"rental_date": func(a, b models.Rental) bool { return a.RentalDate.Before(b.RentalDate) },
	"due_date":    func(a, b models.Rental) bool { return a.EffectiveDueDate().Before(b.EffectiveDueDate()) },
	"return_date": func(a, b models.Rental) bool {
		switch {
		case a.ReturnDate == nil:
			return false
		case b.ReturnDate == nil:
			return true
		default:
			return a.ReturnDate.Before(*b.ReturnDate)
		}
	},
}

// List rentals. ?view= selects the slice: active, unreturned, returned, or
// all (the default).
func (h *RentalHandler) List(c *gin.Context) {
	q := parseListQuery(c)
	ctx := c.Request.Context()

	var rentals []models.Rental
	switch c.DefaultQuery("view", "all") {
	case "active":
		rentals = h.svc.Active(ctx)
	case "unreturned":
		rentals = h.svc.Unreturned(ctx)
	case "returned":
		rentals = h.svc.Returned(ctx)
	case "all":
		rentals = h.svc.List(ctx)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid view"})
		return
	}

	rentals = search.Filter(rentals, q.search,
		func(r models.Rental) int64 { return r.ID },
		func(r models.Rental) []string {
			return []string{strconv.FormatInt(r.BookID, 10), strconv.FormatInt(r.UserID, 10)}
		})
	if q.search.Text == "" || q.search.Mode == search.ModeID {
		search.SortBy(rentals, rentalSortKeys[q.sortBy], q.desc)
	}

	c.JSON(http.StatusOK, dto.RentalListResponse{Items: rentals, Total: len(rentals)})
}

func (h *RentalHandler) Rent(c *gin.Context) {
	var req dto.RentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var customReturn *time.Time
	if req.CustomReturnDate != "" {
		t, err := time.Parse("2006-01-02", req.CustomReturnDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "custom_return_date must be YYYY-MM-DD"})
			return
		}
		customReturn = &t
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	rental, err := h.svc.Rent(ctx, req.BookID, req.UserID, req.VerifyUserID, customReturn, req.RentalType)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rental)
}

func (h *RentalHandler) Return(c *gin.Context) {
	h.markReturned(c, h.svc.Return)
}

func (h *RentalHandler) ConfirmReturn(c *gin.Context) {
	h.markReturned(c, h.svc.ConfirmReturn)
}

func (h *RentalHandler) UndoReturn(c *gin.Context) {
	h.markReturned(c, h.svc.UndoReturn)
}

func (h *RentalHandler) markReturned(c *gin.Context, op func(context.Context, int64) (*models.Rental, error)) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid rental id"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	rental, err := op(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rental)
}

// Delete removes a rental record. The body must re-state the renting user's
// id; an active rental is returned implicitly before removal.
func (h *RentalHandler) Delete(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid rental id"})
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
	c.JSON(http.StatusOK, gin.H{"message": "rental deleted"})
}

func (h *RentalHandler) Purge(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	purged, err := h.svc.PurgeExpiredReturns(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.PurgeResponse{Purged: purged})
}

func (h *RentalHandler) Export(c *gin.Context) {
	filename, data, err := h.backups.ExportCollection(c.Request.Context(), repository.CollectionRentals)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/json", data)
}
