package handler

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"libhub/internal/http-api/repository"
	"libhub/internal/http-api/service"
)

// Snapshot payloads can get large; cap what we read from the client.
const maxSnapshotBytes = 32 << 20

type BackupHandler struct {
	svc service.BackupService
}

func NewBackupHandler(svc service.BackupService) *BackupHandler {
	return &BackupHandler{svc: svc}
}

func (h *BackupHandler) RegisterRoutes(api *gin.RouterGroup, admin gin.HandlerFunc) {
	backups := api.Group("/backups")
	{
		backups.GET("", h.List)
		backups.POST("", h.Create)
		backups.GET("/:id", h.Get)
		backups.DELETE("/:id", admin, h.Delete)
	}
	api.GET("/export", h.Export)
	api.POST("/restore", admin, h.Restore)
	api.POST("/import", h.Import)
	api.POST("/import/:collection", h.ImportCollection)
}

func (h *BackupHandler) List(c *gin.Context) {
	metas, err := h.svc.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": metas, "total": len(metas)})
}

func (h *BackupHandler) Create(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	meta, err := h.svc.Create(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, meta)
}

// Get returns the snapshot stored in a backup. With ?download=true the
// payload is served as a file attachment instead.
func (h *BackupHandler) Get(c *gin.Context) {
	id := c.Param("id")

	if c.Query("download") == "true" {
		filename, data, err := h.svc.Download(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
		c.Data(http.StatusOK, "application/json", data)
		return
	}

	snap, err := h.svc.Fetch(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h *BackupHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "backup deleted"})
}

// Restore replaces all library data with the uploaded snapshot.
func (h *BackupHandler) Restore(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxSnapshotBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable request body"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	if err := h.svc.Restore(ctx, payload); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "restore complete"})
}

// Import merges the uploaded snapshot into the current data, record id wins
// going to the uploaded side.
func (h *BackupHandler) Import(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxSnapshotBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable request body"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	if err := h.svc.Import(ctx, payload); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "import complete"})
}

func (h *BackupHandler) ImportCollection(c *gin.Context) {
	collection := repository.Collection(c.Param("collection"))
	switch collection {
	case repository.CollectionBooks, repository.CollectionUsers, repository.CollectionRentals:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown collection"})
		return
	}

	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxSnapshotBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable request body"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	if err := h.svc.ImportCollection(ctx, collection, payload); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "import complete"})
}

// Export serves the full current snapshot as a downloadable file.
func (h *BackupHandler) Export(c *gin.Context) {
	filename, data, err := h.svc.Export(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/json", data)
}
