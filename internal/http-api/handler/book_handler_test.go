package handler

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"libhub/internal/config"
	"libhub/internal/http-api/dto"
	"libhub/internal/http-api/middleware"
	"libhub/internal/http-api/models"
	"libhub/internal/http-api/repository"
	"libhub/internal/http-api/service"
)

func newBookRouter(t *testing.T, admin gin.HandlerFunc) (*gin.Engine, *repository.EntityStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := repository.NewEntityStore(nil, nil, discardLogger())
	err := store.Update(func(d *repository.Data) error {
		d.Books = []models.Book{
			{ID: 1, Title: "Clean Code", Genre: "software", TotalCopies: 1, AvailableCopies: 1},
			{ID: 2, Title: "The Go Programming Language", Genre: "software", TotalCopies: 2, AvailableCopies: 2},
		}
		return nil
	})
	require.NoError(t, err)

	svc := service.NewBookService(store, discardLogger())
	router := gin.New()
	NewBookHandler(svc, new(MockBackupService)).RegisterRoutes(router.Group("/api/books"), admin)
	return router, store
}

func TestCreateBook(t *testing.T) {
	router, store := newBookRouter(t, noAuth)

	w := doJSON(router, http.MethodPost, "/api/books", dto.BookRequest{
		Title:       "Designing Data-Intensive Applications",
		Genre:       "software",
		TotalCopies: 3,
	})

	require.Equal(t, http.StatusCreated, w.Code)
	var book models.Book
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &book))
	assert.Equal(t, int64(3), book.ID)
	// available copies default to the total
	assert.Equal(t, 3, book.AvailableCopies)
	assert.Len(t, store.Books(), 3)
}

func TestCreateBook_MissingTitle(t *testing.T) {
	router, _ := newBookRouter(t, noAuth)

	w := doJSON(router, http.MethodPost, "/api/books", map[string]any{"total_copies": 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListBooks_SortAndSearch(t *testing.T) {
	router, _ := newBookRouter(t, noAuth)

	w := doJSON(router, http.MethodGet, "/api/books?sort_by=title&order=desc", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp dto.BookListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 2, resp.Total)
	assert.Equal(t, "The Go Programming Language", resp.Items[0].Title)

	w = doJSON(router, http.MethodGet, "/api/books?search_type=name&q=clean", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Total)
	assert.Equal(t, int64(1), resp.Items[0].ID)

	w = doJSON(router, http.MethodGet, "/api/books?q=2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Total)
	assert.Equal(t, int64(2), resp.Items[0].ID)
}

func TestGetBook(t *testing.T) {
	router, _ := newBookRouter(t, noAuth)

	w := doJSON(router, http.MethodGet, "/api/books/1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(router, http.MethodGet, "/api/books/99", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(router, http.MethodGet, "/api/books/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateBook_UnknownIDIs404(t *testing.T) {
	router, _ := newBookRouter(t, noAuth)

	w := doJSON(router, http.MethodPut, "/api/books/99", dto.BookRequest{
		Title:       "ghost",
		TotalCopies: 1,
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteBook_AdminGate(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("letmein"), bcrypt.MinCost)
	require.NoError(t, err)
	authSvc := service.NewAuthService(&config.Config{
		AdminPasswordHash: string(hash),
		JWTSecret:         "test-secret-at-least-32-characters!!",
		JWTExpiry:         time.Hour,
	})
	router, store := newBookRouter(t, middleware.AdminRequired(authSvc))

	// no token
	w := doJSON(router, http.MethodDelete, "/api/books/1", dto.VerifyRequest{VerifyID: "1"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Len(t, store.Books(), 2)

	token, err := authSvc.Login("letmein")
	require.NoError(t, err)

	req := newAuthedJSONRequest(t, http.MethodDelete, "/api/books/1", dto.VerifyRequest{VerifyID: "1"}, token)
	w = serve(router, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, store.Books(), 1)
}

func TestExportBooks(t *testing.T) {
	gin.SetMode(gin.TestMode)

	backups := new(MockBackupService)
	backups.On("ExportCollection", mock.Anything, repository.CollectionBooks).
		Return("library-books.json", []byte(`[]`), nil)

	store := repository.NewEntityStore(nil, nil, discardLogger())
	router := gin.New()
	NewBookHandler(service.NewBookService(store, discardLogger()), backups).
		RegisterRoutes(router.Group("/api/books"), noAuth)

	w := doJSON(router, http.MethodGet, "/api/books/export", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "library-books.json")
	backups.AssertExpectations(t)
}
