package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"libhub/internal/http-api/dto"
	"libhub/internal/http-api/models"
	"libhub/internal/http-api/repository"
	"libhub/internal/http-api/service"
)

// MockBackupService mocks the BackupService interface
type MockBackupService struct {
	mock.Mock
}

func (m *MockBackupService) Create(ctx context.Context) (*models.BackupMeta, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BackupMeta), args.Error(1)
}

func (m *MockBackupService) List(ctx context.Context) ([]models.BackupMeta, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.BackupMeta), args.Error(1)
}

func (m *MockBackupService) Fetch(ctx context.Context, id string) (*models.Snapshot, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Snapshot), args.Error(1)
}

func (m *MockBackupService) Download(ctx context.Context, id string) (string, []byte, error) {
	args := m.Called(ctx, id)
	return args.String(0), args.Get(1).([]byte), args.Error(2)
}

func (m *MockBackupService) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockBackupService) Restore(ctx context.Context, payload []byte) error {
	args := m.Called(ctx, payload)
	return args.Error(0)
}

func (m *MockBackupService) Import(ctx context.Context, payload []byte) error {
	args := m.Called(ctx, payload)
	return args.Error(0)
}

func (m *MockBackupService) ImportCollection(ctx context.Context, c repository.Collection, payload []byte) error {
	args := m.Called(ctx, c, payload)
	return args.Error(0)
}

func (m *MockBackupService) Export(ctx context.Context) (string, []byte, error) {
	args := m.Called(ctx)
	return args.String(0), args.Get(1).([]byte), args.Error(2)
}

func (m *MockBackupService) ExportCollection(ctx context.Context, c repository.Collection) (string, []byte, error) {
	args := m.Called(ctx, c)
	return args.String(0), args.Get(1).([]byte), args.Error(2)
}

func (m *MockBackupService) AutoBackup() {
	m.Called()
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func noAuth(c *gin.Context) { c.Next() }

func newRentalRouter(t *testing.T) (*gin.Engine, *repository.EntityStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := repository.NewEntityStore(nil, nil, discardLogger())
	err := store.Update(func(d *repository.Data) error {
		d.Books = []models.Book{{ID: 1, Title: "The Go Programming Language", TotalCopies: 1, AvailableCopies: 1}}
		d.Users = []models.User{{ID: 1, Name: "Mai Anh"}}
		return nil
	})
	require.NoError(t, err)

	svc := service.NewRentalService(store, 48*time.Hour, discardLogger())
	router := gin.New()
	NewRentalHandler(svc, new(MockBackupService)).RegisterRoutes(router.Group("/api/rentals"), noAuth)
	return router, store
}

func doJSON(router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func newAuthedJSONRequest(t *testing.T, method, path string, body any, token string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func serve(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRentEndpoint_Success(t *testing.T) {
	router, store := newRentalRouter(t)

	w := doJSON(router, http.MethodPost, "/api/rentals", dto.RentRequest{
		BookID:       1,
		UserID:       1,
		VerifyUserID: "1",
		RentalType:   models.RentalShort,
	})

	require.Equal(t, http.StatusCreated, w.Code)
	var rental models.Rental
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rental))
	assert.Equal(t, int64(1), rental.ID)
	assert.Equal(t, 0, store.Books()[0].AvailableCopies)
}

func TestRentEndpoint_VerificationMismatchIs403(t *testing.T) {
	router, store := newRentalRouter(t)

	w := doJSON(router, http.MethodPost, "/api/rentals", dto.RentRequest{
		BookID:       1,
		UserID:       1,
		VerifyUserID: "2",
		RentalType:   models.RentalShort,
	})

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, 1, store.Books()[0].AvailableCopies)
}

func TestRentEndpoint_UnavailableIs400(t *testing.T) {
	router, _ := newRentalRouter(t)

	first := doJSON(router, http.MethodPost, "/api/rentals", dto.RentRequest{
		BookID: 1, UserID: 1, VerifyUserID: "1", RentalType: models.RentalShort,
	})
	require.Equal(t, http.StatusCreated, first.Code)

	second := doJSON(router, http.MethodPost, "/api/rentals", dto.RentRequest{
		BookID: 1, UserID: 1, VerifyUserID: "1", RentalType: models.RentalShort,
	})
	assert.Equal(t, http.StatusBadRequest, second.Code)
}

func TestRentEndpoint_BadCustomDate(t *testing.T) {
	router, _ := newRentalRouter(t)

	w := doJSON(router, http.MethodPost, "/api/rentals", dto.RentRequest{
		BookID: 1, UserID: 1, VerifyUserID: "1",
		CustomReturnDate: "15/09/2026",
		RentalType:       models.RentalShort,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReturnEndpoint_FullCycle(t *testing.T) {
	router, store := newRentalRouter(t)

	w := doJSON(router, http.MethodPost, "/api/rentals", dto.RentRequest{
		BookID: 1, UserID: 1, VerifyUserID: "1", RentalType: models.RentalShort,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(router, http.MethodPost, "/api/rentals/1/return", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, store.Books()[0].AvailableCopies)

	// a second return is a conflict with the state machine
	w = doJSON(router, http.MethodPost, "/api/rentals/1/return", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(router, http.MethodPost, "/api/rentals/1/undo-return", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, store.Books()[0].AvailableCopies)
}

func TestReturnEndpoint_UnknownRentalIs404(t *testing.T) {
	router, _ := newRentalRouter(t)

	w := doJSON(router, http.MethodPost, "/api/rentals/42/return", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListRentals_Views(t *testing.T) {
	router, store := newRentalRouter(t)

	returned := time.Now().Add(-time.Hour)
	require.NoError(t, store.Update(func(d *repository.Data) error {
		d.Rentals = []models.Rental{
			{ID: 1, BookID: 1, UserID: 1, DueDate: time.Now().Add(24 * time.Hour)},
			{ID: 2, BookID: 1, UserID: 1, DueDate: time.Now().Add(-24 * time.Hour)},
			{ID: 3, BookID: 1, UserID: 1, ReturnDate: &returned},
		}
		return nil
	}))

	cases := map[string]int{
		"/api/rentals":                 3,
		"/api/rentals?view=active":     2,
		"/api/rentals?view=unreturned": 1,
		"/api/rentals?view=returned":   1,
	}
	for path, want := range cases {
		w := doJSON(router, http.MethodGet, path, nil)
		require.Equal(t, http.StatusOK, w.Code, path)
		var resp dto.RentalListResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, want, resp.Total, path)
	}

	w := doJSON(router, http.MethodGet, "/api/rentals?view=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteRentalEndpoint(t *testing.T) {
	router, store := newRentalRouter(t)

	w := doJSON(router, http.MethodPost, "/api/rentals", dto.RentRequest{
		BookID: 1, UserID: 1, VerifyUserID: "1", RentalType: models.RentalShort,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(router, http.MethodDelete, "/api/rentals/1", dto.VerifyRequest{VerifyID: "9"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(router, http.MethodDelete, "/api/rentals/1", dto.VerifyRequest{VerifyID: "1"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, store.Rentals())
	assert.Equal(t, 1, store.Books()[0].AvailableCopies)
}
