package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"libhub/internal/http-api/models"
	"libhub/internal/http-api/repository"
)

// MockBackupRepository mocks the BackupRepository interface
type MockBackupRepository struct {
	mock.Mock
}

func (m *MockBackupRepository) Create(ctx context.Context, backup *models.Backup) error {
	args := m.Called(ctx, backup)
	return args.Error(0)
}

func (m *MockBackupRepository) List(ctx context.Context) ([]models.BackupMeta, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.BackupMeta), args.Error(1)
}

func (m *MockBackupRepository) FindByID(ctx context.Context, id string) (*models.Backup, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Backup), args.Error(1)
}

func (m *MockBackupRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func newBackupFixture(t *testing.T) (*repository.EntityStore, *MockBackupRepository, BackupService) {
	t.Helper()
	store := newTestStore(t, repository.Data{
		Books: []models.Book{{ID: 1, Title: "Existing", TotalCopies: 1, AvailableCopies: 1}},
		Users: []models.User{{ID: 1, Name: "Mai Anh"}},
		Rentals: []models.Rental{
			{ID: 1, BookID: 1, UserID: 1, RentalType: models.RentalShort},
		},
	})
	repo := new(MockBackupRepository)
	svc := NewBackupService(store, repo, time.Second, testLogger())
	return store, repo, svc
}

func TestBackupFilenameFormat(t *testing.T) {
	at := time.Date(2026, 8, 7, 14, 30, 0, 0, time.UTC)
	assert.Equal(t, "backup-07-14:30.json", backupFilename(at))
}

func TestCreateBackup_StoresSnapshot(t *testing.T) {
	_, repo, svc := newBackupFixture(t)

	var stored *models.Backup
	repo.On("Create", mock.Anything, mock.AnythingOfType("*models.Backup")).
		Run(func(args mock.Arguments) { stored = args.Get(1).(*models.Backup) }).
		Return(nil)

	meta, err := svc.Create(context.Background())
	require.NoError(t, err)
	repo.AssertExpectations(t)

	assert.Equal(t, stored.Filename, meta.Filename)
	assert.Equal(t, int64(len(stored.Payload)), meta.Size)

	var snap models.Snapshot
	require.NoError(t, json.Unmarshal(stored.Payload, &snap))
	assert.Len(t, snap.Books, 1)
	assert.Len(t, snap.Users, 1)
	assert.Len(t, snap.Rentals, 1)
}

func TestFetchBackup_MissingArraysComeBackEmpty(t *testing.T) {
	_, repo, svc := newBackupFixture(t)

	repo.On("FindByID", mock.Anything, "b1").Return(&models.Backup{
		ID:      "b1",
		Payload: []byte(`{"books":[{"id":1,"title":"x"}]}`),
	}, nil)

	snap, err := svc.Fetch(context.Background(), "b1")
	require.NoError(t, err)
	assert.Len(t, snap.Books, 1)
	assert.NotNil(t, snap.Users)
	assert.Empty(t, snap.Users)
	assert.NotNil(t, snap.Rentals)
	assert.Empty(t, snap.Rentals)
}

func TestDownloadBackup_SingleLookup(t *testing.T) {
	_, repo, svc := newBackupFixture(t)

	repo.On("FindByID", mock.Anything, "b1").Return(&models.Backup{
		ID:       "b1",
		Filename: "backup-07-14:30.json",
		Payload:  []byte(`{"books":[{"id":1,"title":"x"}],"users":[],"rentals":[]}`),
	}, nil).Once()

	filename, data, err := svc.Download(context.Background(), "b1")
	require.NoError(t, err)
	assert.Equal(t, "backup-07-14:30.json", filename)

	var snap models.Snapshot
	require.NoError(t, json.Unmarshal(data, &snap))
	assert.Len(t, snap.Books, 1)
	repo.AssertExpectations(t)
}

func TestFetchBackup_NotFound(t *testing.T) {
	_, repo, svc := newBackupFixture(t)

	repo.On("FindByID", mock.Anything, "missing").Return(nil, repository.ErrBackupNotFound)

	_, err := svc.Fetch(context.Background(), "missing")
	assert.ErrorIs(t, err, repository.ErrBackupNotFound)
}

func TestRestore_ReplacesEverything(t *testing.T) {
	store, _, svc := newBackupFixture(t)

	payload := []byte(`{
		"books": [{"id": 10, "title": "Restored", "total_copies": 3, "available_copies": 3}],
		"users": [],
		"rentals": []
	}`)

	require.NoError(t, svc.Restore(context.Background(), payload))

	books := store.Books()
	require.Len(t, books, 1)
	assert.Equal(t, int64(10), books[0].ID)
	assert.Empty(t, store.Users())
	assert.Empty(t, store.Rentals())
}

func TestRestore_MalformedPayloadTouchesNothing(t *testing.T) {
	store, _, svc := newBackupFixture(t)

	malformed := [][]byte{
		[]byte(`not json`),
		[]byte(`[]`),
		[]byte(`{"books": [], "users": []}`),                       // rentals key missing
		[]byte(`{"books": {}, "users": [], "rentals": []}`),        // books not an array
		[]byte(`{"books": [], "users": null, "rentals": []}`),      // users null
		[]byte(`{"books": ["nope"], "users": [], "rentals": []}`),  // wrong element type
	}

	for _, payload := range malformed {
		err := svc.Restore(context.Background(), payload)
		assert.ErrorIs(t, err, ErrMalformedBackup, "payload %s", payload)
	}

	// the fixture data survived every bad payload
	assert.Len(t, store.Books(), 1)
	assert.Len(t, store.Users(), 1)
	assert.Len(t, store.Rentals(), 1)
}

func TestImport_MergesIncomingWins(t *testing.T) {
	store, _, svc := newBackupFixture(t)

	payload := []byte(`{
		"books": [
			{"id": 1, "title": "Replaced", "total_copies": 5, "available_copies": 5},
			{"id": 2, "title": "Added", "total_copies": 1, "available_copies": 1}
		],
		"users": [],
		"rentals": []
	}`)

	require.NoError(t, svc.Import(context.Background(), payload))

	books := store.Books()
	require.Len(t, books, 2)
	assert.Equal(t, "Replaced", books[0].Title)
	assert.Equal(t, "Added", books[1].Title)
	// empty incoming arrays leave the other collections alone
	assert.Len(t, store.Users(), 1)
	assert.Len(t, store.Rentals(), 1)
}

func TestImportCollection_Books(t *testing.T) {
	store, _, svc := newBackupFixture(t)

	payload := []byte(`[{"id": 3, "title": "Standalone", "total_copies": 1, "available_copies": 1}]`)
	require.NoError(t, svc.ImportCollection(context.Background(), repository.CollectionBooks, payload))

	books := store.Books()
	require.Len(t, books, 2)
	assert.Equal(t, int64(3), books[1].ID)
}

func TestImportCollection_RejectsNonArray(t *testing.T) {
	_, _, svc := newBackupFixture(t)

	err := svc.ImportCollection(context.Background(), repository.CollectionUsers, []byte(`{"id": 1}`))
	assert.ErrorIs(t, err, ErrMalformedBackup)
}

func TestImportCollection_UnknownCollection(t *testing.T) {
	_, _, svc := newBackupFixture(t)

	err := svc.ImportCollection(context.Background(), repository.Collection("magazines"), []byte(`[]`))
	assert.ErrorIs(t, err, ErrMalformedBackup)
}

func TestExport_FullSnapshot(t *testing.T) {
	_, _, svc := newBackupFixture(t)

	filename, data, err := svc.Export(context.Background())
	require.NoError(t, err)
	assert.Regexp(t, `^backup-\d{2}-\d{2}:\d{2}\.json$`, filename)

	var snap models.Snapshot
	require.NoError(t, json.Unmarshal(data, &snap))
	assert.Len(t, snap.Books, 1)
}

func TestExportCollection_Filename(t *testing.T) {
	_, _, svc := newBackupFixture(t)

	filename, data, err := svc.ExportCollection(context.Background(), repository.CollectionRentals)
	require.NoError(t, err)
	assert.Equal(t, "library-rentals.json", filename)

	var rentals []models.Rental
	require.NoError(t, json.Unmarshal(data, &rentals))
	assert.Len(t, rentals, 1)
}

func TestAutoBackup_RateLimited(t *testing.T) {
	store, repo, _ := newBackupFixture(t)
	svc := NewBackupService(store, repo, time.Hour, testLogger())

	created := make(chan struct{}, 8)
	repo.On("Create", mock.Anything, mock.AnythingOfType("*models.Backup")).
		Run(func(mock.Arguments) { created <- struct{}{} }).
		Return(nil)

	for i := 0; i < 5; i++ {
		svc.AutoBackup()
	}

	select {
	case <-created:
	case <-time.After(2 * time.Second):
		t.Fatal("expected one automatic backup")
	}
	select {
	case <-created:
		t.Fatal("burst of mutations must collapse into a single backup")
	case <-time.After(200 * time.Millisecond):
	}
}
