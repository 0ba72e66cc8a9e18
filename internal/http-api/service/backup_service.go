package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"libhub/internal/http-api/models"
	"libhub/internal/http-api/repository"
)

// BackupService stores and restores full {books, users, rentals} snapshots.
// Restore is a destructive replace; Import merges additively (incoming wins
// by id). Both validate the whole payload before touching any collection.
type BackupService interface {
	Create(ctx context.Context) (*models.BackupMeta, error)
	List(ctx context.Context) ([]models.BackupMeta, error)
	Fetch(ctx context.Context, id string) (*models.Snapshot, error)
	// Download returns the stored payload pretty-printed, with the filename
	// to serve it under.
	Download(ctx context.Context, id string) (filename string, data []byte, err error)
	Delete(ctx context.Context, id string) error

	Restore(ctx context.Context, payload []byte) error
	Import(ctx context.Context, payload []byte) error
	ImportCollection(ctx context.Context, c repository.Collection, payload []byte) error

	Export(ctx context.Context) (filename string, data []byte, err error)
	ExportCollection(ctx context.Context, c repository.Collection) (filename string, data []byte, err error)

	// AutoBackup snapshots the dataset after a mutation, rate limited so a
	// burst of edits produces one backup, not dozens. Fire-and-forget.
	AutoBackup()
}

type backupService struct {
	store   *repository.EntityStore
	repo    repository.BackupRepository
	limiter *rate.Limiter
	log     *slog.Logger
}

func NewBackupService(store *repository.EntityStore, repo repository.BackupRepository, minInterval time.Duration, log *slog.Logger) BackupService {
	return &backupService{
		store:   store,
		repo:    repo,
		limiter: rate.NewLimiter(rate.Every(minInterval), 1),
		log:     log,
	}
}

// backupFilename formats backup-<day>-<time>.json, e.g. backup-07-14:30.json.
func backupFilename(now time.Time) string {
	return fmt.Sprintf("backup-%s-%s.json", now.Format("02"), now.Format("15:04"))
}

func (s *backupService) Create(ctx context.Context) (*models.BackupMeta, error) {
	snap := s.store.Snapshot()
	payload, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}

	now := time.Now()
	backup := &models.Backup{
		Filename:  backupFilename(now),
		CreatedAt: now,
		Size:      int64(len(payload)),
		Payload:   payload,
	}
	if err := s.repo.Create(ctx, backup); err != nil {
		return nil, err
	}

	s.log.Info("backup created", "backup_id", backup.ID, "filename", backup.Filename, "size", backup.Size)
	return &models.BackupMeta{
		ID:        backup.ID,
		Filename:  backup.Filename,
		CreatedAt: backup.CreatedAt,
		Size:      backup.Size,
	}, nil
}

func (s *backupService) List(ctx context.Context) ([]models.BackupMeta, error) {
	return s.repo.List(ctx)
}

func (s *backupService) Fetch(ctx context.Context, id string) (*models.Snapshot, error) {
	backup, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return decodeStoredSnapshot(backup.Payload)
}

func (s *backupService) Download(ctx context.Context, id string) (string, []byte, error) {
	backup, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return "", nil, err
	}
	snap, err := decodeStoredSnapshot(backup.Payload)
	if err != nil {
		return "", nil, err
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	return backup.Filename, data, nil
}

// decodeStoredSnapshot unpacks a stored backup payload. Stored payloads are
// trusted less than they should be: missing arrays come back empty rather
// than failing the read.
func decodeStoredSnapshot(payload []byte) (*models.Snapshot, error) {
	var snap models.Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBackup, err)
	}
	if snap.Books == nil {
		snap.Books = []models.Book{}
	}
	if snap.Users == nil {
		snap.Users = []models.User{}
	}
	if snap.Rentals == nil {
		snap.Rentals = []models.Rental{}
	}
	return &snap, nil
}

func (s *backupService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("backup deleted", "backup_id", id)
	return nil
}

// Restore replaces all three collections with the payload's. The payload is
// fully validated first so a malformed file cannot leave the store partially
// cleared.
func (s *backupService) Restore(ctx context.Context, payload []byte) error {
	snap, err := parseSnapshot(payload)
	if err != nil {
		return err
	}

	if err := s.store.ReplaceAll(repository.CollectionBooks, snap.Books); err != nil {
		return err
	}
	if err := s.store.ReplaceAll(repository.CollectionUsers, snap.Users); err != nil {
		return err
	}
	if err := s.store.ReplaceAll(repository.CollectionRentals, snap.Rentals); err != nil {
		return err
	}

	s.log.Info("database restored",
		"books", len(snap.Books), "users", len(snap.Users), "rentals", len(snap.Rentals))
	return nil
}

// Import merges the payload into the current dataset, incoming records
// winning on id collision.
func (s *backupService) Import(ctx context.Context, payload []byte) error {
	snap, err := parseSnapshot(payload)
	if err != nil {
		return err
	}

	err = s.store.Update(func(d *repository.Data) error {
		d.Books = Merge(d.Books, snap.Books)
		d.Users = Merge(d.Users, snap.Users)
		d.Rentals = Merge(d.Rentals, snap.Rentals)
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info("snapshot imported",
		"books", len(snap.Books), "users", len(snap.Users), "rentals", len(snap.Rentals))
	return nil
}

func (s *backupService) ImportCollection(ctx context.Context, c repository.Collection, payload []byte) error {
	if !isJSONArray(payload) {
		return fmt.Errorf("%w: %s is not an array", ErrMalformedBackup, c)
	}

	var apply func(d *repository.Data) error
	switch c {
	case repository.CollectionBooks:
		var books []models.Book
		if err := json.Unmarshal(payload, &books); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedBackup, err)
		}
		apply = func(d *repository.Data) error {
			d.Books = Merge(d.Books, books)
			return nil
		}
	case repository.CollectionUsers:
		var users []models.User
		if err := json.Unmarshal(payload, &users); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedBackup, err)
		}
		apply = func(d *repository.Data) error {
			d.Users = Merge(d.Users, users)
			return nil
		}
	case repository.CollectionRentals:
		var rentals []models.Rental
		if err := json.Unmarshal(payload, &rentals); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedBackup, err)
		}
		apply = func(d *repository.Data) error {
			d.Rentals = Merge(d.Rentals, rentals)
			return nil
		}
	default:
		return fmt.Errorf("%w: unknown collection %q", ErrMalformedBackup, c)
	}

	if err := s.store.Update(apply); err != nil {
		return err
	}
	s.log.Info("collection imported", "collection", c)
	return nil
}

func (s *backupService) Export(ctx context.Context) (string, []byte, error) {
	snap := s.store.Snapshot()
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	return backupFilename(time.Now()), data, nil
}

func (s *backupService) ExportCollection(ctx context.Context, c repository.Collection) (string, []byte, error) {
	var records any
	switch c {
	case repository.CollectionBooks:
		records = s.store.Books()
	case repository.CollectionUsers:
		records = s.store.Users()
	case repository.CollectionRentals:
		records = s.store.Rentals()
	default:
		return "", nil, fmt.Errorf("unknown collection %q", c)
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return "", nil, fmt.Errorf("marshal collection: %w", err)
	}
	return fmt.Sprintf("library-%s.json", c), data, nil
}

func (s *backupService) AutoBackup() {
	if !s.limiter.Allow() {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if _, err := s.Create(ctx); err != nil {
			// A failed backup never rolls back the in-memory mutation.
			s.log.Warn("automatic backup failed", "error", err)
		}
	}()
}

// parseSnapshot validates a full backup payload: a JSON object whose books,
// users and rentals keys are all present and are arrays. Anything else is
// ErrMalformedBackup, reported before any collection is touched.
func parseSnapshot(payload []byte) (*models.Snapshot, error) {
	var raw struct {
		Books   json.RawMessage `json:"books"`
		Users   json.RawMessage `json:"users"`
		Rentals json.RawMessage `json:"rentals"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBackup, err)
	}
	if !isJSONArray(raw.Books) || !isJSONArray(raw.Users) || !isJSONArray(raw.Rentals) {
		return nil, ErrMalformedBackup
	}

	snap := &models.Snapshot{
		Books:   []models.Book{},
		Users:   []models.User{},
		Rentals: []models.Rental{},
	}
	if err := json.Unmarshal(raw.Books, &snap.Books); err != nil {
		return nil, fmt.Errorf("%w: books: %v", ErrMalformedBackup, err)
	}
	if err := json.Unmarshal(raw.Users, &snap.Users); err != nil {
		return nil, fmt.Errorf("%w: users: %v", ErrMalformedBackup, err)
	}
	if err := json.Unmarshal(raw.Rentals, &snap.Rentals); err != nil {
		return nil, fmt.Errorf("%w: rentals: %v", ErrMalformedBackup, err)
	}
	return snap, nil
}

func isJSONArray(raw []byte) bool {
	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	return len(trimmed) > 0 && trimmed[0] == '['
}
