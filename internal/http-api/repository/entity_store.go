package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"libhub/internal/http-api/models"
)

type Collection string

const (
	CollectionBooks   Collection = "books"
	CollectionUsers   Collection = "users"
	CollectionRentals Collection = "rentals"
)

// Mirror is the fast local store every mutation is copied to, one JSON blob
// per collection. Backed by Redis in production.
type Mirror interface {
	SaveCollection(ctx context.Context, c Collection, data []byte) error
	// LoadCollection returns nil data (no error) when the key is absent.
	LoadCollection(ctx context.Context, c Collection) ([]byte, error)
}

// CollectionDB is the remote mirror of the three collections.
type CollectionDB interface {
	ReplaceBooks(ctx context.Context, books []models.Book) error
	ReplaceUsers(ctx context.Context, users []models.User) error
	ReplaceRentals(ctx context.Context, rentals []models.Rental) error
	LoadBooks(ctx context.Context) ([]models.Book, error)
	LoadUsers(ctx context.Context) ([]models.User, error)
	LoadRentals(ctx context.Context) ([]models.Rental, error)
}

// Data is the in-memory dataset. Services mutate a working copy inside
// EntityStore.Update; they never hold a reference to the live one.
type Data struct {
	Books   []models.Book
	Users   []models.User
	Rentals []models.Rental
}

func (d *Data) clone() Data {
	out := Data{
		Books:   make([]models.Book, len(d.Books)),
		Users:   make([]models.User, len(d.Users)),
		Rentals: make([]models.Rental, len(d.Rentals)),
	}
	copy(out.Books, d.Books)
	copy(out.Users, d.Users)
	copy(out.Rentals, d.Rentals)
	for i, u := range d.Users {
		out.Users[i].CurrentRentals = append(models.Int64List(nil), u.CurrentRentals...)
	}
	return out
}

// EntityStore owns the three collections. It is a dumb container: no
// validation lives here, only the single-writer lock and the persistence
// triggers. In-memory state is authoritative; mirror and database writes are
// fire-and-forget and a failure never rolls back a committed mutation.
type EntityStore struct {
	mu   sync.RWMutex
	data Data

	mirror Mirror
	db     CollectionDB
	log    *slog.Logger

	// called after every committed mutation, outside the lock
	onChange func()

	persistTimeout time.Duration
	wg             sync.WaitGroup
}

func NewEntityStore(mirror Mirror, db CollectionDB, log *slog.Logger) *EntityStore {
	return &EntityStore{
		mirror:         mirror,
		db:             db,
		log:            log,
		persistTimeout: 5 * time.Second,
	}
}

// OnChange registers a hook invoked after each committed mutation. Used to
// schedule automatic backups. Must be set before the store is shared.
func (s *EntityStore) OnChange(fn func()) {
	s.onChange = fn
}

// Load restores the collections at startup: mirror first, database second.
// Missing or corrupt data yields empty collections, never an error.
func (s *EntityStore) Load(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data.Books = loadCollection[models.Book](ctx, s, CollectionBooks, s.db.LoadBooks)
	s.data.Users = loadCollection[models.User](ctx, s, CollectionUsers, s.db.LoadUsers)
	s.data.Rentals = loadCollection[models.Rental](ctx, s, CollectionRentals, s.db.LoadRentals)

	s.log.Info("entity store loaded",
		"books", len(s.data.Books),
		"users", len(s.data.Users),
		"rentals", len(s.data.Rentals))
}

func loadCollection[T any](ctx context.Context, s *EntityStore, c Collection, fromDB func(context.Context) ([]T, error)) []T {
	if s.mirror != nil {
		raw, err := s.mirror.LoadCollection(ctx, c)
		if err != nil {
			s.log.Warn("mirror read failed", "collection", c, "error", err)
		} else if raw != nil {
			var out []T
			if err := json.Unmarshal(raw, &out); err != nil {
				s.log.Warn("mirror data corrupt, falling back to database", "collection", c, "error", err)
			} else {
				return out
			}
		}
	}
	if s.db != nil {
		out, err := fromDB(ctx)
		if err != nil {
			s.log.Warn("database read failed, starting empty", "collection", c, "error", err)
			return nil
		}
		return out
	}
	return nil
}

// Update runs fn against a working copy of the dataset under the writer lock.
// If fn returns an error nothing is committed; otherwise the copy becomes the
// live dataset and persistence fires asynchronously. This is what makes every
// state-machine operation all-or-nothing.
func (s *EntityStore) Update(fn func(d *Data) error) error {
	s.mu.Lock()
	work := s.data.clone()
	if err := fn(&work); err != nil {
		s.mu.Unlock()
		return err
	}
	s.data = work
	s.mu.Unlock()

	s.persistAsync(work)
	if s.onChange != nil {
		s.onChange()
	}
	return nil
}

// ReplaceAll swaps one collection wholesale: records becomes the live
// collection and persistence fires, the other two collections untouched.
func (s *EntityStore) ReplaceAll(c Collection, records any) error {
	return s.Update(func(d *Data) error {
		switch c {
		case CollectionBooks:
			books, ok := records.([]models.Book)
			if !ok {
				return fmt.Errorf("replace %s: unexpected record type %T", c, records)
			}
			d.Books = books
		case CollectionUsers:
			users, ok := records.([]models.User)
			if !ok {
				return fmt.Errorf("replace %s: unexpected record type %T", c, records)
			}
			d.Users = users
		case CollectionRentals:
			rentals, ok := records.([]models.Rental)
			if !ok {
				return fmt.Errorf("replace %s: unexpected record type %T", c, records)
			}
			d.Rentals = rentals
		default:
			return fmt.Errorf("replace: unknown collection %q", c)
		}
		return nil
	})
}

// View runs fn against a read-only copy of the dataset.
func (s *EntityStore) View(fn func(d Data)) {
	s.mu.RLock()
	work := s.data.clone()
	s.mu.RUnlock()
	fn(work)
}

// Books returns a copy of the books collection.
func (s *EntityStore) Books() []models.Book {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Book, len(s.data.Books))
	copy(out, s.data.Books)
	return out
}

// Users returns a copy of the users collection.
func (s *EntityStore) Users() []models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.User, len(s.data.Users))
	copy(out, s.data.Users)
	for i, u := range s.data.Users {
		out[i].CurrentRentals = append(models.Int64List(nil), u.CurrentRentals...)
	}
	return out
}

// Rentals returns a copy of the rentals collection.
func (s *EntityStore) Rentals() []models.Rental {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Rental, len(s.data.Rentals))
	copy(out, s.data.Rentals)
	return out
}

// Snapshot returns the full dataset in wire form.
func (s *EntityStore) Snapshot() models.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	work := s.data.clone()
	return models.Snapshot{Books: work.Books, Users: work.Users, Rentals: work.Rentals}
}

// Wait blocks until in-flight persistence writes finish. Shutdown helper.
func (s *EntityStore) Wait() {
	s.wg.Wait()
}

func (s *EntityStore) persistAsync(d Data) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.persistTimeout)
		defer cancel()

		persistOne(ctx, s, CollectionBooks, d.Books, s.dbReplace(CollectionBooks, d))
		persistOne(ctx, s, CollectionUsers, d.Users, s.dbReplace(CollectionUsers, d))
		persistOne(ctx, s, CollectionRentals, d.Rentals, s.dbReplace(CollectionRentals, d))
	}()
}

func (s *EntityStore) dbReplace(c Collection, d Data) func(context.Context) error {
	if s.db == nil {
		return nil
	}
	switch c {
	case CollectionBooks:
		return func(ctx context.Context) error { return s.db.ReplaceBooks(ctx, d.Books) }
	case CollectionUsers:
		return func(ctx context.Context) error { return s.db.ReplaceUsers(ctx, d.Users) }
	default:
		return func(ctx context.Context) error { return s.db.ReplaceRentals(ctx, d.Rentals) }
	}
}

func persistOne[T any](ctx context.Context, s *EntityStore, c Collection, records []T, dbWrite func(context.Context) error) {
	if s.mirror != nil {
		raw, err := json.Marshal(records)
		if err == nil {
			err = s.mirror.SaveCollection(ctx, c, raw)
		}
		if err != nil {
			s.log.Warn("mirror write failed", "collection", c, "error", err)
		}
	}
	if dbWrite != nil {
		if err := dbWrite(ctx); err != nil {
			s.log.Warn("database write failed", "collection", c, "error", err)
		}
	}
}

// NextID allocates the next id for a collection: max existing id + 1, or 1
// for an empty collection. Deleted ids are never reused.
func NextID[T models.Identifiable](items []T) int64 {
	var maxID int64
	for _, item := range items {
		if id := item.Identity(); id > maxID {
			maxID = id
		}
	}
	return maxID + 1
}
