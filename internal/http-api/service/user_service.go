package service

import (
	"context"
	"log/slog"
	"time"

	"libhub/internal/http-api/models"
	"libhub/internal/http-api/repository"
)

type UserService interface {
	Add(ctx context.Context, user models.User) (*models.User, error)
	Update(ctx context.Context, user models.User) (*models.User, error)
	// Delete removes a member after the typed confirmation id matches.
	// Rentals referencing the member are left in place.
	Delete(ctx context.Context, userID int64, verifyID string) error
	Get(ctx context.Context, userID int64) (*models.User, error)
	List(ctx context.Context) []models.User
}

type userService struct {
	store *repository.EntityStore
	log   *slog.Logger
}

func NewUserService(store *repository.EntityStore, log *slog.Logger) UserService {
	return &userService{store: store, log: log}
}

func (s *userService) Add(ctx context.Context, user models.User) (*models.User, error) {
	var created models.User
	err := s.store.Update(func(d *repository.Data) error {
		user.ID = repository.NextID(d.Users)
		user.MembershipDate = time.Now()
		user.CurrentRentals = nil
		d.Users = append(d.Users, user)
		created = user
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("member added", "user_id", created.ID, "name", created.Name)
	return &created, nil
}

func (s *userService) Update(ctx context.Context, user models.User) (*models.User, error) {
	var updated models.User
	err := s.store.Update(func(d *repository.Data) error {
		ui := userIndex(d.Users, user.ID)
		if ui < 0 {
			return ErrUserNotFound
		}
		// MembershipDate is immutable and CurrentRentals belongs to the
		// rental state machine; both carry over from the stored record.
		user.MembershipDate = d.Users[ui].MembershipDate
		user.CurrentRentals = d.Users[ui].CurrentRentals
		d.Users[ui] = user
		updated = user
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("member updated", "user_id", updated.ID)
	return &updated, nil
}

func (s *userService) Delete(ctx context.Context, userID int64, verifyID string) error {
	err := s.store.Update(func(d *repository.Data) error {
		ui := userIndex(d.Users, userID)
		if ui < 0 {
			return ErrUserNotFound
		}
		if err := verifyTypedID(userID, verifyID); err != nil {
			return err
		}
		// No cascade: rentals pointing at this member keep their reference.
		d.Users = append(d.Users[:ui], d.Users[ui+1:]...)
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info("member deleted", "user_id", userID)
	return nil
}

func (s *userService) Get(ctx context.Context, userID int64) (*models.User, error) {
	users := s.store.Users()
	ui := userIndex(users, userID)
	if ui < 0 {
		return nil, ErrUserNotFound
	}
	return &users[ui], nil
}

func (s *userService) List(ctx context.Context) []models.User {
	return s.store.Users()
}
