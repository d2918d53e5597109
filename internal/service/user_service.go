package service

import (
	"alcyxob/coach-bot/internal/domain"
	"alcyxob/coach-bot/internal/repository"
	"context"
	"errors"
	"log"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrUserAlreadyExists = errors.New("user with this telegram id already exists")
)

// UserService handles onboarding and profile lookups.
type UserService interface {
	// Register creates the user and their trial entitlement in one step.
	Register(ctx context.Context, user *domain.User) (*domain.User, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
	GetByTelegramID(ctx context.Context, telegramID int64) (*domain.User, error)
}

// userService implements the UserService interface.
type userService struct {
	userRepo     repository.UserRepository
	subscription SubscriptionService
}

// NewUserService creates a new instance of userService.
func NewUserService(userRepo repository.UserRepository, subscription SubscriptionService) UserService {
	return &userService{userRepo: userRepo, subscription: subscription}
}

func (s *userService) Register(ctx context.Context, user *domain.User) (*domain.User, error) {
	existing, err := s.userRepo.GetByTelegramID(ctx, user.TelegramID)
	if err == nil && existing != nil {
		return nil, ErrUserAlreadyExists
	}
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	id, err := s.userRepo.Create(ctx, user)
	if err != nil {
		return nil, err
	}
	user.ID = id

	if _, err := s.subscription.EnsureTrial(ctx, id); err != nil {
		// The user exists either way; a later entitlement check fails closed.
		log.Printf("ERROR: failed to create trial for user %s: %v", id.Hex(), err)
		return nil, err
	}

	log.Printf("INFO: registered user %s (telegram %d)", id.Hex(), user.TelegramID)
	return user, nil
}

func (s *userService) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *userService) GetByTelegramID(ctx context.Context, telegramID int64) (*domain.User, error) {
	user, err := s.userRepo.GetByTelegramID(ctx, telegramID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}
