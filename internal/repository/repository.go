package repository

import (
	"alcyxob/coach-bot/internal/domain"
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Error constants for the repository layer.
var (
	ErrNotFound     = RepositoryError("not found")
	ErrUpdateFailed = RepositoryError("update failed")
)

// RepositoryError helps distinguish repository errors.
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// UserRepository defines the interface for interacting with user data.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
	GetByTelegramID(ctx context.Context, telegramID int64) (*domain.User, error)
	// SetTrainingWeek writes the absolute training-week counter. The workout
	// service is the only caller.
	SetTrainingWeek(ctx context.Context, id primitive.ObjectID, week int) error
	// List returns every user; the weekly sweep filters it down.
	List(ctx context.Context) ([]domain.User, error)
}

// ExerciseRepository defines the interface for interacting with the
// exercise library.
type ExerciseRepository interface {
	CreateMany(ctx context.Context, exercises []domain.Exercise) error
	GetByEquipment(ctx context.Context, equipment domain.EquipmentType) ([]domain.Exercise, error)
	GetByNames(ctx context.Context, names []string) ([]domain.Exercise, error)
	DeleteAll(ctx context.Context) error
}

// CycleInfo summarizes the most recently generated cycle of a user: the
// exercise selection it locked in and the context it was generated against.
type CycleInfo struct {
	CycleID       string
	CycleWeek     int
	EquipmentType domain.EquipmentType
	ExerciseNames []string // distinct, in first-use order
	CreatedAt     time.Time
}

// SessionRepository defines the interface for interacting with scheduled
// training sessions.
type SessionRepository interface {
	CreateMany(ctx context.Context, sessions []domain.Session) ([]domain.Session, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Session, error)
	// GetNextPlanned returns the earliest future session with status=planned,
	// or ErrNotFound.
	GetNextPlanned(ctx context.Context, userID primitive.ObjectID, after time.Time) (*domain.Session, error)
	// GetFuturePlanned returns all of a user's future planned sessions,
	// ascending by planned time.
	GetFuturePlanned(ctx context.Context, userID primitive.ObjectID, after time.Time) ([]domain.Session, error)
	// GetAllFuturePlanned is the restart-recovery query: every planned
	// session of every user with a future planned time.
	GetAllFuturePlanned(ctx context.Context, after time.Time) ([]domain.Session, error)
	// GetLatestCycle returns the most recent cycle of the user, or
	// ErrNotFound if the user has never had a plan.
	GetLatestCycle(ctx context.Context, userID primitive.ObjectID) (*CycleInfo, error)
	UpdateStatus(ctx context.Context, id primitive.ObjectID, status domain.SessionStatus) error
}

// SubscriptionRepository defines the interface for interacting with
// entitlement records.
type SubscriptionRepository interface {
	Create(ctx context.Context, sub *domain.Subscription) (primitive.ObjectID, error)
	GetByUserID(ctx context.Context, userID primitive.ObjectID) (*domain.Subscription, error)
	UpdateStatus(ctx context.Context, id primitive.ObjectID, status domain.SubscriptionStatus) error
	// IncrementTrialUsed adds one to the trial counter iff the record is
	// still in trial status (single atomic update).
	IncrementTrialUsed(ctx context.Context, userID primitive.ObjectID) error
	// Activate sets status=active, the expiry, and resets the trial counter.
	Activate(ctx context.Context, userID primitive.ObjectID, expiresAt time.Time) error
	ListByStatus(ctx context.Context, status domain.SubscriptionStatus) ([]domain.Subscription, error)
	// ListExpiredActive returns active records whose expiry has passed.
	ListExpiredActive(ctx context.Context, now time.Time) ([]domain.Subscription, error)
}
