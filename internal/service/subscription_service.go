package service

import (
	"alcyxob/coach-bot/internal/domain"
	"alcyxob/coach-bot/internal/repository"
	"context"
	"errors"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrSubscriptionNotFound = errors.New("subscription not found")
)

// ExpiryNotifier delivers the one-time "your access ended" messages emitted
// by the expiry sweep. Implemented by the delivery layer.
type ExpiryNotifier interface {
	NotifySubscriptionExpired(ctx context.Context, user *domain.User) error
	NotifyTrialExpired(ctx context.Context, user *domain.User) error
}

// SubscriptionService governs whether a user may receive another session and
// mutates entitlement state in response to usage and payment events.
type SubscriptionService interface {
	// EnsureTrial creates the trial record at onboarding; returns the
	// existing record if one is already present.
	EnsureTrial(ctx context.Context, userID primitive.ObjectID) (*domain.Subscription, error)

	// CanReceiveSession reports whether the user is entitled to one more
	// delivered session. Missing records mean "no" (fail closed).
	CanReceiveSession(ctx context.Context, user *domain.User) (bool, error)

	// RecordSessionSent fixes one delivered session against the entitlement.
	// A no-op unless the record is in trial status.
	RecordSessionSent(ctx context.Context, userID primitive.ObjectID) error

	// ActivateOrExtend handles a successful payment: status=active, expiry =
	// now + duration (a payment always extends from the payment moment, not
	// stacked onto the old expiry), trial counter reset.
	ActivateOrExtend(ctx context.Context, userID primitive.ObjectID, duration time.Duration) (*domain.Subscription, error)

	// ExpireSweep transitions overdue active records to expired and
	// exhausted trials to trial_expired, notifying each user once. Status is
	// written before the notification so a failed send never repeats the
	// transition.
	ExpireSweep(ctx context.Context) error

	// MarkUnreachable forces the record into the expired terminal state when
	// the transport reports the user permanently blocked the bot, so sweeps
	// stop targeting them.
	MarkUnreachable(ctx context.Context, userID primitive.ObjectID) error

	// SetNotifier installs the expiry notifier. The delivery layer both
	// implements the notifier and depends on this service, so it is wired in
	// after construction. Sweeps run without notifications until then.
	SetNotifier(notifier ExpiryNotifier)
}

// subscriptionService implements the SubscriptionService interface.
type subscriptionService struct {
	subscriptionRepo repository.SubscriptionRepository
	userRepo         repository.UserRepository
	notifier         ExpiryNotifier
	now              func() time.Time
}

// NewSubscriptionService creates a new instance of subscriptionService.
func NewSubscriptionService(
	subscriptionRepo repository.SubscriptionRepository,
	userRepo repository.UserRepository,
) SubscriptionService {
	return &subscriptionService{
		subscriptionRepo: subscriptionRepo,
		userRepo:         userRepo,
		now:              time.Now,
	}
}

func (s *subscriptionService) SetNotifier(notifier ExpiryNotifier) {
	s.notifier = notifier
}

func (s *subscriptionService) EnsureTrial(ctx context.Context, userID primitive.ObjectID) (*domain.Subscription, error) {
	existing, err := s.subscriptionRepo.GetByUserID(ctx, userID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	sub := &domain.Subscription{
		UserID: userID,
		Status: domain.SubscriptionTrial,
	}
	if _, err := s.subscriptionRepo.Create(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

func (s *subscriptionService) CanReceiveSession(ctx context.Context, user *domain.User) (bool, error) {
	if user == nil {
		return false, nil
	}

	sub, err := s.subscriptionRepo.GetByUserID(ctx, user.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	if sub.Status == domain.SubscriptionActive &&
		(sub.ExpiresAt == nil || sub.ExpiresAt.After(s.now())) {
		return true, nil
	}

	if sub.Status == domain.SubscriptionTrial {
		if user.WeeklyFrequency <= 0 {
			return false, nil
		}
		if sub.TrialSessionsUsed < user.WeeklyFrequency {
			return true, nil
		}
	}

	return false, nil
}

func (s *subscriptionService) RecordSessionSent(ctx context.Context, userID primitive.ObjectID) error {
	// The repository increments only while status=trial, in one atomic update.
	return s.subscriptionRepo.IncrementTrialUsed(ctx, userID)
}

func (s *subscriptionService) ActivateOrExtend(ctx context.Context, userID primitive.ObjectID, duration time.Duration) (*domain.Subscription, error) {
	expiresAt := s.now().Add(duration)
	err := s.subscriptionRepo.Activate(ctx, userID, expiresAt)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}
	return s.subscriptionRepo.GetByUserID(ctx, userID)
}

func (s *subscriptionService) ExpireSweep(ctx context.Context) error {
	// 1. Paid subscriptions past their expiry.
	expired, err := s.subscriptionRepo.ListExpiredActive(ctx, s.now())
	if err != nil {
		return err
	}
	for _, sub := range expired {
		log.Printf("INFO: subscription for user %s expired, updating status", sub.UserID.Hex())
		if err := s.subscriptionRepo.UpdateStatus(ctx, sub.ID, domain.SubscriptionExpired); err != nil {
			log.Printf("ERROR: failed to expire subscription %s: %v", sub.ID.Hex(), err)
			continue
		}
		s.notifyExpired(ctx, sub.UserID, false)
	}

	// 2. Trials that burned through their weekly allowance.
	trials, err := s.subscriptionRepo.ListByStatus(ctx, domain.SubscriptionTrial)
	if err != nil {
		return err
	}
	for _, sub := range trials {
		user, err := s.userRepo.GetByID(ctx, sub.UserID)
		if err != nil {
			log.Printf("ERROR: trial sweep: failed to load user %s: %v", sub.UserID.Hex(), err)
			continue
		}
		if user.WeeklyFrequency <= 0 || sub.TrialSessionsUsed < user.WeeklyFrequency {
			continue
		}
		log.Printf("INFO: trial for user %s exhausted, updating status", sub.UserID.Hex())
		// Status changes first so the notification is sent at most once.
		if err := s.subscriptionRepo.UpdateStatus(ctx, sub.ID, domain.SubscriptionTrialExpired); err != nil {
			log.Printf("ERROR: failed to expire trial %s: %v", sub.ID.Hex(), err)
			continue
		}
		s.notifyExpired(ctx, sub.UserID, true)
	}

	return nil
}

func (s *subscriptionService) notifyExpired(ctx context.Context, userID primitive.ObjectID, trial bool) {
	if s.notifier == nil {
		return
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		log.Printf("ERROR: expiry notification: failed to load user %s: %v", userID.Hex(), err)
		return
	}
	if trial {
		err = s.notifier.NotifyTrialExpired(ctx, user)
	} else {
		err = s.notifier.NotifySubscriptionExpired(ctx, user)
	}
	if err != nil {
		// The transition is already persisted; the notification is lost, not retried.
		log.Printf("ERROR: failed to send expiry notification to user %s: %v", userID.Hex(), err)
	}
}

func (s *subscriptionService) MarkUnreachable(ctx context.Context, userID primitive.ObjectID) error {
	sub, err := s.subscriptionRepo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrSubscriptionNotFound
		}
		return err
	}
	if sub.Status == domain.SubscriptionExpired {
		return nil
	}
	log.Printf("WARN: user %s is unreachable, forcing subscription to expired", userID.Hex())
	return s.subscriptionRepo.UpdateStatus(ctx, sub.ID, domain.SubscriptionExpired)
}
