package service

import (
	"alcyxob/coach-bot/internal/domain"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func trialUser(frequency int) *domain.User {
	return &domain.User{
		ID:              primitive.NewObjectID(),
		TelegramID:      100,
		WeeklyFrequency: frequency,
		FitnessLevel:    domain.LevelBeginner,
		EquipmentType:   domain.EquipmentGym,
	}
}

func TestEnsureTrial_CreatesOnce(t *testing.T) {
	user := trialUser(3)
	subRepo := newFakeSubscriptionRepo()
	svc := NewSubscriptionService(subRepo, newFakeUserRepo(user))

	first, err := svc.EnsureTrial(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionTrial, first.Status)

	second, err := svc.EnsureTrial(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestCanReceiveSession(t *testing.T) {
	now := time.Now()
	future := now.Add(24 * time.Hour)
	past := now.Add(-24 * time.Hour)

	cases := []struct {
		name string
		sub  *domain.Subscription
		want bool
	}{
		{"trial with sessions left", &domain.Subscription{Status: domain.SubscriptionTrial, TrialSessionsUsed: 2}, true},
		{"trial exhausted", &domain.Subscription{Status: domain.SubscriptionTrial, TrialSessionsUsed: 3}, false},
		{"trial expired status", &domain.Subscription{Status: domain.SubscriptionTrialExpired}, false},
		{"active", &domain.Subscription{Status: domain.SubscriptionActive, ExpiresAt: &future}, true},
		{"active past expiry", &domain.Subscription{Status: domain.SubscriptionActive, ExpiresAt: &past}, false},
		{"expired", &domain.Subscription{Status: domain.SubscriptionExpired}, false},
		{"no record", nil, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			user := trialUser(3)
			var subRepo *fakeSubscriptionRepo
			if tc.sub != nil {
				tc.sub.UserID = user.ID
				subRepo = newFakeSubscriptionRepo(tc.sub)
			} else {
				subRepo = newFakeSubscriptionRepo()
			}
			svc := NewSubscriptionService(subRepo, newFakeUserRepo(user))

			got, err := svc.CanReceiveSession(context.Background(), user)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestCanReceiveSession_NilUserFailsClosed(t *testing.T) {
	svc := NewSubscriptionService(newFakeSubscriptionRepo(), newFakeUserRepo())
	got, err := svc.CanReceiveSession(context.Background(), nil)
	require.NoError(t, err)
	assert.False(t, got)
}

func TestRecordSessionSent_OnlyCountsDuringTrial(t *testing.T) {
	user := trialUser(3)
	sub := &domain.Subscription{UserID: user.ID, Status: domain.SubscriptionActive}
	subRepo := newFakeSubscriptionRepo(sub)
	svc := NewSubscriptionService(subRepo, newFakeUserRepo(user))

	require.NoError(t, svc.RecordSessionSent(context.Background(), user.ID))
	got, _ := subRepo.GetByUserID(context.Background(), user.ID)
	assert.Equal(t, 0, got.TrialSessionsUsed)

	sub.Status = domain.SubscriptionTrial
	require.NoError(t, svc.RecordSessionSent(context.Background(), user.ID))
	got, _ = subRepo.GetByUserID(context.Background(), user.ID)
	assert.Equal(t, 1, got.TrialSessionsUsed)
}

func TestActivateOrExtend_ExtendsFromPaymentMoment(t *testing.T) {
	user := trialUser(3)
	sub := &domain.Subscription{UserID: user.ID, Status: domain.SubscriptionTrialExpired, TrialSessionsUsed: 3}
	subRepo := newFakeSubscriptionRepo(sub)

	svc := NewSubscriptionService(subRepo, newFakeUserRepo(user)).(*subscriptionService)
	paidAt := time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return paidAt }

	got, err := svc.ActivateOrExtend(context.Background(), user.ID, 30*24*time.Hour)
	require.NoError(t, err)

	assert.Equal(t, domain.SubscriptionActive, got.Status)
	require.NotNil(t, got.ExpiresAt)
	assert.Equal(t, paidAt.Add(30*24*time.Hour), *got.ExpiresAt)
	// A fresh payment wipes the trial counter so a later downgrade path
	// cannot inherit stale usage.
	assert.Equal(t, 0, got.TrialSessionsUsed)
}

func TestActivateOrExtend_UnknownUser(t *testing.T) {
	svc := NewSubscriptionService(newFakeSubscriptionRepo(), newFakeUserRepo())
	_, err := svc.ActivateOrExtend(context.Background(), primitive.NewObjectID(), time.Hour)
	assert.ErrorIs(t, err, ErrSubscriptionNotFound)
}

func TestExpireSweep_TransitionsAndNotifiesOnce(t *testing.T) {
	past := time.Now().Add(-time.Hour)
	paidUser := trialUser(3)
	exhaustedUser := trialUser(3)
	freshUser := trialUser(3)

	paid := &domain.Subscription{UserID: paidUser.ID, Status: domain.SubscriptionActive, ExpiresAt: &past}
	exhausted := &domain.Subscription{UserID: exhaustedUser.ID, Status: domain.SubscriptionTrial, TrialSessionsUsed: 3}
	fresh := &domain.Subscription{UserID: freshUser.ID, Status: domain.SubscriptionTrial, TrialSessionsUsed: 1}

	subRepo := newFakeSubscriptionRepo(paid, exhausted, fresh)
	notifier := &fakeNotifier{}
	svc := NewSubscriptionService(subRepo, newFakeUserRepo(paidUser, exhaustedUser, freshUser))
	svc.SetNotifier(notifier)

	require.NoError(t, svc.ExpireSweep(context.Background()))

	gotPaid, _ := subRepo.GetByUserID(context.Background(), paidUser.ID)
	assert.Equal(t, domain.SubscriptionExpired, gotPaid.Status)
	gotExhausted, _ := subRepo.GetByUserID(context.Background(), exhaustedUser.ID)
	assert.Equal(t, domain.SubscriptionTrialExpired, gotExhausted.Status)
	gotFresh, _ := subRepo.GetByUserID(context.Background(), freshUser.ID)
	assert.Equal(t, domain.SubscriptionTrial, gotFresh.Status)

	assert.Equal(t, []primitive.ObjectID{paidUser.ID}, notifier.subExpired)
	assert.Equal(t, []primitive.ObjectID{exhaustedUser.ID}, notifier.trialExpired)

	// A second sweep finds no candidates and stays silent.
	require.NoError(t, svc.ExpireSweep(context.Background()))
	assert.Len(t, notifier.subExpired, 1)
	assert.Len(t, notifier.trialExpired, 1)
}

func TestExpireSweep_FailedNotificationDoesNotRevertTransition(t *testing.T) {
	past := time.Now().Add(-time.Hour)
	user := trialUser(3)
	sub := &domain.Subscription{UserID: user.ID, Status: domain.SubscriptionActive, ExpiresAt: &past}
	subRepo := newFakeSubscriptionRepo(sub)
	notifier := &fakeNotifier{err: errors.New("telegram down")}

	svc := NewSubscriptionService(subRepo, newFakeUserRepo(user))
	svc.SetNotifier(notifier)

	require.NoError(t, svc.ExpireSweep(context.Background()))

	got, _ := subRepo.GetByUserID(context.Background(), user.ID)
	assert.Equal(t, domain.SubscriptionExpired, got.Status)
}

func TestMarkUnreachable(t *testing.T) {
	user := trialUser(3)
	sub := &domain.Subscription{UserID: user.ID, Status: domain.SubscriptionTrial}
	subRepo := newFakeSubscriptionRepo(sub)
	svc := NewSubscriptionService(subRepo, newFakeUserRepo(user))

	require.NoError(t, svc.MarkUnreachable(context.Background(), user.ID))
	got, _ := subRepo.GetByUserID(context.Background(), user.ID)
	assert.Equal(t, domain.SubscriptionExpired, got.Status)

	// Terminal state is idempotent.
	require.NoError(t, svc.MarkUnreachable(context.Background(), user.ID))
}
