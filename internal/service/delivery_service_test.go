package service

import (
	"alcyxob/coach-bot/internal/domain"
	"alcyxob/coach-bot/internal/transport"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type deliveryFixture struct {
	sessionRepo *fakeSessionRepo
	userRepo    *fakeUserRepo
	subRepo     *fakeSubscriptionRepo
	sender      *fakeSender
	sched       *fakeSched
	svc         *deliveryService
	user        *domain.User
}

func newDeliveryFixture(t *testing.T) *deliveryFixture {
	t.Helper()
	user := &domain.User{
		ID:              primitive.NewObjectID(),
		TelegramID:      777,
		WeeklyFrequency: 3,
		FitnessLevel:    domain.LevelBeginner,
		EquipmentType:   domain.EquipmentGym,
	}
	f := &deliveryFixture{
		sessionRepo: newFakeSessionRepo(),
		userRepo:    newFakeUserRepo(user),
		subRepo: newFakeSubscriptionRepo(&domain.Subscription{
			UserID: user.ID,
			Status: domain.SubscriptionTrial,
		}),
		sender: &fakeSender{},
		sched:  newFakeSched(),
		user:   user,
	}
	subscription := NewSubscriptionService(f.subRepo, f.userRepo)
	f.svc = NewDeliveryService(f.sessionRepo, f.userRepo, subscription, f.sender, f.sched, nil).(*deliveryService)
	f.svc.now = func() time.Time { return wednesdayMorning }
	return f
}

func (f *deliveryFixture) seedSession(t *testing.T, status domain.SessionStatus, plannedAt time.Time) domain.Session {
	t.Helper()
	created, err := f.sessionRepo.CreateMany(context.Background(), []domain.Session{{
		UserID:    f.user.ID,
		PlannedAt: plannedAt,
		Status:    status,
		CycleID:   "cycle-1",
		CycleWeek: 1,
		Focus:     "Upper Body",
		WarmUp:    "5 min rowing",
		CoolDown:  "chest stretch",
		Exercises: []domain.SessionExercise{
			{Name: "Bench Press", MuscleGroup: "chest", Sets: 3, Reps: "8-10", Order: 1},
			{Name: "Barbell Row", MuscleGroup: "back", Sets: 3, Reps: "10-12", Order: 2},
		},
	}})
	require.NoError(t, err)
	return created[0]
}

func TestDeliver_SendsAndRecordsUsage(t *testing.T) {
	f := newDeliveryFixture(t)
	session := f.seedSession(t, domain.SessionPlanned, wednesdayMorning.Add(time.Hour))

	f.svc.ScheduleSession(&session)
	require.True(t, f.sched.fire(sessionJobKey(session.ID)))

	require.Len(t, f.sender.sent, 1)
	assert.Equal(t, f.user.TelegramID, f.sender.sent[0].chatID)
	assert.Contains(t, f.sender.sent[0].text, "Upper Body")
	assert.Contains(t, f.sender.sent[0].text, "Bench Press")
	assert.Contains(t, f.sender.sent[0].text, "3 sets x 8-10 reps")
	assert.Contains(t, f.sender.sent[0].text, "chest stretch")

	got, _ := f.sessionRepo.GetByID(context.Background(), session.ID)
	assert.Equal(t, domain.SessionSent, got.Status)

	sub, _ := f.subRepo.GetByUserID(context.Background(), f.user.ID)
	assert.Equal(t, 1, sub.TrialSessionsUsed)
}

func TestDeliver_SkipsWhenEntitlementLapsed(t *testing.T) {
	f := newDeliveryFixture(t)
	session := f.seedSession(t, domain.SessionPlanned, wednesdayMorning.Add(time.Hour))
	sub, _ := f.subRepo.GetByUserID(context.Background(), f.user.ID)
	require.NoError(t, f.subRepo.UpdateStatus(context.Background(), sub.ID, domain.SubscriptionTrialExpired))

	f.svc.ScheduleSession(&session)
	require.True(t, f.sched.fire(sessionJobKey(session.ID)))

	assert.Empty(t, f.sender.sent)
	got, _ := f.sessionRepo.GetByID(context.Background(), session.ID)
	assert.Equal(t, domain.SessionSkipped, got.Status)
}

func TestDeliver_BlockedUserIsMarkedUnreachable(t *testing.T) {
	f := newDeliveryFixture(t)
	session := f.seedSession(t, domain.SessionPlanned, wednesdayMorning.Add(time.Hour))
	f.sender.err = fmt.Errorf("%w: Forbidden: bot was blocked by the user", transport.ErrBlocked)

	f.svc.ScheduleSession(&session)
	require.True(t, f.sched.fire(sessionJobKey(session.ID)))

	sub, _ := f.subRepo.GetByUserID(context.Background(), f.user.ID)
	assert.Equal(t, domain.SubscriptionExpired, sub.Status)
	got, _ := f.sessionRepo.GetByID(context.Background(), session.ID)
	assert.Equal(t, domain.SessionSkipped, got.Status)
	assert.Equal(t, 0, sub.TrialSessionsUsed)
}

func TestDeliver_TransientFailureKeepsSessionPlanned(t *testing.T) {
	f := newDeliveryFixture(t)
	session := f.seedSession(t, domain.SessionPlanned, wednesdayMorning.Add(time.Hour))
	f.sender.err = errors.New("502 bad gateway")

	f.svc.ScheduleSession(&session)
	require.True(t, f.sched.fire(sessionJobKey(session.ID)))

	got, _ := f.sessionRepo.GetByID(context.Background(), session.ID)
	assert.Equal(t, domain.SessionPlanned, got.Status)
	sub, _ := f.subRepo.GetByUserID(context.Background(), f.user.ID)
	assert.Equal(t, 0, sub.TrialSessionsUsed)
}

func TestDeliver_MissingSessionIsANoop(t *testing.T) {
	f := newDeliveryFixture(t)
	ghost := domain.Session{ID: primitive.NewObjectID(), PlannedAt: wednesdayMorning.Add(time.Hour)}

	f.svc.ScheduleSession(&ghost)
	require.True(t, f.sched.fire(sessionJobKey(ghost.ID)))

	assert.Empty(t, f.sender.sent)
}

func TestDeliver_AlreadyHandledSessionIsNotResent(t *testing.T) {
	f := newDeliveryFixture(t)
	session := f.seedSession(t, domain.SessionSent, wednesdayMorning.Add(time.Hour))

	f.svc.ScheduleSession(&session)
	require.True(t, f.sched.fire(sessionJobKey(session.ID)))

	assert.Empty(t, f.sender.sent)
}

func TestCancelSession_DropsTheJob(t *testing.T) {
	f := newDeliveryFixture(t)
	session := f.seedSession(t, domain.SessionPlanned, wednesdayMorning.Add(time.Hour))

	f.svc.ScheduleSession(&session)
	f.svc.CancelSession(session.ID)

	assert.False(t, f.sched.fire(sessionJobKey(session.ID)))
}

func TestRestoreJobs_RebuildsOnlyFuturePlanned(t *testing.T) {
	f := newDeliveryFixture(t)
	future1 := f.seedSession(t, domain.SessionPlanned, wednesdayMorning.Add(time.Hour))
	future2 := f.seedSession(t, domain.SessionPlanned, wednesdayMorning.Add(48*time.Hour))
	past := f.seedSession(t, domain.SessionPlanned, wednesdayMorning.Add(-time.Hour))
	delivered := f.seedSession(t, domain.SessionSent, wednesdayMorning.Add(time.Hour))

	require.NoError(t, f.svc.RestoreJobs(context.Background()))

	assert.True(t, f.sched.has(sessionJobKey(future1.ID)))
	assert.True(t, f.sched.has(sessionJobKey(future2.ID)))
	assert.False(t, f.sched.has(sessionJobKey(past.ID)))
	assert.False(t, f.sched.has(sessionJobKey(delivered.ID)))
}

func TestExpiryNotifications(t *testing.T) {
	f := newDeliveryFixture(t)

	require.NoError(t, f.svc.NotifyTrialExpired(context.Background(), f.user))
	require.NoError(t, f.svc.NotifySubscriptionExpired(context.Background(), f.user))

	require.Len(t, f.sender.sent, 2)
	assert.Contains(t, f.sender.sent[0].text, "trial")
	assert.Contains(t, f.sender.sent[1].text, "subscription")
}

func TestExpiryNotification_BlockedUserIsMarkedUnreachable(t *testing.T) {
	f := newDeliveryFixture(t)
	f.sender.err = fmt.Errorf("%w: Forbidden", transport.ErrBlocked)

	err := f.svc.NotifyTrialExpired(context.Background(), f.user)
	assert.ErrorIs(t, err, transport.ErrBlocked)

	sub, _ := f.subRepo.GetByUserID(context.Background(), f.user.ID)
	assert.Equal(t, domain.SubscriptionExpired, sub.Status)
}
