package service

import (
	"alcyxob/coach-bot/internal/domain"
	"alcyxob/coach-bot/internal/generation"
	"alcyxob/coach-bot/internal/repository"
	"alcyxob/coach-bot/internal/scheduler"
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- In-memory repository fakes ---

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]*domain.User
}

func newFakeUserRepo(users ...*domain.User) *fakeUserRepo {
	r := &fakeUserRepo{users: make(map[primitive.ObjectID]*domain.User)}
	for _, u := range users {
		if u.ID.IsZero() {
			u.ID = primitive.NewObjectID()
		}
		r.users[u.ID] = u
	}
	return r
}

func (r *fakeUserRepo) Create(ctx context.Context, user *domain.User) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user.ID = primitive.NewObjectID()
	user.CreatedAt = time.Now()
	r.users[user.ID] = user
	return user.ID, nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (r *fakeUserRepo) GetByTelegramID(ctx context.Context, telegramID int64) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.TelegramID == telegramID {
			copied := *u
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) SetTrainingWeek(ctx context.Context, id primitive.ObjectID, week int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	w := week
	u.CurrentTrainingWeek = &w
	return nil
}

func (r *fakeUserRepo) List(ctx context.Context) ([]domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, *u)
	}
	return out, nil
}

type fakeExerciseRepo struct {
	exercises []domain.Exercise
}

func newFakeExerciseRepo(exercises ...domain.Exercise) *fakeExerciseRepo {
	for i := range exercises {
		if exercises[i].ID.IsZero() {
			exercises[i].ID = primitive.NewObjectID()
		}
	}
	return &fakeExerciseRepo{exercises: exercises}
}

func (r *fakeExerciseRepo) CreateMany(ctx context.Context, exercises []domain.Exercise) error {
	r.exercises = append(r.exercises, exercises...)
	return nil
}

func (r *fakeExerciseRepo) GetByEquipment(ctx context.Context, equipment domain.EquipmentType) ([]domain.Exercise, error) {
	var out []domain.Exercise
	for _, ex := range r.exercises {
		if ex.EquipmentType == equipment {
			out = append(out, ex)
		}
	}
	return out, nil
}

func (r *fakeExerciseRepo) GetByNames(ctx context.Context, names []string) ([]domain.Exercise, error) {
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	var out []domain.Exercise
	for _, ex := range r.exercises {
		if want[ex.Name] {
			out = append(out, ex)
		}
	}
	return out, nil
}

func (r *fakeExerciseRepo) DeleteAll(ctx context.Context) error {
	r.exercises = nil
	return nil
}

type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions map[primitive.ObjectID]*domain.Session
	seq      int
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[primitive.ObjectID]*domain.Session)}
}

func (r *fakeSessionRepo) CreateMany(ctx context.Context, sessions []domain.Session) ([]domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Session, 0, len(sessions))
	for _, s := range sessions {
		s.ID = primitive.NewObjectID()
		r.seq++
		// Monotonic creation order stands in for wall-clock insertion time.
		s.CreatedAt = time.Unix(int64(r.seq), 0)
		copied := s
		r.sessions[s.ID] = &copied
		out = append(out, s)
	}
	return out, nil
}

func (r *fakeSessionRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *s
	return &copied, nil
}

func (r *fakeSessionRepo) GetNextPlanned(ctx context.Context, userID primitive.ObjectID, after time.Time) (*domain.Session, error) {
	all, _ := r.GetFuturePlanned(ctx, userID, after)
	if len(all) == 0 {
		return nil, repository.ErrNotFound
	}
	return &all[0], nil
}

func (r *fakeSessionRepo) GetFuturePlanned(ctx context.Context, userID primitive.ObjectID, after time.Time) ([]domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Session
	for _, s := range r.sessions {
		if s.UserID == userID && s.Status == domain.SessionPlanned && s.PlannedAt.After(after) {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlannedAt.Before(out[j].PlannedAt) })
	return out, nil
}

func (r *fakeSessionRepo) GetAllFuturePlanned(ctx context.Context, after time.Time) ([]domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Session
	for _, s := range r.sessions {
		if s.Status == domain.SessionPlanned && s.PlannedAt.After(after) {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlannedAt.Before(out[j].PlannedAt) })
	return out, nil
}

func (r *fakeSessionRepo) GetLatestCycle(ctx context.Context, userID primitive.ObjectID) (*repository.CycleInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var newest *domain.Session
	for _, s := range r.sessions {
		if s.UserID != userID {
			continue
		}
		if newest == nil || s.CreatedAt.After(newest.CreatedAt) {
			newest = s
		}
	}
	if newest == nil {
		return nil, repository.ErrNotFound
	}

	var cycle []*domain.Session
	for _, s := range r.sessions {
		if s.UserID == userID && s.CycleID == newest.CycleID {
			cycle = append(cycle, s)
		}
	}
	sort.Slice(cycle, func(i, j int) bool { return cycle[i].CreatedAt.Before(cycle[j].CreatedAt) })

	info := &repository.CycleInfo{
		CycleID:       newest.CycleID,
		CycleWeek:     newest.CycleWeek,
		EquipmentType: newest.EquipmentType,
		CreatedAt:     newest.CreatedAt,
	}
	seen := make(map[string]bool)
	for _, s := range cycle {
		for _, ex := range s.Exercises {
			if !seen[ex.Name] {
				seen[ex.Name] = true
				info.ExerciseNames = append(info.ExerciseNames, ex.Name)
			}
		}
	}
	return info, nil
}

func (r *fakeSessionRepo) UpdateStatus(ctx context.Context, id primitive.ObjectID, status domain.SessionStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return repository.ErrNotFound
	}
	s.Status = status
	return nil
}

type fakeSubscriptionRepo struct {
	mu   sync.Mutex
	subs map[primitive.ObjectID]*domain.Subscription // keyed by user ID
}

func newFakeSubscriptionRepo(subs ...*domain.Subscription) *fakeSubscriptionRepo {
	r := &fakeSubscriptionRepo{subs: make(map[primitive.ObjectID]*domain.Subscription)}
	for _, s := range subs {
		if s.ID.IsZero() {
			s.ID = primitive.NewObjectID()
		}
		r.subs[s.UserID] = s
	}
	return r
}

func (r *fakeSubscriptionRepo) Create(ctx context.Context, sub *domain.Subscription) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub.ID = primitive.NewObjectID()
	r.subs[sub.UserID] = sub
	return sub.ID, nil
}

func (r *fakeSubscriptionRepo) GetByUserID(ctx context.Context, userID primitive.ObjectID) (*domain.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.subs[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *s
	return &copied, nil
}

func (r *fakeSubscriptionRepo) UpdateStatus(ctx context.Context, id primitive.ObjectID, status domain.SubscriptionStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.subs {
		if s.ID == id {
			s.Status = status
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r *fakeSubscriptionRepo) IncrementTrialUsed(ctx context.Context, userID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.subs[userID]
	if ok && s.Status == domain.SubscriptionTrial {
		s.TrialSessionsUsed++
	}
	return nil
}

func (r *fakeSubscriptionRepo) Activate(ctx context.Context, userID primitive.ObjectID, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.subs[userID]
	if !ok {
		return repository.ErrNotFound
	}
	s.Status = domain.SubscriptionActive
	s.ExpiresAt = &expiresAt
	s.TrialSessionsUsed = 0
	return nil
}

func (r *fakeSubscriptionRepo) ListByStatus(ctx context.Context, status domain.SubscriptionStatus) ([]domain.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Subscription
	for _, s := range r.subs {
		if s.Status == status {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (r *fakeSubscriptionRepo) ListExpiredActive(ctx context.Context, now time.Time) ([]domain.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Subscription
	for _, s := range r.subs {
		if s.Status == domain.SubscriptionActive && s.ExpiresAt != nil && s.ExpiresAt.Before(now) {
			out = append(out, *s)
		}
	}
	return out, nil
}

// --- Collaborator fakes ---

type fakeGenerator struct {
	mu       sync.Mutex
	requests []generation.PlanRequest
	// responses are consumed in order; the last one repeats.
	plans []*domain.GeneratedPlan
	errs  []error
}

func (g *fakeGenerator) GeneratePlan(ctx context.Context, req generation.PlanRequest) (*domain.GeneratedPlan, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, req)
	i := len(g.requests) - 1
	if i >= len(g.plans) {
		i = len(g.plans) - 1
	}
	if i < 0 {
		return nil, errors.New("no stubbed response")
	}
	if g.errs[i] != nil {
		return nil, g.errs[i]
	}
	return g.plans[i], nil
}

func (g *fakeGenerator) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.requests)
}

func (g *fakeGenerator) lastRequest() generation.PlanRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.requests[len(g.requests)-1]
}

type fakeDelivery struct {
	mu        sync.Mutex
	scheduled []primitive.ObjectID
	canceled  []primitive.ObjectID
}

func (d *fakeDelivery) ScheduleSession(session *domain.Session) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.scheduled = append(d.scheduled, session.ID)
}

func (d *fakeDelivery) CancelSession(sessionID primitive.ObjectID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.canceled = append(d.canceled, sessionID)
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

type sentMessage struct {
	chatID int64
	text   string
}

func (s *fakeSender) SendMessage(ctx context.Context, chatID int64, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, sentMessage{chatID: chatID, text: text})
	return nil
}

type fakeNotifier struct {
	mu           sync.Mutex
	subExpired   []primitive.ObjectID
	trialExpired []primitive.ObjectID
	err          error
}

func (n *fakeNotifier) NotifySubscriptionExpired(ctx context.Context, user *domain.User) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.subExpired = append(n.subExpired, user.ID)
	return n.err
}

func (n *fakeNotifier) NotifyTrialExpired(ctx context.Context, user *domain.User) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.trialExpired = append(n.trialExpired, user.ID)
	return n.err
}

// fakeSched implements scheduler.Scheduler with manual firing.
type fakeSched struct {
	mu   sync.Mutex
	jobs map[string]scheduler.Job
}

func newFakeSched() *fakeSched {
	return &fakeSched{jobs: make(map[string]scheduler.Job)}
}

func (s *fakeSched) ScheduleOnce(key string, at time.Time, fn scheduler.Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[key] = fn
}

func (s *fakeSched) ScheduleEvery(key string, interval time.Duration, fn scheduler.Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[key] = fn
}

func (s *fakeSched) ScheduleWeekly(key string, day time.Weekday, hour, minute int, fn scheduler.Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[key] = fn
}

func (s *fakeSched) Cancel(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, key)
}

func (s *fakeSched) Stop() {}

func (s *fakeSched) fire(key string) bool {
	s.mu.Lock()
	fn, ok := s.jobs[key]
	s.mu.Unlock()
	if !ok {
		return false
	}
	fn(context.Background())
	return true
}

func (s *fakeSched) has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.jobs[key]
	return ok
}
