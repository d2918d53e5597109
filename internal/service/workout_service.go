package service

import (
	"alcyxob/coach-bot/internal/domain"
	"alcyxob/coach-bot/internal/generation"
	"alcyxob/coach-bot/internal/repository"
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrUserNotFound        = errors.New("user not found")
	ErrProfileIncomplete   = errors.New("training profile is incomplete")
	ErrEntitlementRequired = errors.New("subscription or trial required")
	ErrCooldownActive      = errors.New("a new plan cannot be requested yet")
	ErrNoExercises         = errors.New("no exercises available for this equipment type")
	ErrNoPlanProduced      = errors.New("no plan produced")
	ErrSessionNotFound     = errors.New("session not found")
	ErrInvalidTransition   = errors.New("invalid session status transition")
)

// SessionScheduler registers and cancels timed delivery for persisted
// sessions. Implemented by the delivery service.
type SessionScheduler interface {
	ScheduleSession(session *domain.Session)
	CancelSession(sessionID primitive.ObjectID)
}

// cycleDecision is how the next generation relates to the previous cycle.
type cycleDecision int

const (
	// cycleFresh starts a new cycle from the full exercise pool.
	cycleFresh cycleDecision = iota
	// cycleReuse continues the current cycle with its locked-in selection.
	cycleReuse
	// cycleForcedRestart resets the absolute week to 1 because the user's
	// equipment no longer matches the locked-in selection.
	cycleForcedRestart
)

// GenerationResult is what a successful orchestration returns to the caller.
type GenerationResult struct {
	Summary     domain.PlanSummary
	NextSession time.Time
	Sessions    []domain.Session
}

// WorkoutService orchestrates plan generation: entitlement gating, cycle
// decision, generation with retry, slot computation, persistence and
// delivery-job registration.
type WorkoutService interface {
	// GenerateAndSchedule runs the full pipeline for one user. Safe to call
	// from any trigger; runs for the same user are serialized.
	GenerateAndSchedule(ctx context.Context, userID primitive.ObjectID) (*GenerationResult, error)

	// RequestPlan is the manual trigger: same pipeline behind a cooldown.
	RequestPlan(ctx context.Context, userID primitive.ObjectID) (*GenerationResult, error)

	// WeeklySweep generates the next week for every user with a complete
	// profile. Per-user failures are logged and do not stop the sweep.
	WeeklySweep(ctx context.Context)

	// HasUpcomingSessions reports whether the user still has a future planned
	// session.
	HasUpcomingSessions(ctx context.Context, userID primitive.ObjectID) (bool, error)

	// CompleteSession marks a delivered session as finished by the user.
	CompleteSession(ctx context.Context, sessionID primitive.ObjectID) error

	// SkipSession marks a session as skipped. Skipping a not-yet-delivered
	// session also drops its delivery job.
	SkipSession(ctx context.Context, sessionID primitive.ObjectID) error
}

// workoutService implements the WorkoutService interface.
type workoutService struct {
	userRepo     repository.UserRepository
	sessionRepo  repository.SessionRepository
	exerciseRepo repository.ExerciseRepository
	subscription SubscriptionService
	generator    generation.PlanGenerator
	delivery     SessionScheduler

	cooldown   time.Duration
	retryDelay time.Duration
	now        func() time.Time

	// Per-user serialization: concurrent runs would double-advance the
	// training-week counter and overlap slot sets.
	locksMu sync.Mutex
	locks   map[primitive.ObjectID]*sync.Mutex
}

// NewWorkoutService creates a new instance of workoutService.
func NewWorkoutService(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	exerciseRepo repository.ExerciseRepository,
	subscription SubscriptionService,
	generator generation.PlanGenerator,
	delivery SessionScheduler,
	cooldown time.Duration,
	retryDelay time.Duration,
) WorkoutService {
	return &workoutService{
		userRepo:     userRepo,
		sessionRepo:  sessionRepo,
		exerciseRepo: exerciseRepo,
		subscription: subscription,
		generator:    generator,
		delivery:     delivery,
		cooldown:     cooldown,
		retryDelay:   retryDelay,
		now:          time.Now,
		locks:        make(map[primitive.ObjectID]*sync.Mutex),
	}
}

func (s *workoutService) userLock(userID primitive.ObjectID) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	mu, ok := s.locks[userID]
	if !ok {
		mu = &sync.Mutex{}
		s.locks[userID] = mu
	}
	return mu
}

func (s *workoutService) RequestPlan(ctx context.Context, userID primitive.ObjectID) (*GenerationResult, error) {
	if s.cooldown > 0 {
		latest, err := s.sessionRepo.GetLatestCycle(ctx, userID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		if latest != nil && s.now().Sub(latest.CreatedAt) < s.cooldown {
			return nil, ErrCooldownActive
		}
	}
	return s.GenerateAndSchedule(ctx, userID)
}

func (s *workoutService) GenerateAndSchedule(ctx context.Context, userID primitive.ObjectID) (*GenerationResult, error) {
	mu := s.userLock(userID)
	mu.Lock()
	defer mu.Unlock()

	// 1. Load the profile.
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if user.WeeklyFrequency <= 0 || user.EquipmentType == "" || user.FitnessLevel == "" {
		return nil, ErrProfileIncomplete
	}

	// 2. Entitlement gate. Missing records fail closed.
	allowed, err := s.subscription.CanReceiveSession(ctx, user)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, ErrEntitlementRequired
	}

	// 3. Cycle decision.
	currentWeek := 0
	if user.CurrentTrainingWeek != nil {
		currentWeek = *user.CurrentTrainingWeek
	}
	nextWeek := currentWeek + 1

	latest, err := s.sessionRepo.GetLatestCycle(ctx, userID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	decision := decideCycle(nextWeek, user.FitnessLevel, user.EquipmentType, latest)
	if decision == cycleForcedRestart {
		log.Printf("INFO: user %s changed equipment (%s -> %s), restarting cycle",
			userID.Hex(), latest.EquipmentType, user.EquipmentType)
		nextWeek = 1
	}

	effectiveWeek := EffectiveWeek(nextWeek, user.FitnessLevel)
	req := generation.PlanRequest{
		Goal:           user.Goal,
		Experience:     user.FitnessLevel,
		WeeklySessions: user.WeeklyFrequency,
		Equipment:      user.EquipmentType,
		EffectiveWeek:  effectiveWeek,
		Phase:          PhaseLabel(effectiveWeek, user.FitnessLevel),
	}

	switch decision {
	case cycleReuse:
		req.ReuseExercises = latest.ExerciseNames
	default: // cycleFresh, cycleForcedRestart
		pool, err := s.exercisePool(ctx, user.EquipmentType)
		if err != nil {
			return nil, err
		}
		req.ExercisePool = pool
		if latest != nil {
			req.ExcludedExercises = latest.ExerciseNames
		}
	}

	// 4. Generation, with exactly one retry after a short delay.
	plan, err := s.generateWithRetry(ctx, req)
	if err != nil {
		log.Printf("ERROR: plan generation failed for user %s: %v", userID.Hex(), err)
		return nil, fmt.Errorf("%w: %v", ErrNoPlanProduced, err)
	}

	// 5. Slots for the number of day-plans the generator returned.
	now := s.now()
	future, err := s.sessionRepo.GetFuturePlanned(ctx, userID, now)
	if err != nil {
		return nil, err
	}
	var lastFuture *time.Time
	if len(future) > 0 {
		t := future[len(future)-1].PlannedAt
		lastFuture = &t
	}
	slots := CalculateSlots(len(plan.Days), user.Availability, lastFuture, now)
	if len(slots) == 0 {
		log.Printf("WARN: no slots available for user %s, plan discarded", userID.Hex())
		return nil, ErrNoPlanProduced
	}

	// 6. Truncate the plan to the available slots, never the other way round.
	days := plan.Days
	if len(days) > len(slots) {
		days = days[:len(slots)]
	}

	// 7. Persist the batch.
	sessions, err := s.buildSessions(ctx, user, days, slots, nextWeek)
	if err != nil {
		return nil, err
	}
	created, err := s.sessionRepo.CreateMany(ctx, sessions)
	if err != nil || len(created) == 0 {
		return nil, ErrNoPlanProduced
	}

	// 8. Advance (or reset) the absolute training-week counter.
	if err := s.userRepo.SetTrainingWeek(ctx, userID, nextWeek); err != nil {
		return nil, err
	}

	// 9. A forced restart obsoletes the previous cycle's still-pending
	// deliveries: skip the rows and drop their registrations so no orphan
	// jobs survive.
	if decision == cycleForcedRestart {
		for _, stale := range future {
			if err := s.sessionRepo.UpdateStatus(ctx, stale.ID, domain.SessionSkipped); err != nil {
				log.Printf("ERROR: failed to skip stale session %s: %v", stale.ID.Hex(), err)
				continue
			}
			s.delivery.CancelSession(stale.ID)
		}
	}

	// 10. Register delivery jobs. Past times are logged and skipped.
	for i := range created {
		if !created[i].PlannedAt.After(s.now()) {
			log.Printf("WARN: session %s planned time %s already passed, skipping delivery registration",
				created[i].ID.Hex(), created[i].PlannedAt)
			continue
		}
		s.delivery.ScheduleSession(&created[i])
	}

	return &GenerationResult{
		Summary:     plan.Summary,
		NextSession: created[0].PlannedAt,
		Sessions:    created,
	}, nil
}

func (s *workoutService) WeeklySweep(ctx context.Context) {
	users, err := s.userRepo.List(ctx)
	if err != nil {
		log.Printf("ERROR: weekly sweep: failed to list users: %v", err)
		return
	}
	log.Printf("INFO: weekly sweep started for %d users", len(users))

	generated := 0
	for i := range users {
		user := &users[i]
		if user.WeeklyFrequency <= 0 || user.EquipmentType == "" || user.FitnessLevel == "" {
			continue
		}
		_, err := s.GenerateAndSchedule(ctx, user.ID)
		switch {
		case err == nil:
			generated++
		case errors.Is(err, ErrEntitlementRequired):
			log.Printf("INFO: weekly sweep: user %s not entitled, skipping", user.ID.Hex())
		default:
			log.Printf("ERROR: weekly sweep: generation failed for user %s: %v", user.ID.Hex(), err)
		}
	}
	log.Printf("INFO: weekly sweep finished, %d plans generated", generated)
}

func (s *workoutService) HasUpcomingSessions(ctx context.Context, userID primitive.ObjectID) (bool, error) {
	_, err := s.sessionRepo.GetNextPlanned(ctx, userID, s.now())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *workoutService) CompleteSession(ctx context.Context, sessionID primitive.ObjectID) error {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrSessionNotFound
		}
		return err
	}
	if session.Status != domain.SessionSent {
		return ErrInvalidTransition
	}
	return s.sessionRepo.UpdateStatus(ctx, sessionID, domain.SessionCompleted)
}

func (s *workoutService) SkipSession(ctx context.Context, sessionID primitive.ObjectID) error {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrSessionNotFound
		}
		return err
	}
	switch session.Status {
	case domain.SessionCompleted, domain.SessionSkipped:
		return ErrInvalidTransition
	case domain.SessionPlanned:
		s.delivery.CancelSession(sessionID)
	}
	return s.sessionRepo.UpdateStatus(ctx, sessionID, domain.SessionSkipped)
}

// decideCycle computes the tagged decision once; callers dispatch on it.
func decideCycle(nextWeek int, level domain.FitnessLevel, equipment domain.EquipmentType, latest *repository.CycleInfo) cycleDecision {
	if latest == nil || len(latest.ExerciseNames) == 0 {
		return cycleFresh
	}
	if EffectiveWeek(nextWeek, level) == 1 {
		return cycleFresh
	}
	if latest.EquipmentType != equipment {
		return cycleForcedRestart
	}
	return cycleReuse
}

// generateWithRetry calls the generator, retrying exactly once.
func (s *workoutService) generateWithRetry(ctx context.Context, req generation.PlanRequest) (*domain.GeneratedPlan, error) {
	plan, err := s.generator.GeneratePlan(ctx, req)
	if err == nil {
		return plan, nil
	}
	log.Printf("WARN: generation attempt failed, retrying once: %v", err)

	select {
	case <-time.After(s.retryDelay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return s.generator.GeneratePlan(ctx, req)
}

// exercisePool loads the full pool for an equipment context, grouped by
// muscle group for the prompt.
func (s *workoutService) exercisePool(ctx context.Context, equipment domain.EquipmentType) (map[string][]string, error) {
	exercises, err := s.exerciseRepo.GetByEquipment(ctx, equipment)
	if err != nil {
		return nil, err
	}
	if len(exercises) == 0 {
		return nil, ErrNoExercises
	}
	pool := make(map[string][]string)
	for _, ex := range exercises {
		pool[ex.MuscleGroup] = append(pool[ex.MuscleGroup], ex.Name)
	}
	return pool, nil
}

// buildSessions binds generated day-plans to slots and resolves exercise
// names against the library. Names the generator invented are dropped with a
// log line rather than failing the whole plan.
func (s *workoutService) buildSessions(ctx context.Context, user *domain.User, days []domain.DayPlan, slots []time.Time, cycleWeek int) ([]domain.Session, error) {
	var names []string
	seen := make(map[string]bool)
	for _, day := range days {
		for _, ex := range day.Exercises {
			if !seen[ex.Name] {
				seen[ex.Name] = true
				names = append(names, ex.Name)
			}
		}
	}
	known, err := s.exerciseRepo.GetByNames(ctx, names)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]domain.Exercise, len(known))
	for _, ex := range known {
		byName[ex.Name] = ex
	}

	cycleID := uuid.NewString()
	sessions := make([]domain.Session, 0, len(days))
	for i, day := range days {
		session := domain.Session{
			UserID:        user.ID,
			PlannedAt:     slots[i],
			Status:        domain.SessionPlanned,
			CycleID:       cycleID,
			CycleWeek:     cycleWeek,
			EquipmentType: user.EquipmentType,
			Focus:         day.Focus,
			WarmUp:        day.WarmUp,
			CoolDown:      day.CoolDown,
		}
		order := 1
		for _, ex := range day.Exercises {
			ref, ok := byName[ex.Name]
			if !ok {
				log.Printf("WARN: generator returned unknown exercise %q, dropping", ex.Name)
				continue
			}
			session.Exercises = append(session.Exercises, domain.SessionExercise{
				ExerciseID:  ref.ID,
				Name:        ref.Name,
				MuscleGroup: ref.MuscleGroup,
				Sets:        ex.Sets,
				Reps:        ex.Reps,
				Order:       order,
				GifKey:      ref.GifKey,
			})
			order++
		}
		sessions = append(sessions, session)
	}
	return sessions, nil
}
