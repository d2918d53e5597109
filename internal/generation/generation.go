package generation

import (
	"alcyxob/coach-bot/internal/domain"
	"context"
)

// PlanRequest carries everything the generator needs for one weekly plan.
// Exactly one of ExercisePool / ReuseExercises should be populated: a fresh
// cycle offers the full pool, a mid-cycle continuation pins the selection the
// cycle locked in.
type PlanRequest struct {
	Goal           domain.Goal
	Experience     domain.FitnessLevel
	WeeklySessions int
	Equipment      domain.EquipmentType
	EffectiveWeek  int
	Phase          string

	// ExercisePool groups candidate exercise names by muscle group.
	ExercisePool map[string][]string
	// ReuseExercises is the fixed selection from the current cycle.
	ReuseExercises []string
	// ExcludedExercises biases a fresh cycle toward variety.
	ExcludedExercises []string
}

// PlanGenerator is the external content-generation collaborator. A malformed
// or unparseable response surfaces as an error; the caller owns retries.
type PlanGenerator interface {
	GeneratePlan(ctx context.Context, req PlanRequest) (*domain.GeneratedPlan, error)
}
