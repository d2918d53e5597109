// internal/domain/plan.go
package domain

// PlanSummary labels a generated weekly plan.
type PlanSummary struct {
	Periodization string `json:"periodization"` // e.g. "Accumulation", "Intensification"
	Split         string `json:"split"`         // e.g. "FullBody", "PPL", "Upper/Lower"
	PrimaryGoal   string `json:"primaryGoal"`
}

// PlannedExercise is one exercise line in a generated day plan. Names must
// match the exercise pool verbatim; anything else is discarded downstream.
type PlannedExercise struct {
	Name        string `json:"name"`
	MuscleGroup string `json:"muscleGroup"`
	Sets        int    `json:"sets"`
	Reps        string `json:"reps"`
}

// DayPlan is one generated training day before it is bound to a slot.
type DayPlan struct {
	Day       int               `json:"day"`
	Focus     string            `json:"focus"`
	WarmUp    string            `json:"warmUp"`
	CoolDown  string            `json:"coolDown"`
	Exercises []PlannedExercise `json:"exercises"`
}

// GeneratedPlan is the transient result of one generation call. It only lives
// inside the workout service; persistence explodes it into Session rows.
type GeneratedPlan struct {
	Summary PlanSummary `json:"planSummary"`
	Days    []DayPlan   `json:"workoutPlan"`
}
