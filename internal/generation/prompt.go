package generation

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Weekly plan prompt. The model must answer with strict JSON only; anything
// else fails parsing and counts as a generation failure.
const weeklyPlanPrompt = `You are an elite fitness coach building evidence-based training programs.
Produce a complete weekly workout program matching the user's level and goal.

OUTPUT STRICTLY VALID JSON and NOTHING but JSON, following the schema in the
OUTPUT FORMAT section.

# INPUT PARAMETERS
goal: %s                 # one of: weight_loss | mass_gain | maintenance
experience: %s           # one of: beginner | intermediate | advanced
weekly_sessions: %d
equipment: %s            # one of: gym | bodyweight
effective_week: %d       # week within the periodization cycle
phase: %s                # periodization phase for this week

# AVAILABLE EXERCISES (USE ONLY THESE, names verbatim)
exercise_pool = %s
%s
# HARD RULES
1) Split selection (strict): with weekly_sessions=5 always use a 5-day body-part
   split; with 3, beginners get FullBody and others get PPL (Push/Pull/Legs);
   with 2, beginners get FullBody and others get Upper/Lower.
2) Weekly set corridors: LARGE groups (chest, back, legs) beginner 6-8,
   intermediate 8-10, advanced 10-15 sets per week; SMALL groups (shoulders,
   biceps, triceps) beginner 4-5, intermediate 6, advanced 6-9.
3) Distribute weekly volume evenly across sessions.
4) Per session: at most 12 sets for one large group per day; beginners at most
   3 sets per exercise; 2-4 sets per exercise, never fewer than 2; FullBody/PPL
   at most 6 exercises per day, 5-day split 3-5 exercises per day.
5) Reps by goal: weight_loss 10-15 (isolation up to 12-20); mass_gain 8-12;
   maintenance 6-12. AMRAP is allowed ONLY when equipment is "bodyweight".
6) Exercise names STRICTLY from exercise_pool. Inventing new ones is forbidden.

# OUTPUT FORMAT (STRICT JSON)
{
  "plan_summary": { "periodization_type": "...", "split_type": "...", "primary_goal": "..." },
  "workout_plan": [
    {
      "day": 1,
      "focus": "...",
      "warm_up": "...",
      "cool_down": "...",
      "exercises": [
        { "name": "<verbatim from exercise_pool>", "muscle_group": "...", "sets": 3, "reps": "8-12" }
      ]
    }
  ]
}

# JSON ONLY. No text, comments or explanations.`

// buildPrompt renders the weekly plan prompt for a request.
func buildPrompt(req PlanRequest) (string, error) {
	pool := req.ExercisePool
	if len(req.ReuseExercises) > 0 {
		// Mid-cycle continuation: the "pool" is exactly the locked-in set.
		pool = map[string][]string{"current_cycle": req.ReuseExercises}
	}
	poolJSON, err := json.MarshalIndent(pool, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode exercise pool: %w", err)
	}

	var extra strings.Builder
	if len(req.ReuseExercises) > 0 {
		extra.WriteString("\n# CONTINUATION\nThis is a mid-cycle week: reuse EXACTLY the exercises above, adjusting sets/reps for the phase.\n")
	}
	if len(req.ExcludedExercises) > 0 {
		excluded, err := json.Marshal(req.ExcludedExercises)
		if err != nil {
			return "", fmt.Errorf("failed to encode excluded exercises: %w", err)
		}
		extra.WriteString("\n# VARIETY\nPrefer exercises NOT in this recently used set when equivalents exist: ")
		extra.Write(excluded)
		extra.WriteString("\n")
	}

	return fmt.Sprintf(weeklyPlanPrompt,
		req.Goal,
		req.Experience,
		req.WeeklySessions,
		req.Equipment,
		req.EffectiveWeek,
		req.Phase,
		string(poolJSON),
		extra.String(),
	), nil
}
