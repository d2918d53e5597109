package generation

import (
	"alcyxob/coach-bot/internal/config"
	"alcyxob/coach-bot/internal/domain"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validPlanJSON = `{
  "plan_summary": {"periodization_type": "linear", "split_type": "FullBody", "primary_goal": "mass_gain"},
  "workout_plan": [
    {
      "day": 1,
      "focus": "Full Body A",
      "warm_up": "5 min cardio",
      "cool_down": "stretching",
      "exercises": [
        {"name": "Squat", "muscle_group": "legs", "sets": 3, "reps": "8-12"},
        {"name": "Bench Press", "muscle_group": "chest", "sets": 3, "reps": "8-12"}
      ]
    },
    {
      "day": 2,
      "focus": "Full Body B",
      "warm_up": "5 min cardio",
      "cool_down": "stretching",
      "exercises": [
        {"name": "Deadlift", "muscle_group": "back", "sets": 3, "reps": "6-10"}
      ]
    }
  ]
}`

func chatCompletion(content string) string {
	resp := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	}
	b, _ := json.Marshal(resp)
	return string(b)
}

func stubRequest() PlanRequest {
	return PlanRequest{
		Goal:           domain.GoalMassGain,
		Experience:     domain.LevelBeginner,
		WeeklySessions: 2,
		Equipment:      domain.EquipmentGym,
		EffectiveWeek:  1,
		Phase:          "Adaptation",
		ExercisePool: map[string][]string{
			"legs":  {"Squat"},
			"chest": {"Bench Press"},
			"back":  {"Deadlift"},
		},
	}
}

func TestGeneratePlan_ParsesWellFormedResponse(t *testing.T) {
	var gotAuth string
	var gotBody chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(chatCompletion(validPlanJSON)))
	}))
	defer server.Close()

	client := NewLLMClient(config.LLMConfig{APIURL: server.URL, APIKey: "secret", Model: "gpt-4.1-mini"})
	plan, err := client.GeneratePlan(context.Background(), stubRequest())
	require.NoError(t, err)

	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "gpt-4.1-mini", gotBody.Model)
	assert.Equal(t, "json_object", gotBody.ResponseFormat.Type)
	assert.InDelta(t, 0.4, gotBody.Temperature, 0.001)
	require.Len(t, gotBody.Messages, 1)
	assert.Contains(t, gotBody.Messages[0].Content, "Squat")

	assert.Equal(t, "FullBody", plan.Summary.Split)
	require.Len(t, plan.Days, 2)
	assert.Equal(t, "Full Body A", plan.Days[0].Focus)
	require.Len(t, plan.Days[0].Exercises, 2)
	assert.Equal(t, 3, plan.Days[0].Exercises[0].Sets)
	assert.Equal(t, "8-12", plan.Days[0].Exercises[0].Reps)
}

func TestGeneratePlan_NonOKStatusIsAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewLLMClient(config.LLMConfig{APIURL: server.URL})
	_, err := client.GeneratePlan(context.Background(), stubRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestGeneratePlan_MalformedContent(t *testing.T) {
	cases := map[string]string{
		"not json":        "Sure! Here is your plan: ...",
		"empty plan":      `{"plan_summary": {}, "workout_plan": []}`,
		"day without any": `{"workout_plan": [{"day": 1, "exercises": []}]}`,
		"zero sets":       `{"workout_plan": [{"day": 1, "exercises": [{"name": "Squat", "sets": 0, "reps": "8"}]}]}`,
		"unnamed":         `{"workout_plan": [{"day": 1, "exercises": [{"name": "", "sets": 3, "reps": "8"}]}]}`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(chatCompletion(content)))
			}))
			defer server.Close()

			client := NewLLMClient(config.LLMConfig{APIURL: server.URL})
			_, err := client.GeneratePlan(context.Background(), stubRequest())
			assert.ErrorIs(t, err, ErrMalformedResponse)
		})
	}
}

func TestBuildPrompt_FreshCycleCarriesPoolAndExclusions(t *testing.T) {
	req := stubRequest()
	req.ExcludedExercises = []string{"Leg Press"}

	prompt, err := buildPrompt(req)
	require.NoError(t, err)

	assert.Contains(t, prompt, "goal: mass_gain")
	assert.Contains(t, prompt, "weekly_sessions: 2")
	assert.Contains(t, prompt, `"Squat"`)
	assert.Contains(t, prompt, "# VARIETY")
	assert.Contains(t, prompt, `"Leg Press"`)
	assert.NotContains(t, prompt, "# CONTINUATION")
}

func TestBuildPrompt_ReuseReplacesPool(t *testing.T) {
	req := stubRequest()
	req.ReuseExercises = []string{"Squat", "Bench Press"}

	prompt, err := buildPrompt(req)
	require.NoError(t, err)

	assert.Contains(t, prompt, "# CONTINUATION")
	assert.Contains(t, prompt, "current_cycle")
	// The broad pool is replaced by the locked-in selection.
	assert.NotContains(t, prompt, "Deadlift")
}
