package generation

import (
	"alcyxob/coach-bot/internal/config"
	"alcyxob/coach-bot/internal/domain"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrMalformedResponse marks generator output that could not be parsed into a
// plan. Treated exactly like a transport failure by the retry policy.
var ErrMalformedResponse = errors.New("malformed generation response")

// llmClient implements PlanGenerator against an OpenAI-compatible
// chat-completions endpoint.
type llmClient struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewLLMClient creates a PlanGenerator backed by the configured LLM proxy.
func NewLLMClient(cfg config.LLMConfig) PlanGenerator {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 180 * time.Second
	}
	return &llmClient{
		baseURL:    strings.TrimRight(cfg.APIURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Wire types for the chat-completions call.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	ResponseFormat struct {
		Type string `json:"type"`
	} `json:"response_format"`
	Temperature float64 `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// planPayload mirrors the JSON schema the prompt demands.
type planPayload struct {
	PlanSummary struct {
		PeriodizationType string `json:"periodization_type"`
		SplitType         string `json:"split_type"`
		PrimaryGoal       string `json:"primary_goal"`
	} `json:"plan_summary"`
	WorkoutPlan []struct {
		Day       int    `json:"day"`
		Focus     string `json:"focus"`
		WarmUp    string `json:"warm_up"`
		CoolDown  string `json:"cool_down"`
		Exercises []struct {
			Name        string `json:"name"`
			MuscleGroup string `json:"muscle_group"`
			Sets        int    `json:"sets"`
			Reps        string `json:"reps"`
		} `json:"exercises"`
	} `json:"workout_plan"`
}

func (c *llmClient) GeneratePlan(ctx context.Context, req PlanRequest) (*domain.GeneratedPlan, error) {
	prompt, err := buildPrompt(req)
	if err != nil {
		return nil, err
	}

	body := chatRequest{
		Model:       c.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: 0.4,
	}
	body.ResponseFormat.Type = "json_object"

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("generation request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read generation response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("generation request returned status %d: %s", resp.StatusCode, truncate(raw, 256))
	}

	var chat chatResponse
	if err := json.Unmarshal(raw, &chat); err != nil || len(chat.Choices) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrMalformedResponse, truncate(raw, 256))
	}

	return parsePlan(chat.Choices[0].Message.Content)
}

// parsePlan decodes the model's JSON content into the transient plan.
func parsePlan(content string) (*domain.GeneratedPlan, error) {
	var payload planPayload
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if len(payload.WorkoutPlan) == 0 {
		return nil, fmt.Errorf("%w: empty workout plan", ErrMalformedResponse)
	}

	plan := &domain.GeneratedPlan{
		Summary: domain.PlanSummary{
			Periodization: payload.PlanSummary.PeriodizationType,
			Split:         payload.PlanSummary.SplitType,
			PrimaryGoal:   payload.PlanSummary.PrimaryGoal,
		},
	}
	for _, day := range payload.WorkoutPlan {
		if len(day.Exercises) == 0 {
			return nil, fmt.Errorf("%w: day %d has no exercises", ErrMalformedResponse, day.Day)
		}
		dp := domain.DayPlan{
			Day:      day.Day,
			Focus:    day.Focus,
			WarmUp:   day.WarmUp,
			CoolDown: day.CoolDown,
		}
		for _, ex := range day.Exercises {
			if ex.Name == "" || ex.Sets <= 0 {
				return nil, fmt.Errorf("%w: invalid exercise entry on day %d", ErrMalformedResponse, day.Day)
			}
			dp.Exercises = append(dp.Exercises, domain.PlannedExercise{
				Name:        ex.Name,
				MuscleGroup: ex.MuscleGroup,
				Sets:        ex.Sets,
				Reps:        ex.Reps,
			})
		}
		plan.Days = append(plan.Days, dp)
	}
	return plan, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
