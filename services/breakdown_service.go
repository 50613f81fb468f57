package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strings"

	"google.golang.org/api/generativelanguage/v1beta"
	"google.golang.org/api/option"

	"zentask/zentask/config"
)

// maxSubtaskMinutes caps a single suggested estimate at one week.
const maxSubtaskMinutes = 7 * 24 * 60

type SuggestedSubtask struct {
	Title            string `json:"title"`
	EstimatedMinutes int    `json:"estimatedMinutes"`
}

// Breakdown is the AI suggestion for splitting a task.
type Breakdown struct {
	Subtasks          []SuggestedSubtask `json:"subtasks"`
	SuggestedCategory string             `json:"suggestedCategory"`
}

func (b Breakdown) TotalMinutes() int {
	total := 0
	for _, subtask := range b.Subtasks {
		total += subtask.EstimatedMinutes
	}
	return total
}

type BreakdownServiceInterface interface {
	Breakdown(ctx context.Context, title, description string) (*Breakdown, error)
}

type BreakdownService struct {
	apiKey     string
	model      string
	endpoint   string
	httpClient *http.Client
}

func NewBreakdownService(cfg config.Config) *BreakdownService {
	return &BreakdownService{
		apiKey:   cfg.GeminiAPIKey,
		model:    cfg.GeminiModel,
		endpoint: cfg.GeminiEndpoint,
	}
}

func (s *BreakdownService) Configured() bool {
	return s.apiKey != "" || s.httpClient != nil
}

func breakdownPrompt(title, description string) string {
	return fmt.Sprintf("Break down this task into 3-5 sub-tasks and estimate time (in minutes) for each: Task: %q Description: %q", title, description)
}

var breakdownSchema = &generativelanguage.Schema{
	Type: "OBJECT",
	Properties: map[string]generativelanguage.Schema{
		"subtasks": {
			Type: "ARRAY",
			Items: &generativelanguage.Schema{
				Type: "OBJECT",
				Properties: map[string]generativelanguage.Schema{
					"title":            {Type: "STRING"},
					"estimatedMinutes": {Type: "NUMBER"},
				},
				Required: []string{"title", "estimatedMinutes"},
			},
		},
		"suggestedCategory": {Type: "STRING"},
	},
	Required: []string{"subtasks", "suggestedCategory"},
}

func (s *BreakdownService) Breakdown(ctx context.Context, title, description string) (*Breakdown, error) {
	if !s.Configured() {
		return nil, ErrBreakdownUnavailable
	}
	if strings.TrimSpace(title) == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}

	opts := []option.ClientOption{option.WithAPIKey(s.apiKey)}
	if s.httpClient != nil {
		opts = append(opts, option.WithHTTPClient(s.httpClient))
	}
	if s.endpoint != "" {
		opts = append(opts, option.WithEndpoint(s.endpoint))
	}
	srv, err := generativelanguage.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSideChannel, err)
	}

	model := s.model
	if !strings.HasPrefix(model, "models/") {
		model = "models/" + model
	}
	req := &generativelanguage.GenerateContentRequest{
		Contents: []*generativelanguage.Content{{
			Role:  "user",
			Parts: []*generativelanguage.Part{{Text: breakdownPrompt(title, description)}},
		}},
		GenerationConfig: &generativelanguage.GenerationConfig{
			ResponseMimeType: "application/json",
			ResponseSchema:   breakdownSchema,
		},
	}

	resp, err := srv.Models.GenerateContent(model, req).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("%w: generate content: %v", ErrSideChannel, err)
	}

	text := responseText(resp)
	if text == "" {
		return nil, fmt.Errorf("%w: empty breakdown response", ErrSideChannel)
	}

	var decoded struct {
		Subtasks []struct {
			Title            string  `json:"title"`
			EstimatedMinutes float64 `json:"estimatedMinutes"`
		} `json:"subtasks"`
		SuggestedCategory string `json:"suggestedCategory"`
	}
	if err := json.Unmarshal([]byte(text), &decoded); err != nil {
		return nil, fmt.Errorf("%w: malformed breakdown: %v", ErrSideChannel, err)
	}

	breakdown := &Breakdown{SuggestedCategory: strings.TrimSpace(decoded.SuggestedCategory)}
	for _, subtask := range decoded.Subtasks {
		title := strings.TrimSpace(subtask.Title)
		if title == "" {
			continue
		}
		breakdown.Subtasks = append(breakdown.Subtasks, SuggestedSubtask{
			Title:            title,
			EstimatedMinutes: clampMinutes(subtask.EstimatedMinutes),
		})
	}
	return breakdown, nil
}

func clampMinutes(minutes float64) int {
	if math.IsNaN(minutes) {
		return 0
	}
	return int(math.Min(maxSubtaskMinutes, math.Max(0, math.Round(minutes))))
}

func responseText(resp *generativelanguage.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		var b strings.Builder
		for _, part := range candidate.Content.Parts {
			if part != nil {
				b.WriteString(part.Text)
			}
		}
		if b.Len() > 0 {
			return b.String()
		}
	}
	return ""
}
