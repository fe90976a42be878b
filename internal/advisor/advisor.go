// Package advisor talks to the generative-AI service. Both calls are best effort:
// failures are logged and turned into safe fallback values, never returned.
package advisor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"

	"github.com/tgienger/academiaflow/internal/models"
)

// FallbackAdvice is shown whenever the advice request fails
const FallbackAdvice = "Keep focusing on your deadlines!"

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai"
	DefaultModel   = "gemini-3-flash-preview"
)

var errNoAPIKey = errors.New("no API key configured")

// Options configures the model client
type Options struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// BreakdownRequest carries the task fields sent for a breakdown
type BreakdownRequest struct {
	Title       string
	Description string
	Category    models.Category
	DueDate     models.Date
}

// Breakdown is the structured reply to a breakdown request
type Breakdown struct {
	SubTasks       []string `json:"breakdown"`
	EstimatedHours float64  `json:"estimatedHours"`
	ProTip         string   `json:"proTip"`
}

// Summary is the generated description used when the task has none
func (b Breakdown) Summary() string {
	hours := strconv.FormatFloat(b.EstimatedHours, 'f', -1, 64)
	return fmt.Sprintf("AI Estimate: %s hours. \nTip: %s", hours, b.ProTip)
}

// Breakdowner produces task breakdowns
type Breakdowner interface {
	BreakdownTask(ctx context.Context, req BreakdownRequest) *Breakdown
}

// Advisor wraps a chat model with the two prompts the app needs
type Advisor struct {
	model   llms.Model
	timeout time.Duration
	log     *zap.SugaredLogger
}

// New builds an Advisor backed by an OpenAI-compatible chat endpoint.
// A missing API key yields an Advisor whose calls always fall back.
func New(opts Options, log *zap.SugaredLogger) (*Advisor, error) {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if strings.TrimSpace(opts.APIKey) == "" {
		a := NewWithModel(unavailableModel{}, log)
		a.timeout = opts.Timeout
		return a, nil
	}

	llm, err := openai.New(
		openai.WithToken(opts.APIKey),
		openai.WithBaseURL(opts.BaseURL),
		openai.WithModel(opts.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("create model client: %w", err)
	}
	a := NewWithModel(llm, log)
	a.timeout = opts.Timeout
	return a, nil
}

// NewWithModel wraps an existing model
func NewWithModel(model llms.Model, log *zap.SugaredLogger) *Advisor {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Advisor{model: model, log: log}
}

// BreakdownTask asks for 3-7 sub-tasks, an hour estimate and a tip.
// It returns nil when no breakdown is available.
func (a *Advisor) BreakdownTask(ctx context.Context, req BreakdownRequest) *Breakdown {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	text, err := a.generate(ctx, breakdownPrompt(req), llms.WithJSONMode())
	if err != nil {
		a.log.Warnw("AI breakdown failed", "error", err, "title", req.Title)
		return nil
	}
	b, err := parseBreakdown(text)
	if err != nil {
		a.log.Warnw("AI breakdown failed", "error", err, "title", req.Title)
		return nil
	}
	if len(b.SubTasks) > MaxSubTasks {
		a.log.Debugw("AI breakdown truncated", "title", req.Title, "steps", len(b.SubTasks), "kept", MaxSubTasks)
		b.SubTasks = b.SubTasks[:MaxSubTasks]
	}
	a.log.Debugw("AI breakdown received", "title", req.Title, "steps", len(b.SubTasks))
	return b
}

// Advice asks for three short pieces of advice about the whole schedule
func (a *Advisor) Advice(ctx context.Context, tasks []models.Task) string {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	text, err := a.generate(ctx, advicePrompt(tasks))
	if err != nil {
		a.log.Warnw("AI advice failed", "error", err, "tasks", len(tasks))
		return FallbackAdvice
	}
	text = strings.TrimSpace(text)
	if text == "" {
		a.log.Warnw("AI advice failed", "error", "empty reply", "tasks", len(tasks))
		return FallbackAdvice
	}
	return text
}

// Configured reports whether a real model backs the Advisor. It is false when
// New was given a blank API key.
func (a *Advisor) Configured() bool {
	if a == nil || a.model == nil {
		return false
	}
	_, unavailable := a.model.(unavailableModel)
	return !unavailable
}

func (a *Advisor) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.timeout > 0 {
		return context.WithTimeout(ctx, a.timeout)
	}
	return context.WithCancel(ctx)
}

func (a *Advisor) generate(ctx context.Context, prompt string, opts ...llms.CallOption) (string, error) {
	if a == nil || a.model == nil {
		return "", errNoAPIKey
	}
	resp, err := a.model.GenerateContent(ctx, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}, opts...)
	if err != nil {
		return "", err
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", errors.New("no choices in response")
	}
	return resp.Choices[0].Content, nil
}

func breakdownPrompt(req BreakdownRequest) string {
	return fmt.Sprintf(`Break down this academic task into manageable sub-tasks for a college student:
Title: %s
Description: %s
Category: %s
Due Date: %s

Respond with a JSON object with exactly these fields:
- "breakdown": an array of 3-7 specific sub-task strings
- "estimatedHours": total estimated study/work hours as a number
- "proTip": a quick study tip for this specific type of task`,
		req.Title, req.Description, req.Category, req.DueDate)
}

func advicePrompt(tasks []models.Task) string {
	parts := make([]string, 0, len(tasks))
	for _, t := range tasks {
		parts = append(parts, fmt.Sprintf("%s (Due: %s, Priority: %s)", t.Title, t.DueDate, t.Priority))
	}
	return fmt.Sprintf(`As an academic advisor, look at this student's schedule and give 3 short, punchy pieces of advice on what they should focus on first and why.
Tasks: %s`, strings.Join(parts, ", "))
}

// MaxSubTasks caps how many generated steps a breakdown may add
const MaxSubTasks = 7

func parseBreakdown(text string) (*Breakdown, error) {
	text = stripCodeFence(text)
	var b Breakdown
	if err := json.Unmarshal([]byte(text), &b); err != nil {
		return nil, fmt.Errorf("decode breakdown: %w", err)
	}
	steps := b.SubTasks[:0]
	for _, s := range b.SubTasks {
		if strings.TrimSpace(s) != "" {
			steps = append(steps, s)
		}
	}
	b.SubTasks = steps
	if len(b.SubTasks) == 0 {
		return nil, errors.New("decode breakdown: no sub-tasks")
	}
	return &b, nil
}

// stripCodeFence removes a ```json ... ``` wrapper some models add in JSON mode
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

type unavailableModel struct{}

func (unavailableModel) GenerateContent(context.Context, []llms.MessageContent, ...llms.CallOption) (*llms.ContentResponse, error) {
	return nil, errNoAPIKey
}

func (unavailableModel) Call(context.Context, string, ...llms.CallOption) (string, error) {
	return "", errNoAPIKey
}
