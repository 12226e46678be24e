// File: internal/oracle/gemini.go
package oracle

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/xkilldash9x/droidpilot/api/schemas"
	"github.com/xkilldash9x/droidpilot/internal/config"
)

const systemInstruction = `You are the decision engine of a mobile UI automation agent.
Each turn you receive a device screenshot, the visible UI element tree as JSON, the task description, and a summary of previous actions.
Respond with exactly one JSON object and nothing else. The object must contain an "action" field with one of:
tap, swipe, type_text, wait, back, launch_app, dismiss_popup, finish, error.
Field requirements per action:
- tap: x, y (center of the target element), element_width, element_height, element_index
- swipe: start_x, start_y, end_x, end_y, duration (ms)
- type_text: text
- wait: duration (ms)
- launch_app: package_name
- finish: message describing what was accomplished
- error: message and recoverable (boolean)
Always include a short "reason". Prefer dismiss_popup when a dialog blocks the task.
Declare finish only when the task's goal state is visible on screen. Declare error when the task cannot progress.`

// GeminiOracle drives the decision loop directly against the Gemini API,
// sending the screenshot as an inline image part alongside the serialized
// element tree.
type GeminiOracle struct {
	client      *genai.Client
	model       string
	temperature float32
	limiter     *rate.Limiter
	timeout     time.Duration
	logger      *zap.Logger
}

// NewGeminiOracle initializes the SDK client.
func NewGeminiOracle(cfg config.OracleConfig, logger *zap.Logger) (*GeminiOracle, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RatePerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerMinute/60.0), 1)
	}

	return &GeminiOracle{
		client:      client,
		model:       cfg.Model,
		temperature: float32(cfg.Temperature),
		limiter:     limiter,
		timeout:     cfg.APITimeout,
		logger:      logger.Named("oracle.gemini"),
	}, nil
}

// Decide sends one multimodal generation request and decodes the model's
// directive.
func (g *GeminiOracle) Decide(ctx context.Context, req schemas.DecisionRequest) (schemas.ActionDirective, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return schemas.ActionDirective{}, fmt.Errorf("rate limit wait: %w", err)
	}

	parts := []*genai.Part{genai.NewPartFromText(buildPrompt(req))}
	if req.Screenshot != "" {
		img, err := base64.StdEncoding.DecodeString(req.Screenshot)
		if err != nil {
			return schemas.ActionDirective{}, fmt.Errorf("decode screenshot: %w", err)
		}
		parts = append(parts, genai.NewPartFromBytes(img, "image/jpeg"))
	}

	genCtx := ctx
	if g.timeout > 0 {
		var cancel context.CancelFunc
		genCtx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := g.client.Models.GenerateContent(genCtx, g.model,
		[]*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)},
		&genai.GenerateContentConfig{
			Temperature:       genai.Ptr(g.temperature),
			ResponseMIMEType:  "application/json",
			SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
		})
	if err != nil {
		return schemas.ActionDirective{}, fmt.Errorf("gemini generate: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return schemas.ActionDirective{}, fmt.Errorf("gemini returned empty response")
	}

	g.logger.Debug("Decision received",
		zap.Duration("duration", time.Since(start)),
		zap.Int("response_bytes", len(text)))

	return decodeDirective(text)
}

// buildPrompt renders the per-step user message: task, history, and the
// element tree the model must ground its coordinates in.
func buildPrompt(req schemas.DecisionRequest) string {
	tree, err := json.MarshalIndent(req.UITree, "", "  ")
	if err != nil {
		tree = []byte("{}")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Task: %s\n", req.Context.Task)
	fmt.Fprintf(&b, "Step: %d\n", req.Context.Step)
	if req.Context.Caption != "" {
		fmt.Fprintf(&b, "Caption: %s\n", req.Context.Caption)
	}
	if req.Context.PayloadRef != "" {
		fmt.Fprintf(&b, "Payload: %s\n", req.Context.PayloadRef)
	}
	if len(req.Context.PreviousActions) > 0 {
		b.WriteString("Previous actions:\n")
		for _, a := range req.Context.PreviousActions {
			fmt.Fprintf(&b, "  - %s\n", a)
		}
	}
	fmt.Fprintf(&b, "\nUI element tree:\n%s\n", tree)
	return b.String()
}
