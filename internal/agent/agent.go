// Package agent orchestrates watchface generation and editing: it assembles
// prompts, calls the model, extracts the HTML artifact, and for edits
// computes the line diff against the prior version.
//
// Process never returns a Go error for model-side failures. Every outcome is
// a Result: failed creates carry a human-readable message, failed edits
// additionally return the prior artifact unchanged so the caller's project
// is never corrupted.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/faceforge/faceforge/internal/asset"
	"github.com/faceforge/faceforge/internal/diff"
	"github.com/faceforge/faceforge/internal/extract"
	"github.com/faceforge/faceforge/internal/log"
	"github.com/faceforge/faceforge/internal/prompt"
)

// Configuration errors.
var (
	ErrNoClient         = errors.New("model client is required")
	ErrEmptyInstruction = errors.New("instruction is empty")
)

// DefaultTimeout bounds a single model call when the config does not set
// one.
const DefaultTimeout = 3 * time.Minute

// Config carries the orchestrator's dependencies.
type Config struct {
	Client  Client
	Logger  log.Logger
	Timeout time.Duration

	// Limiter smooths bursts against the model API. Nil disables it.
	Limiter *rate.Limiter
}

func (cfg Config) validate() error {
	if cfg.Client == nil {
		return ErrNoClient
	}
	return nil
}

// Orchestrator runs the create and edit flows. Construct with New; safe for
// concurrent use.
type Orchestrator struct {
	client  Client
	logger  log.Logger
	timeout time.Duration
	limiter *rate.Limiter
}

// New builds an orchestrator from config.
func New(cfg Config) (*Orchestrator, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("agent: %w", err)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Orchestrator{
		client:  cfg.Client,
		logger:  logger,
		timeout: timeout,
		limiter: cfg.Limiter,
	}, nil
}

// Request describes one unit of work. A non-empty PriorArtifact selects the
// edit flow; otherwise the create flow runs.
type Request struct {
	Instruction   string
	PriorArtifact string
	Manifest      *asset.Manifest
	History       []prompt.Turn
}

// Stats summarizes the produced artifact.
type Stats struct {
	Lines      int `json:"lines"`
	Characters int `json:"characters"`
	Changes    int `json:"changes,omitempty"`
}

// Result is the uniform outcome of Process.
type Result struct {
	Success   bool         `json:"success"`
	Artifact  string       `json:"artifact"`
	Reasoning string       `json:"reasoning,omitempty"`
	RawOutput string       `json:"raw_output,omitempty"`
	Message   string       `json:"message"`
	Diff      *diff.Record `json:"diff,omitempty"`
	Summary   string       `json:"summary,omitempty"`
	Stats     Stats        `json:"stats"`
}

// Process runs one create or edit. Model and extraction failures come back
// as unsuccessful Results; only precondition violations (empty instruction)
// surface as Go errors.
func (o *Orchestrator) Process(ctx context.Context, req Request) (*Result, error) {
	if strings.TrimSpace(req.Instruction) == "" {
		return nil, ErrEmptyInstruction
	}
	if req.PriorArtifact != "" {
		return o.edit(ctx, req), nil
	}
	return o.create(ctx, req), nil
}

func (o *Orchestrator) create(ctx context.Context, req Request) *Result {
	start := time.Now()
	out, err := o.generate(ctx, prompt.SystemPrompt(), prompt.BuildGeneration(req.Instruction, req.Manifest))
	if err != nil {
		o.logger.Error("generation failed", "error", err, "elapsed", time.Since(start))
		return &Result{Success: false, Message: classify(err)}
	}

	artifact, err := extract.ExtractStrict(out.Text)
	if err != nil {
		o.logger.Warn("model output contained no artifact", "output_len", len(out.Text))
		return &Result{
			Success:   false,
			Reasoning: out.Reasoning,
			RawOutput: out.Text,
			Message:   "the model did not return a usable watchface; try rephrasing the instruction",
		}
	}

	o.logger.Info("watchface generated",
		"lines", countLines(artifact),
		"chars", len(artifact),
		"elapsed", time.Since(start))
	return &Result{
		Success:   true,
		Artifact:  artifact,
		Reasoning: out.Reasoning,
		RawOutput: out.Text,
		Message:   "watchface generated",
		Stats:     Stats{Lines: countLines(artifact), Characters: len(artifact)},
	}
}

func (o *Orchestrator) edit(ctx context.Context, req Request) *Result {
	start := time.Now()
	prior := req.PriorArtifact

	out, err := o.generate(ctx, prompt.EditSystemPrompt(),
		prompt.BuildEdit(prior, req.Instruction, req.Manifest, req.History))
	if err != nil {
		o.logger.Error("edit failed", "error", err, "elapsed", time.Since(start))
		return &Result{Success: false, Artifact: prior, Message: classify(err)}
	}

	artifact, err := extract.ExtractStrict(out.Text)
	if err != nil {
		o.logger.Warn("edit output contained no artifact", "output_len", len(out.Text))
		return &Result{
			Success:   false,
			Artifact:  prior,
			Reasoning: out.Reasoning,
			RawOutput: out.Text,
			Message:   "the model did not return a usable edit; the watchface is unchanged",
		}
	}

	record := diff.Compute(prior, artifact)
	summary := diff.Summarize(record)
	o.logger.Info("watchface edited",
		"changes", record.TotalChanges,
		"summary", summary,
		"elapsed", time.Since(start))
	return &Result{
		Success:   true,
		Artifact:  artifact,
		Reasoning: out.Reasoning,
		RawOutput: out.Text,
		Message:   summary,
		Diff:      record,
		Summary:   summary,
		Stats: Stats{
			Lines:      countLines(artifact),
			Characters: len(artifact),
			Changes:    record.TotalChanges,
		},
	}
}

// generate applies rate limiting and the per-call timeout around one model
// call.
func (o *Orchestrator) generate(ctx context.Context, system, userPrompt string) (*Output, error) {
	if o.limiter != nil {
		if err := o.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	return o.client.Generate(ctx, system, userPrompt)
}

// classify maps a model-call error to the message shown to the end user.
// The raw error is preserved only in the generic case.
func classify(err error) string {
	msg := strings.ToLower(err.Error())
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		strings.Contains(msg, "timeout"),
		strings.Contains(msg, "timed out"),
		strings.Contains(msg, "deadline exceeded"):
		return "the model request timed out; try again or simplify the instruction"
	case strings.Contains(msg, "connection"),
		strings.Contains(msg, "connect"):
		return "could not reach the model service; check network connectivity"
	case strings.Contains(msg, "api key"),
		strings.Contains(msg, "unauthorized"),
		strings.Contains(msg, "permission denied"):
		return "the model rejected the api key; set a valid key and retry"
	default:
		return fmt.Sprintf("generation failed: %v", err)
	}
}

func countLines(s string) int {
	if s == "" {
		return 0
	}
	return strings.Count(s, "\n") + 1
}
