package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"google.golang.org/genai"
)

// Output is one model completion: the assistant text plus any reasoning
// trace the model surfaced.
type Output struct {
	Text      string
	Reasoning string
}

// Client is the minimal model surface the orchestrator needs. Production
// uses GenkitClient; tests substitute a stub.
type Client interface {
	Generate(ctx context.Context, system, prompt string) (*Output, error)
}

// ClientConfig carries everything needed to build a model client bound to
// one API key.
type ClientConfig struct {
	APIKey          string
	ModelName       string
	Temperature     float32
	MaxTokens       int
	EnableReasoning bool
}

func (cfg ClientConfig) validate() error {
	if cfg.APIKey == "" {
		return errors.New("api key is required")
	}
	if cfg.ModelName == "" {
		return errors.New("model name is required")
	}
	return nil
}

// GenkitClient calls Gemini through a Genkit instance whose plugin is bound
// to a single API key. Build one per credential; instances are safe for
// concurrent use.
type GenkitClient struct {
	g         *genkit.Genkit
	modelName string
	genConfig *genai.GenerateContentConfig
}

// NewGenkitClient initializes a Genkit instance with the Google AI plugin
// bound to the config's key.
func NewGenkitClient(ctx context.Context, cfg ClientConfig) (*GenkitClient, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("model client: %w", err)
	}

	g := genkit.Init(ctx,
		genkit.WithPlugins(&googlegenai.GoogleAI{APIKey: cfg.APIKey}),
	)

	genConfig := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(cfg.Temperature),
		MaxOutputTokens: int32(cfg.MaxTokens),
	}
	if cfg.EnableReasoning {
		genConfig.ThinkingConfig = &genai.ThinkingConfig{IncludeThoughts: true}
	}

	return &GenkitClient{
		g:         g,
		modelName: cfg.ModelName,
		genConfig: genConfig,
	}, nil
}

// Generate runs one completion with the given system and user prompts.
func (c *GenkitClient) Generate(ctx context.Context, system, prompt string) (*Output, error) {
	resp, err := genkit.Generate(ctx, c.g,
		ai.WithModelName(c.modelName),
		ai.WithSystem(system),
		ai.WithPrompt(prompt),
		ai.WithConfig(c.genConfig),
	)
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}

	out := &Output{Text: resp.Text()}
	if resp.Message != nil {
		var reasoning strings.Builder
		for _, part := range resp.Message.Content {
			if part.IsReasoning() {
				reasoning.WriteString(part.Text)
			}
		}
		out.Reasoning = reasoning.String()
	}
	return out, nil
}
