// Package prompts turns campaign brief demographics into Adobe Firefly
// prompts using the OpenAI chat completions API.
package prompts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/creativepipe/cap/pkg/ratelimit"
)

// Models accepted for prompt generation.
const (
	ModelGPT4       = "gpt-4"
	ModelGPT4Turbo  = "gpt-4-turbo"
	ModelGPT35Turbo = "gpt-3.5-turbo"
)

const (
	maxCompletionTokens = 500
	completionTemp      = 0.7
)

// systemInstruction steers the model toward background-only imagery so that
// product placement stays under the pipeline's control.
const systemInstruction = "You are an AI assistant responsible for generating prompts for Adobe Firefly to create images. Below is the context of a campaign brief. Use this information to compose a robust and accurate prompt to generate images. Generate background images only. Do not reference individual products.  Make your responses concise and to the point."

var (
	// ErrInvalidConfig reports missing credentials or an unsupported model.
	ErrInvalidConfig = errors.New("invalid prompts configuration")
	// ErrNoDemographics reports a brief with nothing to describe.
	ErrNoDemographics = errors.New("campaign brief has no demographics")
	// ErrEmptyCompletion reports a completion with no usable text.
	ErrEmptyCompletion = errors.New("model returned an empty completion")
	// ErrCompletionFailed wraps transport and API failures.
	ErrCompletionFailed = errors.New("prompt completion failed")
)

var supportedModels = map[string]bool{
	ModelGPT4:       true,
	ModelGPT4Turbo:  true,
	ModelGPT35Turbo: true,
}

// SupportedModel reports whether the generator accepts the given model name.
func SupportedModel(model string) bool { return supportedModels[model] }

// SupportedModels lists the accepted model names for CLI help output.
func SupportedModels() []string {
	return []string{ModelGPT4, ModelGPT4Turbo, ModelGPT35Turbo}
}

// Config carries OpenAI settings, typically loaded from the environment.
type Config struct {
	APIKey  string `env:"OPENAI_API_KEY,required"`
	Model   string `env:"OPENAI_MODEL" envDefault:"gpt-4"`
	BaseURL string `env:"OPENAI_BASE_URL"`
}

// ChatClient is the slice of the OpenAI API the generator depends on.
// Tests substitute it to avoid network calls.
type ChatClient interface {
	New(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error)
}

type chatCompletions struct {
	completions *openai.ChatCompletionService
}

func (c chatCompletions) New(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error) {
	return c.completions.New(ctx, params)
}

// Option configures the generator.
type Option func(*options)

type options struct {
	client ChatClient
	log    *slog.Logger
}

// WithChatClient substitutes the OpenAI chat client. The API key is not
// required when a custom client is supplied.
func WithChatClient(client ChatClient) Option {
	return func(o *options) { o.client = client }
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(log *slog.Logger) Option {
	return func(o *options) { o.log = log }
}

// Generator produces Firefly prompts from campaign demographics.
type Generator struct {
	client ChatClient
	model  string
	limits *ratelimit.Registry
	log    *slog.Logger
}

// New builds a Generator. Completion calls are gated on the openai_chat
// resource when limits is non-nil.
func New(cfg Config, limits *ratelimit.Registry, opts ...Option) (*Generator, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	model := cfg.Model
	if model == "" {
		model = ModelGPT4
	}
	if !SupportedModel(model) {
		return nil, fmt.Errorf("%w: unsupported model %q", ErrInvalidConfig, model)
	}

	if o.client == nil {
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("%w: missing OPENAI_API_KEY", ErrInvalidConfig)
		}
		reqOpts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
		if cfg.BaseURL != "" {
			reqOpts = append(reqOpts, option.WithBaseURL(cfg.BaseURL))
		}
		client := openai.NewClient(reqOpts...)
		o.client = chatCompletions{completions: &client.Chat.Completions}
	}

	if o.log == nil {
		o.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Generator{
		client: o.client,
		model:  model,
		limits: limits,
		log:    o.log,
	}, nil
}

// Model returns the model the generator calls.
func (g *Generator) Model() string { return g.model }

// FireflyPrompt asks the model for a Firefly prompt describing background
// imagery for the given demographics. The demographics value is serialized
// as indented JSON and handed to the model as context.
func (g *Generator) FireflyPrompt(ctx context.Context, demographics any) (string, error) {
	raw, err := json.MarshalIndent(demographics, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode demographics: %w", err)
	}
	if s := string(raw); s == "null" || s == "{}" {
		return "", ErrNoDemographics
	}

	if g.limits != nil {
		if _, err := g.limits.AcquireOrWait(ctx, ratelimit.ResourceOpenAIChat); err != nil {
			return "", err
		}
	}

	g.log.DebugContext(ctx, "generating firefly prompt", slog.String("model", g.model))

	completion, err := g.client.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(g.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemInstruction),
			openai.UserMessage("\nCampaign Demographics:\n" + string(raw) + "\n"),
		},
		MaxTokens:   openai.Int(maxCompletionTokens),
		Temperature: openai.Float(completionTemp),
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCompletionFailed, err)
	}
	if len(completion.Choices) == 0 {
		return "", ErrEmptyCompletion
	}

	text := strings.TrimSpace(completion.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}
