package cmd

import (
	"context"
	"log/slog"
	"time"

	"github.com/creativepipe/cap/pkg/adobe"
	"github.com/creativepipe/cap/pkg/config"
	"github.com/creativepipe/cap/pkg/prompts"
	"github.com/creativepipe/cap/pkg/ratelimit"
	"github.com/creativepipe/cap/pkg/storage"
)

// presignTTL is the lifetime of presigned URLs handed to Adobe jobs. Jobs
// can queue for a while, so it is deliberately generous.
const presignTTL = 2 * time.Hour

// limitsRegistry builds the process-wide rate limit registry from the
// environment. Every upstream client shares it.
func limitsRegistry() (*ratelimit.Registry, error) {
	var cfg ratelimit.EnvConfig
	if err := config.Load(&cfg); err != nil {
		return nil, err
	}
	return ratelimit.NewFromEnv(cfg, ratelimit.WithLogger(slog.Default()))
}

// storageManager builds the S3 manager, letting command flags override the
// bucket and region from the environment.
func storageManager(ctx context.Context, limits *ratelimit.Registry, bucket, region string) (*storage.Manager, error) {
	var cfg storage.Config
	if err := config.Load(&cfg); err != nil {
		return nil, err
	}
	if bucket != "" {
		cfg.Bucket = bucket
	}
	if region != "" {
		cfg.Region = region
	}
	return storage.New(ctx, cfg, limits)
}

func adobeConfig() (adobe.Config, error) {
	var cfg adobe.Config
	err := config.Load(&cfg)
	return cfg, err
}

func fireflyClient(ctx context.Context, limits *ratelimit.Registry) (*adobe.Firefly, error) {
	cfg, err := adobeConfig()
	if err != nil {
		return nil, err
	}
	return adobe.NewFirefly(ctx, cfg, limits, adobe.WithLogger(slog.Default()))
}

func photoshopClient(ctx context.Context, limits *ratelimit.Registry) (*adobe.Photoshop, error) {
	cfg, err := adobeConfig()
	if err != nil {
		return nil, err
	}
	return adobe.NewPhotoshop(ctx, cfg, limits, adobe.WithLogger(slog.Default()))
}

// promptGenerator builds the OpenAI-backed prompt writer. A non-empty model
// overrides the environment's OPENAI_MODEL.
func promptGenerator(limits *ratelimit.Registry, model string) (*prompts.Generator, error) {
	var cfg prompts.Config
	if err := config.Load(&cfg); err != nil {
		return nil, err
	}
	if model != "" {
		cfg.Model = model
	}
	return prompts.New(cfg, limits, prompts.WithLogger(slog.Default()))
}
