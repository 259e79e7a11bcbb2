package ratelimit

import (
	"errors"
	"fmt"
	"time"
)

// Resource names gated by this process. Each names one quota shared by
// every caller that touches the corresponding external service.
const (
	ResourceAdobeAuth      = "adobe_auth"
	ResourceAdobeFirefly   = "adobe_firefly"
	ResourceAdobePhotoshop = "adobe_photoshop"
	ResourceOpenAIChat     = "openai_chat"
	ResourceS3Operations   = "s3_operations"
	ResourceS3Presigned    = "s3_presigned"
)

// EnvConfig is the environment surface for the built-in resource table.
// Window values are integer seconds. Defaults mirror the conservative
// per-service quotas the pipeline has always shipped with.
type EnvConfig struct {
	Enabled bool `env:"ENABLE_RATE_LIMITING" envDefault:"true"`
	Wait    bool `env:"RATE_LIMIT_WAIT" envDefault:"true"`

	AdobeAuthMaxRequests int `env:"ADOBE_AUTH_MAX_REQUESTS" envDefault:"10"`
	AdobeAuthTimeWindow  int `env:"ADOBE_AUTH_TIME_WINDOW" envDefault:"60"`
	AdobeAuthBurst       int `env:"ADOBE_AUTH_BURST_CAPACITY" envDefault:"5"`

	FireflyMaxRequests int `env:"ADOBE_FIREFLY_MAX_REQUESTS" envDefault:"20"`
	FireflyTimeWindow  int `env:"ADOBE_FIREFLY_TIME_WINDOW" envDefault:"60"`

	PhotoshopMaxRequests int `env:"ADOBE_PHOTOSHOP_MAX_REQUESTS" envDefault:"30"`
	PhotoshopTimeWindow  int `env:"ADOBE_PHOTOSHOP_TIME_WINDOW" envDefault:"60"`

	OpenAIMaxRequests int `env:"OPENAI_MAX_REQUESTS" envDefault:"60"`
	OpenAITimeWindow  int `env:"OPENAI_TIME_WINDOW" envDefault:"60"`
	OpenAIBurst       int `env:"OPENAI_BURST_CAPACITY" envDefault:"20"`

	S3MaxRequests int `env:"S3_MAX_REQUESTS" envDefault:"1000"`
	S3TimeWindow  int `env:"S3_TIME_WINDOW" envDefault:"60"`

	S3PresignedMaxRequests int `env:"S3_PRESIGNED_MAX_REQUESTS" envDefault:"100"`
	S3PresignedTimeWindow  int `env:"S3_PRESIGNED_TIME_WINDOW" envDefault:"60"`
}

type resourceConfig struct {
	name string
	cfg  Config
}

// resources expands the flat env fields into per-resource configs,
// in a stable order so registration failures are deterministic.
func (c EnvConfig) resources() []resourceConfig {
	return []resourceConfig{
		{ResourceAdobeAuth, Config{
			Algorithm:     TokenBucket,
			MaxRequests:   c.AdobeAuthMaxRequests,
			TimeWindow:    time.Duration(c.AdobeAuthTimeWindow) * time.Second,
			BurstCapacity: c.AdobeAuthBurst,
		}},
		{ResourceAdobeFirefly, Config{
			Algorithm:   SlidingWindow,
			MaxRequests: c.FireflyMaxRequests,
			TimeWindow:  time.Duration(c.FireflyTimeWindow) * time.Second,
		}},
		{ResourceAdobePhotoshop, Config{
			Algorithm:   SlidingWindow,
			MaxRequests: c.PhotoshopMaxRequests,
			TimeWindow:  time.Duration(c.PhotoshopTimeWindow) * time.Second,
		}},
		{ResourceOpenAIChat, Config{
			Algorithm:     TokenBucket,
			MaxRequests:   c.OpenAIMaxRequests,
			TimeWindow:    time.Duration(c.OpenAITimeWindow) * time.Second,
			BurstCapacity: c.OpenAIBurst,
		}},
		{ResourceS3Operations, Config{
			Algorithm:   SlidingWindow,
			MaxRequests: c.S3MaxRequests,
			TimeWindow:  time.Duration(c.S3TimeWindow) * time.Second,
		}},
		{ResourceS3Presigned, Config{
			Algorithm:   SlidingWindow,
			MaxRequests: c.S3PresignedMaxRequests,
			TimeWindow:  time.Duration(c.S3PresignedTimeWindow) * time.Second,
		}},
	}
}

// NewFromEnv builds a registry carrying the built-in resource table with
// environment overrides applied. A resource failing validation is skipped
// and reported; the remaining resources register normally, so one bad
// override never takes down the rest.
func NewFromEnv(cfg EnvConfig, opts ...Option) (*Registry, error) {
	base := append([]Option{WithEnabled(cfg.Enabled), WithWaitMode(cfg.Wait)}, opts...)
	r := New(base...)

	var errs []error
	for _, res := range cfg.resources() {
		if err := r.Configure(res.name, res.cfg); err != nil {
			errs = append(errs, fmt.Errorf("register %s: %w", res.name, err))
		}
	}
	if len(errs) > 0 {
		return r, errors.Join(errs...)
	}
	return r, nil
}
