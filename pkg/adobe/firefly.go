package adobe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/creativepipe/cap/pkg/ratelimit"
)

// Firefly generates images with the Firefly V3 async API. Calls draw from
// the adobe_firefly rate limit resource.
type Firefly struct {
	client  *Client
	baseURL string
}

// NewFirefly builds a Firefly client.
func NewFirefly(ctx context.Context, cfg Config, limits *ratelimit.Registry, opts ...ClientOption) (*Firefly, error) {
	client, err := NewClient(ctx, cfg, ScopeFirefly, ratelimit.ResourceAdobeFirefly, limits, opts...)
	if err != nil {
		return nil, err
	}
	return &Firefly{
		client:  client,
		baseURL: strings.TrimSuffix(cfg.FireflyBaseURL, "/"),
	}, nil
}

// GenerateRequest describes one text-to-image job.
type GenerateRequest struct {
	Prompt        string
	NumVariations int
	Width         int
	Height        int
	Locale        string
	ContentClass  string
}

func (r GenerateRequest) withDefaults() GenerateRequest {
	if r.NumVariations <= 0 {
		r.NumVariations = 1
	}
	if r.Width <= 0 {
		r.Width = 1024
	}
	if r.Height <= 0 {
		r.Height = 1024
	}
	if r.Locale == "" {
		r.Locale = "en-US"
	}
	if r.ContentClass == "" {
		r.ContentClass = "photo"
	}
	return r
}

type generatePayload struct {
	Prompt                  string    `json:"prompt"`
	NumVariations           int       `json:"numVariations"`
	Size                    imageSize `json:"size"`
	PromptBiasingLocaleCode string    `json:"promptBiasingLocaleCode"`
	ContentClass            string    `json:"contentClass"`
}

type imageSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Generate submits an async generation job and returns its status URL.
func (f *Firefly) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return "", fmt.Errorf("%w: empty prompt", ErrInvalidConfig)
	}
	req = req.withDefaults()

	f.client.log.InfoContext(ctx, "generating firefly images",
		slog.Int("variations", req.NumVariations),
		slog.String("content_class", req.ContentClass),
	)

	payload := generatePayload{
		Prompt:                  req.Prompt,
		NumVariations:           req.NumVariations,
		Size:                    imageSize{Width: req.Width, Height: req.Height},
		PromptBiasingLocaleCode: req.Locale,
		ContentClass:            req.ContentClass,
	}
	return f.client.SubmitJob(ctx, f.baseURL+"/images/generate-async", payload)
}

// Await polls a generation job to completion and returns the image URLs.
func (f *Firefly) Await(ctx context.Context, statusURL string) ([]string, error) {
	raw, err := f.client.PollJob(ctx, statusURL)
	if err != nil {
		return nil, err
	}

	urls := extractImageURLs(raw)
	if len(urls) == 0 {
		return nil, ErrNoImages
	}
	return urls, nil
}

// GenerateAndAwait runs Generate then Await.
func (f *Firefly) GenerateAndAwait(ctx context.Context, req GenerateRequest) ([]string, error) {
	statusURL, err := f.Generate(ctx, req)
	if err != nil {
		return nil, err
	}
	return f.Await(ctx, statusURL)
}

// imageRef accepts both the object and bare-string forms Adobe has used
// for image references.
type imageRef struct {
	URL string
}

func (r *imageRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	if data[0] == '"' {
		return json.Unmarshal(data, &r.URL)
	}

	var obj struct {
		URL  string `json:"url"`
		Href string `json:"href"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	if obj.URL != "" {
		r.URL = obj.URL
	} else {
		r.URL = obj.Href
	}
	return nil
}

type fireflyResult struct {
	Outputs []fireflyOutput `json:"outputs"`
	Images  []imageRef      `json:"images"`
	URLs    []string        `json:"urls"`
	Result  json.RawMessage `json:"result"`
}

type fireflyOutput struct {
	Image imageRef `json:"image"`
	URL   string   `json:"url"`
	Href  string   `json:"href"`
}

// extractImageURLs collects image URLs from the result shapes the Firefly
// service has produced across API revisions.
func extractImageURLs(raw json.RawMessage) []string {
	var res fireflyResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil
	}

	// Jobs polled through the job service nest the payload under result.
	nested := bytes.TrimSpace(res.Result)
	if len(res.Outputs) == 0 && len(nested) > 0 && nested[0] == '{' {
		var inner fireflyResult
		if err := json.Unmarshal(nested, &inner); err == nil {
			res.Outputs = inner.Outputs
		}
	}

	var urls []string
	for _, out := range res.Outputs {
		if out.Image.URL != "" {
			urls = append(urls, out.Image.URL)
		}
		if out.URL != "" {
			urls = append(urls, out.URL)
		} else if out.Href != "" {
			urls = append(urls, out.Href)
		}
	}
	for _, img := range res.Images {
		if img.URL != "" {
			urls = append(urls, img.URL)
		}
	}
	urls = append(urls, res.URLs...)

	if len(nested) > 0 && nested[0] == '[' {
		var items []imageRef
		if err := json.Unmarshal(nested, &items); err == nil {
			for _, item := range items {
				if item.URL != "" {
					urls = append(urls, item.URL)
				}
			}
		}
	}
	return urls
}
