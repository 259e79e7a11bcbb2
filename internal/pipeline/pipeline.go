// Package pipeline orchestrates the creative automation run: staging PSD
// templates in S3, driving Photoshop edits and Firefly background
// generation, and downloading the finished renditions.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/creativepipe/cap/pkg/adobe"
	"github.com/creativepipe/cap/pkg/brief"
	"github.com/creativepipe/cap/pkg/logger"
)

var (
	// ErrMissingDependency reports a Runner built without a required client.
	ErrMissingDependency = errors.New("missing pipeline dependency")
	// ErrAssetNotFound reports a template or product photo absent from the
	// local assets directory.
	ErrAssetNotFound = errors.New("asset file not found")
	// ErrNothingProcessed reports a run in which every brief failed.
	ErrNothingProcessed = errors.New("no campaign briefs processed")
)

// ObjectStore is the slice of the S3 manager the pipeline uses.
type ObjectStore interface {
	Upload(ctx context.Context, key string, body io.Reader, contentType string) error
	UploadFile(ctx context.Context, key, localPath string) error
	Download(ctx context.Context, key, localPath string) error
	PresignDownload(ctx context.Context, key string, expiry time.Duration) (string, error)
	PresignUpload(ctx context.Context, key string, expiry time.Duration, contentType string) (string, error)
}

// DocumentEditor is the slice of the Photoshop client the pipeline uses.
type DocumentEditor interface {
	CreateManifest(ctx context.Context, inputURL string) (string, error)
	EditTextLayer(ctx context.Context, edit adobe.TextEdit) (string, error)
	ReplaceSmartObject(ctx context.Context, swap adobe.SmartObjectSwap) (string, error)
	CreateRendition(ctx context.Context, inputURL, outputURL string) (string, error)
	AwaitJob(ctx context.Context, statusURL string) (json.RawMessage, error)
}

// ImageGenerator produces background images for a prompt.
type ImageGenerator interface {
	GenerateAndAwait(ctx context.Context, req adobe.GenerateRequest) ([]string, error)
}

// PromptWriter turns brief demographics into a Firefly prompt.
type PromptWriter interface {
	FireflyPrompt(ctx context.Context, demographics any) (string, error)
}

// Deps carries the clients a Runner drives. Images and Prompter may be nil
// when background generation is skipped.
type Deps struct {
	Store    ObjectStore
	Editor   DocumentEditor
	Images   ImageGenerator
	Prompter PromptWriter
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(log *slog.Logger) Option {
	return func(r *Runner) { r.log = log }
}

// WithHTTPClient sets the client used to fetch generated images from the
// Firefly CDN.
func WithHTTPClient(client *http.Client) Option {
	return func(r *Runner) { r.http = client }
}

// WithAssetsDir sets the local directory holding templates/ and images/.
func WithAssetsDir(dir string) Option {
	return func(r *Runner) { r.assetsDir = dir }
}

// WithOutputDir sets where renditions are downloaded, grouped by aspect
// ratio.
func WithOutputDir(dir string) Option {
	return func(r *Runner) { r.outputDir = dir }
}

// WithManifestsDir sets where document manifests are saved.
func WithManifestsDir(dir string) Option {
	return func(r *Runner) { r.manifestsDir = dir }
}

// WithSkipFirefly disables background generation; renditions are produced
// straight from the composed PSD.
func WithSkipFirefly(skip bool) Option {
	return func(r *Runner) { r.skipFirefly = skip }
}

// WithPresignTTL sets the lifetime of the presigned URLs handed to Adobe.
// Jobs can queue for a while, so the default is a generous two hours.
func WithPresignTTL(ttl time.Duration) Option {
	return func(r *Runner) {
		if ttl > 0 {
			r.presignTTL = ttl
		}
	}
}

// Runner executes campaign briefs against the staged clients.
type Runner struct {
	store    ObjectStore
	editor   DocumentEditor
	images   ImageGenerator
	prompter PromptWriter

	http         *http.Client
	log          *slog.Logger
	assetsDir    string
	outputDir    string
	manifestsDir string
	skipFirefly  bool
	presignTTL   time.Duration
}

// New builds a Runner. Store and Editor are always required; Images and
// Prompter only when background generation is enabled.
func New(deps Deps, opts ...Option) (*Runner, error) {
	r := &Runner{
		store:        deps.Store,
		editor:       deps.Editor,
		images:       deps.Images,
		prompter:     deps.Prompter,
		http:         &http.Client{Timeout: 2 * time.Minute},
		log:          slog.New(slog.NewTextHandler(io.Discard, nil)),
		assetsDir:    "tmp",
		outputDir:    "tmp/output",
		manifestsDir: "tmp/manifests",
		presignTTL:   2 * time.Hour,
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.store == nil {
		return nil, fmt.Errorf("%w: object store", ErrMissingDependency)
	}
	if r.editor == nil {
		return nil, fmt.Errorf("%w: document editor", ErrMissingDependency)
	}
	if !r.skipFirefly {
		if r.images == nil {
			return nil, fmt.Errorf("%w: image generator", ErrMissingDependency)
		}
		if r.prompter == nil {
			return nil, fmt.Errorf("%w: prompt writer", ErrMissingDependency)
		}
	}

	r.log = r.log.With(logger.Component("pipeline"))
	return r, nil
}

// BriefResult records what one brief produced.
type BriefResult struct {
	CampaignName string   `json:"campaign_name,omitempty"`
	Template     string   `json:"template"`
	AspectRatio  string   `json:"aspect_ratio"`
	FilesCreated []string `json:"files_created"`
}

// Summary aggregates a pipeline run.
type Summary struct {
	Processed int           `json:"processed"`
	Failed    int           `json:"failed"`
	Results   []BriefResult `json:"results"`
}

// Run processes the given brief files in order. A failing brief is logged
// and skipped so one bad campaign does not sink the batch; the run errors
// only when nothing was processed or the context is canceled.
func (r *Runner) Run(ctx context.Context, paths []string) (*Summary, error) {
	summary := &Summary{}

	for _, path := range paths {
		b, err := brief.Load(path)
		if err != nil {
			r.log.ErrorContext(ctx, "skipping unreadable brief",
				slog.String("path", path), logger.Error(err))
			summary.Failed++
			continue
		}

		result, err := r.ProcessBrief(ctx, b)
		if err != nil {
			if ctx.Err() != nil {
				return summary, ctx.Err()
			}
			r.log.ErrorContext(ctx, "brief processing failed",
				slog.String("path", path), logger.Error(err))
			summary.Failed++
			continue
		}

		summary.Processed++
		summary.Results = append(summary.Results, *result)
	}

	if summary.Processed == 0 && len(paths) > 0 {
		return summary, ErrNothingProcessed
	}
	return summary, nil
}
