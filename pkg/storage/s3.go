package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/creativepipe/cap/pkg/ratelimit"
)

// S3API is the subset of the S3 client used by Manager.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// PresignAPI is the subset of the S3 presign client used by Manager.
type PresignAPI interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
	PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Manager performs bucket-scoped S3 operations, each gated through the rate
// limit registry: object transfers through s3_operations, URL signing
// through s3_presigned. It is safe for concurrent use.
type Manager struct {
	client        S3API
	presigner     PresignAPI
	limits        *ratelimit.Registry
	bucket        string
	baseURL       string
	uploadTimeout time.Duration
	expiry        time.Duration
}

// Config contains the environment-driven storage settings. The bucket
// usually arrives as a CLI argument and is filled in by the caller.
type Config struct {
	Bucket               string `env:"S3_BUCKET_NAME"`
	Region               string `env:"AWS_DEFAULT_REGION" envDefault:"us-east-1"`
	AccessKeyID          string `env:"AWS_ACCESS_KEY_ID"`
	SecretKey            string `env:"AWS_SECRET_ACCESS_KEY"`
	Endpoint             string `env:"S3_ENDPOINT"`
	ForcePathStyle       bool   `env:"S3_FORCE_PATH_STYLE" envDefault:"false"`
	URLExpirationSeconds int    `env:"DEFAULT_URL_EXPIRATION" envDefault:"3600"`
}

// Expiry returns the default presigned URL lifetime.
func (c Config) Expiry() time.Duration {
	if c.URLExpirationSeconds <= 0 {
		return time.Hour
	}
	return time.Duration(c.URLExpirationSeconds) * time.Second
}

// Option configures a Manager.
type Option func(*options)

type options struct {
	httpClient    *http.Client
	client        S3API
	presigner     PresignAPI
	configOptions []func(*awsconfig.LoadOptions) error
	clientOptions []func(*s3.Options)
	uploadTimeout time.Duration
}

// WithClient sets a pre-configured S3 client. Useful for testing with mocks.
func WithClient(client S3API) Option {
	return func(o *options) { o.client = client }
}

// WithPresigner sets a pre-configured presign client. Useful for testing.
func WithPresigner(p PresignAPI) Option {
	return func(o *options) { o.presigner = p }
}

// WithHTTPClient sets a custom HTTP client for S3 requests.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) { o.httpClient = client }
}

// WithConfigOption adds a custom AWS config option.
func WithConfigOption(option func(*awsconfig.LoadOptions) error) Option {
	return func(o *options) { o.configOptions = append(o.configOptions, option) }
}

// WithClientOption adds a custom S3 client option.
func WithClientOption(option func(*s3.Options)) Option {
	return func(o *options) { o.clientOptions = append(o.clientOptions, option) }
}

// WithUploadTimeout bounds each upload. Zero leaves the caller's context
// deadline in charge.
func WithUploadTimeout(timeout time.Duration) Option {
	return func(o *options) {
		if timeout > 0 {
			o.uploadTimeout = timeout
		}
	}
}

// New creates a bucket-scoped Manager. The registry gates every operation;
// a nil registry leaves them ungated.
func New(ctx context.Context, cfg Config, limits *ratelimit.Registry, opts ...Option) (*Manager, error) {
	if cfg.Bucket == "" || cfg.Region == "" {
		return nil, fmt.Errorf("%w: bucket and region are required", ErrInvalidConfig)
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	client := o.client
	if client == nil {
		awsOptions := []func(*awsconfig.LoadOptions) error{
			awsconfig.WithRegion(cfg.Region),
		}
		if cfg.AccessKeyID != "" && cfg.SecretKey != "" {
			awsOptions = append(awsOptions,
				awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
					cfg.AccessKeyID,
					cfg.SecretKey,
					"",
				)),
			)
		}
		if o.httpClient != nil {
			awsOptions = append(awsOptions, awsconfig.WithHTTPClient(o.httpClient))
		}
		awsOptions = append(awsOptions, o.configOptions...)

		awsConfig, err := awsconfig.LoadDefaultConfig(ctx, awsOptions...)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFailedToLoadConfig, err)
		}

		client = s3.NewFromConfig(awsConfig, func(so *s3.Options) {
			if cfg.Endpoint != "" {
				so.BaseEndpoint = aws.String(cfg.Endpoint)
			}
			so.UsePathStyle = cfg.ForcePathStyle
			for _, opt := range o.clientOptions {
				opt(so)
			}
		})
	}

	presigner := o.presigner
	if presigner == nil {
		if realClient, ok := client.(*s3.Client); ok {
			presigner = s3.NewPresignClient(realClient)
		}
		// Mock clients must supply their own presigner.
	}

	baseURL := cfg.Endpoint
	if baseURL != "" {
		baseURL = fmt.Sprintf("%s/%s", strings.TrimSuffix(baseURL, "/"), cfg.Bucket)
	} else {
		baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	}

	return &Manager{
		client:        client,
		presigner:     presigner,
		limits:        limits,
		bucket:        cfg.Bucket,
		baseURL:       baseURL + "/",
		uploadTimeout: o.uploadTimeout,
		expiry:        cfg.Expiry(),
	}, nil
}

// Bucket returns the bucket this manager operates on.
func (m *Manager) Bucket() string { return m.bucket }

// acquire blocks on the named rate limit resource, honoring the registry's
// wait mode. Gate errors surface to the caller unchanged.
func (m *Manager) acquire(ctx context.Context, resource string) error {
	if m.limits == nil {
		return nil
	}
	_, err := m.limits.AcquireOrWait(ctx, resource)
	return err
}

// classifyError converts S3 errors to storage sentinels.
func classifyError(err error, operation string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s", ErrOperationTimeout, operation)
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %s", ErrOperationCanceled, operation)
	}

	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return fmt.Errorf("%w: %s", ErrObjectNotFound, err)
	}
	var nsb *types.NoSuchBucket
	if errors.As(err, &nsb) {
		return ErrBucketNotFound
	}
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return fmt.Errorf("%w: %s", ErrObjectNotFound, operation)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "AccessDenied":
			return fmt.Errorf("%w: %s", ErrAccessDenied, operation)
		case "RequestTimeout":
			return fmt.Errorf("%w: %s", ErrRequestTimeout, operation)
		case "SlowDown", "ServiceUnavailable":
			return fmt.Errorf("%w: %s", ErrServiceUnavailable, operation)
		case "NoSuchKey", "NotFound":
			return fmt.Errorf("%w: %s", ErrObjectNotFound, err)
		case "NoSuchBucket":
			return ErrBucketNotFound
		default:
			return fmt.Errorf("%s failed (code: %s): %w", operation, apiErr.ErrorCode(), err)
		}
	}

	return fmt.Errorf("%s failed: %w", operation, err)
}

func validateKey(key string) (string, error) {
	key = strings.TrimPrefix(key, "/")
	if key == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidKey)
	}
	if strings.Contains(key, "..") {
		return "", fmt.Errorf("%w: %s", ErrInvalidKey, key)
	}
	return key, nil
}

// Upload streams body into the bucket under key.
func (m *Manager) Upload(ctx context.Context, key string, body io.Reader, contentType string) error {
	key, err := validateKey(key)
	if err != nil {
		return err
	}
	if err := m.acquire(ctx, ratelimit.ResourceS3Operations); err != nil {
		return err
	}

	if m.uploadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.uploadTimeout)
		defer cancel()
	}

	if contentType == "" {
		contentType = ContentTypeForKey(key)
	}

	_, err = m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(m.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	return classifyError(err, "upload object")
}

// UploadFile uploads a local file, deriving the content type from its
// extension.
func (m *Manager) UploadFile(ctx context.Context, key, localPath string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", localPath, err)
	}
	defer func() { _ = f.Close() }()

	return m.Upload(ctx, key, f, ContentTypeForKey(localPath))
}

// Download fetches an object and writes it to localPath, creating parent
// directories as needed.
func (m *Manager) Download(ctx context.Context, key, localPath string) error {
	key, err := validateKey(key)
	if err != nil {
		return err
	}
	if err := m.acquire(ctx, ratelimit.ResourceS3Operations); err != nil {
		return err
	}

	out, err := m.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(m.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return classifyError(err, "download object")
	}
	defer func() { _ = out.Body.Close() }()

	if dir := filepath.Dir(localPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}

	f, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", localPath, err)
	}
	defer func() { _ = f.Close() }()

	if _, err := io.Copy(f, out.Body); err != nil {
		return fmt.Errorf("write %s: %w", localPath, err)
	}
	return nil
}

// Exists reports whether an object is present in the bucket.
func (m *Manager) Exists(ctx context.Context, key string) (bool, error) {
	key, err := validateKey(key)
	if err != nil {
		return false, err
	}
	if err := m.acquire(ctx, ratelimit.ResourceS3Operations); err != nil {
		return false, err
	}

	_, err = m.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(m.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		classified := classifyError(err, "head object")
		if errors.Is(classified, ErrObjectNotFound) {
			return false, nil
		}
		return false, classified
	}
	return true, nil
}

// Ping verifies the bucket exists and the credentials can reach it.
func (m *Manager) Ping(ctx context.Context) error {
	if err := m.acquire(ctx, ratelimit.ResourceS3Operations); err != nil {
		return err
	}
	_, err := m.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(m.bucket),
	})
	return classifyError(err, "head bucket")
}

// PresignDownload returns a time-limited GET URL for an existing object.
// Expiry of zero uses the configured default.
func (m *Manager) PresignDownload(ctx context.Context, key string, expiry time.Duration) (string, error) {
	key, err := validateKey(key)
	if err != nil {
		return "", err
	}
	if m.presigner == nil {
		return "", fmt.Errorf("%w: no presigner configured", ErrInvalidConfig)
	}
	if err := m.acquire(ctx, ratelimit.ResourceS3Presigned); err != nil {
		return "", err
	}
	if expiry <= 0 {
		expiry = m.expiry
	}

	// Signing is local and does not verify the object exists.
	if _, err := m.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(m.bucket),
		Key:    aws.String(key),
	}); err != nil {
		return "", classifyError(err, "head object")
	}

	req, err := m.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(m.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expiry))
	if err != nil {
		return "", classifyError(err, "presign download")
	}
	return req.URL, nil
}

// PresignUpload returns a time-limited PUT URL. Expiry of zero uses the
// configured default.
func (m *Manager) PresignUpload(ctx context.Context, key string, expiry time.Duration, contentType string) (string, error) {
	key, err := validateKey(key)
	if err != nil {
		return "", err
	}
	if m.presigner == nil {
		return "", fmt.Errorf("%w: no presigner configured", ErrInvalidConfig)
	}
	if err := m.acquire(ctx, ratelimit.ResourceS3Presigned); err != nil {
		return "", err
	}
	if expiry <= 0 {
		expiry = m.expiry
	}

	input := &s3.PutObjectInput{
		Bucket: aws.String(m.bucket),
		Key:    aws.String(key),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	req, err := m.presigner.PresignPutObject(ctx, input, s3.WithPresignExpires(expiry))
	if err != nil {
		return "", classifyError(err, "presign upload")
	}
	return req.URL, nil
}

// PublicURL returns the unsigned URL of an object. It only resolves if the
// bucket policy makes the object public.
func (m *Manager) PublicURL(key string) string {
	return m.baseURL + strings.TrimPrefix(key, "/")
}
