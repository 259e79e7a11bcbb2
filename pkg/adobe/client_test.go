package adobe_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/creativepipe/cap/pkg/adobe"
	"github.com/creativepipe/cap/pkg/ratelimit"
)

func testConfig(authURL string) adobe.Config {
	return adobe.Config{
		ClientID:              "test-client-id",
		ClientSecret:          "test-client-secret",
		AuthURL:               authURL,
		FireflyBaseURL:        "https://firefly.invalid/v3",
		PhotoshopBaseURL:      "https://photoshop.invalid/psdService",
		RequestTimeoutSeconds: 5,
		PollIntervalSeconds:   1,
		MaxPollAttempts:       10,
	}
}

func staticTokens() adobe.ClientOption {
	return adobe.WithTokenSource(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "test-token"}))
}

func newTestClient(t *testing.T, srv *httptest.Server, limits *ratelimit.Registry, opts ...adobe.ClientOption) *adobe.Client {
	t.Helper()
	opts = append([]adobe.ClientOption{
		staticTokens(),
		adobe.WithHTTPClient(srv.Client()),
		adobe.WithPollInterval(time.Millisecond),
	}, opts...)

	client, err := adobe.NewClient(context.Background(), testConfig("https://ims.invalid/token"),
		adobe.ScopePhotoshop, ratelimit.ResourceAdobePhotoshop, limits, opts...)
	require.NoError(t, err)
	return client
}

func TestNewClient_InvalidConfig(t *testing.T) {
	t.Parallel()

	cfg := testConfig("https://ims.invalid/token")
	cfg.ClientSecret = ""

	_, err := adobe.NewClient(context.Background(), cfg, adobe.ScopePhotoshop, ratelimit.ResourceAdobePhotoshop, nil)
	assert.ErrorIs(t, err, adobe.ErrInvalidConfig)
}

func TestClient_SubmitJob(t *testing.T) {
	t.Parallel()

	t.Run("sets auth headers", func(t *testing.T) {
		t.Parallel()
		var gotAuth, gotKey, gotContentType string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			gotKey = r.Header.Get("x-api-key")
			gotContentType = r.Header.Get("Content-Type")
			fmt.Fprint(w, `{"statusUrl":"https://api.example.com/status/1"}`)
		}))
		defer srv.Close()

		client := newTestClient(t, srv, nil)
		statusURL, err := client.SubmitJob(context.Background(), srv.URL+"/submit", map[string]string{"k": "v"})
		require.NoError(t, err)

		assert.Equal(t, "https://api.example.com/status/1", statusURL)
		assert.Equal(t, "Bearer test-token", gotAuth)
		assert.Equal(t, "test-client-id", gotKey)
		assert.Equal(t, "application/json", gotContentType)
	})

	t.Run("status url forms", func(t *testing.T) {
		t.Parallel()
		tests := []struct {
			name     string
			body     string
			expected string
		}{
			{
				name:     "statusUrl field",
				body:     `{"statusUrl":"https://api.example.com/status/a"}`,
				expected: "https://api.example.com/status/a",
			},
			{
				name:     "links status href",
				body:     `{"_links":{"status":{"href":"https://api.example.com/status/b"}}}`,
				expected: "https://api.example.com/status/b",
			},
			{
				name:     "links self href",
				body:     `{"_links":{"self":{"href":"https://api.example.com/status/c"}}}`,
				expected: "https://api.example.com/status/c",
			},
			{
				name:     "bare href",
				body:     `{"href":"https://api.example.com/status/d"}`,
				expected: "https://api.example.com/status/d",
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				t.Parallel()
				srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					fmt.Fprint(w, tt.body)
				}))
				defer srv.Close()

				client := newTestClient(t, srv, nil)
				statusURL, err := client.SubmitJob(context.Background(), srv.URL+"/submit", nil)
				require.NoError(t, err)
				assert.Equal(t, tt.expected, statusURL)
			})
		}
	})

	t.Run("job id resolves against submit url", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"jobId":"job-123"}`)
		}))
		defer srv.Close()

		client := newTestClient(t, srv, nil)
		statusURL, err := client.SubmitJob(context.Background(), srv.URL+"/images/generate-async", nil)
		require.NoError(t, err)
		assert.Equal(t, srv.URL+"/images/generate-async/job-123", statusURL)
	})

	t.Run("no status url", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{}`)
		}))
		defer srv.Close()

		client := newTestClient(t, srv, nil)
		_, err := client.SubmitJob(context.Background(), srv.URL+"/submit", nil)
		assert.ErrorIs(t, err, adobe.ErrNoStatusURL)
	})

	t.Run("http error surfaces status and body", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"reason":"malformed input"}`)
		}))
		defer srv.Close()

		client := newTestClient(t, srv, nil)
		_, err := client.SubmitJob(context.Background(), srv.URL+"/submit", nil)
		require.ErrorIs(t, err, adobe.ErrUnexpectedStatus)
		assert.Contains(t, err.Error(), "400")
		assert.Contains(t, err.Error(), "malformed input")
	})
}

func TestClient_PollJob(t *testing.T) {
	t.Parallel()

	t.Run("polls until succeeded", func(t *testing.T) {
		t.Parallel()
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) < 3 {
				fmt.Fprint(w, `{"status":"running"}`)
				return
			}
			fmt.Fprint(w, `{"status":"succeeded","outputs":[{"status":"succeeded"}]}`)
		}))
		defer srv.Close()

		client := newTestClient(t, srv, nil)
		raw, err := client.PollJob(context.Background(), srv.URL+"/status")
		require.NoError(t, err)
		assert.Equal(t, int32(3), calls.Load())

		var result struct {
			Status string `json:"status"`
		}
		require.NoError(t, json.Unmarshal(raw, &result))
		assert.Equal(t, "succeeded", result.Status)
	})

	t.Run("status nested in outputs", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"outputs":[{"status":"succeeded","layers":[]}]}`)
		}))
		defer srv.Close()

		client := newTestClient(t, srv, nil)
		_, err := client.PollJob(context.Background(), srv.URL+"/status")
		require.NoError(t, err)
	})

	t.Run("missing status with outputs treated as done", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"outputs":[{"layers":[{"id":1,"name":"Background"}]}]}`)
		}))
		defer srv.Close()

		client := newTestClient(t, srv, nil)
		raw, err := client.PollJob(context.Background(), srv.URL+"/status")
		require.NoError(t, err)
		assert.Contains(t, string(raw), "Background")
	})

	t.Run("failed job with message", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"status":"failed","message":"font missing"}`)
		}))
		defer srv.Close()

		client := newTestClient(t, srv, nil)
		_, err := client.PollJob(context.Background(), srv.URL+"/status")
		require.ErrorIs(t, err, adobe.ErrJobFailed)
		assert.Contains(t, err.Error(), "font missing")
	})

	t.Run("failed job with structured error", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"status":"failed","error":{"code":"InputValidationError"}}`)
		}))
		defer srv.Close()

		client := newTestClient(t, srv, nil)
		_, err := client.PollJob(context.Background(), srv.URL+"/status")
		require.ErrorIs(t, err, adobe.ErrJobFailed)
		assert.Contains(t, err.Error(), "InputValidationError")
	})

	t.Run("attempt budget exhausted", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"status":"running"}`)
		}))
		defer srv.Close()

		client := newTestClient(t, srv, nil, adobe.WithMaxPollAttempts(2))
		_, err := client.PollJob(context.Background(), srv.URL+"/status")
		assert.ErrorIs(t, err, adobe.ErrJobTimeout)
	})

	t.Run("context cancellation stops polling", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"status":"running"}`)
		}))
		defer srv.Close()

		client := newTestClient(t, srv, nil, adobe.WithPollInterval(time.Hour))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
		defer cancel()

		start := time.Now()
		_, err := client.PollJob(ctx, srv.URL+"/status")
		require.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Less(t, time.Since(start), time.Second)
	})

	t.Run("polls draw from the service budget", func(t *testing.T) {
		t.Parallel()
		limits := ratelimit.New(ratelimit.WithWaitMode(false))
		require.NoError(t, limits.Configure(ratelimit.ResourceAdobePhotoshop, ratelimit.Config{
			Algorithm:   ratelimit.FixedWindow,
			MaxRequests: 2,
			TimeWindow:  time.Minute,
		}))

		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			fmt.Fprint(w, `{"status":"running"}`)
		}))
		defer srv.Close()

		client := newTestClient(t, srv, limits, adobe.WithMaxPollAttempts(5))
		_, err := client.PollJob(context.Background(), srv.URL+"/status")
		require.ErrorIs(t, err, ratelimit.ErrRateLimitExceeded)
		assert.Equal(t, int32(2), calls.Load())
	})
}
