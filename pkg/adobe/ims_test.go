package adobe_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creativepipe/cap/pkg/adobe"
	"github.com/creativepipe/cap/pkg/ratelimit"
)

func TestTokenSource_FetchesAndCaches(t *testing.T) {
	t.Parallel()

	var authCalls atomic.Int32
	var gotGrant, gotClientID, gotSecret, gotScope string
	authSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authCalls.Add(1)
		require.NoError(t, r.ParseForm())
		gotGrant = r.Form.Get("grant_type")
		gotClientID = r.Form.Get("client_id")
		gotSecret = r.Form.Get("client_secret")
		gotScope = r.Form.Get("scope")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"ims-token-1","token_type":"Bearer","expires_in":3600}`)
	}))
	defer authSrv.Close()

	var gotAuth string
	apiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		fmt.Fprint(w, `{"statusUrl":"https://api.example.com/status/1"}`)
	}))
	defer apiSrv.Close()

	client, err := adobe.NewClient(context.Background(), testConfig(authSrv.URL),
		adobe.ScopeFirefly, ratelimit.ResourceAdobeFirefly, nil,
		adobe.WithHTTPClient(apiSrv.Client()))
	require.NoError(t, err)

	_, err = client.SubmitJob(context.Background(), apiSrv.URL+"/submit", nil)
	require.NoError(t, err)

	assert.Equal(t, "client_credentials", gotGrant)
	assert.Equal(t, "test-client-id", gotClientID)
	assert.Equal(t, "test-client-secret", gotSecret)
	assert.Equal(t, adobe.ScopeFirefly, gotScope)
	assert.Equal(t, "Bearer ims-token-1", gotAuth)

	// Second call reuses the cached token.
	_, err = client.SubmitJob(context.Background(), apiSrv.URL+"/submit", nil)
	require.NoError(t, err)
	assert.Equal(t, int32(1), authCalls.Load())
}

func TestTokenSource_AuthFailure(t *testing.T) {
	t.Parallel()

	authSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":"invalid_client"}`)
	}))
	defer authSrv.Close()

	apiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"statusUrl":"https://api.example.com/status/1"}`)
	}))
	defer apiSrv.Close()

	client, err := adobe.NewClient(context.Background(), testConfig(authSrv.URL),
		adobe.ScopePhotoshop, ratelimit.ResourceAdobePhotoshop, nil,
		adobe.WithHTTPClient(apiSrv.Client()))
	require.NoError(t, err)

	_, err = client.SubmitJob(context.Background(), apiSrv.URL+"/submit", nil)
	assert.ErrorIs(t, err, adobe.ErrAuthFailed)
}

func TestTokenSource_RefreshGatedByRegistry(t *testing.T) {
	t.Parallel()

	limits := ratelimit.New(ratelimit.WithWaitMode(false))
	require.NoError(t, limits.Configure(ratelimit.ResourceAdobeAuth, ratelimit.Config{
		Algorithm:   ratelimit.FixedWindow,
		MaxRequests: 1,
		TimeWindow:  time.Minute,
	}))
	require.NoError(t, limits.Configure(ratelimit.ResourceAdobeFirefly, ratelimit.Config{
		Algorithm:   ratelimit.FixedWindow,
		MaxRequests: 10,
		TimeWindow:  time.Minute,
	}))

	var authCalls atomic.Int32
	authSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authCalls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		// expires_in below the client's early-expiry margin forces a
		// refresh on every use.
		fmt.Fprint(w, `{"access_token":"ims-short","token_type":"Bearer","expires_in":1}`)
	}))
	defer authSrv.Close()

	apiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"statusUrl":"https://api.example.com/status/1"}`)
	}))
	defer apiSrv.Close()

	client, err := adobe.NewClient(context.Background(), testConfig(authSrv.URL),
		adobe.ScopeFirefly, ratelimit.ResourceAdobeFirefly, limits,
		adobe.WithHTTPClient(apiSrv.Client()))
	require.NoError(t, err)

	_, err = client.SubmitJob(context.Background(), apiSrv.URL+"/submit", nil)
	require.NoError(t, err)

	_, err = client.SubmitJob(context.Background(), apiSrv.URL+"/submit", nil)
	require.ErrorIs(t, err, ratelimit.ErrRateLimitExceeded)
	assert.Equal(t, int32(1), authCalls.Load())
}
