package adobe

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/creativepipe/cap/pkg/ratelimit"
)

// IMS scopes for the services this pipeline talks to. Adobe expects the
// comma-separated form as a single scope value.
const (
	ScopeFirefly   = "openid,AdobeID,read_organizations,firefly"
	ScopePhotoshop = "openid,AdobeID,read_organizations"
)

// newTokenSource builds the IMS server-to-server token source: the client
// credentials flow behind a reuse cache, with each actual refresh gated
// through the adobe_auth resource.
func newTokenSource(ctx context.Context, cfg Config, scope string, limits *ratelimit.Registry, httpClient *http.Client, log *slog.Logger) oauth2.TokenSource {
	if httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, httpClient)
	}
	cc := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.AuthURL,
		Scopes:       []string{scope},
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	src := &gatedTokenSource{
		ctx:    ctx,
		base:   cc.TokenSource(ctx),
		limits: limits,
		log:    log,
	}
	return oauth2.ReuseTokenSource(nil, src)
}

type gatedTokenSource struct {
	ctx    context.Context
	base   oauth2.TokenSource
	limits *ratelimit.Registry
	log    *slog.Logger
}

// Token fetches a fresh IMS token. ReuseTokenSource only calls it when the
// cached token has expired, so each call spends adobe_auth budget.
func (s *gatedTokenSource) Token() (*oauth2.Token, error) {
	if s.limits != nil {
		if _, err := s.limits.AcquireOrWait(s.ctx, ratelimit.ResourceAdobeAuth); err != nil {
			return nil, err
		}
	}

	s.log.DebugContext(s.ctx, "refreshing adobe access token")
	token, err := s.base.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}
	return token, nil
}
