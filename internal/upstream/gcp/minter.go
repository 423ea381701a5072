package gcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/iamcredentials/v1"
	"google.golang.org/api/option"

	"github.com/larsfn/minterra/internal/core"
)

// CloudPlatformScope is the OAuth scope requested for minted tokens.
const CloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

// DefaultLifetime keeps minted tokens short-lived: long enough for a typical
// plan or apply step, short enough to bound the blast radius of a leak.
const DefaultLifetime = time.Hour

// Minter mints short-lived access tokens through the IAM Credentials API by
// impersonating the target service account. The broker's own execution
// identity must hold roles/iam.serviceAccountTokenCreator on each target.
type Minter struct {
	svc      *iamcredentials.Service
	lifetime time.Duration
	scopes   []string
}

// NewMinter creates a Minter using Application Default Credentials unless
// overridden through opts (tests pass an endpoint and disable auth).
func NewMinter(ctx context.Context, lifetime time.Duration, scopes []string, opts ...option.ClientOption) (*Minter, error) {
	svc, err := iamcredentials.NewService(ctx, opts...)
	if err != nil {
		return nil, core.Wrap(core.KindConfig, "creating iam credentials client", err)
	}
	if lifetime <= 0 {
		lifetime = DefaultLifetime
	}
	if len(scopes) == 0 {
		scopes = []string{CloudPlatformScope}
	}
	return &Minter{svc: svc, lifetime: lifetime, scopes: scopes}, nil
}

// Mint generates a fresh access token for the given service account. Every
// call mints an independent token; nothing is cached or deduplicated.
func (m *Minter) Mint(ctx context.Context, serviceAccount string) (*core.TokenArtifact, error) {
	name := "projects/-/serviceAccounts/" + serviceAccount
	req := &iamcredentials.GenerateAccessTokenRequest{
		Lifetime: fmt.Sprintf("%ds", int(m.lifetime.Seconds())),
		Scope:    m.scopes,
	}

	resp, err := m.svc.Projects.ServiceAccounts.GenerateAccessToken(name, req).Context(ctx).Do()
	if err != nil {
		return nil, classifyMintError(err)
	}

	expiresAt, err := time.Parse(time.RFC3339, resp.ExpireTime)
	if err != nil {
		// the token is still usable, fall back to the requested lifetime
		expiresAt = time.Now().Add(m.lifetime)
	}
	return &core.TokenArtifact{
		Value:          resp.AccessToken,
		ServiceAccount: serviceAccount,
		ExpiresAt:      expiresAt,
	}, nil
}

func classifyMintError(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return core.Wrap(core.KindAuthorization, "broker is not permitted to mint for the mapped identity", err)
		case http.StatusNotFound:
			return core.Wrap(core.KindNotFound, "mapped service account not found", err)
		}
	}
	return core.Wrap(core.KindUpstream, "identity api error", err)
}
