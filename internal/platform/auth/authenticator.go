package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"brokerhub/internal/pkg/errors"
	"brokerhub/internal/platform/config"
	"brokerhub/internal/platform/identity"
)

// Resolver maps a verified subject to its user and active membership.
type Resolver interface {
	Resolve(ctx context.Context, subject string) (*identity.Resolution, error)
}

// headerStrategy builds a context from request headers alone. It returns
// nil, nil when the headers it needs are absent.
type headerStrategy func(h http.Header) (*Context, error)

var errMissingCredentials = errors.Unauthorized("Missing or invalid authorization header")

type Authenticator struct {
	verifier   *Verifier
	resolver   Resolver
	devHeaders headerStrategy
}

// NewAuthenticator fixes the dev-header strategy for the life of the
// process. It is only installed in development and never exists in
// binaries built with the production tag.
func NewAuthenticator(verifier *Verifier, resolver Resolver, env config.Environment) *Authenticator {
	a := &Authenticator{
		verifier:   verifier,
		resolver:   resolver,
		devHeaders: devHeaderStrategy(env),
	}
	if a.devHeaders != nil {
		log.Warn().Str("environment", string(env)).Msg("dev header authentication enabled")
	}
	return a
}

// bearer reports whether the Authorization header uses the Bearer scheme and
// returns the token that follows it.
func bearer(h http.Header) (string, bool) {
	scheme, token, _ := strings.Cut(strings.TrimSpace(h.Get("Authorization")), " ")
	if !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	return strings.TrimSpace(token), true
}

// Authenticate builds the caller's context. A Bearer credential always takes
// the verified path, even when dev headers are also present.
func (a *Authenticator) Authenticate(ctx context.Context, h http.Header) (*Context, error) {
	if token, ok := bearer(h); ok {
		if token == "" {
			return nil, errMissingCredentials
		}
		return a.fromToken(ctx, token)
	}

	if a.devHeaders != nil {
		c, err := a.devHeaders(h)
		if err != nil {
			return nil, err
		}
		if c != nil {
			return c, nil
		}
	}

	return nil, errMissingCredentials
}

func (a *Authenticator) fromToken(ctx context.Context, token string) (*Context, error) {
	id, err := a.verifier.Verify(token)
	if err != nil {
		return nil, err
	}

	res, err := a.resolver.Resolve(ctx, id.Subject)
	if err != nil {
		return nil, err
	}

	return &Context{
		SubjectID:      id.Subject,
		UserID:         res.User.ID,
		OrganisationID: res.Membership.OrganisationID,
		Role:           res.Membership.Role,
		Email:          res.User.Email,
		Name:           res.User.Name,
		Credential:     token,
	}, nil
}

// AuthenticateIdentity verifies a Bearer credential without requiring a
// user or membership. Signup and invitation redemption run on it.
func (a *Authenticator) AuthenticateIdentity(h http.Header) (*Identity, error) {
	token, ok := bearer(h)
	if !ok || token == "" {
		return nil, errMissingCredentials
	}
	return a.verifier.Verify(token)
}

// AuthenticateOptional returns nil instead of an error.
func (a *Authenticator) AuthenticateOptional(ctx context.Context, h http.Header) *Context {
	c, err := a.Authenticate(ctx, h)
	if err != nil {
		return nil
	}
	return c
}
