// Package identity wraps the multi-tenant OpenID Connect provider used for
// administrator sign-in. It keeps a single active account per process and
// hands out fresh access tokens for management API calls.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

// DefaultAuthority accepts any organizational directory.
const DefaultAuthority = "https://login.microsoftonline.com/organizations/v2.0"

var defaultScopes = []string{
	oidc.ScopeOpenID,
	"profile",
	"email",
	"offline_access",
	"https://management.azure.com/user_impersonation",
}

// ErrNoAccount is returned when a token is requested before sign-in.
var ErrNoAccount = errors.New("no active account, interactive sign-in required")

type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	// Authority defaults to the multi-tenant organizations endpoint.
	Authority string
	// Scopes defaults to the management user_impersonation scope plus the
	// standard identity claims.
	Scopes []string
}

// Account is the signed-in principal.
type Account struct {
	TenantID string
	ObjectID string
	Username string
}

type Client struct {
	verifier     *oidc.IDTokenVerifier
	oauth2Config *oauth2.Config

	mu           sync.Mutex
	active       *Account
	refreshToken string
}

// NewClient discovers the provider metadata and prepares the OAuth2 flow.
func NewClient(ctx context.Context, config Config) (*Client, error) {
	if config.ClientID == "" {
		return nil, fmt.Errorf("client_id is required")
	}

	authority := config.Authority
	if authority == "" {
		authority = DefaultAuthority
	}
	scopes := config.Scopes
	if len(scopes) == 0 {
		scopes = defaultScopes
	}

	provider, err := oidc.NewProvider(ctx, authority)
	if err != nil {
		return nil, fmt.Errorf("failed to discover identity provider: %w", err)
	}

	// The multi-tenant authority issues tokens with a per-tenant issuer, so
	// the discovery-document issuer never matches.
	verifier := provider.Verifier(&oidc.Config{
		ClientID:        config.ClientID,
		SkipIssuerCheck: true,
	})

	return &Client{
		verifier: verifier,
		oauth2Config: &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			Endpoint:     provider.Endpoint(),
			RedirectURL:  config.RedirectURL,
			Scopes:       scopes,
		},
	}, nil
}

// SignInURL builds the interactive sign-in URL. Consent is forced so that a
// tenant administrator grants the delegated management permissions on first
// sign-in.
func (c *Client) SignInURL(state string) string {
	return c.oauth2Config.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
}

// CompleteSignIn exchanges the authorization code, verifies the identity
// token and marks the resulting account as active.
func (c *Client) CompleteSignIn(ctx context.Context, code string) (*Account, error) {
	token, err := c.oauth2Config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		return nil, fmt.Errorf("missing id_token in token response")
	}
	idToken, err := c.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("failed to verify identity token: %w", err)
	}

	var claims struct {
		TenantID string `json:"tid"`
		ObjectID string `json:"oid"`
		Username string `json:"preferred_username"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("failed to parse identity claims: %w", err)
	}
	if claims.TenantID == "" {
		return nil, fmt.Errorf("identity token carries no tenant id")
	}

	account := &Account{
		TenantID: claims.TenantID,
		ObjectID: claims.ObjectID,
		Username: claims.Username,
	}

	c.mu.Lock()
	c.active = account
	c.refreshToken = token.RefreshToken
	c.mu.Unlock()

	return account, nil
}

// ActiveAccount returns the signed-in account, or nil before sign-in.
func (c *Client) ActiveAccount() *Account {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// AcquireToken silently obtains a fresh access token for the active account.
// Wizard sessions outlive access token lifetimes, so callers request a token
// per operation instead of caching one.
func (c *Client) AcquireToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	refreshToken := c.refreshToken
	active := c.active
	c.mu.Unlock()

	if active == nil || refreshToken == "" {
		return "", ErrNoAccount
	}

	source := c.oauth2Config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	token, err := source.Token()
	if err != nil {
		return "", fmt.Errorf("silent refresh failed: %w", err)
	}

	// The provider may rotate the refresh token on use.
	if token.RefreshToken != "" && token.RefreshToken != refreshToken {
		c.mu.Lock()
		c.refreshToken = token.RefreshToken
		c.mu.Unlock()
	}

	return token.AccessToken, nil
}

// NeedsInteractiveSignIn reports whether a token acquisition failure means
// the user has to sign in again rather than retry. Transport failures and
// other transient errors are not in this class.
func NeedsInteractiveSignIn(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNoAccount) {
		return true
	}

	// A well-formed OAuth error response carries the authoritative code.
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) && retrieveErr.ErrorCode != "" {
		switch retrieveErr.ErrorCode {
		case "invalid_grant", "interaction_required", "consent_required", "login_required":
			return true
		}
		return false
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "invalid_grant") ||
		strings.Contains(msg, "interaction_required")
}
