package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"agenthq-backend/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

// HTTPClient talks to the identity directory's management API using a
// machine-to-machine client-credentials token. The token is cached until its
// exp claim; acquisition of the underlying credential is configuration.
type HTTPClient struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	Audience     string
	Client       *http.Client

	mu       sync.Mutex
	token    string
	tokenExp time.Time
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

func (c *HTTPClient) httpClient() *http.Client {
	if c.Client == nil {
		c.Client = &http.Client{Timeout: 15 * time.Second}
	}
	return c.Client
}

// getToken returns a cached management token, fetching a fresh one when the
// cached token is within 30s of expiry.
func (c *HTTPClient) getToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" && time.Until(c.tokenExp) > 30*time.Second {
		return c.token, nil
	}

	body, err := json.Marshal(map[string]string{
		"grant_type":    "client_credentials",
		"client_id":     c.ClientID,
		"client_secret": c.ClientSecret,
		"audience":      c.Audience,
	})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/oauth/token", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: token: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: token: status %d", ErrUnavailable, resp.StatusCode)
	}
	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("%w: token: %v", ErrUnavailable, err)
	}

	c.token = tr.AccessToken
	c.tokenExp = tokenExpiry(tr)
	return c.token, nil
}

// tokenExpiry reads the exp claim off the access token; the directory's
// expires_in hint is the fallback for opaque tokens.
func tokenExpiry(tr tokenResponse) time.Time {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tr.AccessToken, &claims); err == nil && claims.ExpiresAt != nil {
		return claims.ExpiresAt.Time
	}
	if tr.ExpiresIn > 0 {
		return time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	}
	return time.Now().Add(time.Hour)
}

// do performs one authenticated API call and decodes the response into out.
// A nil out discards the body. 404 maps to ErrNotFound, everything else
// non-2xx to ErrUnavailable.
func (c *HTTPClient) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	token, err := c.getToken(ctx)
	if err != nil {
		return err
	}

	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: %s %s: status %d", ErrUnavailable, method, path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrUnavailable, path, err)
	}
	return nil
}

func (c *HTTPClient) ReadProfile(ctx context.Context, agentID string) (*Profile, error) {
	var p Profile
	if err := c.do(ctx, http.MethodGet, "/api/v2/agents/"+url.PathEscape(agentID), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *HTTPClient) FindByEmail(ctx context.Context, email string) (*Profile, error) {
	var profiles []Profile
	path := "/api/v2/agents-by-email?email=" + url.QueryEscape(email)
	if err := c.do(ctx, http.MethodGet, path, nil, &profiles); err != nil {
		return nil, err
	}
	if len(profiles) == 0 {
		return nil, ErrNotFound
	}
	return &profiles[0], nil
}

func (c *HTTPClient) UpdateMetadata(ctx context.Context, agentID string, md models.Metadata) (*Profile, error) {
	var p Profile
	body := map[string]models.Metadata{"metadata": md}
	if err := c.do(ctx, http.MethodPatch, "/api/v2/agents/"+url.PathEscape(agentID), body, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *HTTPClient) search(ctx context.Context, query string) ([]Profile, error) {
	var profiles []Profile
	path := "/api/v2/agents?q=" + url.QueryEscape(query)
	if err := c.do(ctx, http.MethodGet, path, nil, &profiles); err != nil {
		return nil, err
	}
	return profiles, nil
}

func (c *HTTPClient) ListTeamRoster(ctx context.Context, teamID string) ([]Profile, error) {
	return c.search(ctx, fmt.Sprintf(`metadata.teams.id:%q`, teamID))
}

func (c *HTTPClient) ListOrganizationRoster(ctx context.Context, orgID string) ([]Profile, error) {
	return c.search(ctx, fmt.Sprintf(`metadata.organizations.id:%q`, orgID))
}

func (c *HTTPClient) ListAffiliatedTeamLeaders(ctx context.Context, orgID string) ([]Profile, error) {
	return c.search(ctx, fmt.Sprintf(`metadata.teams.organizationId:%q`, orgID))
}

// VerifyCredentials exchanges an agent's own email/password with the directory
// (resource-owner grant) and returns their profile. Used by session login only.
func (c *HTTPClient) VerifyCredentials(ctx context.Context, email, password string) (*Profile, error) {
	body, err := json.Marshal(map[string]string{
		"grant_type":    "password",
		"username":      email,
		"password":      password,
		"client_id":     c.ClientID,
		"client_secret": c.ClientSecret,
		"audience":      c.Audience,
	})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/oauth/token", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusUnauthorized {
		return nil, ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: login: status %d", ErrUnavailable, resp.StatusCode)
	}
	return c.FindByEmail(ctx, email)
}
