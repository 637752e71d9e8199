// Package usageapi fetches rolling-window utilization from the provider's
// OAuth usage endpoint.
//
// The fetch is strictly best-effort: it times out after five seconds and
// any failure (no token, network error, bad payload) degrades to nil rather
// than an error. Responses are cached in the shared store for one minute so
// concurrent statusline processes do not stampede the endpoint.
// CLAUDE_STATUSLINE_FETCH_USAGE turns the fetch off entirely.
package usageapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/theirongolddev/claudeline/internal/store"
)

const (
	// DefaultBaseURL is the OAuth usage endpoint root.
	DefaultBaseURL = "https://api.anthropic.com"

	usagePath    = "/api/oauth/usage"
	betaHeader   = "oauth-2025-04-20"
	fetchTimeout = 5 * time.Second
	cacheTTL     = 60 * time.Second
	cacheKey     = "oauth_usage"
)

// WindowUsage is one rolling bucket from the endpoint: percentage used and
// the time the bucket resets.
type WindowUsage struct {
	Utilization float64    `json:"utilization"`
	ResetsAt    *time.Time `json:"resets_at"`
}

// Summary carries the buckets the statusline renders. Either bucket may be
// absent depending on the account's plan.
type Summary struct {
	FiveHour *WindowUsage `json:"five_hour"`
	SevenDay *WindowUsage `json:"seven_day"`
}

// Enabled reports whether the remote fetch should run. The fetch is on by
// default; CLAUDE_STATUSLINE_FETCH_USAGE set to anything but an affirmative
// value turns it off.
func Enabled() bool {
	raw, ok := os.LookupEnv("CLAUDE_STATUSLINE_FETCH_USAGE")
	if !ok {
		return true
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "1", "true", "yes", "on":
		return true
	}
	return false
}

// Client talks to the usage endpoint. The zero value is not usable; use
// NewClient.
type Client struct {
	httpClient *http.Client
	baseURL    string
	roots      []string
}

// NewClient builds a client that looks for OAuth credentials under the
// given config roots when no token is present in the environment.
func NewClient(roots []string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: fetchTimeout},
		baseURL:    DefaultBaseURL,
		roots:      roots,
	}
}

// NewClientForTest builds a client pointed at an arbitrary endpoint with a
// caller-controlled http.Client.
func NewClientForTest(baseURL string, httpClient *http.Client, roots []string) *Client {
	return &Client{httpClient: httpClient, baseURL: baseURL, roots: roots}
}

// Fetch returns the current window utilization, consulting the shared
// store's response cache first. A nil Summary with nil error means the
// fetch was skipped or failed softly; the statusline renders without it.
func (c *Client) Fetch(ctx context.Context, now time.Time) (*Summary, error) {
	if raw, ok := store.CachedResponse(cacheKey, now); ok {
		var s Summary
		if err := json.Unmarshal([]byte(raw), &s); err == nil {
			return &s, nil
		}
		// Corrupt cache entry: fall through to a live fetch.
	}

	token, err := c.resolveToken()
	if err != nil {
		return nil, nil
	}

	s, err := c.fetchLive(ctx, token)
	if err != nil {
		return nil, nil
	}

	if raw, err := json.Marshal(s); err == nil {
		store.StoreResponse(cacheKey, string(raw), cacheTTL, now)
	}
	return s, nil
}

func (c *Client) fetchLive(ctx context.Context, token string) (*Summary, error) {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+usagePath, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("anthropic-beta", betaHeader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("usage endpoint returned %d: %s", resp.StatusCode, body)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}

	var s Summary
	if err := json.Unmarshal(body, &s); err != nil {
		return nil, fmt.Errorf("parsing usage response: %w", err)
	}
	return &s, nil
}

// resolveToken prefers environment tokens over the on-disk OAuth
// credentials file.
func (c *Client) resolveToken() (string, error) {
	for _, env := range []string{"CLAUDE_CODE_OAUTH_TOKEN", "ANTHROPIC_AUTH_TOKEN"} {
		if tok := os.Getenv(env); tok != "" {
			return tok, nil
		}
	}
	for _, root := range c.roots {
		if tok, err := readCredentialsFile(filepath.Join(root, ".credentials.json")); err == nil {
			return tok, nil
		}
	}
	return "", errors.New("no oauth token available")
}

func readCredentialsFile(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	var creds struct {
		ClaudeAiOauth struct {
			AccessToken string `json:"accessToken"`
		} `json:"claudeAiOauth"`
	}
	if err := json.Unmarshal(raw, &creds); err != nil {
		return "", err
	}
	if creds.ClaudeAiOauth.AccessToken == "" {
		return "", errors.New("credentials file has no access token")
	}
	return creds.ClaudeAiOauth.AccessToken, nil
}
