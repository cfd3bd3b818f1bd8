package googleads

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const (
	defaultTokenURL = "https://oauth2.googleapis.com/token"

	// Refresh when less than this much lifetime remains, so an upload never
	// starts with a token about to expire mid-flight.
	tokenSafetyMargin = 5 * time.Minute
)

// ErrMissingCredentials means the OAuth client id/secret/refresh-token are
// not configured. This is a startup problem, not a per-item failure.
var ErrMissingCredentials = errors.New("google ads oauth credentials not configured")

// TokenProvider caches one short-lived access token and refreshes it on
// expiry. The mutex covers the whole read-check-refresh sequence; a coarse
// lock is fine, a redundant refresh would only be wasteful.
type TokenProvider struct {
	clientID     string
	clientSecret string
	refreshToken string
	tokenURL     string
	http         *http.Client

	mu          sync.Mutex
	accessToken string
	expiresAt   time.Time
}

func NewTokenProvider(clientID, clientSecret, refreshToken string) *TokenProvider {
	return &TokenProvider{
		clientID:     clientID,
		clientSecret: clientSecret,
		refreshToken: refreshToken,
		tokenURL:     defaultTokenURL,
		http:         &http.Client{Timeout: 10 * time.Second},
	}
}

func (p *TokenProvider) AccessToken(ctx context.Context) (string, error) {
	if p.clientID == "" || p.clientSecret == "" || p.refreshToken == "" {
		return "", ErrMissingCredentials
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.accessToken != "" && time.Until(p.expiresAt) > tokenSafetyMargin {
		return p.accessToken, nil
	}

	form := url.Values{
		"client_id":     {p.clientID},
		"client_secret": {p.clientSecret},
		"refresh_token": {p.refreshToken},
		"grant_type":    {"refresh_token"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("token refresh failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token refresh failed: %d - %s", resp.StatusCode, string(body))
	}

	var token tokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return "", fmt.Errorf("token refresh returned invalid JSON: %w", err)
	}
	if token.AccessToken == "" {
		return "", errors.New("token refresh returned empty access_token")
	}

	p.accessToken = token.AccessToken
	p.expiresAt = time.Now().Add(time.Duration(token.ExpiresIn) * time.Second)

	return p.accessToken, nil
}
