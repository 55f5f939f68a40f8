package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"secretary_server/server/common/log"
	"secretary_server/server/secretary/domain"
	"secretary_server/server/secretary/repository"
)

// OAuthConfig points at the calendar provider's authorization and token
// endpoints.
type OAuthConfig struct {
	AuthURL      string
	TokenURL     string
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Scope        string
}

// OAuthService handles the calendar provider token exchange and keeps
// per-executive credentials in the store.
type OAuthService struct {
	cfg    OAuthConfig
	tokens *repository.TokenRepository
	client *http.Client
	now    func() time.Time
}

func NewOAuthService(cfg OAuthConfig, tokens *repository.TokenRepository) *OAuthService {
	return &OAuthService{
		cfg:    cfg,
		tokens: tokens,
		client: &http.Client{Timeout: 10 * time.Second},
		now:    time.Now,
	}
}

// ConnectURL builds the provider consent URL. State round-trips the tenant
// and executive through the provider.
func (s *OAuthService) ConnectURL(tenantID, executiveID string) string {
	query := url.Values{}
	query.Set("client_id", s.cfg.ClientID)
	query.Set("redirect_uri", s.cfg.RedirectURI)
	query.Set("response_type", "code")
	query.Set("scope", s.cfg.Scope)
	query.Set("access_type", "offline")
	query.Set("state", tenantID+":"+executiveID)
	return s.cfg.AuthURL + "?" + query.Encode()
}

// ParseState splits the round-tripped state back into tenant and executive.
func ParseState(state string) (tenantID, executiveID string, err error) {
	parts := strings.SplitN(state, ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("malformed oauth state")
	}
	return parts[0], parts[1], nil
}

type tokenExchangeResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

// Callback exchanges the authorization code and stores the credentials.
func (s *OAuthService) Callback(ctx context.Context, tenantID, executiveID, code string) error {
	if strings.TrimSpace(code) == "" {
		return domain.NewValidationError("code")
	}
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("client_id", s.cfg.ClientID)
	form.Set("client_secret", s.cfg.ClientSecret)
	form.Set("redirect_uri", s.cfg.RedirectURI)
	exchanged, err := s.postToken(ctx, form)
	if err != nil {
		return err
	}
	now := s.now().UTC()
	token := domain.CalendarToken{
		AccessToken:  exchanged.AccessToken,
		RefreshToken: exchanged.RefreshToken,
		ExpiresAt:    now.Add(time.Duration(exchanged.ExpiresIn) * time.Second),
		ConnectedAt:  now,
	}
	if err := s.tokens.Put(ctx, tenantID, executiveID, token); err != nil {
		return err
	}
	log.Infof("calendar connected: tenant=%s executive=%s", tenantID, executiveID)
	return nil
}

func (s *OAuthService) Disconnect(ctx context.Context, tenantID, executiveID string) error {
	return s.tokens.Delete(ctx, tenantID, executiveID)
}

// TokenFor returns a live access token, refreshing an expired one in place.
// The provider keeps the refresh token valid across refreshes.
func (s *OAuthService) TokenFor(ctx context.Context, tenantID, executiveID string) (string, error) {
	token, err := s.tokens.Get(ctx, tenantID, executiveID)
	if err != nil {
		return "", err
	}
	if s.now().Before(token.ExpiresAt.Add(-time.Minute)) {
		return token.AccessToken, nil
	}
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", token.RefreshToken)
	form.Set("client_id", s.cfg.ClientID)
	form.Set("client_secret", s.cfg.ClientSecret)
	refreshed, err := s.postToken(ctx, form)
	if err != nil {
		return "", err
	}
	token.AccessToken = refreshed.AccessToken
	token.ExpiresAt = s.now().UTC().Add(time.Duration(refreshed.ExpiresIn) * time.Second)
	if err := s.tokens.Put(ctx, tenantID, executiveID, token); err != nil {
		return "", err
	}
	return token.AccessToken, nil
}

func (s *OAuthService) postToken(ctx context.Context, form url.Values) (tokenExchangeResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return tokenExchangeResponse{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return tokenExchangeResponse{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return tokenExchangeResponse{}, fmt.Errorf("token endpoint status %d", resp.StatusCode)
	}
	var out tokenExchangeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return tokenExchangeResponse{}, err
	}
	if out.AccessToken == "" {
		return tokenExchangeResponse{}, fmt.Errorf("token endpoint returned empty access token")
	}
	return out, nil
}
