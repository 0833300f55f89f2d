//go:generate mockgen -source=credential_provider.go -destination=../mocks/credential_provider_mock.go -package=mocks CredentialProvider

package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/sync/singleflight"

	"note-sync/driver"
	"note-sync/models"
	"note-sync/utils"
)

// CredentialProvider supplies the bearer token for notes API calls.
// It is constructed once at startup and injected into driver.AuthTransport.
type CredentialProvider interface {
	CurrentToken(ctx context.Context, forceRefresh bool) models.Credential
}

var (
	_ CredentialProvider      = (*StaticCredentialProvider)(nil)
	_ CredentialProvider      = (*CachedCredentialProvider)(nil)
	_ driver.CredentialSource = (CredentialProvider)(nil)
)

// StaticCredentialProvider serves a fixed token and can never refresh it.
type StaticCredentialProvider struct {
	token string
}

// NewStaticCredentialProvider creates a provider for token. An empty token means signed out.
func NewStaticCredentialProvider(token string) *StaticCredentialProvider {
	return &StaticCredentialProvider{token: token}
}

// CurrentToken returns the fixed token, or AuthRequired when a refresh is forced.
func (p *StaticCredentialProvider) CurrentToken(_ context.Context, forceRefresh bool) models.Credential {
	if forceRefresh {
		return models.Credential{Status: models.CredentialAuthRequired}
	}
	return models.CredentialOf(p.token)
}

const refreshKey = "credential_refresh"

// CachedCredentialProvider caches an ID token and refreshes it with a refresh-token grant.
// Concurrent refreshes, forced or not, are coalesced into a single grant.
type CachedCredentialProvider struct {
	refresher     driver.TokenRefresher
	refreshBuffer time.Duration
	logger        *slog.Logger

	refreshGroup singleflight.Group

	mu    sync.RWMutex
	token *models.AuthToken
}

// NewCachedCredentialProvider creates a provider seeded with an optional ID token
// and the refresh token used to renew it.
func NewCachedCredentialProvider(
	refresher driver.TokenRefresher,
	idToken, refreshToken string,
	refreshBuffer time.Duration,
	logger *slog.Logger,
) *CachedCredentialProvider {
	if logger == nil {
		logger = slog.Default()
	}

	p := &CachedCredentialProvider{
		refresher:     refresher,
		refreshBuffer: refreshBuffer,
		logger:        logger,
	}
	if idToken != "" || refreshToken != "" {
		p.token = &models.AuthToken{
			IDToken:      idToken,
			RefreshToken: refreshToken,
			ExpiresAt:    jwtExpiry(idToken),
			IssuedAt:     time.Now(),
		}
	}
	return p
}

// SetToken replaces the cached credential, e.g. after an external sign-in.
func (p *CachedCredentialProvider) SetToken(idToken, refreshToken string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.token = &models.AuthToken{
		IDToken:      idToken,
		RefreshToken: refreshToken,
		ExpiresAt:    jwtExpiry(idToken),
		IssuedAt:     time.Now(),
	}
}

// SignOut forgets the cached credential.
func (p *CachedCredentialProvider) SignOut() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.token = nil
}

// CurrentToken returns the cached token unless it is about to expire or forceRefresh is set.
func (p *CachedCredentialProvider) CurrentToken(ctx context.Context, forceRefresh bool) models.Credential {
	p.mu.RLock()
	token := p.token
	p.mu.RUnlock()

	if token == nil {
		return models.Credential{Status: models.CredentialAuthRequired}
	}

	if !forceRefresh && !token.NeedsRefresh(p.refreshBuffer) {
		return models.CredentialOf(token.IDToken)
	}

	if token.RefreshToken == "" || p.refresher == nil {
		if forceRefresh {
			return models.Credential{Status: models.CredentialAuthRequired}
		}
		// nothing can renew it; let the server judge the token
		return models.CredentialOf(token.IDToken)
	}

	cred := p.refresh(ctx, forceRefresh)
	if !forceRefresh && cred.Status == models.CredentialTransientFailure && time.Now().Before(token.ExpiresAt) {
		// early refresh failed but the cached token is still valid
		p.logger.Warn("Serving cached credential after failed early refresh",
			"expires_at", token.ExpiresAt,
			"error", cred.Err)
		return models.CredentialOf(token.IDToken)
	}
	return cred
}

func (p *CachedCredentialProvider) refresh(ctx context.Context, forced bool) models.Credential {
	// the shared grant must not die with whichever caller started it
	refreshCtx := context.WithoutCancel(ctx)

	result, err, shared := p.refreshGroup.Do(refreshKey, func() (any, error) {
		p.mu.RLock()
		current := p.token
		p.mu.RUnlock()
		if current == nil || current.RefreshToken == "" {
			return nil, driver.ErrInvalidRefreshToken
		}

		p.logger.Info("Refreshing credential",
			"forced", forced,
			"refresh_token_prefix", utils.TokenPrefix(current.RefreshToken))

		resp, err := p.refresher.Refresh(refreshCtx, current.RefreshToken)
		if err != nil {
			return nil, err
		}

		refreshed := models.NewAuthToken(*resp, current.RefreshToken)
		if refreshed.ExpiresAt.IsZero() {
			refreshed.ExpiresAt = jwtExpiry(refreshed.IDToken)
		}

		p.mu.Lock()
		p.token = refreshed
		p.mu.Unlock()

		return refreshed, nil
	})

	if err != nil {
		if errors.Is(err, driver.ErrInvalidRefreshToken) || errors.Is(err, driver.ErrTokenRevoked) {
			p.logger.Warn("Credential refresh rejected, sign-in required", "error", err)
			if !shared {
				utils.RecordCredentialRefresh(models.CredentialAuthRequired.String())
			}
			p.SignOut()
			return models.Credential{Status: models.CredentialAuthRequired, Err: err}
		}

		p.logger.Error("Credential refresh failed", "error", err)
		if !shared {
			utils.RecordCredentialRefresh(models.CredentialTransientFailure.String())
		}
		return models.Credential{Status: models.CredentialTransientFailure, Err: err}
	}

	token := result.(*models.AuthToken)
	if !shared {
		utils.RecordCredentialRefresh(models.CredentialOK.String())
	}
	p.logger.Debug("Credential refresh completed",
		"shared_result", shared,
		"expires_at", token.ExpiresAt)

	return models.CredentialOf(token.IDToken)
}

// jwtExpiry reads the exp claim without verifying the signature. Opaque or
// unparseable tokens yield the zero time, meaning unknown expiry.
func jwtExpiry(token string) time.Time {
	if token == "" {
		return time.Time{}
	}
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	if claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}
