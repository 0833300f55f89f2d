package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"note-sync/config"
	"note-sync/driver"
	"note-sync/repository"
	"note-sync/service"
)

// application wires the store, the authenticated notes client and the services.
type application struct {
	store    *repository.Store
	client   *driver.NotesAPIClient
	mediator *service.RemoteMediator
	notes    *service.NoteService
}

func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	store, err := repository.Open(ctx, cfg.Database.Path, cfg.Database.BusyTimeout, logger)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	base := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.API.ConnectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout: 10 * time.Second,
		IdleConnTimeout:     90 * time.Second,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
	}

	logged := driver.NewLoggingTransport(base, logger)
	credentials := newCredentialProvider(cfg, logged, logger)
	transport := driver.NewAuthTransport(logged, credentials, logger)

	client := driver.NewNotesAPIClient(driver.NotesAPIConfig{
		BaseURL:           cfg.API.BaseURL,
		Timeout:           cfg.API.Timeout,
		RequestsPerSecond: cfg.API.RequestsPerSecond,
		Burst:             cfg.API.Burst,
		UserAgent:         cfg.API.UserAgent,
	}, transport, logger)

	return &application{
		store:    store,
		client:   client,
		mediator: service.NewRemoteMediator(store, client, cfg.Paging.Order, logger),
		notes:    service.NewNoteService(client, store, cfg.Paging.Order, logger),
	}, nil
}

// newCredentialProvider refreshes through the token endpoint when a refresh
// token is configured and otherwise serves the configured ID token as is.
func newCredentialProvider(cfg *config.Config, transport http.RoundTripper, logger *slog.Logger) service.CredentialProvider {
	if cfg.Auth.RefreshToken == "" {
		return service.NewStaticCredentialProvider(cfg.Auth.IDToken)
	}
	tokenClient := driver.NewTokenClient(cfg.Auth.TokenURL, cfg.Auth.APIKey, cfg.API.Timeout, logger)
	// token requests share the request-id logging but never carry the bearer
	tokenClient.SetHTTPClient(&http.Client{Timeout: cfg.API.Timeout, Transport: transport})
	return service.NewCachedCredentialProvider(tokenClient, cfg.Auth.IDToken, cfg.Auth.RefreshToken, cfg.Auth.RefreshBuffer, logger)
}

func (a *application) Close() error {
	return a.store.Close()
}

// withApplication builds the application for one command run and closes it afterwards.
func withApplication(ctx context.Context, fn func(app *application) error) error {
	app, err := newApplication(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Warn("failed to close store", "error", err)
		}
	}()
	return fn(app)
}
