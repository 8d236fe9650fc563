// Package app wires configuration, snapshot driver, collaborators, and
// services into a runnable application.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/opentdc/events/internal/events/mail"
	"github.com/opentdc/events/internal/events/service"
	"github.com/opentdc/events/internal/events/store"
	"github.com/opentdc/events/internal/events/store/drivers/file"
	"github.com/opentdc/events/internal/events/store/drivers/sqlite"
	"github.com/opentdc/events/internal/events/template"
	"github.com/opentdc/events/pkg/slogx"
)

// BuildVersion should be set at build time via ldflags.
const BuildVersion = "v0.1.0"

type Application struct {
	cfg    Config
	logger *slog.Logger

	Invitations *service.InvitationService
	Dispatch    *service.DispatchService

	closers []func() error
}

// New initialises the application: logger, snapshot driver, template
// engine, mail sender, and the services on top of them.
func New(ctx context.Context, cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "events-service",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}
	ctx = slogx.WithContext(ctx, app.logger)

	snapshot, err := app.openSnapshot()
	if err != nil {
		return nil, err
	}

	renderer, err := template.NewEngine()
	if err != nil {
		return nil, fmt.Errorf("initialize template engine: %w", err)
	}

	addresses, err := mail.NewAddressBook(cfg.FromAddress, cfg.SenderAddresses)
	if err != nil {
		return nil, fmt.Errorf("build sender address book: %w", err)
	}

	sender, err := app.buildSender()
	if err != nil {
		return nil, err
	}

	invitations, err := service.NewInvitationService(ctx, snapshot)
	if err != nil {
		return nil, fmt.Errorf("initialize invitation index: %w", err)
	}

	app.Invitations = invitations
	app.Dispatch = &service.DispatchService{
		Invitations: invitations,
		Renderer:    renderer,
		Sender:      sender,
		Addresses:   addresses,
		Subject:     cfg.Subject,
		SendDelay:   cfg.SendDelay,
	}

	return app, nil
}

func (app *Application) Logger() *slog.Logger { return app.logger }

// Close releases the snapshot driver's resources.
func (app *Application) Close() error {
	var firstErr error
	for _, close := range app.closers {
		if err := close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (app *Application) openSnapshot() (store.Snapshot, error) {
	switch app.cfg.StoreMode {
	case "memory":
		app.logger.Info("running transient, nothing will be persisted")
		return nil, nil
	case "sqlite":
		s, err := sqlite.Open(app.cfg.DatabaseFile)
		if err != nil {
			return nil, fmt.Errorf("open sqlite snapshot: %w", err)
		}
		app.closers = append(app.closers, s.Close)
		app.logger.Info("sqlite snapshot opened", "path", app.cfg.DatabaseFile)
		return s, nil
	case "file":
		s, err := file.New(app.cfg.DataFile)
		if err != nil {
			return nil, fmt.Errorf("open file snapshot: %w", err)
		}
		app.logger.Info("file snapshot opened", "path", app.cfg.DataFile)
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store mode %q (want file, sqlite, or memory)", app.cfg.StoreMode)
	}
}

func (app *Application) buildSender() (mail.Sender, error) {
	if app.cfg.MailAPIKey == "" {
		app.logger.Info("no mail api key configured, deliveries are dry-run only")
		return &mail.LogSender{Logger: app.logger}, nil
	}

	sender, err := mail.NewHTTPSender(mail.HTTPConfig{
		APIKey:  app.cfg.MailAPIKey,
		BaseURL: app.cfg.MailAPIURL,
	})
	if err != nil {
		return nil, fmt.Errorf("initialize mail sender: %w", err)
	}
	return sender, nil
}
