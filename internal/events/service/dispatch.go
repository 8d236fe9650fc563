package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/opentdc/events/internal/events/domain"
	"github.com/opentdc/events/internal/events/mail"
	"github.com/opentdc/events/internal/events/template"
	"github.com/opentdc/events/pkg/slogx"
)

// DefaultSendDelay is the pause enforced between two batch sends.
const DefaultSendDelay = time.Second

// DispatchService turns invitation records into outbound messages: it
// composes the templated body, delivers it through the mail sender, and
// advances the invitation state on success.
type DispatchService struct {
	Invitations *InvitationService
	Renderer    template.Renderer
	Sender      mail.Sender
	Addresses   *mail.AddressBook
	Subject     string
	SendDelay   time.Duration
}

// Message composes the notification text for one invitation without
// sending it. Renderer failures surface as internal errors: the record
// itself was already found, so nothing about them is the caller's fault.
func (s *DispatchService) Message(ctx context.Context, id string) (string, error) {
	inv, err := s.Invitations.Read(ctx, id)
	if err != nil {
		return "", err
	}
	return s.render(inv)
}

func (s *DispatchService) render(inv domain.Invitation) (string, error) {
	name := template.Name(inv.Salutation, inv.Contact)
	body, err := s.Renderer.Render(name, inv)
	if err != nil {
		return "", fmt.Errorf("%w: compose message for <%s>: %w", ErrInternal, inv.ID, err)
	}
	return body, nil
}

// Send composes and delivers the message for one invitation, then marks
// the record SENT. Each call delivers at most one message.
func (s *DispatchService) Send(ctx context.Context, id string) error {
	log := slogx.FromContext(ctx)

	inv, err := s.Invitations.Read(ctx, id)
	if err != nil {
		return err
	}

	body, err := s.render(inv)
	if err != nil {
		return err
	}

	msg := mail.Message{
		To:      inv.Email,
		From:    s.Addresses.Lookup(inv.Contact),
		Subject: s.Subject,
		Body:    body,
	}
	if err := s.Sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("%w: deliver to %s: %w", ErrInternal, inv.Email, err)
	}

	log.Info("invitation message sent",
		slog.String("invitation_id", inv.ID),
		slog.String("to", inv.Email),
		slog.String("from", msg.From),
	)

	if _, err := s.Invitations.MarkSent(ctx, id); err != nil {
		return err
	}
	return nil
}

// SendAll dispatches a message for every record present when the call
// started, pacing sends with a fixed delay. The first failure, including
// cancellation while waiting out the delay, aborts the remaining batch;
// records already sent stay SENT.
func (s *DispatchService) SendAll(ctx context.Context) error {
	log := slogx.FromContext(ctx)

	delay := s.SendDelay
	if delay <= 0 {
		delay = DefaultSendDelay
	}
	limiter := rate.NewLimiter(rate.Every(delay), 1)

	// A send already in flight runs to completion; cancellation is only
	// honored between sends, while waiting on the limiter.
	sendCtx := context.WithoutCancel(ctx)

	batch := s.Invitations.All(ctx)
	for i, inv := range batch {
		if err := limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%w: batch send interrupted after %d of %d: %w", ErrInternal, i, len(batch), err)
		}
		if err := s.Send(sendCtx, inv.ID); err != nil {
			if errors.Is(err, ErrInternal) {
				return err
			}
			return fmt.Errorf("%w: batch aborted at invitation <%s>: %w", ErrInternal, inv.ID, err)
		}
	}

	log.Info("batch dispatch completed", slog.Int("sent", len(batch)))
	return nil
}
