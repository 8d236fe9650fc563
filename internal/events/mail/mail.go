// Package mail abstracts outbound message delivery and maps contact
// identities to sender addresses.
package mail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Message is one outbound email.
type Message struct {
	To      string
	From    string
	Subject string
	Body    string
}

// Sender delivers messages. Implementations must treat a returned error
// as "not delivered"; the caller decides whether to advance invitation
// state.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// AddressBook is the finite identity-to-sender-address table. Unknown or
// empty identities fall back to the default organisational address.
type AddressBook struct {
	fallback   string
	byIdentity map[string]string
}

// NewAddressBook validates the table up front: the fallback address is
// required and no entry may be blank.
func NewAddressBook(fallback string, byIdentity map[string]string) (*AddressBook, error) {
	if strings.TrimSpace(fallback) == "" {
		return nil, errors.New("mail: fallback sender address is required")
	}

	entries := make(map[string]string, len(byIdentity))
	for identity, address := range byIdentity {
		identity = strings.ToLower(strings.TrimSpace(identity))
		address = strings.TrimSpace(address)
		if identity == "" || address == "" {
			return nil, fmt.Errorf("mail: invalid sender entry %q=%q", identity, address)
		}
		entries[identity] = address
	}

	return &AddressBook{fallback: strings.TrimSpace(fallback), byIdentity: entries}, nil
}

// Lookup returns the sender address for an identity, case-insensitively.
func (b *AddressBook) Lookup(identity string) string {
	identity = strings.ToLower(strings.TrimSpace(identity))
	if address, ok := b.byIdentity[identity]; ok {
		return address
	}
	return b.fallback
}

// LogSender logs messages instead of delivering them. Used for dry runs
// and as the default when no mail API is configured.
type LogSender struct {
	Logger *slog.Logger
}

func (s *LogSender) Send(_ context.Context, msg Message) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("dry-run mail delivery",
		slog.String("to", msg.To),
		slog.String("from", msg.From),
		slog.String("subject", msg.Subject),
		slog.Int("body_bytes", len(msg.Body)),
	)
	return nil
}
