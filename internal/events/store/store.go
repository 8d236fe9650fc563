// Package store defines the snapshot persistence contract for the
// invitation index. The index itself lives in memory; a snapshot driver
// durably holds the full record set and is rewritten after every mutation.
package store

import (
	"context"

	"github.com/opentdc/events/internal/events/domain"
)

// Snapshot persists the complete record set. Drivers (json file, sqlite)
// implement this. SaveAll replaces whatever was stored before; LoadAll is
// called once at startup to seed the in-memory index.
type Snapshot interface {
	LoadAll(ctx context.Context) ([]domain.Invitation, error)
	SaveAll(ctx context.Context, invitations []domain.Invitation) error
}
