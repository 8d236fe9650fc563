package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/opentdc/events/internal/events/domain"
	"github.com/opentdc/events/internal/events/store"
	"github.com/opentdc/events/pkg/idx"
	"github.com/opentdc/events/pkg/principal"
	"github.com/opentdc/events/pkg/slogx"
)

var (
	ErrValidation = errors.New("validation failed")
	ErrDuplicate  = errors.New("invitation exists already")
	ErrNotFound   = errors.New("invitation not found")
	ErrInternal   = errors.New("internal error")
)

// InvitationService owns the invitation index. All records live in a
// single in-memory map guarded by one mutex; every mutating call rewrites
// the snapshot when one is configured. Callers never hold references into
// the index: all methods take and return copies.
type InvitationService struct {
	mu       sync.RWMutex
	index    map[string]domain.Invitation
	snapshot store.Snapshot // nil in transient mode
}

// NewInvitationService builds the index, seeded from the snapshot when
// persistence is enabled.
func NewInvitationService(ctx context.Context, snapshot store.Snapshot) (*InvitationService, error) {
	s := &InvitationService{
		index:    make(map[string]domain.Invitation),
		snapshot: snapshot,
	}

	if snapshot != nil {
		records, err := snapshot.LoadAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("load snapshot: %w", err)
		}
		for _, inv := range records {
			s.index[inv.ID] = inv
		}
		slogx.FromContext(ctx).Info("invitations imported", slog.Int("count", len(records)))
	}

	return s, nil
}

// Create validates and stores a new invitation. The id is always
// server-generated; any non-empty client-supplied id is rejected, as a
// duplicate when it collides with a live record and as a validation
// failure otherwise.
func (s *InvitationService) Create(ctx context.Context, inv domain.Invitation) (domain.Invitation, error) {
	log := slogx.FromContext(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if inv.ID != "" {
		if _, ok := s.index[inv.ID]; ok {
			return domain.Invitation{}, fmt.Errorf("%w: invitation <%s>", ErrDuplicate, inv.ID)
		}
		return domain.Invitation{}, fmt.Errorf(
			"%w: invitation <%s> carries an id generated on the client, which is not allowed", ErrValidation, inv.ID)
	}

	if err := validateFields(inv); err != nil {
		return domain.Invitation{}, err
	}
	applyDefaults(&inv)

	now := time.Now().UTC()
	actor := principal.FromContext(ctx)
	inv.ID = idx.New().String()
	inv.CreatedAt = now
	inv.CreatedBy = actor
	inv.ModifiedAt = now
	inv.ModifiedBy = actor

	s.index[inv.ID] = inv
	if err := s.persistLocked(ctx); err != nil {
		return domain.Invitation{}, err
	}

	log.Debug("invitation created",
		slog.String("invitation_id", inv.ID),
		slog.String("email", inv.Email),
		slog.String("created_by", actor),
	)
	return inv, nil
}

// Read returns the invitation with the given id.
func (s *InvitationService) Read(_ context.Context, id string) (domain.Invitation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inv, ok := s.index[id]
	if !ok {
		return domain.Invitation{}, fmt.Errorf("%w: no invitation with id <%s>", ErrNotFound, id)
	}
	return inv, nil
}

// Update overwrites the mutable fields of an existing invitation.
// Client-supplied createdAt/createdBy values are ignored; when they differ
// from the stored ones this is logged but not rejected.
func (s *InvitationService) Update(ctx context.Context, id string, inv domain.Invitation) (domain.Invitation, error) {
	log := slogx.FromContext(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.index[id]
	if !ok {
		return domain.Invitation{}, fmt.Errorf("%w: no invitation with id <%s>", ErrNotFound, id)
	}

	if !inv.CreatedAt.IsZero() && !inv.CreatedAt.Equal(current.CreatedAt) {
		log.Warn("ignoring client-set createdAt",
			slog.String("invitation_id", id),
			slog.Time("ignored", inv.CreatedAt),
		)
	}
	if inv.CreatedBy != "" && !strings.EqualFold(inv.CreatedBy, current.CreatedBy) {
		log.Warn("ignoring client-set createdBy",
			slog.String("invitation_id", id),
			slog.String("ignored", inv.CreatedBy),
		)
	}

	if err := validateFields(inv); err != nil {
		return domain.Invitation{}, err
	}
	applyDefaults(&inv)

	current.FirstName = inv.FirstName
	current.LastName = inv.LastName
	current.Email = inv.Email
	current.Contact = inv.Contact
	current.Salutation = inv.Salutation
	current.InvitationState = inv.InvitationState
	current.Comment = inv.Comment
	current.InternalComment = inv.InternalComment
	current.ModifiedAt = time.Now().UTC()
	current.ModifiedBy = principal.FromContext(ctx)

	s.index[id] = current
	if err := s.persistLocked(ctx); err != nil {
		return domain.Invitation{}, err
	}

	log.Debug("invitation updated", slog.String("invitation_id", id))
	return current, nil
}

// Delete removes an invitation from the index.
func (s *InvitationService) Delete(ctx context.Context, id string) error {
	if _, err := s.Read(ctx, id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// The read above ran under a shared lock; if the record vanished in the
	// window before we acquired the exclusive one, that is an index
	// inconsistency, not a user error.
	if _, ok := s.index[id]; !ok {
		return fmt.Errorf("%w: invitation <%s> disappeared during delete", ErrInternal, id)
	}
	delete(s.index, id)

	if err := s.persistLocked(ctx); err != nil {
		return err
	}

	slogx.FromContext(ctx).Debug("invitation deleted", slog.String("invitation_id", id))
	return nil
}

// List returns the slice [position, position+size) of the invitation set
// in its stable order. queryType and query are accepted for interface
// compatibility but do not filter yet.
func (s *InvitationService) List(ctx context.Context, queryType, query string, position, size int) []domain.Invitation {
	all := s.All(ctx)
	if position < 0 {
		position = 0
	}
	if size < 0 {
		size = 0
	}
	if position >= len(all) {
		return []domain.Invitation{}
	}
	end := position + size
	if end > len(all) {
		end = len(all)
	}
	return all[position:end]
}

// All returns a copy of every invitation, ordered by creation time and
// tie-broken by id. Repeated calls over an unchanged set return identical
// sequences, which keeps pagination stable.
func (s *InvitationService) All(_ context.Context) []domain.Invitation {
	s.mu.RLock()
	out := make([]domain.Invitation, 0, len(s.index))
	for _, inv := range s.index {
		out = append(out, inv)
	}
	s.mu.RUnlock()

	sortByCreation(out)
	return out
}

// Register concludes an invitation as accepted. The record must have been
// sent; registering an already registered record is idempotent and only
// re-applies the comment and audit stamp.
func (s *InvitationService) Register(ctx context.Context, id, comment string) (domain.Invitation, error) {
	return s.conclude(ctx, id, comment, domain.StateRegistered)
}

// Deregister concludes an invitation as excused, with the same rules as
// Register.
func (s *InvitationService) Deregister(ctx context.Context, id, comment string) (domain.Invitation, error) {
	return s.conclude(ctx, id, comment, domain.StateExcused)
}

func (s *InvitationService) conclude(ctx context.Context, id, comment string, target domain.InvitationState) (domain.Invitation, error) {
	log := slogx.FromContext(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	inv, ok := s.index[id]
	if !ok {
		return domain.Invitation{}, fmt.Errorf("%w: no invitation with id <%s>", ErrNotFound, id)
	}

	if inv.InvitationState == domain.StateInitial {
		verb := "registering"
		if target == domain.StateExcused {
			verb = "deregistering"
		}
		return domain.Invitation{}, fmt.Errorf(
			"%w: invitation <%s> must be sent before %s", ErrValidation, id, verb)
	}
	if inv.InvitationState == target {
		log.Warn("invitation already concluded, re-applying comment",
			slog.String("invitation_id", id),
			slog.String("state", string(target)),
		)
	}

	inv.InvitationState = target
	inv.Comment = comment
	inv.ModifiedAt = time.Now().UTC()
	inv.ModifiedBy = principal.FromContext(ctx)

	s.index[id] = inv
	if err := s.persistLocked(ctx); err != nil {
		return domain.Invitation{}, err
	}

	log.Info("invitation concluded",
		slog.String("invitation_id", id),
		slog.String("state", string(target)),
	)
	return inv, nil
}

// MarkSent records a successful dispatch. It is the only way an
// invitation moves from INITIAL to SENT and bypasses the full update
// validation on purpose: a state-only transition must never trip over the
// client-supplied-id rule.
func (s *InvitationService) MarkSent(ctx context.Context, id string) (domain.Invitation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, ok := s.index[id]
	if !ok {
		return domain.Invitation{}, fmt.Errorf("%w: no invitation with id <%s>", ErrNotFound, id)
	}

	inv.InvitationState = domain.StateSent
	inv.ModifiedAt = time.Now().UTC()
	inv.ModifiedBy = principal.FromContext(ctx)

	s.index[id] = inv
	if err := s.persistLocked(ctx); err != nil {
		return domain.Invitation{}, err
	}
	return inv, nil
}

// persistLocked rewrites the snapshot. Callers must hold the write lock.
func (s *InvitationService) persistLocked(ctx context.Context) error {
	if s.snapshot == nil {
		return nil
	}

	all := make([]domain.Invitation, 0, len(s.index))
	for _, inv := range s.index {
		all = append(all, inv)
	}
	sortByCreation(all)

	if err := s.snapshot.SaveAll(ctx, all); err != nil {
		return fmt.Errorf("%w: save snapshot: %w", ErrInternal, err)
	}
	return nil
}

func validateFields(inv domain.Invitation) error {
	if inv.FirstName == "" {
		return fmt.Errorf("%w: invitation must contain a valid firstName", ErrValidation)
	}
	if inv.LastName == "" {
		return fmt.Errorf("%w: invitation must contain a valid lastName", ErrValidation)
	}
	if inv.Email == "" {
		return fmt.Errorf("%w: invitation must contain a valid email address", ErrValidation)
	}
	if inv.Salutation != "" && !inv.Salutation.Valid() {
		return fmt.Errorf("%w: unknown salutation <%s>", ErrValidation, inv.Salutation)
	}
	if inv.InvitationState != "" && !inv.InvitationState.Valid() {
		return fmt.Errorf("%w: unknown invitation state <%s>", ErrValidation, inv.InvitationState)
	}
	return nil
}

func applyDefaults(inv *domain.Invitation) {
	if inv.InvitationState == "" {
		inv.InvitationState = domain.StateInitial
	}
	if inv.Salutation == "" {
		inv.Salutation = domain.DefaultSalutation
	}
}

func sortByCreation(invitations []domain.Invitation) {
	sort.Slice(invitations, func(i, j int) bool {
		if !invitations[i].CreatedAt.Equal(invitations[j].CreatedAt) {
			return invitations[i].CreatedAt.Before(invitations[j].CreatedAt)
		}
		return invitations[i].ID < invitations[j].ID
	})
}
