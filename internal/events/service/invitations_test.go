package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/opentdc/events/internal/events/domain"
	"github.com/opentdc/events/pkg/principal"
	"github.com/stretchr/testify/require"
)

// fakeSnapshot records SaveAll calls so tests can assert the persistence
// trigger without touching disk.
type fakeSnapshot struct {
	mu      sync.Mutex
	seed    []domain.Invitation
	saved   [][]domain.Invitation
	loadErr error
	saveErr error
}

func (f *fakeSnapshot) LoadAll(_ context.Context) ([]domain.Invitation, error) {
	return f.seed, f.loadErr
}

func (f *fakeSnapshot) SaveAll(_ context.Context, invitations []domain.Invitation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, invitations)
	return nil
}

func (f *fakeSnapshot) saveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saved)
}

func testContext() context.Context {
	return principal.WithContext(context.Background(), "tester")
}

func newTransientService(t *testing.T) *InvitationService {
	t.Helper()
	s, err := NewInvitationService(context.Background(), nil)
	require.NoError(t, err)
	return s
}

func validInvitation() domain.Invitation {
	return domain.Invitation{FirstName: "Ann", LastName: "Lee", Email: "ann@x.com"}
}

func TestCreateAssignsServerGeneratedID(t *testing.T) {
	t.Parallel()
	ctx := testContext()
	s := newTransientService(t)

	first, err := s.Create(ctx, validInvitation())
	require.NoError(t, err)
	require.NotEmpty(t, first.ID)
	require.Equal(t, domain.StateInitial, first.InvitationState)
	require.Equal(t, domain.DefaultSalutation, first.Salutation)
	require.Equal(t, "tester", first.CreatedBy)
	require.Equal(t, "tester", first.ModifiedBy)
	require.False(t, first.CreatedAt.IsZero())

	second, err := s.Create(ctx, validInvitation())
	require.NoError(t, err)
	require.NotEqual(t, first.ID, second.ID)

	got, err := s.Read(ctx, first.ID)
	require.NoError(t, err)
	require.Equal(t, first, got)
}

func TestCreateRejectsClientSuppliedID(t *testing.T) {
	t.Parallel()
	ctx := testContext()
	s := newTransientService(t)

	inv := validInvitation()
	inv.ID = "client-chosen"
	_, err := s.Create(ctx, inv)
	require.ErrorIs(t, err, ErrValidation)

	// A colliding id is reported as a duplicate instead.
	stored, err := s.Create(ctx, validInvitation())
	require.NoError(t, err)

	inv = validInvitation()
	inv.ID = stored.ID
	_, err = s.Create(ctx, inv)
	require.ErrorIs(t, err, ErrDuplicate)
}

func TestCreateValidatesRequiredFields(t *testing.T) {
	t.Parallel()
	ctx := testContext()
	s := newTransientService(t)

	cases := map[string]domain.Invitation{
		"missing firstName": {LastName: "Lee", Email: "ann@x.com"},
		"missing lastName":  {FirstName: "Ann", Email: "ann@x.com"},
		"missing email":     {FirstName: "Ann", LastName: "Lee"},
	}
	for name, inv := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := s.Create(ctx, inv)
			require.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestCreateRejectsUnknownEnumValues(t *testing.T) {
	t.Parallel()
	ctx := testContext()
	s := newTransientService(t)

	inv := validInvitation()
	inv.Salutation = "SHOUTED"
	_, err := s.Create(ctx, inv)
	require.ErrorIs(t, err, ErrValidation)

	inv = validInvitation()
	inv.InvitationState = "LOST"
	_, err = s.Create(ctx, inv)
	require.ErrorIs(t, err, ErrValidation)
}

func TestUpdateIgnoresClientSuppliedAuditFields(t *testing.T) {
	t.Parallel()
	ctx := testContext()
	s := newTransientService(t)

	created, err := s.Create(ctx, validInvitation())
	require.NoError(t, err)

	changed := created
	changed.FirstName = "Anna"
	changed.CreatedAt = created.CreatedAt.Add(-24 * time.Hour)
	changed.CreatedBy = "impostor"

	updated, err := s.Update(ctx, created.ID, changed)
	require.NoError(t, err)
	require.Equal(t, "Anna", updated.FirstName)
	require.True(t, updated.CreatedAt.Equal(created.CreatedAt))
	require.Equal(t, created.CreatedBy, updated.CreatedBy)
	require.Equal(t, "tester", updated.ModifiedBy)
	require.False(t, updated.ModifiedAt.Before(created.ModifiedAt))
}

func TestUpdateValidatesAndReportsNotFound(t *testing.T) {
	t.Parallel()
	ctx := testContext()
	s := newTransientService(t)

	_, err := s.Update(ctx, "missing", validInvitation())
	require.ErrorIs(t, err, ErrNotFound)

	created, err := s.Create(ctx, validInvitation())
	require.NoError(t, err)

	bad := created
	bad.Email = ""
	_, err = s.Update(ctx, created.ID, bad)
	require.ErrorIs(t, err, ErrValidation)
}

func TestDelete(t *testing.T) {
	t.Parallel()
	ctx := testContext()
	s := newTransientService(t)

	created, err := s.Create(ctx, validInvitation())
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, created.ID))

	_, err = s.Read(ctx, created.ID)
	require.ErrorIs(t, err, ErrNotFound)

	require.ErrorIs(t, s.Delete(ctx, created.ID), ErrNotFound)
}

func TestListPaginationIsStableAndInert(t *testing.T) {
	t.Parallel()
	ctx := testContext()
	s := newTransientService(t)

	for i := 0; i < 5; i++ {
		_, err := s.Create(ctx, validInvitation())
		require.NoError(t, err)
	}

	all := s.List(ctx, "", "", 0, 10)
	require.Len(t, all, 5)

	// Contiguous windows over the same sorted order.
	window := s.List(ctx, "", "", 1, 2)
	require.Len(t, window, 2)
	require.Equal(t, all[1:3], window)

	// Clipped at the end, empty past the end.
	require.Len(t, s.List(ctx, "", "", 4, 10), 1)
	require.Empty(t, s.List(ctx, "", "", 10, 10))
	require.Empty(t, s.List(ctx, "", "", 0, 0))

	// Stable across repeated calls.
	require.Equal(t, all, s.List(ctx, "", "", 0, 10))

	// queryType/query are accepted but change nothing.
	require.Equal(t, all, s.List(ctx, "lastName", "Lee", 0, 10))
}

func TestRegisterRequiresSentState(t *testing.T) {
	t.Parallel()
	ctx := testContext()
	s := newTransientService(t)

	created, err := s.Create(ctx, validInvitation())
	require.NoError(t, err)

	_, err = s.Register(ctx, created.ID, "coming")
	require.ErrorIs(t, err, ErrValidation)

	_, err = s.Deregister(ctx, created.ID, "not coming")
	require.ErrorIs(t, err, ErrValidation)
}

func TestRegisterAndDeregisterLifecycle(t *testing.T) {
	t.Parallel()
	ctx := testContext()
	s := newTransientService(t)

	created, err := s.Create(ctx, validInvitation())
	require.NoError(t, err)

	sent, err := s.MarkSent(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StateSent, sent.InvitationState)

	registered, err := s.Register(ctx, created.ID, "confirmed")
	require.NoError(t, err)
	require.Equal(t, domain.StateRegistered, registered.InvitationState)
	require.Equal(t, "confirmed", registered.Comment)

	// Re-registering is idempotent but still re-applies the comment.
	again, err := s.Register(ctx, created.ID, "confirmed twice")
	require.NoError(t, err)
	require.Equal(t, domain.StateRegistered, again.InvitationState)
	require.Equal(t, "confirmed twice", again.Comment)

	other, err := s.Create(ctx, validInvitation())
	require.NoError(t, err)
	_, err = s.MarkSent(ctx, other.ID)
	require.NoError(t, err)

	excused, err := s.Deregister(ctx, other.ID, "on holiday")
	require.NoError(t, err)
	require.Equal(t, domain.StateExcused, excused.InvitationState)
	require.Equal(t, "on holiday", excused.Comment)
}

func TestMarkSentResetsConcludedRecords(t *testing.T) {
	t.Parallel()
	ctx := testContext()
	s := newTransientService(t)

	created, err := s.Create(ctx, validInvitation())
	require.NoError(t, err)
	_, err = s.MarkSent(ctx, created.ID)
	require.NoError(t, err)
	_, err = s.Register(ctx, created.ID, "confirmed")
	require.NoError(t, err)

	// Re-sending a concluded record moves it back to SENT; the recipient
	// may register or excuse again for the reworked event.
	resent, err := s.MarkSent(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StateSent, resent.InvitationState)

	excused, err := s.Deregister(ctx, created.ID, "plans changed")
	require.NoError(t, err)
	require.Equal(t, domain.StateExcused, excused.InvitationState)
}

func TestConcurrentCreatesLoseNothing(t *testing.T) {
	t.Parallel()
	ctx := testContext()
	s := newTransientService(t)

	const workers = 20
	var wg sync.WaitGroup
	errs := make([]error, workers)
	ids := make([]string, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			created, err := s.Create(ctx, validInvitation())
			errs[i] = err
			ids[i] = created.ID
		}(i)
	}
	wg.Wait()

	seen := make(map[string]struct{}, workers)
	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		require.NotEmpty(t, ids[i])
		seen[ids[i]] = struct{}{}
	}
	require.Len(t, seen, workers)
	require.Len(t, s.List(ctx, "", "", 0, workers+1), workers)
}

func TestSnapshotSeedsIndexAndPersistsEveryMutation(t *testing.T) {
	t.Parallel()
	ctx := testContext()

	seedTime := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	snap := &fakeSnapshot{seed: []domain.Invitation{{
		ID: "seeded", FirstName: "Max", LastName: "Frisch", Email: "max@x.com",
		Salutation: domain.SalutationFormalMale, InvitationState: domain.StateSent,
		CreatedAt: seedTime, CreatedBy: "importer", ModifiedAt: seedTime, ModifiedBy: "importer",
	}}}

	s, err := NewInvitationService(ctx, snap)
	require.NoError(t, err)

	got, err := s.Read(ctx, "seeded")
	require.NoError(t, err)
	require.Equal(t, "Max", got.FirstName)

	created, err := s.Create(ctx, validInvitation())
	require.NoError(t, err)
	require.Equal(t, 1, snap.saveCount())

	_, err = s.Update(ctx, created.ID, created)
	require.NoError(t, err)
	_, err = s.MarkSent(ctx, created.ID)
	require.NoError(t, err)
	_, err = s.Register(ctx, created.ID, "ok")
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, created.ID))
	require.Equal(t, 5, snap.saveCount())

	// The last snapshot holds only the seeded record.
	last := snap.saved[len(snap.saved)-1]
	require.Len(t, last, 1)
	require.Equal(t, "seeded", last[0].ID)
}

func TestSnapshotFailuresSurfaceAsInternal(t *testing.T) {
	t.Parallel()
	ctx := testContext()

	snap := &fakeSnapshot{saveErr: errors.New("disk full")}
	s, err := NewInvitationService(ctx, snap)
	require.NoError(t, err)

	_, err = s.Create(ctx, validInvitation())
	require.ErrorIs(t, err, ErrInternal)

	snap = &fakeSnapshot{loadErr: errors.New("corrupt")}
	_, err = NewInvitationService(ctx, snap)
	require.Error(t, err)
}
