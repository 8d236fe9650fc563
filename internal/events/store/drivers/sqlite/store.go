// Package sqlite implements the snapshot contract on a SQLite database.
// It stores the full record set in a single table and rewrites it on every
// save, matching the file driver's replace-everything semantics while
// giving operators a queryable datastore.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/opentdc/events/internal/events/domain"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

// Open opens the database at path and applies embedded migrations.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite: database path is required")
	}

	// modernc.org/sqlite takes pragmas as _pragma URI parameters, applied
	// to every pooled connection.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: ping %s: %w", path, err)
	}

	s := &Store{db: db}
	if err := s.applyMigrations(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: apply migrations: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

// LoadAll returns every stored invitation ordered by creation time.
func (s *Store) LoadAll(ctx context.Context) ([]domain.Invitation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, first_name, last_name, email, contact,
		       salutation, invitation_state, comment, internal_comment,
		       created_at, created_by, modified_at, modified_by
		FROM invitations
		ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query invitations: %w", err)
	}
	defer rows.Close()

	var invitations []domain.Invitation
	for rows.Next() {
		var inv domain.Invitation
		var createdAt, modifiedAt int64
		if err := rows.Scan(
			&inv.ID, &inv.FirstName, &inv.LastName, &inv.Email, &inv.Contact,
			&inv.Salutation, &inv.InvitationState, &inv.Comment, &inv.InternalComment,
			&createdAt, &inv.CreatedBy, &modifiedAt, &inv.ModifiedBy,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scan invitation: %w", err)
		}
		inv.CreatedAt = fromMillis(createdAt)
		inv.ModifiedAt = fromMillis(modifiedAt)
		invitations = append(invitations, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterate invitations: %w", err)
	}
	return invitations, nil
}

// SaveAll replaces the stored record set atomically.
func (s *Store) SaveAll(ctx context.Context, invitations []domain.Invitation) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin save: %w", err)
	}
	defer func() {
		_ = tx.Rollback() // safe to call even after commit
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM invitations`); err != nil {
		return fmt.Errorf("sqlite: clear invitations: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO invitations (
			id, first_name, last_name, email, contact,
			salutation, invitation_state, comment, internal_comment,
			created_at, created_by, modified_at, modified_by
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("sqlite: prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, inv := range invitations {
		if _, err := stmt.ExecContext(ctx,
			inv.ID, inv.FirstName, inv.LastName, inv.Email, inv.Contact,
			string(inv.Salutation), string(inv.InvitationState), inv.Comment, inv.InternalComment,
			toMillis(inv.CreatedAt), inv.CreatedBy, toMillis(inv.ModifiedAt), inv.ModifiedBy,
		); err != nil {
			return fmt.Errorf("sqlite: insert invitation %s: %w", inv.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit save: %w", err)
	}
	return nil
}

func toMillis(t time.Time) int64 { return t.UTC().UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }
