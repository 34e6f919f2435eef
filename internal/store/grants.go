package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/soyeahso/attachkit/internal/domain"
)

// Grant is a remembered permission decision for one scope.
type Grant struct {
	Scope     domain.Scope            `json:"scope"`
	Status    domain.PermissionStatus `json:"status"`
	DecidedAt time.Time               `json:"decidedAt"`
}

// GrantStore remembers the user's answers to permission prompts.
type GrantStore struct {
	db *DB
}

// NewGrantStore creates a grant store using the given database.
func NewGrantStore(db *DB) *GrantStore {
	return &GrantStore{db: db}
}

// Get returns the remembered status for scope, or PermissionUndetermined when
// the user was never asked.
func (g *GrantStore) Get(ctx context.Context, scope domain.Scope) (domain.PermissionStatus, error) {
	var status string
	err := g.db.sql.QueryRowContext(ctx,
		"SELECT status FROM permission_grants WHERE scope = ?", string(scope),
	).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.PermissionUndetermined, nil
	}
	if err != nil {
		return "", fmt.Errorf("reading grant for %s: %w", scope, err)
	}
	return domain.PermissionStatus(status), nil
}

// Set stores a decision, replacing any earlier one.
func (g *GrantStore) Set(ctx context.Context, scope domain.Scope, status domain.PermissionStatus) error {
	_, err := g.db.sql.ExecContext(ctx,
		`INSERT INTO permission_grants (scope, status, decided_at) VALUES (?, ?, ?)
		 ON CONFLICT(scope) DO UPDATE SET status = excluded.status, decided_at = excluded.decided_at`,
		string(scope), string(status), time.Now().Format(time.DateTime),
	)
	if err != nil {
		return fmt.Errorf("storing grant for %s: %w", scope, err)
	}
	return nil
}

// List returns every remembered decision ordered by scope.
func (g *GrantStore) List(ctx context.Context) ([]Grant, error) {
	rows, err := g.db.sql.QueryContext(ctx,
		"SELECT scope, status, decided_at FROM permission_grants ORDER BY scope")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var grants []Grant
	for rows.Next() {
		var scope, status, decidedAt string
		if err := rows.Scan(&scope, &status, &decidedAt); err != nil {
			return nil, err
		}
		t, _ := time.Parse(time.DateTime, decidedAt)
		grants = append(grants, Grant{
			Scope:     domain.Scope(scope),
			Status:    domain.PermissionStatus(status),
			DecidedAt: t,
		})
	}
	return grants, rows.Err()
}

// Reset forgets the decision for the given scopes, or for every scope when
// none are given. It returns the number of forgotten decisions.
func (g *GrantStore) Reset(ctx context.Context, scopes ...domain.Scope) (int64, error) {
	var (
		res sql.Result
		err error
	)
	if len(scopes) == 0 {
		res, err = g.db.sql.ExecContext(ctx, "DELETE FROM permission_grants")
	} else {
		var total int64
		for _, s := range scopes {
			r, err := g.db.sql.ExecContext(ctx, "DELETE FROM permission_grants WHERE scope = ?", string(s))
			if err != nil {
				return total, err
			}
			n, _ := r.RowsAffected()
			total += n
		}
		return total, nil
	}
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
