package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/soyeahso/attachkit/internal/domain"
)

// OutboxEntry is a payload that was handed to the chat.
type OutboxEntry struct {
	ID        string         `json:"id"`
	Choice    string         `json:"choice,omitempty"`
	Payload   domain.Payload `json:"payload"`
	CreatedAt time.Time      `json:"createdAt"`
}

// OutboxStore records every emitted payload.
type OutboxStore struct {
	db *DB
}

// NewOutboxStore creates an outbox store using the given database.
func NewOutboxStore(db *DB) *OutboxStore {
	return &OutboxStore{db: db}
}

// Append records a payload. It rejects payloads that are not exactly one of
// image or location.
func (o *OutboxStore) Append(ctx context.Context, choice string, p domain.Payload) (*OutboxEntry, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	entry := OutboxEntry{
		ID:        uuid.New().String(),
		Choice:    choice,
		Payload:   p,
		CreatedAt: time.Now(),
	}

	var lon, lat sql.NullFloat64
	if p.Location != nil {
		lon = sql.NullFloat64{Float64: p.Location.Longitude, Valid: true}
		lat = sql.NullFloat64{Float64: p.Location.Latitude, Valid: true}
	}

	_, err := o.db.sql.ExecContext(ctx,
		`INSERT INTO outbox (id, choice, kind, image_url, longitude, latitude, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, choice, string(p.Kind()), p.Image, lon, lat,
		entry.CreatedAt.Format(time.DateTime),
	)
	if err != nil {
		return nil, fmt.Errorf("recording outbox entry: %w", err)
	}
	return &entry, nil
}

// Get returns an entry by ID, or nil if not found.
func (o *OutboxStore) Get(ctx context.Context, id string) (*OutboxEntry, error) {
	row := o.db.sql.QueryRowContext(ctx,
		`SELECT id, choice, kind, image_url, longitude, latitude, created_at
		 FROM outbox WHERE id = ?`, id)

	entry, err := scanOutbox(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return entry, err
}

// List returns the most recent entries first. Limit of 0 defaults to 50.
func (o *OutboxStore) List(ctx context.Context, limit int) ([]OutboxEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := o.db.sql.QueryContext(ctx,
		`SELECT id, choice, kind, image_url, longitude, latitude, created_at
		 FROM outbox ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []OutboxEntry
	for rows.Next() {
		entry, err := scanOutbox(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	return entries, rows.Err()
}

// Count returns the number of recorded entries.
func (o *OutboxStore) Count(ctx context.Context) (int, error) {
	var n int
	err := o.db.sql.QueryRowContext(ctx, "SELECT COUNT(*) FROM outbox").Scan(&n)
	return n, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOutbox(r rowScanner) (*OutboxEntry, error) {
	var (
		entry     OutboxEntry
		kind      string
		image     string
		lon, lat  sql.NullFloat64
		createdAt string
	)
	if err := r.Scan(&entry.ID, &entry.Choice, &kind, &image, &lon, &lat, &createdAt); err != nil {
		return nil, err
	}

	switch domain.PayloadKind(kind) {
	case domain.PayloadImage:
		entry.Payload = domain.ImagePayload(image)
	case domain.PayloadLocation:
		entry.Payload = domain.LocationPayload(lon.Float64, lat.Float64)
	default:
		return nil, fmt.Errorf("outbox entry %s has unknown kind %q", entry.ID, kind)
	}
	entry.CreatedAt, _ = time.Parse(time.DateTime, createdAt)
	return &entry, nil
}
