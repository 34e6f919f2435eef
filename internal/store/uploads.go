package store

import (
	"context"
	"fmt"
	"time"
)

// UploadRecord describes one object written to blob storage.
type UploadRecord struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	URL         string    `json:"url"`
	Backend     string    `json:"backend"`
	ContentType string    `json:"contentType,omitempty"`
	Size        int64     `json:"size"`
	Source      string    `json:"source,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// UploadLedger records successful uploads.
type UploadLedger struct {
	db *DB
}

// NewUploadLedger creates an upload ledger using the given database.
func NewUploadLedger(db *DB) *UploadLedger {
	return &UploadLedger{db: db}
}

// RecordUpload appends a record. CreatedAt defaults to now.
func (l *UploadLedger) RecordUpload(ctx context.Context, rec UploadRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	_, err := l.db.sql.ExecContext(ctx,
		`INSERT INTO uploads (name, url, backend, content_type, size, source, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.Name, rec.URL, rec.Backend, rec.ContentType, rec.Size, rec.Source,
		rec.CreatedAt.Format(time.DateTime),
	)
	if err != nil {
		return fmt.Errorf("recording upload %s: %w", rec.Name, err)
	}
	return nil
}

// List returns the most recent uploads first. Limit of 0 defaults to 50.
func (l *UploadLedger) List(ctx context.Context, limit int) ([]UploadRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	return l.query(ctx,
		`SELECT id, name, url, backend, content_type, size, source, created_at
		 FROM uploads ORDER BY id DESC LIMIT ?`, limit)
}

// ByName returns every upload stored under name, oldest first. More than one
// row means the object was overwritten.
func (l *UploadLedger) ByName(ctx context.Context, name string) ([]UploadRecord, error) {
	return l.query(ctx,
		`SELECT id, name, url, backend, content_type, size, source, created_at
		 FROM uploads WHERE name = ? ORDER BY id`, name)
}

func (l *UploadLedger) query(ctx context.Context, q string, args ...any) ([]UploadRecord, error) {
	rows, err := l.db.sql.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []UploadRecord
	for rows.Next() {
		var rec UploadRecord
		var createdAt string
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.URL, &rec.Backend,
			&rec.ContentType, &rec.Size, &rec.Source, &createdAt); err != nil {
			return nil, err
		}
		rec.CreatedAt, _ = time.Parse(time.DateTime, createdAt)
		records = append(records, rec)
	}
	return records, rows.Err()
}
