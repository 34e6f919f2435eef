// Package blob stores uploaded attachments in remote object storage and
// resolves their public download URLs.
package blob

import (
	"context"
	"errors"
	"io"
	"strings"
)

var (
	// ErrNotFound is returned when an object doesn't exist.
	ErrNotFound = errors.New("blob: object not found")

	// ErrTooLarge is returned when an object exceeds the size limit.
	ErrTooLarge = errors.New("blob: object too large")

	// ErrInvalidName is returned for empty names or names that escape the bucket.
	ErrInvalidName = errors.New("blob: invalid object name")
)

// Object is a named binary object to be stored.
type Object struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Store is the interface for remote blob storage backends.
type Store interface {
	// Backend identifies the implementation ("disk", "s3", ...).
	Backend() string

	// Put stores the object under its name, replacing any existing object
	// with the same name.
	Put(ctx context.Context, obj Object) error

	// URL returns the public download URL of a stored object.
	URL(ctx context.Context, name string) (string, error)
}

// checkName rejects names that are empty or could address something other
// than a single object in the bucket root.
func checkName(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, "/\\") || strings.ContainsRune(name, 0) {
		return ErrInvalidName
	}
	return nil
}
