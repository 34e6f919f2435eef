package upload

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/google/uuid"
)

// ErrEmptySegment is returned when a reference has no trailing path segment
// to name the object after.
var ErrEmptySegment = errors.New("reference has no trailing path segment")

// Naming strategies accepted by NewNamer.
const (
	NamingUnique  = "unique"
	NamingSegment = "segment"
	NamingContent = "content"
)

// Namer derives the remote object name for an upload.
type Namer interface {
	Name(ref string, data []byte) (string, error)
}

// NamerFunc adapts a function to the Namer interface.
type NamerFunc func(ref string, data []byte) (string, error)

func (f NamerFunc) Name(ref string, data []byte) (string, error) { return f(ref, data) }

// NewNamer returns the namer for a strategy name. An empty name selects
// NamingUnique.
func NewNamer(strategy string) (Namer, error) {
	switch strategy {
	case "", NamingUnique:
		return UniqueNamer(), nil
	case NamingSegment:
		return SegmentNamer(), nil
	case NamingContent:
		return ContentNamer(), nil
	default:
		return nil, fmt.Errorf("unknown naming strategy %q", strategy)
	}
}

// SegmentNamer names the object exactly after the reference's final path
// segment. Two references sharing a final segment map to the same object, so
// the later upload overwrites the earlier one.
func SegmentNamer() Namer {
	return NamerFunc(func(ref string, _ []byte) (string, error) {
		return LastSegment(ref)
	})
}

// UniqueNamer prefixes the final segment with a random UUID.
func UniqueNamer() Namer {
	return NamerFunc(func(ref string, _ []byte) (string, error) {
		seg, err := LastSegment(ref)
		if err != nil {
			return "", err
		}
		return uuid.NewString() + "-" + seg, nil
	})
}

// ContentNamer names the object after the SHA-256 of its bytes, keeping the
// reference's extension. Identical content always maps to the same object.
func ContentNamer() Namer {
	return NamerFunc(func(ref string, data []byte) (string, error) {
		sum := sha256.Sum256(data)
		name := hex.EncodeToString(sum[:])
		if seg, err := LastSegment(ref); err == nil {
			name += strings.ToLower(path.Ext(seg))
		}
		return name, nil
	})
}

// LastSegment returns the text after the last "/" of the reference's path,
// as written (no unescaping). Query and fragment are ignored.
func LastSegment(ref string) (string, error) {
	p := ref
	if u, err := url.Parse(ref); err == nil && u.Scheme != "" {
		p = u.EscapedPath()
		if p == "" {
			p = u.Opaque
		}
	}

	seg := p[strings.LastIndex(p, "/")+1:]
	if seg == "" || seg == "." || seg == ".." {
		return "", fmt.Errorf("%w: %q", ErrEmptySegment, ref)
	}
	return seg, nil
}
