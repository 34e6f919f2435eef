package blob

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DiskStore keeps objects in a local directory. Objects are published under
// baseURL, which is normally the gateway's /media/ route.
type DiskStore struct {
	dir     string
	baseURL string
	maxSize int64
}

type diskMeta struct {
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
}

// File is an object opened from a DiskStore.
type File struct {
	*os.File
	Name        string
	ContentType string
	Size        int64
	ModTime     time.Time
}

// NewDiskStore creates a DiskStore.
//
// Parameters:
//   - dir: directory holding the objects
//   - baseURL: public prefix for object URLs; empty yields file:// URLs
//   - maxSize: maximum object size in bytes (0 = no limit)
func NewDiskStore(dir, baseURL string, maxSize int64) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	return &DiskStore{
		dir:     abs,
		baseURL: strings.TrimRight(baseURL, "/"),
		maxSize: maxSize,
	}, nil
}

func (s *DiskStore) Backend() string { return "disk" }

// Put writes the object to a temp file and renames it into place, so a
// reader never observes a partial object.
func (s *DiskStore) Put(ctx context.Context, obj Object) error {
	if err := checkDiskName(obj.Name); err != nil {
		return err
	}
	if s.maxSize > 0 && obj.Size > s.maxSize {
		return ErrTooLarge
	}

	tmp, err := os.CreateTemp(s.dir, ".put-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		tmp.Close()
		os.Remove(tmpPath)
	}

	var reader io.Reader = obj.Body
	if s.maxSize > 0 {
		reader = io.LimitReader(obj.Body, s.maxSize+1) // +1 to detect overflow
	}

	written, err := io.Copy(tmp, reader)
	if err != nil {
		cleanup()
		return err
	}
	if s.maxSize > 0 && written > s.maxSize {
		cleanup()
		return ErrTooLarge
	}
	if err := ctx.Err(); err != nil {
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}

	if err := os.Rename(tmpPath, s.path(obj.Name)); err != nil {
		os.Remove(tmpPath)
		return err
	}

	return s.saveMeta(obj.Name, &diskMeta{
		ContentType: obj.ContentType,
		Size:        written,
		CreatedAt:   time.Now(),
	})
}

// URL returns the public URL of a stored object.
func (s *DiskStore) URL(_ context.Context, name string) (string, error) {
	if err := checkDiskName(name); err != nil {
		return "", err
	}
	if _, err := os.Stat(s.path(name)); err != nil {
		if os.IsNotExist(err) {
			return "", ErrNotFound
		}
		return "", err
	}
	if s.baseURL == "" {
		return (&url.URL{Scheme: "file", Path: s.path(name)}).String(), nil
	}
	return s.baseURL + "/" + url.PathEscape(name), nil
}

// Open opens a stored object for reading. The caller closes the file.
func (s *DiskStore) Open(name string) (*File, error) {
	if err := checkDiskName(name); err != nil {
		return nil, err
	}
	f, err := os.Open(s.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	file := &File{File: f, Name: name, Size: info.Size(), ModTime: info.ModTime()}
	if meta, err := s.loadMeta(name); err == nil {
		file.ContentType = meta.ContentType
	}
	return file, nil
}

// Cleanup removes objects older than maxAge.
func (s *DiskStore) Cleanup(maxAge time.Duration) (int, error) {
	cutoff := time.Now().Add(-maxAge)

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			os.Remove(filepath.Join(s.dir, entry.Name()))
			os.Remove(s.metaPath(entry.Name()))
			removed++
		}
	}
	return removed, nil
}

// checkDiskName also rejects hidden names, which would collide with the
// metadata sidecars kept next to each object.
func checkDiskName(name string) error {
	if strings.HasPrefix(name, ".") {
		return ErrInvalidName
	}
	return checkName(name)
}

func (s *DiskStore) path(name string) string {
	return filepath.Join(s.dir, name)
}

func (s *DiskStore) metaPath(name string) string {
	return filepath.Join(s.dir, "."+name+".meta")
}

func (s *DiskStore) saveMeta(name string, meta *diskMeta) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.metaPath(name), data, 0o644); err != nil {
		return fmt.Errorf("writing object metadata: %w", err)
	}
	return nil
}

func (s *DiskStore) loadMeta(name string) (*diskMeta, error) {
	data, err := os.ReadFile(s.metaPath(name))
	if err != nil {
		return nil, err
	}
	var meta diskMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}
