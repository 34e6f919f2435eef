package platform

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/soyeahso/attachkit/internal/domain"
)

// Chooser lets the user pick one entry of a list. *Terminal satisfies it.
type Chooser interface {
	Choose(ctx context.Context, title string, items []string) (int, error)
}

// Camera captures a photo and returns a reference to it.
type Camera interface {
	Capture(ctx context.Context, opts domain.PickOptions) (domain.PickResult, error)
}

// LibraryPicker offers the files of a directory as the media library.
type LibraryPicker struct {
	dir     string
	chooser Chooser
	limit   int
}

// NewLibraryPicker creates a library over dir. At most limit of the newest
// entries are offered (0 = 20).
func NewLibraryPicker(dir string, chooser Chooser, limit int) *LibraryPicker {
	if limit <= 0 {
		limit = 20
	}
	return &LibraryPicker{dir: dir, chooser: chooser, limit: limit}
}

type libraryEntry struct {
	path    string
	name    string
	modTime time.Time
}

// List returns library files matching the media type, newest first.
func (l *LibraryPicker) List(mediaTypes domain.MediaType) ([]string, error) {
	entries, err := l.entries(mediaTypes)
	if err != nil {
		return nil, err
	}
	paths := make([]string, len(entries))
	for i, e := range entries {
		paths[i] = e.path
	}
	return paths, nil
}

func (l *LibraryPicker) entries(mediaTypes domain.MediaType) ([]libraryEntry, error) {
	dirEntries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("reading library %s: %w", l.dir, err)
	}

	var out []libraryEntry
	for _, de := range dirEntries {
		if de.IsDir() || strings.HasPrefix(de.Name(), ".") {
			continue
		}
		if mediaTypes != domain.MediaAll && !IsImage(de.Name()) {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		out = append(out, libraryEntry{
			path:    filepath.Join(l.dir, de.Name()),
			name:    de.Name(),
			modTime: info.ModTime(),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].modTime.Equal(out[j].modTime) {
			return out[i].name < out[j].name
		}
		return out[i].modTime.After(out[j].modTime)
	})
	if len(out) > l.limit {
		out = out[:l.limit]
	}
	return out, nil
}

// PickFromLibrary lets the user choose a file. Backing out is a cancel.
func (l *LibraryPicker) PickFromLibrary(ctx context.Context, opts domain.PickOptions) (domain.PickResult, error) {
	entries, err := l.entries(opts.MediaTypes)
	if err != nil {
		return domain.PickResult{}, err
	}
	if len(entries) == 0 {
		return domain.PickResult{}, fmt.Errorf("%w: no images in %s", domain.ErrUnavailable, l.dir)
	}
	if l.chooser == nil {
		return domain.PickResult{}, fmt.Errorf("%w: no chooser for library", domain.ErrUnavailable)
	}

	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = fmt.Sprintf("%s  (%s)", e.name, e.modTime.Format(time.DateTime))
	}

	idx, err := l.chooser.Choose(ctx, "Library: "+l.dir, names)
	if err != nil {
		if errors.Is(err, domain.ErrCancelled) {
			return domain.PickResult{Cancelled: true}, nil
		}
		return domain.PickResult{}, err
	}
	return domain.PickResult{URI: FileURI(entries[idx].path)}, nil
}

// IsImage reports whether the file extension maps to an image MIME type.
func IsImage(name string) bool {
	return strings.HasPrefix(mime.TypeByExtension(strings.ToLower(filepath.Ext(name))), "image/")
}

// FileURI converts an absolute path into a file:// reference.
func FileURI(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(path)}).String()
}

// Picker joins a library and a camera into a domain.ImagePicker.
type Picker struct {
	Library *LibraryPicker
	Camera  Camera
}

func (p *Picker) PickFromLibrary(ctx context.Context, opts domain.PickOptions) (domain.PickResult, error) {
	if p.Library == nil {
		return domain.PickResult{}, fmt.Errorf("%w: no media library", domain.ErrUnavailable)
	}
	return p.Library.PickFromLibrary(ctx, opts)
}

func (p *Picker) Capture(ctx context.Context, opts domain.PickOptions) (domain.PickResult, error) {
	if p.Camera == nil {
		return domain.PickResult{}, fmt.Errorf("%w: no camera", domain.ErrUnavailable)
	}
	return p.Camera.Capture(ctx, opts)
}

// Release hands a temporary reference back to the camera that made it.
// Library files are never released.
func (p *Picker) Release(uri string) error {
	if r, ok := p.Camera.(domain.ReferenceReleaser); ok {
		return r.Release(uri)
	}
	return nil
}

// StaticPicker answers both library and camera with a fixed reference. An
// empty reference is a cancel. "pick --file" uses it when the reference is
// already known. Image-only requests reject references without an image
// extension.
type StaticPicker struct {
	URI string
}

func (p StaticPicker) PickFromLibrary(_ context.Context, opts domain.PickOptions) (domain.PickResult, error) {
	return p.pick(opts)
}

func (p StaticPicker) Capture(_ context.Context, opts domain.PickOptions) (domain.PickResult, error) {
	return p.pick(opts)
}

func (p StaticPicker) pick(opts domain.PickOptions) (domain.PickResult, error) {
	if p.URI == "" {
		return domain.PickResult{Cancelled: true}, nil
	}
	if opts.MediaTypes == domain.MediaImages {
		name := p.URI
		if u, err := url.Parse(p.URI); err == nil && u.Path != "" {
			name = u.Path
		}
		if !IsImage(name) {
			return domain.PickResult{}, fmt.Errorf("%w: %s is not an image", domain.ErrUnavailable, p.URI)
		}
	}
	return domain.PickResult{URI: p.URI}, nil
}
