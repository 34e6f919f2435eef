package platform

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/soyeahso/attachkit/internal/domain"
)

// RefPolicy limits which image references a remote caller may submit. Local
// files must resolve inside LibraryDir, symlinks included. Remote URLs must
// resolve to public addresses only.
type RefPolicy struct {
	LibraryDir string

	// LookupIP resolves host names. nil uses net.DefaultResolver.
	LookupIP func(ctx context.Context, network, host string) ([]net.IP, error)
}

// Check returns an error wrapping domain.ErrPermissionDenied when ref may not
// be read on behalf of a remote caller.
func (p RefPolicy) Check(ctx context.Context, ref string) error {
	u, err := url.Parse(ref)
	if err != nil {
		return fmt.Errorf("%w: malformed reference", domain.ErrPermissionDenied)
	}

	switch {
	case u.Scheme == "file":
		if u.Host != "" && u.Host != "localhost" {
			return fmt.Errorf("%w: file reference on host %q", domain.ErrPermissionDenied, u.Host)
		}
		return p.checkFile(u.Path)
	case u.Scheme == "" && strings.HasPrefix(ref, "/"):
		return p.checkFile(ref)
	case u.Scheme == "http" || u.Scheme == "https":
		return p.checkHost(ctx, u.Hostname())
	default:
		return fmt.Errorf("%w: scheme %q is not accepted", domain.ErrPermissionDenied, u.Scheme)
	}
}

func (p RefPolicy) checkFile(path string) error {
	if p.LibraryDir == "" {
		return fmt.Errorf("%w: no media library configured for file references", domain.ErrPermissionDenied)
	}
	root, err := filepath.EvalSymlinks(p.LibraryDir)
	if err != nil {
		return fmt.Errorf("%w: media library unavailable", domain.ErrPermissionDenied)
	}
	target, err := filepath.EvalSymlinks(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("%w: cannot resolve %s", domain.ErrPermissionDenied, path)
	}

	rel, err := filepath.Rel(root, target)
	if err != nil || rel == "." || rel == ".." || filepath.IsAbs(rel) ||
		strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("%w: %s is outside the media library", domain.ErrPermissionDenied, path)
	}
	return nil
}

func (p RefPolicy) checkHost(ctx context.Context, host string) error {
	if host == "" {
		return fmt.Errorf("%w: reference has no host", domain.ErrPermissionDenied)
	}

	var ips []net.IP
	if ip := net.ParseIP(host); ip != nil {
		ips = []net.IP{ip}
	} else {
		lookup := p.LookupIP
		if lookup == nil {
			lookup = net.DefaultResolver.LookupIP
		}
		resolved, err := lookup(ctx, "ip", host)
		if err != nil || len(resolved) == 0 {
			return fmt.Errorf("%w: cannot resolve %s", domain.ErrPermissionDenied, host)
		}
		ips = resolved
	}

	for _, ip := range ips {
		if !isPublicIP(ip) {
			return fmt.Errorf("%w: %s resolves to non-public address %s", domain.ErrPermissionDenied, host, ip)
		}
	}
	return nil
}

func isPublicIP(ip net.IP) bool {
	return !(ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() ||
		ip.IsInterfaceLocalMulticast() || ip.IsMulticast())
}

// RefPicker answers library and camera with a reference supplied by a remote
// caller once Policy accepts it. An empty reference is a cancel.
type RefPicker struct {
	URI    string
	Policy RefPolicy
}

func (p RefPicker) PickFromLibrary(ctx context.Context, opts domain.PickOptions) (domain.PickResult, error) {
	return p.pick(ctx, opts)
}

func (p RefPicker) Capture(ctx context.Context, opts domain.PickOptions) (domain.PickResult, error) {
	return p.pick(ctx, opts)
}

func (p RefPicker) pick(ctx context.Context, opts domain.PickOptions) (domain.PickResult, error) {
	if p.URI == "" {
		return domain.PickResult{Cancelled: true}, nil
	}
	if err := p.Policy.Check(ctx, p.URI); err != nil {
		return domain.PickResult{}, err
	}
	return StaticPicker{URI: p.URI}.pick(opts)
}
