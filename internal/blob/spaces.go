package blob

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/digitalocean/godo"
	"golang.org/x/oauth2"
)

// cdnLister is the subset of godo.CDNService used to resolve endpoints.
type cdnLister interface {
	List(ctx context.Context, opt *godo.ListOptions) ([]godo.CDN, *godo.Response, error)
}

// NewSpacesCDNClient returns a godo CDN service authenticated with a
// DigitalOcean API token.
func NewSpacesCDNClient(ctx context.Context, token string) godo.CDNService {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	return godo.NewClient(oauth2.NewClient(ctx, ts)).CDNs
}

// spacesOrigin derives the origin host of a Spaces bucket from the regional
// endpoint, e.g. "media" + "https://nyc3.digitaloceanspaces.com" gives
// "media.nyc3.digitaloceanspaces.com".
func spacesOrigin(bucket, endpoint string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("parsing spaces endpoint: %w", err)
	}
	host := u.Host
	if host == "" {
		host = strings.TrimRight(u.Path, "/")
	}
	if host == "" {
		return "", fmt.Errorf("spaces endpoint %q has no host", endpoint)
	}
	return bucket + "." + host, nil
}

// ResolveSpacesBaseURL finds the public base URL for a Spaces bucket. A CDN
// endpoint whose origin is the bucket wins (custom domain first); otherwise
// the bucket's origin URL is returned.
func ResolveSpacesBaseURL(ctx context.Context, cdns cdnLister, bucket, endpoint string) (string, error) {
	origin, err := spacesOrigin(bucket, endpoint)
	if err != nil {
		return "", err
	}
	fallback := "https://" + origin
	if cdns == nil {
		return fallback, nil
	}

	opt := &godo.ListOptions{PerPage: 200}
	for {
		endpoints, resp, err := cdns.List(ctx, opt)
		if err != nil {
			return "", fmt.Errorf("listing CDN endpoints: %w", err)
		}
		for _, cdn := range endpoints {
			if !strings.EqualFold(cdn.Origin, origin) {
				continue
			}
			if cdn.CustomDomain != "" {
				return "https://" + cdn.CustomDomain, nil
			}
			return "https://" + cdn.Endpoint, nil
		}

		if resp == nil || resp.Links == nil || resp.Links.IsLastPage() {
			break
		}
		page, err := resp.Links.CurrentPage()
		if err != nil {
			break
		}
		opt.Page = page + 1
	}

	return fallback, nil
}
