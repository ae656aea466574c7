package backend

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// buildURL composes the backend URL for a canonical path the way spec §4.1
// requires: backend_base + "/" + path_without_leading_slash, percent-encoded
// while keeping "/" safe. url.URL's Path/String machinery already encodes
// per-segment and leaves the separators alone, so we let it do the escaping
// instead of hand-rolling it.
func (c *Client) buildURL(canonicalPath string) string {
	rel := strings.TrimPrefix(canonicalPath, "/")
	u := *c.base
	u.Path = strings.TrimSuffix(c.base.Path, "/") + "/" + rel
	return u.String()
}

func (c *Client) newRequest(ctx context.Context, method, rawURL string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(c.username, c.password)
	return req, nil
}

// destinationURL renders a destination URL the way the Destination:
// header expects it: URL-encoded, same rules as buildURL.
func destinationURL(base *url.URL, canonicalPath string) string {
	rel := strings.TrimPrefix(canonicalPath, "/")
	u := *base
	u.Path = strings.TrimSuffix(base.Path, "/") + "/" + rel
	return u.String()
}
