// Package backend is the typed HTTP wrapper around the upstream WebDAV
// server: PROPFIND/GET/PUT/DELETE/MKCOL/COPY/MOVE with Basic-Auth, URL
// encoding and timeouts, per spec §4.1. It performs no retries — failures
// surface as typed errors carrying the backend status code with fidelity.
package backend

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// MetadataTimeout bounds PROPFIND and manifest GET calls (spec §4.1, §5).
const MetadataTimeout = 10 * time.Second

// Client is a stateless (beyond stored credentials) wrapper safe for
// concurrent use by many request goroutines, per spec §5.
type Client struct {
	base     *url.URL
	username string
	password string

	// metaHTTP is used for PROPFIND, MKCOL, DELETE, COPY and MOVE, which
	// must not hang past MetadataTimeout.
	metaHTTP *http.Client
	// streamHTTP is used for GET/PUT bodies, which must honor backpressure
	// and never time out on the whole request. Manifest GETs also go through
	// Get; internal/splitfile bounds them with a MetadataTimeout deadline on
	// their context.
	streamHTTP *http.Client
}

// New builds a Client against backendURL (e.g. "https://host/remote.php/dav/files/bob").
func New(backendURL, username, password string) (*Client, error) {
	u, err := url.Parse(strings.TrimSuffix(backendURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid backend URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid backend URL %q: missing scheme or host", backendURL)
	}

	transport := &http.Transport{
		MaxIdleConns:    16,
		IdleConnTimeout: 90 * time.Second,
	}

	return &Client{
		base:     u,
		username: username,
		password: password,
		metaHTTP: &http.Client{
			Timeout:   MetadataTimeout,
			Transport: transport,
		},
		streamHTTP: &http.Client{
			Transport: transport,
		},
	}, nil
}

// BaseURL returns the backend's scheme+host+path, used by the PROPFIND
// parser to strip the origin prefix during canonicalization.
func (c *Client) BaseURL() string { return c.base.String() }

// BasePath returns the URL path component of the backend base.
func (c *Client) BasePath() string {
	if c.base.Path == "" {
		return "/"
	}
	return c.base.Path
}

// Propfind issues PROPFIND with the given Depth header and returns the raw
// multistatus XML body. Only status 207 is accepted; anything else is a
// StatusError and the result is absent.
func (c *Client) Propfind(ctx context.Context, canonicalPath, depth string) ([]byte, error) {
	const body = `<?xml version="1.0" encoding="utf-8" ?>` +
		`<D:propfind xmlns:D="DAV:"><D:allprop/></D:propfind>`

	req, err := c.newRequest(ctx, "PROPFIND", c.buildURL(canonicalPath), strings.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Depth", depth)
	req.Header.Set("Content-Type", "application/xml; charset=utf-8")
	req.ContentLength = int64(len(body))

	resp, err := c.metaHTTP.Do(req)
	if err != nil {
		return nil, NewTransportError("PROPFIND", canonicalPath, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusMultiStatus {
		io.Copy(io.Discard, resp.Body)
		return nil, NewStatusError("PROPFIND", canonicalPath, resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

// Get opens a streaming GET against canonicalPath. rangeHeader, when
// non-empty, is sent verbatim as the Range header (e.g. "bytes=1024-"). The
// caller owns the returned response and must close its Body. Status 200 and
// 206 are accepted; any other status is a StatusError and resp.Body has
// already been drained and closed.
func (c *Client) Get(ctx context.Context, canonicalPath, rangeHeader string) (*http.Response, error) {
	req, err := c.newRequest(ctx, http.MethodGet, c.buildURL(canonicalPath), nil)
	if err != nil {
		return nil, err
	}
	if rangeHeader != "" {
		req.Header.Set("Range", rangeHeader)
	}

	resp, err := c.streamHTTP.Do(req)
	if err != nil {
		return nil, NewTransportError("GET", canonicalPath, err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		return nil, NewStatusError("GET", canonicalPath, resp.StatusCode)
	}

	return resp, nil
}

// Put streams body to canonicalPath. Accepted statuses: 200, 201, 204, 206.
func (c *Client) Put(ctx context.Context, canonicalPath string, body io.Reader, contentType string) error {
	req, err := c.newRequest(ctx, http.MethodPut, c.buildURL(canonicalPath), body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	} else {
		req.Header.Set("Content-Type", "application/octet-stream")
	}

	resp, err := c.streamHTTP.Do(req)
	if err != nil {
		return NewTransportError("PUT", canonicalPath, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusNoContent, http.StatusPartialContent:
		return nil
	default:
		return NewStatusError("PUT", canonicalPath, resp.StatusCode)
	}
}

// Mkcol creates a collection at canonicalPath. Accepted statuses: 201, 204.
func (c *Client) Mkcol(ctx context.Context, canonicalPath string) error {
	req, err := c.newRequest(ctx, "MKCOL", c.buildURL(canonicalPath), nil)
	if err != nil {
		return err
	}

	resp, err := c.metaHTTP.Do(req)
	if err != nil {
		return NewTransportError("MKCOL", canonicalPath, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusNoContent {
		return NewStatusError("MKCOL", canonicalPath, resp.StatusCode)
	}
	return nil
}

// Delete removes canonicalPath. Accepted statuses: 200, 204.
func (c *Client) Delete(ctx context.Context, canonicalPath string) error {
	req, err := c.newRequest(ctx, http.MethodDelete, c.buildURL(canonicalPath), nil)
	if err != nil {
		return err
	}

	resp, err := c.metaHTTP.Do(req)
	if err != nil {
		return NewTransportError("DELETE", canonicalPath, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return NewStatusError("DELETE", canonicalPath, resp.StatusCode)
	}
	return nil
}

// CopyMove issues a COPY or MOVE of srcPath onto destPath. overwriteHeader is
// forwarded from the inbound client request verbatim (spec §9 open
// question): an empty string means no Overwrite header is sent at all, and
// backend default behavior applies. Accepted statuses: 201, 204.
func (c *Client) CopyMove(ctx context.Context, method, srcPath, destPath, overwriteHeader string) error {
	req, err := c.newRequest(ctx, method, c.buildURL(srcPath), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Destination", destinationURL(c.base, destPath))
	if overwriteHeader != "" {
		req.Header.Set("Overwrite", overwriteHeader)
	}

	resp, err := c.metaHTTP.Do(req)
	if err != nil {
		return NewTransportError(method, srcPath, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusNoContent {
		return NewStatusError(method, srcPath, resp.StatusCode)
	}
	return nil
}
