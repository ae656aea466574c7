// Package provider implements golang.org/x/net/webdav.FileSystem and
// webdav.File on top of the backend client, metadata cache and split-file
// resolver, presenting the upstream as a single logical tree (spec §4.5).
package provider

import (
	"context"
	"io"

	"github.com/IYouKnow/davproxy/internal/backend"
	"github.com/IYouKnow/davproxy/internal/metacache"
	"github.com/IYouKnow/davproxy/internal/model"
	"github.com/IYouKnow/davproxy/internal/propfind"
	"github.com/IYouKnow/davproxy/internal/splitfile"
)

// manifestFetcher adapts backend.Client's *http.Response-returning Get to
// the io.ReadCloser-returning shape splitfile.Resolve needs; it never looks
// at the status line beyond what Client.Get already validated.
type manifestFetcher struct {
	client *backend.Client
}

func (f manifestFetcher) Get(ctx context.Context, canonicalPath, rangeHeader string) (io.ReadCloser, error) {
	resp, err := f.client.Get(ctx, canonicalPath, rangeHeader)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// NewLoader builds a metacache.Loader that PROPFINDs folder with Depth: 1,
// parses the multistatus body, and resolves any split-file sets it finds
// before handing the merged listing back to the cache (spec §4.3, §4.4).
func NewLoader(client *backend.Client) metacache.Loader {
	fetcher := manifestFetcher{client: client}

	return func(ctx context.Context, folder string) (map[string]*model.Meta, error) {
		raw, err := client.Propfind(ctx, folder, "1")
		if err != nil {
			return nil, err
		}

		listing, err := propfind.Parse(raw, client.BaseURL(), client.BasePath())
		if err != nil {
			return nil, err
		}

		// A folder PROPFIND should always describe itself; some servers omit
		// the self-entry trailing slash handling is normalized by the parser,
		// but guard against its outright absence so the rest of the pipeline
		// never panics on a missing key.
		if _, ok := listing[folder]; !ok {
			listing[folder] = &model.Meta{IsCollection: true}
		}

		splitfile.Resolve(ctx, fetcher, folder, listing)

		return listing, nil
	}
}
