// Package splitfile recognizes split-file physical sets (head + .partNNN
// siblings + .splitinfo manifest) inside a parsed directory listing and
// merges them into one logical resource, per spec §4.3.
package splitfile

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"strconv"
	"strings"
	"sync"

	"github.com/sourcegraph/conc/pool"

	"github.com/IYouKnow/davproxy/internal/backend"
	"github.com/IYouKnow/davproxy/internal/model"
	"github.com/IYouKnow/davproxy/internal/pathutil"
)

// maxConcurrentManifestFetches bounds the fan-out of manifest GETs for a
// single listing call (spec §4.3 step 2, §5).
const maxConcurrentManifestFetches = 8

// Fetcher is the subset of the backend client the resolver needs: a plain
// GET against a canonical path, used to retrieve ".splitinfo" sidecars.
type Fetcher interface {
	Get(ctx context.Context, canonicalPath, rangeHeader string) (io.ReadCloser, error)
}

// Resolve mutates listing in place: physical .splitinfo and .partNNN entries
// are removed, and every split-file head's ContentLength/SplitInfo are
// populated from its fetched-and-parsed manifest. folder is the canonical
// directory path the listing belongs to (used to locate the .splitinfo
// sibling of each head by name).
//
// A manifest that cannot be fetched or parsed is logged and otherwise
// ignored: the head entry is left in the listing with its raw (physical)
// content length, per spec §4.3's failure policy and §9's open question.
func Resolve(ctx context.Context, fetcher Fetcher, folder string, listing map[string]*model.Meta) {
	heads := make(map[string]string) // head canonical path -> .splitinfo canonical path
	removals := make(map[string]bool)

	for key := range listing {
		base := pathutil.Base(key)
		if strings.HasSuffix(base, ".splitinfo") {
			removals[key] = true
			headBase := strings.TrimSuffix(base, ".splitinfo")
			headPath := pathutil.Join(folder, headBase)
			if _, ok := listing[headPath]; ok {
				heads[headPath] = key
			}
			continue
		}
		if isPartSegment(base) {
			removals[key] = true
		}
	}

	if len(heads) > 0 {
		p := pool.New().WithMaxGoroutines(maxConcurrentManifestFetches)
		var mu sync.Mutex

		for headPath, splitinfoPath := range heads {
			headPath, splitinfoPath := headPath, splitinfoPath
			p.Go(func() {
				manifest, err := fetchManifest(ctx, fetcher, splitinfoPath)
				if err != nil {
					log.Printf("splitfile: manifest fetch failed for %s: %v", splitinfoPath, err)
					return
				}

				mu.Lock()
				defer mu.Unlock()
				if head, ok := listing[headPath]; ok {
					head.ContentLength = manifest.TotalSize()
					head.SplitInfo = manifest
				}
			})
		}
		p.Wait()
	}

	for key := range removals {
		delete(listing, key)
	}
}

func fetchManifest(ctx context.Context, fetcher Fetcher, canonicalPath string) (*model.Manifest, error) {
	ctx, cancel := context.WithTimeout(ctx, backend.MetadataTimeout)
	defer cancel()

	body, err := fetcher.Get(ctx, canonicalPath, "")
	if err != nil {
		return nil, err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}

	var manifest model.Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, err
	}
	return &manifest, nil
}

// isPartSegment reports whether a path's last segment is a physical split
// part, i.e. its final "."-delimited extension begins with "part" followed
// by digits (".part001", ".part002", ...).
func isPartSegment(base string) bool {
	idx := strings.LastIndex(base, ".")
	if idx < 0 {
		return false
	}
	ext := base[idx+1:]
	if !strings.HasPrefix(ext, "part") {
		return false
	}
	digits := strings.TrimPrefix(ext, "part")
	if digits == "" {
		return false
	}
	_, err := strconv.Atoi(digits)
	return err == nil
}

// PartName renders the canonical ".partNNN" suffix for a 1-based part index,
// zero-padded to width 3 (spec §6).
func PartName(headName string, index int) string {
	return headName + ".part" + zeroPad3(index)
}

func zeroPad3(n int) string {
	s := strconv.Itoa(n)
	for len(s) < 3 {
		s = "0" + s
	}
	return s
}
