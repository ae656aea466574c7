package provider

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/sourcegraph/conc/pool"

	"github.com/IYouKnow/davproxy/internal/backend"
	"github.com/IYouKnow/davproxy/internal/metacache"
	"github.com/IYouKnow/davproxy/internal/pathutil"
)

// maxConcurrentPartDeletes bounds per-part fan-out when removing a split
// file's physical parts, mirroring splitfile's manifest-fetch fan-out bound.
const maxConcurrentPartDeletes = 8

// FileSystem implements golang.org/x/net/webdav.FileSystem over the
// backend client and metadata cache, presenting split-file sets as one
// logical resource (spec §4.5-§4.7). COPY and MOVE are not served through
// this type: internal/server intercepts those methods ahead of
// webdav.Handler and forwards them with a single backend request (or, for a
// split-file head, one request per physical part) instead of letting
// webdav.Handler's generic byte-copy engine walk the tree itself.
type FileSystem struct {
	Client      *backend.Client
	Cache       *metacache.Cache
	MaxPartSize int64
}

// NewFileSystem builds a FileSystem backed by client, using cache for
// metadata lookups and sharding uploads at maxPartSize bytes (<=0 disables
// sharding).
func NewFileSystem(client *backend.Client, cache *metacache.Cache, maxPartSize int64) *FileSystem {
	return &FileSystem{Client: client, Cache: cache, MaxPartSize: maxPartSize}
}

func (fs *FileSystem) Stat(ctx context.Context, name string) (os.FileInfo, error) {
	path, meta, ok := resolve(ctx, fs.Cache, name)
	if !ok {
		return nil, statErr(name)
	}
	return fileInfo{path: path, meta: meta}, nil
}

func (fs *FileSystem) Mkdir(ctx context.Context, name string, perm os.FileMode) error {
	path := name
	if !pathutil.IsCollectionPath(path) {
		path += "/"
	}
	if err := fs.Client.Mkcol(ctx, path); err != nil {
		return err
	}
	fs.Cache.Invalidate(pathutil.Parent(path))
	return nil
}

// RemoveAll deletes name. A directory is deleted with a single backend
// DELETE (the backend recurses natively; we never walk and delete children
// ourselves). A split-file head fans out one DELETE per physical part plus
// the manifest, bounded and concurrent, and reports every failure rather
// than stopping at the first one (spec §8's partial-delete scenario); on a
// partial failure the cache entry is left in place rather than invalidated,
// so the resource stays reachable instead of appearing deleted.
func (fs *FileSystem) RemoveAll(ctx context.Context, name string) error {
	path, meta, ok := resolve(ctx, fs.Cache, name)
	if !ok {
		return statErr(name)
	}

	if meta.IsCollection {
		if err := fs.Client.Delete(ctx, path); err != nil {
			return err
		}
		fs.Cache.Invalidate(path)
		return nil
	}

	if meta.SplitInfo == nil {
		if err := fs.Client.Delete(ctx, path); err != nil {
			return err
		}
		fs.Cache.Invalidate(path)
		return nil
	}

	dir := pathutil.Parent(path)
	targets := make([]string, 0, len(meta.SplitInfo.SplitFileList)+1)
	for i, part := range meta.SplitInfo.SplitFileList {
		if i == 0 {
			targets = append(targets, path)
			continue
		}
		targets = append(targets, pathutil.Join(dir, part.FileName))
	}
	targets = append(targets, path+".splitinfo")

	p := pool.New().WithMaxGoroutines(maxConcurrentPartDeletes)
	var mu sync.Mutex
	var errs []error
	for _, target := range targets {
		target := target
		p.Go(func() {
			if err := fs.Client.Delete(ctx, target); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", target, err))
				mu.Unlock()
			}
		})
	}
	p.Wait()

	// Only invalidate on full success (spec §4.7); a partial failure must
	// leave the cache entry reachable (spec §8 scenario 5) so the caller
	// still sees the resource rather than a phantom "not found".
	if len(errs) == 0 {
		fs.Cache.Invalidate(path)
	}

	return errors.Join(errs...)
}

// Rename is a fallback, single-shot MOVE used only if webdav.Handler ever
// calls it directly; the normal request path is intercepted earlier (see
// FileSystem's doc comment) and never reaches here for split-file heads.
func (fs *FileSystem) Rename(ctx context.Context, oldName, newName string) error {
	if err := fs.Client.CopyMove(ctx, "MOVE", oldName, newName, "T"); err != nil {
		return err
	}
	fs.Cache.Invalidate(pathutil.Parent(oldName))
	fs.Cache.Invalidate(pathutil.Parent(newName))
	return nil
}
