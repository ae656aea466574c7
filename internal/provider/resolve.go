package provider

import (
	"context"
	"os"

	"github.com/IYouKnow/davproxy/internal/metacache"
	"github.com/IYouKnow/davproxy/internal/model"
	"github.com/IYouKnow/davproxy/internal/pathutil"
)

// resolve looks up name, which webdav.Handler hands us without regard for
// our trailing-slash collection convention: it tries the file-shaped
// canonical path first, then the directory-shaped one. Returns the
// canonical path actually found and its meta, or ok=false if neither exists.
func resolve(ctx context.Context, cache *metacache.Cache, name string) (string, *model.Meta, bool) {
	if name == "" || name == "/" {
		if meta := cache.Get(ctx, "/"); meta != nil {
			return "/", meta, true
		}
		// The root always exists even if the backend never reports a
		// self-entry for it; callers only need to know it's a collection.
		return "/", &model.Meta{IsCollection: true}, true
	}

	filePath := name
	if meta := cache.Get(ctx, filePath); meta != nil {
		return filePath, meta, true
	}

	dirPath := name
	if !pathutil.IsCollectionPath(dirPath) {
		dirPath += "/"
	}
	if meta := cache.Get(ctx, dirPath); meta != nil {
		return dirPath, meta, true
	}

	return "", nil, false
}

// Resolve exposes the same file-then-directory path lookup OpenFile/Stat
// use, for callers outside this package that need to classify a path
// before deciding how to forward a request (internal/server's COPY/MOVE
// interception, which needs to know whether the source is a collection or
// a split-file head before choosing how to forward it).
func (fs *FileSystem) Resolve(ctx context.Context, name string) (string, *model.Meta, bool) {
	return resolve(ctx, fs.Cache, name)
}

func statErr(name string) error {
	return &os.PathError{Op: "stat", Path: name, Err: os.ErrNotExist}
}
