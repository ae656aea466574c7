package provider

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/net/webdav"

	"github.com/IYouKnow/davproxy/internal/model"
	"github.com/IYouKnow/davproxy/internal/pathutil"
	"github.com/IYouKnow/davproxy/internal/transfer"
)

// OpenFile serves GET (read), PUT (write), and PROPFIND-driven directory
// listings, per the flag webdav.Handler passes in.
func (fs *FileSystem) OpenFile(ctx context.Context, name string, flag int, perm os.FileMode) (webdav.File, error) {
	if flag&(os.O_WRONLY|os.O_RDWR) != 0 || flag&os.O_CREATE != 0 {
		return fs.openForWrite(ctx, name)
	}
	return fs.openForRead(ctx, name)
}

func (fs *FileSystem) openForWrite(ctx context.Context, name string) (webdav.File, error) {
	// The client's own PUT Content-Type header (stashed into ctx by
	// internal/server's contentTypeMiddleware) wins when present (spec §6:
	// "Content-Type passed through on PUT when the client supplied one").
	// Only fall back to whatever was previously cached for this path when
	// the client sent none.
	contentType := contentTypeFromContext(ctx)
	if contentType == "" {
		if existing := fs.Cache.Get(ctx, name); existing != nil {
			contentType = existing.ContentType
		}
	}
	up := transfer.NewUpload(ctx, fs.Client, name, contentType, fs.MaxPartSize)
	return &writeHandle{fs: fs, path: name, upload: up}, nil
}

func (fs *FileSystem) openForRead(ctx context.Context, name string) (webdav.File, error) {
	path, meta, ok := resolve(ctx, fs.Cache, name)
	if !ok {
		return nil, statErr(name)
	}

	if meta.IsCollection {
		return &dirHandle{fs: fs, ctx: ctx, path: path, meta: meta}, nil
	}

	return &readHandle{
		ctx:  ctx,
		path: path,
		meta: meta,
		dl:   transfer.NewDownload(ctx, fs.Client, path, meta),
	}, nil
}

// readHandle serves a GET against a plain or split-file resource.
type readHandle struct {
	ctx  context.Context
	path string
	meta *model.Meta
	dl   *transfer.Download
}

func (h *readHandle) Read(p []byte) (int, error)  { return h.dl.Read(p) }
func (h *readHandle) Seek(off int64, whence int) (int64, error) { return h.dl.Seek(off, whence) }
func (h *readHandle) Close() error                { return h.dl.Close() }
func (h *readHandle) Write([]byte) (int, error) {
	return 0, fmt.Errorf("provider: %s is open for reading", h.path)
}
func (h *readHandle) Readdir(count int) ([]os.FileInfo, error) {
	return nil, fmt.Errorf("provider: %s is not a collection", h.path)
}
func (h *readHandle) Stat() (os.FileInfo, error) {
	return fileInfo{path: h.path, meta: h.meta}, nil
}

// dirHandle serves PROPFIND directory listings; webdav.Handler drives its
// own multistatus XML generation from Readdir's results.
type dirHandle struct {
	fs     *FileSystem
	ctx    context.Context
	path   string
	meta   *model.Meta
	loaded bool
}

// ensureLoaded warms the cache for this folder with a Depth: 1 listing of
// the folder itself. Cache.Get is not used here: on a miss it fetches the
// parent of the path it is given, and the folder's own key is usually
// already cached from resolving it. A failed listing leaves Readdir with
// whatever children are already cached.
func (h *dirHandle) ensureLoaded() {
	if h.loaded {
		return
	}
	if listing, err := NewLoader(h.fs.Client)(h.ctx, h.path); err == nil {
		h.fs.Cache.SetBulk(listing)
	}
	h.loaded = true
}

func (h *dirHandle) Read([]byte) (int, error) {
	return 0, fmt.Errorf("provider: %s is a collection", h.path)
}
func (h *dirHandle) Seek(int64, int) (int64, error) {
	return 0, fmt.Errorf("provider: %s is a collection", h.path)
}
func (h *dirHandle) Write([]byte) (int, error) {
	return 0, fmt.Errorf("provider: %s is a collection", h.path)
}
func (h *dirHandle) Close() error { return nil }

func (h *dirHandle) Stat() (os.FileInfo, error) {
	return fileInfo{path: h.path, meta: h.meta}, nil
}

func (h *dirHandle) Readdir(count int) ([]os.FileInfo, error) {
	h.ensureLoaded()

	children := h.fs.Cache.Children(h.path)
	infos := make([]os.FileInfo, 0, len(children))
	for path, meta := range children {
		infos = append(infos, fileInfo{path: path, meta: meta})
	}
	return infos, nil
}

// writeHandle serves a PUT, streaming straight through to the backend.
type writeHandle struct {
	fs     *FileSystem
	path   string
	upload *transfer.Upload
}

func (h *writeHandle) Write(p []byte) (int, error) { return h.upload.Write(p) }

func (h *writeHandle) Close() error {
	if err := h.upload.Close(); err != nil {
		return err
	}
	h.fs.Cache.Invalidate(h.path)
	h.fs.Cache.Invalidate(pathutil.Parent(h.path))
	return nil
}

func (h *writeHandle) Read([]byte) (int, error) {
	return 0, fmt.Errorf("provider: %s is open for writing", h.path)
}
func (h *writeHandle) Seek(int64, int) (int64, error) {
	return 0, fmt.Errorf("provider: %s is open for writing", h.path)
}
func (h *writeHandle) Readdir(int) ([]os.FileInfo, error) {
	return nil, fmt.Errorf("provider: %s is not a collection", h.path)
}
func (h *writeHandle) Stat() (os.FileInfo, error) {
	return fileInfo{path: h.path, meta: &model.Meta{IsCollection: false}}, nil
}
