package provider

import (
	"os"
	"time"

	"github.com/IYouKnow/davproxy/internal/model"
	"github.com/IYouKnow/davproxy/internal/pathutil"
)

// fileInfo adapts a canonical path + model.Meta to os.FileInfo, the shape
// golang.org/x/net/webdav.Handler needs to synthesize PROPFIND responses.
type fileInfo struct {
	path string
	meta *model.Meta
}

func (fi fileInfo) Name() string { return pathutil.Base(fi.path) }

func (fi fileInfo) Size() int64 {
	if fi.meta.IsCollection {
		return 0
	}
	return fi.meta.ContentLength
}

func (fi fileInfo) Mode() os.FileMode {
	if fi.meta.IsCollection {
		return os.ModeDir | 0755
	}
	return 0644
}

func (fi fileInfo) ModTime() time.Time {
	if fi.meta.LastModified.IsZero() {
		return fi.meta.CreationDate
	}
	return fi.meta.LastModified
}

func (fi fileInfo) IsDir() bool { return fi.meta.IsCollection }

func (fi fileInfo) Sys() any { return fi.meta }
