// Package testutil provides a disk-backed fake WebDAV backend for tests
// across the proxy's packages, so transfer/provider/server tests exercise
// real HTTP round trips instead of mocking the backend.Client directly.
// Adapted from internal/storage's Driver/DiskDriver pair (a generic
// key/io.Reader store with Put/Get/List) into a store that understands
// nested paths and a minimal WebDAV verb set, since that's what a fake
// backend actually needs to stand in for here.
package testutil

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// diskStore is a key/io.Reader store rooted at a directory, the same shape
// as the teacher's DiskDriver, generalized to accept keys containing "/"
// (nested paths) and to track which keys are directories.
type diskStore struct {
	mu   sync.Mutex
	root string
	dirs map[string]bool
}

func newDiskStore(root string) *diskStore {
	return &diskStore{root: root, dirs: map[string]bool{"": true}}
}

func (d *diskStore) put(key string, r io.Reader) error {
	full := filepath.Join(d.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return err
	}
	f, err := os.Create(full)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(f, r)
	return err
}

func (d *diskStore) get(key string) (io.ReadCloser, error) {
	return os.Open(filepath.Join(d.root, filepath.FromSlash(key)))
}

func (d *diskStore) remove(key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	key = strings.TrimSuffix(key, "/")
	full := filepath.Join(d.root, filepath.FromSlash(key))
	if d.dirs[key] {
		delete(d.dirs, key)
		return os.RemoveAll(full)
	}
	return os.Remove(full)
}

// mkdir tracks directories with their trailing slash stripped, so a
// directory created via a request path like "docs/" is recognized by
// isDir's callers, which key off the slash-free names list() returns.
func (d *diskStore) mkdir(key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	key = strings.TrimSuffix(key, "/")
	d.dirs[key] = true
	return os.MkdirAll(filepath.Join(d.root, filepath.FromSlash(key)), 0755)
}

// list returns the direct children of folder (relative keys, no leading
// slash), the same restricted shape the teacher's List() returns, but
// scoped to one directory level instead of the whole root.
func (d *diskStore) list(folder string) ([]string, error) {
	full := filepath.Join(d.root, filepath.FromSlash(folder))
	entries, err := os.ReadDir(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

func (d *diskStore) isDir(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dirs[strings.TrimSuffix(key, "/")]
}

// Backend is an httptest-backed fake WebDAV server good enough to exercise
// the proxy's backend client, propfind parser and split-file resolver:
// PROPFIND (Depth: 1, non-collection entries only need resourcetype +
// getcontentlength), GET, PUT, MKCOL, DELETE, COPY, MOVE.
type Backend struct {
	Server *httptest.Server
	store  *diskStore
}

// New starts a Backend rooted at a fresh temp directory. Callers must call
// Close when done.
func New() (*Backend, error) {
	root, err := os.MkdirTemp("", "davproxy-fakebackend-*")
	if err != nil {
		return nil, err
	}
	b := &Backend{store: newDiskStore(root)}
	b.Server = httptest.NewServer(http.HandlerFunc(b.serve))
	return b, nil
}

// Close stops the server and removes its backing directory.
func (b *Backend) Close() {
	b.Server.Close()
	os.RemoveAll(b.store.root)
}

// URL is the backend's base URL, suitable for backend.New.
func (b *Backend) URL() string { return b.Server.URL }

// Put writes data directly into the backend's store, bypassing HTTP, so
// tests can seed objects (including individual split-file parts) before
// exercising the code under test.
func (b *Backend) Put(path string, data []byte) error {
	return b.store.put(strings.TrimPrefix(path, "/"), bytes.NewReader(data))
}

// Get reads an object's current content directly from the store, for test
// assertions.
func (b *Backend) Get(path string) ([]byte, error) {
	r, err := b.store.get(strings.TrimPrefix(path, "/"))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// Exists reports whether path currently names an object in the store.
func (b *Backend) Exists(path string) bool {
	_, err := b.Get(path)
	return err == nil
}

func (b *Backend) serve(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimPrefix(r.URL.Path, "/")

	switch r.Method {
	case "PROPFIND":
		b.propfind(w, key)
	case http.MethodGet:
		f, err := b.store.get(key)
		if err != nil {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		defer f.Close()
		if rng := r.Header.Get("Range"); rng != "" {
			var start int64
			fmt.Sscanf(rng, "bytes=%d-", &start)
			f.(io.Seeker).Seek(start, io.SeekStart)
			w.WriteHeader(http.StatusPartialContent)
		} else {
			w.WriteHeader(http.StatusOK)
		}
		io.Copy(w, f)
	case http.MethodPut:
		if err := b.store.put(key, r.Body); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusCreated)
	case "MKCOL":
		if err := b.store.mkdir(key); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusCreated)
	case http.MethodDelete:
		if err := b.store.remove(key); err != nil {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	case "COPY", "MOVE":
		dest := destKey(r.Header.Get("Destination"))
		data, err := b.store.get(key)
		if err != nil {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		defer data.Close()
		if err := b.store.put(dest, data); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		if r.Method == "MOVE" {
			b.store.remove(key)
		}
		w.WriteHeader(http.StatusCreated)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func destKey(destHeader string) string {
	idx := strings.Index(destHeader, "://")
	if idx < 0 {
		return strings.TrimPrefix(destHeader, "/")
	}
	rest := destHeader[idx+3:]
	slash := strings.Index(rest, "/")
	if slash < 0 {
		return ""
	}
	return strings.TrimPrefix(rest[slash:], "/")
}

type multistatusEntry struct {
	XMLName xml.Name `xml:"D:response"`
	Href    string   `xml:"D:href"`
	Prop    propXML  `xml:"D:propstat>D:prop"`
	Status  string   `xml:"D:propstat>D:status"`
}

type resourceTypeXML struct {
	Collection *struct{} `xml:"D:collection,omitempty"`
}

type propXML struct {
	ResourceType  resourceTypeXML `xml:"D:resourcetype"`
	ContentLength int64           `xml:"D:getcontentlength,omitempty"`
}

func (b *Backend) propfind(w http.ResponseWriter, folder string) {
	names, err := b.store.list(folder)
	if err != nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	type ms struct {
		XMLName   xml.Name           `xml:"D:multistatus"`
		XMLNS     string             `xml:"xmlns:D,attr"`
		Responses []multistatusEntry `xml:"D:response"`
	}
	doc := ms{XMLNS: "DAV:"}

	selfKey := folder
	selfHref := "/" + selfKey
	if !strings.HasSuffix(selfHref, "/") {
		selfHref += "/"
	}
	doc.Responses = append(doc.Responses, entryFor(b, selfHref, selfKey, true))

	for _, name := range names {
		childKey := strings.TrimPrefix(strings.TrimSuffix(folder, "/")+"/"+name, "/")
		isDir := b.store.isDir(childKey)
		href := "/" + childKey
		if isDir {
			href += "/"
		}
		doc.Responses = append(doc.Responses, entryFor(b, href, childKey, isDir))
	}

	out, err := xml.Marshal(doc)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.WriteHeader(http.StatusMultiStatus)
	w.Write(out)
}

func entryFor(b *Backend, href, key string, isDir bool) multistatusEntry {
	e := multistatusEntry{Href: href, Status: "HTTP/1.1 200 OK"}
	if isDir {
		e.Prop.ResourceType.Collection = &struct{}{}
		return e
	}
	if info, err := os.Stat(filepath.Join(b.store.root, filepath.FromSlash(key))); err == nil {
		e.Prop.ContentLength = info.Size()
	}
	return e
}
