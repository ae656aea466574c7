package server

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/sourcegraph/conc/pool"

	"github.com/IYouKnow/davproxy/internal/backend"
	"github.com/IYouKnow/davproxy/internal/model"
	"github.com/IYouKnow/davproxy/internal/pathutil"
	"github.com/IYouKnow/davproxy/internal/provider"
)

const maxConcurrentPartCopies = 8

// copyMoveMiddleware intercepts COPY and MOVE ahead of webdav.Handler and
// forwards them as a single backend request each (or, for a split-file
// head, one request per physical part), instead of letting webdav.Handler's
// generic engine walk the source tree itself issuing a read and a write per
// member. A directory COPY/MOVE is forwarded as one backend request too:
// the backend recurses on its own side, so the proxy never fans out over a
// collection's members (the "empty member list" rule the original
// implementation used to dodge the same recursive fan-out).
func copyMoveMiddleware(client *backend.Client, fs *provider.FileSystem, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "COPY" && r.Method != "MOVE" {
			next.ServeHTTP(w, r)
			return
		}

		srcPath := r.URL.Path
		destHeader := r.Header.Get("Destination")
		if destHeader == "" {
			http.Error(w, "Destination header required", http.StatusBadRequest)
			return
		}
		destPath, err := destinationPath(destHeader)
		if err != nil {
			http.Error(w, "invalid Destination header", http.StatusBadRequest)
			return
		}

		overwrite := r.Header.Get("Overwrite")

		_, meta, ok := fs.Resolve(r.Context(), srcPath)
		if !ok {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}

		if !meta.IsCollection && meta.SplitInfo != nil && len(meta.SplitInfo.SplitFileList) > 1 {
			failures := copyMoveSplitFile(r.Context(), client, r.Method, srcPath, destPath, overwrite, meta.SplitInfo.SplitFileList)
			if len(failures) > 0 {
				// Per-part error list, no rollback of parts that already
				// succeeded (spec §4.6/§4.7, §7 kind 6): the cache keeps
				// whatever state the backend is now actually in.
				writePartFailures(w, failures)
				return
			}
		} else if opErr := client.CopyMove(r.Context(), r.Method, srcPath, destPath, overwrite); opErr != nil {
			writeBackendError(w, opErr)
			return
		}

		fs.Cache.Invalidate(pathutil.Parent(srcPath))
		fs.Cache.Invalidate(pathutil.Parent(destPath))
		if r.Method == "MOVE" {
			fs.Cache.Invalidate(srcPath)
		}

		if meta.IsCollection {
			w.WriteHeader(http.StatusCreated)
		} else {
			w.WriteHeader(http.StatusNoContent)
		}
	})
}

// partFailure names one physical part that failed to copy/move and the
// error the backend returned for it.
type partFailure struct {
	path string
	err  error
}

// copyMoveSplitFile forwards one COPY/MOVE per physical part of a split
// file, bounded and concurrent like the split-file resolver's manifest
// fetch fan-out, plus one more for the ".splitinfo" sidecar. It collects
// every failing part rather than stopping at (or reporting only) the
// first, so the caller sees the complete list of what did and didn't move.
func copyMoveSplitFile(ctx context.Context, client *backend.Client, method, srcHead, destHead, overwrite string, parts []model.PartInfo) []partFailure {
	srcDir := pathutil.Parent(srcHead)
	headBase := pathutil.Base(srcHead)

	type job struct{ src, dest string }
	jobs := make([]job, 0, len(parts)+1)
	for i, part := range parts {
		if i == 0 {
			jobs = append(jobs, job{src: srcHead, dest: destHead})
			continue
		}
		// Each part's destination is destHead plus the part's own suffix
		// (".part001", ...), so the copy sits beside the new head.
		jobs = append(jobs, job{
			src:  pathutil.Join(srcDir, part.FileName),
			dest: destHead + strings.TrimPrefix(part.FileName, headBase),
		})
	}
	jobs = append(jobs, job{src: srcHead + ".splitinfo", dest: destHead + ".splitinfo"})

	p := pool.NewWithResults[*partFailure]().WithMaxGoroutines(maxConcurrentPartCopies)
	for _, j := range jobs {
		j := j
		p.Go(func() *partFailure {
			if err := client.CopyMove(ctx, method, j.src, j.dest, overwrite); err != nil {
				return &partFailure{path: j.dest, err: err}
			}
			return nil
		})
	}

	var failures []partFailure
	for _, f := range p.Wait() {
		if f != nil {
			failures = append(failures, *f)
		}
	}
	return failures
}

func destinationPath(destHeader string) (string, error) {
	u, err := url.Parse(destHeader)
	if err != nil {
		return "", err
	}
	decoded, err := url.PathUnescape(u.Path)
	if err != nil {
		return "", err
	}
	return decoded, nil
}

func writeBackendError(w http.ResponseWriter, err error) {
	if se, ok := err.(*backend.StatusError); ok {
		w.WriteHeader(se.Status)
		return
	}
	w.WriteHeader(http.StatusBadGateway)
}

// multistatusDoc is the 207 response body shape spec's glossary describes
// ("XML response body listing per-resource property results"), narrowed
// here to just href + status per failing part.
type multistatusDoc struct {
	XMLName   xml.Name          `xml:"D:multistatus"`
	XMLNS     string            `xml:"xmlns:D,attr"`
	Responses []multistatusItem `xml:"D:response"`
}

type multistatusItem struct {
	Href   string `xml:"D:href"`
	Status string `xml:"D:status"`
}

// writePartFailures reports every failing part of a multi-part COPY/MOVE as
// a 207 Multi-Status body, one <D:response> per failure, rather than
// collapsing the operation to a single status code.
func writePartFailures(w http.ResponseWriter, failures []partFailure) {
	doc := multistatusDoc{XMLNS: "DAV:"}
	for _, f := range failures {
		doc.Responses = append(doc.Responses, multistatusItem{
			Href:   f.path,
			Status: statusLine(f.err),
		})
	}

	out, err := xml.Marshal(doc)
	if err != nil {
		w.WriteHeader(http.StatusBadGateway)
		return
	}
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.WriteHeader(http.StatusMultiStatus)
	w.Write([]byte(xml.Header))
	w.Write(out)
}

func statusLine(err error) string {
	status := http.StatusBadGateway
	if se, ok := err.(*backend.StatusError); ok {
		status = se.Status
	}
	return fmt.Sprintf("HTTP/1.1 %d %s", status, http.StatusText(status))
}
