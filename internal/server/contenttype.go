package server

import (
	"net/http"

	"github.com/IYouKnow/davproxy/internal/provider"
)

// contentTypeMiddleware stashes an inbound PUT's Content-Type header into
// the request context, the only place that header is still available by
// the time webdav.Handler calls FileSystem.OpenFile (which only receives a
// path and a flag, not the original *http.Request).
func contentTypeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut {
			if ct := r.Header.Get("Content-Type"); ct != "" {
				r = r.WithContext(provider.WithContentType(r.Context(), ct))
			}
		}
		next.ServeHTTP(w, r)
	})
}
