// Package server wires the provider's FileSystem into golang.org/x/net/webdav's
// Handler behind front-end auth and a mount-path redirect: the same
// Start/Shutdown/middleware-chain shape the teacher's Atlas server uses,
// generalized from serving local disk to proxying a single backend. The
// teacher's quotaMiddleware response-buffering/XML-rewrite technique has no
// genuine home here: webdav.Handler synthesizes its own multistatus body
// from FileSystem.Stat/Readdir, so there is no raw backend-shaped XML left
// for us to post-process, and this proxy has no local disk whose usage it
// could report anyway (the backend owns actual storage and quota). See
// DESIGN.md for the full justification.
package server

import (
	"context"
	"log"
	"net/http"
	"strings"

	"golang.org/x/net/webdav"

	"github.com/IYouKnow/davproxy/internal/auth"
	"github.com/IYouKnow/davproxy/internal/backend"
	"github.com/IYouKnow/davproxy/internal/provider"
)

// Server is the proxy's own front-end HTTP server.
type Server struct {
	Addr       string
	MountPath  string
	Client     *backend.Client
	FS         *provider.FileSystem
	Cred       *auth.Credential
	HTTPServer *http.Server
}

// New builds a Server. mountPath is the URL prefix clients must address the
// proxy under; "/" means no redirect is needed.
func New(addr, mountPath string, client *backend.Client, fs *provider.FileSystem, cred *auth.Credential) *Server {
	return &Server{Addr: addr, MountPath: mountPath, Client: client, FS: fs, Cred: cred}
}

// Handler builds the full middleware chain: mount redirect -> auth -> COPY/MOVE
// interception -> Content-Type capture -> LOCK/UNLOCK rejection ->
// webdav.Handler. Exposed separately from Start so tests can drive it
// directly with httptest instead of binding a real listener.
func (s *Server) Handler() http.Handler {
	webdavHandler := &webdav.Handler{
		Prefix:     normalizedPrefix(s.MountPath),
		FileSystem: s.FS,
		// x/net/webdav's Handler answers every request with 500 when
		// LockSystem is nil, and it takes short-lived internal locks for
		// PUT/DELETE, so an in-memory lock system backs those. Client
		// LOCK/UNLOCK requests never reach it: noLocks below answers them
		// with 501 Not Implemented, so the server reports no lock support.
		LockSystem: webdav.NewMemLS(),
		Logger: func(r *http.Request, err error) {
			if err != nil {
				log.Printf("davproxy: %s %s: %v", r.Method, r.URL.Path, err)
			}
		},
	}

	noLocks := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == "LOCK" || r.Method == "UNLOCK" {
			http.Error(w, "locking is not supported", http.StatusNotImplemented)
			return
		}
		webdavHandler.ServeHTTP(w, r)
	})

	return mountRedirectMiddleware(s.MountPath,
		auth.Middleware(s.Cred, "davproxy")(
			copyMoveMiddleware(s.Client, s.FS, contentTypeMiddleware(noLocks))))
}

// Start builds the handler chain and blocks serving HTTP until Shutdown is
// called or ListenAndServe otherwise fails.
func (s *Server) Start() error {
	s.HTTPServer = &http.Server{
		Addr:    s.Addr,
		Handler: s.Handler(),
	}

	log.Printf("davproxy listening on %s, mount %s", s.Addr, s.MountPath)
	if err := s.HTTPServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.HTTPServer.Shutdown(ctx)
}

func normalizedPrefix(mountPath string) string {
	if mountPath == "" {
		return "/"
	}
	return mountPath
}

// mountRedirectMiddleware sends a bare GET at "/" to "<mount>/" when the
// proxy is mounted under a non-root path, so a client that doesn't yet know
// the mount point can discover it (spec §6). Unlike quotaMiddleware, this
// never buffers or rewrites a body: it's a pre-dispatch check-and-redirect,
// nothing more.
func mountRedirectMiddleware(mountPath string, next http.Handler) http.Handler {
	prefix := strings.TrimSuffix(mountPath, "/")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if prefix != "" && r.Method == http.MethodGet && (r.URL.Path == "/" || r.URL.Path == "") {
			http.Redirect(w, r, prefix+"/", http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}
