// Package config holds the proxy's runtime configuration and the rules for
// validating it, split the way phaus-nextcloud-sync keeps its types and
// Validate logic apart from loading. Unlike that JSON-file config, values
// here are populated by internal/cli from cobra flags bound through viper
// (DAVPROXY_*-prefixed environment variables override flags), since the proxy
// is a long-running service started from the command line rather than a
// user-editable sync profile store.
package config

import (
	"fmt"
	"net/url"
	"time"
)

// Defaults mirror spec §6.
const (
	DefaultListenAddr    = ":8080"
	DefaultMountPath     = "/dav/"
	DefaultCacheSize     = 2000
	DefaultCacheTTL      = 60 * time.Second
	DefaultFileMaxSize   = 0 // 0 disables upload sharding
	DefaultRealm         = "davproxy"
)

// Config is the proxy's full runtime configuration.
type Config struct {
	// ListenAddr is the address the proxy's own HTTP server binds to.
	ListenAddr string

	// MountPath is the URL path prefix clients must address the proxy
	// under (spec §6); "/" means no prefix redirect is needed.
	MountPath string

	// BackendURL is the single upstream WebDAV collection this proxy
	// forwards every request against.
	BackendURL string
	// BackendUsername/BackendPassword authenticate the proxy to BackendURL.
	BackendUsername string
	BackendPassword string

	// AuthUsername/AuthPassword are the one front-end credential pair the
	// proxy's own clients must present.
	AuthUsername string
	AuthPassword string

	// CacheSize and CacheTTL bound the metadata cache (spec §4.4).
	CacheSize int
	CacheTTL  time.Duration

	// FileMaxSize, when > 0, shards uploads larger than this many bytes
	// into split-file parts (spec §4.9). 0 disables sharding.
	FileMaxSize int64
}

// New returns a Config populated with spec §6 defaults; callers overwrite
// fields from flags/env before calling Validate.
func New() *Config {
	return &Config{
		ListenAddr:  DefaultListenAddr,
		MountPath:   DefaultMountPath,
		CacheSize:   DefaultCacheSize,
		CacheTTL:    DefaultCacheTTL,
		FileMaxSize: DefaultFileMaxSize,
	}
}

// Validate refuses to start the proxy on an incomplete or nonsensical
// configuration (spec §6's mandatory fields).
func Validate(c *Config) error {
	if c == nil {
		return fmt.Errorf("config: cannot be nil")
	}

	if err := validateBackendURL(c.BackendURL); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.BackendUsername == "" {
		return fmt.Errorf("config: backend username must be set")
	}
	if c.BackendPassword == "" {
		return fmt.Errorf("config: backend password must be set")
	}
	if c.AuthUsername == "" {
		return fmt.Errorf("config: auth username must be set")
	}
	if c.AuthPassword == "" {
		return fmt.Errorf("config: auth password must be set")
	}
	if c.MountPath == "" {
		return fmt.Errorf("config: mount path cannot be empty")
	}
	if c.MountPath[0] != '/' {
		return fmt.Errorf("config: mount path must start with '/'")
	}
	if c.CacheSize <= 0 {
		return fmt.Errorf("config: cache size must be positive")
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("config: cache TTL must be positive")
	}
	if c.FileMaxSize < 0 {
		return fmt.Errorf("config: file max size cannot be negative")
	}

	return nil
}

func validateBackendURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("backend URL cannot be empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid backend URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("backend URL must use http or https")
	}
	if u.Host == "" {
		return fmt.Errorf("backend URL must have a host")
	}
	return nil
}
