package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validConfig() *Config {
	c := New()
	c.BackendURL = "https://cloud.example.com/remote.php/dav/files/bob"
	c.BackendUsername = "bob"
	c.BackendPassword = "hunter2"
	c.AuthUsername = "proxyuser"
	c.AuthPassword = "proxypass"
	return c
}

func TestValidate_AcceptsWellFormedConfig(t *testing.T) {
	assert.NoError(t, Validate(validConfig()))
}

func TestValidate_RejectsMissingBackendURL(t *testing.T) {
	c := validConfig()
	c.BackendURL = ""
	assert.Error(t, Validate(c))
}

func TestValidate_RejectsNonHTTPBackendScheme(t *testing.T) {
	c := validConfig()
	c.BackendURL = "ftp://cloud.example.com/dav"
	assert.Error(t, Validate(c))
}

func TestValidate_RejectsMissingCredentials(t *testing.T) {
	c := validConfig()
	c.AuthPassword = ""
	assert.Error(t, Validate(c))
}

func TestValidate_RejectsMountPathWithoutLeadingSlash(t *testing.T) {
	c := validConfig()
	c.MountPath = "mount"
	assert.Error(t, Validate(c))
}

func TestValidate_RejectsNonPositiveCacheBounds(t *testing.T) {
	c := validConfig()
	c.CacheSize = 0
	assert.Error(t, Validate(c))
}
