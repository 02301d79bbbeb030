package storage

import (
	"net/url"
	"strings"
)

// IsPostgresDSN reports whether the config value looks like a postgres
// connection string rather than a file path.
func IsPostgresDSN(s string) bool {
	return strings.HasPrefix(s, "postgres://") || strings.HasPrefix(s, "postgresql://")
}

// HasEmbeddedCredentials reports whether a postgres connection string carries
// a password inline. Those belong in the OS keyring, not on the command line.
func HasEmbeddedCredentials(dsn string) bool {
	u, err := url.Parse(dsn)
	if err != nil || u.User == nil {
		return false
	}
	_, set := u.User.Password()
	return set
}
