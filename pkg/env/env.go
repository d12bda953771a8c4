// Package env holds the handful of environment lookups that happen before
// config is loaded (bootstrap logging, PORT).
package env

import (
	"os"
	"strings"
)

// Get returns the trimmed value of the environment variable, or fallback when
// the variable is unset or blank.
func Get(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}
