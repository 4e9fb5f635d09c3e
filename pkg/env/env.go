package env

import "os"

// Get returns the first non-empty value among the given environment
// variables, or the fallback.
func Get(fallback string, keys ...string) string {
	for _, key := range keys {
		if val := os.Getenv(key); val != "" {
			return val
		}
	}
	return fallback
}
