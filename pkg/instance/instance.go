package instance

import "os"

// GetID returns the process instance identifier used in logs and lock
// ownership. It falls back to the hostname, then to a fixed default.
func GetID() string {
	if id := os.Getenv("DENTALDESK_INSTANCE_ID"); id != "" {
		return id
	}
	if id := os.Getenv("DYNO"); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "local"
}
