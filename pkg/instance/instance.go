package instance

import (
	"os"
	"strings"
)

// ID names the running process in logs. It prefers an explicit
// FLINT_INSTANCE_ID, then the platform dyno name, then the hostname.
func ID() string {
	for _, key := range []string{"FLINT_INSTANCE_ID", "DYNO"} {
		if id := strings.TrimSpace(os.Getenv(key)); id != "" {
			return id
		}
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "local"
}
