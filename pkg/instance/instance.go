package instance

import (
	"os"
	"strings"
)

// GetID returns an identifier for the running process: WORKER_ID when set, then the
// Cloud Run revision, then the hostname.
func GetID() string {
	for _, key := range []string{"WORKER_ID", "K_REVISION", "HOSTNAME"} {
		if id := strings.TrimSpace(os.Getenv(key)); id != "" {
			return id
		}
	}
	return "local"
}
