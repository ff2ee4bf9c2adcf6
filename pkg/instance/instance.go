package instance

import "os"

// GetID returns the process instance identifier, preferring the platform
// dyno name, then the host name.
func GetID() string {
	for _, key := range []string{"DYNO", "STOREFRONT_INSTANCE_ID", "HOSTNAME"} {
		if id := os.Getenv(key); id != "" {
			return id
		}
	}
	return "local"
}
