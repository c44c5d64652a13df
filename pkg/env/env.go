package env

import "os"

// Get reads an environment variable, treating empty the same as unset.
func Get(key, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}
