package utils

import "os"

// FirstExistingFile returns the first of the candidate paths that names an existing regular
// file, and false if none do.
func FirstExistingFile(candidates ...string) (string, bool) {
	for _, candidate := range candidates {
		if candidate == "" {
			continue
		}
		info, err := os.Stat(candidate)
		if err == nil && info.Mode().IsRegular() {
			return candidate, true
		}
	}
	return "", false
}
