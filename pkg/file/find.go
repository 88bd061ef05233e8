package file

import (
	"os"
	"time"
)

// Exists reports whether path names an existing file.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// MostRecent returns the path with the newest modification time.
// Paths that cannot be stat'ed are skipped.
func MostRecent(paths []string) (string, bool) {
	var (
		best     string
		bestTime time.Time
		found    bool
	)
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}
		if !found || info.ModTime().After(bestTime) {
			best = path
			bestTime = info.ModTime()
			found = true
		}
	}
	return best, found
}
