package pipeline

import (
	"fmt"
	"regexp"
	"strings"
)

// Video IDs use the YouTube base64 alphabet. Bare input must look exactly
// like a modern 11-character ID; IDs embedded in URLs are matched loosely
// since the surrounding pattern already identifies them.
var (
	videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

	// Hosts are anchored to a scheme separator, a subdomain dot, or the start
	// of the input so lookalike hosts such as evil-youtube.com never match.
	urlPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?:^|//|\.)(?:youtube\.com|youtube-nocookie\.com)/watch\?(?:.*&)?v=([A-Za-z0-9_-]{6,16})`),
		regexp.MustCompile(`(?:^|//|\.)youtu\.be/([A-Za-z0-9_-]{6,16})`),
		regexp.MustCompile(`(?:^|//|\.)(?:youtube\.com|youtube-nocookie\.com)/(?:shorts|embed|live|v)/([A-Za-z0-9_-]{6,16})`),
	}
)

// ParseVideoID extracts the video identifier from a YouTube URL or accepts a
// bare 11-character ID. The ID keys all derived output filenames, so
// re-running the same URL overwrites instead of duplicating.
func ParseVideoID(rawURL string) (string, error) {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return "", fmt.Errorf("empty URL")
	}

	if videoIDPattern.MatchString(trimmed) {
		return trimmed, nil
	}

	for _, pattern := range urlPatterns {
		if m := pattern.FindStringSubmatch(trimmed); m != nil {
			return m[1], nil
		}
	}

	return "", fmt.Errorf("not a recognizable video URL: %s", trimmed)
}
