package utils

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// handlePattern is the accepted shape of a normalized handle
var handlePattern = regexp.MustCompile(`^[a-z0-9._]{1,30}$`)

// GenerateRequestID generates a unique request ID for tracking
func GenerateRequestID() string {
	return uuid.New().String()
}

// NormalizeHandle lowercases and trims a handle. It accepts "@name" and
// profile URLs such as "https://www.instagram.com/name/?hl=en".
func NormalizeHandle(input string) string {
	h := strings.TrimSpace(input)

	if strings.Contains(h, "/") {
		raw := h
		if !strings.Contains(raw, "://") {
			raw = "https://" + raw
		}
		if u, err := url.Parse(raw); err == nil && u.Host != "" {
			for _, segment := range strings.Split(u.Path, "/") {
				if segment != "" {
					h = segment
					break
				}
			}
		}
	}

	h = strings.TrimPrefix(h, "@")
	return strings.ToLower(strings.TrimSpace(h))
}

// IsValidHandle reports whether h is a normalized handle
func IsValidHandle(h string) bool {
	return handlePattern.MatchString(h)
}

// FormatDuration formats a duration to a human-readable string
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return d.String()
	}
	if d < time.Minute {
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%.1fm", d.Minutes())
	}
	return fmt.Sprintf("%.1fh", d.Hours())
}
