package auth

import (
	"net/url"
	"strconv"
	"strings"
)

// ExpiryFromURL reads the `ext` query parameter Facebook puts on profile
// picture URLs. The second value is false when the URL is not absolute, the
// parameter is absent, or it does not start with digits.
func ExpiryFromURL(raw string) (int64, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Scheme == "" {
		return 0, false
	}

	ext := u.Query().Get("ext")
	if ext == "" {
		return 0, false
	}

	end := 0
	for end < len(ext) && ext[end] >= '0' && ext[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}

	v, err := strconv.ParseInt(ext[:end], 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
