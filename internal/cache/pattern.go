package cache

import "strings"

// Match reports whether key matches pattern, where each "*" matches any run
// of characters (including none) and everything else matches literally. The
// pattern is anchored at both ends: "prs:*acme*" matches any key that starts
// with "prs:" and contains "acme" after it.
//
// This is deliberately substring-style matching, same as the durable tier's
// LIKE translation. A pattern for repository "a" also matches keys for a
// repository named "ab"; callers accept the over-invalidation (an invalidated
// entry is recomputed, not corrupted).
func Match(key, pattern string) bool {
	if pattern == "*" {
		return true
	}
	if !strings.Contains(pattern, "*") {
		return key == pattern
	}

	parts := strings.Split(pattern, "*")

	if !strings.HasPrefix(key, parts[0]) {
		return false
	}
	rest := key[len(parts[0]):]

	last := parts[len(parts)-1]
	middle := parts[1 : len(parts)-1]

	for _, part := range middle {
		if part == "" {
			continue
		}
		idx := strings.Index(rest, part)
		if idx < 0 {
			return false
		}
		rest = rest[idx+len(part):]
	}

	return strings.HasSuffix(rest, last)
}
