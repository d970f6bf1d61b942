package objfs

import "strings"

// Normalize returns the canonical index form of a caller supplied path.
//
// Leading and trailing slashes are stripped, runs of slashes collapse to
// one, and the root (written "", "/" or ".") becomes the empty string.
// Normalize is idempotent. Dot segments other than a lone "." are kept
// verbatim: the index, not the caller, decides what a name may contain.
func Normalize(path string) string {
	if path == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(path))
	for _, part := range strings.Split(path, "/") {
		if part == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('/')
		}
		b.WriteString(part)
	}

	if b.String() == "." {
		return ""
	}
	return b.String()
}
