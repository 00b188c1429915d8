package agent

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"
	"time"
	"unicode"
)

const (
	noteKeyPrefix  = "note:"
	maxNoteSlugLen = 48
)

// ResolveNoteKey maps a user-facing note name to its archive key. Keys that
// already carry the note: prefix pass through; an empty name starts a new
// note keyed by time.
func ResolveNoteKey(name string, now time.Time) string {
	name = strings.TrimSpace(name)
	if isNoteKey(name) {
		return name
	}
	if name == "" {
		return noteKeyPrefix + now.UTC().Format("20060102-150405")
	}
	if slug := slugify(name); slug != "" {
		return noteKeyPrefix + slug
	}
	sum := sha1.Sum([]byte(name))
	return noteKeyPrefix + hex.EncodeToString(sum[:6])
}

func isNoteKey(key string) bool {
	return strings.HasPrefix(key, noteKeyPrefix) && len(key) > len(noteKeyPrefix)
}

func slugify(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
	}
	slug := strings.TrimRight(b.String(), "-")
	if len(slug) > maxNoteSlugLen {
		slug = strings.TrimRight(slug[:maxNoteSlugLen], "-")
	}
	return slug
}
