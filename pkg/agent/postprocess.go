package agent

import (
	"regexp"
	"strings"
	"unicode"
)

const (
	maxTitleWords = 6
	maxTaskItems  = 7
)

var titleFillerWords = map[string]bool{
	"notes":      true,
	"note":       true,
	"summary":    true,
	"recap":      true,
	"transcript": true,
	"minutes":    true,
}

var (
	titlePrefixPattern = regexp.MustCompile(`(?i)^\s*(title)\s*[:\-]\s*`)
	listMarkerPattern  = regexp.MustCompile(`^\s*(?:[-*•]\s*)?(?:\d+[.)]\s*)?(?:\[[ xX]?\]\s*)?`)
)

// PostProcessTitle turns a model reply into a title of at most six words with
// no quotes and no trailing filler such as "notes" or "summary".
func PostProcessTitle(raw string) string {
	text := strings.ReplaceAll(raw, "\r\n", "\n")
	text = strings.Map(func(r rune) rune {
		if strings.ContainsRune(replyQuotes, r) {
			return -1
		}
		return r
	}, text)

	first := ""
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			first = line
			break
		}
	}
	first = titlePrefixPattern.ReplaceAllString(first, "")
	first = strings.TrimSpace(strings.TrimLeft(first, "#*- "))

	words := strings.Fields(first)
	for i := range words {
		words[i] = strings.TrimRightFunc(words[i], isTitlePunct)
	}
	words = compactWords(words)

	for len(words) > 1 && titleFillerWords[strings.ToLower(words[len(words)-1])] {
		words = words[:len(words)-1]
	}
	if len(words) > maxTitleWords {
		words = words[:maxTitleWords]
	}
	return strings.Join(words, " ")
}

func isTitlePunct(r rune) bool {
	return unicode.IsPunct(r) && r != ')' && r != '%'
}

func compactWords(words []string) []string {
	out := words[:0]
	for _, w := range words {
		if w != "" {
			out = append(out, w)
		}
	}
	return out
}

// ParseChecklist reads checklist items from free text, one per line, dropping
// bullets, numbering and checkboxes.
func ParseChecklist(raw string) []string {
	var items []string
	for _, line := range strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n") {
		line = strings.TrimSpace(listMarkerPattern.ReplaceAllString(line, ""))
		if line == "" || strings.HasSuffix(line, ":") {
			continue
		}
		items = append(items, line)
	}
	return items
}

// normalizeTaskItems trims items, drops empties and case-insensitive
// duplicates, and keeps at most limit.
func normalizeTaskItems(items []string, limit int) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = cleanReply(listMarkerPattern.ReplaceAllString(strings.TrimSpace(item), ""))
		if item == "" {
			continue
		}
		key := strings.ToLower(strings.Join(strings.Fields(item), " "))
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, item)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}
