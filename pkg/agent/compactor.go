package agent

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dotsetgreg/notemind/pkg/logger"
	"github.com/dotsetgreg/notemind/pkg/memory"
	"github.com/dotsetgreg/notemind/pkg/providers"
)

const (
	DefaultSummaryThresholdChars = 1800
	DefaultEscalationChars       = 2000
)

// CommitFunc is called with every summary the compressor accepts.
type CommitFunc func(ctx context.Context, rec memory.SummaryRecord)

// SummaryCompressor keeps the rolling summary under a character threshold by
// asking the model to compress it.
type SummaryCompressor struct {
	summary         *memory.RollingSummary
	sessions        *sessionHolder
	thresholdChars  int
	escalationChars int
	onCommit        CommitFunc
}

func NewSummaryCompressor(summary *memory.RollingSummary, sessions *sessionHolder, thresholdChars, escalationChars int, onCommit CommitFunc) *SummaryCompressor {
	if thresholdChars <= 0 {
		thresholdChars = DefaultSummaryThresholdChars
	}
	if escalationChars <= 0 {
		escalationChars = DefaultEscalationChars
	}
	return &SummaryCompressor{
		summary:         summary,
		sessions:        sessions,
		thresholdChars:  thresholdChars,
		escalationChars: escalationChars,
		onCommit:        onCommit,
	}
}

func (c *SummaryCompressor) ThresholdChars() int {
	return c.thresholdChars
}

// CompressIfNeeded compresses when forced or when the summary is over the
// threshold. It reports whether the summary was replaced. If the compression
// call overflows, the session is reset and a minimal prompt over the head of
// the summary is tried once.
func (c *SummaryCompressor) CompressIfNeeded(ctx context.Context, force bool) (bool, error) {
	current := c.summary.Text()
	if strings.TrimSpace(current) == "" {
		return false, nil
	}
	length := c.summary.Len()
	if !force && length <= c.thresholdChars {
		return false, nil
	}

	logger.DebugCF("compressor", "Compressing summary",
		map[string]interface{}{
			"chars":     length,
			"threshold": c.thresholdChars,
			"forced":    force,
		})

	reply, err := c.sessions.respond(ctx, CompressionPrompt(current))
	if err != nil {
		if !providers.IsContextOverflow(err) {
			return false, fmt.Errorf("compress summary: %w", err)
		}
		logger.WarnCF("compressor", "Compression overflowed, retrying with truncated summary",
			map[string]interface{}{
				"chars":      length,
				"head_chars": c.escalationChars,
			})
		if rerr := c.sessions.reset(); rerr != nil {
			return false, rerr
		}
		reply, err = c.sessions.respond(ctx, MinimalCompressionPrompt(current, c.escalationChars))
		if err != nil {
			return false, fmt.Errorf("compress truncated summary: %w", err)
		}
	}

	normalized := NormalizeSummary(reply, c.thresholdChars)
	if normalized == "" {
		logger.WarnC("compressor", "Compression returned no content; keeping previous summary")
		return false, nil
	}
	c.commit(ctx, normalized)

	logger.InfoCF("compressor", "Summary compressed",
		map[string]interface{}{
			"before_chars": length,
			"after_chars":  c.summary.Len(),
		})
	return true, nil
}

func (c *SummaryCompressor) commit(ctx context.Context, text string) memory.SummaryRecord {
	rec := c.summary.Replace(text)
	if c.onCommit != nil {
		c.onCommit(ctx, rec)
	}
	return rec
}

// NormalizeSummary turns a model reply into a bullet list: lines trimmed,
// empties dropped, "- " added where no bullet marker is present. With
// maxChars > 0 trailing bullets are dropped until the list fits, and a single
// remaining bullet is cut to length.
func NormalizeSummary(raw string, maxChars int) string {
	lines := strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n")
	bullets := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || isBareMarker(line) {
			continue
		}
		if !hasBulletMarker(line) {
			line = "- " + line
		}
		bullets = append(bullets, line)
	}
	if maxChars > 0 {
		for len(bullets) > 1 && utf8.RuneCountInString(strings.Join(bullets, "\n")) > maxChars {
			bullets = bullets[:len(bullets)-1]
		}
		if len(bullets) == 1 {
			bullets[0] = truncateRunes(bullets[0], maxChars)
		}
	}
	return strings.Join(bullets, "\n")
}

func hasBulletMarker(line string) bool {
	for _, marker := range []string{"- ", "* ", "• "} {
		if strings.HasPrefix(line, marker) {
			return true
		}
	}
	return false
}

func isBareMarker(line string) bool {
	return line == "-" || line == "*" || line == "•"
}
