package memory

import (
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// RollingSummary holds the current note summary and its append-only history.
// The text is only ever replaced wholesale.
type RollingSummary struct {
	mu      sync.RWMutex
	text    string
	history []SummaryRecord
	now     func() time.Time
}

func NewRollingSummary(now func() time.Time) *RollingSummary {
	if now == nil {
		now = time.Now
	}
	return &RollingSummary{now: now}
}

func (s *RollingSummary) Text() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.text
}

// Len returns the summary length in characters.
func (s *RollingSummary) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return utf8.RuneCountInString(s.text)
}

// Replace swaps in a new summary and records it in the history.
func (s *RollingSummary) Replace(text string) SummaryRecord {
	rec := SummaryRecord{
		ID:        "sum-" + uuid.NewString(),
		Text:      text,
		CreatedAt: s.now(),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.text = text
	s.history = append(s.history, rec)
	return rec
}

// Load sets the summary without recording history, used when resuming a note.
func (s *RollingSummary) Load(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.text = strings.TrimSpace(text)
}

// History returns a copy of every recorded summary, oldest first.
func (s *RollingSummary) History() []SummaryRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]SummaryRecord, len(s.history))
	copy(out, s.history)
	return out
}
