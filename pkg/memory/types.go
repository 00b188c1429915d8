package memory

import "time"

// Role tags where a chunk of text came from.
type Role string

const (
	RoleUser       Role = "user"
	RoleAssistant  Role = "assistant"
	RoleSystem     Role = "system"
	RoleTranscript Role = "transcript"
)

// Conversational reports whether adding text with this role advances the turn counter.
func (r Role) Conversational() bool {
	return r == RoleUser || r == RoleAssistant
}

// ParseRole maps a stored role name back to a Role. Unknown names map to RoleSystem.
func ParseRole(name string) Role {
	switch Role(name) {
	case RoleUser, RoleAssistant, RoleTranscript:
		return Role(name)
	default:
		return RoleSystem
	}
}

// Chunk is an immutable, bounded segment of note text.
type Chunk struct {
	ID        string
	Text      string
	Role      Role
	Timestamp time.Time
	Turn      int
}

// RetrievalBudget bounds a single retrieval call.
type RetrievalBudget struct {
	TokenBudget int
	MaxChunks   int
}

// SummaryRecord is one entry of the rolling summary audit trail.
type SummaryRecord struct {
	ID        string
	Text      string
	CreatedAt time.Time
}

// Note is the archived header of a note session.
type Note struct {
	Key         string
	Title       string
	Summary     string
	CreatedAtMS int64
	UpdatedAtMS int64
}

// TaskItem is one extracted, actionable checklist entry.
type TaskItem struct {
	ID          string
	NoteKey     string
	Text        string
	Done        bool
	CreatedAtMS int64
}
