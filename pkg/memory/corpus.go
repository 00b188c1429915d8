package memory

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// CorpusOptions configures chunking and retention for a Corpus.
type CorpusOptions struct {
	ChunkSize    int
	ChunkOverlap int
	// MaxChunks caps retained chunks, evicting oldest first. Zero means unbounded.
	MaxChunks int
	Now       func() time.Time
}

// Corpus is the append-only, ordered in-memory chunk collection for one note.
type Corpus struct {
	opts   CorpusOptions
	mu     sync.RWMutex
	chunks []Chunk
	turn   int
}

func NewCorpus(opts CorpusOptions) *Corpus {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	// Zero selects the default overlap; a negative value disables overlap.
	if opts.ChunkOverlap == 0 {
		opts.ChunkOverlap = DefaultChunkOverlap
	} else if opts.ChunkOverlap < 0 {
		opts.ChunkOverlap = 0
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Corpus{opts: opts}
}

// Add chunks text and appends the pieces under one turn value. The turn counter
// advances only for user and assistant text.
func (c *Corpus) Add(text string, role Role) []Chunk {
	parts := ChunkText(text, c.opts.ChunkSize, c.opts.ChunkOverlap)

	c.mu.Lock()
	defer c.mu.Unlock()
	if role.Conversational() {
		c.turn++
	}
	if len(parts) == 0 {
		return nil
	}
	ts := c.opts.Now()
	added := make([]Chunk, 0, len(parts))
	for _, part := range parts {
		added = append(added, Chunk{
			ID:        "chk-" + uuid.NewString(),
			Text:      part,
			Role:      role,
			Timestamp: ts,
			Turn:      c.turn,
		})
	}
	c.chunks = append(c.chunks, added...)
	c.evictLocked()
	return added
}

// Restore appends previously archived chunks, keeping their ids and turns.
func (c *Corpus) Restore(chunks []Chunk) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ch := range chunks {
		if ch.Turn > c.turn {
			c.turn = ch.Turn
		}
		c.chunks = append(c.chunks, ch)
	}
	c.evictLocked()
}

func (c *Corpus) evictLocked() {
	if c.opts.MaxChunks <= 0 || len(c.chunks) <= c.opts.MaxChunks {
		return
	}
	drop := len(c.chunks) - c.opts.MaxChunks
	kept := make([]Chunk, c.opts.MaxChunks)
	copy(kept, c.chunks[drop:])
	c.chunks = kept
}

// Chunks returns a copy of the stored chunks in insertion order.
func (c *Corpus) Chunks() []Chunk {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Chunk, len(c.chunks))
	copy(out, c.chunks)
	return out
}

func (c *Corpus) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.chunks)
}

// Turn returns the current turn counter.
func (c *Corpus) Turn() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.turn
}
