package memory

import "context"

// Retriever selects context chunks for a query within a budget.
type Retriever interface {
	Retrieve(query string, budget RetrievalBudget) []Chunk
}

// Archive persists note state so a note can be resumed in a later process.
type Archive interface {
	Close() error
	EnsureNote(ctx context.Context, noteKey string) error
	GetNote(ctx context.Context, noteKey string) (Note, error)
	ListNotes(ctx context.Context, limit int) ([]Note, error)
	SetNoteTitle(ctx context.Context, noteKey, title string) error

	AppendChunks(ctx context.Context, noteKey string, chunks []Chunk) error
	ListChunks(ctx context.Context, noteKey string) ([]Chunk, error)

	AppendSummary(ctx context.Context, noteKey string, rec SummaryRecord) error
	ListSummaries(ctx context.Context, noteKey string, limit int) ([]SummaryRecord, error)

	ReplaceTasks(ctx context.Context, noteKey string, items []TaskItem) error
	ListTasks(ctx context.Context, noteKey string) ([]TaskItem, error)
}
