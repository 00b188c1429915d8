// NoteMind - retrieval-augmented voice note assistant
// License: MIT
//
// Copyright (c) 2026 NoteMind contributors

package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/dotsetgreg/notemind/pkg/config"
	"github.com/dotsetgreg/notemind/pkg/logger"
	"github.com/dotsetgreg/notemind/pkg/memory"
	"github.com/dotsetgreg/notemind/pkg/providers"
)

var (
	ErrEmptyQuestion = errors.New("question is empty")
	ErrClosed        = errors.New("controller is closed")
)

type sessionState string

const (
	stateIdle       sessionState = "idle"
	stateSending    sessionState = "sending"
	stateSucceeded  sessionState = "succeeded"
	stateOverflowed sessionState = "overflowed"
)

// Options configures a Controller. Zero values select defaults.
type Options struct {
	NoteKey   string
	Workspace string

	ChunkSize    int
	ChunkOverlap int // negative disables overlap
	// MaxCorpusChunks caps the in-memory corpus; zero keeps every chunk.
	MaxCorpusChunks int

	Primary  memory.RetrievalBudget
	Fallback memory.RetrievalBudget

	SummaryThresholdChars int
	EscalationChars       int
	// SyncSummary makes Chat await the summary update instead of running it in the background.
	SyncSummary bool
	CallTimeout time.Duration

	// Archive, when set, mirrors chunks, summaries, title and tasks and is
	// used to resume NoteKey. The controller closes it on Close.
	Archive memory.Archive
	Now     func() time.Time
}

// OptionsFromConfig maps the rag and agent config sections onto Options.
func OptionsFromConfig(cfg *config.Config, noteKey string, archive memory.Archive) Options {
	r := cfg.RAG
	overlap := r.ChunkOverlap
	if overlap == 0 {
		overlap = -1
	}
	primary := memory.DerivePrimaryBudget(r.PrimaryTokenBudget, r.PrimaryMaxChunks)
	return Options{
		NoteKey:               noteKey,
		Workspace:             cfg.WorkspacePath(),
		ChunkSize:             r.ChunkSize,
		ChunkOverlap:          overlap,
		MaxCorpusChunks:       r.MaxCorpusChunks,
		Primary:               primary,
		Fallback:              memory.DeriveFallbackBudget(primary, r.FallbackTokenBudget, r.FallbackMaxChunks),
		SummaryThresholdChars: r.SummaryThresholdChars,
		EscalationChars:       r.EscalationChars,
		SyncSummary:           r.SyncSummary,
		CallTimeout:           cfg.CallTimeout(),
		Archive:               archive,
	}
}

// Controller runs note operations against a model session: it retrieves
// context, builds prompts, keeps the rolling summary and recovers once from a
// context overflow per operation. Operations are serialized.
type Controller struct {
	opts       Options
	corpus     *memory.Corpus
	retriever  memory.Retriever
	builder    *PromptBuilder
	summary    *memory.RollingSummary
	sessions   *sessionHolder
	compressor *SummaryCompressor
	archive    memory.Archive

	opMu    sync.Mutex
	state   sessionState
	pending []string

	bgSem  *semaphore.Weighted
	bg     sync.WaitGroup
	closed atomic.Bool
}

func NewController(ctx context.Context, factory providers.SessionFactory, opts Options) (*Controller, error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	opts.Primary = memory.DerivePrimaryBudget(opts.Primary.TokenBudget, opts.Primary.MaxChunks)
	opts.Fallback = memory.DeriveFallbackBudget(opts.Primary, opts.Fallback.TokenBudget, opts.Fallback.MaxChunks)

	sessions, err := newSessionHolder(factory, SessionInstructions(opts.Workspace), opts.CallTimeout)
	if err != nil {
		return nil, err
	}

	corpus := memory.NewCorpus(memory.CorpusOptions{
		ChunkSize:    opts.ChunkSize,
		ChunkOverlap: opts.ChunkOverlap,
		MaxChunks:    opts.MaxCorpusChunks,
		Now:          opts.Now,
	})
	retriever := memory.NewLexicalRetriever(corpus)

	c := &Controller{
		opts:      opts,
		corpus:    corpus,
		retriever: retriever,
		builder:   NewPromptBuilder(retriever, opts.Fallback),
		summary:   memory.NewRollingSummary(opts.Now),
		sessions:  sessions,
		archive:   opts.Archive,
		state:     stateIdle,
		bgSem:     semaphore.NewWeighted(1),
	}
	c.compressor = NewSummaryCompressor(c.summary, sessions, opts.SummaryThresholdChars, opts.EscalationChars, c.archiveSummary)

	if err := c.resume(ctx); err != nil {
		return nil, err
	}

	logger.InfoCF("controller", "Controller ready",
		map[string]interface{}{
			"note":              opts.NoteKey,
			"chunks":            corpus.Len(),
			"primary_tokens":    opts.Primary.TokenBudget,
			"primary_chunks":    opts.Primary.MaxChunks,
			"fallback_tokens":   opts.Fallback.TokenBudget,
			"fallback_chunks":   opts.Fallback.MaxChunks,
			"summary_threshold": c.compressor.ThresholdChars(),
			"sync_summary":      opts.SyncSummary,
		})
	return c, nil
}

func (c *Controller) resume(ctx context.Context) error {
	if c.archive == nil || strings.TrimSpace(c.opts.NoteKey) == "" {
		return nil
	}
	key := c.opts.NoteKey
	if err := c.archive.EnsureNote(ctx, key); err != nil {
		return fmt.Errorf("open note %s: %w", key, err)
	}
	chunks, err := c.archive.ListChunks(ctx, key)
	if err != nil {
		return fmt.Errorf("load chunks for %s: %w", key, err)
	}
	c.corpus.Restore(chunks)

	latest, err := c.archive.ListSummaries(ctx, key, 1)
	if err != nil {
		return fmt.Errorf("load summary for %s: %w", key, err)
	}
	if len(latest) > 0 {
		c.summary.Load(latest[0].Text)
	}
	if len(chunks) > 0 || len(latest) > 0 {
		logger.InfoCF("controller", "Resumed note",
			map[string]interface{}{
				"note":          key,
				"chunks":        len(chunks),
				"summary_chars": c.summary.Len(),
			})
	}
	return nil
}

// AddTranscript indexes transcript text. Blank text adds nothing.
func (c *Controller) AddTranscript(ctx context.Context, text string) ([]memory.Chunk, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}
	if !c.lockOpen() {
		return nil, ErrClosed
	}
	defer c.opMu.Unlock()

	chunks := c.corpus.Add(text, memory.RoleTranscript)
	c.archiveChunks(ctx, chunks)
	logger.DebugCF("controller", "Transcript added",
		map[string]interface{}{
			"chunks": len(chunks),
			"total":  c.corpus.Len(),
		})
	return chunks, nil
}

// Chat answers question from the note. The question and answer are recorded
// only after a successful reply, then the rolling summary is updated in the
// background (or inline with SyncSummary). Background failures are logged and
// dropped.
func (c *Controller) Chat(ctx context.Context, question string) (string, error) {
	if c.closed.Load() {
		return "", ErrClosed
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return "", ErrEmptyQuestion
	}

	if !c.lockOpen() {
		return "", ErrClosed
	}
	defer c.opMu.Unlock()

	reply, err := c.execute(ctx, TaskChat, question, AssistantMessageSchema)
	if err != nil {
		return "", err
	}
	answer := reply.Text

	recorded := c.corpus.Add(question, memory.RoleUser)
	recorded = append(recorded, c.corpus.Add(answer, memory.RoleAssistant)...)
	c.archiveChunks(ctx, recorded)

	exchange := "User: " + question + "\nAssistant: " + answer
	if c.opts.SyncSummary {
		if err := c.updateSummaryLocked(ctx, exchange); err != nil {
			logger.WarnCF("controller", "Summary update failed",
				map[string]interface{}{"error": err.Error()})
		}
	} else {
		c.scheduleSummaryUpdateLocked(exchange)
	}
	return answer, nil
}

// Summarize refreshes the rolling summary from the whole note and returns it.
// An empty note is a no-op.
func (c *Controller) Summarize(ctx context.Context) (string, error) {
	if c.closed.Load() {
		return "", ErrClosed
	}
	if !c.lockOpen() {
		return "", ErrClosed
	}
	defer c.opMu.Unlock()

	if c.corpus.Len() == 0 {
		return c.summary.Text(), nil
	}
	if err := c.updateSummaryLocked(ctx, ""); err != nil {
		return c.summary.Text(), err
	}
	return c.summary.Text(), nil
}

// GenerateTitle returns a short title for the note. An empty note yields "".
func (c *Controller) GenerateTitle(ctx context.Context) (string, error) {
	if c.closed.Load() {
		return "", ErrClosed
	}
	if !c.lockOpen() {
		return "", ErrClosed
	}
	defer c.opMu.Unlock()

	if c.corpus.Len() == 0 && c.summary.Len() == 0 {
		return "", nil
	}
	reply, err := c.execute(ctx, TaskTitle, "", AssistantMessageSchema)
	if err != nil {
		return "", err
	}
	title := PostProcessTitle(reply.Text)
	if c.archive != nil && c.opts.NoteKey != "" && title != "" {
		if err := c.archive.SetNoteTitle(ctx, c.opts.NoteKey, title); err != nil {
			logger.WarnCF("controller", "Failed to archive title",
				map[string]interface{}{"note": c.opts.NoteKey, "error": err.Error()})
		}
	}
	return title, nil
}

// ExtractTasks returns actionable checklist items from the note.
func (c *Controller) ExtractTasks(ctx context.Context) ([]string, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}
	if !c.lockOpen() {
		return nil, ErrClosed
	}
	defer c.opMu.Unlock()

	if c.corpus.Len() == 0 && c.summary.Len() == 0 {
		return nil, nil
	}
	reply, err := c.execute(ctx, TaskExtraction, "", ChecklistSchema)
	if err != nil {
		return nil, err
	}
	items := reply.Items
	if !reply.Structured {
		items = ParseChecklist(reply.Text)
	}
	items = normalizeTaskItems(items, maxTaskItems)

	if c.archive != nil && c.opts.NoteKey != "" {
		tasks := make([]memory.TaskItem, 0, len(items))
		for _, item := range items {
			tasks = append(tasks, memory.TaskItem{Text: item})
		}
		if err := c.archive.ReplaceTasks(ctx, c.opts.NoteKey, tasks); err != nil {
			logger.WarnCF("controller", "Failed to archive tasks",
				map[string]interface{}{"note": c.opts.NoteKey, "error": err.Error()})
		}
	}
	return items, nil
}

// execute submits one task prompt. On a context overflow it replaces the
// session, force-compresses the summary and retries once under the fallback
// budget; a second overflow is returned to the caller.
func (c *Controller) execute(ctx context.Context, task Task, input string, schema *providers.Schema) (modelReply, error) {
	c.transition(task, stateSending)
	prompt := c.builder.Build(task, input, c.opts.Primary, c.summary.Text())
	reply, err := c.send(ctx, prompt, schema)
	if err == nil {
		c.transition(task, stateSucceeded)
		c.transition(task, stateIdle)
		return reply, nil
	}
	if !providers.IsContextOverflow(err) {
		c.transition(task, stateIdle)
		logger.ErrorCF("controller", "Model call failed",
			map[string]interface{}{"task": task.String(), "error": err.Error()})
		return modelReply{}, fmt.Errorf("%s: %w", task, err)
	}

	c.transition(task, stateOverflowed)
	logger.WarnCF("controller", "Context window exceeded, resetting session and retrying with fallback budget",
		map[string]interface{}{
			"task":            task.String(),
			"fallback_tokens": c.opts.Fallback.TokenBudget,
			"fallback_chunks": c.opts.Fallback.MaxChunks,
		})
	if err := c.sessions.reset(); err != nil {
		c.transition(task, stateIdle)
		return modelReply{}, fmt.Errorf("%s: %w", task, err)
	}
	if _, err := c.compressor.CompressIfNeeded(ctx, true); err != nil {
		logger.WarnCF("controller", "Forced summary compression failed",
			map[string]interface{}{"task": task.String(), "error": err.Error()})
	}

	c.transition(task, stateSending)
	prompt = c.builder.Build(task, input, c.opts.Fallback, c.summary.Text())
	reply, err = c.send(ctx, prompt, schema)
	if err != nil {
		c.transition(task, stateIdle)
		logger.ErrorCF("controller", "Model call failed after overflow recovery",
			map[string]interface{}{
				"task":     task.String(),
				"overflow": providers.IsContextOverflow(err),
				"error":    err.Error(),
			})
		return modelReply{}, fmt.Errorf("%s after overflow recovery: %w", task, err)
	}
	c.transition(task, stateSucceeded)
	c.transition(task, stateIdle)
	return reply, nil
}

func (c *Controller) send(ctx context.Context, prompt string, schema *providers.Schema) (modelReply, error) {
	if schema != nil {
		return c.sessions.respondStructured(ctx, prompt, schema)
	}
	text, err := c.sessions.respond(ctx, prompt)
	if err != nil {
		return modelReply{}, err
	}
	return modelReply{Text: cleanReply(text)}, nil
}

func (c *Controller) transition(task Task, next sessionState) {
	prev := c.state
	c.state = next
	logger.DebugCF("controller", "State transition",
		map[string]interface{}{
			"task": task.String(),
			"from": string(prev),
			"to":   string(next),
		})
}

// updateSummaryLocked merges input (or the whole note when empty) into the
// rolling summary, then compresses it if it grew past the threshold.
func (c *Controller) updateSummaryLocked(ctx context.Context, input string) error {
	reply, err := c.execute(ctx, TaskSummaryUpdate, input, nil)
	if err != nil {
		return err
	}
	normalized := NormalizeSummary(reply.Text, 0)
	if normalized == "" {
		return nil
	}
	c.compressor.commit(ctx, normalized)
	if _, err := c.compressor.CompressIfNeeded(ctx, false); err != nil {
		return err
	}
	return nil
}

// scheduleSummaryUpdateLocked queues an exchange for the background updater.
// At most one updater runs; it drains the queue before exiting.
func (c *Controller) scheduleSummaryUpdateLocked(exchange string) {
	c.pending = append(c.pending, exchange)
	if !c.bgSem.TryAcquire(1) {
		logger.DebugCF("controller", "Summary update already running; exchange queued",
			map[string]interface{}{"queued": len(c.pending)})
		return
	}
	c.bg.Add(1)
	go c.drainSummaryUpdates()
}

func (c *Controller) drainSummaryUpdates() {
	defer c.bg.Done()
	for {
		c.opMu.Lock()
		if len(c.pending) == 0 {
			c.bgSem.Release(1)
			c.opMu.Unlock()
			return
		}
		input := strings.Join(c.pending, "\n\n")
		c.pending = nil
		err := c.updateSummaryLocked(context.Background(), input)
		c.opMu.Unlock()

		if err != nil {
			logger.WarnCF("controller", "Background summary update failed",
				map[string]interface{}{"error": err.Error()})
		}
	}
}

func (c *Controller) archiveChunks(ctx context.Context, chunks []memory.Chunk) {
	if c.archive == nil || c.opts.NoteKey == "" || len(chunks) == 0 {
		return
	}
	if err := c.archive.AppendChunks(ctx, c.opts.NoteKey, chunks); err != nil {
		logger.WarnCF("controller", "Failed to archive chunks",
			map[string]interface{}{"note": c.opts.NoteKey, "chunks": len(chunks), "error": err.Error()})
	}
}

func (c *Controller) archiveSummary(ctx context.Context, rec memory.SummaryRecord) {
	if c.archive == nil || c.opts.NoteKey == "" {
		return
	}
	if err := c.archive.AppendSummary(ctx, c.opts.NoteKey, rec); err != nil {
		logger.WarnCF("controller", "Failed to archive summary",
			map[string]interface{}{"note": c.opts.NoteKey, "error": err.Error()})
	}
}

// Summary returns the current rolling summary.
func (c *Controller) Summary() string {
	return c.summary.Text()
}

// Summaries returns every summary accepted in this process, oldest first.
func (c *Controller) Summaries() []memory.SummaryRecord {
	return c.summary.History()
}

// LoadSummary replaces the summary without recording history.
func (c *Controller) LoadSummary(text string) {
	c.opMu.Lock()
	defer c.opMu.Unlock()
	c.summary.Load(text)
}

func (c *Controller) Chunks() []memory.Chunk {
	return c.corpus.Chunks()
}

// SessionResets counts how many times the model session was replaced.
func (c *Controller) SessionResets() int {
	return c.sessions.resetCount()
}

func (c *Controller) NoteKey() string {
	return c.opts.NoteKey
}

// Wait blocks until queued background summary updates have finished.
func (c *Controller) Wait() {
	c.bg.Wait()
}

// lockOpen takes opMu and reports whether the controller is still open.
// It releases the lock when the controller has been closed.
func (c *Controller) lockOpen() bool {
	c.opMu.Lock()
	if c.closed.Load() {
		c.opMu.Unlock()
		return false
	}
	return true
}

// Close waits for in-flight operations and background work, then closes the
// archive.
func (c *Controller) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	// Operations that took opMu before the flag flipped finish here, so none
	// can schedule background work after Wait.
	c.opMu.Lock()
	c.opMu.Unlock()
	c.Wait()
	if c.archive != nil {
		return c.archive.Close()
	}
	return nil
}
