package agent

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dotsetgreg/notemind/pkg/logger"
	"github.com/dotsetgreg/notemind/pkg/memory"
)

// Task selects the instructions a prompt is built for.
type Task int

const (
	TaskChat Task = iota
	TaskTitle
	TaskSummaryUpdate
	TaskExtraction
)

func (t Task) String() string {
	switch t {
	case TaskChat:
		return "chat"
	case TaskTitle:
		return "title"
	case TaskSummaryUpdate:
		return "summary_update"
	case TaskExtraction:
		return "task_extraction"
	default:
		return fmt.Sprintf("task(%d)", int(t))
	}
}

const (
	summaryHeading        = "## Current summary"
	contextHeading        = "## Relevant context"
	questionHeading       = "## Question"
	goalHeading           = "## Goal"
	compressHeading       = "## Summary to compress"
	partialSummaryHeading = "## Partial summary"

	noSummaryPlaceholder = "(no summary yet)"
	noContextPlaceholder = "(no relevant context)"
)

const (
	chatInstructions = `You answer questions about a voice note using only the summary and context below.
Be concise. Prefer short paragraphs or bullets. If the note does not contain the answer, say so plainly.`

	titleInstructions = `You write a title for a voice note.
Use at most 6 words. No quotes. Do not use filler words such as "summary", "notes" or "meeting notes".`

	summaryUpdateInstructions = `You maintain a running bullet-point summary of a voice note.
Merge the new material into the current summary. Remove duplicates. Keep at most 8-10 bullets.
Reply with the bullets only, one per line.`

	extractionInstructions = `You extract action items from a voice note.
Return %s concrete, actionable checklist items. Each item starts with a verb. Skip anything already done.`

	compressionInstructions = `Compress the running note summary below into 6-8 concise bullets.
Keep decisions, owners, dates, numbers and open questions. Reply with the bullets only, one per line.`

	minimalCompressionInstructions = `Summarize the partial notes below in at most 6 short bullets.
Reply with the bullets only, one per line.`
)

var defaultGoals = map[Task]string{
	TaskTitle:         "Write a title for this note.",
	TaskSummaryUpdate: "Refresh the summary with everything in the note so far.",
	TaskExtraction:    "List the action items in this note.",
}

// PromptBuilder assembles task prompts from the rolling summary and retrieved chunks.
type PromptBuilder struct {
	retriever memory.Retriever
	fallback  memory.RetrievalBudget
}

// NewPromptBuilder takes the fallback budget so task extraction can ask for
// fewer items when retrying under it.
func NewPromptBuilder(retriever memory.Retriever, fallback memory.RetrievalBudget) *PromptBuilder {
	return &PromptBuilder{retriever: retriever, fallback: fallback}
}

// Build renders the prompt for task. It performs one retrieval with input as
// the query and never mutates state.
func (pb *PromptBuilder) Build(task Task, input string, budget memory.RetrievalBudget, summary string) string {
	input = strings.TrimSpace(input)
	var chunks []memory.Chunk
	if pb.retriever != nil {
		chunks = pb.retriever.Retrieve(input, budget)
	}

	var sb strings.Builder
	sb.WriteString(pb.instructions(task, budget))

	sb.WriteString("\n\n")
	sb.WriteString(summaryHeading)
	sb.WriteString("\n")
	if s := strings.TrimSpace(summary); s != "" {
		sb.WriteString(s)
	} else {
		sb.WriteString(noSummaryPlaceholder)
	}

	sb.WriteString("\n\n")
	sb.WriteString(contextHeading)
	sb.WriteString("\n")
	if len(chunks) == 0 {
		sb.WriteString(noContextPlaceholder)
	}
	for i, ch := range chunks {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "- [%s] %s", ch.Role, strings.Join(strings.Fields(ch.Text), " "))
	}

	sb.WriteString("\n\n")
	if task == TaskChat {
		sb.WriteString(questionHeading)
	} else {
		sb.WriteString(goalHeading)
	}
	sb.WriteString("\n")
	if input == "" {
		input = defaultGoals[task]
	}
	sb.WriteString(input)

	prompt := sb.String()
	logger.DebugCF("prompt", "Prompt built",
		map[string]interface{}{
			"task":         task.String(),
			"chunks":       len(chunks),
			"token_budget": budget.TokenBudget,
			"max_chunks":   budget.MaxChunks,
			"prompt_chars": len(prompt),
		})
	return prompt
}

func (pb *PromptBuilder) instructions(task Task, budget memory.RetrievalBudget) string {
	switch task {
	case TaskTitle:
		return titleInstructions
	case TaskSummaryUpdate:
		return summaryUpdateInstructions
	case TaskExtraction:
		return fmt.Sprintf(extractionInstructions, extractionRange(budget, pb.fallback))
	default:
		return chatInstructions
	}
}

// extractionRange asks for fewer items once the budget has shrunk to the fallback.
func extractionRange(budget, fallback memory.RetrievalBudget) string {
	if budget.TokenBudget <= fallback.TokenBudget || budget.MaxChunks <= fallback.MaxChunks {
		return "3-5"
	}
	return "5-7"
}

// CompressionPrompt embeds the full summary; no retrieval is involved.
func CompressionPrompt(summary string) string {
	return compressionInstructions + "\n\n" + compressHeading + "\n" + strings.TrimSpace(summary)
}

// MinimalCompressionPrompt keeps only the first limit characters of summary.
func MinimalCompressionPrompt(summary string, limit int) string {
	return minimalCompressionInstructions + "\n\n" + partialSummaryHeading + "\n" + truncateRunes(strings.TrimSpace(summary), limit)
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

// SessionInstructions returns the standing instructions every model session is
// opened with, plus an optional NOTEMIND.md from the workspace.
func SessionInstructions(workspace string) string {
	base := `# notemind

You are notemind, an assistant for voice notes. You answer questions, write titles,
keep summaries and extract action items from note transcripts.

## Rules

1. **Stay grounded** - Use only the summary and context provided in each request.
2. **Be brief** - Notes are read on small screens; keep replies short.
3. **Follow the requested format** - When a request asks for bullets or JSON, reply with exactly that.`

	if extra := LoadBootstrapFile(workspace); extra != "" {
		return base + "\n\n---\n\n" + extra
	}
	return base
}

// LoadBootstrapFile reads user-provided instructions from the workspace.
func LoadBootstrapFile(workspace string) string {
	if strings.TrimSpace(workspace) == "" {
		return ""
	}
	for _, filename := range []string{"NOTEMIND.md", "AGENT.md"} {
		data, err := os.ReadFile(filepath.Join(workspace, filename))
		if err != nil {
			continue
		}
		content := strings.TrimSpace(string(data))
		if content == "" {
			continue
		}
		return fmt.Sprintf("## %s\n\n%s", filename, content)
	}
	return ""
}
