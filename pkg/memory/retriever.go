package memory

import (
	"sort"
	"strings"
	"unicode"
)

const (
	overlapWeight    = 2.0
	recencyWeight    = 0.05
	minLengthPenalty = 40
)

// LexicalRetriever ranks corpus chunks by query token overlap with a small
// turn-based recency bonus.
type LexicalRetriever struct {
	corpus *Corpus
}

type scoredChunk struct {
	chunk Chunk
	score float64
}

func NewLexicalRetriever(corpus *Corpus) *LexicalRetriever {
	return &LexicalRetriever{corpus: corpus}
}

// Retrieve returns at most budget.MaxChunks chunks whose estimated tokens fit
// budget.TokenBudget, best score first. A query without tokens returns the most
// recent chunks, newest first, stopping at the first one that does not fit.
func (r *LexicalRetriever) Retrieve(query string, budget RetrievalBudget) []Chunk {
	if budget.MaxChunks <= 0 || budget.TokenBudget <= 0 {
		return nil
	}
	chunks := r.corpus.Chunks()
	if len(chunks) == 0 {
		return nil
	}

	queryTokens := tokenSet(query)
	if len(queryTokens) == 0 {
		recent := make([]Chunk, 0, len(chunks))
		for i := len(chunks) - 1; i >= 0; i-- {
			recent = append(recent, chunks[i])
		}
		return selectWithinBudget(recent, budget, true)
	}

	scored := make([]scoredChunk, 0, len(chunks))
	for _, ch := range chunks {
		scored = append(scored, scoredChunk{chunk: ch, score: scoreChunk(queryTokens, ch)})
	}
	// Stable: equal scores keep insertion order.
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})

	ordered := make([]Chunk, 0, len(scored))
	for _, s := range scored {
		ordered = append(ordered, s.chunk)
	}
	return selectWithinBudget(ordered, budget, false)
}

func scoreChunk(queryTokens map[string]struct{}, ch Chunk) float64 {
	chunkTokens := tokenSet(ch.Text)
	overlap := 0
	for tok := range queryTokens {
		if _, ok := chunkTokens[tok]; ok {
			overlap++
		}
	}
	lengthPenalty := len(chunkTokens)
	if lengthPenalty < minLengthPenalty {
		lengthPenalty = minLengthPenalty
	}
	return (float64(overlap)*overlapWeight + float64(ch.Turn)*recencyWeight) / float64(lengthPenalty)
}

// selectWithinBudget walks candidates in order until MaxChunks are accepted.
// A chunk that would overrun the token budget is skipped, or ends the walk
// when prefixOnly is set.
func selectWithinBudget(candidates []Chunk, budget RetrievalBudget, prefixOnly bool) []Chunk {
	out := make([]Chunk, 0, budget.MaxChunks)
	used := 0
	for _, ch := range candidates {
		cost := EstimateTokens(ch.Text)
		if used+cost > budget.TokenBudget {
			if prefixOnly {
				break
			}
			continue
		}
		out = append(out, ch)
		used += cost
		if len(out) >= budget.MaxChunks {
			break
		}
	}
	return out
}

// tokenSet lowercases text and splits it on every rune that is not a letter or digit.
func tokenSet(text string) map[string]struct{} {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}
