package memory

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCorpus(texts ...string) *Corpus {
	c := NewCorpus(CorpusOptions{})
	for _, text := range texts {
		c.Add(text, RoleTranscript)
	}
	return c
}

func TestLexicalRetriever_RanksByOverlap(t *testing.T) {
	c := newTestCorpus(
		"The team discussed lunch options.",
		"Quarterly budget review: marketing budget is over by ten percent.",
		"Weather was nice.",
	)
	r := NewLexicalRetriever(c)

	got := r.Retrieve("What happened with the marketing budget?", RetrievalBudget{TokenBudget: 1000, MaxChunks: 3})
	require.NotEmpty(t, got)
	assert.Contains(t, got[0].Text, "marketing budget")
}

func TestLexicalRetriever_RecencyBreaksEqualOverlap(t *testing.T) {
	c := NewCorpus(CorpusOptions{})
	c.Add("deadline for the report", RoleUser)
	c.Add("ok noted", RoleAssistant)
	c.Add("deadline for the launch", RoleUser)

	got := NewLexicalRetriever(c).Retrieve("deadline", RetrievalBudget{TokenBudget: 1000, MaxChunks: 1})
	require.Len(t, got, 1)
	assert.Equal(t, "deadline for the launch", got[0].Text)
}

func TestLexicalRetriever_TiesKeepInsertionOrder(t *testing.T) {
	c := newTestCorpus("alpha one", "alpha two", "alpha three")
	got := NewLexicalRetriever(c).Retrieve("alpha", RetrievalBudget{TokenBudget: 1000, MaxChunks: 3})
	require.Len(t, got, 3)
	assert.Equal(t, []string{"alpha one", "alpha two", "alpha three"}, texts(got))
}

func TestLexicalRetriever_SkipsChunksOverBudgetAndKeepsScanning(t *testing.T) {
	big := "budget " + strings.Repeat("x", 400)
	c := newTestCorpus(big, "budget small")
	got := NewLexicalRetriever(c).Retrieve("budget", RetrievalBudget{TokenBudget: 20, MaxChunks: 5})
	require.Len(t, got, 1)
	assert.Equal(t, "budget small", got[0].Text)
}

func TestLexicalRetriever_EmptyQueryFallsBackToRecency(t *testing.T) {
	c := newTestCorpus("first", "second", "third", "fourth")
	r := NewLexicalRetriever(c)

	for _, q := range []string{"", "   ", "?!,."} {
		got := r.Retrieve(q, RetrievalBudget{TokenBudget: 1000, MaxChunks: 3})
		assert.Equal(t, []string{"fourth", "third", "second"}, texts(got), "query %q", q)
	}

	all := r.Retrieve("", RetrievalBudget{TokenBudget: 1000, MaxChunks: 10})
	assert.Equal(t, []string{"fourth", "third", "second", "first"}, texts(all))
}

func TestLexicalRetriever_EmptyQueryStopsAtFirstChunkOverBudget(t *testing.T) {
	c := newTestCorpus("old short", strings.Repeat("n", 400))
	r := NewLexicalRetriever(c)

	got := r.Retrieve("", RetrievalBudget{TokenBudget: 50, MaxChunks: 1})
	assert.Empty(t, got, "older chunks must not replace a newest chunk that does not fit")

	c.Add("newest fits", RoleTranscript)
	got = r.Retrieve("", RetrievalBudget{TokenBudget: 50, MaxChunks: 3})
	assert.Equal(t, []string{"newest fits"}, texts(got))
}

func TestLexicalRetriever_BudgetPropertyHoldsForRandomCorpora(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	words := []string{"budget", "review", "launch", "deadline", "coffee", "note", "team", "ship"}
	for round := 0; round < 50; round++ {
		c := NewCorpus(CorpusOptions{ChunkSize: 120, ChunkOverlap: 20})
		for i := 0; i < 1+rng.Intn(12); i++ {
			var b strings.Builder
			for j := 0; j < 5+rng.Intn(60); j++ {
				b.WriteString(words[rng.Intn(len(words))])
				if rng.Intn(6) == 0 {
					b.WriteString(". ")
				} else {
					b.WriteString(" ")
				}
			}
			c.Add(b.String(), []Role{RoleUser, RoleAssistant, RoleTranscript}[rng.Intn(3)])
		}
		budget := RetrievalBudget{TokenBudget: 1 + rng.Intn(120), MaxChunks: 1 + rng.Intn(6)}
		query := words[rng.Intn(len(words))] + " " + words[rng.Intn(len(words))]
		if rng.Intn(5) == 0 {
			query = ""
		}

		got := NewLexicalRetriever(c).Retrieve(query, budget)
		total := 0
		for _, ch := range got {
			total += EstimateTokens(ch.Text)
		}
		if total > budget.TokenBudget || len(got) > budget.MaxChunks {
			t.Fatalf("round %d: %d chunks / %d tokens exceeds %s", round, len(got), total, fmt.Sprintf("%+v", budget))
		}
	}
}

func TestLexicalRetriever_ZeroBudgetReturnsNothing(t *testing.T) {
	c := newTestCorpus("anything")
	assert.Empty(t, NewLexicalRetriever(c).Retrieve("anything", RetrievalBudget{TokenBudget: 0, MaxChunks: 3}))
	assert.Empty(t, NewLexicalRetriever(c).Retrieve("anything", RetrievalBudget{TokenBudget: 10, MaxChunks: 0}))
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 1, EstimateTokens(""))
	assert.Equal(t, 1, EstimateTokens("abc"))
	assert.Equal(t, 1, EstimateTokens("abcd"))
	assert.Equal(t, 2, EstimateTokens("abcde"))
}

func TestDeriveFallbackBudget_IsStrictlyTighter(t *testing.T) {
	primary := DerivePrimaryBudget(0, 0)
	fb := DeriveFallbackBudget(primary, 0, 0)
	assert.Less(t, fb.TokenBudget, primary.TokenBudget)
	assert.Less(t, fb.MaxChunks, primary.MaxChunks)
	assert.Equal(t, primary.TokenBudget*70/100, fb.TokenBudget)

	explicit := DeriveFallbackBudget(primary, 900, 4)
	assert.Equal(t, RetrievalBudget{TokenBudget: 900, MaxChunks: 4}, explicit)

	tiny := DeriveFallbackBudget(RetrievalBudget{TokenBudget: 1, MaxChunks: 1}, 0, 0)
	assert.Equal(t, RetrievalBudget{TokenBudget: 1, MaxChunks: 1}, tiny)
}

func texts(chunks []Chunk) []string {
	out := make([]string, 0, len(chunks))
	for _, ch := range chunks {
		out = append(out, ch.Text)
	}
	return out
}
