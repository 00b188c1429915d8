package memory

const (
	DefaultPrimaryTokenBudget = 1400
	DefaultPrimaryMaxChunks   = 8
)

// fallbackRatio is the share of the primary budget kept after a context overflow.
const fallbackRatio = 70

// EstimateTokens approximates model tokens as one per four characters, minimum one.
func EstimateTokens(text string) int {
	runes := len([]rune(text))
	tokens := (runes + 3) / 4
	if tokens < 1 {
		return 1
	}
	return tokens
}

// DerivePrimaryBudget normalizes a configured primary retrieval budget.
func DerivePrimaryBudget(tokenBudget, maxChunks int) RetrievalBudget {
	if tokenBudget <= 0 {
		tokenBudget = DefaultPrimaryTokenBudget
	}
	if maxChunks <= 0 {
		maxChunks = DefaultPrimaryMaxChunks
	}
	return RetrievalBudget{TokenBudget: tokenBudget, MaxChunks: maxChunks}
}

// DeriveFallbackBudget returns the budget used when retrying after an overflow.
// Explicit values are honoured when strictly tighter than primary; otherwise the
// primary budget shrinks by roughly 30%, always by at least one token and one chunk
// when that is possible.
func DeriveFallbackBudget(primary RetrievalBudget, tokenBudget, maxChunks int) RetrievalBudget {
	fb := RetrievalBudget{TokenBudget: tokenBudget, MaxChunks: maxChunks}
	if fb.TokenBudget <= 0 || fb.TokenBudget >= primary.TokenBudget {
		fb.TokenBudget = primary.TokenBudget * fallbackRatio / 100
		if fb.TokenBudget >= primary.TokenBudget {
			fb.TokenBudget = primary.TokenBudget - 1
		}
	}
	if fb.MaxChunks <= 0 || fb.MaxChunks >= primary.MaxChunks {
		fb.MaxChunks = primary.MaxChunks * fallbackRatio / 100
		if fb.MaxChunks >= primary.MaxChunks {
			fb.MaxChunks = primary.MaxChunks - 1
		}
	}
	if fb.TokenBudget < 1 {
		fb.TokenBudget = 1
	}
	if fb.MaxChunks < 1 {
		fb.MaxChunks = 1
	}
	return fb
}
