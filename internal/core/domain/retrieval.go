package domain

// ScoredChunk is a chunk with its first-stage similarity and rerank score.
type ScoredChunk struct {
	Chunk

	// Similarity is the cosine similarity from the vector search.
	Similarity float64

	// Score is the cross-encoder relevance score.
	Score float64

	// Rank is the position in the first-stage candidate list.
	// It breaks ties between equal scores.
	Rank int
}

// RetrievalResult holds the passages selected for one question.
// It is transient and never persisted.
type RetrievalResult struct {
	// Query is the question that was searched.
	Query string

	// Candidates are all reranked candidates, best first.
	Candidates []ScoredChunk

	// Passages are the candidates that passed the score threshold,
	// truncated to the configured final count.
	Passages []ScoredChunk
}

// Empty reports whether no passage survived reranking.
// An empty result is a valid outcome, not an error.
func (r RetrievalResult) Empty() bool {
	return len(r.Passages) == 0
}

// Sources returns the distinct passage sources in passage order.
func (r RetrievalResult) Sources() []string {
	seen := make(map[string]bool, len(r.Passages))
	var sources []string
	for _, p := range r.Passages {
		if p.Source == "" || p.Source == PlaceholderSource || seen[p.Source] {
			continue
		}
		seen[p.Source] = true
		sources = append(sources, p.Source)
	}
	return sources
}
