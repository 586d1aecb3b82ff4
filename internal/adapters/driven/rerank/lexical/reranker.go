// Package lexical provides an offline reranker that scores passages with
// Okapi BM25 over the candidate set. It needs no model server and is used
// when no cross-encoder endpoint is configured.
package lexical

import (
	"context"
	"math"
	"regexp"
	"strings"

	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure Reranker implements the interface.
var _ driven.Reranker = (*Reranker)(nil)

// BM25 parameters.
const (
	k1 = 1.2
	b  = 0.75
)

var tokenPattern = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*|\p{N}+`)

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {}, "by": {},
	"do": {}, "does": {}, "for": {}, "from": {}, "how": {}, "i": {}, "in": {}, "is": {},
	"it": {}, "of": {}, "on": {}, "or": {}, "that": {}, "the": {}, "this": {}, "to": {},
	"was": {}, "what": {}, "when": {}, "where": {}, "which": {}, "who": {}, "why": {},
	"with": {}, "you": {}, "your": {},
}

// Reranker scores passages by BM25 relevance to the query.
type Reranker struct{}

// New returns a lexical reranker.
func New() *Reranker {
	return &Reranker{}
}

// Score returns one BM25 score per passage, in passage order. Document
// frequencies are computed over the passages given, so scores are only
// comparable within one call.
func (r *Reranker) Score(ctx context.Context, query string, passages []string) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	scores := make([]float64, len(passages))
	if len(passages) == 0 {
		return scores, nil
	}

	terms := unique(tokenize(query))
	docs := make([]map[string]int, len(passages))
	lengths := make([]int, len(passages))
	df := make(map[string]int)
	total := 0
	for i, p := range passages {
		tokens := tokenize(p)
		tf := make(map[string]int, len(tokens))
		for _, tok := range tokens {
			tf[tok]++
		}
		for term := range tf {
			df[term]++
		}
		docs[i] = tf
		lengths[i] = len(tokens)
		total += len(tokens)
	}
	avgLen := float64(total) / float64(len(passages))
	if avgLen == 0 {
		return scores, nil
	}

	n := float64(len(passages))
	for i, tf := range docs {
		var s float64
		for _, term := range terms {
			f := float64(tf[term])
			if f == 0 {
				continue
			}
			idf := math.Log(1 + (n-float64(df[term])+0.5)/(float64(df[term])+0.5))
			s += idf * f * (k1 + 1) / (f + k1*(1-b+b*float64(lengths[i])/avgLen))
		}
		scores[i] = s
	}
	return scores, nil
}

// ModelName returns the name of the reranking model.
func (r *Reranker) ModelName() string {
	return "bm25"
}

// Close releases resources.
func (r *Reranker) Close() error {
	return nil
}

func tokenize(text string) []string {
	raw := tokenPattern.FindAllString(strings.ToLower(text), -1)
	out := raw[:0]
	for _, tok := range raw {
		if _, stop := stopwords[tok]; !stop {
			out = append(out, tok)
		}
	}
	return out
}

func unique(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
