package driving

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// RetrievalService selects passages for a question.
type RetrievalService interface {
	// Retrieve searches the knowledge base and reranks the candidates.
	// An empty result is not an error.
	Retrieve(ctx context.Context, handle domain.KnowledgeBaseHandle, query string) (domain.RetrievalResult, error)
}

// AnswerService composes grounded answers.
type AnswerService interface {
	// Answer composes a response from retrieved passages, the question and
	// recent history. Empty retrievals produce domain.NotAvailableAnswer
	// without calling the model.
	Answer(ctx context.Context, retrieval domain.RetrievalResult, question string, history []domain.Message) (domain.Answer, error)
}
