package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown file or provider type.
	ErrUnsupportedType = errors.New("unsupported type")

	// Pipeline Errors.

	// ErrExtraction indicates text could not be extracted from one document.
	// It is absorbed per document and never aborts a batch on its own.
	ErrExtraction = errors.New("extraction failed")

	// ErrEmptyCorpus indicates no document in a batch yielded usable text.
	ErrEmptyCorpus = errors.New("no text extracted from any document")

	// ErrNothingToIndex indicates chunking produced no passages.
	ErrNothingToIndex = errors.New("nothing to index")

	// ErrIndexWrite indicates the tenant index could not be written.
	// The index is left as it was before the attempt.
	ErrIndexWrite = errors.New("knowledge base write failed")

	// ErrEmbeddingMismatch indicates a knowledge base was built with a
	// different embedding model than the one configured for queries.
	ErrEmbeddingMismatch = errors.New("embedding model mismatch")

	// ErrModelInvocation indicates a language or embedding model call failed.
	ErrModelInvocation = errors.New("model invocation failed")

	// ErrSessionResolution indicates a persisted knowledge base reference
	// no longer resolves. Callers recover by returning to the upload state.
	ErrSessionResolution = errors.New("knowledge base no longer available")

	// ErrInvalidTransition indicates a session action is not allowed in its current state.
	ErrInvalidTransition = errors.New("invalid session transition")

	// ErrNoActiveSession indicates an operation needs a session but none is open.
	ErrNoActiveSession = errors.New("no active session")

	// Model Availability Errors.

	// ErrLLMUnavailable indicates the LLM service is not configured.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrRerankerUnavailable indicates the reranker could not be loaded.
	ErrRerankerUnavailable = errors.New("reranker unavailable")

	// ErrOCRUnavailable indicates the OCR engine could not be loaded.
	ErrOCRUnavailable = errors.New("OCR engine unavailable")

	// ErrRateLimited indicates a model API rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")
)

// ExtractionError records why a single document produced no text.
type ExtractionError struct {
	Source string
	Err    error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Source, e.Err)
}

func (e *ExtractionError) Unwrap() []error {
	return []error{ErrExtraction, e.Err}
}

// ModelError wraps a failed call to an embedding, reranking or language model.
type ModelError struct {
	// Model is the model name as configured.
	Model string

	// Op is the operation that failed (embed, rerank, generate, ocr).
	Op string

	Err error
}

func (e *ModelError) Error() string {
	return fmt.Sprintf("%s with %s: %v", e.Op, e.Model, e.Err)
}

func (e *ModelError) Unwrap() []error {
	return []error{ErrModelInvocation, e.Err}
}

// Reason renders a human-readable reason for a failure shown to users.
func Reason(err error) string {
	if err == nil {
		return ""
	}
	var modelErr *ModelError
	switch {
	case errors.Is(err, ErrEmptyCorpus):
		return "No text could be extracted from the uploaded documents."
	case errors.Is(err, ErrNothingToIndex):
		return "The uploaded documents contain no text to index."
	case errors.Is(err, ErrIndexWrite):
		return "The knowledge base could not be updated: " + err.Error()
	case errors.Is(err, ErrEmbeddingMismatch):
		return "The knowledge base was built with a different embedding model. Re-upload the documents."
	case errors.Is(err, ErrSessionResolution):
		return "The documents for this chat are no longer available. Please upload them again."
	case errors.As(err, &modelErr):
		return fmt.Sprintf("The %s model failed: %v", modelErr.Model, modelErr.Err)
	case errors.Is(err, ErrLLMUnavailable), errors.Is(err, ErrEmbeddingUnavailable):
		return "AI providers are not configured. Run 'docqa settings' first."
	default:
		return err.Error()
	}
}
