// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - TextLayerReader: Reads the embedded text layer of a PDF
//   - Dictionary: Recognises words for the extraction quality gate
//   - EmbeddingService: Generates vector embeddings for chunks and queries
//   - LLMService: Composes answers from retrieved passages
//   - VectorStore / VectorIndex: Per-tenant persistent knowledge bases
//   - SessionStore: Conversation record persistence
//   - ConfigStore: Application configuration
//
// # Lazily Loaded Interfaces
//
// These are expensive to start and are obtained through the model registry
// the first time they are needed:
//
//   - Rasterizer and OCREngine: The OCR fallback for scanned documents
//   - Reranker: Cross-encoder scoring of retrieval candidates
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or driving package
package driven
