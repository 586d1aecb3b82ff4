// Package services holds the document question-answering core: identity
// and tenant resolution, ingestion, retrieval, answering and chat sessions.
// Every model, store and file format is reached through a driven port.
package services
