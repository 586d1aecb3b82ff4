// Package domain holds the types every layer of docqa shares: documents and
// the text extracted from them, passages (chunks), knowledge bases keyed by
// tenant, retrieval results, answers, chats and settings.
//
// It imports nothing outside the standard library. Everything else imports
// it.
package domain
