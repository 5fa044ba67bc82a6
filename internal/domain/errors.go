package domain

import (
	"errors"
)

var (
	// ErrAlreadyExists signals a duplicate resource.
	ErrAlreadyExists = errors.New("already exists")
	// ErrRecordNotFound signals that the canonical store has no listing with the given id.
	ErrRecordNotFound = errors.New("record not found")
	// ErrInvalidEvent signals a queue message that is not a valid lifecycle event.
	ErrInvalidEvent = errors.New("invalid lifecycle event")
	// ErrInvalidQuery signals a search request outside the accepted bounds.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrEntriesMisaligned signals index arrays (ids, documents, metadatas, embeddings) of different lengths.
	ErrEntriesMisaligned = errors.New("index entries misaligned")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrGeneratorUnavailable signals that the generative model endpoint cannot serve requests.
	ErrGeneratorUnavailable = errors.New("generative model unavailable")
)
