package domain

import "fmt"

// Entries is a batch of index writes as parallel arrays.
// Position i of every slice describes the same listing.
type Entries struct {
	IDs        []string
	Documents  []string
	Metadatas  []map[string]string
	Embeddings [][]float32
}

// Len returns the number of entries.
func (e Entries) Len() int { return len(e.IDs) }

// Validate checks that all arrays are aligned.
func (e Entries) Validate() error {
	n := len(e.IDs)
	if len(e.Documents) != n || len(e.Metadatas) != n || len(e.Embeddings) != n {
		return fmt.Errorf("%w: ids=%d documents=%d metadatas=%d embeddings=%d",
			ErrEntriesMisaligned, n, len(e.Documents), len(e.Metadatas), len(e.Embeddings))
	}
	for i, id := range e.IDs {
		if id == "" {
			return fmt.Errorf("%w: empty id at position %d", ErrEntriesMisaligned, i)
		}
	}
	return nil
}

// QueryResult holds nearest neighbours, one inner slice per query vector,
// ordered by ascending cosine distance.
type QueryResult struct {
	IDs       [][]string
	Distances [][]float64
	Metadatas [][]map[string]string
}
