package db

// DefaultVectorField is the hash field holding the embedding.
const DefaultVectorField = "__vector"

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName    string
	VectorField  string // defaults to DefaultVectorField
	Vector       []float32
	K            int
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single hit. Distance is the raw __vector_score
// (cosine distance in [0,2]) with no conversion applied.
type SearchEntry struct {
	Key      string
	Distance float64
	Fields   map[string]string
}
