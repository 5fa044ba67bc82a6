package listing

import (
	"strings"
)

// Metadata keys stored next to every index entry.
const (
	MetaID             = "id"
	MetaTitle          = "titulo"
	MetaDescription    = "descricao"
	MetaSpecifications = "especificacoes"
)

// SpecDelimiter joins specifications into a single metadata string.
const SpecDelimiter = "; "

// Record is a canonical listing as held by the primary store.
type Record struct {
	ID             string   `json:"id"`
	Title          string   `json:"titulo"`
	Description    string   `json:"descricao"`
	Specifications []string `json:"especificacoes"`
}

// Content builds the text that gets embedded: title, description and
// specifications joined by single spaces, empty parts skipped.
func (r Record) Content() string {
	parts := make([]string, 0, 2+len(r.Specifications))
	for _, p := range append([]string{r.Title, r.Description}, r.Specifications...) {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// Metadata builds the flat metadata map stored with the index entry.
func (r Record) Metadata() map[string]string {
	return map[string]string{
		MetaID:             r.ID,
		MetaTitle:          r.Title,
		MetaDescription:    r.Description,
		MetaSpecifications: strings.Join(r.Specifications, SpecDelimiter),
	}
}

// Hit is a hydrated search result.
// SimilarityScore is 1 - cosine distance and is not clamped: values
// below zero mean the vectors point away from each other.
type Hit struct {
	Record
	SimilarityScore float64 `json:"similarity_score"`
}
