package embedding

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"
)

const minTokenLen = 2

var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}]+(?:['’][\p{L}\p{N}]+)*`)

// TFIDF is a lazily fitted term-frequency vectorizer. The first batch that
// contains at least one token fixes the vocabulary for the lifetime of the
// instance. Output vectors always have exactly maxFeatures components.
type TFIDF struct {
	maxFeatures int
	stopwords   map[string]struct{}

	mu         sync.RWMutex
	fitted     bool
	vocabulary map[string]int
	idf        []float64
}

// NewTFIDF creates an unfit vectorizer.
func NewTFIDF(maxFeatures int) *TFIDF {
	return &TFIDF{
		maxFeatures: maxFeatures,
		stopwords:   defaultStopwords(),
	}
}

// Dimension returns the fixed output length.
func (v *TFIDF) Dimension() int { return v.maxFeatures }

// Fitted reports whether the vocabulary has been fixed.
func (v *TFIDF) Fitted() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.fitted
}

// VocabularySize returns the number of terms learned at fit time.
func (v *TFIDF) VocabularySize() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.vocabulary)
}

// Transform vectorizes texts, fitting on them first if the vectorizer is unfit.
func (v *TFIDF) Transform(texts []string) [][]float32 {
	tokenized := make([][]string, len(texts))
	for i, t := range texts {
		tokenized[i] = v.tokenize(t)
	}

	v.fitOnce(tokenized)

	v.mu.RLock()
	defer v.mu.RUnlock()

	out := make([][]float32, len(texts))
	for i, tokens := range tokenized {
		out[i] = v.vectorize(tokens)
	}
	return out
}

func (v *TFIDF) fitOnce(docs [][]string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.fitted {
		return
	}

	termFreq := make(map[string]int)
	docFreq := make(map[string]int)
	for _, tokens := range docs {
		seen := make(map[string]struct{}, len(tokens))
		for _, tok := range tokens {
			termFreq[tok]++
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			docFreq[tok]++
		}
	}
	if len(termFreq) == 0 {
		return
	}

	terms := make([]string, 0, len(termFreq))
	for term := range termFreq {
		terms = append(terms, term)
	}
	sort.Slice(terms, func(i, j int) bool {
		if termFreq[terms[i]] != termFreq[terms[j]] {
			return termFreq[terms[i]] > termFreq[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if len(terms) > v.maxFeatures {
		terms = terms[:v.maxFeatures]
	}
	sort.Strings(terms)

	n := float64(len(docs))
	v.vocabulary = make(map[string]int, len(terms))
	v.idf = make([]float64, len(terms))
	for i, term := range terms {
		v.vocabulary[term] = i
		v.idf[i] = math.Log((1+n)/(1+float64(docFreq[term]))) + 1.0
	}
	v.fitted = true
}

// vectorize must be called with at least the read lock held.
func (v *TFIDF) vectorize(tokens []string) []float32 {
	vec := make([]float32, v.maxFeatures)
	if !v.fitted {
		return vec
	}

	counts := make(map[int]int)
	for _, tok := range tokens {
		if idx, ok := v.vocabulary[tok]; ok {
			counts[idx]++
		}
	}
	if len(counts) == 0 {
		return vec
	}

	weights := make(map[int]float64, len(counts))
	norm := 0.0
	for idx, c := range counts {
		w := float64(c) * v.idf[idx]
		weights[idx] = w
		norm += w * w
	}
	norm = math.Sqrt(norm)
	for idx, w := range weights {
		vec[idx] = float32(w / norm)
	}
	return vec
}

func (v *TFIDF) tokenize(text string) []string {
	raw := tokenPattern.FindAllString(strings.ToLower(text), -1)
	out := raw[:0]
	for _, t := range raw {
		if utf8.RuneCountInString(t) < minTokenLen {
			continue
		}
		if _, stop := v.stopwords[t]; stop {
			continue
		}
		out = append(out, t)
	}
	return out
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		// pt
		"a", "ao", "aos", "as", "com", "como", "da", "das", "de", "do", "dos", "e", "ela", "ele",
		"em", "entre", "essa", "esse", "esta", "este", "eu", "foi", "há", "isso", "já", "mais",
		"mas", "me", "muito", "na", "nas", "no", "nos", "não", "o", "os", "ou", "para", "pela",
		"pelo", "por", "que", "se", "sem", "ser", "seu", "sua", "são", "também", "tem", "um",
		"uma", "à", "é",
		// en
		"an", "the", "and", "or", "but", "if", "then", "for", "to", "of", "in", "on", "at", "by",
		"with", "as", "is", "are", "was", "were", "be", "it", "this", "that", "from", "into",
		"so", "than", "too", "very", "can", "will",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
