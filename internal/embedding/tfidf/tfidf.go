package tfidf

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

// Vector is a sparse L2-normalized document vector. Entries are kept in
// ascending vocabulary index order so sums are always taken in the same order.
type Vector struct {
	Indices []int
	Weights []float64
}

// Len returns the number of non-zero entries.
func (v Vector) Len() int { return len(v.Indices) }

// Dot returns the dot product of two vectors.
func (v Vector) Dot(o Vector) float64 {
	sum := 0.0
	i, j := 0, 0
	for i < len(v.Indices) && j < len(o.Indices) {
		switch {
		case v.Indices[i] < o.Indices[j]:
			i++
		case v.Indices[i] > o.Indices[j]:
			j++
		default:
			sum += v.Weights[i] * o.Weights[j]
			i++
			j++
		}
	}
	return sum
}

// Vectorizer builds a TF-IDF vector space over a corpus.
// Weights are raw term counts times smoothed IDF, then L2-normalized.
type Vectorizer struct {
	tokenPattern *regexp.Regexp
	stopwords    map[string]struct{}
	vocabulary   []string
}

// Option configures a Vectorizer.
type Option func(*Vectorizer)

// WithStopWords replaces the English stop-word list.
func WithStopWords(words []string) Option {
	return func(v *Vectorizer) { v.stopwords = toSet(words) }
}

// NewVectorizer creates a vectorizer using the English stop-word list.
func NewVectorizer(opts ...Option) *Vectorizer {
	v := &Vectorizer{
		tokenPattern: regexp.MustCompile(`[\p{L}\p{N}_]{2,}`),
		stopwords:    toSet(EnglishStopWords),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Vocabulary returns the sorted terms of the last fitted corpus.
func (v *Vectorizer) Vocabulary() []string { return v.vocabulary }

// FitTransform builds the vocabulary and IDF from corpus and returns one
// vector per document, in corpus order. Documents without any vocabulary
// term get an empty vector.
func (v *Vectorizer) FitTransform(corpus []string) []Vector {
	counts := make([]map[string]int, len(corpus))
	df := make(map[string]int)
	for i, text := range corpus {
		tf := make(map[string]int)
		for _, tok := range v.tokenize(text) {
			tf[tok]++
		}
		for tok := range tf {
			df[tok]++
		}
		counts[i] = tf
	}

	// Create stable ordering for vocabulary
	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	index := make(map[string]int, len(terms))
	idf := make([]float64, len(terms))
	n := float64(len(corpus))
	for i, term := range terms {
		index[term] = i
		idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1.0
	}
	v.vocabulary = terms

	out := make([]Vector, len(corpus))
	for i, tf := range counts {
		idxs := make([]int, 0, len(tf))
		for tok := range tf {
			idxs = append(idxs, index[tok])
		}
		sort.Ints(idxs)
		vec := Vector{Indices: idxs, Weights: make([]float64, len(idxs))}
		norm := 0.0
		for k, j := range idxs {
			w := float64(tf[terms[j]]) * idf[j]
			vec.Weights[k] = w
			norm += w * w
		}
		if norm > 0 {
			norm = math.Sqrt(norm)
			for k := range vec.Weights {
				vec.Weights[k] /= norm
			}
		}
		out[i] = vec
	}
	return out
}

func (v *Vectorizer) tokenize(text string) []string {
	raw := v.tokenPattern.FindAllString(strings.ToLower(text), -1)
	out := raw[:0]
	for _, t := range raw {
		if _, isStop := v.stopwords[t]; isStop {
			continue
		}
		out = append(out, t)
	}
	return out
}

func toSet(words []string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
