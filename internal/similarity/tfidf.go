package similarity

import (
	"cmp"
	"maps"
	"math"
	"slices"
	"strings"
	"unicode"
)

// Tokenize lower-cases text and returns its runs of two or more word
// characters (letters, digits, underscore).
func Tokenize(text string) []string {
	var tokens []string
	var b strings.Builder
	runes := 0

	flush := func() {
		if runes >= 2 {
			tokens = append(tokens, b.String())
		}
		b.Reset()
		runes = 0
	}

	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			b.WriteRune(unicode.ToLower(r))
			runes++
			continue
		}
		flush()
	}
	flush()

	return tokens
}

// Vocabulary is the sorted set of terms seen by FitTFIDF. A term's index is
// its id in every vector of the same fit.
type Vocabulary []string

// ID returns the id of term, or false when the term was not seen.
func (v Vocabulary) ID(term string) (int, bool) {
	i, ok := slices.BinarySearch(v, term)
	return i, ok
}

// Entry is one non-zero component of a SparseVector.
type Entry struct {
	Term   int
	Weight float64
}

// SparseVector holds non-zero weights in ascending term id order.
type SparseVector []Entry

// Weight returns the weight of term id, or 0 when absent.
func (v SparseVector) Weight(id int) float64 {
	i, ok := slices.BinarySearchFunc(v, id, func(e Entry, id int) int { return cmp.Compare(e.Term, id) })
	if !ok {
		return 0
	}
	return v[i].Weight
}

// Dot returns the inner product of two vectors from the same fit. Terms are
// summed in id order, so equal inputs always give bit-identical results.
func (v SparseVector) Dot(o SparseVector) float64 {
	var sum float64
	i, j := 0, 0
	for i < len(v) && j < len(o) {
		switch {
		case v[i].Term < o[j].Term:
			i++
		case v[i].Term > o[j].Term:
			j++
		default:
			sum += v[i].Weight * o[j].Weight
			i++
			j++
		}
	}
	return sum
}

// FitTFIDF fits one vocabulary and one IDF table over all docs and returns the
// L2-normalised TF-IDF vector of each doc in that shared space, so any two
// returned vectors are directly comparable. IDF is smoothed:
// ln((1+n)/(1+df)) + 1.
func FitTFIDF(docs []string) ([]SparseVector, Vocabulary) {
	counts := make([]map[string]int, len(docs))
	df := make(map[string]int)

	for i, doc := range docs {
		tf := make(map[string]int)
		for _, tok := range Tokenize(doc) {
			tf[tok]++
		}
		for term := range tf {
			df[term]++
		}
		counts[i] = tf
	}

	vocab := Vocabulary(slices.Sorted(maps.Keys(df)))
	n := float64(len(docs))
	idf := make([]float64, len(vocab))
	for id, term := range vocab {
		idf[id] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}

	vectors := make([]SparseVector, len(docs))
	for i, tf := range counts {
		vec := make(SparseVector, 0, len(tf))
		for term, c := range tf {
			id, _ := vocab.ID(term)
			vec = append(vec, Entry{Term: id, Weight: float64(c) * idf[id]})
		}
		slices.SortFunc(vec, func(a, b Entry) int { return cmp.Compare(a.Term, b.Term) })

		var norm float64
		for _, e := range vec {
			norm += e.Weight * e.Weight
		}
		if norm > 0 {
			norm = math.Sqrt(norm)
			for k := range vec {
				vec[k].Weight /= norm
			}
		}
		vectors[i] = vec
	}

	return vectors, vocab
}
