// Package similarity computes pairwise Jaccard similarity over groups of documents.
package similarity

import "github.com/kirillkom/docsim/internal/core/domain"

// Jaccard returns |a ∩ b| / |a ∪ b|. Two empty sets score 0, not 1.
func Jaccard(a, b domain.WordSet) float64 {
	small, large := a, b
	if small.Len() > large.Len() {
		small, large = large, small
	}

	intersection := 0
	small.Each(func(word string) bool {
		if large.Contains(word) {
			intersection++
		}
		return true
	})

	union := a.Len() + b.Len() - intersection
	if union == 0 {
		return 0.0
	}
	return float64(intersection) / float64(union)
}

// Pairs compares every unordered pair once and keeps those scoring strictly above threshold.
// It is the sequential form of Aggregator.Aggregate.
func Pairs(docs []domain.Document, threshold float64) []domain.SimilarityRecord {
	var out []domain.SimilarityRecord
	for i := range docs {
		out = appendRow(out, docs, i, threshold)
	}
	return out
}

func appendRow(out []domain.SimilarityRecord, docs []domain.Document, i int, threshold float64) []domain.SimilarityRecord {
	for j := i + 1; j < len(docs); j++ {
		score := Jaccard(docs[i].Words, docs[j].Words)
		if score > threshold {
			out = append(out, domain.SimilarityRecord{
				DocumentA: docs[i].ID,
				DocumentB: docs[j].ID,
				Score:     score,
			})
		}
	}
	return out
}

func pairCount(n int) int64 {
	if n < 2 {
		return 0
	}
	return int64(n) * int64(n-1) / 2
}
