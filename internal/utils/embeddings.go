package utils

import (
	"fmt"
	"math"
	"sort"
)

// dotProduct calculates the dot product of two vectors.
func dotProduct(vec1, vec2 []float32) (float32, error) {
	if len(vec1) != len(vec2) {
		return 0, fmt.Errorf("vectors must have the same dimension (%d != %d)", len(vec1), len(vec2))
	}
	var product float32
	for i := range vec1 {
		product += vec1[i] * vec2[i]
	}
	return product, nil
}

func magnitude(vec []float32) float32 {
	var sumOfSquares float32
	for _, val := range vec {
		sumOfSquares += val * val
	}
	return float32(math.Sqrt(float64(sumOfSquares)))
}

// CosineSimilarity returns 0 when either vector has zero magnitude.
func CosineSimilarity(vec1, vec2 []float32) (float32, error) {
	if len(vec1) == 0 || len(vec2) == 0 {
		return 0, fmt.Errorf("vectors cannot be empty")
	}
	dot, err := dotProduct(vec1, vec2)
	if err != nil {
		return 0, err
	}

	mag1 := magnitude(vec1)
	mag2 := magnitude(vec2)
	if mag1 == 0 || mag2 == 0 {
		return 0, nil
	}
	return dot / (mag1 * mag2), nil
}

type Scored struct {
	Index      int
	Similarity float32
}

// RankBySimilarity scores every candidate against query, keeps those at or
// above threshold and returns at most k of them, best first. Candidates that
// cannot be compared (empty or mismatched dimension) are skipped.
func RankBySimilarity(query []float32, candidates [][]float32, threshold float32, k int) []Scored {
	scored := make([]Scored, 0, len(candidates))
	for i, c := range candidates {
		sim, err := CosineSimilarity(query, c)
		if err != nil || sim < threshold {
			continue
		}
		scored = append(scored, Scored{Index: i, Similarity: sim})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Similarity > scored[j].Similarity
	})
	if k >= 0 && len(scored) > k {
		scored = scored[:k]
	}
	return scored
}
