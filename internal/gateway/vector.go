package gateway

import (
	"math"
	"sort"
)

// cosineSimilarity returns 0 for mismatched lengths or zero vectors.
func cosineSimilarity(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// recordVector pulls the "vector" field out of a stored record.
// JSON decoding yields []any of float64.
func recordVector(rec Record) []float64 {
	raw, ok := rec["vector"]
	if !ok {
		return nil
	}
	switch typed := raw.(type) {
	case []float64:
		return typed
	case []any:
		out := make([]float64, 0, len(typed))
		for _, v := range typed {
			f, ok := v.(float64)
			if !ok {
				return nil
			}
			out = append(out, f)
		}
		return out
	default:
		return nil
	}
}

// rankByCosine scores every record against the query vector and keeps
// the topK best. Ties keep insertion order.
func rankByCosine(records []Record, vector []float64, topK int) []Match {
	matches := make([]Match, 0, len(records))
	for _, rec := range records {
		matches = append(matches, Match{
			Record: rec,
			Score:  cosineSimilarity(vector, recordVector(rec)),
		})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches
}
