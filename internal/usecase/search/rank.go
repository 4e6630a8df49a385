package search

import (
	"math"
	"sort"

	domdoc "github.com/kailas-cloud/docsearch/internal/domain/document"
	"github.com/kailas-cloud/docsearch/internal/domain/search/result"
)

// Reranker reorders an already ranked, truncated result set.
type Reranker func([]result.Result) []result.Result

// ByScore is the default re-rank strategy: stable sort by relevance descending.
func ByScore(rs []result.Result) []result.Result {
	sort.SliceStable(rs, func(i, j int) bool {
		return rs[i].Score() > rs[j].Score()
	})
	return rs
}

// Rank scores candidates by cosine similarity against query, keeps those with
// score >= threshold, sorts descending (ties keep scan order) and truncates to topK.
// Candidates that cannot be scored (empty, zero-norm, dimension mismatch) are skipped.
func Rank(query []float32, candidates []domdoc.Document, threshold float64, topK int) []result.Result {
	qNorm := norm(query)
	if qNorm == 0 {
		return []result.Result{}
	}

	out := make([]result.Result, 0, len(candidates))
	for i := range candidates {
		d := &candidates[i]
		score, ok := cosine(query, qNorm, d.Embedding())
		if !ok || score < threshold {
			continue
		}
		out = append(out, result.New(d.ID(), d.Title(), d.Content(), d.CreatedAt(), score))
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score() > out[j].Score()
	})

	if topK >= 0 && len(out) > topK {
		out = out[:topK]
	}
	return out
}

func cosine(q []float32, qNorm float64, v []float32) (float64, bool) {
	if len(v) == 0 || len(v) != len(q) {
		return 0, false
	}
	var dot float64
	for i := range q {
		dot += float64(q[i]) * float64(v[i])
	}
	vNorm := norm(v)
	if vNorm == 0 {
		return 0, false
	}
	return dot / (qNorm * vNorm), true
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}
