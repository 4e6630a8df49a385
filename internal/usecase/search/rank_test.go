package search

import (
	"fmt"
	"math"
	"testing"
	"time"

	domdoc "github.com/kailas-cloud/docsearch/internal/domain/document"
	"github.com/kailas-cloud/docsearch/internal/domain/search/result"
)

var createdAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func makeDoc(id string, vec []float32) domdoc.Document {
	return domdoc.Reconstruct(id, "title-"+id, "content-"+id, vec, createdAt)
}

// docWithScore builds a 2-d unit vector whose cosine with (1,0) equals score.
func docWithScore(id string, score float64) domdoc.Document {
	return makeDoc(id, []float32{float32(score), float32(math.Sqrt(1 - score*score))})
}

func ids(rs []result.Result) []string {
	out := make([]string, len(rs))
	for i := range rs {
		out[i] = rs[i].ID()
	}
	return out
}

func TestRank_ThresholdAndTopK(t *testing.T) {
	docs := []domdoc.Document{
		docWithScore("a", 0.6),
		docWithScore("b", 0.9),
		docWithScore("c", 0.2),
		docWithScore("d", 0.76),
		docWithScore("e", 0.8),
	}

	got := Rank([]float32{1, 0}, docs, 0.75, 3)
	want := []string{"b", "e", "d"}
	if fmt.Sprint(ids(got)) != fmt.Sprint(want) {
		t.Fatalf("expected %v, got %v", want, ids(got))
	}
	for _, r := range got {
		if r.Score() < 0.75 {
			t.Errorf("result %s below threshold: %f", r.ID(), r.Score())
		}
	}
	if math.Abs(got[0].Score()-0.9) > 1e-6 {
		t.Errorf("expected score 0.9, got %f", got[0].Score())
	}
}

func TestRank_FewerThanTopK(t *testing.T) {
	docs := []domdoc.Document{docWithScore("a", 0.9), docWithScore("b", 0.1)}
	got := Rank([]float32{1, 0}, docs, 0.5, 10)
	if len(got) != 1 || got[0].ID() != "a" {
		t.Errorf("expected [a], got %v", ids(got))
	}
}

func TestRank_TiesKeepScanOrder(t *testing.T) {
	docs := []domdoc.Document{
		makeDoc("first", []float32{1, 0}),
		makeDoc("low", []float32{0, 1}),
		makeDoc("second", []float32{2, 0}),
		makeDoc("third", []float32{3, 0}),
	}
	got := Rank([]float32{1, 0}, docs, 0.5, 10)
	want := []string{"first", "second", "third"}
	if fmt.Sprint(ids(got)) != fmt.Sprint(want) {
		t.Errorf("expected %v, got %v", want, ids(got))
	}
}

func TestRank_SkipsUnscorable(t *testing.T) {
	docs := []domdoc.Document{
		makeDoc("empty", nil),
		makeDoc("zero", []float32{0, 0}),
		makeDoc("mismatch", []float32{1, 0, 0}),
		makeDoc("ok", []float32{1, 0}),
	}
	got := Rank([]float32{1, 0}, docs, 0, 10)
	if len(got) != 1 || got[0].ID() != "ok" {
		t.Errorf("expected [ok], got %v", ids(got))
	}
}

func TestRank_ZeroQuery(t *testing.T) {
	got := Rank([]float32{0, 0}, []domdoc.Document{makeDoc("a", []float32{1, 0})}, 0, 10)
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice, got %v", got)
	}
}

func TestRank_ThresholdInclusive(t *testing.T) {
	got := Rank([]float32{1, 0}, []domdoc.Document{makeDoc("a", []float32{1, 0})}, 1, 10)
	if len(got) != 1 {
		t.Errorf("expected exact match at threshold 1 to be kept, got %v", ids(got))
	}
}

func TestRank_CarriesDocumentFields(t *testing.T) {
	got := Rank([]float32{1, 0}, []domdoc.Document{makeDoc("a", []float32{1, 0})}, 0, 1)
	if got[0].Title() != "title-a" || got[0].Content() != "content-a" || !got[0].CreatedAt().Equal(createdAt) {
		t.Errorf("unexpected result fields: %+v", got[0])
	}
}

func TestByScore(t *testing.T) {
	rs := []result.Result{
		result.New("a", "", "", createdAt, 0.5),
		result.New("b", "", "", createdAt, 0.9),
		result.New("c", "", "", createdAt, 0.5),
	}
	got := ByScore(rs)
	want := []string{"b", "a", "c"}
	if fmt.Sprint(ids(got)) != fmt.Sprint(want) {
		t.Errorf("expected %v, got %v", want, ids(got))
	}
}
