package gateway

import (
	"math"
	"testing"
)

func TestCosineSimilarity(t *testing.T) {
	if got := cosineSimilarity([]float64{1, 0}, []float64{1, 0}); math.Abs(got-1) > 1e-9 {
		t.Fatalf("identical vectors = %v, want 1", got)
	}
	if got := cosineSimilarity([]float64{1, 0}, []float64{0, 1}); math.Abs(got) > 1e-9 {
		t.Fatalf("orthogonal vectors = %v, want 0", got)
	}
	if got := cosineSimilarity([]float64{1, 0}, []float64{1, 0, 0}); got != 0 {
		t.Fatalf("mismatched lengths = %v, want 0", got)
	}
	if got := cosineSimilarity([]float64{0, 0}, []float64{1, 0}); got != 0 {
		t.Fatalf("zero vector = %v, want 0", got)
	}
}

func TestRecordVector(t *testing.T) {
	rec := Record{"vector": []any{0.5, 0.25}}
	got := recordVector(rec)
	if len(got) != 2 || got[0] != 0.5 || got[1] != 0.25 {
		t.Fatalf("recordVector = %v", got)
	}
	if recordVector(Record{}) != nil {
		t.Fatalf("missing vector should return nil")
	}
	if recordVector(Record{"vector": []any{"bad"}}) != nil {
		t.Fatalf("non-numeric vector should return nil")
	}
}

func TestBuildWhere(t *testing.T) {
	where, args := buildWhere(nil)
	if where != "" || args != nil {
		t.Fatalf("empty filters = %q %v", where, args)
	}

	where, args = buildWhere(Filters{"user_id": "usr_1", "status": []string{"pending", "running"}})
	want := " WHERE record->>'status' = ANY($1) AND record->>'user_id' = $2"
	if where != want {
		t.Fatalf("where = %q, want %q", where, want)
	}
	if len(args) != 2 {
		t.Fatalf("args = %v", args)
	}
	if _, ok := args[0].([]string); !ok {
		t.Fatalf("args[0] = %T, want []string", args[0])
	}
}
