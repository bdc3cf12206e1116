package gateway

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestMemoryInsertGet(t *testing.T) {
	ctx := context.Background()
	g := NewMemory()

	rec := Record{"skill_id": "sk_abc", "name": "Web Scraper Pro"}
	if err := g.Insert(ctx, CollectionSkills, "sk_abc", rec); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	got, err := g.Get(ctx, CollectionSkills, "sk_abc")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got["name"] != "Web Scraper Pro" {
		t.Fatalf("name = %v", got["name"])
	}

	if _, err := g.Get(ctx, CollectionSkills, "sk_missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get(missing) = %v, want ErrNotFound", err)
	}
}

func TestMemoryGetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	g := NewMemory()
	if err := g.Insert(ctx, CollectionSkills, "sk_abc", Record{"name": "original"}); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	got, err := g.Get(ctx, CollectionSkills, "sk_abc")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	got["name"] = "mutated"

	again, err := g.Get(ctx, CollectionSkills, "sk_abc")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if again["name"] != "original" {
		t.Fatalf("stored record mutated through returned copy")
	}
}

func TestMemoryQueryFiltersAndPaginates(t *testing.T) {
	ctx := context.Background()
	g := NewMemory()
	for i := 0; i < 5; i++ {
		status := "pending"
		if i%2 == 1 {
			status = "completed"
		}
		key := fmt.Sprintf("op_%d", i)
		if err := g.Insert(ctx, CollectionPlans, key, Record{"plan_id": key, "status": status, "user_id": "usr_1"}); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
	}

	pending, err := g.Query(ctx, CollectionPlans, Filters{"status": "pending"}, 0, 0)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(pending) != 3 {
		t.Fatalf("len(pending) = %d, want 3", len(pending))
	}

	// Insertion order holds under offset and limit.
	page, err := g.Query(ctx, CollectionPlans, Filters{"user_id": "usr_1"}, 2, 2)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(page) != 2 || page[0]["plan_id"] != "op_2" || page[1]["plan_id"] != "op_3" {
		t.Fatalf("page = %v", page)
	}

	count, err := g.Count(ctx, CollectionPlans, Filters{"status": "completed"})
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 2 {
		t.Fatalf("Count() = %d, want 2", count)
	}
}

func TestMemoryQueryListFilter(t *testing.T) {
	ctx := context.Background()
	g := NewMemory()
	statuses := []string{"pending", "running", "completed"}
	for i, status := range statuses {
		key := fmt.Sprintf("op_%d", i)
		if err := g.Insert(ctx, CollectionPlans, key, Record{"plan_id": key, "status": status}); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
	}

	active, err := g.Query(ctx, CollectionPlans, Filters{"status": []string{"pending", "running"}}, 0, 0)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(active) != 2 {
		t.Fatalf("len(active) = %d, want 2", len(active))
	}
}

func TestMemoryUpdateMerges(t *testing.T) {
	ctx := context.Background()
	g := NewMemory()
	if err := g.Insert(ctx, CollectionPlans, "op_1", Record{"status": "pending", "user_id": "usr_1"}); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	if err := g.Update(ctx, CollectionPlans, "op_1", Record{"status": "running"}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	got, err := g.Get(ctx, CollectionPlans, "op_1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got["status"] != "running" || got["user_id"] != "usr_1" {
		t.Fatalf("merge lost fields: %v", got)
	}

	if err := g.Update(ctx, CollectionPlans, "op_missing", Record{"status": "running"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Update(missing) = %v, want ErrNotFound", err)
	}
}

func TestMemoryDelete(t *testing.T) {
	ctx := context.Background()
	g := NewMemory()
	if err := g.Insert(ctx, CollectionSkills, "sk_1", Record{"name": "x"}); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if err := g.Delete(ctx, CollectionSkills, "sk_1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := g.Delete(ctx, CollectionSkills, "sk_1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Delete(again) = %v, want ErrNotFound", err)
	}
}

func TestMemoryVectorSearch(t *testing.T) {
	ctx := context.Background()
	g := NewMemory()
	vectors := map[string][]float64{
		"sk_a": {1, 0, 0},
		"sk_b": {0, 1, 0},
		"sk_c": {0.9, 0.1, 0},
	}
	for key, vec := range vectors {
		anyVec := make([]any, len(vec))
		for i, v := range vec {
			anyVec[i] = v
		}
		if err := g.Insert(ctx, CollectionSkillVectors, key, Record{"skill_id": key, "vector": anyVec}); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
	}

	matches, err := g.VectorSearch(ctx, CollectionSkillVectors, []float64{1, 0, 0}, 2)
	if err != nil {
		t.Fatalf("VectorSearch() error = %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("len(matches) = %d, want 2", len(matches))
	}
	if matches[0].Record["skill_id"] != "sk_a" {
		t.Fatalf("best match = %v", matches[0].Record["skill_id"])
	}
	if matches[1].Record["skill_id"] != "sk_c" {
		t.Fatalf("second match = %v", matches[1].Record["skill_id"])
	}
	if matches[0].Score <= matches[1].Score {
		t.Fatalf("scores not descending: %v >= %v wanted", matches[0].Score, matches[1].Score)
	}
}
