package skills

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/powerskills-labs/powerskills-go/internal/domain"
	"github.com/powerskills-labs/powerskills-go/internal/gateway"
)

func newService() *Service {
	return New(gateway.NewMemory())
}

func mustCreate(t *testing.T, svc *Service, name, platform, description string) domain.Skill {
	t.Helper()
	skill, err := svc.Create(context.Background(), CreateInput{
		SkillName:   name,
		Platform:    platform,
		Description: description,
	}, "usr_dev")
	if err != nil {
		t.Fatalf("Create(%q) error = %v", name, err)
	}
	return skill
}

func TestCreateAndGet(t *testing.T) {
	ctx := context.Background()
	svc := newService()

	created := mustCreate(t, svc, "Web Scraper Pro", domain.PlatformCoze, "scrapes web pages")
	if !strings.HasPrefix(created.SkillID, "sk_") {
		t.Fatalf("SkillID = %q, want sk_ prefix", created.SkillID)
	}
	if created.Pricing.Type != "free" || created.Pricing.Currency != "USD" {
		t.Fatalf("default pricing = %+v", created.Pricing)
	}
	if created.Developer != "usr_dev" {
		t.Fatalf("Developer = %q", created.Developer)
	}

	got, err := svc.Get(ctx, created.SkillID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.SkillName != "Web Scraper Pro" || got.Platform != domain.PlatformCoze {
		t.Fatalf("Get() = %+v", got)
	}

	if _, err := svc.Get(ctx, "sk_missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get(missing) = %v, want ErrNotFound", err)
	}
}

func TestCreateRejectsUnknownPlatform(t *testing.T) {
	svc := newService()
	if _, err := svc.Create(context.Background(), CreateInput{SkillName: "x", Platform: "mainframe"}, "usr_dev"); err == nil {
		t.Fatalf("Create(unknown platform) = nil, want error")
	}
}

func TestUpdatePartial(t *testing.T) {
	ctx := context.Background()
	svc := newService()
	created := mustCreate(t, svc, "Analyzer", domain.PlatformDify, "analyzes content")

	name := "Content Analyzer"
	got, err := svc.Update(ctx, created.SkillID, UpdateInput{SkillName: &name})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if got.SkillName != "Content Analyzer" {
		t.Fatalf("SkillName = %q", got.SkillName)
	}
	if got.Description != "analyzes content" {
		t.Fatalf("untouched field changed: %q", got.Description)
	}
	if !got.UpdatedAt.After(created.UpdatedAt) && !got.UpdatedAt.Equal(created.UpdatedAt) {
		t.Fatalf("UpdatedAt went backwards")
	}

	if _, err := svc.Update(ctx, "sk_missing", UpdateInput{SkillName: &name}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Update(missing) = %v, want ErrNotFound", err)
	}
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	svc := newService()
	created := mustCreate(t, svc, "Doomed", domain.PlatformCustom, "")

	if err := svc.Delete(ctx, created.SkillID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := svc.Get(ctx, created.SkillID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get(deleted) = %v, want ErrNotFound", err)
	}
	if err := svc.Delete(ctx, created.SkillID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Delete(again) = %v, want ErrNotFound", err)
	}
}

func TestListPaginates(t *testing.T) {
	ctx := context.Background()
	svc := newService()
	for i := 0; i < 5; i++ {
		platform := domain.PlatformCoze
		if i >= 3 {
			platform = domain.PlatformDify
		}
		mustCreate(t, svc, "Skill "+string(rune('A'+i)), platform, "")
	}

	all, pagination, err := svc.List(ctx, "", 1, 20)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 5 || pagination.Total != 5 || pagination.TotalPages != 1 {
		t.Fatalf("List() = %d items, pagination %+v", len(all), pagination)
	}

	coze, pagination, err := svc.List(ctx, domain.PlatformCoze, 1, 2)
	if err != nil {
		t.Fatalf("List(coze) error = %v", err)
	}
	if len(coze) != 2 || pagination.Total != 3 || pagination.TotalPages != 2 {
		t.Fatalf("List(coze) = %d items, pagination %+v", len(coze), pagination)
	}

	page2, _, err := svc.List(ctx, domain.PlatformCoze, 2, 2)
	if err != nil {
		t.Fatalf("List(page 2) error = %v", err)
	}
	if len(page2) != 1 {
		t.Fatalf("List(page 2) = %d items, want 1", len(page2))
	}
	if page2[0].SkillID == coze[0].SkillID || page2[0].SkillID == coze[1].SkillID {
		t.Fatalf("page 2 repeats page 1 items")
	}
}

func TestSearchSubstring(t *testing.T) {
	ctx := context.Background()
	svc := newService()
	mustCreate(t, svc, "Web Scraper Pro", domain.PlatformCoze, "scrapes pages")
	mustCreate(t, svc, "Report Generator", domain.PlatformLangchain, "builds PDF reports")
	mustCreate(t, svc, "Translator", domain.PlatformDify, "translates text")

	results, err := svc.Search(ctx, "report", nil, 20)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 1 || results[0].SkillName != "Report Generator" {
		t.Fatalf("Search(report) = %+v", results)
	}
	if results[0].Similarity != 0.9 {
		t.Fatalf("Similarity = %v, want 0.9", results[0].Similarity)
	}

	// Platform filter narrows before matching.
	results, err = svc.Search(ctx, "r", []string{domain.PlatformDify}, 20)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 1 || results[0].SkillName != "Translator" {
		t.Fatalf("Search(platform filter) = %+v", results)
	}
}

func TestSearchByVector(t *testing.T) {
	ctx := context.Background()
	svc := newService()
	a := mustCreate(t, svc, "Web Scraper Pro", domain.PlatformCoze, "")
	b := mustCreate(t, svc, "Report Generator", domain.PlatformLangchain, "")

	if err := svc.UpsertVector(ctx, a.SkillID, []float64{1, 0}); err != nil {
		t.Fatalf("UpsertVector() error = %v", err)
	}
	if err := svc.UpsertVector(ctx, b.SkillID, []float64{0, 1}); err != nil {
		t.Fatalf("UpsertVector() error = %v", err)
	}

	results, err := svc.SearchByVector(ctx, []float64{0.9, 0.1}, 1)
	if err != nil {
		t.Fatalf("SearchByVector() error = %v", err)
	}
	if len(results) != 1 || results[0].SkillID != a.SkillID {
		t.Fatalf("SearchByVector() = %+v", results)
	}

	if err := svc.UpsertVector(ctx, "sk_missing", []float64{1}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("UpsertVector(missing) = %v, want ErrNotFound", err)
	}
}

func TestIncrementUsage(t *testing.T) {
	ctx := context.Background()
	svc := newService()
	created := mustCreate(t, svc, "Counter", domain.PlatformCustom, "")

	for i := 0; i < 3; i++ {
		if err := svc.IncrementUsage(ctx, created.SkillID); err != nil {
			t.Fatalf("IncrementUsage() error = %v", err)
		}
	}
	got, err := svc.Get(ctx, created.SkillID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.UsageCount != 3 {
		t.Fatalf("UsageCount = %d, want 3", got.UsageCount)
	}
}
