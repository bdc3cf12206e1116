// Package skills is the CRUD and search layer over the skill catalog.
package skills

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/powerskills-labs/powerskills-go/internal/domain"
	"github.com/powerskills-labs/powerskills-go/internal/gateway"
)

var ErrNotFound = errors.New("skill not found")

type CreateInput struct {
	SkillName    string
	Description  string
	Platform     string
	Capabilities []string
	Tags         []string
	Pricing      *domain.Pricing
}

// UpdateInput carries partial updates; nil fields are left untouched.
type UpdateInput struct {
	SkillName    *string
	Description  *string
	Capabilities *[]string
	Tags         *[]string
	Pricing      *domain.Pricing
}

type SearchResult struct {
	domain.Skill
	Similarity float64 `json:"similarity"`
}

type Service struct {
	gw  gateway.Gateway
	now func() time.Time
}

func New(gw gateway.Gateway) *Service {
	return &Service{gw: gw, now: time.Now}
}

func (s *Service) Create(ctx context.Context, in CreateInput, developerID string) (domain.Skill, error) {
	pricing := domain.DefaultPricing()
	if in.Pricing != nil {
		pricing = *in.Pricing
	}
	now := s.now().UTC()
	skill := domain.Skill{
		SkillID:      domain.NewSkillID(),
		SkillName:    strings.TrimSpace(in.SkillName),
		Description:  in.Description,
		Platform:     in.Platform,
		Developer:    developerID,
		Capabilities: in.Capabilities,
		Tags:         in.Tags,
		Pricing:      pricing,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := skill.Validate(); err != nil {
		return domain.Skill{}, err
	}

	rec, err := gateway.EncodeRecord(skill)
	if err != nil {
		return domain.Skill{}, err
	}
	if err := s.gw.Insert(ctx, gateway.CollectionSkills, skill.SkillID, rec); err != nil {
		return domain.Skill{}, fmt.Errorf("insert skill: %w", err)
	}
	return skill, nil
}

func (s *Service) Get(ctx context.Context, skillID string) (domain.Skill, error) {
	rec, err := s.gw.Get(ctx, gateway.CollectionSkills, skillID)
	if err != nil {
		if errors.Is(err, gateway.ErrNotFound) {
			return domain.Skill{}, ErrNotFound
		}
		return domain.Skill{}, fmt.Errorf("get skill: %w", err)
	}
	var skill domain.Skill
	if err := gateway.DecodeRecord(rec, &skill); err != nil {
		return domain.Skill{}, err
	}
	return skill, nil
}

func (s *Service) Update(ctx context.Context, skillID string, in UpdateInput) (domain.Skill, error) {
	if _, err := s.Get(ctx, skillID); err != nil {
		return domain.Skill{}, err
	}

	fields := gateway.Record{"updated_at": s.now().UTC().Format(time.RFC3339Nano)}
	if in.SkillName != nil {
		fields["skill_name"] = *in.SkillName
	}
	if in.Description != nil {
		fields["description"] = *in.Description
	}
	if in.Capabilities != nil {
		fields["capabilities"] = *in.Capabilities
	}
	if in.Tags != nil {
		fields["tags"] = *in.Tags
	}
	if in.Pricing != nil {
		pricing, err := gateway.EncodeRecord(*in.Pricing)
		if err != nil {
			return domain.Skill{}, err
		}
		fields["pricing"] = map[string]any(pricing)
	}

	if err := s.gw.Update(ctx, gateway.CollectionSkills, skillID, fields); err != nil {
		if errors.Is(err, gateway.ErrNotFound) {
			return domain.Skill{}, ErrNotFound
		}
		return domain.Skill{}, fmt.Errorf("update skill: %w", err)
	}
	return s.Get(ctx, skillID)
}

func (s *Service) Delete(ctx context.Context, skillID string) error {
	if err := s.gw.Delete(ctx, gateway.CollectionSkills, skillID); err != nil {
		if errors.Is(err, gateway.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete skill: %w", err)
	}
	return nil
}

func (s *Service) List(ctx context.Context, platform string, page, limit int) ([]domain.Skill, domain.Pagination, error) {
	page, limit = clampPage(page, limit)
	filters := gateway.Filters{}
	if strings.TrimSpace(platform) != "" {
		filters["platform"] = platform
	}

	offset := (page - 1) * limit
	records, err := s.gw.Query(ctx, gateway.CollectionSkills, filters, offset, limit)
	if err != nil {
		return nil, domain.Pagination{}, fmt.Errorf("list skills: %w", err)
	}
	total, err := s.gw.Count(ctx, gateway.CollectionSkills, filters)
	if err != nil {
		return nil, domain.Pagination{}, fmt.Errorf("count skills: %w", err)
	}

	out := make([]domain.Skill, 0, len(records))
	for _, rec := range records {
		var skill domain.Skill
		if err := gateway.DecodeRecord(rec, &skill); err != nil {
			return nil, domain.Pagination{}, err
		}
		out = append(out, skill)
	}
	return out, domain.NewPagination(page, limit, total), nil
}

// Search matches the query as a case-insensitive substring of skill
// name or description. Vector retrieval has its own entry point.
func (s *Service) Search(ctx context.Context, query string, platforms []string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	filters := gateway.Filters{}
	if len(platforms) > 0 {
		filters["platform"] = platforms
	}

	records, err := s.gw.Query(ctx, gateway.CollectionSkills, filters, 0, limit*2)
	if err != nil {
		return nil, fmt.Errorf("search skills: %w", err)
	}

	queryLower := strings.ToLower(query)
	results := make([]SearchResult, 0, limit)
	for _, rec := range records {
		var skill domain.Skill
		if err := gateway.DecodeRecord(rec, &skill); err != nil {
			return nil, err
		}
		if !strings.Contains(strings.ToLower(skill.SkillName), queryLower) &&
			!strings.Contains(strings.ToLower(skill.Description), queryLower) {
			continue
		}
		results = append(results, SearchResult{Skill: skill, Similarity: 0.9})
		if len(results) >= limit {
			break
		}
	}
	return results, nil
}

// SearchByVector ranks catalog entries against an embedding stored in
// the skill_vectors collection and hydrates the matching skills.
func (s *Service) SearchByVector(ctx context.Context, vector []float64, topK int) ([]SearchResult, error) {
	if len(vector) == 0 {
		return nil, errors.New("vector is required")
	}
	if topK <= 0 {
		topK = 10
	}
	matches, err := s.gw.VectorSearch(ctx, gateway.CollectionSkillVectors, vector, topK)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	results := make([]SearchResult, 0, len(matches))
	for _, match := range matches {
		skillID, _ := match.Record["skill_id"].(string)
		if skillID == "" {
			continue
		}
		skill, err := s.Get(ctx, skillID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, err
		}
		results = append(results, SearchResult{Skill: skill, Similarity: match.Score})
	}
	return results, nil
}

// UpsertVector stores the embedding used by SearchByVector.
func (s *Service) UpsertVector(ctx context.Context, skillID string, vector []float64) error {
	if _, err := s.Get(ctx, skillID); err != nil {
		return err
	}
	if len(vector) == 0 {
		return errors.New("vector is required")
	}
	return s.gw.Insert(ctx, gateway.CollectionSkillVectors, skillID, gateway.Record{
		"skill_id": skillID,
		"vector":   vector,
	})
}

func (s *Service) IncrementUsage(ctx context.Context, skillID string) error {
	skill, err := s.Get(ctx, skillID)
	if err != nil {
		return err
	}
	return s.gw.Update(ctx, gateway.CollectionSkills, skillID, gateway.Record{
		"usage_count": skill.UsageCount + 1,
	})
}

func clampPage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}
