package main

import (
	"errors"
	"net/http"
	"strings"

	"github.com/powerskills-labs/powerskills-go/internal/domain"
	"github.com/powerskills-labs/powerskills-go/internal/platform/auth"
	"github.com/powerskills-labs/powerskills-go/internal/skills"
)

type createSkillRequest struct {
	SkillName    string          `json:"skill_name"`
	Description  string          `json:"description,omitempty"`
	Platform     string          `json:"platform"`
	Capabilities []string        `json:"capabilities,omitempty"`
	Tags         []string        `json:"tags,omitempty"`
	Pricing      *domain.Pricing `json:"pricing,omitempty"`
}

func (api *serverAPI) handleCreateSkill(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}
	if !caller.Allows(auth.PermissionSkillWrite) {
		api.writeError(w, r, http.StatusForbidden, "forbidden")
		return
	}

	var req createSkillRequest
	if err := decodeJSON(r, &req); err != nil {
		api.writeError(w, r, http.StatusBadRequest, "invalid_json")
		return
	}

	skill, err := api.skills.Create(r.Context(), skills.CreateInput{
		SkillName:    req.SkillName,
		Description:  req.Description,
		Platform:     req.Platform,
		Capabilities: req.Capabilities,
		Tags:         req.Tags,
		Pricing:      req.Pricing,
	}, caller.Subject)
	if err != nil {
		api.writeError(w, r, http.StatusBadRequest, "invalid_request")
		return
	}
	api.writeJSON(w, http.StatusCreated, skill)
}

func (api *serverAPI) handleGetSkill(w http.ResponseWriter, r *http.Request) {
	skill, err := api.skills.Get(r.Context(), r.PathValue("skill_id"))
	if err != nil {
		if errors.Is(err, skills.ErrNotFound) {
			api.writeError(w, r, http.StatusNotFound, "skill_not_found")
			return
		}
		api.logger.Error("get skill failed", "request_id", r.Header.Get("X-Request-Id"), "error", err.Error())
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}
	api.writeJSON(w, http.StatusOK, skill)
}

type updateSkillRequest struct {
	SkillName    *string         `json:"skill_name,omitempty"`
	Description  *string         `json:"description,omitempty"`
	Capabilities *[]string       `json:"capabilities,omitempty"`
	Tags         *[]string       `json:"tags,omitempty"`
	Pricing      *domain.Pricing `json:"pricing,omitempty"`
}

func (api *serverAPI) handleUpdateSkill(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.IdentityFromContext(r.Context())
	if !ok || !caller.Allows(auth.PermissionSkillWrite) {
		api.writeError(w, r, http.StatusForbidden, "forbidden")
		return
	}

	var req updateSkillRequest
	if err := decodeJSON(r, &req); err != nil {
		api.writeError(w, r, http.StatusBadRequest, "invalid_json")
		return
	}

	skill, err := api.skills.Update(r.Context(), r.PathValue("skill_id"), skills.UpdateInput{
		SkillName:    req.SkillName,
		Description:  req.Description,
		Capabilities: req.Capabilities,
		Tags:         req.Tags,
		Pricing:      req.Pricing,
	})
	if err != nil {
		if errors.Is(err, skills.ErrNotFound) {
			api.writeError(w, r, http.StatusNotFound, "skill_not_found")
			return
		}
		api.writeError(w, r, http.StatusBadRequest, "invalid_request")
		return
	}
	api.writeJSON(w, http.StatusOK, skill)
}

func (api *serverAPI) handleDeleteSkill(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.IdentityFromContext(r.Context())
	if !ok || !caller.Allows(auth.PermissionSkillWrite) {
		api.writeError(w, r, http.StatusForbidden, "forbidden")
		return
	}

	if err := api.skills.Delete(r.Context(), r.PathValue("skill_id")); err != nil {
		if errors.Is(err, skills.ErrNotFound) {
			api.writeError(w, r, http.StatusNotFound, "skill_not_found")
			return
		}
		api.logger.Error("delete skill failed", "request_id", r.Header.Get("X-Request-Id"), "error", err.Error())
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (api *serverAPI) handleListSkills(w http.ResponseWriter, r *http.Request) {
	page := clampInt(parseIntQuery(r, "page", 1), 1, 1_000_000)
	limit := clampInt(parseIntQuery(r, "limit", 20), 1, 100)
	platform := strings.TrimSpace(r.URL.Query().Get("platform"))

	list, pagination, err := api.skills.List(r.Context(), platform, page, limit)
	if err != nil {
		api.logger.Error("list skills failed", "request_id", r.Header.Get("X-Request-Id"), "error", err.Error())
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}
	api.writeJSON(w, http.StatusOK, map[string]any{
		"data":       list,
		"pagination": pagination,
	})
}

func (api *serverAPI) handleSearchSkills(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		api.writeError(w, r, http.StatusBadRequest, "query_required")
		return
	}
	limit := clampInt(parseIntQuery(r, "limit", 20), 1, 100)

	var platforms []string
	if raw := strings.TrimSpace(r.URL.Query().Get("platforms")); raw != "" {
		for _, p := range strings.Split(raw, ",") {
			if p = strings.TrimSpace(p); p != "" {
				platforms = append(platforms, p)
			}
		}
	}

	results, err := api.skills.Search(r.Context(), query, platforms, limit)
	if err != nil {
		api.logger.Error("search skills failed", "request_id", r.Header.Get("X-Request-Id"), "error", err.Error())
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}
	api.writeJSON(w, http.StatusOK, map[string]any{"data": results})
}

type vectorSearchRequest struct {
	Vector []float64 `json:"vector"`
	TopK   int       `json:"top_k,omitempty"`
}

func (api *serverAPI) handleVectorSearchSkills(w http.ResponseWriter, r *http.Request) {
	var req vectorSearchRequest
	if err := decodeJSON(r, &req); err != nil {
		api.writeError(w, r, http.StatusBadRequest, "invalid_json")
		return
	}
	if len(req.Vector) == 0 {
		api.writeError(w, r, http.StatusBadRequest, "vector_required")
		return
	}

	results, err := api.skills.SearchByVector(r.Context(), req.Vector, req.TopK)
	if err != nil {
		api.logger.Error("vector search failed", "request_id", r.Header.Get("X-Request-Id"), "error", err.Error())
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}
	api.writeJSON(w, http.StatusOK, map[string]any{"data": results})
}

type upsertVectorRequest struct {
	Vector []float64 `json:"vector"`
}

func (api *serverAPI) handleUpsertSkillVector(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.IdentityFromContext(r.Context())
	if !ok || !caller.Allows(auth.PermissionSkillWrite) {
		api.writeError(w, r, http.StatusForbidden, "forbidden")
		return
	}

	var req upsertVectorRequest
	if err := decodeJSON(r, &req); err != nil {
		api.writeError(w, r, http.StatusBadRequest, "invalid_json")
		return
	}

	if err := api.skills.UpsertVector(r.Context(), r.PathValue("skill_id"), req.Vector); err != nil {
		if errors.Is(err, skills.ErrNotFound) {
			api.writeError(w, r, http.StatusNotFound, "skill_not_found")
			return
		}
		api.writeError(w, r, http.StatusBadRequest, "invalid_request")
		return
	}
	api.writeJSON(w, http.StatusOK, map[string]any{"message": "vector stored"})
}
