package main

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/powerskills-labs/powerskills-go/internal/identity"
	"github.com/powerskills-labs/powerskills-go/internal/orchestration"
	"github.com/powerskills-labs/powerskills-go/internal/skills"
)

type serverAPI struct {
	logger         *slog.Logger
	identity       *identity.Service
	skills         *skills.Service
	orchestrations *orchestration.Service
}

func newServerAPI(logger *slog.Logger, identitySvc *identity.Service, skillsSvc *skills.Service, orchestrationSvc *orchestration.Service) *serverAPI {
	return &serverAPI{
		logger:         logger,
		identity:       identitySvc,
		skills:         skillsSvc,
		orchestrations: orchestrationSvc,
	}
}

func (api *serverAPI) register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/auth/register", api.handleRegister)
	mux.HandleFunc("POST /api/v1/auth/login", api.handleLogin)
	mux.HandleFunc("POST /api/v1/auth/refresh", api.handleRefresh)
	mux.HandleFunc("GET /api/v1/auth/me", api.handleMe)

	mux.HandleFunc("GET /api/v1/skills", api.handleListSkills)
	mux.HandleFunc("POST /api/v1/skills", api.handleCreateSkill)
	mux.HandleFunc("GET /api/v1/skills/search", api.handleSearchSkills)
	mux.HandleFunc("POST /api/v1/skills/search/vector", api.handleVectorSearchSkills)
	mux.HandleFunc("GET /api/v1/skills/{skill_id}", api.handleGetSkill)
	mux.HandleFunc("PUT /api/v1/skills/{skill_id}", api.handleUpdateSkill)
	mux.HandleFunc("DELETE /api/v1/skills/{skill_id}", api.handleDeleteSkill)
	mux.HandleFunc("PUT /api/v1/skills/{skill_id}/vector", api.handleUpsertSkillVector)

	mux.HandleFunc("POST /api/v1/orchestrations", api.handleCreatePlan)
	mux.HandleFunc("GET /api/v1/orchestrations", api.handleListPlans)
	mux.HandleFunc("GET /api/v1/orchestrations/{plan_id}", api.handleGetPlan)
	mux.HandleFunc("POST /api/v1/orchestrations/{plan_id}/execute", api.handleExecutePlan)
	mux.HandleFunc("DELETE /api/v1/orchestrations/{plan_id}", api.handleCancelPlan)
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("multiple JSON values")
	}
	return nil
}

func (api *serverAPI) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(true)
	_ = enc.Encode(body)
}

func (api *serverAPI) writeError(w http.ResponseWriter, r *http.Request, status int, code string) {
	api.writeJSON(w, status, map[string]any{
		"error":      code,
		"request_id": r.Header.Get("X-Request-Id"),
	})
}

func parseIntQuery(r *http.Request, key string, def int) int {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return def
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return parsed
}

func clampInt(v int, min int, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
