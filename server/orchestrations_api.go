package main

import (
	"errors"
	"net/http"
	"strings"

	"github.com/powerskills-labs/powerskills-go/internal/orchestration"
	"github.com/powerskills-labs/powerskills-go/internal/platform/auth"
)

type createPlanRequest struct {
	TaskDescription string         `json:"task_description"`
	Options         map[string]any `json:"options,omitempty"`
}

func (api *serverAPI) handleCreatePlan(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.IdentityFromContext(r.Context())
	if !ok || strings.TrimSpace(caller.Subject) == "" {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

	var req createPlanRequest
	if err := decodeJSON(r, &req); err != nil {
		api.writeError(w, r, http.StatusBadRequest, "invalid_json")
		return
	}
	if strings.TrimSpace(req.TaskDescription) == "" {
		api.writeError(w, r, http.StatusBadRequest, "task_description_required")
		return
	}

	plan, err := api.orchestrations.CreatePlan(r.Context(), caller.Subject, req.TaskDescription)
	if err != nil {
		api.logger.Error("create plan failed", "request_id", r.Header.Get("X-Request-Id"), "error", err.Error())
		api.writeError(w, r, http.StatusBadRequest, "invalid_request")
		return
	}
	api.writeJSON(w, http.StatusCreated, plan)
}

func (api *serverAPI) handleListPlans(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.IdentityFromContext(r.Context())
	if !ok || strings.TrimSpace(caller.Subject) == "" {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

	page := clampInt(parseIntQuery(r, "page", 1), 1, 1_000_000)
	limit := clampInt(parseIntQuery(r, "limit", 20), 1, 100)

	plans, pagination, err := api.orchestrations.ListPlans(r.Context(), caller.Subject, page, limit)
	if err != nil {
		api.logger.Error("list plans failed", "request_id", r.Header.Get("X-Request-Id"), "error", err.Error())
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}
	api.writeJSON(w, http.StatusOK, map[string]any{
		"data":       plans,
		"pagination": pagination,
	})
}

func (api *serverAPI) handleGetPlan(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

	plan, err := api.orchestrations.GetPlan(r.Context(), caller.Subject, r.PathValue("plan_id"))
	if err != nil {
		switch {
		case errors.Is(err, orchestration.ErrNotFound):
			api.writeError(w, r, http.StatusNotFound, "plan_not_found")
		case errors.Is(err, orchestration.ErrNotOwner):
			api.writeError(w, r, http.StatusForbidden, "forbidden")
		default:
			api.logger.Error("get plan failed", "request_id", r.Header.Get("X-Request-Id"), "error", err.Error())
			api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		}
		return
	}
	api.writeJSON(w, http.StatusOK, plan)
}

func (api *serverAPI) handleExecutePlan(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}
	if !caller.Allows(auth.PermissionOrchestrationExecute) {
		api.writeError(w, r, http.StatusForbidden, "forbidden")
		return
	}

	plan, err := api.orchestrations.ExecutePlan(r.Context(), caller.Subject, r.PathValue("plan_id"))
	if err != nil {
		switch {
		case errors.Is(err, orchestration.ErrNotFound):
			api.writeError(w, r, http.StatusBadRequest, "plan_not_found")
		case errors.Is(err, orchestration.ErrAlreadyRunning):
			api.writeError(w, r, http.StatusBadRequest, "plan_already_running")
		case errors.Is(err, orchestration.ErrInvalidTransition):
			api.writeError(w, r, http.StatusBadRequest, "invalid_state_transition")
		case errors.Is(err, orchestration.ErrNotOwner):
			api.writeError(w, r, http.StatusForbidden, "forbidden")
		default:
			api.logger.Error("execute plan failed", "request_id", r.Header.Get("X-Request-Id"), "error", err.Error())
			api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		}
		return
	}
	api.writeJSON(w, http.StatusOK, plan)
}

func (api *serverAPI) handleCancelPlan(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

	ok2, err := api.orchestrations.CancelPlan(r.Context(), caller.Subject, r.PathValue("plan_id"))
	if err != nil {
		if errors.Is(err, orchestration.ErrNotOwner) {
			api.writeError(w, r, http.StatusForbidden, "forbidden")
			return
		}
		api.logger.Error("cancel plan failed", "request_id", r.Header.Get("X-Request-Id"), "error", err.Error())
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}
	if !ok2 {
		api.writeError(w, r, http.StatusBadRequest, "cancellation_not_permitted")
		return
	}
	api.writeJSON(w, http.StatusOK, map[string]any{"message": "plan cancelled"})
}
