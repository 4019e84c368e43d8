package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"seam/internal/httpapi/util"
	"seam/internal/httpkit"
	"seam/internal/models"
	"seam/internal/repositories"
)

type CreateProfileRequest struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Defaults    map[string]any `json:"defaults,omitempty"`
}

type UpdateProfileRequest struct {
	Name        *string         `json:"name,omitempty"`
	Description *string         `json:"description,omitempty"`
	Defaults    *map[string]any `json:"defaults,omitempty"`
}

func (h *Handler) PostProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateProfileRequest
	if err := httpkit.DecodeJSON(r, &req); err != nil {
		httpkit.WriteErr(w, 400, "VALIDATION_ERROR", "invalid json body", nil)
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		httpkit.WriteErr(w, 400, "VALIDATION_ERROR", "name is required", map[string]any{"field": "name"})
		return
	}
	if req.Defaults == nil {
		req.Defaults = map[string]any{}
	}

	p := &models.Profile{
		ID:          util.NewID("prf"),
		Name:        req.Name,
		Description: strings.TrimSpace(req.Description),
		Defaults:    req.Defaults,
	}

	if err := h.profiles.Create(ctx, p); err != nil {
		if errors.Is(err, repositories.ErrProfileNameExists) {
			httpkit.WriteErr(w, 409, "PROFILE_NAME_EXISTS", "profile name already exists", map[string]any{"field": "name"})
			return
		}
		httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "db insert failed", nil)
		return
	}

	httpkit.WriteJSON(w, 201, map[string]any{"profile": p})
}

func (h *Handler) ListProfiles(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	profiles, err := h.profiles.List(ctx)
	if err != nil {
		httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "db query failed", nil)
		return
	}
	if profiles == nil {
		profiles = []models.Profile{}
	}

	httpkit.WriteJSON(w, 200, map[string]any{"profiles": profiles})
}

func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	profileID := chi.URLParam(r, "profileId")

	p, err := h.profiles.Get(ctx, profileID)
	if err != nil || p.DeletedAt != nil {
		httpkit.WriteErr(w, 404, "PROFILE_NOT_FOUND", "profile not found", map[string]any{"profile_id": profileID})
		return
	}

	httpkit.WriteJSON(w, 200, map[string]any{"profile": p})
}

func (h *Handler) PatchProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	profileID := chi.URLParam(r, "profileId")

	p, err := h.profiles.Get(ctx, profileID)
	if err != nil || p.DeletedAt != nil {
		httpkit.WriteErr(w, 404, "PROFILE_NOT_FOUND", "profile not found", map[string]any{"profile_id": profileID})
		return
	}

	var req UpdateProfileRequest
	if err := httpkit.DecodeJSON(r, &req); err != nil {
		httpkit.WriteErr(w, 400, "VALIDATION_ERROR", "invalid json body", nil)
		return
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			httpkit.WriteErr(w, 400, "VALIDATION_ERROR", "name cannot be empty", map[string]any{"field": "name"})
			return
		}
		p.Name = name
	}
	if req.Description != nil {
		p.Description = strings.TrimSpace(*req.Description)
	}
	if req.Defaults != nil {
		p.Defaults = *req.Defaults
	}

	if err := h.profiles.Update(ctx, p); err != nil {
		if errors.Is(err, repositories.ErrProfileNameExists) {
			httpkit.WriteErr(w, 409, "PROFILE_NAME_EXISTS", "profile name already exists", map[string]any{"field": "name"})
			return
		}
		httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "db update failed", nil)
		return
	}

	httpkit.WriteJSON(w, 200, map[string]any{"profile": p})
}

func (h *Handler) DeleteProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	profileID := chi.URLParam(r, "profileId")

	if err := h.profiles.Delete(ctx, profileID); err != nil {
		if errors.Is(err, repositories.ErrProfileNotFound) {
			httpkit.WriteErr(w, 404, "PROFILE_NOT_FOUND", "profile not found", map[string]any{"profile_id": profileID})
			return
		}
		httpkit.WriteErr(w, 500, "INTERNAL_ERROR", "db delete failed", nil)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
