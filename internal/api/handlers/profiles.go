package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/mnemolabs/placement-engine/internal/models"
	"github.com/mnemolabs/placement-engine/internal/store"
	"github.com/mnemolabs/placement-engine/internal/store/postgres"
)

// ProfileHandler handles model profile HTTP requests.
type ProfileHandler struct {
	store  store.Store
	logger *slog.Logger
}

// NewProfileHandler creates a new profile handler.
func NewProfileHandler(st store.Store, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{
		store:  st,
		logger: logger,
	}
}

// Create handles POST /v1/model-profiles - creates a profile.
func (h *ProfileHandler) Create(w http.ResponseWriter, r *http.Request) {
	var profile models.ModelProfile
	if err := json.NewDecoder(r.Body).Decode(&profile); err != nil {
		WriteBadRequest(w, "Invalid request body")
		return
	}

	if profile.Name == "" {
		WriteBadRequest(w, "name is required")
		return
	}
	if profile.SuggestedMinVRAMGB <= 0 {
		WriteBadRequest(w, "suggested_min_vram_gb must be positive")
		return
	}
	profile.ID = uuid.New().String()

	if err := h.store.Profiles().Create(r.Context(), &profile); err != nil {
		if errors.Is(err, postgres.ErrDuplicateName) {
			WriteConflict(w, "Model profile already exists")
			return
		}
		h.logger.Error("failed to create profile", "error", err, "name", profile.Name)
		WriteInternalError(w, "Failed to create model profile")
		return
	}

	WriteJSON(w, http.StatusCreated, &profile)
}

// List handles GET /v1/model-profiles - lists all profiles.
func (h *ProfileHandler) List(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.store.Profiles().List(r.Context())
	if err != nil {
		h.logger.Error("failed to list profiles", "error", err)
		WriteInternalError(w, "Failed to list model profiles")
		return
	}

	if profiles == nil {
		profiles = []*models.ModelProfile{}
	}
	WriteJSON(w, http.StatusOK, profiles)
}

// Get handles GET /v1/model-profiles/{name} - returns one profile by name.
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	profile, err := h.store.Profiles().GetByName(r.Context(), name)
	if err != nil {
		if errors.Is(err, postgres.ErrNotFound) {
			WriteNotFound(w, "Model profile not found")
			return
		}
		h.logger.Error("failed to get profile", "error", err, "name", name)
		WriteInternalError(w, "Failed to get model profile")
		return
	}

	WriteJSON(w, http.StatusOK, profile)
}

// Update handles PATCH /v1/model-profiles/{name} - updates a profile.
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	profile, err := h.store.Profiles().GetByName(r.Context(), name)
	if err != nil {
		if errors.Is(err, postgres.ErrNotFound) {
			WriteNotFound(w, "Model profile not found")
			return
		}
		h.logger.Error("failed to get profile", "error", err, "name", name)
		WriteInternalError(w, "Failed to get model profile")
		return
	}

	var patch struct {
		SuggestedMinVRAMGB *float64 `json:"suggested_min_vram_gb"`
		SuggestedBatchSize *int     `json:"suggested_batch_size"`
		Category           *string  `json:"category"`
	}
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		WriteBadRequest(w, "Invalid request body")
		return
	}

	if patch.SuggestedMinVRAMGB != nil {
		if *patch.SuggestedMinVRAMGB <= 0 {
			WriteBadRequest(w, "suggested_min_vram_gb must be positive")
			return
		}
		profile.SuggestedMinVRAMGB = *patch.SuggestedMinVRAMGB
	}
	if patch.SuggestedBatchSize != nil {
		profile.SuggestedBatchSize = *patch.SuggestedBatchSize
	}
	if patch.Category != nil {
		profile.Category = *patch.Category
	}

	if err := h.store.Profiles().Update(r.Context(), profile); err != nil {
		h.logger.Error("failed to update profile", "error", err, "name", name)
		WriteInternalError(w, "Failed to update model profile")
		return
	}

	WriteJSON(w, http.StatusOK, profile)
}

// Delete handles DELETE /v1/model-profiles/{name} - removes a profile.
func (h *ProfileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	profile, err := h.store.Profiles().GetByName(r.Context(), name)
	if err != nil {
		if errors.Is(err, postgres.ErrNotFound) {
			WriteNotFound(w, "Model profile not found")
			return
		}
		h.logger.Error("failed to get profile", "error", err, "name", name)
		WriteInternalError(w, "Failed to get model profile")
		return
	}

	if err := h.store.Profiles().Delete(r.Context(), profile.ID); err != nil {
		h.logger.Error("failed to delete profile", "error", err, "name", name)
		WriteInternalError(w, "Failed to delete model profile")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
