package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/mnemolabs/placement-engine/internal/engine"
	"github.com/mnemolabs/placement-engine/internal/models"
	"github.com/mnemolabs/placement-engine/internal/store"
	"github.com/mnemolabs/placement-engine/internal/store/postgres"
)

// PlacementHandler handles placement-related HTTP requests.
type PlacementHandler struct {
	store  store.Store
	engine *engine.Engine
	logger *slog.Logger
}

// NewPlacementHandler creates a new placement handler.
func NewPlacementHandler(st store.Store, eng *engine.Engine, logger *slog.Logger) *PlacementHandler {
	return &PlacementHandler{
		store:  st,
		engine: eng,
		logger: logger,
	}
}

// CreatePlacementRequest represents the request body for creating a placement.
type CreatePlacementRequest struct {
	RequesterID      string           `json:"requester_id"`
	ModelName        string           `json:"model_name,omitempty"`
	RequiredVRAMGB   float64          `json:"required_vram_gb,omitempty"`
	RequiredRAMGB    float64          `json:"required_ram_gb,omitempty"`
	PreferredRegion  string           `json:"preferred_region,omitempty"`
	Location         *models.GeoPoint `json:"location,omitempty"`
	MaxDistanceKm    float64          `json:"max_distance_km,omitempty"`
	MaxPricePerGBSec float64          `json:"max_price_per_gb_sec,omitempty"`
	Priority         models.Priority  `json:"priority,omitempty"`
	PreferLocal      bool             `json:"prefer_local,omitempty"`
}

// PlacementResponse bundles a request with its decision and, when a node was
// chosen, the node snapshot the decision referred to.
type PlacementResponse struct {
	Request  *models.PlacementRequest  `json:"request"`
	Decision *models.PlacementDecision `json:"decision"`
	Node     *models.Node              `json:"node,omitempty"`
}

// toModel converts the request body into a PlacementRequest, inferring the
// VRAM requirement from the named model profile when it was not given
// explicitly.
func (r *CreatePlacementRequest) toModel(ctx context.Context, profiles store.ProfileStore) (*models.PlacementRequest, *APIError) {
	requiredVRAM := r.RequiredVRAMGB
	if requiredVRAM <= 0 {
		if r.ModelName == "" {
			return nil, &APIError{
				Code:    ErrCodeInvalidRequest,
				Message: "required_vram_gb or model_name must be specified",
			}
		}
		profile, err := profiles.GetByName(ctx, r.ModelName)
		if err != nil {
			if errors.Is(err, postgres.ErrNotFound) {
				return nil, &APIError{
					Code:    ErrCodeInvalidRequest,
					Message: "model profile " + r.ModelName + " not found and required_vram_gb not specified",
				}
			}
			return nil, &APIError{Code: ErrCodeInternalError, Message: "Failed to look up model profile"}
		}
		requiredVRAM = profile.SuggestedMinVRAMGB
	}

	return &models.PlacementRequest{
		RequesterID:      r.RequesterID,
		ModelName:        r.ModelName,
		RequiredVRAMGB:   requiredVRAM,
		RequiredRAMGB:    r.RequiredRAMGB,
		PreferredRegion:  r.PreferredRegion,
		Location:         r.Location,
		MaxDistanceKm:    r.MaxDistanceKm,
		MaxPricePerGBSec: r.MaxPricePerGBSec,
		Priority:         r.Priority,
		PreferLocal:      r.PreferLocal,
	}, nil
}

// Create handles POST /v1/placement/requests - evaluates and persists a
// placement.
func (h *PlacementHandler) Create(w http.ResponseWriter, r *http.Request) {
	var body CreatePlacementRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		WriteBadRequest(w, "Invalid request body")
		return
	}

	if body.RequesterID == "" {
		WriteBadRequest(w, "requester_id is required")
		return
	}

	req, apiErr := body.toModel(r.Context(), h.store.Profiles())
	if apiErr != nil {
		h.writeAPIError(w, apiErr)
		return
	}

	decision, err := h.engine.Place(r.Context(), req)
	if err != nil {
		if errors.Is(err, models.ErrInvalidRequest) {
			WriteBadRequest(w, err.Error())
			return
		}
		h.logger.Error("placement failed", "error", err, "requester_id", req.RequesterID)
		WriteInternalError(w, "Failed to evaluate placement")
		return
	}

	WriteJSON(w, http.StatusCreated, &PlacementResponse{
		Request:  req,
		Decision: decision,
		Node:     h.chosenNode(r.Context(), decision),
	})
}

// List handles GET /v1/placement/requests - lists requests for a requester.
func (h *PlacementHandler) List(w http.ResponseWriter, r *http.Request) {
	requesterID := r.URL.Query().Get("requester_id")
	if requesterID == "" {
		WriteBadRequest(w, "requester_id query parameter is required")
		return
	}

	requests, err := h.store.Placements().ListRequests(r.Context(), requesterID)
	if err != nil {
		h.logger.Error("failed to list placement requests", "error", err)
		WriteInternalError(w, "Failed to list placement requests")
		return
	}

	if requests == nil {
		requests = []*models.PlacementRequest{}
	}
	WriteJSON(w, http.StatusOK, requests)
}

// Get handles GET /v1/placement/requests/{requestID} - returns one request
// with its decision.
func (h *PlacementHandler) Get(w http.ResponseWriter, r *http.Request) {
	requestID := chi.URLParam(r, "requestID")

	req, err := h.store.Placements().GetRequest(r.Context(), requestID)
	if err != nil {
		if errors.Is(err, postgres.ErrNotFound) {
			WriteNotFound(w, "Placement request not found")
			return
		}
		h.logger.Error("failed to get placement request", "error", err, "request_id", requestID)
		WriteInternalError(w, "Failed to get placement request")
		return
	}

	decision, err := h.store.Placements().GetDecisionByRequest(r.Context(), requestID)
	if err != nil {
		if errors.Is(err, postgres.ErrNotFound) {
			WriteNotFound(w, "Placement decision not found")
			return
		}
		h.logger.Error("failed to get placement decision", "error", err, "request_id", requestID)
		WriteInternalError(w, "Failed to get placement decision")
		return
	}

	WriteJSON(w, http.StatusOK, &PlacementResponse{
		Request:  req,
		Decision: decision,
		Node:     h.chosenNode(r.Context(), decision),
	})
}

// chosenNode fetches the decision's node snapshot, best effort: responses
// stay useful even if the node was deregistered since the decision.
func (h *PlacementHandler) chosenNode(ctx context.Context, decision *models.PlacementDecision) *models.Node {
	if decision.ChosenNodeID == nil {
		return nil
	}
	node, err := h.store.Nodes().Get(ctx, *decision.ChosenNodeID)
	if err != nil {
		h.logger.Warn("chosen node not found", "node_id", *decision.ChosenNodeID, "error", err)
		return nil
	}
	return node
}

func (h *PlacementHandler) writeAPIError(w http.ResponseWriter, apiErr *APIError) {
	status := http.StatusBadRequest
	if apiErr.Code == ErrCodeInternalError {
		status = http.StatusInternalServerError
	}
	WriteError(w, status, apiErr.Code, apiErr.Message)
}
