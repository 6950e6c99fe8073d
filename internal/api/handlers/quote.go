package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/mnemolabs/placement-engine/internal/engine"
	"github.com/mnemolabs/placement-engine/internal/models"
	"github.com/mnemolabs/placement-engine/internal/store"
)

// QuoteHandler serves stateless placement quotes for external callers. It
// runs the same evaluation as the stateful path but never writes to the
// request/decision store.
type QuoteHandler struct {
	store  store.Store
	engine *engine.Engine
	logger *slog.Logger
}

// NewQuoteHandler creates a new quote handler.
func NewQuoteHandler(st store.Store, eng *engine.Engine, logger *slog.Logger) *QuoteHandler {
	return &QuoteHandler{
		store:  st,
		engine: eng,
		logger: logger,
	}
}

// QuoteResponse is the stateless counterpart of PlacementResponse. It uses
// the same decision schema, so quotes and persisted decisions serialize
// identically.
type QuoteResponse struct {
	Decision *models.PlacementDecision `json:"decision"`
	Node     *models.Node              `json:"node,omitempty"`
}

// Create handles POST /v1/public/placement/quote - returns a recommendation
// without creating durable history. A no-candidate outcome is still a valid
// quote: the decision carries a null chosen node and an explanation.
func (h *QuoteHandler) Create(w http.ResponseWriter, r *http.Request) {
	var body CreatePlacementRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		WriteBadRequest(w, "Invalid request body")
		return
	}

	req, apiErr := body.toModel(r.Context(), h.store.Profiles())
	if apiErr != nil {
		status := http.StatusBadRequest
		if apiErr.Code == ErrCodeInternalError {
			status = http.StatusInternalServerError
		}
		WriteError(w, status, apiErr.Code, apiErr.Message)
		return
	}

	decision, err := h.engine.Quote(r.Context(), req)
	if err != nil {
		if errors.Is(err, models.ErrInvalidRequest) {
			WriteBadRequest(w, err.Error())
			return
		}
		h.logger.Error("quote failed", "error", err)
		WriteInternalError(w, "Failed to evaluate quote")
		return
	}

	var node *models.Node
	if decision.ChosenNodeID != nil {
		node, err = h.store.Nodes().Get(r.Context(), *decision.ChosenNodeID)
		if err != nil {
			h.logger.Warn("quoted node not found", "node_id", *decision.ChosenNodeID, "error", err)
		}
	}

	WriteJSON(w, http.StatusOK, &QuoteResponse{
		Decision: decision,
		Node:     node,
	})
}
