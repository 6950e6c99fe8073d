package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/mnemolabs/placement-engine/internal/models"
	"github.com/mnemolabs/placement-engine/internal/store"
	"github.com/mnemolabs/placement-engine/internal/store/postgres"
)

// NodeHandler handles node directory HTTP requests.
type NodeHandler struct {
	store  store.Store
	logger *slog.Logger
}

// NewNodeHandler creates a new node handler.
func NewNodeHandler(st store.Store, logger *slog.Logger) *NodeHandler {
	return &NodeHandler{
		store:  st,
		logger: logger,
	}
}

// Register handles POST /v1/nodes/register - creates or updates a node.
func (h *NodeHandler) Register(w http.ResponseWriter, r *http.Request) {
	var node models.Node
	if err := json.NewDecoder(r.Body).Decode(&node); err != nil {
		WriteBadRequest(w, "Invalid request body")
		return
	}

	if node.Name == "" {
		WriteBadRequest(w, "name is required")
		return
	}
	if node.Region == "" {
		WriteBadRequest(w, "region is required")
		return
	}
	switch node.Type {
	case models.NodeTypeDatacenter, models.NodeTypeEdgeCluster, models.NodeTypeMist:
	default:
		WriteBadRequest(w, "node_type must be datacenter, edge_cluster, or mist_node")
		return
	}
	if node.Location != nil && !node.Location.Valid() {
		WriteBadRequest(w, "location out of range")
		return
	}
	if node.ID == "" {
		node.ID = uuid.New().String()
	}

	if err := h.store.Nodes().Register(r.Context(), &node); err != nil {
		h.logger.Error("failed to register node", "error", err, "node_id", node.ID)
		WriteInternalError(w, "Failed to register node")
		return
	}

	h.logger.Info("node registered", "node_id", node.ID, "region", node.Region, "type", node.Type)
	WriteJSON(w, http.StatusCreated, &node)
}

// List handles GET /v1/nodes - lists all registered nodes.
func (h *NodeHandler) List(w http.ResponseWriter, r *http.Request) {
	nodes, err := h.store.Nodes().List(r.Context())
	if err != nil {
		h.logger.Error("failed to list nodes", "error", err)
		WriteInternalError(w, "Failed to list nodes")
		return
	}

	if nodes == nil {
		nodes = []*models.Node{}
	}
	WriteJSON(w, http.StatusOK, nodes)
}

// Get handles GET /v1/nodes/{nodeID} - returns one node.
func (h *NodeHandler) Get(w http.ResponseWriter, r *http.Request) {
	nodeID := chi.URLParam(r, "nodeID")

	node, err := h.store.Nodes().Get(r.Context(), nodeID)
	if err != nil {
		if errors.Is(err, postgres.ErrNotFound) {
			WriteNotFound(w, "Node not found")
			return
		}
		h.logger.Error("failed to get node", "error", err, "node_id", nodeID)
		WriteInternalError(w, "Failed to get node")
		return
	}

	WriteJSON(w, http.StatusOK, node)
}

// TelemetryRequest represents the request body for a telemetry report.
type TelemetryRequest struct {
	VRAMFreeGB         float64 `json:"vram_gb_free"`
	RAMFreeGB          float64 `json:"ram_gb_free"`
	UtilizationPercent float64 `json:"utilization_percent,omitempty"`
	TemperatureC       float64 `json:"temperature_c,omitempty"`
}

// Validate validates the telemetry request.
func (r *TelemetryRequest) Validate() error {
	if r.VRAMFreeGB < 0 || r.RAMFreeGB < 0 {
		return &APIError{Code: ErrCodeInvalidRequest, Message: "free estimates must not be negative"}
	}
	return nil
}

// ReportTelemetry handles POST /v1/nodes/{nodeID}/telemetry - stores a sample
// and refreshes the node's free-capacity estimates in one transaction.
func (h *NodeHandler) ReportTelemetry(w http.ResponseWriter, r *http.Request) {
	nodeID := chi.URLParam(r, "nodeID")

	var req TelemetryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		WriteBadRequest(w, err.Error())
		return
	}

	sample := &models.Telemetry{
		ID:                 uuid.New().String(),
		NodeID:             nodeID,
		VRAMFreeGB:         req.VRAMFreeGB,
		RAMFreeGB:          req.RAMFreeGB,
		UtilizationPercent: req.UtilizationPercent,
		TemperatureC:       req.TemperatureC,
	}

	err := h.store.WithTx(r.Context(), func(tx store.Store) error {
		if err := tx.Telemetry().Insert(r.Context(), sample); err != nil {
			return err
		}
		return tx.Nodes().UpdateEstimates(r.Context(), nodeID, req.VRAMFreeGB, req.RAMFreeGB)
	})
	if err != nil {
		if errors.Is(err, postgres.ErrNotFound) {
			WriteNotFound(w, "Node not found")
			return
		}
		h.logger.Error("failed to ingest telemetry", "error", err, "node_id", nodeID)
		WriteInternalError(w, "Failed to ingest telemetry")
		return
	}

	h.logger.Debug("telemetry ingested", "node_id", nodeID, "vram_gb_free", req.VRAMFreeGB)
	WriteJSON(w, http.StatusCreated, sample)
}

// ListTelemetry handles GET /v1/nodes/{nodeID}/telemetry - returns recent
// samples, newest first.
func (h *NodeHandler) ListTelemetry(w http.ResponseWriter, r *http.Request) {
	nodeID := chi.URLParam(r, "nodeID")

	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			WriteBadRequest(w, "limit must be a positive integer")
			return
		}
		limit = n
	}

	samples, err := h.store.Telemetry().ListByNode(r.Context(), nodeID, limit)
	if err != nil {
		h.logger.Error("failed to list telemetry", "error", err, "node_id", nodeID)
		WriteInternalError(w, "Failed to list telemetry")
		return
	}

	if samples == nil {
		samples = []*models.Telemetry{}
	}
	WriteJSON(w, http.StatusOK, samples)
}
