package models

import "time"

// Telemetry is one sample reported by a node's monitoring agent. Ingestion
// stores the sample and refreshes the node's free-capacity estimates; the
// placement engine only ever sees the resulting node snapshot.
type Telemetry struct {
	ID                 string    `json:"id"`
	NodeID             string    `json:"node_id"`
	VRAMFreeGB         float64   `json:"vram_gb_free"`
	RAMFreeGB          float64   `json:"ram_gb_free"`
	UtilizationPercent float64   `json:"utilization_percent,omitempty"`
	TemperatureC       float64   `json:"temperature_c,omitempty"`
	CollectedAt        time.Time `json:"collected_at"`
}
