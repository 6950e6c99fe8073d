package models

import "time"

// NodeType categorizes resource providers by how they are operated.
type NodeType string

const (
	// NodeTypeDatacenter is a fixed-installation provider with dedicated hardware.
	NodeTypeDatacenter NodeType = "datacenter"
	// NodeTypeEdgeCluster is a smaller cluster deployed close to consumers.
	NodeTypeEdgeCluster NodeType = "edge_cluster"
	// NodeTypeMist is a transient volunteer machine contributing spare capacity.
	NodeTypeMist NodeType = "mist_node"
)

// GeoPoint is a latitude/longitude pair in decimal degrees.
type GeoPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Valid reports whether the point lies within the WGS84 coordinate range.
func (p *GeoPoint) Valid() bool {
	if p == nil {
		return false
	}
	return p.Latitude >= -90 && p.Latitude <= 90 &&
		p.Longitude >= -180 && p.Longitude <= 180
}

// Node is a snapshot of one resource provider as reported by the node
// directory. The engine treats it as read-only input; free-capacity estimates
// are refreshed by telemetry ingestion, never by the engine itself.
type Node struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Type          NodeType  `json:"node_type"`
	Region        string    `json:"region"`
	Location      *GeoPoint `json:"location,omitempty"`
	GPUModel      string    `json:"gpu_model,omitempty"`
	VRAMTotalGB   float64   `json:"vram_gb_total"`
	VRAMFreeGB    float64   `json:"vram_gb_free_estimate"`
	RAMTotalGB    float64   `json:"ram_gb_total"`
	RAMFreeGB     float64   `json:"ram_gb_free_estimate"`
	BandwidthMbps float64   `json:"bandwidth_mbps"`
	BaseLatencyMs float64   `json:"base_latency_ms"`
	PricePerGBSec float64   `json:"price_per_gb_sec"`
	UptimeScore   float64   `json:"uptime_score"`
	Tags          []string  `json:"tags,omitempty"`
	Active        bool      `json:"is_active"`
	LastTelemetry time.Time `json:"last_telemetry"`
	RegisteredAt  time.Time `json:"registered_at"`
}
