package models

import "time"

// ModelProfile captures the suggested resource envelope for a named workload.
// Placement requests that name a model without an explicit VRAM requirement
// inherit SuggestedMinVRAMGB.
type ModelProfile struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	SuggestedMinVRAMGB float64   `json:"suggested_min_vram_gb"`
	SuggestedBatchSize int       `json:"suggested_batch_size,omitempty"`
	Category           string    `json:"category,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}
