package models

import (
	"errors"
	"testing"
)

func TestPlacementRequestValidate(t *testing.T) {
	valid := func() PlacementRequest {
		return PlacementRequest{
			RequesterID:    "team-ml",
			RequiredVRAMGB: 16,
			Priority:       PriorityNormal,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*PlacementRequest)
		wantErr bool
	}{
		{
			name:   "minimal valid request",
			mutate: func(r *PlacementRequest) {},
		},
		{
			name:   "empty priority defaults later",
			mutate: func(r *PlacementRequest) { r.Priority = "" },
		},
		{
			name:   "high priority",
			mutate: func(r *PlacementRequest) { r.Priority = PriorityHigh },
		},
		{
			name:    "zero vram",
			mutate:  func(r *PlacementRequest) { r.RequiredVRAMGB = 0 },
			wantErr: true,
		},
		{
			name:    "negative vram",
			mutate:  func(r *PlacementRequest) { r.RequiredVRAMGB = -4 },
			wantErr: true,
		},
		{
			name:    "negative ram",
			mutate:  func(r *PlacementRequest) { r.RequiredRAMGB = -1 },
			wantErr: true,
		},
		{
			name:    "latitude out of range",
			mutate:  func(r *PlacementRequest) { r.Location = &GeoPoint{Latitude: 91, Longitude: 0} },
			wantErr: true,
		},
		{
			name:    "longitude out of range",
			mutate:  func(r *PlacementRequest) { r.Location = &GeoPoint{Latitude: 0, Longitude: -181} },
			wantErr: true,
		},
		{
			name:   "boundary coordinates are valid",
			mutate: func(r *PlacementRequest) { r.Location = &GeoPoint{Latitude: -90, Longitude: 180} },
		},
		{
			name:    "negative max distance",
			mutate:  func(r *PlacementRequest) { r.MaxDistanceKm = -10 },
			wantErr: true,
		},
		{
			name:    "negative max price",
			mutate:  func(r *PlacementRequest) { r.MaxPricePerGBSec = -0.001 },
			wantErr: true,
		},
		{
			name:    "unknown priority",
			mutate:  func(r *PlacementRequest) { r.Priority = "urgent" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid()
			tt.mutate(&req)

			err := req.Validate()
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected validation error, got nil")
				}
				if !errors.Is(err, ErrInvalidRequest) {
					t.Errorf("error %v does not wrap ErrInvalidRequest", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected validation error: %v", err)
			}
		})
	}
}
