package engine

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/mnemolabs/placement-engine/internal/models"
	"github.com/mnemolabs/placement-engine/internal/store"
)

// mockStore implements store.Store over in-memory slices so engine tests
// need no database.
type mockStore struct {
	nodes     []*models.Node
	requests  []*models.PlacementRequest
	decisions []*models.PlacementDecision
	txInvoked bool
	profiles  []*models.ModelProfile
	telemetry []*models.Telemetry
}

func (m *mockStore) Nodes() store.NodeStore           { return &mockNodeStore{m} }
func (m *mockStore) Placements() store.PlacementStore { return &mockPlacementStore{m} }
func (m *mockStore) Profiles() store.ProfileStore     { return &mockProfileStore{m} }
func (m *mockStore) Telemetry() store.TelemetryStore  { return &mockTelemetryStore{m} }
func (m *mockStore) WithTx(ctx context.Context, fn func(store.Store) error) error {
	m.txInvoked = true
	return fn(m)
}
func (m *mockStore) Close() error { return nil }

type mockNodeStore struct{ s *mockStore }

func (m *mockNodeStore) Register(ctx context.Context, node *models.Node) error {
	m.s.nodes = append(m.s.nodes, node)
	return nil
}
func (m *mockNodeStore) Get(ctx context.Context, id string) (*models.Node, error) {
	for _, n := range m.s.nodes {
		if n.ID == id {
			return n, nil
		}
	}
	return nil, nil
}
func (m *mockNodeStore) List(ctx context.Context) ([]*models.Node, error) {
	return m.s.nodes, nil
}
func (m *mockNodeStore) ListActive(ctx context.Context) ([]*models.Node, error) {
	var active []*models.Node
	for _, n := range m.s.nodes {
		if n.Active {
			active = append(active, n)
		}
	}
	return active, nil
}
func (m *mockNodeStore) UpdateEstimates(ctx context.Context, id string, vramFreeGB, ramFreeGB float64) error {
	return nil
}
func (m *mockNodeStore) SetActive(ctx context.Context, id string, active bool) error { return nil }

type mockPlacementStore struct{ s *mockStore }

func (m *mockPlacementStore) CreateRequest(ctx context.Context, req *models.PlacementRequest) error {
	m.s.requests = append(m.s.requests, req)
	return nil
}
func (m *mockPlacementStore) GetRequest(ctx context.Context, id string) (*models.PlacementRequest, error) {
	return nil, nil
}
func (m *mockPlacementStore) ListRequests(ctx context.Context, requesterID string) ([]*models.PlacementRequest, error) {
	return nil, nil
}
func (m *mockPlacementStore) CreateDecision(ctx context.Context, d *models.PlacementDecision) error {
	m.s.decisions = append(m.s.decisions, d)
	return nil
}
func (m *mockPlacementStore) GetDecisionByRequest(ctx context.Context, requestID string) (*models.PlacementDecision, error) {
	return nil, nil
}

type mockProfileStore struct{ s *mockStore }

func (m *mockProfileStore) Create(ctx context.Context, p *models.ModelProfile) error {
	m.s.profiles = append(m.s.profiles, p)
	return nil
}
func (m *mockProfileStore) GetByName(ctx context.Context, name string) (*models.ModelProfile, error) {
	for _, p := range m.s.profiles {
		if p.Name == name {
			return p, nil
		}
	}
	return nil, nil
}
func (m *mockProfileStore) List(ctx context.Context) ([]*models.ModelProfile, error) {
	return m.s.profiles, nil
}
func (m *mockProfileStore) Update(ctx context.Context, p *models.ModelProfile) error { return nil }
func (m *mockProfileStore) Delete(ctx context.Context, id string) error              { return nil }

type mockTelemetryStore struct{ s *mockStore }

func (m *mockTelemetryStore) Insert(ctx context.Context, sample *models.Telemetry) error {
	m.s.telemetry = append(m.s.telemetry, sample)
	return nil
}
func (m *mockTelemetryStore) ListByNode(ctx context.Context, nodeID string, limit int) ([]*models.Telemetry, error) {
	return m.s.telemetry, nil
}

func testNode(id string) *models.Node {
	return &models.Node{
		ID:            id,
		Name:          id,
		Type:          models.NodeTypeDatacenter,
		Region:        "us-east-1",
		GPUModel:      "A100",
		VRAMTotalGB:   80,
		VRAMFreeGB:    24,
		RAMTotalGB:    256,
		RAMFreeGB:     128,
		BandwidthMbps: 1000,
		BaseLatencyMs: 10,
		PricePerGBSec: 0.002,
		UptimeScore:   99,
		Active:        true,
		RegisteredAt:  time.Now().Add(-24 * time.Hour),
	}
}

func newTestEngine(s store.Store, policy Policy) *Engine {
	eng := New(s, policy, nil, nil)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	eng.now = func() time.Time { return fixed }
	seq := 0
	eng.newID = func() string {
		seq++
		return "id-" + string(rune('a'+seq-1))
	}
	return eng
}

func TestEvaluateRegionFilter(t *testing.T) {
	inRegion := testNode("node-a")
	inRegion.VRAMFreeGB = 56
	inRegion.BandwidthMbps = 1935
	inRegion.BaseLatencyMs = 2.5

	outOfRegion := testNode("node-b")
	outOfRegion.Region = "us-west-2"
	outOfRegion.VRAMFreeGB = 80 // better on paper, but in the wrong region

	eng := newTestEngine(&mockStore{}, &HeadroomPolicy{Weights: DefaultHeadroomWeights()})

	req := &models.PlacementRequest{
		ID:              "req-1",
		RequiredVRAMGB:  24,
		PreferredRegion: "us-east-1",
	}

	decision, err := eng.Evaluate(req, []*models.Node{inRegion, outOfRegion})
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	if decision.ChosenNodeID == nil {
		t.Fatalf("expected a chosen node, got none: %s", decision.Reason)
	}
	if *decision.ChosenNodeID != "node-a" {
		t.Errorf("expected node-a (in region), got %s", *decision.ChosenNodeID)
	}

	var headroom float64
	for _, s := range decision.Breakdown {
		if s.Name == "headroom" {
			headroom = s.Value
		}
	}
	if headroom <= 0 {
		t.Errorf("headroom sub-score = %g, want positive", headroom)
	}
}

func TestEvaluateNoCandidateReportsMostRestrictiveCriterion(t *testing.T) {
	nodes := []*models.Node{testNode("node-a"), testNode("node-b"), testNode("node-c")}
	nodes[0].VRAMFreeGB = 8
	nodes[1].VRAMFreeGB = 12
	nodes[2].Active = false

	eng := newTestEngine(&mockStore{}, &HeadroomPolicy{Weights: DefaultHeadroomWeights()})

	req := &models.PlacementRequest{
		ID:             "req-1",
		RequiredVRAMGB: 40,
	}

	decision, err := eng.Evaluate(req, nodes)
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	if decision.ChosenNodeID != nil {
		t.Fatalf("expected no chosen node, got %s", *decision.ChosenNodeID)
	}
	if !strings.Contains(decision.Reason, "VRAM") {
		t.Errorf("expected reason to cite the VRAM criterion, got %q", decision.Reason)
	}
}

func TestEvaluateEmptySnapshot(t *testing.T) {
	eng := newTestEngine(&mockStore{}, &HeadroomPolicy{Weights: DefaultHeadroomWeights()})

	req := &models.PlacementRequest{ID: "req-1", RequiredVRAMGB: 16}
	decision, err := eng.Evaluate(req, nil)
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	if decision.ChosenNodeID != nil {
		t.Fatal("expected no chosen node for an empty snapshot")
	}
	if decision.Reason == "" {
		t.Error("expected a justification for the empty snapshot")
	}
}

func TestEvaluateReliabilityTieBreak(t *testing.T) {
	// Identical capacity, bandwidth, and latency put both nodes at the same
	// fit score; the higher uptime must win.
	nodeC := testNode("node-c")
	nodeC.UptimeScore = 97.5
	nodeD := testNode("node-d")
	nodeD.UptimeScore = 99.9

	eng := newTestEngine(&mockStore{}, &HeadroomPolicy{Weights: DefaultHeadroomWeights()})

	req := &models.PlacementRequest{ID: "req-1", RequiredVRAMGB: 16}
	decision, err := eng.Evaluate(req, []*models.Node{nodeC, nodeD})
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	if decision.ChosenNodeID == nil {
		t.Fatal("expected a chosen node")
	}
	if *decision.ChosenNodeID != "node-d" {
		t.Errorf("expected node-d (higher uptime), got %s", *decision.ChosenNodeID)
	}
}

func TestEvaluatePreferLocalFavorsNearbyNode(t *testing.T) {
	near := testNode("node-e")
	near.Location = &models.GeoPoint{Latitude: 40.75, Longitude: -74.0}
	far := testNode("node-f")
	far.Location = &models.GeoPoint{Latitude: 45.0, Longitude: -75.0}
	far.VRAMFreeGB = 48
	far.PricePerGBSec = 0.001

	eng := newTestEngine(&mockStore{}, &MarketplacePolicy{Weights: DefaultMarketplaceWeights()})

	req := &models.PlacementRequest{
		ID:             "req-1",
		RequiredVRAMGB: 16,
		Location:       &models.GeoPoint{Latitude: 40.71, Longitude: -74.0},
		PreferLocal:    true,
	}

	decision, err := eng.Evaluate(req, []*models.Node{far, near})
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	if decision.ChosenNodeID == nil {
		t.Fatal("expected a chosen node")
	}
	if *decision.ChosenNodeID != "node-e" {
		t.Errorf("expected node-e (nearby) with prefer_local, got %s", *decision.ChosenNodeID)
	}
}

func TestEvaluateRejectsInvalidRequest(t *testing.T) {
	eng := newTestEngine(&mockStore{}, &HeadroomPolicy{Weights: DefaultHeadroomWeights()})

	req := &models.PlacementRequest{ID: "req-1", RequiredVRAMGB: 0}
	if _, err := eng.Evaluate(req, []*models.Node{testNode("node-a")}); err == nil {
		t.Fatal("expected validation error for zero VRAM requirement")
	}
}

func TestQuoteDoesNotPersist(t *testing.T) {
	ms := &mockStore{nodes: []*models.Node{testNode("node-a")}}
	eng := newTestEngine(ms, &HeadroomPolicy{Weights: DefaultHeadroomWeights()})

	req := &models.PlacementRequest{ID: "req-1", RequiredVRAMGB: 16}
	decision, err := eng.Quote(context.Background(), req)
	if err != nil {
		t.Fatalf("Quote returned error: %v", err)
	}
	if decision.ChosenNodeID == nil {
		t.Fatal("expected a chosen node")
	}
	if len(ms.requests) != 0 || len(ms.decisions) != 0 {
		t.Error("quote must not persist requests or decisions")
	}
	if ms.txInvoked {
		t.Error("quote must not open a transaction")
	}
}

func TestQuoteDefaultsPriority(t *testing.T) {
	ms := &mockStore{nodes: []*models.Node{testNode("node-a")}}
	eng := newTestEngine(ms, &HeadroomPolicy{Weights: DefaultHeadroomWeights()})

	req := &models.PlacementRequest{ID: "req-1", RequiredVRAMGB: 16}
	if _, err := eng.Quote(context.Background(), req); err != nil {
		t.Fatalf("Quote returned error: %v", err)
	}
	if req.Priority != models.PriorityNormal {
		t.Errorf("priority = %q, want %q", req.Priority, models.PriorityNormal)
	}
}

func TestQuoteIsRepeatable(t *testing.T) {
	ms := &mockStore{nodes: []*models.Node{testNode("node-a"), testNode("node-b")}}
	ms.nodes[1].VRAMFreeGB = 32
	eng := newTestEngine(ms, &HeadroomPolicy{Weights: DefaultHeadroomWeights()})

	req := &models.PlacementRequest{ID: "req-1", RequiredVRAMGB: 16}

	first, err := eng.Quote(context.Background(), req)
	if err != nil {
		t.Fatalf("first Quote returned error: %v", err)
	}
	second, err := eng.Quote(context.Background(), req)
	if err != nil {
		t.Fatalf("second Quote returned error: %v", err)
	}

	if *first.ChosenNodeID != *second.ChosenNodeID {
		t.Errorf("chosen node changed between quotes: %s vs %s", *first.ChosenNodeID, *second.ChosenNodeID)
	}
	if first.FitScore != second.FitScore {
		t.Errorf("fit score changed between quotes: %g vs %g", first.FitScore, second.FitScore)
	}
	if first.Reason != second.Reason {
		t.Errorf("reason changed between quotes: %q vs %q", first.Reason, second.Reason)
	}
}

func TestPlacePersistsRequestAndDecision(t *testing.T) {
	ms := &mockStore{nodes: []*models.Node{testNode("node-a")}}
	eng := newTestEngine(ms, &HeadroomPolicy{Weights: DefaultHeadroomWeights()})

	req := &models.PlacementRequest{RequesterID: "team-ml", RequiredVRAMGB: 16}
	decision, err := eng.Place(context.Background(), req)
	if err != nil {
		t.Fatalf("Place returned error: %v", err)
	}

	if !ms.txInvoked {
		t.Error("place must persist inside a transaction")
	}
	if len(ms.requests) != 1 {
		t.Fatalf("expected 1 persisted request, got %d", len(ms.requests))
	}
	if len(ms.decisions) != 1 {
		t.Fatalf("expected 1 persisted decision, got %d", len(ms.decisions))
	}
	if req.ID == "" {
		t.Error("place must assign a request ID")
	}
	if decision.ID == "" {
		t.Error("place must assign a decision ID")
	}
	if decision.RequestID != req.ID {
		t.Errorf("decision references request %q, want %q", decision.RequestID, req.ID)
	}
	if req.Priority != models.PriorityNormal {
		t.Errorf("expected default priority %q, got %q", models.PriorityNormal, req.Priority)
	}
}

func TestPlacePersistsNoCandidateDecision(t *testing.T) {
	ms := &mockStore{nodes: []*models.Node{}}
	eng := newTestEngine(ms, &HeadroomPolicy{Weights: DefaultHeadroomWeights()})

	req := &models.PlacementRequest{RequesterID: "team-ml", RequiredVRAMGB: 16}
	decision, err := eng.Place(context.Background(), req)
	if err != nil {
		t.Fatalf("Place returned error: %v", err)
	}
	if decision.ChosenNodeID != nil {
		t.Fatal("expected no chosen node")
	}
	if len(ms.decisions) != 1 {
		t.Fatalf("no-candidate decisions must still be persisted, got %d", len(ms.decisions))
	}
}
