package routing

import (
    "context"
    "errors"
    "sync"
    "testing"

    "workroute/internal/model"
    "workroute/internal/store"
)

// fakeRepo is an in-process Repository with canned data and call recording.
type fakeRepo struct {
    mu        sync.Mutex
    detail    model.WorkOrderDetail
    detailErr error
    vendors   []model.Vendor
    ratings   map[string][]model.Rating
    open      map[string]int
    assignErr error
    assigned  []string // vendor ids passed to AssignWorkOrder
}

func (f *fakeRepo) GetWorkOrderDetail(ctx context.Context, id string) (model.WorkOrderDetail, error) {
    if f.detailErr != nil {
        return model.WorkOrderDetail{}, f.detailErr
    }
    return f.detail, nil
}

func (f *fakeRepo) FindCandidates(ctx context.Context, categoryName, zipCode string) ([]model.Vendor, error) {
    return f.vendors, nil
}

func (f *fakeRepo) RecentRatings(ctx context.Context, vendorID string, limit int) ([]model.Rating, error) {
    if err := ctx.Err(); err != nil {
        return nil, err
    }
    return f.ratings[vendorID], nil
}

func (f *fakeRepo) OpenAssignmentCount(ctx context.Context, vendorID string) (int, error) {
    if err := ctx.Err(); err != nil {
        return 0, err
    }
    return f.open[vendorID], nil
}

func (f *fakeRepo) AssignWorkOrder(ctx context.Context, workOrderID, vendorID string) (model.Assignment, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    if f.assignErr != nil {
        return model.Assignment{}, f.assignErr
    }
    f.assigned = append(f.assigned, vendorID)
    return model.Assignment{WorkOrderID: workOrderID, VendorID: vendorID}, nil
}

func routableDetail() model.WorkOrderDetail {
    return model.WorkOrderDetail{
        WorkOrder: model.WorkOrder{ID: "wo-1", Status: model.WorkOrderOpen},
        Property:  &model.Property{ZipCode: "94103", Location: &model.GeoPoint{Lat: 0, Lng: 0}},
        Category:  &model.Category{ID: "cat-1", Name: "Plumbing"},
    }
}

func TestFindBestVendorPicksHighestScore(t *testing.T) {
    repo := &fakeRepo{
        detail: routableDetail(),
        vendors: []model.Vendor{
            {ID: "low", Specialty: "Plumbing"},
            {ID: "high", Specialty: "Plumbing"},
        },
        ratings: map[string][]model.Rating{
            "low":  {{Score: 2}},
            "high": {{Score: 5}},
        },
        open: map[string]int{},
    }
    e := NewEngine(repo, DefaultConfig(), nil)
    v, err := e.FindBestVendor(context.Background(), "wo-1")
    if err != nil {
        t.Fatalf("FindBestVendor: %v", err)
    }
    if v == nil || v.ID != "high" {
        t.Fatalf("got %+v, want vendor high", v)
    }
}

func TestFindBestVendorTieKeepsFirstSeen(t *testing.T) {
    repo := &fakeRepo{
        detail: routableDetail(),
        vendors: []model.Vendor{
            {ID: "first", Specialty: "Plumbing"},
            {ID: "second", Specialty: "Plumbing"},
        },
        ratings: map[string][]model.Rating{},
        open:    map[string]int{},
    }
    e := NewEngine(repo, DefaultConfig(), nil)
    v, err := e.FindBestVendor(context.Background(), "wo-1")
    if err != nil {
        t.Fatalf("FindBestVendor: %v", err)
    }
    if v == nil || v.ID != "first" {
        t.Fatalf("tie should keep candidate order, got %+v", v)
    }
}

func TestFindBestVendorNoCandidates(t *testing.T) {
    repo := &fakeRepo{detail: routableDetail()}
    e := NewEngine(repo, DefaultConfig(), nil)
    v, err := e.FindBestVendor(context.Background(), "wo-1")
    if err != nil {
        t.Fatalf("FindBestVendor: %v", err)
    }
    if v != nil {
        t.Fatalf("expected nil vendor, got %+v", v)
    }
}

func TestRouteWorkOrderAssignsBest(t *testing.T) {
    repo := &fakeRepo{
        detail: routableDetail(),
        vendors: []model.Vendor{
            {ID: "busy", Specialty: "Plumbing"},
            {ID: "idle", Specialty: "Plumbing"},
        },
        ratings: map[string][]model.Rating{},
        open:    map[string]int{"busy": 5},
    }
    e := NewEngine(repo, DefaultConfig(), nil)
    res, err := e.RouteWorkOrder(context.Background(), "wo-1")
    if err != nil {
        t.Fatalf("RouteWorkOrder: %v", err)
    }
    if res.Status != StatusAssigned || res.VendorID != "idle" {
        t.Fatalf("got %+v, want assigned to idle", res)
    }
    if len(repo.assigned) != 1 || repo.assigned[0] != "idle" {
        t.Fatalf("assignment write: got %v", repo.assigned)
    }
}

func TestRouteWorkOrderEscalates(t *testing.T) {
    repo := &fakeRepo{detail: routableDetail()}
    e := NewEngine(repo, DefaultConfig(), nil)
    res, err := e.RouteWorkOrder(context.Background(), "wo-1")
    if err != nil {
        t.Fatalf("escalation must not be an error: %v", err)
    }
    if res.Status != StatusEscalated || res.Reason != EscalationNoVendors {
        t.Fatalf("got %+v, want escalated", res)
    }
    if res.VendorID != "" {
        t.Fatalf("escalated result must not name a vendor: %+v", res)
    }
    if len(repo.assigned) != 0 {
        t.Fatal("escalation must not write an assignment")
    }
}

func TestRouteWorkOrderNotFound(t *testing.T) {
    repo := &fakeRepo{detailErr: store.ErrNotFound}
    e := NewEngine(repo, DefaultConfig(), nil)
    if _, err := e.RouteWorkOrder(context.Background(), "missing"); !errors.Is(err, store.ErrNotFound) {
        t.Fatalf("got %v, want ErrNotFound", err)
    }
}

func TestRouteWorkOrderInvalidState(t *testing.T) {
    detail := routableDetail()
    detail.Property = nil
    repo := &fakeRepo{detail: detail}
    e := NewEngine(repo, DefaultConfig(), nil)
    if _, err := e.RouteWorkOrder(context.Background(), "wo-1"); !errors.Is(err, ErrInvalidState) {
        t.Fatalf("got %v, want ErrInvalidState", err)
    }
}

func TestRouteWorkOrderAssignConflict(t *testing.T) {
    repo := &fakeRepo{
        detail:    routableDetail(),
        vendors:   []model.Vendor{{ID: "v1", Specialty: "Plumbing"}},
        ratings:   map[string][]model.Rating{},
        open:      map[string]int{},
        assignErr: store.ErrConflict,
    }
    e := NewEngine(repo, DefaultConfig(), nil)
    if _, err := e.RouteWorkOrder(context.Background(), "wo-1"); !errors.Is(err, store.ErrConflict) {
        t.Fatalf("got %v, want ErrConflict", err)
    }
}

func TestRankReturnsDescendingTotals(t *testing.T) {
    repo := &fakeRepo{
        detail: routableDetail(),
        vendors: []model.Vendor{
            {ID: "a", Specialty: "Plumbing"},
            {ID: "b", Specialty: "Plumbing"},
            {ID: "c", Specialty: "Plumbing"},
        },
        ratings: map[string][]model.Rating{
            "a": {{Score: 1}},
            "b": {{Score: 5}},
            "c": {{Score: 3}},
        },
        open: map[string]int{},
    }
    e := NewEngine(repo, DefaultConfig(), nil, WithMaxConcurrent(2))
    ranked, err := e.Rank(context.Background(), "wo-1")
    if err != nil {
        t.Fatalf("Rank: %v", err)
    }
    if len(ranked) != 3 {
        t.Fatalf("got %d results, want 3", len(ranked))
    }
    for i := 1; i < len(ranked); i++ {
        if ranked[i-1].Score.Total < ranked[i].Score.Total {
            t.Fatalf("ranking not descending at %d", i)
        }
    }
    if ranked[0].Candidate.Vendor.ID != "b" {
        t.Fatalf("top = %s, want b", ranked[0].Candidate.Vendor.ID)
    }
}

func TestFindBestVendorProximityDecidesAndRepeats(t *testing.T) {
    rate := 20.0
    atProperty := model.Vendor{
        ID: "near", Specialty: "Plumbing", StandardRate: &rate,
        Location: &model.GeoPoint{Lat: 0, Lng: 0},
    }
    // 0.45 degrees of latitude is roughly 50 km out, the edge of the
    // proximity range; everything else matches the near vendor exactly.
    atRange := atProperty
    atRange.ID = "far"
    atRange.Location = &model.GeoPoint{Lat: 0.45, Lng: 0}

    repo := &fakeRepo{
        detail:  routableDetail(),
        vendors: []model.Vendor{atRange, atProperty},
        ratings: map[string][]model.Rating{
            "near": {{Score: 4}},
            "far":  {{Score: 4}},
        },
        open: map[string]int{},
    }
    e := NewEngine(repo, DefaultConfig(), nil)
    for i := 0; i < 3; i++ {
        v, err := e.FindBestVendor(context.Background(), "wo-1")
        if err != nil {
            t.Fatalf("call %d: %v", i, err)
        }
        if v == nil || v.ID != "near" {
            t.Fatalf("call %d: got %+v, want the nearer vendor", i, v)
        }
    }
}

func TestRankCancelledContext(t *testing.T) {
    repo := &fakeRepo{
        detail:  routableDetail(),
        vendors: []model.Vendor{{ID: "v1", Specialty: "Plumbing"}},
        ratings: map[string][]model.Rating{},
        open:    map[string]int{},
    }
    e := NewEngine(repo, DefaultConfig(), nil)
    ctx, cancel := context.WithCancel(context.Background())
    cancel()
    if _, err := e.Rank(ctx, "wo-1"); !errors.Is(err, context.Canceled) {
        t.Fatalf("got %v, want context.Canceled", err)
    }
}
