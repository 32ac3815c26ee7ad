package store

import (
    "context"
    "errors"
    "testing"

    "workroute/internal/model"
)

func seedWorkOrder(t *testing.T, m *Memory, categoryName, zip string) model.WorkOrder {
    t.Helper()
    ctx := context.Background()
    cat, err := m.CreateCategory(ctx, model.CategoryIn{Name: categoryName})
    if err != nil {
        t.Fatal(err)
    }
    prop, err := m.CreateProperty(ctx, model.PropertyIn{ZipCode: zip})
    if err != nil {
        t.Fatal(err)
    }
    req, err := m.CreateMaintenanceRequest(ctx, model.MaintenanceRequestIn{CategoryID: cat.ID, PropertyID: prop.ID})
    if err != nil {
        t.Fatal(err)
    }
    wo, err := m.CreateWorkOrder(ctx, req.ID)
    if err != nil {
        t.Fatal(err)
    }
    return wo
}

func TestFindCandidatesFilters(t *testing.T) {
    m := NewMemory()
    ctx := context.Background()
    mk := func(name, specialty, availability string, areas ...string) model.Vendor {
        v, err := m.CreateVendor(ctx, model.VendorIn{Name: name, Specialty: specialty, Availability: availability, ServiceAreas: areas})
        if err != nil {
            t.Fatal(err)
        }
        return v
    }
    match1 := mk("a", "Plumbing", "", "94103", "94110")
    mk("wrong specialty", "Electrical", "", "94103")
    mk("unavailable", "Plumbing", model.VendorUnavailable, "94103")
    mk("wrong area", "Plumbing", "", "10001")
    match2 := mk("b", "Plumbing", "", "94103")

    got, err := m.FindCandidates(ctx, "Plumbing", "94103")
    if err != nil {
        t.Fatal(err)
    }
    if len(got) != 2 {
        t.Fatalf("got %d candidates, want 2", len(got))
    }
    // insertion order preserved
    if got[0].ID != match1.ID || got[1].ID != match2.ID {
        t.Fatalf("candidate order: got %s,%s", got[0].Name, got[1].Name)
    }
}

func TestFindCandidatesEmptyIsNotError(t *testing.T) {
    m := NewMemory()
    got, err := m.FindCandidates(context.Background(), "Roofing", "94103")
    if err != nil {
        t.Fatalf("empty pool must not error: %v", err)
    }
    if len(got) != 0 {
        t.Fatalf("got %d candidates, want 0", len(got))
    }
}

func TestRecentRatingsNewestFirstAndLimited(t *testing.T) {
    m := NewMemory()
    ctx := context.Background()
    v, err := m.CreateVendor(ctx, model.VendorIn{Name: "v", Specialty: "Plumbing"})
    if err != nil {
        t.Fatal(err)
    }
    for i := 1; i <= 12; i++ {
        if _, err := m.AddRating(ctx, model.RatingIn{VendorID: v.ID, Score: float64(i % 6)}); err != nil {
            t.Fatal(err)
        }
    }
    got, err := m.RecentRatings(ctx, v.ID, 10)
    if err != nil {
        t.Fatal(err)
    }
    if len(got) != 10 {
        t.Fatalf("got %d ratings, want 10", len(got))
    }
    // 12 % 6 = 0 was added last and must come first
    if got[0].Score != 0 {
        t.Fatalf("first rating score = %v, want the newest (0)", got[0].Score)
    }
}

func TestAddRatingUnknownVendor(t *testing.T) {
    m := NewMemory()
    if _, err := m.AddRating(context.Background(), model.RatingIn{VendorID: "nope", Score: 3}); !errors.Is(err, ErrNotFound) {
        t.Fatalf("got %v, want ErrNotFound", err)
    }
}

func TestAssignWorkOrderConflict(t *testing.T) {
    m := NewMemory()
    ctx := context.Background()
    wo := seedWorkOrder(t, m, "Plumbing", "94103")
    v, err := m.CreateVendor(ctx, model.VendorIn{Name: "v", Specialty: "Plumbing"})
    if err != nil {
        t.Fatal(err)
    }

    a, err := m.AssignWorkOrder(ctx, wo.ID, v.ID)
    if err != nil {
        t.Fatalf("first assign: %v", err)
    }
    if a.WorkOrderID != wo.ID || a.VendorID != v.ID {
        t.Fatalf("assignment = %+v", a)
    }
    got, err := m.GetWorkOrder(ctx, wo.ID)
    if err != nil {
        t.Fatal(err)
    }
    if got.Status != model.WorkOrderAssigned {
        t.Fatalf("status = %s, want ASSIGNED", got.Status)
    }

    if _, err := m.AssignWorkOrder(ctx, wo.ID, v.ID); !errors.Is(err, ErrConflict) {
        t.Fatalf("second assign: got %v, want ErrConflict", err)
    }
    as, err := m.ListAssignments(ctx, wo.ID)
    if err != nil {
        t.Fatal(err)
    }
    if len(as) != 1 {
        t.Fatalf("got %d assignments, want exactly 1", len(as))
    }
}

func TestAssignWorkOrderNotFound(t *testing.T) {
    m := NewMemory()
    if _, err := m.AssignWorkOrder(context.Background(), "missing", "v"); !errors.Is(err, ErrNotFound) {
        t.Fatalf("got %v, want ErrNotFound", err)
    }
}

func TestOpenAssignmentCountOnlyActive(t *testing.T) {
    m := NewMemory()
    ctx := context.Background()
    v, err := m.CreateVendor(ctx, model.VendorIn{Name: "v", Specialty: "Plumbing"})
    if err != nil {
        t.Fatal(err)
    }
    wo1 := seedWorkOrder(t, m, "Plumbing", "94103")
    wo2 := seedWorkOrder(t, m, "Plumbing", "94103")
    if _, err := m.AssignWorkOrder(ctx, wo1.ID, v.ID); err != nil {
        t.Fatal(err)
    }
    if _, err := m.AssignWorkOrder(ctx, wo2.ID, v.ID); err != nil {
        t.Fatal(err)
    }
    n, err := m.OpenAssignmentCount(ctx, v.ID)
    if err != nil {
        t.Fatal(err)
    }
    if n != 2 {
        t.Fatalf("open count = %d, want 2", n)
    }

    // a completed parent drops the assignment out of the count
    m.mu.Lock()
    wo := m.workOrders[wo2.ID]
    wo.Status = model.WorkOrderCompleted
    m.workOrders[wo2.ID] = wo
    m.mu.Unlock()

    n, err = m.OpenAssignmentCount(ctx, v.ID)
    if err != nil {
        t.Fatal(err)
    }
    if n != 1 {
        t.Fatalf("open count after completion = %d, want 1", n)
    }
}

func TestGetWorkOrderDetail(t *testing.T) {
    m := NewMemory()
    wo := seedWorkOrder(t, m, "HVAC", "60601")
    d, err := m.GetWorkOrderDetail(context.Background(), wo.ID)
    if err != nil {
        t.Fatal(err)
    }
    if d.Property == nil || d.Property.ZipCode != "60601" {
        t.Fatalf("property = %+v", d.Property)
    }
    if d.Category == nil || d.Category.Name != "HVAC" {
        t.Fatalf("category = %+v", d.Category)
    }
    if _, err := m.GetWorkOrderDetail(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
        t.Fatalf("got %v, want ErrNotFound", err)
    }
}

func TestCreateWorkOrderRequiresRequest(t *testing.T) {
    m := NewMemory()
    if _, err := m.CreateWorkOrder(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
        t.Fatalf("got %v, want ErrNotFound", err)
    }
}

func TestListWorkOrdersByStatus(t *testing.T) {
    m := NewMemory()
    ctx := context.Background()
    wo1 := seedWorkOrder(t, m, "Plumbing", "94103")
    seedWorkOrder(t, m, "Plumbing", "94103")
    v, err := m.CreateVendor(ctx, model.VendorIn{Name: "v", Specialty: "Plumbing"})
    if err != nil {
        t.Fatal(err)
    }
    if _, err := m.AssignWorkOrder(ctx, wo1.ID, v.ID); err != nil {
        t.Fatal(err)
    }

    open, _, err := m.ListWorkOrders(ctx, model.WorkOrderOpen, "", 10)
    if err != nil {
        t.Fatal(err)
    }
    if len(open) != 1 {
        t.Fatalf("open = %d, want 1", len(open))
    }
    assigned, _, err := m.ListWorkOrders(ctx, model.WorkOrderAssigned, "", 10)
    if err != nil {
        t.Fatal(err)
    }
    if len(assigned) != 1 || assigned[0].ID != wo1.ID {
        t.Fatalf("assigned = %+v", assigned)
    }
}
