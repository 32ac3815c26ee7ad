package store

import (
    "context"
    "sync"
    "time"

    "github.com/google/uuid"

    "workroute/internal/model"
)

// Memory is an in-memory Store used for tests and for running without a
// database. Vendors keep insertion order so candidate ranking is
// deterministic.
type Memory struct {
    mu          sync.Mutex
    vendors     map[string]model.Vendor
    vendorOrder []string
    properties  map[string]model.Property
    categories  map[string]model.Category
    requests    map[string]model.MaintenanceRequest
    workOrders  map[string]model.WorkOrder
    woOrder     []string
    ratings     map[string][]model.Rating // vendorID -> newest first
    assignments map[string][]model.Assignment // workOrderID -> appended
}

func NewMemory() *Memory {
    return &Memory{
        vendors:     map[string]model.Vendor{},
        properties:  map[string]model.Property{},
        categories:  map[string]model.Category{},
        requests:    map[string]model.MaintenanceRequest{},
        workOrders:  map[string]model.WorkOrder{},
        ratings:     map[string][]model.Rating{},
        assignments: map[string][]model.Assignment{},
    }
}

func (m *Memory) CreateVendor(ctx context.Context, in model.VendorIn) (model.Vendor, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    v := model.Vendor{
        ID:             uuid.New().String(),
        Name:           in.Name,
        Specialty:      in.Specialty,
        Availability:   in.Availability,
        ServiceAreas:   in.ServiceAreas,
        StandardRate:   in.StandardRate,
        Location:       in.Location,
        Certifications: in.Certifications,
    }
    if v.Availability == "" {
        v.Availability = model.VendorAvailable
    }
    m.vendors[v.ID] = v
    m.vendorOrder = append(m.vendorOrder, v.ID)
    return v, nil
}

func (m *Memory) GetVendor(ctx context.Context, id string) (model.Vendor, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    v, ok := m.vendors[id]
    if !ok {
        return model.Vendor{}, ErrNotFound
    }
    return v, nil
}

func (m *Memory) ListVendors(ctx context.Context, cursor string, limit int) ([]model.Vendor, string, error) {
    if limit <= 0 || limit > 500 {
        limit = 100
    }
    m.mu.Lock()
    defer m.mu.Unlock()
    start := 0
    if cursor != "" {
        for i, id := range m.vendorOrder {
            if id == cursor {
                start = i + 1
                break
            }
        }
    }
    out := []model.Vendor{}
    next := ""
    for _, id := range m.vendorOrder[min(start, len(m.vendorOrder)):] {
        if len(out) == limit {
            break
        }
        out = append(out, m.vendors[id])
    }
    if len(out) == limit && start+limit < len(m.vendorOrder) {
        next = out[len(out)-1].ID
    }
    return out, next, nil
}

func (m *Memory) FindCandidates(ctx context.Context, categoryName, zipCode string) ([]model.Vendor, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    out := []model.Vendor{}
    for _, id := range m.vendorOrder {
        v := m.vendors[id]
        if v.Availability != model.VendorAvailable {
            continue
        }
        if v.Specialty != categoryName {
            continue
        }
        if !contains(v.ServiceAreas, zipCode) {
            continue
        }
        out = append(out, v)
    }
    return out, nil
}

func (m *Memory) CreateProperty(ctx context.Context, in model.PropertyIn) (model.Property, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    p := model.Property{ID: uuid.New().String(), Address: in.Address, ZipCode: in.ZipCode, Location: in.Location}
    m.properties[p.ID] = p
    return p, nil
}

func (m *Memory) CreateCategory(ctx context.Context, in model.CategoryIn) (model.Category, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    c := model.Category{ID: uuid.New().String(), Name: in.Name, RequiredCertification: in.RequiredCertification}
    m.categories[c.ID] = c
    return c, nil
}

func (m *Memory) CreateMaintenanceRequest(ctx context.Context, in model.MaintenanceRequestIn) (model.MaintenanceRequest, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    r := model.MaintenanceRequest{ID: uuid.New().String(), CategoryID: in.CategoryID, PropertyID: in.PropertyID, Description: in.Description}
    m.requests[r.ID] = r
    return r, nil
}

func (m *Memory) CreateWorkOrder(ctx context.Context, requestID string) (model.WorkOrder, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    if _, ok := m.requests[requestID]; !ok {
        return model.WorkOrder{}, ErrNotFound
    }
    wo := model.WorkOrder{ID: uuid.New().String(), Status: model.WorkOrderOpen, RequestID: requestID, CreatedAt: time.Now().UTC()}
    m.workOrders[wo.ID] = wo
    m.woOrder = append(m.woOrder, wo.ID)
    return wo, nil
}

func (m *Memory) GetWorkOrder(ctx context.Context, id string) (model.WorkOrder, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    wo, ok := m.workOrders[id]
    if !ok {
        return model.WorkOrder{}, ErrNotFound
    }
    return wo, nil
}

func (m *Memory) GetWorkOrderDetail(ctx context.Context, id string) (model.WorkOrderDetail, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    wo, ok := m.workOrders[id]
    if !ok {
        return model.WorkOrderDetail{}, ErrNotFound
    }
    d := model.WorkOrderDetail{WorkOrder: wo}
    req, ok := m.requests[wo.RequestID]
    if !ok {
        return d, nil
    }
    d.Request = req
    if p, ok := m.properties[req.PropertyID]; ok {
        d.Property = &p
    }
    if c, ok := m.categories[req.CategoryID]; ok {
        d.Category = &c
    }
    return d, nil
}

func (m *Memory) ListWorkOrders(ctx context.Context, status, cursor string, limit int) ([]model.WorkOrder, string, error) {
    if limit <= 0 || limit > 500 {
        limit = 100
    }
    m.mu.Lock()
    defer m.mu.Unlock()
    start := 0
    if cursor != "" {
        for i, id := range m.woOrder {
            if id == cursor {
                start = i + 1
                break
            }
        }
    }
    out := []model.WorkOrder{}
    next := ""
    for _, id := range m.woOrder[min(start, len(m.woOrder)):] {
        wo := m.workOrders[id]
        if status != "" && wo.Status != status {
            continue
        }
        if len(out) == limit {
            next = out[len(out)-1].ID
            break
        }
        out = append(out, wo)
    }
    return out, next, nil
}

func (m *Memory) AddRating(ctx context.Context, in model.RatingIn) (model.Rating, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    if _, ok := m.vendors[in.VendorID]; !ok {
        return model.Rating{}, ErrNotFound
    }
    r := model.Rating{
        ID:          uuid.New().String(),
        VendorID:    in.VendorID,
        WorkOrderID: in.WorkOrderID,
        Score:       in.Score,
        CreatedAt:   time.Now().UTC(),
    }
    // newest first
    m.ratings[in.VendorID] = append([]model.Rating{r}, m.ratings[in.VendorID]...)
    return r, nil
}

func (m *Memory) RecentRatings(ctx context.Context, vendorID string, limit int) ([]model.Rating, error) {
    if limit <= 0 {
        limit = 10
    }
    m.mu.Lock()
    defer m.mu.Unlock()
    rs := m.ratings[vendorID]
    if len(rs) > limit {
        rs = rs[:limit]
    }
    out := make([]model.Rating, len(rs))
    copy(out, rs)
    return out, nil
}

func (m *Memory) OpenAssignmentCount(ctx context.Context, vendorID string) (int, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    count := 0
    for woID, as := range m.assignments {
        wo, ok := m.workOrders[woID]
        if !ok || !contains(model.ActiveWorkOrderStatuses, wo.Status) {
            continue
        }
        for _, a := range as {
            if a.VendorID == vendorID {
                count++
            }
        }
    }
    return count, nil
}

func (m *Memory) AssignWorkOrder(ctx context.Context, workOrderID, vendorID string) (model.Assignment, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    wo, ok := m.workOrders[workOrderID]
    if !ok {
        return model.Assignment{}, ErrNotFound
    }
    if wo.Status != model.WorkOrderOpen {
        return model.Assignment{}, ErrConflict
    }
    wo.Status = model.WorkOrderAssigned
    m.workOrders[workOrderID] = wo
    a := model.Assignment{
        ID:          uuid.New().String(),
        WorkOrderID: workOrderID,
        VendorID:    vendorID,
        AssignedAt:  time.Now().UTC(),
    }
    m.assignments[workOrderID] = append(m.assignments[workOrderID], a)
    return a, nil
}

func (m *Memory) ListAssignments(ctx context.Context, workOrderID string) ([]model.Assignment, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    as := m.assignments[workOrderID]
    out := make([]model.Assignment, len(as))
    copy(out, as)
    return out, nil
}

func contains(ss []string, s string) bool {
    for _, v := range ss {
        if v == s {
            return true
        }
    }
    return false
}
