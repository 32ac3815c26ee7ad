package store

import (
    "context"
    "errors"

    "workroute/internal/model"
)

// Store is the persistence interface used by the API server and the routing
// engine.
type Store interface {
    // Vendors
    CreateVendor(ctx context.Context, in model.VendorIn) (model.Vendor, error)
    GetVendor(ctx context.Context, id string) (model.Vendor, error)
    ListVendors(ctx context.Context, cursor string, limit int) ([]model.Vendor, string, error)
    // FindCandidates returns vendors that are AVAILABLE, whose specialty
    // equals the category name (exact, case-sensitive) and whose service
    // area contains the zip code. An empty result is a valid outcome, not
    // an error.
    FindCandidates(ctx context.Context, categoryName, zipCode string) ([]model.Vendor, error)

    // Properties & categories
    CreateProperty(ctx context.Context, in model.PropertyIn) (model.Property, error)
    CreateCategory(ctx context.Context, in model.CategoryIn) (model.Category, error)

    // Maintenance requests & work orders
    CreateMaintenanceRequest(ctx context.Context, in model.MaintenanceRequestIn) (model.MaintenanceRequest, error)
    CreateWorkOrder(ctx context.Context, requestID string) (model.WorkOrder, error)
    GetWorkOrder(ctx context.Context, id string) (model.WorkOrder, error)
    GetWorkOrderDetail(ctx context.Context, id string) (model.WorkOrderDetail, error)
    ListWorkOrders(ctx context.Context, status, cursor string, limit int) ([]model.WorkOrder, string, error)

    // Performance ratings (append-only)
    AddRating(ctx context.Context, in model.RatingIn) (model.Rating, error)
    // RecentRatings returns up to limit ratings, newest first.
    RecentRatings(ctx context.Context, vendorID string, limit int) ([]model.Rating, error)

    // Assignments
    // OpenAssignmentCount counts assignments whose parent work order is in
    // an active state (OPEN/ASSIGNED/IN_PROGRESS).
    OpenAssignmentCount(ctx context.Context, vendorID string) (int, error)
    // AssignWorkOrder atomically transitions an OPEN work order to ASSIGNED
    // and appends one assignment. Returns ErrConflict when the order is not
    // OPEN, so two concurrent routing attempts cannot both succeed.
    AssignWorkOrder(ctx context.Context, workOrderID, vendorID string) (model.Assignment, error)
    ListAssignments(ctx context.Context, workOrderID string) ([]model.Assignment, error)
}

var (
    ErrNotFound = errors.New("not found")
    ErrConflict = errors.New("conflict")
)
