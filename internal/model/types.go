package model

import "time"

// Work order lifecycle. Routing owns only the OPEN -> ASSIGNED transition;
// everything after that belongs to the field workflow.
const (
    WorkOrderOpen       = "OPEN"
    WorkOrderAssigned   = "ASSIGNED"
    WorkOrderInProgress = "IN_PROGRESS"
    WorkOrderCompleted  = "COMPLETED"
    WorkOrderCancelled  = "CANCELLED"
)

// ActiveWorkOrderStatuses are the states that count toward a vendor's open
// workload.
var ActiveWorkOrderStatuses = []string{WorkOrderOpen, WorkOrderAssigned, WorkOrderInProgress}

const (
    VendorAvailable   = "AVAILABLE"
    VendorUnavailable = "UNAVAILABLE"
)

type GeoPoint struct {
    Lat float64 `json:"lat"`
    Lng float64 `json:"lng"`
}

type VendorIn struct {
    Name           string    `json:"name"`
    Specialty      string    `json:"specialty"`
    Availability   string    `json:"availability,omitempty"`
    ServiceAreas   []string  `json:"serviceAreas,omitempty"`
    StandardRate   *float64  `json:"standardRate,omitempty"`
    Location       *GeoPoint `json:"location,omitempty"`
    Certifications []string  `json:"certifications,omitempty"`
}

type Vendor struct {
    ID             string    `json:"id"`
    Name           string    `json:"name"`
    Specialty      string    `json:"specialty"`
    Availability   string    `json:"availability"`
    ServiceAreas   []string  `json:"serviceAreas,omitempty"`
    StandardRate   *float64  `json:"standardRate,omitempty"`
    Location       *GeoPoint `json:"location,omitempty"`
    Certifications []string  `json:"certifications,omitempty"`
}

type PropertyIn struct {
    Address  string    `json:"address,omitempty"`
    ZipCode  string    `json:"zipCode"`
    Location *GeoPoint `json:"location,omitempty"`
}

type Property struct {
    ID       string    `json:"id"`
    Address  string    `json:"address,omitempty"`
    ZipCode  string    `json:"zipCode"`
    Location *GeoPoint `json:"location,omitempty"`
}

type CategoryIn struct {
    Name                  string `json:"name"`
    RequiredCertification string `json:"requiredCertification,omitempty"`
}

type Category struct {
    ID                    string `json:"id"`
    Name                  string `json:"name"`
    RequiredCertification string `json:"requiredCertification,omitempty"`
}

type MaintenanceRequestIn struct {
    CategoryID  string `json:"categoryId"`
    PropertyID  string `json:"propertyId"`
    Description string `json:"description,omitempty"`
}

type MaintenanceRequest struct {
    ID          string `json:"id"`
    CategoryID  string `json:"categoryId"`
    PropertyID  string `json:"propertyId"`
    Description string `json:"description,omitempty"`
}

type WorkOrder struct {
    ID        string    `json:"id"`
    Status    string    `json:"status"`
    RequestID string    `json:"requestId"`
    CreatedAt time.Time `json:"createdAt"`
}

// WorkOrderDetail is a work order with its maintenance request, property and
// category resolved. Property or Category may be nil when upstream data is
// incomplete; routing treats that as an invalid state.
type WorkOrderDetail struct {
    WorkOrder WorkOrder          `json:"workOrder"`
    Request   MaintenanceRequest `json:"request"`
    Property  *Property          `json:"property,omitempty"`
    Category  *Category          `json:"category,omitempty"`
}

type RatingIn struct {
    VendorID    string  `json:"vendorId"`
    WorkOrderID string  `json:"workOrderId,omitempty"`
    Score       float64 `json:"score"`
}

type Rating struct {
    ID          string    `json:"id"`
    VendorID    string    `json:"vendorId"`
    WorkOrderID string    `json:"workOrderId,omitempty"`
    Score       float64   `json:"score"`
    CreatedAt   time.Time `json:"createdAt"`
}

type Assignment struct {
    ID          string    `json:"id"`
    WorkOrderID string    `json:"workOrderId"`
    VendorID    string    `json:"vendorId"`
    AssignedAt  time.Time `json:"assignedAt"`
}

// RoutingResult is the outcome of routing a work order: either an assignment
// or an escalation that needs human handling.
type RoutingResult struct {
    Status      string `json:"status"`
    WorkOrderID string `json:"workOrderId"`
    VendorID    string `json:"vendorId,omitempty"`
    Reason      string `json:"reason,omitempty"`
}
