package api

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "net/http"
    "strings"
    "time"

    "go.uber.org/zap"

    "workroute/internal/metrics"
    "workroute/internal/model"
    "workroute/internal/routing"
    "workroute/internal/store"
)

// VendorsHandler handles POST/GET /v1/vendors
func (s *Server) VendorsHandler(w http.ResponseWriter, r *http.Request) {
    switch r.Method {
    case http.MethodPost:
        var in model.VendorIn
        if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
            writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
            return
        }
        if err := validateVendorIn(&in); err != nil {
            writeProblem(w, http.StatusBadRequest, "Invalid vendor", err.Error(), r.URL.Path)
            return
        }
        v, err := s.Store.CreateVendor(r.Context(), in)
        if err != nil {
            writeProblem(w, http.StatusInternalServerError, "Create vendor failed", err.Error(), r.URL.Path)
            return
        }
        writeJSON(w, http.StatusCreated, v)
    case http.MethodGet:
        cursor := r.URL.Query().Get("cursor")
        limit := 100
        if v := r.URL.Query().Get("limit"); v != "" {
            fmt.Sscanf(v, "%d", &limit)
        }
        items, next, err := s.Store.ListVendors(r.Context(), cursor, limit)
        if err != nil {
            writeProblem(w, http.StatusInternalServerError, "List vendors failed", err.Error(), r.URL.Path)
            return
        }
        writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
    default:
        w.WriteHeader(http.StatusMethodNotAllowed)
    }
}

// VendorByIDHandler handles GET /v1/vendors/{id} and GET /v1/vendors/{id}/ratings
func (s *Server) VendorByIDHandler(w http.ResponseWriter, r *http.Request) {
    rest := strings.TrimPrefix(r.URL.Path, "/v1/vendors/")
    if rest == r.URL.Path || rest == "" {
        writeProblem(w, http.StatusNotFound, "Not Found", "missing id", r.URL.Path)
        return
    }
    if r.Method != http.MethodGet {
        w.WriteHeader(http.StatusMethodNotAllowed)
        return
    }
    parts := strings.Split(rest, "/")
    id := parts[0]
    if len(parts) > 1 && parts[1] == "ratings" {
        limit := 10
        if v := r.URL.Query().Get("limit"); v != "" {
            fmt.Sscanf(v, "%d", &limit)
        }
        items, err := s.Store.RecentRatings(r.Context(), id, limit)
        if err != nil {
            writeProblem(w, http.StatusInternalServerError, "List ratings failed", err.Error(), r.URL.Path)
            return
        }
        writeJSON(w, http.StatusOK, map[string]any{"items": items})
        return
    }
    v, err := s.Store.GetVendor(r.Context(), id)
    if err != nil {
        if errors.Is(err, store.ErrNotFound) {
            writeProblem(w, http.StatusNotFound, "Vendor not found", "", r.URL.Path)
            return
        }
        writeProblem(w, http.StatusInternalServerError, "Get vendor failed", err.Error(), r.URL.Path)
        return
    }
    writeJSON(w, http.StatusOK, v)
}

// RatingsHandler handles POST /v1/ratings
func (s *Server) RatingsHandler(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodPost {
        w.WriteHeader(http.StatusMethodNotAllowed)
        return
    }
    var in model.RatingIn
    if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
        writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
        return
    }
    if err := validateRatingIn(&in); err != nil {
        writeProblem(w, http.StatusBadRequest, "Invalid rating", err.Error(), r.URL.Path)
        return
    }
    if _, err := s.Store.GetVendor(r.Context(), in.VendorID); err != nil {
        if errors.Is(err, store.ErrNotFound) {
            writeProblem(w, http.StatusNotFound, "Vendor not found", "", r.URL.Path)
            return
        }
        writeProblem(w, http.StatusInternalServerError, "Get vendor failed", err.Error(), r.URL.Path)
        return
    }
    rt, err := s.Store.AddRating(r.Context(), in)
    if err != nil {
        writeProblem(w, http.StatusInternalServerError, "Add rating failed", err.Error(), r.URL.Path)
        return
    }
    writeJSON(w, http.StatusCreated, rt)
}

// PropertiesHandler handles POST /v1/properties
func (s *Server) PropertiesHandler(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodPost {
        w.WriteHeader(http.StatusMethodNotAllowed)
        return
    }
    var in model.PropertyIn
    if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
        writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
        return
    }
    if err := validatePropertyIn(&in); err != nil {
        writeProblem(w, http.StatusBadRequest, "Invalid property", err.Error(), r.URL.Path)
        return
    }
    p, err := s.Store.CreateProperty(r.Context(), in)
    if err != nil {
        writeProblem(w, http.StatusInternalServerError, "Create property failed", err.Error(), r.URL.Path)
        return
    }
    writeJSON(w, http.StatusCreated, p)
}

// CategoriesHandler handles POST /v1/categories
func (s *Server) CategoriesHandler(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodPost {
        w.WriteHeader(http.StatusMethodNotAllowed)
        return
    }
    var in model.CategoryIn
    if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
        writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
        return
    }
    if in.Name == "" {
        writeProblem(w, http.StatusBadRequest, "Invalid category", "name is required", r.URL.Path)
        return
    }
    c, err := s.Store.CreateCategory(r.Context(), in)
    if err != nil {
        writeProblem(w, http.StatusInternalServerError, "Create category failed", err.Error(), r.URL.Path)
        return
    }
    writeJSON(w, http.StatusCreated, c)
}

// MaintenanceRequestsHandler handles POST /v1/maintenance-requests
func (s *Server) MaintenanceRequestsHandler(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodPost {
        w.WriteHeader(http.StatusMethodNotAllowed)
        return
    }
    var in model.MaintenanceRequestIn
    if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
        writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
        return
    }
    if in.CategoryID == "" || in.PropertyID == "" {
        writeProblem(w, http.StatusBadRequest, "Invalid request", "categoryId and propertyId are required", r.URL.Path)
        return
    }
    mr, err := s.Store.CreateMaintenanceRequest(r.Context(), in)
    if err != nil {
        writeProblem(w, http.StatusInternalServerError, "Create maintenance request failed", err.Error(), r.URL.Path)
        return
    }
    writeJSON(w, http.StatusCreated, mr)
}

// WorkOrdersHandler handles POST/GET /v1/work-orders
func (s *Server) WorkOrdersHandler(w http.ResponseWriter, r *http.Request) {
    switch r.Method {
    case http.MethodPost:
        var req struct {
            RequestID string `json:"requestId"`
        }
        if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
            writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
            return
        }
        if req.RequestID == "" {
            writeProblem(w, http.StatusBadRequest, "Invalid work order", "requestId is required", r.URL.Path)
            return
        }
        wo, err := s.Store.CreateWorkOrder(r.Context(), req.RequestID)
        if err != nil {
            if errors.Is(err, store.ErrNotFound) {
                writeProblem(w, http.StatusNotFound, "Maintenance request not found", "", r.URL.Path)
                return
            }
            writeProblem(w, http.StatusInternalServerError, "Create work order failed", err.Error(), r.URL.Path)
            return
        }
        writeJSON(w, http.StatusCreated, wo)
    case http.MethodGet:
        status := r.URL.Query().Get("status")
        cursor := r.URL.Query().Get("cursor")
        limit := 100
        if v := r.URL.Query().Get("limit"); v != "" {
            fmt.Sscanf(v, "%d", &limit)
        }
        items, next, err := s.Store.ListWorkOrders(r.Context(), status, cursor, limit)
        if err != nil {
            writeProblem(w, http.StatusInternalServerError, "List work orders failed", err.Error(), r.URL.Path)
            return
        }
        writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
    default:
        w.WriteHeader(http.StatusMethodNotAllowed)
    }
}

// WorkOrderByIDHandler handles GET /v1/work-orders/{id} plus the routing
// subpaths /route, /best-vendor, /ranking, /assignments and /events/stream.
func (s *Server) WorkOrderByIDHandler(w http.ResponseWriter, r *http.Request) {
    rest := strings.TrimPrefix(r.URL.Path, "/v1/work-orders/")
    if rest == r.URL.Path || rest == "" {
        writeProblem(w, http.StatusNotFound, "Not Found", "missing id", r.URL.Path)
        return
    }
    parts := strings.Split(rest, "/")
    id := parts[0]

    if len(parts) > 2 && parts[1] == "events" && parts[2] == "stream" {
        s.streamWorkOrderEvents(w, r, id)
        return
    }
    if len(parts) > 1 {
        switch parts[1] {
        case "route":
            s.routeWorkOrder(w, r, id)
            return
        case "best-vendor":
            s.bestVendor(w, r, id)
            return
        case "ranking":
            s.ranking(w, r, id)
            return
        case "assignments":
            if r.Method != http.MethodGet {
                w.WriteHeader(http.StatusMethodNotAllowed)
                return
            }
            items, err := s.Store.ListAssignments(r.Context(), id)
            if err != nil {
                writeProblem(w, http.StatusInternalServerError, "List assignments failed", err.Error(), r.URL.Path)
                return
            }
            writeJSON(w, http.StatusOK, map[string]any{"items": items})
            return
        }
        writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
        return
    }

    if r.Method != http.MethodGet {
        w.WriteHeader(http.StatusMethodNotAllowed)
        return
    }
    detail, err := s.Store.GetWorkOrderDetail(r.Context(), id)
    if err != nil {
        if errors.Is(err, store.ErrNotFound) {
            writeProblem(w, http.StatusNotFound, "Work order not found", "", r.URL.Path)
            return
        }
        writeProblem(w, http.StatusInternalServerError, "Get work order failed", err.Error(), r.URL.Path)
        return
    }
    writeJSON(w, http.StatusOK, detail)
}

// routeWorkOrder handles POST /v1/work-orders/{id}/route
func (s *Server) routeWorkOrder(w http.ResponseWriter, r *http.Request, id string) {
    if r.Method != http.MethodPost {
        w.WriteHeader(http.StatusMethodNotAllowed)
        return
    }
    start := time.Now()
    res, err := s.Engine.RouteWorkOrder(r.Context(), id)
    metrics.ScoringDuration.Observe(time.Since(start).Seconds())
    if err != nil {
        metrics.RoutingDecisions.WithLabelValues("error").Inc()
        s.writeRoutingError(w, r, err)
        return
    }
    metrics.RoutingDecisions.WithLabelValues(res.Status).Inc()
    data := map[string]any{
        "workOrderId": res.WorkOrderID,
        "status":      res.Status,
        "ts":          time.Now().UTC().Format(time.RFC3339),
    }
    if res.Status == routing.StatusAssigned {
        data["vendorId"] = res.VendorID
        s.Broker.Publish(id, Event{Type: "workorder.assigned", Data: data})
    } else {
        data["reason"] = res.Reason
        s.Broker.Publish(id, Event{Type: "workorder.escalated", Data: data})
    }
    writeJSON(w, http.StatusOK, res)
}

// bestVendor handles GET /v1/work-orders/{id}/best-vendor
func (s *Server) bestVendor(w http.ResponseWriter, r *http.Request, id string) {
    if r.Method != http.MethodGet {
        w.WriteHeader(http.StatusMethodNotAllowed)
        return
    }
    v, err := s.Engine.FindBestVendor(r.Context(), id)
    if err != nil {
        s.writeRoutingError(w, r, err)
        return
    }
    if v == nil {
        writeProblem(w, http.StatusNotFound, "No suitable vendor", "no vendor passed the eligibility filter", r.URL.Path)
        return
    }
    writeJSON(w, http.StatusOK, v)
}

// ranking handles GET /v1/work-orders/{id}/ranking
func (s *Server) ranking(w http.ResponseWriter, r *http.Request, id string) {
    if r.Method != http.MethodGet {
        w.WriteHeader(http.StatusMethodNotAllowed)
        return
    }
    ranked, err := s.Engine.Rank(r.Context(), id)
    if err != nil {
        s.writeRoutingError(w, r, err)
        return
    }
    metrics.CandidatesConsidered.Observe(float64(len(ranked)))
    writeJSON(w, http.StatusOK, map[string]any{"items": ranked})
}

func (s *Server) writeRoutingError(w http.ResponseWriter, r *http.Request, err error) {
    switch {
    case errors.Is(err, store.ErrNotFound):
        writeProblem(w, http.StatusNotFound, "Work order not found", "", r.URL.Path)
    case errors.Is(err, routing.ErrInvalidState):
        writeProblem(w, http.StatusUnprocessableEntity, "Work order not routable", err.Error(), r.URL.Path)
    case errors.Is(err, store.ErrConflict):
        writeProblem(w, http.StatusConflict, "Work order already assigned", "work order is no longer OPEN", r.URL.Path)
    default:
        s.Log.Error("routing failed", zap.Error(err))
        writeProblem(w, http.StatusInternalServerError, "Routing failed", err.Error(), r.URL.Path)
    }
}

// streamWorkOrderEvents serves GET /v1/work-orders/{id}/events/stream as SSE.
func (s *Server) streamWorkOrderEvents(w http.ResponseWriter, r *http.Request, id string) {
    if r.Method != http.MethodGet {
        w.WriteHeader(http.StatusMethodNotAllowed)
        return
    }
    flusher, ok := w.(http.Flusher)
    if !ok {
        writeProblem(w, http.StatusInternalServerError, "Streaming unsupported", "", r.URL.Path)
        return
    }
    w.Header().Set("Content-Type", "text/event-stream")
    w.Header().Set("Cache-Control", "no-cache")
    w.Header().Set("Connection", "keep-alive")
    ch := s.Broker.Subscribe(id)
    defer s.Broker.Unsubscribe(id, ch)
    // initial heartbeat
    fmt.Fprintf(w, "event: heartbeat\n")
    fmt.Fprintf(w, "data: {\"workOrderId\":\"%s\",\"ts\":\"%s\"}\n\n", id, time.Now().Format(time.RFC3339))
    flusher.Flush()
    notify := r.Context().Done()
    for {
        select {
        case <-notify:
            return
        case evt := <-ch:
            b, _ := json.Marshal(evt.Data)
            fmt.Fprintf(w, "event: %s\n", evt.Type)
            fmt.Fprintf(w, "data: %s\n\n", string(b))
            flusher.Flush()
        case <-time.After(15 * time.Second):
            fmt.Fprintf(w, "event: heartbeat\n")
            fmt.Fprintf(w, "data: {\"workOrderId\":\"%s\",\"ts\":\"%s\"}\n\n", id, time.Now().Format(time.RFC3339))
            flusher.Flush()
        }
    }
}

// Health
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
    writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
    // Check DB connectivity when using Postgres store
    if pg, ok := s.Store.(*store.Postgres); ok {
        ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
        defer cancel()
        if err := pg.Ping(ctx); err != nil {
            writeProblem(w, http.StatusServiceUnavailable, "Not Ready", err.Error(), r.URL.Path)
            return
        }
    }
    writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
