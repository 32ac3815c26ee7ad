package main

import (
    "bufio"
    "net"
    "net/http"
    "os"
    "strconv"
    "time"

    "github.com/prometheus/client_golang/prometheus/promhttp"
    "go.uber.org/zap"
    "go.uber.org/zap/zapcore"

    "workroute/internal/api"
    "workroute/internal/metrics"
)

func main() {
    log := newLogger()
    defer func() { _ = log.Sync() }()

    srvDeps, err := api.NewServer(log)
    if err != nil {
        log.Fatal("failed to init server", zap.Error(err))
    }

    metrics.RegisterDefault()

    mux := http.NewServeMux()

    // Vendors & ratings
    mux.HandleFunc("/v1/vendors", srvDeps.VendorsHandler)
    mux.HandleFunc("/v1/vendors/", srvDeps.VendorByIDHandler)
    mux.HandleFunc("/v1/ratings", srvDeps.RatingsHandler)

    // Properties, categories, maintenance requests
    mux.HandleFunc("/v1/properties", srvDeps.PropertiesHandler)
    mux.HandleFunc("/v1/categories", srvDeps.CategoriesHandler)
    mux.HandleFunc("/v1/maintenance-requests", srvDeps.MaintenanceRequestsHandler)

    // Work orders & routing
    mux.HandleFunc("/v1/work-orders", srvDeps.WorkOrdersHandler)
    mux.HandleFunc("/v1/work-orders/", srvDeps.WorkOrderByIDHandler) // includes /route, /best-vendor, /ranking, /assignments, /events/stream

    // WebSocket event stream
    mux.HandleFunc("/v1/events/ws", srvDeps.EventsWSHandler)

    // Health & debug
    mux.HandleFunc("/healthz", srvDeps.HealthHandler)
    mux.HandleFunc("/readyz", srvDeps.ReadyHandler)
    mux.HandleFunc("/debug", srvDeps.DebugJSON)

    // Prometheus
    mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

    addr := ":8080"
    if v := os.Getenv("PORT"); v != "" {
        addr = ":" + v
    }

    srv := &http.Server{
        Addr:              addr,
        Handler:           obsMiddleware(log, mux),
        ReadHeaderTimeout: 5 * time.Second,
    }

    log.Info("API listening", zap.String("addr", addr))
    if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
        log.Fatal("server error", zap.Error(err))
    }
}

func newLogger() *zap.Logger {
    cfg := zap.NewProductionConfig()
    if os.Getenv("LOG_FORMAT") == "console" {
        cfg.Encoding = "console"
        cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
    }
    if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
        if l, err := zapcore.ParseLevel(lvl); err == nil {
            cfg.Level = zap.NewAtomicLevelAt(l)
        }
    }
    log, err := cfg.Build()
    if err != nil {
        panic(err)
    }
    return log
}

type statusRecorder struct {
    http.ResponseWriter
    status int
}

func (r *statusRecorder) WriteHeader(code int) {
    r.status = code
    r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Flush() {
    if f, ok := r.ResponseWriter.(http.Flusher); ok {
        f.Flush()
    }
}

// Hijack keeps WebSocket upgrades working through the middleware.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
    h, ok := r.ResponseWriter.(http.Hijacker)
    if !ok {
        return nil, nil, http.ErrNotSupported
    }
    return h.Hijack()
}

func obsMiddleware(log *zap.Logger, next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        start := time.Now()
        rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
        next.ServeHTTP(rec, r)
        dur := time.Since(start)
        status := strconv.Itoa(rec.status)
        metrics.HTTPRequests.WithLabelValues(r.Method, r.URL.Path, status).Inc()
        metrics.HTTPDuration.WithLabelValues(r.Method, r.URL.Path, status).Observe(dur.Seconds())
        log.Info("request",
            zap.String("remote", r.RemoteAddr),
            zap.String("method", r.Method),
            zap.String("path", r.URL.Path),
            zap.Int("status", rec.status),
            zap.Duration("duration", dur))
    })
}
