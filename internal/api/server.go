package api

import (
    "fmt"
    "os"
    "strconv"
    "strings"

    "go.uber.org/zap"

    "workroute/internal/routing"
    "workroute/internal/store"
)

type Server struct {
    Store  store.Store
    Engine *routing.Engine
    Broker EventBroker
    Log    *zap.Logger
}

// NewServer creates a Server. If DATABASE_URL is unset, uses in-memory store.
func NewServer(log *zap.Logger) (*Server, error) {
    if log == nil {
        log = zap.NewNop()
    }
    dsn := os.Getenv("DATABASE_URL")
    var s store.Store
    if strings.TrimSpace(dsn) == "" {
        s = store.NewMemory()
        log.Info("using in-memory store")
    } else {
        sp, err := store.NewPostgres(dsn)
        if err != nil {
            return nil, fmt.Errorf("connect postgres: %w", err)
        }
        // Run migrations (dev helper)
        if os.Getenv("DB_MIGRATE") != "false" {
            if err := sp.MigrateDir("db/migrations"); err != nil {
                log.Warn("migrations failed", zap.Error(err))
            }
        }
        s = sp
        log.Info("using postgres store")
    }

    cfg := routing.DefaultConfig()
    if path := os.Getenv("SCORING_CONFIG"); path != "" {
        c, err := routing.LoadConfig(path)
        if err != nil {
            return nil, fmt.Errorf("scoring config: %w", err)
        }
        cfg = c
        log.Info("loaded scoring config", zap.String("path", path))
    }

    var opts []routing.Option
    if v := os.Getenv("ROUTING_MAX_CONCURRENT"); v != "" {
        if n, err := strconv.Atoi(v); err == nil {
            opts = append(opts, routing.WithMaxConcurrent(n))
        }
    }
    if v := os.Getenv("ROUTING_QUERY_QPS"); v != "" {
        if qps, err := strconv.ParseFloat(v, 64); err == nil {
            opts = append(opts, routing.WithQueryLimit(qps))
        }
    }
    eng := routing.NewEngine(s, cfg, log.Named("routing"), opts...)

    // Broker selection
    var broker EventBroker
    if os.Getenv("REDIS_URL") != "" {
        if rb, err := NewRedisBroker(); err == nil {
            broker = rb
        } else {
            log.Warn("redis broker unavailable, using in-memory", zap.Error(err))
            broker = NewBroker()
        }
    } else {
        broker = NewBroker()
    }
    return &Server{Store: s, Engine: eng, Broker: broker, Log: log}, nil
}
