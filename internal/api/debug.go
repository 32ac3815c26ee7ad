package api

import (
    "encoding/json"
    "net/http"
    "os"
    "time"

    "workroute/internal/buildinfo"
)

func (s *Server) DebugJSON(w http.ResponseWriter, r *http.Request) {
    info := map[string]any{
        "build": buildinfo.Info(),
        "time":  time.Now().UTC().Format(time.RFC3339),
        "config": map[string]any{
            "PORT":                   os.Getenv("PORT"),
            "SCORING_CONFIG":         os.Getenv("SCORING_CONFIG"),
            "ROUTING_MAX_CONCURRENT": os.Getenv("ROUTING_MAX_CONCURRENT"),
            "ROUTING_QUERY_QPS":      os.Getenv("ROUTING_QUERY_QPS"),
            "HAS_DATABASE_URL":       os.Getenv("DATABASE_URL") != "",
            "HAS_REDIS_URL":          os.Getenv("REDIS_URL") != "",
        },
    }
    w.Header().Set("Content-Type", "application/json")
    _ = json.NewEncoder(w).Encode(info)
}
