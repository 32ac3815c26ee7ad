package routing

import (
    "math"

    "workroute/internal/geo"
    "workroute/internal/model"
)

const (
    // proximityRangeKm is where the proximity score reaches zero: 1.0 at the
    // property, linearly down to 0.0 at 50 km and beyond.
    proximityRangeKm = 50.0
    // costCeilingRate is the standard rate at which the cost score bottoms out.
    costCeilingRate = 100.0
    // recentRatingLimit caps how much rating history feeds the performance score.
    recentRatingLimit = 10
)

// Candidate bundles a vendor with the signals fetched for scoring.
type Candidate struct {
    Vendor          model.Vendor
    Ratings         []model.Rating
    OpenAssignments int
}

// Breakdown carries every unweighted component plus the weighted composite.
// All components are in [0,1] except performance, which passes the rating
// scale through untouched.
type Breakdown struct {
    Performance   float64 `json:"performance"`
    Workload      float64 `json:"workload"`
    Specialty     float64 `json:"specialty"`
    Cost          float64 `json:"cost"`
    Proximity     float64 `json:"proximity"`
    Certification float64 `json:"certification"`
    ResponseTime  float64 `json:"responseTime"`
    Total         float64 `json:"total"`
}

// Scorer computes composite vendor scores. Pure: no I/O, no mutation of its
// inputs.
type Scorer struct {
    cfg Config
}

func NewScorer(cfg Config) *Scorer { return &Scorer{cfg: cfg} }

// Score computes the weighted composite for one candidate against a work
// order. The composite is not clamped: with the weights summing to 1 it is
// typically in [0,1], but an out-of-range rating scale can push it outside.
func (s *Scorer) Score(c Candidate, wo model.WorkOrderDetail) Breakdown {
    b := Breakdown{
        Performance:   performanceScore(c.Ratings),
        Workload:      workloadScore(c.OpenAssignments, s.cfg.Defaults.Workload),
        Specialty:     specialtyScore(c.Vendor, wo.Category),
        Cost:          costScore(c.Vendor.StandardRate),
        Proximity:     proximityScore(c.Vendor.Location, wo.Property, s.cfg.Defaults.Proximity),
        Certification: certificationScore(c.Vendor, wo.Category),
        ResponseTime:  responseTimeScore(),
    }
    w := s.cfg.Weights
    b.Total = w.Performance*b.Performance +
        w.Workload*b.Workload +
        w.Specialty*b.Specialty +
        w.Cost*b.Cost +
        w.Proximity*b.Proximity +
        w.Certification*b.Certification +
        w.ResponseTime*b.ResponseTime
    return b
}

// performanceScore is the mean of the most recent ratings, newest first,
// capped at recentRatingLimit; 0 when no history exists.
func performanceScore(ratings []model.Rating) float64 {
    if len(ratings) == 0 {
        return 0
    }
    n := len(ratings)
    if n > recentRatingLimit {
        n = recentRatingLimit
    }
    sum := 0.0
    for _, r := range ratings[:n] {
        sum += r.Score
    }
    return sum / float64(n)
}

// workloadScore decays hyperbolically with open assignments; an idle vendor
// gets the configured default. No floor: 100 open jobs score 0.01, not zero.
func workloadScore(open int, idleDefault float64) float64 {
    if open > 0 {
        return 1 / float64(open)
    }
    return idleDefault
}

// specialtyScore matches the vendor specialty against the category id. The
// eligibility filter in the store matches against the category name instead;
// both legacy rules are kept as-is until product reconciles them.
func specialtyScore(v model.Vendor, cat *model.Category) float64 {
    if cat != nil && v.Specialty != "" && v.Specialty == cat.ID {
        return 1
    }
    return 0
}

// costScore rewards cheap vendors: 1.0 with no rate on file, decaying
// linearly to 0.0 at costCeilingRate.
func costScore(rate *float64) float64 {
    if rate == nil {
        return 1
    }
    return 1 - math.Min(*rate/costCeilingRate, 1)
}

func proximityScore(loc *model.GeoPoint, prop *model.Property, unknownDefault float64) float64 {
    if loc == nil || prop == nil || prop.Location == nil {
        return unknownDefault
    }
    d := geo.DistanceKm(loc.Lat, loc.Lng, prop.Location.Lat, prop.Location.Lng)
    return math.Max(0, 1-d/proximityRangeKm)
}

// certificationScore is 1 only when the category requires a certification and
// the vendor holds it; a category with no requirement contributes nothing.
func certificationScore(v model.Vendor, cat *model.Category) float64 {
    if cat == nil || cat.RequiredCertification == "" {
        return 0
    }
    for _, c := range v.Certifications {
        if c == cat.RequiredCertification {
            return 1
        }
    }
    return 0
}

// responseTimeScore is a reserved signal: no measurement exists yet, so every
// vendor gets full marks.
func responseTimeScore() float64 { return 1 }
