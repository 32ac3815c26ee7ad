package routing

import (
    "context"
    "errors"
    "fmt"
    "sort"

    "go.uber.org/zap"
    "golang.org/x/sync/errgroup"
    "golang.org/x/time/rate"

    "workroute/internal/model"
)

// ErrInvalidState marks a work order whose maintenance request lacks a
// property or category. That is an upstream data-integrity failure, not
// something routing can repair.
var ErrInvalidState = errors.New("work order missing property or category")

const (
    StatusAssigned  = "assigned"
    StatusEscalated = "escalated"

    // EscalationNoVendors is the reason attached when zero vendors pass the
    // eligibility filter.
    EscalationNoVendors = "no suitable vendors found"

    defaultMaxConcurrent = 8
)

// Repository is the slice of the store the engine depends on.
type Repository interface {
    GetWorkOrderDetail(ctx context.Context, id string) (model.WorkOrderDetail, error)
    FindCandidates(ctx context.Context, categoryName, zipCode string) ([]model.Vendor, error)
    RecentRatings(ctx context.Context, vendorID string, limit int) ([]model.Rating, error)
    OpenAssignmentCount(ctx context.Context, vendorID string) (int, error)
    AssignWorkOrder(ctx context.Context, workOrderID, vendorID string) (model.Assignment, error)
}

// Engine ranks eligible vendors for a work order and, for the route
// operation, persists the winning assignment. All collaborators are
// injected; the engine holds no global state.
type Engine struct {
    repo    Repository
    scorer  *Scorer
    log     *zap.Logger
    maxConc int
    limiter *rate.Limiter
}

type Option func(*Engine)

// WithMaxConcurrent bounds the per-candidate fan-out.
func WithMaxConcurrent(n int) Option {
    return func(e *Engine) {
        if n > 0 {
            e.maxConc = n
        }
    }
}

// WithQueryLimit caps the rate of store queries issued while fetching
// candidate signals, protecting the backing repository from large pools.
func WithQueryLimit(qps float64) Option {
    return func(e *Engine) {
        if qps > 0 {
            e.limiter = rate.NewLimiter(rate.Limit(qps), int(qps)+1)
        }
    }
}

func NewEngine(repo Repository, cfg Config, log *zap.Logger, opts ...Option) *Engine {
    if log == nil {
        log = zap.NewNop()
    }
    e := &Engine{
        repo:    repo,
        scorer:  NewScorer(cfg),
        log:     log,
        maxConc: defaultMaxConcurrent,
    }
    for _, opt := range opts {
        opt(e)
    }
    return e
}

// Scored pairs a candidate with its computed score breakdown.
type Scored struct {
    Candidate Candidate `json:"candidate"`
    Score     Breakdown `json:"score"`
}

// FindBestVendor returns the highest-scoring eligible vendor for the work
// order, or nil with no error when no vendor is eligible.
func (e *Engine) FindBestVendor(ctx context.Context, workOrderID string) (*model.Vendor, error) {
    ranked, err := e.rank(ctx, workOrderID)
    if err != nil {
        return nil, err
    }
    if len(ranked) == 0 {
        return nil, nil
    }
    v := ranked[0].Candidate.Vendor
    return &v, nil
}

// RouteWorkOrder runs the same pipeline and then performs the assignment
// write: the work order transitions OPEN -> ASSIGNED and exactly one
// assignment is appended, in a single conditional store operation. When no
// candidate exists the order is escalated, which is a designed outcome and
// not an error.
func (e *Engine) RouteWorkOrder(ctx context.Context, workOrderID string) (model.RoutingResult, error) {
    ranked, err := e.rank(ctx, workOrderID)
    if err != nil {
        return model.RoutingResult{}, err
    }
    if len(ranked) == 0 {
        e.log.Info("work order escalated",
            zap.String("workOrderId", workOrderID),
            zap.String("reason", EscalationNoVendors))
        return model.RoutingResult{
            Status:      StatusEscalated,
            WorkOrderID: workOrderID,
            Reason:      EscalationNoVendors,
        }, nil
    }
    best := ranked[0]
    if _, err := e.repo.AssignWorkOrder(ctx, workOrderID, best.Candidate.Vendor.ID); err != nil {
        return model.RoutingResult{}, fmt.Errorf("assign work order: %w", err)
    }
    e.log.Info("work order assigned",
        zap.String("workOrderId", workOrderID),
        zap.String("vendorId", best.Candidate.Vendor.ID),
        zap.Float64("score", best.Score.Total),
        zap.Int("candidates", len(ranked)))
    return model.RoutingResult{
        Status:      StatusAssigned,
        WorkOrderID: workOrderID,
        VendorID:    best.Candidate.Vendor.ID,
    }, nil
}

// Rank exposes the full scored ranking for inspection endpoints.
func (e *Engine) Rank(ctx context.Context, workOrderID string) ([]Scored, error) {
    return e.rank(ctx, workOrderID)
}

// rank loads the work order, fetches signals for every candidate with a
// bounded concurrent fan-out, scores and sorts descending. The sort is
// stable, so ties keep candidate order and the first-seen vendor wins.
func (e *Engine) rank(ctx context.Context, workOrderID string) ([]Scored, error) {
    detail, err := e.repo.GetWorkOrderDetail(ctx, workOrderID)
    if err != nil {
        return nil, err
    }
    if detail.Property == nil || detail.Category == nil {
        return nil, fmt.Errorf("%w: work order %s", ErrInvalidState, workOrderID)
    }
    vendors, err := e.repo.FindCandidates(ctx, detail.Category.Name, detail.Property.ZipCode)
    if err != nil {
        return nil, fmt.Errorf("find candidates: %w", err)
    }
    if len(vendors) == 0 {
        return nil, nil
    }

    cands := make([]Candidate, len(vendors))
    g, gctx := errgroup.WithContext(ctx)
    g.SetLimit(e.maxConc)
    for i, v := range vendors {
        g.Go(func() error {
            if err := e.waitQuery(gctx); err != nil {
                return err
            }
            ratings, err := e.repo.RecentRatings(gctx, v.ID, recentRatingLimit)
            if err != nil {
                return fmt.Errorf("recent ratings for vendor %s: %w", v.ID, err)
            }
            if err := e.waitQuery(gctx); err != nil {
                return err
            }
            open, err := e.repo.OpenAssignmentCount(gctx, v.ID)
            if err != nil {
                return fmt.Errorf("open assignments for vendor %s: %w", v.ID, err)
            }
            cands[i] = Candidate{Vendor: v, Ratings: ratings, OpenAssignments: open}
            return nil
        })
    }
    if err := g.Wait(); err != nil {
        return nil, err
    }

    scored := make([]Scored, len(cands))
    for i, c := range cands {
        scored[i] = Scored{Candidate: c, Score: e.scorer.Score(c, detail)}
    }
    sort.SliceStable(scored, func(i, j int) bool {
        return scored[i].Score.Total > scored[j].Score.Total
    })
    return scored, nil
}

func (e *Engine) waitQuery(ctx context.Context) error {
    if e.limiter == nil {
        return nil
    }
    return e.limiter.Wait(ctx)
}
