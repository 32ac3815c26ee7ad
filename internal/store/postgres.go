package store

import (
    "context"
    "database/sql"
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "sort"
    "strings"
    "time"

    "github.com/google/uuid"
    _ "github.com/jackc/pgx/v5/stdlib"

    "workroute/internal/model"
)

// Postgres implements Store on PostgreSQL via the pgx stdlib driver.
type Postgres struct {
    db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
    db, err := sql.Open("pgx", dsn)
    if err != nil {
        return nil, err
    }
    if err := db.Ping(); err != nil {
        return nil, err
    }
    return &Postgres{db: db}, nil
}

func (p *Postgres) Ping(ctx context.Context) error {
    return p.db.PingContext(ctx)
}

// MigrateDir applies every .sql file in dir in lexical order. Dev helper;
// production schema management lives outside this service.
func (p *Postgres) MigrateDir(dir string) error {
    entries, err := os.ReadDir(dir)
    if err != nil {
        return err
    }
    names := []string{}
    for _, e := range entries {
        if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
            names = append(names, e.Name())
        }
    }
    sort.Strings(names)
    for _, name := range names {
        sqlBytes, err := os.ReadFile(filepath.Join(dir, name))
        if err != nil {
            return err
        }
        if _, err := p.db.Exec(string(sqlBytes)); err != nil {
            return fmt.Errorf("migration %s: %w", name, err)
        }
    }
    return nil
}

func (p *Postgres) CreateVendor(ctx context.Context, in model.VendorIn) (model.Vendor, error) {
    id := uuid.New()
    availability := in.Availability
    if availability == "" {
        availability = model.VendorAvailable
    }
    var lat, lng any
    if in.Location != nil {
        lat, lng = in.Location.Lat, in.Location.Lng
    }
    var rate any
    if in.StandardRate != nil {
        rate = *in.StandardRate
    }
    _, err := p.db.ExecContext(ctx,
        `INSERT INTO vendors (id, name, specialty, availability, service_areas, standard_rate, lat, lng, certifications) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
        id, in.Name, in.Specialty, availability, textArray(in.ServiceAreas), rate, lat, lng, textArray(in.Certifications))
    if err != nil {
        return model.Vendor{}, err
    }
    return p.GetVendor(ctx, id.String())
}

const vendorColumns = `id::text, name, specialty, availability,
    array_to_string(service_areas, ','), standard_rate, lat, lng,
    array_to_string(certifications, ',')`

func scanVendor(row interface{ Scan(...any) error }) (model.Vendor, error) {
    var v model.Vendor
    var areas, certs sql.NullString
    var rate, lat, lng sql.NullFloat64
    if err := row.Scan(&v.ID, &v.Name, &v.Specialty, &v.Availability, &areas, &rate, &lat, &lng, &certs); err != nil {
        return v, err
    }
    v.ServiceAreas = splitCSV(areas)
    v.Certifications = splitCSV(certs)
    if rate.Valid {
        r := rate.Float64
        v.StandardRate = &r
    }
    if lat.Valid && lng.Valid {
        v.Location = &model.GeoPoint{Lat: lat.Float64, Lng: lng.Float64}
    }
    return v, nil
}

func (p *Postgres) GetVendor(ctx context.Context, id string) (model.Vendor, error) {
    row := p.db.QueryRowContext(ctx, `SELECT `+vendorColumns+` FROM vendors WHERE id=$1`, id)
    v, err := scanVendor(row)
    if errors.Is(err, sql.ErrNoRows) {
        return model.Vendor{}, ErrNotFound
    }
    return v, err
}

func (p *Postgres) ListVendors(ctx context.Context, cursor string, limit int) ([]model.Vendor, string, error) {
    if limit <= 0 || limit > 500 {
        limit = 100
    }
    var rows *sql.Rows
    var err error
    if cursor != "" {
        rows, err = p.db.QueryContext(ctx, `SELECT `+vendorColumns+` FROM vendors WHERE id::text > $1 ORDER BY id LIMIT $2`, cursor, limit)
    } else {
        rows, err = p.db.QueryContext(ctx, `SELECT `+vendorColumns+` FROM vendors ORDER BY id LIMIT $1`, limit)
    }
    if err != nil {
        return nil, "", err
    }
    defer rows.Close()
    out := []model.Vendor{}
    for rows.Next() {
        v, err := scanVendor(rows)
        if err != nil {
            return nil, "", err
        }
        out = append(out, v)
    }
    next := ""
    if len(out) == limit {
        next = out[len(out)-1].ID
    }
    return out, next, rows.Err()
}

func (p *Postgres) FindCandidates(ctx context.Context, categoryName, zipCode string) ([]model.Vendor, error) {
    rows, err := p.db.QueryContext(ctx,
        `SELECT `+vendorColumns+` FROM vendors
         WHERE availability=$1 AND specialty=$2 AND $3 = ANY(service_areas)
         ORDER BY created_at, id`,
        model.VendorAvailable, categoryName, zipCode)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := []model.Vendor{}
    for rows.Next() {
        v, err := scanVendor(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, v)
    }
    return out, rows.Err()
}

func (p *Postgres) CreateProperty(ctx context.Context, in model.PropertyIn) (model.Property, error) {
    id := uuid.New()
    var lat, lng any
    if in.Location != nil {
        lat, lng = in.Location.Lat, in.Location.Lng
    }
    _, err := p.db.ExecContext(ctx,
        `INSERT INTO properties (id, address, zip_code, lat, lng) VALUES ($1,$2,$3,$4,$5)`,
        id, nullIfEmpty(in.Address), in.ZipCode, lat, lng)
    if err != nil {
        return model.Property{}, err
    }
    out := model.Property{ID: id.String(), Address: in.Address, ZipCode: in.ZipCode, Location: in.Location}
    return out, nil
}

func (p *Postgres) CreateCategory(ctx context.Context, in model.CategoryIn) (model.Category, error) {
    id := uuid.New()
    _, err := p.db.ExecContext(ctx,
        `INSERT INTO categories (id, name, required_certification) VALUES ($1,$2,$3)`,
        id, in.Name, nullIfEmpty(in.RequiredCertification))
    if err != nil {
        return model.Category{}, err
    }
    return model.Category{ID: id.String(), Name: in.Name, RequiredCertification: in.RequiredCertification}, nil
}

func (p *Postgres) CreateMaintenanceRequest(ctx context.Context, in model.MaintenanceRequestIn) (model.MaintenanceRequest, error) {
    id := uuid.New()
    _, err := p.db.ExecContext(ctx,
        `INSERT INTO maintenance_requests (id, category_id, property_id, description) VALUES ($1,$2,$3,$4)`,
        id, in.CategoryID, in.PropertyID, nullIfEmpty(in.Description))
    if err != nil {
        return model.MaintenanceRequest{}, err
    }
    return model.MaintenanceRequest{ID: id.String(), CategoryID: in.CategoryID, PropertyID: in.PropertyID, Description: in.Description}, nil
}

func (p *Postgres) CreateWorkOrder(ctx context.Context, requestID string) (model.WorkOrder, error) {
    var one int
    err := p.db.QueryRowContext(ctx, `SELECT 1 FROM maintenance_requests WHERE id=$1`, requestID).Scan(&one)
    if errors.Is(err, sql.ErrNoRows) {
        return model.WorkOrder{}, ErrNotFound
    }
    if err != nil {
        return model.WorkOrder{}, err
    }
    id := uuid.New()
    now := time.Now().UTC()
    _, err = p.db.ExecContext(ctx,
        `INSERT INTO work_orders (id, request_id, status, created_at) VALUES ($1,$2,$3,$4)`,
        id, requestID, model.WorkOrderOpen, now)
    if err != nil {
        return model.WorkOrder{}, err
    }
    return model.WorkOrder{ID: id.String(), Status: model.WorkOrderOpen, RequestID: requestID, CreatedAt: now}, nil
}

func (p *Postgres) GetWorkOrder(ctx context.Context, id string) (model.WorkOrder, error) {
    var wo model.WorkOrder
    row := p.db.QueryRowContext(ctx, `SELECT id::text, request_id::text, status, created_at FROM work_orders WHERE id=$1`, id)
    if err := row.Scan(&wo.ID, &wo.RequestID, &wo.Status, &wo.CreatedAt); err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return wo, ErrNotFound
        }
        return wo, err
    }
    return wo, nil
}

func (p *Postgres) GetWorkOrderDetail(ctx context.Context, id string) (model.WorkOrderDetail, error) {
    var d model.WorkOrderDetail
    row := p.db.QueryRowContext(ctx, `
        SELECT wo.id::text, wo.request_id::text, wo.status, wo.created_at,
               mr.id::text, mr.category_id::text, mr.property_id::text, COALESCE(mr.description, ''),
               pr.id::text, COALESCE(pr.address, ''), pr.zip_code, pr.lat, pr.lng,
               ct.id::text, ct.name, COALESCE(ct.required_certification, '')
        FROM work_orders wo
        JOIN maintenance_requests mr ON mr.id = wo.request_id
        LEFT JOIN properties pr ON pr.id = mr.property_id
        LEFT JOIN categories ct ON ct.id = mr.category_id
        WHERE wo.id = $1`, id)
    var propID, propAddr, propZip sql.NullString
    var lat, lng sql.NullFloat64
    var catID, catName, catCert sql.NullString
    err := row.Scan(
        &d.WorkOrder.ID, &d.WorkOrder.RequestID, &d.WorkOrder.Status, &d.WorkOrder.CreatedAt,
        &d.Request.ID, &d.Request.CategoryID, &d.Request.PropertyID, &d.Request.Description,
        &propID, &propAddr, &propZip, &lat, &lng,
        &catID, &catName, &catCert)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return d, ErrNotFound
        }
        return d, err
    }
    if propID.Valid {
        prop := model.Property{ID: propID.String, Address: propAddr.String, ZipCode: propZip.String}
        if lat.Valid && lng.Valid {
            prop.Location = &model.GeoPoint{Lat: lat.Float64, Lng: lng.Float64}
        }
        d.Property = &prop
    }
    if catID.Valid {
        d.Category = &model.Category{ID: catID.String, Name: catName.String, RequiredCertification: catCert.String}
    }
    return d, nil
}

func (p *Postgres) ListWorkOrders(ctx context.Context, status, cursor string, limit int) ([]model.WorkOrder, string, error) {
    if limit <= 0 || limit > 500 {
        limit = 100
    }
    var rows *sql.Rows
    var err error
    q := `SELECT id::text, request_id::text, status, created_at FROM work_orders`
    switch {
    case status != "" && cursor != "":
        rows, err = p.db.QueryContext(ctx, q+` WHERE status=$1 AND id::text > $2 ORDER BY id LIMIT $3`, status, cursor, limit)
    case status != "":
        rows, err = p.db.QueryContext(ctx, q+` WHERE status=$1 ORDER BY id LIMIT $2`, status, limit)
    case cursor != "":
        rows, err = p.db.QueryContext(ctx, q+` WHERE id::text > $1 ORDER BY id LIMIT $2`, cursor, limit)
    default:
        rows, err = p.db.QueryContext(ctx, q+` ORDER BY id LIMIT $1`, limit)
    }
    if err != nil {
        return nil, "", err
    }
    defer rows.Close()
    out := []model.WorkOrder{}
    for rows.Next() {
        var wo model.WorkOrder
        if err := rows.Scan(&wo.ID, &wo.RequestID, &wo.Status, &wo.CreatedAt); err != nil {
            return nil, "", err
        }
        out = append(out, wo)
    }
    next := ""
    if len(out) == limit {
        next = out[len(out)-1].ID
    }
    return out, next, rows.Err()
}

func (p *Postgres) AddRating(ctx context.Context, in model.RatingIn) (model.Rating, error) {
    id := uuid.New()
    now := time.Now().UTC()
    _, err := p.db.ExecContext(ctx,
        `INSERT INTO vendor_performance_ratings (id, vendor_id, work_order_id, score, created_at) VALUES ($1,$2,$3,$4,$5)`,
        id, in.VendorID, nullIfEmpty(in.WorkOrderID), in.Score, now)
    if err != nil {
        return model.Rating{}, err
    }
    return model.Rating{ID: id.String(), VendorID: in.VendorID, WorkOrderID: in.WorkOrderID, Score: in.Score, CreatedAt: now}, nil
}

func (p *Postgres) RecentRatings(ctx context.Context, vendorID string, limit int) ([]model.Rating, error) {
    if limit <= 0 {
        limit = 10
    }
    rows, err := p.db.QueryContext(ctx,
        `SELECT id::text, vendor_id::text, COALESCE(work_order_id::text, ''), score, created_at
         FROM vendor_performance_ratings WHERE vendor_id=$1
         ORDER BY created_at DESC, id DESC LIMIT $2`, vendorID, limit)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := []model.Rating{}
    for rows.Next() {
        var r model.Rating
        if err := rows.Scan(&r.ID, &r.VendorID, &r.WorkOrderID, &r.Score, &r.CreatedAt); err != nil {
            return nil, err
        }
        out = append(out, r)
    }
    return out, rows.Err()
}

func (p *Postgres) OpenAssignmentCount(ctx context.Context, vendorID string) (int, error) {
    var count int
    err := p.db.QueryRowContext(ctx,
        `SELECT COUNT(*) FROM work_order_assignments a
         JOIN work_orders wo ON wo.id = a.work_order_id
         WHERE a.vendor_id=$1 AND wo.status = ANY($2)`,
        vendorID, textArray(model.ActiveWorkOrderStatuses)).Scan(&count)
    return count, err
}

// AssignWorkOrder performs the compound write in one transaction with a
// conditional status update, so a concurrent second routing attempt observes
// zero affected rows and gets ErrConflict.
func (p *Postgres) AssignWorkOrder(ctx context.Context, workOrderID, vendorID string) (model.Assignment, error) {
    tx, err := p.db.BeginTx(ctx, nil)
    if err != nil {
        return model.Assignment{}, err
    }
    defer func() { _ = tx.Rollback() }()

    res, err := tx.ExecContext(ctx,
        `UPDATE work_orders SET status=$1 WHERE id=$2 AND status=$3`,
        model.WorkOrderAssigned, workOrderID, model.WorkOrderOpen)
    if err != nil {
        return model.Assignment{}, err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return model.Assignment{}, err
    }
    if n == 0 {
        var status string
        err := tx.QueryRowContext(ctx, `SELECT status FROM work_orders WHERE id=$1`, workOrderID).Scan(&status)
        if errors.Is(err, sql.ErrNoRows) {
            return model.Assignment{}, ErrNotFound
        }
        if err != nil {
            return model.Assignment{}, err
        }
        return model.Assignment{}, ErrConflict
    }
    a := model.Assignment{
        ID:          uuid.New().String(),
        WorkOrderID: workOrderID,
        VendorID:    vendorID,
        AssignedAt:  time.Now().UTC(),
    }
    _, err = tx.ExecContext(ctx,
        `INSERT INTO work_order_assignments (id, work_order_id, vendor_id, assigned_at) VALUES ($1,$2,$3,$4)`,
        a.ID, a.WorkOrderID, a.VendorID, a.AssignedAt)
    if err != nil {
        return model.Assignment{}, err
    }
    if err := tx.Commit(); err != nil {
        return model.Assignment{}, err
    }
    return a, nil
}

func (p *Postgres) ListAssignments(ctx context.Context, workOrderID string) ([]model.Assignment, error) {
    rows, err := p.db.QueryContext(ctx,
        `SELECT id::text, work_order_id::text, vendor_id::text, assigned_at
         FROM work_order_assignments WHERE work_order_id=$1 ORDER BY assigned_at, id`, workOrderID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := []model.Assignment{}
    for rows.Next() {
        var a model.Assignment
        if err := rows.Scan(&a.ID, &a.WorkOrderID, &a.VendorID, &a.AssignedAt); err != nil {
            return nil, err
        }
        out = append(out, a)
    }
    return out, rows.Err()
}

// Helpers

func nullIfEmpty(s string) any {
    if s == "" {
        return nil
    }
    return s
}

// textArray passes a []string arg to the pgx driver; nil keeps the column NULL.
func textArray(v []string) any {
    if len(v) == 0 {
        return nil
    }
    return v
}

func splitCSV(s sql.NullString) []string {
    if !s.Valid || s.String == "" {
        return nil
    }
    return strings.Split(s.String, ",")
}
