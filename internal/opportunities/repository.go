package opportunities

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/volunteerhub/backend/internal/models"
)

var (
	// ErrNotFound is returned when no opportunity matches the lookup.
	ErrNotFound = errors.New("opportunity not found")
	// ErrDuplicateTitle is returned when the per-NGO title unique index is violated.
	ErrDuplicateTitle = errors.New("duplicate opportunity title for this NGO")
)

// ListFilter holds the public listing filters and pagination.
type ListFilter struct {
	Search     string
	Location   string
	NGO        *uuid.UUID
	Skill      string
	Status     models.OpportunityStatus // optional; empty means any
	MinStipend *int
	MaxStipend *int
	Page       int
	Limit      int
}

const opportunityColumns = `o.id, o.title, o.description, o.skills, COALESCE(o.duration,''), COALESCE(o.location,''),
	o.stipend, o.start_date, o.end_date, o.apply_deadline, o.status, o.ngo_id, o.created_at, o.updated_at`

// Repository handles opportunity persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an opportunity repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanOpportunity(row pgx.Row, o *models.Opportunity) error {
	return row.Scan(&o.ID, &o.Title, &o.Description, &o.Skills, &o.Duration, &o.Location,
		&o.Stipend, &o.StartDate, &o.EndDate, &o.ApplyDeadline, &o.Status, &o.NGOID, &o.CreatedAt, &o.UpdatedAt)
}

func translateDuplicate(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateTitle
	}
	return err
}

// Create inserts a new opportunity. The (ngo_id, lower(title)) unique index is the
// authoritative duplicate guard; its violation is returned as ErrDuplicateTitle.
func (r *Repository) Create(ctx context.Context, o *models.Opportunity) error {
	const q = `INSERT INTO opportunities (title, description, skills, duration, location, stipend, start_date, end_date, apply_deadline, status, ngo_id)
		VALUES ($1, $2, $3, NULLIF($4,''), NULLIF($5,''), $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at`
	skills := o.Skills
	if skills == nil {
		skills = []string{}
	}
	err := r.pool.QueryRow(ctx, q, o.Title, o.Description, skills, o.Duration, o.Location,
		o.Stipend, o.StartDate, o.EndDate, o.ApplyDeadline, string(o.Status), o.NGOID).
		Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return translateDuplicate(err)
	}
	return nil
}

// GetByID returns an opportunity by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Opportunity, error) {
	var o models.Opportunity
	err := scanOpportunity(r.pool.QueryRow(ctx,
		`SELECT `+opportunityColumns+` FROM opportunities o WHERE o.id = $1`, id), &o)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

// TitleExists reports whether the NGO already owns an opportunity with the normalized
// title, optionally excluding one record (for updates). This is the friendly pre-check;
// the unique index remains the race-safe guard.
func (r *Repository) TitleExists(ctx context.Context, ngoID uuid.UUID, title string, exclude *uuid.UUID) (bool, error) {
	q := `SELECT EXISTS (SELECT 1 FROM opportunities WHERE ngo_id = $1 AND lower(title) = lower($2)`
	args := []interface{}{ngoID, title}
	if exclude != nil {
		q += ` AND id <> $3`
		args = append(args, *exclude)
	}
	q += `)`
	var exists bool
	err := r.pool.QueryRow(ctx, q, args...).Scan(&exists)
	return exists, err
}

// Update persists all mutable fields of the (already merged and validated) record.
func (r *Repository) Update(ctx context.Context, o *models.Opportunity) error {
	const q = `UPDATE opportunities SET title = $1, description = $2, skills = $3, duration = NULLIF($4,''),
		location = NULLIF($5,''), stipend = $6, start_date = $7, end_date = $8, apply_deadline = $9,
		status = $10, updated_at = NOW()
		WHERE id = $11
		RETURNING updated_at`
	skills := o.Skills
	if skills == nil {
		skills = []string{}
	}
	err := r.pool.QueryRow(ctx, q, o.Title, o.Description, skills, o.Duration, o.Location,
		o.Stipend, o.StartDate, o.EndDate, o.ApplyDeadline, string(o.Status), o.ID).
		Scan(&o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return translateDuplicate(err)
	}
	return nil
}

// Delete removes an opportunity. Dependent applications cascade at the schema level.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM opportunities WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// buildFilter renders the WHERE clause for the public listing. Expired postings
// (apply_deadline in the past) are always hidden.
func buildFilter(f ListFilter) (string, []interface{}) {
	conds := []string{"o.apply_deadline >= NOW()"}
	var args []interface{}

	next := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Search != "" {
		p := next("%" + f.Search + "%")
		conds = append(conds, fmt.Sprintf(
			"(o.title ILIKE %[1]s OR o.description ILIKE %[1]s OR EXISTS (SELECT 1 FROM unnest(o.skills) sk WHERE sk ILIKE %[1]s))", p))
	}
	if f.Location != "" {
		conds = append(conds, "o.location = "+next(f.Location))
	}
	if f.NGO != nil {
		conds = append(conds, "o.ngo_id = "+next(*f.NGO))
	}
	if f.Skill != "" {
		conds = append(conds, next(f.Skill)+" = ANY(o.skills)")
	}
	if f.Status != "" {
		conds = append(conds, "o.status = "+next(string(f.Status)))
	}
	if f.MinStipend != nil {
		conds = append(conds, "o.stipend >= "+next(*f.MinStipend))
	}
	if f.MaxStipend != nil {
		conds = append(conds, "o.stipend <= "+next(*f.MaxStipend))
	}

	return "WHERE " + strings.Join(conds, " AND "), args
}

// ListOpen returns the filtered, paginated public listing (newest first), each row
// enriched with the owning NGO's name and email, plus the total match count.
func (r *Repository) ListOpen(ctx context.Context, f ListFilter) ([]models.OpportunityWithNGO, int, error) {
	where, args := buildFilter(f)

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM opportunities o `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := `SELECT ` + opportunityColumns + `, u.id, u.name, u.email
		FROM opportunities o
		JOIN users u ON u.id = o.ngo_id ` + where +
		fmt.Sprintf(` ORDER BY o.created_at DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, f.Limit, (f.Page-1)*f.Limit)

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var list []models.OpportunityWithNGO
	for rows.Next() {
		var item models.OpportunityWithNGO
		if err := rows.Scan(&item.ID, &item.Title, &item.Description, &item.Skills, &item.Duration, &item.Location,
			&item.Stipend, &item.StartDate, &item.EndDate, &item.ApplyDeadline, &item.Status, &item.NGOID,
			&item.CreatedAt, &item.UpdatedAt,
			&item.NGO.ID, &item.NGO.Name, &item.NGO.Email); err != nil {
			return nil, 0, err
		}
		list = append(list, item)
	}
	return list, total, rows.Err()
}

// ListByNGO returns all opportunities owned by the NGO, unfiltered, newest first.
func (r *Repository) ListByNGO(ctx context.Context, ngoID uuid.UUID) ([]models.Opportunity, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+opportunityColumns+` FROM opportunities o WHERE o.ngo_id = $1 ORDER BY o.created_at DESC`, ngoID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.Opportunity
	for rows.Next() {
		var o models.Opportunity
		if err := scanOpportunity(rows, &o); err != nil {
			return nil, err
		}
		list = append(list, o)
	}
	return list, rows.Err()
}

// CountByNGO returns total/open/closed counts for the NGO's dashboard.
func (r *Repository) CountByNGO(ctx context.Context, ngoID uuid.UUID) (*models.DashboardStats, error) {
	const q = `SELECT COUNT(*),
		COUNT(*) FILTER (WHERE status = 'Open'),
		COUNT(*) FILTER (WHERE status = 'Closed')
		FROM opportunities WHERE ngo_id = $1`
	var stats models.DashboardStats
	err := r.pool.QueryRow(ctx, q, ngoID).Scan(&stats.TotalOpportunities, &stats.OpenOpportunities, &stats.ClosedOpportunities)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}
