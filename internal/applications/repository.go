package applications

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/volunteerhub/backend/internal/models"
)

var (
	// ErrNotFound is returned when no application matches the lookup.
	ErrNotFound = errors.New("application not found")
	// ErrDuplicate is returned when the (opportunity, volunteer) unique constraint is violated.
	ErrDuplicate = errors.New("already applied to this opportunity")
)

// Repository handles application persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an applications repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a pending application. The unique (opportunity_id, volunteer_id)
// constraint is the authoritative duplicate guard; violations come back as ErrDuplicate.
func (r *Repository) Create(ctx context.Context, a *models.Application) error {
	const q = `INSERT INTO applications (opportunity_id, volunteer_id, message, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, q, a.OpportunityID, a.VolunteerID, a.Message, string(a.Status)).
		Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// Exists reports whether the volunteer already has an application for the opportunity.
// Friendly pre-check only; the unique constraint closes the race window.
func (r *Repository) Exists(ctx context.Context, opportunityID, volunteerID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM applications WHERE opportunity_id = $1 AND volunteer_id = $2)`,
		opportunityID, volunteerID).Scan(&exists)
	return exists, err
}

// GetWithOwner returns an application together with the NGO owning its opportunity,
// for the accept/reject ownership check.
func (r *Repository) GetWithOwner(ctx context.Context, id uuid.UUID) (*models.Application, uuid.UUID, error) {
	const q = `SELECT a.id, a.opportunity_id, a.volunteer_id, a.message, a.status, a.created_at, a.updated_at, o.ngo_id
		FROM applications a
		JOIN opportunities o ON o.id = a.opportunity_id
		WHERE a.id = $1`
	var a models.Application
	var ngoID uuid.UUID
	err := r.pool.QueryRow(ctx, q, id).Scan(&a.ID, &a.OpportunityID, &a.VolunteerID, &a.Message, &a.Status,
		&a.CreatedAt, &a.UpdatedAt, &ngoID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, uuid.Nil, ErrNotFound
		}
		return nil, uuid.Nil, err
	}
	return &a, ngoID, nil
}

// UpdateStatus sets the application status.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.ApplicationStatus) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE applications SET status = $1, updated_at = NOW() WHERE id = $2`, string(status), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteByPair removes the volunteer's application for the opportunity (withdrawal).
// Deletion rather than a stored terminal state frees the pair for re-application.
func (r *Repository) DeleteByPair(ctx context.Context, opportunityID, volunteerID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM applications WHERE opportunity_id = $1 AND volunteer_id = $2`, opportunityID, volunteerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByVolunteer returns the volunteer's applications, newest first, each enriched
// with the opportunity's title, location and status.
func (r *Repository) ListByVolunteer(ctx context.Context, volunteerID uuid.UUID) ([]models.ApplicationWithOpportunity, error) {
	const q = `SELECT a.id, a.opportunity_id, a.volunteer_id, a.message, a.status, a.created_at, a.updated_at,
		o.id, o.title, COALESCE(o.location,''), o.status
		FROM applications a
		JOIN opportunities o ON o.id = a.opportunity_id
		WHERE a.volunteer_id = $1
		ORDER BY a.created_at DESC`
	rows, err := r.pool.Query(ctx, q, volunteerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.ApplicationWithOpportunity
	for rows.Next() {
		var item models.ApplicationWithOpportunity
		if err := rows.Scan(&item.ID, &item.OpportunityID, &item.VolunteerID, &item.Message, &item.Status,
			&item.CreatedAt, &item.UpdatedAt,
			&item.Opportunity.ID, &item.Opportunity.Title, &item.Opportunity.Location, &item.Opportunity.Status); err != nil {
			return nil, err
		}
		list = append(list, item)
	}
	return list, rows.Err()
}

// ListByOpportunity returns all applications for an opportunity, newest first, each
// enriched with the applicant's name and email.
func (r *Repository) ListByOpportunity(ctx context.Context, opportunityID uuid.UUID) ([]models.ApplicationWithVolunteer, error) {
	const q = `SELECT a.id, a.opportunity_id, a.volunteer_id, a.message, a.status, a.created_at, a.updated_at,
		u.id, u.name, u.email
		FROM applications a
		JOIN users u ON u.id = a.volunteer_id
		WHERE a.opportunity_id = $1
		ORDER BY a.created_at DESC`
	rows, err := r.pool.Query(ctx, q, opportunityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.ApplicationWithVolunteer
	for rows.Next() {
		var item models.ApplicationWithVolunteer
		if err := rows.Scan(&item.ID, &item.OpportunityID, &item.VolunteerID, &item.Message, &item.Status,
			&item.CreatedAt, &item.UpdatedAt,
			&item.Volunteer.ID, &item.Volunteer.Name, &item.Volunteer.Email); err != nil {
			return nil, err
		}
		list = append(list, item)
	}
	return list, rows.Err()
}
