package auth

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
	// ErrNotFound is returned when no user matches the lookup.
	ErrNotFound = errors.New("user not found")
	// ErrEmailTaken is returned when the email unique constraint is violated.
	ErrEmailTaken = errors.New("email already registered")
)

const userColumns = `id, name, email, password_hash, role,
	COALESCE(location,''), skills, COALESCE(organization_name,''), COALESCE(description,''), COALESCE(website,''),
	created_at, updated_at`

// Repository handles user persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a user repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Password, &u.Role,
		&u.Location, &u.Skills, &u.OrganizationName, &u.Description, &u.Website,
		&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// GetByID returns a user by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// GetByEmail returns a user by email regardless of role.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

// GetByEmailAndRole returns a user by email scoped to a role. Login is role-scoped:
// an NGO email cannot log in through the volunteer endpoint.
func (r *Repository) GetByEmailAndRole(ctx context.Context, email string, role models.Role) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1 AND role = $2`, email, string(role)))
}

// Create inserts a new user. A users_email_key violation is returned as ErrEmailTaken;
// the constraint is the authoritative guard against concurrent duplicate registrations.
func (r *Repository) Create(ctx context.Context, u *models.User) error {
	const q = `INSERT INTO users (name, email, password_hash, role, location, skills, organization_name, description, website)
		VALUES ($1, $2, $3, $4, NULLIF($5,''), $6, NULLIF($7,''), NULLIF($8,''), NULLIF($9,''))
		RETURNING id, created_at, updated_at`
	skills := u.Skills
	if skills == nil {
		skills = []string{}
	}
	err := r.pool.QueryRow(ctx, q, u.Name, u.Email, u.Password, string(u.Role),
		u.Location, skills, u.OrganizationName, u.Description, u.Website).
		Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrEmailTaken
		}
		return err
	}
	return nil
}
