package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/healthhub/healthhub-service/internal/domain"
)

// ClinicianFilter narrows List. Nil or empty fields are ignored; a non-nil IDs
// restricts the result to those ids, so an empty slice matches nothing.
type ClinicianFilter struct {
	IsActive *bool
	Verified *bool
	IDs      []string
}

// Matches evaluates the filter against a clinician in memory.
func (f ClinicianFilter) Matches(c *domain.Clinician) bool {
	if f.IsActive != nil && c.IsActive != *f.IsActive {
		return false
	}
	if f.Verified != nil && c.Verified != *f.Verified {
		return false
	}
	if f.IDs != nil && !containsID(f.IDs, c.ID) {
		return false
	}
	return true
}

// ClinicianRepository defines persistence access for doctors.
type ClinicianRepository interface {
	Create(ctx context.Context, clinician *domain.Clinician) error
	Update(ctx context.Context, clinician *domain.Clinician) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Clinician, error)
	GetByEmail(ctx context.Context, email string) (*domain.Clinician, error)
	List(ctx context.Context, filter ClinicianFilter) ([]domain.Clinician, error)
	MarkVerified(ctx context.Context, id string) error
}

type clinicianRepository struct {
	pool *pgxpool.Pool
}

// NewClinicianRepository returns a Postgres-backed implementation.
func NewClinicianRepository(pool *pgxpool.Pool) ClinicianRepository {
	return &clinicianRepository{pool: pool}
}

const clinicianColumns = `id, first_name, last_name, email, password_hash, phone_number, verified, is_active, created_at, updated_at`

func (r *clinicianRepository) Create(ctx context.Context, c *domain.Clinician) error {
	const query = `
        INSERT INTO clinicians (first_name, last_name, email, password_hash, phone_number, verified, is_active)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id, created_at, updated_at`

	c.Email = domain.NormalizeEmail(c.Email)
	err := r.pool.QueryRow(ctx, query,
		c.FirstName,
		c.LastName,
		c.Email,
		c.PasswordHash,
		c.PhoneNumber,
		c.Verified,
		c.IsActive,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	return mapPgError(err)
}

func (r *clinicianRepository) Update(ctx context.Context, c *domain.Clinician) error {
	const query = `
        UPDATE clinicians
        SET first_name=$1, last_name=$2, email=$3, password_hash=$4, phone_number=$5, verified=$6, is_active=$7, updated_at=NOW()
        WHERE id=$8
        RETURNING updated_at`

	c.Email = domain.NormalizeEmail(c.Email)
	err := r.pool.QueryRow(ctx, query,
		c.FirstName,
		c.LastName,
		c.Email,
		c.PasswordHash,
		c.PhoneNumber,
		c.Verified,
		c.IsActive,
		c.ID,
	).Scan(&c.UpdatedAt)
	return mapPgError(err)
}

// Delete removes a clinician outright. Accounts are normally soft-deleted
// through Update; this only undoes a registration that could not complete.
func (r *clinicianRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM clinicians WHERE id=$1`, id)
	if err != nil {
		return mapPgError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *clinicianRepository) GetByID(ctx context.Context, id string) (*domain.Clinician, error) {
	query := `SELECT ` + clinicianColumns + ` FROM clinicians WHERE id=$1`
	return scanClinician(r.pool.QueryRow(ctx, query, id))
}

func (r *clinicianRepository) GetByEmail(ctx context.Context, email string) (*domain.Clinician, error) {
	query := `SELECT ` + clinicianColumns + ` FROM clinicians WHERE email=$1`
	return scanClinician(r.pool.QueryRow(ctx, query, domain.NormalizeEmail(email)))
}

func (r *clinicianRepository) List(ctx context.Context, filter ClinicianFilter) ([]domain.Clinician, error) {
	var conds conditions
	if filter.IsActive != nil {
		conds.add("is_active=$%d", *filter.IsActive)
	}
	if filter.Verified != nil {
		conds.add("verified=$%d", *filter.Verified)
	}
	if filter.IDs != nil {
		conds.add("id::text = ANY($%d)", filter.IDs)
	}
	query := `SELECT ` + clinicianColumns + ` FROM clinicians` + conds.where() + ` ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query, conds.args...)
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()

	out := make([]domain.Clinician, 0)
	for rows.Next() {
		c, err := scanClinician(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, mapPgError(rows.Err())
}

func (r *clinicianRepository) MarkVerified(ctx context.Context, id string) error {
	const query = `UPDATE clinicians SET verified=TRUE, updated_at=NOW() WHERE id=$1`
	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return mapPgError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanClinician(row pgx.Row) (*domain.Clinician, error) {
	var c domain.Clinician
	if err := row.Scan(
		&c.ID,
		&c.FirstName,
		&c.LastName,
		&c.Email,
		&c.PasswordHash,
		&c.PhoneNumber,
		&c.Verified,
		&c.IsActive,
		&c.CreatedAt,
		&c.UpdatedAt,
	); err != nil {
		return nil, mapPgError(err)
	}
	return &c, nil
}

func containsID(ids []string, id string) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
