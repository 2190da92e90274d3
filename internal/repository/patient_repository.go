package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/healthhub/healthhub-service/internal/domain"
)

// PatientFilter narrows List. ClinicianID keeps patients on that clinician's
// care team; a non-nil IDs restricts the result to those ids.
type PatientFilter struct {
	IsActive    *bool
	ClinicianID string
	IDs         []string
}

// Matches evaluates the filter against a patient in memory.
func (f PatientFilter) Matches(p *domain.Patient) bool {
	if f.IsActive != nil && p.IsActive != *f.IsActive {
		return false
	}
	if f.ClinicianID != "" && !p.HasClinician(f.ClinicianID) {
		return false
	}
	if f.IDs != nil && !containsID(f.IDs, p.ID) {
		return false
	}
	return true
}

// PatientRepository defines persistence access for patients.
type PatientRepository interface {
	Create(ctx context.Context, patient *domain.Patient) error
	Update(ctx context.Context, patient *domain.Patient) error
	GetByID(ctx context.Context, id string) (*domain.Patient, error)
	GetByEmail(ctx context.Context, email string) (*domain.Patient, error)
	List(ctx context.Context, filter PatientFilter) ([]domain.Patient, error)
	// AssignClinician returns ErrDuplicate when the pair already exists.
	AssignClinician(ctx context.Context, patientID, clinicianID string) error
	// UnassignClinician returns ErrNotFound when the pair does not exist.
	UnassignClinician(ctx context.Context, patientID, clinicianID string) error
}

type patientRepository struct {
	pool *pgxpool.Pool
}

// NewPatientRepository returns a Postgres-backed implementation.
func NewPatientRepository(pool *pgxpool.Pool) PatientRepository {
	return &patientRepository{pool: pool}
}

const patientColumns = `p.id, p.first_name, p.last_name, p.email, p.password_hash, p.date_of_birth, p.gender,
        p.phone_number, p.address, p.emergency_contact_name, p.emergency_contact_relationship,
        p.emergency_contact_phone, p.updated_password, p.is_active, p.created_at, p.updated_at,
        ARRAY(SELECT pc.clinician_id::text FROM patient_clinicians pc WHERE pc.patient_id = p.id ORDER BY pc.assigned_at)`

func (r *patientRepository) Create(ctx context.Context, p *domain.Patient) error {
	const query = `
        INSERT INTO patients (first_name, last_name, email, password_hash, date_of_birth, gender, phone_number, address,
            emergency_contact_name, emergency_contact_relationship, emergency_contact_phone, updated_password, is_active)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
        RETURNING id, created_at, updated_at`

	p.Email = domain.NormalizeEmail(p.Email)
	err := r.pool.QueryRow(ctx, query,
		p.FirstName,
		p.LastName,
		p.Email,
		p.PasswordHash,
		p.DateOfBirth,
		p.Gender,
		p.PhoneNumber,
		p.Address,
		p.EmergencyContact.Name,
		p.EmergencyContact.Relationship,
		p.EmergencyContact.PhoneNumber,
		p.UpdatedPassword,
		p.IsActive,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	return mapPgError(err)
}

func (r *patientRepository) Update(ctx context.Context, p *domain.Patient) error {
	const query = `
        UPDATE patients
        SET first_name=$1, last_name=$2, email=$3, password_hash=$4, date_of_birth=$5, gender=$6,
            phone_number=$7, address=$8, emergency_contact_name=$9, emergency_contact_relationship=$10,
            emergency_contact_phone=$11, updated_password=$12, is_active=$13, updated_at=NOW()
        WHERE id=$14
        RETURNING updated_at`

	p.Email = domain.NormalizeEmail(p.Email)
	err := r.pool.QueryRow(ctx, query,
		p.FirstName,
		p.LastName,
		p.Email,
		p.PasswordHash,
		p.DateOfBirth,
		p.Gender,
		p.PhoneNumber,
		p.Address,
		p.EmergencyContact.Name,
		p.EmergencyContact.Relationship,
		p.EmergencyContact.PhoneNumber,
		p.UpdatedPassword,
		p.IsActive,
		p.ID,
	).Scan(&p.UpdatedAt)
	return mapPgError(err)
}

func (r *patientRepository) GetByID(ctx context.Context, id string) (*domain.Patient, error) {
	query := `SELECT ` + patientColumns + ` FROM patients p WHERE p.id=$1`
	return scanPatient(r.pool.QueryRow(ctx, query, id))
}

func (r *patientRepository) GetByEmail(ctx context.Context, email string) (*domain.Patient, error) {
	query := `SELECT ` + patientColumns + ` FROM patients p WHERE p.email=$1`
	return scanPatient(r.pool.QueryRow(ctx, query, domain.NormalizeEmail(email)))
}

func (r *patientRepository) List(ctx context.Context, filter PatientFilter) ([]domain.Patient, error) {
	var conds conditions
	if filter.IsActive != nil {
		conds.add("p.is_active=$%d", *filter.IsActive)
	}
	if filter.ClinicianID != "" {
		conds.add("EXISTS (SELECT 1 FROM patient_clinicians pc WHERE pc.patient_id = p.id AND pc.clinician_id::text = $%d)", filter.ClinicianID)
	}
	if filter.IDs != nil {
		conds.add("p.id::text = ANY($%d)", filter.IDs)
	}
	query := `SELECT ` + patientColumns + ` FROM patients p` + conds.where() + ` ORDER BY p.created_at`

	rows, err := r.pool.Query(ctx, query, conds.args...)
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()

	out := make([]domain.Patient, 0)
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, mapPgError(rows.Err())
}

func (r *patientRepository) AssignClinician(ctx context.Context, patientID, clinicianID string) error {
	const query = `INSERT INTO patient_clinicians (patient_id, clinician_id) VALUES ($1, $2)`
	_, err := r.pool.Exec(ctx, query, patientID, clinicianID)
	return mapPgError(err)
}

func (r *patientRepository) UnassignClinician(ctx context.Context, patientID, clinicianID string) error {
	const query = `DELETE FROM patient_clinicians WHERE patient_id=$1 AND clinician_id=$2`
	cmd, err := r.pool.Exec(ctx, query, patientID, clinicianID)
	if err != nil {
		return mapPgError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanPatient(row pgx.Row) (*domain.Patient, error) {
	var p domain.Patient
	if err := row.Scan(
		&p.ID,
		&p.FirstName,
		&p.LastName,
		&p.Email,
		&p.PasswordHash,
		&p.DateOfBirth,
		&p.Gender,
		&p.PhoneNumber,
		&p.Address,
		&p.EmergencyContact.Name,
		&p.EmergencyContact.Relationship,
		&p.EmergencyContact.PhoneNumber,
		&p.UpdatedPassword,
		&p.IsActive,
		&p.CreatedAt,
		&p.UpdatedAt,
		&p.AssignedClinicianIDs,
	); err != nil {
		return nil, mapPgError(err)
	}
	return &p, nil
}
