package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/healthhub/healthhub-service/internal/domain"
)

// ProgramFilter narrows List. PatientID keeps programs the patient has ever
// been enrolled in.
type ProgramFilter struct {
	IsActive      *bool
	Type          domain.ProgramType
	CoordinatorID string
	PatientID     string
}

// Matches evaluates the filter against a program in memory.
func (f ProgramFilter) Matches(p *domain.Program) bool {
	if f.IsActive != nil && p.IsActive != *f.IsActive {
		return false
	}
	if f.Type != "" && p.Type != f.Type {
		return false
	}
	if f.CoordinatorID != "" && p.CoordinatorID != f.CoordinatorID {
		return false
	}
	if f.PatientID != "" && len(p.ParticipantsOf(f.PatientID)) == 0 {
		return false
	}
	return true
}

// ProgramRepository persists care programs and their participants. Reads
// always return the participants, oldest enrollment first.
type ProgramRepository interface {
	Create(ctx context.Context, program *domain.Program) error
	// Update writes the program's own fields; participants are untouched.
	Update(ctx context.Context, program *domain.Program) error
	GetByID(ctx context.Context, id string) (*domain.Program, error)
	List(ctx context.Context, filter ProgramFilter) ([]domain.Program, error)
	// AddParticipant returns ErrDuplicate when the patient is already active
	// in the program.
	AddParticipant(ctx context.Context, programID string, participant *domain.Participant) error
	UpdateParticipant(ctx context.Context, programID string, participant *domain.Participant) error
	RemoveParticipant(ctx context.Context, programID, participantID string) error
}

type programRepository struct {
	pool *pgxpool.Pool
}

// NewProgramRepository returns a Postgres-backed implementation.
func NewProgramRepository(pool *pgxpool.Pool) ProgramRepository {
	return &programRepository{pool: pool}
}

const programColumns = `id, name, description, type, capacity, start_date, end_date, is_active, coordinator_id, created_at, updated_at`

const participantColumns = `id, program_id, patient_id, admission_date, discharge_date, status, notes`

func (r *programRepository) Create(ctx context.Context, p *domain.Program) error {
	const query = `
        INSERT INTO programs (name, description, type, capacity, start_date, end_date, is_active, coordinator_id)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING id, created_at, updated_at`

	err := r.pool.QueryRow(ctx, query,
		p.Name,
		p.Description,
		string(p.Type),
		p.Capacity,
		p.StartDate,
		p.EndDate,
		p.IsActive,
		p.CoordinatorID,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	return mapPgError(err)
}

func (r *programRepository) Update(ctx context.Context, p *domain.Program) error {
	const query = `
        UPDATE programs
        SET name=$1, description=$2, type=$3, capacity=$4, start_date=$5, end_date=$6, is_active=$7, updated_at=NOW()
        WHERE id=$8
        RETURNING updated_at`

	err := r.pool.QueryRow(ctx, query,
		p.Name,
		p.Description,
		string(p.Type),
		p.Capacity,
		p.StartDate,
		p.EndDate,
		p.IsActive,
		p.ID,
	).Scan(&p.UpdatedAt)
	return mapPgError(err)
}

func (r *programRepository) GetByID(ctx context.Context, id string) (*domain.Program, error) {
	query := `SELECT ` + programColumns + ` FROM programs WHERE id=$1`
	p, err := scanProgram(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}
	programs := []domain.Program{*p}
	if err := r.attachParticipants(ctx, programs); err != nil {
		return nil, err
	}
	return &programs[0], nil
}

func (r *programRepository) List(ctx context.Context, filter ProgramFilter) ([]domain.Program, error) {
	var conds conditions
	if filter.IsActive != nil {
		conds.add("is_active=$%d", *filter.IsActive)
	}
	if filter.Type != "" {
		conds.add("type=$%d", string(filter.Type))
	}
	if filter.CoordinatorID != "" {
		conds.add("coordinator_id::text=$%d", filter.CoordinatorID)
	}
	if filter.PatientID != "" {
		conds.add("EXISTS (SELECT 1 FROM program_participants pp WHERE pp.program_id = programs.id AND pp.patient_id::text = $%d)", filter.PatientID)
	}
	query := `SELECT ` + programColumns + ` FROM programs` + conds.where() + ` ORDER BY start_date, created_at`

	rows, err := r.pool.Query(ctx, query, conds.args...)
	if err != nil {
		return nil, mapPgError(err)
	}
	programs := make([]domain.Program, 0)
	for rows.Next() {
		p, err := scanProgram(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		programs = append(programs, *p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, mapPgError(err)
	}

	if err := r.attachParticipants(ctx, programs); err != nil {
		return nil, err
	}
	return programs, nil
}

func (r *programRepository) AddParticipant(ctx context.Context, programID string, pt *domain.Participant) error {
	const query = `
        INSERT INTO program_participants (program_id, patient_id, admission_date, discharge_date, status, notes)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id`

	err := r.pool.QueryRow(ctx, query,
		programID,
		pt.PatientID,
		pt.AdmissionDate,
		pt.DischargeDate,
		string(pt.Status),
		pt.Notes,
	).Scan(&pt.ID)
	return mapPgError(err)
}

func (r *programRepository) UpdateParticipant(ctx context.Context, programID string, pt *domain.Participant) error {
	const query = `
        UPDATE program_participants
        SET discharge_date=$1, status=$2, notes=$3
        WHERE id=$4 AND program_id=$5`

	cmd, err := r.pool.Exec(ctx, query, pt.DischargeDate, string(pt.Status), pt.Notes, pt.ID, programID)
	if err != nil {
		return mapPgError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *programRepository) RemoveParticipant(ctx context.Context, programID, participantID string) error {
	const query = `DELETE FROM program_participants WHERE id=$1 AND program_id=$2`
	cmd, err := r.pool.Exec(ctx, query, participantID, programID)
	if err != nil {
		return mapPgError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// attachParticipants loads the participants of every program in one query.
func (r *programRepository) attachParticipants(ctx context.Context, programs []domain.Program) error {
	if len(programs) == 0 {
		return nil
	}
	ids := make([]string, len(programs))
	index := make(map[string]int, len(programs))
	for i, p := range programs {
		ids[i] = p.ID
		index[p.ID] = i
	}

	query := `SELECT ` + participantColumns + ` FROM program_participants
        WHERE program_id::text = ANY($1)
        ORDER BY admission_date, id`
	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return mapPgError(err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			pt        domain.Participant
			programID string
			status    string
		)
		if err := rows.Scan(
			&pt.ID,
			&programID,
			&pt.PatientID,
			&pt.AdmissionDate,
			&pt.DischargeDate,
			&status,
			&pt.Notes,
		); err != nil {
			return mapPgError(err)
		}
		pt.Status = domain.ParticipantStatus(status)
		if i, ok := index[programID]; ok {
			programs[i].Participants = append(programs[i].Participants, pt)
		}
	}
	return mapPgError(rows.Err())
}

func scanProgram(row pgx.Row) (*domain.Program, error) {
	var (
		p        domain.Program
		kind     string
		capacity *int32
	)
	if err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&kind,
		&capacity,
		&p.StartDate,
		&p.EndDate,
		&p.IsActive,
		&p.CoordinatorID,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		return nil, mapPgError(err)
	}
	p.Type = domain.ProgramType(kind)
	if capacity != nil {
		c := int(*capacity)
		p.Capacity = &c
	}
	return &p, nil
}
