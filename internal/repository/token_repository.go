package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/healthhub/healthhub-service/internal/domain"
)

// TokenFilter selects ledger records. Value is mandatory; other empty fields are
// ignored. A non-zero ActiveAt requires expires_at to be after it.
type TokenFilter struct {
	SubjectID string
	Value     string
	Purpose   domain.TokenPurpose
	ValidOnly bool
	ActiveAt  time.Time
}

// Matches evaluates the filter against a record in memory.
func (f TokenFilter) Matches(rec *domain.TokenRecord) bool {
	if rec == nil || f.Value == "" || rec.Value != f.Value {
		return false
	}
	if f.SubjectID != "" && rec.SubjectID != f.SubjectID {
		return false
	}
	if f.Purpose != "" && rec.Purpose != f.Purpose {
		return false
	}
	if f.ValidOnly && !rec.Valid {
		return false
	}
	if !f.ActiveAt.IsZero() && !rec.ExpiresAt.After(f.ActiveAt) {
		return false
	}
	return true
}

func (f TokenFilter) where() (string, []any) {
	conds := make([]string, 0, 5)
	args := make([]any, 0, 4)
	add := func(expr string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(expr, len(args)))
	}

	add("value=$%d", f.Value)
	if f.SubjectID != "" {
		add("subject_id=$%d", f.SubjectID)
	}
	if f.Purpose != "" {
		add("purpose=$%d", string(f.Purpose))
	}
	if f.ValidOnly {
		conds = append(conds, "valid")
	}
	if !f.ActiveAt.IsZero() {
		add("expires_at>$%d", f.ActiveAt)
	}
	return strings.Join(conds, " AND "), args
}

// TokenLedger is the durable store of refresh sessions and one-time tokens.
type TokenLedger interface {
	Create(ctx context.Context, record *domain.TokenRecord) error
	FindOne(ctx context.Context, filter TokenFilter) (*domain.TokenRecord, error)
	// Consume atomically deletes and returns the record matching filter. Of two
	// concurrent callers presenting the same value at most one succeeds.
	Consume(ctx context.Context, filter TokenFilter) (*domain.TokenRecord, error)
	Delete(ctx context.Context, record *domain.TokenRecord) error
	Invalidate(ctx context.Context, value string) error
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

type tokenLedger struct {
	pool *pgxpool.Pool
}

// NewTokenLedger constructs the Postgres ledger.
func NewTokenLedger(pool *pgxpool.Pool) TokenLedger {
	return &tokenLedger{pool: pool}
}

const tokenColumns = `id, subject_id, subject_type, value, purpose, issued_at, expires_at, valid, user_agent, ip_address`

func (r *tokenLedger) Create(ctx context.Context, rec *domain.TokenRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	const query = `
        INSERT INTO auth_tokens (subject_id, subject_type, value, purpose, issued_at, expires_at, valid, user_agent, ip_address)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING id`

	var userAgent, ip *string
	if rec.Device != nil {
		userAgent, ip = &rec.Device.UserAgent, &rec.Device.IPAddress
	}
	err := r.pool.QueryRow(ctx, query,
		rec.SubjectID,
		string(rec.SubjectType),
		rec.Value,
		string(rec.Purpose),
		rec.IssuedAt,
		rec.ExpiresAt,
		rec.Valid,
		userAgent,
		ip,
	).Scan(&rec.ID)
	return mapPgError(err)
}

func (r *tokenLedger) FindOne(ctx context.Context, filter TokenFilter) (*domain.TokenRecord, error) {
	if filter.Value == "" {
		return nil, ErrNotFound
	}
	where, args := filter.where()
	query := `SELECT ` + tokenColumns + ` FROM auth_tokens WHERE ` + where + ` LIMIT 1`
	return scanToken(r.pool.QueryRow(ctx, query, args...))
}

func (r *tokenLedger) Consume(ctx context.Context, filter TokenFilter) (*domain.TokenRecord, error) {
	if filter.Value == "" {
		return nil, ErrNotFound
	}
	where, args := filter.where()
	query := `DELETE FROM auth_tokens WHERE ` + where + ` RETURNING ` + tokenColumns
	return scanToken(r.pool.QueryRow(ctx, query, args...))
}

func (r *tokenLedger) Delete(ctx context.Context, rec *domain.TokenRecord) error {
	const query = `DELETE FROM auth_tokens WHERE id=$1`
	cmd, err := r.pool.Exec(ctx, query, rec.ID)
	if err != nil {
		return mapPgError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *tokenLedger) Invalidate(ctx context.Context, value string) error {
	const query = `UPDATE auth_tokens SET valid=FALSE WHERE value=$1`
	cmd, err := r.pool.Exec(ctx, query, value)
	if err != nil {
		return mapPgError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *tokenLedger) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	const query = `DELETE FROM auth_tokens WHERE expires_at <= $1`
	cmd, err := r.pool.Exec(ctx, query, before)
	if err != nil {
		return 0, mapPgError(err)
	}
	return cmd.RowsAffected(), nil
}

func scanToken(row pgx.Row) (*domain.TokenRecord, error) {
	var (
		rec         domain.TokenRecord
		subjectType string
		purpose     string
		userAgent   *string
		ip          *string
	)
	if err := row.Scan(
		&rec.ID,
		&rec.SubjectID,
		&subjectType,
		&rec.Value,
		&purpose,
		&rec.IssuedAt,
		&rec.ExpiresAt,
		&rec.Valid,
		&userAgent,
		&ip,
	); err != nil {
		return nil, mapPgError(err)
	}
	rec.SubjectType = domain.SubjectKind(subjectType)
	rec.Purpose = domain.TokenPurpose(purpose)
	if userAgent != nil || ip != nil {
		rec.Device = &domain.DeviceInfo{}
		if userAgent != nil {
			rec.Device.UserAgent = *userAgent
		}
		if ip != nil {
			rec.Device.IPAddress = *ip
		}
	}
	return &rec, nil
}
