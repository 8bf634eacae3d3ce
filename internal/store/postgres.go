package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"designcal/internal/apperr"
	appLog "designcal/internal/log"
	"designcal/internal/model"
)

// DB is the subset of *pgxpool.Pool used by Postgres.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const schemaSQL = `CREATE TABLE IF NOT EXISTS appointments (
	id          TEXT PRIMARY KEY,
	kind        TEXT NOT NULL,
	title       TEXT NOT NULL,
	client_name TEXT NOT NULL DEFAULT '',
	designer    TEXT NOT NULL DEFAULT '',
	location    TEXT NOT NULL DEFAULT '',
	notes       TEXT NOT NULL DEFAULT '',
	day         DATE NOT NULL,
	start_time  TIME NOT NULL,
	end_time    TIME NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS appointments_day_idx ON appointments (day, start_time)`

const selectColumns = `id, kind, title, client_name, designer, location, notes, ` +
	`to_char(day, 'YYYY-MM-DD'), to_char(start_time, 'HH24:MI'), to_char(end_time, 'HH24:MI'), created_at`

// Postgres is a Repository backed by a PostgreSQL appointments table.
type Postgres struct {
	db DB
}

func NewPostgres(db DB) *Postgres {
	return &Postgres{db: db}
}

// Connect opens and pings a connection pool for dsn.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database connection string: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

// EnsureSchema creates the appointments table if it is missing.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

func (p *Postgres) Save(ctx context.Context, appt *model.Appointment) (*model.Appointment, error) {
	saved := *appt
	if saved.ID == "" {
		saved.ID = uuid.NewString()
	}

	tx, err := p.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	err = tx.QueryRow(ctx,
		`INSERT INTO appointments (id, kind, title, client_name, designer, location, notes, day, start_time, end_time)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8::date, $9::time, $10::time)
		 ON CONFLICT (id) DO UPDATE SET
			kind = EXCLUDED.kind, title = EXCLUDED.title, client_name = EXCLUDED.client_name,
			designer = EXCLUDED.designer, location = EXCLUDED.location, notes = EXCLUDED.notes,
			day = EXCLUDED.day, start_time = EXCLUDED.start_time, end_time = EXCLUDED.end_time
		 RETURNING created_at`,
		saved.ID, string(saved.Kind), saved.Title, saved.ClientName, saved.Designer, saved.Location, saved.Notes,
		saved.Date, saved.StartTime, saved.EndTime,
	).Scan(&saved.CreatedAt)
	if err != nil {
		_ = tx.Rollback(ctx)
		return nil, fmt.Errorf("failed to save appointment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		_ = tx.Rollback(ctx)
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	appLog.Debug("appointment saved", "id", saved.ID, "date", saved.Date)
	return &saved, nil
}

func (p *Postgres) Get(ctx context.Context, id string) (*model.Appointment, error) {
	row := p.db.QueryRow(ctx, `SELECT `+selectColumns+` FROM appointments WHERE id = $1`, id)

	a, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return &a, nil
}

func (p *Postgres) Delete(ctx context.Context, id string) error {
	tag, err := p.db.Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete appointment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (p *Postgres) ListByDate(ctx context.Context, date string) ([]model.Appointment, error) {
	return p.ListBetween(ctx, date, date)
}

func (p *Postgres) ListBetween(ctx context.Context, from, to string) ([]model.Appointment, error) {
	rows, err := p.db.Query(ctx,
		`SELECT `+selectColumns+` FROM appointments
		 WHERE day BETWEEN $1::date AND $2::date
		 ORDER BY day, start_time, id`,
		from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}

	appts, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Appointment, error) {
		return scanAppointment(row)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read appointments: %w", err)
	}
	return appts, nil
}

func scanAppointment(row pgx.Row) (model.Appointment, error) {
	var (
		a    model.Appointment
		kind string
	)
	err := row.Scan(&a.ID, &kind, &a.Title, &a.ClientName, &a.Designer, &a.Location, &a.Notes,
		&a.Date, &a.StartTime, &a.EndTime, &a.CreatedAt)
	a.Kind = model.Kind(kind)
	return a, err
}
