package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/signals-cli/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock's pool
// satisfies it, which keeps the Postgres paths testable without a server.
type Pool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore backs Store with a pgx connection pool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// PoolConfig overrides pool sizing. Zero-valued fields keep the defaults.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements names the hot-path queries pinned on every new
// connection so pgx skips re-parsing them.
var preparedStatements = map[string]string{
	"insert_run":        `INSERT INTO signal_runs (id, mode, status, stats, cost, error, started_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
	"update_run_status": `UPDATE signal_runs SET status = $1 WHERE id = $2`,
	"get_run":           `SELECT id, mode, status, stats, cost, error, started_at, completed_at FROM signal_runs WHERE id = $1`,
	"insert_lead":       `INSERT INTO leads (id, run_id, domain, company_name, score, status, record, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
	"mark_seen":         `INSERT INTO seen_domains (domain, last_seen) VALUES ($1, $2) ON CONFLICT (domain) DO UPDATE SET last_seen = excluded.last_seen`,
	"was_seen":          `SELECT last_seen FROM seen_domains WHERE domain = $1`,
	"is_dnc":            `SELECT 1 FROM dnc WHERE domain = $1`,
}

// NewPostgres opens a pool against connString and verifies it with a ping.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	if poolCfg != nil && poolCfg.MaxConns > 0 {
		pgxCfg.MaxConns = poolCfg.MaxConns
	}
	if poolCfg != nil && poolCfg.MinConns > 0 {
		pgxCfg.MinConns = poolCfg.MinConns
	}
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS signal_runs (
	id           TEXT PRIMARY KEY,
	mode         TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'running',
	stats        JSONB,
	cost         JSONB,
	error        TEXT,
	started_at   TIMESTAMPTZ NOT NULL,
	completed_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS leads (
	id           TEXT PRIMARY KEY,
	run_id       TEXT NOT NULL REFERENCES signal_runs(id),
	domain       TEXT NOT NULL,
	company_name TEXT NOT NULL,
	score        DOUBLE PRECISION NOT NULL,
	status       TEXT NOT NULL DEFAULT 'new',
	record       JSONB NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS seen_domains (
	domain    TEXT PRIMARY KEY,
	last_seen TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS dnc (
	domain   TEXT PRIMARY KEY,
	reason   TEXT,
	added_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_signal_runs_status ON signal_runs(status);
CREATE INDEX IF NOT EXISTS idx_signal_runs_started ON signal_runs(started_at DESC);
CREATE INDEX IF NOT EXISTS idx_leads_run_id ON leads(run_id);
CREATE INDEX IF NOT EXISTS idx_leads_status ON leads(status);
CREATE INDEX IF NOT EXISTS idx_leads_domain ON leads(domain);
CREATE INDEX IF NOT EXISTS idx_seen_domains_last_seen ON seen_domains(last_seen);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, run *model.SignalRun) error {
	statsJSON, costJSON, err := marshalRunPayload(run)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO signal_runs (id, mode, status, stats, cost, error, started_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		run.ID, string(run.Mode), string(run.Status), statsJSON, costJSON, run.Error, run.StartedAt,
	)
	return eris.Wrap(err, "postgres: insert run")
}

func (s *PostgresStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE signal_runs SET status = $1 WHERE id = $2`,
		string(status), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update run status %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "run %s", runID)
	}
	return nil
}

func (s *PostgresStore) CompleteRun(ctx context.Context, run *model.SignalRun) error {
	statsJSON, costJSON, err := marshalRunPayload(run)
	if err != nil {
		return err
	}

	completedAt := time.Now().UTC()
	if run.CompletedAt != nil {
		completedAt = *run.CompletedAt
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE signal_runs SET status = $1, stats = $2, cost = $3, error = $4, completed_at = $5 WHERE id = $6`,
		string(run.Status), statsJSON, costJSON, run.Error, completedAt, run.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete run %s", run.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "run %s", run.ID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.SignalRun, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, mode, status, stats, cost, error, started_at, completed_at FROM signal_runs WHERE id = $1`,
		runID,
	)
	return scanRun(row)
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.SignalRun, error) {
	query := `SELECT id, mode, status, stats, cost, error, started_at, completed_at FROM signal_runs WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	if filter.Mode != "" {
		query += fmt.Sprintf(` AND mode = $%d`, argIdx)
		args = append(args, string(filter.Mode))
		argIdx++
	}
	query += ` ORDER BY started_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.SignalRun
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func (s *PostgresStore) CountRunsByStatus(ctx context.Context) ([]StatusCount, error) {
	return s.countByStatus(ctx, `SELECT status, COUNT(*) FROM signal_runs GROUP BY status ORDER BY status`)
}

func (s *PostgresStore) SaveLeads(ctx context.Context, leads []model.LeadRecord) error {
	if len(leads) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin save leads")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for _, lead := range leads {
		recordJSON, err := json.Marshal(lead)
		if err != nil {
			return eris.Wrapf(err, "postgres: marshal lead %s", lead.Domain)
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO leads (id, run_id, domain, company_name, score, status, record, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			lead.ID, lead.RunID, lead.Domain, lead.CompanyName, lead.Score,
			string(lead.Status), recordJSON, lead.CreatedAt, lead.UpdatedAt,
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: insert lead %s", lead.Domain)
		}
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit save leads")
}

func (s *PostgresStore) GetLead(ctx context.Context, leadID string) (*model.LeadRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT record, status, updated_at FROM leads WHERE id = $1`,
		leadID,
	)
	return scanLead(row)
}

func (s *PostgresStore) ListLeads(ctx context.Context, filter LeadFilter) ([]model.LeadRecord, error) {
	query := `SELECT record, status, updated_at FROM leads WHERE true`
	args := []any{}
	argIdx := 1

	if filter.RunID != "" {
		query += fmt.Sprintf(` AND run_id = $%d`, argIdx)
		args = append(args, filter.RunID)
		argIdx++
	}
	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	if filter.Domain != "" {
		query += fmt.Sprintf(` AND domain = $%d`, argIdx)
		args = append(args, filter.Domain)
		argIdx++
	}
	if filter.MinScore > 0 {
		query += fmt.Sprintf(` AND score >= $%d`, argIdx)
		args = append(args, filter.MinScore)
		argIdx++
	}
	query += ` ORDER BY score DESC, created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list leads")
	}
	defer rows.Close()

	var leads []model.LeadRecord
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, *lead)
	}
	return leads, eris.Wrap(rows.Err(), "postgres: list leads iterate")
}

func (s *PostgresStore) UpdateLeadStatus(ctx context.Context, leadID string, status model.LeadStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE leads SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), leadID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update lead status %s", leadID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "lead %s", leadID)
	}
	return nil
}

func (s *PostgresStore) CountLeadsByStatus(ctx context.Context) ([]StatusCount, error) {
	return s.countByStatus(ctx, `SELECT status, COUNT(*) FROM leads GROUP BY status ORDER BY status`)
}

func (s *PostgresStore) MarkDomainSeen(ctx context.Context, domain string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO seen_domains (domain, last_seen) VALUES ($1, $2)
		 ON CONFLICT (domain) DO UPDATE SET last_seen = excluded.last_seen`,
		domain, time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: mark domain seen %s", domain)
}

func (s *PostgresStore) WasDomainSeen(ctx context.Context, domain string, within time.Duration) (bool, error) {
	var lastSeen time.Time
	err := s.pool.QueryRow(ctx,
		`SELECT last_seen FROM seen_domains WHERE domain = $1`,
		domain,
	).Scan(&lastSeen)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, eris.Wrapf(err, "postgres: was domain seen %s", domain)
	}
	return time.Since(lastSeen) <= within, nil
}

func (s *PostgresStore) ListSeenDomains(ctx context.Context, within time.Duration) ([]model.SeenDomain, error) {
	cutoff := time.Now().UTC().Add(-within)
	rows, err := s.pool.Query(ctx,
		`SELECT domain, last_seen FROM seen_domains WHERE last_seen > $1 ORDER BY last_seen DESC`,
		cutoff,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list seen domains")
	}
	defer rows.Close()

	var seen []model.SeenDomain
	for rows.Next() {
		var sd model.SeenDomain
		if err := rows.Scan(&sd.Domain, &sd.LastSeen); err != nil {
			return nil, eris.Wrap(err, "postgres: scan seen domain")
		}
		seen = append(seen, sd)
	}
	return seen, eris.Wrap(rows.Err(), "postgres: list seen domains iterate")
}

func (s *PostgresStore) AddDNC(ctx context.Context, domain, reason string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO dnc (domain, reason, added_at) VALUES ($1, $2, $3)
		 ON CONFLICT (domain) DO UPDATE SET reason = excluded.reason`,
		domain, reason, time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: add dnc %s", domain)
}

func (s *PostgresStore) RemoveDNC(ctx context.Context, domain string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM dnc WHERE domain = $1`, domain)
	if err != nil {
		return eris.Wrapf(err, "postgres: remove dnc %s", domain)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "dnc entry %s", domain)
	}
	return nil
}

func (s *PostgresStore) IsDNC(ctx context.Context, domain string) (bool, error) {
	var one int
	err := s.pool.QueryRow(ctx, `SELECT 1 FROM dnc WHERE domain = $1`, domain).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, eris.Wrapf(err, "postgres: is dnc %s", domain)
	}
	return true, nil
}

func (s *PostgresStore) ListDNC(ctx context.Context) ([]model.DNCEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT domain, reason, added_at FROM dnc ORDER BY domain`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list dnc")
	}
	defer rows.Close()

	var entries []model.DNCEntry
	for rows.Next() {
		var e model.DNCEntry
		var reason sql.NullString
		if err := rows.Scan(&e.Domain, &reason, &e.AddedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan dnc entry")
		}
		e.Reason = reason.String
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "postgres: list dnc iterate")
}

func (s *PostgresStore) countByStatus(ctx context.Context, query string) ([]StatusCount, error) {
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: count by status")
	}
	defer rows.Close()

	var counts []StatusCount
	for rows.Next() {
		var sc StatusCount
		if err := rows.Scan(&sc.Status, &sc.Count); err != nil {
			return nil, eris.Wrap(err, "postgres: scan status count")
		}
		counts = append(counts, sc)
	}
	return counts, eris.Wrap(rows.Err(), "postgres: count by status iterate")
}
