package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/signals-cli/internal/model"
)

// SQLiteStore is the single-file Store backend, suitable for local runs
// where standing up Postgres is overkill.
type SQLiteStore struct {
	db *sql.DB
}

// sqlitePragmas are applied at open. WAL lets the serve command read
// while a pipeline run writes.
var sqlitePragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA synchronous=NORMAL",
}

// NewSQLite opens or creates the database file at dsn.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range sqlitePragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS signal_runs (
	id           TEXT PRIMARY KEY,
	mode         TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'running',
	stats        TEXT,
	cost         TEXT,
	error        TEXT,
	started_at   DATETIME NOT NULL,
	completed_at DATETIME
);

CREATE TABLE IF NOT EXISTS leads (
	id           TEXT PRIMARY KEY,
	run_id       TEXT NOT NULL REFERENCES signal_runs(id),
	domain       TEXT NOT NULL,
	company_name TEXT NOT NULL,
	score        REAL NOT NULL,
	status       TEXT NOT NULL DEFAULT 'new',
	record       TEXT NOT NULL,
	created_at   DATETIME NOT NULL,
	updated_at   DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS seen_domains (
	domain    TEXT PRIMARY KEY,
	last_seen DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS dnc (
	domain   TEXT PRIMARY KEY,
	reason   TEXT,
	added_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_signal_runs_status ON signal_runs(status);
CREATE INDEX IF NOT EXISTS idx_signal_runs_started ON signal_runs(started_at);
CREATE INDEX IF NOT EXISTS idx_leads_run_id ON leads(run_id);
CREATE INDEX IF NOT EXISTS idx_leads_status ON leads(status);
CREATE INDEX IF NOT EXISTS idx_leads_domain ON leads(domain);
CREATE INDEX IF NOT EXISTS idx_seen_domains_last_seen ON seen_domains(last_seen);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, run *model.SignalRun) error {
	statsJSON, costJSON, err := marshalRunPayload(run)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO signal_runs (id, mode, status, stats, cost, error, started_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, string(run.Mode), string(run.Status), statsJSON, costJSON, run.Error, run.StartedAt,
	)
	return eris.Wrap(err, "sqlite: insert run")
}

func (s *SQLiteStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE signal_runs SET status = ? WHERE id = ?`,
		string(status), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update run status %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, run *model.SignalRun) error {
	statsJSON, costJSON, err := marshalRunPayload(run)
	if err != nil {
		return err
	}

	completedAt := time.Now().UTC()
	if run.CompletedAt != nil {
		completedAt = *run.CompletedAt
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE signal_runs SET status = ?, stats = ?, cost = ?, error = ?, completed_at = ? WHERE id = ?`,
		string(run.Status), statsJSON, costJSON, run.Error, completedAt, run.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", run.ID)
	}
	return checkRowsAffected(res, "run", run.ID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.SignalRun, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, mode, status, stats, cost, error, started_at, completed_at FROM signal_runs WHERE id = ?`,
		runID,
	)
	return scanRun(row)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.SignalRun, error) {
	query := `SELECT id, mode, status, stats, cost, error, started_at, completed_at FROM signal_runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.Mode != "" {
		query += ` AND mode = ?`
		args = append(args, string(filter.Mode))
	}
	query += ` ORDER BY started_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
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
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) CountRunsByStatus(ctx context.Context) ([]StatusCount, error) {
	return s.countByStatus(ctx, `SELECT status, COUNT(*) FROM signal_runs GROUP BY status ORDER BY status`)
}

func (s *SQLiteStore) SaveLeads(ctx context.Context, leads []model.LeadRecord) error {
	if len(leads) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin save leads")
	}
	defer tx.Rollback() //nolint:errcheck

	for _, lead := range leads {
		recordJSON, err := json.Marshal(lead)
		if err != nil {
			return eris.Wrapf(err, "sqlite: marshal lead %s", lead.Domain)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO leads (id, run_id, domain, company_name, score, status, record, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			lead.ID, lead.RunID, lead.Domain, lead.CompanyName, lead.Score,
			string(lead.Status), string(recordJSON), lead.CreatedAt, lead.UpdatedAt,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert lead %s", lead.Domain)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit save leads")
}

func (s *SQLiteStore) GetLead(ctx context.Context, leadID string) (*model.LeadRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT record, status, updated_at FROM leads WHERE id = ?`,
		leadID,
	)
	return scanLead(row)
}

func (s *SQLiteStore) ListLeads(ctx context.Context, filter LeadFilter) ([]model.LeadRecord, error) {
	query := `SELECT record, status, updated_at FROM leads WHERE 1=1`
	var args []any

	if filter.RunID != "" {
		query += ` AND run_id = ?`
		args = append(args, filter.RunID)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.Domain != "" {
		query += ` AND domain = ?`
		args = append(args, filter.Domain)
	}
	if filter.MinScore > 0 {
		query += ` AND score >= ?`
		args = append(args, filter.MinScore)
	}
	query += ` ORDER BY score DESC, created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list leads")
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
	return leads, eris.Wrap(rows.Err(), "sqlite: list leads iterate")
}

func (s *SQLiteStore) UpdateLeadStatus(ctx context.Context, leadID string, status model.LeadStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE leads SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), leadID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update lead status %s", leadID)
	}
	return checkRowsAffected(res, "lead", leadID)
}

func (s *SQLiteStore) CountLeadsByStatus(ctx context.Context) ([]StatusCount, error) {
	return s.countByStatus(ctx, `SELECT status, COUNT(*) FROM leads GROUP BY status ORDER BY status`)
}

func (s *SQLiteStore) MarkDomainSeen(ctx context.Context, domain string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO seen_domains (domain, last_seen) VALUES (?, ?)
		 ON CONFLICT(domain) DO UPDATE SET last_seen = excluded.last_seen`,
		domain, time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: mark domain seen %s", domain)
}

func (s *SQLiteStore) WasDomainSeen(ctx context.Context, domain string, within time.Duration) (bool, error) {
	var lastSeen time.Time
	err := s.db.QueryRowContext(ctx,
		`SELECT last_seen FROM seen_domains WHERE domain = ?`,
		domain,
	).Scan(&lastSeen)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: was domain seen %s", domain)
	}
	return time.Since(lastSeen) <= within, nil
}

func (s *SQLiteStore) ListSeenDomains(ctx context.Context, within time.Duration) ([]model.SeenDomain, error) {
	cutoff := time.Now().UTC().Add(-within)
	rows, err := s.db.QueryContext(ctx,
		`SELECT domain, last_seen FROM seen_domains WHERE last_seen > ? ORDER BY last_seen DESC`,
		cutoff,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list seen domains")
	}
	defer rows.Close()

	var seen []model.SeenDomain
	for rows.Next() {
		var sd model.SeenDomain
		if err := rows.Scan(&sd.Domain, &sd.LastSeen); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan seen domain")
		}
		seen = append(seen, sd)
	}
	return seen, eris.Wrap(rows.Err(), "sqlite: list seen domains iterate")
}

func (s *SQLiteStore) AddDNC(ctx context.Context, domain, reason string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO dnc (domain, reason, added_at) VALUES (?, ?, ?)
		 ON CONFLICT(domain) DO UPDATE SET reason = excluded.reason`,
		domain, reason, time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: add dnc %s", domain)
}

func (s *SQLiteStore) RemoveDNC(ctx context.Context, domain string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM dnc WHERE domain = ?`, domain)
	if err != nil {
		return eris.Wrapf(err, "sqlite: remove dnc %s", domain)
	}
	return checkRowsAffected(res, "dnc entry", domain)
}

func (s *SQLiteStore) IsDNC(ctx context.Context, domain string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM dnc WHERE domain = ?`, domain).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: is dnc %s", domain)
	}
	return true, nil
}

func (s *SQLiteStore) ListDNC(ctx context.Context) ([]model.DNCEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT domain, reason, added_at FROM dnc ORDER BY domain`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list dnc")
	}
	defer rows.Close()

	var entries []model.DNCEntry
	for rows.Next() {
		var e model.DNCEntry
		var reason sql.NullString
		if err := rows.Scan(&e.Domain, &reason, &e.AddedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan dnc entry")
		}
		e.Reason = reason.String
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "sqlite: list dnc iterate")
}

func (s *SQLiteStore) countByStatus(ctx context.Context, query string) ([]StatusCount, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: count by status")
	}
	defer rows.Close()

	var counts []StatusCount
	for rows.Next() {
		var sc StatusCount
		if err := rows.Scan(&sc.Status, &sc.Count); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan status count")
		}
		counts = append(counts, sc)
	}
	return counts, eris.Wrap(rows.Err(), "sqlite: count by status iterate")
}

// checkRowsAffected turns a zero-row UPDATE or DELETE into ErrNotFound.
func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
	}
	return nil
}

func marshalRunPayload(run *model.SignalRun) (statsJSON, costJSON string, err error) {
	stats, err := json.Marshal(run.Stats)
	if err != nil {
		return "", "", eris.Wrap(err, "store: marshal run stats")
	}
	cost, err := json.Marshal(run.Cost)
	if err != nil {
		return "", "", eris.Wrap(err, "store: marshal run cost")
	}
	return string(stats), string(cost), nil
}

// scannable abstracts *sql.Row and *sql.Rows so one scanner serves
// both Get and List paths (pgx rows satisfy it too).
type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.SignalRun, error) {
	var r model.SignalRun
	var statsJSON, costJSON, errMsg sql.NullString
	var completedAt sql.NullTime

	err := row.Scan(&r.ID, &r.Mode, &r.Status, &statsJSON, &costJSON, &errMsg, &r.StartedAt, &completedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrap(ErrNotFound, "run")
	}
	if err != nil {
		return nil, eris.Wrap(err, "store: scan run")
	}

	if statsJSON.Valid && statsJSON.String != "" {
		if err := json.Unmarshal([]byte(statsJSON.String), &r.Stats); err != nil {
			return nil, eris.Wrap(err, "store: unmarshal run stats")
		}
	}
	if costJSON.Valid && costJSON.String != "" {
		if err := json.Unmarshal([]byte(costJSON.String), &r.Cost); err != nil {
			return nil, eris.Wrap(err, "store: unmarshal run cost")
		}
	}
	r.Error = errMsg.String
	if completedAt.Valid {
		t := completedAt.Time
		r.CompletedAt = &t
	}
	return &r, nil
}

func scanLead(row scannable) (*model.LeadRecord, error) {
	var recordJSON string
	var status string
	var updatedAt time.Time

	err := row.Scan(&recordJSON, &status, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrap(ErrNotFound, "lead")
	}
	if err != nil {
		return nil, eris.Wrap(err, "store: scan lead")
	}

	var lead model.LeadRecord
	if err := json.Unmarshal([]byte(recordJSON), &lead); err != nil {
		return nil, eris.Wrap(err, "store: unmarshal lead record")
	}
	// Status and updated_at move after creation; the columns are
	// authoritative over the stored record.
	lead.Status = model.LeadStatus(status)
	lead.UpdatedAt = updatedAt
	return &lead, nil
}
