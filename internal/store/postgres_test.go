package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/signals-cli/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func TestPostgresStore_CreateRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO signal_runs`).
		WithArgs("run-1", "hunt", "running", pgxmock.AnyArg(), pgxmock.AnyArg(), "", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	run := &model.SignalRun{
		ID:        "run-1",
		Mode:      model.ModeHunt,
		Status:    model.RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	require.NoError(t, s.CreateRun(context.Background(), run))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRun_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, mode, status, stats, cost, error, started_at, completed_at FROM signal_runs WHERE id = \$1`).
		WithArgs("nonexistent-run").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetRun(context.Background(), "nonexistent-run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRun_ParsesPayload(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	started := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	completed := started.Add(4 * time.Minute)
	rows := pgxmock.NewRows([]string{"id", "mode", "status", "stats", "cost", "error", "started_at", "completed_at"}).
		AddRow("run-2", "hunt", "complete",
			`{"queriesExecuted":20,"leadsGenerated":2}`,
			`{"input_tokens":1000,"estimated_usd":0.12}`,
			"", started, completed)

	mock.ExpectQuery(`SELECT id, mode, status, stats, cost, error, started_at, completed_at FROM signal_runs WHERE id = \$1`).
		WithArgs("run-2").
		WillReturnRows(rows)

	run, err := s.GetRun(context.Background(), "run-2")
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, run.Status)
	assert.Equal(t, 20, run.Stats.QueriesExecuted)
	assert.Equal(t, 2, run.Stats.LeadsGenerated)
	assert.InDelta(t, 0.12, run.Cost.EstimatedUSD, 0.001)
	require.NotNil(t, run.CompletedAt)
	assert.Equal(t, completed, *run.CompletedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateRunStatus_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE signal_runs SET status = \$1 WHERE id = \$2`).
		WithArgs("failed", "missing-run").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.UpdateRunStatus(context.Background(), "missing-run", model.RunStatusFailed)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveLeads_Transaction(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO leads`).
		WithArgs("lead-1", "run-1", "acme.com", "Acme Robotics", 72.5,
			"new", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()
	mock.ExpectRollback()

	lead := model.LeadRecord{
		ID:          "lead-1",
		RunID:       "run-1",
		Domain:      "acme.com",
		CompanyName: "Acme Robotics",
		Score:       72.5,
		Status:      model.LeadStatusNew,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
	require.NoError(t, s.SaveLeads(context.Background(), []model.LeadRecord{lead}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveLeads_Empty(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	require.NoError(t, s.SaveLeads(context.Background(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListLeads_Filters(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	record := `{"id":"lead-1","run_id":"run-1","domain":"acme.com","company_name":"Acme Robotics","score":72.5,"status":"new"}`
	rows := pgxmock.NewRows([]string{"record", "status", "updated_at"}).
		AddRow(record, "contacted", time.Now().UTC())

	mock.ExpectQuery(`SELECT record, status, updated_at FROM leads WHERE true AND run_id = \$1 AND score >= \$2`).
		WithArgs("run-1", 50.0, 100).
		WillReturnRows(rows)

	leads, err := s.ListLeads(context.Background(), LeadFilter{RunID: "run-1", MinScore: 50})
	require.NoError(t, err)
	require.Len(t, leads, 1)
	assert.Equal(t, "acme.com", leads[0].Domain)
	// Status column overrides the stored record.
	assert.Equal(t, model.LeadStatusContacted, leads[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_WasDomainSeen(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT last_seen FROM seen_domains WHERE domain = \$1`).
		WithArgs("fresh.com").
		WillReturnRows(pgxmock.NewRows([]string{"last_seen"}).AddRow(time.Now().UTC().Add(-1 * time.Hour)))
	mock.ExpectQuery(`SELECT last_seen FROM seen_domains WHERE domain = \$1`).
		WithArgs("unknown.com").
		WillReturnError(pgx.ErrNoRows)

	seen, err := s.WasDomainSeen(context.Background(), "fresh.com", 24*time.Hour)
	require.NoError(t, err)
	assert.True(t, seen)

	seen, err = s.WasDomainSeen(context.Background(), "unknown.com", 24*time.Hour)
	require.NoError(t, err)
	assert.False(t, seen)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DNC_Upsert(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`ON CONFLICT`).
		WithArgs("competitor.com", "direct competitor", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.AddDNC(context.Background(), "competitor.com", "direct competitor")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_IsDNC_NotListed(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT 1 FROM dnc WHERE domain = \$1`).
		WithArgs("clean.com").
		WillReturnError(pgx.ErrNoRows)

	blocked, err := s.IsDNC(context.Background(), "clean.com")
	require.NoError(t, err)
	assert.False(t, blocked)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CountLeadsByStatus(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	rows := pgxmock.NewRows([]string{"status", "count"}).
		AddRow("new", 4).
		AddRow("qualified", 1)

	mock.ExpectQuery(`SELECT status, COUNT\(\*\) FROM leads GROUP BY status`).
		WillReturnRows(rows)

	counts, err := s.CountLeadsByStatus(context.Background())
	require.NoError(t, err)
	require.Len(t, counts, 2)
	assert.Equal(t, "new", counts[0].Status)
	assert.Equal(t, 4, counts[0].Count)
	assert.NoError(t, mock.ExpectationsWereMet())
}
