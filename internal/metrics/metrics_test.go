package metrics

import (
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/signals-cli/internal/store"
)

// fakeCountStore stubs the two aggregation queries; everything else panics.
type fakeCountStore struct {
	store.Store
	runs     []store.StatusCount
	leads    []store.StatusCount
	runsErr  error
	leadsErr error
}

func (f *fakeCountStore) CountRunsByStatus(ctx context.Context) ([]store.StatusCount, error) {
	return f.runs, f.runsErr
}

func (f *fakeCountStore) CountLeadsByStatus(ctx context.Context) ([]store.StatusCount, error) {
	return f.leads, f.leadsErr
}

func TestStoreCollector_EmitsPerStatusGauges(t *testing.T) {
	c := NewStoreCollector(&fakeCountStore{
		runs: []store.StatusCount{
			{Status: "complete", Count: 12},
			{Status: "failed", Count: 2},
		},
		leads: []store.StatusCount{
			{Status: "new", Count: 40},
			{Status: "contacted", Count: 5},
		},
	})

	expected := `
# HELP signals_leads_total Stored leads by status
# TYPE signals_leads_total gauge
signals_leads_total{status="contacted"} 5
signals_leads_total{status="new"} 40
# HELP signals_runs_total Pipeline runs by status
# TYPE signals_runs_total gauge
signals_runs_total{status="complete"} 12
signals_runs_total{status="failed"} 2
`
	require.NoError(t, testutil.CollectAndCompare(c, strings.NewReader(expected)))
}

func TestStoreCollector_RunErrorStillEmitsLeads(t *testing.T) {
	c := NewStoreCollector(&fakeCountStore{
		runsErr: eris.New("table missing"),
		leads:   []store.StatusCount{{Status: "new", Count: 3}},
	})

	expected := `
# HELP signals_leads_total Stored leads by status
# TYPE signals_leads_total gauge
signals_leads_total{status="new"} 3
`
	require.NoError(t, testutil.CollectAndCompare(c, strings.NewReader(expected)))
}

func TestStoreCollector_AllErrorsEmitNothing(t *testing.T) {
	c := NewStoreCollector(&fakeCountStore{
		runsErr:  eris.New("down"),
		leadsErr: eris.New("down"),
	})
	assert.Zero(t, testutil.CollectAndCount(c))
}
