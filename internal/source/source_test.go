package source

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupEventsDB(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "events.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`
		CREATE TABLE events (client TEXT, type TEXT, event TEXT, count REAL, day TEXT);
		INSERT INTO events VALUES
			('c1', 'control', 'CLICK', 4, '2024-01-01'),
			('c2', 'control', 'CLICK', 6, '2024-01-01'),
			('c3', 'control', 'CLICK', 8, '2024-01-01'),
			('c4', 'variant-b', 'CLICK', 1, '2024-01-01'),
			('c5', 'variant-b', 'CLICK', 2, '2024-01-01'),
			('c6', 'variant-b', 'SEARCH', 3, '2024-01-01');
	`)
	require.NoError(t, err)
	return path
}

func TestQueryRendered(t *testing.T) {
	q := Query{
		Text: "SELECT * FROM {{events_table}} WHERE event IN {{event_string}} AND day >= '{{ start_date }}' AND x = {{unknown}}",
		Params: map[string]string{
			"events_table": "events",
			"event_string": "('CLICK')",
			"event":        "CLICK",
			"start_date":   "2024-01-01",
		},
	}

	assert.Equal(t,
		"SELECT * FROM events WHERE event IN ('CLICK') AND day >= '2024-01-01' AND x = {{unknown}}",
		q.Rendered())

	assert.Equal(t, "SELECT 1", Query{Text: "SELECT 1"}.Rendered())
}

func TestDriverName(t *testing.T) {
	for in, want := range map[string]string{
		"sqlite":     "sqlite",
		"SQLite3":    "sqlite",
		"postgres":   "pgx",
		"postgresql": "pgx",
		"pgx":        "pgx",
		"mysql":      "mysql",
	} {
		got, err := DriverName(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := DriverName("oracle")
	assert.Error(t, err)
}

func TestNewSQLFetcherValidates(t *testing.T) {
	_, err := NewSQLFetcher([]DataSource{{ID: 1, Driver: "oracle"}})
	assert.Error(t, err)

	_, err = NewSQLFetcher([]DataSource{{ID: 1, Driver: "sqlite"}, {ID: 1, Driver: "mysql"}})
	assert.Error(t, err)
}

func TestSQLFetcherReady(t *testing.T) {
	path := setupEventsDB(t)
	f, err := NewSQLFetcher([]DataSource{{ID: 1, Driver: "sqlite", DSN: path}})
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })

	res := f.Fetch(context.Background(), Query{
		Name:         "clicks",
		Text:         "SELECT type, count FROM {{events_table}} WHERE event IN {{event_string}} ORDER BY client",
		DataSourceID: 1,
		Params:       map[string]string{"events_table": "events", "event_string": "('CLICK')"},
	})

	require.Equal(t, Ready, res.Status, "%v", res.Err)
	require.Len(t, res.Rows, 5)
	assert.Equal(t, "control", res.Rows[0]["type"])
	assert.Equal(t, 4.0, res.Rows[0]["count"])
	assert.Equal(t, "variant-b", res.Rows[4]["type"])
}

func TestSQLFetcherNotReady(t *testing.T) {
	path := setupEventsDB(t)
	f, err := NewSQLFetcher([]DataSource{{ID: 1, Driver: "sqlite", DSN: path}})
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })

	res := f.Fetch(context.Background(), Query{
		Text:         "SELECT type, count FROM events WHERE event = 'BLOCK'",
		DataSourceID: 1,
	})
	assert.Equal(t, NotReady, res.Status)
	assert.NoError(t, res.Err)
	assert.Empty(t, res.Rows)
}

func TestSQLFetcherFailures(t *testing.T) {
	path := setupEventsDB(t)
	f, err := NewSQLFetcher([]DataSource{{ID: 1, Driver: "sqlite", DSN: path}})
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })

	res := f.Fetch(context.Background(), Query{Text: "SELECT nope FROM missing", DataSourceID: 1})
	assert.Equal(t, Failed, res.Status)
	assert.Error(t, res.Err)

	res = f.Fetch(context.Background(), Query{Text: "SELECT 1", DataSourceID: 9})
	assert.Equal(t, Failed, res.Status)
	assert.ErrorIs(t, res.Err, ErrUnknownDataSource)
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "ready", Ready.String())
	assert.Equal(t, "not_ready", NotReady.String())
	assert.Equal(t, "failed", Failed.String())
}
