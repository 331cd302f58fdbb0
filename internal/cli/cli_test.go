package cli

import (
	"bytes"
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/headline-goat/sigtable/internal/plan"
	"github.com/headline-goat/sigtable/internal/variant"
)

// testEnv is a temp directory holding a config, an events database and a
// plan over it.
type testEnv struct {
	dir    string
	db     string
	config string
	plan   string
}

func setupEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()

	env := testEnv{
		dir:    dir,
		db:     filepath.Join(dir, "sigtable.db"),
		config: filepath.Join(dir, "sigtable.yaml"),
		plan:   filepath.Join(dir, "plan.yaml"),
	}

	events := filepath.Join(dir, "events.db")
	db, err := sql.Open("sqlite", events)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE events (type TEXT, event TEXT, count REAL)`)
	require.NoError(t, err)
	for i := 0; i < 4; i++ {
		for _, v := range []float64{4, 6, 8} {
			_, err = db.Exec(`INSERT INTO events VALUES ('Control', 'CLICK', ?)`, v)
			require.NoError(t, err)
		}
		for _, v := range []float64{1, 2, 3} {
			_, err = db.Exec(`INSERT INTO events VALUES ('treatment-b', 'CLICK', ?)`, v)
			require.NoError(t, err)
		}
	}

	config := "data-sources:\n  - id: 1\n    driver: sqlite\n    dsn: " + events + "\n"
	require.NoError(t, os.WriteFile(env.config, []byte(config), 0644))

	p := `experiment_id: exp-1
start_date: "2024-03-01"
end_date: "2024-03-15"
tables:
  - title: Engagement
    templates:
      - name: "Engagement: Event Count"
        query: "SELECT type, count FROM events WHERE event = '{{event}}'"
        data_source_id: 1
        metrics: [CLICK]
`
	require.NoError(t, os.WriteFile(env.plan, []byte(p), 0644))
	return env
}

func execute(t *testing.T, env testEnv, args ...string) (string, error) {
	t.Helper()

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(append(args, "--config", env.config, "--db", env.db))
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestRunListExportHistoryDelete(t *testing.T) {
	env := setupEnv(t)

	out, err := execute(t, env, "run", "--plan", env.plan)
	require.NoError(t, err)
	assert.Contains(t, out, "Engagement")
	assert.Contains(t, out, "published")

	out, err = execute(t, env, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Engagement")

	out, err = execute(t, env, "show", "Engagement")
	require.NoError(t, err)
	assert.Contains(t, out, "[control vs. treatment-b] Click Count")
	assert.Contains(t, out, "Negative")

	exported := filepath.Join(env.dir, "engagement.csv")
	_, err = execute(t, env, "export", "Engagement", "--format", "csv", "--output", exported)
	require.NoError(t, err)
	data, err := os.ReadFile(exported)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "Metric,Alpha Error,Power"))
	assert.True(t, strings.HasSuffix(lines[1], ",Negative"))

	out, err = execute(t, env, "history", "Engagement")
	require.NoError(t, err)
	assert.Contains(t, out, "published")

	out, err = execute(t, env, "delete", "Engagement", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted table 'Engagement'")

	_, err = execute(t, env, "show", "Engagement")
	assert.ErrorContains(t, err, "not found")
}

func TestRun_RequiresPlan(t *testing.T) {
	env := setupEnv(t)

	_, err := execute(t, env, "run", "--plan", "")
	assert.ErrorContains(t, err, "no plan given")
}

func TestCompare(t *testing.T) {
	env := setupEnv(t)

	var sb strings.Builder
	sb.WriteString("type,clicks\n")
	for i := 0; i < 4; i++ {
		sb.WriteString("control,4\ncontrol,6\ncontrol,8\nb,1\nb,2\nb,3\n")
	}
	path := filepath.Join(env.dir, "clicks.csv")
	require.NoError(t, os.WriteFile(path, []byte(sb.String()), 0644))

	out, err := execute(t, env, "compare", path, "--column", "clicks", "--metric", "Clicks")
	require.NoError(t, err)
	assert.Contains(t, out, "[control vs. b] Clicks")
	assert.Contains(t, out, "Negative")
}

func TestCompare_NotEnoughData(t *testing.T) {
	env := setupEnv(t)

	path := filepath.Join(env.dir, "few.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"type":"control","count":1},{"type":"b","count":2}]`), 0644))

	_, err := execute(t, env, "compare", path, "--column", "count", "--metric", "")
	assert.ErrorContains(t, err, "not enough data")
}

func TestReadJSONRows(t *testing.T) {
	rows, err := readJSONRows(strings.NewReader(`[{"type":"control","count":3.5}]`))
	require.NoError(t, err)
	require.Len(t, rows, 1)

	v, ok := variant.ToFloat(rows[0]["count"])
	require.True(t, ok)
	assert.Equal(t, 3.5, v)
}

func TestReadCSVRows(t *testing.T) {
	rows, err := readCSVRows(strings.NewReader("type, count\ncontrol,2\nb,3\n"))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "b", rows[1]["type"])
	assert.Equal(t, "3", rows[1]["count"])

	rows, err = readCSVRows(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestScaffoldPlan(t *testing.T) {
	p := scaffoldPlan(scaffoldOptions{
		ExperimentID: "exp-42",
		StartDate:    "2024-03-01",
		TableTitle:   "Engagement",
		DataSourceID: 2,
	})
	require.NoError(t, p.Validate())

	data, err := plan.Marshal(p)
	require.NoError(t, err)

	back, err := plan.Parse(data)
	require.NoError(t, err)
	assert.Equal(t, "exp-42", back.ExperimentID)
	require.Len(t, back.Tables, 1)
	assert.Equal(t, 2, back.Tables[0].Templates[0].DataSourceID)
	assert.Len(t, back.Tables[0].Templates[0].MetricList(), 5)
}

func TestInit_NonInteractive(t *testing.T) {
	env := setupEnv(t)
	out := filepath.Join(env.dir, "new-plan.yaml")

	_, err := execute(t, env, "init", "--output", out, "--experiment", "exp-7", "--start", "2024-01-01", "--title", "Search")
	require.NoError(t, err)

	p, err := plan.Load(out)
	require.NoError(t, err)
	assert.Equal(t, "Search", p.Tables[0].Title)

	_, err = execute(t, env, "init", "--output", out, "--experiment", "exp-7", "--start", "2024-01-01", "--title", "Search")
	assert.ErrorContains(t, err, "already exists")
}

func TestToken(t *testing.T) {
	env := setupEnv(t)

	_, err := execute(t, env, "token")
	assert.ErrorContains(t, err, "no server running")

	require.NoError(t, os.WriteFile(filepath.Join(env.dir, ".sigt-token"), []byte("abc123\n"), 0600))
	out, err := execute(t, env, "token")
	require.NoError(t, err)
	assert.Contains(t, out, "/dashboard?token=abc123")
}

func TestStartSchedule_StopWaitsForPass(t *testing.T) {
	started := make(chan struct{})
	var finished atomic.Bool

	stop := startSchedule(context.Background(), time.Hour, func(ctx context.Context) {
		close(started)
		<-ctx.Done()
		time.Sleep(20 * time.Millisecond)
		finished.Store(true)
	})

	<-started
	stop()
	assert.True(t, finished.Load(), "stop returned before the pass finished")
}

func TestStartSchedule_RepeatsUntilStopped(t *testing.T) {
	var calls atomic.Int32

	stop := startSchedule(context.Background(), 5*time.Millisecond, func(ctx context.Context) {
		calls.Add(1)
	})

	require.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, time.Millisecond)
	stop()

	after := calls.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, calls.Load())
}
