package source

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	_ "modernc.org/sqlite"             // SQLite driver

	"github.com/headline-goat/sigtable/internal/variant"
)

var ErrUnknownDataSource = errors.New("unknown data source")

// DataSource is a database that metric queries run against.
type DataSource struct {
	ID     int
	Driver string
	DSN    string
}

// DriverName maps a configured driver to its database/sql name.
func DriverName(driver string) (string, error) {
	switch strings.ToLower(driver) {
	case "sqlite", "sqlite3":
		return "sqlite", nil
	case "postgres", "postgresql", "pgx":
		return "pgx", nil
	case "mysql":
		return "mysql", nil
	default:
		return "", fmt.Errorf("unsupported driver: %s", driver)
	}
}

// SQLFetcher runs queries through database/sql. Connections are opened on
// first use and kept until Close.
type SQLFetcher struct {
	mu      sync.Mutex
	sources map[int]DataSource
	dbs     map[int]*sql.DB
}

var _ Fetcher = (*SQLFetcher)(nil)

func NewSQLFetcher(sources []DataSource) (*SQLFetcher, error) {
	f := &SQLFetcher{
		sources: make(map[int]DataSource, len(sources)),
		dbs:     make(map[int]*sql.DB),
	}
	for _, ds := range sources {
		if _, err := DriverName(ds.Driver); err != nil {
			return nil, fmt.Errorf("data source %d: %w", ds.ID, err)
		}
		if _, dup := f.sources[ds.ID]; dup {
			return nil, fmt.Errorf("duplicate data source id %d", ds.ID)
		}
		f.sources[ds.ID] = ds
	}
	return f, nil
}

func (f *SQLFetcher) db(id int) (*sql.DB, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if db, ok := f.dbs[id]; ok {
		return db, nil
	}

	ds, ok := f.sources[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownDataSource, id)
	}
	driverName, err := DriverName(ds.Driver)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driverName, ds.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open data source %d: %w", id, err)
	}
	if driverName == "sqlite" {
		// Limit SQLite to a single open connection to avoid "database is locked" errors
		db.SetMaxOpenConns(1)
	}

	f.dbs[id] = db
	return db, nil
}

// Fetch renders and runs q. An empty result set is NotReady.
func (f *SQLFetcher) Fetch(ctx context.Context, q Query) Result {
	db, err := f.db(q.DataSourceID)
	if err != nil {
		return Result{Status: Failed, Err: err}
	}

	rows, err := db.QueryContext(ctx, q.Rendered())
	if err != nil {
		return Result{Status: Failed, Err: fmt.Errorf("failed to run query %q: %w", q.Name, err)}
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return Result{Status: Failed, Err: fmt.Errorf("failed to read columns: %w", err)}
	}

	var out []variant.Row
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return Result{Status: Failed, Err: fmt.Errorf("failed to scan row: %w", err)}
		}

		row := make(variant.Row, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
				continue
			}
			row[col] = values[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return Result{Status: Failed, Err: fmt.Errorf("failed to read rows: %w", err)}
	}

	if len(out) == 0 {
		return Result{Status: NotReady}
	}
	return Result{Status: Ready, Rows: out}
}

func (f *SQLFetcher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var errs []error
	for id, db := range f.dbs {
		if err := db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("data source %d: %w", id, err))
		}
		delete(f.dbs, id)
	}
	return errors.Join(errs...)
}
