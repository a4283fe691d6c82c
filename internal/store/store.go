// Package store manages the databases a chat session can query: the
// workspace database in the data directory, SQLite files dropped next to it
// and connections registered at runtime.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	_ "github.com/duckdb/duckdb-go/v2"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/microsoft/go-mssqldb"
	_ "modernc.org/sqlite"

	"bichat/internal/logging"
)

var (
	ErrDatabaseNotFound = errors.New("database not found")
	ErrTableNotFound    = errors.New("table not found")
	ErrNotConnected     = errors.New("database not connected")
	ErrDatabaseExists   = errors.New("database already exists")
	ErrUnsupported      = errors.New("unsupported driver")
	ErrNotRegistered    = errors.New("not a registered connection")
)

// Driver names as registered with database/sql.
const (
	DriverDuckDB    = "duckdb"
	DriverSQLite    = "sqlite"
	DriverPostgres  = "pgx"
	DriverSQLServer = "sqlserver"
)

// WorkspaceName is the database that holds uploads and metadata.
const WorkspaceName = "workspace"

// Database is one queryable database.
type Database struct {
	Name       string `json:"name"`
	Driver     string `json:"driver"`
	Source     string `json:"source"`
	Registered bool   `json:"registered"`

	conn *sql.DB
}

// Options configures Open.
type Options struct {
	// WorkspaceDriver is DriverDuckDB (default) or DriverSQLite.
	WorkspaceDriver string
	Logger          *slog.Logger
}

// Workspace is the set of databases rooted at a data directory. It is safe
// for concurrent use.
type Workspace struct {
	dataDir string
	logger  *slog.Logger

	mu  sync.RWMutex
	dbs map[string]*Database

	meta       *sql.DB
	metaDriver string
}

// Open opens (creating if needed) the workspace database in dataDir,
// ensures the metadata tables exist and discovers SQLite files.
func Open(ctx context.Context, dataDir string, opts Options) (*Workspace, error) {
	logger := logging.OrDiscard(opts.Logger)
	driver := opts.WorkspaceDriver
	if driver == "" {
		driver = DriverDuckDB
	}

	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	var path string
	switch driver {
	case DriverDuckDB:
		path = filepath.Join(dataDir, "workspace.duckdb")
	case DriverSQLite:
		path = filepath.Join(dataDir, "workspace.sqlite")
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, driver)
	}

	conn, err := sql.Open(driver, path)
	if err != nil {
		logger.Error("Failed to open workspace database", "error", err, "db_path", path)
		return nil, fmt.Errorf("failed to open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		// One writer at a time avoids SQLITE_BUSY between pooled connections.
		conn.SetMaxOpenConns(1)
	}

	w := FromDB(conn, driver, logger)
	w.dataDir = dataDir
	w.dbs[WorkspaceName].Source = path

	if err := w.migrate(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	if err := w.discover(); err != nil {
		logger.Warn("Failed to scan data directory", "error", err, "data_dir", dataDir)
	}

	logger.Info("Workspace opened", "db_path", path, "driver", driver)
	return w, nil
}

// FromDB wraps an already open connection as the workspace database.
// Metadata tables are not created; Open does that.
func FromDB(conn *sql.DB, driver string, logger *slog.Logger) *Workspace {
	return &Workspace{
		logger: logging.OrDiscard(logger),
		dbs: map[string]*Database{
			WorkspaceName: {Name: WorkspaceName, Driver: driver, conn: conn},
		},
		meta:       conn,
		metaDriver: driver,
	}
}

// log is the request's logger when ctx carries one.
func (w *Workspace) log(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, w.logger)
}

// DataDir returns the directory the workspace was opened in.
func (w *Workspace) DataDir() string { return w.dataDir }

// discover registers *.db files in the data directory as SQLite databases.
func (w *Workspace) discover() error {
	if w.dataDir == "" {
		return nil
	}
	matches, err := filepath.Glob(filepath.Join(w.dataDir, "*.db"))
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	for _, path := range matches {
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		if _, ok := w.dbs[name]; ok {
			continue
		}
		conn, err := sql.Open(DriverSQLite, path)
		if err != nil {
			w.logger.Warn("Skipping SQLite file", "error", err, "path", path)
			continue
		}
		w.dbs[name] = &Database{Name: name, Driver: DriverSQLite, Source: path, conn: conn}
	}
	return nil
}

// Close closes every connection.
func (w *Workspace) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	var errs []error
	for name, db := range w.dbs {
		if err := db.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", name, err))
		}
	}
	w.dbs = map[string]*Database{}
	return errors.Join(errs...)
}

// ListDatabases returns every known database, workspace first then by
// name. The data directory is rescanned for new SQLite files.
func (w *Workspace) ListDatabases() []Database {
	if err := w.discover(); err != nil {
		w.logger.Warn("Failed to scan data directory", "error", err, "data_dir", w.dataDir)
	}

	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]Database, 0, len(w.dbs))
	for _, db := range w.dbs {
		out = append(out, *db)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == WorkspaceName || out[j].Name == WorkspaceName {
			return out[i].Name == WorkspaceName
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// database resolves name, with "" meaning the workspace.
func (w *Workspace) database(name string) (*Database, error) {
	if name == "" {
		name = WorkspaceName
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	db, ok := w.dbs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDatabaseNotFound, name)
	}
	return db, nil
}

// Driver returns the driver of database name.
func (w *Workspace) Driver(name string) (string, error) {
	db, err := w.database(name)
	if err != nil {
		return "", err
	}
	return db.Driver, nil
}

// NormalizeDriver maps user-facing driver names to registered ones.
func NormalizeDriver(driver string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "duckdb":
		return DriverDuckDB, nil
	case "sqlite", "sqlite3":
		return DriverSQLite, nil
	case "pgx", "postgres", "postgresql":
		return DriverPostgres, nil
	case "sqlserver", "mssql", "sql server":
		return DriverSQLServer, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupported, driver)
	}
}

// Connect registers a new database after verifying it answers a ping.
func (w *Workspace) Connect(ctx context.Context, name, driver, dsn string) (*Database, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("connection name is required")
	}
	driver, err := NormalizeDriver(driver)
	if err != nil {
		return nil, err
	}

	w.mu.RLock()
	_, exists := w.dbs[name]
	w.mu.RUnlock()
	if exists {
		return nil, fmt.Errorf("%w: %s", ErrDatabaseExists, name)
	}

	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", driver, err)
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		w.log(ctx).Warn("Connection test failed", "error", err, "name", name, "driver", driver)
		return nil, fmt.Errorf("%w: %s: %v", ErrNotConnected, name, err)
	}

	db := &Database{Name: name, Driver: driver, Source: redactDSN(dsn), Registered: true, conn: conn}

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, exists := w.dbs[name]; exists {
		conn.Close()
		return nil, fmt.Errorf("%w: %s", ErrDatabaseExists, name)
	}
	w.dbs[name] = db
	w.log(ctx).Info("Database connected", "name", name, "driver", driver)
	out := *db
	return &out, nil
}

// Disconnect closes and forgets a registered connection. Discovered files
// and the workspace cannot be disconnected.
func (w *Workspace) Disconnect(name string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	db, ok := w.dbs[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrDatabaseNotFound, name)
	}
	if !db.Registered {
		return fmt.Errorf("%w: %s", ErrNotRegistered, name)
	}
	delete(w.dbs, name)
	return db.conn.Close()
}

// ConnectionStatus is the result of pinging one database.
type ConnectionStatus struct {
	Name   string `json:"name"`
	Driver string `json:"driver"`
	OK     bool   `json:"ok"`
	Error  string `json:"error,omitempty"`
}

// TestConnections pings every database.
func (w *Workspace) TestConnections(ctx context.Context) []ConnectionStatus {
	dbs := w.ListDatabases()
	out := make([]ConnectionStatus, 0, len(dbs))
	for _, db := range dbs {
		st := ConnectionStatus{Name: db.Name, Driver: db.Driver, OK: true}
		if err := db.conn.PingContext(ctx); err != nil {
			st.OK = false
			st.Error = err.Error()
		}
		out = append(out, st)
	}
	return out
}

// redactDSN hides the password of URL-style DSNs.
func redactDSN(dsn string) string {
	at := strings.LastIndex(dsn, "@")
	scheme := strings.Index(dsn, "://")
	if at < 0 || scheme < 0 || at < scheme {
		return dsn
	}
	userinfo := dsn[scheme+3 : at]
	if colon := strings.Index(userinfo, ":"); colon >= 0 {
		userinfo = userinfo[:colon] + ":***"
	}
	return dsn[:scheme+3] + userinfo + dsn[at:]
}
