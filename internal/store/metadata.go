package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	descriptionsTable = "table_descriptions"
	historyTable      = "chat_history"
)

// Timestamps are stored as RFC 3339 text so DuckDB and SQLite scan them
// identically.
func (w *Workspace) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS table_descriptions (
			database_name VARCHAR NOT NULL,
			table_name VARCHAR NOT NULL,
			description TEXT NOT NULL,
			updated_at VARCHAR NOT NULL,
			PRIMARY KEY (database_name, table_name)
		)`,
		`CREATE TABLE IF NOT EXISTS chat_history (
			id VARCHAR PRIMARY KEY,
			database_name VARCHAR NOT NULL,
			question TEXT NOT NULL,
			sql_query TEXT,
			answer TEXT,
			row_count INTEGER,
			created_at VARCHAR NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := w.meta.ExecContext(ctx, stmt); err != nil {
			w.log(ctx).Error("Failed to create metadata table", "error", err)
			return fmt.Errorf("failed to create metadata tables: %w", err)
		}
	}
	return nil
}

// TableDescription is the business description of a table.
type TableDescription struct {
	Database    string    `json:"database_name"`
	Table       string    `json:"table_name"`
	Description string    `json:"description"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Description returns the stored description of table, or an empty
// description when none has been written.
func (w *Workspace) Description(ctx context.Context, db, table string) (TableDescription, error) {
	if db == "" {
		db = WorkspaceName
	}
	out := TableDescription{Database: db, Table: table}

	var updated string
	err := w.meta.QueryRowContext(ctx,
		`SELECT description, updated_at FROM table_descriptions WHERE database_name = $1 AND table_name = $2`,
		db, table,
	).Scan(&out.Description, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return out, nil
	}
	if err != nil {
		return out, fmt.Errorf("failed to load description: %w", err)
	}
	out.UpdatedAt, _ = time.Parse(time.RFC3339, updated)
	return out, nil
}

// Descriptions returns every stored description of database db keyed by
// table name.
func (w *Workspace) Descriptions(ctx context.Context, db string) (map[string]string, error) {
	if db == "" {
		db = WorkspaceName
	}
	rows, err := w.meta.QueryContext(ctx,
		`SELECT table_name, description FROM table_descriptions WHERE database_name = $1`, db)
	if err != nil {
		return nil, fmt.Errorf("failed to load descriptions: %w", err)
	}
	defer rows.Close()

	out := map[string]string{}
	for rows.Next() {
		var table, desc string
		if err := rows.Scan(&table, &desc); err != nil {
			return nil, fmt.Errorf("failed to scan description: %w", err)
		}
		out[table] = desc
	}
	return out, rows.Err()
}

// SetDescription upserts the description of table.
func (w *Workspace) SetDescription(ctx context.Context, db, table, description string) (TableDescription, error) {
	if db == "" {
		db = WorkspaceName
	}
	if _, err := w.database(db); err != nil {
		return TableDescription{}, err
	}
	now := time.Now().UTC().Truncate(time.Second)

	_, err := w.meta.ExecContext(ctx, `
		INSERT INTO table_descriptions (database_name, table_name, description, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (database_name, table_name) DO UPDATE SET
			description = EXCLUDED.description,
			updated_at = EXCLUDED.updated_at
	`, db, table, description, now.Format(time.RFC3339))
	if err != nil {
		w.log(ctx).Error("Failed to save table description", "error", err, "database", db, "table", table)
		return TableDescription{}, fmt.Errorf("failed to save description: %w", err)
	}

	w.log(ctx).Info("Saved table description", "database", db, "table", table)
	return TableDescription{Database: db, Table: table, Description: description, UpdatedAt: now}, nil
}

// Turn is one question/answer exchange.
type Turn struct {
	ID        string    `json:"id"`
	Database  string    `json:"database"`
	Question  string    `json:"question"`
	SQL       string    `json:"sql_query"`
	Answer    string    `json:"answer"`
	RowCount  int       `json:"row_count"`
	CreatedAt time.Time `json:"created_at"`
}

// SaveTurn records a turn, assigning its id and timestamp.
func (w *Workspace) SaveTurn(ctx context.Context, t Turn) (Turn, error) {
	t.ID = uuid.NewString()
	t.CreatedAt = time.Now().UTC().Truncate(time.Second)
	if t.Database == "" {
		t.Database = WorkspaceName
	}

	_, err := w.meta.ExecContext(ctx, `
		INSERT INTO chat_history (id, database_name, question, sql_query, answer, row_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, t.ID, t.Database, t.Question, t.SQL, t.Answer, t.RowCount, t.CreatedAt.Format(time.RFC3339))
	if err != nil {
		w.log(ctx).Error("Failed to save chat turn", "error", err)
		return Turn{}, fmt.Errorf("failed to save chat turn: %w", err)
	}
	return t, nil
}

// History returns up to limit turns, newest first.
func (w *Workspace) History(ctx context.Context, limit int) ([]Turn, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := w.meta.QueryContext(ctx, `
		SELECT id, database_name, question, sql_query, answer, row_count, created_at
		FROM chat_history
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load chat history: %w", err)
	}
	defer rows.Close()

	turns := []Turn{}
	for rows.Next() {
		var (
			t               Turn
			sqlText, answer sql.NullString
			rowCount        sql.NullInt64
			created         string
		)
		if err := rows.Scan(&t.ID, &t.Database, &t.Question, &sqlText, &answer, &rowCount, &created); err != nil {
			return nil, fmt.Errorf("failed to scan chat turn: %w", err)
		}
		t.SQL, t.Answer, t.RowCount = sqlText.String, answer.String, int(rowCount.Int64)
		t.CreatedAt, _ = time.Parse(time.RFC3339, created)
		turns = append(turns, t)
	}
	return turns, rows.Err()
}
