// Package workspace persists users, workspaces and the table definitions
// saved in each workspace. It is backed by SQLite.
package workspace

import (
	"cmp"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/GoliasVictor/grpg/pkg/table"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrWorkspaceNotFound = errors.New("workspace not found")
	ErrTableNotFound     = errors.New("table not found")
	ErrInvalidName       = errors.New("name must not be empty")
)

// User owns workspaces.
type User struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Workspace is an isolated graph plus its saved tables.
type Workspace struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	UserID int64  `json:"user_id"`
}

// StoredTable is a saved table definition.
type StoredTable struct {
	ID         int64                 `json:"id"`
	Definition table.TableDefinition `json:"def"`
}

// Store is the metadata store.
type Store struct {
	write *sql.DB
	read  *sql.DB

	// mu serializes read-modify-write cycles on table_json.
	mu sync.Mutex
}

// Open opens the SQLite file at path and applies pending migrations.
func Open(path string) (*Store, error) {
	write, err := OpenSQLite(path, "write", 0)
	if err != nil {
		return nil, err
	}
	if err := RunMigrations(write); err != nil {
		_ = write.Close()
		return nil, err
	}
	read, err := OpenSQLite(path, "read", 0)
	if err != nil {
		_ = write.Close()
		return nil, err
	}
	return &Store{write: write, read: read}, nil
}

// Close releases both connection pools.
func (s *Store) Close() error {
	return errors.Join(s.read.Close(), s.write.Close())
}

// Ping checks that the database answers.
func (s *Store) Ping(ctx context.Context) error {
	return s.read.PingContext(ctx)
}

// AddUser creates a user.
func (s *Store) AddUser(ctx context.Context, name string) (User, error) {
	if name == "" {
		return User{}, ErrInvalidName
	}
	res, err := s.write.ExecContext(ctx, `INSERT INTO users (name) VALUES (?)`, name)
	if err != nil {
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	return User{ID: id, Name: name}, nil
}

// GetUser returns one user.
func (s *Store) GetUser(ctx context.Context, id int64) (User, error) {
	u := User{ID: id}
	err := s.read.QueryRowContext(ctx, `SELECT name FROM users WHERE id = ?`, id).Scan(&u.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("get user %d: %w", id, err)
	}
	return u, nil
}

// ListUsers returns every user ordered by id.
func (s *Store) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := s.read.QueryContext(ctx, `SELECT id, name FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := []User{}
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Name); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// AddWorkspace creates an empty workspace owned by userID.
func (s *Store) AddWorkspace(ctx context.Context, userID int64, name string) (Workspace, error) {
	if name == "" {
		return Workspace{}, ErrInvalidName
	}
	if _, err := s.GetUser(ctx, userID); err != nil {
		return Workspace{}, err
	}
	res, err := s.write.ExecContext(ctx,
		`INSERT INTO workspaces (name, user_id, table_json) VALUES (?, ?, '{}')`, name, userID)
	if err != nil {
		return Workspace{}, fmt.Errorf("insert workspace: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Workspace{}, fmt.Errorf("insert workspace: %w", err)
	}
	return Workspace{ID: id, Name: name, UserID: userID}, nil
}

// GetWorkspace returns one workspace.
func (s *Store) GetWorkspace(ctx context.Context, id int64) (Workspace, error) {
	w := Workspace{ID: id}
	err := s.read.QueryRowContext(ctx,
		`SELECT name, user_id FROM workspaces WHERE id = ?`, id).Scan(&w.Name, &w.UserID)
	if errors.Is(err, sql.ErrNoRows) {
		return Workspace{}, ErrWorkspaceNotFound
	}
	if err != nil {
		return Workspace{}, fmt.Errorf("get workspace %d: %w", id, err)
	}
	return w, nil
}

// ListWorkspaces returns the workspaces of a user, or of everyone when
// userID is zero, ordered by id.
func (s *Store) ListWorkspaces(ctx context.Context, userID int64) ([]Workspace, error) {
	query := `SELECT id, name, user_id FROM workspaces ORDER BY id`
	args := []any{}
	if userID != 0 {
		query = `SELECT id, name, user_id FROM workspaces WHERE user_id = ? ORDER BY id`
		args = append(args, userID)
	}
	rows, err := s.read.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list workspaces: %w", err)
	}
	defer rows.Close()

	out := []Workspace{}
	for rows.Next() {
		var w Workspace
		if err := rows.Scan(&w.ID, &w.Name, &w.UserID); err != nil {
			return nil, fmt.Errorf("scan workspace: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// AddTable saves def under the next free table id of the workspace.
func (s *Store) AddTable(ctx context.Context, workspaceID int64, def table.TableDefinition) (int64, error) {
	var id int64
	err := s.modifyTables(ctx, workspaceID, func(tables map[int64]table.TableDefinition) error {
		for existing := range tables {
			id = max(id, existing)
		}
		id++
		tables[id] = def
		return nil
	})
	return id, err
}

// SetTable saves def under id, replacing any previous definition.
func (s *Store) SetTable(ctx context.Context, workspaceID, id int64, def table.TableDefinition) error {
	return s.modifyTables(ctx, workspaceID, func(tables map[int64]table.TableDefinition) error {
		tables[id] = def
		return nil
	})
}

// RemoveTable deletes a table and returns its last definition.
func (s *Store) RemoveTable(ctx context.Context, workspaceID, id int64) (table.TableDefinition, error) {
	var removed table.TableDefinition
	err := s.modifyTables(ctx, workspaceID, func(tables map[int64]table.TableDefinition) error {
		def, ok := tables[id]
		if !ok {
			return ErrTableNotFound
		}
		removed = def
		delete(tables, id)
		return nil
	})
	return removed, err
}

// GetTable returns one saved definition.
func (s *Store) GetTable(ctx context.Context, workspaceID, id int64) (table.TableDefinition, error) {
	tables, err := s.loadTables(ctx, s.read, workspaceID)
	if err != nil {
		return table.TableDefinition{}, err
	}
	def, ok := tables[id]
	if !ok {
		return table.TableDefinition{}, ErrTableNotFound
	}
	return def, nil
}

// ListTables returns every saved definition ordered by id.
func (s *Store) ListTables(ctx context.Context, workspaceID int64) ([]StoredTable, error) {
	tables, err := s.loadTables(ctx, s.read, workspaceID)
	if err != nil {
		return nil, err
	}
	out := make([]StoredTable, 0, len(tables))
	for id, def := range tables {
		out = append(out, StoredTable{ID: id, Definition: def})
	}
	slices.SortFunc(out, func(a, b StoredTable) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) loadTables(ctx context.Context, q queryer, workspaceID int64) (map[int64]table.TableDefinition, error) {
	var raw string
	err := q.QueryRowContext(ctx, `SELECT table_json FROM workspaces WHERE id = ?`, workspaceID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrWorkspaceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load tables of workspace %d: %w", workspaceID, err)
	}
	tables := map[int64]table.TableDefinition{}
	if err := json.Unmarshal([]byte(raw), &tables); err != nil {
		return nil, fmt.Errorf("decode tables of workspace %d: %w", workspaceID, err)
	}
	return tables, nil
}

// modifyTables runs fn over the decoded table map of a workspace and writes
// the result back in one transaction.
func (s *Store) modifyTables(ctx context.Context, workspaceID int64, fn func(map[int64]table.TableDefinition) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.write.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	tables, err := s.loadTables(ctx, tx, workspaceID)
	if err != nil {
		return err
	}
	if err := fn(tables); err != nil {
		return err
	}
	raw, err := json.Marshal(tables)
	if err != nil {
		return fmt.Errorf("encode tables: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE workspaces SET table_json = ? WHERE id = ?`, string(raw), workspaceID); err != nil {
		return fmt.Errorf("save tables of workspace %d: %w", workspaceID, err)
	}
	return tx.Commit()
}
