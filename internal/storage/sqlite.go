package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"sort"

	"github.com/cockroachdb/errors"
	_ "github.com/mattn/go-sqlite3"

	"compgen/internal/registry"
)

// ErrNotFound is returned when no registry is stored for a package.
var ErrNotFound = errors.New("registry not found")

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates or opens a SQLite database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to init schema")
	}

	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS registries (
			package TEXT PRIMARY KEY,
			version TEXT,
			schema_version TEXT,
			document JSON
		);`,
		`CREATE TABLE IF NOT EXISTS components (
			package TEXT,
			name TEXT,
			type TEXT,
			file TEXT,
			PRIMARY KEY (package, name)
		);`,
		`CREATE TABLE IF NOT EXISTS external_refs (
			package TEXT,
			external TEXT,
			PRIMARY KEY (package, external)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_components_file ON components(file);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) SaveRegistry(ctx context.Context, reg *registry.Registry) error {
	if reg == nil {
		return errors.New("registry is nil")
	}
	document, err := json.Marshal(reg)
	if err != nil {
		return errors.Wrap(err, "failed to marshal registry")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO registries (package, version, schema_version, document)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(package) DO UPDATE SET
			version=excluded.version,
			schema_version=excluded.schema_version,
			document=excluded.document
	`, reg.Package, reg.Version, reg.SchemaVersion, document); err != nil {
		return err
	}

	// Snapshot semantics: rows of the previous generation are replaced, not merged.
	if _, err := tx.ExecContext(ctx, "DELETE FROM components WHERE package = ?", reg.Package); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM external_refs WHERE package = ?", reg.Package); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO components (package, name, type, file) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, c := range reg.Components {
		if _, err := stmt.ExecContext(ctx, reg.Package, c.Name, c.Type, c.File); err != nil {
			return err
		}
	}

	refStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO external_refs (package, external) VALUES (?, ?)
		ON CONFLICT(package, external) DO NOTHING
	`)
	if err != nil {
		return err
	}
	defer refStmt.Close()
	for _, ext := range reg.ExternalPackages {
		if _, err := refStmt.ExecContext(ctx, reg.Package, ext); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) LoadRegistry(ctx context.Context, packageName string) (*registry.Registry, error) {
	row := s.db.QueryRowContext(ctx, "SELECT document FROM registries WHERE package = ?", packageName)

	var document []byte
	if err := row.Scan(&document); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Wrapf(ErrNotFound, "package %s", packageName)
		}
		return nil, errors.Wrap(err, "failed to scan registry")
	}

	var reg registry.Registry
	if err := json.Unmarshal(document, &reg); err != nil {
		return nil, errors.Wrapf(err, "failed to decode registry of %s", packageName)
	}
	return &reg, nil
}

func (s *SQLiteStore) HasPackage(ctx context.Context, packageName string) (bool, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM registries WHERE package = ?", packageName).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *SQLiteStore) PublishedPackages(ctx context.Context, names []string) ([]string, error) {
	var out []string
	for _, name := range names {
		ok, err := s.HasPackage(ctx, name)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *SQLiteStore) FindComponentsByFile(ctx context.Context, file string) ([]ComponentRecord, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT package, name, type, file FROM components WHERE file = ? ORDER BY package, name", file)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []ComponentRecord
	for rows.Next() {
		var r ComponentRecord
		if err := rows.Scan(&r.Package, &r.Name, &r.Type, &r.File); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
