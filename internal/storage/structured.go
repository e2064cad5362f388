package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// databaseExtensions are the file suffixes treated as structured databases
// when enumerating the data directory.
var databaseExtensions = []string{".db", ".sqlite", ".sqlite3"}

var ErrInvalidDatabaseName = errors.New("invalid database name")

// Record is one row of a collection as seen by the inspector. Key is the
// primary key value (string or number); Value is the single value column,
// or a column-to-value map when the table has several.
type Record struct {
	Key   any
	Value any
}

// Database is a read-only view over any SQLite file. Tables are treated as
// collections.
type Database struct {
	db   *sql.DB
	path string
}

type collectionLayout struct {
	keyColumn    string
	valueColumns []string
}

// OpenDatabase opens an existing SQLite file read-only. It never creates
// files and fails if path is not a SQLite database.
func OpenDatabase(ctx context.Context, path string) (*Database, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat database: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("database path %s is a directory", path)
	}

	dsn, err := sqliteDSN(path, url.Values{"mode": {"ro"}})
	if err != nil {
		return nil, fmt.Errorf("resolve database path: %w", err)
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	// sqlite only reads the header on first access
	var n int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(1) FROM sqlite_master").Scan(&n); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("read sqlite schema: %w", err)
	}

	return &Database{db: db, path: path}, nil
}

// DatabasePath resolves a database name, as reported in inventory entries,
// to a file inside dataDir. Names that would escape dataDir are rejected.
func DatabasePath(dataDir, name string) (string, error) {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidDatabaseName, name)
	}
	return filepath.Join(dataDir, name), nil
}

// DiscoverDatabases lists the database files present in dataDir, sorted by
// name.
func DiscoverDatabases(dataDir string) ([]string, error) {
	entries, err := os.ReadDir(dataDir)
	if err != nil {
		return nil, fmt.Errorf("read data directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		for _, want := range databaseExtensions {
			if ext == want {
				names = append(names, entry.Name())
				break
			}
		}
	}
	sort.Strings(names)
	return names, nil
}

// Name returns the database file name
func (d *Database) Name() string {
	return filepath.Base(d.path)
}

func (d *Database) Close() error {
	if d == nil || d.db == nil {
		return nil
	}
	return d.db.Close()
}

// Collections lists user tables in name order.
func (d *Database) Collections(ctx context.Context) ([]string, error) {
	rows, err := d.db.QueryContext(ctx,
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan collection name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (d *Database) layout(ctx context.Context, collection string) (collectionLayout, error) {
	rows, err := d.db.QueryContext(ctx, "SELECT name, pk FROM pragma_table_info(?) ORDER BY cid", collection)
	if err != nil {
		return collectionLayout{}, fmt.Errorf("read columns of %s: %w", collection, err)
	}
	defer rows.Close()

	var (
		columns []string
		pkCols  []string
	)
	for rows.Next() {
		var (
			name string
			pk   int
		)
		if err := rows.Scan(&name, &pk); err != nil {
			return collectionLayout{}, fmt.Errorf("scan column of %s: %w", collection, err)
		}
		columns = append(columns, name)
		if pk > 0 {
			pkCols = append(pkCols, name)
		}
	}
	if err := rows.Err(); err != nil {
		return collectionLayout{}, err
	}
	if len(columns) == 0 {
		return collectionLayout{}, fmt.Errorf("collection %s not found", collection)
	}

	// Composite keys are addressed by rowid
	l := collectionLayout{keyColumn: "rowid"}
	if len(pkCols) == 1 {
		l.keyColumn = pkCols[0]
	}
	for _, c := range columns {
		if c != l.keyColumn {
			l.valueColumns = append(l.valueColumns, c)
		}
	}
	return l, nil
}

func (l collectionLayout) selectList() string {
	list := quoteKeyColumn(l.keyColumn)
	for _, c := range l.valueColumns {
		list += ", " + quoteIdent(c)
	}
	return list
}

func quoteKeyColumn(name string) string {
	if name == "rowid" {
		return name
	}
	return quoteIdent(name)
}

func (l collectionLayout) value(cols []any) any {
	if len(l.valueColumns) == 1 {
		return normalizeColumn(cols[0])
	}
	m := make(map[string]any, len(l.valueColumns))
	for i, c := range l.valueColumns {
		m[c] = normalizeColumn(cols[i])
	}
	return m
}

func normalizeColumn(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

// Cursor calls fn for every record of collection in key order. Iteration
// stops at the first error returned by fn.
func (d *Database) Cursor(ctx context.Context, collection string, fn func(Record) error) error {
	l, err := d.layout(ctx, collection)
	if err != nil {
		return err
	}

	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY %s",
		l.selectList(), quoteIdent(collection), quoteKeyColumn(l.keyColumn))
	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("open cursor on %s: %w", collection, err)
	}
	defer rows.Close()

	for rows.Next() {
		dest := make([]any, 1+len(l.valueColumns))
		ptrs := make([]any, len(dest))
		for i := range dest {
			ptrs[i] = &dest[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return fmt.Errorf("scan %s: %w", collection, err)
		}
		if err := fn(Record{Key: normalizeColumn(dest[0]), Value: l.value(dest[1:])}); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Lookup returns the value stored under key in collection.
func (d *Database) Lookup(ctx context.Context, collection string, key any) (any, bool, error) {
	l, err := d.layout(ctx, collection)
	if err != nil {
		return nil, false, err
	}

	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = ?",
		l.selectList(), quoteIdent(collection), quoteKeyColumn(l.keyColumn))
	dest := make([]any, 1+len(l.valueColumns))
	ptrs := make([]any, len(dest))
	for i := range dest {
		ptrs[i] = &dest[i]
	}
	err = d.db.QueryRowContext(ctx, query, key).Scan(ptrs...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("lookup %s: %w", collection, err)
	}
	return l.value(dest[1:]), true, nil
}
