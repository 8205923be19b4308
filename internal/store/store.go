// Package store provides the append-only record store backing the
// pipeline. Every sheet is an ordered sequence of string-valued rows;
// rows are only ever appended, never updated or deleted, so readers can
// rebuild derived state (such as dedup indexes) from a full scan.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/welda-labs/compintel/internal/model"
)

// Row is one record keyed by column name. Columns absent from the map
// are persisted as empty strings.
type Row = map[string]string

// RecordStore is the persistence interface shared by all backends.
// AppendRows must preserve the order of the given rows, and ReadAll
// must return rows in their original append order.
type RecordStore interface {
	ReadAll(ctx context.Context, sheet string) ([]Row, error)
	AppendRows(ctx context.Context, sheet string, rows []Row) error
	Migrate(ctx context.Context) error
	Close() error
}

// sheetColumns fixes the column set and order of every sheet.
var sheetColumns = map[string][]string{
	model.SheetArticles:       model.ArticleColumns,
	model.SheetCollaborations: model.CollaborationColumns,
	model.SheetMappings:       model.MappingColumns,
	model.SheetUnmatched:      model.UnmatchedColumns,
	model.SheetRuns:           model.RunColumns,
}

// sheetOrder is the stable iteration order for migrations and xlsx
// sheet creation.
var sheetOrder = []string{
	model.SheetArticles,
	model.SheetCollaborations,
	model.SheetMappings,
	model.SheetUnmatched,
	model.SheetRuns,
}

// Columns returns the column order for a known sheet.
func Columns(sheet string) ([]string, error) {
	cols, ok := sheetColumns[sheet]
	if !ok {
		return nil, eris.Errorf("store: unknown sheet %q", sheet)
	}
	return cols, nil
}

// Backend names accepted by Open.
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendXLSX     = "xlsx"
)

// Open constructs a RecordStore for the named backend. The dsn is a
// file path for sqlite and xlsx, and a connection string for postgres.
func Open(ctx context.Context, backend, dsn string, poolCfg *PoolConfig) (RecordStore, error) {
	switch backend {
	case BackendSQLite, "":
		return NewSQLite(dsn)
	case BackendPostgres:
		return NewPostgres(ctx, dsn, poolCfg)
	case BackendXLSX:
		return NewXLSX(dsn)
	default:
		return nil, eris.Errorf("store: unknown backend %q", backend)
	}
}
