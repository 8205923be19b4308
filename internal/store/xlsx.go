package store

import (
	"context"
	"os"
	"sync"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// XLSXStore implements RecordStore backed by a single workbook file,
// one worksheet per sheet with a header row. It exists for operators
// who want the pipeline output directly openable in a spreadsheet;
// the whole workbook is rewritten on every append, so it is only
// suitable for small watchlists.
type XLSXStore struct {
	mu   sync.Mutex
	path string
	file *xlsx.File
}

// NewXLSX opens the workbook at path, creating an empty one in memory
// if the file does not exist yet.
func NewXLSX(path string) (*XLSXStore, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return &XLSXStore{path: path, file: xlsx.NewFile()}, nil
	}
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "xlsx: open %s", path)
	}
	return &XLSXStore{path: path, file: f}, nil
}

// Migrate ensures every sheet exists with its header row and persists
// the workbook.
func (s *XLSXStore) Migrate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, name := range sheetOrder {
		if _, ok := s.file.Sheet[name]; ok {
			continue
		}
		sheet, err := s.file.AddSheet(name)
		if err != nil {
			return eris.Wrapf(err, "xlsx: add sheet %s", name)
		}
		header := sheet.AddRow()
		for _, c := range sheetColumns[name] {
			header.AddCell().SetString(c)
		}
	}
	return s.save()
}

func (s *XLSXStore) Close() error {
	return nil
}

func (s *XLSXStore) ReadAll(ctx context.Context, sheetName string) ([]Row, error) {
	cols, err := Columns(sheetName)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sheet, ok := s.file.Sheet[sheetName]
	if !ok {
		return nil, eris.Errorf("xlsx: sheet %q not found (run migrate first)", sheetName)
	}

	var out []Row
	for i, row := range sheet.Rows {
		if i == 0 {
			continue // header
		}
		r := make(Row, len(cols))
		for j, c := range cols {
			if j < len(row.Cells) {
				r[c] = row.Cells[j].String()
			} else {
				r[c] = ""
			}
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *XLSXStore) AppendRows(ctx context.Context, sheetName string, appendRows []Row) error {
	if len(appendRows) == 0 {
		return nil
	}
	cols, err := Columns(sheetName)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sheet, ok := s.file.Sheet[sheetName]
	if !ok {
		return eris.Errorf("xlsx: sheet %q not found (run migrate first)", sheetName)
	}

	for _, r := range appendRows {
		row := sheet.AddRow()
		for _, c := range cols {
			row.AddCell().SetString(r[c])
		}
	}
	return s.save()
}

func (s *XLSXStore) save() error {
	return eris.Wrapf(s.file.Save(s.path), "xlsx: save %s", s.path)
}
