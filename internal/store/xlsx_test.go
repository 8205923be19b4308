package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/welda-labs/compintel/internal/model"
)

func newTestXLSXStore(t *testing.T) (*XLSXStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "records.xlsx")
	st, err := NewXLSX(path)
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	return st, path
}

func TestXLSX_AppendAndReadAll(t *testing.T) {
	st, _ := newTestXLSXStore(t)
	ctx := context.Background()

	c := model.CollaborationRecord{
		ProgramName:       "Acme Partner Network",
		Competitor:        "Acme Robotics",
		PartnerName:       "Initech",
		CollaborationType: "partnership",
		SourceTitle:       "Acme and Initech team up",
		SourceURL:         "https://news.test/acme-initech",
		ArticleDate:       "2026-03-02",
	}
	require.NoError(t, st.AppendRows(ctx, model.SheetCollaborations, []Row{c.Row()}))

	rows, err := st.ReadAll(ctx, model.SheetCollaborations)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, c, model.CollaborationFromRow(rows[0]))
}

func TestXLSX_PersistsAcrossReopen(t *testing.T) {
	st, path := newTestXLSXStore(t)
	ctx := context.Background()

	require.NoError(t, st.AppendRows(ctx, model.SheetArticles, []Row{
		{"title": "saved", "url": "https://news.test/saved"},
	}))

	reopened, err := NewXLSX(path)
	require.NoError(t, err)

	rows, err := reopened.ReadAll(ctx, model.SheetArticles)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "saved", rows[0]["title"])
}

func TestXLSX_ReadBeforeMigrate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fresh.xlsx")
	st, err := NewXLSX(path)
	require.NoError(t, err)

	_, err = st.ReadAll(context.Background(), model.SheetArticles)
	assert.Error(t, err)
}

func TestXLSX_HeaderRowSkipped(t *testing.T) {
	st, _ := newTestXLSXStore(t)
	ctx := context.Background()

	rows, err := st.ReadAll(ctx, model.SheetRuns)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestXLSX_OrderPreserved(t *testing.T) {
	st, _ := newTestXLSXStore(t)
	ctx := context.Background()

	require.NoError(t, st.AppendRows(ctx, model.SheetArticles, []Row{
		{"title": "one"}, {"title": "two"},
	}))
	require.NoError(t, st.AppendRows(ctx, model.SheetArticles, []Row{
		{"title": "three"},
	}))

	rows, err := st.ReadAll(ctx, model.SheetArticles)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "one", rows[0]["title"])
	assert.Equal(t, "two", rows[1]["title"])
	assert.Equal(t, "three", rows[2]["title"])
}
