package extract

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/welda-labs/compintel/internal/model"
	"github.com/welda-labs/compintel/internal/store"
	"github.com/welda-labs/compintel/pkg/anthropic"
)

// stubLLM returns canned CSV responses in order.
type stubLLM struct {
	responses []string
	err       error
	calls     int
	requests  []anthropic.MessageRequest
}

func (s *stubLLM) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return nil, s.err
	}
	idx := s.calls
	s.calls++
	if idx >= len(s.responses) {
		idx = len(s.responses) - 1
	}
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: s.responses[idx]}},
	}, nil
}

func fastConfig() Config {
	return Config{
		BatchDelay:      time.Millisecond,
		CompetitorDelay: time.Millisecond,
	}
}

func newTestStore(t *testing.T) store.RecordStore {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func seedArticles(t *testing.T, st store.RecordStore, articles ...model.Article) {
	t.Helper()
	rows := make([]store.Row, len(articles))
	for i, a := range articles {
		rows[i] = a.Row()
	}
	require.NoError(t, st.AppendRows(context.Background(), model.SheetArticles, rows))
}

const csvHeader = "program_name,competitor,partner_name,collaboration_type,source_title"

func TestExtractor_Run(t *testing.T) {
	st := newTestStore(t)
	seedArticles(t, st, model.Article{
		Competitor:    "Acme Robotics",
		Title:         "Acme signs deal",
		Body:          "Acme Robotics announced a partnership with Initech.",
		URL:           "https://news.test/acme",
		PublishedDate: "2026-03-02",
	})

	llm := &stubLLM{responses: []string{
		csvHeader + "\n,Acme Robotics,Initech,partnership,Acme signs deal",
	}}

	e := New(llm, st, fastConfig())
	counts, err := e.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, counts.Processed)
	assert.Equal(t, 1, counts.Appended)
	assert.Equal(t, 0, counts.Failed)

	rows, err := st.ReadAll(context.Background(), model.SheetCollaborations)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	rec := model.CollaborationFromRow(rows[0])
	assert.Equal(t, "Initech", rec.PartnerName)
	assert.Equal(t, "https://news.test/acme", rec.SourceURL)
	assert.Equal(t, "2026-03-02", rec.ArticleDate)
}

func TestExtractor_Run_SkipsExtractedArticles(t *testing.T) {
	st := newTestStore(t)
	seedArticles(t, st, model.Article{
		Competitor: "Acme", Title: "Done already", URL: "https://news.test/done", Body: "text",
	})
	rec := model.CollaborationRecord{
		Competitor: "Acme", PartnerName: "Initech",
		SourceTitle: "Done already", SourceURL: "https://news.test/done",
	}
	require.NoError(t, st.AppendRows(context.Background(), model.SheetCollaborations, []store.Row{rec.Row()}))

	llm := &stubLLM{responses: []string{csvHeader}}
	e := New(llm, st, fastConfig())
	counts, err := e.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, counts.Skipped)
	assert.Equal(t, 0, counts.Processed)
	assert.Equal(t, 0, llm.calls)
}

func TestExtractor_Run_ZeroMentionArticleRetriedNextRun(t *testing.T) {
	st := newTestStore(t)
	seedArticles(t, st, model.Article{
		Competitor: "Acme", Title: "No partners here", URL: "https://news.test/none", Body: "text",
	})

	llm := &stubLLM{responses: []string{csvHeader}}
	e := New(llm, st, fastConfig())

	counts, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, counts.Appended)

	// The article produced no records, so the next run picks it up again.
	counts, err = e.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, counts.Processed)
	assert.Equal(t, 0, counts.Skipped)
	assert.Equal(t, 2, llm.calls)
}

func TestExtractor_Run_BatchFailureCounted(t *testing.T) {
	st := newTestStore(t)
	seedArticles(t, st,
		model.Article{Competitor: "Acme", Title: "A", URL: "https://news.test/a", Body: "x"},
		model.Article{Competitor: "Acme", Title: "B", URL: "https://news.test/b", Body: "x"},
	)

	llm := &stubLLM{err: fmt.Errorf("invalid api key")}
	e := New(llm, st, fastConfig())

	counts, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, counts.Processed)
	assert.Equal(t, 2, counts.Failed)
	assert.Equal(t, 0, counts.Appended)
}

func TestExtractor_Run_BatchesPerCompetitor(t *testing.T) {
	st := newTestStore(t)
	var articles []model.Article
	for i := 0; i < 7; i++ {
		articles = append(articles, model.Article{
			Competitor: "Acme",
			Title:      fmt.Sprintf("Article %d", i),
			URL:        fmt.Sprintf("https://news.test/%d", i),
			Body:       "x",
		})
	}
	articles = append(articles, model.Article{
		Competitor: "Globex", Title: "Globex news", URL: "https://news.test/g", Body: "x",
	})
	seedArticles(t, st, articles...)

	llm := &stubLLM{responses: []string{csvHeader}}
	cfg := fastConfig()
	cfg.ArticlesPerCall = 5
	e := New(llm, st, cfg)

	counts, err := e.Run(context.Background())
	require.NoError(t, err)

	// Acme needs two calls (5 + 2), Globex one.
	assert.Equal(t, 3, llm.calls)
	assert.Equal(t, 8, counts.Processed)
}

func TestExtractor_Run_DedupsPairs(t *testing.T) {
	st := newTestStore(t)
	seedArticles(t, st, model.Article{
		Competitor: "Acme", Title: "Acme signs deal", URL: "https://news.test/acme", Body: "x",
	})

	// Model returns the same pair twice.
	llm := &stubLLM{responses: []string{
		csvHeader + "\n,Acme,Initech,partnership,Acme signs deal\n,Acme,Initech,partnership,Acme signs deal",
	}}
	e := New(llm, st, fastConfig())

	counts, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, counts.Appended)
}

func TestExtractor_Run_DateFallsBackToBody(t *testing.T) {
	st := newTestStore(t)
	seedArticles(t, st, model.Article{
		Competitor: "Acme", Title: "Acme signs deal",
		URL:  "https://news.test/acme",
		Body: "Published March 2, 2026. Acme partners with Initech.",
	})

	llm := &stubLLM{responses: []string{
		csvHeader + "\n,Acme,Initech,partnership,Acme signs deal",
	}}
	e := New(llm, st, fastConfig())

	_, err := e.Run(context.Background())
	require.NoError(t, err)

	rows, err := st.ReadAll(context.Background(), model.SheetCollaborations)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "2026-03-02", rows[0]["article_date"])
}

// flakyStore counts collaboration appends and can start rejecting
// them after the first failAfter calls succeed.
type flakyStore struct {
	store.RecordStore
	appends   int
	failAfter int
}

func (s *flakyStore) AppendRows(ctx context.Context, sheet string, rows []store.Row) error {
	if sheet != model.SheetCollaborations {
		return s.RecordStore.AppendRows(ctx, sheet, rows)
	}
	s.appends++
	if s.failAfter > 0 && s.appends > s.failAfter {
		return fmt.Errorf("append rejected")
	}
	return s.RecordStore.AppendRows(ctx, sheet, rows)
}

func TestExtractor_Run_AppendsPerCompetitor(t *testing.T) {
	fs := &flakyStore{RecordStore: newTestStore(t)}
	seedArticles(t, fs,
		model.Article{Competitor: "Acme", Title: "Acme news", URL: "https://news.test/a", Body: "x"},
		model.Article{Competitor: "Globex", Title: "Globex news", URL: "https://news.test/g", Body: "x"},
	)

	llm := &stubLLM{responses: []string{
		csvHeader + "\n,Acme,Initech,partnership,Acme news",
		csvHeader + "\n,Globex,Hooli,partnership,Globex news",
	}}
	e := New(llm, fs, fastConfig())

	counts, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, counts.Appended)
	assert.Equal(t, 2, fs.appends, "each competitor group flushes separately")
}

func TestExtractor_Run_KeepsEarlierCompetitorsOnAppendFailure(t *testing.T) {
	fs := &flakyStore{RecordStore: newTestStore(t), failAfter: 1}
	seedArticles(t, fs,
		model.Article{Competitor: "Acme", Title: "Acme news", URL: "https://news.test/a", Body: "x"},
		model.Article{Competitor: "Globex", Title: "Globex news", URL: "https://news.test/g", Body: "x"},
	)

	llm := &stubLLM{responses: []string{
		csvHeader + "\n,Acme,Initech,partnership,Acme news",
		csvHeader + "\n,Globex,Hooli,partnership,Globex news",
	}}
	e := New(llm, fs, fastConfig())

	_, err := e.Run(context.Background())
	require.Error(t, err)

	// The first competitor's extraction was flushed before the failure
	// and is not re-submitted on the next run.
	rows, err := fs.RecordStore.ReadAll(context.Background(), model.SheetCollaborations)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Initech", rows[0]["partner_name"])

	// Once the store recovers only the failed competitor is redone.
	fs.failAfter = 0
	counts, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, counts.Skipped)
	assert.Equal(t, 1, counts.Processed)
	assert.Equal(t, 1, counts.Appended)
}

func TestExtractor_Run_SystemPromptCached(t *testing.T) {
	st := newTestStore(t)
	seedArticles(t, st, model.Article{
		Competitor: "Acme", Title: "T", URL: "https://news.test/t", Body: "x",
	})

	llm := &stubLLM{responses: []string{csvHeader}}
	e := New(llm, st, fastConfig())

	_, err := e.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, llm.requests, 1)
	require.Len(t, llm.requests[0].System, 1)
	assert.NotNil(t, llm.requests[0].System[0].CacheControl)
}
