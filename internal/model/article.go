// Package model defines the records that flow between pipeline stages and
// their row encodings for the record store.
package model

// Sheet names for the record store. Every stage reads from and appends to
// these; no other tables exist.
const (
	SheetArticles       = "articles"
	SheetCollaborations = "collaborations"
	SheetMappings       = "mappings"
	SheetUnmatched      = "unmatched"
	SheetRuns           = "runs"
)

// ArticleColumns is the column order of the articles sheet.
var ArticleColumns = []string{
	"competitor", "query", "title", "body", "url", "published_date",
}

// Article is one crawled news article. Identity key is URL; articles are
// immutable once appended.
type Article struct {
	Competitor    string `json:"competitor"`
	Query         string `json:"query"`
	Title         string `json:"title"`
	Body          string `json:"body"`
	URL           string `json:"url"`
	PublishedDate string `json:"published_date,omitempty"`
}

// Row encodes the article for the record store.
func (a Article) Row() map[string]string {
	return map[string]string{
		"competitor":     a.Competitor,
		"query":          a.Query,
		"title":          a.Title,
		"body":           a.Body,
		"url":            a.URL,
		"published_date": a.PublishedDate,
	}
}

// ArticleFromRow decodes an articles-sheet row.
func ArticleFromRow(row map[string]string) Article {
	return Article{
		Competitor:    row["competitor"],
		Query:         row["query"],
		Title:         row["title"],
		Body:          row["body"],
		URL:           row["url"],
		PublishedDate: row["published_date"],
	}
}
