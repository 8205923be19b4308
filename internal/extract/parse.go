package extract

import (
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"

	"github.com/welda-labs/compintel/internal/model"
)

// llmRow mirrors the CSV schema the extraction prompt demands.
type llmRow struct {
	ProgramName       string `csv:"program_name"`
	Competitor        string `csv:"competitor"`
	PartnerName       string `csv:"partner_name"`
	CollaborationType string `csv:"collaboration_type"`
	SourceTitle       string `csv:"source_title"`
}

// StripFences removes a surrounding markdown code fence if the model
// added one despite instructions.
func StripFences(text string) string {
	t := strings.TrimSpace(text)
	if !strings.HasPrefix(t, "```") {
		return t
	}
	t = strings.TrimPrefix(t, "```")
	// Drop a language tag like "csv" on the opening fence line.
	if i := strings.IndexByte(t, '\n'); i >= 0 {
		firstLine := strings.TrimSpace(t[:i])
		if firstLine == "" || !strings.ContainsAny(firstLine, ",") {
			t = t[i+1:]
		}
	}
	t = strings.TrimSuffix(strings.TrimSpace(t), "```")
	return strings.TrimSpace(t)
}

// ParseResponse decodes one LLM response into partner rows. Rows with
// no partner name, or naming the competitor itself as the partner, are
// dropped.
func ParseResponse(text string) ([]llmRow, error) {
	body := StripFences(text)
	if body == "" {
		return nil, nil
	}

	reader := csv.NewReader(strings.NewReader(body))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	dec, err := csvutil.NewDecoder(reader)
	if err != nil {
		return nil, eris.Wrap(err, "extract: decode csv header")
	}

	var rows []llmRow
	for {
		var row llmRow
		if err := dec.Decode(&row); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, eris.Wrap(err, "extract: decode csv row")
		}
		partner := strings.TrimSpace(row.PartnerName)
		if partner == "" {
			continue
		}
		if strings.EqualFold(partner, strings.TrimSpace(row.Competitor)) {
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// titlePrefixLen bounds the last-resort prefix comparison in
// matchSourceArticle.
const titlePrefixLen = 30

// matchSourceArticle finds the batch article a returned source_title
// refers to. The model sometimes truncates or lightly rewrites titles,
// so after an exact pass a case-insensitive substring pass runs in both
// directions, then a prefix comparison catches retitled suffixes.
func matchSourceArticle(sourceTitle string, articles []model.Article) *model.Article {
	title := strings.TrimSpace(sourceTitle)
	if title == "" {
		return nil
	}

	for i := range articles {
		if articles[i].Title == title {
			return &articles[i]
		}
	}

	lower := strings.ToLower(title)
	for i := range articles {
		at := strings.ToLower(articles[i].Title)
		if at == "" {
			continue
		}
		if strings.Contains(at, lower) || strings.Contains(lower, at) {
			return &articles[i]
		}
	}

	for i := range articles {
		at := strings.ToLower(articles[i].Title)
		if at == "" {
			continue
		}
		if runePrefix(at, titlePrefixLen) == runePrefix(lower, titlePrefixLen) {
			return &articles[i]
		}
	}
	return nil
}

func runePrefix(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		r = r[:n]
	}
	return string(r)
}
