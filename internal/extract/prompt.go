package extract

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/welda-labs/compintel/internal/model"
)

// systemPrompt instructs the model to emit CSV so responses parse
// mechanically. Kept identical across batches so prompt caching applies.
const systemPrompt = `You are an analyst who reads competitor news articles and extracts
partner organizations.

For every article, identify each organization the competitor is
collaborating with (partnerships, joint ventures, alliances, supply
agreements, co-development deals). Ignore the competitor itself,
subsidiaries of the competitor, government regulators, and generic
industry bodies.

Respond with CSV only. The first line must be exactly this header:

program_name,competitor,partner_name,collaboration_type,source_title

One row per (competitor, partner) pair found. Columns:
- program_name: the named program/initiative if the article names one, else empty
- competitor: the competitor the article is about
- partner_name: the partner organization's name as written in the article
- collaboration_type: one of partnership, joint_venture, alliance, supply, co_development, investment, other
- source_title: the exact title of the article the pair came from

Quote any field containing a comma. If an article mentions no partners,
emit no rows for it. Do not add commentary or code fences.`

// buildUserPrompt renders one batch of articles for extraction. Bodies
// are truncated so a batch stays well inside the context window.
func buildUserPrompt(articles []model.Article, bodyLimit int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Extract partner organizations from these %d articles.\n", len(articles))
	for i, a := range articles {
		body := truncateBody(a.Body, bodyLimit)
		fmt.Fprintf(&b, "\n--- Article %d ---\nCompetitor: %s\nTitle: %s\nBody:\n%s\n", i+1, a.Competitor, a.Title, body)
	}
	return b.String()
}

// truncateBody cuts a body to at most limit bytes without splitting a
// rune. Korean article bodies are multi-byte throughout.
func truncateBody(body string, limit int) string {
	if limit <= 0 || len(body) <= limit {
		return body
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(body[cut]) {
		cut--
	}
	return body[:cut]
}
