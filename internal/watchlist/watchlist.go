// Package watchlist loads the competitor watchlist: the set of
// companies to monitor, each with a business unit label and the search
// keywords used to build crawl queries.
package watchlist

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Competitor is one monitored company.
type Competitor struct {
	Name         string   `yaml:"name"`
	BusinessUnit string   `yaml:"business_unit"`
	Keywords     []string `yaml:"keywords"`
}

// Watchlist is the full set of monitored competitors.
type Watchlist struct {
	Competitors []Competitor `yaml:"competitors"`
}

// defaultKeywords seed the crawl queries for competitors that do not
// declare their own.
var defaultKeywords = []string{"partnership", "collaboration", "alliance"}

// Load reads and validates a watchlist YAML file.
func Load(path string) (*Watchlist, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "watchlist: read %s", path)
	}
	return Parse(data)
}

// Parse decodes watchlist YAML. Competitors without keywords get the
// default set; competitors without a name are rejected.
func Parse(data []byte) (*Watchlist, error) {
	var w Watchlist
	if err := yaml.Unmarshal(data, &w); err != nil {
		return nil, eris.Wrap(err, "watchlist: parse yaml")
	}
	if len(w.Competitors) == 0 {
		return nil, eris.New("watchlist: no competitors defined")
	}

	seen := make(map[string]bool, len(w.Competitors))
	for i := range w.Competitors {
		c := &w.Competitors[i]
		if c.Name == "" {
			return nil, eris.Errorf("watchlist: competitor %d has no name", i)
		}
		if seen[c.Name] {
			return nil, eris.Errorf("watchlist: duplicate competitor %q", c.Name)
		}
		seen[c.Name] = true
		if len(c.Keywords) == 0 {
			c.Keywords = append([]string(nil), defaultKeywords...)
		}
	}
	return &w, nil
}

// Queries expands a competitor into its search query strings, one per
// keyword.
func (c Competitor) Queries() []string {
	queries := make([]string, 0, len(c.Keywords))
	for _, kw := range c.Keywords {
		queries = append(queries, c.Name+" "+kw)
	}
	return queries
}
