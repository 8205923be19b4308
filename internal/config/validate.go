package config

import (
	"strings"

	"github.com/rotisserie/eris"

	"github.com/welda-labs/compintel/internal/store"
)

// Validate checks that the fields a command depends on are set. Mode is
// the command name; each mode only requires the credentials its stages
// touch, so a resolve-only run works without search or LLM keys.
func (c *Config) Validate(mode string) error {
	var problems []string

	storeChecked := false
	requireStore := func() {
		if storeChecked {
			return
		}
		storeChecked = true
		switch c.Store.Backend {
		case store.BackendSQLite, store.BackendPostgres, store.BackendXLSX:
		default:
			problems = append(problems, "store.backend must be sqlite, postgres, or xlsx")
		}
		if c.Store.DSN == "" {
			problems = append(problems, "store.dsn is required")
		}
	}
	requireCrawl := func() {
		requireStore()
		if c.Websearch.Key == "" {
			problems = append(problems, "websearch.key is required")
		}
		if c.Watchlist.Path == "" {
			problems = append(problems, "watchlist.path is required")
		}
	}
	requireExtract := func() {
		requireStore()
		if c.Anthropic.Key == "" {
			problems = append(problems, "anthropic.key is required")
		}
	}
	requireResolve := func() {
		requireStore()
		if c.Dart.Key == "" {
			problems = append(problems, "dart.key is required")
		}
	}

	switch mode {
	case "crawl":
		requireCrawl()
	case "extract":
		requireExtract()
	case "resolve":
		requireResolve()
	case "run":
		requireCrawl()
		requireExtract()
		requireResolve()
	case "serve":
		requireCrawl()
		requireExtract()
		requireResolve()
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
	case "status", "migrate":
		requireStore()
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
}
