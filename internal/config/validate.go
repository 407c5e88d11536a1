package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// Validate checks that the configuration is usable for the given mode.
// Modes: "run" (hunt/watch pipelines), "serve" (API server), "push"
// (external lead delivery). Returns one error listing every problem found.
func (c *Config) Validate(mode string) error {
	var problems []string

	appendShared := func() {
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required")
		}
		if c.Store.Driver != "sqlite" && c.Store.Driver != "postgres" {
			problems = append(problems, fmt.Sprintf("store.driver must be sqlite or postgres, got %q", c.Store.Driver))
		}
	}

	switch mode {
	case "run":
		appendShared()
		if c.Anthropic.Key == "" {
			problems = append(problems, "anthropic.key is required")
		}
		if c.Jina.Key == "" {
			problems = append(problems, "jina.key is required")
		}
		if c.Search.Concurrency < 1 || c.Search.Concurrency > 10 {
			problems = append(problems, "search.concurrency must be between 1 and 10")
		}
		if c.Evidence.Concurrency < 1 || c.Evidence.Concurrency > 20 {
			problems = append(problems, "evidence.concurrency must be between 1 and 20")
		}
		if c.Extract.MinConfidence < 0 || c.Extract.MinConfidence > 1 {
			problems = append(problems, "extract.min_confidence must be within [0,1]")
		}
		if c.Plan.MinQueries < 1 || c.Plan.MaxQueries < c.Plan.MinQueries {
			problems = append(problems, "plan.min_queries/max_queries must satisfy 1 <= min <= max")
		}
		if c.Evidence.MaxSourcesPerDomain < 1 {
			problems = append(problems, "evidence.max_sources_per_domain must be >= 1")
		}
	case "serve":
		appendShared()
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
	case "push":
		appendShared()
		if c.Notion.Token == "" && c.Salesforce.ConsumerKey == "" {
			problems = append(problems, "push requires notion.token or salesforce credentials")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
}
