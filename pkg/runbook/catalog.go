// Package runbook loads the static runbook catalog and scores its
// entries against an incident's category, title and description.
package runbook

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/triage-autopilot/autopilot/pkg/domain"
)

//go:embed catalog.yaml
var embeddedCatalog []byte

type catalogEntry struct {
	Name       string   `yaml:"name"`
	RunbookURL string   `yaml:"runbook_url"`
	Steps      []string `yaml:"steps"`
}

// keywords associated with each runbook category, used for the
// keyword-overlap component of the match score.
var keywords = map[domain.Category][]string{
	domain.CategoryDeployment: {
		"deploy", "release", "rollout", "ci/cd", "pipeline", "build",
		"container", "kubernetes", "k8s", "helm", "docker", "image",
		"version", "upgrade", "rollback", "canary", "blue-green",
	},
	domain.CategoryDatabase: {
		"database", "db", "sql", "query", "postgres", "mysql", "mongo",
		"redis", "cache", "connection pool", "replication", "deadlock",
		"slow query", "index", "migration", "backup", "restore",
	},
	domain.CategoryNetwork: {
		"network", "dns", "load balancer", "connectivity", "timeout",
		"latency", "ssl", "tls", "certificate", "firewall", "vpc",
		"routing", "proxy", "nginx", "haproxy", "cdn",
	},
	domain.CategoryApplication: {
		"application", "app", "error", "exception", "crash", "memory",
		"cpu", "performance", "slow", "degraded", "bug", "500",
		"api", "endpoint", "service", "microservice",
	},
	domain.CategorySecurity: {
		"security", "breach", "unauthorized", "vulnerability", "cve",
		"attack", "intrusion", "suspicious", "malware", "phishing",
		"credential", "leak", "exposure", "audit",
	},
	domain.CategoryInfrastructure: {
		"infrastructure", "server", "vm", "cloud", "aws", "gcp", "azure",
		"instance", "scaling", "autoscale", "disk", "storage", "compute",
		"region", "zone", "availability",
	},
}

// Catalog is the loaded-once, read-only set of runbook entries.
type Catalog struct {
	entries map[domain.Category]catalogEntry
}

// LoadCatalog parses the embedded catalog. It is loaded once at startup
// and never mutated afterward.
func LoadCatalog() (*Catalog, error) {
	raw := map[string]catalogEntry{}
	if err := yaml.Unmarshal(embeddedCatalog, &raw); err != nil {
		return nil, fmt.Errorf("parse runbook catalog: %w", err)
	}

	entries := make(map[domain.Category]catalogEntry, len(raw))
	for key, entry := range raw {
		entries[domain.Category(key)] = entry
	}
	return &Catalog{entries: entries}, nil
}

// List returns every catalog entry, in no particular order.
func (c *Catalog) List() []domain.RunbookEntry {
	out := make([]domain.RunbookEntry, 0, len(c.entries))
	for category, entry := range c.entries {
		out = append(out, domain.RunbookEntry{
			Category: category,
			Name:     entry.Name,
			URL:      entry.RunbookURL,
			Steps:    entry.Steps,
		})
	}
	return out
}

func keywordOverlap(text string, words []string) float64 {
	if text == "" || len(words) == 0 {
		return 0.0
	}
	lower := strings.ToLower(text)
	matches := 0
	for _, kw := range words {
		if strings.Contains(lower, strings.ToLower(kw)) {
			matches++
		}
	}

	baseScore := float64(matches) / float64(len(words))
	boost := 1.0 + float64(matches)*0.1
	if boost > 2.0 {
		boost = 2.0
	}
	score := baseScore * boost
	if score > 1.0 {
		return 1.0
	}
	return score
}

// Match scores every catalog entry against the incident's category,
// title and description, combining a type-match component (60%) with a
// keyword-overlap component (40%). It returns the best-scoring entry as
// primary, plus up to three further entries scoring above 0.1 as
// alternatives, both sorted by descending score.
func (c *Catalog) Match(category domain.Category, title, description string) (domain.RunbookMatch, []domain.RunbookMatch) {
	combinedText := title + " " + description

	matches := make([]domain.RunbookMatch, 0, len(c.entries))
	for key, entry := range c.entries {
		typeScore := 0.0
		if key == category {
			typeScore = 1.0
		}
		keywordScore := keywordOverlap(combinedText, keywords[key])
		combined := typeScore*0.6 + keywordScore*0.4

		matches = append(matches, domain.RunbookMatch{
			Entry: domain.RunbookEntry{
				Category: key,
				Name:     entry.Name,
				URL:      entry.RunbookURL,
				Steps:    entry.Steps,
			},
			Score: roundTo2(combined),
		})
	}

	sortDescending(matches)

	if len(matches) == 0 {
		return domain.RunbookMatch{}, nil
	}

	primary := matches[0]
	var alternatives []domain.RunbookMatch
	for _, m := range matches[1:] {
		if len(alternatives) >= 3 {
			break
		}
		if m.Score > 0.1 {
			alternatives = append(alternatives, m)
		}
	}
	return primary, alternatives
}

func sortDescending(matches []domain.RunbookMatch) {
	for i := 1; i < len(matches); i++ {
		for j := i; j > 0 && matches[j].Score > matches[j-1].Score; j-- {
			matches[j], matches[j-1] = matches[j-1], matches[j]
		}
	}
}

func roundTo2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}
