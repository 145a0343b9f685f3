package llm

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/polzovatel/webnav-agent/internal/config"
)

// Mock is a rule-driven offline model. It reads the planner prompt and
// answers with the JSON a cooperative model would produce, which is
// enough to drive search-and-click flows in tests and demos.
type Mock struct {
	KnownSites map[string]string
	HomeURL    string
}

// NewMock returns a Mock with the default known-sites table.
func NewMock() *Mock {
	cfg := config.Default()
	return &Mock{KnownSites: cfg.KnownSites, HomeURL: cfg.HomeURL}
}

func (m *Mock) Name() string { return "mock" }

func (m *Mock) Warmup(ctx context.Context) error { return nil }

var (
	goalRe = regexp.MustCompile(`(?i)GOAL:\s*([^\n]+)`)
	urlRe  = regexp.MustCompile(`(https?://\S+|[a-z0-9-]+\.[a-z]{2,}\S*)`)
)

func (m *Mock) Generate(ctx context.Context, system, user string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	u := strings.ToLower(user)

	goal := ""
	if match := goalRe.FindStringSubmatch(user); match != nil {
		goal = strings.ToLower(strings.TrimSpace(match[1]))
	}

	if strings.Contains(u, "about:blank") {
		if url := m.findDirectURL(goal); url != "" {
			return fmt.Sprintf(`{"action":"navigate","url":"%s","thought":"Navigating directly"}`, url), nil
		}
		return fmt.Sprintf(`{"action":"navigate","url":"%s","thought":"Starting from the default engine"}`, m.HomeURL), nil
	}

	if strings.Contains(u, "before you continue") || strings.Contains(u, "accept all") {
		if strings.Contains(user, "#L2AGLb") {
			return `{"action":"click","selector":"#L2AGLb","thought":"Accepting cookies"}`, nil
		}
		if strings.Contains(user, "#W0wltc") {
			return `{"action":"click","selector":"#W0wltc","thought":"Rejecting cookies"}`, nil
		}
	}

	if strings.Contains(u, "type #apjfqb") || strings.Contains(u, "type textarea") {
		return `{"action":"press","key":"Enter","thought":"Submitting the search"}`, nil
	}

	if strings.Contains(u, "google.com") && !m.onTarget(u, goal) {
		if url := m.findDirectURL(goal); url != "" {
			return fmt.Sprintf(`{"action":"navigate","url":"%s","thought":"Navigating to the requested site"}`, url), nil
		}
		if strings.Contains(user, "#APjFqb") || strings.Contains(u, "textarea") {
			query := m.query(goal)
			return fmt.Sprintf(`{"action":"type","selector":"#APjFqb","text":"%s","thought":"Typing the search"}`, query), nil
		}
	}

	if (strings.Contains(u, "search?q=") || strings.Contains(u, "results")) && strings.Contains(u, "h3") {
		return `{"action":"click","selector":"h3","thought":"Clicking the first result"}`, nil
	}

	if m.onTarget(u, goal) {
		return `{"action":"done","text":"Page reached","thought":"Goal complete"}`, nil
	}

	return `{"action":"extract","thought":"Reading the page"}`, nil
}

func (m *Mock) findDirectURL(goal string) string {
	if goal == "" {
		return ""
	}
	// Sorted keys, as in the planner's bootstrap, so multi-match goals
	// resolve the same way every run.
	sites := make([]string, 0, len(m.KnownSites))
	for site := range m.KnownSites {
		sites = append(sites, site)
	}
	sort.Strings(sites)
	for _, site := range sites {
		if strings.Contains(goal, site) {
			return m.KnownSites[site]
		}
	}
	if match := urlRe.FindString(goal); match != "" {
		if !strings.HasPrefix(match, "http") {
			return "https://" + match
		}
		return match
	}
	return ""
}

func (m *Mock) onTarget(page, goal string) bool {
	if goal == "" {
		return false
	}
	for site := range m.KnownSites {
		if strings.Contains(goal, site) && strings.Contains(page, site) {
			return true
		}
	}
	return false
}

var (
	verbRe    = regexp.MustCompile(`(?i)\b(search|find|open|go|visit|give me|show|please|for)\b`)
	articleRe = regexp.MustCompile(`(?i)\b(the|a|an|of|to|in|on)\b`)
	spaceRe   = regexp.MustCompile(`\s+`)
)

func (m *Mock) query(goal string) string {
	clean := verbRe.ReplaceAllString(goal, " ")
	clean = articleRe.ReplaceAllString(clean, " ")
	clean = strings.TrimSpace(spaceRe.ReplaceAllString(clean, " "))
	if clean == "" {
		return "search"
	}
	if len(clean) > 80 {
		clean = clean[:80]
	}
	return clean
}
