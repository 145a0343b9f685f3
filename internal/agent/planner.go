// Package agent contains the decision core: the hybrid planner, the
// step loop session and the action dispatcher.
package agent

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/polzovatel/webnav-agent/internal/config"
	"github.com/polzovatel/webnav-agent/internal/jsonx"
	"github.com/polzovatel/webnav-agent/internal/llm"
	"github.com/polzovatel/webnav-agent/internal/schema"
)

const systemPrompt = `You are an autonomous agent that navigates the web in a real browser to complete the user's task.
Do NOT answer "ok" or "done" without having executed the needed browser actions first.
ALWAYS produce a single valid JSON object.

JSON SCHEMA:
{
  "thought": "Reasoning about what to do (e.g. 'Page not loaded, waiting').",
  "action": "navigate" | "click" | "type" | "press" | "scroll" | "wait" | "extract" | "back" | "done",
  "url": "URL..." (navigate only),
  "selector": "CSS selector" (click, type),
  "text": "..." (type, done),
  "key": "Enter" | "Tab" | ... (press),
  "dy": 700 (scroll, positive down / negative up),
  "ms": 1000 (wait)
}

RULES AND STRATEGIES:
1. SEARCH: if you must search and are NOT on a search engine, navigate to one. If you are already there, do NOT reload the page: 'type' into the search box, then 'press' Enter.
2. APPLICATIONS: use the INTERACTIVE ELEMENTS section to find correct selectors. If an element is missing, wait or scroll.
3. NAVIGATION: use 'back' to return to the previous page.
4. DATA: to pull information out of a page, use 'extract' and analyze it from memory.
5. ERRORS: if an action failed (see MEMORY), try a different approach (another selector, or wait).
6. COMPLETION: when finished, use action: done with the final answer in 'text'.

EXAMPLES:
{"thought": "Opening the search engine", "action": "navigate", "url": "https://www.google.com"}
{"thought": "Typing the query", "action": "type", "selector": "[name='q']", "text": "weather Rome"}
{"thought": "Submitting", "action": "press", "key": "Enter"}
{"thought": "Scrolling for more results", "action": "scroll", "dy": 800}
{"thought": "Clicking the first result", "action": "click", "selector": "h3"}`

const demoSystemExtra = `

DEMO MODE (UX):
- Prefer small, visible steps.
- On a search engine, do not jump straight to the target site: 'type' into the box, 'press' Enter, then 'click' a result.
- Avoid building search URLs directly; use interactions (type/press/click).`

const modelAttempts = 3

// Markers that mean the page is an anti-bot wall.
var blockMarkers = []string{"captcha", "robot", "verify you are human", "unusual traffic", "/sorry/"}

// Phrases that mean a consent wall is covering the page.
var consentPhrases = []string{"accept all", "i agree", "before you continue", "accetta tutto", "prima di continuare"}

var consentButtonRe = regexp.MustCompile(`(?i)\b(accept|agree|consent|accetta|acconsento)\b`)

// Matches one line of the interactive-elements index:
//   3. [BUTTON] "Accept all" => #L2AGLb
var indexLineRe = regexp.MustCompile(`(?m)^\d+\. \[([A-Za-z]+)\] "([^"]*)" => (\S+)`)

// Planner decides the next action: cheap guard rules first, then a
// model call with bounded retry and a deterministic fallback.
type Planner struct {
	llm        llm.Client
	mode       string
	demoMode   bool
	autoCons   bool
	homeURL    string
	knownSites map[string]string
	classifier goalClassifier
	logger     zerolog.Logger
}

// NewPlanner builds a planner from the session config.
func NewPlanner(client llm.Client, cfg config.Config, logger zerolog.Logger) *Planner {
	return &Planner{
		llm:        client,
		mode:       cfg.PlannerMode,
		demoMode:   cfg.DemoMode,
		autoCons:   cfg.AutoConsent,
		homeURL:    cfg.HomeURL,
		knownSites: cfg.KnownSites,
		logger:     logger,
	}
}

// Next returns the next action for the observation. The error is
// non-nil only for model authentication failures and context
// cancellation; every other failure resolves to a fallback action.
func (p *Planner) Next(ctx context.Context, goal string, obs schema.Observation, mem string) (schema.Action, error) {
	if p.mode == config.ModeHybrid {
		if act, ok := p.applyRules(goal, obs, mem); ok {
			p.logger.Debug().Str("action", string(act.Type)).Msg("guard rule")
			return act, nil
		}
	}
	return p.callModel(ctx, goal, obs, mem)
}

// applyRules evaluates the guard rules in priority order; the first
// match wins.
func (p *Planner) applyRules(goal string, obs schema.Observation, mem string) (schema.Action, bool) {
	url := strings.ToLower(obs.URL)
	text := strings.ToLower(obs.Text)

	// Bootstrap on a blank first page: a literal URL wins, then a known
	// site named in the goal, then the home page for goals that clearly
	// want to navigate or search. Anything else is the model's call.
	if obs.Step == 0 && (obs.URL == "" || obs.URL == "about:blank") {
		if target := p.classifier.extractURL(goal); target != "" {
			return schema.Action{
				Type:    schema.ActNavigate,
				URL:     target,
				Thought: "URL found in the goal, navigating directly.",
			}, true
		}
		if target := p.knownSiteURL(goal); target != "" {
			return schema.Action{
				Type:    schema.ActNavigate,
				URL:     target,
				Thought: "Known site named in the goal, navigating directly.",
			}, true
		}
		if intent := p.classifier.classify(goal); intent == intentNavigate || intent == intentSearch {
			return schema.Action{
				Type:    schema.ActNavigate,
				URL:     p.homeURL,
				Thought: "Starting the session from the home page.",
			}, true
		}
	}

	// Consent wall.
	if p.autoCons && containsAny(text, consentPhrases) {
		if sel := consentSelector(obs.Text); sel != "" {
			return schema.Action{
				Type:     schema.ActClick,
				Selector: sel,
				Thought:  "Dismissing the consent banner.",
			}, true
		}
	}

	// Search-site heuristics.
	if isSearchHost(url) {
		if idx := strings.LastIndex(mem, "type "); idx >= 0 && !strings.Contains(mem[idx:], "press Enter") {
			return schema.Action{
				Type:    schema.ActPress,
				Key:     "Enter",
				Thought: "Query typed, submitting it.",
			}, true
		}
		if strings.Contains(url, "/search") && strings.Contains(text, "h3") {
			return schema.Action{
				Type:     schema.ActClick,
				Selector: "h3",
				Thought:  "Opening the first search result.",
			}, true
		}
	}

	// Anti-bot wall: stop instead of burning the step budget.
	if containsAny(url, blockMarkers) || containsAny(text, blockMarkers) {
		return schema.Action{
			Type: schema.ActDone,
			Text: fmt.Sprintf("Blocked by an anti-bot check while working on %q. Try again later or from a different source.",
				p.classifier.extractQuery(goal)),
			Thought: "Anti-bot wall detected, stopping.",
		}, true
	}

	// Extract loop protection.
	if strings.Count(mem, "extract") >= 3 {
		return schema.Action{
			Type:    schema.ActNavigate,
			URL:     p.homeURL,
			Thought: "Too many extracts in a row, starting over from home.",
		}, true
	}

	// Sparse page early on: content may be below the fold. Blank pages
	// have nothing to scroll; the model decides where to go instead.
	if obs.URL != "" && obs.URL != "about:blank" &&
		countIndexedElements(obs.Text) < 3 && !strings.Contains(url, "/search") &&
		!strings.Contains(mem, "scroll") && obs.Step < 3 {
		return schema.Action{
			Type:    schema.ActScroll,
			Dy:      700,
			Thought: "Few interactive elements visible, scrolling.",
		}, true
	}

	return schema.Action{}, false
}

func (p *Planner) callModel(ctx context.Context, goal string, obs schema.Observation, mem string) (schema.Action, error) {
	sys := systemPrompt
	if p.demoMode {
		sys += demoSystemExtra
	}
	base := p.userPrompt(goal, obs, mem)

	lastErr := ""
	for attempt := 0; attempt < modelAttempts; attempt++ {
		user := base
		if lastErr != "" {
			user = fmt.Sprintf("%s\n\nError: %s\nRetry with JSON ONLY:", base, lastErr)
		}
		raw, err := p.llm.Generate(ctx, sys, user)
		if err != nil {
			if errors.Is(err, llm.ErrAuth) || ctx.Err() != nil {
				return schema.Action{}, err
			}
			lastErr = err.Error()
			p.logger.Warn().Err(err).Int("attempt", attempt+1).Msg("model call failed")
			continue
		}
		obj, err := jsonx.Extract(raw)
		if err != nil {
			lastErr = err.Error()
			continue
		}
		act, err := schema.Decode(obj)
		if err != nil {
			lastErr = err.Error()
			continue
		}
		// A read or a finish on a page with nothing on it is almost
		// always the model giving up too early.
		if (act.Type == schema.ActExtract || act.Type == schema.ActDone) && pageIsEmpty(obs.Text) && obs.Step < 2 {
			lastErr = "the page is empty; navigate somewhere first"
			continue
		}
		return act, nil
	}

	p.logger.Warn().Str("last_error", lastErr).Msg("model retries exhausted, falling back")
	if pageIsEmpty(obs.Text) {
		return schema.Action{Type: schema.ActNavigate, URL: p.homeURL}, nil
	}
	return schema.Action{Type: schema.ActDone, Text: "error"}, nil
}

func (p *Planner) userPrompt(goal string, obs schema.Observation, mem string) string {
	text := obs.Text
	if len(text) > 2000 {
		text = text[:2000]
	}
	var hints []string
	if strings.Contains(mem, "SYSTEM WARNING") {
		hints = append(hints, "HINT LOOP: you keep repeating the same action. Change strategy.")
	}
	if pageIsEmpty(obs.Text) {
		hints = append(hints, "HINT EMPTY PAGE: the page has no usable content. Navigate or wait.")
	}
	if containsAny(strings.ToLower(obs.URL), blockMarkers) || containsAny(strings.ToLower(obs.Text), blockMarkers) {
		hints = append(hints, "HINT BLOCK: the page looks like an anti-bot wall. Use a different source or finish.")
	}
	prompt := fmt.Sprintf(
		"GOAL:\n%s\n\nSTATE:\nurl=%s\ntitle=%s\nstep=%d\n\nPAGE_TEXT (excerpt):\n%s\n\nMEMORY:\n%s\n",
		goal, obs.URL, obs.Title, obs.Step, text, mem)
	if len(hints) > 0 {
		prompt += "\n" + strings.Join(hints, "\n") + "\n"
	}
	return prompt + "\nNext JSON action:"
}

// knownSiteURL resolves a site named in the goal through the configured
// table. Keys are checked in sorted order so multi-match goals resolve
// the same way every run.
func (p *Planner) knownSiteURL(goal string) string {
	lower := strings.ToLower(goal)
	names := make([]string, 0, len(p.knownSites))
	for name := range p.knownSites {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if strings.Contains(lower, name) {
			return p.knownSites[name]
		}
	}
	return ""
}

// consentSelector picks a known consent button id, or the first indexed
// button whose label looks like a consent action.
func consentSelector(text string) string {
	for _, known := range []string{"#L2AGLb", "#bnp_btn_accept"} {
		if strings.Contains(text, known) {
			return known
		}
	}
	for _, m := range indexLineRe.FindAllStringSubmatch(text, -1) {
		tag, label, sel := m[1], m[2], m[3]
		if strings.EqualFold(tag, "button") && consentButtonRe.MatchString(label) {
			return sel
		}
	}
	return ""
}

func isSearchHost(url string) bool {
	return strings.Contains(url, "google.") ||
		strings.Contains(url, "bing.") ||
		strings.Contains(url, "duckduckgo.com")
}

func countIndexedElements(text string) int {
	return len(indexLineRe.FindAllStringIndex(text, -1))
}

func pageIsEmpty(text string) bool {
	return len(strings.TrimSpace(text)) < 120 && countIndexedElements(text) == 0
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}
