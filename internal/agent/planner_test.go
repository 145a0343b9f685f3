package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polzovatel/webnav-agent/internal/config"
	"github.com/polzovatel/webnav-agent/internal/llm"
	"github.com/polzovatel/webnav-agent/internal/schema"
)

// scriptedLLM returns canned responses in order, recording the prompts
// it saw.
type scriptedLLM struct {
	responses []string
	err       error
	calls     int
	prompts   []string
}

func (s *scriptedLLM) Generate(ctx context.Context, system, user string) (string, error) {
	s.calls++
	s.prompts = append(s.prompts, user)
	if s.err != nil {
		return "", s.err
	}
	idx := s.calls - 1
	if idx >= len(s.responses) {
		idx = len(s.responses) - 1
	}
	return s.responses[idx], nil
}

func (s *scriptedLLM) Warmup(ctx context.Context) error { return nil }
func (s *scriptedLLM) Name() string                     { return "scripted" }

func testPlanner(client llm.Client) *Planner {
	cfg := config.Default()
	cfg.DemoMode = false
	return NewPlanner(client, cfg, zerolog.Nop())
}

func TestBootstrapNavigatesToGoalURL(t *testing.T) {
	client := &scriptedLLM{responses: []string{`{"action":"done","text":"x"}`}}
	p := testPlanner(client)

	obs := schema.Observation{URL: "about:blank", Step: 0}
	act, err := p.Next(context.Background(), "open github.com/test", obs, "")
	require.NoError(t, err)

	assert.Equal(t, schema.ActNavigate, act.Type)
	assert.Equal(t, "https://github.com/test", act.URL)
	assert.Zero(t, client.calls, "guard rule must not reach the model")
}

func TestBootstrapNavigatesToKnownSite(t *testing.T) {
	client := &scriptedLLM{responses: []string{`{"action":"done","text":"x"}`}}
	p := testPlanner(client)

	obs := schema.Observation{URL: "about:blank", Step: 0}
	act, err := p.Next(context.Background(), "open openai", obs, "")
	require.NoError(t, err)

	assert.Equal(t, schema.ActNavigate, act.Type)
	assert.Equal(t, "https://openai.com", act.URL)
	assert.Zero(t, client.calls, "known-site goals must resolve without the model")
}

func TestBootstrapSearchIntentGoesHome(t *testing.T) {
	client := &scriptedLLM{responses: []string{`{"action":"done","text":"x"}`}}
	p := testPlanner(client)

	obs := schema.Observation{URL: "about:blank", Step: 0}
	act, err := p.Next(context.Background(), "search quantum computing news", obs, "")
	require.NoError(t, err)

	assert.Equal(t, schema.ActNavigate, act.Type)
	assert.Equal(t, config.Default().HomeURL, act.URL)
	assert.Zero(t, client.calls)
}

func TestBootstrapGenericGoalAsksModel(t *testing.T) {
	client := &scriptedLLM{responses: []string{`{"action":"wait","ms":100}`}}
	p := testPlanner(client)

	obs := schema.Observation{URL: "about:blank", Step: 0}
	act, err := p.Next(context.Background(), "just look around", obs, "")
	require.NoError(t, err)

	assert.Equal(t, 1, client.calls)
	assert.Equal(t, schema.ActWait, act.Type)
}

func TestCaptchaPageStops(t *testing.T) {
	client := &scriptedLLM{responses: []string{`{"action":"type","selector":"#q","text":"x"}`}}
	p := testPlanner(client)

	obs := schema.Observation{
		URL:  "https://duckduckgo.com/?q=x",
		Text: "please complete the captcha to continue",
		Step: 3,
	}
	act, err := p.Next(context.Background(), "search x", obs, "")
	require.NoError(t, err)

	assert.NotEqual(t, schema.ActType, act.Type)
	assert.Equal(t, schema.ActDone, act.Type)
	assert.Zero(t, client.calls)
}

func TestConsentBannerClicked(t *testing.T) {
	client := &scriptedLLM{responses: []string{`{"action":"done","text":"x"}`}}
	p := testPlanner(client)

	obs := schema.Observation{
		URL: "https://www.google.com/",
		Text: "--- INTERACTIVE ELEMENTS ---\n" +
			"0. [BUTTON] \"Accept all\" => #L2AGLb\n" +
			"1. [BUTTON] \"Reject all\" => #W0wltc\n" +
			"\n--- CONTENT --- Before you continue to Google, accept all cookies or reject",
		Step: 1,
	}
	act, err := p.Next(context.Background(), "search go tutorials", obs, "")
	require.NoError(t, err)

	assert.Equal(t, schema.ActClick, act.Type)
	assert.Equal(t, "#L2AGLb", act.Selector)
}

func TestPressEnterAfterType(t *testing.T) {
	client := &scriptedLLM{responses: []string{`{"action":"done","text":"x"}`}}
	p := testPlanner(client)

	obs := schema.Observation{
		URL: "https://www.google.com/",
		Text: "--- INTERACTIVE ELEMENTS ---\n" +
			"0. [TEXTAREA] \"[Input Search]\" => #APjFqb\n" +
			"1. [A] \"Images\" => a.imglink\n" +
			"2. [A] \"Maps\" => a.maplink\n" +
			"\n--- CONTENT --- the usual search page content goes here for length",
		Step: 2,
	}
	act, err := p.Next(context.Background(), "search go tutorials", obs, "type #APjFqb=go tutorials")
	require.NoError(t, err)

	assert.Equal(t, schema.ActPress, act.Type)
	assert.Equal(t, "Enter", act.Key)
	assert.Zero(t, client.calls)
}

func TestClickResultOnSearchPage(t *testing.T) {
	client := &scriptedLLM{responses: []string{`{"action":"done","text":"x"}`}}
	p := testPlanner(client)

	obs := schema.Observation{
		URL: "https://www.google.com/search?q=go+tutorials",
		Text: "--- INTERACTIVE ELEMENTS ---\n" +
			"0. [A] \"Go tutorials\" => h3\n" +
			"1. [A] \"More results\" => a.more\n" +
			"2. [A] \"Next\" => a.next\n" +
			"\n--- CONTENT --- about 1,000,000 results for go tutorials",
		Step: 3,
	}
	act, err := p.Next(context.Background(), "search go tutorials", obs,
		"type #APjFqb=go tutorials\npress Enter")
	require.NoError(t, err)

	assert.Equal(t, schema.ActClick, act.Type)
	assert.Equal(t, "h3", act.Selector)
}

func TestExtractLoopGoesHome(t *testing.T) {
	client := &scriptedLLM{responses: []string{`{"action":"extract"}`}}
	p := testPlanner(client)

	obs := schema.Observation{
		URL: "https://example.com/article",
		Text: "--- INTERACTIVE ELEMENTS ---\n" +
			"0. [A] \"Home\" => a.home\n" +
			"1. [A] \"About\" => a.about\n" +
			"2. [A] \"Contact\" => a.contact\n" +
			"\n--- CONTENT --- a long article body with plenty of words in it",
		Step: 6,
	}
	act, err := p.Next(context.Background(), "find info", obs, "extract\nextract\nextract")
	require.NoError(t, err)

	assert.Equal(t, schema.ActNavigate, act.Type)
	assert.Equal(t, config.Default().HomeURL, act.URL)
}

func TestSparsePageScrolls(t *testing.T) {
	client := &scriptedLLM{responses: []string{`{"action":"done","text":"x"}`}}
	p := testPlanner(client)

	obs := schema.Observation{
		URL:  "https://example.com/",
		Text: "--- INTERACTIVE ELEMENTS ---\n\n--- CONTENT --- a page that rendered with very little above the fold but more below it",
		Step: 1,
	}
	act, err := p.Next(context.Background(), "find pricing", obs, "")
	require.NoError(t, err)

	assert.Equal(t, schema.ActScroll, act.Type)
	assert.Equal(t, 700, act.Dy)
}

func TestModelRetryOnMalformedOutput(t *testing.T) {
	client := &scriptedLLM{responses: []string{
		"sorry, I cannot produce JSON",
		`{"action":"navigate"}`,
		`{"action":"navigate","url":"https://example.com"}`,
	}}
	cfg := config.Default()
	cfg.PlannerMode = config.ModeModel
	p := NewPlanner(client, cfg, zerolog.Nop())

	obs := schema.Observation{URL: "about:blank", Step: 0}
	act, err := p.Next(context.Background(), "open example", obs, "")
	require.NoError(t, err)

	assert.Equal(t, 3, client.calls)
	assert.Equal(t, schema.ActNavigate, act.Type)
	assert.Equal(t, "https://example.com", act.URL)
	assert.Contains(t, client.prompts[1], "Error:")
}

func TestModelExhaustionFallsBackHomeOnEmptyPage(t *testing.T) {
	client := &scriptedLLM{responses: []string{"garbage"}}
	cfg := config.Default()
	cfg.PlannerMode = config.ModeModel
	p := NewPlanner(client, cfg, zerolog.Nop())

	obs := schema.Observation{URL: "about:blank", Step: 0}
	act, err := p.Next(context.Background(), "open example", obs, "")
	require.NoError(t, err)

	assert.Equal(t, 3, client.calls)
	assert.Equal(t, schema.ActNavigate, act.Type)
	assert.Equal(t, cfg.HomeURL, act.URL)
}

func TestModelExhaustionFallsBackDoneOnRealPage(t *testing.T) {
	client := &scriptedLLM{responses: []string{"garbage"}}
	cfg := config.Default()
	cfg.PlannerMode = config.ModeModel
	p := NewPlanner(client, cfg, zerolog.Nop())

	obs := schema.Observation{
		URL:  "https://example.com/article",
		Text: "--- INTERACTIVE ELEMENTS ---\n0. [A] \"Home\" => a.home\n\n--- CONTENT --- a perfectly fine page with lots of readable content on it",
		Step: 4,
	}
	act, err := p.Next(context.Background(), "find info", obs, "")
	require.NoError(t, err)

	assert.Equal(t, schema.ActDone, act.Type)
	assert.Equal(t, "error", act.Text)
}

func TestEarlyDoneOnEmptyPageRetries(t *testing.T) {
	client := &scriptedLLM{responses: []string{
		`{"action":"done","text":"all done"}`,
		`{"action":"navigate","url":"https://example.com"}`,
	}}
	cfg := config.Default()
	cfg.PlannerMode = config.ModeModel
	p := NewPlanner(client, cfg, zerolog.Nop())

	obs := schema.Observation{URL: "about:blank", Step: 0}
	act, err := p.Next(context.Background(), "open example.org", obs, "")
	require.NoError(t, err)

	assert.Equal(t, 2, client.calls)
	assert.Equal(t, schema.ActNavigate, act.Type)
}

func TestAuthErrorPropagates(t *testing.T) {
	client := &scriptedLLM{err: llm.ErrAuth}
	cfg := config.Default()
	cfg.PlannerMode = config.ModeModel
	p := NewPlanner(client, cfg, zerolog.Nop())

	obs := schema.Observation{URL: "about:blank", Step: 0}
	_, err := p.Next(context.Background(), "open example", obs, "")
	assert.True(t, errors.Is(err, llm.ErrAuth))
}

func TestModelModeSkipsGuardRules(t *testing.T) {
	client := &scriptedLLM{responses: []string{`{"action":"wait","ms":100}`}}
	cfg := config.Default()
	cfg.PlannerMode = config.ModeModel
	p := NewPlanner(client, cfg, zerolog.Nop())

	// A captcha page: hybrid would stop, model mode must ask the model.
	obs := schema.Observation{
		URL:  "https://duckduckgo.com/?q=x",
		Text: "please complete the captcha to continue with more words here so the page is not empty at all, even though it is only a short block notice",
		Step: 3,
	}
	act, err := p.Next(context.Background(), "search x", obs, "")
	require.NoError(t, err)

	assert.Equal(t, 1, client.calls)
	assert.Equal(t, schema.ActWait, act.Type)
	assert.Contains(t, client.prompts[0], "HINT BLOCK")
}
