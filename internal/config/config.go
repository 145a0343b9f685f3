package config

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"
)

const (
	envMaxSteps        = "AGENT_MAX_STEPS"
	envPageTimeoutMs   = "AGENT_PAGE_TIMEOUT_MS"
	envTextBudget      = "AGENT_TEXT_BUDGET"
	envModelTextBudget = "AGENT_MODEL_TEXT_BUDGET"
	envPlanTimeoutMs   = "AGENT_PLAN_TIMEOUT_MS"
	envPlannerMode     = "AGENT_PLANNER_MODE"
	envAutoConsent     = "AGENT_AUTO_CONSENT"
	envHeadless        = "AGENT_HEADLESS"
	envActionDelayMs   = "AGENT_ACTION_DELAY_MS"
	envDemoMode        = "AGENT_DEMO_MODE"
	envHomeURL         = "AGENT_HOME_URL"
	envKnownSites      = "AGENT_KNOWN_SITES"
)

// Planner modes.
const (
	ModeHybrid = "hybrid"
	ModeModel  = "model"
)

// Config holds the session and driver settings. Every field is
// env-overridable; FromEnv starts from Default, so a field with no valid
// env value keeps its default.
type Config struct {
	MaxSteps        int
	PageTimeoutMs   int
	TextBudget      int
	ModelTextBudget int
	PlanTimeoutMs   int
	PlannerMode     string
	AutoConsent     bool
	Headless        bool
	ActionDelayMs   int
	DemoMode        bool
	HomeURL         string
	KnownSites      map[string]string
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		MaxSteps:        12,
		PageTimeoutMs:   30000,
		TextBudget:      6000,
		ModelTextBudget: 3500,
		PlanTimeoutMs:   180000,
		PlannerMode:     ModeHybrid,
		AutoConsent:     true,
		Headless:        false,
		ActionDelayMs:   0,
		DemoMode:        true,
		HomeURL:         "https://google.com",
		KnownSites:      defaultKnownSites(),
	}
}

// FromEnv returns Default overridden by environment variables.
func FromEnv() Config {
	cfg := Default()
	cfg.MaxSteps = intEnv(envMaxSteps, cfg.MaxSteps)
	cfg.PageTimeoutMs = intEnv(envPageTimeoutMs, cfg.PageTimeoutMs)
	cfg.TextBudget = intEnv(envTextBudget, cfg.TextBudget)
	cfg.ModelTextBudget = intEnv(envModelTextBudget, cfg.ModelTextBudget)
	cfg.PlanTimeoutMs = intEnv(envPlanTimeoutMs, cfg.PlanTimeoutMs)
	if mode := strings.TrimSpace(os.Getenv(envPlannerMode)); mode == ModeHybrid || mode == ModeModel {
		cfg.PlannerMode = mode
	}
	cfg.AutoConsent = boolEnv(envAutoConsent, cfg.AutoConsent)
	cfg.Headless = boolEnv(envHeadless, cfg.Headless)
	cfg.ActionDelayMs = intEnv(envActionDelayMs, cfg.ActionDelayMs)
	cfg.DemoMode = boolEnv(envDemoMode, cfg.DemoMode)
	if home := strings.TrimSpace(os.Getenv(envHomeURL)); home != "" {
		cfg.HomeURL = home
	}
	if sites := loadKnownSitesEnv(); sites != nil {
		cfg.KnownSites = sites
	}
	return cfg
}

func defaultKnownSites() map[string]string {
	return map[string]string{
		"openai":        "https://openai.com",
		"google":        "https://google.com",
		"github":        "https://github.com",
		"wikipedia":     "https://wikipedia.org",
		"youtube":       "https://youtube.com",
		"twitter":       "https://twitter.com",
		"x.com":         "https://x.com",
		"linkedin":      "https://linkedin.com",
		"facebook":      "https://facebook.com",
		"reddit":        "https://reddit.com",
		"amazon":        "https://amazon.com",
		"stackoverflow": "https://stackoverflow.com",
	}
}

func loadKnownSitesEnv() map[string]string {
	raw := strings.TrimSpace(os.Getenv(envKnownSites))
	if raw == "" {
		return nil
	}
	var sites map[string]string
	if err := json.Unmarshal([]byte(raw), &sites); err != nil || len(sites) == 0 {
		return nil
	}
	return sites
}

func intEnv(name string, def int) int {
	val := strings.TrimSpace(os.Getenv(name))
	if val == "" {
		return def
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return def
	}
	return n
}

func boolEnv(name string, def bool) bool {
	val := strings.TrimSpace(os.Getenv(name))
	if val == "" {
		return def
	}
	switch strings.ToLower(val) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}
