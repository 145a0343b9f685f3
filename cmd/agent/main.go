package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/polzovatel/webnav-agent/internal/agent"
	"github.com/polzovatel/webnav-agent/internal/browser"
	"github.com/polzovatel/webnav-agent/internal/config"
	"github.com/polzovatel/webnav-agent/internal/llm"
)

// Exit codes for the distinct failure classes.
const (
	exitOK           = 0
	exitRunError     = 1
	exitLLMAuth      = 2
	exitBrowserStart = 3
)

type cliOptions struct {
	goal          string
	mock          bool
	plannerMode   string
	headless      bool
	demoMode      bool
	viewOnly      bool
	actionDelayMs int
	planTimeoutMs int
	maxSteps      int
}

func main() {
	os.Exit(run())
}

func run() int {
	_ = godotenv.Load()
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg := config.FromEnv()
	opts := parseFlags(cfg)
	applyFlags(&cfg, opts)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var llmClient llm.Client
	var err error
	if opts.mock {
		llmClient = llm.NewMock()
	} else {
		llmClient, err = llm.NewFromEnvWithLogger(log.With().Str("comp", "llm").Logger())
		if err != nil {
			log.Error().Err(err).Msg("llm init")
			return exitRunError
		}
	}
	if err := llmClient.Warmup(ctx); err != nil {
		if errors.Is(err, llm.ErrAuth) {
			log.Error().Err(err).Msg("llm authentication refused")
			return exitLLMAuth
		}
		log.Error().Err(err).Msg("llm warmup")
		return exitRunError
	}

	drv := browser.NewDriver(browser.Options{
		TimeoutMs:     cfg.PageTimeoutMs,
		AutoConsent:   cfg.AutoConsent,
		Headless:      cfg.Headless,
		ViewOnly:      opts.viewOnly,
		ActionDelayMs: cfg.ActionDelayMs,
	}, log.With().Str("comp", "browser").Logger())
	if err := drv.Start(ctx); err != nil {
		log.Error().Err(err).Msg("browser start")
		return exitBrowserStart
	}
	defer func() {
		if err := drv.Stop(context.Background()); err != nil {
			log.Error().Err(err).Msg("browser stop")
		}
	}()

	if opts.goal != "" {
		return runGoal(ctx, opts.goal, llmClient, cfg, drv)
	}
	return runInteractive(ctx, llmClient, cfg, drv)
}

func runGoal(ctx context.Context, goal string, client llm.Client, cfg config.Config, drv browser.Facade) int {
	session := agent.NewSession(client, cfg, log.With().Str("comp", "agent").Logger())
	res, err := session.Run(ctx, goal, drv)
	if err != nil {
		if errors.Is(err, llm.ErrAuth) {
			log.Error().Err(err).Msg("llm authentication refused")
			return exitLLMAuth
		}
		log.Error().Err(err).Msg("run failed")
		return exitRunError
	}
	out, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		log.Error().Err(err).Msg("encode result")
		return exitRunError
	}
	fmt.Println(string(out))
	return exitOK
}

func runInteractive(ctx context.Context, client llm.Client, cfg config.Config, drv browser.Facade) int {
	fmt.Printf("Agent ready (%s). Type a goal, or 'exit'.\n", client.Name())
	reader := bufio.NewReader(os.Stdin)
	session := agent.NewSession(client, cfg, log.With().Str("comp", "agent").Logger())
	for {
		if ctx.Err() != nil {
			return exitOK
		}
		fmt.Print("\n> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return exitOK
		}
		goal := strings.TrimSpace(line)
		if goal == "" {
			continue
		}
		if strings.EqualFold(goal, "exit") || strings.EqualFold(goal, "quit") {
			return exitOK
		}
		res, err := session.Run(ctx, goal, drv)
		if err != nil {
			if errors.Is(err, llm.ErrAuth) {
				log.Error().Err(err).Msg("llm authentication refused")
				return exitLLMAuth
			}
			log.Error().Err(err).Msg("run failed")
			continue
		}
		fmt.Printf("Agent: %s\n", res.Answer)
	}
}

func parseFlags(cfg config.Config) cliOptions {
	mock := flag.Bool("mock", false, "Use the rule-driven mock model instead of the configured backend")
	mode := flag.String("planner-mode", cfg.PlannerMode, "Planner mode: hybrid or model")
	headless := flag.Bool("headless", cfg.Headless, "Run the browser headless")
	demo := flag.Bool("demo-mode", cfg.DemoMode, "Animate the cursor even when headless")
	viewOnly := flag.Bool("view-only", false, "Observe only, never manipulate the page")
	delay := flag.Int("action-delay-ms", cfg.ActionDelayMs, "Settling pause between actions")
	planTimeout := flag.Int("plan-timeout-ms", cfg.PlanTimeoutMs, "Wall clock budget per planning call")
	maxSteps := flag.Int("max-steps", cfg.MaxSteps, "Step budget per goal")
	flag.Parse()

	return cliOptions{
		goal:          strings.TrimSpace(strings.Join(flag.Args(), " ")),
		mock:          *mock,
		plannerMode:   strings.TrimSpace(*mode),
		headless:      *headless,
		demoMode:      *demo,
		viewOnly:      *viewOnly,
		actionDelayMs: *delay,
		planTimeoutMs: *planTimeout,
		maxSteps:      *maxSteps,
	}
}

func applyFlags(cfg *config.Config, opts cliOptions) {
	if opts.plannerMode == config.ModeHybrid || opts.plannerMode == config.ModeModel {
		cfg.PlannerMode = opts.plannerMode
	}
	cfg.Headless = opts.headless
	cfg.DemoMode = opts.demoMode
	cfg.ActionDelayMs = opts.actionDelayMs
	cfg.PlanTimeoutMs = opts.planTimeoutMs
	cfg.MaxSteps = opts.maxSteps
}
