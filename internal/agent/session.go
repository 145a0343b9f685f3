package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/polzovatel/webnav-agent/internal/browser"
	"github.com/polzovatel/webnav-agent/internal/config"
	"github.com/polzovatel/webnav-agent/internal/cursor"
	"github.com/polzovatel/webnav-agent/internal/llm"
	"github.com/polzovatel/webnav-agent/internal/memory"
	"github.com/polzovatel/webnav-agent/internal/schema"
)

const (
	screenshotPath = "latest.png"
	answerBudget   = 2200
	loopWindow     = 3
)

// Session owns the planner, working memory and cursor state for one or
// more goal runs against a browser facade.
type Session struct {
	planner *Planner
	mem     *memory.Log
	cur     *cursor.Cursor
	cfg     config.Config
	logger  zerolog.Logger
}

// NewSession builds a session; the uuid tags every log line of the run.
func NewSession(client llm.Client, cfg config.Config, logger zerolog.Logger) *Session {
	id := uuid.NewString()
	logger = logger.With().Str("session", id).Logger()
	return &Session{
		planner: NewPlanner(client, cfg, logger),
		mem:     memory.New(),
		cur:     &cursor.Cursor{},
		cfg:     cfg,
		logger:  logger,
	}
}

// Run drives the perception/planning/action loop until the goal is done
// or the step budget runs out. When the error is nil the returned
// RunResult carries a non-empty Answer; the error is non-nil only for
// model auth failures and context cancellation.
func (s *Session) Run(ctx context.Context, goal string, br browser.Facade) (schema.RunResult, error) {
	res := schema.RunResult{Goal: goal}
	disp := &dispatcher{
		br:       br,
		mem:      s.mem,
		cur:      s.cur,
		demoMode: s.cfg.DemoMode,
		logger:   s.logger,
	}

	for step := 0; step < s.cfg.MaxSteps; step++ {
		if ctx.Err() != nil {
			break
		}

		text, err := br.ExtractText(ctx, s.cfg.TextBudget)
		if err != nil {
			s.logger.Debug().Err(err).Msg("extract text")
			text = ""
		}
		obs := schema.Observation{
			URL:   br.URL(ctx),
			Title: br.Title(ctx),
			Text:  text,
			Step:  step,
		}

		// Best effort; a failed capture never stops the run.
		if err := br.Screenshot(ctx, screenshotPath); err != nil {
			s.logger.Debug().Err(err).Msg("screenshot")
		}

		if br.ViewOnly() && step > 0 {
			if res.Answer == "" {
				res.Answer = "No navigation performed."
			}
			break
		}

		s.detectLoop(res.Steps)

		s.logger.Info().
			Int("step", step).
			Str("url", obs.URL).
			Str("title", obs.Title).
			Msg("observe")

		planObs := obs
		if len(planObs.Text) > s.cfg.ModelTextBudget {
			planObs.Text = planObs.Text[:s.cfg.ModelTextBudget]
		}

		started := time.Now()
		act, timedOut, err := s.plan(ctx, goal, planObs)
		if err != nil {
			return res, err
		}
		if timedOut {
			msg := fmt.Sprintf("Timeout after %dms", s.cfg.PlanTimeoutMs)
			res.Answer = msg
			res.Steps = append(res.Steps, schema.Step{
				Action:      schema.Action{Type: schema.ActDone, Text: msg},
				Observation: obs,
			})
			break
		}
		s.logger.Info().
			Dur("took", time.Since(started)).
			Str("action", string(act.Type)).
			Str("selector", act.Selector).
			Str("url", act.URL).
			Str("thought", act.Thought).
			Msg("plan")

		if disp.handle(ctx, act, obs, &res) {
			break
		}
		if s.cfg.ActionDelayMs > 0 {
			sleepCtx(ctx, time.Duration(s.cfg.ActionDelayMs)*time.Millisecond)
		}
	}

	if res.Answer == "" {
		text, _ := br.ExtractText(ctx, answerBudget)
		if strings.TrimSpace(text) == "" {
			text = "done"
		}
		res.Answer = text
	}
	return res, nil
}

// detectLoop warns the planner when the last three steps carry the same
// (action, selector) fingerprint.
func (s *Session) detectLoop(steps []schema.Step) {
	if len(steps) < loopWindow {
		return
	}
	fingerprints := mapset.NewSet[string]()
	for _, st := range steps[len(steps)-loopWindow:] {
		fingerprints.Add(string(st.Action.Type) + "|" + st.Action.Selector)
	}
	if fingerprints.Cardinality() == 1 {
		s.mem.Add("SYSTEM WARNING: loop detected. CHANGE STRATEGY.")
		s.logger.Warn().Msg("loop detected")
	}
}

// plan runs the planner on a worker goroutine bounded by the plan
// timeout; on expiry the in-flight work is abandoned.
func (s *Session) plan(ctx context.Context, goal string, obs schema.Observation) (schema.Action, bool, error) {
	type planOut struct {
		act schema.Action
		err error
	}
	pctx, cancel := context.WithCancel(ctx)
	defer cancel()

	out := make(chan planOut, 1)
	go func() {
		act, err := s.planner.Next(pctx, goal, obs, s.mem.View())
		out <- planOut{act: act, err: err}
	}()

	timer := time.NewTimer(time.Duration(s.cfg.PlanTimeoutMs) * time.Millisecond)
	defer timer.Stop()

	select {
	case o := <-out:
		return o.act, false, o.err
	case <-timer.C:
		return schema.Action{}, true, nil
	case <-ctx.Done():
		return schema.Action{}, false, ctx.Err()
	}
}
