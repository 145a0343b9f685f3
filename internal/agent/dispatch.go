package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/polzovatel/webnav-agent/internal/browser"
	"github.com/polzovatel/webnav-agent/internal/cursor"
	"github.com/polzovatel/webnav-agent/internal/memory"
	"github.com/polzovatel/webnav-agent/internal/schema"
)

const (
	defaultWaitMs  = 500
	defaultScrollY = 700
)

// dispatcher executes one action against the browser facade. It never
// returns an error: browser failures become memory annotations so the
// planner can react on the next step.
type dispatcher struct {
	br       browser.Facade
	mem      *memory.Log
	cur      *cursor.Cursor
	demoMode bool
	logger   zerolog.Logger
}

// handle runs the action, appends the step to res, and reports whether
// the session should stop.
func (d *dispatcher) handle(ctx context.Context, act schema.Action, obs schema.Observation, res *schema.RunResult) bool {
	stop := false
	switch act.Type {
	case schema.ActDone:
		answer := act.Text
		if answer == "" {
			answer = obs.Text
			if len(answer) > 1200 {
				answer = answer[:1200]
			}
		}
		res.Answer = answer
		stop = true

	case schema.ActNavigate:
		url := act.URL
		if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
			url = "https://" + url
		}
		d.br.SetStatus(ctx, "Navigating to "+url)
		if err := d.br.Goto(ctx, url); err != nil {
			d.fail(ctx, "goto "+url, err)
		} else {
			d.mem.Add("goto " + url)
		}
		if d.br.ViewOnly() {
			res.Answer = "Opened " + url
			stop = true
		}

	case schema.ActBack:
		d.br.SetStatus(ctx, "Going back...")
		if err := d.br.Back(ctx); err != nil {
			d.fail(ctx, "back", err)
		} else {
			d.mem.Add("back")
		}

	case schema.ActWait:
		ms := act.Ms
		if ms <= 0 {
			ms = defaultWaitMs
		}
		d.br.SetStatus(ctx, fmt.Sprintf("Waiting %dms...", ms))
		sleepCtx(ctx, time.Duration(ms)*time.Millisecond)
		d.mem.Add(fmt.Sprintf("wait %dms", ms))

	case schema.ActExtract:
		// The next observation re-extracts; only record the intent.
		d.br.SetStatus(ctx, "Reading...")
		d.mem.Add("extract")

	case schema.ActType:
		d.br.SetStatus(ctx, "Typing...")
		d.moveCursorTo(ctx, act.Selector)
		if err := d.br.TypeInto(ctx, act.Selector, act.Text); err != nil {
			d.fail(ctx, "type "+act.Selector, err)
			break
		}
		if act.Key != "" {
			if err := d.br.Press(ctx, act.Key); err != nil {
				d.fail(ctx, "press "+act.Key, err)
			}
		}
		short := strings.TrimSpace(strings.ReplaceAll(act.Text, "\n", " "))
		if len(short) > 60 {
			short = short[:60]
		}
		d.mem.Add(fmt.Sprintf("type %s=%s", act.Selector, short))

	case schema.ActPress:
		if act.Key == "" {
			d.mem.Add("WARNING: press without key")
			break
		}
		d.br.SetStatus(ctx, "Pressing "+act.Key+"...")
		if err := d.br.Press(ctx, act.Key); err != nil {
			d.fail(ctx, "press "+act.Key, err)
		} else {
			d.mem.Add("press " + act.Key)
		}

	case schema.ActScroll:
		dy := act.Dy
		if dy == 0 {
			dy = defaultScrollY
		}
		d.br.SetStatus(ctx, "Scrolling...")
		if err := d.br.Scroll(ctx, dy); err != nil {
			d.fail(ctx, fmt.Sprintf("scroll %d", dy), err)
		} else {
			d.mem.Add(fmt.Sprintf("scroll %d", dy))
		}

	case schema.ActClick:
		if !d.moveCursorTo(ctx, act.Selector) {
			d.mem.Add("miss " + act.Selector)
			break
		}
		d.br.SetStatus(ctx, "Click!")
		// Re-resolve right before the click: the animated move takes
		// real time and layouts shift.
		bb, err := d.br.BBoxCenter(ctx, act.Selector)
		if err != nil || bb == nil {
			d.mem.Add("miss " + act.Selector)
			break
		}
		if err := d.br.ClickAt(ctx, bb.CX, bb.CY); err != nil {
			d.fail(ctx, "click "+act.Selector, err)
		} else {
			d.mem.Add("click " + act.Selector)
		}

	default:
		d.mem.Add("noop " + string(act.Type))
	}

	res.Steps = append(res.Steps, schema.Step{Action: act, Observation: obs})
	return stop
}

// moveCursorTo animates the humanized path to the selector's center.
// Reports whether the element was found.
func (d *dispatcher) moveCursorTo(ctx context.Context, selector string) bool {
	d.br.SetStatus(ctx, "Moving cursor...")
	bb, err := d.br.BBoxCenter(ctx, selector)
	if err != nil || bb == nil {
		return false
	}

	// First move of the session: snap to the target instead of sweeping
	// across the whole viewport from the origin.
	if d.cur.X == 0 && d.cur.Y == 0 {
		d.cur.Set(bb.CX, bb.CY)
	}

	path := d.cur.Move(bb.CX, bb.CY, bb.W)
	if !d.br.Headless() || d.demoMode {
		for _, tp := range path.Timed() {
			_ = d.br.MoveCursor(ctx, tp.X, tp.Y)
			if tp.DelayMs > 0 {
				sleepCtx(ctx, time.Duration(tp.DelayMs*float64(time.Millisecond)))
			}
		}
	} else {
		for _, pt := range path.Points {
			_ = d.br.MoveCursor(ctx, pt.X, pt.Y)
		}
	}
	// Land exactly on the center regardless of how the animation went.
	_ = d.br.MoveCursor(ctx, bb.CX, bb.CY)
	return true
}

func (d *dispatcher) fail(ctx context.Context, what string, err error) {
	_ = ctx
	d.logger.Warn().Err(err).Str("op", what).Msg("browser op failed")
	d.mem.Add("ERROR: " + what + " failed")
}

func sleepCtx(ctx context.Context, dur time.Duration) {
	timer := time.NewTimer(dur)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
