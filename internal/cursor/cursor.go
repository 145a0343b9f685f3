// Package cursor generates humanized mouse paths: Fitts' Law timing, a
// minimum-jerk position profile, a perpendicular arc, decaying Gaussian
// jitter and a damped spring settle that converges exactly on the target.
package cursor

import (
	"math"
	"math/rand"
	"time"
)

const (
	// DefaultFPS is the waypoint sampling rate of the main path.
	DefaultFPS = 60

	minMoveTimeMs = 80.0
	maxMoveTimeMs = 800.0

	fittsA = 0.05
	fittsB = 0.12

	settleSteps   = 8
	settleDelayMs = 12.0
	springK       = 0.5
	springC       = 0.4
	springDt      = 0.6
)

// Point is a waypoint in CSS pixels.
type Point struct {
	X float64
	Y float64
}

// TimedPoint is a waypoint paired with the pause that follows it.
type TimedPoint struct {
	X       float64
	Y       float64
	DelayMs float64
}

// PathResult is a generated path. The last point is always exactly the
// target.
type PathResult struct {
	Points         []Point
	TotalTimeMs    float64
	DelayPerStepMs float64
}

// Timed pairs each waypoint with its delay: main points get
// DelayPerStepMs, the trailing settle points a fixed 12ms.
func (r PathResult) Timed() []TimedPoint {
	nMain := len(r.Points) - (settleSteps + 1)
	out := make([]TimedPoint, 0, len(r.Points))
	for i, p := range r.Points {
		delay := r.DelayPerStepMs
		if i >= nMain {
			delay = settleDelayMs
		}
		out = append(out, TimedPoint{X: p.X, Y: p.Y, DelayMs: delay})
	}
	return out
}

// Cursor tracks the virtual pointer position between moves.
type Cursor struct {
	X float64
	Y float64
}

// Set teleports the cursor without generating a path.
func (c *Cursor) Set(x, y float64) {
	c.X = x
	c.Y = y
}

// Move generates a path from the current position to (x, y) against a
// target of minor dimension w, and advances the cursor to the target.
func (c *Cursor) Move(x, y, w float64) PathResult {
	return c.MoveSeeded(x, y, w, time.Now().UnixNano())
}

// MoveSeeded is Move with a fixed seed; the same seed reproduces the
// path exactly.
func (c *Cursor) MoveSeeded(x, y, w float64, seed int64) PathResult {
	res := generate(c.X, c.Y, x, y, w, seed, DefaultFPS)
	c.X, c.Y = x, y
	return res
}

// minJerk is the fifth-degree minimum-jerk position profile.
func minJerk(s float64) float64 {
	return 10*math.Pow(s, 3) - 15*math.Pow(s, 4) + 6*math.Pow(s, 5)
}

// fittsMT returns the movement time in seconds per the Shannon form,
// clamped to [80ms, 800ms].
func fittsMT(d, w float64) float64 {
	wEff := math.Max(6.0, w)
	mt := fittsA + fittsB*math.Log2(d/wEff+1.0)
	return math.Max(minMoveTimeMs/1000.0, math.Min(maxMoveTimeMs/1000.0, mt))
}

// springSettle integrates a damped spring released from a small random
// offset around the target, then lands on the target exactly.
func springSettle(rnd *rand.Rand, x1, y1 float64) []Point {
	dx := rnd.Float64()*6.0 - 3.0
	dy := rnd.Float64()*6.0 - 3.0
	vx, vy := 0.0, 0.0

	pts := make([]Point, 0, settleSteps+1)
	for i := 0; i < settleSteps; i++ {
		ax := -springK*dx - springC*vx
		ay := -springK*dy - springC*vy
		vx += ax * springDt
		vy += ay * springDt
		dx += vx * springDt
		dy += vy * springDt
		pts = append(pts, Point{X: x1 + dx, Y: y1 + dy})
	}
	return append(pts, Point{X: x1, Y: y1})
}

func generate(x0, y0, x1, y1, w float64, seed int64, fps int) PathResult {
	rnd := rand.New(rand.NewSource(seed))

	dx := x1 - x0
	dy := y1 - y0
	d := math.Hypot(dx, dy)

	mt := fittsMT(d, w)
	totalTimeMs := mt * 1000.0

	steps := int(math.Round(mt * float64(fps)))
	if steps < 8 {
		steps = 8
	}
	if steps > 150 {
		steps = 150
	}
	delayPerStepMs := totalTimeMs / float64(steps)

	// Perpendicular unit vector for the arc.
	px, py := -dy, dx
	pLen := math.Hypot(px, py)
	if pLen == 0 {
		pLen = 1.0
	}
	px /= pLen
	py /= pLen

	bulge := (rnd.Float64()*2.0 - 1.0) * math.Min(30.0, 0.15*d)

	pts := make([]Point, 0, steps+1+settleSteps+1)
	for i := 0; i <= steps; i++ {
		s := float64(i) / float64(steps)
		m := minJerk(s)

		baseX := x0 + dx*m
		baseY := y0 + dy*m

		curve := bulge * math.Sin(math.Pi*m)

		// Tremor that decays toward the target.
		jitterScale := (1.0 - m) * 2.0
		jx := rnd.NormFloat64() * 0.4 * jitterScale
		jy := rnd.NormFloat64() * 0.4 * jitterScale

		pts = append(pts, Point{X: baseX + px*curve + jx, Y: baseY + py*curve + jy})
	}

	settle := springSettle(rnd, x1, y1)
	pts = append(pts, settle...)
	totalTimeMs += float64(len(settle)) * settleDelayMs

	return PathResult{
		Points:         pts,
		TotalTimeMs:    totalTimeMs,
		DelayPerStepMs: delayPerStepMs,
	}
}
