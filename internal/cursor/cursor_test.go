package cursor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPathEndsExactlyAtTarget(t *testing.T) {
	c := &Cursor{X: 10, Y: 10}
	res := c.MoveSeeded(200, 150, 40, 123)

	require.NotEmpty(t, res.Points)
	last := res.Points[len(res.Points)-1]
	assert.Equal(t, Point{X: 200, Y: 150}, last)
	assert.NotEqual(t, res.Points[0], last)
	assert.Equal(t, 200.0, c.X)
	assert.Equal(t, 150.0, c.Y)
}

func TestPathHasEnoughPoints(t *testing.T) {
	c := &Cursor{}
	res := c.MoveSeeded(400, 10, 20, 1)
	assert.GreaterOrEqual(t, len(res.Points), 15)
}

func TestZeroDistanceStillLandsOnTarget(t *testing.T) {
	c := &Cursor{X: 50, Y: 50}
	res := c.MoveSeeded(50, 50, 20, 7)
	require.NotEmpty(t, res.Points)
	assert.Equal(t, Point{X: 50, Y: 50}, res.Points[len(res.Points)-1])
	assert.GreaterOrEqual(t, len(res.Points), 15)
}

func TestTimeIncreasesWithDistance(t *testing.T) {
	short := (&Cursor{}).MoveSeeded(50, 50, 20, 1)
	long := (&Cursor{}).MoveSeeded(500, 500, 20, 1)
	assert.Greater(t, long.TotalTimeMs, short.TotalTimeMs)
}

func TestTimeDecreasesWithTargetSize(t *testing.T) {
	small := (&Cursor{}).MoveSeeded(200, 200, 10, 1)
	large := (&Cursor{}).MoveSeeded(200, 200, 100, 1)
	assert.LessOrEqual(t, large.TotalTimeMs, small.TotalTimeMs)
}

func TestSeededPathIsReproducible(t *testing.T) {
	a := (&Cursor{}).MoveSeeded(300, 200, 30, 42)
	b := (&Cursor{}).MoveSeeded(300, 200, 30, 42)
	assert.Equal(t, a, b)

	other := (&Cursor{}).MoveSeeded(300, 200, 30, 43)
	assert.NotEqual(t, a.Points, other.Points)
}

func TestTimedWaypoints(t *testing.T) {
	res := (&Cursor{X: 50, Y: 50}).MoveSeeded(200, 150, 25, 99)
	timed := res.Timed()
	require.Len(t, timed, len(res.Points))

	for i, tp := range timed {
		assert.GreaterOrEqual(t, tp.DelayMs, 0.0)
		if i < len(timed)-(settleSteps+1) {
			assert.Equal(t, res.DelayPerStepMs, tp.DelayMs)
		} else {
			assert.Equal(t, settleDelayMs, tp.DelayMs)
		}
	}
}

func TestSettlePointsIncluded(t *testing.T) {
	res := (&Cursor{}).MoveSeeded(100, 100, 20, 1)
	// Main samples plus 8 spring points plus the exact target.
	assert.Greater(t, len(res.Points), 15)
	penultimate := res.Points[len(res.Points)-2]
	assert.NotEqual(t, Point{X: 100, Y: 100}, penultimate)
}
