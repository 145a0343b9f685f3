package memory

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddTrimsWhitespace(t *testing.T) {
	l := New()
	l.Add("  goto https://example.com \n")
	assert.Equal(t, "goto https://example.com", l.View())
}

func TestViewJoinsWithNewlines(t *testing.T) {
	l := New()
	l.Add("goto https://example.com")
	l.Add("click h3")
	assert.Equal(t, "goto https://example.com\nclick h3", l.View())
}

func TestBoundEvictsOldest(t *testing.T) {
	l := New()
	for i := 0; i < 40; i++ {
		l.Add(fmt.Sprintf("event %d", i))
	}
	assert.Equal(t, 30, l.Len())

	lines := strings.Split(l.View(), "\n")
	assert.Len(t, lines, 30)
	assert.Equal(t, "event 10", lines[0])
	assert.Equal(t, "event 39", lines[29])
	assert.NotContains(t, l.View(), "event 9\n")
}

func TestCustomCap(t *testing.T) {
	l := NewWithCap(2)
	l.Add("a")
	l.Add("b")
	l.Add("c")
	assert.Equal(t, "b\nc", l.View())
}
