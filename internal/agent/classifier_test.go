package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	var c goalClassifier
	cases := map[string]string{
		"open the dashboard":               intentNavigate,
		"go to my profile page":            intentNavigate,
		"something on example.com":         intentNavigate,
		"search machine learning tutorial": intentSearch,
		"what is the capital of france":    intentSearch,
		"just look around":                 intentGeneric,
	}
	for goal, want := range cases {
		assert.Equal(t, want, c.classify(goal), goal)
	}
}

func TestExtractURL(t *testing.T) {
	var c goalClassifier
	cases := map[string]string{
		"open github.com/test":             "https://github.com/test",
		"go to https://example.org/a?b=1":  "https://example.org/a?b=1",
		"visit www.wikipedia.org please":   "https://www.wikipedia.org",
		"open the site docs.python.org.":   "https://docs.python.org",
		"search machine learning tutorial": "",
		"what is the weather like":         "",
	}
	for goal, want := range cases {
		assert.Equal(t, want, c.extractURL(goal), goal)
	}
}

func TestExtractQuery(t *testing.T) {
	var c goalClassifier
	assert.Equal(t, "machine learning tutorial", c.extractQuery("search for the machine learning tutorial"))
	assert.Equal(t, "weather in rome", c.extractQuery("find weather in rome"))
	// A goal that is nothing but verbs falls back to the raw text.
	assert.Equal(t, "search", c.extractQuery("search"))
}
