package llm

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generate(t *testing.T, user string) map[string]any {
	t.Helper()
	raw, err := NewMock().Generate(context.Background(), "sys", user)
	require.NoError(t, err)
	var obj map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &obj), "raw=%q", raw)
	return obj
}

func TestMockNavigatesToKnownSiteFromBlankPage(t *testing.T) {
	obj := generate(t, "GOAL:\nopen github\n\nSTATE:\nurl=about:blank\nstep=0\n")
	assert.Equal(t, "navigate", obj["action"])
	assert.Equal(t, "https://github.com", obj["url"])
}

func TestMockFallsBackToHomeFromBlankPage(t *testing.T) {
	obj := generate(t, "GOAL:\nfind something obscure\n\nSTATE:\nurl=about:blank\nstep=0\n")
	assert.Equal(t, "navigate", obj["action"])
	assert.Equal(t, "https://google.com", obj["url"])
}

func TestMockTypesQueryIntoSearchBox(t *testing.T) {
	user := "GOAL:\nsearch machine learning\n\nSTATE:\nurl=https://google.com/\n\nPAGE_TEXT (excerpt):\n0. [TEXTAREA] \"[Input Search]\" => #APjFqb\n"
	obj := generate(t, user)
	assert.Equal(t, "type", obj["action"])
	assert.Equal(t, "#APjFqb", obj["selector"])
	assert.Contains(t, obj["text"], "machine learning")
}

func TestMockPressesEnterAfterTyping(t *testing.T) {
	user := "GOAL:\nsearch x\n\nSTATE:\nurl=https://google.com/\n\nMEMORY:\ntype #APjFqb=x\n"
	obj := generate(t, user)
	assert.Equal(t, "press", obj["action"])
	assert.Equal(t, "Enter", obj["key"])
}

func TestMockClicksResult(t *testing.T) {
	user := "GOAL:\nsearch x\n\nSTATE:\nurl=https://site.example/search?q=x\n\nPAGE_TEXT (excerpt):\n0. [A] \"X\" => h3\n"
	obj := generate(t, user)
	assert.Equal(t, "click", obj["action"])
	assert.Equal(t, "h3", obj["selector"])
}

func TestMockDefaultsToExtract(t *testing.T) {
	obj := generate(t, "GOAL:\nread the page\n\nSTATE:\nurl=https://example.com/a\n")
	assert.Equal(t, "extract", obj["action"])
}
