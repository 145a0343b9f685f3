package jsonx

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractSimple(t *testing.T) {
	obj, err := Extract(`{"a": 1}`)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": 1.0}, obj)
}

func TestExtractSingleQuotes(t *testing.T) {
	obj, err := Extract(`{'action':'done','text':'ok'}`)
	require.NoError(t, err)
	assert.Equal(t, "done", obj["action"])
	assert.Equal(t, "ok", obj["text"])
}

func TestExtractBareKeys(t *testing.T) {
	obj, err := Extract(`{action: 'done', ms: 500}`)
	require.NoError(t, err)
	assert.Equal(t, "done", obj["action"])
	assert.Equal(t, 500.0, obj["ms"])
}

func TestExtractEmbeddedInProse(t *testing.T) {
	s := "Sure, here is the action:\n{ \"action\": \"done\", \"text\": \"ok\" }\nhope that helps"
	obj, err := Extract(s)
	require.NoError(t, err)
	assert.Equal(t, "done", obj["action"])
}

func TestExtractCodeFence(t *testing.T) {
	s := "```json\n{\"action\": \"wait\", \"ms\": 300}\n```"
	obj, err := Extract(s)
	require.NoError(t, err)
	assert.Equal(t, "wait", obj["action"])
	assert.Equal(t, 300.0, obj["ms"])
}

func TestExtractNestedAndStrings(t *testing.T) {
	s := `{"thought": "braces {inside} a \"string\"", "action": "done"}`
	obj, err := Extract(s)
	require.NoError(t, err)
	assert.Equal(t, "done", obj["action"])
	assert.Equal(t, `braces {inside} a "string"`, obj["thought"])
}

func TestExtractNoObject(t *testing.T) {
	_, err := Extract("no json here at all")
	assert.ErrorIs(t, err, ErrNoObject)
}

func TestExtractNumericKey(t *testing.T) {
	_, err := Extract(`{1: "two"}`)
	assert.ErrorIs(t, err, ErrKeysNotString)
}

func TestExtractIdempotent(t *testing.T) {
	inputs := []string{
		`{"action":"navigate","url":"https://example.com"}`,
		"prose before {'action': 'click', 'selector': 'h3'} prose after",
		"```\n{\"action\":\"scroll\",\"dy\":-200}\n```",
	}
	for _, in := range inputs {
		first, err := Extract(in)
		require.NoError(t, err, in)

		raw, err := json.Marshal(first)
		require.NoError(t, err)

		second, err := Extract(string(raw))
		require.NoError(t, err)
		assert.Equal(t, first, second, in)
	}
}
