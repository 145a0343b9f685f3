package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// ActionType discriminates the Action variants.
type ActionType string

const (
	ActNavigate ActionType = "navigate"
	ActClick    ActionType = "click"
	ActType     ActionType = "type"
	ActPress    ActionType = "press"
	ActScroll   ActionType = "scroll"
	ActWait     ActionType = "wait"
	ActExtract  ActionType = "extract"
	ActBack     ActionType = "back"
	ActDone     ActionType = "done"
)

// Action is one command the dispatcher executes against the browser.
// Which fields are meaningful depends on Type; Decode enforces the
// per-variant contract.
type Action struct {
	Type     ActionType `json:"action"`
	Thought  string     `json:"thought,omitempty"`
	URL      string     `json:"url,omitempty"`
	Selector string     `json:"selector,omitempty"`
	Text     string     `json:"text,omitempty"`
	Key      string     `json:"key,omitempty"`
	Ms       int        `json:"ms,omitempty"`
	Dy       int        `json:"dy,omitempty"`
}

// Observation is a snapshot of the visible browser state.
type Observation struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	Text  string `json:"text"`
	Step  int    `json:"step"`
}

// Step is one (action, observation) pair of a run.
type Step struct {
	Action      Action      `json:"action"`
	Observation Observation `json:"observation"`
}

// RunResult is the final output of a goal execution. Answer is
// non-empty whenever the session returns without an error.
type RunResult struct {
	Goal   string `json:"goal"`
	Steps  []Step `json:"steps"`
	Answer string `json:"answer"`
}

type variantSpec struct {
	required []string
	optional []string
}

// Per-variant field contracts. "action" and "thought" are implicitly
// allowed everywhere.
var variants = map[ActionType]variantSpec{
	ActNavigate: {required: []string{"url"}},
	ActClick:    {required: []string{"selector"}},
	ActType:     {required: []string{"selector", "text"}, optional: []string{"key"}},
	ActPress:    {required: []string{"key"}},
	ActScroll:   {optional: []string{"dy"}},
	ActWait:     {optional: []string{"ms"}},
	ActExtract:  {},
	ActBack:     {},
	ActDone:     {optional: []string{"text"}},
}

// Decode validates a raw object against the action schema and builds the
// Action. Unknown keys, unknown discriminators and missing required
// fields are all rejected.
func Decode(obj map[string]any) (Action, error) {
	rawType, ok := obj["action"]
	if !ok {
		return Action{}, fmt.Errorf("action: missing discriminator")
	}
	name, ok := rawType.(string)
	if !ok {
		return Action{}, fmt.Errorf("action: discriminator must be a string, got %T", rawType)
	}
	typ := ActionType(strings.TrimSpace(name))
	spec, ok := variants[typ]
	if !ok {
		return Action{}, fmt.Errorf("action: unknown variant %q", name)
	}

	allowed := map[string]bool{"action": true, "thought": true}
	for _, k := range spec.required {
		allowed[k] = true
	}
	for _, k := range spec.optional {
		allowed[k] = true
	}
	for k := range obj {
		if !allowed[k] {
			return Action{}, fmt.Errorf("action %q: unknown field %q", typ, k)
		}
	}
	for _, k := range spec.required {
		if isMissing(obj[k]) {
			return Action{}, fmt.Errorf("action %q: missing required field %q", typ, k)
		}
	}

	act := Action{Type: typ}
	var err error
	if act.Thought, err = stringField(obj, "thought"); err != nil {
		return Action{}, err
	}
	if act.URL, err = stringField(obj, "url"); err != nil {
		return Action{}, err
	}
	if act.Selector, err = stringField(obj, "selector"); err != nil {
		return Action{}, err
	}
	if act.Text, err = stringField(obj, "text"); err != nil {
		return Action{}, err
	}
	if act.Key, err = stringField(obj, "key"); err != nil {
		return Action{}, err
	}
	if act.Ms, err = intField(obj, "ms"); err != nil {
		return Action{}, err
	}
	if act.Dy, err = intField(obj, "dy"); err != nil {
		return Action{}, err
	}
	return act, nil
}

func isMissing(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}

func stringField(obj map[string]any, key string) (string, error) {
	v, ok := obj[key]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("field %q: expected string, got %T", key, v)
	}
	return s, nil
}

func intField(obj map[string]any, key string) (int, error) {
	v, ok := obj[key]
	if !ok || v == nil {
		return 0, nil
	}
	switch n := v.(type) {
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("field %q: expected integer, got %v", key, n)
		}
		return int(n), nil
	case int:
		return n, nil
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, fmt.Errorf("field %q: expected integer, got %q", key, n.String())
		}
		return int(i), nil
	default:
		return 0, fmt.Errorf("field %q: expected integer, got %T", key, v)
	}
}
