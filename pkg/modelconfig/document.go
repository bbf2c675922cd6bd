package modelconfig

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"
)

const (
	primaryPath   = "agents.defaults.model.primary"
	fallbacksPath = "agents.defaults.model.fallbacks"
	agentListPath = "agents.list"
	tokenPath     = "gateway.auth.token"
)

var prettyOptions = &pretty.Options{Width: 80, Prefix: "", Indent: "  ", SortKeys: false}

// agentOverride locates the model override of the named agent in doc. It
// returns the index of the agent in agents.list and the sjson path to write,
// or -1 when the agent has no override.
func agentOverride(doc []byte, agentID string) (index int, path string, model string) {
	index = -1
	gjson.GetBytes(doc, agentListPath).ForEach(func(key, agent gjson.Result) bool {
		if agent.Get("id").String() != agentID {
			return true
		}
		m := agent.Get("model")
		switch {
		case m.Type == gjson.String && m.String() != "":
			index, path, model = int(key.Int()), fmt.Sprintf("%d.model", key.Int()), m.String()
		case m.IsObject() && m.Get("primary").String() != "":
			index, path, model = int(key.Int()), fmt.Sprintf("%d.model.primary", key.Int()), m.Get("primary").String()
		}
		return false
	})
	return index, path, model
}

// activeModel resolves the effective primary model: the main agent's
// override when present, else the defaults primary.
func activeModel(doc []byte, mainAgent string) (string, error) {
	if !gjson.ValidBytes(doc) {
		return "", fmt.Errorf("configuration is not valid JSON")
	}
	if _, _, model := agentOverride(doc, mainAgent); model != "" {
		return model, nil
	}

	primary := gjson.GetBytes(doc, "agents.defaults.model")
	if primary.Type == gjson.String && primary.String() != "" {
		return primary.String(), nil
	}
	if id := primary.Get("primary").String(); id != "" {
		return id, nil
	}
	return "", fmt.Errorf("configuration has no %s", primaryPath)
}

func fallbacks(doc []byte) ([]string, error) {
	raw := gjson.GetBytes(doc, fallbacksPath)
	if !raw.IsArray() {
		return nil, ErrMissingFallbacks
	}

	var list []string
	if err := json.Unmarshal([]byte(raw.Raw), &list); err != nil {
		return nil, fmt.Errorf("%w: %s is not a list of model ids", ErrMissingFallbacks, fallbacksPath)
	}
	if len(list) == 0 {
		return nil, ErrMissingFallbacks
	}
	return list, nil
}

// setActiveModel returns doc with the defaults primary, and the main agent
// override if one exists, set to id. Every other field is kept as is. The
// result is re-parsed and checked before being returned.
func setActiveModel(doc []byte, id, mainAgent string) ([]byte, error) {
	if !gjson.ValidBytes(doc) {
		return nil, fmt.Errorf("configuration is not valid JSON")
	}

	before, err := fallbacks(doc)
	if err != nil {
		return nil, err
	}

	out, err := sjson.SetBytes(doc, primaryPath, id)
	if err != nil {
		return nil, fmt.Errorf("setting %s: %w", primaryPath, err)
	}

	if _, path, _ := agentOverride(out, mainAgent); path != "" {
		out, err = sjson.SetBytes(out, agentListPath+"."+path, id)
		if err != nil {
			return nil, fmt.Errorf("setting %s override: %w", mainAgent, err)
		}
	}

	out = pretty.PrettyOptions(out, prettyOptions)

	if !json.Valid(out) {
		return nil, fmt.Errorf("updated configuration does not parse")
	}
	if got, err := activeModel(out, mainAgent); err != nil || got != id {
		return nil, fmt.Errorf("updated configuration resolves to %q instead of %q", got, id)
	}
	after, err := fallbacks(out)
	if err != nil || !slices.Equal(before, after) {
		return nil, fmt.Errorf("updated configuration changed %s", fallbacksPath)
	}

	return out, nil
}

// remotePatch builds the config.patch params for id. When current shows a
// main agent override, the whole agent list is sent with that override
// updated, since merge patches replace arrays wholesale.
func remotePatch(current []byte, id, mainAgent string) (map[string]any, error) {
	agents := map[string]any{
		"defaults": map[string]any{
			"model": map[string]any{"primary": id},
		},
	}

	if current != nil {
		if _, path, _ := agentOverride(current, mainAgent); path != "" {
			list := gjson.GetBytes(current, agentListPath).Raw
			updated, err := sjson.Set(list, path, id)
			if err != nil {
				return nil, fmt.Errorf("updating %s override: %w", mainAgent, err)
			}
			agents["list"] = json.RawMessage(updated)
		}
	}

	return map[string]any{"agents": agents}, nil
}

// TokenFromDocument returns gateway.auth.token, if set.
func TokenFromDocument(doc []byte) string {
	return gjson.GetBytes(doc, tokenPath).String()
}
