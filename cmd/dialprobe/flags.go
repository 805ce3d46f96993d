package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/lamim/dialprobe/internal/api"
	"github.com/spf13/cobra"
)

// paramFlags holds the request parameter flags shared by complete and task run
type paramFlags struct {
	raw              []string
	n                int
	temperature      float64
	maxTokens        int
	topP             float64
	seed             int
	frequencyPenalty float64
	presencePenalty  float64
	stop             []string
}

func (p *paramFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringArrayVar(&p.raw, "param", nil, "Extra request parameter as key=value; value is parsed as JSON when possible (repeatable)")
	f.IntVar(&p.n, "n", 1, "Number of choices")
	f.Float64Var(&p.temperature, "temperature", 1.0, "Sampling temperature")
	f.IntVar(&p.maxTokens, "max-tokens", 0, "Maximum completion tokens")
	f.Float64Var(&p.topP, "top-p", 1.0, "Nucleus sampling probability mass")
	f.IntVar(&p.seed, "seed", 0, "Sampling seed")
	f.Float64Var(&p.frequencyPenalty, "frequency-penalty", 0, "Frequency penalty")
	f.Float64Var(&p.presencePenalty, "presence-penalty", 0, "Presence penalty")
	f.StringArrayVar(&p.stop, "stop", nil, "Stop sequence (repeatable; several values are sent as a list)")
}

// build returns only the parameters that were set on the command line.
// Typed shortcuts win over --param entries with the same name.
func (p *paramFlags) build(cmd *cobra.Command) (api.Params, error) {
	params := api.Params{}

	for _, kv := range p.raw {
		key, value, err := parseParam(kv)
		if err != nil {
			return nil, err
		}
		params[key] = value
	}

	changed := cmd.Flags().Changed
	if changed("n") {
		params["n"] = p.n
	}
	if changed("temperature") {
		params["temperature"] = p.temperature
	}
	if changed("max-tokens") {
		params["max_tokens"] = p.maxTokens
	}
	if changed("top-p") {
		params["top_p"] = p.topP
	}
	if changed("seed") {
		params["seed"] = p.seed
	}
	if changed("frequency-penalty") {
		params["frequency_penalty"] = p.frequencyPenalty
	}
	if changed("presence-penalty") {
		params["presence_penalty"] = p.presencePenalty
	}
	if changed("stop") {
		if len(p.stop) == 1 {
			params["stop"] = p.stop[0]
		} else {
			params["stop"] = p.stop
		}
	}

	return params, nil
}

// parseParam splits key=value. Values that parse as JSON keep their JSON type;
// anything else is sent as a string.
func parseParam(kv string) (string, any, error) {
	key, raw, ok := strings.Cut(kv, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return "", nil, &api.Error{
			Kind:    api.KindInvalidInput,
			Op:      "parse parameter",
			Message: fmt.Sprintf("expected key=value, got %q", kv),
		}
	}

	var value any
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		return key, raw, nil
	}
	return key, value, nil
}

func formatParams(params api.Params) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		raw, err := json.Marshal(params[k])
		if err != nil {
			raw = []byte(fmt.Sprint(params[k]))
		}
		parts = append(parts, k+"="+string(raw))
	}
	return strings.Join(parts, " ")
}
