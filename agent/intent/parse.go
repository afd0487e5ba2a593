// Package intent turns untrusted collaborator output into validated
// session mutations.
package intent

import (
	"encoding/json"
	"regexp"
	"strings"

	contractx "github.com/demostore/cod-agent/agent/contract"
)

// The collaborator is asked for a JSON object but is free-form text
// underneath; grab the outermost braces and try from there.
var jsonObjectPattern = regexp.MustCompile(`\{[\s\S]*\}`)

type rawIntent struct {
	Message    string          `json:"message"`
	Action     string          `json:"action"`
	ActionData json.RawMessage `json:"action_data"`
}

type rawActionData struct {
	Category  string `json:"category"`
	ProductID string `json:"product_id"`
	Quantity  any    `json:"quantity"`
	Color     string `json:"color"`
	Field     string `json:"field"`
	Value     string `json:"value"`
	Confirmed any    `json:"confirmed"`
}

// Parse never fails: output that does not contain a well-formed intent
// object is downgraded to a plain-text reply with action "none", and
// unknown action kinds normalize to "none" as well. No session
// mutation can result from malformed output.
func Parse(raw string) contractx.ProposedIntent {
	fallback := contractx.ProposedIntent{
		Reply:  strings.TrimSpace(raw),
		Action: contractx.ActionNone,
	}

	match := jsonObjectPattern.FindString(raw)
	if match == "" {
		return fallback
	}

	var parsed rawIntent
	if err := json.Unmarshal([]byte(match), &parsed); err != nil {
		return fallback
	}
	if strings.TrimSpace(parsed.Message) == "" && strings.TrimSpace(parsed.Action) == "" {
		return fallback
	}

	kind := contractx.ActionKind(strings.TrimSpace(parsed.Action))
	if kind == "" || !contractx.KnownActionKind(kind) {
		kind = contractx.ActionNone
	}

	return contractx.ProposedIntent{
		Reply:   strings.TrimSpace(parsed.Message),
		Action:  kind,
		Payload: parsePayload(parsed.ActionData),
	}
}

func parsePayload(raw json.RawMessage) contractx.ActionPayload {
	if len(raw) == 0 {
		return contractx.ActionPayload{}
	}
	var data rawActionData
	if err := json.Unmarshal(raw, &data); err != nil {
		return contractx.ActionPayload{}
	}
	return contractx.ActionPayload{
		Category:   strings.TrimSpace(data.Category),
		ProductRef: strings.TrimSpace(data.ProductID),
		Quantity:   asQuantity(data.Quantity),
		Color:      strings.TrimSpace(data.Color),
		Field:      strings.ToLower(strings.TrimSpace(data.Field)),
		Value:      strings.TrimSpace(data.Value),
		Confirmed:  asBool(data.Confirmed),
	}
}

// asQuantity tolerates the number-vs-string slop generative output
// produces. Anything unusable comes back as 0 and is defaulted later.
func asQuantity(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case string:
		var parsed int
		for _, ch := range strings.TrimSpace(n) {
			if ch < '0' || ch > '9' {
				return 0
			}
			parsed = parsed*10 + int(ch-'0')
		}
		return parsed
	default:
		return 0
	}
}

func asBool(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		return strings.EqualFold(strings.TrimSpace(b), "true")
	default:
		return false
	}
}
