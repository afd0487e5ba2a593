package nodes

import (
	"context"
	"fmt"

	contractx "github.com/demostore/cod-agent/agent/contract"
	intentx "github.com/demostore/cod-agent/agent/intent"
)

// GenerateIntent runs the language-generation call and leniently
// parses its output. Unparsable output degrades to a plain-text reply
// with action "none"; only the call itself failing is an error.
func GenerateIntent(ctx context.Context, in *GraphState, gen contractx.Generator) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}

	raw, err := gen.Generate(ctx, in.GenReq)
	if err != nil {
		return nil, err
	}

	in.RawCompletion = raw
	in.Intent = intentx.Parse(raw)
	return in, nil
}
