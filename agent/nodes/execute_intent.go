package nodes

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/demostore/cod-agent/agent/contract"
	intentx "github.com/demostore/cod-agent/agent/intent"
)

const apologyReply = "Sorry, something went wrong on our side. Please try again in a moment!"

// ExecuteIntent applies the proposed action against the session and
// composes the final reply. A persistence failure during execution
// becomes a generic apology while the session keeps its state and cart
// for retry.
func ExecuteIntent(ctx context.Context, in *GraphState, executor *intentx.Executor) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}

	outcome, err := executor.Execute(ctx, in.Session, in.Intent)
	if err != nil {
		if !errors.Is(err, contractx.ErrPersistence) {
			return nil, err
		}
		log.Error().Err(err).Str("address", in.Address).Msg("intent execution hit persistence failure")
		in.Reply = apologyReply
		return in, nil
	}

	in.Reply = in.Intent.Reply + outcome.Fragment
	in.OrderID = outcome.OrderID
	if in.Reply == "" {
		// A silent action still needs an answer for the customer.
		in.Reply = apologyReply
	}
	return in, nil
}
