package nodes

import (
	"context"
	"errors"
	"fmt"

	contractx "github.com/demostore/cod-agent/agent/contract"
	statex "github.com/demostore/cod-agent/agent/state"
)

// LoadOrCreateSession fetches the customer's session or starts a fresh
// one, resets a session parked in ORDER_COMPLETE, and records the
// inbound message in the bounded history.
func LoadOrCreateSession(ctx context.Context, in *GraphState, store statex.Store) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	sess, err := store.Load(ctx, in.Address)
	switch {
	case err == nil:
	case errors.Is(err, statex.ErrSessionNotFound):
		sess = statex.NewSession(in.Address, in.Now)
	default:
		return nil, fmt.Errorf("%w: load session: %v", contractx.ErrPersistence, err)
	}

	sess.ResetIfComplete(in.Now)
	sess.AppendMessage("user", in.Text, in.Now)
	sess.Touch(in.Now)

	in.Session = sess
	return in, nil
}
