package nodes

import (
	"context"
	"fmt"
	"strings"

	contractx "github.com/demostore/cod-agent/agent/contract"
	statex "github.com/demostore/cod-agent/agent/state"
)

// SaveSession records the assistant reply in the history and persists
// the session.
func SaveSession(ctx context.Context, in *GraphState, store statex.Store) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}

	in.Session.AppendMessage("assistant", in.Reply, in.Now)
	if err := in.Session.Validate(); err != nil {
		return nil, fmt.Errorf("session validation failed: %w", err)
	}
	if err := store.Save(ctx, in.Session); err != nil {
		return nil, fmt.Errorf("%w: save session: %v", contractx.ErrPersistence, err)
	}
	return in, nil
}

// FinalizeReply extracts the pipeline output.
func FinalizeReply(in *GraphState) (GraphOutput, error) {
	if in == nil {
		return GraphOutput{}, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	reply := strings.TrimSpace(in.Reply)
	if reply == "" {
		return GraphOutput{}, fmt.Errorf("%w: empty reply", contractx.ErrValidation)
	}
	return GraphOutput{Reply: reply, OrderID: in.OrderID}, nil
}
