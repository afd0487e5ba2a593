// Package nodes holds the message-pipeline node functions composed by
// the orchestrator graph.
package nodes

import (
	"errors"
	"strings"
	"time"

	catalogx "github.com/demostore/cod-agent/agent/catalog"
	contractx "github.com/demostore/cod-agent/agent/contract"
	statex "github.com/demostore/cod-agent/agent/state"
)

var (
	ErrInvalidAddress = errors.New("customer address is empty")
	ErrInvalidMessage = errors.New("message is empty")
)

type GraphInput struct {
	Address     string
	Text        string
	ProfileName string
}

type GraphOutput struct {
	Reply   string
	OrderID string
}

// GraphState is threaded through the pipeline nodes for one inbound
// message.
type GraphState struct {
	Address     string
	Text        string
	ProfileName string
	Now         time.Time

	Session  *statex.Session
	Products []catalogx.Product
	GenReq   contractx.GenerationRequest

	RawCompletion string
	Intent        contractx.ProposedIntent

	Reply   string
	OrderID string
}

// ValidateRequest normalizes and checks the inbound message before
// anything touches a session.
func ValidateRequest(in GraphInput, nowFn func() time.Time) (*GraphState, error) {
	address := strings.TrimSpace(in.Address)
	if address == "" {
		return nil, ErrInvalidAddress
	}
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, ErrInvalidMessage
	}
	return &GraphState{
		Address:     address,
		Text:        text,
		ProfileName: strings.TrimSpace(in.ProfileName),
		Now:         nowFn().UTC(),
	}, nil
}
