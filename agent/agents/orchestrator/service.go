package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/cloudwego/eino/compose"

	contractx "github.com/demostore/cod-agent/agent/contract"
	intentx "github.com/demostore/cod-agent/agent/intent"
	nodex "github.com/demostore/cod-agent/agent/nodes"
	statex "github.com/demostore/cod-agent/agent/state"
)

var (
	ErrInvalidAddress = nodex.ErrInvalidAddress
	ErrInvalidMessage = nodex.ErrInvalidMessage
)

type Config struct {
	Currency string
}

// Orchestrator runs the per-message pipeline. Messages from the same
// customer address are serialized through a keyed lock so cart merges
// and state transitions cannot race; different addresses proceed in
// parallel.
type Orchestrator struct {
	store     statex.Store
	catalog   contractx.CatalogStore
	generator contractx.Generator
	executor  *intentx.Executor

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]
	locks       keyedLocks

	currency string
	now      func() time.Time
}

func New(
	store statex.Store,
	catalog contractx.CatalogStore,
	generator contractx.Generator,
	executor *intentx.Executor,
	cfg Config,
) (*Orchestrator, error) {
	if store == nil {
		return nil, errors.New("session store is required")
	}
	if catalog == nil {
		return nil, errors.New("catalog store is required")
	}
	if generator == nil {
		return nil, errors.New("generator is required")
	}
	if executor == nil {
		return nil, errors.New("intent executor is required")
	}

	currency := cfg.Currency
	if currency == "" {
		currency = "DH"
	}

	o := &Orchestrator{
		store:     store,
		catalog:   catalog,
		generator: generator,
		executor:  executor,
		currency:  currency,
		now:       time.Now,
	}

	runner, err := o.compileHandleMessageGraph(context.Background())
	if err != nil {
		return nil, err
	}
	o.graphRunner = runner

	return o, nil
}

// HandleMessage processes one inbound customer message and returns the
// reply text. At most one invocation mutates a given address at a
// time.
func (o *Orchestrator) HandleMessage(ctx context.Context, msg contractx.InboundMessage) (string, error) {
	unlock := o.locks.lock(msg.Address)
	defer unlock()

	out, err := o.graphRunner.Invoke(ctx, nodex.GraphInput{
		Address:     msg.Address,
		Text:        msg.Text,
		ProfileName: msg.ProfileName,
	})
	if err != nil {
		return "", err
	}
	return out.Reply, nil
}
