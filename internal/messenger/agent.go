package messenger

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/avvvet/voicenav/internal/automation"
	"github.com/avvvet/voicenav/internal/logger"
	"github.com/avvvet/voicenav/internal/models"
)

const defaultAgentIdle = time.Minute

// AgentInjector binds an Executor to the tab and serves it from a
// goroutine that answers exactly one message. An agent that receives
// nothing within Idle exits.
type AgentInjector struct {
	Options automation.Options
	Idle    time.Duration
	Log     logger.Logger
}

func (a AgentInjector) Inject(ctx context.Context, tab automation.Tab) (Channel, error) {
	if tab == nil {
		return nil, errors.New("no tab to inject into")
	}
	idle := a.Idle
	if idle <= 0 {
		idle = defaultAgentIdle
	}
	ag := &agent{requests: make(chan request, 1)}
	go ag.serve(automation.NewExecutor(tab, a.Options, a.Log), idle)
	return ag, nil
}

type request struct {
	ctx   context.Context
	msg   models.Message
	reply chan models.Reply
}

type agent struct {
	used     atomic.Bool
	requests chan request
}

func (a *agent) serve(ex *automation.Executor, idle time.Duration) {
	timer := time.NewTimer(idle)
	defer timer.Stop()

	select {
	case req := <-a.requests:
		res := ex.Execute(req.ctx, models.ActionRequest{Action: req.msg.Type.Action(), Payload: req.msg.Payload})
		req.reply <- models.ReplyFrom(res)
	case <-timer.C:
	}
}

// Request may be called once; later calls fail.
func (a *agent) Request(ctx context.Context, msg models.Message) (models.Reply, error) {
	if !a.used.CompareAndSwap(false, true) {
		return models.Reply{}, errors.New("agent already answered")
	}
	r := request{ctx: ctx, msg: msg, reply: make(chan models.Reply, 1)}
	a.requests <- r

	select {
	case reply := <-r.reply:
		return reply, nil
	case <-ctx.Done():
		return models.Reply{}, ctx.Err()
	}
}
