package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/avvvet/voicenav/internal/logger"
	"github.com/avvvet/voicenav/internal/messenger"
	"github.com/avvvet/voicenav/internal/models"
)

// agentQueue lets several agents share the action subject; each
// action is delivered to one of them.
const agentQueue = "voicenav-agents"

// ActionClient relays actions to an agent running next to the browser.
type ActionClient struct {
	conn    *nats.Conn
	subject string
	timeout time.Duration
	log     logger.Logger
}

func NewActionClient(conn *nats.Conn, subject string, timeout time.Duration, log logger.Logger) *ActionClient {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	if timeout <= 0 {
		timeout = messenger.DefaultReplyTimeout
	}
	return &ActionClient{conn: conn, subject: subject, timeout: timeout, log: log}
}

// Send implements messenger.Sender over request/reply.
func (c *ActionClient) Send(ctx context.Context, req models.ActionRequest) models.ExecutionResult {
	if req.Action == models.ActionNone {
		return models.ExecutionResult{Success: false, Error: "no action for intent"}
	}
	msgType, ok := models.MessageFor(req.Action)
	if !ok {
		return models.ExecutionResult{Success: false, Error: fmt.Sprintf("unsupported action %q", req.Action)}
	}

	data, err := json.Marshal(models.Message{Type: msgType, Payload: req.Payload})
	if err != nil {
		return models.Failed(fmt.Errorf("failed to marshal action: %w", err))
	}

	rctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	msg, err := c.conn.RequestWithContext(rctx, c.subject, data)
	if err != nil {
		if errors.Is(err, nats.ErrTimeout) || errors.Is(err, nats.ErrNoResponders) ||
			(errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil) {
			err = models.NewMessagingTimeoutError(c.timeout)
		}
		c.log.WithError(err).Warn("Action relay failed", map[string]interface{}{"subject": c.subject, "action": req.Action})
		return models.Failed(err)
	}

	var reply models.Reply
	if err := json.Unmarshal(msg.Data, &reply); err != nil {
		return models.Failed(models.NewParseError(err))
	}
	return reply.Result()
}

// ActionServer executes relayed actions with a local sender.
type ActionServer struct {
	conn    *nats.Conn
	subject string
	sender  messenger.Sender
	timeout time.Duration
	log     logger.Logger
	sub     *nats.Subscription
}

func NewActionServer(conn *nats.Conn, subject string, sender messenger.Sender, timeout time.Duration, log logger.Logger) *ActionServer {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	if timeout <= 0 {
		timeout = messenger.DefaultReplyTimeout
	}
	return &ActionServer{conn: conn, subject: subject, sender: sender, timeout: timeout, log: log}
}

func (s *ActionServer) Start() error {
	sub, err := s.conn.QueueSubscribe(s.subject, agentQueue, s.handleAction)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", s.subject, err)
	}
	s.sub = sub

	s.log.Info("🤖 Automation agent listening", map[string]interface{}{"subject": s.subject})
	return nil
}

func (s *ActionServer) handleAction(msg *nats.Msg) {
	var in models.Message
	if err := json.Unmarshal(msg.Data, &in); err != nil {
		s.reply(msg, models.Failed(models.NewParseError(err)))
		return
	}
	action := in.Type.Action()
	if action == models.ActionNone {
		s.reply(msg, models.ExecutionResult{Success: false, Error: fmt.Sprintf("unsupported message type %q", in.Type)})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	res := s.sender.Send(ctx, models.ActionRequest{Action: action, Payload: in.Payload})
	s.log.Info("Action executed", map[string]interface{}{"action": action, "success": res.Success})
	s.reply(msg, res)
}

func (s *ActionServer) reply(msg *nats.Msg, res models.ExecutionResult) {
	if err := respond(msg, models.ReplyFrom(res)); err != nil {
		s.log.WithError(err).Error("Failed to send action reply", nil)
	}
}

func (s *ActionServer) Close() error {
	if s.sub != nil {
		if err := s.sub.Unsubscribe(); err != nil {
			return fmt.Errorf("failed to unsubscribe %s: %w", s.subject, err)
		}
	}
	return nil
}
