package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/avvvet/voicenav/internal/config"
	"github.com/avvvet/voicenav/internal/logger"
	"github.com/avvvet/voicenav/internal/models"
)

// IntentProcessor resolves one command into a response.
type IntentProcessor interface {
	ProcessIntent(ctx context.Context, request *models.IntentRequest) (*models.IntentResponse, error)
}

// Connect dials NATS with unlimited reconnects.
func Connect(cfg config.NATSConfig, name string, log logger.Logger) (*nats.Conn, error) {
	conn, err := nats.Connect(cfg.URL,
		nats.Name(name),
		nats.Timeout(cfg.Timeout),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1), // Infinite reconnects
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.WithError(err).Warn("⚠️ NATS disconnected", nil)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info("🔌 NATS reconnected", map[string]interface{}{"url": c.ConnectedUrl()})
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	log.Info("Connected to NATS server", map[string]interface{}{"url": cfg.URL})
	return conn, nil
}

// NATSTransport answers intent requests on the request subject.
type NATSTransport struct {
	conn    *nats.Conn
	subject string
	timeout time.Duration
	handler IntentProcessor
	log     logger.Logger
	sub     *nats.Subscription
}

func NewNATSTransport(conn *nats.Conn, cfg config.NATSConfig, handler IntentProcessor, log logger.Logger) *NATSTransport {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &NATSTransport{
		conn:    conn,
		subject: cfg.RequestSubject,
		timeout: timeout,
		handler: handler,
		log:     log,
	}
}

func (nt *NATSTransport) Start() error {
	sub, err := nt.conn.Subscribe(nt.subject, nt.handleIntentRequest)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", nt.subject, err)
	}
	nt.sub = sub

	nt.log.Info("Subscribed to subject", map[string]interface{}{"subject": nt.subject})
	return nil
}

func (nt *NATSTransport) handleIntentRequest(msg *nats.Msg) {
	var request models.IntentRequest
	if err := json.Unmarshal(msg.Data, &request); err != nil {
		nt.log.WithError(err).Warn("Error parsing request", nil)
		nt.sendError(msg, models.NewValidationError("invalid request format"))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), nt.timeout)
	defer cancel()

	response, err := nt.handler.ProcessIntent(ctx, &request)
	if err != nil {
		nt.log.WithError(err).Warn("Error processing intent", map[string]interface{}{"request_id": request.RequestID})
		nt.sendError(msg, err)
		return
	}

	if err := respond(msg, response); err != nil {
		nt.log.WithError(err).Error("Error sending response", nil)
		return
	}
	nt.log.Debug("Response sent", map[string]interface{}{
		"request_id": response.Metadata.RequestID,
		"intent":     response.Intent,
	})
}

func (nt *NATSTransport) sendError(msg *nats.Msg, err error) {
	if rerr := respond(msg, models.Body(err)); rerr != nil {
		nt.log.WithError(rerr).Error("Failed to send error response", nil)
	}
}

func respond(msg *nats.Msg, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal response: %w", err)
	}
	if err := msg.Respond(data); err != nil {
		return fmt.Errorf("failed to send response: %w", err)
	}
	return nil
}

// Close stops the subscription. The connection belongs to the caller.
func (nt *NATSTransport) Close() error {
	if nt.sub != nil {
		if err := nt.sub.Unsubscribe(); err != nil {
			return fmt.Errorf("failed to unsubscribe %s: %w", nt.subject, err)
		}
		nt.log.Info("Intent subscription closed", map[string]interface{}{"subject": nt.subject})
	}
	return nil
}
