// Package pipeline runs a command end to end: resolve the intent, pick
// the action, execute it.
package pipeline

import (
	"context"
	"fmt"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/avvvet/voicenav/internal/dispatch"
	"github.com/avvvet/voicenav/internal/logger"
	"github.com/avvvet/voicenav/internal/messenger"
	"github.com/avvvet/voicenav/internal/metrics"
	"github.com/avvvet/voicenav/internal/models"
)

const tracerName = "voicenav.pipeline"

// Resolver turns command text into an intent response.
type Resolver interface {
	ProcessIntent(ctx context.Context, request *models.IntentRequest) (*models.IntentResponse, error)
}

type Pipeline struct {
	// slot serialises runs: two actions never touch the browser at once.
	slot       chan struct{}
	resolver   Resolver
	dispatcher *dispatch.Dispatcher
	sender     messenger.Sender
	log        logger.Logger
}

// New builds a pipeline. A nil sender resolves and dispatches without
// executing anything.
func New(resolver Resolver, dispatcher *dispatch.Dispatcher, sender messenger.Sender, log logger.Logger) *Pipeline {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	if dispatcher == nil {
		dispatcher = dispatch.New(log)
	}
	return &Pipeline{
		slot:       make(chan struct{}, 1),
		resolver:   resolver,
		dispatcher: dispatcher,
		sender:     sender,
		log:        log,
	}
}

// Run processes one command. Errors are the resolver's hard failures or
// ctx ending while queued behind another run; execution problems are
// reported in the outcome.
func (p *Pipeline) Run(ctx context.Context, text string) (*models.CommandOutcome, error) {
	select {
	case p.slot <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for pipeline: %w", ctx.Err())
	}
	defer func() { <-p.slot }()

	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "pipeline.Run")
	defer span.End()

	resolveCtx, resolveSpan := tracer.Start(ctx, "pipeline.resolve")
	resp, err := p.resolver.ProcessIntent(resolveCtx, &models.IntentRequest{Text: text})
	if err != nil {
		resolveSpan.RecordError(err)
		resolveSpan.SetStatus(codes.Error, err.Error())
		resolveSpan.End()
		span.SetStatus(codes.Error, "intent resolution failed")
		return nil, err
	}
	resolveSpan.SetAttributes(
		attribute.String("intent", string(resp.Intent)),
		attribute.String("model", resp.Metadata.Model),
		attribute.Bool("cached", resp.Metadata.Cached),
	)
	resolveSpan.End()

	_, dispatchSpan := tracer.Start(ctx, "pipeline.dispatch")
	action := p.dispatcher.Dispatch(resp.Result())
	dispatchSpan.SetAttributes(attribute.String("action", string(action.Action)))
	dispatchSpan.End()

	outcome := &models.CommandOutcome{Response: resp, Action: action}
	log := p.log.WithFields(map[string]interface{}{
		"request_id": resp.Metadata.RequestID,
		"action":     action.Action,
	})

	if p.sender == nil {
		log.Debug("No executor configured, skipping action", nil)
		return outcome, nil
	}

	execCtx, execSpan := tracer.Start(ctx, "pipeline.execute", trace.WithAttributes(attribute.String("action", string(action.Action))))
	res := p.sender.Send(execCtx, action)
	execSpan.SetAttributes(attribute.Bool("success", res.Success))
	if !res.Success && action.Action != models.ActionNone {
		execSpan.SetStatus(codes.Error, res.Error)
	}
	execSpan.End()

	metrics.ActionsTotal.WithLabelValues(string(action.Action), strconv.FormatBool(res.Success)).Inc()
	outcome.Execution = &res

	if res.Success {
		log.Info("✅ Action completed", map[string]interface{}{"message": res.Message})
	} else if action.Action != models.ActionNone {
		log.Warn("Action failed", map[string]interface{}{"error": res.Error})
	}
	return outcome, nil
}
