// Package bridge drives one turn of the conversational agent: it resolves
// the session, feeds the oracle, dispatches requested tool calls and
// translates the step sequence into the ordered client-facing event stream.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/edderleonardo/adk-agui-tutorial/internal/metrics"
	"github.com/edderleonardo/adk-agui-tutorial/pkg/agui"
	"github.com/edderleonardo/adk-agui-tutorial/pkg/oracle"
	"github.com/edderleonardo/adk-agui-tutorial/pkg/session"
	"github.com/edderleonardo/adk-agui-tutorial/pkg/tools"
)

// DisconnectReason is recorded on turns abandoned because the client went
// away mid-stream.
const DisconnectReason = "client disconnected"

// Emitter accepts event frames for one request's stream. Send blocks until
// the frame is accepted, so slow consumers exert backpressure instead of
// losing frames. *agui.StreamWriter satisfies it.
type Emitter interface {
	Send(ev agui.Event) error
}

// Bridge wires the session store, tool subsystem and oracle together.
type Bridge struct {
	store      *session.Store
	registry   *tools.Registry
	dispatcher *tools.Dispatcher
	oracle     oracle.Oracle
	log        logr.Logger
	metrics    *metrics.Metrics
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithLogger sets the bridge logger.
func WithLogger(log logr.Logger) Option {
	return func(b *Bridge) { b.log = log }
}

// WithMetrics attaches Prometheus instrumentation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Bridge) { b.metrics = m }
}

// New creates a Bridge.
func New(store *session.Store, registry *tools.Registry, dispatcher *tools.Dispatcher, orc oracle.Oracle, opts ...Option) *Bridge {
	b := &Bridge{
		store:      store,
		registry:   registry,
		dispatcher: dispatcher,
		oracle:     orc,
		log:        logr.Discard(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Run processes one turn: it emits TURN_STARTED, relays oracle steps as
// events (dispatching tool calls along the way) and closes the stream with
// exactly one terminal event. Turns against the same session queue; turns
// against different sessions proceed independently.
func (b *Bridge) Run(ctx context.Context, input agui.RunInput, stream Emitter) error {
	sess := b.store.GetOrCreate(input.AppID, input.UserID)
	release := sess.Acquire()
	defer release()

	turn := &session.Turn{
		ID:          uuid.NewString(),
		UserMessage: input.Message,
		StartedAt:   time.Now(),
	}
	log := b.log.WithValues("session", sess.ID, "turn", turn.ID)

	req := oracle.Request{
		AppID:       input.AppID,
		UserID:      input.UserID,
		SessionID:   sess.ID,
		TurnID:      turn.ID,
		History:     historyMessages(sess.History()),
		Tools:       b.registry.Schemas(),
		UserMessage: input.Message,
	}

	em := &turnEmitter{stream: stream, turnID: turn.ID}
	if err := em.emit(agui.NewEvent(agui.EventTurnStarted, turn.ID)); err != nil {
		return b.abandon(sess, turn, log, err)
	}

	steps, err := b.oracle.Stream(ctx, req)
	if err != nil {
		return b.fail(ctx, sess, turn, em, log, fmt.Sprintf("oracle failure: %v", err))
	}
	defer steps.Close()

	for {
		step, err := steps.Next(ctx)
		if err != nil {
			if isCanceled(ctx, err) {
				return b.abandon(sess, turn, log, err)
			}
			return b.fail(ctx, sess, turn, em, log, fmt.Sprintf("oracle failure: %v", err))
		}

		switch step.Kind {
		case oracle.StepTextDelta:
			turn.AssistantText += step.Text
			ev := agui.NewEvent(agui.EventTextDelta, turn.ID)
			ev.Delta = step.Text
			if err := em.emit(ev); err != nil {
				return b.abandon(sess, turn, log, err)
			}

		case oracle.StepToolCall:
			if err := b.runTool(ctx, sess, turn, em, steps, step); err != nil {
				return b.abandon(sess, turn, log, err)
			}

		case oracle.StepEndTurn:
			turn.EndedAt = time.Now()
			if err := em.emit(agui.NewEvent(agui.EventTurnFinished, turn.ID)); err != nil {
				return b.abandon(sess, turn, log, err)
			}
			sess.AppendTurn(turn, time.Now())
			b.countTurn("finished", turn)
			log.V(1).Info("turn finished", "tool_calls", len(turn.ToolExchanges))
			return nil

		default:
			return b.fail(ctx, sess, turn, em, log, fmt.Sprintf("oracle produced unknown step %q", step.Kind))
		}
	}
}

// runTool executes one tool-call step: announce it, dispatch it, report the
// result to both the client and the oracle. Calls within a turn run
// sequentially; the oracle is blocked on each result before it continues.
func (b *Bridge) runTool(ctx context.Context, sess *session.Session, turn *session.Turn, em *turnEmitter, steps oracle.Stream, step oracle.Step) error {
	inv := tools.Invocation{
		ID:   uuid.NewString(),
		Tool: step.ToolName,
		Args: step.ToolArgs,
	}

	started := agui.NewEvent(agui.EventToolCallStarted, turn.ID)
	started.ToolCall = &agui.ToolCall{ID: inv.ID, Name: inv.Tool, Args: inv.Args}
	if err := em.emit(started); err != nil {
		return err
	}

	// A dispatched tool runs to completion even if the client goes away;
	// only the reporting below is skipped on disconnect.
	res := b.dispatcher.Invoke(context.WithoutCancel(ctx), inv)
	b.countTool(res)
	turn.ToolExchanges = append(turn.ToolExchanges, session.ToolExchange{Invocation: inv, Result: res})

	if err := ctx.Err(); err != nil {
		return err
	}

	finished := agui.NewEvent(agui.EventToolCallFinished, turn.ID)
	finished.ToolResult = &agui.ToolResult{
		ID:      res.InvocationID,
		Name:    res.Tool,
		Outcome: string(res.Outcome),
		Payload: res.Payload,
		Error:   res.Err,
	}
	if err := em.emit(finished); err != nil {
		return err
	}

	return steps.Provide(ctx, oracle.ToolResult{
		Name:    res.Tool,
		Payload: res.Payload,
		IsError: !res.OK(),
		Error:   res.Err,
	})
}

// fail ends the turn with TURN_FAILED and records the truncated turn.
func (b *Bridge) fail(ctx context.Context, sess *session.Session, turn *session.Turn, em *turnEmitter, log logr.Logger, reason string) error {
	turn.Failed = true
	turn.FailReason = reason
	turn.EndedAt = time.Now()

	if ctx.Err() == nil {
		ev := agui.NewEvent(agui.EventTurnFailed, turn.ID)
		ev.Reason = reason
		if err := em.emit(ev); err != nil {
			log.Error(err, "failed to emit turn_failed")
		}
	}

	sess.AppendTurn(turn, time.Now())
	b.countTurn("failed", turn)
	log.Info("turn failed", "reason", reason)
	return errors.New(reason)
}

// abandon records a turn cut short by client disconnect or a dead
// transport. No further events are emitted.
func (b *Bridge) abandon(sess *session.Session, turn *session.Turn, log logr.Logger, cause error) error {
	turn.Failed = true
	turn.FailReason = DisconnectReason
	turn.EndedAt = time.Now()
	sess.AppendTurn(turn, time.Now())
	b.countTurn("failed", turn)
	log.V(1).Info("turn abandoned", "cause", cause.Error())
	return cause
}

func (b *Bridge) countTurn(status string, turn *session.Turn) {
	if b.metrics == nil {
		return
	}
	b.metrics.TurnsTotal.WithLabelValues(status).Inc()
	b.metrics.TurnDuration.Observe(turn.EndedAt.Sub(turn.StartedAt).Seconds())
}

func (b *Bridge) countTool(res tools.Result) {
	if b.metrics == nil {
		return
	}
	b.metrics.ToolInvocations.WithLabelValues(res.Tool, string(res.Outcome)).Inc()
}

func isCanceled(ctx context.Context, err error) bool {
	return ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// historyMessages flattens the session history into the oracle's message
// form: one user message and one assistant message (with its tool traces)
// per turn.
func historyMessages(turns []*session.Turn) []oracle.Message {
	var msgs []oracle.Message
	for _, t := range turns {
		msgs = append(msgs, oracle.Message{Role: oracle.RoleUser, Content: t.UserMessage})
		assistant := oracle.Message{Role: oracle.RoleAssistant, Content: t.AssistantText}
		for _, ex := range t.ToolExchanges {
			assistant.ToolTraces = append(assistant.ToolTraces, oracle.ToolTrace{
				Name:    ex.Invocation.Tool,
				Args:    ex.Invocation.Args,
				Payload: ex.Result.Payload,
				IsError: !ex.Result.OK(),
				Error:   ex.Result.Err,
			})
		}
		msgs = append(msgs, assistant)
	}
	return msgs
}

// turnEmitter enforces the per-turn stream invariant: events are emitted in
// call order and nothing is emitted after the terminal event.
type turnEmitter struct {
	stream   Emitter
	turnID   string
	terminal bool
}

func (e *turnEmitter) emit(ev agui.Event) error {
	if e.terminal {
		return fmt.Errorf("bridge: event %q after terminal event on turn %s", ev.Type, e.turnID)
	}
	if ev.Type.Terminal() {
		e.terminal = true
	}
	return e.stream.Send(ev)
}
