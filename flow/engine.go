package flow

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/m3rciful/logibot/core/logger"
	"github.com/m3rciful/logibot/session"
)

// Kind names a dialog flow. Each kind owns its own instance namespace.
type Kind uint8

const (
	KindRegistration Kind = iota
	KindLogin
	KindAdminLogin
	KindOrderCreation
)

func (k Kind) String() string {
	switch k {
	case KindRegistration:
		return "registration"
	case KindLogin:
		return "login"
	case KindAdminLogin:
		return "admin_login"
	case KindOrderCreation:
		return "order_creation"
	default:
		return "unknown"
	}
}

// Step names one stage of a flow awaiting a specific piece of input.
type Step string

// CancelToken aborts any flow at any step. It is intercepted before the
// step transition runs.
const CancelToken = "❌ Отмена"

// Reply is what a flow hands back to the transport: plain text and whether
// the default menu keyboard should be shown again.
type Reply struct {
	Text     string
	ShowMenu bool
}

type outcomeKind uint8

const (
	outcomeReprompt outcomeKind = iota
	outcomeAdvance
	outcomeComplete
	outcomeAbort
)

// Outcome is the result of one step transition.
type Outcome struct {
	kind outcomeKind
	next Step
	text string
}

// Reprompt rejects the input and stays on the current step.
func Reprompt(text string) Outcome {
	return Outcome{kind: outcomeReprompt, text: text}
}

// Advance accepts the input and moves to the next step.
func Advance(next Step, text string) Outcome {
	return Outcome{kind: outcomeAdvance, next: next, text: text}
}

// Complete terminates the flow and triggers the completion side effect.
func Complete() Outcome {
	return Outcome{kind: outcomeComplete}
}

// Abort terminates the flow without the completion side effect.
func Abort(text string) Outcome {
	return Outcome{kind: outcomeAbort, text: text}
}

func (o Outcome) String() string {
	switch o.kind {
	case outcomeReprompt:
		return "reprompt"
	case outcomeAdvance:
		return "advance"
	case outcomeComplete:
		return "complete"
	default:
		return "abort"
	}
}

// Transition consumes one input on a step. It may mutate the collected
// fields and must convert every internal error into a user-facing Outcome;
// no error crosses the engine boundary.
type Transition[T any] func(ctx context.Context, actor session.ActorID, data *T, input string) Outcome

// Definition describes one flow kind: its step graph and terminal hooks.
type Definition[T any] struct {
	Kind      Kind
	Start     Step
	StartText string
	Steps     map[Step]Transition[T]

	// CancelText is sent when the cancel token aborts the flow.
	CancelText string
	// OnComplete persists the collected fields and returns the success text.
	OnComplete func(ctx context.Context, actor session.ActorID, data *T) (string, error)
	// FailText is sent when OnComplete fails; the instance is discarded either way.
	FailText string
	// OnAbort runs after the instance is cleared on cancel or Abort. Optional.
	OnAbort func(ctx context.Context, actor session.ActorID)
}

type instance[T any] struct {
	step Step
	data T
}

// Engine runs at most one flow instance per actor for its kind.
//
// The engine guards only its instance map: callers must serialize messages
// of the same actor (the dispatcher's per-actor lock does), while transitions
// and completion side effects of different actors run concurrently.
type Engine[T any] struct {
	def Definition[T]

	mu        sync.Mutex
	instances map[session.ActorID]*instance[T]
}

// New builds an engine for the given definition.
func New[T any](def Definition[T]) *Engine[T] {
	return &Engine[T]{
		def:       def,
		instances: make(map[session.ActorID]*instance[T]),
	}
}

// Kind returns the flow kind this engine runs.
func (e *Engine[T]) Kind() Kind {
	return e.def.Kind
}

// Start creates a fresh instance for the actor, replacing any prior one,
// and returns the first prompt.
func (e *Engine[T]) Start(ctx context.Context, actor session.ActorID) Reply {
	e.mu.Lock()
	e.instances[actor] = &instance[T]{step: e.def.Start}
	e.mu.Unlock()

	logger.Debug(ctx, "flow", "flow.started",
		slog.String("flow", e.def.Kind.String()),
		slog.String("step", string(e.def.Start)),
		slog.Int64("chat_id", int64(actor)),
	)
	return Reply{Text: e.def.StartText}
}

// Active reports whether the actor has an in-progress instance.
func (e *Engine[T]) Active(actor session.ActorID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.instances[actor]
	return ok
}

// Cancel discards the actor's instance, if any, without sending anything.
func (e *Engine[T]) Cancel(actor session.ActorID) bool {
	e.mu.Lock()
	_, ok := e.instances[actor]
	delete(e.instances, actor)
	e.mu.Unlock()
	return ok
}

// Process feeds one input into the actor's instance. The second result is
// false when the actor has no in-progress instance for this kind.
func (e *Engine[T]) Process(ctx context.Context, actor session.ActorID, input string) (Reply, bool) {
	e.mu.Lock()
	inst, ok := e.instances[actor]
	e.mu.Unlock()
	if !ok {
		return Reply{}, false
	}

	// The cancel token wins over every step transition.
	if strings.TrimSpace(input) == CancelToken {
		e.clear(actor)
		if e.def.OnAbort != nil {
			e.def.OnAbort(ctx, actor)
		}
		e.logStep(ctx, actor, inst.step, "cancelled")
		return Reply{Text: e.def.CancelText, ShowMenu: true}, true
	}

	transition, ok := e.def.Steps[inst.step]
	if !ok {
		// Unknown step means a broken definition; drop the instance.
		e.clear(actor)
		logger.Error(ctx, "flow", "flow.step.missing",
			slog.String("flow", e.def.Kind.String()),
			slog.String("step", string(inst.step)),
			slog.Int64("chat_id", int64(actor)),
		)
		return Reply{Text: e.def.FailText, ShowMenu: true}, true
	}

	outcome := transition(ctx, actor, &inst.data, input)
	e.logStep(ctx, actor, inst.step, outcome.String())

	switch outcome.kind {
	case outcomeReprompt:
		return Reply{Text: outcome.text}, true

	case outcomeAdvance:
		inst.step = outcome.next
		return Reply{Text: outcome.text}, true

	case outcomeComplete:
		e.clear(actor)
		text, err := e.def.OnComplete(ctx, actor, &inst.data)
		if err != nil {
			logger.Error(ctx, "flow", "flow.complete.failed",
				slog.String("flow", e.def.Kind.String()),
				slog.Int64("chat_id", int64(actor)),
				slog.String("err", err.Error()),
			)
			return Reply{Text: e.def.FailText, ShowMenu: true}, true
		}
		return Reply{Text: text, ShowMenu: true}, true

	default: // abort
		e.clear(actor)
		if e.def.OnAbort != nil {
			e.def.OnAbort(ctx, actor)
		}
		return Reply{Text: outcome.text, ShowMenu: true}, true
	}
}

func (e *Engine[T]) clear(actor session.ActorID) {
	e.mu.Lock()
	delete(e.instances, actor)
	e.mu.Unlock()
}

func (e *Engine[T]) logStep(ctx context.Context, actor session.ActorID, step Step, outcome string) {
	logger.Debug(ctx, "flow", "flow.step",
		slog.String("flow", e.def.Kind.String()),
		slog.String("step", string(step)),
		slog.String("outcome", outcome),
		slog.Int64("chat_id", int64(actor)),
	)
}
