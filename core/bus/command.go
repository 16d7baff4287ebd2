package bus

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/codewandler/rigcore-go/core/reflector"
)

type commandHandlerFunc func(ctx context.Context, msg any) error

// CommandRegistrar accepts command handlers. Both [CommandBus] and [Bus]
// implement it.
type CommandRegistrar interface {
	accept(reg Registration, h commandHandlerFunc) error
}

type commandHandler struct {
	Registration
	handle commandHandlerFunc
}

// CommandBus routes each command to the single handler registered for its type.
type CommandBus struct {
	log     *slog.Logger
	metrics Metrics

	mu       sync.RWMutex
	handlers map[string]*commandHandler
	order    []string
}

// NewCommandBus creates a command bus.
func NewCommandBus(opts Options) *CommandBus {
	opts = opts.withDefaults()
	return &CommandBus{
		log:      opts.Log.With(slog.String("bus", "command")),
		metrics:  opts.Metrics,
		handlers: make(map[string]*commandHandler),
	}
}

// Accept registers handler for commands of type C. It fails with
// ErrDuplicateHandler if C already has a handler.
func Accept[C any](
	r CommandRegistrar,
	description string,
	level slog.Level,
	handler func(ctx context.Context, cmd C) error,
) error {
	mt := reflector.NameFor[C]()
	reg := Registration{
		ID:          mt,
		MessageType: mt,
		Description: description,
		Level:       level,
	}
	return r.accept(reg, func(ctx context.Context, msg any) error {
		cmd, ok := convert[C](msg)
		if !ok {
			return fmt.Errorf("%w: %T for %s", ErrInvalidMessage, msg, mt)
		}
		return handler(ctx, cmd)
	})
}

// MustAccept is like Accept but panics on error. Use it for wiring at
// process start.
func MustAccept[C any](
	r CommandRegistrar,
	description string,
	level slog.Level,
	handler func(ctx context.Context, cmd C) error,
) {
	if err := Accept(r, description, level, handler); err != nil {
		panic(err)
	}
}

func (b *CommandBus) accept(reg Registration, h commandHandlerFunc) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if existing, ok := b.handlers[reg.MessageType]; ok {
		b.log.Error("duplicate command handler", reg.logAttrs(),
			slog.String("existing", existing.Description))
		return fmt.Errorf("%w: %s", ErrDuplicateHandler, reg.MessageType)
	}
	b.handlers[reg.MessageType] = &commandHandler{Registration: reg, handle: h}
	b.order = append(b.order, reg.MessageType)
	b.log.Debug("command handler registered", reg.logAttrs())
	return nil
}

// Execute runs the handler for cmd on the calling goroutine and returns its
// error. A panicking handler yields ErrHandlerFault.
func (b *CommandBus) Execute(ctx context.Context, cmd any) (err error) {
	mt := reflector.NameOf(cmd)

	b.mu.RLock()
	h, ok := b.handlers[mt]
	b.mu.RUnlock()

	if !ok {
		b.log.Warn("no handler for command", slog.String("msg_type", mt))
		b.metrics.CommandExecuted(mt, false)
		return fmt.Errorf("%w: %s", ErrUnhandledCommand, mt)
	}

	timer := b.metrics.CommandDuration(mt)
	defer func() {
		timer.ObserveDuration()
		b.metrics.CommandExecuted(mt, err == nil)
	}()

	return b.run(ctx, h, cmd)
}

func (b *CommandBus) run(ctx context.Context, h *commandHandler, cmd any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("command handler panicked", h.logAttrs(),
				slog.Any("panic", r), slog.String("stack", string(debug.Stack())))
			err = fmt.Errorf("%w: %s: %v", ErrHandlerFault, h.MessageType, r)
		}
	}()
	b.log.Log(ctx, h.Level, h.Description, h.logAttrs())
	if err = h.handle(ctx, cmd); err != nil {
		b.log.Debug("command failed", h.logAttrs(), slog.Any("error", err))
	}
	return err
}

// Handlers lists the command handlers in registration order.
func (b *CommandBus) Handlers() []Registration {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Registration, 0, len(b.order))
	for _, mt := range b.order {
		out = append(out, b.handlers[mt].Registration)
	}
	return out
}
