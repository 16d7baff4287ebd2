// Package bus provides the in-process command and event buses.
//
// Both buses route by message type: the Go type name of the message (see
// core/reflector), or the value of its MsgType method. Dispatch is fully
// synchronous; a call returns only after every handler involved has run on the
// caller's goroutine.
//
// # Commands
//
// A command type has exactly one handler. Registering a second one fails:
//
//	err := bus.Accept(b, "add or update gpu profile", slog.LevelDebug,
//	    func(ctx context.Context, cmd AddOrUpdateProfile) error { ... })
//
//	err = b.Execute(ctx, AddOrUpdateProfile{...}) // ErrUnhandledCommand if none
//
// # Events
//
// An event type has any number of subscribers, each registered under a stable
// id. Subscribing twice under the same id is a no-op, so wiring code may run
// more than once without duplicating deliveries:
//
//	bus.Subscribe(b, "kernel-input-views/added", "mirror added kernel input",
//	    slog.LevelDebug, func(ctx context.Context, e kernel.InputAdded) error { ... })
//
//	b.Publish(ctx, kernel.InputAdded{...})
//
// A subscriber that returns an error or panics is logged and skipped; the
// remaining subscribers still run and the publisher never sees the fault.
// Transient subscribers use [SubscribeScoped] and release themselves with
// [Subscription.Unsubscribe].
package bus
