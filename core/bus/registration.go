package bus

import (
	"log/slog"
)

// Registration describes a handler attached to a bus. Its identity is ID;
// the remaining fields are for logs and diagnostics.
type Registration struct {
	ID          string
	MessageType string
	Description string
	Level       slog.Level
}

func (r Registration) logAttrs() slog.Attr {
	return slog.Group("handler",
		slog.String("id", r.ID),
		slog.String("msg_type", r.MessageType),
		slog.String("description", r.Description),
	)
}

// convert adapts a routed message to the handler's parameter type, accepting
// both T and *T for a handler of T.
func convert[T any](msg any) (T, bool) {
	switch m := msg.(type) {
	case T:
		return m, true
	case *T:
		if m != nil {
			return *m, true
		}
	}
	var zero T
	return zero, false
}
