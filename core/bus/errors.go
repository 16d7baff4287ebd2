package bus

import "errors"

var (
	// ErrDuplicateHandler is returned when a second handler is registered for
	// a command type.
	ErrDuplicateHandler = errors.New("duplicate handler registration")
	// ErrUnhandledCommand is returned when a command has no registered handler.
	ErrUnhandledCommand = errors.New("unhandled command")
	// ErrHandlerFault is returned when a command handler panics.
	ErrHandlerFault = errors.New("handler fault")
	// ErrInvalidMessage is returned when a message cannot be converted to the
	// type its handler was registered for.
	ErrInvalidMessage = errors.New("invalid message type")
)
