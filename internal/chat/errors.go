package chat

import "errors"

var (
	// ErrQuit - the client asked to end its session.
	ErrQuit = errors.New("chat: quit command received")

	// ErrWrongCommand - the line starts with "/" but names no known command.
	ErrWrongCommand = errors.New("chat: wrong command received")

	// ErrNotEnoughArg - the command requires an argument the line does not carry.
	ErrNotEnoughArg = errors.New("chat: command with not enough number of arguments")
)

// ProtocolErrorKind names a recoverable command error for metrics and logs.
func ProtocolErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrWrongCommand):
		return "wrong_command"
	case errors.Is(err, ErrNotEnoughArg):
		return "not_enough_arg"
	default:
		return "other"
	}
}
