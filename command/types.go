package command

import "context"

type Command string

const (
	Quit    Command = "quit"
	Reset   Command = "reset"
	Tickets Command = "tickets"
	Help    Command = "help"
	None    Command = "none"
)

// Parser recognises REPL commands. None means the input is a chat message.
type Parser interface {
	ParseCommand(ctx context.Context, input string) (Command, error)
}
