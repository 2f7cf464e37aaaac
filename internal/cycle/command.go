package cycle

import (
	"errors"
	"strings"
)

// Command is one of the tokens accepted on the command channel.
type Command string

const (
	CommandNext   Command = "next"
	CommandPrev   Command = "prev"
	CommandCancel Command = "cancel"
	CommandFinish Command = "finish"
)

// Commands lists every accepted token in protocol order.
var Commands = []Command{CommandNext, CommandPrev, CommandCancel, CommandFinish}

// ErrUnknownCommand is returned for text that is not a known token.
var ErrUnknownCommand = errors.New("unknown command")

// ParseCommand trims raw and matches it against the known tokens.
func ParseCommand(raw string) (Command, bool) {
	cmd := Command(strings.TrimSpace(raw))
	for _, known := range Commands {
		if cmd == known {
			return cmd, true
		}
	}
	return cmd, false
}
