package shell

import (
	"fmt"
	"strings"

	"github.com/google/shlex"
)

// Command is one parsed shell line.
type Command struct {
	Name string
	Args []string
}

var aliases = map[string]string{
	"exit":      "quit",
	"q":         "quit",
	"volume":    "vol",
	"favs":      "fav",
	"favorites": "fav",
	"ls":        "fav",
	"sel":       "select",
	"delete":    "del",
	"rm":        "del",
	"esc":       "close",
	"?":         "help",
}

var commands = map[string]struct{}{
	"play":   {},
	"stop":   {},
	"vol":    {},
	"save":   {},
	"del":    {},
	"select": {},
	"fav":    {},
	"status": {},
	"close":  {},
	"inject": {},
	"log":    {},
	"help":   {},
	"quit":   {},
}

// radioCommands drive the radio itself and are refused while the vehicle
// reports the radio closed.
var radioCommands = map[string]struct{}{
	"play":   {},
	"stop":   {},
	"vol":    {},
	"save":   {},
	"del":    {},
	"select": {},
}

// Parse splits line with shell quoting rules and resolves aliases. An empty
// line yields a zero Command and no error.
func Parse(line string) (Command, error) {
	tokens, err := shlex.Split(line)
	if err != nil {
		return Command{}, fmt.Errorf("parse error: %w", err)
	}
	if len(tokens) == 0 {
		return Command{}, nil
	}
	name := strings.ToLower(tokens[0])
	if canonical, ok := aliases[name]; ok {
		name = canonical
	}
	if _, ok := commands[name]; !ok {
		return Command{}, fmt.Errorf("unknown command %q (try 'help')", tokens[0])
	}
	return Command{Name: name, Args: tokens[1:]}, nil
}
