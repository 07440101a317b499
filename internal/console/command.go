// Package console runs a quiz attempt interactively on a terminal.
package console

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// CommandKind is a parsed terminal command.
type CommandKind int

const (
	CmdAnswer CommandKind = iota
	CmdNext
	CmdPrevious
	CmdJump
	CmdClear
	CmdSubmit
	CmdQuit
	CmdHelp
)

// Command is one line of user input. Index is the 0-based option for
// CmdAnswer and the 0-based question for CmdJump.
type Command struct {
	Kind  CommandKind
	Index int
}

var errEmptyCommand = errors.New("empty command")

// ParseCommand reads a command line. Options are picked by letter (a to h)
// or by 1-based number; jump targets are 1-based.
func ParseCommand(line string) (Command, error) {
	fields := strings.Fields(strings.ToLower(line))
	if len(fields) == 0 {
		return Command{}, errEmptyCommand
	}

	word := fields[0]
	switch word {
	case "n", "next":
		return Command{Kind: CmdNext}, nil
	case "p", "prev", "previous":
		return Command{Kind: CmdPrevious}, nil
	case "x", "clear":
		return Command{Kind: CmdClear}, nil
	case "s", "submit":
		return Command{Kind: CmdSubmit}, nil
	case "q", "quit":
		return Command{Kind: CmdQuit}, nil
	case "help", "?":
		return Command{Kind: CmdHelp}, nil
	case "j", "jump":
		if len(fields) < 2 {
			return Command{}, fmt.Errorf("jump needs a question number")
		}
		n, err := strconv.Atoi(fields[1])
		if err != nil || n < 1 {
			return Command{}, fmt.Errorf("invalid question number %q", fields[1])
		}
		return Command{Kind: CmdJump, Index: n - 1}, nil
	}

	if len(word) == 1 && word[0] >= 'a' && word[0] <= 'h' {
		return Command{Kind: CmdAnswer, Index: int(word[0] - 'a')}, nil
	}
	if n, err := strconv.Atoi(word); err == nil && n >= 1 {
		return Command{Kind: CmdAnswer, Index: n - 1}, nil
	}
	return Command{}, fmt.Errorf("unknown command %q", line)
}

// OptionLabel is the letter shown for option i.
func OptionLabel(i int) string {
	if i < 26 {
		return string(rune('A' + i))
	}
	return strconv.Itoa(i + 1)
}
