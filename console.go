package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/shlex"

	"i4.energy/across/cellmon/modem"
	"i4.energy/across/cellmon/trace"
	"i4.energy/across/cellmon/viewmodel"
)

const consoleHelp = `AT...                 send a command to the modem
:state [time]         print the state, rewound to an RFC 3339 time if given
:commands             list decoded commands
:macros               list macros
:macro <name>         run a macro
:save <file> [codec]  store the session trace
:reset                start a new session
:quit                 leave
`

// Commander is the live modem as seen by the console.
type Commander interface {
	Executor
	RunMacro(ctx context.Context, name string) error
}

type lineReader interface {
	GetLine(prompt string) (string, error)
}

// Console is the interactive prompt. Modem is nil in replay mode.
type Console struct {
	In     lineReader
	Out    io.Writer
	Store  *viewmodel.Store
	Modem  Commander
	Logger *slog.Logger
}

var errQuit = errors.New("quit")

// Run reads commands until end of input, :quit or cancellation of ctx.
func (c *Console) Run(ctx context.Context) error {
	fmt.Fprintln(c.Out, "Type :help for commands.")
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		line, err := c.In.GetLine("cellmon> ")
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if err := c.handle(ctx, line); errors.Is(err, errQuit) {
			return nil
		} else if err != nil {
			fmt.Fprintf(c.Out, "error: %v\n", err)
		}
	}
}

func (c *Console) handle(ctx context.Context, line string) error {
	if !strings.HasPrefix(line, ":") {
		return c.exec(ctx, line)
	}

	args, err := shlex.Split(line[1:])
	if err != nil {
		return fmt.Errorf("parse %q: %w", line, err)
	}
	if len(args) == 0 {
		return nil
	}

	switch cmd, args := args[0], args[1:]; cmd {
	case "help", "h":
		fmt.Fprint(c.Out, consoleHelp)
	case "quit", "q", "exit":
		return errQuit
	case "state":
		return c.printState(args)
	case "commands":
		for _, name := range c.Store.Registry().Commands() {
			fmt.Fprintln(c.Out, name)
		}
	case "macros":
		for _, name := range modem.MacroNames() {
			fmt.Fprintf(c.Out, "%-13s %d commands\n", name, len(modem.Macros[name]))
		}
	case "macro":
		if len(args) != 1 {
			return errors.New("usage: :macro <name>")
		}
		if c.Modem == nil {
			return errors.New("no modem attached in replay mode")
		}
		return c.Modem.RunMacro(ctx, args[0])
	case "save":
		if len(args) < 1 || len(args) > 2 {
			return errors.New("usage: :save <file> [codec]")
		}
		codec := ""
		if len(args) == 2 {
			codec = args[1]
		}
		packets := c.Store.Packets()
		if err := trace.WriteFile(args[0], codec, packets); err != nil {
			return err
		}
		fmt.Fprintf(c.Out, "saved %d packets to %s\n", len(packets), args[0])
	case "reset":
		fmt.Fprintf(c.Out, "session %s\n", c.Store.Reset())
	default:
		return fmt.Errorf("unknown command :%s", cmd)
	}
	return nil
}

func (c *Console) exec(ctx context.Context, cmd string) error {
	if c.Modem == nil {
		return errors.New("no modem attached in replay mode")
	}
	response, err := c.Modem.Exec(ctx, cmd)
	if response != "" {
		fmt.Fprintln(c.Out, response)
	}
	if errors.Is(err, modem.ErrCommandFailed) {
		return nil
	}
	return err
}

func (c *Console) printState(args []string) error {
	state := c.Store.Snapshot()
	switch len(args) {
	case 0:
	case 1:
		t, err := time.Parse(time.RFC3339Nano, args[0])
		if err != nil {
			return fmt.Errorf("invalid time: %w", err)
		}
		state = c.Store.StateAt(t)
	default:
		return errors.New("usage: :state [time]")
	}

	enc := json.NewEncoder(c.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(state)
}
