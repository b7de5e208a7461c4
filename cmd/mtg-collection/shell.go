package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ramonehamilton/mtg-collection/internal/mutation"
)

const shellHelp = `Commands:
  add <set> <number> [amount] [lang] <Type[Ref]>   add copies
  preview <query>                                 show what add would do
  move <set> <number> <count> <From> <To>         move copies
  undo                                            revert the last change
  allocate [-f deck.txt] [-t Type[Ref]] [--greedy] [name; name...]
  search <terms...>                               l:<format>, id<=<colors>, name parts
  locate <name>                                   copies per location
  help                                            this text
  quit                                            leave the shell`

func newShellCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive session with undo",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := a.mutationEngine(mutation.NewUndoStack())
			if err != nil {
				return err
			}
			return (&shell{app: a, engine: engine}).run(cmd.Context())
		},
	}
}

// shell is a read-eval loop sharing one undo stack across commands.
type shell struct {
	app    *app
	engine *mutation.Engine
}

func (s *shell) run(ctx context.Context) error {
	fmt.Fprintln(s.app.out, `Type "help" for commands.`)
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		fmt.Fprint(s.app.out, "> ")
		line, err := readLine(s.app.in)
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(s.app.out)
			return nil
		}
		if err != nil {
			return err
		}

		quit, err := s.exec(ctx, line)
		switch {
		case errors.Is(err, mutation.ErrDeclined):
			fmt.Fprintln(s.app.out, "Cancelled.")
		case err != nil:
			fmt.Fprintln(s.app.out, "Error:", err)
		}
		if quit {
			return nil
		}
	}
}

// exec runs one shell line and reports whether the shell should end.
func (s *shell) exec(ctx context.Context, line string) (bool, error) {
	command, rest, _ := strings.Cut(strings.TrimSpace(line), " ")
	rest = strings.TrimSpace(rest)

	switch strings.ToLower(command) {
	case "":
		return false, nil
	case "help", "?":
		fmt.Fprintln(s.app.out, shellHelp)
		return false, nil
	case "quit", "exit", "q":
		return s.quit(ctx)
	case "add", "a":
		return false, s.app.add(ctx, s.engine, rest)
	case "preview", "p":
		return false, s.preview(ctx, rest)
	case "move", "mv":
		return false, s.app.move(ctx, s.engine, strings.Fields(rest))
	case "undo", "u":
		return false, s.app.undo(ctx, s.engine)
	case "allocate", "alloc":
		opts, err := parseShellAllocate(rest)
		if err != nil {
			return false, err
		}
		return false, s.app.allocate(ctx, s.engine, opts)
	case "search", "s":
		return false, s.app.search(ctx, strings.Fields(rest))
	case "locate", "l":
		if rest == "" {
			return false, fmt.Errorf("locate needs a card name")
		}
		return false, s.app.locate(ctx, rest)
	default:
		return false, fmt.Errorf("unknown command %q (type \"help\")", command)
	}
}

// quit asks before leaving when there are changes that could still be undone.
func (s *shell) quit(ctx context.Context) (bool, error) {
	n := s.engine.Stack().Len()
	if n == 0 {
		return true, nil
	}
	ok, err := s.app.confirmer().Confirm(ctx, fmt.Sprintf("%d change(s) can no longer be undone after quitting. Quit?", n))
	if err != nil {
		return false, err
	}
	return ok, nil
}

func (s *shell) preview(ctx context.Context, input string) error {
	parser, err := s.app.queryParser()
	if err != nil {
		return err
	}
	q, err := parser.Parse(ctx, input)
	if err != nil {
		return err
	}
	pv, err := parser.Preview(ctx, q)
	if err != nil {
		return err
	}

	fmt.Fprintf(s.app.out, "%s\n  %d × %s", pv, q.Amount, q.Language)
	if q.Location != nil {
		fmt.Fprintf(s.app.out, " to %s", q.Location)
		if pv.NewLocation {
			fmt.Fprint(s.app.out, " (new location)")
		} else {
			fmt.Fprintf(s.app.out, " (%d cards there)", pv.AtLocation)
		}
	}
	fmt.Fprintln(s.app.out)
	return nil
}

// parseShellAllocate reads "[-f file] [-t Type[Ref]] [--greedy|--lp] name; name".
// Names are separated by semicolons since they contain spaces.
func parseShellAllocate(input string) (allocateOptions, error) {
	var opts allocateOptions
	fields := strings.Fields(input)

	i := 0
flags:
	for ; i < len(fields); i++ {
		switch fields[i] {
		case "-f", "--file", "-t", "--target":
			if i+1 >= len(fields) {
				return opts, fmt.Errorf("%s needs a value", fields[i])
			}
			if fields[i] == "-f" || fields[i] == "--file" {
				opts.file = fields[i+1]
			} else {
				opts.target = fields[i+1]
			}
			i++
			continue
		case "--greedy":
			opts.strategy = "greedy"
			continue
		case "--lp":
			opts.strategy = "lp"
			continue
		case "--console":
			opts.console = true
			continue
		}
		break flags
	}

	for _, name := range strings.Split(strings.Join(fields[i:], " "), ";") {
		if name = strings.TrimSpace(name); name != "" {
			opts.names = append(opts.names, name)
		}
	}
	if len(opts.names) == 0 && opts.file == "" {
		return opts, fmt.Errorf("allocate needs card names or -f <deck list>")
	}
	return opts, nil
}
