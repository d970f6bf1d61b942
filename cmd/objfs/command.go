package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/pflag"
)

// Command is one node of the CLI tree. Leaf commands set Run; groups set
// Subcommands.
type Command struct {
	Name    string
	Summary string

	// Usage is the argument synopsis shown after the command path
	Usage string

	// Flags registers the command's flags on fs. Nil means no flags.
	Flags func(fs *pflag.FlagSet)

	// NArgs is the exact number of positional arguments, or -1 for any
	NArgs int

	Subcommands []*Command

	Run func(ctx context.Context, a *app, fs *pflag.FlagSet, args []string) error

	parent *Command
}

func (c *Command) fullName() string {
	if c.parent == nil {
		return c.Name
	}
	return c.parent.fullName() + " " + c.Name
}

// Execute dispatches args to the matching subcommand, or parses flags and
// calls Run.
func (c *Command) Execute(ctx context.Context, a *app, args []string) error {
	if len(c.Subcommands) > 0 {
		if len(args) == 0 || isHelpFlag(args[0]) {
			c.PrintHelp(a.stderr)
			if len(args) == 0 {
				return fmt.Errorf("%s: subcommand required", c.fullName())
			}
			return nil
		}
		for _, sub := range c.Subcommands {
			if sub.Name == args[0] {
				sub.parent = c
				return sub.Execute(ctx, a, args[1:])
			}
		}
		return fmt.Errorf("unknown command %q\n\nRun '%s --help' for usage", args[0], c.fullName())
	}

	fs := pflag.NewFlagSet(c.fullName(), pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	if c.Flags != nil {
		c.Flags(fs)
	}
	if err := fs.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			c.PrintHelp(a.stderr)
			return nil
		}
		return fmt.Errorf("%w\n\nRun '%s --help' for usage", err, c.fullName())
	}

	rest := fs.Args()
	if c.NArgs >= 0 && len(rest) != c.NArgs {
		return fmt.Errorf("usage: %s %s", c.fullName(), c.Usage)
	}
	return c.Run(ctx, a, fs, rest)
}

// PrintHelp writes the usage of c to w.
func (c *Command) PrintHelp(w io.Writer) {
	if c.Summary != "" {
		fmt.Fprintf(w, "%s\n\n", c.Summary)
	}

	if len(c.Subcommands) > 0 {
		fmt.Fprintf(w, "Usage:\n  %s <command> [flags]\n\nCommands:\n", c.fullName())
		tw := tabwriter.NewWriter(w, 2, 0, 3, ' ', 0)
		for _, sub := range c.Subcommands {
			fmt.Fprintf(tw, "  %s\t%s\n", sub.Name, sub.Summary)
		}
		_ = tw.Flush()
		return
	}

	fmt.Fprintf(w, "Usage:\n  %s %s\n", c.fullName(), c.Usage)
	if c.Flags != nil {
		fs := pflag.NewFlagSet(c.fullName(), pflag.ContinueOnError)
		c.Flags(fs)
		var help strings.Builder
		fs.SetOutput(&help)
		fs.PrintDefaults()
		if help.Len() > 0 {
			fmt.Fprintf(w, "\nFlags:\n%s", help.String())
		}
	}
}

func isHelpFlag(arg string) bool {
	return arg == "-h" || arg == "--help" || arg == "help"
}
