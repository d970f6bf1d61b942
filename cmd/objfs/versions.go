package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/marmos91/objfs/pkg/objfs"
	"github.com/spf13/pflag"
)

func versionsCommand() *Command {
	return &Command{
		Name:    "versions",
		Summary: "Manage the saved versions of a file",
		Subcommands: []*Command{
			{
				Name:    "list",
				Summary: "List versions, newest first",
				Usage:   "PATH",
				NArgs:   1,
				Run: func(ctx context.Context, a *app, _ *pflag.FlagSet, args []string) error {
					return a.withStorage(ctx, func(s *objfs.Storage) error {
						versions, err := s.GetVersions(ctx, args[0])
						if err != nil {
							return err
						}
						tw := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
						for _, v := range versions {
							fmt.Fprintf(tw, "%s\t%d\t%s\n", v.ID, v.Size, v.MTime.Format(time.RFC3339))
						}
						return tw.Flush()
					})
				},
			},
			{
				Name:    "save",
				Summary: "Snapshot the current content as a new version",
				Usage:   "PATH",
				NArgs:   1,
				Run: func(ctx context.Context, a *app, _ *pflag.FlagSet, args []string) error {
					return a.withStorage(ctx, func(s *objfs.Storage) error {
						return s.SaveVersion(ctx, args[0])
					})
				},
			},
			{
				Name:    "cat",
				Summary: "Print the content of a version",
				Usage:   "PATH VERSION",
				NArgs:   2,
				Run: func(ctx context.Context, a *app, _ *pflag.FlagSet, args []string) error {
					return a.withStorage(ctx, func(s *objfs.Storage) error {
						rc, err := s.GetContentOfVersion(ctx, args[0], args[1])
						if err != nil {
							return err
						}
						defer func() { _ = rc.Close() }()

						_, err = io.Copy(a.stdout, rc)
						return err
					})
				},
			},
			{
				Name:    "restore",
				Summary: "Make a version the current content",
				Usage:   "PATH VERSION",
				NArgs:   2,
				Run: func(ctx context.Context, a *app, _ *pflag.FlagSet, args []string) error {
					return a.withStorage(ctx, func(s *objfs.Storage) error {
						return s.RestoreVersion(ctx, args[0], args[1])
					})
				},
			},
		},
	}
}
