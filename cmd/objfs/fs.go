package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/marmos91/objfs/pkg/objfs"
	"github.com/marmos91/objfs/pkg/store/index"
	"github.com/spf13/pflag"
)

func infoCommand() *Command {
	return &Command{
		Name:    "info",
		Summary: "Show the storage identifier and initialize the root directory",
		NArgs:   0,
		Run: func(ctx context.Context, a *app, _ *pflag.FlagSet, _ []string) error {
			return a.withStorage(ctx, func(s *objfs.Storage) error {
				fmt.Fprintln(a.stdout, s.ID())
				return nil
			})
		},
	}
}

func statCommand() *Command {
	return &Command{
		Name:    "stat",
		Summary: "Show the attributes of a file or directory",
		Usage:   "PATH [--json]",
		NArgs:   1,
		Flags: func(fs *pflag.FlagSet) {
			fs.Bool("json", false, "Print the record as JSON")
		},
		Run: func(ctx context.Context, a *app, fs *pflag.FlagSet, args []string) error {
			asJSON, _ := fs.GetBool("json")
			return a.withStorage(ctx, func(s *objfs.Storage) error {
				rec, err := s.Stat(ctx, args[0])
				if err != nil {
					return err
				}
				if asJSON {
					enc := json.NewEncoder(a.stdout)
					enc.SetIndent("", "  ")
					return enc.Encode(rec)
				}

				tw := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
				fmt.Fprintf(tw, "Path:\t/%s\n", rec.Path)
				fmt.Fprintf(tw, "ID:\t%d\n", rec.ID)
				fmt.Fprintf(tw, "Type:\t%s\n", entryType(rec))
				fmt.Fprintf(tw, "MimeType:\t%s\n", rec.MimeType)
				fmt.Fprintf(tw, "Size:\t%d\n", rec.Size)
				fmt.Fprintf(tw, "MTime:\t%s\n", rec.MTime.Format(time.RFC3339))
				fmt.Fprintf(tw, "ETag:\t%s\n", rec.ETag)
				fmt.Fprintf(tw, "Permissions:\t%d\n", rec.Permissions)
				return tw.Flush()
			})
		},
	}
}

func entryType(rec *index.Record) string {
	if rec.IsDir() {
		return "dir"
	}
	return "file"
}

func lsCommand() *Command {
	return &Command{
		Name:    "ls",
		Summary: "List the entries of a directory",
		Usage:   "[PATH] [-l]",
		NArgs:   -1,
		Flags: func(fs *pflag.FlagSet) {
			fs.BoolP("long", "l", false, "Show type, size and modification time")
		},
		Run: func(ctx context.Context, a *app, fs *pflag.FlagSet, args []string) error {
			if len(args) > 1 {
				return fmt.Errorf("usage: objfs ls [PATH] [-l]")
			}
			dir := ""
			if len(args) == 1 {
				dir = args[0]
			}
			long, _ := fs.GetBool("long")

			return a.withStorage(ctx, func(s *objfs.Storage) error {
				names, err := s.Opendir(ctx, dir)
				if err != nil {
					return err
				}
				if !long {
					for name := range names {
						fmt.Fprintln(a.stdout, name)
					}
					return nil
				}

				tw := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
				for name := range names {
					rec, err := s.Stat(ctx, index.Join(objfs.Normalize(dir), name))
					if err != nil {
						return err
					}
					fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n",
						entryType(rec), rec.Size, rec.MTime.Format(time.RFC3339), name)
				}
				return tw.Flush()
			})
		},
	}
}

// pathCommand builds a command taking a single path and calling op on it.
func pathCommand(name, summary string, op func(s *objfs.Storage, ctx context.Context, path string) error) *Command {
	return &Command{
		Name:    name,
		Summary: summary,
		Usage:   "PATH",
		NArgs:   1,
		Run: func(ctx context.Context, a *app, _ *pflag.FlagSet, args []string) error {
			return a.withStorage(ctx, func(s *objfs.Storage) error {
				return op(s, ctx, args[0])
			})
		},
	}
}

func mkdirCommand() *Command {
	return pathCommand("mkdir", "Create a directory and its missing ancestors", (*objfs.Storage).Mkdir)
}

func rmdirCommand() *Command {
	return pathCommand("rmdir", "Remove a directory and everything below it", (*objfs.Storage).Rmdir)
}

func rmCommand() *Command {
	return pathCommand("rm", "Remove a file or directory", (*objfs.Storage).Unlink)
}

func putCommand() *Command {
	return &Command{
		Name:    "put",
		Summary: "Upload a local file (\"-\" for stdin)",
		Usage:   "LOCAL PATH",
		NArgs:   2,
		Run: func(ctx context.Context, a *app, _ *pflag.FlagSet, args []string) error {
			var src io.Reader = a.stdin
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer func() { _ = f.Close() }()
				src = f
			}
			return a.withStorage(ctx, func(s *objfs.Storage) error {
				return s.WriteFile(ctx, args[1], src)
			})
		},
	}
}

func getCommand() *Command {
	return &Command{
		Name:    "get",
		Summary: "Download a file to a local path",
		Usage:   "PATH LOCAL",
		NArgs:   2,
		Run: func(ctx context.Context, a *app, _ *pflag.FlagSet, args []string) error {
			return a.withStorage(ctx, func(s *objfs.Storage) error {
				src, err := s.Open(ctx, args[0], objfs.ModeRead)
				if err != nil {
					return err
				}
				defer func() { _ = src.Close() }()

				dst, err := os.Create(args[1])
				if err != nil {
					return err
				}
				if _, err := io.Copy(dst, src); err != nil {
					_ = dst.Close()
					return err
				}
				return dst.Close()
			})
		},
	}
}

func catCommand() *Command {
	return &Command{
		Name:    "cat",
		Summary: "Print the content of a file",
		Usage:   "PATH",
		NArgs:   1,
		Run: func(ctx context.Context, a *app, _ *pflag.FlagSet, args []string) error {
			return a.withStorage(ctx, func(s *objfs.Storage) error {
				f, err := s.Open(ctx, args[0], objfs.ModeRead)
				if err != nil {
					return err
				}
				defer func() { _ = f.Close() }()

				_, err = io.Copy(a.stdout, f)
				return err
			})
		},
	}
}

func writeCommand() *Command {
	return &Command{
		Name:    "write",
		Summary: "Write stdin to a file using an fopen style mode",
		Usage:   "PATH [--mode w|a|r+|x]",
		NArgs:   1,
		Flags: func(fs *pflag.FlagSet) {
			fs.StringP("mode", "m", "w", "Open mode: w truncates, a appends, r+ overwrites from the start, x creates")
		},
		Run: func(ctx context.Context, a *app, fs *pflag.FlagSet, args []string) error {
			raw, _ := fs.GetString("mode")
			mode, err := objfs.ParseMode(raw)
			if err != nil {
				return err
			}
			if mode == objfs.ModeRead {
				return fmt.Errorf("mode %q does not write", raw)
			}

			return a.withStorage(ctx, func(s *objfs.Storage) error {
				f, err := s.Open(ctx, args[0], mode)
				if err != nil {
					return err
				}
				if _, err := io.Copy(f, a.stdin); err != nil {
					_ = f.Close()
					return err
				}
				return f.Close()
			})
		},
	}
}

func touchCommand() *Command {
	return &Command{
		Name:    "touch",
		Summary: "Set the modification time of a path, creating an empty file if needed",
		Usage:   "PATH [--mtime RFC3339]",
		NArgs:   1,
		Flags: func(fs *pflag.FlagSet) {
			fs.String("mtime", "", "Modification time (default: now)")
		},
		Run: func(ctx context.Context, a *app, fs *pflag.FlagSet, args []string) error {
			var mtime time.Time
			if raw, _ := fs.GetString("mtime"); raw != "" {
				t, err := time.Parse(time.RFC3339, raw)
				if err != nil {
					return fmt.Errorf("invalid --mtime: %w", err)
				}
				mtime = t
			}
			return a.withStorage(ctx, func(s *objfs.Storage) error {
				return s.Touch(ctx, args[0], mtime)
			})
		},
	}
}

func mvCommand() *Command {
	return &Command{
		Name:    "mv",
		Summary: "Rename a file or directory",
		Usage:   "SOURCE TARGET",
		NArgs:   2,
		Run: func(ctx context.Context, a *app, _ *pflag.FlagSet, args []string) error {
			return a.withStorage(ctx, func(s *objfs.Storage) error {
				return s.Rename(ctx, args[0], args[1])
			})
		},
	}
}

func cpCommand() *Command {
	return &Command{
		Name:    "cp",
		Summary: "Copy a file or directory tree",
		Usage:   "SOURCE TARGET",
		NArgs:   2,
		Run: func(ctx context.Context, a *app, _ *pflag.FlagSet, args []string) error {
			return a.withStorage(ctx, func(s *objfs.Storage) error {
				return s.Copy(ctx, args[0], args[1])
			})
		},
	}
}

func urnCommand() *Command {
	return &Command{
		Name:    "urn",
		Summary: "Print the object key holding the content of a file",
		Usage:   "PATH",
		NArgs:   1,
		Run: func(ctx context.Context, a *app, _ *pflag.FlagSet, args []string) error {
			return a.withStorage(ctx, func(s *objfs.Storage) error {
				urn, err := s.URN(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(a.stdout, urn)
				return nil
			})
		},
	}
}
