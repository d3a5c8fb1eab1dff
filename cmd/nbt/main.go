// Command nbt inspects and converts binary tag documents.
package main

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/pflag"

	"github.com/twinfer/nbt-plugin/pkg/nbt"
	"github.com/twinfer/nbt-plugin/pkg/nbtio"
)

type app struct {
	ctx    context.Context
	stdout io.Writer
	stderr io.Writer
}

func main() {
	a := &app{ctx: context.Background(), stdout: os.Stdout, stderr: os.Stderr}
	if err := a.root().Execute(os.Args[1:], a.stderr); err != nil {
		fmt.Fprintln(a.stderr, color.RedString("error:"), err)
		os.Exit(1)
	}
}

func (a *app) root() *Command {
	return &Command{
		Name:    "nbt",
		Summary: "Inspect and convert binary tag documents.",
		Subcommands: []*Command{
			a.dumpCommand(),
			a.getCommand(),
			a.statCommand(),
			a.convertCommand(),
			a.sumCommand(),
		},
	}
}

// withGlobals returns the shared flag values of one command and a flag set
// factory that registers them alongside the command's own flags.
func withGlobals(extra func(*pflag.FlagSet)) (*globals, func() *pflag.FlagSet) {
	g := &globals{}
	return g, func() *pflag.FlagSet {
		fs := pflag.NewFlagSet("nbt", pflag.ContinueOnError)
		g.register(fs)
		if extra != nil {
			extra(fs)
		}
		return fs
	}
}

func (a *app) dumpCommand() *Command {
	g, flags := withGlobals(nil)
	return &Command{
		Name:     "dump",
		Summary:  "Print a whole document",
		Usage:    "<file> [flags]",
		Examples: []string{"nbt dump level.dat", "nbt dump --no-color player.dat | less"},
		Flags:    flags,
		Run: func(args []string) error {
			if err := exactArgs(args, "file"); err != nil {
				return err
			}
			opts, err := g.resolve(a.stderr)
			if err != nil {
				return err
			}
			named, err := a.decodeFile(args[0], opts)
			if err != nil {
				return err
			}
			if named.Name != "" {
				fmt.Fprintf(a.stdout, "%s: ", quoteKey(named.Name))
			}
			return newPrinter(a.stdout).Print(named.Tag)
		},
	}
}

func (a *app) getCommand() *Command {
	g, flags := withGlobals(nil)
	return &Command{
		Name:     "get",
		Summary:  "Print the value at a tag path, decoding nothing else",
		Usage:    "<file> <path> [flags]",
		Examples: []string{`nbt get level.dat Data.LevelName`, `nbt get level.dat 'Data.Player.Inventory[-1]'`},
		Flags:    flags,
		Run: func(args []string) error {
			if err := exactArgs(args, "file", "path"); err != nil {
				return err
			}
			opts, err := g.resolve(a.stderr)
			if err != nil {
				return err
			}
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			t, ok, err := nbtio.NewCodec(opts...).Extract(a.ctx, f, args[1])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("no value at %s", args[1])
			}
			return newPrinter(a.stdout).Print(t)
		},
	}
}

func (a *app) statCommand() *Command {
	g, flags := withGlobals(nil)
	return &Command{
		Name:    "stat",
		Summary: "Count tags by kind while streaming a document",
		Usage:   "<file> [flags]",
		Flags:   flags,
		Run: func(args []string) error {
			if err := exactArgs(args, "file"); err != nil {
				return err
			}
			opts, err := g.resolve(a.stderr)
			if err != nil {
				return err
			}
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			s := newStats()
			if _, err := nbtio.NewCodec(opts...).Parse(a.ctx, f, s); err != nil {
				return err
			}
			return s.report(a.stdout)
		},
	}
}

func (a *app) convertCommand() *Command {
	var to string
	g, flags := withGlobals(func(fs *pflag.FlagSet) {
		fs.StringVar(&to, "to", "", "output format: json or nbt (default from the output extension)")
	})
	return &Command{
		Name:    "convert",
		Summary: "Convert between tag documents and JSON",
		Usage:   "<input> <output> [flags]",
		Examples: []string{
			"nbt convert level.dat level.json",
			"nbt convert --compression zlib level.json chunk.nbt",
		},
		Flags: flags,
		Run: func(args []string) error {
			if err := exactArgs(args, "input", "output"); err != nil {
				return err
			}
			opts, err := g.resolve(a.stderr)
			if err != nil {
				return err
			}
			format := strings.ToLower(to)
			if format == "" {
				format = "nbt"
				if strings.EqualFold(filepath.Ext(args[1]), ".json") {
					format = "json"
				}
			}

			in, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			codec := nbtio.NewCodec(opts...)
			var out []byte
			switch format {
			case "json":
				out, err = codec.ToJSON(a.ctx, in)
			case "nbt":
				out, err = codec.FromJSON(a.ctx, in)
			default:
				return fmt.Errorf("unknown output format %q", to)
			}
			if err != nil {
				return err
			}
			return os.WriteFile(args[1], out, 0o644)
		},
	}
}

func (a *app) sumCommand() *Command {
	g, flags := withGlobals(nil)
	return &Command{
		Name:    "sum",
		Summary: "Print content fingerprints; equal trees match whatever their entry order or envelope",
		Usage:   "<file>... [flags]",
		Flags:   flags,
		Run: func(args []string) error {
			if len(args) == 0 {
				return fmt.Errorf("expected at least one file")
			}
			opts, err := g.resolve(a.stderr)
			if err != nil {
				return err
			}
			for _, path := range args {
				named, err := a.decodeFile(path, opts)
				if err != nil {
					return err
				}
				fp, err := nbt.FingerprintOf(named.Tag)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				fmt.Fprintf(a.stdout, "%s  %s\n", hex.EncodeToString(fp[:]), path)
			}
			return nil
		},
	}
}

func (a *app) decodeFile(path string, opts []nbtio.Option) (nbt.NamedTag, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nbt.NamedTag{}, err
	}
	named, err := nbtio.NewCodec(opts...).ReadNamed(a.ctx, bytes.NewReader(data))
	if err != nil {
		return nbt.NamedTag{}, fmt.Errorf("%s: %w", path, err)
	}
	return named, nil
}
