package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/xyproto/bone/internal/cli"
	"github.com/xyproto/bone/internal/compiler"
	"github.com/xyproto/bone/internal/log"
	"github.com/xyproto/bone/internal/prims"
	"github.com/xyproto/bone/internal/printer"
	"github.com/xyproto/bone/internal/reader"
	"github.com/xyproto/bone/internal/tty"
	"github.com/xyproto/bone/internal/vm"
)

// repl is the read-eval-print-loop command: spec.md §6's one-form-at-a-time read, compile, run,
// print cycle, prompting with "@N: " only when stdin is a terminal (original_source/bone.c's
// bone_repl does this unconditionally; a piped script shouldn't see prompts mixed into its input).
type repl struct {
	fs *flag.FlagSet
}

var _ cli.Command = (*repl)(nil)

// Repl constructs the repl sub-command.
func Repl() *repl {
	return &repl{fs: flag.NewFlagSet("repl", flag.ExitOnError)}
}

func (*repl) Description() string {
	return "read, compile, and run s-expressions interactively"
}

func (r *repl) FlagSet() *cli.FlagSet { return r.fs }

func (r *repl) Usage(out io.Writer) error {
	_, err := fmt.Fprintln(out, "repl [file]...\n\nStart an interactive bone session, or run each named file in turn.")
	return err
}

func (r *repl) Run(_ context.Context, args []string, out io.Writer, logger *log.Logger) int {
	in, err := vm.New(vm.WithLogger(logger), vm.WithOutput(out))
	if err != nil {
		logger.Error("starting interpreter", "err", err)
		return 1
	}

	if err := prims.RegisterAll(in); err != nil {
		logger.Error("registering primitives", "err", err)
		return 1
	}

	if len(args) == 0 {
		prompting := tty.NewConsole(os.Stdin, os.Stdout).Interactive()
		return r.runStream(in, out, logger, os.Stdin, prompting)
	}

	for _, path := range args {
		f, err := os.Open(path)
		if err != nil {
			logger.Error("opening file", "path", path, "err", err)
			return 1
		}

		code := r.runStream(in, out, logger, f, false)

		f.Close()

		if code != 0 {
			return code
		}
	}

	return 0
}

// runStream drives one read-eval-print cycle to exhaustion over src, printing "@N: " prompts and
// echoing results only when prompting is set — a piped script or file argument never prompts.
func (r *repl) runStream(in *vm.Interp, out io.Writer, logger *log.Logger, src io.Reader, prompting bool) int {
	rd, err := reader.New(in, src)
	if err != nil {
		logger.Error("starting reader", "err", err)
		return 1
	}

	p, err := printer.New(in)
	if err != nil {
		logger.Error("starting printer", "err", err)
		return 1
	}

	c, err := compiler.New(in)
	if err != nil {
		logger.Error("starting compiler", "err", err)
		return 1
	}

	// Writes go straight to out, unbuffered: print/say primitives write to this same stream mid-eval
	// (in.Output() per vm.WithOutput above), and a buffer would reorder their output against the
	// prompt/result text printed here.
	for line := 1; ; line++ {
		if prompting {
			fmt.Fprintf(out, "@%d: ", line)
		}

		form, err := rd.Read()
		if err != nil {
			fmt.Fprintln(out)
			logger.Error("read error", "err", err)

			return 1
		}

		if form == vm.EOF {
			if prompting {
				fmt.Fprintln(out)
			}

			return 0
		}

		code, err := c.Compile(form)
		if err != nil {
			logger.Error("compile error", "err", err)
			return 1
		}

		result, err := in.Eval(code)
		if err != nil {
			logger.Error("evaluation error", "err", err)
			return 1
		}

		if prompting {
			if perr := p.Fprint(out, result); perr != nil {
				logger.Error("print error", "err", perr)
				return 1
			}

			fmt.Fprintln(out)
		}
	}
}
