package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/spacemeshos/quicksync/internal/ui/progress"
)

// GlobalOptions hold all global options for quicksync.
type GlobalOptions struct {
	Quiet   bool
	Verbose int

	stdout io.Writer
	stderr io.Writer

	// verbosity is set as follows:
	//  0 means: don't print any messages except errors, this is used when --quiet is specified
	//  1 is the default: print essential messages
	//  2 means: print more messages, report minor things, this is used when --verbose is specified
	//  3 means: print very detailed debug messages, this is used when --verbose=2 is specified
	verbosity uint
}

var globalOptions = GlobalOptions{
	stdout: os.Stdout,
	stderr: os.Stderr,
}

func (opts *GlobalOptions) AddFlags(f *pflag.FlagSet) {
	f.BoolVarP(&opts.Quiet, "quiet", "q", false, "do not output comprehensive progress report")
	f.CountVarP(&opts.Verbose, "verbose", "v", "be verbose (specify multiple times or a level using --verbose=n``, max level/times is 2)")
}

func (opts *GlobalOptions) PreRun() {
	// parse global options, verbosity first
	if opts.Quiet && opts.Verbose > 0 {
		opts.verbosity = 1
	} else if opts.Quiet {
		opts.verbosity = 0
	} else {
		opts.verbosity = uint(opts.Verbose) + 1
		if opts.verbosity > 3 {
			opts.verbosity = 3
		}
	}
}

// Printer returns the message sink for the selected verbosity.
func (opts *GlobalOptions) Printer() progress.Printer {
	return &stdioPrinter{opts: opts}
}

// stdoutIsTerminal reports whether progress output goes to an interactive
// terminal.
func stdoutIsTerminal() bool {
	f, ok := globalOptions.stdout.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

type stdioPrinter struct {
	opts *GlobalOptions
}

var _ progress.Printer = (*stdioPrinter)(nil)

func (p *stdioPrinter) E(msg string, args ...interface{}) {
	fmt.Fprintf(p.opts.stderr, msg+"\n", args...)
}

func (p *stdioPrinter) P(msg string, args ...interface{}) {
	if p.opts.verbosity >= 1 {
		fmt.Fprintf(p.opts.stdout, msg+"\n", args...)
	}
}

func (p *stdioPrinter) V(msg string, args ...interface{}) {
	if p.opts.verbosity >= 2 {
		fmt.Fprintf(p.opts.stdout, msg+"\n", args...)
	}
}

func (p *stdioPrinter) VV(msg string, args ...interface{}) {
	if p.opts.verbosity >= 3 {
		fmt.Fprintf(p.opts.stdout, msg+"\n", args...)
	}
}
