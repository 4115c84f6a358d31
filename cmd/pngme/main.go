// Command pngme hides messages in PNG files.
//
// Usage:
//
//	pngme encode <path> <chunk-type> <message> [output]
//	pngme decode <path> <chunk-type>
//	pngme remove <path> <chunk-type>
//	pngme print <path>
//	pngme restore <cid> <path>
//	pngme cid <path>
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"xdao.co/pngme/config"
	"xdao.co/pngme/png"
)

// EnvPassphrase supplies the passphrase when --passphrase is not set.
const EnvPassphrase = "PNGME_PASSPHRASE"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// usageError marks errors caused by bad invocation; they exit with 2.
type usageError struct{ error }

func (e usageError) Unwrap() error { return e.error }

func run(args []string, out io.Writer, errOut io.Writer) int {
	a := &app{out: out, errOut: errOut, log: zap.NewNop()}
	root := a.rootCommand()
	if args == nil {
		// cobra falls back to os.Args for a nil slice.
		args = []string{}
	}
	root.SetArgs(args)
	root.SetOut(out)
	root.SetErr(errOut)

	err := root.Execute()
	_ = a.log.Sync()
	if err == nil {
		return 0
	}

	var ue usageError
	if errors.As(err, &ue) {
		fmt.Fprintf(errOut, "%v\n\n", err)
		fmt.Fprint(errOut, root.UsageString())
		return 2
	}
	fmt.Fprintf(errOut, "error: %s\n", describe(err))
	return 1
}

// describe prefixes chunk-level errors with their kind and rule id.
func describe(err error) string {
	var pe *png.Error
	if errors.As(err, &pe) {
		return fmt.Sprintf("%s (%s): %v", pe.Kind, pe.RuleID, err)
	}
	return err.Error()
}

type app struct {
	out    io.Writer
	errOut io.Writer
	log    *zap.Logger

	verbose     bool
	configPath  string
	snapshotDir string
	passphrase  string
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "pngme",
		Short:         "Hide messages in PNG files.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.log = newLogger(a.errOut, a.verbose)
			if a.passphrase == "" {
				a.passphrase = os.Getenv(EnvPassphrase)
			}
			return nil
		},
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return usageError{fmt.Errorf("unknown command %q for %q", args[0], cmd.CommandPath())}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return usageError{errors.New("missing command")}
		},
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})

	flags := root.PersistentFlags()
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "Log debug information.")
	flags.StringVar(&a.configPath, "config", "", "Config file (default $"+config.EnvPath+").")
	flags.StringVar(&a.snapshotDir, "snapshot-dir", "", "Store pre-write snapshots in this directory.")
	flags.StringVar(&a.passphrase, "passphrase", "", "Seal and open messages with this passphrase (default $"+EnvPassphrase+").")

	root.AddCommand(
		a.encodeCommand(),
		a.decodeCommand(),
		a.removeCommand(),
		a.printCommand(),
		a.restoreCommand(),
		a.cidCommand(),
	)
	return root
}

func newLogger(w io.Writer, verbose bool) *zap.Logger {
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if verbose {
		level.SetLevel(zapcore.DebugLevel)
	}
	enc := zap.NewDevelopmentEncoderConfig()
	enc.TimeKey = ""
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.AddSync(w), level)
	return zap.New(core).Named("pngme")
}

// exactArgs is cobra.ExactArgs reporting a usage error.
func exactArgs(n int) cobra.PositionalArgs {
	return rangeArgs(n, n)
}

func rangeArgs(min, max int) cobra.PositionalArgs {
	check := cobra.RangeArgs(min, max)
	return func(cmd *cobra.Command, args []string) error {
		if err := check(cmd, args); err != nil {
			return usageError{err}
		}
		return nil
	}
}
