// Package cmd implements the cigen CLI: a thin cobra front end over
// internal/pipeline's Load/Validate/Generate/Hash API. Grounded on the
// teacher's src/cli/cmd/root.go (PersistentPreRunE loads config once per
// invocation unless the subcommand opts out) and src/cli/main.go (a
// one-line main() that just calls Execute and turns its result into an
// exit code).
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/cigen-dev/cigen/internal/diag"
	"github.com/cigen-dev/cigen/internal/pipeline"
)

var (
	rootDir    string
	verbose    bool
	varFlags   []string
	model      *pipeline.Model
	log        zerolog.Logger
	noModelCmd = map[string]bool{"help": true, "completion": true}
)

var rootCmd = &cobra.Command{
	Use:   "cigen",
	Short: "Provider-agnostic CI/CD pipeline compiler",
	Long:  "cigen compiles a provider-agnostic pipeline description into native CircleCI or GitHub Actions YAML.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		log = newLogger(verbose)
		if noModelCmd[cmd.Name()] {
			return nil
		}
		m, diags, err := pipeline.Load(context.Background(), rootDir, parseVarFlags(varFlags))
		logDiagnostics(diags)
		if err != nil {
			return err
		}
		model = m
		return nil
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootDir, "root", ".cigen", "project root directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose structured logging")
	rootCmd.PersistentFlags().StringArrayVar(&varFlags, "var", nil, "template variable override, K=V (repeatable)")
}

// newLogger builds the zerolog.Logger that this package stores in its
// package-level log variable for the rest of this invocation (the
// internal/ packages do not receive it): leveled key=value console output by
// default, JSON when --verbose is set or stderr isn't a terminal (e.g.
// piped into CI log collection), per SPEC_FULL.md §7.
func newLogger(verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	var w zerolog.ConsoleWriter
	var logger zerolog.Logger
	if verbose || !isatty.IsTerminal(os.Stderr.Fd()) {
		logger = zerolog.New(os.Stderr)
	} else {
		w = zerolog.ConsoleWriter{Out: os.Stderr, NoColor: false}
		logger = zerolog.New(w)
	}
	return logger.Level(level).With().Timestamp().Logger()
}

func parseVarFlags(flags []string) map[string]string {
	out := map[string]string{}
	for _, f := range flags {
		k, v, ok := strings.Cut(f, "=")
		if !ok {
			continue
		}
		out[k] = v
	}
	return out
}

func logDiagnostics(diags []diag.Diagnostic) {
	for _, d := range diags {
		switch d.Severity {
		case diag.SeverityError:
			log.Error().Str("code", d.Code).Msg(d.Message)
		case diag.SeverityWarning:
			log.Warn().Str("code", d.Code).Msg(d.Message)
		default:
			log.Info().Str("code", d.Code).Msg(d.Message)
		}
	}
}

// ExecuteOrExit runs the root command and maps its outcome to one of the
// exit codes spec.md §6 names: 0 success, 1 generic failure, 2 validation
// error, 3 plugin failure, 4 I/O error.
func ExecuteOrExit() int {
	err := rootCmd.Execute()
	if err == nil {
		return 0
	}
	fmt.Fprintln(os.Stderr, err)

	var configErr *diag.ConfigError
	var templateErr *diag.TemplateError
	var refErr *diag.ReferenceError
	var graphErr *diag.GraphError
	var hashErr *diag.HashError
	var pluginErr *diag.PluginError
	var ioErr *diag.IOError
	var validationErr *validationFailedError

	switch {
	case errors.As(err, &pluginErr):
		return 3
	case errors.As(err, &ioErr):
		return 4
	case errors.As(err, &configErr), errors.As(err, &templateErr), errors.As(err, &refErr),
		errors.As(err, &graphErr), errors.As(err, &hashErr), errors.As(err, &validationErr):
		return 2
	default:
		return 1
	}
}
