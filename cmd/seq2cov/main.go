// Package main provides the seq2cov command-line tool.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Exit codes
const (
	ExitSuccess = 0
	ExitError   = 1
	ExitUsage   = 2
)

// Version information (set at build time)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// configName is the config file looked up in the home directory.
const configName = ".seq2cov.yaml"

var cfgFile string

// usageError marks errors caused by how the command was invoked.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		var ue *usageError
		if errors.As(err, &ue) {
			return ExitUsage
		}
		return ExitError
	}
	return ExitSuccess
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seq2cov",
		Short: "Per-amplicon and per-gene mean read depth from a BAM file",
		Long: `seq2cov computes the mean read depth of every target region in a BED file
and of every gene (regions sharing a name), writing a tab-separated report.`,
		Example: `  seq2cov -b sample.bam -p targets.bed -N sample1
  seq2cov -b sample.bam -p targets.bed.gz -N sample1 -o sample1.cov.txt
  seq2cov -b sample.bam -p targets.bed -N sample1 --duckdb depth.duckdb`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := bindCountFlags(cmd); err != nil {
				return err
			}
			opts, err := loadOptions(viper.GetViper())
			if err != nil {
				return &usageError{err}
			}
			logger, err := newLogger(opts.Verbose)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck
			return runCount(cmd.Context(), opts, logger, cmd.OutOrStdout())
		},
	}
	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return &usageError{err}
	})

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/"+configName+")")
	addCountFlags(cmd)

	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newQueryCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func addCountFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringP("bam", "b", "", "alignment file, BAM or SAM ('-' for stdin)")
	f.StringP("bed", "p", "", "target regions in BED format, optionally gzipped")
	f.StringP("sample-name", "N", "", "sample name written to the Sample column")
	f.Bool("legacy-length", true, "add one to every amplicon length")
	f.StringP("output", "o", "", "output file (default: stdout)")
	f.IntP("threads", "t", 1, "BGZF decompression goroutines")
	f.String("index", "sorted", "region index kind: sorted or tree")
	f.String("duckdb", "", "also store report rows in this DuckDB file")
	f.Bool("reuse", false, "load rows from --duckdb when the stored run matches the inputs")
	f.Float64("min-depth", 0, "summary threshold for low-depth amplicons")
	f.BoolP("verbose", "v", false, "debug logging")
}

// initConfig loads the config file and environment into viper.
func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if home, err := os.UserHomeDir(); err == nil {
		viper.SetConfigFile(filepath.Join(home, configName))
	}

	viper.SetEnvPrefix("SEQ2COV")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("reading config: %w", err)
		}
	}
	return nil
}

// bindCountFlags binds the counting flags so an explicitly set flag
// overrides the environment and the config file.
func bindCountFlags(cmd *cobra.Command) error {
	var err error
	cmd.LocalNonPersistentFlags().VisitAll(func(f *pflag.Flag) {
		if err == nil && f.Name != "help" {
			err = viper.BindPFlag(f.Name, f)
		}
	})
	return err
}

// newLogger builds a console logger on stderr.
func newLogger(verbose bool) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.Development = false
	cfg.DisableStacktrace = true
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	return cfg.Build()
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "seq2cov version %s (%s) built %s\n", version, commit, date)
		},
	}
}
