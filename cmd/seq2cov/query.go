package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/inodb/seq2cov/internal/duckdb"
	"github.com/inodb/seq2cov/internal/output"
	"github.com/inodb/seq2cov/internal/report"
)

func newQueryCmd() *cobra.Command {
	var dbPath, sample, gene string

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Query depth reports stored in DuckDB",
		Long: `Print stored depth rows of one sample or of one gene across samples.
Without --sample or --gene, list the stored samples.`,
		Example: `  seq2cov query --duckdb depth.duckdb                 # list samples
  seq2cov query --duckdb depth.duckdb --sample sample1
  seq2cov query --duckdb depth.duckdb --gene BRCA1`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dbPath == "" {
				dbPath = viper.GetString("duckdb")
			}
			if dbPath == "" {
				return &usageError{errors.New("--duckdb is required")}
			}
			if sample != "" && gene != "" {
				return &usageError{errors.New("--sample and --gene are mutually exclusive")}
			}
			return runQuery(cmd.OutOrStdout(), dbPath, sample, gene)
		},
	}

	cmd.Flags().StringVar(&dbPath, "duckdb", "", "DuckDB file holding stored reports (default: config duckdb)")
	cmd.Flags().StringVar(&sample, "sample", "", "print the rows of this sample")
	cmd.Flags().StringVar(&gene, "gene", "", "print the rows of this gene across samples")

	return cmd
}

func runQuery(w io.Writer, dbPath, sample, gene string) error {
	store, err := duckdb.Open(dbPath)
	if err != nil {
		return fmt.Errorf("opening report store: %w", err)
	}
	defer store.Close()

	var rows []report.Row
	switch {
	case sample != "":
		rows, err = store.LookupSample(sample)
	case gene != "":
		rows, err = store.SearchByGene(gene)
	default:
		samples, err := store.Samples()
		if err != nil {
			return err
		}
		for _, s := range samples {
			fmt.Fprintln(w, s)
		}
		return nil
	}
	if err != nil {
		return err
	}

	return output.NewTabWriter(w).WriteAll(rows)
}
