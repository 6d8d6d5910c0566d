package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	domain "github.com/bryanwahyu/brandcount/internal/domain/extraction"
	"github.com/bryanwahyu/brandcount/internal/infra/db/sqlstore"
)

func newFailuresCmd(opts *rootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:         "failures <analysis-id>",
		Short:       "Print the recorded failures of one analysis, newest first",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{annotationStorageOnly: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseAnalysisID(args[0])
			if err != nil {
				return err
			}
			conn, dialect, err := openDB(cmd.Context(), opts.cfg)
			if err != nil {
				return err
			}
			defer conn.Close()

			repo := sqlstore.NewRepository(conn, dialect, opts.logger)
			failures, err := repo.ListFailures(cmd.Context(), id, limit)
			if err != nil {
				return fmt.Errorf("list failures: %w", err)
			}
			return printFailures(cmd, failures)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of failures to print")
	return cmd
}

func parseAnalysisID(s string) (domain.AnalysisID, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("analysis id must be a positive integer, got %q", s)
	}
	return domain.AnalysisID(n), nil
}

func printFailures(cmd *cobra.Command, failures []*domain.Failure) error {
	if failures == nil {
		// encode [] instead of null
		failures = []*domain.Failure{}
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(failures)
}
