package main

import (
	"fmt"

	"inquiryflow/internal/domain"

	"github.com/spf13/cobra"
)

func parseTarget(s string) (domain.SyncTarget, error) {
	target, ok := domain.ParseSyncTarget(s)
	if !ok {
		return "", fmt.Errorf("unknown sync target %q (want insightly or monday)", s)
	}
	return target, nil
}

func retrySyncCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "retry-sync <inquiry-id> <target>",
		Short: "Re-run one CRM sync for an inquiry",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := parseTarget(args[1])
			if err != nil {
				return err
			}
			res := e.app.Sync.Retry(cmd.Context(), args[0], target)
			if err := printJSON(cmd.OutOrStdout(), res); err != nil {
				return err
			}
			if !res.Success {
				return fmt.Errorf("sync failed: %s", res.ErrorCode)
			}
			return nil
		},
	}
}

func syncStatusCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "sync-status <inquiry-id>",
		Short: "Show the CRM sync state of an inquiry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			all, err := e.app.Sync.Tracker().GetAll(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), all)
		},
	}
}

func findDuplicatesCmd(e *env) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "find-duplicates <name>",
		Short: "Search the lead index for an existing person",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res := e.app.Duplicates.FindDuplicates(cmd.Context(), args[0], email)
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Also search by this email")
	return cmd
}

func sweepCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Retry every sync that failed because a CRM was unavailable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			results, err := e.app.Sweeper.SweepOnce(cmd.Context())
			if err != nil {
				return err
			}
			succeeded := 0
			for _, r := range results {
				if r.Success {
					succeeded++
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Retried %d syncs, %d succeeded\n", len(results), succeeded)
			return nil
		},
	}
}

func dispatchCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "dispatch",
		Short: "Deliver one batch of pending lifecycle events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := e.app.Dispatcher.DispatchOnce(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Delivered %d events\n", n)
			return nil
		},
	}
}
