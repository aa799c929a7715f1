package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"inquiryflow/internal/app"
	"inquiryflow/internal/config"
	"inquiryflow/internal/logging"

	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// env carries the wired application into subcommands
type env struct {
	app *app.App
}

func rootCmd() *cobra.Command {
	e := &env{}
	var debug bool

	root := &cobra.Command{
		Use:           "inquiryctl",
		Short:         "Operate the inquiry orchestrator: staff accounts, CRM sync and the lifecycle outbox",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log, err := logging.New(debug || cfg.App.Debug)
			if err != nil {
				return err
			}
			a, err := app.New(cfg, log)
			if err != nil {
				return err
			}
			e.app = a
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if e.app == nil {
				return nil
			}
			_ = e.app.Logger.Sync()
			return e.app.Close()
		},
	}
	root.PersistentFlags().BoolVar(&debug, "debug", false, "Verbose console logging")

	root.AddCommand(createStaffCmd(e))
	root.AddCommand(retrySyncCmd(e))
	root.AddCommand(syncStatusCmd(e))
	root.AddCommand(findDuplicatesCmd(e))
	root.AddCommand(sweepCmd(e))
	root.AddCommand(dispatchCmd(e))
	return root
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
