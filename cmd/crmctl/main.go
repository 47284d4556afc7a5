package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "crmctl",
		Short:         "Operate the CRM notification engine from the command line",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to configuration directory or file")

	rootCmd.AddCommand(migrateCmd(opts))
	rootCmd.AddCommand(jobsCmd(opts))
	rootCmd.AddCommand(notifyCmd(opts))
	rootCmd.AddCommand(notificationsCmd(opts))
	rootCmd.AddCommand(tokenCmd(opts))

	return rootCmd
}
