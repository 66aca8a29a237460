package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/pharma-pipeline/pkg/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the build version and exit",
	// No PersistentPreRunE dependency: printing the version must not
	// require a reachable config directory.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println(version.Full())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
