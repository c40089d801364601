package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// statsCmd reports a point-in-time summary of the store.
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show store statistics",
	Long: `Show the number of live keys and the current generation number.

Example:
  eventkv stats`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		kv, err := storeFromContext(cmd)
		if err != nil {
			return err
		}
		s := kv.Stats()
		fmt.Fprintf(cmd.OutOrStdout(), "keys: %d\n", s.Keys)
		fmt.Fprintf(cmd.OutOrStdout(), "generation: %d\n", s.Generation)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
