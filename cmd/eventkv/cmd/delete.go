package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// deleteCmd represents the delete command.
var deleteCmd = &cobra.Command{
	Use:   "delete <key>",
	Short: "Delete a key-value pair",
	Long: `Delete a key-value pair from the store.

Example:
  eventkv delete mykey`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kv, err := storeFromContext(cmd)
		if err != nil {
			return err
		}
		key := args[0]

		if err := kv.Erase(key); err != nil {
			return fmt.Errorf("delete key %q: %w", key, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted key %q\n", key)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}
