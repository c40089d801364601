package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// getCmd represents the get command.
var getCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a value for a key",
	Long: `Get a value for a key from the store.

Example:
  eventkv get mykey`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kv, err := storeFromContext(cmd)
		if err != nil {
			return err
		}
		key := args[0]

		value, ok := kv.Get(key)
		if !ok {
			return fmt.Errorf("key %q not found", key)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n", string(value))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(getCmd)
}
