package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// putCmd represents the put command.
var putCmd = &cobra.Command{
	Use:   "put <key> <value>",
	Short: "Put a key-value pair",
	Long: `Put a key-value pair into the store.

Example:
  eventkv put mykey myvalue`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kv, err := storeFromContext(cmd)
		if err != nil {
			return err
		}
		key, value := args[0], []byte(args[1])

		if err := kv.Update(key, value); err != nil {
			return fmt.Errorf("put key %q: %w", key, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "put key %q\n", key)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(putCmd)
}
