package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/freyja-labs/eventkv/pkg/store"
)

// snapshotCmd forces an immediate snapshot, collapsing the event log
// accumulated since the last one.
var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Force a snapshot and retire the prior generation's files",
	Long: `Write a snapshot of the current in-memory state and retire the
files made obsolete by it.

Example:
  eventkv snapshot --save-mode async_clear`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		kv, err := storeFromContext(cmd)
		if err != nil {
			return err
		}
		mode := store.ParseSaveMode(saveMode)
		if err := kv.Save(mode); err != nil {
			return fmt.Errorf("snapshot: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "snapshot written at generation %d (%s)\n", kv.Generation(), mode)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(snapshotCmd)
}
