/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/freyja-labs/eventkv/pkg/serial"
	"github.com/freyja-labs/eventkv/pkg/store"
)

type storeCtxKey struct{}

// KV is the concrete string-keyed, byte-valued store the CLI operates on.
type KV = store.Store[string, []byte]

var (
	dataDir    string
	bufferSize int
	forceCRC32 bool
	saveMode   string
	createDir  bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "eventkv",
	Short: "eventkv - embeddable key-value store with an append-only event log",
	Long: `eventkv is an embeddable key-value store backed by an append-only
event log plus periodic snapshots, giving deterministic recovery after a
crash or clean restart.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var flags store.Flags
		if createDir {
			flags |= store.CreateDir
		}
		kv, err := store.New(store.Config[string, []byte]{
			Dir:        dataDir,
			Flags:      flags,
			BufferSize: bufferSize,
			ForceCRC32: forceCRC32,
			KeySer:     serial.String{},
			ValSer:     serial.Bytes{},
		})
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
		cmd.SetContext(context.WithValue(cmd.Context(), storeCtxKey{}, kv))
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		kv, ok := cmd.Context().Value(storeCtxKey{}).(*KV)
		if !ok {
			return nil
		}
		if err := kv.Flush(true); err != nil {
			return fmt.Errorf("failed to flush store: %w", err)
		}
		return kv.Close()
	},
}

func storeFromContext(cmd *cobra.Command) (*KV, error) {
	kv, ok := cmd.Context().Value(storeCtxKey{}).(*KV)
	if !ok {
		return nil, fmt.Errorf("store not found in command context")
	}
	return kv, nil
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main(). It only needs to happen
// once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&dataDir, "data-dir", "d", "./data", "Data directory for the store")
	rootCmd.PersistentFlags().IntVar(&bufferSize, "buffer-size", 512*1024, "Initial payload buffer size in bytes")
	rootCmd.PersistentFlags().BoolVar(&forceCRC32, "force-crc32", false, "Always checksum frames with CRC32C")
	rootCmd.PersistentFlags().StringVar(&saveMode, "save-mode", "sync", "Save mode: sync, async_clear, or fork_save")
	rootCmd.PersistentFlags().BoolVar(&createDir, "create-dir", true, "Create the data directory if it does not exist")
}
