package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var (
	storeEncrypted   bool
	storeUnencrypted bool
)

var storeCmd = &cobra.Command{
	Use:   "store NAME",
	Short: "Store a blob read from stdin",
	Long: `Store reads a payload from stdin and writes it to the token under NAME,
replacing any existing blob of the same name. With --encrypted the payload is
wrapped against the store's encryption key; only the public key is used, so
no PIN is needed to store.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if storeEncrypted == storeUnencrypted {
			return fmt.Errorf("exactly one of --encrypted or --unencrypted is required")
		}
		payload, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}

		s, err := newSession()
		if err != nil {
			return err
		}
		defer s.close()

		log.Debugf("storing %d bytes as %q (encrypted=%v)", len(payload), args[0], storeEncrypted)
		return s.Store(args[0], payload, storeEncrypted, s.auth())
	},
}

func init() {
	rootCmd.AddCommand(storeCmd)
	storeCmd.Flags().BoolVar(&storeEncrypted, "encrypted", false, "encrypt the payload against the store key")
	storeCmd.Flags().BoolVar(&storeUnencrypted, "unencrypted", false, "store the payload in the clear")
}
