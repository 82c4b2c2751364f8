package main

import (
	"os"

	"github.com/spf13/cobra"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch NAME",
	Short: "Write a blob to stdout",
	Long: `Fetch reads the named blob from the token and writes its payload to
stdout. Encrypted blobs require --pin for the on-device ECDH.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession()
		if err != nil {
			return err
		}
		defer s.close()

		payload, err := s.Fetch(args[0], s.cfg.PIN)
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(payload)
		return err
	},
}

func init() {
	rootCmd.AddCommand(fetchCmd)
}
