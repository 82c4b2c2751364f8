package main

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/douzebis/yb/device"
)

var pubkeySlot uint8

var pubkeyCmd = &cobra.Command{
	Use:   "pubkey",
	Short: "Print the public key of a device key slot",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession()
		if err != nil {
			return err
		}
		defer s.close()

		point, err := s.PublicKey(device.KeySlot(pubkeySlot))
		if err != nil {
			return err
		}
		fmt.Println(hex.EncodeToString(point))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pubkeyCmd)
	pubkeyCmd.Flags().Uint8Var(&pubkeySlot, "slot", 0x9e, "device key slot")
}
