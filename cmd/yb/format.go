package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/douzebis/yb/device"
	"github.com/douzebis/yb/store"
)

var (
	formatObjectCount int
	formatObjectSize  int
	formatKeySlot     uint8
	formatGenerate    bool
	formatSubject     string
)

var formatCmd = &cobra.Command{
	Use:   "format",
	Short: "Initialize an empty store on the token",
	Long: `Format wipes the configured object window and initializes an empty store.
With --generate, an EC P-256 key pair is first created in the encryption key
slot so that blobs can be stored encrypted.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession()
		if err != nil {
			return err
		}
		defer s.close()

		slot := device.KeySlot(formatKeySlot)
		if formatGenerate {
			log.Debugf("generating EC P-256 key pair in slot %02x", uint8(slot))
			if err := s.generateKey(slot, formatSubject); err != nil {
				return err
			}
		}

		p := store.Params{
			ObjectCount:       formatObjectCount,
			ObjectSize:        formatObjectSize,
			EncryptionKeySlot: uint8(slot),
		}
		if err := s.Format(p, s.auth()); err != nil {
			return err
		}
		fmt.Printf("formatted %d objects of %d bytes\n", p.ObjectCount, p.ObjectSize)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(formatCmd)
	formatCmd.Flags().IntVar(&formatObjectCount, "object-count", device.DefaultObjectCount, "number of objects in the store")
	formatCmd.Flags().IntVar(&formatObjectSize, "object-size", store.MaxObjectSize, "byte size of each object")
	formatCmd.Flags().Uint8Var(&formatKeySlot, "slot", 0x9e, "encryption key slot (0 for an unencrypted store)")
	formatCmd.Flags().BoolVar(&formatGenerate, "generate", false, "generate the encryption key pair before formatting")
	formatCmd.Flags().StringVar(&formatSubject, "subject", "/CN=YB ECCP256", "certificate subject for --generate")
}
