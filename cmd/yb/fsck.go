package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var fsckCmd = &cobra.Command{
	Use:   "fsck",
	Short: "Dump the decoded store image",
	Long: `Fsck prints the raw decoded state of every object without sanitizing.
Inconsistent slots show up exactly as the device holds them; nothing is
written back.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession()
		if err != nil {
			return err
		}
		defer s.close()

		st, err := s.Fsck()
		if err != nil {
			return err
		}
		fmt.Printf("store: %d objects of %d bytes, key slot %02x, age %d\n",
			st.ObjectCount, st.ObjectSize, st.EncryptionKeySlot, st.Age)
		for _, obj := range st.Objects {
			if obj.Age == 0 {
				if obj.Dirty {
					fmt.Printf("object %2d: empty (undecodable, reset in memory)\n", obj.Index)
				} else {
					fmt.Printf("object %2d: empty\n", obj.Index)
				}
				continue
			}
			line := fmt.Sprintf("object %2d: age %d pos %d next %d",
				obj.Index, obj.Age, obj.ChunkPos, obj.Next)
			if obj.IsHead() {
				line += fmt.Sprintf(" name %q size %d unenc %d key %02x",
					obj.BlobName, obj.BlobSize, obj.BlobUnencSize, obj.BlobKeySlot)
			}
			fmt.Println(line)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(fsckCmd)
}
