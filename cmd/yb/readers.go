package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/douzebis/yb/device"
)

var readersCmd = &cobra.Command{
	Use:   "readers",
	Short: "List connected PC/SC readers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		readers, err := device.ListReaders()
		if err != nil {
			return err
		}
		for _, r := range readers {
			fmt.Println(r)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(readersCmd)
}
