package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var lsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List blobs",
	Long: `List prints one line per blob: an encryption marker ('-' encrypted,
'U' unencrypted), the chunk count, the payload size, the modification date,
and the name.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession()
		if err != nil {
			return err
		}
		defer s.close()

		infos, err := s.List()
		if err != nil {
			return err
		}
		for _, info := range infos {
			marker := "U"
			if info.Encrypted {
				marker = "-"
			}
			date := time.Unix(info.ModTime, 0).Format("2006-01-02 15:04")
			fmt.Printf("%s %2d %8d %-16s %s\n", marker, info.Chunks, info.Size, date, info.Name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(lsCmd)
}
