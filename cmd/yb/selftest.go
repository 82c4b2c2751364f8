package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/douzebis/yb/blobfs"
	"github.com/douzebis/yb/device"
	"github.com/douzebis/yb/selftest"
	"github.com/douzebis/yb/store"
)

var (
	selfTestOps       int
	selfTestSeed      int64
	selfTestEjection  float64
	selfTestEncrypted float64
)

var selfTestCmd = &cobra.Command{
	Use:   "self-test",
	Short: "Exercise the store with random operations on an emulated token",
	Long: `Self-test runs a pseudo-random sequence of store/fetch/remove/list
operations against an in-memory emulated token and verifies every result
against a reference filesystem. With --ejection, writes are randomly
interrupted to exercise crash recovery.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		emu := device.NewEmulator(device.DefaultPIN, nil)
		if err := emu.GenerateKey(0x9e); err != nil {
			return err
		}
		if selfTestEjection > 0 {
			emu.SetEjection(selfTestEjection, selfTestSeed+1)
		}

		session := blobfs.New(emu, nil)
		auth := device.Auth{PIN: device.DefaultPIN}
		p := store.Params{
			ObjectCount:       device.DefaultObjectCount,
			ObjectSize:        store.MaxObjectSize,
			EncryptionKeySlot: 0x9e,
		}
		if err := session.Format(p, auth); err != nil {
			return err
		}

		maxPayload := 16 * 1024
		gen := selftest.NewGenerator(selfTestSeed, 12, maxPayload, selfTestEncrypted)
		log.Infof("running %d operations (seed %d, ejection %.2f%%)",
			selfTestOps, selfTestSeed, selfTestEjection*100)
		stats := selftest.Run(session, gen, selfTestOps, device.DefaultPIN, auth)

		fmt.Printf("operations: %d  passed: %d  failed: %d  ejections: %d\n",
			stats.Total, stats.Passed, stats.Failed, stats.Ejections)
		fmt.Printf("  store: %d  fetch: %d  remove: %d  list: %d\n",
			stats.StoreOps, stats.FetchOps, stats.RemoveOps, stats.ListOps)
		for _, failure := range stats.Failures {
			fmt.Printf("  FAIL %s\n", failure)
		}
		if stats.Failed > 0 {
			return fmt.Errorf("self-test failed (%d of %d operations)", stats.Failed, stats.Total)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(selfTestCmd)
	selfTestCmd.Flags().IntVar(&selfTestOps, "operations", 200, "number of operations to run")
	selfTestCmd.Flags().Int64Var(&selfTestSeed, "seed", 42, "random seed")
	selfTestCmd.Flags().Float64Var(&selfTestEjection, "ejection", 0, "per-write ejection probability (0-1)")
	selfTestCmd.Flags().Float64Var(&selfTestEncrypted, "encrypted-ratio", 0.5, "fraction of stores that encrypt")
}
