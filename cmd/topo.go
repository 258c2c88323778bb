package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/notargets/meshwave/topodist"
	"github.com/notargets/meshwave/types"
)

// TopoCmd represents the topo command
var TopoCmd = &cobra.Command{
	Use:   "topo",
	Short: "Number of cells between every cell and the nearest wall",
	RunE: func(cmd *cobra.Command, args []string) error {
		mc, err := loadCase(cmd)
		if err != nil {
			return err
		}
		var patchIDs []int
		if len(mc.params.Walls) > 0 {
			if patchIDs, err = mc.mesh.PatchIDs(mc.params.Walls...); err != nil {
				return err
			}
		} else {
			patchIDs = mc.mesh.PatchesOfType(types.Patch_Wall)
		}
		var res *topodist.Result
		err = measure("topo", func() (err error) {
			res, err = topodist.Compute(mc.mesh, patchIDs, topodist.Options{
				MaxIter: mc.params.MaxIterations,
				Verbose: viper.GetBool("verbose"),
			})
			return
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(mc.out, "%d iterations, %s, %d cells unreached\n", res.Iterations, res.State, res.Unreached)
		fmt.Fprintf(mc.out, "%10s %10s\n", "distance", "cells")
		for d, n := range res.Histogram() {
			fmt.Fprintf(mc.out, "%10d %10d\n", d, n)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(TopoCmd)
	addCaseFlags(TopoCmd)
}
