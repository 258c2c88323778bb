package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/notargets/meshwave/patchdist"
	"github.com/notargets/meshwave/types"
)

// SurfDistCmd represents the surfdist command
var SurfDistCmd = &cobra.Command{
	Use:   "surfdist",
	Short: "Distance across a boundary surface from its open edges",
	RunE: func(cmd *cobra.Command, args []string) error {
		mc, err := loadCase(cmd)
		if err != nil {
			return err
		}
		names, _ := cmd.Flags().GetStringSlice("patches")
		if len(names) == 0 {
			names = mc.params.Walls
		}
		var patchIDs []int
		if len(names) > 0 {
			if patchIDs, err = mc.mesh.PatchIDs(names...); err != nil {
				return err
			}
		} else {
			patchIDs = mc.mesh.PatchesOfType(types.Patch_Wall)
		}
		var res *patchdist.Result
		err = measure("surfdist", func() (err error) {
			res, err = patchdist.FromPerimeter(mc.mesh, patchIDs, patchdist.Options{
				MaxIter:   mc.params.MaxIterations,
				Tolerance: mc.params.Tolerance,
				Verbose:   viper.GetBool("verbose"),
			})
			return
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(mc.out, "%d iterations, %s, %d of %d faces unreached\n",
			res.Iterations, res.State, res.Unreached, res.Patch.NFaces())
		summarize(mc.out, "Surface distance", res.Distance)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(SurfDistCmd)
	addCaseFlags(SurfDistCmd)
	SurfDistCmd.Flags().StringSlice("patches", nil, "patches forming the surface, default the walls")
}
