package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/notargets/meshwave/regions"
)

// RegionsCmd represents the regions command
var RegionsCmd = &cobra.Command{
	Use:   "regions",
	Short: "Connected cell regions, and surface regions split at feature edges",
	RunE: func(cmd *cobra.Command, args []string) error {
		mc, err := loadCase(cmd)
		if err != nil {
			return err
		}
		_, nCellRegions := mc.mesh.ConnectedRegions()
		fmt.Fprintf(mc.out, "%d connected cell regions\n", nCellRegions)

		names, _ := cmd.Flags().GetStringSlice("patches")
		angle, _ := cmd.Flags().GetFloat64("featureAngle")
		if !cmd.Flags().Changed("featureAngle") && mc.params.FeatureAngle > 0 {
			angle = mc.params.FeatureAngle
		}
		patchIDs := make([]int, len(mc.mesh.Patches))
		for i := range patchIDs {
			patchIDs[i] = i
		}
		if len(names) > 0 {
			if patchIDs, err = mc.mesh.PatchIDs(names...); err != nil {
				return err
			}
		}
		var pr *regions.PatchRegions
		err = measure("regions", func() (err error) {
			pr, err = regions.NewPatchRegions(mc.mesh, patchIDs, angle)
			return
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(mc.out, "%d surface regions at feature angle %g, %d feature edges\n",
			pr.NRegions, angle, len(pr.FeatureEdges))
		fmt.Fprintf(mc.out, "%8s %8s %s\n", "region", "faces", "first patch")
		for r := 0; r < pr.NRegions; r++ {
			faces := pr.RegionFaces(r)
			fmt.Fprintf(mc.out, "%8d %8d %s\n", r, len(faces), mc.mesh.Patches[mc.mesh.WhichPatch(faces[0])].Name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(RegionsCmd)
	addCaseFlags(RegionsCmd)
	RegionsCmd.Flags().StringSlice("patches", nil, "patches forming the surface, default all")
	RegionsCmd.Flags().Float64("featureAngle", 45, "angle in degrees above which an edge splits regions")
}
