package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/notargets/meshwave/walldist"
)

// WallDistCmd represents the walldist command
var WallDistCmd = &cobra.Command{
	Use:   "walldist",
	Short: "Distance from every cell to the nearest wall",
	Long: `
Seeds the wall faces with their centres and propagates the nearest wall point through the mesh.
With --correct the cells touching the wall get the exact distance to the wall faces around them.

meshwave walldist -F mesh.su2 --walls Wall-airfoil --correct`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		mc, err := loadCase(cmd)
		if err != nil {
			return err
		}
		ip := mc.params
		correct, _ := cmd.Flags().GetBool("correct")
		opts := walldist.Options{
			Patches:   ip.Walls,
			Correct:   ip.Correct || correct,
			MaxIter:   ip.MaxIterations,
			Tolerance: ip.Tolerance,
			Verbose:   viper.GetBool("verbose"),
		}
		var res *walldist.Result
		err = measure("walldist", func() (err error) {
			if !mc.parallel() {
				res, err = walldist.MeshWave(mc.mesh, opts)
				return
			}
			d, world, err := mc.decompose()
			if err != nil {
				return err
			}
			res, err = walldist.Parallel(d, world, opts)
			return
		})
		if err != nil {
			return err
		}
		summarize(mc.out, "Wall distance", res.Distance)
		fmt.Fprintf(mc.out, "%d iterations, %s, %d cells unreached, %d corrected\n",
			res.Iterations, res.State, res.Unreached, res.Corrected)
		if file, _ := cmd.Flags().GetString("output"); file != "" {
			return writeCellField(file, mc, res.Distance)
		}
		return nil
	},
}

// writeCellField writes one line per cell: centre and value
func writeCellField(file string, mc *meshCase, field []float64) (err error) {
	f, err := os.Create(file)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	for c, x := range mc.mesh.CellCentres() {
		if _, err = fmt.Fprintf(f, "%g %g %g %g\n", x.X, x.Y, x.Z, field[c]); err != nil {
			return
		}
	}
	return
}

func init() {
	rootCmd.AddCommand(WallDistCmd)
	addCaseFlags(WallDistCmd)
	WallDistCmd.Flags().Bool("correct", false, "exact distance for cells touching the wall")
	WallDistCmd.Flags().StringP("output", "o", "", "write cell centres and distances to this file")
}
