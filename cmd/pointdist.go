package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/notargets/meshwave/decompose"
	"github.com/notargets/meshwave/parallel"
	"github.com/notargets/meshwave/walldist"
)

// PointDistCmd represents the pointdist command
var PointDistCmd = &cobra.Command{
	Use:   "pointdist",
	Short: "Distance from every mesh point to the nearest wall point, along mesh edges",
	RunE: func(cmd *cobra.Command, args []string) error {
		mc, err := loadCase(cmd)
		if err != nil {
			return err
		}
		opts := walldist.Options{
			Patches:   mc.params.Walls,
			MaxIter:   mc.params.MaxIterations,
			Tolerance: mc.params.Tolerance,
			Verbose:   viper.GetBool("verbose"),
		}
		var (
			distance   []float64
			unreached  int
			iterations int
		)
		err = measure("pointdist", func() error {
			if !mc.parallel() {
				res, err := walldist.PointDistance(mc.mesh, opts)
				if err != nil {
					return err
				}
				distance, unreached, iterations = res.Distance, res.Unreached, res.Iterations
				return nil
			}
			d, world, err := mc.decompose()
			if err != nil {
				return err
			}
			fields := make([][]float64, d.NProcs)
			err = parallel.Run(world, func(comm parallel.Comm) error {
				o := opts
				o.Comm = comm
				res, err := walldist.PointDistance(d.Meshes[comm.Rank()], o)
				if err != nil {
					return err
				}
				fields[comm.Rank()] = res.Distance
				if comm.Rank() == 0 {
					unreached, iterations = res.Unreached, res.Iterations
				}
				return nil
			})
			if err != nil {
				return err
			}
			distance, err = decompose.ReconstructPointField(d, fields)
			return err
		})
		if err != nil {
			return err
		}
		summarize(mc.out, "Point wall distance", distance)
		fmt.Fprintf(mc.out, "%d iterations, %d points unreached\n", iterations, unreached)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(PointDistCmd)
	addCaseFlags(PointDistCmd)
}
