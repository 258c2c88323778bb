package cmd

import (
	"fmt"
	"io"
	"math"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/notargets/meshwave/InputParameters"
	"github.com/notargets/meshwave/decompose"
	"github.com/notargets/meshwave/mesh"
	"github.com/notargets/meshwave/parallel"
)

const exampleCase = `
########################################
Title: "Channel"
Block:
  N: [20, 10, 1]
  Length: [2, 1, 0.1]
  Types:
    ymin: wall
    ymax: wall
Cyclics:
  - A: xmin
    B: xmax
Processors: 1
Method: simple # or metis
Correct: true
########################################
`

func addCaseFlags(c *cobra.Command) {
	c.Flags().StringP("inputConditionsFile", "I", "", "YAML case file")
	c.Flags().StringP("gridFile", "F", "", "Grid file to read, SU2 (.su2) or Gambit neutral (.neu), overrides the case mesh")
	c.Flags().StringSlice("walls", nil, "wall patch names, overrides the case walls")
	c.Flags().IntP("np", "n", 0, "number of processors, overrides the case")
	c.Flags().String("method", "", "decomposition method, simple or metis")
	c.Flags().Int("maxIter", 0, "iteration budget, zero sizes it from the mesh")
}

type meshCase struct {
	params *InputParameters.CaseParameters
	mesh   *mesh.Mesh
	out    io.Writer
}

// loadCase reads the case file and applies the command line overrides
func loadCase(cmd *cobra.Command) (mc *meshCase, err error) {
	var (
		ip    = &InputParameters.CaseParameters{}
		flags = cmd.Flags()
	)
	if file, _ := flags.GetString("inputConditionsFile"); file != "" {
		var data []byte
		if data, err = os.ReadFile(file); err != nil {
			return nil, err
		}
		if err = ip.Parse(data); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", file, err)
		}
	}
	if flags.Changed("gridFile") {
		ip.MeshFile, _ = flags.GetString("gridFile")
		ip.Block = nil
	}
	if flags.Changed("walls") {
		ip.Walls, _ = flags.GetStringSlice("walls")
	}
	if flags.Changed("np") {
		ip.Processors, _ = flags.GetInt("np")
	}
	if flags.Changed("method") {
		ip.Method, _ = flags.GetString("method")
	}
	if flags.Changed("maxIter") {
		ip.MaxIterations, _ = flags.GetInt("maxIter")
	}
	if ip.Block == nil && ip.MeshFile == "" {
		return nil, fmt.Errorf("must supply a grid file (-F, --gridFile) or a case file (-I), example case file:%s",
			exampleCase)
	}
	mc = &meshCase{params: ip, out: cmd.OutOrStdout()}
	if mc.mesh, err = ip.BuildMesh(); err != nil {
		return nil, err
	}
	if viper.GetBool("verbose") {
		ip.Print(mc.out)
		mc.mesh.PrintStatistics(mc.out)
	}
	return
}

func (mc *meshCase) parallel() bool { return mc.params.Processors > 1 }

// decompose splits the mesh over the case processors and opens a world for them
func (mc *meshCase) decompose() (d *decompose.Decomposition, world *parallel.World, err error) {
	if d, err = decompose.Decompose(mc.mesh, mc.params.Processors, mc.params.DecompositionMethod()); err != nil {
		return nil, nil, err
	}
	if world, err = parallel.NewWorld(d.NProcs); err != nil {
		return nil, nil, err
	}
	return
}

// summarize prints the range and mean of the finite values of a field
func summarize(w io.Writer, name string, field []float64) {
	finite := make([]float64, 0, len(field))
	for _, v := range field {
		if !math.IsInf(v, 0) && !math.IsNaN(v) {
			finite = append(finite, v)
		}
	}
	if len(finite) == 0 {
		fmt.Fprintf(w, "%s: no values\n", name)
		return
	}
	fmt.Fprintf(w, "%s: min %8.5g, max %8.5g, mean %8.5g over %d of %d\n", name,
		floats.Min(finite), floats.Max(finite), stat.Mean(finite, nil), len(finite), len(field))
}
