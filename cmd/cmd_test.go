package cmd

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const channelCase = `
Title: Channel
Block:
  N: [6, 3, 1]
  Types:
    ymin: wall
    ymax: wall
Cyclics:
  - A: xmin
    B: xmax
Processors: 2
Correct: true
`

func run(t *testing.T, args ...string) string {
	file := filepath.Join(t.TempDir(), "case.yaml")
	require.NoError(t, os.WriteFile(file, []byte(channelCase), 0o644))
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs(append(args, "-I", file))
	require.NoError(t, rootCmd.Execute())
	return buf.String()
}

func TestWallDistCommand(t *testing.T) {
	out := run(t, "walldist")
	// Cells sit 0.5 and 1.5 from the nearest of the two walls
	assert.Contains(t, out, "Wall distance: min      0.5, max      1.5")
	assert.Contains(t, out, "0 cells unreached")
}

func TestTopoCommand(t *testing.T) {
	out := run(t, "topo")
	assert.Contains(t, out, "         0         12")
	assert.Contains(t, out, "         1          6")
}

func TestSurfDistCommand(t *testing.T) {
	out := run(t, "surfdist", "--patches", "ymin")
	// every face of the strip is half a cell from its long edges
	assert.Contains(t, out, "0 of 6 faces unreached")
	assert.Contains(t, out, "Surface distance: min      0.5, max      0.5")
}

func TestDecomposeCommand(t *testing.T) {
	out := run(t, "decompose")
	assert.Contains(t, out, "shared pts")
}

func TestMissingMesh(t *testing.T) {
	rootCmd.SetArgs([]string{"pointdist", "--walls", "ymin"})
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetErr(&bytes.Buffer{})
	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "example case file")
}

func TestSummarize(t *testing.T) {
	var buf bytes.Buffer
	summarize(&buf, "d", []float64{1, 3, math.Inf(1)})
	assert.Equal(t, "d: min        1, max        3, mean        2 over 2 of 3\n", buf.String())
	buf.Reset()
	summarize(&buf, "d", nil)
	assert.Equal(t, "d: no values\n", buf.String())
}
