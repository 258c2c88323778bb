package cmd

import (
	"github.com/spf13/cobra"
)

// DecomposeCmd represents the decompose command
var DecomposeCmd = &cobra.Command{
	Use:   "decompose",
	Short: "Split the mesh over processors and report the partition quality",
	RunE: func(cmd *cobra.Command, args []string) error {
		mc, err := loadCase(cmd)
		if err != nil {
			return err
		}
		if mc.params.Processors < 1 {
			mc.params.Processors = 1
		}
		return measure("decompose", func() error {
			d, _, err := mc.decompose()
			if err != nil {
				return err
			}
			d.Print(mc.out)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(DecomposeCmd)
	addCaseFlags(DecomposeCmd)
}
