//go:build linux

package cmd

import (
	"fmt"
	"log"

	perf "github.com/hodgesds/perf-utils"
)

func countInstructions(name string, fn func() error) error {
	var fnErr error
	pv, err := perf.CPUInstructions(func() error {
		fnErr = fn()
		return fnErr
	})
	if fnErr != nil {
		return fnErr
	}
	if err != nil {
		return fmt.Errorf("counting instructions: %w", err)
	}
	log.Printf("%s: %d CPU instructions", name, pv.Value)
	return nil
}
