package cmd

import (
	"log"
	"time"

	"github.com/pkg/profile"
	"github.com/spf13/viper"
)

// measure runs one computation under the profiler or the instruction counter when asked to,
// and logs its wall clock time otherwise
func measure(name string, fn func() error) error {
	if viper.GetBool("profile") {
		defer profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	}
	if viper.GetBool("perf") {
		return countInstructions(name, fn)
	}
	start := time.Now()
	err := fn()
	log.Printf("%s took %v", name, time.Since(start))
	return err
}
