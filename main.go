package main

import "github.com/notargets/meshwave/cmd"

func main() {
	cmd.Execute()
}
