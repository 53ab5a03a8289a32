package main

import (
	"os"

	"github.com/BranchIntl/miniworker"
)

// The bare miniworker binary has no workers registered; it is mainly
// useful for the status command. Worker binaries embed the framework
// and call miniworker.Execute themselves after registering types.
func main() {
	os.Exit(miniworker.Execute(os.Args[1:]))
}
