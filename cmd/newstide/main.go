// The main package for the newstide executable.
package main

import (
	"github.com/newstide/newstide/internal/cli"
)

// main is the entry point of the application.
// It defers all execution to the Cobra CLI library.
func main() {
	cli.Execute()
}
