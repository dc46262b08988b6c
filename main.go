// The main package for the domain-crawler executable.
package main

import (
	"github.com/JakeFAU/domain-crawler/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
