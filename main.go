// The main package for the uwasa executable.
package main

import (
	"github.com/uwasa-watch/uwasa/cmd"
)

// main is the entry point of the application.
// It defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
