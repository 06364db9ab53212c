// The main package for the grocery-scraper executable.
package main

import (
	"github.com/adv4nt4ge/grocery-scraper/cmd"
)

// main is the entry point of the application.
// It defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
