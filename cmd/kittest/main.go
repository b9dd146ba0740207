// Command kittest compiles Kitten sources into class files, archives them
// and runs their generated test harnesses.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
